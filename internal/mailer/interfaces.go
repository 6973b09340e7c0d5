package mailer

type Service interface {
	SendOTPEmail(toEmail, code string) error
}
