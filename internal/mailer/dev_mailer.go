package mailer

import (
	"github.com/lexhaven/firmportal/pkg/logger"
)

// DevMailer logs the code instead of sending it. Default in development so
// the flow works without an SMTP server or API key.
type DevMailer struct{}

func NewDevMailer() *DevMailer {
	return &DevMailer{}
}

func (d *DevMailer) SendOTPEmail(toEmail, code string) error {
	logger.Info("[DEV MAIL] Verification code",
		"to", toEmail,
		"code", code,
	)
	return nil
}
