package domain

import (
	"regexp"
	"strings"
	"time"
)

type User struct {
	ID            int64        `json:"id"`
	Username      string       `json:"username"`
	Email         string       `json:"email"`
	PhoneNumber   string       `json:"phoneNumber"`
	PasswordHash  string       `json:"-"`
	EmailVerified bool         `json:"emailVerified"`
	FirmDetails   *FirmDetails `json:"firmDetails,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// RegistrationStatusCompleted is the only status a firm record ever holds;
// it is written exactly once when step 2 commits.
const RegistrationStatusCompleted = "completed"

type FirmDetails struct {
	FirmName           string `json:"firmName"`
	FirmAddress        string `json:"firmAddress"`
	LicenseNumber      string `json:"licenseNumber"`
	RegistrationStatus string `json:"registrationStatus"`
}

// Step1Request carries the basic-info fields for registration step 1. The
// same shape is posted to send-otp, and verify-otp extends it with the code,
// because no user row exists until the OTP is verified.
type Step1Request struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	PhoneNumber     string `json:"phoneNumber"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type VerifyOTPRequest struct {
	Step1Request
	OTP string `json:"otp"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Step2Request carries the firm-detail fields for registration step 2.
type Step2Request struct {
	FirmName      string `json:"firmName"`
	FirmAddress   string `json:"firmAddress"`
	LicenseNumber string `json:"licenseNumber"`
}

var (
	emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRegex = regexp.MustCompile(`^[0-9]{10}$`)

	upperRegex  = regexp.MustCompile(`[A-Z]`)
	lowerRegex  = regexp.MustCompile(`[a-z]`)
	digitRegex  = regexp.MustCompile(`[0-9]`)
	symbolRegex = regexp.MustCompile(`[!@#$%^&*]`)
)

func (r *Step1Request) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.PhoneNumber = strings.TrimSpace(r.PhoneNumber)
}

// Validate collects every failing field rather than stopping at the first,
// so the client can mark all invalid inputs in one round trip.
func (r *Step1Request) Validate() *ValidationError {
	errs := map[string]string{}

	if len(r.Username) < 3 {
		errs["username"] = "Username must be at least 3 characters long"
	}

	if !emailRegex.MatchString(r.Email) {
		errs["email"] = "Please provide a valid email address"
	}

	if !phoneRegex.MatchString(r.PhoneNumber) {
		errs["phoneNumber"] = "Please provide a valid 10-digit phone number"
	}

	var missing []string
	if len(r.Password) < 8 {
		missing = append(missing, "at least 8 characters long")
	}
	if !upperRegex.MatchString(r.Password) {
		missing = append(missing, "one uppercase letter")
	}
	if !lowerRegex.MatchString(r.Password) {
		missing = append(missing, "one lowercase letter")
	}
	if !digitRegex.MatchString(r.Password) {
		missing = append(missing, "one number")
	}
	if !symbolRegex.MatchString(r.Password) {
		missing = append(missing, "one special character (!@#$%^&*)")
	}
	if len(missing) > 0 {
		errs["password"] = "Password must contain " + strings.Join(missing, ", ")
	}

	if r.Password != r.ConfirmPassword {
		errs["confirmPassword"] = "Passwords do not match"
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func (r *VerifyOTPRequest) Normalize() {
	r.Step1Request.Normalize()
	r.OTP = strings.TrimSpace(r.OTP)
}

func (r *VerifyOTPRequest) Validate() *ValidationError {
	err := r.Step1Request.Validate()
	if len(r.OTP) != 6 {
		if err == nil {
			err = &ValidationError{Fields: map[string]string{}}
		}
		err.Fields["otp"] = "Please provide the 6-digit code sent to your email"
	}
	return err
}

func (r *LoginRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

func (r *LoginRequest) Validate() *ValidationError {
	errs := map[string]string{}

	if !emailRegex.MatchString(r.Email) {
		errs["email"] = "Please provide a valid email address"
	}
	if r.Password == "" {
		errs["password"] = "Password is required"
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func (r *Step2Request) Normalize() {
	r.FirmName = strings.TrimSpace(r.FirmName)
	r.FirmAddress = strings.TrimSpace(r.FirmAddress)
	r.LicenseNumber = strings.TrimSpace(r.LicenseNumber)
}

func (r *Step2Request) Validate() *ValidationError {
	errs := map[string]string{}

	if len(r.FirmName) < 3 {
		errs["firmName"] = "Firm name must be at least 3 characters long"
	}
	if len(r.FirmAddress) < 10 {
		errs["firmAddress"] = "Please provide a complete firm address (at least 10 characters)"
	}
	if len(r.LicenseNumber) < 5 {
		errs["licenseNumber"] = "Please provide a valid license number (min 5 characters)"
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
