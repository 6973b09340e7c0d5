// Package service holds the business logic behind the portal's HTTP surface.
// registration.go drives the multi-step signup flow: basic info, OTP-gated
// email verification, then firm-detail completion.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/lexhaven/firmportal/internal/domain"
	"github.com/lexhaven/firmportal/internal/repo/postgres"
	"github.com/lexhaven/firmportal/pkg/auth"
	"github.com/lexhaven/firmportal/pkg/config"
	"github.com/lexhaven/firmportal/pkg/events"
	"github.com/lexhaven/firmportal/pkg/logger"
)

// OTPIssuer is the slice of the otp package the registration flow needs.
type OTPIssuer interface {
	Issue(ctx context.Context, email string) error
	Verify(ctx context.Context, email, code string) (bool, error)
}

type RegistrationService interface {
	// StartStep1 validates the basic-info fields, rejects uniqueness
	// collisions, and issues an OTP to the address. No user row is created
	// yet; resubmitting simply overwrites the pending code.
	StartStep1(ctx context.Context, req *domain.Step1Request) error
	// VerifyOTP consumes the code and, on success, creates the verified
	// user row and returns it together with a session token.
	VerifyOTP(ctx context.Context, req *domain.VerifyOTPRequest) (*domain.User, string, error)
	// CompleteStep2 writes the firm details for the authenticated user,
	// marking the registration completed. Last write wins on resubmission.
	CompleteStep2(ctx context.Context, userID int64, req *domain.Step2Request) (*domain.FirmDetails, error)

	Login(ctx context.Context, req *domain.LoginRequest) (*domain.User, string, error)
	Profile(ctx context.Context, userID int64) (*domain.User, error)

	EmailAvailable(ctx context.Context, email string) (bool, error)
	FirmNameAvailable(ctx context.Context, name string, excludeUserID int64) (bool, error)
	LicenseAvailable(ctx context.Context, license string, excludeUserID int64) (bool, error)
}

type registrationService struct {
	userRepo postgres.UserRepository
	otp      OTPIssuer
	eventBus events.Publisher
	config   *config.Config
}

func NewRegistrationService(
	userRepo postgres.UserRepository,
	otp OTPIssuer,
	eventBus events.Publisher,
	config *config.Config,
) RegistrationService {
	return &registrationService{
		userRepo: userRepo,
		otp:      otp,
		eventBus: eventBus,
		config:   config,
	}
}

func (s *registrationService) StartStep1(ctx context.Context, req *domain.Step1Request) error {
	req.Normalize()
	if verr := req.Validate(); verr != nil {
		return verr
	}

	if err := s.checkIdentityUnique(ctx, req); err != nil {
		return err
	}

	if err := s.otp.Issue(ctx, req.Email); err != nil {
		return fmt.Errorf("failed to issue OTP: %w", err)
	}

	return nil
}

func (s *registrationService) VerifyOTP(ctx context.Context, req *domain.VerifyOTPRequest) (*domain.User, string, error) {
	req.Normalize()
	if verr := req.Validate(); verr != nil {
		return nil, "", verr
	}

	// Re-check uniqueness: another signup may have claimed the email or
	// phone while this one was waiting for the code. The insert below is
	// still the final arbiter.
	if err := s.checkIdentityUnique(ctx, &req.Step1Request); err != nil {
		return nil, "", err
	}

	ok, err := s.otp.Verify(ctx, req.Email, req.OTP)
	if err != nil {
		return nil, "", fmt.Errorf("failed to verify OTP: %w", err)
	}
	if !ok {
		return nil, "", domain.ErrInvalidOTP
	}

	passwordHash, err := argon2id.CreateHash(req.Password, argon2id.DefaultParams)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.userRepo.Create(ctx, &req.Step1Request, passwordHash, true)
	if err != nil {
		return nil, "", err
	}

	token, err := auth.NewSessionToken(user.ID, user.Email, s.config.Auth.JWTSecret, s.config.Auth.SessionTTL)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create session: %w", err)
	}

	s.publish(ctx, events.UserRegistered, events.UserRegisteredEvent{
		UserID:       user.ID,
		Email:        user.Email,
		Username:     user.Username,
		RegisteredAt: user.CreatedAt,
	})

	return user, token, nil
}

func (s *registrationService) CompleteStep2(ctx context.Context, userID int64, req *domain.Step2Request) (*domain.FirmDetails, error) {
	req.Normalize()
	if verr := req.Validate(); verr != nil {
		return nil, verr
	}

	// Firm name first, then license number; the first collision wins.
	taken, err := s.userRepo.FirmNameExists(ctx, req.FirmName, userID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, &domain.ConflictError{Field: "firmName", Message: "This firm name is already registered"}
	}

	taken, err = s.userRepo.LicenseExists(ctx, req.LicenseNumber, userID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, &domain.ConflictError{Field: "licenseNumber", Message: "This license number is already registered"}
	}

	fd, err := s.userRepo.UpsertFirmDetails(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.RegistrationCompleted, events.RegistrationCompletedEvent{
		UserID:      userID,
		FirmName:    fd.FirmName,
		CompletedAt: time.Now(),
	})

	return fd, nil
}

func (s *registrationService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.User, string, error) {
	req.Normalize()
	if verr := req.Validate(); verr != nil {
		return nil, "", verr
	}

	user, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, "", err
	}
	if user == nil {
		return nil, "", domain.ErrInvalidCredentials
	}

	valid, err := argon2id.ComparePasswordAndHash(req.Password, user.PasswordHash)
	if err != nil {
		return nil, "", fmt.Errorf("failed to verify password: %w", err)
	}
	if !valid {
		return nil, "", domain.ErrInvalidCredentials
	}

	token, err := auth.NewSessionToken(user.ID, user.Email, s.config.Auth.JWTSecret, s.config.Auth.SessionTTL)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create session: %w", err)
	}

	return user, token, nil
}

func (s *registrationService) Profile(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrNotFound
	}
	return user, nil
}

func (s *registrationService) EmailAvailable(ctx context.Context, email string) (bool, error) {
	taken, err := s.userRepo.EmailExists(ctx, email)
	if err != nil {
		return false, err
	}
	return !taken, nil
}

func (s *registrationService) FirmNameAvailable(ctx context.Context, name string, excludeUserID int64) (bool, error) {
	taken, err := s.userRepo.FirmNameExists(ctx, name, excludeUserID)
	if err != nil {
		return false, err
	}
	return !taken, nil
}

func (s *registrationService) LicenseAvailable(ctx context.Context, license string, excludeUserID int64) (bool, error) {
	taken, err := s.userRepo.LicenseExists(ctx, license, excludeUserID)
	if err != nil {
		return false, err
	}
	return !taken, nil
}

// checkIdentityUnique enforces the fixed duplicate-field precedence for
// step 1: email first, then phone.
func (s *registrationService) checkIdentityUnique(ctx context.Context, req *domain.Step1Request) error {
	taken, err := s.userRepo.EmailExists(ctx, req.Email)
	if err != nil {
		return err
	}
	if taken {
		return &domain.ConflictError{Field: "email", Message: "This email is already registered"}
	}

	taken, err = s.userRepo.PhoneExists(ctx, req.PhoneNumber)
	if err != nil {
		return err
	}
	if taken {
		return &domain.ConflictError{Field: "phoneNumber", Message: "This phone number is already registered"}
	}

	return nil
}

func (s *registrationService) publish(ctx context.Context, subject string, payload interface{}) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.Publish(ctx, subject, payload); err != nil {
		logger.WarnContext(ctx, "Failed to publish event", "subject", subject, "error", err)
	}
}
