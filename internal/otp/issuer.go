// Package otp issues and verifies the one-time codes that gate email
// verification during registration.
package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/lexhaven/firmportal/internal/mailer"
	"github.com/lexhaven/firmportal/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

// Issuer generates 6-digit codes, stores a hash of each keyed by email, and
// validates a submitted code exactly once. Codes expire after the
// configured TTL; issuing a new code overwrites any pending one.
type Issuer struct {
	store  Store
	mailer mailer.Service
	ttl    time.Duration
}

func NewIssuer(store Store, mailer mailer.Service, ttl time.Duration) *Issuer {
	return &Issuer{store: store, mailer: mailer, ttl: ttl}
}

// Issue creates a fresh code for the email and dispatches it via the mail
// collaborator. Only a bcrypt hash of the code is stored.
func (i *Issuer) Issue(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("failed to generate code: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash code: %w", err)
	}

	if err := i.store.Put(ctx, email, string(hash), i.ttl); err != nil {
		return fmt.Errorf("failed to store code: %w", err)
	}

	if err := i.mailer.SendOTPEmail(email, code); err != nil {
		// The code was stored; a resend can still succeed.
		logger.ErrorContext(ctx, "Failed to send OTP email", "error", err, "email", email)
		return fmt.Errorf("failed to send code: %w", err)
	}

	return nil
}

// Verify reports whether the submitted code matches the unexpired entry for
// the email. A successful verification consumes the entry; a failed one
// leaves it intact so the user can retry within the TTL.
func (i *Issuer) Verify(ctx context.Context, email, code string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	hash, ok, err := i.store.Get(ctx, email)
	if err != nil {
		return false, fmt.Errorf("failed to look up code: %w", err)
	}
	if !ok {
		return false, nil
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) != nil {
		return false, nil
	}

	// One-time use: a matching code must never validate again.
	if err := i.store.Del(ctx, email); err != nil {
		return false, fmt.Errorf("failed to consume code: %w", err)
	}
	return true, nil
}

// generateCode returns a uniformly random 6-digit code (100000-999999).
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
