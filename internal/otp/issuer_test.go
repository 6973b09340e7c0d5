package otp

import (
	"context"
	"errors"
	"testing"
	"time"
)

type captureMailer struct {
	to    string
	code  string
	sends int
	err   error
}

func (m *captureMailer) SendOTPEmail(toEmail, code string) error {
	m.to = toEmail
	m.code = code
	m.sends++
	return m.err
}

func TestIssueAndVerify(t *testing.T) {
	ctx := context.Background()
	mail := &captureMailer{}
	issuer := NewIssuer(NewMemoryStore(), mail, 5*time.Minute)

	if err := issuer.Issue(ctx, "Alice@Example.com"); err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if mail.to != "alice@example.com" {
		t.Errorf("expected mail sent to lowered address, got %q", mail.to)
	}
	if len(mail.code) != 6 {
		t.Fatalf("expected a 6-digit code, got %q", mail.code)
	}

	// The address is matched case-insensitively.
	ok, err := issuer.Verify(ctx, "ALICE@example.com", mail.code)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !ok {
		t.Fatal("expected the issued code to verify")
	}
}

func TestVerifyIsOneTime(t *testing.T) {
	ctx := context.Background()
	mail := &captureMailer{}
	issuer := NewIssuer(NewMemoryStore(), mail, 5*time.Minute)

	if err := issuer.Issue(ctx, "alice@example.com"); err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if ok, _ := issuer.Verify(ctx, "alice@example.com", mail.code); !ok {
		t.Fatal("first verification should succeed")
	}
	if ok, _ := issuer.Verify(ctx, "alice@example.com", mail.code); ok {
		t.Fatal("a consumed code must not verify again")
	}
}

func TestVerifyWrongCodeLeavesEntry(t *testing.T) {
	ctx := context.Background()
	mail := &captureMailer{}
	issuer := NewIssuer(NewMemoryStore(), mail, 5*time.Minute)

	if err := issuer.Issue(ctx, "alice@example.com"); err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if ok, _ := issuer.Verify(ctx, "alice@example.com", "000000"); ok {
		t.Fatal("a wrong code must not verify")
	}
	// The stored code survives a failed attempt.
	if ok, _ := issuer.Verify(ctx, "alice@example.com", mail.code); !ok {
		t.Fatal("the correct code should still verify after a failed attempt")
	}
}

func TestVerifyUnknownEmail(t *testing.T) {
	issuer := NewIssuer(NewMemoryStore(), &captureMailer{}, 5*time.Minute)

	ok, err := issuer.Verify(context.Background(), "nobody@example.com", "123456")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if ok {
		t.Fatal("expected verification to fail for an unknown email")
	}
}

func TestReissueOverwrites(t *testing.T) {
	ctx := context.Background()
	mail := &captureMailer{}
	issuer := NewIssuer(NewMemoryStore(), mail, 5*time.Minute)

	if err := issuer.Issue(ctx, "alice@example.com"); err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	first := mail.code

	for i := 0; i < 10 && mail.code == first; i++ {
		if err := issuer.Issue(ctx, "alice@example.com"); err != nil {
			t.Fatalf("Issue failed: %v", err)
		}
	}
	if mail.code == first {
		t.Skip("random codes collided repeatedly")
	}

	if ok, _ := issuer.Verify(ctx, "alice@example.com", first); ok {
		t.Fatal("a replaced code must not verify")
	}
	if ok, _ := issuer.Verify(ctx, "alice@example.com", mail.code); !ok {
		t.Fatal("the latest code should verify")
	}
}

func TestIssueSendFailureReported(t *testing.T) {
	mail := &captureMailer{err: errors.New("smtp down")}
	issuer := NewIssuer(NewMemoryStore(), mail, 5*time.Minute)

	if err := issuer.Issue(context.Background(), "alice@example.com"); err == nil {
		t.Fatal("expected Issue to report a send failure")
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	current := time.Now()
	store.now = func() time.Time { return current }

	if err := store.Put(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if _, ok, _ := store.Get(ctx, "k"); !ok {
		t.Fatal("expected entry before expiry")
	}

	current = current.Add(2 * time.Minute)
	if _, ok, _ := store.Get(ctx, "k"); ok {
		t.Fatal("expected entry to expire")
	}
}

func TestMemoryStoreSweepOnPut(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	current := time.Now()
	store.now = func() time.Time { return current }

	store.Put(ctx, "old", "v", time.Minute)
	current = current.Add(2 * time.Minute)
	store.Put(ctx, "new", "v", time.Minute)

	store.mu.Lock()
	_, oldKept := store.entries["old"]
	store.mu.Unlock()
	if oldKept {
		t.Fatal("expected expired entry to be swept on Put")
	}
}

func TestGenerateCodeRange(t *testing.T) {
	for i := 0; i < 100; i++ {
		code, err := generateCode()
		if err != nil {
			t.Fatalf("generateCode failed: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("expected 6 digits, got %q", code)
		}
		if code[0] == '0' {
			t.Fatalf("expected code in 100000-999999, got %q", code)
		}
	}
}
