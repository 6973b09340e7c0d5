package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lexhaven/firmportal/internal/domain"
	"github.com/lexhaven/firmportal/internal/service"
	"github.com/lexhaven/firmportal/pkg/config"
)

// In-memory collaborators so the full HTTP flow runs without Postgres,
// Redis, or SMTP.

type fakeUserRepo struct {
	nextID int64
	users  map[int64]*domain.User
}

func (f *fakeUserRepo) Create(_ context.Context, req *domain.Step1Request, passwordHash string, emailVerified bool) (*domain.User, error) {
	for _, u := range f.users {
		if u.Email == req.Email {
			return nil, &domain.ConflictError{Field: "email", Message: "This email is already registered"}
		}
	}
	f.nextID++
	now := time.Now()
	u := &domain.User{
		ID:            f.nextID,
		Username:      req.Username,
		Email:         req.Email,
		PhoneNumber:   req.PhoneNumber,
		PasswordHash:  passwordHash,
		EmailVerified: emailVerified,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) FindByID(_ context.Context, id int64) (*domain.User, error) {
	return f.users[id], nil
}

func (f *fakeUserRepo) EmailExists(_ context.Context, email string) (bool, error) {
	u, _ := f.FindByEmail(context.Background(), strings.ToLower(email))
	return u != nil, nil
}

func (f *fakeUserRepo) PhoneExists(_ context.Context, phone string) (bool, error) {
	for _, u := range f.users {
		if u.PhoneNumber == phone {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserRepo) FirmNameExists(_ context.Context, name string, excludeUserID int64) (bool, error) {
	for id, u := range f.users {
		if id != excludeUserID && u.FirmDetails != nil && strings.EqualFold(u.FirmDetails.FirmName, name) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserRepo) LicenseExists(_ context.Context, license string, excludeUserID int64) (bool, error) {
	for id, u := range f.users {
		if id != excludeUserID && u.FirmDetails != nil && u.FirmDetails.LicenseNumber == license {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserRepo) UpsertFirmDetails(_ context.Context, userID int64, req *domain.Step2Request) (*domain.FirmDetails, error) {
	u, ok := f.users[userID]
	if !ok {
		return nil, &domain.StorageError{Err: errors.New("no such user")}
	}
	u.FirmDetails = &domain.FirmDetails{
		FirmName:           req.FirmName,
		FirmAddress:        req.FirmAddress,
		LicenseNumber:      req.LicenseNumber,
		RegistrationStatus: domain.RegistrationStatusCompleted,
	}
	return u.FirmDetails, nil
}

type fakeOTP struct {
	issued map[string]string
}

func (f *fakeOTP) Issue(_ context.Context, email string) error {
	f.issued[strings.ToLower(email)] = "654321"
	return nil
}

func (f *fakeOTP) Verify(_ context.Context, email, code string) (bool, error) {
	want, ok := f.issued[strings.ToLower(email)]
	if !ok || want != code {
		return false, nil
	}
	delete(f.issued, strings.ToLower(email))
	return true, nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:  "test-secret",
			SessionTTL: time.Hour,
			CookieName: "token",
		},
	}

	repo := &fakeUserRepo{users: map[int64]*domain.User{}}
	registration := service.NewRegistrationService(repo, &fakeOTP{issued: map[string]string{}}, nil, cfg)
	h := New(registration, nil, cfg)

	r := chi.NewRouter()
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register/step1", h.RegisterStep1)
		r.Post("/send-otp", h.SendOTP)
		r.Post("/verify-otp", h.VerifyOTP)
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Get("/check-email", h.CheckEmail)
		r.Get("/check-firm-name", h.CheckFirmName)
		r.Get("/check-license", h.CheckLicense)
		r.Group(func(r chi.Router) {
			r.Use(h.RequireSession)
			r.Post("/register/step2", h.RegisterStep2)
			r.Get("/profile", h.Profile)
		})
	})
	return r
}

func postJSON(t *testing.T, router http.Handler, path string, body map[string]any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	return sendJSON(t, router, http.MethodPost, path, body, cookie)
}

func putJSON(t *testing.T, router http.Handler, path string, body map[string]any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	return sendJSON(t, router, http.MethodPut, path, body, cookie)
}

func sendJSON(t *testing.T, router http.Handler, method, path string, body map[string]any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v\n%s", err, rec.Body.String())
	}
	return body
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == "token" && c.Value != "" {
			return c
		}
	}
	t.Fatalf("no session cookie in response")
	return nil
}

func aliceStep1() map[string]any {
	return map[string]any{
		"username":        "alicelaw",
		"email":           "alice@example.com",
		"phoneNumber":     "9876543210",
		"password":        "Passw0rd!",
		"confirmPassword": "Passw0rd!",
	}
}

func aliceVerify() map[string]any {
	body := aliceStep1()
	body["otp"] = "654321"
	return body
}

func aliceStep2() map[string]any {
	return map[string]any{
		"firmName":      "Alice Law",
		"firmAddress":   "123 Main St, Springfield",
		"licenseNumber": "LIC12345",
	}
}

func TestRegistrationFlow(t *testing.T) {
	router := newTestRouter(t)

	// Step 1: identity accepted, OTP sent, no account yet.
	rec := postJSON(t, router, "/api/auth/register/step1", aliceStep1(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("step1: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if user, ok := body["user"].(map[string]any); !ok || user["emailVerified"] != false {
		t.Errorf("step1: expected pending unverified user, got %v", body)
	}

	// A wrong code is rejected and creates nothing.
	bad := aliceVerify()
	bad["otp"] = "000000"
	rec = postJSON(t, router, "/api/auth/verify-otp", bad, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("wrong otp: expected 400, got %d", rec.Code)
	}

	// The right code creates the account and opens the session.
	rec = postJSON(t, router, "/api/auth/verify-otp", aliceVerify(), nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("verify: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	body = decodeBody(t, rec)
	if body["token"] == "" || body["token"] == nil {
		t.Fatal("verify: expected a token in the body")
	}
	cookie := sessionCookie(t, rec)
	if !cookie.HttpOnly {
		t.Error("session cookie should be HTTP-only")
	}

	// Step 2 without a session is 401; with a garbage token it is 403.
	rec = postJSON(t, router, "/api/auth/register/step2", aliceStep2(), nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("step2 no session: expected 401, got %d", rec.Code)
	}
	rec = postJSON(t, router, "/api/auth/register/step2", aliceStep2(), &http.Cookie{Name: "token", Value: "garbage"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("step2 bad token: expected 403, got %d", rec.Code)
	}

	// Step 2 with the session completes the registration.
	rec = postJSON(t, router, "/api/auth/register/step2", aliceStep2(), cookie)
	if rec.Code != http.StatusCreated {
		t.Fatalf("step2: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	body = decodeBody(t, rec)
	if body["message"] != "Law firm registration completed successfully!" {
		t.Errorf("step2: unexpected message %v", body["message"])
	}
	firm, ok := body["firm"].(map[string]any)
	if !ok || firm["registrationStatus"] != "completed" {
		t.Errorf("step2: expected completed firm details, got %v", body)
	}

	// The profile now carries the firm details.
	req := httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)
	req.AddCookie(cookie)
	prec := httptest.NewRecorder()
	router.ServeHTTP(prec, req)
	if prec.Code != http.StatusOK {
		t.Fatalf("profile: expected 200, got %d", prec.Code)
	}
	body = decodeBody(t, prec)
	user, ok := body["user"].(map[string]any)
	if !ok {
		t.Fatalf("profile: expected a user, got %v", body)
	}
	if user["firmDetails"] == nil {
		t.Errorf("profile: expected firm details, got %v", user)
	}
	if _, leaked := user["passwordHash"]; leaked {
		t.Error("profile: password hash must not be serialized")
	}
}

func TestVerifyOTPDoesNotRepeatWithConsumedCode(t *testing.T) {
	router := newTestRouter(t)

	postJSON(t, router, "/api/auth/register/step1", aliceStep1(), nil)
	rec := postJSON(t, router, "/api/auth/verify-otp", aliceVerify(), nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("verify: expected 201, got %d", rec.Code)
	}

	// Replaying the same request hits the duplicate-email check.
	rec = postJSON(t, router, "/api/auth/verify-otp", aliceVerify(), nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("replay: expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRegisterStep1DuplicateEmail(t *testing.T) {
	router := newTestRouter(t)

	postJSON(t, router, "/api/auth/register/step1", aliceStep1(), nil)
	postJSON(t, router, "/api/auth/verify-otp", aliceVerify(), nil)

	rec := postJSON(t, router, "/api/auth/register/step1", aliceStep1(), nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	errs, ok := body["errors"].(map[string]any)
	if !ok || errs["email"] == nil {
		t.Errorf("expected a field error on email, got %v", body)
	}
}

func TestRegisterStep1ValidationErrors(t *testing.T) {
	router := newTestRouter(t)

	body := aliceStep1()
	body["email"] = "not-an-email"
	body["password"] = "short"
	body["confirmPassword"] = "short"

	rec := postJSON(t, router, "/api/auth/register/step1", body, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	resp := decodeBody(t, rec)
	errs, ok := resp["errors"].(map[string]any)
	if !ok {
		t.Fatalf("expected field errors, got %v", resp)
	}
	for _, field := range []string{"email", "password"} {
		if errs[field] == nil {
			t.Errorf("expected error on %q, got %v", field, errs)
		}
	}
}

func TestRegisterStep1RejectsUnknownFields(t *testing.T) {
	router := newTestRouter(t)

	body := aliceStep1()
	body["isAdmin"] = true

	rec := postJSON(t, router, "/api/auth/register/step1", body, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown fields, got %d", rec.Code)
	}
}

func TestLoginAndLogout(t *testing.T) {
	router := newTestRouter(t)

	postJSON(t, router, "/api/auth/register/step1", aliceStep1(), nil)
	postJSON(t, router, "/api/auth/verify-otp", aliceVerify(), nil)

	rec := postJSON(t, router, "/api/auth/login", map[string]any{
		"email":    "Alice@Example.com",
		"password": "Passw0rd!",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	cookie := sessionCookie(t, rec)

	// Bad password is a 401, same as an unknown email.
	rec = postJSON(t, router, "/api/auth/login", map[string]any{
		"email":    "alice@example.com",
		"password": "WrongPass1!",
	}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login: expected 401, got %d", rec.Code)
	}

	rec = postJSON(t, router, "/api/auth/logout", map[string]any{}, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", rec.Code)
	}
	cleared := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == "token" && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("logout should clear the session cookie")
	}
}

func TestBearerHeaderFallback(t *testing.T) {
	router := newTestRouter(t)

	postJSON(t, router, "/api/auth/register/step1", aliceStep1(), nil)
	rec := postJSON(t, router, "/api/auth/verify-otp", aliceVerify(), nil)
	body := decodeBody(t, rec)
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatal("expected a token in the verify response")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	prec := httptest.NewRecorder()
	router.ServeHTTP(prec, req)
	if prec.Code != http.StatusOK {
		t.Fatalf("expected 200 via Bearer header, got %d", prec.Code)
	}
}

func TestAvailabilityEndpoints(t *testing.T) {
	router := newTestRouter(t)

	postJSON(t, router, "/api/auth/register/step1", aliceStep1(), nil)
	rec := postJSON(t, router, "/api/auth/verify-otp", aliceVerify(), nil)
	cookie := sessionCookie(t, rec)
	postJSON(t, router, "/api/auth/register/step2", aliceStep2(), cookie)

	check := func(path string, cookie *http.Cookie) map[string]any {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if cookie != nil {
			req.AddCookie(cookie)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
		return decodeBody(t, rec)
	}

	if body := check("/api/auth/check-email?email=alice@example.com", nil); body["available"] != false {
		t.Errorf("expected registered email unavailable, got %v", body)
	}
	if body := check("/api/auth/check-email?email=free@example.com", nil); body["available"] != true {
		t.Errorf("expected fresh email available, got %v", body)
	}

	// Anonymous callers see the firm name as taken; its owner does not.
	if body := check("/api/auth/check-firm-name?firmName=Alice+Law", nil); body["available"] != false {
		t.Errorf("expected firm name unavailable to strangers, got %v", body)
	}
	if body := check("/api/auth/check-firm-name?firmName=Alice+Law", cookie); body["available"] != true {
		t.Errorf("expected firm name available to its owner, got %v", body)
	}

	if body := check("/api/auth/check-license?licenseNumber=LIC12345", nil); body["available"] != false {
		t.Errorf("expected license unavailable to strangers, got %v", body)
	}

	// A missing parameter is a 400.
	req := httptest.NewRequest(http.MethodGet, "/api/auth/check-email", nil)
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req)
	if rec2.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a missing email, got %d", rec2.Code)
	}
}
