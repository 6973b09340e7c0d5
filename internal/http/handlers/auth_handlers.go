package handlers

import (
	"net/http"
	"strings"

	"github.com/lexhaven/firmportal/internal/domain"
	"github.com/lexhaven/firmportal/internal/http/response"
)

// RegisterStep1 validates the identity fields and emails a verification
// code. No account exists until the code is verified.
func (h *Handlers) RegisterStep1(w http.ResponseWriter, r *http.Request) {
	var req domain.Step1Request
	if err := decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.registration.StartStep1(r.Context(), &req); err != nil {
		response.WriteDomainError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		User    struct {
			Email         string `json:"email"`
			EmailVerified bool   `json:"emailVerified"`
		} `json:"user"`
	}{
		Success: true,
		Message: "Verification code sent to your email",
		User: struct {
			Email         string `json:"email"`
			EmailVerified bool   `json:"emailVerified"`
		}{Email: strings.ToLower(strings.TrimSpace(req.Email)), EmailVerified: false},
	})
}

// SendOTP re-validates the pending registration and issues a fresh code,
// replacing any outstanding one.
func (h *Handlers) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req domain.Step1Request
	if err := decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.registration.StartStep1(r.Context(), &req); err != nil {
		response.WriteDomainError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, response.Envelope{
		Success: true,
		Message: "Verification code sent to your email",
	})
}

type sessionResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	User    *domain.User `json:"user"`
	Token   string       `json:"token"`
}

// VerifyOTP consumes the emailed code, creates the account, and opens a
// session. The token rides both the HTTP-only cookie and the body so
// non-browser clients can use the Bearer header.
func (h *Handlers) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyOTPRequest
	if err := decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, token, err := h.registration.VerifyOTP(r.Context(), &req)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}

	h.setSessionCookie(w, token)
	response.WriteJSON(w, http.StatusCreated, sessionResponse{
		Success: true,
		Message: "Email verified successfully! Your account has been created.",
		User:    user,
		Token:   token,
	})
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, token, err := h.registration.Login(r.Context(), &req)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}

	h.setSessionCookie(w, token)
	response.WriteJSON(w, http.StatusOK, sessionResponse{
		Success: true,
		Message: "Login successful",
		User:    user,
		Token:   token,
	})
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearSessionCookie(w)
	response.WriteJSON(w, http.StatusOK, response.Envelope{
		Success: true,
		Message: "Logged out successfully",
	})
}

func (h *Handlers) Profile(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	if claims == nil {
		response.WriteDomainError(w, domain.ErrUnauthenticated)
		return
	}

	user, err := h.registration.Profile(r.Context(), claims.Sub)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, struct {
		Success bool         `json:"success"`
		User    *domain.User `json:"user"`
	}{Success: true, User: user})
}

// RegisterStep2 attaches the firm details to the authenticated account and
// marks the registration completed. Re-submitting overwrites the previous
// details.
func (h *Handlers) RegisterStep2(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	if claims == nil {
		response.WriteDomainError(w, domain.ErrUnauthenticated)
		return
	}

	var req domain.Step2Request
	if err := decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	firm, err := h.registration.CompleteStep2(r.Context(), claims.Sub, &req)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusCreated, struct {
		Success bool                `json:"success"`
		Message string              `json:"message"`
		Firm    *domain.FirmDetails `json:"firm"`
	}{
		Success: true,
		Message: "Law firm registration completed successfully!",
		Firm:    firm,
	})
}

type availabilityResponse struct {
	Success   bool   `json:"success"`
	Available bool   `json:"available"`
	Message   string `json:"message,omitempty"`
}

func (h *Handlers) CheckEmail(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		response.WriteError(w, http.StatusBadRequest, "Email is required")
		return
	}

	available, err := h.registration.EmailAvailable(r.Context(), email)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}

	resp := availabilityResponse{Success: true, Available: available}
	if !available {
		resp.Message = "This email is already registered"
	}
	response.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handlers) CheckFirmName(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("firmName"))
	if name == "" {
		response.WriteError(w, http.StatusBadRequest, "Firm name is required")
		return
	}

	available, err := h.registration.FirmNameAvailable(r.Context(), name, h.optionalUserID(r))
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}

	resp := availabilityResponse{Success: true, Available: available}
	if !available {
		resp.Message = "This firm name is already registered"
	}
	response.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handlers) CheckLicense(w http.ResponseWriter, r *http.Request) {
	license := strings.TrimSpace(r.URL.Query().Get("licenseNumber"))
	if license == "" {
		response.WriteError(w, http.StatusBadRequest, "License number is required")
		return
	}

	available, err := h.registration.LicenseAvailable(r.Context(), license, h.optionalUserID(r))
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}

	resp := availabilityResponse{Success: true, Available: available}
	if !available {
		resp.Message = "This license number is already registered"
	}
	response.WriteJSON(w, http.StatusOK, resp)
}
