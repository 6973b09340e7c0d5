// Package response writes the portal's JSON envelope: every body carries
// success and message, plus a field-keyed errors map when validation or a
// uniqueness collision failed.
package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lexhaven/firmportal/internal/domain"
	"github.com/lexhaven/firmportal/pkg/logger"
)

type Envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, Envelope{Success: false, Message: message})
}

func WriteFieldErrors(w http.ResponseWriter, statusCode int, message string, fields map[string]string) {
	WriteJSON(w, statusCode, Envelope{Success: false, Message: message, Errors: fields})
}

// WriteDomainError maps the error taxonomy onto HTTP statuses. Anything not
// in the taxonomy is a 500 with no internal detail exposed.
func WriteDomainError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		WriteFieldErrors(w, http.StatusBadRequest, "Validation failed", verr.Fields)
		return
	}

	var cerr *domain.ConflictError
	if errors.As(err, &cerr) {
		fields := map[string]string{}
		if cerr.Field != "" {
			fields[cerr.Field] = cerr.Message
		}
		WriteFieldErrors(w, http.StatusConflict, cerr.Message, fields)
		return
	}

	var serr *domain.StorageError
	if errors.As(err, &serr) {
		logger.Error("Storage error", "error", serr.Err)
		if serr.Unavailable {
			WriteError(w, http.StatusServiceUnavailable, "Database connection failed")
			return
		}
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidOTP):
		WriteError(w, http.StatusBadRequest, "Invalid or expired OTP")
	case errors.Is(err, domain.ErrInvalidCredentials):
		WriteError(w, http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, domain.ErrUnauthenticated):
		WriteError(w, http.StatusUnauthorized, "Unauthorized: No token provided")
	case errors.Is(err, domain.ErrForbidden):
		WriteError(w, http.StatusForbidden, "Forbidden: Invalid token")
	case errors.Is(err, domain.ErrNotFound):
		WriteError(w, http.StatusNotFound, "Not found")
	default:
		logger.Error("Unhandled error", "error", err)
		WriteError(w, http.StatusInternalServerError, "Internal server error")
	}
}
