package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/lexhaven/firmportal/internal/domain"
	"github.com/lexhaven/firmportal/internal/http/response"
	"github.com/lexhaven/firmportal/internal/service"
	"github.com/lexhaven/firmportal/pkg/auth"
	"github.com/lexhaven/firmportal/pkg/config"
	"github.com/lexhaven/firmportal/pkg/logger"
)

type Handlers struct {
	registration service.RegistrationService
	cases        service.CaseService
	config       *config.Config
}

func New(registration service.RegistrationService, cases service.CaseService, config *config.Config) *Handlers {
	return &Handlers{
		registration: registration,
		cases:        cases,
		config:       config,
	}
}

type ctxKey string

const ctxClaims ctxKey = "claims"

// RequireSession authenticates the request from the session cookie or a
// Bearer header. A missing token is 401; a present but invalid or expired
// one is 403 — the two outcomes stay distinct.
func (h *Handlers) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.sessionToken(r)
		if token == "" {
			response.WriteDomainError(w, domain.ErrUnauthenticated)
			return
		}

		claims, err := auth.Parse(token, h.config.Auth.JWTSecret)
		if err != nil {
			response.WriteDomainError(w, domain.ErrForbidden)
			return
		}

		ctx := context.WithValue(r.Context(), ctxClaims, claims)
		ctx = context.WithValue(ctx, logger.UserIDKey, claims.Sub)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionToken prefers the HTTP-only cookie and falls back to the
// Authorization header for non-cookie clients.
func (h *Handlers) sessionToken(r *http.Request) string {
	if c, err := r.Cookie(h.config.Auth.CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if authz := r.Header.Get("Authorization"); strings.HasPrefix(authz, "Bearer ") {
		return strings.TrimPrefix(authz, "Bearer ")
	}
	return ""
}

func claimsFrom(r *http.Request) *auth.Claims {
	if claims, ok := r.Context().Value(ctxClaims).(*auth.Claims); ok {
		return claims
	}
	return nil
}

// optionalUserID returns the authenticated user id if a valid session
// accompanies the request, 0 otherwise. Used by the availability checks,
// which exclude the caller's own records only when authenticated.
func (h *Handlers) optionalUserID(r *http.Request) int64 {
	token := h.sessionToken(r)
	if token == "" {
		return 0
	}
	claims, err := auth.Parse(token, h.config.Auth.JWTSecret)
	if err != nil {
		return 0
	}
	return claims.Sub
}

func (h *Handlers) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.config.Auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.config.Auth.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.config.Auth.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handlers) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.config.Auth.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.Auth.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// decode parses a JSON body into dst, rejecting unknown fields so malformed
// payloads fail at the boundary instead of half-applying.
func decode(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit = 20
	offset = 0

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return limit, offset
}
