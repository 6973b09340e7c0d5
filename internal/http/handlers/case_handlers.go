package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lexhaven/firmportal/internal/domain"
	"github.com/lexhaven/firmportal/internal/http/response"
)

func (h *Handlers) CreateCase(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	if claims == nil {
		response.WriteDomainError(w, domain.ErrUnauthenticated)
		return
	}

	var req domain.CaseRequest
	if err := decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	c, err := h.cases.Create(r.Context(), claims.Sub, &req)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusCreated, struct {
		Success bool         `json:"success"`
		Message string       `json:"message"`
		Case    *domain.Case `json:"case"`
	}{Success: true, Message: "Case created successfully", Case: c})
}

func (h *Handlers) GetCase(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	if claims == nil {
		response.WriteDomainError(w, domain.ErrUnauthenticated)
		return
	}

	id, err := caseID(r)
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, "Invalid case id")
		return
	}

	c, err := h.cases.Get(r.Context(), claims.Sub, id)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, struct {
		Success bool         `json:"success"`
		Case    *domain.Case `json:"case"`
	}{Success: true, Case: c})
}

func (h *Handlers) ListCases(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	if claims == nil {
		response.WriteDomainError(w, domain.ErrUnauthenticated)
		return
	}

	limit, offset := parsePagination(r)
	cases, err := h.cases.List(r.Context(), claims.Sub, limit, offset)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, struct {
		Success bool          `json:"success"`
		Cases   []domain.Case `json:"cases"`
		Count   int           `json:"count"`
	}{Success: true, Cases: cases, Count: len(cases)})
}

func (h *Handlers) UpdateCase(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	if claims == nil {
		response.WriteDomainError(w, domain.ErrUnauthenticated)
		return
	}

	id, err := caseID(r)
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, "Invalid case id")
		return
	}

	var req domain.CaseRequest
	if err := decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	c, err := h.cases.Update(r.Context(), claims.Sub, id, &req)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, struct {
		Success bool         `json:"success"`
		Message string       `json:"message"`
		Case    *domain.Case `json:"case"`
	}{Success: true, Message: "Case updated successfully", Case: c})
}

func (h *Handlers) DeleteCase(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	if claims == nil {
		response.WriteDomainError(w, domain.ErrUnauthenticated)
		return
	}

	id, err := caseID(r)
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, "Invalid case id")
		return
	}

	if err := h.cases.Delete(r.Context(), claims.Sub, id); err != nil {
		response.WriteDomainError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, response.Envelope{
		Success: true,
		Message: "Case deleted successfully",
	})
}

func caseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
