package handlers

import (
	"net/http"

	"lendfi/internal/middleware"
	"lendfi/internal/services"
	"lendfi/internal/validator"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) CreateROSCA(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req validator.ROSCACreateRequest
	if !h.bind(w, r, &req) {
		return
	}
	created, err := h.roscas.Create(r.Context(), userID, services.ROSCAInput{
		Name:               req.Name,
		Description:        req.Description,
		ContributionAmount: req.ContributionAmount,
		CycleDuration:      req.CycleDuration,
		MaxMembers:         req.MaxMembers,
		IsOnChain:          req.IsOnChain,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, http.StatusCreated, "ROSCA created successfully", created)
}

// ListROSCAs serves ?type=available|my-roscas|joined&page=&limit=.
func (h *Handler) ListROSCAs(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	roscas, pagination, err := h.roscas.List(r.Context(), userID, services.ROSCAQuery{
		View:        r.URL.Query().Get("type"),
		PageRequest: pageRequest(r),
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, "", map[string]any{"roscas": roscas, "pagination": pagination})
}

func (h *Handler) GetROSCA(w http.ResponseWriter, r *http.Request) {
	rosca, err := h.roscas.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, "", map[string]any{"rosca": rosca})
}

func (h *Handler) ROSCAMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.roscas.Members(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, "", map[string]any{"members": members})
}

func (h *Handler) JoinROSCA(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	rosca, err := h.roscas.Join(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, "Successfully joined ROSCA", map[string]any{"rosca": rosca})
}

func (h *Handler) JoinROSCAByInvite(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	rosca, err := h.roscas.JoinByInvite(r.Context(), chi.URLParam(r, "inviteCode"), userID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, "Successfully joined ROSCA", map[string]any{"rosca": rosca})
}

func (h *Handler) Contribute(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req validator.ContributionRequest
	if !h.bind(w, r, &req) {
		return
	}
	transaction, err := h.roscas.Contribute(r.Context(), chi.URLParam(r, "id"), userID, req.Amount)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, "Contribution successful", map[string]any{"transaction": transaction})
}
