package handlers

import (
	"net/http"
	"strings"
	"time"

	"lendfi/internal/middleware"
	"lendfi/internal/models"
	"lendfi/internal/services"
	"lendfi/internal/validator"
)

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req validator.RegisterRequest
	if !h.bind(w, r, &req) {
		return
	}
	dob, err := time.Parse(validator.DateLayout, req.DateOfBirth)
	if err != nil {
		respondValidation(w, []string{"dateOfBirth must be a date formatted YYYY-MM-DD"})
		return
	}
	session, err := h.auth.Register(r.Context(), services.RegisterInput{
		Email:         req.Email,
		Password:      req.Password,
		Name:          strings.TrimSpace(req.Name),
		Phone:         strings.TrimSpace(req.Phone),
		DateOfBirth:   dob,
		IDNumber:      strings.TrimSpace(req.IDNumber),
		WalletAddress: req.WalletAddress,
		Role:          models.Role(req.Role),
		AdminSecret:   req.AdminSecret,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, http.StatusCreated, "User registered successfully", session)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req validator.LoginRequest
	if !h.bind(w, r, &req) {
		return
	}
	session, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, "Login successful", session)
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	user, err := h.auth.Profile(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, "", map[string]any{"user": user})
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req validator.ProfileUpdateRequest
	if !h.bind(w, r, &req) {
		return
	}
	user, err := h.auth.UpdateProfile(r.Context(), userID, req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, "Profile updated successfully", map[string]any{"user": user})
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req validator.ChangePasswordRequest
	if !h.bind(w, r, &req) {
		return
	}
	if err := h.auth.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, "Password changed successfully", nil)
}
