package handlers

import (
	"net/http"

	"lendfi/internal/middleware"
	"lendfi/internal/services"
	"lendfi/internal/validator"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) RequestLoan(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req validator.LoanRequest
	if !h.bind(w, r, &req) {
		return
	}
	loan, err := h.loans.Request(r.Context(), userID, services.LoanInput{
		Amount:       req.Amount,
		InterestRate: *req.InterestRate,
		Duration:     req.Duration,
		Collateral:   req.Collateral,
		Description:  req.Description,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, http.StatusCreated, "Loan request created successfully", map[string]any{"loan": loan})
}

// ListLoans serves ?type=all|borrowed|lent|marketplace&status=&page=&limit=.
func (h *Handler) ListLoans(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	query := r.URL.Query()
	loans, pagination, err := h.loans.List(r.Context(), userID, services.LoanQuery{
		View:        query.Get("type"),
		Status:      query.Get("status"),
		PageRequest: pageRequest(r),
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, "", map[string]any{"loans": loans, "pagination": pagination})
}

func (h *Handler) GetLoan(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	loan, err := h.loans.Get(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, "", map[string]any{"loan": loan})
}

func (h *Handler) FundLoan(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	loan, err := h.loans.Fund(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, "Loan funded successfully", map[string]any{"loan": loan})
}

func (h *Handler) PayLoan(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req validator.PaymentRequest
	if !h.bind(w, r, &req) {
		return
	}
	loan, err := h.loans.Pay(r.Context(), chi.URLParam(r, "id"), userID, req.Amount)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, "Payment processed successfully", map[string]any{"loan": loan})
}
