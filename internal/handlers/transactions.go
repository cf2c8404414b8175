package handlers

import (
	"net/http"

	"lendfi/internal/middleware"
	"lendfi/internal/models"
	"lendfi/internal/services"
	"lendfi/internal/validator"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	from, to, err := dateRange(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "startDate and endDate must be formatted YYYY-MM-DD")
		return
	}
	query := r.URL.Query()
	transactions, pagination, err := h.transactions.List(r.Context(), userID, services.TransactionQuery{
		Type:        query.Get("type"),
		Status:      query.Get("status"),
		From:        from,
		To:          to,
		PageRequest: pageRequest(r),
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, "", map[string]any{"transactions": transactions, "pagination": pagination})
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	transaction, err := h.transactions.Get(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, "", map[string]any{"transaction": transaction})
}

func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req validator.TransactionCreateRequest
	if !h.bind(w, r, &req) {
		return
	}
	transaction, err := h.transactions.Create(r.Context(), userID, services.TransactionInput{
		Type:          models.TransactionType(req.Type),
		SubType:       models.TransactionSubType(req.SubType),
		Amount:        req.Amount,
		Description:   req.Description,
		ReferenceType: models.ReferenceType(req.ReferenceType),
		ReferenceID:   req.ReferenceID,
		TxHash:        req.TxHash,
		Metadata:      req.Metadata,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, http.StatusCreated, "Transaction created successfully", map[string]any{"transaction": transaction})
}

func (h *Handler) UpdateTransactionStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req validator.TransactionStatusRequest
	if !h.bind(w, r, &req) {
		return
	}
	transaction, err := h.transactions.UpdateStatus(r.Context(), chi.URLParam(r, "id"), userID, models.TransactionStatus(req.Status), req.TxHash)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, "Transaction updated successfully", map[string]any{"transaction": transaction})
}

func (h *Handler) TransactionSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	summary, err := h.transactions.Summary(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, "", map[string]any{"summary": summary})
}
