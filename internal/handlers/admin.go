package handlers

import (
	"fmt"
	"net/http"

	"lendfi/internal/middleware"
	"lendfi/internal/models"
	"lendfi/internal/services"
	"lendfi/internal/validator"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.admin.Dashboard(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, "", dashboard)
}

// AdminListUsers serves ?search=&kycStatus=&role=&page=&limit=.
func (h *Handler) AdminListUsers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	users, pagination, err := h.admin.ListUsers(r.Context(), services.UserQuery{
		Search:      query.Get("search"),
		KYCStatus:   query.Get("kycStatus"),
		Role:        query.Get("role"),
		PageRequest: pageRequest(r),
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, "", map[string]any{"users": users, "pagination": pagination})
}

func (h *Handler) AdminGetUser(w http.ResponseWriter, r *http.Request) {
	detail, err := h.admin.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, "", detail)
}

func (h *Handler) AdminUpdateKYC(w http.ResponseWriter, r *http.Request) {
	adminID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req validator.KYCUpdateRequest
	if !h.bind(w, r, &req) {
		return
	}
	userID := chi.URLParam(r, "id")
	if err := h.admin.UpdateKYC(r.Context(), adminID, userID, models.KYCStatus(req.Status), req.Reason); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, fmt.Sprintf("KYC status updated to %s", req.Status), map[string]any{
		"userId":    userID,
		"kycStatus": req.Status,
	})
}

func (h *Handler) AdminUpdateLoanStatus(w http.ResponseWriter, r *http.Request) {
	adminID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req validator.LoanStatusRequest
	if !h.bind(w, r, &req) {
		return
	}
	loanID := chi.URLParam(r, "id")
	if err := h.admin.UpdateLoanStatus(r.Context(), adminID, loanID, models.LoanStatus(req.Status), req.Reason); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, fmt.Sprintf("Loan status updated to %s", req.Status), map[string]any{
		"loanId": loanID,
		"status": req.Status,
	})
}

func (h *Handler) AdminDeactivateUser(w http.ResponseWriter, r *http.Request) {
	adminID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req validator.DeactivateRequest
	if r.ContentLength != 0 && !h.bind(w, r, &req) {
		return
	}
	userID := chi.URLParam(r, "id")
	if err := h.admin.DeactivateUser(r.Context(), adminID, userID, req.Reason); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, "User deactivated successfully", map[string]any{"userId": userID, "isActive": false})
}

func (h *Handler) AdminAuditLog(w http.ResponseWriter, r *http.Request) {
	logs, pagination, err := h.admin.AuditLog(r.Context(), pageRequest(r))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, "", map[string]any{"logs": logs, "pagination": pagination})
}

// AdminExport serves ?type=users|loans|transactions&format=csv|json&startDate=&endDate=.
// CSV is sent as an attachment; JSON comes back in the envelope for client-side rendering.
func (h *Handler) AdminExport(w http.ResponseWriter, r *http.Request) {
	from, to, err := dateRange(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "startDate and endDate must be formatted YYYY-MM-DD")
		return
	}
	query := r.URL.Query()
	file, err := h.admin.Export(r.Context(), services.ExportQuery{
		Type:   query.Get("type"),
		Format: query.Get("format"),
		From:   from,
		To:     to,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if file.Format == services.ExportJSON {
		respondOK(w, http.StatusOK, "", file.Payload)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.CSV)
}
