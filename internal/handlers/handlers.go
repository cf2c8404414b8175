package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"lendfi/internal/money"
	"lendfi/internal/services"
	"lendfi/internal/validator"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

type envelope struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Data    any      `json:"data,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondOK(w http.ResponseWriter, status int, message string, data any) {
	respondJSON(w, status, envelope{Success: true, Message: message, Data: data})
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, envelope{Success: false, Message: message})
}

func respondValidation(w http.ResponseWriter, errs []string) {
	respondJSON(w, http.StatusBadRequest, envelope{Success: false, Message: "Validation failed", Errors: errs})
}

type errorMapping struct {
	err    error
	status int
}

var errorStatuses = []errorMapping{
	{services.ErrLoanNotFound, http.StatusNotFound},
	{services.ErrLoanNotFundable, http.StatusNotFound},
	{services.ErrROSCANotFound, http.StatusNotFound},
	{services.ErrTransactionNotFound, http.StatusNotFound},
	{services.ErrUserNotFound, http.StatusNotFound},
	{services.ErrSelfFunding, http.StatusBadRequest},
	{services.ErrInvalidPayment, http.StatusBadRequest},
	{services.ErrROSCAFull, http.StatusBadRequest},
	{services.ErrROSCANotActive, http.StatusBadRequest},
	{services.ErrAlreadyMember, http.StatusBadRequest},
	{services.ErrNotMember, http.StatusBadRequest},
	{services.ErrContributionMismatch, http.StatusBadRequest},
	{services.ErrAlreadyContributed, http.StatusBadRequest},
	{services.ErrInvalidFilter, http.StatusBadRequest},
	{services.ErrInvalidExport, http.StatusBadRequest},
	{services.ErrInvalidStatus, http.StatusBadRequest},
	{services.ErrWrongPassword, http.StatusBadRequest},
	{services.ErrSelfDeactivation, http.StatusBadRequest},
	{money.ErrInvalidAmount, http.StatusBadRequest},
	{money.ErrTooManyDecimals, http.StatusBadRequest},
	{services.ErrInvalidCredentials, http.StatusUnauthorized},
	{services.ErrAccountInactive, http.StatusUnauthorized},
	{services.ErrInvalidAdminSecret, http.StatusForbidden},
	{services.ErrDuplicateUser, http.StatusConflict},
}

// statusFor finds the domain error err wraps. The message is the sentinel's
// own text so wrapping context never reaches the client.
func statusFor(err error) (int, string, bool) {
	for _, m := range errorStatuses {
		if errors.Is(err, m.err) {
			return m.status, m.err.Error(), true
		}
	}
	return http.StatusInternalServerError, "", false
}

// respondServiceError maps domain errors to their status. Anything unmapped
// is logged and reported as a generic 500.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if status, message, ok := statusFor(err); ok {
		respondError(w, status, message)
		return
	}
	zap.L().Error("request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("request_id", chimiddleware.GetReqID(r.Context())),
		zap.Error(err),
	)
	respondError(w, http.StatusInternalServerError, "Internal server error")
}

// bind decodes the JSON body into dst and validates it. It writes the error
// response itself and reports false when the handler should stop.
func (h *Handler) bind(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, money.ErrInvalidAmount) || errors.Is(err, money.ErrTooManyDecimals) {
			respondValidation(w, []string{err.Error()})
			return false
		}
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if errs := h.validate.Validate(dst); len(errs) > 0 {
		respondValidation(w, errs)
		return false
	}
	return true
}

func parseInt(raw string, fallback int) int {
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func pageRequest(r *http.Request) services.PageRequest {
	query := r.URL.Query()
	return services.PageRequest{
		Page:  parseInt(query.Get("page"), 1),
		Limit: parseInt(query.Get("limit"), 10),
	}
}

// dateRange reads startDate and endDate as YYYY-MM-DD. The end date covers
// the whole day.
func dateRange(r *http.Request) (from, to *time.Time, err error) {
	query := r.URL.Query()
	if raw := query.Get("startDate"); raw != "" {
		t, err := time.Parse(validator.DateLayout, raw)
		if err != nil {
			return nil, nil, err
		}
		from = &t
	}
	if raw := query.Get("endDate"); raw != "" {
		t, err := time.Parse(validator.DateLayout, raw)
		if err != nil {
			return nil, nil, err
		}
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		to = &t
	}
	return from, to, nil
}
