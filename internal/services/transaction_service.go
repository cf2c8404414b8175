package services

import (
	"context"
	"fmt"
	"time"

	"lendfi/internal/models"
	"lendfi/internal/money"
	"lendfi/internal/store"

	"github.com/google/uuid"
)

type TransactionService struct {
	txStore TransactionStore
	now     func() time.Time
}

func NewTransactionService(txStore TransactionStore) *TransactionService {
	return &TransactionService{txStore: txStore, now: clock}
}

type TransactionQuery struct {
	Type   string
	Status string
	From   *time.Time
	To     *time.Time
	PageRequest
}

func (s *TransactionService) List(ctx context.Context, userID string, q TransactionQuery) ([]models.Transaction, Pagination, error) {
	txType := models.TransactionType(q.Type)
	if txType != "" && !txType.Valid() {
		return nil, Pagination{}, ErrInvalidFilter
	}
	status := models.TransactionStatus(q.Status)
	if status != "" && !status.Valid() {
		return nil, Pagination{}, ErrInvalidFilter
	}
	if q.From != nil && q.To != nil && q.From.After(*q.To) {
		return nil, Pagination{}, ErrInvalidFilter
	}
	transactions, total, err := s.txStore.List(ctx, store.TransactionFilter{
		UserID: userID,
		Type:   txType,
		Status: status,
		From:   q.From,
		To:     q.To,
	}, q.window())
	if err != nil {
		return nil, Pagination{}, fmt.Errorf("list transactions: %w", err)
	}
	return transactions, NewPagination(q.PageRequest, total), nil
}

func (s *TransactionService) Get(ctx context.Context, transactionID, userID string) (models.Transaction, error) {
	t, err := s.txStore.GetForUser(ctx, transactionID, userID)
	if err != nil {
		if missing(err) {
			return models.Transaction{}, ErrTransactionNotFound
		}
		return models.Transaction{}, fmt.Errorf("load transaction: %w", err)
	}
	return t, nil
}

type TransactionInput struct {
	Type          models.TransactionType
	SubType       models.TransactionSubType
	Amount        money.Amount
	Description   string
	ReferenceType models.ReferenceType
	ReferenceID   string
	TxHash        *string
	Metadata      map[string]any
}

// Create records a user-initiated ledger entry. It starts pending and is
// settled through UpdateStatus.
func (s *TransactionService) Create(ctx context.Context, userID string, input TransactionInput) (models.Transaction, error) {
	if !input.Type.Valid() || !input.SubType.Valid() || !input.ReferenceType.Valid() {
		return models.Transaction{}, ErrInvalidStatus
	}
	if !input.Amount.IsPositive() {
		return models.Transaction{}, money.ErrInvalidAmount
	}
	now := s.now()
	t := models.Transaction{
		ID:            uuid.NewString(),
		UserID:        userID,
		Type:          input.Type,
		SubType:       input.SubType,
		Amount:        input.Amount,
		Description:   input.Description,
		Status:        models.TxPending,
		ReferenceType: input.ReferenceType,
		TxHash:        input.TxHash,
		Metadata:      models.NewMetadata(input.Metadata),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if input.ReferenceType != models.RefNone {
		t.ReferenceID = stringPtr(input.ReferenceID)
	}
	if err := s.txStore.Create(ctx, nil, t); err != nil {
		return models.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	return t, nil
}

func (s *TransactionService) UpdateStatus(ctx context.Context, transactionID, userID string, status models.TransactionStatus, txHash *string) (models.Transaction, error) {
	if !status.Valid() {
		return models.Transaction{}, ErrInvalidStatus
	}
	t, err := s.txStore.UpdateStatus(ctx, transactionID, userID, status, txHash)
	if err != nil {
		if missing(err) {
			return models.Transaction{}, ErrTransactionNotFound
		}
		return models.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	return t, nil
}

type Summary struct {
	TotalLent               money.Amount `json:"totalLent"`
	TotalBorrowed           money.Amount `json:"totalBorrowed"`
	TotalRepaid             money.Amount `json:"totalRepaid"`
	TotalROSCAContributions money.Amount `json:"totalROSCAContributions"`
	TotalROSCAPayouts       money.Amount `json:"totalROSCAPayouts"`
	NetBalance              money.Amount `json:"netBalance"`
}

// Summary folds the user's completed loan and ROSCA transactions into totals.
func (s *TransactionService) Summary(ctx context.Context, userID string) (Summary, error) {
	totals, err := s.txStore.CompletedTotals(ctx, userID)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize transactions: %w", err)
	}
	return Summarize(totals), nil
}

func Summarize(totals []store.SubTypeTotal) Summary {
	var sum Summary
	for _, t := range totals {
		switch t.SubType {
		case models.SubTypeFunded:
			sum.TotalLent += t.Total
		case models.SubTypeRequest:
			sum.TotalBorrowed += t.Total
		case models.SubTypeRepayment:
			sum.TotalRepaid += t.Total
		case models.SubTypeContribution:
			sum.TotalROSCAContributions += t.Total
		case models.SubTypePayout:
			sum.TotalROSCAPayouts += t.Total
		}
	}
	sum.NetBalance = sum.TotalLent - sum.TotalBorrowed + sum.TotalRepaid + sum.TotalROSCAPayouts - sum.TotalROSCAContributions
	return sum
}
