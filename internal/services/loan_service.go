package services

import (
	"context"
	"fmt"
	"time"

	"lendfi/internal/db"
	"lendfi/internal/models"
	"lendfi/internal/money"
	"lendfi/internal/store"
	"lendfi/internal/websocket"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var hundred = decimal.NewFromInt(100)

// LoanTerms are the amounts derived from a loan request at creation time.
type LoanTerms struct {
	TotalAmount    money.Amount
	MonthlyPayment money.Amount
}

// ComputeTerms applies flat simple interest over the whole term:
// total = amount * (1 + rate/100), monthly = total / duration.
func ComputeTerms(amount money.Amount, rate decimal.Decimal, duration int) (LoanTerms, error) {
	if !amount.IsPositive() || duration < 1 || rate.IsNegative() {
		return LoanTerms{}, money.ErrInvalidAmount
	}
	exact := amount.Decimal().Mul(decimal.NewFromInt(1).Add(rate.Div(hundred)))
	return LoanTerms{
		TotalAmount:    money.FromDecimal(exact),
		MonthlyPayment: money.FromDecimal(exact.DivRound(decimal.NewFromInt(int64(duration)), money.Scale+8)),
	}, nil
}

type LoanService struct {
	txRunner db.TxRunner
	loans    LoanStore
	txStore  TransactionStore
	notifier Notifier
	now      func() time.Time
}

func NewLoanService(txRunner db.TxRunner, loans LoanStore, txStore TransactionStore, notifier Notifier) *LoanService {
	return &LoanService{txRunner: txRunner, loans: loans, txStore: txStore, notifier: notifier, now: clock}
}

type LoanInput struct {
	Amount       money.Amount
	InterestRate decimal.Decimal
	Duration     int
	Collateral   string
	Description  string
}

func (s *LoanService) Request(ctx context.Context, borrowerID string, input LoanInput) (models.Loan, error) {
	terms, err := ComputeTerms(input.Amount, input.InterestRate, input.Duration)
	if err != nil {
		return models.Loan{}, err
	}
	now := s.now()
	loan := models.Loan{
		ID:               uuid.NewString(),
		UserID:           borrowerID,
		Amount:           input.Amount,
		InterestRate:     input.InterestRate,
		Duration:         input.Duration,
		Collateral:       input.Collateral,
		Description:      input.Description,
		Status:           models.LoanPending,
		MonthlyPayment:   terms.MonthlyPayment,
		TotalAmount:      terms.TotalAmount,
		RemainingBalance: terms.TotalAmount,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.loans.Create(ctx, tx, loan); err != nil {
			return fmt.Errorf("create loan: %w", err)
		}
		return s.txStore.Create(ctx, tx, loanTransaction(loan.ID, borrowerID, models.SubTypeRequest, loan.Amount, "Loan request", now, nil))
	})
	if err != nil {
		return models.Loan{}, err
	}
	zap.L().Info("loan requested", zap.String("loan_id", loan.ID), zap.String("user_id", borrowerID), zap.Stringer("amount", loan.Amount))
	return loan, nil
}

type LoanQuery struct {
	View   string
	Status string
	PageRequest
}

func (s *LoanService) List(ctx context.Context, userID string, q LoanQuery) ([]models.Loan, Pagination, error) {
	view := store.LoanView(q.View)
	if view == "" {
		view = store.LoanViewAll
	}
	if !view.Valid() {
		return nil, Pagination{}, ErrInvalidFilter
	}
	status := models.LoanStatus(q.Status)
	if status != "" && !status.Valid() {
		return nil, Pagination{}, ErrInvalidFilter
	}
	loans, total, err := s.loans.List(ctx, store.LoanFilter{View: view, UserID: userID, Status: status}, q.window())
	if err != nil {
		return nil, Pagination{}, fmt.Errorf("list loans: %w", err)
	}
	return loans, NewPagination(q.PageRequest, total), nil
}

// Get returns a loan the viewer borrowed or lent. Pending loans are open to
// every user so the marketplace can show details.
func (s *LoanService) Get(ctx context.Context, loanID, viewerID string) (models.Loan, error) {
	loan, err := s.loans.GetByID(ctx, nil, loanID)
	if err != nil {
		if missing(err) {
			return models.Loan{}, ErrLoanNotFound
		}
		return models.Loan{}, fmt.Errorf("load loan: %w", err)
	}
	if loan.UserID == viewerID || loan.Status == models.LoanPending {
		return loan, nil
	}
	if loan.LenderID != nil && *loan.LenderID == viewerID {
		return loan, nil
	}
	return models.Loan{}, ErrLoanNotFound
}

func (s *LoanService) Fund(ctx context.Context, loanID, funderID string) (models.Loan, error) {
	var funded models.Loan
	now := s.now()
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		loan, err := s.loans.GetByID(ctx, tx, loanID)
		if err != nil {
			if missing(err) {
				return ErrLoanNotFundable
			}
			return fmt.Errorf("load loan: %w", err)
		}
		if loan.UserID == funderID {
			return ErrSelfFunding
		}
		if loan.Status != models.LoanPending {
			return ErrLoanNotFundable
		}
		dueDate := now.AddDate(0, loan.Duration, 0)
		nextPayment := now.AddDate(0, 1, 0)
		ok, err := s.loans.MarkFunded(ctx, tx, loanID, funderID, now, dueDate, nextPayment)
		if err != nil {
			return fmt.Errorf("fund loan: %w", err)
		}
		if !ok {
			return ErrLoanNotFundable
		}
		if err := s.txStore.Create(ctx, tx, loanTransaction(loanID, funderID, models.SubTypeFunded, loan.Amount, "Loan funded", now, nil)); err != nil {
			return err
		}
		loan.LenderID = stringPtr(funderID)
		loan.Status = models.LoanActive
		loan.FundedAt = &now
		loan.DueDate = &dueDate
		loan.NextPaymentDate = &nextPayment
		loan.UpdatedAt = now
		funded = loan
		return nil
	})
	if err != nil {
		return models.Loan{}, err
	}
	zap.L().Info("loan funded", zap.String("loan_id", loanID), zap.String("lender_id", funderID))
	s.notify(funded.UserID, websocket.EventLoanFunded, funded, now)
	return funded, nil
}

func (s *LoanService) Pay(ctx context.Context, loanID, borrowerID string, amount money.Amount) (models.Loan, error) {
	if !amount.IsPositive() {
		return models.Loan{}, ErrInvalidPayment
	}
	var paid models.Loan
	now := s.now()
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		loan, err := s.loans.GetActiveForBorrower(ctx, tx, loanID, borrowerID)
		if err != nil {
			if missing(err) {
				return ErrLoanNotFound
			}
			return fmt.Errorf("load loan: %w", err)
		}
		if amount > loan.RemainingBalance {
			return ErrInvalidPayment
		}
		status := models.LoanActive
		next := now.AddDate(0, 1, 0)
		nextPayment := &next
		if loan.RemainingBalance-amount == 0 {
			status = models.LoanRepaid
			nextPayment = nil
		}
		ok, err := s.loans.ApplyPayment(ctx, tx, loanID, amount, status, nextPayment)
		if err != nil {
			return fmt.Errorf("apply payment: %w", err)
		}
		if !ok {
			return ErrInvalidPayment
		}
		metadata := map[string]any{"remainingBalance": (loan.RemainingBalance - amount).String()}
		if err := s.txStore.Create(ctx, tx, loanTransaction(loanID, borrowerID, models.SubTypeRepayment, amount, "Loan repayment", now, metadata)); err != nil {
			return err
		}
		loan.TotalRepaid += amount
		loan.RemainingBalance -= amount
		loan.Status = status
		loan.NextPaymentDate = nextPayment
		loan.UpdatedAt = now
		paid = loan
		return nil
	})
	if err != nil {
		return models.Loan{}, err
	}
	zap.L().Info("loan payment", zap.String("loan_id", loanID), zap.Stringer("amount", amount), zap.String("status", string(paid.Status)))
	if paid.LenderID != nil {
		event := websocket.EventLoanRepayment
		if paid.Status == models.LoanRepaid {
			event = websocket.EventLoanRepaid
		}
		s.notify(*paid.LenderID, event, paid, now)
	}
	return paid, nil
}

func (s *LoanService) notify(userID, eventType string, loan models.Loan, at time.Time) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(userID, websocket.Event{
		Type: eventType,
		Data: map[string]any{
			"loanId":           loan.ID,
			"status":           loan.Status,
			"remainingBalance": loan.RemainingBalance,
		},
		At: at,
	})
}

func loanTransaction(loanID, userID string, subType models.TransactionSubType, amount money.Amount, description string, at time.Time, metadata map[string]any) models.Transaction {
	return models.Transaction{
		ID:            uuid.NewString(),
		UserID:        userID,
		Type:          models.TxTypeLoan,
		SubType:       subType,
		Amount:        amount,
		Description:   description,
		Status:        models.TxCompleted,
		ReferenceType: models.RefLoan,
		ReferenceID:   stringPtr(loanID),
		Metadata:      models.NewMetadata(metadata),
		CreatedAt:     at,
		UpdatedAt:     at,
	}
}
