package store

import (
	"context"
	"time"

	"lendfi/internal/models"
	"lendfi/internal/money"
)

const loanColumns = `l.id, l.user_id, l.lender_id, l.amount, l.interest_rate, l.duration, l.collateral, l.description,
		l.status, l.monthly_payment, l.total_amount, l.total_repaid, l.remaining_balance,
		l.next_payment_date, l.funded_at, l.due_date, l.created_at, l.updated_at`

const loanSelect = `
	SELECT ` + loanColumns + `,
	       b.name AS borrower_name, b.email AS borrower_email, b.kyc_status AS borrower_kyc,
	       ln.name AS lender_name, ln.email AS lender_email
	FROM loans l
	JOIN users b ON b.id = l.user_id
	LEFT JOIN users ln ON ln.id = l.lender_id`

// LoanView selects which loans a List call returns relative to the viewer.
type LoanView string

const (
	LoanViewAll         LoanView = "all"
	LoanViewBorrowed    LoanView = "borrowed"
	LoanViewLent        LoanView = "lent"
	LoanViewMarketplace LoanView = "marketplace"
)

func (v LoanView) Valid() bool {
	switch v {
	case LoanViewAll, LoanViewBorrowed, LoanViewLent, LoanViewMarketplace:
		return true
	}
	return false
}

type LoanFilter struct {
	View   LoanView
	UserID string
	Status models.LoanStatus
}

type LoanStore struct {
	db DB
}

type loanRow struct {
	models.Loan
	BorrowerName  string           `db:"borrower_name"`
	BorrowerEmail string           `db:"borrower_email"`
	BorrowerKYC   models.KYCStatus `db:"borrower_kyc"`
	LenderName    *string          `db:"lender_name"`
	LenderEmail   *string          `db:"lender_email"`
}

func (r loanRow) toModel() models.Loan {
	loan := r.Loan
	loan.Borrower = &models.UserSummary{ID: loan.UserID, Name: r.BorrowerName, Email: r.BorrowerEmail, KYCStatus: r.BorrowerKYC}
	if loan.LenderID != nil && r.LenderName != nil {
		loan.Lender = &models.UserSummary{ID: *loan.LenderID, Name: *r.LenderName, Email: derefStringPtr(r.LenderEmail)}
	}
	return loan
}

func NewLoanStore(db DB) *LoanStore {
	return &LoanStore{db: db}
}

func (s *LoanStore) Create(ctx context.Context, tx Execer, loan models.Loan) error {
	query := `
		INSERT INTO loans (id, user_id, amount, interest_rate, duration, collateral, description, status,
		                   monthly_payment, total_amount, total_repaid, remaining_balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
	`
	_, err := tx.ExecContext(ctx, query,
		loan.ID, loan.UserID, loan.Amount, loan.InterestRate, loan.Duration, loan.Collateral, loan.Description,
		loan.Status, loan.MonthlyPayment, loan.TotalAmount, loan.TotalRepaid, loan.RemainingBalance, loan.CreatedAt,
	)
	return err
}

// GetByID reads through q when it is non-nil, so callers inside a transaction see their own writes.
func (s *LoanStore) GetByID(ctx context.Context, q Getter, loanID string) (models.Loan, error) {
	var row loanRow
	if err := reader(q, s.db).GetContext(ctx, &row, loanSelect+` WHERE l.id = $1`, loanID); err != nil {
		return models.Loan{}, err
	}
	return row.toModel(), nil
}

// GetActiveForBorrower locks an active loan owned by borrowerID.
func (s *LoanStore) GetActiveForBorrower(ctx context.Context, tx Getter, loanID, borrowerID string) (models.Loan, error) {
	var loan models.Loan
	err := tx.GetContext(ctx, &loan, `
		SELECT `+loanColumns+`
		FROM loans l
		WHERE l.id = $1 AND l.user_id = $2 AND l.status = 'active'
		FOR UPDATE
	`, loanID, borrowerID)
	return loan, err
}

// MarkFunded moves a pending loan to active. It reports false when another
// funder won or the funder is the borrower.
func (s *LoanStore) MarkFunded(ctx context.Context, tx Execer, loanID, lenderID string, fundedAt, dueDate, nextPayment time.Time) (bool, error) {
	rows, err := rowsAffected(tx.ExecContext(ctx, `
		UPDATE loans
		SET lender_id = $2, status = 'active', funded_at = $3, due_date = $4, next_payment_date = $5, updated_at = $3
		WHERE id = $1 AND status = 'pending' AND user_id <> $2
	`, loanID, lenderID, fundedAt, dueDate, nextPayment))
	return rows == 1, err
}

// ApplyPayment moves amount from remaining_balance to total_repaid, refusing
// to take the balance below zero.
func (s *LoanStore) ApplyPayment(ctx context.Context, tx Execer, loanID string, amount money.Amount, status models.LoanStatus, nextPayment *time.Time) (bool, error) {
	rows, err := rowsAffected(tx.ExecContext(ctx, `
		UPDATE loans
		SET total_repaid = total_repaid + $2,
		    remaining_balance = remaining_balance - $2,
		    status = $3,
		    next_payment_date = $4,
		    updated_at = NOW()
		WHERE id = $1 AND status = 'active' AND remaining_balance >= $2
	`, loanID, amount, status, nextPayment))
	return rows == 1, err
}

func (s *LoanStore) SetStatus(ctx context.Context, tx Execer, loanID string, status models.LoanStatus) (int64, error) {
	return rowsAffected(tx.ExecContext(ctx, `
		UPDATE loans SET status = $2, updated_at = NOW() WHERE id = $1
	`, loanID, status))
}

func (s *LoanStore) List(ctx context.Context, f LoanFilter, page Page) ([]models.Loan, int, error) {
	var where filter
	switch f.View {
	case LoanViewBorrowed:
		where.add("l.user_id = ?", f.UserID)
	case LoanViewLent:
		where.add("l.lender_id = ?", f.UserID)
	case LoanViewMarketplace:
		where.raw("l.status = 'pending'")
		where.add("l.user_id <> ?", f.UserID)
	default:
		where.add("(l.user_id = ? OR l.lender_id = ?)", f.UserID)
	}
	if f.Status != "" {
		where.add("l.status = ?", f.Status)
	}
	return s.list(ctx, where, page)
}

func (s *LoanStore) Recent(ctx context.Context, limit int) ([]models.Loan, error) {
	loans, _, err := s.list(ctx, filter{}, Page{Limit: limit})
	return loans, err
}

func (s *LoanStore) ListCreatedBetween(ctx context.Context, from, to *time.Time) ([]models.Loan, error) {
	where := createdBetween(from, to, "l.created_at")
	var rows []loanRow
	if err := s.db.SelectContext(ctx, &rows, loanSelect+where.where()+` ORDER BY l.created_at DESC`, where.args...); err != nil {
		return nil, err
	}
	return loanRowsToModels(rows), nil
}

func (s *LoanStore) list(ctx context.Context, where filter, page Page) ([]models.Loan, int, error) {
	var total int
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(1) FROM loans l`+where.where(), where.args...); err != nil {
		return nil, 0, err
	}
	suffix, args := where.paged(page)
	var rows []loanRow
	if err := s.db.SelectContext(ctx, &rows, loanSelect+where.where()+` ORDER BY l.created_at DESC`+suffix, args...); err != nil {
		return nil, 0, err
	}
	return loanRowsToModels(rows), total, nil
}

func loanRowsToModels(rows []loanRow) []models.Loan {
	loans := make([]models.Loan, 0, len(rows))
	for _, row := range rows {
		loans = append(loans, row.toModel())
	}
	return loans
}
