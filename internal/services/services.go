package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"lendfi/internal/db"
	"lendfi/internal/models"
	"lendfi/internal/money"
	"lendfi/internal/store"
	"lendfi/internal/websocket"
)

var (
	ErrDuplicateUser        = errors.New("user with this email, ID number or wallet address already exists")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrAccountInactive      = errors.New("account is deactivated")
	ErrInvalidAdminSecret   = errors.New("invalid admin secret")
	ErrWrongPassword        = errors.New("current password is incorrect")
	ErrUserNotFound         = errors.New("user not found")
	ErrSelfDeactivation     = errors.New("admins cannot deactivate themselves")
	ErrLoanNotFound         = errors.New("loan not found")
	ErrLoanNotFundable      = errors.New("loan not found or already funded")
	ErrSelfFunding          = errors.New("cannot fund your own loan")
	ErrInvalidPayment       = errors.New("invalid payment amount")
	ErrROSCANotFound        = errors.New("ROSCA not found")
	ErrROSCANotActive       = errors.New("ROSCA is not active")
	ErrROSCAFull            = errors.New("ROSCA is full")
	ErrAlreadyMember        = errors.New("already a member of this ROSCA")
	ErrNotMember            = errors.New("not a member of this ROSCA")
	ErrContributionMismatch = errors.New("contribution amount must match the ROSCA contribution amount")
	ErrAlreadyContributed   = errors.New("already contributed this cycle")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrInvalidStatus        = errors.New("invalid status")
	ErrInvalidFilter        = errors.New("invalid filter")
	ErrInvalidExport        = errors.New("invalid export request")
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

// PageRequest is a 1-based page number and a page size.
type PageRequest struct {
	Page  int
	Limit int
}

func (p PageRequest) normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	return p
}

func (p PageRequest) window() store.Page {
	p = p.normalize()
	return store.Page{Limit: p.Limit, Offset: (p.Page - 1) * p.Limit}
}

// Pagination describes where a page sits in the full result.
type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

func NewPagination(req PageRequest, total int) Pagination {
	req = req.normalize()
	return Pagination{
		Total:      total,
		Page:       req.Page,
		Limit:      req.Limit,
		TotalPages: (total + req.Limit - 1) / req.Limit,
	}
}

type Notifier interface {
	Publish(userID string, event websocket.Event)
}

type UserStore interface {
	Create(ctx context.Context, tx store.Execer, user models.User) error
	GetByID(ctx context.Context, userID string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	UpdateLastLogin(ctx context.Context, userID string, at time.Time) error
	UpdateProfile(ctx context.Context, userID string, name, phone, walletAddress *string) (models.User, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	SetKYCStatus(ctx context.Context, tx store.Execer, userID string, status models.KYCStatus) (int64, error)
	Deactivate(ctx context.Context, tx store.Execer, userID string) (int64, error)
	List(ctx context.Context, f store.UserFilter, page store.Page) ([]models.User, int, error)
	ListCreatedBetween(ctx context.Context, from, to *time.Time) ([]models.User, error)
}

type LoanStore interface {
	Create(ctx context.Context, tx store.Execer, loan models.Loan) error
	GetByID(ctx context.Context, q store.Getter, loanID string) (models.Loan, error)
	GetActiveForBorrower(ctx context.Context, tx store.Getter, loanID, borrowerID string) (models.Loan, error)
	MarkFunded(ctx context.Context, tx store.Execer, loanID, lenderID string, fundedAt, dueDate, nextPayment time.Time) (bool, error)
	ApplyPayment(ctx context.Context, tx store.Execer, loanID string, amount money.Amount, status models.LoanStatus, nextPayment *time.Time) (bool, error)
	SetStatus(ctx context.Context, tx store.Execer, loanID string, status models.LoanStatus) (int64, error)
	List(ctx context.Context, f store.LoanFilter, page store.Page) ([]models.Loan, int, error)
	Recent(ctx context.Context, limit int) ([]models.Loan, error)
	ListCreatedBetween(ctx context.Context, from, to *time.Time) ([]models.Loan, error)
}

type ROSCAStore interface {
	Create(ctx context.Context, tx store.Execer, rosca models.ROSCA) error
	InviteCodeExists(ctx context.Context, q store.Getter, code string) (bool, error)
	GetByID(ctx context.Context, q store.Getter, roscaID string) (models.ROSCA, error)
	GetByInviteCode(ctx context.Context, q store.Getter, code string) (models.ROSCA, error)
	List(ctx context.Context, f store.ROSCAFilter, page store.Page) ([]models.ROSCA, int, error)
	AddMember(ctx context.Context, tx store.Execer, roscaID, userID string, joinedAt time.Time) error
	IncrementMembers(ctx context.Context, tx store.Execer, roscaID string) (bool, error)
	IsMember(ctx context.Context, q store.Getter, roscaID, userID string) (bool, error)
	Members(ctx context.Context, roscaID string, cycle int) ([]models.ROSCAMember, error)
	RecordContribution(ctx context.Context, tx store.Execer, input store.ContributionInput) error
}

type TransactionStore interface {
	Create(ctx context.Context, tx store.Execer, t models.Transaction) error
	GetForUser(ctx context.Context, transactionID, userID string) (models.Transaction, error)
	UpdateStatus(ctx context.Context, transactionID, userID string, status models.TransactionStatus, txHash *string) (models.Transaction, error)
	List(ctx context.Context, f store.TransactionFilter, page store.Page) ([]models.Transaction, int, error)
	ListCreatedBetween(ctx context.Context, from, to *time.Time) ([]models.Transaction, error)
	CompletedTotals(ctx context.Context, userID string) ([]store.SubTypeTotal, error)
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID string, data map[string]any) error
	List(ctx context.Context, page store.Page) ([]models.AuditLog, int, error)
}

type StatsStore interface {
	Totals(ctx context.Context) (store.PlatformTotals, error)
}

// missing treats ids the database cannot parse like ids it cannot find.
func missing(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || db.IsInvalidText(err)
}

func clock() time.Time {
	return time.Now().UTC()
}

func stringPtr(value string) *string {
	return &value
}
