package services

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"lendfi/internal/models"
	"lendfi/internal/money"
	"lendfi/internal/store"
	"lendfi/internal/websocket"

	"github.com/jmoiron/sqlx"
)

type fakeTxRunner struct {
	err error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

type stubUserStore struct {
	createFn          func(ctx context.Context, tx store.Execer, user models.User) error
	getByIDFn         func(ctx context.Context, userID string) (models.User, error)
	getByEmailFn      func(ctx context.Context, email string) (models.User, error)
	updateLastLoginFn func(ctx context.Context, userID string, at time.Time) error
	updateProfileFn   func(ctx context.Context, userID string, name, phone, walletAddress *string) (models.User, error)
	updatePasswordFn  func(ctx context.Context, userID, passwordHash string) error
	setKYCStatusFn    func(ctx context.Context, tx store.Execer, userID string, status models.KYCStatus) (int64, error)
	deactivateFn      func(ctx context.Context, tx store.Execer, userID string) (int64, error)
	listFn            func(ctx context.Context, f store.UserFilter, page store.Page) ([]models.User, int, error)
	listBetweenFn     func(ctx context.Context, from, to *time.Time) ([]models.User, error)
}

func (s stubUserStore) Create(ctx context.Context, tx store.Execer, user models.User) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, user)
}

func (s stubUserStore) GetByID(ctx context.Context, userID string) (models.User, error) {
	if s.getByIDFn == nil {
		return models.User{}, sql.ErrNoRows
	}
	return s.getByIDFn(ctx, userID)
}

func (s stubUserStore) GetByEmail(ctx context.Context, email string) (models.User, error) {
	if s.getByEmailFn == nil {
		return models.User{}, sql.ErrNoRows
	}
	return s.getByEmailFn(ctx, email)
}

func (s stubUserStore) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	if s.updateLastLoginFn == nil {
		return nil
	}
	return s.updateLastLoginFn(ctx, userID, at)
}

func (s stubUserStore) UpdateProfile(ctx context.Context, userID string, name, phone, walletAddress *string) (models.User, error) {
	return s.updateProfileFn(ctx, userID, name, phone, walletAddress)
}

func (s stubUserStore) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	if s.updatePasswordFn == nil {
		return nil
	}
	return s.updatePasswordFn(ctx, userID, passwordHash)
}

func (s stubUserStore) SetKYCStatus(ctx context.Context, tx store.Execer, userID string, status models.KYCStatus) (int64, error) {
	if s.setKYCStatusFn == nil {
		return 1, nil
	}
	return s.setKYCStatusFn(ctx, tx, userID, status)
}

func (s stubUserStore) Deactivate(ctx context.Context, tx store.Execer, userID string) (int64, error) {
	if s.deactivateFn == nil {
		return 1, nil
	}
	return s.deactivateFn(ctx, tx, userID)
}

func (s stubUserStore) List(ctx context.Context, f store.UserFilter, page store.Page) ([]models.User, int, error) {
	if s.listFn == nil {
		return nil, 0, nil
	}
	return s.listFn(ctx, f, page)
}

func (s stubUserStore) ListCreatedBetween(ctx context.Context, from, to *time.Time) ([]models.User, error) {
	if s.listBetweenFn == nil {
		return nil, nil
	}
	return s.listBetweenFn(ctx, from, to)
}

type stubLoanStore struct {
	createFn       func(ctx context.Context, tx store.Execer, loan models.Loan) error
	getByIDFn      func(ctx context.Context, q store.Getter, loanID string) (models.Loan, error)
	getActiveFn    func(ctx context.Context, tx store.Getter, loanID, borrowerID string) (models.Loan, error)
	markFundedFn   func(ctx context.Context, tx store.Execer, loanID, lenderID string, fundedAt, dueDate, nextPayment time.Time) (bool, error)
	applyPaymentFn func(ctx context.Context, tx store.Execer, loanID string, amount money.Amount, status models.LoanStatus, nextPayment *time.Time) (bool, error)
	setStatusFn    func(ctx context.Context, tx store.Execer, loanID string, status models.LoanStatus) (int64, error)
	listFn         func(ctx context.Context, f store.LoanFilter, page store.Page) ([]models.Loan, int, error)
	recentFn       func(ctx context.Context, limit int) ([]models.Loan, error)
	listBetweenFn  func(ctx context.Context, from, to *time.Time) ([]models.Loan, error)
}

func (s stubLoanStore) Create(ctx context.Context, tx store.Execer, loan models.Loan) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, loan)
}

func (s stubLoanStore) GetByID(ctx context.Context, q store.Getter, loanID string) (models.Loan, error) {
	if s.getByIDFn == nil {
		return models.Loan{}, sql.ErrNoRows
	}
	return s.getByIDFn(ctx, q, loanID)
}

func (s stubLoanStore) GetActiveForBorrower(ctx context.Context, tx store.Getter, loanID, borrowerID string) (models.Loan, error) {
	if s.getActiveFn == nil {
		return models.Loan{}, sql.ErrNoRows
	}
	return s.getActiveFn(ctx, tx, loanID, borrowerID)
}

func (s stubLoanStore) MarkFunded(ctx context.Context, tx store.Execer, loanID, lenderID string, fundedAt, dueDate, nextPayment time.Time) (bool, error) {
	if s.markFundedFn == nil {
		return true, nil
	}
	return s.markFundedFn(ctx, tx, loanID, lenderID, fundedAt, dueDate, nextPayment)
}

func (s stubLoanStore) ApplyPayment(ctx context.Context, tx store.Execer, loanID string, amount money.Amount, status models.LoanStatus, nextPayment *time.Time) (bool, error) {
	if s.applyPaymentFn == nil {
		return true, nil
	}
	return s.applyPaymentFn(ctx, tx, loanID, amount, status, nextPayment)
}

func (s stubLoanStore) SetStatus(ctx context.Context, tx store.Execer, loanID string, status models.LoanStatus) (int64, error) {
	if s.setStatusFn == nil {
		return 1, nil
	}
	return s.setStatusFn(ctx, tx, loanID, status)
}

func (s stubLoanStore) List(ctx context.Context, f store.LoanFilter, page store.Page) ([]models.Loan, int, error) {
	if s.listFn == nil {
		return nil, 0, nil
	}
	return s.listFn(ctx, f, page)
}

func (s stubLoanStore) Recent(ctx context.Context, limit int) ([]models.Loan, error) {
	if s.recentFn == nil {
		return nil, nil
	}
	return s.recentFn(ctx, limit)
}

func (s stubLoanStore) ListCreatedBetween(ctx context.Context, from, to *time.Time) ([]models.Loan, error) {
	if s.listBetweenFn == nil {
		return nil, nil
	}
	return s.listBetweenFn(ctx, from, to)
}

type stubROSCAStore struct {
	createFn             func(ctx context.Context, tx store.Execer, rosca models.ROSCA) error
	inviteCodeExistsFn   func(ctx context.Context, q store.Getter, code string) (bool, error)
	getByIDFn            func(ctx context.Context, q store.Getter, roscaID string) (models.ROSCA, error)
	getByInviteCodeFn    func(ctx context.Context, q store.Getter, code string) (models.ROSCA, error)
	listFn               func(ctx context.Context, f store.ROSCAFilter, page store.Page) ([]models.ROSCA, int, error)
	addMemberFn          func(ctx context.Context, tx store.Execer, roscaID, userID string, joinedAt time.Time) error
	incrementMembersFn   func(ctx context.Context, tx store.Execer, roscaID string) (bool, error)
	isMemberFn           func(ctx context.Context, q store.Getter, roscaID, userID string) (bool, error)
	membersFn            func(ctx context.Context, roscaID string, cycle int) ([]models.ROSCAMember, error)
	recordContributionFn func(ctx context.Context, tx store.Execer, input store.ContributionInput) error
}

func (s stubROSCAStore) Create(ctx context.Context, tx store.Execer, rosca models.ROSCA) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, rosca)
}

func (s stubROSCAStore) InviteCodeExists(ctx context.Context, q store.Getter, code string) (bool, error) {
	if s.inviteCodeExistsFn == nil {
		return false, nil
	}
	return s.inviteCodeExistsFn(ctx, q, code)
}

func (s stubROSCAStore) GetByID(ctx context.Context, q store.Getter, roscaID string) (models.ROSCA, error) {
	if s.getByIDFn == nil {
		return models.ROSCA{}, sql.ErrNoRows
	}
	return s.getByIDFn(ctx, q, roscaID)
}

func (s stubROSCAStore) GetByInviteCode(ctx context.Context, q store.Getter, code string) (models.ROSCA, error) {
	if s.getByInviteCodeFn == nil {
		return models.ROSCA{}, sql.ErrNoRows
	}
	return s.getByInviteCodeFn(ctx, q, code)
}

func (s stubROSCAStore) List(ctx context.Context, f store.ROSCAFilter, page store.Page) ([]models.ROSCA, int, error) {
	if s.listFn == nil {
		return nil, 0, nil
	}
	return s.listFn(ctx, f, page)
}

func (s stubROSCAStore) AddMember(ctx context.Context, tx store.Execer, roscaID, userID string, joinedAt time.Time) error {
	if s.addMemberFn == nil {
		return nil
	}
	return s.addMemberFn(ctx, tx, roscaID, userID, joinedAt)
}

func (s stubROSCAStore) IncrementMembers(ctx context.Context, tx store.Execer, roscaID string) (bool, error) {
	if s.incrementMembersFn == nil {
		return true, nil
	}
	return s.incrementMembersFn(ctx, tx, roscaID)
}

func (s stubROSCAStore) IsMember(ctx context.Context, q store.Getter, roscaID, userID string) (bool, error) {
	if s.isMemberFn == nil {
		return false, nil
	}
	return s.isMemberFn(ctx, q, roscaID, userID)
}

func (s stubROSCAStore) Members(ctx context.Context, roscaID string, cycle int) ([]models.ROSCAMember, error) {
	if s.membersFn == nil {
		return nil, nil
	}
	return s.membersFn(ctx, roscaID, cycle)
}

func (s stubROSCAStore) RecordContribution(ctx context.Context, tx store.Execer, input store.ContributionInput) error {
	if s.recordContributionFn == nil {
		return nil
	}
	return s.recordContributionFn(ctx, tx, input)
}

type stubTransactionStore struct {
	createFn         func(ctx context.Context, tx store.Execer, t models.Transaction) error
	getForUserFn     func(ctx context.Context, transactionID, userID string) (models.Transaction, error)
	updateStatusFn   func(ctx context.Context, transactionID, userID string, status models.TransactionStatus, txHash *string) (models.Transaction, error)
	listFn           func(ctx context.Context, f store.TransactionFilter, page store.Page) ([]models.Transaction, int, error)
	listBetweenFn    func(ctx context.Context, from, to *time.Time) ([]models.Transaction, error)
	completedTotalFn func(ctx context.Context, userID string) ([]store.SubTypeTotal, error)
}

func (s stubTransactionStore) Create(ctx context.Context, tx store.Execer, t models.Transaction) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, t)
}

func (s stubTransactionStore) GetForUser(ctx context.Context, transactionID, userID string) (models.Transaction, error) {
	if s.getForUserFn == nil {
		return models.Transaction{}, sql.ErrNoRows
	}
	return s.getForUserFn(ctx, transactionID, userID)
}

func (s stubTransactionStore) UpdateStatus(ctx context.Context, transactionID, userID string, status models.TransactionStatus, txHash *string) (models.Transaction, error) {
	if s.updateStatusFn == nil {
		return models.Transaction{}, sql.ErrNoRows
	}
	return s.updateStatusFn(ctx, transactionID, userID, status, txHash)
}

func (s stubTransactionStore) List(ctx context.Context, f store.TransactionFilter, page store.Page) ([]models.Transaction, int, error) {
	if s.listFn == nil {
		return nil, 0, nil
	}
	return s.listFn(ctx, f, page)
}

func (s stubTransactionStore) ListCreatedBetween(ctx context.Context, from, to *time.Time) ([]models.Transaction, error) {
	if s.listBetweenFn == nil {
		return nil, nil
	}
	return s.listBetweenFn(ctx, from, to)
}

func (s stubTransactionStore) CompletedTotals(ctx context.Context, userID string) ([]store.SubTypeTotal, error) {
	if s.completedTotalFn == nil {
		return nil, nil
	}
	return s.completedTotalFn(ctx, userID)
}

type auditEntry struct {
	actorID    string
	action     string
	entityType string
	entityID   string
	data       map[string]any
}

type stubAuditStore struct {
	mu      sync.Mutex
	entries []auditEntry
	logErr  error
	listFn  func(ctx context.Context, page store.Page) ([]models.AuditLog, int, error)
}

func (s *stubAuditStore) Log(_ context.Context, _ store.Execer, actorID, action, entityType, entityID string, data map[string]any) error {
	if s.logErr != nil {
		return s.logErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, auditEntry{actorID: actorID, action: action, entityType: entityType, entityID: entityID, data: data})
	return nil
}

func (s *stubAuditStore) List(ctx context.Context, page store.Page) ([]models.AuditLog, int, error) {
	if s.listFn == nil {
		return nil, 0, nil
	}
	return s.listFn(ctx, page)
}

type stubStatsStore struct {
	totals store.PlatformTotals
	err    error
}

func (s stubStatsStore) Totals(context.Context) (store.PlatformTotals, error) {
	return s.totals, s.err
}

type published struct {
	userID string
	event  websocket.Event
}

type stubNotifier struct {
	mu    sync.Mutex
	calls []published
}

func (s *stubNotifier) Publish(userID string, event websocket.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, published{userID: userID, event: event})
}
