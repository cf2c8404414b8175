package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"lendfi/internal/db"
	"lendfi/internal/export"
	"lendfi/internal/models"
	"lendfi/internal/store"
	"lendfi/internal/websocket"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

const (
	dashboardRecent = 5
	userDetailLimit = 10
	dateLayout      = "2006-01-02"
	timestampLayout = time.RFC3339
)

type AdminService struct {
	txRunner db.TxRunner
	users    UserStore
	loans    LoanStore
	txStore  TransactionStore
	audit    AuditStore
	stats    StatsStore
	notifier Notifier
	now      func() time.Time
}

func NewAdminService(txRunner db.TxRunner, users UserStore, loans LoanStore, txStore TransactionStore, audit AuditStore, stats StatsStore, notifier Notifier) *AdminService {
	return &AdminService{
		txRunner: txRunner,
		users:    users,
		loans:    loans,
		txStore:  txStore,
		audit:    audit,
		stats:    stats,
		notifier: notifier,
		now:      clock,
	}
}

type Dashboard struct {
	Stats       store.PlatformTotals `json:"stats"`
	RecentUsers []models.User        `json:"recentUsers"`
	RecentLoans []models.Loan        `json:"recentLoans"`
}

func (s *AdminService) Dashboard(ctx context.Context) (Dashboard, error) {
	totals, err := s.stats.Totals(ctx)
	if err != nil {
		return Dashboard{}, fmt.Errorf("platform totals: %w", err)
	}
	users, _, err := s.users.List(ctx, store.UserFilter{}, store.Page{Limit: dashboardRecent})
	if err != nil {
		return Dashboard{}, fmt.Errorf("recent users: %w", err)
	}
	loans, err := s.loans.Recent(ctx, dashboardRecent)
	if err != nil {
		return Dashboard{}, fmt.Errorf("recent loans: %w", err)
	}
	return Dashboard{Stats: totals, RecentUsers: users, RecentLoans: loans}, nil
}

type UserQuery struct {
	Search    string
	KYCStatus string
	Role      string
	PageRequest
}

func (s *AdminService) ListUsers(ctx context.Context, q UserQuery) ([]models.User, Pagination, error) {
	kyc := models.KYCStatus(q.KYCStatus)
	if kyc != "" && !kyc.Valid() {
		return nil, Pagination{}, ErrInvalidFilter
	}
	role := models.Role(q.Role)
	if role != "" && !role.Valid() {
		return nil, Pagination{}, ErrInvalidFilter
	}
	users, total, err := s.users.List(ctx, store.UserFilter{Search: q.Search, KYCStatus: kyc, Role: role}, q.window())
	if err != nil {
		return nil, Pagination{}, fmt.Errorf("list users: %w", err)
	}
	return users, NewPagination(q.PageRequest, total), nil
}

type UserDetail struct {
	User         models.User          `json:"user"`
	Loans        []models.Loan        `json:"loans"`
	Transactions []models.Transaction `json:"transactions"`
}

func (s *AdminService) GetUser(ctx context.Context, userID string) (UserDetail, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if missing(err) {
			return UserDetail{}, ErrUserNotFound
		}
		return UserDetail{}, fmt.Errorf("load user: %w", err)
	}
	loans, _, err := s.loans.List(ctx, store.LoanFilter{View: store.LoanViewAll, UserID: userID}, store.Page{Limit: userDetailLimit})
	if err != nil {
		return UserDetail{}, fmt.Errorf("user loans: %w", err)
	}
	transactions, _, err := s.txStore.List(ctx, store.TransactionFilter{UserID: userID}, store.Page{Limit: userDetailLimit})
	if err != nil {
		return UserDetail{}, fmt.Errorf("user transactions: %w", err)
	}
	return UserDetail{User: user, Loans: loans, Transactions: transactions}, nil
}

func (s *AdminService) UpdateKYC(ctx context.Context, adminID, userID string, status models.KYCStatus, reason string) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		n, err := s.users.SetKYCStatus(ctx, tx, userID, status)
		if missing(err) {
			return ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("set kyc status: %w", err)
		}
		if n == 0 {
			return ErrUserNotFound
		}
		return s.audit.Log(ctx, tx, adminID, "kyc_update", "user", userID, map[string]any{"status": status, "reason": reason})
	})
	if err != nil {
		return err
	}
	zap.L().Info("kyc updated", zap.String("user_id", userID), zap.String("status", string(status)), zap.String("admin_id", adminID))
	if s.notifier != nil {
		s.notifier.Publish(userID, websocket.Event{
			Type: websocket.EventKYCUpdated,
			Data: map[string]any{"kycStatus": status, "reason": reason},
			At:   s.now(),
		})
	}
	return nil
}

func (s *AdminService) UpdateLoanStatus(ctx context.Context, adminID, loanID string, status models.LoanStatus, reason string) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		n, err := s.loans.SetStatus(ctx, tx, loanID, status)
		if missing(err) {
			return ErrLoanNotFound
		}
		if err != nil {
			return fmt.Errorf("set loan status: %w", err)
		}
		if n == 0 {
			return ErrLoanNotFound
		}
		return s.audit.Log(ctx, tx, adminID, "loan_status_update", "loan", loanID, map[string]any{"status": status, "reason": reason})
	})
	if err != nil {
		return err
	}
	zap.L().Info("loan status forced", zap.String("loan_id", loanID), zap.String("status", string(status)), zap.String("admin_id", adminID))
	return nil
}

func (s *AdminService) DeactivateUser(ctx context.Context, adminID, userID, reason string) error {
	if adminID == userID {
		return ErrSelfDeactivation
	}
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		n, err := s.users.Deactivate(ctx, tx, userID)
		if missing(err) {
			return ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("deactivate user: %w", err)
		}
		if n == 0 {
			return ErrUserNotFound
		}
		return s.audit.Log(ctx, tx, adminID, "user_deactivate", "user", userID, map[string]any{"reason": reason})
	})
	if err != nil {
		return err
	}
	zap.L().Info("user deactivated", zap.String("user_id", userID), zap.String("admin_id", adminID))
	return nil
}

func (s *AdminService) AuditLog(ctx context.Context, req PageRequest) ([]models.AuditLog, Pagination, error) {
	logs, total, err := s.audit.List(ctx, req.window())
	if err != nil {
		return nil, Pagination{}, fmt.Errorf("list audit log: %w", err)
	}
	return logs, NewPagination(req, total), nil
}

const (
	ExportCSV  = "csv"
	ExportJSON = "json"
)

type ExportQuery struct {
	Type   string
	Format string
	From   *time.Time
	To     *time.Time
}

// ExportPayload is the JSON export body, rendered to PDF by the client.
type ExportPayload struct {
	Records    any       `json:"records"`
	Filename   string    `json:"filename"`
	Type       string    `json:"type"`
	ExportDate time.Time `json:"exportDate"`
}

// ExportFile holds either CSV bytes or a JSON payload, depending on Format.
type ExportFile struct {
	Format   string
	Filename string
	CSV      []byte
	Payload  ExportPayload
}

func (s *AdminService) Export(ctx context.Context, q ExportQuery) (ExportFile, error) {
	if q.Format == "" {
		q.Format = ExportCSV
	}
	if q.Format != ExportCSV && q.Format != ExportJSON {
		return ExportFile{}, ErrInvalidExport
	}
	if q.From != nil && q.To != nil && q.From.After(*q.To) {
		return ExportFile{}, ErrInvalidExport
	}
	var (
		records any
		table   export.Table
	)
	switch q.Type {
	case "users":
		users, err := s.users.ListCreatedBetween(ctx, q.From, q.To)
		if err != nil {
			return ExportFile{}, fmt.Errorf("export users: %w", err)
		}
		records, table = users, usersTable(users)
	case "loans":
		loans, err := s.loans.ListCreatedBetween(ctx, q.From, q.To)
		if err != nil {
			return ExportFile{}, fmt.Errorf("export loans: %w", err)
		}
		records, table = loans, loansTable(loans)
	case "transactions":
		transactions, err := s.txStore.ListCreatedBetween(ctx, q.From, q.To)
		if err != nil {
			return ExportFile{}, fmt.Errorf("export transactions: %w", err)
		}
		records, table = transactions, transactionsTable(transactions)
	default:
		return ExportFile{}, ErrInvalidExport
	}
	now := s.now()
	file := ExportFile{
		Format:   q.Format,
		Filename: fmt.Sprintf("%s-export-%s.%s", q.Type, now.Format(dateLayout), q.Format),
	}
	if q.Format == ExportJSON {
		file.Payload = ExportPayload{Records: records, Filename: file.Filename, Type: q.Type, ExportDate: now}
		return file, nil
	}
	body, err := export.CSV(table)
	if err != nil {
		return ExportFile{}, fmt.Errorf("render csv: %w", err)
	}
	file.CSV = body
	return file, nil
}

func usersTable(users []models.User) export.Table {
	table := export.Table{Header: []string{"id", "email", "name", "phone", "dateOfBirth", "idNumber", "walletAddress", "role", "kycStatus", "isActive", "lastLogin", "createdAt"}}
	for _, u := range users {
		table.Append(u.ID, u.Email, u.Name, u.Phone, u.DateOfBirth.Format(dateLayout), u.IDNumber, deref(u.WalletAddress),
			string(u.Role), string(u.KYCStatus), strconv.FormatBool(u.IsActive), formatTime(u.LastLogin), u.CreatedAt.Format(timestampLayout))
	}
	return table
}

func loansTable(loans []models.Loan) export.Table {
	table := export.Table{Header: []string{"id", "userId", "borrowerName", "borrowerEmail", "lenderId", "lenderName", "lenderEmail",
		"amount", "interestRate", "duration", "collateral", "description", "status", "monthlyPayment", "totalAmount", "totalRepaid",
		"remainingBalance", "nextPaymentDate", "fundedAt", "dueDate", "createdAt"}}
	for _, l := range loans {
		borrowerName, borrowerEmail := summary(l.Borrower)
		lenderName, lenderEmail := summary(l.Lender)
		table.Append(l.ID, l.UserID, borrowerName, borrowerEmail, deref(l.LenderID), lenderName, lenderEmail,
			l.Amount.String(), l.InterestRate.StringFixed(2), strconv.Itoa(l.Duration), l.Collateral, l.Description, string(l.Status),
			l.MonthlyPayment.String(), l.TotalAmount.String(), l.TotalRepaid.String(), l.RemainingBalance.String(),
			formatTime(l.NextPaymentDate), formatTime(l.FundedAt), formatTime(l.DueDate), l.CreatedAt.Format(timestampLayout))
	}
	return table
}

func transactionsTable(transactions []models.Transaction) export.Table {
	table := export.Table{Header: []string{"id", "userId", "userName", "userEmail", "type", "subType", "amount", "description", "status",
		"referenceType", "referenceId", "txHash", "createdAt"}}
	for _, t := range transactions {
		userName, userEmail := summary(t.User)
		table.Append(t.ID, t.UserID, userName, userEmail, string(t.Type), string(t.SubType), t.Amount.String(), t.Description,
			string(t.Status), string(t.ReferenceType), deref(t.ReferenceID), deref(t.TxHash), t.CreatedAt.Format(timestampLayout))
	}
	return table
}

func summary(u *models.UserSummary) (name, email string) {
	if u == nil {
		return "", ""
	}
	return u.Name, u.Email
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(timestampLayout)
}
