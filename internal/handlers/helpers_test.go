package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"lendfi/internal/auth"
	"lendfi/internal/config"
	"lendfi/internal/models"
	"lendfi/internal/money"
	"lendfi/internal/services"
	"lendfi/internal/validator"
	"lendfi/internal/websocket"

	"github.com/redis/go-redis/v9"
)

const testSecret = "test-secret"

type stubUserLookup struct {
	users map[string]models.User
}

func (s stubUserLookup) GetByID(_ context.Context, userID string) (models.User, error) {
	user, ok := s.users[userID]
	if !ok {
		return models.User{}, sql.ErrNoRows
	}
	return user, nil
}

var testUsers = stubUserLookup{users: map[string]models.User{
	"borrower":   {ID: "borrower", Role: models.RoleUser, KYCStatus: models.KYCVerified, IsActive: true},
	"lender":     {ID: "lender", Role: models.RoleUser, KYCStatus: models.KYCVerified, IsActive: true},
	"unverified": {ID: "unverified", Role: models.RoleUser, KYCStatus: models.KYCPending, IsActive: true},
	"admin":      {ID: "admin", Role: models.RoleAdmin, KYCStatus: models.KYCVerified, IsActive: true},
}}

type stubAuthService struct {
	registerFn       func(ctx context.Context, input services.RegisterInput) (services.Session, error)
	loginFn          func(ctx context.Context, email, password string) (services.Session, error)
	profileFn        func(ctx context.Context, userID string) (models.User, error)
	updateProfileFn  func(ctx context.Context, userID string, req validator.ProfileUpdateRequest) (models.User, error)
	changePasswordFn func(ctx context.Context, userID, current, next string) error
}

func (s stubAuthService) Register(ctx context.Context, input services.RegisterInput) (services.Session, error) {
	if s.registerFn == nil {
		return services.Session{}, nil
	}
	return s.registerFn(ctx, input)
}

func (s stubAuthService) Login(ctx context.Context, email, password string) (services.Session, error) {
	if s.loginFn == nil {
		return services.Session{}, nil
	}
	return s.loginFn(ctx, email, password)
}

func (s stubAuthService) Profile(ctx context.Context, userID string) (models.User, error) {
	if s.profileFn == nil {
		return models.User{ID: userID}, nil
	}
	return s.profileFn(ctx, userID)
}

func (s stubAuthService) UpdateProfile(ctx context.Context, userID string, req validator.ProfileUpdateRequest) (models.User, error) {
	if s.updateProfileFn == nil {
		return models.User{ID: userID}, nil
	}
	return s.updateProfileFn(ctx, userID, req)
}

func (s stubAuthService) ChangePassword(ctx context.Context, userID, current, next string) error {
	if s.changePasswordFn == nil {
		return nil
	}
	return s.changePasswordFn(ctx, userID, current, next)
}

type stubLoanService struct {
	requestFn func(ctx context.Context, borrowerID string, input services.LoanInput) (models.Loan, error)
	listFn    func(ctx context.Context, userID string, q services.LoanQuery) ([]models.Loan, services.Pagination, error)
	getFn     func(ctx context.Context, loanID, viewerID string) (models.Loan, error)
	fundFn    func(ctx context.Context, loanID, funderID string) (models.Loan, error)
	payFn     func(ctx context.Context, loanID, borrowerID string, amount money.Amount) (models.Loan, error)
}

func (s stubLoanService) Request(ctx context.Context, borrowerID string, input services.LoanInput) (models.Loan, error) {
	if s.requestFn == nil {
		return models.Loan{}, nil
	}
	return s.requestFn(ctx, borrowerID, input)
}

func (s stubLoanService) List(ctx context.Context, userID string, q services.LoanQuery) ([]models.Loan, services.Pagination, error) {
	if s.listFn == nil {
		return []models.Loan{}, services.Pagination{}, nil
	}
	return s.listFn(ctx, userID, q)
}

func (s stubLoanService) Get(ctx context.Context, loanID, viewerID string) (models.Loan, error) {
	if s.getFn == nil {
		return models.Loan{ID: loanID}, nil
	}
	return s.getFn(ctx, loanID, viewerID)
}

func (s stubLoanService) Fund(ctx context.Context, loanID, funderID string) (models.Loan, error) {
	if s.fundFn == nil {
		return models.Loan{ID: loanID}, nil
	}
	return s.fundFn(ctx, loanID, funderID)
}

func (s stubLoanService) Pay(ctx context.Context, loanID, borrowerID string, amount money.Amount) (models.Loan, error) {
	if s.payFn == nil {
		return models.Loan{ID: loanID}, nil
	}
	return s.payFn(ctx, loanID, borrowerID, amount)
}

type stubROSCAService struct {
	createFn       func(ctx context.Context, founderID string, input services.ROSCAInput) (services.CreatedROSCA, error)
	listFn         func(ctx context.Context, userID string, q services.ROSCAQuery) ([]models.ROSCA, services.Pagination, error)
	getFn          func(ctx context.Context, roscaID string) (models.ROSCA, error)
	membersFn      func(ctx context.Context, roscaID string) ([]models.ROSCAMember, error)
	joinFn         func(ctx context.Context, roscaID, userID string) (models.ROSCA, error)
	joinByInviteFn func(ctx context.Context, code, userID string) (models.ROSCA, error)
	contributeFn   func(ctx context.Context, roscaID, userID string, amount money.Amount) (models.Transaction, error)
}

func (s stubROSCAService) Create(ctx context.Context, founderID string, input services.ROSCAInput) (services.CreatedROSCA, error) {
	if s.createFn == nil {
		return services.CreatedROSCA{}, nil
	}
	return s.createFn(ctx, founderID, input)
}

func (s stubROSCAService) List(ctx context.Context, userID string, q services.ROSCAQuery) ([]models.ROSCA, services.Pagination, error) {
	if s.listFn == nil {
		return []models.ROSCA{}, services.Pagination{}, nil
	}
	return s.listFn(ctx, userID, q)
}

func (s stubROSCAService) Get(ctx context.Context, roscaID string) (models.ROSCA, error) {
	if s.getFn == nil {
		return models.ROSCA{ID: roscaID}, nil
	}
	return s.getFn(ctx, roscaID)
}

func (s stubROSCAService) Members(ctx context.Context, roscaID string) ([]models.ROSCAMember, error) {
	if s.membersFn == nil {
		return []models.ROSCAMember{}, nil
	}
	return s.membersFn(ctx, roscaID)
}

func (s stubROSCAService) Join(ctx context.Context, roscaID, userID string) (models.ROSCA, error) {
	if s.joinFn == nil {
		return models.ROSCA{ID: roscaID}, nil
	}
	return s.joinFn(ctx, roscaID, userID)
}

func (s stubROSCAService) JoinByInvite(ctx context.Context, code, userID string) (models.ROSCA, error) {
	if s.joinByInviteFn == nil {
		return models.ROSCA{}, nil
	}
	return s.joinByInviteFn(ctx, code, userID)
}

func (s stubROSCAService) Contribute(ctx context.Context, roscaID, userID string, amount money.Amount) (models.Transaction, error) {
	if s.contributeFn == nil {
		return models.Transaction{}, nil
	}
	return s.contributeFn(ctx, roscaID, userID, amount)
}

type stubTransactionService struct {
	listFn         func(ctx context.Context, userID string, q services.TransactionQuery) ([]models.Transaction, services.Pagination, error)
	getFn          func(ctx context.Context, transactionID, userID string) (models.Transaction, error)
	createFn       func(ctx context.Context, userID string, input services.TransactionInput) (models.Transaction, error)
	updateStatusFn func(ctx context.Context, transactionID, userID string, status models.TransactionStatus, txHash *string) (models.Transaction, error)
	summaryFn      func(ctx context.Context, userID string) (services.Summary, error)
}

func (s stubTransactionService) List(ctx context.Context, userID string, q services.TransactionQuery) ([]models.Transaction, services.Pagination, error) {
	if s.listFn == nil {
		return []models.Transaction{}, services.Pagination{}, nil
	}
	return s.listFn(ctx, userID, q)
}

func (s stubTransactionService) Get(ctx context.Context, transactionID, userID string) (models.Transaction, error) {
	if s.getFn == nil {
		return models.Transaction{ID: transactionID}, nil
	}
	return s.getFn(ctx, transactionID, userID)
}

func (s stubTransactionService) Create(ctx context.Context, userID string, input services.TransactionInput) (models.Transaction, error) {
	if s.createFn == nil {
		return models.Transaction{}, nil
	}
	return s.createFn(ctx, userID, input)
}

func (s stubTransactionService) UpdateStatus(ctx context.Context, transactionID, userID string, status models.TransactionStatus, txHash *string) (models.Transaction, error) {
	if s.updateStatusFn == nil {
		return models.Transaction{ID: transactionID, Status: status}, nil
	}
	return s.updateStatusFn(ctx, transactionID, userID, status, txHash)
}

func (s stubTransactionService) Summary(ctx context.Context, userID string) (services.Summary, error) {
	if s.summaryFn == nil {
		return services.Summary{}, nil
	}
	return s.summaryFn(ctx, userID)
}

type stubAdminService struct {
	dashboardFn        func(ctx context.Context) (services.Dashboard, error)
	listUsersFn        func(ctx context.Context, q services.UserQuery) ([]models.User, services.Pagination, error)
	getUserFn          func(ctx context.Context, userID string) (services.UserDetail, error)
	updateKYCFn        func(ctx context.Context, adminID, userID string, status models.KYCStatus, reason string) error
	updateLoanStatusFn func(ctx context.Context, adminID, loanID string, status models.LoanStatus, reason string) error
	deactivateFn       func(ctx context.Context, adminID, userID, reason string) error
	auditLogFn         func(ctx context.Context, req services.PageRequest) ([]models.AuditLog, services.Pagination, error)
	exportFn           func(ctx context.Context, q services.ExportQuery) (services.ExportFile, error)
}

func (s stubAdminService) Dashboard(ctx context.Context) (services.Dashboard, error) {
	if s.dashboardFn == nil {
		return services.Dashboard{}, nil
	}
	return s.dashboardFn(ctx)
}

func (s stubAdminService) ListUsers(ctx context.Context, q services.UserQuery) ([]models.User, services.Pagination, error) {
	if s.listUsersFn == nil {
		return []models.User{}, services.Pagination{}, nil
	}
	return s.listUsersFn(ctx, q)
}

func (s stubAdminService) GetUser(ctx context.Context, userID string) (services.UserDetail, error) {
	if s.getUserFn == nil {
		return services.UserDetail{User: models.User{ID: userID}}, nil
	}
	return s.getUserFn(ctx, userID)
}

func (s stubAdminService) UpdateKYC(ctx context.Context, adminID, userID string, status models.KYCStatus, reason string) error {
	if s.updateKYCFn == nil {
		return nil
	}
	return s.updateKYCFn(ctx, adminID, userID, status, reason)
}

func (s stubAdminService) UpdateLoanStatus(ctx context.Context, adminID, loanID string, status models.LoanStatus, reason string) error {
	if s.updateLoanStatusFn == nil {
		return nil
	}
	return s.updateLoanStatusFn(ctx, adminID, loanID, status, reason)
}

func (s stubAdminService) DeactivateUser(ctx context.Context, adminID, userID, reason string) error {
	if s.deactivateFn == nil {
		return nil
	}
	return s.deactivateFn(ctx, adminID, userID, reason)
}

func (s stubAdminService) AuditLog(ctx context.Context, req services.PageRequest) ([]models.AuditLog, services.Pagination, error) {
	if s.auditLogFn == nil {
		return []models.AuditLog{}, services.Pagination{}, nil
	}
	return s.auditLogFn(ctx, req)
}

func (s stubAdminService) Export(ctx context.Context, q services.ExportQuery) (services.ExportFile, error) {
	if s.exportFn == nil {
		return services.ExportFile{}, nil
	}
	return s.exportFn(ctx, q)
}

// testDeps holds the services behind a test router. Zero fields get
// pass-through stubs.
type testDeps struct {
	auth         AuthService
	loans        LoanService
	roscas       ROSCAService
	transactions TransactionService
	admin        AdminService
	rdb          *redis.Client
}

func newTestHandler(t *testing.T, deps testDeps) http.Handler {
	t.Helper()
	if deps.auth == nil {
		deps.auth = stubAuthService{}
	}
	if deps.loans == nil {
		deps.loans = stubLoanService{}
	}
	if deps.roscas == nil {
		deps.roscas = stubROSCAService{}
	}
	if deps.transactions == nil {
		deps.transactions = stubTransactionService{}
	}
	if deps.admin == nil {
		deps.admin = stubAdminService{}
	}
	cfg := config.Config{
		JWTSecret:      testSecret,
		AllowedOrigins: "*",
		IdempotencyTTL: time.Hour,
	}
	h := New(cfg, nil, testUsers, deps.auth, deps.loans, deps.roscas, deps.transactions, deps.admin, deps.rdb, websocket.NewHub())
	return h.Routes()
}

func mustToken(t *testing.T, userID string) string {
	t.Helper()
	token, err := auth.GenerateToken(testSecret, userID, string(testUsers.users[userID].Role), time.Hour)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	return token
}

// serve sends a request as userID. An empty userID sends no token.
func serve(t *testing.T, handler http.Handler, method, path, userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+mustToken(t, userID))
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

type testEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  []string        `json:"errors"`
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) testEnvelope {
	t.Helper()
	var env testEnvelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
	return env
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, status int) testEnvelope {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("expected status %d, got %d: %s", status, rr.Code, rr.Body.String())
	}
	return decodeEnvelope(t, rr)
}
