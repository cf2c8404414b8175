package handlers

import (
	"context"

	"lendfi/internal/models"
	"lendfi/internal/money"
	"lendfi/internal/services"
	"lendfi/internal/validator"
)

type AuthService interface {
	Register(ctx context.Context, input services.RegisterInput) (services.Session, error)
	Login(ctx context.Context, email, password string) (services.Session, error)
	Profile(ctx context.Context, userID string) (models.User, error)
	UpdateProfile(ctx context.Context, userID string, req validator.ProfileUpdateRequest) (models.User, error)
	ChangePassword(ctx context.Context, userID, current, next string) error
}

type LoanService interface {
	Request(ctx context.Context, borrowerID string, input services.LoanInput) (models.Loan, error)
	List(ctx context.Context, userID string, q services.LoanQuery) ([]models.Loan, services.Pagination, error)
	Get(ctx context.Context, loanID, viewerID string) (models.Loan, error)
	Fund(ctx context.Context, loanID, funderID string) (models.Loan, error)
	Pay(ctx context.Context, loanID, borrowerID string, amount money.Amount) (models.Loan, error)
}

type ROSCAService interface {
	Create(ctx context.Context, founderID string, input services.ROSCAInput) (services.CreatedROSCA, error)
	List(ctx context.Context, userID string, q services.ROSCAQuery) ([]models.ROSCA, services.Pagination, error)
	Get(ctx context.Context, roscaID string) (models.ROSCA, error)
	Members(ctx context.Context, roscaID string) ([]models.ROSCAMember, error)
	Join(ctx context.Context, roscaID, userID string) (models.ROSCA, error)
	JoinByInvite(ctx context.Context, code, userID string) (models.ROSCA, error)
	Contribute(ctx context.Context, roscaID, userID string, amount money.Amount) (models.Transaction, error)
}

type TransactionService interface {
	List(ctx context.Context, userID string, q services.TransactionQuery) ([]models.Transaction, services.Pagination, error)
	Get(ctx context.Context, transactionID, userID string) (models.Transaction, error)
	Create(ctx context.Context, userID string, input services.TransactionInput) (models.Transaction, error)
	UpdateStatus(ctx context.Context, transactionID, userID string, status models.TransactionStatus, txHash *string) (models.Transaction, error)
	Summary(ctx context.Context, userID string) (services.Summary, error)
}

type AdminService interface {
	Dashboard(ctx context.Context) (services.Dashboard, error)
	ListUsers(ctx context.Context, q services.UserQuery) ([]models.User, services.Pagination, error)
	GetUser(ctx context.Context, userID string) (services.UserDetail, error)
	UpdateKYC(ctx context.Context, adminID, userID string, status models.KYCStatus, reason string) error
	UpdateLoanStatus(ctx context.Context, adminID, loanID string, status models.LoanStatus, reason string) error
	DeactivateUser(ctx context.Context, adminID, userID, reason string) error
	AuditLog(ctx context.Context, req services.PageRequest) ([]models.AuditLog, services.Pagination, error)
	Export(ctx context.Context, q services.ExportQuery) (services.ExportFile, error)
}
