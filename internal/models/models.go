package models

import (
	"time"

	"lendfi/internal/money"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

type KYCStatus string

const (
	KYCPending  KYCStatus = "pending"
	KYCVerified KYCStatus = "verified"
	KYCRejected KYCStatus = "rejected"
)

func (s KYCStatus) Valid() bool {
	switch s {
	case KYCPending, KYCVerified, KYCRejected:
		return true
	}
	return false
}

// LoanStatus values. "funded" is accepted for admin overrides but the fund
// operation moves a loan straight from pending to active.
type LoanStatus string

const (
	LoanPending   LoanStatus = "pending"
	LoanFunded    LoanStatus = "funded"
	LoanActive    LoanStatus = "active"
	LoanRepaid    LoanStatus = "repaid"
	LoanDefaulted LoanStatus = "defaulted"
)

func (s LoanStatus) Valid() bool {
	switch s {
	case LoanPending, LoanFunded, LoanActive, LoanRepaid, LoanDefaulted:
		return true
	}
	return false
}

type ROSCAStatus string

const (
	ROSCAActive    ROSCAStatus = "active"
	ROSCACompleted ROSCAStatus = "completed"
	ROSCACancelled ROSCAStatus = "cancelled"
)

func (s ROSCAStatus) Valid() bool {
	switch s {
	case ROSCAActive, ROSCACompleted, ROSCACancelled:
		return true
	}
	return false
}

type TransactionType string

const (
	TxTypeLoan       TransactionType = "loan"
	TxTypeROSCA      TransactionType = "rosca"
	TxTypeDeposit    TransactionType = "deposit"
	TxTypeWithdrawal TransactionType = "withdrawal"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TxTypeLoan, TxTypeROSCA, TxTypeDeposit, TxTypeWithdrawal:
		return true
	}
	return false
}

type TransactionSubType string

const (
	SubTypeRequest      TransactionSubType = "request"
	SubTypeFunded       TransactionSubType = "funded"
	SubTypeRepayment    TransactionSubType = "repayment"
	SubTypeContribution TransactionSubType = "contribution"
	SubTypePayout       TransactionSubType = "payout"
	SubTypeDeposit      TransactionSubType = "deposit"
	SubTypeWithdrawal   TransactionSubType = "withdrawal"
)

func (t TransactionSubType) Valid() bool {
	switch t {
	case SubTypeRequest, SubTypeFunded, SubTypeRepayment, SubTypeContribution, SubTypePayout, SubTypeDeposit, SubTypeWithdrawal:
		return true
	}
	return false
}

type TransactionStatus string

const (
	TxPending   TransactionStatus = "pending"
	TxCompleted TransactionStatus = "completed"
	TxFailed    TransactionStatus = "failed"
	TxCancelled TransactionStatus = "cancelled"
)

func (s TransactionStatus) Valid() bool {
	switch s {
	case TxPending, TxCompleted, TxFailed, TxCancelled:
		return true
	}
	return false
}

// ReferenceType tags what a transaction's reference_id points at. The
// reference is advisory: it spans two tables so no foreign key backs it.
type ReferenceType string

const (
	RefNone  ReferenceType = ""
	RefLoan  ReferenceType = "loan"
	RefROSCA ReferenceType = "rosca"
)

func (r ReferenceType) Valid() bool {
	return r == RefNone || r == RefLoan || r == RefROSCA
}

type User struct {
	ID            string     `db:"id" json:"id"`
	Email         string     `db:"email" json:"email"`
	PasswordHash  string     `db:"password_hash" json:"-"`
	Name          string     `db:"name" json:"name"`
	Phone         string     `db:"phone" json:"phone"`
	DateOfBirth   time.Time  `db:"date_of_birth" json:"dateOfBirth"`
	IDNumber      string     `db:"id_number" json:"idNumber"`
	WalletAddress *string    `db:"wallet_address" json:"walletAddress,omitempty"`
	Role          Role       `db:"role" json:"role"`
	KYCStatus     KYCStatus  `db:"kyc_status" json:"kycStatus"`
	IsActive      bool       `db:"is_active" json:"isActive"`
	LastLogin     *time.Time `db:"last_login" json:"lastLogin,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updatedAt"`
}

// UserSummary is the slice of a user embedded in loan and ROSCA listings.
type UserSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	KYCStatus KYCStatus `json:"kycStatus,omitempty"`
}

type Loan struct {
	ID               string          `db:"id" json:"id"`
	UserID           string          `db:"user_id" json:"userId"`
	LenderID         *string         `db:"lender_id" json:"lenderId"`
	Amount           money.Amount    `db:"amount" json:"amount"`
	InterestRate     decimal.Decimal `db:"interest_rate" json:"interestRate"`
	Duration         int             `db:"duration" json:"duration"`
	Collateral       string          `db:"collateral" json:"collateral"`
	Description      string          `db:"description" json:"description"`
	Status           LoanStatus      `db:"status" json:"status"`
	MonthlyPayment   money.Amount    `db:"monthly_payment" json:"monthlyPayment"`
	TotalAmount      money.Amount    `db:"total_amount" json:"totalAmount"`
	TotalRepaid      money.Amount    `db:"total_repaid" json:"totalRepaid"`
	RemainingBalance money.Amount    `db:"remaining_balance" json:"remainingBalance"`
	NextPaymentDate  *time.Time      `db:"next_payment_date" json:"nextPaymentDate"`
	FundedAt         *time.Time      `db:"funded_at" json:"fundedAt"`
	DueDate          *time.Time      `db:"due_date" json:"dueDate"`
	CreatedAt        time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updatedAt"`

	Borrower *UserSummary `db:"-" json:"borrower,omitempty"`
	Lender   *UserSummary `db:"-" json:"lender,omitempty"`
}

type ROSCA struct {
	ID                 string       `db:"id" json:"id"`
	Name               string       `db:"name" json:"name"`
	Description        string       `db:"description" json:"description"`
	ContributionAmount money.Amount `db:"contribution_amount" json:"contributionAmount"`
	CycleDuration      int          `db:"cycle_duration" json:"cycleDuration"`
	MaxMembers         int          `db:"max_members" json:"maxMembers"`
	CurrentMembers     int          `db:"current_members" json:"currentMembers"`
	IsOnChain          bool         `db:"is_on_chain" json:"isOnChain"`
	Status             ROSCAStatus  `db:"status" json:"status"`
	CurrentCycle       int          `db:"current_cycle" json:"currentCycle"`
	NextPayoutDate     time.Time    `db:"next_payout_date" json:"nextPayoutDate"`
	CreatedBy          string       `db:"created_by" json:"createdBy"`
	InviteCode         string       `db:"invite_code" json:"inviteCode"`
	CreatedAt          time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time    `db:"updated_at" json:"updatedAt"`

	Creator *UserSummary `db:"-" json:"creator,omitempty"`
}

type ROSCAMember struct {
	ROSCAID              string    `db:"rosca_id" json:"roscaId"`
	UserID               string    `db:"user_id" json:"userId"`
	Name                 string    `db:"name" json:"name"`
	Email                string    `db:"email" json:"email"`
	JoinedAt             time.Time `db:"joined_at" json:"joinedAt"`
	ContributedThisCycle bool      `db:"contributed_this_cycle" json:"contributedThisCycle"`
}

type Transaction struct {
	ID            string             `db:"id" json:"id"`
	UserID        string             `db:"user_id" json:"userId"`
	Type          TransactionType    `db:"type" json:"type"`
	SubType       TransactionSubType `db:"sub_type" json:"subType"`
	Amount        money.Amount       `db:"amount" json:"amount"`
	Description   string             `db:"description" json:"description"`
	Status        TransactionStatus  `db:"status" json:"status"`
	ReferenceType ReferenceType      `db:"reference_type" json:"referenceType,omitempty"`
	ReferenceID   *string            `db:"reference_id" json:"referenceId"`
	TxHash        *string            `db:"tx_hash" json:"txHash"`
	Metadata      Metadata           `db:"metadata" json:"metadata"`
	CreatedAt     time.Time          `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time          `db:"updated_at" json:"updatedAt"`

	User *UserSummary `db:"-" json:"user,omitempty"`
}

type AuditLog struct {
	ID          string    `db:"id" json:"id"`
	ActorUserID *string   `db:"actor_user_id" json:"actorUserId"`
	Action      string    `db:"action" json:"action"`
	EntityType  string    `db:"entity_type" json:"entityType"`
	EntityID    string    `db:"entity_id" json:"entityId"`
	Data        string    `db:"data" json:"data"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}
