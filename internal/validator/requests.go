package validator

import (
	"lendfi/internal/money"

	"github.com/shopspring/decimal"
)

type RegisterRequest struct {
	Email         string  `json:"email" validate:"required,email"`
	Password      string  `json:"password" validate:"required,password"`
	Name          string  `json:"name" validate:"required,min=2,max=100"`
	Phone         string  `json:"phone" validate:"required,min=10,max=15"`
	DateOfBirth   string  `json:"dateOfBirth" validate:"required,datetime=2006-01-02,past"`
	IDNumber      string  `json:"idNumber" validate:"required,max=50"`
	WalletAddress *string `json:"walletAddress" validate:"omitempty,max=100"`
	Role          string  `json:"role" validate:"omitempty,oneof=user admin"`
	AdminSecret   string  `json:"adminSecret" validate:"required_if=Role admin"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ProfileUpdateRequest struct {
	Name          *string `json:"name" validate:"omitempty,min=2,max=100"`
	Phone         *string `json:"phone" validate:"omitempty,min=10,max=15"`
	WalletAddress *string `json:"walletAddress" validate:"omitempty,max=100"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,password"`
}

type LoanRequest struct {
	Amount       money.Amount     `json:"amount" validate:"amount_min=0.001,amount_max=1000000000"`
	InterestRate *decimal.Decimal `json:"interestRate" validate:"required,rate"`
	Duration     int              `json:"duration" validate:"required,min=1,max=60"`
	Collateral   string           `json:"collateral" validate:"required,max=500"`
	Description  string           `json:"description" validate:"required,max=1000"`
}

type PaymentRequest struct {
	Amount money.Amount `json:"amount" validate:"amount_min=0.00000001"`
}

type ROSCACreateRequest struct {
	Name               string       `json:"name" validate:"required,min=3,max=100"`
	Description        string       `json:"description" validate:"max=500"`
	ContributionAmount money.Amount `json:"contributionAmount" validate:"amount_min=0.001,amount_max=1000000000"`
	CycleDuration      int          `json:"cycleDuration" validate:"required,min=1,max=365"`
	MaxMembers         int          `json:"maxMembers" validate:"required,min=2,max=50"`
	IsOnChain          bool         `json:"isOnChain"`
}

type ContributionRequest struct {
	Amount money.Amount `json:"amount" validate:"amount_min=0.00000001"`
}

type TransactionCreateRequest struct {
	Type          string         `json:"type" validate:"required,oneof=loan rosca deposit withdrawal"`
	SubType       string         `json:"subType" validate:"required,oneof=request funded repayment contribution payout deposit withdrawal"`
	Amount        money.Amount   `json:"amount" validate:"amount_min=0.00000001,amount_max=1000000000"`
	Description   string         `json:"description" validate:"max=500"`
	ReferenceType string         `json:"referenceType" validate:"required_with=ReferenceID,omitempty,oneof=loan rosca"`
	ReferenceID   string         `json:"referenceId" validate:"required_with=ReferenceType,omitempty,uuid"`
	TxHash        *string        `json:"txHash" validate:"omitempty,max=200"`
	Metadata      map[string]any `json:"metadata"`
}

type TransactionStatusRequest struct {
	Status string  `json:"status" validate:"required,oneof=pending completed failed cancelled"`
	TxHash *string `json:"txHash" validate:"omitempty,max=200"`
}

type KYCUpdateRequest struct {
	Status string `json:"status" validate:"required,oneof=pending verified rejected"`
	Reason string `json:"reason" validate:"max=500"`
}

type LoanStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending funded active repaid defaulted"`
	Reason string `json:"reason" validate:"max=500"`
}

type DeactivateRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}
