package store

import (
	"context"

	"lendfi/internal/money"
)

// PlatformTotals are the counters shown on the admin dashboard.
type PlatformTotals struct {
	TotalUsers              int          `db:"total_users" json:"totalUsers"`
	VerifiedUsers           int          `db:"verified_users" json:"verifiedUsers"`
	TotalLoans              int          `db:"total_loans" json:"totalLoans"`
	ActiveLoans             int          `db:"active_loans" json:"activeLoans"`
	TotalROSCAs             int          `db:"total_roscas" json:"totalROSCAs"`
	ActiveROSCAs            int          `db:"active_roscas" json:"activeROSCAs"`
	TotalTransactions       int          `db:"total_transactions" json:"totalTransactions"`
	TotalLoanVolume         money.Amount `db:"total_loan_volume" json:"totalLoanVolume"`
	TotalROSCAContributions money.Amount `db:"total_rosca_contributions" json:"totalROSCAContributions"`
}

type AdminStore struct {
	db DB
}

func NewAdminStore(db DB) *AdminStore {
	return &AdminStore{db: db}
}

func (s *AdminStore) Totals(ctx context.Context) (PlatformTotals, error) {
	var totals PlatformTotals
	err := s.db.GetContext(ctx, &totals, `
		SELECT
		    (SELECT COUNT(1) FROM users) AS total_users,
		    (SELECT COUNT(1) FROM users WHERE kyc_status = 'verified') AS verified_users,
		    (SELECT COUNT(1) FROM loans) AS total_loans,
		    (SELECT COUNT(1) FROM loans WHERE status = 'active') AS active_loans,
		    (SELECT COUNT(1) FROM roscas) AS total_roscas,
		    (SELECT COUNT(1) FROM roscas WHERE status = 'active') AS active_roscas,
		    (SELECT COUNT(1) FROM transactions) AS total_transactions,
		    (SELECT COALESCE(SUM(amount), 0) FROM loans WHERE status IN ('active', 'repaid')) AS total_loan_volume,
		    (SELECT COALESCE(SUM(contribution_amount), 0) FROM roscas) AS total_rosca_contributions
	`)
	return totals, err
}
