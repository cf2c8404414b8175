package store

import (
	"context"
	"time"

	"lendfi/internal/models"
	"lendfi/internal/money"
)

const roscaColumns = `r.id, r.name, r.description, r.contribution_amount, r.cycle_duration, r.max_members,
		r.current_members, r.is_on_chain, r.status, r.current_cycle, r.next_payout_date, r.created_by,
		r.invite_code, r.created_at, r.updated_at`

const roscaSelect = `
	SELECT ` + roscaColumns + `, u.name AS creator_name, u.email AS creator_email
	FROM roscas r
	JOIN users u ON u.id = r.created_by`

type ROSCAView string

const (
	ROSCAViewAvailable ROSCAView = "available"
	ROSCAViewMine      ROSCAView = "my-roscas"
	ROSCAViewJoined    ROSCAView = "joined"
)

func (v ROSCAView) Valid() bool {
	return v == ROSCAViewAvailable || v == ROSCAViewMine || v == ROSCAViewJoined
}

type ROSCAFilter struct {
	View   ROSCAView
	UserID string
}

type ContributionInput struct {
	ID            string
	ROSCAID       string
	UserID        string
	Cycle         int
	Amount        money.Amount
	TransactionID string
}

type ROSCAStore struct {
	db DB
}

type roscaRow struct {
	models.ROSCA
	CreatorName  string `db:"creator_name"`
	CreatorEmail string `db:"creator_email"`
}

func (r roscaRow) toModel() models.ROSCA {
	rosca := r.ROSCA
	rosca.Creator = &models.UserSummary{ID: rosca.CreatedBy, Name: r.CreatorName, Email: r.CreatorEmail}
	return rosca
}

func NewROSCAStore(db DB) *ROSCAStore {
	return &ROSCAStore{db: db}
}

func (s *ROSCAStore) Create(ctx context.Context, tx Execer, rosca models.ROSCA) error {
	query := `
		INSERT INTO roscas (id, name, description, contribution_amount, cycle_duration, max_members, current_members,
		                    is_on_chain, status, current_cycle, next_payout_date, created_by, invite_code, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
	`
	_, err := tx.ExecContext(ctx, query,
		rosca.ID, rosca.Name, rosca.Description, rosca.ContributionAmount, rosca.CycleDuration, rosca.MaxMembers,
		rosca.CurrentMembers, rosca.IsOnChain, rosca.Status, rosca.CurrentCycle, rosca.NextPayoutDate,
		rosca.CreatedBy, rosca.InviteCode, rosca.CreatedAt,
	)
	return err
}

func (s *ROSCAStore) InviteCodeExists(ctx context.Context, q Getter, code string) (bool, error) {
	var exists bool
	err := reader(q, s.db).GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM roscas WHERE invite_code = $1)`, code)
	return exists, err
}

func (s *ROSCAStore) GetByID(ctx context.Context, q Getter, roscaID string) (models.ROSCA, error) {
	var row roscaRow
	if err := reader(q, s.db).GetContext(ctx, &row, roscaSelect+` WHERE r.id = $1`, roscaID); err != nil {
		return models.ROSCA{}, err
	}
	return row.toModel(), nil
}

func (s *ROSCAStore) GetByInviteCode(ctx context.Context, q Getter, code string) (models.ROSCA, error) {
	var row roscaRow
	if err := reader(q, s.db).GetContext(ctx, &row, roscaSelect+` WHERE r.invite_code = $1`, code); err != nil {
		return models.ROSCA{}, err
	}
	return row.toModel(), nil
}

func (s *ROSCAStore) List(ctx context.Context, f ROSCAFilter, page Page) ([]models.ROSCA, int, error) {
	var where filter
	switch f.View {
	case ROSCAViewMine:
		where.add("r.created_by = ?", f.UserID)
	case ROSCAViewJoined:
		where.add("EXISTS (SELECT 1 FROM rosca_members m WHERE m.rosca_id = r.id AND m.user_id = ?)", f.UserID)
	default:
		where.raw("r.status = 'active'")
	}
	var total int
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(1) FROM roscas r`+where.where(), where.args...); err != nil {
		return nil, 0, err
	}
	suffix, args := where.paged(page)
	var rows []roscaRow
	if err := s.db.SelectContext(ctx, &rows, roscaSelect+where.where()+` ORDER BY r.created_at DESC`+suffix, args...); err != nil {
		return nil, 0, err
	}
	roscas := make([]models.ROSCA, 0, len(rows))
	for _, row := range rows {
		roscas = append(roscas, row.toModel())
	}
	return roscas, total, nil
}

// AddMember inserts a roster row. A repeat join surfaces as a unique violation.
func (s *ROSCAStore) AddMember(ctx context.Context, tx Execer, roscaID, userID string, joinedAt time.Time) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO rosca_members (rosca_id, user_id, joined_at)
		VALUES ($1, $2, $3)
	`, roscaID, userID, joinedAt)
	return err
}

// IncrementMembers claims a seat. It reports false when the ROSCA is full or no longer active.
func (s *ROSCAStore) IncrementMembers(ctx context.Context, tx Execer, roscaID string) (bool, error) {
	rows, err := rowsAffected(tx.ExecContext(ctx, `
		UPDATE roscas
		SET current_members = current_members + 1, updated_at = NOW()
		WHERE id = $1 AND status = 'active' AND current_members < max_members
	`, roscaID))
	return rows == 1, err
}

func (s *ROSCAStore) IsMember(ctx context.Context, q Getter, roscaID, userID string) (bool, error) {
	var exists bool
	err := reader(q, s.db).GetContext(ctx, &exists, `
		SELECT EXISTS(SELECT 1 FROM rosca_members WHERE rosca_id = $1 AND user_id = $2)
	`, roscaID, userID)
	return exists, err
}

func (s *ROSCAStore) Members(ctx context.Context, roscaID string, cycle int) ([]models.ROSCAMember, error) {
	members := []models.ROSCAMember{}
	err := s.db.SelectContext(ctx, &members, `
		SELECT m.rosca_id, m.user_id, u.name, u.email, m.joined_at,
		       EXISTS(
		           SELECT 1 FROM rosca_contributions c
		           WHERE c.rosca_id = m.rosca_id AND c.user_id = m.user_id AND c.cycle = $2
		       ) AS contributed_this_cycle
		FROM rosca_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.rosca_id = $1
		ORDER BY m.joined_at ASC
	`, roscaID, cycle)
	return members, err
}

// RecordContribution inserts the per-cycle contribution. A second contribution
// in the same cycle surfaces as a unique violation.
func (s *ROSCAStore) RecordContribution(ctx context.Context, tx Execer, input ContributionInput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO rosca_contributions (id, rosca_id, user_id, cycle, amount, transaction_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, input.ID, input.ROSCAID, input.UserID, input.Cycle, input.Amount, input.TransactionID)
	return err
}
