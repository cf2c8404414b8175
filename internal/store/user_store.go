package store

import (
	"context"
	"strings"
	"time"

	"lendfi/internal/models"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

const userColumns = `id, email, password_hash, name, phone, date_of_birth, id_number, wallet_address,
		role, kyc_status, is_active, last_login, created_at, updated_at`

type UserStore struct {
	db DB
}

func NewUserStore(db DB) *UserStore {
	return &UserStore{db: db}
}

type UserFilter struct {
	Search    string
	KYCStatus models.KYCStatus
	Role      models.Role
}

func (s *UserStore) Create(ctx context.Context, tx Execer, user models.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, name, phone, date_of_birth, id_number, wallet_address, role, kyc_status, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
	`
	_, err := tx.ExecContext(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.Name, user.Phone, user.DateOfBirth, user.IDNumber,
		user.WalletAddress, user.Role, user.KYCStatus, user.IsActive, user.CreatedAt,
	)
	return err
}

func (s *UserStore) GetByID(ctx context.Context, userID string) (models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	return user, err
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return user, err
}

func (s *UserStore) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET last_login = $2 WHERE id = $1`, userID, at)
	return err
}

// UpdateProfile changes only the non-nil fields and returns the stored row.
// UpdateProfile leaves nil fields unchanged. An empty wallet address clears it.
func (s *UserStore) UpdateProfile(ctx context.Context, userID string, name, phone, walletAddress *string) (models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, `
		UPDATE users
		SET name = COALESCE($2, name),
		    phone = COALESCE($3, phone),
		    wallet_address = CASE WHEN $4::text IS NULL THEN wallet_address ELSE NULLIF($4::text, '') END,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns, userID, name, phone, walletAddress)
	return user, err
}

func (s *UserStore) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, userID, passwordHash)
	return err
}

func (s *UserStore) SetKYCStatus(ctx context.Context, tx Execer, userID string, status models.KYCStatus) (int64, error) {
	return rowsAffected(tx.ExecContext(ctx, `
		UPDATE users SET kyc_status = $2, updated_at = NOW() WHERE id = $1
	`, userID, status))
}

func (s *UserStore) Deactivate(ctx context.Context, tx Execer, userID string) (int64, error) {
	return rowsAffected(tx.ExecContext(ctx, `
		UPDATE users SET is_active = FALSE, updated_at = NOW() WHERE id = $1
	`, userID))
}

func (s *UserStore) List(ctx context.Context, f UserFilter, page Page) ([]models.User, int, error) {
	var where filter
	if f.Search != "" {
		where.add(`(name ILIKE ? ESCAPE '\' OR email ILIKE ? ESCAPE '\')`, "%"+likeEscaper.Replace(f.Search)+"%")
	}
	if f.KYCStatus != "" {
		where.add("kyc_status = ?", f.KYCStatus)
	}
	if f.Role != "" {
		where.add("role = ?", f.Role)
	}
	var total int
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(1) FROM users`+where.where(), where.args...); err != nil {
		return nil, 0, err
	}
	suffix, args := where.paged(page)
	users := []models.User{}
	err := s.db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users`+where.where()+` ORDER BY created_at DESC`+suffix, args...)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (s *UserStore) ListCreatedBetween(ctx context.Context, from, to *time.Time) ([]models.User, error) {
	where := createdBetween(from, to, "created_at")
	users := []models.User{}
	err := s.db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users`+where.where()+` ORDER BY created_at DESC`, where.args...)
	return users, err
}

func createdBetween(from, to *time.Time, column string) filter {
	var where filter
	if from != nil {
		where.add(column+" >= ?", *from)
	}
	if to != nil {
		where.add(column+" <= ?", *to)
	}
	return where
}
