package store

import (
	"context"
	"time"

	"lendfi/internal/models"
	"lendfi/internal/money"
)

const transactionColumns = `id, user_id, type, sub_type, amount, description, status, reference_type, reference_id,
		tx_hash, metadata, created_at, updated_at`

const transactionExportSelect = `
	SELECT t.id, t.user_id, t.type, t.sub_type, t.amount, t.description, t.status, t.reference_type, t.reference_id,
		t.tx_hash, t.metadata, t.created_at, t.updated_at, u.name AS user_name, u.email AS user_email
	FROM transactions t
	JOIN users u ON u.id = t.user_id`

type TransactionFilter struct {
	UserID string
	Type   models.TransactionType
	Status models.TransactionStatus
	From   *time.Time
	To     *time.Time
}

// SubTypeTotal is the sum of a user's completed transactions of one sub type.
type SubTypeTotal struct {
	SubType models.TransactionSubType `db:"sub_type"`
	Total   money.Amount              `db:"total"`
}

type transactionRow struct {
	models.Transaction
	UserName  string `db:"user_name"`
	UserEmail string `db:"user_email"`
}

type TransactionStore struct {
	db DB
}

func NewTransactionStore(db DB) *TransactionStore {
	return &TransactionStore{db: db}
}

func (s *TransactionStore) Create(ctx context.Context, tx Execer, t models.Transaction) error {
	query := `
		INSERT INTO transactions (id, user_id, type, sub_type, amount, description, status, reference_type, reference_id,
		                          tx_hash, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
	`
	_, err := writer(tx, s.db).ExecContext(ctx, query,
		t.ID, t.UserID, t.Type, t.SubType, t.Amount, t.Description, t.Status, t.ReferenceType, t.ReferenceID,
		t.TxHash, t.Metadata, t.CreatedAt,
	)
	return err
}

func (s *TransactionStore) GetForUser(ctx context.Context, transactionID, userID string) (models.Transaction, error) {
	var t models.Transaction
	err := s.db.GetContext(ctx, &t, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE id = $1 AND user_id = $2
	`, transactionID, userID)
	return t, err
}

// UpdateStatus sets status and, when given, the on-chain hash of a transaction
// owned by userID, returning the updated row.
func (s *TransactionStore) UpdateStatus(ctx context.Context, transactionID, userID string, status models.TransactionStatus, txHash *string) (models.Transaction, error) {
	var t models.Transaction
	err := s.db.GetContext(ctx, &t, `
		UPDATE transactions
		SET status = $3, tx_hash = COALESCE($4, tx_hash), updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING `+transactionColumns, transactionID, userID, status, txHash)
	return t, err
}

func (s *TransactionStore) List(ctx context.Context, f TransactionFilter, page Page) ([]models.Transaction, int, error) {
	where := createdBetween(f.From, f.To, "created_at")
	if f.UserID != "" {
		where.add("user_id = ?", f.UserID)
	}
	if f.Type != "" {
		where.add("type = ?", f.Type)
	}
	if f.Status != "" {
		where.add("status = ?", f.Status)
	}
	var total int
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(1) FROM transactions`+where.where(), where.args...); err != nil {
		return nil, 0, err
	}
	suffix, args := where.paged(page)
	transactions := []models.Transaction{}
	err := s.db.SelectContext(ctx, &transactions, `SELECT `+transactionColumns+` FROM transactions`+where.where()+` ORDER BY created_at DESC`+suffix, args...)
	if err != nil {
		return nil, 0, err
	}
	return transactions, total, nil
}

// ListCreatedBetween returns transactions with their owner's name and email
// for exports.
func (s *TransactionStore) ListCreatedBetween(ctx context.Context, from, to *time.Time) ([]models.Transaction, error) {
	where := createdBetween(from, to, "t.created_at")
	var rows []transactionRow
	if err := s.db.SelectContext(ctx, &rows, transactionExportSelect+where.where()+` ORDER BY t.created_at DESC`, where.args...); err != nil {
		return nil, err
	}
	transactions := make([]models.Transaction, 0, len(rows))
	for _, row := range rows {
		t := row.Transaction
		t.User = &models.UserSummary{ID: t.UserID, Name: row.UserName, Email: row.UserEmail}
		transactions = append(transactions, t)
	}
	return transactions, nil
}

func (s *TransactionStore) CompletedTotals(ctx context.Context, userID string) ([]SubTypeTotal, error) {
	totals := []SubTypeTotal{}
	err := s.db.SelectContext(ctx, &totals, `
		SELECT sub_type, COALESCE(SUM(amount), 0) AS total
		FROM transactions
		WHERE user_id = $1 AND status = 'completed' AND type IN ('loan', 'rosca')
		GROUP BY sub_type
	`, userID)
	return totals, err
}
