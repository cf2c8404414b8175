package store

import (
	"context"
	"encoding/json"

	"lendfi/internal/models"

	"github.com/google/uuid"
)

type AuditStore struct {
	db DB
}

func NewAuditStore(db DB) *AuditStore {
	return &AuditStore{db: db}
}

// Log records an admin action. data is stored as JSON.
func (s *AuditStore) Log(ctx context.Context, tx Execer, actorID, action, entityType, entityID string, data map[string]any) error {
	if data == nil {
		data = map[string]any{}
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_user_id, action, entity_type, entity_id, data)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.NewString(), actorID, action, entityType, entityID, string(payload))
	return err
}

func (s *AuditStore) List(ctx context.Context, page Page) ([]models.AuditLog, int, error) {
	var total int
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(1) FROM audit_logs`); err != nil {
		return nil, 0, err
	}
	logs := []models.AuditLog{}
	err := s.db.SelectContext(ctx, &logs, `
		SELECT id, actor_user_id, action, entity_type, entity_id, data, created_at
		FROM audit_logs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, page.Limit, page.Offset)
	if err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}
