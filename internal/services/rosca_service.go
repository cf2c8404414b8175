package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"lendfi/internal/db"
	"lendfi/internal/models"
	"lendfi/internal/money"
	"lendfi/internal/store"
	"lendfi/internal/websocket"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

const (
	inviteCodeLength   = 8
	inviteCodeAttempts = 5
)

var errInviteCodeExhausted = errors.New("could not allocate a unique invite code")

// NewInviteCode returns 8 uppercase hex characters taken from a random UUID.
func NewInviteCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:inviteCodeLength])
}

type ROSCAService struct {
	txRunner    db.TxRunner
	roscas      ROSCAStore
	txStore     TransactionStore
	notifier    Notifier
	frontendURL string
	now         func() time.Time
	newCode     func() string
}

func NewROSCAService(txRunner db.TxRunner, roscas ROSCAStore, txStore TransactionStore, notifier Notifier, frontendURL string) *ROSCAService {
	return &ROSCAService{
		txRunner:    txRunner,
		roscas:      roscas,
		txStore:     txStore,
		notifier:    notifier,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		now:         clock,
		newCode:     NewInviteCode,
	}
}

type ROSCAInput struct {
	Name               string
	Description        string
	ContributionAmount money.Amount
	CycleDuration      int
	MaxMembers         int
	IsOnChain          bool
}

// CreatedROSCA is a new group plus the link members use to join it.
type CreatedROSCA struct {
	ROSCA     models.ROSCA `json:"rosca"`
	InviteURL string       `json:"inviteUrl"`
}

func (s *ROSCAService) Create(ctx context.Context, founderID string, input ROSCAInput) (CreatedROSCA, error) {
	code, err := s.allocateInviteCode(ctx)
	if err != nil {
		return CreatedROSCA{}, err
	}
	now := s.now()
	rosca := models.ROSCA{
		ID:                 uuid.NewString(),
		Name:               input.Name,
		Description:        input.Description,
		ContributionAmount: input.ContributionAmount,
		CycleDuration:      input.CycleDuration,
		MaxMembers:         input.MaxMembers,
		CurrentMembers:     1,
		IsOnChain:          input.IsOnChain,
		Status:             models.ROSCAActive,
		CurrentCycle:       1,
		NextPayoutDate:     now.AddDate(0, 0, input.CycleDuration),
		CreatedBy:          founderID,
		InviteCode:         code,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.roscas.Create(ctx, tx, rosca); err != nil {
			return fmt.Errorf("create rosca: %w", err)
		}
		if err := s.roscas.AddMember(ctx, tx, rosca.ID, founderID, now); err != nil {
			return fmt.Errorf("add founder: %w", err)
		}
		return nil
	})
	if err != nil {
		return CreatedROSCA{}, err
	}
	zap.L().Info("rosca created", zap.String("rosca_id", rosca.ID), zap.String("user_id", founderID))
	return CreatedROSCA{ROSCA: rosca, InviteURL: s.frontendURL + "/rosca/join/" + code}, nil
}

func (s *ROSCAService) allocateInviteCode(ctx context.Context) (string, error) {
	for i := 0; i < inviteCodeAttempts; i++ {
		code := s.newCode()
		exists, err := s.roscas.InviteCodeExists(ctx, nil, code)
		if err != nil {
			return "", fmt.Errorf("check invite code: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", errInviteCodeExhausted
}

type ROSCAQuery struct {
	View string
	PageRequest
}

func (s *ROSCAService) List(ctx context.Context, userID string, q ROSCAQuery) ([]models.ROSCA, Pagination, error) {
	view := store.ROSCAView(q.View)
	if view == "" {
		view = store.ROSCAViewAvailable
	}
	if !view.Valid() {
		return nil, Pagination{}, ErrInvalidFilter
	}
	roscas, total, err := s.roscas.List(ctx, store.ROSCAFilter{View: view, UserID: userID}, q.window())
	if err != nil {
		return nil, Pagination{}, fmt.Errorf("list roscas: %w", err)
	}
	return roscas, NewPagination(q.PageRequest, total), nil
}

func (s *ROSCAService) Get(ctx context.Context, roscaID string) (models.ROSCA, error) {
	rosca, err := s.roscas.GetByID(ctx, nil, roscaID)
	if err != nil {
		if missing(err) {
			return models.ROSCA{}, ErrROSCANotFound
		}
		return models.ROSCA{}, fmt.Errorf("load rosca: %w", err)
	}
	return rosca, nil
}

func (s *ROSCAService) Members(ctx context.Context, roscaID string) ([]models.ROSCAMember, error) {
	rosca, err := s.Get(ctx, roscaID)
	if err != nil {
		return nil, err
	}
	members, err := s.roscas.Members(ctx, roscaID, rosca.CurrentCycle)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}

func (s *ROSCAService) Join(ctx context.Context, roscaID, userID string) (models.ROSCA, error) {
	return s.join(ctx, userID, func(tx *sqlx.Tx) (models.ROSCA, error) {
		return s.roscas.GetByID(ctx, tx, roscaID)
	})
}

func (s *ROSCAService) JoinByInvite(ctx context.Context, code, userID string) (models.ROSCA, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	return s.join(ctx, userID, func(tx *sqlx.Tx) (models.ROSCA, error) {
		return s.roscas.GetByInviteCode(ctx, tx, code)
	})
}

func (s *ROSCAService) join(ctx context.Context, userID string, load func(tx *sqlx.Tx) (models.ROSCA, error)) (models.ROSCA, error) {
	var joined models.ROSCA
	now := s.now()
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		rosca, err := load(tx)
		if err != nil {
			if missing(err) {
				return ErrROSCANotFound
			}
			return fmt.Errorf("load rosca: %w", err)
		}
		if rosca.Status != models.ROSCAActive {
			return ErrROSCANotActive
		}
		member, err := s.roscas.IsMember(ctx, tx, rosca.ID, userID)
		if err != nil {
			return fmt.Errorf("check membership: %w", err)
		}
		if member {
			return ErrAlreadyMember
		}
		if err := s.roscas.AddMember(ctx, tx, rosca.ID, userID, now); err != nil {
			if db.IsUniqueViolation(err) {
				return ErrAlreadyMember
			}
			return fmt.Errorf("add member: %w", err)
		}
		ok, err := s.roscas.IncrementMembers(ctx, tx, rosca.ID)
		if err != nil {
			return fmt.Errorf("increment members: %w", err)
		}
		if !ok {
			return ErrROSCAFull
		}
		rosca.CurrentMembers++
		rosca.UpdatedAt = now
		joined = rosca
		return nil
	})
	if err != nil {
		return models.ROSCA{}, err
	}
	zap.L().Info("rosca joined", zap.String("rosca_id", joined.ID), zap.String("user_id", userID))
	if s.notifier != nil && joined.CreatedBy != userID {
		s.notifier.Publish(joined.CreatedBy, websocket.Event{
			Type: websocket.EventROSCAJoined,
			Data: map[string]any{
				"roscaId":        joined.ID,
				"userId":         userID,
				"currentMembers": joined.CurrentMembers,
			},
			At: now,
		})
	}
	return joined, nil
}

func (s *ROSCAService) Contribute(ctx context.Context, roscaID, userID string, amount money.Amount) (models.Transaction, error) {
	var recorded models.Transaction
	now := s.now()
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		rosca, err := s.roscas.GetByID(ctx, tx, roscaID)
		if err != nil {
			if missing(err) {
				return ErrROSCANotFound
			}
			return fmt.Errorf("load rosca: %w", err)
		}
		if rosca.Status != models.ROSCAActive {
			return ErrROSCANotActive
		}
		if amount != rosca.ContributionAmount {
			return ErrContributionMismatch
		}
		member, err := s.roscas.IsMember(ctx, tx, roscaID, userID)
		if err != nil {
			return fmt.Errorf("check membership: %w", err)
		}
		if !member {
			return ErrNotMember
		}
		txn := models.Transaction{
			ID:            uuid.NewString(),
			UserID:        userID,
			Type:          models.TxTypeROSCA,
			SubType:       models.SubTypeContribution,
			Amount:        amount,
			Description:   fmt.Sprintf("Contribution to %s (cycle %d)", rosca.Name, rosca.CurrentCycle),
			Status:        models.TxCompleted,
			ReferenceType: models.RefROSCA,
			ReferenceID:   stringPtr(roscaID),
			Metadata:      models.NewMetadata(map[string]any{"cycle": rosca.CurrentCycle}),
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.txStore.Create(ctx, tx, txn); err != nil {
			return fmt.Errorf("record transaction: %w", err)
		}
		err = s.roscas.RecordContribution(ctx, tx, store.ContributionInput{
			ID:            uuid.NewString(),
			ROSCAID:       roscaID,
			UserID:        userID,
			Cycle:         rosca.CurrentCycle,
			Amount:        amount,
			TransactionID: txn.ID,
		})
		if err != nil {
			if db.IsUniqueViolation(err) {
				return ErrAlreadyContributed
			}
			return fmt.Errorf("record contribution: %w", err)
		}
		recorded = txn
		return nil
	})
	if err != nil {
		return models.Transaction{}, err
	}
	zap.L().Info("rosca contribution", zap.String("rosca_id", roscaID), zap.String("user_id", userID), zap.Stringer("amount", amount))
	return recorded, nil
}
