package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"lendfi/internal/auth"
	"lendfi/internal/db"
	"lendfi/internal/models"
	"lendfi/internal/validator"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type AuthConfig struct {
	JWTSecret   string
	TokenTTL    time.Duration
	AdminSecret string
}

type AuthService struct {
	txRunner db.TxRunner
	users    UserStore
	cfg      AuthConfig
}

func NewAuthService(txRunner db.TxRunner, users UserStore, cfg AuthConfig) *AuthService {
	return &AuthService{txRunner: txRunner, users: users, cfg: cfg}
}

type RegisterInput struct {
	Email         string
	Password      string
	Name          string
	Phone         string
	DateOfBirth   time.Time
	IDNumber      string
	WalletAddress *string
	Role          models.Role
	AdminSecret   string
}

// Session is a freshly issued token and the user it belongs to.
type Session struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (Session, error) {
	role := input.Role
	if role == "" {
		role = models.RoleUser
	}
	if !role.Valid() {
		return Session{}, ErrInvalidStatus
	}
	if role == models.RoleAdmin && !s.adminSecretMatches(input.AdminSecret) {
		return Session{}, ErrInvalidAdminSecret
	}
	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}
	now := clock()
	user := models.User{
		ID:            uuid.NewString(),
		Email:         strings.ToLower(strings.TrimSpace(input.Email)),
		PasswordHash:  hash,
		Name:          strings.TrimSpace(input.Name),
		Phone:         input.Phone,
		DateOfBirth:   input.DateOfBirth,
		IDNumber:      input.IDNumber,
		WalletAddress: nonBlank(input.WalletAddress),
		Role:          role,
		KYCStatus:     models.KYCPending,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.users.Create(ctx, tx, user)
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Session{}, ErrDuplicateUser
		}
		return Session{}, fmt.Errorf("create user: %w", err)
	}
	token, err := s.issue(user)
	if err != nil {
		return Session{}, err
	}
	zap.L().Info("user registered", zap.String("user_id", user.ID), zap.String("role", string(role)))
	return Session{Token: token, User: user}, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("load user: %w", err)
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return Session{}, ErrInvalidCredentials
	}
	if !user.IsActive {
		return Session{}, ErrAccountInactive
	}
	now := clock()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return Session{}, fmt.Errorf("update last login: %w", err)
	}
	user.LastLogin = &now
	token, err := s.issue(user)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, User: user}, nil
}

func (s *AuthService) Profile(ctx context.Context, userID string) (models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID string, req validator.ProfileUpdateRequest) (models.User, error) {
	// an empty wallet clears the stored one
	wallet := req.WalletAddress
	if wallet != nil {
		trimmed := strings.TrimSpace(*wallet)
		wallet = &trimmed
	}
	user, err := s.users.UpdateProfile(ctx, userID, req.Name, req.Phone, wallet)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return models.User{}, ErrUserNotFound
		case db.IsUniqueViolation(err):
			return models.User{}, ErrDuplicateUser
		}
		return models.User{}, fmt.Errorf("update profile: %w", err)
	}
	return user, nil
}

// nonBlank maps an empty optional value to NULL so unique columns accept
// any number of them.
func nonBlank(value *string) *string {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	return &trimmed
}

func (s *AuthService) ChangePassword(ctx context.Context, userID, current, next string) error {
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(user.PasswordHash, current) {
		return ErrWrongPassword
	}
	hash, err := auth.HashPassword(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func (s *AuthService) issue(user models.User) (string, error) {
	token, err := auth.GenerateToken(s.cfg.JWTSecret, user.ID, string(user.Role), s.cfg.TokenTTL)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

func (s *AuthService) adminSecretMatches(given string) bool {
	if s.cfg.AdminSecret == "" || given == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(s.cfg.AdminSecret), []byte(given)) == 1
}
