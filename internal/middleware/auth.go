package middleware

import (
	"context"
	"net/http"
	"strings"

	"lendfi/internal/auth"
	"lendfi/internal/models"

	"go.uber.org/zap"
)

type contextKey string

const userKey contextKey = "user"

// UserLookup resolves the subject of a token to a stored user.
type UserLookup interface {
	GetByID(ctx context.Context, userID string) (models.User, error)
}

func WithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

func UserFromContext(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userKey).(models.User)
	return user, ok
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	user, ok := UserFromContext(ctx)
	if !ok {
		return "", false
	}
	return user.ID, true
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// ResolveToken parses a token and loads its active user.
func ResolveToken(ctx context.Context, secret, token string, users UserLookup) (models.User, bool) {
	claims, err := auth.ParseToken(secret, token)
	if err != nil {
		return models.User{}, false
	}
	user, err := users.GetByID(ctx, claims.UserID)
	if err != nil {
		zap.L().Debug("token subject lookup failed", zap.String("user_id", claims.UserID), zap.Error(err))
		return models.User{}, false
	}
	if !user.IsActive {
		return models.User{}, false
	}
	return user, true
}

func Authenticate(secret string, users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "Access denied. No token provided.")
				return
			}
			user, ok := ResolveToken(r.Context(), secret, token, users)
			if !ok {
				writeError(w, http.StatusUnauthorized, "Invalid token or user not active")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}
