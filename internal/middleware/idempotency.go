package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	IdempotencyHeader = "Idempotency-Key"

	provisionalLockTTL = 60 * time.Second
	maxIdempotencyKey  = 128
	maxIdempotentBody  = 1 << 20
	redisTimeout       = 2 * time.Second
)

type idempotencyEntry struct {
	InProgress bool      `json:"in_progress"`
	Code       int       `json:"code"`
	Body       []byte    `json:"body"`
	BodySHA256 string    `json:"body_sha256"`
	CreatedAt  time.Time `json:"created_at"`
}

type recordingWriter struct {
	http.ResponseWriter
	buf  bytes.Buffer
	code int
}

func (r *recordingWriter) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *recordingWriter) Write(b []byte) (int, error) {
	r.buf.Write(b)
	return r.ResponseWriter.Write(b)
}

// Idempotency replays the stored response for a repeated Idempotency-Key on
// the same path and user. Requests without the header, and every request
// when rdb is nil, pass straight through.
func Idempotency(rdb *redis.Client, ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if rdb == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			if len(key) > maxIdempotencyKey {
				writeError(w, http.StatusBadRequest, "Idempotency-Key is too long")
				return
			}
			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxIdempotentBody))
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, "request body is too large")
				return
			}
			if err != nil {
				writeError(w, http.StatusBadRequest, "unable to read request body")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			hash := bodyHash(body)
			userID, _ := UserIDFromContext(r.Context())
			redisKey := idempotencyKey(r.Method, r.URL.Path, userID, key)

			ctx, cancel := context.WithTimeout(r.Context(), redisTimeout)
			defer cancel()
			locked, err := setProvisional(ctx, rdb, redisKey, idempotencyEntry{InProgress: true, BodySHA256: hash, CreatedAt: time.Now().UTC()})
			if err != nil {
				zap.L().Error("idempotency store unavailable", zap.Error(err))
				writeError(w, http.StatusServiceUnavailable, "idempotency store unavailable")
				return
			}
			if !locked {
				current, err := loadEntry(ctx, rdb, redisKey)
				if err != nil && !errors.Is(err, redis.Nil) {
					zap.L().Warn("idempotency entry unreadable", zap.String("key", redisKey), zap.Error(err))
				}
				if current.BodySHA256 != "" && current.BodySHA256 != hash {
					writeError(w, http.StatusConflict, "Idempotency-Key reused with a different body")
					return
				}
				if !current.InProgress && current.Code != 0 {
					w.Header().Set("Content-Type", "application/json")
					w.Header().Set("Idempotent-Replayed", "true")
					w.WriteHeader(current.Code)
					_, _ = w.Write(current.Body)
					return
				}
				writeError(w, http.StatusConflict, "request is already in progress")
				return
			}

			rec := &recordingWriter{ResponseWriter: w, code: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.code >= 500 {
				// server failures are not cached
				_ = rdb.Del(context.Background(), redisKey).Err()
				return
			}
			final := idempotencyEntry{Code: rec.code, Body: rec.buf.Bytes(), BodySHA256: hash, CreatedAt: time.Now().UTC()}
			if err := saveEntry(context.Background(), rdb, redisKey, final, ttl); err != nil {
				zap.L().Warn("idempotency entry not saved", zap.String("key", redisKey), zap.Error(err))
			}
		})
	}
}

func idempotencyKey(method, path, userID, key string) string {
	return "idemp:" + strings.ToLower(method) + ":" + path + ":" + userID + ":" + key
}

func bodyHash(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func setProvisional(ctx context.Context, rdb *redis.Client, key string, entry idempotencyEntry) (bool, error) {
	payload, err := json.Marshal(entry)
	if err != nil {
		return false, err
	}
	return rdb.SetNX(ctx, key, payload, provisionalLockTTL).Result()
}

func loadEntry(ctx context.Context, rdb *redis.Client, key string) (idempotencyEntry, error) {
	var entry idempotencyEntry
	raw, err := rdb.Get(ctx, key).Bytes()
	if err != nil {
		return entry, err
	}
	err = json.Unmarshal(raw, &entry)
	return entry, err
}

func saveEntry(ctx context.Context, rdb *redis.Client, key string, entry idempotencyEntry, ttl time.Duration) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return rdb.Set(ctx, key, payload, ttl).Err()
}
