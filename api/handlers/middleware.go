package handlers

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/amankumarsingh77/go-scraper-api/db/models"
	"github.com/amankumarsingh77/go-scraper-api/db/repository"
	"github.com/amankumarsingh77/go-scraper-api/scraper/errs"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// KeyConsumer spends one request of a caller's quota.
type KeyConsumer interface {
	ConsumeKey(ctx context.Context, plain string) (*models.APIKey, error)
}

// RequestID tags each request with an id, reusing the caller's X-Request-ID when present.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// RequestLogger logs one line per request after it completes.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Set("logger", log.With(zap.String("request_id", c.GetString(ctxRequestID))))
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", c.GetString(ctxRequestID)),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			log.Warn("request", fields...)
			return
		}
		log.Info("request", fields...)
	}
}

var errInternal = errors.New("internal error")

// Recovery turns a panic into a 500 envelope. The panic value stays in the log.
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Error("panic recovered", zap.Any("panic", recovered), zap.String("path", c.Request.URL.Path), zap.Stack("stack"))
		fail(c, errInternal)
	})
}

func logger(c *gin.Context) *zap.Logger {
	if v, exists := c.Get("logger"); exists {
		if l, isLogger := v.(*zap.Logger); isLogger {
			return l
		}
	}
	return zap.NewNop()
}

// APIKeyAuth checks the caller's key and spends one request of its quota. The key comes from the
// x-api-key header or the api_key query parameter.
func APIKeyAuth(keys KeyConsumer) gin.HandlerFunc {
	return func(c *gin.Context) {
		plain := strings.TrimSpace(c.GetHeader("x-api-key"))
		if plain == "" {
			plain = strings.TrimSpace(c.Query("api_key"))
		}
		if plain == "" {
			fail(c, &errs.AuthError{Reason: "api key is required"})
			return
		}

		key, err := keys.ConsumeKey(c.Request.Context(), plain)
		switch {
		case err == nil:
		case errors.Is(err, repository.ErrKeyNotFound):
			fail(c, &errs.AuthError{Reason: "invalid api key"})
			return
		case errors.Is(err, repository.ErrKeyRevoked):
			fail(c, &errs.AuthError{Reason: "api key has been revoked"})
			return
		case errors.Is(err, repository.ErrQuotaExceeded):
			c.Set(ctxRemaining, int64(0))
			fail(c, &errs.AuthError{Reason: "request quota exhausted"})
			return
		default:
			fail(c, err)
			return
		}

		c.Set(ctxAPIKey, key)
		c.Set(ctxRemaining, key.Remaining())
		c.Next()
	}
}

// AdminToken guards the admin routes with a static bearer token.
func AdminToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if got == "" {
			got = c.GetHeader("x-admin-token")
		}
		if token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			fail(c, &errs.AuthError{Reason: "admin token required"})
			return
		}
		c.Next()
	}
}
