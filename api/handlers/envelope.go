package handlers

import (
	"errors"
	"net/http"

	"github.com/amankumarsingh77/go-scraper-api/db/repository"
	"github.com/amankumarsingh77/go-scraper-api/scraper/errs"
	"github.com/amankumarsingh77/go-scraper-api/scraper/extract"
	"github.com/amankumarsingh77/go-scraper-api/scraper/fetch"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	ctxRemaining = "remainingRequests"
	ctxAPIKey    = "apiKey"
	ctxRequestID = "requestID"
)

// ErrUnknownProvider is returned for a provider name the registry does not know.
var ErrUnknownProvider = errors.New("unknown provider")

// ok writes a success envelope. extra holds endpoint specific top level fields.
func ok(c *gin.Context, data any, extra gin.H) {
	okStatus(c, http.StatusOK, data, extra)
}

func okStatus(c *gin.Context, status int, data any, extra gin.H) {
	body := gin.H{"success": true, "data": data}
	for k, v := range extra {
		body[k] = v
	}
	if remaining, exists := c.Get(ctxRemaining); exists {
		body["remainingRequests"] = remaining
	}
	c.JSON(status, body)
}

// fail writes a failure envelope with the status for err's kind and aborts the chain.
func fail(c *gin.Context, err error) {
	status, label := classify(err)
	if status >= http.StatusInternalServerError {
		logger(c).Error("request failed", zap.Error(err))
	}
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   label,
		"message": err.Error(),
	})
}

func classify(err error) (int, string) {
	var (
		invalid *errs.ValidationError
		auth    *errs.AuthError
		empty   *errs.ExtractionEmptyError
		fetchE  *fetch.FetchError
		resolve *errs.ResolutionError
	)
	switch {
	case errors.As(err, &invalid):
		return http.StatusBadRequest, "invalid request"
	case errors.As(err, &auth):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, ErrUnknownProvider), errors.Is(err, repository.ErrKeyNotFound):
		return http.StatusNotFound, "not found"
	case errors.As(err, &empty):
		return http.StatusNotFound, "not found"
	case errors.As(err, &fetchE):
		return http.StatusInternalServerError, "upstream fetch failed"
	case errors.As(err, &resolve):
		return http.StatusInternalServerError, "link resolution failed"
	case errors.Is(err, extract.ErrMalformed):
		return http.StatusInternalServerError, "malformed upstream response"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// isEmpty reports whether err only means a listing had nothing on it.
func isEmpty(err error) bool {
	var empty *errs.ExtractionEmptyError
	return errors.As(err, &empty)
}
