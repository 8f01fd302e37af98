package handlers

import (
	"net/http"
	"strings"

	"github.com/amankumarsingh77/go-scraper-api/db/models"
	"github.com/amankumarsingh77/go-scraper-api/scraper/errs"
	"github.com/amankumarsingh77/go-scraper-api/scraper/provider"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type createKeyRequest struct {
	Name  string `json:"name" binding:"required,max=64"`
	Limit int64  `json:"requestsLimit" binding:"omitempty,gte=1"`
}

type domainRequest struct {
	BaseURL string `json:"baseUrl" binding:"required,url"`
}

// KeyInfo handles GET /api/keys/me
func (h *Handler) KeyInfo(c *gin.Context) {
	v, exists := c.Get(ctxAPIKey)
	key, isKey := v.(*models.APIKey)
	if !exists || !isKey {
		fail(c, &errs.AuthError{Reason: "no api key on this request"})
		return
	}
	ok(c, key, nil)
}

// CreateKey handles POST /admin/keys. The plaintext key is only ever returned here.
func (h *Handler) CreateKey(c *gin.Context) {
	var req createKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errs.Invalid("body", err.Error()))
		return
	}
	if req.Limit == 0 {
		req.Limit = h.defaultLimit
	}

	key, plain, err := h.keys.CreateKey(c.Request.Context(), strings.TrimSpace(req.Name), req.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	logger(c).Info("api key created", zap.String("id", key.ID.Hex()), zap.String("name", key.Name))
	okStatus(c, http.StatusCreated, gin.H{"key": plain, "apiKey": key}, nil)
}

// RevokeKey handles DELETE /admin/keys/:id
func (h *Handler) RevokeKey(c *gin.Context) {
	id := c.Param("id")
	if err := h.keys.RevokeKey(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	logger(c).Info("api key revoked", zap.String("id", id))
	ok(c, gin.H{"id": id, "revoked": true}, nil)
}

// SetDomain handles PUT /admin/domains/:provider
func (h *Handler) SetDomain(c *gin.Context) {
	key := strings.ToLower(c.Param("provider"))
	p, err := h.lookup(c)
	switch {
	case err == nil:
		key = p.Name()
		if g, described := p.(interface{ Descriptor() provider.Descriptor }); described {
			key = g.Descriptor().Key()
		}
	case h.bases != nil && h.bases.Known(key):
	default:
		fail(c, err)
		return
	}
	var req domainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errs.Invalid("body", err.Error()))
		return
	}

	base := strings.TrimRight(req.BaseURL, "/")
	if err := h.domains.SetProviderDomain(c.Request.Context(), key, base); err != nil {
		fail(c, err)
		return
	}
	if h.bases != nil {
		h.bases.Invalidate(key)
	}
	logger(c).Info("provider domain updated", zap.String("provider", key), zap.String("base_url", base))
	ok(c, gin.H{"provider": key, "baseUrl": base}, nil)
}
