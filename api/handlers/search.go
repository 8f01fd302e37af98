package handlers

import (
	"github.com/amankumarsingh77/go-scraper-api/scraper/errs"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxHopsCeiling = 10

// SearchAll handles GET /api/search?q=
// Provider failures end up in providerSummary; the request itself still succeeds.
func (h *Handler) SearchAll(c *gin.Context) {
	query := firstQuery(c, "q", "s", "search")
	if query == "" {
		fail(c, errs.Invalid("q", "is required"))
		return
	}

	resp, err := h.search.Search(c.Request.Context(), query)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, resp.Results, gin.H{
		"query":           resp.Query,
		"providerSummary": resp.ProviderSummary,
		"totalResults":    resp.TotalResults,
		"cached":          resp.Cached,
	})
}

// Resolve handles GET /api/resolve?url=&maxHops=
func (h *Handler) Resolve(c *gin.Context) {
	target, err := pageURL(c)
	if err != nil {
		fail(c, err)
		return
	}
	if !h.resolver.Allowed(target) {
		fail(c, errs.Invalid("url", "no hop rule matches this host"))
		return
	}
	maxHops, err := intQuery(c, "maxHops", 0)
	if err != nil {
		fail(c, err)
		return
	}
	if maxHops > maxHopsCeiling {
		fail(c, errs.Invalid("maxHops", "must not exceed 10"))
		return
	}

	link, err := h.resolver.Resolve(c.Request.Context(), target, maxHops)
	if err != nil {
		fail(c, err)
		return
	}
	logger(c).Debug("resolved", zap.String("entry", target), zap.String("terminal", link.URL), zap.Int("hops", link.HopCount))
	ok(c, link, nil)
}
