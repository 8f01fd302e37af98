package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/amankumarsingh77/go-scraper-api/db/models"
	"github.com/amankumarsingh77/go-scraper-api/pkg/tmdb"
	"github.com/amankumarsingh77/go-scraper-api/scraper/errs"
	"github.com/amankumarsingh77/go-scraper-api/scraper/provider"
	"github.com/amankumarsingh77/go-scraper-api/scraper/resolve"
	"github.com/amankumarsingh77/go-scraper-api/scraper/search"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type KeyStore interface {
	KeyConsumer
	CreateKey(ctx context.Context, name string, limit int64) (*models.APIKey, string, error)
	RevokeKey(ctx context.Context, id string) error
}

type DomainStore interface {
	SetProviderDomain(ctx context.Context, provider, baseURL string) error
}

// BaseURLCache is told when a domain override changes. Known names the keys that are not
// providers themselves but still take an override, like the febbox API base.
type BaseURLCache interface {
	Invalidate(provider string)
	Known(key string) bool
}

type Deps struct {
	Registry     *provider.Registry
	Search       *search.Aggregator
	Resolver     *resolve.Resolver
	TMDB         *tmdb.Client
	Keys         KeyStore
	Domains      DomainStore
	Bases        BaseURLCache
	DefaultLimit int64
	Log          *zap.Logger
}

type Handler struct {
	registry     *provider.Registry
	search       *search.Aggregator
	resolver     *resolve.Resolver
	tmdb         *tmdb.Client
	keys         KeyStore
	domains      DomainStore
	bases        BaseURLCache
	defaultLimit int64
	log          *zap.Logger
}

func NewHandler(d Deps) *Handler {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.DefaultLimit <= 0 {
		d.DefaultLimit = 1000
	}
	return &Handler{
		registry:     d.Registry,
		search:       d.Search,
		resolver:     d.Resolver,
		tmdb:         d.TMDB,
		keys:         d.Keys,
		domains:      d.Domains,
		bases:        d.Bases,
		defaultLimit: d.DefaultLimit,
		log:          d.Log.Named("http"),
	}
}

type RouterConfig struct {
	// AuthDisabled serves /api without API keys.
	AuthDisabled bool
	// AdminToken enables the /admin routes when set.
	AdminToken string
}

// Router wires every route. Authentication runs before any parameter check, so a rejected
// request still spends quota.
func (h *Handler) Router(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), RequestLogger(h.log), Recovery(h.log))

	r.GET("/health", h.Health)

	api := r.Group("/api")
	if !cfg.AuthDisabled {
		api.Use(APIKeyAuth(h.keys))
	}
	api.GET("/providers", h.ListProviders)
	api.GET("/search", h.SearchAll)
	api.GET("/resolve", h.Resolve)
	api.GET("/keys/me", h.KeyInfo)
	if h.tmdb != nil {
		api.GET("/meta/search", h.MetaSearch)
		api.GET("/meta/:type/:id", h.MetaDetails)
	}

	// provider routes
	api.GET("/:provider/search", h.ProviderSearch)
	api.GET("/:provider/latest", h.Latest)
	api.GET("/:provider/details", h.Details)
	api.GET("/:provider/streams", h.Streams)
	api.GET("/:provider/links", h.Links)

	if cfg.AdminToken != "" && h.keys != nil {
		admin := r.Group("/admin", AdminToken(cfg.AdminToken))
		admin.POST("/keys", h.CreateKey)
		admin.DELETE("/keys/:id", h.RevokeKey)
		if h.domains != nil {
			admin.PUT("/domains/:provider", h.SetDomain)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "not found", "message": "no route for " + c.Request.URL.Path})
	})
	return r
}

func (h *Handler) Health(c *gin.Context) {
	ok(c, gin.H{"status": "ok", "providers": len(h.registry.Names())}, nil)
}

// lookup finds the provider named in the path.
func (h *Handler) lookup(c *gin.Context) (provider.Provider, error) {
	name := strings.ToLower(c.Param("provider"))
	p, found := h.registry.Get(name)
	if !found {
		return nil, ErrUnknownProvider
	}
	return p, nil
}

func unsupported(p provider.Provider, what string) error {
	return errs.Invalid("provider", p.Name()+" does not support "+what)
}

// firstQuery returns the first non-empty query parameter among names.
func firstQuery(c *gin.Context, names ...string) string {
	for _, n := range names {
		if v := strings.TrimSpace(c.Query(n)); v != "" {
			return v
		}
	}
	return ""
}

// intQuery parses an optional positive integer parameter; absent means def.
func intQuery(c *gin.Context, name string, def int) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errs.Invalid(name, "must be a positive integer")
	}
	return n, nil
}
