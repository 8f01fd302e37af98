// Package baseurl resolves the live domain of a provider: a stored override first, then configuration,
// then the descriptor default.
package baseurl

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
)

// Store holds runtime domain overrides. An empty string with a nil error means no override.
type Store interface {
	ProviderDomain(ctx context.Context, provider string) (string, error)
}

type Resolver struct {
	store    Store
	static   map[string]string
	mu       sync.RWMutex
	defaults map[string]string
	cache    *expirable.LRU[string, string]
	log      *zap.Logger
}

func New(store Store, static map[string]string, ttl time.Duration, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	s := make(map[string]string, len(static))
	for k, v := range static {
		s[strings.ToLower(k)] = v
	}
	return &Resolver{
		store:    store,
		static:   s,
		defaults: make(map[string]string),
		cache:    expirable.NewLRU[string, string](256, nil, ttl),
		log:      log.Named("baseurl"),
	}
}

func (r *Resolver) SetDefault(provider, base string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaults[strings.ToLower(provider)] = base
}

// Known reports whether provider has a configured or default base, i.e. whether an override for it
// would be used.
func (r *Resolver) Known(provider string) bool {
	key := strings.ToLower(provider)
	if r.static[key] != "" {
		return true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaults[key] != ""
}

// Invalidate drops the cached value so the next lookup sees a fresh override.
func (r *Resolver) Invalidate(provider string) {
	r.cache.Remove(strings.ToLower(provider))
}

func (r *Resolver) BaseURL(ctx context.Context, provider string) (string, error) {
	key := strings.ToLower(provider)
	if v, ok := r.cache.Get(key); ok {
		return v, nil
	}

	base := ""
	storeFailed := false
	if r.store != nil {
		v, err := r.store.ProviderDomain(ctx, key)
		if err != nil {
			storeFailed = true
			r.log.Warn("domain override lookup failed", zap.String("provider", key), zap.Error(err))
		}
		base = v
	}
	if base == "" {
		base = r.static[key]
	}
	if base == "" {
		r.mu.RLock()
		base = r.defaults[key]
		r.mu.RUnlock()
	}
	if base == "" {
		return "", fmt.Errorf("no base url configured for %q", provider)
	}

	base = strings.TrimRight(base, "/")
	// A fallback reached because the store failed is not cached, so a live override shows up on the next lookup.
	if !storeFailed {
		r.cache.Add(key, base)
	}
	return base, nil
}
