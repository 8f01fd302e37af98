// Package search fans a query out to every searchable provider and merges what comes back.
package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/amankumarsingh77/go-scraper-api/pkg/cache"
	"github.com/amankumarsingh77/go-scraper-api/scraper/errs"
	"github.com/amankumarsingh77/go-scraper-api/scraper/models"
	"github.com/amankumarsingh77/go-scraper-api/scraper/provider"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

type Summary struct {
	Provider string `json:"provider"`
	Success  bool   `json:"success"`
	Count    int    `json:"count"`
	Error    string `json:"error,omitempty"`
}

type Response struct {
	Query           string          `json:"query"`
	Results         []models.Result `json:"results"`
	ProviderSummary []Summary       `json:"providerSummary"`
	TotalResults    int             `json:"totalResults"`
	Cached          bool            `json:"cached"`
}

type Options struct {
	CacheTTL time.Duration
	// ProviderTimeout bounds each provider; zero waits for every provider to settle.
	ProviderTimeout time.Duration
	MaxConcurrency  int
}

type Sources interface {
	Searchers() []provider.Searcher
}

type Aggregator struct {
	sources Sources
	cache   cache.Store
	opts    Options
	log     *zap.Logger
}

func NewAggregator(sources Sources, store cache.Store, opts Options, log *zap.Logger) *Aggregator {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Hour
	}
	return &Aggregator{sources: sources, cache: store, opts: opts, log: log.Named("search")}
}

func CacheKey(query string) string {
	return "search:" + strings.ToLower(strings.TrimSpace(query))
}

type outcome struct {
	idx      int
	provider string
	results  []models.Result
	err      error
}

// Search never fails because of a provider: failures are reported in the summary. Only a missing
// query is an error.
func (a *Aggregator) Search(ctx context.Context, query string) (*Response, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errs.Invalid("q", "is required")
	}
	key := CacheKey(query)

	if a.cache != nil {
		var cached Response
		ok, err := cache.GetJSON(ctx, a.cache, key, &cached)
		if err != nil {
			a.log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		if ok {
			cached.Cached = true
			return &cached, nil
		}
	}

	searchers := a.sources.Searchers()
	p := pool.NewWithResults[outcome]()
	if a.opts.MaxConcurrency > 0 {
		p = p.WithMaxGoroutines(a.opts.MaxConcurrency)
	}
	start := time.Now()
	for i, s := range searchers {
		i, s := i, s
		p.Go(func() (o outcome) {
			defer func() {
				if r := recover(); r != nil {
					a.log.Error("provider search panicked", zap.String("provider", s.Name()), zap.Any("panic", r), zap.Stack("stack"))
					o = outcome{idx: i, provider: s.Name(), err: fmt.Errorf("provider panicked: %v", r)}
				}
			}()
			sctx := ctx
			if a.opts.ProviderTimeout > 0 {
				var cancel context.CancelFunc
				sctx, cancel = context.WithTimeout(ctx, a.opts.ProviderTimeout)
				defer cancel()
			}
			res, err := s.Search(sctx, query, 1)
			return outcome{idx: i, provider: s.Name(), results: res, err: err}
		})
	}
	outcomes := p.Wait()
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].idx < outcomes[j].idx })

	resp := &Response{
		Query:           query,
		Results:         make([]models.Result, 0),
		ProviderSummary: make([]Summary, 0, len(outcomes)),
	}
	succeeded := 0
	for _, o := range outcomes {
		if o.err != nil {
			a.log.Warn("provider search failed", zap.String("provider", o.provider), zap.String("query", query), zap.Error(o.err))
			resp.ProviderSummary = append(resp.ProviderSummary, Summary{Provider: o.provider, Error: o.err.Error()})
			continue
		}
		succeeded++
		resp.Results = append(resp.Results, o.results...)
		resp.ProviderSummary = append(resp.ProviderSummary, Summary{Provider: o.provider, Success: true, Count: len(o.results)})
	}
	resp.TotalResults = len(resp.Results)

	a.log.Info("aggregate search",
		zap.String("query", query),
		zap.Int("providers", len(outcomes)),
		zap.Int("succeeded", succeeded),
		zap.Int("results", resp.TotalResults),
		zap.Duration("duration", time.Since(start)))

	if a.cache != nil && succeeded > 0 {
		if err := cache.SetJSON(ctx, a.cache, key, resp, a.opts.CacheTTL); err != nil {
			a.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return resp, nil
}
