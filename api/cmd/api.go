package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/amankumarsingh77/go-scraper-api/api/handlers"
	"github.com/amankumarsingh77/go-scraper-api/db"
	"github.com/amankumarsingh77/go-scraper-api/db/repository"
	"github.com/amankumarsingh77/go-scraper-api/pkg/baseurl"
	"github.com/amankumarsingh77/go-scraper-api/pkg/cache"
	"github.com/amankumarsingh77/go-scraper-api/pkg/config"
	"github.com/amankumarsingh77/go-scraper-api/pkg/tmdb"
	"github.com/amankumarsingh77/go-scraper-api/scraper/catalog"
	"github.com/amankumarsingh77/go-scraper-api/scraper/fetch"
	"github.com/amankumarsingh77/go-scraper-api/scraper/provider"
	"github.com/amankumarsingh77/go-scraper-api/scraper/search"
	"go.uber.org/zap"
)

type app struct {
	handler *handlers.Handler
	closers []func(context.Context) error
}

func (a *app) close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i](ctx))
	}
	return errors.Join(errs...)
}

// newApp connects the stores and builds the handler. Whatever was opened is closed again on failure.
func newApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			_ = a.close(context.Background())
		}
	}()
	fetcher := fetch.NewClient(cfg.Fetch, log)

	var repo *repository.MongoRepo
	if cfg.Mongo.URI != "" {
		client, database, err := db.NewMongoConn(ctx, cfg.Mongo, log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Disconnect)
		repo = repository.NewMongoRepo(database)
	} else if !cfg.Auth.Disabled {
		return nil, errors.New("mongo.uri is required unless auth.disabled is set")
	} else {
		log.Warn("running without MongoDB: api keys are not checked and domain overrides are off")
	}

	var domains baseurl.Store
	if repo != nil {
		domains = repo
	}
	bases := baseurl.New(domains, cfg.Providers.BaseURLs, cfg.Providers.BaseURLTTL, log)

	file, err := provider.LoadFile(cfg.Providers.DescriptorsFile)
	if err != nil {
		return nil, err
	}
	cat, err := catalog.Build(file, catalog.Deps{
		Fetcher: fetcher,
		Bases:   bases,
		Febbox:  cfg.Febbox,
		Showbox: cfg.Showbox,
		Log:     log,
	})
	if err != nil {
		return nil, fmt.Errorf("building providers: %w", err)
	}

	var store cache.Store
	if cfg.Redis.Addr != "" {
		rc, err := cache.DialRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return rc.Close() })
		store = cache.NewRedis(rc, cfg.Redis.Prefix)
		log.Info("search cache: redis", zap.String("addr", cfg.Redis.Addr))
	} else {
		store = cache.NewMemory(cfg.Search.CacheSize, cfg.Search.CacheTTL)
		log.Info("search cache: in-process", zap.Int("size", cfg.Search.CacheSize))
	}
	agg := search.NewAggregator(cat.Registry, store, search.Options{
		CacheTTL:        cfg.Search.CacheTTL,
		ProviderTimeout: cfg.Search.ProviderTimeout,
		MaxConcurrency:  cfg.Search.MaxConcurrency,
	}, log)

	var meta *tmdb.Client
	if cfg.TMDB.APIKey != "" {
		meta, err = tmdb.NewClient(fetcher, cfg.TMDB, log)
		if err != nil {
			return nil, err
		}
	}

	deps := handlers.Deps{
		Registry:     cat.Registry,
		Search:       agg,
		Resolver:     cat.Resolver,
		TMDB:         meta,
		Bases:        bases,
		DefaultLimit: cfg.Auth.DefaultLimit,
		Log:          log,
	}
	if repo != nil {
		deps.Keys = repo
		deps.Domains = repo
	}
	a.handler = handlers.NewHandler(deps)
	return a, nil
}
