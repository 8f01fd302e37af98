// Package catalog assembles the provider registry and the link resolver from descriptors.
package catalog

import (
	"fmt"

	"github.com/amankumarsingh77/go-scraper-api/pkg/baseurl"
	"github.com/amankumarsingh77/go-scraper-api/scraper/febox"
	"github.com/amankumarsingh77/go-scraper-api/scraper/fetch"
	"github.com/amankumarsingh77/go-scraper-api/scraper/provider"
	"github.com/amankumarsingh77/go-scraper-api/scraper/resolve"
	"github.com/amankumarsingh77/go-scraper-api/scraper/showbox"
	"github.com/amankumarsingh77/go-scraper-api/scraper/tube"
	"go.uber.org/zap"
)

type Deps struct {
	// Fetcher serves page fetches and the JSON endpoints used by febbox.
	Fetcher febox.Fetcher
	Bases   *baseurl.Resolver
	Febbox  febox.Config
	Showbox showbox.Config
	Log     *zap.Logger
}

type Catalog struct {
	Registry *provider.Registry
	Resolver *resolve.Resolver
	Showbox  *showbox.Scraper
}

// streamers wraps descriptor providers that also extract playable streams.
var streamers = map[string]func(*provider.Generic) provider.Provider{
	"spankbang": func(g *provider.Generic) provider.Provider { return tube.NewSpankBang(g) },
	"xhamster":  func(g *provider.Generic) provider.Provider { return tube.NewXHamster(g) },
	"xvideos":   func(g *provider.Generic) provider.Provider { return tube.NewXVideos(g) },
}

func Build(file *provider.File, d Deps) (*Catalog, error) {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}

	reg := provider.NewRegistry()
	for _, desc := range file.Providers {
		d.Bases.SetDefault(desc.Key(), desc.BaseURL)

		g := provider.NewGeneric(desc, d.Fetcher, d.Bases, log)
		var p provider.Provider = g
		if wrap, ok := streamers[desc.Name]; ok {
			p = wrap(g)
		}
		if err := reg.Register(p); err != nil {
			return nil, err
		}
	}

	d.Bases.SetDefault(showbox.Name, showbox.DefaultBaseURL)
	fb := febox.NewClient(d.Fetcher, d.Febbox, d.Bases, log)
	showboxAPI, febboxBase := fb.DefaultBases()
	d.Bases.SetDefault(febox.ShowboxAPIKey, showboxAPI)
	d.Bases.SetDefault(febox.FebboxKey, febboxBase)
	sb := showbox.NewScraper(d.Showbox, d.Bases, d.Fetcher, fb, log)
	if err := reg.Register(sb); err != nil {
		return nil, err
	}

	res, err := resolve.New(d.Fetcher, file.Hops, log)
	if err != nil {
		return nil, fmt.Errorf("hop rules: %w", err)
	}

	log.Info("providers registered", zap.Strings("providers", reg.Names()), zap.Int("hop_rules", len(file.Hops.Rules)))
	return &Catalog{Registry: reg, Resolver: res, Showbox: sb}, nil
}

var _ febox.Fetcher = (*fetch.Client)(nil)
