// Package provider defines provider capabilities, the descriptor-driven engine and the registry.
package provider

import (
	"context"

	"github.com/amankumarsingh77/go-scraper-api/scraper/models"
)

type Capability string

const (
	CapSearch  Capability = "search"
	CapLatest  Capability = "latest"
	CapDetails Capability = "details"
	CapStreams Capability = "streams"
	CapLinks   Capability = "links"
)

type Provider interface {
	Name() string
	Capabilities() []Capability
}

type Searcher interface {
	Provider
	Search(ctx context.Context, query string, page int) ([]models.Result, error)
}

type Lister interface {
	Provider
	Latest(ctx context.Context, page int) ([]models.Result, error)
}

type Detailer interface {
	Provider
	Details(ctx context.Context, pageURL string) (*models.Detail, error)
}

type Streamer interface {
	Provider
	Streams(ctx context.Context, pageURL string) (*models.StreamSet, error)
}

// BaseURLs resolves the live domain of a provider.
type BaseURLs interface {
	BaseURL(ctx context.Context, key string) (string, error)
}

func Has(p Provider, c Capability) bool {
	for _, have := range p.Capabilities() {
		if have == c {
			return true
		}
	}
	return false
}

// StaticBaseURL serves the same base URL for every key.
type StaticBaseURL string

func (s StaticBaseURL) BaseURL(context.Context, string) (string, error) { return string(s), nil }
