// Package tmdb is a small TMDB v3 client used for metadata lookups.
package tmdb

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/amankumarsingh77/go-scraper-api/scraper/errs"
	"github.com/amankumarsingh77/go-scraper-api/scraper/fetch"
	"github.com/amankumarsingh77/go-scraper-api/scraper/models"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL  = "https://api.themoviedb.org/3"
	DefaultImageURL = "https://image.tmdb.org/t/p/w500"
)

var ErrNoAPIKey = errors.New("tmdb api key is not configured")

type Config struct {
	APIKey       string `koanf:"api_key"`
	BaseURL      string `koanf:"base_url" validate:"omitempty,url"`
	ImageBaseURL string `koanf:"image_base_url" validate:"omitempty,url"`
}

type Fetcher interface {
	GetJSON(ctx context.Context, rawURL string, opts fetch.Options, v any) error
}

type Client struct {
	apiKey   string
	baseURL  string
	imageURL string
	f        Fetcher
	log      *zap.Logger
}

func NewClient(f Fetcher, cfg Config, log *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if log == nil {
		log = zap.NewNop()
	}
	c := &Client{
		apiKey:   cfg.APIKey,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		imageURL: strings.TrimRight(cfg.ImageBaseURL, "/"),
		f:        f,
		log:      log.Named("tmdb"),
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.imageURL == "" {
		c.imageURL = DefaultImageURL
	}
	return c, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, v any) error {
	if q == nil {
		q = url.Values{}
	}
	q.Set("api_key", c.apiKey)
	err := c.f.GetJSON(ctx, c.baseURL+path+"?"+q.Encode(), fetch.Options{}, v)

	var fe *fetch.FetchError
	if errors.As(err, &fe) && fe.StatusCode == http.StatusNotFound {
		return &errs.ExtractionEmptyError{Provider: "tmdb", What: strings.TrimPrefix(path, "/")}
	}
	return err
}

func (c *Client) SearchMovie(ctx context.Context, title string, page int) (*SearchMovieResponse, error) {
	var out SearchMovieResponse
	if err := c.get(ctx, "/search/movie", searchQuery(title, page), &out); err != nil {
		return nil, fmt.Errorf("failed to search movie: %w", err)
	}
	return &out, nil
}

func (c *Client) SearchTV(ctx context.Context, title string, page int) (*SearchTVResponse, error) {
	var out SearchTVResponse
	if err := c.get(ctx, "/search/tv", searchQuery(title, page), &out); err != nil {
		return nil, fmt.Errorf("failed to search TV show: %w", err)
	}
	return &out, nil
}

func searchQuery(title string, page int) url.Values {
	q := url.Values{}
	q.Set("query", title)
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	return q
}

func (c *Client) GetMovieDetails(ctx context.Context, tmdbID int) (*MovieDetails, error) {
	var out MovieDetails
	q := url.Values{"append_to_response": {"credits,videos"}}
	if err := c.get(ctx, fmt.Sprintf("/movie/%d", tmdbID), q, &out); err != nil {
		return nil, fmt.Errorf("failed to get movie details: %w", err)
	}
	return &out, nil
}

func (c *Client) GetTVDetails(ctx context.Context, tmdbID int) (*TVDetails, error) {
	var out TVDetails
	q := url.Values{"append_to_response": {"credits,videos"}}
	if err := c.get(ctx, fmt.Sprintf("/tv/%d", tmdbID), q, &out); err != nil {
		return nil, fmt.Errorf("failed to get TV details: %w", err)
	}
	return &out, nil
}

func (c *Client) GetTVSeasonDetails(ctx context.Context, tmdbID, season int) (*SeasonDetails, error) {
	var out SeasonDetails
	if err := c.get(ctx, fmt.Sprintf("/tv/%d/season/%d", tmdbID, season), nil, &out); err != nil {
		return nil, fmt.Errorf("failed to get season details: %w", err)
	}
	return &out, nil
}

// Search runs a movie or tv search and reshapes the hits into listing results.
func (c *Client) Search(ctx context.Context, query, kind string, page int) ([]models.Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errs.Invalid("q", "is required")
	}
	results := make([]models.Result, 0)
	switch kind {
	case "", "movie":
		resp, err := c.SearchMovie(ctx, query, page)
		if err != nil {
			return nil, err
		}
		for _, m := range resp.Results {
			results = append(results, models.Result{
				Title:    m.Title,
				URL:      fmt.Sprintf("https://www.themoviedb.org/movie/%d", m.ID),
				ImageURL: c.Image(m.PosterPath),
				Type:     "movie",
				Year:     year(m.ReleaseDate),
				Rating:   rating(m.VoteAverage),
				Provider: "tmdb",
			})
		}
	case "tv":
		resp, err := c.SearchTV(ctx, query, page)
		if err != nil {
			return nil, err
		}
		for _, s := range resp.Results {
			results = append(results, models.Result{
				Title:    s.Name,
				URL:      fmt.Sprintf("https://www.themoviedb.org/tv/%d", s.ID),
				ImageURL: c.Image(s.PosterPath),
				Type:     "tv",
				Year:     year(s.FirstAirDate),
				Rating:   rating(s.VoteAverage),
				Provider: "tmdb",
			})
		}
	default:
		return nil, errs.Invalid("type", "must be movie or tv")
	}
	return results, nil
}

// Image turns a TMDB file path into a full image URL.
func (c *Client) Image(path string) string {
	if path == "" {
		return ""
	}
	return c.imageURL + path
}

func year(date string) string {
	if len(date) >= 4 {
		return date[:4]
	}
	return ""
}

func rating(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}
