// Package showbox scrapes the showbox catalogue and turns a title id into febbox quality links.
package showbox

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/amankumarsingh77/go-scraper-api/scraper/errs"
	"github.com/amankumarsingh77/go-scraper-api/scraper/extract"
	"github.com/amankumarsingh77/go-scraper-api/scraper/febox"
	"github.com/amankumarsingh77/go-scraper-api/scraper/fetch"
	"github.com/amankumarsingh77/go-scraper-api/scraper/models"
	"github.com/amankumarsingh77/go-scraper-api/scraper/normalize"
	"github.com/amankumarsingh77/go-scraper-api/scraper/provider"
	"github.com/gocolly/colly"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

const Name = "showbox"

type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, opts fetch.Options) (*fetch.RawDocument, error)
}

type Scraper struct {
	cfg   Config
	bases provider.BaseURLs
	fetch Fetcher
	febox *febox.Client
	log   *zap.Logger
}

func NewScraper(cfg Config, bases provider.BaseURLs, f Fetcher, fb *febox.Client, log *zap.Logger) *Scraper {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scraper{cfg: cfg.withDefaults(), bases: bases, fetch: f, febox: fb, log: log.Named(Name)}
}

func (s *Scraper) Name() string { return Name }

func (s *Scraper) Capabilities() []provider.Capability {
	return []provider.Capability{provider.CapSearch, provider.CapLatest, provider.CapDetails, provider.CapLinks}
}

func (s *Scraper) BaseURL(ctx context.Context) (string, error) {
	if s.bases == nil {
		return DefaultBaseURL, nil
	}
	base, err := s.bases.BaseURL(ctx, Name)
	if err != nil {
		return "", fmt.Errorf("%s: base url: %w", Name, err)
	}
	return strings.TrimRight(base, "/"), nil
}

// newCollector returns a fresh collector per call: colly remembers visited URLs, and a listing
// page must be fetchable again on the next request.
func (s *Scraper) newCollector(ctx context.Context, base string) (*colly.Collector, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("%s: base url: %w", Name, err)
	}
	c := colly.NewCollector(
		colly.AllowedDomains(u.Host, u.Hostname()),
		colly.UserAgent(s.cfg.UserAgent),
	)
	c.SetRequestTimeout(s.cfg.Timeout)
	if err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: s.cfg.Parallelism,
		RandomDelay: s.cfg.RandomDelay,
	}); err != nil {
		return nil, fmt.Errorf("failed to set limit rule: %w", err)
	}
	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
		}
	})
	return c, nil
}

func (s *Scraper) listing(ctx context.Context, target, base string) ([]models.Result, error) {
	c, err := s.newCollector(ctx, base)
	if err != nil {
		return nil, err
	}

	var (
		mu       sync.Mutex
		items    []extract.Item
		fetchErr error
	)
	c.OnHTML(".film_list-wrap .flw-item", func(e *colly.HTMLElement) {
		if e.DOM.Parents().HasClass("film_related") {
			return
		}
		link := e.ChildAttr("div:nth-child(1) > a:nth-child(3)", "href")
		if link == "" {
			link = e.ChildAttr(".film-name a", "href")
		}
		title := e.ChildAttr(".film-name a", "title")
		if title == "" {
			title = e.ChildText(".film-name")
		}
		image := e.ChildAttr("img.film-poster-img", "data-src")
		if image == "" {
			image = e.ChildAttr("img", "src")
		}
		item := extract.Item{
			"title":    title,
			"url":      link,
			"image":    image,
			"quality":  strings.TrimSpace(e.ChildText(".film-poster-quality")),
			"type":     strings.TrimSpace(e.ChildText(".fdi-type")),
			"year":     strings.TrimSpace(e.DOM.Find(".fdi-item").First().Text()),
			"duration": strings.TrimSpace(e.ChildText(".fdi-duration")),
		}
		mu.Lock()
		items = append(items, item)
		mu.Unlock()
	})
	c.OnError(func(r *colly.Response, err error) {
		fetchErr = &fetch.FetchError{URL: r.Request.URL.String(), StatusCode: r.StatusCode, Err: err}
	})

	visitErr := c.Visit(target)
	c.Wait()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if fetchErr != nil {
		return nil, fetchErr
	}
	if visitErr != nil {
		return nil, &fetch.FetchError{URL: target, Err: visitErr}
	}

	results := normalize.Normalize(items, base, Name)
	s.log.Debug("listing scraped", zap.String("url", target), zap.Int("results", len(results)))
	return results, nil
}

func (s *Scraper) Search(ctx context.Context, query string, page int) ([]models.Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errs.Invalid("q", "is required")
	}
	base, err := s.BaseURL(ctx)
	if err != nil {
		return nil, err
	}
	target := base + "/search/" + url.PathEscape(strings.ReplaceAll(strings.ToLower(query), " ", "-"))
	if page > 1 {
		target += "?page=" + strconv.Itoa(page)
	}
	return s.listing(ctx, target, base)
}

func (s *Scraper) Latest(ctx context.Context, page int) ([]models.Result, error) {
	if page < 1 {
		page = 1
	}
	base, err := s.BaseURL(ctx)
	if err != nil {
		return nil, err
	}
	return s.listing(ctx, fmt.Sprintf("%s/movie?page=%d", base, page), base)
}

func (s *Scraper) Details(ctx context.Context, pageURL string) (*models.Detail, error) {
	base, err := s.BaseURL(ctx)
	if err != nil {
		return nil, err
	}
	hosts := []string{"showbox"}
	if u, err := url.Parse(base); err == nil && u.Hostname() != "" {
		hosts = append(hosts, u.Hostname())
	}
	if _, err := fetch.RequireHost(pageURL, hosts...); err != nil {
		return nil, err
	}

	raw, err := s.fetch.Fetch(ctx, pageURL, fetch.Options{})
	if err != nil {
		return nil, err
	}
	doc, err := raw.HTML()
	if err != nil {
		return nil, err
	}
	d := parseDetail(doc.Selection, pageURL)
	if d == nil || d.Title == "" {
		return nil, &errs.ExtractionEmptyError{Provider: Name, What: "details"}
	}
	return d, nil
}

// Links resolves a showbox title into febbox quality links. Series need season and episode.
func (s *Scraper) Links(ctx context.Context, id, kind string, season, episode int) ([]models.Link, error) {
	if _, err := strconv.Atoi(id); err != nil {
		return nil, errs.Invalid("id", "must be a numeric showbox id")
	}
	ct, err := febox.ParseContentType(kind)
	if err != nil {
		return nil, err
	}
	if ct == febox.TVType && (season < 1 || episode < 1) {
		return nil, errs.Invalid("season", "season and episode are required for tv")
	}

	share, err := s.febox.ShareLink(ctx, id, ct)
	if err != nil {
		return nil, err
	}
	entries, err := s.febox.ShareEntries(ctx, share)
	if err != nil {
		return nil, err
	}

	var files []fileRef
	if ct == febox.MovieType {
		for _, e := range entries {
			files = append(files, fileRef{fid: e.ID, name: e.Name})
		}
	} else {
		folder, ok := febox.FindSeason(entries, season)
		if !ok {
			return nil, &errs.ExtractionEmptyError{Provider: Name, What: fmt.Sprintf("season %d", season)}
		}
		list, err := s.febox.FolderFiles(ctx, febox.ShareKey(share), folder.ID)
		if err != nil {
			return nil, err
		}
		for _, f := range list {
			info, err := febox.ParseEpisode(f.FileName)
			if err != nil || info.Season != season || info.Episode != episode {
				continue
			}
			files = append(files, fileRef{fid: strconv.FormatInt(f.Fid, 10), name: f.FileName})
		}
	}
	if len(files) == 0 {
		return nil, &errs.ExtractionEmptyError{Provider: Name, What: "files"}
	}

	links, err := s.qualityLinks(ctx, files)
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return nil, &errs.ExtractionEmptyError{Provider: Name, What: "links"}
	}
	return links, nil
}

type fileRef struct {
	fid  string
	name string
}

type fileLinks struct {
	idx   int
	links []models.Link
	err   error
}

// qualityLinks fetches every file's variants concurrently. A file that fails is skipped unless
// all of them fail.
func (s *Scraper) qualityLinks(ctx context.Context, files []fileRef) ([]models.Link, error) {
	p := pool.NewWithResults[fileLinks]().WithMaxGoroutines(s.febox.MaxConcurrency())
	for i, f := range files {
		i, f := i, f
		p.Go(func() fileLinks {
			qs, err := s.febox.Qualities(ctx, f.fid)
			if err != nil {
				s.log.Warn("quality list failed", zap.String("fid", f.fid), zap.Error(err))
				return fileLinks{idx: i, err: err}
			}
			links := make([]models.Link, 0, len(qs))
			for _, q := range qs {
				links = append(links, models.Link{
					Label:   strings.TrimSpace(f.name + " " + q.Quality),
					URL:     q.URL,
					Host:    "febbox",
					Quality: q.Quality,
					Size:    q.Size,
				})
			}
			return fileLinks{idx: i, links: links}
		})
	}

	var (
		all      []models.Link
		firstErr error
		failed   int
	)
	results := p.Wait()
	sort.Slice(results, func(i, j int) bool { return results[i].idx < results[j].idx })
	for _, r := range results {
		if r.err != nil {
			failed++
			if firstErr == nil {
				firstErr = r.err
			}
			continue
		}
		all = append(all, r.links...)
	}
	if failed == len(results) && firstErr != nil {
		return nil, firstErr
	}
	return normalize.DedupLinks(all), nil
}
