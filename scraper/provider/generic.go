package provider

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/amankumarsingh77/go-scraper-api/scraper/errs"
	"github.com/amankumarsingh77/go-scraper-api/scraper/extract"
	"github.com/amankumarsingh77/go-scraper-api/scraper/fetch"
	"github.com/amankumarsingh77/go-scraper-api/scraper/models"
	"github.com/amankumarsingh77/go-scraper-api/scraper/normalize"
	"github.com/dyatlov/go-opengraph/opengraph"
	"go.uber.org/zap"
)

type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, opts fetch.Options) (*fetch.RawDocument, error)
}

// Generic scrapes any site described by a Descriptor.
type Generic struct {
	desc    Descriptor
	fetcher Fetcher
	bases   BaseURLs
	log     *zap.Logger
}

func NewGeneric(d Descriptor, f Fetcher, bases BaseURLs, log *zap.Logger) *Generic {
	if log == nil {
		log = zap.NewNop()
	}
	return &Generic{desc: d, fetcher: f, bases: bases, log: log.Named(d.Name)}
}

func (g *Generic) Name() string { return g.desc.Name }

func (g *Generic) Descriptor() Descriptor { return g.desc }

func (g *Generic) Capabilities() []Capability {
	var caps []Capability
	if g.desc.Search != nil {
		caps = append(caps, CapSearch)
	}
	if g.desc.Latest != nil {
		caps = append(caps, CapLatest)
	}
	if g.desc.Detail != nil {
		caps = append(caps, CapDetails)
	}
	return caps
}

// BaseURL returns the live base URL without a trailing slash.
func (g *Generic) BaseURL(ctx context.Context) (string, error) {
	if g.bases == nil {
		return strings.TrimRight(g.desc.BaseURL, "/"), nil
	}
	base, err := g.bases.BaseURL(ctx, g.desc.Key())
	if err != nil {
		return "", fmt.Errorf("%s: base url: %w", g.desc.Name, err)
	}
	return strings.TrimRight(base, "/"), nil
}

// Fetch retrieves a page with the provider's proxy setting.
func (g *Generic) Fetch(ctx context.Context, rawURL string) (*fetch.RawDocument, error) {
	return g.fetcher.Fetch(ctx, rawURL, fetch.Options{UseProxy: g.desc.UseProxy})
}

// CheckPageURL validates that pageURL belongs to this provider before anything is fetched.
func (g *Generic) CheckPageURL(ctx context.Context, pageURL string) error {
	base, err := g.BaseURL(ctx)
	if err != nil {
		return err
	}
	hosts := append([]string{}, g.desc.Hosts...)
	if u, err := url.Parse(base); err == nil && u.Hostname() != "" {
		hosts = append(hosts, u.Hostname())
	}
	if u, err := url.Parse(g.desc.BaseURL); err == nil && u.Hostname() != "" {
		hosts = append(hosts, u.Hostname())
	}
	_, err = fetch.RequireHost(pageURL, hosts...)
	return err
}

func (g *Generic) Search(ctx context.Context, query string, page int) ([]models.Result, error) {
	if g.desc.Search == nil {
		return nil, errs.Invalid("provider", g.desc.Name+" does not support search")
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errs.Invalid("q", "is required")
	}
	return g.listing(ctx, g.desc.Search, query, page)
}

func (g *Generic) Latest(ctx context.Context, page int) ([]models.Result, error) {
	if g.desc.Latest == nil {
		return nil, errs.Invalid("provider", g.desc.Name+" does not support latest")
	}
	return g.listing(ctx, g.desc.Latest, "", page)
}

func expandPath(path, query string, page int) string {
	return strings.NewReplacer(
		"{query}", url.QueryEscape(query),
		"{query_path}", url.PathEscape(query),
		"{page}", strconv.Itoa(page),
		"{page0}", strconv.Itoa(page-1),
	).Replace(path)
}

func (g *Generic) listing(ctx context.Context, l *Listing, query string, page int) ([]models.Result, error) {
	if page < 1 {
		page = 1
	}
	base, err := g.BaseURL(ctx)
	if err != nil {
		return nil, err
	}

	path := l.Path
	if page == 1 && l.FirstPagePath != "" {
		path = l.FirstPagePath
	}
	target := normalize.AbsURL(expandPath(path, query, page), base)

	raw, err := g.Fetch(ctx, target)
	if err != nil {
		return nil, err
	}
	doc, err := raw.HTML()
	if err != nil {
		return nil, err
	}

	urlBase := base
	if l.URLRule == URLRulePage {
		urlBase = target
	}
	results := normalize.Normalize(extract.Select(doc.Selection, l.Schema), urlBase, g.desc.Name)
	g.log.Debug("listing scraped", zap.String("url", target), zap.Int("results", len(results)))
	return results, nil
}

func (g *Generic) Details(ctx context.Context, pageURL string) (*models.Detail, error) {
	if g.desc.Detail == nil {
		return nil, errs.Invalid("provider", g.desc.Name+" does not support details")
	}
	if err := g.CheckPageURL(ctx, pageURL); err != nil {
		return nil, err
	}

	raw, err := g.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	doc, err := raw.HTML()
	if err != nil {
		return nil, err
	}

	page := raw.FinalURL
	if page == "" {
		page = pageURL
	}
	spec := g.desc.Detail
	root := doc.Selection

	detail := &models.Detail{
		Title:       extract.FirstText(root, spec.Title...),
		URL:         pageURL,
		ImageURL:    normalize.AbsURL(extract.FirstAttr(root, spec.Image, "data-src", "src", "content"), page),
		Description: extract.FirstText(root, spec.Description...),
		Links:       SweepLinks(root, spec.Links, page),
		Provider:    g.desc.Name,
	}
	if spec.Info != nil {
		detail.Info = ReadInfo(root, *spec.Info)
	}
	if detail.Title == "" || detail.ImageURL == "" || detail.Description == "" {
		fillFromOpenGraph(detail, raw.Body, page)
	}

	if detail.Title == "" && len(detail.Links) == 0 {
		return nil, &errs.ExtractionEmptyError{Provider: g.desc.Name, What: "details"}
	}
	return detail, nil
}

func fillFromOpenGraph(d *models.Detail, body []byte, page string) {
	og := opengraph.NewOpenGraph()
	if err := og.ProcessHTML(bytes.NewReader(body)); err != nil {
		return
	}
	if d.Title == "" {
		d.Title = extract.CollapseSpace(og.Title)
	}
	if d.Description == "" {
		d.Description = extract.CollapseSpace(og.Description)
	}
	if d.ImageURL == "" && len(og.Images) > 0 && og.Images[0] != nil {
		d.ImageURL = normalize.AbsURL(og.Images[0].URL, page)
	}
}

// ReadInfo collects label/value rows keyed by the lower-cased label.
func ReadInfo(root *goquery.Selection, spec InfoSpec) map[string]string {
	info := make(map[string]string)
	root.Find(spec.Row).Each(func(_ int, s *goquery.Selection) {
		label := extract.CollapseSpace(s.Find(spec.Label).First().Text())
		if label == "" {
			return
		}
		value := strings.TrimPrefix(extract.CollapseSpace(s.Text()), label)
		value = strings.TrimSpace(strings.TrimLeft(value, ": "))
		key := strings.ToLower(strings.TrimRight(label, ": "))
		if value != "" {
			info[key] = value
		}
	})
	return info
}

// SweepLinks applies every selector of spec, absolutises and host-tags the links and drops duplicates.
func SweepLinks(root *goquery.Selection, spec LinkSpec, pageURL string) []models.Link {
	var links []models.Link
	add := func(a *goquery.Selection, label string) {
		href := normalize.AbsURL(extract.Attr(a, "href", "data-href", "data-url"), pageURL)
		if href == "" || href == pageURL {
			return
		}
		if len(spec.Hosts) > 0 {
			u, err := url.Parse(href)
			if err != nil || !fetch.HostMatches(u.Hostname(), spec.Hosts...) {
				return
			}
		}
		text := strings.TrimSpace(label + " " + extract.CollapseSpace(a.Text()))
		links = append(links, models.Link{
			Label:   text,
			URL:     href,
			Host:    normalize.ClassifyHost(href),
			Quality: extract.DetectQuality(text),
			Size:    extract.DetectSize(text),
		})
	}

	if spec.Container != "" {
		root.Find(spec.Container).Each(func(_ int, card *goquery.Selection) {
			label := ""
			if spec.Label != "" {
				label = extract.CollapseSpace(card.Find(spec.Label).First().Text())
			}
			for _, sel := range spec.Selectors {
				card.Find(sel).Each(func(_ int, a *goquery.Selection) { add(a, label) })
			}
		})
	} else {
		for _, sel := range spec.Selectors {
			root.Find(sel).Each(func(_ int, a *goquery.Selection) { add(a, "") })
		}
	}
	return normalize.DedupLinks(links)
}
