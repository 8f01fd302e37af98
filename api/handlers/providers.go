package handlers

import (
	"context"

	"github.com/amankumarsingh77/go-scraper-api/scraper/errs"
	"github.com/amankumarsingh77/go-scraper-api/scraper/fetch"
	"github.com/amankumarsingh77/go-scraper-api/scraper/models"
	"github.com/amankumarsingh77/go-scraper-api/scraper/provider"
	"github.com/gin-gonic/gin"
)

// linker is implemented by providers that turn a title id into download links.
type linker interface {
	provider.Provider
	Links(ctx context.Context, id, kind string, season, episode int) ([]models.Link, error)
}

// ListProviders handles GET /api/providers
func (h *Handler) ListProviders(c *gin.Context) {
	infos := h.registry.List()
	ok(c, infos, gin.H{"count": len(infos)})
}

// ProviderSearch handles GET /api/:provider/search?q=&page=
func (h *Handler) ProviderSearch(c *gin.Context) {
	p, err := h.lookup(c)
	if err != nil {
		fail(c, err)
		return
	}
	s, isSearcher := p.(provider.Searcher)
	if !isSearcher || !provider.Has(p, provider.CapSearch) {
		fail(c, unsupported(p, "search"))
		return
	}
	query := firstQuery(c, "q", "s", "search")
	if query == "" {
		fail(c, errs.Invalid("q", "is required"))
		return
	}
	page, err := intQuery(c, "page", 1)
	if err != nil {
		fail(c, err)
		return
	}

	results, err := s.Search(c.Request.Context(), query, page)
	list(c, results, err, gin.H{"provider": p.Name(), "query": query, "page": page})
}

// Latest handles GET /api/:provider/latest?page=
func (h *Handler) Latest(c *gin.Context) {
	p, err := h.lookup(c)
	if err != nil {
		fail(c, err)
		return
	}
	l, isLister := p.(provider.Lister)
	if !isLister || !provider.Has(p, provider.CapLatest) {
		fail(c, unsupported(p, "latest"))
		return
	}
	page, err := intQuery(c, "page", 1)
	if err != nil {
		fail(c, err)
		return
	}

	results, err := l.Latest(c.Request.Context(), page)
	list(c, results, err, gin.H{"provider": p.Name(), "page": page})
}

// list answers a listing. Nothing found is still a success with an empty array.
func list(c *gin.Context, results []models.Result, err error, extra gin.H) {
	if err != nil && !isEmpty(err) {
		fail(c, err)
		return
	}
	if results == nil {
		results = []models.Result{}
	}
	extra["count"] = len(results)
	ok(c, results, extra)
}

// pageURL reads and checks the url parameter before anything is fetched.
func pageURL(c *gin.Context) (string, error) {
	raw := firstQuery(c, "url")
	if raw == "" {
		return "", errs.Invalid("url", "is required")
	}
	if _, err := fetch.ParseHTTPURL(raw); err != nil {
		return "", err
	}
	return raw, nil
}

// Details handles GET /api/:provider/details?url=
func (h *Handler) Details(c *gin.Context) {
	p, err := h.lookup(c)
	if err != nil {
		fail(c, err)
		return
	}
	d, isDetailer := p.(provider.Detailer)
	if !isDetailer || !provider.Has(p, provider.CapDetails) {
		fail(c, unsupported(p, "details"))
		return
	}
	target, err := pageURL(c)
	if err != nil {
		fail(c, err)
		return
	}

	detail, err := d.Details(c.Request.Context(), target)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, detail, nil)
}

// Streams handles GET /api/:provider/streams?url=
func (h *Handler) Streams(c *gin.Context) {
	p, err := h.lookup(c)
	if err != nil {
		fail(c, err)
		return
	}
	s, isStreamer := p.(provider.Streamer)
	if !isStreamer || !provider.Has(p, provider.CapStreams) {
		fail(c, unsupported(p, "streams"))
		return
	}
	target, err := pageURL(c)
	if err != nil {
		fail(c, err)
		return
	}

	set, err := s.Streams(c.Request.Context(), target)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, set, gin.H{"count": len(set.Streams)})
}

// Links handles GET /api/:provider/links?id=&type=movie|tv&season=&episode=
func (h *Handler) Links(c *gin.Context) {
	p, err := h.lookup(c)
	if err != nil {
		fail(c, err)
		return
	}
	l, isLinker := p.(linker)
	if !isLinker || !provider.Has(p, provider.CapLinks) {
		fail(c, unsupported(p, "links"))
		return
	}
	id := firstQuery(c, "id")
	if id == "" {
		fail(c, errs.Invalid("id", "is required"))
		return
	}
	season, err := intQuery(c, "season", 0)
	if err != nil {
		fail(c, err)
		return
	}
	episode, err := intQuery(c, "episode", 0)
	if err != nil {
		fail(c, err)
		return
	}
	kind := firstQuery(c, "type")

	links, err := l.Links(c.Request.Context(), id, kind, season, episode)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, links, gin.H{"count": len(links)})
}
