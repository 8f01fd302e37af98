package handlers

import (
	"strconv"

	"github.com/amankumarsingh77/go-scraper-api/scraper/errs"
	"github.com/gin-gonic/gin"
)

// MetaSearch handles GET /api/meta/search?q=&type=movie|tv&page=
func (h *Handler) MetaSearch(c *gin.Context) {
	query := firstQuery(c, "q", "query")
	if query == "" {
		fail(c, errs.Invalid("q", "is required"))
		return
	}
	page, err := intQuery(c, "page", 1)
	if err != nil {
		fail(c, err)
		return
	}
	kind := firstQuery(c, "type")

	results, err := h.tmdb.Search(c.Request.Context(), query, kind, page)
	list(c, results, err, gin.H{"provider": "tmdb", "query": query, "page": page})
}

// MetaDetails handles GET /api/meta/:type/:id, with ?season= for a single tv season.
func (h *Handler) MetaDetails(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 1 {
		fail(c, errs.Invalid("id", "must be a numeric tmdb id"))
		return
	}
	ctx := c.Request.Context()

	switch c.Param("type") {
	case "movie":
		movie, err := h.tmdb.GetMovieDetails(ctx, id)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, movie, nil)
	case "tv":
		season, err := intQuery(c, "season", 0)
		if err != nil {
			fail(c, err)
			return
		}
		if season > 0 {
			s, err := h.tmdb.GetTVSeasonDetails(ctx, id, season)
			if err != nil {
				fail(c, err)
				return
			}
			ok(c, s, nil)
			return
		}
		tv, err := h.tmdb.GetTVDetails(ctx, id)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, tv, nil)
	default:
		fail(c, errs.Invalid("type", "must be movie or tv"))
	}
}
