// Package tube adds stream extraction to the video providers whose search comes from descriptors.
package tube

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/amankumarsingh77/go-scraper-api/scraper/errs"
	"github.com/amankumarsingh77/go-scraper-api/scraper/extract"
	"github.com/amankumarsingh77/go-scraper-api/scraper/fetch"
	"github.com/amankumarsingh77/go-scraper-api/scraper/models"
	"github.com/amankumarsingh77/go-scraper-api/scraper/normalize"
	"github.com/amankumarsingh77/go-scraper-api/scraper/provider"
)

// base is the descriptor engine plus the streams capability.
type base struct {
	*provider.Generic
}

func (b base) Capabilities() []provider.Capability {
	return append(b.Generic.Capabilities(), provider.CapStreams)
}

type page struct {
	url string
	raw *fetch.RawDocument
	doc *goquery.Document
}

func (b base) load(ctx context.Context, pageURL string) (*page, error) {
	if err := b.CheckPageURL(ctx, pageURL); err != nil {
		return nil, err
	}
	raw, err := b.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	doc, err := raw.HTML()
	if err != nil {
		return nil, err
	}
	u := raw.FinalURL
	if u == "" {
		u = pageURL
	}
	return &page{url: u, raw: raw, doc: doc}, nil
}

func (p *page) meta(property string) string {
	return extract.FirstAttr(p.doc.Selection, []string{
		fmt.Sprintf("meta[property='%s']", property),
		fmt.Sprintf("meta[name='%s']", property),
	}, "content")
}

func (b base) finish(set *models.StreamSet, pageURL string) (*models.StreamSet, error) {
	set.URL = pageURL
	set.Provider = b.Name()
	set.Streams = sortStreams(dedupStreams(set.Streams))
	if len(set.Streams) == 0 {
		return nil, &errs.ExtractionEmptyError{Provider: b.Name(), What: "streams"}
	}
	if set.Related == nil {
		set.Related = []models.Result{}
	}
	return set, nil
}

// scriptErr reports a page without the expected player variable as empty rather than broken.
func (b base) scriptErr(err error) error {
	if errors.Is(err, extract.ErrNotFound) {
		return &errs.ExtractionEmptyError{Provider: b.Name(), What: "streams"}
	}
	return fmt.Errorf("%s: %w", b.Name(), err)
}

func streamFormat(link string) string {
	path := strings.ToLower(link)
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	switch {
	case strings.HasSuffix(path, ".m3u8"):
		return models.FormatHLS
	case strings.HasSuffix(path, ".mpd"):
		return models.FormatMPD
	}
	return models.FormatMP4
}

func dedupStreams(in []models.Stream) []models.Stream {
	seen := normalize.NewURLSet()
	out := make([]models.Stream, 0, len(in))
	for _, s := range in {
		if s.URL == "" || !seen.Add(s.URL) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// qualityHeight turns "1080p" or "4k" into a comparable number; unknown labels sort last.
func qualityHeight(q string) int {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "4k" {
		return 2160
	}
	n, err := strconv.Atoi(strings.TrimSuffix(q, "p"))
	if err != nil {
		return 0
	}
	return n
}

// sortStreams puts progressive files first, highest quality first, and manifests after them.
// Equal entries are ordered by URL.
func sortStreams(s []models.Stream) []models.Stream {
	sort.SliceStable(s, func(i, j int) bool {
		mi, mj := s[i].Format == models.FormatMP4, s[j].Format == models.FormatMP4
		if mi != mj {
			return mi
		}
		if hi, hj := qualityHeight(s[i].Quality), qualityHeight(s[j].Quality); hi != hj {
			return hi > hj
		}
		return s[i].URL < s[j].URL
	})
	return s
}

func formatSeconds(sec int) string {
	if sec <= 0 {
		return ""
	}
	h, m, s := sec/3600, (sec%3600)/60, sec%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
