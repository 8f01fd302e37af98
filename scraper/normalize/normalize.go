// Package normalize absolutises, de-duplicates and tags extracted items.
package normalize

import (
	"net/url"
	"strings"

	"github.com/amankumarsingh77/go-scraper-api/scraper/extract"
	"github.com/amankumarsingh77/go-scraper-api/scraper/models"
)

// AbsURL resolves raw against base, which may be the provider root or the page the reference was
// found on. Protocol-relative URLs get https, root-relative URLs land on the base origin, absolute
// URLs are returned unchanged. Non-navigable references yield "".
func AbsURL(raw, base string) string {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "", strings.HasPrefix(raw, "#"):
		return ""
	case strings.HasPrefix(raw, "//"):
		return "https:" + raw
	case strings.HasPrefix(raw, "http://"), strings.HasPrefix(raw, "https://"):
		return raw
	}

	lower := strings.ToLower(raw)
	for _, scheme := range []string{"javascript:", "mailto:", "data:", "tel:"} {
		if strings.HasPrefix(lower, scheme) {
			return ""
		}
	}

	b, err := url.Parse(base)
	if err != nil || b.Host == "" {
		if strings.HasPrefix(raw, "/") {
			return strings.TrimRight(base, "/") + raw
		}
		return ""
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return b.ResolveReference(ref).String()
}

// URLSet remembers URLs in insertion order semantics: the first Add wins.
type URLSet struct {
	seen map[string]struct{}
}

func NewURLSet() *URLSet {
	return &URLSet{seen: make(map[string]struct{})}
}

// Add returns true when u was not seen before.
func (s *URLSet) Add(u string) bool {
	if _, ok := s.seen[u]; ok {
		return false
	}
	s.seen[u] = struct{}{}
	return true
}

func (s *URLSet) Len() int { return len(s.seen) }

// Normalize converts extracted items into results for provider. Items lacking a title or a usable URL
// are dropped and duplicate URLs keep their first occurrence.
func Normalize(items []extract.Item, base, provider string) []models.Result {
	results := make([]models.Result, 0, len(items))
	seen := NewURLSet()

	for _, it := range items {
		title := extract.CollapseSpace(it.Get("title"))
		link := AbsURL(it.Get("url"), base)
		if title == "" || link == "" {
			continue
		}
		if !seen.Add(link) {
			continue
		}

		r := models.Result{
			Title:    title,
			URL:      link,
			ImageURL: AbsURL(it.Get("image"), base),
			Quality:  it.Get("quality"),
			Size:     it.Get("size"),
			Language: it.Get("language"),
			Type:     it.Get("type"),
			Year:     it.Get("year"),
			Duration: it.Get("duration"),
			Rating:   it.Get("rating"),
			Views:    it.Get("views"),
			Provider: provider,
		}
		if r.Quality == "" {
			r.Quality = extract.DetectQuality(title)
		}
		if r.Size == "" {
			r.Size = extract.DetectSize(title)
		}
		if r.Language == "" {
			r.Language = extract.DetectLanguage(title)
		}
		results = append(results, r)
	}
	return results
}

// DedupLinks drops links with an empty or already seen URL, keeping the first occurrence.
func DedupLinks(links []models.Link) []models.Link {
	out := make([]models.Link, 0, len(links))
	seen := NewURLSet()
	for _, l := range links {
		if l.URL == "" || !seen.Add(l.URL) {
			continue
		}
		out = append(out, l)
	}
	return out
}
