package tube

import (
	"context"
	"maps"
	"slices"
	"strings"

	"github.com/amankumarsingh77/go-scraper-api/scraper/extract"
	"github.com/amankumarsingh77/go-scraper-api/scraper/models"
	"github.com/amankumarsingh77/go-scraper-api/scraper/normalize"
	"github.com/amankumarsingh77/go-scraper-api/scraper/provider"
)

type SpankBang struct {
	base
}

func NewSpankBang(g *provider.Generic) *SpankBang {
	return &SpankBang{base{g}}
}

// Streams reads `var stream_data = {...}`: one array of URLs per quality key plus m3u8 manifests.
func (s *SpankBang) Streams(ctx context.Context, pageURL string) (*models.StreamSet, error) {
	p, err := s.load(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	var data map[string]any
	if err := extract.DecodeScriptVar(p.raw.Text(), "stream_data", &data); err != nil {
		return nil, s.scriptErr(err)
	}

	set := &models.StreamSet{
		Title:     extract.CollapseSpace(p.doc.Find("h1").First().Text()),
		Thumbnail: normalize.AbsURL(p.meta("og:image"), p.url),
	}
	if set.Title == "" {
		set.Title = p.meta("og:title")
	}
	for _, key := range slices.Sorted(maps.Keys(data)) {
		urls := stringList(data[key])
		switch {
		case strings.HasPrefix(key, "m3u8"):
			quality := "auto"
			if q := strings.TrimPrefix(strings.TrimPrefix(key, "m3u8"), "_"); qualityHeight(q) > 0 {
				quality = q
			}
			for _, u := range urls {
				set.Streams = append(set.Streams, models.Stream{Quality: quality, URL: normalize.AbsURL(u, p.url), Format: models.FormatHLS})
			}
		case qualityHeight(key) > 0:
			for _, u := range urls {
				u = normalize.AbsURL(u, p.url)
				set.Streams = append(set.Streams, models.Stream{Quality: key, URL: u, Format: streamFormat(u)})
			}
		}
	}
	return s.finish(set, pageURL)
}

func stringList(v any) []string {
	switch t := v.(type) {
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	case []any:
		var out []string
		for _, e := range t {
			if s, ok := e.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
