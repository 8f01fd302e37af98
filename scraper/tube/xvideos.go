package tube

import (
	"context"
	"regexp"
	"strings"

	"github.com/amankumarsingh77/go-scraper-api/scraper/extract"
	"github.com/amankumarsingh77/go-scraper-api/scraper/models"
	"github.com/amankumarsingh77/go-scraper-api/scraper/normalize"
	"github.com/amankumarsingh77/go-scraper-api/scraper/provider"
)

var (
	playerCallRe = regexp.MustCompile(`html5player\.(setVideoUrlLow|setVideoUrlHigh|setVideoHLS|setVideoTitle|setThumbUrl169)\(\s*['"]([^'"]*)['"]\s*\)`)
)

type XVideos struct {
	base
}

func NewXVideos(g *provider.Generic) *XVideos {
	return &XVideos{base{g}}
}

type relatedEntry struct {
	URL      string `json:"u"`
	Image    string `json:"i"`
	Title    string `json:"tf"`
	Duration string `json:"d"`
}

func (x *XVideos) Streams(ctx context.Context, pageURL string) (*models.StreamSet, error) {
	p, err := x.load(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	src := p.raw.Text()

	set := &models.StreamSet{}
	for _, m := range playerCallRe.FindAllStringSubmatch(src, -1) {
		val := strings.ReplaceAll(m[2], `\/`, "/")
		switch m[1] {
		case "setVideoTitle":
			set.Title = extract.CollapseSpace(val)
		case "setThumbUrl169":
			set.Thumbnail = val
		case "setVideoUrlHigh":
			set.Streams = append(set.Streams, models.Stream{Quality: "high", URL: val, Format: streamFormat(val)})
		case "setVideoUrlLow":
			set.Streams = append(set.Streams, models.Stream{Quality: "low", URL: val, Format: streamFormat(val)})
		case "setVideoHLS":
			set.Streams = append(set.Streams, models.Stream{Quality: "auto", URL: val, Format: models.FormatHLS})
		}
	}
	if set.Title == "" {
		set.Title = p.meta("og:title")
	}
	if set.Thumbnail == "" {
		set.Thumbnail = p.meta("og:image")
	}
	set.Duration = p.meta("og:duration")

	var related []relatedEntry
	if err := extract.DecodeScriptVar(src, "video_related", &related); err == nil {
		for _, r := range related {
			link := normalize.AbsURL(r.URL, p.url)
			if r.Title == "" || link == "" {
				continue
			}
			set.Related = append(set.Related, models.Result{
				Title:    extract.CollapseSpace(r.Title),
				URL:      link,
				ImageURL: r.Image,
				Duration: r.Duration,
				Provider: x.Name(),
			})
		}
	}
	return x.finish(set, pageURL)
}
