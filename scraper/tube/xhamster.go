package tube

import (
	"context"

	"github.com/amankumarsingh77/go-scraper-api/scraper/extract"
	"github.com/amankumarsingh77/go-scraper-api/scraper/models"
	"github.com/amankumarsingh77/go-scraper-api/scraper/normalize"
	"github.com/amankumarsingh77/go-scraper-api/scraper/provider"
	"github.com/tidwall/gjson"
)

type XHamster struct {
	base
}

func NewXHamster(g *provider.Generic) *XHamster {
	return &XHamster{base{g}}
}

// Streams reads the page state in `window.initials`. The payload is large and only a few paths
// matter, so it is queried in place instead of being decoded.
func (x *XHamster) Streams(ctx context.Context, pageURL string) (*models.StreamSet, error) {
	p, err := x.load(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	payload, err := extract.ScriptVar(p.raw.Text(), "window.initials")
	if err != nil {
		return nil, x.scriptErr(err)
	}
	if !gjson.Valid(payload) {
		return nil, x.scriptErr(extract.ErrMalformed)
	}
	state := gjson.Parse(payload)
	video := state.Get("videoModel")

	set := &models.StreamSet{
		Title:     video.Get("title").String(),
		Thumbnail: normalize.AbsURL(video.Get("thumbURL").String(), p.url),
		Duration:  formatSeconds(int(video.Get("duration").Int())),
	}
	if set.Title == "" {
		set.Title = p.meta("og:title")
	}

	sources := state.Get("xplayerSettings.sources")
	sources.Get("standard.h264").ForEach(func(_, v gjson.Result) bool {
		u := normalize.AbsURL(v.Get("url").String(), p.url)
		if u == "" {
			u = normalize.AbsURL(v.Get("fallback").String(), p.url)
		}
		set.Streams = append(set.Streams, models.Stream{Quality: v.Get("quality").String(), URL: u, Format: streamFormat(u)})
		return true
	})
	if hls := sources.Get("hls.h264.url").String(); hls != "" {
		set.Streams = append(set.Streams, models.Stream{Quality: "auto", URL: normalize.AbsURL(hls, p.url), Format: models.FormatHLS})
	}

	state.Get("videoTitleRelated.videoThumbProps").ForEach(func(_, v gjson.Result) bool {
		title, link := v.Get("title").String(), normalize.AbsURL(v.Get("pageURL").String(), p.url)
		if title == "" || link == "" {
			return true
		}
		set.Related = append(set.Related, models.Result{
			Title:    title,
			URL:      link,
			ImageURL: v.Get("thumbURL").String(),
			Duration: formatSeconds(int(v.Get("duration").Int())),
			Provider: x.Name(),
		})
		return true
	})
	return x.finish(set, pageURL)
}
