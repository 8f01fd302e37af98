package febox

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/amankumarsingh77/go-scraper-api/scraper/extract"
)

func parseQualities(html string) ([]VideoQuality, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse quality list: %w", err)
	}

	videos := make([]VideoQuality, 0)
	doc.Find(".file_quality").Each(func(_ int, s *goquery.Selection) {
		link := strings.TrimSpace(s.AttrOr("data-url", ""))
		if link == "" {
			return
		}
		videos = append(videos, VideoQuality{
			Quality: strings.TrimSpace(s.AttrOr("data-quality", "")),
			URL:     link,
			Size:    extract.CollapseSpace(s.Find(".desc .size").Text()),
		})
	})
	return videos, nil
}

var episodePatterns = []*regexp.Regexp{
	regexp.MustCompile(`[Ss](\d+)[Ee](\d+)`), // S03E05
	regexp.MustCompile(`\.(\d+)x(\d+)\.`),    // .3x05.
}

// ParseEpisode reads season, episode, quality and codec from a release file name.
func ParseEpisode(filename string) (EpisodeInfo, error) {
	var season, episode int
	matched := false
	for _, re := range episodePatterns {
		if m := re.FindStringSubmatch(filename); len(m) == 3 {
			season, _ = strconv.Atoi(m[1])
			episode, _ = strconv.Atoi(m[2])
			matched = true
			break
		}
	}
	if !matched {
		return EpisodeInfo{}, fmt.Errorf("could not extract episode info from: %s", filename)
	}

	quality := "Standard"
	switch {
	case strings.Contains(filename, "1080p"):
		quality = "1080p"
	case strings.Contains(filename, "720p"):
		quality = "720p"
	case strings.Contains(filename, "2160p"), strings.Contains(filename, "4K"):
		quality = "4K"
	}

	codec := "Unknown"
	switch {
	case strings.Contains(filename, "x265"), strings.Contains(filename, "HEVC"):
		codec = "HEVC/x265"
	case strings.Contains(filename, "x264"), strings.Contains(filename, "h264"):
		codec = "H.264/x264"
	case strings.Contains(filename, "AV1"):
		codec = "AV1"
	}

	return EpisodeInfo{Season: season, Episode: episode, Quality: quality, Codec: codec}, nil
}

var seasonNameRe = regexp.MustCompile(`(?i)season\s*0*(\d+)|\bS0*(\d+)\b`)

// FindSeason picks the folder of a season by name. Position is used only when no folder is named
// after a season.
func FindSeason(entries []ShareEntry, season int) (ShareEntry, bool) {
	named := false
	for _, e := range entries {
		m := seasonNameRe.FindStringSubmatch(e.Name)
		if m == nil {
			continue
		}
		named = true
		n := m[1]
		if n == "" {
			n = m[2]
		}
		if v, _ := strconv.Atoi(n); v == season {
			return e, true
		}
	}
	if !named && season >= 1 && season <= len(entries) {
		return entries[season-1], true
	}
	return ShareEntry{}, false
}
