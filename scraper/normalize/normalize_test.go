package normalize

import (
	"testing"

	"github.com/amankumarsingh77/go-scraper-api/scraper/extract"
	"github.com/amankumarsingh77/go-scraper-api/scraper/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAbsURL(t *testing.T) {
	const base = "https://site.example"
	tests := []struct {
		raw  string
		want string
	}{
		{"//cdn.site.example/x.jpg", "https://cdn.site.example/x.jpg"},
		{"/movie/1", "https://site.example/movie/1"},
		{"https://other.example/a", "https://other.example/a"},
		{"http://plain.example/a", "http://plain.example/a"},
		{"page-2.html", "https://site.example/page-2.html"},
		{"", ""},
		{"#top", ""},
		{"javascript:void(0)", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AbsURL(tt.raw, base), tt.raw)
	}
	assert.Equal(t, "https://site.example/movie/1", AbsURL("/movie/1", base+"/"))
	assert.Equal(t, "https://site.example/img/p.jpg", AbsURL("/img/p.jpg", base+"/movie/1/"))
}

func TestNormalizeDropsAndDedups(t *testing.T) {
	items := []extract.Item{
		{"title": "First 1080p [2.1GB] Hindi", "url": "/a", "image": "//img.example/a.jpg"},
		{"title": "", "url": "/b"},
		{"title": "No url"},
		{"title": "Duplicate of first", "url": "https://site.example/a"},
		{"title": "Second", "url": "https://elsewhere.example/c", "quality": "HDRip"},
	}

	got := Normalize(items, "https://site.example", "demo")
	require.Len(t, got, 2)

	assert.Equal(t, models.Result{
		Title:    "First 1080p [2.1GB] Hindi",
		URL:      "https://site.example/a",
		ImageURL: "https://img.example/a.jpg",
		Quality:  "1080p",
		Size:     "2.1 GB",
		Language: "Hindi",
		Provider: "demo",
	}, got[0])
	assert.Equal(t, "HDRip", got[1].Quality)
	assert.Equal(t, "https://elsewhere.example/c", got[1].URL)
}

func TestNormalizeIsDeterministic(t *testing.T) {
	items := []extract.Item{{"title": "A", "url": "/a"}, {"title": "B", "url": "/b"}}
	assert.Equal(t, Normalize(items, "https://x.example", "p"), Normalize(items, "https://x.example", "p"))
}

func TestDedupLinks(t *testing.T) {
	links := []models.Link{
		{Label: "one", URL: "https://hubcloud.art/1"},
		{Label: "dup", URL: "https://hubcloud.art/1"},
		{Label: "empty"},
		{Label: "two", URL: "https://gdflix.dad/2"},
	}
	got := DedupLinks(links)
	require.Len(t, got, 2)
	assert.Equal(t, "one", got[0].Label)
	assert.Equal(t, "two", got[1].Label)
}

func TestClassifyHost(t *testing.T) {
	tests := map[string]string{
		"https://hubcloud.one/drive/abc":        "hubcloud",
		"https://new3.gdflix.dad/file/x":        "gdflix",
		"https://hubdrive.wales/file/1":         "hubdrive",
		"https://pixeldrain.com/u/1":            "pixeldrain",
		"https://www.febbox.com/share/abc":      "febbox",
		"https://drive.google.com/file/d/1":     "gdrive",
		"https://unknown.example/somewhere":     "other",
		"https://hubcloud-gdflix.example/mixed": "hubcloud",
	}
	for in, want := range tests {
		assert.Equal(t, want, ClassifyHost(in), in)
	}
}
