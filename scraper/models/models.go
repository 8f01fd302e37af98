package models

// Result is one entry of a search or listing page.
type Result struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	ImageURL string `json:"imageUrl,omitempty"`
	Quality  string `json:"quality,omitempty"`
	Size     string `json:"size,omitempty"`
	Language string `json:"language,omitempty"`
	Type     string `json:"type,omitempty"`
	Year     string `json:"year,omitempty"`
	Duration string `json:"duration,omitempty"`
	Rating   string `json:"rating,omitempty"`
	Views    string `json:"views,omitempty"`
	Provider string `json:"provider"`
}

// Link is a download or watch link found on a detail page.
type Link struct {
	Label   string `json:"label,omitempty"`
	URL     string `json:"url"`
	Host    string `json:"host,omitempty"`
	Quality string `json:"quality,omitempty"`
	Size    string `json:"size,omitempty"`
}

type Detail struct {
	Title       string            `json:"title"`
	URL         string            `json:"url"`
	ImageURL    string            `json:"imageUrl,omitempty"`
	Description string            `json:"description,omitempty"`
	Info        map[string]string `json:"info,omitempty"`
	Links       []Link            `json:"links"`
	Provider    string            `json:"provider"`
}

type Stream struct {
	Quality string `json:"quality"`
	URL     string `json:"url"`
	Format  string `json:"format"`
}

const (
	FormatMP4 = "mp4"
	FormatHLS = "hls"
	FormatMPD = "dash"
)

// StreamSet is what a video page yields: playable sources plus related entries.
type StreamSet struct {
	Title     string   `json:"title"`
	URL       string   `json:"url"`
	Thumbnail string   `json:"thumbnail,omitempty"`
	Duration  string   `json:"duration,omitempty"`
	Streams   []Stream `json:"streams"`
	Related   []Result `json:"related,omitempty"`
	Provider  string   `json:"provider"`
}

// Hop is one step of a resolved link chain.
type Hop struct {
	URL  string `json:"url"`
	Rule string `json:"rule"`
	Next string `json:"next"`
}

// TerminalLink is the end of a resolved chain: a direct file, manifest or CDN URL.
type TerminalLink struct {
	Entry    string `json:"entry"`
	URL      string `json:"url"`
	Host     string `json:"host,omitempty"`
	Format   string `json:"format,omitempty"`
	Chain    []Hop  `json:"chain"`
	HopCount int    `json:"hops"`
}
