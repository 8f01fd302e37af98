package normalize

import (
	"net/url"
	"strings"
)

// hostKeywords is checked in order, first hit wins.
var hostKeywords = []struct {
	keyword string
	name    string
}{
	{"hubcloud", "hubcloud"},
	{"gdflix", "gdflix"},
	{"hubdrive", "hubdrive"},
	{"hubcdn", "hubcdn"},
	{"filesdl", "filesdl"},
	{"linkmake", "linkmake"},
	{"gofile", "gofile"},
	{"pixeldrain", "pixeldrain"},
	{"febbox", "febbox"},
	{"streamtape", "streamtape"},
	{"dood", "doodstream"},
	{"mega.nz", "mega"},
	{"drive.google", "gdrive"},
}

// ClassifyHost names the file host behind link, or "other".
func ClassifyHost(link string) string {
	host := link
	if u, err := url.Parse(link); err == nil && u.Host != "" {
		host = u.Host
	}
	host = strings.ToLower(host)
	for _, k := range hostKeywords {
		if strings.Contains(host, k.keyword) {
			return k.name
		}
	}
	return "other"
}
