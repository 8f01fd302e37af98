package resolve

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/amankumarsingh77/go-scraper-api/scraper/extract"
	"github.com/amankumarsingh77/go-scraper-api/scraper/fetch"
	"github.com/amankumarsingh77/go-scraper-api/scraper/normalize"
)

const DefaultMaxHops = 3

// Target is a selector whose attribute (href by default) holds a URL.
type Target struct {
	Selector string   `yaml:"selector" validate:"required"`
	Attr     []string `yaml:"attr"`
}

// HopRule describes one intermediary site of a download chain.
type HopRule struct {
	Name string `yaml:"name" validate:"required"`
	// Hosts are domains or bare keywords, see fetch.HostMatches.
	Hosts []string `yaml:"hosts" validate:"required,min=1"`
	// Paths optionally narrows the rule to URL path prefixes.
	Paths            []string `yaml:"paths"`
	Terminal         []Target `yaml:"terminal" validate:"dive"`
	TerminalPatterns []string `yaml:"terminal_patterns"`
	Next             []Target `yaml:"next" validate:"dive"`
	NextPatterns     []string `yaml:"next_patterns"`
	UseProxy         bool     `yaml:"use_proxy"`
}

type RuleSet struct {
	MaxHops       int       `yaml:"max_hops"`
	TerminalHosts []string  `yaml:"terminal_hosts"`
	Rules         []HopRule `yaml:"rules" validate:"dive"`
}

type compiledRule struct {
	HopRule
	terminalRe []*regexp.Regexp
	nextRe     []*regexp.Regexp
}

var (
	metaRefreshRe = regexp.MustCompile(`(?i)url\s*=\s*['"]?([^'";>]+)`)
	locationRe    = regexp.MustCompile(`(?:window\.)?location(?:\.href)?\s*(?:=|\.replace\(|\.assign\()\s*['"]([^'"]+)['"]`)
)

func compileRule(r HopRule) (compiledRule, error) {
	c := compiledRule{HopRule: r}
	for _, p := range r.TerminalPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return c, fmt.Errorf("rule %s: terminal pattern %q: %w", r.Name, p, err)
		}
		c.terminalRe = append(c.terminalRe, re)
	}
	for _, p := range r.NextPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return c, fmt.Errorf("rule %s: next pattern %q: %w", r.Name, p, err)
		}
		c.nextRe = append(c.nextRe, re)
	}
	return c, nil
}

func (r *compiledRule) matches(u *url.URL) bool {
	if !fetch.HostMatches(u.Hostname(), r.Hosts...) {
		return false
	}
	if len(r.Paths) == 0 {
		return true
	}
	for _, p := range r.Paths {
		if strings.HasPrefix(u.Path, p) {
			return true
		}
	}
	return false
}

// step inspects a fetched hop and returns either a terminal URL or the next hop URL.
func (r *compiledRule) step(doc *goquery.Document, body, pageURL string) (terminal, next string) {
	if v := firstTarget(doc, r.Terminal, pageURL); v != "" {
		return v, ""
	}
	if v := firstPattern(body, r.terminalRe, pageURL); v != "" {
		return v, ""
	}
	if v := firstTarget(doc, r.Next, pageURL); v != "" {
		return "", v
	}
	if v := firstPattern(body, r.nextRe, pageURL); v != "" {
		return "", v
	}
	return "", genericRedirect(doc, body, pageURL)
}

func firstTarget(doc *goquery.Document, targets []Target, pageURL string) string {
	for _, t := range targets {
		attrs := t.Attr
		if len(attrs) == 0 {
			attrs = []string{"href"}
		}
		var found string
		doc.Find(t.Selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			found = normalize.AbsURL(extract.Attr(s, attrs...), pageURL)
			return found == ""
		})
		if found != "" {
			return found
		}
	}
	return ""
}

func firstPattern(body string, res []*regexp.Regexp, pageURL string) string {
	for _, re := range res {
		m := re.FindStringSubmatch(body)
		if len(m) < 2 {
			continue
		}
		if v := normalize.AbsURL(unescapeJS(m[1]), pageURL); v != "" {
			return v
		}
	}
	return ""
}

func genericRedirect(doc *goquery.Document, body, pageURL string) string {
	var refresh string
	doc.Find("meta[http-equiv]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.EqualFold(s.AttrOr("http-equiv", ""), "refresh") {
			refresh = s.AttrOr("content", "")
			return false
		}
		return true
	})
	if m := metaRefreshRe.FindStringSubmatch(refresh); m != nil {
		if v := normalize.AbsURL(strings.TrimSpace(m[1]), pageURL); v != "" {
			return v
		}
	}
	if m := locationRe.FindStringSubmatch(body); m != nil {
		return normalize.AbsURL(unescapeJS(m[1]), pageURL)
	}
	return ""
}

func unescapeJS(s string) string {
	return strings.ReplaceAll(s, `\/`, `/`)
}

var terminalExts = map[string]string{
	".m3u8": "hls",
	".mpd":  "dash",
	".mp4":  "file",
	".mkv":  "file",
	".avi":  "file",
	".webm": "file",
	".zip":  "file",
}

// terminalFormat reports whether link is a direct media/manifest URL or sits on a terminal CDN host.
func terminalFormat(link string, cdnHosts []string) (string, bool) {
	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return "", false
	}
	p := strings.ToLower(u.Path)
	for ext, format := range terminalExts {
		if strings.HasSuffix(p, ext) {
			return format, true
		}
	}
	if fetch.HostMatches(u.Hostname(), cdnHosts...) {
		return "file", true
	}
	return "", false
}
