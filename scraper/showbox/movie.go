package showbox

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/amankumarsingh77/go-scraper-api/scraper/extract"
	"github.com/amankumarsingh77/go-scraper-api/scraper/models"
	"github.com/amankumarsingh77/go-scraper-api/scraper/normalize"
)

var trailingIDRe = regexp.MustCompile(`-(\d+)$`)

// TitleRef parses a showbox page path such as /movie/m-kalki-2898-ad/12345 or /tv/t-show-678
// into the numeric id and kind the share_link endpoint expects.
func TitleRef(pageURL string) (id, kind string) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", ""
	}
	parts := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
	if len(parts) == 0 {
		return "", ""
	}
	switch parts[0] {
	case "movie":
		kind = "movie"
	case "tv":
		kind = "tv"
	}
	for i := len(parts) - 1; i > 0; i-- {
		if _, err := strconv.Atoi(parts[i]); err == nil {
			return parts[i], kind
		}
		if m := trailingIDRe.FindStringSubmatch(parts[i]); m != nil {
			return m[1], kind
		}
	}
	return "", kind
}

// parseDetail reads the .dp-i-content block of a title page.
func parseDetail(root *goquery.Selection, pageURL string) *models.Detail {
	content := root.Find(".dp-i-content").First()
	if content.Length() == 0 {
		return nil
	}

	d := &models.Detail{
		Title:       extract.CollapseSpace(content.Find(".heading-name").First().Text()),
		URL:         pageURL,
		ImageURL:    normalize.AbsURL(extract.FirstAttr(root, []string{".dp-i-c-poster img", ".film-poster img"}, "data-src", "src"), pageURL),
		Description: extract.CollapseSpace(content.Find(".description").First().Text()),
		Info:        make(map[string]string),
		Links:       []models.Link{},
		Provider:    Name,
	}

	if imdb := content.Find(".btn-imdb").First().Text(); imdb != "" {
		if parts := strings.SplitN(imdb, ":", 2); len(parts) == 2 {
			d.Info["imdb"] = strings.TrimSpace(parts[1])
		}
	}

	content.Find(".row-line").Each(func(_ int, row *goquery.Selection) {
		typeText := row.Find(".type").First().Text()
		label := strings.ToLower(strings.TrimSpace(typeText))
		value := extract.CollapseSpace(strings.Replace(row.Text(), typeText, "", 1))
		value = strings.TrimSpace(strings.TrimLeft(value, ":"))
		if value == "" {
			return
		}
		for _, key := range []string{"released", "genre", "casts", "duration", "country", "production"} {
			if strings.Contains(label, key) {
				d.Info[key] = value
				return
			}
		}
	})

	link := normalize.AbsURL(content.Find(".heading-name a").AttrOr("href", ""), pageURL)
	if link == "" {
		link = pageURL
	}
	if id, kind := TitleRef(link); id != "" {
		d.Info["id"] = id
		if kind != "" {
			d.Info["type"] = kind
		}
	}
	return d
}
