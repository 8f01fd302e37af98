package fetch

import (
	"net/url"
	"strings"

	"github.com/amankumarsingh77/go-scraper-api/scraper/errs"
)

// ParseHTTPURL parses raw and requires an http(s) scheme and a host.
func ParseHTTPURL(raw string) (*url.URL, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errs.Invalid("url", "is required")
	}
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, errs.Invalid("url", "is not a valid URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errs.Invalid("url", "scheme must be http or https")
	}
	if u.Hostname() == "" {
		return nil, errs.Invalid("url", "host is missing")
	}
	return u, nil
}

// HostMatches reports whether host equals one of the given domains or is a subdomain of it.
// A domain without a dot (e.g. "hubcloud") stands for any TLD: it must be the label right before
// the last one, so hubcloud.one and new.hubcloud.one match but hubcloud.attacker.tld does not.
func HostMatches(host string, domains ...string) bool {
	host = strings.ToLower(strings.TrimPrefix(host, "www."))
	for _, d := range domains {
		d = strings.ToLower(strings.TrimPrefix(d, "www."))
		if d == "" {
			continue
		}
		if !strings.Contains(d, ".") {
			if siteLabel(host) == d {
				return true
			}
			continue
		}
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// siteLabel returns the label before the TLD, or the host itself when it has a single label.
func siteLabel(host string) string {
	labels := strings.Split(strings.TrimSuffix(host, "."), ".")
	if len(labels) < 2 {
		return labels[0]
	}
	return labels[len(labels)-2]
}

// RequireHost validates raw and checks that it points at one of the allowed domains.
func RequireHost(raw string, domains ...string) (*url.URL, error) {
	u, err := ParseHTTPURL(raw)
	if err != nil {
		return nil, err
	}
	if !HostMatches(u.Hostname(), domains...) {
		return nil, errs.Invalid("url", "host "+u.Hostname()+" is not served by this provider")
	}
	return u, nil
}
