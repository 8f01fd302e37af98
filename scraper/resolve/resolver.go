// Package resolve follows intermediary download pages until a direct file or stream URL is reached.
package resolve

import (
	"context"
	"net/url"

	"github.com/amankumarsingh77/go-scraper-api/scraper/errs"
	"github.com/amankumarsingh77/go-scraper-api/scraper/fetch"
	"github.com/amankumarsingh77/go-scraper-api/scraper/models"
	"github.com/amankumarsingh77/go-scraper-api/scraper/normalize"
	"go.uber.org/zap"
)

type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, opts fetch.Options) (*fetch.RawDocument, error)
}

type Resolver struct {
	fetcher       Fetcher
	rules         []compiledRule
	terminalHosts []string
	maxHops       int
	log           *zap.Logger
}

func New(f Fetcher, set RuleSet, log *zap.Logger) (*Resolver, error) {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Resolver{
		fetcher:       f,
		terminalHosts: set.TerminalHosts,
		maxHops:       set.MaxHops,
		log:           log.Named("resolve"),
	}
	if r.maxHops <= 0 {
		r.maxHops = DefaultMaxHops
	}
	for _, rule := range set.Rules {
		c, err := compileRule(rule)
		if err != nil {
			return nil, err
		}
		r.rules = append(r.rules, c)
	}
	return r, nil
}

func (r *Resolver) MaxHops() int { return r.maxHops }

func (r *Resolver) match(raw string) *compiledRule {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil
	}
	for i := range r.rules {
		if r.rules[i].matches(u) {
			return &r.rules[i]
		}
	}
	return nil
}

// Allowed reports whether raw is a valid chain entry point.
func (r *Resolver) Allowed(raw string) bool { return r.match(raw) != nil }

// Resolve walks the chain starting at entry. At most maxHops pages are fetched (maxHops <= 0 uses the
// configured default) and a URL is never fetched twice. On failure no partial chain is returned.
func (r *Resolver) Resolve(ctx context.Context, entry string, maxHops int) (*models.TerminalLink, error) {
	if _, err := fetch.ParseHTTPURL(entry); err != nil {
		return nil, err
	}
	if maxHops <= 0 {
		maxHops = r.maxHops
	}
	if r.match(entry) == nil {
		return nil, &errs.ResolutionError{URL: entry, Err: errs.ErrHostNotAllowed}
	}

	var (
		visited = normalize.NewURLSet()
		chain   []models.Hop
		current = entry
		referer string
		hops    int
	)

	fail := func(err error) (*models.TerminalLink, error) {
		r.log.Info("chain failed", zap.String("entry", entry), zap.Int("hops", hops), zap.Error(err))
		return nil, &errs.ResolutionError{URL: entry, Hops: hops, Err: err}
	}

	for {
		rule := r.match(current)
		if rule == nil {
			return fail(errs.ErrHostNotAllowed)
		}
		if hops >= maxHops {
			return fail(errs.ErrChainTooLong)
		}
		if !visited.Add(current) {
			return fail(errs.ErrCycle)
		}

		doc, err := r.fetcher.Fetch(ctx, current, fetch.Options{Referer: referer, UseProxy: rule.UseProxy})
		hops++
		if err != nil {
			return fail(err)
		}

		page := doc.FinalURL
		if page == "" {
			page = current
		}
		if page != current && !visited.Add(page) {
			return fail(errs.ErrCycle)
		}

		html, err := doc.HTML()
		if err != nil {
			return fail(err)
		}

		terminal, next := rule.step(html, doc.Text(), page)
		if terminal != "" {
			chain = append(chain, models.Hop{URL: current, Rule: rule.Name, Next: terminal})
			return r.done(entry, terminal, chain, hops), nil
		}
		if next == "" {
			return fail(errs.ErrNoNextHop)
		}

		chain = append(chain, models.Hop{URL: current, Rule: rule.Name, Next: next})
		if _, ok := terminalFormat(next, r.terminalHosts); ok {
			return r.done(entry, next, chain, hops), nil
		}

		r.log.Debug("next hop", zap.String("rule", rule.Name), zap.String("from", current), zap.String("to", next))
		referer = page
		current = next
	}
}

func (r *Resolver) done(entry, terminal string, chain []models.Hop, hops int) *models.TerminalLink {
	format, ok := terminalFormat(terminal, r.terminalHosts)
	if !ok {
		format = "file"
	}
	r.log.Debug("chain resolved", zap.String("entry", entry), zap.String("terminal", terminal), zap.Int("hops", hops))
	return &models.TerminalLink{
		Entry:    entry,
		URL:      terminal,
		Host:     normalize.ClassifyHost(terminal),
		Format:   format,
		Chain:    chain,
		HopCount: hops,
	}
}
