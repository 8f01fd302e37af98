// Package fetch performs upstream HTTP requests with browser-like headers, optional scraping-proxy
// indirection and bounded retries.
package fetch

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"
)

// RawDocument is an upstream response body together with where it came from.
type RawDocument struct {
	URL        string
	FinalURL   string
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (d *RawDocument) Text() string { return string(d.Body) }

func (d *RawDocument) HTML() (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(d.Body))
	if err != nil {
		return nil, fmt.Errorf("parse html from %s: %w", d.URL, err)
	}
	return doc, nil
}

// Location returns the redirect target of a 3xx response fetched with NoRedirect.
func (d *RawDocument) Location() string { return d.Header.Get("Location") }

type Options struct {
	Method   string
	Headers  map[string]string
	Referer  string
	Cookie   string
	Form     url.Values
	Timeout  time.Duration
	UseProxy bool
	// NoRedirect returns 3xx responses as documents instead of following them.
	NoRedirect bool
}

type Client struct {
	cfg        Config
	http       *http.Client
	noRedirect *http.Client
	log        *zap.Logger
}

func NewClient(cfg Config, log *zap.Logger) *Client {
	cfg = cfg.withDefaults()
	if log == nil {
		log = zap.NewNop()
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &Client{
		cfg:  cfg,
		http: &http.Client{Transport: transport, Timeout: cfg.Timeout},
		noRedirect: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		log: log.Named("fetch"),
	}
}

func (c *Client) Config() Config { return c.cfg }

// ProxyWrap routes target through the configured scraping proxy. Without a proxy it returns target unchanged.
func (c *Client) ProxyWrap(target string) string {
	if c.cfg.ProxyURL == "" {
		return target
	}
	return c.cfg.ProxyURL + url.QueryEscape(target)
}

// Fetch retrieves rawURL. Only 2xx responses (and 3xx with NoRedirect) produce a document; anything else
// is a *FetchError. Network errors and 5xx are retried with exponential backoff, 4xx never are.
func (c *Client) Fetch(ctx context.Context, rawURL string, opts Options) (*RawDocument, error) {
	target := rawURL
	if opts.UseProxy {
		target = c.ProxyWrap(rawURL)
	}

	var doc *RawDocument
	attempt := 0
	err := retry.Do(
		func() error {
			attempt++
			d, err := c.do(ctx, rawURL, target, opts)
			if err != nil {
				return err
			}
			doc = d
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.cfg.MaxRetries)+1),
		retry.Delay(c.cfg.RetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(isRetryable),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.log.Warn("retrying upstream request",
				zap.String("url", rawURL),
				zap.Uint("attempt", n+1),
				zap.Error(err))
		}),
	)
	if err != nil {
		c.log.Debug("fetch failed", zap.String("url", rawURL), zap.Int("attempts", attempt), zap.Error(err))
		return nil, err
	}
	return doc, nil
}

func (c *Client) do(ctx context.Context, rawURL, target string, opts Options) (*RawDocument, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if opts.Form != nil {
		body = strings.NewReader(opts.Form.Encode())
		if method == http.MethodGet {
			method = http.MethodPost
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", rawURL, err)
	}
	c.setHeaders(req, opts)

	client := c.http
	if opts.NoRedirect {
		client = c.noRedirect
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	c.log.Debug("upstream response",
		zap.String("method", method),
		zap.String("url", rawURL),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	redirect := opts.NoRedirect && resp.StatusCode >= 300 && resp.StatusCode < 400
	if (resp.StatusCode < 200 || resp.StatusCode >= 300) && !redirect {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &FetchError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxBodyBytes))
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("read body: %w", err)}
	}

	return &RawDocument{
		URL:        rawURL,
		FinalURL:   resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

func (c *Client) setHeaders(req *http.Request, opts Options) {
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,application/json;q=0.8,*/*;q=0.7")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	if opts.Form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if opts.Referer != "" {
		req.Header.Set("Referer", opts.Referer)
	}
	if opts.Cookie != "" {
		req.Header.Set("Cookie", opts.Cookie)
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}
}

// GetJSON fetches rawURL and decodes the body into v.
func (c *Client) GetJSON(ctx context.Context, rawURL string, opts Options, v any) error {
	headers := map[string]string{"Accept": "application/json"}
	for k, v := range opts.Headers {
		headers[k] = v
	}
	opts.Headers = headers
	doc, err := c.Fetch(ctx, rawURL, opts)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(doc.Body, v); err != nil {
		return fmt.Errorf("decode json from %s: %w", rawURL, err)
	}
	return nil
}
