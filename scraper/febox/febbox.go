// Package febox walks showbox share links into febbox file listings and playable quality URLs.
package febox

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/amankumarsingh77/go-scraper-api/scraper/errs"
	"github.com/amankumarsingh77/go-scraper-api/scraper/extract"
	"github.com/amankumarsingh77/go-scraper-api/scraper/fetch"
	"go.uber.org/zap"
)

// ErrNoCookie is returned by Qualities when no febbox session cookie is configured.
var ErrNoCookie = errors.New("febbox cookie is not configured")

type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, opts fetch.Options) (*fetch.RawDocument, error)
	GetJSON(ctx context.Context, rawURL string, opts fetch.Options, v any) error
}

// BaseURLs resolves the live showbox API and febbox domains by key.
type BaseURLs interface {
	BaseURL(ctx context.Context, key string) (string, error)
}

type Client struct {
	f     Fetcher
	cfg   Config
	bases BaseURLs
	log   *zap.Logger
}

// NewClient builds a client. With a nil bases the configured bases are used as they are.
func NewClient(f Fetcher, cfg Config, bases BaseURLs, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{f: f, cfg: cfg.withDefaults(), bases: bases, log: log.Named("febbox")}
}

func (c *Client) MaxConcurrency() int { return c.cfg.MaxConcurrency }

// DefaultBases returns the configured showbox API and febbox bases.
func (c *Client) DefaultBases() (showboxAPI, febbox string) {
	return c.cfg.ShowboxBase, c.cfg.FebboxBase
}

func (c *Client) base(ctx context.Context, key, fallback string) (string, error) {
	if c.bases == nil {
		return strings.TrimRight(fallback, "/"), nil
	}
	b, err := c.bases.BaseURL(ctx, key)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(b, "/"), nil
}

// ShareLink asks showbox for the febbox share page of a title.
func (c *Client) ShareLink(ctx context.Context, id string, kind ContentType) (string, error) {
	base, err := c.base(ctx, ShowboxAPIKey, c.cfg.ShowboxBase)
	if err != nil {
		return "", err
	}
	target := fmt.Sprintf("%s/index/share_link?id=%s&type=%d", base, url.QueryEscape(id), kind)

	var out struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
		Data struct {
			Link string `json:"link"`
		} `json:"data"`
	}
	if err := c.f.GetJSON(ctx, target, fetch.Options{UseProxy: true}, &out); err != nil {
		return "", err
	}
	if out.Data.Link == "" {
		c.log.Debug("no share link", zap.String("id", id), zap.Stringer("type", kind), zap.String("msg", out.Msg))
		return "", &errs.ExtractionEmptyError{Provider: "showbox", What: "share link"}
	}
	return out.Data.Link, nil
}

// ShareKey is the last path segment of a share URL.
func ShareKey(shareURL string) string {
	u, err := url.Parse(shareURL)
	if err != nil {
		return ""
	}
	return path.Base(strings.TrimRight(u.Path, "/"))
}

// ShareEntries lists the rows of a share page.
func (c *Client) ShareEntries(ctx context.Context, shareURL string) ([]ShareEntry, error) {
	raw, err := c.f.Fetch(ctx, shareURL, fetch.Options{UseProxy: true, Cookie: c.cfg.Cookie})
	if err != nil {
		return nil, err
	}
	doc, err := raw.HTML()
	if err != nil {
		return nil, err
	}

	entries := make([]ShareEntry, 0)
	doc.Find(".f_list_scroll div[data-id]").Each(func(_ int, s *goquery.Selection) {
		id := strings.TrimSpace(s.AttrOr("data-id", ""))
		if id == "" {
			return
		}
		entries = append(entries, ShareEntry{ID: id, Name: extract.CollapseSpace(s.Find("p.file_name").Text())})
	})
	return entries, nil
}

// FolderFiles lists a folder inside a share. The API answers code 1 on success.
func (c *Client) FolderFiles(ctx context.Context, shareKey, parentID string) ([]ShareFile, error) {
	q := url.Values{}
	q.Set("share_key", shareKey)
	q.Set("pwd", "")
	q.Set("parent_id", parentID)
	q.Set("is_html", "0")
	base, err := c.base(ctx, FebboxKey, c.cfg.FebboxBase)
	if err != nil {
		return nil, err
	}
	target := base + "/file/file_share_list?" + q.Encode()

	var resp shareListResponse
	if err := c.f.GetJSON(ctx, target, fetch.Options{}, &resp); err != nil {
		return nil, err
	}
	if resp.Code != 1 {
		return nil, fmt.Errorf("febbox file_share_list: %s (code %d)", resp.Msg, resp.Code)
	}
	return resp.Data.FileList, nil
}

func (c *Client) FileInfo(ctx context.Context, fid string) (*FileInfo, error) {
	base, err := c.base(ctx, FebboxKey, c.cfg.FebboxBase)
	if err != nil {
		return nil, err
	}
	target := base + "/file/file_info?fid=" + url.QueryEscape(fid)

	var resp fileInfoResponse
	if err := c.f.GetJSON(ctx, target, fetch.Options{}, &resp); err != nil {
		return nil, err
	}
	if resp.Data.File.Fid == 0 {
		return nil, &errs.ExtractionEmptyError{Provider: "febbox", What: "file " + fid}
	}
	return &resp.Data.File, nil
}

// Qualities returns the playable variants of a file. The endpoint wraps an HTML fragment in JSON.
func (c *Client) Qualities(ctx context.Context, fid string) ([]VideoQuality, error) {
	if c.cfg.Cookie == "" {
		return nil, ErrNoCookie
	}
	if _, err := strconv.ParseInt(fid, 10, 64); err != nil {
		return nil, errs.Invalid("fid", "must be numeric")
	}
	base, err := c.base(ctx, FebboxKey, c.cfg.FebboxBase)
	if err != nil {
		return nil, err
	}
	target := base + "/console/video_quality_list?fid=" + fid + "&type=1"

	var out struct {
		HTML string `json:"html"`
	}
	if err := c.f.GetJSON(ctx, target, fetch.Options{Cookie: c.cfg.Cookie}, &out); err != nil {
		return nil, err
	}
	if out.HTML == "" {
		return nil, fmt.Errorf("febbox video_quality_list %s: html field missing", fid)
	}
	return parseQualities(out.HTML)
}
