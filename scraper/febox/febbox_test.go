package febox

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/amankumarsingh77/go-scraper-api/scraper/errs"
	"github.com/amankumarsingh77/go-scraper-api/scraper/fetch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const sharePage = `<html><body><div class="f_list_scroll">
<div data-id="9001"><p class="file_name">Season 1</p></div>
<div data-id="9002"><p class="file_name">Season 2</p></div>
<div><p class="file_name">no id</p></div>
</div></body></html>`

const qualityHTML = `<div class="file_quality" data-quality="1080P" data-url="https://cdn.febbox.example/1080.mp4"><div class="desc"><span class="size"> 2.1 GB </span></div></div>
<div class="file_quality" data-quality="720P" data-url="https://cdn.febbox.example/720.mp4"><div class="desc"><span class="size">1.2 GB</span></div></div>
<div class="file_quality" data-quality="ORG" data-url=""></div>`

func newFebboxServer(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()
	var cookies []string
	mux := http.NewServeMux()
	mux.HandleFunc("/index/share_link", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") == "404" {
			_, _ = w.Write([]byte(`{"code":0,"msg":"not found","data":{}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"code": 1, "data": map[string]string{"link": "http://" + r.Host + "/share/abcKEY"}})
	})
	mux.HandleFunc("/share/abcKEY", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sharePage))
	})
	mux.HandleFunc("/file/file_share_list", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("share_key") != "abcKEY" {
			_, _ = w.Write([]byte(`{"code":0,"msg":"bad share"}`))
			return
		}
		_, _ = w.Write([]byte(`{"code":1,"data":{"file_list":[
			{"fid":11,"file_name":"Show.S02E01.1080p.x265.mkv"},
			{"fid":12,"file_name":"Show.S02E02.720p.x264.mkv"}]}}`))
	})
	mux.HandleFunc("/file/file_info", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"file":{"fid":11,"size":"2.1 GB","file_name":"Show.S02E01.mkv"}}}`))
	})
	mux.HandleFunc("/console/video_quality_list", func(w http.ResponseWriter, r *http.Request) {
		cookies = append(cookies, r.Header.Get("Cookie"))
		_ = json.NewEncoder(w).Encode(map[string]string{"html": qualityHTML})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &cookies
}

func newTestClient(base, cookie string) *Client {
	f := fetch.NewClient(fetch.Config{RetryDelay: time.Millisecond}, zap.NewNop())
	return NewClient(f, Config{ShowboxBase: base, FebboxBase: base, Cookie: cookie}, nil, zap.NewNop())
}

func TestShareFlow(t *testing.T) {
	srv, cookies := newFebboxServer(t)
	c := newTestClient(srv.URL, "ui=secret")
	ctx := context.Background()

	link, err := c.ShareLink(ctx, "123", TVType)
	require.NoError(t, err)
	assert.Equal(t, "abcKEY", ShareKey(link))

	entries, err := c.ShareEntries(ctx, link)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, ShareEntry{ID: "9002", Name: "Season 2"}, entries[1])

	files, err := c.FolderFiles(ctx, "abcKEY", "9002")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, int64(12), files[1].Fid)

	qs, err := c.Qualities(ctx, "11")
	require.NoError(t, err)
	require.Len(t, qs, 2)
	assert.Equal(t, VideoQuality{Quality: "1080P", URL: "https://cdn.febbox.example/1080.mp4", Size: "2.1 GB"}, qs[0])
	assert.Equal(t, []string{"ui=secret"}, *cookies)
}

func TestShareLinkMissing(t *testing.T) {
	srv, _ := newFebboxServer(t)
	c := newTestClient(srv.URL, "")

	_, err := c.ShareLink(context.Background(), "404", MovieType)
	var empty *errs.ExtractionEmptyError
	assert.True(t, errors.As(err, &empty))
}

func TestFolderFilesRejectsErrorCode(t *testing.T) {
	srv, _ := newFebboxServer(t)
	c := newTestClient(srv.URL, "")

	_, err := c.FolderFiles(context.Background(), "other", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad share")
}

func TestFileInfo(t *testing.T) {
	srv, _ := newFebboxServer(t)
	c := newTestClient(srv.URL, "")

	info, err := c.FileInfo(context.Background(), "11")
	require.NoError(t, err)
	assert.Equal(t, "2.1 GB", info.Size)
}

func TestQualitiesNeedCookie(t *testing.T) {
	srv, cookies := newFebboxServer(t)
	c := newTestClient(srv.URL, "")

	_, err := c.Qualities(context.Background(), "11")
	assert.ErrorIs(t, err, ErrNoCookie)
	assert.Empty(t, *cookies)
}

func TestParseEpisode(t *testing.T) {
	tests := []struct {
		name string
		want EpisodeInfo
	}{
		{"Show.S03E05.1080p.WEB.x265.mkv", EpisodeInfo{Season: 3, Episode: 5, Quality: "1080p", Codec: "HEVC/x265"}},
		{"show.3x07.720p.h264.mp4", EpisodeInfo{Season: 3, Episode: 7, Quality: "720p", Codec: "H.264/x264"}},
		{"Show s01e10 2160p AV1.mkv", EpisodeInfo{Season: 1, Episode: 10, Quality: "4K", Codec: "AV1"}},
	}
	for _, tt := range tests {
		got, err := ParseEpisode(tt.name)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}

	_, err := ParseEpisode("Movie.2024.1080p.mkv")
	assert.Error(t, err)
}

func TestFindSeason(t *testing.T) {
	named := []ShareEntry{{ID: "b", Name: "Season 2"}, {ID: "a", Name: "Season 1"}}
	e, ok := FindSeason(named, 1)
	require.True(t, ok)
	assert.Equal(t, "a", e.ID)

	_, ok = FindSeason(named, 3)
	assert.False(t, ok)

	unnamed := []ShareEntry{{ID: "x", Name: "folder"}, {ID: "y", Name: "folder"}}
	e, ok = FindSeason(unnamed, 2)
	require.True(t, ok)
	assert.Equal(t, "y", e.ID)
}

func TestParseContentType(t *testing.T) {
	kind, err := ParseContentType("TV")
	require.NoError(t, err)
	assert.Equal(t, TVType, kind)

	_, err = ParseContentType("anime")
	var ve *errs.ValidationError
	assert.True(t, errors.As(err, &ve))
}

type mapBases map[string]string

func (m mapBases) BaseURL(_ context.Context, key string) (string, error) {
	if b, ok := m[key]; ok {
		return b, nil
	}
	return "", errors.New("no base for " + key)
}

func TestClientUsesResolvedBases(t *testing.T) {
	srv, _ := newFebboxServer(t)
	f := fetch.NewClient(fetch.Config{RetryDelay: time.Millisecond}, zap.NewNop())
	c := NewClient(f, Config{ShowboxBase: "http://127.0.0.1:1", FebboxBase: "http://127.0.0.1:1", Cookie: "ui=x"},
		mapBases{ShowboxAPIKey: srv.URL + "/", FebboxKey: srv.URL}, zap.NewNop())
	ctx := context.Background()

	link, err := c.ShareLink(ctx, "123", TVType)
	require.NoError(t, err)
	assert.Equal(t, "abcKEY", ShareKey(link))

	files, err := c.FolderFiles(ctx, "abcKEY", "9002")
	require.NoError(t, err)
	assert.Len(t, files, 2)

	_, err = NewClient(f, Config{}, mapBases{}, zap.NewNop()).ShareLink(ctx, "1", MovieType)
	assert.Error(t, err)
}
