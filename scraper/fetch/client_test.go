package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testClient(proxy string) *Client {
	return NewClient(Config{
		ProxyURL:   proxy,
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
	}, zap.NewNop())
}

func TestFetchSendsBrowserHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		_, _ = w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer srv.Close()

	doc, err := testClient("").Fetch(context.Background(), srv.URL, Options{Referer: "https://ref.example/", Cookie: "ui=abc"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, doc.StatusCode)
	assert.Contains(t, doc.Text(), "ok")
	assert.Equal(t, DefaultUserAgent, got.Get("User-Agent"))
	assert.Equal(t, "no-cache", got.Get("Cache-Control"))
	assert.Equal(t, "https://ref.example/", got.Get("Referer"))
	assert.Equal(t, "ui=abc", got.Get("Cookie"))
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := testClient("").Fetch(context.Background(), srv.URL, Options{})
	require.Error(t, err)

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusBadGateway, fe.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchDoesNotRetryClientErrors(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusForbidden, http.StatusTooManyRequests} {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(status)
		}))

		_, err := testClient("").Fetch(context.Background(), srv.URL, Options{})
		srv.Close()

		var fe *FetchError
		require.True(t, errors.As(err, &fe))
		assert.Equal(t, status, fe.StatusCode)
		assert.False(t, fe.Retryable())
		assert.Equal(t, int32(1), calls.Load(), "status %d", status)
	}
}

func TestFetchRecoversAfterTransientFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("second time lucky"))
	}))
	defer srv.Close()

	doc, err := testClient("").Fetch(context.Background(), srv.URL, Options{})
	require.NoError(t, err)
	assert.Equal(t, "second time lucky", doc.Text())
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchThroughProxy(t *testing.T) {
	var destination string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		destination = r.URL.Query().Get("destination")
		_, _ = w.Write([]byte(`{"data":{"link":"https://www.febbox.com/share/abc"}}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL + "/?destination=")
	var out struct {
		Data struct {
			Link string `json:"link"`
		} `json:"data"`
	}
	err := c.GetJSON(context.Background(), "http://upstream.example/index/share_link?id=1&type=1", Options{UseProxy: true}, &out)
	require.NoError(t, err)

	assert.Equal(t, "http://upstream.example/index/share_link?id=1&type=1", destination)
	assert.Equal(t, "https://www.febbox.com/share/abc", out.Data.Link)
}

func TestFetchNoRedirectReturnsLocation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "https://cdn.example/file.mkv", http.StatusFound)
	}))
	defer srv.Close()

	doc, err := testClient("").Fetch(context.Background(), srv.URL, Options{NoRedirect: true})
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, doc.StatusCode)
	assert.Equal(t, "https://cdn.example/file.mkv", doc.Location())
}

func TestFetchPostsForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		_, _ = w.Write([]byte(r.Method + " " + r.PostForm.Get("key")))
	}))
	defer srv.Close()

	doc, err := testClient("").Fetch(context.Background(), srv.URL, Options{Form: url.Values{"key": {"v1"}}})
	require.NoError(t, err)
	assert.Equal(t, "POST v1", doc.Text())
}

func TestFetchHonoursCancelledContext(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testClient("").Fetch(ctx, srv.URL, Options{})
	require.Error(t, err)
	assert.Equal(t, int32(0), calls.Load())
}

func TestRequireHost(t *testing.T) {
	tests := []struct {
		raw     string
		domains []string
		wantErr bool
	}{
		{"https://filmyfly.example/page/1", []string{"filmyfly.example"}, false},
		{"https://www.filmyfly.example/x", []string{"filmyfly.example"}, false},
		{"https://cdn.filmyfly.example/x", []string{"filmyfly.example"}, false},
		{"https://evilfilmyfly.example/x", []string{"filmyfly.example"}, true},
		{"https://hubcloud.art/drive/1", []string{"hubcloud"}, false},
		{"https://new4.hubcloud.fans/drive/1", []string{"hubcloud"}, false},
		{"https://hubcloud.attacker.tld/drive/1", []string{"hubcloud"}, true},
		{"https://myhubcloud.art/drive/1", []string{"hubcloud"}, true},
		{"https://showbox.evil.net/movie/m-x-1", []string{"showbox"}, true},
		{"ftp://filmyfly.example/x", []string{"filmyfly.example"}, true},
		{"", []string{"filmyfly.example"}, true},
		{"not a url", []string{"filmyfly.example"}, true},
	}

	for _, tt := range tests {
		_, err := RequireHost(tt.raw, tt.domains...)
		if tt.wantErr {
			assert.Error(t, err, tt.raw)
		} else {
			assert.NoError(t, err, tt.raw)
		}
	}
}
