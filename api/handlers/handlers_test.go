package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amankumarsingh77/go-scraper-api/db/models"
	"github.com/amankumarsingh77/go-scraper-api/db/repository"
	"github.com/amankumarsingh77/go-scraper-api/pkg/cache"
	"github.com/amankumarsingh77/go-scraper-api/scraper/errs"
	"github.com/amankumarsingh77/go-scraper-api/scraper/fetch"
	scrapermodels "github.com/amankumarsingh77/go-scraper-api/scraper/models"
	"github.com/amankumarsingh77/go-scraper-api/scraper/provider"
	"github.com/amankumarsingh77/go-scraper-api/scraper/resolve"
	"github.com/amankumarsingh77/go-scraper-api/scraper/search"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type fakeProvider struct {
	name    string
	caps    []provider.Capability
	results []scrapermodels.Result
	detail  *scrapermodels.Detail
	err     error
	panics  bool
	calls   atomic.Int32
}

func (f *fakeProvider) Name() string                         { return f.name }
func (f *fakeProvider) Capabilities() []provider.Capability { return f.caps }

func (f *fakeProvider) Search(context.Context, string, int) ([]scrapermodels.Result, error) {
	f.calls.Add(1)
	if f.panics {
		panic("selector blew up")
	}
	return f.results, f.err
}

func (f *fakeProvider) Latest(context.Context, int) ([]scrapermodels.Result, error) {
	f.calls.Add(1)
	return f.results, f.err
}

func (f *fakeProvider) Details(context.Context, string) (*scrapermodels.Detail, error) {
	f.calls.Add(1)
	return f.detail, f.err
}

func listing(name string, titles ...string) *fakeProvider {
	p := &fakeProvider{name: name, caps: []provider.Capability{provider.CapSearch, provider.CapLatest, provider.CapDetails}}
	for _, t := range titles {
		p.results = append(p.results, scrapermodels.Result{Title: t, URL: "https://" + name + ".example/" + t, Provider: name})
	}
	return p
}

type fakeKeys struct {
	mu   sync.Mutex
	keys map[string]*models.APIKey
}

func newFakeKeys() *fakeKeys { return &fakeKeys{keys: map[string]*models.APIKey{}} }

func (f *fakeKeys) add(plain string, limit int64) *models.APIKey {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := &models.APIKey{ID: primitive.NewObjectID(), Name: plain, RequestsLimit: limit, Active: true}
	f.keys[plain] = k
	return k
}

func (f *fakeKeys) ConsumeKey(_ context.Context, plain string) (*models.APIKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k, found := f.keys[plain]
	switch {
	case !found:
		return nil, repository.ErrKeyNotFound
	case !k.Active:
		return k, repository.ErrKeyRevoked
	case k.RequestsUsed >= k.RequestsLimit:
		return k, repository.ErrQuotaExceeded
	}
	k.RequestsUsed++
	out := *k
	return &out, nil
}

func (f *fakeKeys) CreateKey(_ context.Context, name string, limit int64) (*models.APIKey, string, error) {
	plain := "sk_" + name
	k := f.add(plain, limit)
	k.Name = name
	return k, plain, nil
}

func (f *fakeKeys) RevokeKey(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range f.keys {
		if k.ID.Hex() == id {
			k.Active = false
			return nil
		}
	}
	return repository.ErrKeyNotFound
}

type fakeDomains struct{ set map[string]string }

func (f *fakeDomains) SetProviderDomain(_ context.Context, p, base string) error {
	f.set[p] = base
	return nil
}

type fakeBases struct {
	known       map[string]bool
	invalidated []string
}

func (f *fakeBases) Invalidate(p string)     { f.invalidated = append(f.invalidated, p) }
func (f *fakeBases) Known(key string) bool { return f.known[key] }

type testEnv struct {
	router  *gin.Engine
	keys    *fakeKeys
	domains *fakeDomains
	bases   *fakeBases
}

func newEnv(t *testing.T, cfg RouterConfig, providers ...provider.Provider) *testEnv {
	t.Helper()
	reg := provider.NewRegistry()
	for _, p := range providers {
		require.NoError(t, reg.Register(p))
	}
	res, err := resolve.New(fetch.NewClient(fetch.DefaultConfig(), zap.NewNop()), resolve.RuleSet{
		Rules: []resolve.HopRule{{Name: "hubcloud", Hosts: []string{"hubcloud"}, Terminal: []resolve.Target{{Selector: "a#fsl"}}}},
	}, zap.NewNop())
	require.NoError(t, err)

	env := &testEnv{keys: newFakeKeys(), domains: &fakeDomains{set: map[string]string{}}, bases: &fakeBases{known: map[string]bool{"febbox": true}}}
	h := NewHandler(Deps{
		Registry: reg,
		Search:   search.NewAggregator(reg, cache.NewMemory(16, time.Minute), search.Options{}, zap.NewNop()),
		Resolver: res,
		Keys:     env.keys,
		Domains:  env.domains,
		Bases:    env.bases,
		Log:      zap.NewNop(),
	})
	env.router = h.Router(cfg)
	return env
}

func (e *testEnv) do(t *testing.T, method, target, key, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if key != "" {
		req.Header.Set("x-api-key", key)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return w, out
}

func TestHealthNeedsNoKey(t *testing.T) {
	env := newEnv(t, RouterConfig{})
	w, body := env.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestMissingKeyIsUnauthorized(t *testing.T) {
	p := listing("alpha", "one")
	env := newEnv(t, RouterConfig{}, p)

	w, body := env.do(t, http.MethodGet, "/api/alpha/search?q=one", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "unauthorized", body["error"])
	assert.Zero(t, p.calls.Load())

	w, _ = env.do(t, http.MethodGet, "/api/alpha/search?q=one", "sk_unknown", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestQuotaCountsDown(t *testing.T) {
	env := newEnv(t, RouterConfig{}, listing("alpha", "one"))
	env.keys.add("sk_two", 2)

	_, body := env.do(t, http.MethodGet, "/api/alpha/search?q=one", "sk_two", "")
	assert.Equal(t, float64(1), body["remainingRequests"])
	_, body = env.do(t, http.MethodGet, "/api/alpha/search?q=one", "sk_two", "")
	assert.Equal(t, float64(0), body["remainingRequests"])

	w, body := env.do(t, http.MethodGet, "/api/alpha/search?q=one", "sk_two", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, false, body["success"])
}

func TestKeyFromQueryParameter(t *testing.T) {
	env := newEnv(t, RouterConfig{}, listing("alpha", "one"))
	env.keys.add("sk_q", 5)

	w, body := env.do(t, http.MethodGet, "/api/alpha/search?q=one&api_key=sk_q", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(4), body["remainingRequests"])
}

func TestMissingParameterMakesNoUpstreamCall(t *testing.T) {
	p := listing("alpha", "one")
	env := newEnv(t, RouterConfig{}, p)
	env.keys.add("sk_v", 10)

	for _, target := range []string{"/api/alpha/search", "/api/alpha/details", "/api/alpha/details?url=ftp://x", "/api/alpha/latest?page=zero"} {
		w, body := env.do(t, http.MethodGet, target, "sk_v", "")
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
		assert.Equal(t, false, body["success"], target)
	}
	assert.Zero(t, p.calls.Load())
	// the key was checked first, so rejected requests still count
	assert.Equal(t, int64(4), env.keys.keys["sk_v"].RequestsUsed)
}

func TestSearchAliases(t *testing.T) {
	env := newEnv(t, RouterConfig{AuthDisabled: true}, listing("alpha", "one", "two"))

	for _, param := range []string{"q", "s", "search"} {
		w, body := env.do(t, http.MethodGet, "/api/alpha/search?"+param+"=one", "", "")
		require.Equal(t, http.StatusOK, w.Code, param)
		assert.Equal(t, float64(2), body["count"])
		assert.Equal(t, "one", body["query"])
		_, hasRemaining := body["remainingRequests"]
		assert.False(t, hasRemaining)
	}
}

func TestUnknownProvider(t *testing.T) {
	env := newEnv(t, RouterConfig{AuthDisabled: true})
	w, body := env.do(t, http.MethodGet, "/api/nowhere/search?q=x", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, false, body["success"])
}

func TestUpstreamFailureIs500(t *testing.T) {
	p := listing("alpha")
	p.err = &fetch.FetchError{URL: "https://alpha.example/search/x", StatusCode: http.StatusBadGateway}
	env := newEnv(t, RouterConfig{AuthDisabled: true}, p)

	w, body := env.do(t, http.MethodGet, "/api/alpha/search?q=x", "", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "upstream fetch failed", body["error"])
	assert.Contains(t, body["message"], "502")
}

func TestEmptyListingIsSuccess(t *testing.T) {
	p := listing("alpha")
	p.err = &errs.ExtractionEmptyError{Provider: "alpha", What: "results"}
	env := newEnv(t, RouterConfig{AuthDisabled: true}, p)

	w, body := env.do(t, http.MethodGet, "/api/alpha/latest", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, []any{}, body["data"])
}

func TestDetailsNotFound(t *testing.T) {
	p := listing("alpha")
	p.err = &errs.ExtractionEmptyError{Provider: "alpha", What: "details"}
	env := newEnv(t, RouterConfig{AuthDisabled: true}, p)

	w, body := env.do(t, http.MethodGet, "/api/alpha/details?url=https://alpha.example/m/1", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, false, body["success"])
}

func TestDetailsAreDeterministic(t *testing.T) {
	p := listing("alpha")
	p.detail = &scrapermodels.Detail{
		Title:    "Movie",
		URL:      "https://alpha.example/m/1",
		Info:     map[string]string{"year": "2024", "genre": "Drama", "language": "Hindi"},
		Links:    []scrapermodels.Link{{URL: "https://hubcloud.example/f/1", Host: "hubcloud"}},
		Provider: "alpha",
	}
	env := newEnv(t, RouterConfig{AuthDisabled: true}, p)

	first, _ := env.do(t, http.MethodGet, "/api/alpha/details?url=https://alpha.example/m/1", "", "")
	second, _ := env.do(t, http.MethodGet, "/api/alpha/details?url=https://alpha.example/m/1", "", "")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
}

func TestUnsupportedCapability(t *testing.T) {
	env := newEnv(t, RouterConfig{AuthDisabled: true}, listing("alpha"))

	for _, target := range []string{"/api/alpha/streams?url=https://alpha.example/v/1", "/api/alpha/links?id=1"} {
		w, body := env.do(t, http.MethodGet, target, "", "")
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
		assert.Contains(t, body["message"], "does not support")
	}
}

func TestAggregateSearchPartialFailure(t *testing.T) {
	var providers []provider.Provider
	for _, name := range []string{"a1", "a2", "a3"} {
		providers = append(providers, listing(name, "hit"))
	}
	for _, name := range []string{"b1", "b2", "b3"} {
		p := listing(name)
		p.err = &fetch.FetchError{URL: "https://" + name + ".example", StatusCode: http.StatusServiceUnavailable}
		providers = append(providers, p)
	}
	env := newEnv(t, RouterConfig{AuthDisabled: true}, providers...)

	w, body := env.do(t, http.MethodGet, "/api/search?q=hit", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
	assert.Len(t, body["data"], 3)
	assert.Equal(t, float64(3), body["totalResults"])

	summary := body["providerSummary"].([]any)
	require.Len(t, summary, 6)
	failed := 0
	for _, s := range summary {
		entry := s.(map[string]any)
		if entry["success"] == false {
			failed++
			assert.True(t, strings.HasPrefix(entry["provider"].(string), "b"))
		}
	}
	assert.Equal(t, 3, failed)
}

func TestAggregateSearchRequiresQuery(t *testing.T) {
	env := newEnv(t, RouterConfig{AuthDisabled: true}, listing("a1", "hit"))
	w, _ := env.do(t, http.MethodGet, "/api/search", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResolveRejectsUnknownHost(t *testing.T) {
	env := newEnv(t, RouterConfig{AuthDisabled: true})

	w, body := env.do(t, http.MethodGet, "/api/resolve?url=https://example.com/file", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, body["success"])

	w, _ = env.do(t, http.MethodGet, "/api/resolve?url=https://hubcloud.attacker.tld/f/1", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = env.do(t, http.MethodGet, "/api/resolve?url=https://hubcloud.example/f/1&maxHops=50", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPanicBecomesEnvelope(t *testing.T) {
	p := listing("alpha")
	p.panics = true
	env := newEnv(t, RouterConfig{AuthDisabled: true}, p)

	w, body := env.do(t, http.MethodGet, "/api/alpha/search?q=x", "", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "internal error", body["message"])
	assert.NotContains(t, w.Body.String(), "selector blew up")
}

func TestAggregateSearchSurvivesProviderPanic(t *testing.T) {
	broken := listing("broken", "hit")
	broken.panics = true
	env := newEnv(t, RouterConfig{AuthDisabled: true}, listing("a1", "hit"), broken, listing("a2", "hit"))

	w, body := env.do(t, http.MethodGet, "/api/search?q=hit", "", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(2), body["totalResults"])
	summary := body["providerSummary"].([]any)
	require.Len(t, summary, 3)
	for _, s := range summary {
		entry := s.(map[string]any)
		assert.Equal(t, entry["provider"] != "broken", entry["success"], entry["provider"])
	}
	assert.NotContains(t, w.Body.String(), "goroutine")
}

func TestAdminRoutes(t *testing.T) {
	env := newEnv(t, RouterConfig{AdminToken: "root"}, listing("alpha"))

	w, _ := env.do(t, http.MethodPost, "/admin/keys", "", `{"name":"ci"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/admin/keys", strings.NewReader(`{"name":"ci","requestsLimit":3}`))
	req.Header.Set("Authorization", "Bearer root")
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		Data struct {
			Key    string         `json:"key"`
			APIKey models.APIKey `json:"apiKey"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "sk_ci", created.Data.Key)
	assert.Equal(t, int64(3), created.Data.APIKey.RequestsLimit)

	w, body := env.do(t, http.MethodGet, "/api/keys/me", created.Data.Key, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), body["remainingRequests"])

	req = httptest.NewRequest(http.MethodDelete, "/admin/keys/"+primitive.NewObjectID().Hex(), nil)
	req.Header.Set("x-admin-token", "root")
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req = httptest.NewRequest(http.MethodPut, "/admin/domains/alpha", strings.NewReader(`{"baseUrl":"https://alpha.new/"}`))
	req.Header.Set("x-admin-token", "root")
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "https://alpha.new", env.domains.set["alpha"])
	assert.Equal(t, []string{"alpha"}, env.bases.invalidated)

	for target, code := range map[string]int{"/admin/domains/febbox": http.StatusOK, "/admin/domains/nope": http.StatusNotFound} {
		req = httptest.NewRequest(http.MethodPut, target, strings.NewReader(`{"baseUrl":"https://www.febbox.new"}`))
		req.Header.Set("x-admin-token", "root")
		req.Header.Set("Content-Type", "application/json")
		rec = httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		assert.Equal(t, code, rec.Code, target)
	}
	assert.Equal(t, "https://www.febbox.new", env.domains.set["febbox"])
	assert.NotContains(t, env.domains.set, "nope")
}

func TestAdminRoutesAbsentWithoutToken(t *testing.T) {
	env := newEnv(t, RouterConfig{})
	w, body := env.do(t, http.MethodPost, "/admin/keys", "", `{"name":"ci"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, false, body["success"])
}
