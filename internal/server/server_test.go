package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/civicmatch/civic-match/internal/api"
	authmodels "github.com/civicmatch/civic-match/internal/auth/models"
	"github.com/civicmatch/civic-match/internal/cache"
	"github.com/civicmatch/civic-match/internal/config"
	"github.com/civicmatch/civic-match/internal/models"
	"github.com/civicmatch/civic-match/internal/requester"
	"github.com/civicmatch/civic-match/internal/server/handler"
	"github.com/civicmatch/civic-match/internal/web"
	"github.com/civicmatch/civic-match/internal/worker"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const origin = "http://civicmatch.test"

type stubServices struct {
	statsCalls atomic.Int32
}

func (s *stubServices) GetCategories(context.Context) ([]models.Category, error) {
	return []models.Category{{Name: "transit", ChallengeCount: 2}}, nil
}

func (s *stubServices) GetCombinedEvents(context.Context, models.EventFilter) ([]models.Event, error) {
	return nil, nil
}

func (s *stubServices) GetDiscoveredEvents(context.Context, models.EventFilter) ([]models.Event, error) {
	return nil, nil
}

func (s *stubServices) GetEventsInBounds(context.Context, models.Bounds) ([]models.Event, error) {
	return nil, nil
}

func (s *stubServices) GetEventByID(_ context.Context, id string) (*models.Event, error) {
	return nil, errors.New("not found")
}

func (s *stubServices) GetStats(context.Context) (*models.Stats, error) {
	n := int(s.statsCalls.Add(1))
	return &models.Stats{Founders: n}, nil
}

func (s *stubServices) DeleteAccount(context.Context, string) error { return nil }

// tokenUsers accepts "<name>-uuid" tokens as the id of user <name>.
type tokenUsers struct{}

func (tokenUsers) ValidateAccessToken(_ context.Context, token string) (*authmodels.UserInfo, error) {
	if !strings.HasSuffix(token, "-uuid") {
		return nil, errors.New("unknown token")
	}
	return &authmodels.UserInfo{ID: token}, nil
}

// switchableOrigin fails every request while offline is set.
type switchableOrigin struct {
	next    http.Handler
	offline atomic.Bool
}

func (o *switchableOrigin) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if o.offline.Load() {
		panic(http.ErrAbortHandler)
	}
	o.next.ServeHTTP(w, r)
}

type testApp struct {
	handler  http.Handler
	origin   *switchableOrigin
	storage  *cache.MemoryStorage
	services *stubServices
	front    *FrontHandler
}

func newTestApp(t *testing.T, offlineAtInstall bool) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := &stubServices{}
	apiRouter := api.NewRouter(api.NewHandler(svc, svc, svc, svc), func(c *gin.Context) { c.Next() })
	shell, err := web.NewShell(&config.ServerConfig{Name: "Civic Match"}, tokenUsers{})
	require.NoError(t, err)

	o := &switchableOrigin{next: newOriginMux(apiRouter, shell.Handler())}
	o.offline.Store(offlineAtInstall)

	workerCfg := &config.WorkerConfig{Enabled: true, CacheVersion: "cm-cache-test", Origin: origin, OfflinePath: "/offline"}
	network, err := requester.NewHTTPRequester(requester.HTTPRequesterParams{
		NetworkConfig: &config.NetworkConfig{Timeout: 5 * time.Second},
		WorkerConfig:  workerCfg,
		Origin:        o,
	})
	require.NoError(t, err)

	manifest, err := worker.NewManifest(config.DefaultPrecache...)
	require.NoError(t, err)
	storage := cache.NewMemoryStorage()
	w, err := worker.NewWorker(workerCfg, manifest, storage, network)
	require.NoError(t, err)
	reg := worker.NewRegistration(w)
	if err := reg.Register(context.Background()); !offlineAtInstall {
		require.NoError(t, err)
	}
	t.Cleanup(reg.Wait)

	front, err := NewFrontHandler(workerCfg, reg, network)
	require.NoError(t, err)
	srv := NewServer(&config.ServerConfig{}, front, handler.NewHandler(nil))

	return &testApp{handler: srv.Handler(), origin: o, storage: storage, services: svc, front: front}
}

func (a *testApp) do(method, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)
	return w
}

var navigation = http.Header{"Sec-Fetch-Mode": {"navigate"}, "Accept": {"text/html"}}

func (a *testApp) cachedKeys(t *testing.T) []string {
	t.Helper()
	store, err := a.storage.Open(context.Background(), "cm-cache-test")
	require.NoError(t, err)
	keys, err := store.Keys(context.Background())
	require.NoError(t, err)
	return keys
}

func TestServer_InstallPrecachesShell(t *testing.T) {
	app := newTestApp(t, false)
	assert.ElementsMatch(t, []string{
		origin + "/",
		origin + "/offline",
		origin + "/manifest.webmanifest",
		origin + "/icon.svg",
		origin + "/favicon.ico",
	}, app.cachedKeys(t))
}

func TestServer_NavigationIsNetworkFirst(t *testing.T) {
	app := newTestApp(t, false)

	w := app.do(http.MethodGet, "/", navigation)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Find your civic co-founder")
	assert.NotEmpty(t, w.Header().Get(handler.RequestIDHeader))

	app.origin.offline.Store(true)
	w = app.do(http.MethodGet, "/events", navigation)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "You're offline")
}

func TestServer_APIIsStaleWhileRevalidate(t *testing.T) {
	app := newTestApp(t, false)

	w := app.do(http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"stats":{"founders":1,"challenges":0,"events":0,"upcoming_events":0}}`, w.Body.String())
	assert.Contains(t, app.cachedKeys(t), origin+"/api/stats")

	// the cached copy is served while the store refreshes in the background
	w = app.do(http.MethodGet, "/api/stats", nil)
	assert.JSONEq(t, `{"stats":{"founders":1,"challenges":0,"events":0,"upcoming_events":0}}`, w.Body.String())
	app.front.registration.Wait()

	w = app.do(http.MethodGet, "/api/stats", nil)
	assert.JSONEq(t, `{"stats":{"founders":2,"challenges":0,"events":0,"upcoming_events":0}}`, w.Body.String())

	app.origin.offline.Store(true)
	w = app.do(http.MethodGet, "/api/stats", nil)
	assert.Equal(t, http.StatusOK, w.Code, "cached copy survives going offline")
}

func TestServer_OfflineMissIsNetworkError(t *testing.T) {
	app := newTestApp(t, false)
	app.origin.offline.Store(true)

	w := app.do(http.MethodGet, "/api/categories", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"NETWORK_ERROR"`)
}

func TestServer_NonGETPassesThrough(t *testing.T) {
	app := newTestApp(t, false)

	w := app.do(http.MethodDelete, "/api/account", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotContains(t, app.cachedKeys(t), origin+"/api/account")
}

func TestServer_CrossOriginRequestIsNotIntercepted(t *testing.T) {
	app := newTestApp(t, false)

	req := httptest.NewRequest(http.MethodGet, "http://tiles.example.org/1/2/3.png", nil)
	w := httptest.NewRecorder()
	app.handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	for _, key := range app.cachedKeys(t) {
		assert.True(t, strings.HasPrefix(key, origin), key)
	}
}

func TestServer_FailedInstallRetriesOnNavigation(t *testing.T) {
	app := newTestApp(t, true)
	require.Nil(t, app.front.registration.Controller())

	app.origin.offline.Store(false)
	w := app.do(http.MethodGet, "/", navigation)
	assert.Equal(t, http.StatusOK, w.Code, "uncontrolled requests go to the network")

	assert.Eventually(t, func() bool {
		return app.front.registration.Controller() != nil
	}, 2*time.Second, 10*time.Millisecond)
	assert.Len(t, app.cachedKeys(t), len(config.DefaultPrecache))
}

func TestServer_HeadRequest(t *testing.T) {
	app := newTestApp(t, false)

	w := app.do(http.MethodHead, "/icon.svg", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.Bytes())
}

func TestServer_CredentialedResponsesAreNotShared(t *testing.T) {
	app := newTestApp(t, false)
	fetch := http.Header{"Sec-Fetch-Mode": {"cors"}}

	w := app.do(http.MethodGet, "/profile", http.Header{"Sec-Fetch-Mode": {"cors"}, "Authorization": {"Bearer alice-uuid"}})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/founders/alice-uuid", w.Header().Get("Location"))

	w = app.do(http.MethodGet, "/profile", fetch)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login?next=/profile", w.Header().Get("Location"))

	w = app.do(http.MethodGet, "/profile", http.Header{"Sec-Fetch-Mode": {"cors"}, "Cookie": {"cm-access-token=bob-uuid"}})
	assert.Equal(t, "/founders/bob-uuid", w.Header().Get("Location"))

	w = app.do(http.MethodGet, "/profile", fetch)
	assert.Equal(t, "/login?next=/profile", w.Header().Get("Location"))
	app.front.registration.Wait()
	assert.NotContains(t, app.cachedKeys(t), origin+"/profile")
}

// etagOrigin serves every path with a fixed ETag and honors If-None-Match.
func etagOrigin(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", `"v1"`)
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("content of " + r.URL.Path))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestServer_ClientValidatorsDoNotReachSharedStore(t *testing.T) {
	upstream := etagOrigin(t)
	workerCfg := &config.WorkerConfig{Enabled: true, CacheVersion: "cm-cache-test", Origin: origin, OfflinePath: "/offline"}
	network, err := requester.NewHTTPRequester(requester.HTTPRequesterParams{
		NetworkConfig: &config.NetworkConfig{Upstream: upstream.URL, Timeout: 5 * time.Second},
		WorkerConfig:  workerCfg,
	})
	require.NoError(t, err)

	manifest, err := worker.NewManifest(config.DefaultPrecache...)
	require.NoError(t, err)
	storage := cache.NewMemoryStorage()
	wk, err := worker.NewWorker(workerCfg, manifest, storage, network)
	require.NoError(t, err)
	reg := worker.NewRegistration(wk)
	require.NoError(t, reg.Register(context.Background()))
	t.Cleanup(reg.Wait)

	front, err := NewFrontHandler(workerCfg, reg, network)
	require.NoError(t, err)
	app := &testApp{handler: NewServer(&config.ServerConfig{}, front, handler.NewHandler(nil)).Handler(), storage: storage, front: front}

	w := app.do(http.MethodGet, "/api/events", http.Header{"If-None-Match": {`"v1"`}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "content of /api/events", w.Body.String())
	reg.Wait()

	w = app.do(http.MethodGet, "/api/events", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "content of /api/events", w.Body.String())
}
