// Package worker implements the caching worker that sits between clients and
// the origin: it precaches the application shell on install, sweeps stores of
// older versions on activate, and answers same-origin GET requests from its
// versioned store.
package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/civicmatch/civic-match/internal/cache"
	"github.com/civicmatch/civic-match/internal/config"
	"github.com/civicmatch/civic-match/internal/logger"
	"github.com/civicmatch/civic-match/internal/models"
	"github.com/civicmatch/civic-match/internal/requester"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNotIntercepted means the worker leaves the request to the default
	// network fetch, untouched.
	ErrNotIntercepted = errors.New("request not intercepted")
	// ErrNetwork is returned when the network failed and no cached response
	// could stand in for it.
	ErrNetwork = errors.New("network request failed")
)

// Controller is driven by the hosting runtime.
type Controller interface {
	OnInstall(ctx context.Context) error
	OnActivate(ctx context.Context) error
	OnFetch(ctx context.Context, req *models.Request) (*models.Response, error)
}

// Worker is the caching Controller. Its only state is the cache store named
// after version.
type Worker struct {
	version    string
	origin     *url.URL
	offlineKey string
	precache   []models.PrecacheEntry

	storage cache.Storage
	network requester.Fetcher

	revalidations sync.WaitGroup
}

var _ Controller = (*Worker)(nil)

// NewWorker creates a Worker for cfg. The offline page is always precached.
func NewWorker(cfg *config.WorkerConfig, manifest *Manifest, storage cache.Storage, network requester.Fetcher) (*Worker, error) {
	if cfg.CacheVersion == "" {
		return nil, fmt.Errorf("cache version is required")
	}
	origin, err := url.Parse(cfg.Origin)
	if err != nil || origin.Scheme == "" || origin.Host == "" {
		return nil, fmt.Errorf("invalid origin %q", cfg.Origin)
	}

	offlinePath := cfg.OfflinePath
	if offlinePath == "" {
		offlinePath = "/offline"
	}
	m := &Manifest{entries: manifest.Entries()}
	if err := m.add(models.PrecacheEntry{Path: offlinePath}); err != nil {
		return nil, err
	}

	w := &Worker{
		version:  cfg.CacheVersion,
		origin:   origin,
		precache: m.entries,
		storage:  storage,
		network:  network,
	}
	w.offlineKey = w.request(offlinePath).CacheKey()
	return w, nil
}

// Version returns the name of the store the worker reads and writes.
func (w *Worker) Version() string {
	return w.version
}

// OnInstall fetches every precache entry concurrently and stores them all, or
// none of them when any required fetch fails.
func (w *Worker) OnInstall(ctx context.Context) error {
	log := logger.FromContext(ctx).With(zap.String("cache", w.version))
	log.Info("Installing caching worker", zap.Int("precache", len(w.precache)))

	results := make([]*models.Response, len(w.precache))
	g, gctx := errgroup.WithContext(ctx)
	for i, entry := range w.precache {
		g.Go(func() error {
			resp, err := w.network.Fetch(gctx, w.request(entry.Path))
			if err == nil && !resp.OK() {
				err = fmt.Errorf("unexpected status %d", resp.StatusCode)
			}
			if err != nil {
				if entry.Optional {
					log.Warn("Skipping optional precache entry", zap.String("path", entry.Path), zap.Error(err))
					return nil
				}
				return fmt.Errorf("precache %s: %w", entry.Path, err)
			}
			results[i] = resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("install failed: %w", err)
	}

	entries := make(map[string]*models.Response, len(results))
	for i, resp := range results {
		if resp != nil {
			entries[w.request(w.precache[i].Path).CacheKey()] = resp
		}
	}

	store, err := w.storage.Open(ctx, w.version)
	if err != nil {
		return fmt.Errorf("failed to open cache %s: %w", w.version, err)
	}
	if err := store.PutAll(ctx, entries); err != nil {
		return fmt.Errorf("failed to store precache: %w", err)
	}
	log.Info("Caching worker installed", zap.Int("entries", len(entries)))
	return nil
}

// OnActivate deletes every store except the current version.
func (w *Worker) OnActivate(ctx context.Context) error {
	_, err := SweepStale(ctx, w.storage, w.version)
	return err
}

// SweepStale deletes every store not named keep and returns the deleted
// names. A failed delete does not stop the sweep.
func SweepStale(ctx context.Context, storage cache.Storage, keep string) ([]string, error) {
	log := logger.FromContext(ctx)

	names, err := storage.Names(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list caches: %w", err)
	}

	var deleted []string
	var errs []error
	for _, name := range names {
		if name == keep {
			continue
		}
		if _, err := storage.Delete(ctx, name); err != nil {
			errs = append(errs, fmt.Errorf("failed to delete cache %s: %w", name, err))
			continue
		}
		deleted = append(deleted, name)
		log.Info("Deleted stale cache", zap.String("cache", name))
	}
	return deleted, errors.Join(errs...)
}

// OnFetch answers req. Non-GET and cross-origin requests return
// ErrNotIntercepted; navigations go to the network first; everything else is
// served stale-while-revalidate. The store is shared by every client, so
// credentialed subresource requests also return ErrNotIntercepted.
func (w *Worker) OnFetch(ctx context.Context, req *models.Request) (*models.Response, error) {
	if req.Method != http.MethodGet {
		return nil, ErrNotIntercepted
	}
	if !requester.SameOrigin(w.origin, req.URL) {
		return nil, ErrNotIntercepted
	}
	if req.IsNavigation() {
		return w.navigate(ctx, req)
	}
	if req.HasCredentials() {
		return nil, ErrNotIntercepted
	}
	return w.staleWhileRevalidate(ctx, req.WithoutValidators())
}

// Wait blocks until background revalidations have finished.
func (w *Worker) Wait() {
	w.revalidations.Wait()
}

func (w *Worker) navigate(ctx context.Context, req *models.Request) (*models.Response, error) {
	resp, err := w.network.Fetch(ctx, req)
	if err == nil {
		return resp, nil
	}

	log := logger.FromContext(ctx)
	log.Debug("Navigation failed, serving offline page", zap.String("url", req.URL.String()), zap.Error(err))

	offline := w.match(ctx, w.offlineKey)
	if offline == nil {
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	return offline, nil
}

func (w *Worker) staleWhileRevalidate(ctx context.Context, req *models.Request) (*models.Response, error) {
	key := req.CacheKey()

	if cached := w.match(ctx, key); cached != nil {
		w.revalidate(context.WithoutCancel(ctx), req, key)
		return cached, nil
	}

	resp, err := w.network.Fetch(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	w.put(context.WithoutCancel(ctx), key, resp)
	return resp, nil
}

func (w *Worker) revalidate(ctx context.Context, req *models.Request, key string) {
	w.revalidations.Add(1)
	go func() {
		defer w.revalidations.Done()

		resp, err := w.network.Fetch(ctx, req)
		if err != nil {
			logger.FromContext(ctx).Debug("Revalidation failed", zap.String("key", key), zap.Error(err))
			return
		}
		w.put(ctx, key, resp)
	}()
}

// match returns nil on a miss and on read errors; a broken store degrades to
// the network.
func (w *Worker) match(ctx context.Context, key string) *models.Response {
	store, err := w.storage.Open(ctx, w.version)
	if err != nil {
		logger.FromContext(ctx).Debug("Cache open failed", zap.String("cache", w.version), zap.Error(err))
		return nil
	}
	resp, err := store.Match(ctx, key)
	if err != nil {
		logger.FromContext(ctx).Debug("Cache read failed", zap.String("key", key), zap.Error(err))
		return nil
	}
	return resp
}

// put stores a clone of resp. Failures are logged and otherwise ignored.
func (w *Worker) put(ctx context.Context, key string, resp *models.Response) {
	log := logger.FromContext(ctx)

	store, err := w.storage.Open(ctx, w.version)
	if err != nil {
		log.Debug("Cache open failed", zap.String("cache", w.version), zap.Error(err))
		return
	}
	if err := store.Put(ctx, key, resp.Clone()); err != nil {
		log.Debug("Cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (w *Worker) request(path string) *models.Request {
	u := *w.origin
	ref, err := url.Parse(path)
	if err == nil {
		u.Path = ref.Path
		u.RawPath = ref.RawPath
		u.RawQuery = ref.RawQuery
	} else {
		u.Path = path
	}
	u.Fragment = ""
	header := http.Header{}
	header.Set("Accept", "*/*")
	return &models.Request{
		Method: http.MethodGet,
		URL:    &u,
		Header: header,
		Mode:   models.RequestModeNoCORS,
	}
}
