// Package cache provides named response stores shared by every client of the
// caching worker. A store is addressed by name; the worker names its store
// after the deployed cache version.
package cache

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/civicmatch/civic-match/internal/models"
)

// ErrUncacheable is returned by Put for responses a cache refuses to hold.
var ErrUncacheable = errors.New("response cannot be cached")

// Storage enumerates and manages named stores.
type Storage interface {
	// Open returns the named store, creating it when missing.
	Open(ctx context.Context, name string) (Cache, error)
	// Has reports whether the named store exists.
	Has(ctx context.Context, name string) (bool, error)
	// Delete removes the named store and all of its entries.
	Delete(ctx context.Context, name string) (bool, error)
	// Names lists stores in creation order.
	Names(ctx context.Context) ([]string, error)
	Close() error
}

// Cache is a single named store keyed by request URL.
type Cache interface {
	Name() string
	// Match returns the stored response, or (nil, nil) when there is none.
	Match(ctx context.Context, key string) (*models.Response, error)
	// Put stores resp under key, replacing any previous entry.
	Put(ctx context.Context, key string, resp *models.Response) error
	// PutAll stores every entry or none of them.
	PutAll(ctx context.Context, entries map[string]*models.Response) error
	Delete(ctx context.Context, key string) (bool, error)
	Keys(ctx context.Context) ([]string, error)
}

// Storable reports whether resp may be written to a cache. Stores are shared
// by every client, so partial content, 304s without a body, responses varying
// on every header and responses marked no-store or private are rejected.
func Storable(resp *models.Response) error {
	if resp == nil {
		return ErrUncacheable
	}
	switch resp.StatusCode {
	case http.StatusPartialContent, http.StatusNotModified:
		return ErrUncacheable
	}
	for _, v := range resp.Header.Values("Vary") {
		if strings.TrimSpace(v) == "*" {
			return ErrUncacheable
		}
	}
	for _, v := range resp.Header.Values("Cache-Control") {
		for _, directive := range strings.Split(v, ",") {
			name, _, _ := strings.Cut(strings.TrimSpace(directive), "=")
			switch strings.ToLower(name) {
			case "no-store", "private":
				return ErrUncacheable
			}
		}
	}
	return nil
}
