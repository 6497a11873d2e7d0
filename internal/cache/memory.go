package cache

import (
	"context"
	"slices"
	"sync"

	"github.com/civicmatch/civic-match/internal/models"
)

// MemoryStorage keeps stores in process memory.
type MemoryStorage struct {
	mu     sync.RWMutex
	stores map[string]*memoryCache
	order  []string
}

// NewMemoryStorage creates an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{stores: make(map[string]*memoryCache)}
}

func (s *MemoryStorage) Open(_ context.Context, name string) (Cache, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.stores[name]; ok {
		return c, nil
	}
	c := &memoryCache{name: name, entries: make(map[string]*models.Response)}
	s.stores[name] = c
	s.order = append(s.order, name)
	return c, nil
}

func (s *MemoryStorage) Has(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.stores[name]
	return ok, nil
}

func (s *MemoryStorage) Delete(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.stores[name]
	if !ok {
		return false, nil
	}
	delete(s.stores, name)
	s.order = slices.DeleteFunc(s.order, func(n string) bool { return n == name })

	// handles that are still open see an empty store
	c.mu.Lock()
	c.entries = make(map[string]*models.Response)
	c.keys = nil
	c.mu.Unlock()
	return true, nil
}

func (s *MemoryStorage) Names(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.order), nil
}

func (s *MemoryStorage) Close() error { return nil }

type memoryCache struct {
	name    string
	mu      sync.RWMutex
	entries map[string]*models.Response
	keys    []string
}

func (c *memoryCache) Name() string { return c.name }

func (c *memoryCache) Match(_ context.Context, key string) (*models.Response, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[key].Clone(), nil
}

func (c *memoryCache) Put(_ context.Context, key string, resp *models.Response) error {
	if err := Storable(resp); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.put(key, resp)
	return nil
}

func (c *memoryCache) put(key string, resp *models.Response) {
	if _, ok := c.entries[key]; !ok {
		c.keys = append(c.keys, key)
	}
	c.entries[key] = resp.Clone()
}

func (c *memoryCache) PutAll(_ context.Context, entries map[string]*models.Response) error {
	for _, resp := range entries {
		if err := Storable(resp); err != nil {
			return err
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range sortedKeys(entries) {
		c.put(key, entries[key])
	}
	return nil
}

func (c *memoryCache) Delete(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok {
		return false, nil
	}
	delete(c.entries, key)
	c.keys = slices.DeleteFunc(c.keys, func(k string) bool { return k == key })
	return true, nil
}

func (c *memoryCache) Keys(_ context.Context) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.keys))
	for _, k := range c.keys {
		if _, ok := c.entries[k]; ok {
			out = append(out, k)
		}
	}
	return out, nil
}

func sortedKeys(m map[string]*models.Response) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
