package worker

import (
	"fmt"
	"os"
	"strings"

	"github.com/civicmatch/civic-match/internal/config"
	"github.com/civicmatch/civic-match/internal/logger"
	"github.com/civicmatch/civic-match/internal/models"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Manifest is the precache list installed into the current cache store.
type Manifest struct {
	entries []models.PrecacheEntry
}

// NewManifest builds a manifest from paths. Duplicates are dropped and every
// path must be absolute.
func NewManifest(paths ...string) (*Manifest, error) {
	m := &Manifest{}
	for _, p := range paths {
		if err := m.add(models.PrecacheEntry{Path: p}); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// LoadManifest combines worker.precache with the entries of
// worker.precache_file, when set.
func LoadManifest(cfg *config.WorkerConfig) (*Manifest, error) {
	paths := cfg.Precache
	if len(paths) == 0 {
		paths = config.DefaultPrecache
	}
	m, err := NewManifest(paths...)
	if err != nil {
		return nil, err
	}
	if err := m.Load(cfg.PrecacheFile, cfg.CacheVersion); err != nil {
		return nil, err
	}
	return m, nil
}

// Load merges the entries of a YAML precache file. An empty path is a no-op.
// A file pinned to another cache version is rejected so a stale manifest
// cannot populate a new store.
func (m *Manifest) Load(filePath, version string) error {
	if filePath == "" {
		return nil
	}

	logger.Info("Loading precache manifest", zap.String("file", filePath))
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read precache file: %w", err)
	}

	var manifest models.PrecacheManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return fmt.Errorf("failed to parse precache file: %w", err)
	}
	if manifest.Version != "" && manifest.Version != version {
		return fmt.Errorf("precache file is for cache version %q, current is %q", manifest.Version, version)
	}

	for _, e := range manifest.Entries {
		if err := m.add(e); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manifest) add(e models.PrecacheEntry) error {
	e.Path = strings.TrimSpace(e.Path)
	if !strings.HasPrefix(e.Path, "/") {
		return fmt.Errorf("precache path must be absolute: %q", e.Path)
	}
	for i, existing := range m.entries {
		if existing.Path == e.Path {
			// required wins over optional
			m.entries[i].Optional = existing.Optional && e.Optional
			return nil
		}
	}
	m.entries = append(m.entries, e)
	return nil
}

// Entries returns a copy of the precache list.
func (m *Manifest) Entries() []models.PrecacheEntry {
	return append([]models.PrecacheEntry(nil), m.entries...)
}

// Paths returns the precache paths in install order.
func (m *Manifest) Paths() []string {
	paths := make([]string, len(m.entries))
	for i, e := range m.entries {
		paths[i] = e.Path
	}
	return paths
}
