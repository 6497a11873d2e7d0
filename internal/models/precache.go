package models

// PrecacheEntry is one resource installed by the caching worker.
type PrecacheEntry struct {
	Path     string `yaml:"path"`
	Optional bool   `yaml:"optional,omitempty"`
}

// PrecacheManifest is the on-disk form of worker.precache_file.
type PrecacheManifest struct {
	Version string          `yaml:"version,omitempty"`
	Entries []PrecacheEntry `yaml:"entries"`
}
