package tui

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/civicmatch/civic-match/internal/cache"
	"github.com/civicmatch/civic-match/internal/tui/models"
)

const previewBytes = 2048

// LoadStores summarizes every store in storage.
func LoadStores(ctx context.Context, storage cache.Storage, current string) ([]StoreSummary, error) {
	names, err := storage.Names(ctx)
	if err != nil {
		return nil, err
	}
	stores := make([]StoreSummary, 0, len(names))
	for _, name := range names {
		store, err := storage.Open(ctx, name)
		if err != nil {
			return nil, err
		}
		keys, err := store.Keys(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", name, err)
		}
		stores = append(stores, StoreSummary{Name: name, Entries: len(keys), Current: name == current})
	}
	return stores, nil
}

// LoadEntries reads every entry of store for display.
func LoadEntries(ctx context.Context, store cache.Cache) ([]models.EntryItem, error) {
	keys, err := store.Keys(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]models.EntryItem, 0, len(keys))
	for _, key := range keys {
		resp, err := store.Match(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", key, err)
		}
		if resp == nil {
			// deleted since Keys
			continue
		}
		contentType := resp.Header.Get("Content-Type")
		entries = append(entries, models.EntryItem{
			Key:         key,
			StatusCode:  resp.StatusCode,
			ContentType: contentType,
			Size:        len(resp.Body),
			Header:      resp.Header,
			Preview:     preview(contentType, resp.Body),
		})
	}
	return entries, nil
}

func preview(contentType string, body []byte) string {
	textual := strings.HasPrefix(contentType, "text/") ||
		strings.Contains(contentType, "json") ||
		strings.Contains(contentType, "xml") ||
		strings.Contains(contentType, "javascript")
	if !textual {
		return fmt.Sprintf("(%d bytes of %s)", len(body), contentType)
	}
	if len(body) <= previewBytes {
		return string(body)
	}
	cut := body[:previewBytes]
	for len(cut) > 0 && !utf8.Valid(cut) {
		cut = cut[:len(cut)-1]
	}
	return string(cut) + "\n..."
}
