package services

import (
	"net/url"
	"sort"
	"strings"

	"github.com/civicmatch/civic-match/internal/models"
)

// MergeEvents interleaves community and discovered events by start time and
// keeps at most limit of them. An event whose URL matches an earlier kept
// event is dropped; community events are kept first, so they win.
func MergeEvents(community, discovered []models.Event, limit int) []models.Event {
	merged := make([]models.Event, 0, len(community)+len(discovered))
	seen := make(map[string]bool, len(community)+len(discovered))

	for _, list := range [][]models.Event{community, discovered} {
		for _, e := range list {
			key := urlKey(e.URL)
			if key != "" {
				if seen[key] {
					continue
				}
				seen[key] = true
			}
			merged = append(merged, e)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].StartsAt.Before(merged[j].StartsAt)
	})
	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

// urlKey normalizes an event URL for duplicate detection.
func urlKey(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.ToLower(raw)
	}
	u.Host = strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	u.Path = strings.TrimRight(u.Path, "/")
	return u.Host + u.Path + "?" + u.RawQuery
}
