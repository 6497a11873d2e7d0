package api

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/civicmatch/civic-match/internal/apperr"
	"github.com/civicmatch/civic-match/internal/models"
	"github.com/civicmatch/civic-match/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// parseEventFilter reads limit and category, plus since for discovered
// listings or upcoming for combined ones.
func parseEventFilter(c *gin.Context, withSince bool) (models.EventFilter, error) {
	filter := models.EventFilter{Category: c.Query("category")}

	limit, err := parseIntRange(c, "limit", services.DefaultEventLimit, 1, services.MaxEventLimit)
	if err != nil {
		return filter, err
	}
	filter.Limit = limit

	if withSince {
		if raw := c.Query("since"); raw != "" {
			since, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return filter, apperr.NewValidation("since", "must be an RFC 3339 timestamp")
			}
			filter.Since = &since
		}
		return filter, nil
	}

	if raw := c.Query("upcoming"); raw != "" {
		upcoming, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, apperr.NewValidation("upcoming", "must be a boolean")
		}
		filter.Upcoming = upcoming
	}
	return filter, nil
}

func parseIntRange(c *gin.Context, name string, def, lo, hi int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < lo || v > hi {
		return 0, apperr.NewValidation(name, fmt.Sprintf("must be an integer between %d and %d", lo, hi))
	}
	return v, nil
}

// parseBounds reads the four required viewport edges.
func parseBounds(c *gin.Context) (models.Bounds, error) {
	var b models.Bounds
	edges := []struct {
		name  string
		dst   *float64
		limit float64
	}{
		{"north", &b.North, 90},
		{"south", &b.South, 90},
		{"east", &b.East, 180},
		{"west", &b.West, 180},
	}
	for _, e := range edges {
		raw, ok := c.GetQuery(e.name)
		if !ok || raw == "" {
			return b, apperr.NewValidation(e.name, "is required")
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return b, apperr.NewValidation(e.name, "must be a number")
		}
		if v < -e.limit || v > e.limit {
			return b, apperr.NewValidation(e.name, fmt.Sprintf("must be between %g and %g", -e.limit, e.limit))
		}
		*e.dst = v
	}
	if b.North < b.South {
		return b, apperr.NewValidation("north", "must not be less than south")
	}
	return b, nil
}

func parseUUID(name, raw string) (string, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", apperr.NewValidation(name, "must be a UUID")
	}
	return id.String(), nil
}
