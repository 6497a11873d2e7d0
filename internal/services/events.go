package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/civicmatch/civic-match/internal/apperr"
	"github.com/civicmatch/civic-match/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	DefaultEventLimit = 50
	MaxEventLimit     = 100
	// MaxMapEvents caps a single map viewport.
	MaxMapEvents = 500
)

const eventColumns = `
	id::text, title, description, starts_at, ends_at, location, latitude, longitude,
	url, category, source, organizer, meeting_platform, meeting_url, created_at`

// EventDiscoveryService reads community and discovered events.
type EventDiscoveryService struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewEventDiscoveryService creates a new EventDiscoveryService
func NewEventDiscoveryService(pool *pgxpool.Pool) *EventDiscoveryService {
	return &EventDiscoveryService{pool: pool, now: time.Now}
}

// GetCombinedEvents merges community and discovered events by start time.
// Discovered events pointing at the URL of a community event are dropped.
func (s *EventDiscoveryService) GetCombinedEvents(ctx context.Context, filter models.EventFilter) ([]models.Event, error) {
	limit := clampLimit(filter.Limit)
	since := filter.Since
	if filter.Upcoming {
		now := s.now()
		since = &now
	}

	community, err := s.listBySource(ctx, models.EventSourceCommunity, filter.Category, since, limit)
	if err != nil {
		return nil, err
	}
	return combineEvents(community, limit, func(n int) ([]models.Event, error) {
		return s.listBySource(ctx, models.EventSourceDiscovered, filter.Category, since, n)
	})
}

// combineEvents merges community events with enough discovered events to fill
// limit. fetchDiscovered returns the first n discovered events by start time;
// the window doubles while duplicates leave the page short or unfetched rows
// could still sort into it.
func combineEvents(community []models.Event, limit int, fetchDiscovered func(n int) ([]models.Event, error)) ([]models.Event, error) {
	n := limit + len(community)
	for {
		discovered, err := fetchDiscovered(n)
		if err != nil {
			return nil, err
		}
		merged := MergeEvents(community, discovered, limit)
		if len(discovered) < n {
			return merged, nil
		}
		last := discovered[len(discovered)-1].StartsAt
		if len(merged) == limit && !merged[limit-1].StartsAt.After(last) {
			return merged, nil
		}
		n *= 2
	}
}

// GetDiscoveredEvents lists events found by the discovery pipeline.
func (s *EventDiscoveryService) GetDiscoveredEvents(ctx context.Context, filter models.EventFilter) ([]models.Event, error) {
	return s.listBySource(ctx, models.EventSourceDiscovered, filter.Category, filter.Since, clampLimit(filter.Limit))
}

func (s *EventDiscoveryService) listBySource(ctx context.Context, source, category string, since *time.Time, limit int) ([]models.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE source = $1
		  AND ($2 = '' OR category = $2)
		  AND ($3::timestamptz IS NULL OR starts_at >= $3)
		ORDER BY starts_at ASC, id ASC
		LIMIT $4
	`

	rows, err := s.pool.Query(ctx, query, source, category, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s events: %w", source, err)
	}
	return collectEvents(rows)
}

// GetEventsInBounds lists events whose coordinates fall inside b. A box with
// West > East wraps around the antimeridian.
func (s *EventDiscoveryService) GetEventsInBounds(ctx context.Context, b models.Bounds) ([]models.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE latitude IS NOT NULL AND longitude IS NOT NULL
		  AND latitude BETWEEN $1 AND $2
		  AND (
			($5 AND (longitude >= $3 OR longitude <= $4))
			OR (NOT $5 AND longitude BETWEEN $3 AND $4)
		  )
		ORDER BY starts_at ASC, id ASC
		LIMIT $6
	`

	rows, err := s.pool.Query(ctx, query, b.South, b.North, b.West, b.East, b.CrossesAntimeridian(), MaxMapEvents)
	if err != nil {
		return nil, fmt.Errorf("failed to list events in bounds: %w", err)
	}
	return collectEvents(rows)
}

// GetEventByID retrieves an event by ID
func (s *EventDiscoveryService) GetEventByID(ctx context.Context, id string) (*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

	event, err := scanEvent(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NewNotFound("Event", id)
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return event, nil
}

func collectEvents(rows pgx.Rows) ([]models.Event, error) {
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, *event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return events, nil
}

func scanEvent(row pgx.Row) (*models.Event, error) {
	var (
		event    models.Event
		platform *string
		joinURL  *string
	)
	if err := row.Scan(
		&event.ID,
		&event.Title,
		&event.Description,
		&event.StartsAt,
		&event.EndsAt,
		&event.Location,
		&event.Latitude,
		&event.Longitude,
		&event.URL,
		&event.Category,
		&event.Source,
		&event.Organizer,
		&platform,
		&joinURL,
		&event.CreatedAt,
	); err != nil {
		return nil, err
	}
	if joinURL != nil && *joinURL != "" {
		event.Meeting = &models.MeetingDetails{JoinURL: *joinURL}
		if platform != nil {
			event.Meeting.Platform = *platform
		}
	}
	return &event, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultEventLimit
	case limit > MaxEventLimit:
		return MaxEventLimit
	default:
		return limit
	}
}
