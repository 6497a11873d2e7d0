package services

import (
	"context"
	"fmt"

	"github.com/civicmatch/civic-match/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StatsService computes the landing page counters.
type StatsService struct {
	pool *pgxpool.Pool
}

// NewStatsService creates a new StatsService
func NewStatsService(pool *pgxpool.Pool) *StatsService {
	return &StatsService{pool: pool}
}

// GetStats returns every counter in one round trip.
func (s *StatsService) GetStats(ctx context.Context) (*models.Stats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM profiles),
			(SELECT COUNT(*) FROM challenges),
			(SELECT COUNT(*) FROM events),
			(SELECT COUNT(*) FROM events WHERE starts_at >= now())
	`

	var stats models.Stats
	if err := s.pool.QueryRow(ctx, query).Scan(
		&stats.Founders,
		&stats.Challenges,
		&stats.Events,
		&stats.UpcomingEvents,
	); err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	return &stats, nil
}
