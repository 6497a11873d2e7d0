package services

import (
	"context"
	"fmt"

	"github.com/civicmatch/civic-match/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ChallengeService reads civic challenges.
type ChallengeService struct {
	pool *pgxpool.Pool
}

// NewChallengeService creates a new ChallengeService
func NewChallengeService(pool *pgxpool.Pool) *ChallengeService {
	return &ChallengeService{pool: pool}
}

// GetCategories lists challenge categories with the number of challenges in each.
func (s *ChallengeService) GetCategories(ctx context.Context) ([]models.Category, error) {
	query := `
		SELECT category, COUNT(*)
		FROM challenges
		WHERE category <> ''
		GROUP BY category
		ORDER BY category ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.Name, &c.ChallengeCount); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}
	return categories, nil
}
