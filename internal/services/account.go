package services

import (
	"context"
	"fmt"

	"github.com/civicmatch/civic-match/internal/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// UserDeleter removes a user from the identity provider.
type UserDeleter interface {
	DeleteUser(ctx context.Context, userID string) error
}

// AccountService deletes a founder's data and identity.
type AccountService struct {
	pool  *pgxpool.Pool
	users UserDeleter
}

// NewAccountService creates a new AccountService
func NewAccountService(pool *pgxpool.Pool, users UserDeleter) *AccountService {
	return &AccountService{pool: pool, users: users}
}

// DeleteAccount removes every row owned by userID in one transaction, then the
// auth user. Challenges outlive their author and are only unlinked.
func (s *AccountService) DeleteAccount(ctx context.Context, userID string) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM events WHERE created_by = $1`, userID); err != nil {
			return fmt.Errorf("failed to delete events: %w", err)
		}
		if _, err := tx.Exec(ctx, `UPDATE challenges SET created_by = NULL WHERE created_by = $1`, userID); err != nil {
			return fmt.Errorf("failed to unlink challenges: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM profiles WHERE id = $1`, userID); err != nil {
			return fmt.Errorf("failed to delete profile: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete account data: %w", err)
	}

	if err := s.users.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete auth user: %w", err)
	}
	logger.Info("Account deleted", zap.String("user_id", userID))
	return nil
}
