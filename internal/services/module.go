package services

import (
	"github.com/civicmatch/civic-match/internal/requester"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
)

// Module provides the database-backed services
var Module = fx.Module("services",
	fx.Provide(
		NewChallengeService,
		NewEventDiscoveryService,
		NewStatsService,
		func(pool *pgxpool.Pool, backend *requester.BackendClient) *AccountService {
			return NewAccountService(pool, backend)
		},
	),
)
