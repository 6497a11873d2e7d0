package worker

import (
	"context"

	"github.com/civicmatch/civic-match/internal/config"
	"github.com/civicmatch/civic-match/internal/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func registerOnStart(lc fx.Lifecycle, cfg *config.WorkerConfig, reg *Registration) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if !cfg.Enabled {
				logger.Info("Caching worker disabled")
				return nil
			}
			// a failed install leaves clients uncontrolled; the next
			// navigation retries it
			if err := reg.Register(ctx); err != nil {
				logger.Warn("Caching worker install failed", zap.Error(err))
			}
			return nil
		},
		OnStop: func(context.Context) error {
			reg.Wait()
			return nil
		},
	})
}

// Module provides the caching worker and its registration
var Module = fx.Module("worker",
	fx.Provide(
		LoadManifest,
		NewWorker,
		NewRegistration,
	),
	fx.Invoke(registerOnStart),
)
