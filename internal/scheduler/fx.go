package scheduler

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/esportubt/discord-bot/internal/config"
	"github.com/esportubt/discord-bot/internal/reconcile"
)

var Module = fx.Module("scheduler",
	fx.Provide(func(rec *reconcile.Reconciler, cfg config.Config, log *zap.Logger) *Scheduler {
		return New(rec, cfg.Scheduler.Interval, log)
	}),
	fx.Invoke(func(lc fx.Lifecycle, s *Scheduler, cfg config.Config) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				if !cfg.Scheduler.Enabled {
					return nil
				}
				return s.Start()
			},
			OnStop: func(ctx context.Context) error {
				s.Stop()
				return nil
			},
		})
	}),
)
