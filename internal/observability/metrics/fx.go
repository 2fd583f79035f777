package metrics

import (
	"go.uber.org/fx"

	"github.com/esportubt/discord-bot/internal/config"
	"github.com/esportubt/discord-bot/internal/reconcile"
)

var Module = fx.Module("observability.metrics",
	fx.Provide(func(cfg config.Config) *SyncMetrics {
		return SyncWithConfig(Config{
			ServiceName: "rolesync",
			Environment: cfg.Environment,
		})
	}),
	fx.Provide(func(m *SyncMetrics) reconcile.Metrics {
		return m
	}),
)
