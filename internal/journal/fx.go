package journal

import (
	"go.uber.org/fx"

	"github.com/esportubt/discord-bot/internal/reconcile"
)

var Module = fx.Module("journal",
	fx.Provide(New),
	fx.Provide(func(j *Journal) reconcile.Sink {
		return j
	}),
)
