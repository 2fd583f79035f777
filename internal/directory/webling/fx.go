package webling

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/esportubt/discord-bot/internal/config"
	"github.com/esportubt/discord-bot/internal/directory/domain"
)

var Module = fx.Module("directory.webling",
	fx.Provide(func(cfg config.Config, log *zap.Logger) domain.Directory {
		return New(cfg.Directory, log)
	}),
)
