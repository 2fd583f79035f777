package logger

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/esportubt/discord-bot/internal/config"
)

// New builds the process logger: console output in development, JSON in
// every other environment.
func New(cfg config.Config) (*zap.Logger, error) {
	if cfg.IsDevelopment() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

var Module = fx.Module("logger",
	fx.Provide(New),
)
