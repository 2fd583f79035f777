package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/esportubt/discord-bot/internal/clock"
	"github.com/esportubt/discord-bot/internal/config"
	"github.com/esportubt/discord-bot/internal/directory/webling"
	"github.com/esportubt/discord-bot/internal/journal"
	"github.com/esportubt/discord-bot/internal/logger"
	"github.com/esportubt/discord-bot/internal/observability/metrics"
	"github.com/esportubt/discord-bot/internal/platform/discord"
	"github.com/esportubt/discord-bot/internal/reconcile"
	"github.com/esportubt/discord-bot/internal/scheduler"
	"github.com/esportubt/discord-bot/internal/server"
	"github.com/esportubt/discord-bot/pkg/db"
)

var version = "dev"

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		clock.Module,
		fx.Provide(func() *snowflake.Node {
			node, err := snowflake.NewNode(1)
			if err != nil {
				panic(err)
			}
			return node
		}),
		db.Module,
		journal.Module,
		webling.Module,
		discord.Module,
		metrics.Module,
		reconcile.Module,
		scheduler.Module,
		server.Module,
	)
	app.Run()
}
