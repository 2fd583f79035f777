package discord

import (
	"github.com/bwmarrin/discordgo"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/esportubt/discord-bot/internal/config"
	"github.com/esportubt/discord-bot/internal/platform/domain"
)

var Module = fx.Module("platform.discord",
	fx.Provide(func(cfg config.Config) (*discordgo.Session, error) {
		return discordgo.New("Bot " + cfg.Discord.Token)
	}),
	fx.Provide(func(s *discordgo.Session, cfg config.Config, log *zap.Logger) domain.Adapter {
		return New(s, cfg.Discord.GuildID, log)
	}),
)
