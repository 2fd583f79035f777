package reconcile

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/esportubt/discord-bot/internal/clock"
	"github.com/esportubt/discord-bot/internal/config"
	directorydomain "github.com/esportubt/discord-bot/internal/directory/domain"
	platformdomain "github.com/esportubt/discord-bot/internal/platform/domain"
)

type Params struct {
	fx.In

	Directory directorydomain.Directory
	Platform  platformdomain.Adapter
	Config    config.Config
	Clock     clock.Clock
	GenID     *snowflake.Node
	Journal   Sink    `optional:"true"`
	Metrics   Metrics `optional:"true"`
	Log       *zap.Logger
}

var Module = fx.Module("reconcile",
	fx.Provide(func(p Params) *Reconciler {
		return New(
			p.Directory,
			p.Platform,
			p.Config.Discord.MemberRoleID,
			NewGroupSet(p.Config.Directory.GroupIDs),
			p.Clock,
			p.GenID,
			p.Journal,
			p.Metrics,
			p.Log,
		)
	}),
)
