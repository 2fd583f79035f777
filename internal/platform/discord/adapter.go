package discord

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/esportubt/discord-bot/internal/cache"
	"github.com/esportubt/discord-bot/internal/platform/domain"
)

const (
	memberPageSize = 1000

	// Roster snapshots are reused across the roster/role-holder reads of
	// a single run, not across runs.
	snapshotTTL = 30 * time.Second

	membersCacheKey = "guild_members"
)

// session is the slice of discordgo.Session the adapter uses.
type session interface {
	GuildMembers(guildID string, after string, limit int, options ...discordgo.RequestOption) ([]*discordgo.Member, error)
	GuildRoles(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Role, error)
	GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	GuildMemberRoleRemove(guildID, userID, roleID string, options ...discordgo.RequestOption) error
}

// Adapter implements domain.Adapter on top of the Discord REST API. It
// never opens a gateway connection; every call is plain REST.
type Adapter struct {
	session session
	guildID string
	members cache.Cache[string, []*discordgo.Member]
	log     *zap.Logger
}

func New(s session, guildID string, log *zap.Logger) *Adapter {
	return &Adapter{
		session: s,
		guildID: guildID,
		members: cache.NewTTLCache[string, []*discordgo.Member](),
		log:     log.Named("platform.discord"),
	}
}

func (a *Adapter) Roster(ctx context.Context) ([]domain.Identity, error) {
	members, err := a.guildMembers(ctx)
	if err != nil {
		return nil, err
	}
	identities := make([]domain.Identity, 0, len(members))
	for _, m := range members {
		identities = append(identities, toIdentity(m))
	}
	return identities, nil
}

func (a *Adapter) RoleHolders(ctx context.Context, roleID string) ([]domain.Identity, error) {
	members, err := a.guildMembers(ctx)
	if err != nil {
		return nil, err
	}
	var holders []domain.Identity
	for _, m := range members {
		for _, r := range m.Roles {
			if r == roleID {
				holders = append(holders, toIdentity(m))
				break
			}
		}
	}
	return holders, nil
}

func (a *Adapter) HasRole(ctx context.Context, roleID string) (bool, error) {
	roles, err := a.session.GuildRoles(a.guildID, discordgo.WithContext(ctx))
	if err != nil {
		return false, classify(err)
	}
	for _, r := range roles {
		if r.ID == roleID {
			return true, nil
		}
	}
	return false, nil
}

func (a *Adapter) Grant(ctx context.Context, identity domain.Identity, roleID string) error {
	err := a.session.GuildMemberRoleAdd(a.guildID, identity.UserID, roleID, discordgo.WithContext(ctx))
	if err != nil {
		return classify(err)
	}
	a.members.Invalidate(membersCacheKey)
	a.log.Debug("granted role", zap.String("user_id", identity.UserID), zap.String("role_id", roleID))
	return nil
}

func (a *Adapter) Revoke(ctx context.Context, identity domain.Identity, roleID string) error {
	err := a.session.GuildMemberRoleRemove(a.guildID, identity.UserID, roleID, discordgo.WithContext(ctx))
	if err != nil {
		return classify(err)
	}
	a.members.Invalidate(membersCacheKey)
	a.log.Debug("revoked role", zap.String("user_id", identity.UserID), zap.String("role_id", roleID))
	return nil
}

// guildMembers pages through the full guild member list, caching the
// snapshot briefly so Roster and RoleHolders within one run share a
// single scan.
func (a *Adapter) guildMembers(ctx context.Context) ([]*discordgo.Member, error) {
	if members, ok := a.members.Get(membersCacheKey); ok {
		return members, nil
	}

	var all []*discordgo.Member
	after := ""
	for {
		page, err := a.session.GuildMembers(a.guildID, after, memberPageSize, discordgo.WithContext(ctx))
		if err != nil {
			return nil, classify(err)
		}
		all = append(all, page...)
		if len(page) < memberPageSize {
			break
		}
		after = page[len(page)-1].User.ID
	}

	a.members.Set(membersCacheKey, all, snapshotTTL)
	return all, nil
}

func toIdentity(m *discordgo.Member) domain.Identity {
	return domain.Identity{UserID: m.User.ID, Username: m.User.Username}
}

// classify maps Discord REST failures onto the platform error taxonomy.
func classify(err error) error {
	var rest *discordgo.RESTError
	if !errors.As(err, &rest) {
		return err
	}
	if rest.Message != nil {
		switch rest.Message.Code {
		case discordgo.ErrCodeMissingPermissions, discordgo.ErrCodeMissingAccess:
			return domain.ErrForbidden
		case discordgo.ErrCodeUnknownMember, discordgo.ErrCodeUnknownUser:
			return domain.ErrIdentityNotFound
		case discordgo.ErrCodeUnknownRole:
			return domain.ErrRoleNotFound
		}
	}
	if rest.Response != nil && rest.Response.StatusCode == http.StatusForbidden {
		return domain.ErrForbidden
	}
	return err
}
