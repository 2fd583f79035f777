package reconcile

import (
	"fmt"

	directorydomain "github.com/esportubt/discord-bot/internal/directory/domain"
	platformdomain "github.com/esportubt/discord-bot/internal/platform/domain"
)

// UnresolvedError reports that a membership record could not be matched
// to any identity in the roster.
type UnresolvedError struct {
	MemberID int64
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("member %d has no resolvable platform identity", e.MemberID)
}

// Resolve maps a membership record to exactly one roster identity: the
// linked user id wins when present, otherwise an exact case-sensitive
// username match. The roster is a snapshot; Resolve performs no I/O.
func Resolve(record directorydomain.MembershipRecord, roster []platformdomain.Identity) (platformdomain.Identity, error) {
	if !record.HasLinkedIdentity() {
		return platformdomain.Identity{}, &UnresolvedError{MemberID: record.ID}
	}
	if record.DiscordID != "" {
		for _, identity := range roster {
			if identity.UserID == record.DiscordID {
				return identity, nil
			}
		}
	} else {
		for _, identity := range roster {
			if identity.Username == record.DiscordUsername {
				return identity, nil
			}
		}
	}
	return platformdomain.Identity{}, &UnresolvedError{MemberID: record.ID}
}
