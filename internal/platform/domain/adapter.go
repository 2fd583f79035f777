package domain

import "context"

// Adapter is the reconciler's view of the chat platform. Roster and
// RoleHolders return materialized snapshots; Grant and Revoke are the
// only mutations the core ever issues.
type Adapter interface {
	// Roster returns every identity currently in the guild.
	Roster(ctx context.Context) ([]Identity, error)

	// RoleHolders returns the identities currently holding the role.
	RoleHolders(ctx context.Context, roleID string) ([]Identity, error)

	// HasRole reports whether the role exists in the guild at all.
	HasRole(ctx context.Context, roleID string) (bool, error)

	// Grant assigns the role. Permission refusals surface as
	// ErrForbidden, a vanished member as ErrIdentityNotFound.
	Grant(ctx context.Context, identity Identity, roleID string) error

	// Revoke removes the role, with the same error classification as
	// Grant.
	Revoke(ctx context.Context, identity Identity, roleID string) error
}
