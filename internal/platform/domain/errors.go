package domain

import "errors"

var (
	// ErrForbidden means the platform refused a role mutation, typically
	// because the bot's highest role sits below the target in the role
	// hierarchy. Recorded per identity, never retried.
	ErrForbidden = errors.New("platform_forbidden")

	// ErrIdentityNotFound means the identity disappeared between the
	// roster snapshot and the mutation attempt.
	ErrIdentityNotFound = errors.New("platform_identity_not_found")

	// ErrRoleNotFound means the configured member role does not exist in
	// the guild.
	ErrRoleNotFound = errors.New("platform_role_not_found")
)
