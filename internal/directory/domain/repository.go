package domain

import (
	"context"
	"time"
)

// Directory wraps the membership-database service. Every method is a
// network call; non-success responses surface as *StatusError.
type Directory interface {
	// FetchEligibleMembers runs the single bulk query for members in any
	// eligible group that carry a linked Discord id or username. A
	// malformed (non-array) payload yields an empty slice, not an error.
	FetchEligibleMembers(ctx context.Context) ([]MembershipRecord, error)

	// FetchMemberByID returns (nil, nil) when the member no longer
	// exists; a record referenced by the change log can disappear before
	// it is fetched.
	FetchMemberByID(ctx context.Context, id int64) (*MembershipRecord, error)

	// FetchChangedMemberIDs returns the ids of members changed since the
	// given mark, or (nil, nil) when the change log reports nothing new.
	FetchChangedMemberIDs(ctx context.Context, since time.Time) ([]int64, error)

	// FetchGroupMemberIDs lists the raw member ids of one membership
	// group. Diagnostic only; reconciliation never calls it.
	FetchGroupMemberIDs(ctx context.Context, groupID int64) ([]int64, error)
}
