package reconcile

import directorydomain "github.com/esportubt/discord-bot/internal/directory/domain"

// GroupSet is the configured set of membership groups that confer role
// eligibility. Built once at startup, read-only afterwards.
type GroupSet map[int64]struct{}

func NewGroupSet(ids []int64) GroupSet {
	set := make(GroupSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Eligible reports whether the record belongs to at least one eligible
// group. A linked Discord identity alone never makes a member eligible.
func Eligible(record directorydomain.MembershipRecord, groups GroupSet) bool {
	for _, id := range record.Groups {
		if _, ok := groups[id]; ok {
			return true
		}
	}
	return false
}
