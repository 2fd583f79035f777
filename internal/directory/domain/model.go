package domain

// MembershipRecord is an immutable snapshot of one member as held by the
// membership database. Records are fetched fresh every run and never
// persisted locally.
type MembershipRecord struct {
	// ID is the member's identifier in the membership database.
	ID int64
	// Groups lists the membership-group ids the member belongs to.
	Groups []int64
	// DiscordID is the linked platform user id, empty when not linked.
	DiscordID string
	// DiscordUsername is the linked platform username, empty when not
	// linked. Only used as a resolution fallback, never for eligibility.
	DiscordUsername string
}

// HasLinkedIdentity reports whether the record carries anything the
// resolver could work with.
func (r MembershipRecord) HasLinkedIdentity() bool {
	return r.DiscordID != "" || r.DiscordUsername != ""
}

// InGroup reports whether the record belongs to the given group.
func (r MembershipRecord) InGroup(groupID int64) bool {
	for _, id := range r.Groups {
		if id == groupID {
			return true
		}
	}
	return false
}
