package domain

// Identity is one chat-platform account as seen in the guild roster. The
// user id is stable; the username can change between runs.
type Identity struct {
	UserID   string
	Username string
}

// DisplayName is what reports and journals record for an identity.
func (i Identity) DisplayName() string {
	if i.Username != "" {
		return i.Username
	}
	return i.UserID
}
