package reconcile

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"

	platformdomain "github.com/esportubt/discord-bot/internal/platform/domain"
)

// Mode selects which reconciliation strategy a run uses.
type Mode string

const (
	// ModeFull re-evaluates every eligible record against every current
	// role holder.
	ModeFull Mode = "full"
	// ModeIncremental evaluates only records changed since the last
	// successful run's mark.
	ModeIncremental Mode = "incremental"
)

// Result accumulates the outcome of one reconciliation run. It is
// append-only while the run executes and immutable once the run reaches
// its terminal state.
type Result struct {
	RunID snowflake.ID
	Mode  Mode

	// Granted and Revoked name identities whose role membership this run
	// changed.
	Granted []string
	Revoked []string
	// Unchanged names identities that already held the role and still
	// qualify; no mutation was issued for them.
	Unchanged []string
	// Unresolved lists membership ids with no resolvable identity.
	Unresolved []int64
	// Forbidden names identities the platform refused to mutate.
	Forbidden []string

	CompletedAt time.Time
}

func newResult(runID snowflake.ID, mode Mode) *Result {
	return &Result{RunID: runID, Mode: mode}
}

func (r *Result) addGranted(identity platformdomain.Identity) {
	r.Granted = append(r.Granted, identity.DisplayName())
}

func (r *Result) addRevoked(identity platformdomain.Identity) {
	r.Revoked = append(r.Revoked, identity.DisplayName())
}

func (r *Result) addUnchanged(identity platformdomain.Identity) {
	r.Unchanged = append(r.Unchanged, identity.DisplayName())
}

func (r *Result) addUnresolved(memberID int64) {
	r.Unresolved = append(r.Unresolved, memberID)
}

func (r *Result) addForbidden(identity platformdomain.Identity) {
	r.Forbidden = append(r.Forbidden, identity.DisplayName())
}

func (r *Result) complete(now time.Time) {
	r.CompletedAt = now
}

// Render produces the operator-facing report: granted and revoked counts
// are always present, the remaining sections appear only when non-empty.
func (r *Result) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s sync completed at %s\n", r.Mode, r.CompletedAt.Format(time.RFC3339))
	writeSection(&b, "granted", r.Granted, true)
	writeSection(&b, "revoked", r.Revoked, true)
	writeSection(&b, "unchanged", r.Unchanged, false)
	if len(r.Unresolved) > 0 {
		ids := make([]string, 0, len(r.Unresolved))
		for _, id := range r.Unresolved {
			ids = append(ids, strconv.FormatInt(id, 10))
		}
		fmt.Fprintf(&b, "unresolved (%d): %s\n", len(ids), strings.Join(ids, ", "))
	}
	writeSection(&b, "forbidden", r.Forbidden, false)
	return strings.TrimRight(b.String(), "\n")
}

func writeSection(b *strings.Builder, name string, entries []string, always bool) {
	if len(entries) == 0 {
		if always {
			fmt.Fprintf(b, "%s (0)\n", name)
		}
		return
	}
	fmt.Fprintf(b, "%s (%d): %s\n", name, len(entries), strings.Join(entries, ", "))
}
