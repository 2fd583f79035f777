package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"

	"github.com/esportubt/discord-bot/internal/clock"
	directorydomain "github.com/esportubt/discord-bot/internal/directory/domain"
	platformdomain "github.com/esportubt/discord-bot/internal/platform/domain"
)

var (
	// ErrRunInProgress rejects a trigger while another run holds the
	// exclusive run slot. Runs are never interleaved.
	ErrRunInProgress = errors.New("sync_run_in_progress")

	// ErrRoleNotConfigured aborts a run before any fetch when no member
	// role id is configured.
	ErrRoleNotConfigured = errors.New("member_role_not_configured")
)

// Sink receives every completed run result, e.g. the run journal.
type Sink interface {
	Record(ctx context.Context, result *Result) error
}

// Metrics receives run outcomes for instrumentation.
type Metrics interface {
	ObserveRun(mode Mode, outcome string, duration time.Duration)
	SetLastRunCounts(granted, revoked, unresolved, forbidden int)
}

// Reconciler brings the guild's member-role assignments in line with the
// membership database. Both sync strategies share the same resolution
// and eligibility primitives, so membership semantics do not depend on
// the mode.
type Reconciler struct {
	directory directorydomain.Directory
	platform  platformdomain.Adapter
	roleID    string
	groups    GroupSet
	clk       clock.Clock
	genID     *snowflake.Node
	journal   Sink
	metrics   Metrics
	log       *zap.Logger

	// runLock is the exclusive in-progress slot; record processing
	// mutates shared working state and must stay strictly sequential.
	runLock sync.Mutex

	mu         sync.Mutex
	lastMark   time.Time
	lastResult *Result
}

// New constructs a Reconciler. journal and metrics may be nil.
func New(
	directory directorydomain.Directory,
	platform platformdomain.Adapter,
	roleID string,
	groups GroupSet,
	clk clock.Clock,
	genID *snowflake.Node,
	journal Sink,
	metrics Metrics,
	log *zap.Logger,
) *Reconciler {
	return &Reconciler{
		directory: directory,
		platform:  platform,
		roleID:    roleID,
		groups:    groups,
		clk:       clk,
		genID:     genID,
		journal:   journal,
		metrics:   metrics,
		log:       log.Named("reconcile"),
	}
}

// RunFull re-reads the complete eligible set and the complete role-holder
// set, grants what is missing and revokes what no longer qualifies. It
// needs no historical state and repairs any drift.
func (r *Reconciler) RunFull(ctx context.Context) (*Result, error) {
	if !r.runLock.TryLock() {
		return nil, ErrRunInProgress
	}
	defer r.runLock.Unlock()

	started := r.clk.Now()
	result, err := r.runFull(ctx)
	r.observe(ModeFull, started, result, err)
	return result, err
}

// RunIncremental reconciles only members the directory change log
// reports as modified since the last successful mark.
func (r *Reconciler) RunIncremental(ctx context.Context) (*Result, error) {
	if !r.runLock.TryLock() {
		return nil, ErrRunInProgress
	}
	defer r.runLock.Unlock()

	started := r.clk.Now()
	result, err := r.runIncremental(ctx)
	r.observe(ModeIncremental, started, result, err)
	return result, err
}

// LastResult returns the most recent run result, nil before the first
// run completes.
func (r *Reconciler) LastResult() *Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastResult
}

// LastMark returns the lower bound of the next incremental fetch window.
func (r *Reconciler) LastMark() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastMark
}

func (r *Reconciler) runFull(ctx context.Context) (*Result, error) {
	if err := r.checkRole(ctx); err != nil {
		return nil, err
	}

	roster, err := r.platform.Roster(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch roster: %w", err)
	}
	holders, err := r.platform.RoleHolders(ctx, r.roleID)
	if err != nil {
		return nil, fmt.Errorf("fetch role holders: %w", err)
	}
	remaining := make(map[string]platformdomain.Identity, len(holders))
	for _, identity := range holders {
		remaining[identity.UserID] = identity
	}

	records, err := r.directory.FetchEligibleMembers(ctx)
	if err != nil {
		return nil, err
	}

	result := newResult(r.genID.Generate(), ModeFull)

	// An empty bulk result usually means the upstream filter misbehaved;
	// revoking the whole guild on that evidence would be destructive, so
	// the run stops without mutations and without advancing the mark.
	if len(records) == 0 {
		result.complete(r.clk.Now())
		r.setLastResult(result)
		return result, nil
	}

	for _, record := range records {
		identity, resolveErr := Resolve(record, roster)
		if resolveErr != nil {
			result.addUnresolved(record.ID)
			continue
		}
		if _, held := remaining[identity.UserID]; held {
			delete(remaining, identity.UserID)
			result.addUnchanged(identity)
			continue
		}
		if err := r.grant(ctx, result, record.ID, identity); err != nil {
			return nil, err
		}
	}

	// Whoever still holds the role was not matched by any eligible
	// record this run.
	for _, identity := range sortedIdentities(remaining) {
		if err := r.revoke(ctx, result, identity); err != nil {
			return nil, err
		}
	}

	result.complete(r.clk.Now())
	r.finish(result)
	return result, nil
}

func (r *Reconciler) runIncremental(ctx context.Context) (*Result, error) {
	if err := r.checkRole(ctx); err != nil {
		return nil, err
	}

	since := r.LastMark()
	changed, err := r.directory.FetchChangedMemberIDs(ctx, since)
	if err != nil {
		return nil, err
	}

	result := newResult(r.genID.Generate(), ModeIncremental)

	// Nothing new: emit an empty result and leave the mark untouched so
	// repeating the call stays idempotent.
	if len(changed) == 0 {
		result.complete(r.clk.Now())
		r.setLastResult(result)
		return result, nil
	}

	roster, err := r.platform.Roster(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch roster: %w", err)
	}
	holders, err := r.platform.RoleHolders(ctx, r.roleID)
	if err != nil {
		return nil, fmt.Errorf("fetch role holders: %w", err)
	}
	holderSet := make(map[string]struct{}, len(holders))
	for _, identity := range holders {
		holderSet[identity.UserID] = struct{}{}
	}

	for _, memberID := range changed {
		record, err := r.directory.FetchMemberByID(ctx, memberID)
		if err != nil {
			return nil, err
		}
		if record == nil {
			// Deleted between the change fetch and now; not an error.
			continue
		}

		identity, resolveErr := Resolve(*record, roster)
		if resolveErr != nil {
			result.addUnresolved(record.ID)
			continue
		}

		_, holds := holderSet[identity.UserID]
		eligible := Eligible(*record, r.groups)
		switch {
		case eligible && !holds:
			if err := r.grant(ctx, result, record.ID, identity); err != nil {
				return nil, err
			}
			holderSet[identity.UserID] = struct{}{}
		case !eligible && holds:
			if err := r.revoke(ctx, result, identity); err != nil {
				return nil, err
			}
			delete(holderSet, identity.UserID)
		default:
			result.addUnchanged(identity)
		}
	}

	result.complete(r.clk.Now())
	r.finish(result)
	return result, nil
}

func (r *Reconciler) checkRole(ctx context.Context) error {
	if r.roleID == "" {
		return ErrRoleNotConfigured
	}
	ok, err := r.platform.HasRole(ctx, r.roleID)
	if err != nil {
		return fmt.Errorf("resolve member role: %w", err)
	}
	if !ok {
		return platformdomain.ErrRoleNotFound
	}
	return nil
}

func (r *Reconciler) grant(ctx context.Context, result *Result, memberID int64, identity platformdomain.Identity) error {
	err := r.platform.Grant(ctx, identity, r.roleID)
	switch {
	case err == nil:
		result.addGranted(identity)
	case errors.Is(err, platformdomain.ErrForbidden):
		result.addForbidden(identity)
		r.log.Warn("grant refused",
			zap.String("user_id", identity.UserID),
			zap.Int64("member_id", memberID))
	case errors.Is(err, platformdomain.ErrIdentityNotFound):
		// Left the guild since the roster snapshot.
		result.addUnresolved(memberID)
	default:
		return fmt.Errorf("grant role to %s: %w", identity.UserID, err)
	}
	return nil
}

func (r *Reconciler) revoke(ctx context.Context, result *Result, identity platformdomain.Identity) error {
	err := r.platform.Revoke(ctx, identity, r.roleID)
	switch {
	case err == nil:
		result.addRevoked(identity)
	case errors.Is(err, platformdomain.ErrForbidden):
		result.addForbidden(identity)
		r.log.Warn("revoke refused", zap.String("user_id", identity.UserID))
	case errors.Is(err, platformdomain.ErrIdentityNotFound):
		// Already gone, nothing to revoke.
	default:
		return fmt.Errorf("revoke role from %s: %w", identity.UserID, err)
	}
	return nil
}

// finish publishes the result and advances the mark. The mark never
// moves backwards.
func (r *Reconciler) finish(result *Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastResult = result
	if result.CompletedAt.After(r.lastMark) {
		r.lastMark = result.CompletedAt
	}
}

// setLastResult publishes a result without touching the mark, used for
// degenerate empty runs.
func (r *Reconciler) setLastResult(result *Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastResult = result
}

func (r *Reconciler) observe(mode Mode, started time.Time, result *Result, err error) {
	duration := r.clk.Now().Sub(started)
	outcome := "completed"
	if err != nil {
		outcome = "aborted"
	}
	if r.metrics != nil {
		r.metrics.ObserveRun(mode, outcome, duration)
		if result != nil {
			r.metrics.SetLastRunCounts(len(result.Granted), len(result.Revoked), len(result.Unresolved), len(result.Forbidden))
		}
	}

	if err != nil {
		r.log.Warn("sync run aborted", zap.String("mode", string(mode)), zap.Error(err))
		return
	}

	r.log.Info("sync run completed",
		zap.String("mode", string(mode)),
		zap.Int("granted", len(result.Granted)),
		zap.Int("revoked", len(result.Revoked)),
		zap.Int("unresolved", len(result.Unresolved)),
		zap.Int("forbidden", len(result.Forbidden)),
		zap.Duration("duration", duration))

	if r.journal != nil {
		if jerr := r.journal.Record(context.Background(), result); jerr != nil {
			r.log.Warn("journal write failed", zap.Error(jerr))
		}
	}
}

func sortedIdentities(byID map[string]platformdomain.Identity) []platformdomain.Identity {
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	identities := make([]platformdomain.Identity, 0, len(ids))
	for _, id := range ids {
		identities = append(identities, byID[id])
	}
	return identities
}
