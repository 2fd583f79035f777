package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"

	directorydomain "github.com/esportubt/discord-bot/internal/directory/domain"
	platformdomain "github.com/esportubt/discord-bot/internal/platform/domain"
)

type fakeDirectory struct {
	eligible    []directorydomain.MembershipRecord
	eligibleErr error
	byID        map[int64]*directorydomain.MembershipRecord
	byIDErr     map[int64]error
	changed     []int64
	changedErr  error
}

func (f *fakeDirectory) FetchEligibleMembers(ctx context.Context) ([]directorydomain.MembershipRecord, error) {
	return f.eligible, f.eligibleErr
}

func (f *fakeDirectory) FetchMemberByID(ctx context.Context, id int64) (*directorydomain.MembershipRecord, error) {
	if err, ok := f.byIDErr[id]; ok {
		return nil, err
	}
	return f.byID[id], nil
}

func (f *fakeDirectory) FetchChangedMemberIDs(ctx context.Context, since time.Time) ([]int64, error) {
	return f.changed, f.changedErr
}

func (f *fakeDirectory) FetchGroupMemberIDs(ctx context.Context, groupID int64) ([]int64, error) {
	return nil, nil
}

type fakePlatform struct {
	identities map[string]platformdomain.Identity
	holders    map[string]struct{}
	hasRole    bool
	grantErr   map[string]error
	revokeErr  map[string]error
	granted    []string
	revoked    []string
}

func newFakePlatform(hasRole bool) *fakePlatform {
	return &fakePlatform{
		identities: make(map[string]platformdomain.Identity),
		holders:    make(map[string]struct{}),
		hasRole:    hasRole,
		grantErr:   make(map[string]error),
		revokeErr:  make(map[string]error),
	}
}

func (f *fakePlatform) addIdentity(userID, username string, holdsRole bool) {
	f.identities[userID] = platformdomain.Identity{UserID: userID, Username: username}
	if holdsRole {
		f.holders[userID] = struct{}{}
	}
}

func (f *fakePlatform) Roster(ctx context.Context) ([]platformdomain.Identity, error) {
	roster := make([]platformdomain.Identity, 0, len(f.identities))
	for _, identity := range f.identities {
		roster = append(roster, identity)
	}
	return roster, nil
}

func (f *fakePlatform) RoleHolders(ctx context.Context, roleID string) ([]platformdomain.Identity, error) {
	var holders []platformdomain.Identity
	for userID := range f.holders {
		holders = append(holders, f.identities[userID])
	}
	return holders, nil
}

func (f *fakePlatform) HasRole(ctx context.Context, roleID string) (bool, error) {
	return f.hasRole, nil
}

func (f *fakePlatform) Grant(ctx context.Context, identity platformdomain.Identity, roleID string) error {
	if err := f.grantErr[identity.UserID]; err != nil {
		return err
	}
	f.holders[identity.UserID] = struct{}{}
	f.granted = append(f.granted, identity.UserID)
	return nil
}

func (f *fakePlatform) Revoke(ctx context.Context, identity platformdomain.Identity, roleID string) error {
	if err := f.revokeErr[identity.UserID]; err != nil {
		return err
	}
	delete(f.holders, identity.UserID)
	f.revoked = append(f.revoked, identity.UserID)
	return nil
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTestReconciler(t *testing.T, dir *fakeDirectory, plat *fakePlatform, groups ...int64) *Reconciler {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	if len(groups) == 0 {
		groups = []int64{7, 12}
	}
	return New(dir, plat, "role-1", NewGroupSet(groups),
		&fakeClock{now: time.Unix(1700000000, 0)}, node, nil, nil, zap.NewNop())
}

func record(id int64, groups []int64, discordID, username string) directorydomain.MembershipRecord {
	return directorydomain.MembershipRecord{ID: id, Groups: groups, DiscordID: discordID, DiscordUsername: username}
}

func TestRunFullGrantsEligibleNonHolder(t *testing.T) {
	plat := newFakePlatform(true)
	plat.addIdentity("42", "alice", false)
	dir := &fakeDirectory{eligible: []directorydomain.MembershipRecord{
		record(1, []int64{7}, "42", ""),
	}}

	result, err := newTestReconciler(t, dir, plat).RunFull(context.Background())
	if err != nil {
		t.Fatalf("run full: %v", err)
	}
	if len(result.Granted) != 1 || result.Granted[0] != "alice" {
		t.Fatalf("expected alice granted, got %v", result.Granted)
	}
	if _, holds := plat.holders["42"]; !holds {
		t.Fatal("expected identity 42 to hold the role")
	}
}

func TestRunFullRevokesUnmatchedHolder(t *testing.T) {
	plat := newFakePlatform(true)
	plat.addIdentity("99", "ghost", true)
	dir := &fakeDirectory{eligible: []directorydomain.MembershipRecord{
		record(1, []int64{7}, "42", ""),
	}}
	plat.addIdentity("42", "alice", false)

	result, err := newTestReconciler(t, dir, plat).RunFull(context.Background())
	if err != nil {
		t.Fatalf("run full: %v", err)
	}
	if len(result.Revoked) != 1 || result.Revoked[0] != "ghost" {
		t.Fatalf("expected ghost revoked, got %v", result.Revoked)
	}
	if _, holds := plat.holders["99"]; holds {
		t.Fatal("expected identity 99 to lose the role")
	}
}

func TestRunFullRecordsUnresolvedWithoutMutating(t *testing.T) {
	plat := newFakePlatform(true)
	plat.addIdentity("42", "bob", false)
	dir := &fakeDirectory{eligible: []directorydomain.MembershipRecord{
		record(2, []int64{7}, "", "alice"),
	}}

	result, err := newTestReconciler(t, dir, plat).RunFull(context.Background())
	if err != nil {
		t.Fatalf("run full: %v", err)
	}
	if len(result.Unresolved) != 1 || result.Unresolved[0] != 2 {
		t.Fatalf("expected member 2 unresolved, got %v", result.Unresolved)
	}
	if len(plat.granted) != 0 || len(plat.revoked) != 0 {
		t.Fatal("expected no mutations for unresolved record")
	}
}

func TestRunFullForbiddenContinues(t *testing.T) {
	plat := newFakePlatform(true)
	plat.addIdentity("42", "alice", false)
	plat.addIdentity("43", "bob", false)
	plat.grantErr["42"] = platformdomain.ErrForbidden
	dir := &fakeDirectory{eligible: []directorydomain.MembershipRecord{
		record(1, []int64{7}, "42", ""),
		record(2, []int64{7}, "43", ""),
	}}

	result, err := newTestReconciler(t, dir, plat).RunFull(context.Background())
	if err != nil {
		t.Fatalf("run full: %v", err)
	}
	if len(result.Forbidden) != 1 || result.Forbidden[0] != "alice" {
		t.Fatalf("expected alice forbidden, got %v", result.Forbidden)
	}
	if len(result.Granted) != 1 || result.Granted[0] != "bob" {
		t.Fatalf("expected bob granted after forbidden entry, got %v", result.Granted)
	}
}

func TestRunFullIsIdempotent(t *testing.T) {
	plat := newFakePlatform(true)
	plat.addIdentity("42", "alice", false)
	plat.addIdentity("99", "ghost", true)
	dir := &fakeDirectory{eligible: []directorydomain.MembershipRecord{
		record(1, []int64{7}, "42", ""),
	}}
	rec := newTestReconciler(t, dir, plat)

	if _, err := rec.RunFull(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := rec.RunFull(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(second.Granted) != 0 || len(second.Revoked) != 0 {
		t.Fatalf("expected no-op second run, got granted=%v revoked=%v", second.Granted, second.Revoked)
	}
	if len(second.Unchanged) != 1 || second.Unchanged[0] != "alice" {
		t.Fatalf("expected alice unchanged, got %v", second.Unchanged)
	}
}

func TestRunFullEmptyBulkStopsWithoutMutations(t *testing.T) {
	plat := newFakePlatform(true)
	plat.addIdentity("99", "ghost", true)
	dir := &fakeDirectory{}
	rec := newTestReconciler(t, dir, plat)

	result, err := rec.RunFull(context.Background())
	if err != nil {
		t.Fatalf("run full: %v", err)
	}
	if len(result.Revoked) != 0 || len(plat.revoked) != 0 {
		t.Fatal("empty bulk result must not revoke anyone")
	}
	if !rec.LastMark().IsZero() {
		t.Fatal("degenerate empty run must not advance the mark")
	}
	if rec.LastResult() != result {
		t.Fatal("expected result still published")
	}
}

func TestRunFullAbortsOnDirectoryError(t *testing.T) {
	plat := newFakePlatform(true)
	dir := &fakeDirectory{eligibleErr: &directorydomain.StatusError{Status: 500, Endpoint: "/member"}}
	rec := newTestReconciler(t, dir, plat)

	_, err := rec.RunFull(context.Background())
	var statusErr *directorydomain.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if !rec.LastMark().IsZero() {
		t.Fatal("aborted run must not advance the mark")
	}
	if rec.LastResult() != nil {
		t.Fatal("aborted run must not publish a result")
	}
}

func TestRunFullAbortsWhenRoleMissing(t *testing.T) {
	plat := newFakePlatform(false)
	rec := newTestReconciler(t, &fakeDirectory{}, plat)

	_, err := rec.RunFull(context.Background())
	if !errors.Is(err, platformdomain.ErrRoleNotFound) {
		t.Fatalf("expected ErrRoleNotFound, got %v", err)
	}
}

func TestRunRejectsConcurrentTrigger(t *testing.T) {
	rec := newTestReconciler(t, &fakeDirectory{}, newFakePlatform(true))
	rec.runLock.Lock()
	defer rec.runLock.Unlock()

	if _, err := rec.RunFull(context.Background()); !errors.Is(err, ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}
	if _, err := rec.RunIncremental(context.Background()); !errors.Is(err, ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}
}

func TestRunIncrementalNothingChanged(t *testing.T) {
	plat := newFakePlatform(true)
	dir := &fakeDirectory{}
	rec := newTestReconciler(t, dir, plat)

	result, err := rec.RunIncremental(context.Background())
	if err != nil {
		t.Fatalf("run incremental: %v", err)
	}
	if len(result.Granted)+len(result.Revoked)+len(result.Unresolved)+len(result.Forbidden) != 0 {
		t.Fatalf("expected empty result, got %+v", result)
	}
	if !rec.LastMark().IsZero() {
		t.Fatal("empty incremental run must not advance the mark")
	}
}

func TestRunIncrementalGrantsAndRevokes(t *testing.T) {
	plat := newFakePlatform(true)
	plat.addIdentity("42", "alice", false)
	plat.addIdentity("43", "bob", true)
	dir := &fakeDirectory{
		changed: []int64{1, 2, 3},
		byID: map[int64]*directorydomain.MembershipRecord{
			// Now in an eligible group, missing the role.
			1: {ID: 1, Groups: []int64{7}, DiscordID: "42"},
			// Left the eligible groups, still holds the role.
			2: {ID: 2, Groups: []int64{99}, DiscordID: "43"},
			// 3 deleted from the directory entirely.
		},
	}
	rec := newTestReconciler(t, dir, plat)

	result, err := rec.RunIncremental(context.Background())
	if err != nil {
		t.Fatalf("run incremental: %v", err)
	}
	if len(result.Granted) != 1 || result.Granted[0] != "alice" {
		t.Fatalf("expected alice granted, got %v", result.Granted)
	}
	if len(result.Revoked) != 1 || result.Revoked[0] != "bob" {
		t.Fatalf("expected bob revoked, got %v", result.Revoked)
	}
	if len(result.Unresolved) != 0 {
		t.Fatalf("deleted record must be skipped, got unresolved %v", result.Unresolved)
	}
	if rec.LastMark().IsZero() {
		t.Fatal("completed incremental run must advance the mark")
	}
}

func TestRunIncrementalAbortsMidLoopWithoutAdvancingMark(t *testing.T) {
	plat := newFakePlatform(true)
	plat.addIdentity("42", "alice", false)
	dir := &fakeDirectory{
		changed: []int64{1, 2},
		byID: map[int64]*directorydomain.MembershipRecord{
			1: {ID: 1, Groups: []int64{7}, DiscordID: "42"},
		},
		byIDErr: map[int64]error{
			2: &directorydomain.StatusError{Status: 502, Endpoint: "/member/2"},
		},
	}
	rec := newTestReconciler(t, dir, plat)

	_, err := rec.RunIncremental(context.Background())
	var statusErr *directorydomain.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if !rec.LastMark().IsZero() {
		t.Fatal("aborted incremental run must not advance the mark")
	}
}

func TestFullAndIncrementalAgreeOnFinalHolderSet(t *testing.T) {
	records := []directorydomain.MembershipRecord{
		record(1, []int64{7}, "42", ""),
		record(2, []int64{12}, "", "bob"),
		record(3, []int64{99}, "44", ""),
	}

	setup := func() *fakePlatform {
		plat := newFakePlatform(true)
		plat.addIdentity("42", "alice", false)
		plat.addIdentity("43", "bob", true)
		plat.addIdentity("44", "carol", true)
		return plat
	}

	fullPlat := setup()
	fullDir := &fakeDirectory{eligible: []directorydomain.MembershipRecord{records[0], records[1]}}
	if _, err := newTestReconciler(t, fullDir, fullPlat).RunFull(context.Background()); err != nil {
		t.Fatalf("full run: %v", err)
	}

	incrPlat := setup()
	incrDir := &fakeDirectory{
		changed: []int64{1, 2, 3},
		byID: map[int64]*directorydomain.MembershipRecord{
			1: &records[0],
			2: &records[1],
			3: &records[2],
		},
	}
	if _, err := newTestReconciler(t, incrDir, incrPlat).RunIncremental(context.Background()); err != nil {
		t.Fatalf("incremental run: %v", err)
	}

	if len(fullPlat.holders) != len(incrPlat.holders) {
		t.Fatalf("holder sets differ: full=%v incremental=%v", fullPlat.holders, incrPlat.holders)
	}
	for userID := range fullPlat.holders {
		if _, ok := incrPlat.holders[userID]; !ok {
			t.Fatalf("holder sets differ on %s: full=%v incremental=%v", userID, fullPlat.holders, incrPlat.holders)
		}
	}
}

func TestMarkIsMonotonic(t *testing.T) {
	plat := newFakePlatform(true)
	plat.addIdentity("42", "alice", false)
	dir := &fakeDirectory{eligible: []directorydomain.MembershipRecord{
		record(1, []int64{7}, "42", ""),
	}}
	rec := newTestReconciler(t, dir, plat)

	if _, err := rec.RunFull(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	first := rec.LastMark()
	if _, err := rec.RunFull(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if rec.LastMark().Before(first) {
		t.Fatalf("mark rewound from %v to %v", first, rec.LastMark())
	}
}
