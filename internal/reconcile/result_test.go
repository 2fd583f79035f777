package reconcile

import (
	"strings"
	"testing"
	"time"
)

func TestRenderAlwaysShowsGrantedAndRevokedCounts(t *testing.T) {
	result := newResult(1, ModeIncremental)
	result.complete(time.Unix(1700000000, 0).UTC())

	report := result.Render()
	if !strings.Contains(report, "granted (0)") {
		t.Fatalf("missing granted count in %q", report)
	}
	if !strings.Contains(report, "revoked (0)") {
		t.Fatalf("missing revoked count in %q", report)
	}
	if strings.Contains(report, "unresolved") || strings.Contains(report, "forbidden") || strings.Contains(report, "unchanged") {
		t.Fatalf("empty sections must be omitted: %q", report)
	}
}

func TestRenderJoinsEntries(t *testing.T) {
	result := newResult(1, ModeFull)
	result.Granted = []string{"alice", "bob"}
	result.Unresolved = []int64{7, 9}
	result.Forbidden = []string{"carol"}
	result.complete(time.Unix(1700000000, 0).UTC())

	report := result.Render()
	if !strings.Contains(report, "granted (2): alice, bob") {
		t.Fatalf("granted section malformed: %q", report)
	}
	if !strings.Contains(report, "unresolved (2): 7, 9") {
		t.Fatalf("unresolved section malformed: %q", report)
	}
	if !strings.Contains(report, "forbidden (1): carol") {
		t.Fatalf("forbidden section malformed: %q", report)
	}
	if !strings.HasPrefix(report, "full sync completed at ") {
		t.Fatalf("missing header: %q", report)
	}
}
