package session_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/hunktrack/hunktrack/internal/diff"
	"github.com/hunktrack/hunktrack/internal/usecase/coverage"
	"github.com/hunktrack/hunktrack/internal/usecase/session"
)

const twoFileDiff = `diff --git a/src/main.go b/src/main.go
--- a/src/main.go
+++ b/src/main.go
@@ -10,3 +10,4 @@ func example() {
 context line
+added line
 another context
 third context
diff --git a/pkg/util.go b/pkg/util.go
--- a/pkg/util.go
+++ b/pkg/util.go
@@ -1,2 +1,2 @@
-old helper
+new helper
 trailing context
`

// memStore is an in-memory session.Store for tests.
type memStore struct {
	records map[string]session.Record
	saves   int
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]session.Record)}
}

func (s *memStore) Save(_ context.Context, rec session.Record) error {
	s.records[rec.Key] = rec
	s.saves++
	return nil
}

func (s *memStore) Load(_ context.Context, key string) (session.Record, error) {
	rec, ok := s.records[key]
	if !ok {
		return session.Record{}, session.ErrNotFound
	}
	return rec, nil
}

func (s *memStore) Close() error { return nil }

func fixedClock() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func TestBegin_ParsesAndPersists(t *testing.T) {
	store := newMemStore()
	svc := session.New(store, 2).WithClock(fixedClock)

	r, err := svc.Begin(context.Background(), "main..feature", twoFileDiff)
	if err != nil {
		t.Fatalf("Begin error = %v", err)
	}

	if len(r.Hunks) != 2 {
		t.Fatalf("expected 2 hunks, got %d", len(r.Hunks))
	}
	if r.Hunks[0].ID != 1 || r.Hunks[1].ID != 2 {
		t.Errorf("expected ids 1,2 in file order, got %d,%d", r.Hunks[0].ID, r.Hunks[1].ID)
	}

	rec, ok := store.records["main..feature"]
	if !ok {
		t.Fatal("expected session persisted")
	}
	if len(rec.Hunks) != 2 {
		t.Errorf("expected 2 hunk records, got %d", len(rec.Hunks))
	}
	if rec.Hunks[0].StableID != diff.StableID(r.Hunks[0]) {
		t.Errorf("persisted stable id %q does not match hunk", rec.Hunks[0].StableID)
	}
}

func TestBegin_EmptyDiff(t *testing.T) {
	svc := session.New(nil, 2)
	r, err := svc.Begin(context.Background(), "empty", "")
	if err != nil {
		t.Fatalf("Begin on empty diff must succeed, got %v", err)
	}
	if len(r.Hunks) != 0 {
		t.Errorf("expected no hunks, got %d", len(r.Hunks))
	}
}

func TestApplyGroup_UpdatesCoverageAndPersists(t *testing.T) {
	store := newMemStore()
	svc := session.New(store, 2).WithClock(fixedClock)

	r, err := svc.Begin(context.Background(), "s", twoFileDiff)
	if err != nil {
		t.Fatalf("Begin error = %v", err)
	}

	warnings, err := svc.ApplyGroup(context.Background(), r, coverage.Group{
		Name: "naming",
		Ranges: map[string][]coverage.Interval{
			"1": {{Start: 0, End: 2}},
			"7": {{Start: 0, End: 1}}, // stale reference from the orchestrator
		},
	})
	if err != nil {
		t.Fatalf("ApplyGroup error = %v", err)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning for unknown hunk, got %v", warnings)
	}

	portions := svc.Uncovered(r)
	if len(portions) != 2 {
		t.Fatalf("expected both hunks partially/fully uncovered, got %d", len(portions))
	}

	// Persisted coverage is keyed by stable id, not ephemeral id.
	rec := store.records["s"]
	stableID := diff.StableID(r.Hunks[0])
	if _, ok := rec.Coverage[stableID]; !ok {
		t.Errorf("expected persisted coverage under %q, got %v", stableID, rec.Coverage)
	}
}

func TestCoverAllAndUncoveredMessage(t *testing.T) {
	svc := session.New(nil, 2)
	r, err := svc.Begin(context.Background(), "s", twoFileDiff)
	if err != nil {
		t.Fatalf("Begin error = %v", err)
	}

	if err := svc.CoverAll(context.Background(), r, "1"); err != nil {
		t.Fatalf("CoverAll error = %v", err)
	}
	if err := svc.CoverAll(context.Background(), r, "2"); err != nil {
		t.Fatalf("CoverAll error = %v", err)
	}

	if msg := svc.UncoveredMessage(r); msg != "All hunks are fully covered." {
		t.Errorf("unexpected message %q", msg)
	}
}

func TestResume_RebindsCoverageByStableID(t *testing.T) {
	store := newMemStore()
	svc := session.New(store, 2).WithClock(fixedClock)

	r, err := svc.Begin(context.Background(), "s", twoFileDiff)
	if err != nil {
		t.Fatalf("Begin error = %v", err)
	}
	if err := svc.CoverRange(context.Background(), r, "1", coverage.Interval{Start: 0, End: 2}); err != nil {
		t.Fatalf("CoverRange error = %v", err)
	}

	// Same snapshot, independent parse: coverage must survive.
	resumed, warnings, err := svc.Resume(context.Background(), "s", twoFileDiff)
	if err != nil {
		t.Fatalf("Resume error = %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings %v", warnings)
	}

	ivs, _ := resumed.Coverage().Covered("1")
	if len(ivs) != 1 || ivs[0] != (coverage.Interval{Start: 0, End: 2}) {
		t.Errorf("expected coverage [0,2) after resume, got %v", ivs)
	}
	if resumed.CreatedAt != fixedClock() {
		t.Errorf("resume must keep the original creation time, got %v", resumed.CreatedAt)
	}
}

func TestResume_DivergedTreeDropsStaleCoverage(t *testing.T) {
	store := newMemStore()
	svc := session.New(store, 2).WithClock(fixedClock)

	r, err := svc.Begin(context.Background(), "s", twoFileDiff)
	if err != nil {
		t.Fatalf("Begin error = %v", err)
	}
	if err := svc.CoverAll(context.Background(), r, "1"); err != nil {
		t.Fatalf("CoverAll error = %v", err)
	}

	// The first file's hunk moved; its stable id no longer matches.
	diverged := strings.Replace(twoFileDiff, "@@ -10,3 +10,4 @@", "@@ -12,3 +12,4 @@", 1)
	resumed, warnings, err := svc.Resume(context.Background(), "s", diverged)
	if err != nil {
		t.Fatalf("Resume error = %v", err)
	}

	if len(warnings) != 1 || !strings.Contains(warnings[0], "no longer exists") {
		t.Errorf("expected one diverged-hunk warning, got %v", warnings)
	}
	ivs, _ := resumed.Coverage().Covered("1")
	if len(ivs) != 0 {
		t.Errorf("stale coverage must be dropped, got %v", ivs)
	}
}

func TestResume_MissingSession(t *testing.T) {
	svc := session.New(newMemStore(), 2)
	_, _, err := svc.Resume(context.Background(), "nope", twoFileDiff)
	if err == nil || !strings.Contains(err.Error(), "session not found") {
		t.Fatalf("expected session not found, got %v", err)
	}
}
