package coverage_test

import (
	"errors"
	"testing"

	"github.com/hunktrack/hunktrack/internal/usecase/coverage"
)

func TestMap_InitializeIsIdempotent(t *testing.T) {
	m := coverage.Map{}
	m.Initialize("h1")

	if err := m.MarkCovered("h1", coverage.Interval{Start: 0, End: 2}, 6); err != nil {
		t.Fatalf("MarkCovered error = %v", err)
	}

	m.Initialize("h1")
	ivs, ok := m.Covered("h1")
	if !ok {
		t.Fatal("expected entry for h1")
	}
	if !intervalsEqual(ivs, []coverage.Interval{{Start: 0, End: 2}}) {
		t.Errorf("Initialize clobbered existing coverage: %v", ivs)
	}
}

func TestMap_MarkCoveredMergesOverlap(t *testing.T) {
	m := coverage.Map{}
	if err := m.MarkCovered("h1", coverage.Interval{Start: 0, End: 2}, 10); err != nil {
		t.Fatalf("MarkCovered error = %v", err)
	}
	if err := m.MarkCovered("h1", coverage.Interval{Start: 1, End: 4}, 10); err != nil {
		t.Fatalf("MarkCovered error = %v", err)
	}

	ivs, _ := m.Covered("h1")
	if !intervalsEqual(ivs, []coverage.Interval{{Start: 0, End: 4}}) {
		t.Errorf("expected merged [0,4), got %v", ivs)
	}
}

func TestMap_MarkCoveredClamps(t *testing.T) {
	m := coverage.Map{}
	if err := m.MarkCovered("h1", coverage.Interval{Start: -3, End: 99}, 5); err != nil {
		t.Fatalf("MarkCovered error = %v", err)
	}

	ivs, _ := m.Covered("h1")
	if !intervalsEqual(ivs, []coverage.Interval{{Start: 0, End: 5}}) {
		t.Errorf("expected clamped [0,5), got %v", ivs)
	}
}

func TestMap_MarkCoveredInvertedRange(t *testing.T) {
	m := coverage.Map{}
	err := m.MarkCovered("h1", coverage.Interval{Start: 4, End: 2}, 10)
	if !errors.Is(err, coverage.ErrRange) {
		t.Fatalf("expected ErrRange, got %v", err)
	}
}

func TestMap_MarkCoveredOutOfBoundsIsNoOp(t *testing.T) {
	m := coverage.Map{}
	if err := m.MarkCovered("h1", coverage.Interval{Start: 10, End: 20}, 5); err != nil {
		t.Fatalf("MarkCovered error = %v", err)
	}

	ivs, ok := m.Covered("h1")
	if !ok {
		t.Fatal("entry should still be initialized")
	}
	if len(ivs) != 0 {
		t.Errorf("expected no coverage, got %v", ivs)
	}
}

func TestMap_MarkFullyCovered(t *testing.T) {
	m := coverage.Map{}
	if err := m.MarkCovered("h1", coverage.Interval{Start: 2, End: 3}, 6); err != nil {
		t.Fatalf("MarkCovered error = %v", err)
	}

	m.MarkFullyCovered("h1", 6)
	ivs, _ := m.Covered("h1")
	if !intervalsEqual(ivs, []coverage.Interval{{Start: 0, End: 6}}) {
		t.Errorf("expected [0,6), got %v", ivs)
	}

	// Monotonic: further marks never shrink coverage.
	if err := m.MarkCovered("h1", coverage.Interval{Start: 1, End: 2}, 6); err != nil {
		t.Fatalf("MarkCovered error = %v", err)
	}
	ivs, _ = m.Covered("h1")
	if !intervalsEqual(ivs, []coverage.Interval{{Start: 0, End: 6}}) {
		t.Errorf("coverage shrank to %v", ivs)
	}
}

func TestMap_StateTransitions(t *testing.T) {
	m := coverage.Map{}
	const lineCount = 6

	if got := m.StateOf("h1", lineCount); got != coverage.Unseen {
		t.Errorf("expected Unseen, got %v", got)
	}

	m.Initialize("h1")
	if got := m.StateOf("h1", lineCount); got != coverage.PartiallyCovered {
		t.Errorf("expected PartiallyCovered after init, got %v", got)
	}

	if err := m.MarkCovered("h1", coverage.Interval{Start: 0, End: 3}, lineCount); err != nil {
		t.Fatalf("MarkCovered error = %v", err)
	}
	if got := m.StateOf("h1", lineCount); got != coverage.PartiallyCovered {
		t.Errorf("expected PartiallyCovered, got %v", got)
	}

	m.MarkFullyCovered("h1", lineCount)
	if got := m.StateOf("h1", lineCount); got != coverage.FullyCovered {
		t.Errorf("expected FullyCovered, got %v", got)
	}
}
