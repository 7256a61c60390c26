// Package coverage tracks which line positions of each diff hunk have been
// consumed by a downstream review or staging process.
//
// Coverage is monotonic: once a position is covered it is never uncovered.
// The map is caller-owned plain data with no internal locking; a caller
// exposing it to concurrent mutators must serialize writes itself.
package coverage

import (
	"errors"
	"fmt"
)

// ErrRange indicates an inverted coverage range (start > end).
var ErrRange = errors.New("inverted coverage range")

// State describes a hunk's position in the coverage lifecycle.
type State int

const (
	// Unseen means the hunk has no coverage entry yet.
	Unseen State = iota
	// PartiallyCovered means some but not all line positions are covered.
	PartiallyCovered
	// FullyCovered means every line position is covered.
	FullyCovered
)

// Map holds per-hunk covered intervals, keyed by a caller-chosen hunk key
// (stable id or ephemeral id; the choice just has to be consistent within
// one session). Interval lists are always kept in merged minimal form.
type Map map[string][]Interval

// Initialize creates an empty coverage entry for the key if absent.
// Idempotent: an existing entry is left untouched.
func (m Map) Initialize(key string) {
	if _, ok := m[key]; !ok {
		m[key] = nil
	}
}

// MarkCovered unions the given range into the hunk's covered intervals,
// clamped to [0, lineCount). An inverted range returns ErrRange; a range
// that clamps to nothing is a no-op but still initializes the entry.
func (m Map) MarkCovered(key string, iv Interval, lineCount int) error {
	if iv.Start > iv.End {
		return fmt.Errorf("range [%d,%d): %w", iv.Start, iv.End, ErrRange)
	}
	m.Initialize(key)

	iv = clamp(iv, lineCount)
	if iv.empty() {
		return nil
	}
	m[key] = Merge(append(m[key], iv))
	return nil
}

// MarkFullyCovered sets the hunk's coverage to exactly [0, lineCount),
// regardless of prior state. Coverage only grows, so this cannot be undone.
func (m Map) MarkFullyCovered(key string, lineCount int) {
	if lineCount <= 0 {
		m.Initialize(key)
		return
	}
	m[key] = []Interval{{Start: 0, End: lineCount}}
}

// Covered returns the hunk's merged covered intervals and whether the hunk
// has an entry at all.
func (m Map) Covered(key string) ([]Interval, bool) {
	ivs, ok := m[key]
	return ivs, ok
}

// StateOf classifies a hunk's coverage against its line count.
func (m Map) StateOf(key string, lineCount int) State {
	ivs, ok := m[key]
	if !ok {
		return Unseen
	}
	if len(Complement(ivs, lineCount)) == 0 && lineCount > 0 {
		return FullyCovered
	}
	return PartiallyCovered
}
