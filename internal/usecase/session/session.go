// Package session orchestrates a review session over one diff snapshot:
// parse the diff into hunks, track coverage as review groups come back from
// the external orchestration process, and report what remains uncovered.
//
// Within a live session hunks are keyed by their ephemeral numeric id (the
// id the review orchestrator sees in the context payload). Persisted state
// is keyed by stable id instead, so a session can be resumed against a
// fresh parse of the same repository state.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/hunktrack/hunktrack/internal/diff"
	"github.com/hunktrack/hunktrack/internal/domain"
	"github.com/hunktrack/hunktrack/internal/usecase/coverage"
)

// ErrNotFound indicates no persisted session exists for a key. Store
// implementations return it from Load; callers treat it as "start fresh".
var ErrNotFound = errors.New("session not found")

// HunkRecord is the persisted identity of one hunk in a session.
type HunkRecord struct {
	StableID  string
	Filename  string
	HunkIndex int
	LineCount int
}

// Record is the persisted form of a session: hunk identities plus covered
// intervals, both keyed by stable id.
type Record struct {
	Key       string
	CreatedAt time.Time
	Hunks     []HunkRecord
	Coverage  map[string][]coverage.Interval
}

// Store persists session records. Implementations may use SQLite or
// anything else; the engine itself never performs I/O.
type Store interface {
	Save(ctx context.Context, rec Record) error
	Load(ctx context.Context, key string) (Record, error)
	Close() error
}

// Review is one in-memory session: the parsed hunks of a diff snapshot and
// their coverage. Not safe for concurrent mutation; callers exposing a
// Review to multiple goroutines must serialize access.
type Review struct {
	Key       string
	Hunks     []domain.Hunk
	CreatedAt time.Time

	byKey    map[string]domain.Hunk
	coverage coverage.Map
}

// Service wires the diff engine and coverage tracker to an optional store.
type Service struct {
	store        Store
	previewLines int
	now          func() time.Time
}

// New constructs a session service. store may be nil, in which case
// sessions live only in memory.
func New(store Store, previewLines int) *Service {
	return &Service{
		store:        store,
		previewLines: previewLines,
		now:          time.Now,
	}
}

// WithClock overrides the timestamp source, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Begin parses a diff snapshot into a new session, initializes empty
// coverage for every hunk, and persists the session if a store is
// configured. An empty diff yields a session with no hunks, not an error.
func (s *Service) Begin(ctx context.Context, key, diffText string) (*Review, error) {
	hunks, err := diff.ParseHunks(diffText)
	if err != nil {
		return nil, fmt.Errorf("begin session %q: %w", key, err)
	}

	r := &Review{
		Key:       key,
		Hunks:     hunks,
		CreatedAt: s.now(),
		byKey:     make(map[string]domain.Hunk, len(hunks)),
		coverage:  coverage.Map{},
	}
	for _, h := range hunks {
		k := HunkKey(h)
		r.byKey[k] = h
		r.coverage.Initialize(k)
	}

	if err := s.save(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Resume loads a persisted session and rebinds its coverage to a fresh
// parse of the diff. Stored hunks whose stable id no longer matches any
// parsed hunk are skipped with a warning: the working tree has diverged,
// which is a normal outcome, and the surviving coverage must be kept.
func (s *Service) Resume(ctx context.Context, key, diffText string) (*Review, []string, error) {
	if s.store == nil {
		return nil, nil, fmt.Errorf("resume session %q: %w", key, ErrNotFound)
	}
	rec, err := s.store.Load(ctx, key)
	if err != nil {
		return nil, nil, fmt.Errorf("resume session %q: %w", key, err)
	}

	hunks, err := diff.ParseHunks(diffText)
	if err != nil {
		return nil, nil, fmt.Errorf("resume session %q: %w", key, err)
	}

	r := &Review{
		Key:       key,
		Hunks:     hunks,
		CreatedAt: rec.CreatedAt,
		byKey:     make(map[string]domain.Hunk, len(hunks)),
		coverage:  coverage.Map{},
	}
	for _, h := range hunks {
		k := HunkKey(h)
		r.byKey[k] = h
		r.coverage.Initialize(k)
	}

	var warnings []string
	for stableID, ivs := range rec.Coverage {
		h, ok := diff.FindByStableID(hunks, stableID)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("hunk %s no longer exists; dropping its coverage", stableID))
			continue
		}
		for _, iv := range ivs {
			if err := r.coverage.MarkCovered(HunkKey(h), iv, len(h.Lines)); err != nil {
				return nil, warnings, fmt.Errorf("resume session %q: %w", key, err)
			}
		}
	}
	return r, warnings, nil
}

// ApplyGroup folds one review group into the session's coverage and
// persists the updated state. Warnings from unknown hunk references are
// returned, never fatal.
func (s *Service) ApplyGroup(ctx context.Context, r *Review, g coverage.Group) ([]string, error) {
	warnings, err := coverage.ApplyGroup(r.byKey, r.coverage, g)
	if err != nil {
		return warnings, err
	}
	if err := s.save(ctx, r); err != nil {
		return warnings, err
	}
	return warnings, nil
}

// CoverRange marks one line range of one hunk covered and persists.
func (s *Service) CoverRange(ctx context.Context, r *Review, key string, iv coverage.Interval) error {
	h, ok := r.byKey[key]
	if !ok {
		return fmt.Errorf("cover: unknown hunk %q", key)
	}
	if err := r.coverage.MarkCovered(key, iv, len(h.Lines)); err != nil {
		return err
	}
	return s.save(ctx, r)
}

// CoverAll marks a hunk fully covered and persists.
func (s *Service) CoverAll(ctx context.Context, r *Review, key string) error {
	h, ok := r.byKey[key]
	if !ok {
		return fmt.Errorf("cover: unknown hunk %q", key)
	}
	r.coverage.MarkFullyCovered(key, len(h.Lines))
	return s.save(ctx, r)
}

// Uncovered computes the uncovered portions of every hunk in the session.
func (s *Service) Uncovered(r *Review) []coverage.UncoveredPortion {
	return coverage.UncoveredPortions(r.byKey, r.coverage, s.previewLines)
}

// UncoveredMessage renders the human-readable uncovered summary.
func (s *Service) UncoveredMessage(r *Review) string {
	return coverage.FormatUncoveredMessage(s.Uncovered(r))
}

// Hunk looks up a session hunk by its in-session key.
func (r *Review) Hunk(key string) (domain.Hunk, bool) {
	h, ok := r.byKey[key]
	return h, ok
}

// Coverage exposes the session's coverage map for read access.
func (r *Review) Coverage() coverage.Map {
	return r.coverage
}

// HunkKey renders a hunk's in-session key: its ephemeral id in decimal,
// matching what the review orchestrator is shown in the context payload.
func HunkKey(h domain.Hunk) string {
	return strconv.Itoa(h.ID)
}

func (s *Service) save(ctx context.Context, r *Review) error {
	if s.store == nil {
		return nil
	}

	rec := Record{
		Key:       r.Key,
		CreatedAt: r.CreatedAt,
		Hunks:     make([]HunkRecord, 0, len(r.Hunks)),
		Coverage:  make(map[string][]coverage.Interval),
	}
	for _, h := range r.Hunks {
		stableID := diff.StableID(h)
		rec.Hunks = append(rec.Hunks, HunkRecord{
			StableID:  stableID,
			Filename:  h.Filename,
			HunkIndex: h.HunkIndex,
			LineCount: len(h.Lines),
		})
		if ivs, ok := r.coverage.Covered(HunkKey(h)); ok && len(ivs) > 0 {
			rec.Coverage[stableID] = ivs
		}
	}

	if err := s.store.Save(ctx, rec); err != nil {
		return fmt.Errorf("save session %q: %w", r.Key, err)
	}
	return nil
}
