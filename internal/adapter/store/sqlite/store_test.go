package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hunktrack/hunktrack/internal/adapter/store/sqlite"
	"github.com/hunktrack/hunktrack/internal/usecase/coverage"
	"github.com/hunktrack/hunktrack/internal/usecase/session"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRecord(key string) session.Record {
	return session.Record{
		Key:       key,
		CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Hunks: []session.HunkRecord{
			{StableID: "src/main.go:@-10,3+10,4", Filename: "src/main.go", HunkIndex: 0, LineCount: 4},
			{StableID: "pkg/util.go:@-1,2+1,2", Filename: "pkg/util.go", HunkIndex: 0, LineCount: 3},
		},
		Coverage: map[string][]coverage.Interval{
			"src/main.go:@-10,3+10,4": {{Start: 0, End: 2}},
		},
	}
}

func TestSaveAndLoad(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := sampleRecord("main..feature")
	require.NoError(t, s.Save(ctx, rec))

	loaded, err := s.Load(ctx, "main..feature")
	require.NoError(t, err)

	assert.Equal(t, rec.Key, loaded.Key)
	assert.Equal(t, rec.CreatedAt, loaded.CreatedAt)
	require.Len(t, loaded.Hunks, 2)
	// Hunks come back ordered by filename then hunk index.
	assert.Equal(t, "pkg/util.go", loaded.Hunks[0].Filename)
	assert.Equal(t, "src/main.go", loaded.Hunks[1].Filename)
	assert.Equal(t, 4, loaded.Hunks[1].LineCount)

	ivs := loaded.Coverage["src/main.go:@-10,3+10,4"]
	require.Len(t, ivs, 1)
	assert.Equal(t, coverage.Interval{Start: 0, End: 2}, ivs[0])
}

func TestSave_ReplacesPreviousState(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := sampleRecord("s")
	require.NoError(t, s.Save(ctx, rec))

	rec.Hunks = rec.Hunks[:1]
	rec.Coverage = map[string][]coverage.Interval{
		"src/main.go:@-10,3+10,4": {{Start: 0, End: 4}},
	}
	require.NoError(t, s.Save(ctx, rec))

	loaded, err := s.Load(ctx, "s")
	require.NoError(t, err)
	assert.Len(t, loaded.Hunks, 1)
	assert.Equal(t, []coverage.Interval{{Start: 0, End: 4}}, loaded.Coverage["src/main.go:@-10,3+10,4"])
}

func TestSave_KeepsOriginalCreatedAt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := sampleRecord("s")
	require.NoError(t, s.Save(ctx, rec))
	require.NoError(t, s.Save(ctx, rec))

	loaded, err := s.Load(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, rec.CreatedAt, loaded.CreatedAt)
}

func TestLoad_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestDelete_CascadesAndIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, sampleRecord("s")))
	require.NoError(t, s.Delete(ctx, "s"))

	_, err := s.Load(ctx, "s")
	assert.ErrorIs(t, err, session.ErrNotFound)

	require.NoError(t, s.Delete(ctx, "s"))
}

func TestSessionsAreIsolated(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, sampleRecord("a")))
	b := sampleRecord("b")
	b.Hunks = b.Hunks[:1]
	require.NoError(t, s.Save(ctx, b))

	loadedA, err := s.Load(ctx, "a")
	require.NoError(t, err)
	loadedB, err := s.Load(ctx, "b")
	require.NoError(t, err)

	assert.Len(t, loadedA.Hunks, 2)
	assert.Len(t, loadedB.Hunks, 1)
}
