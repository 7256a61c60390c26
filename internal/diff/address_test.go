package diff_test

import (
	"errors"
	"testing"

	"github.com/hunktrack/hunktrack/internal/diff"
	"github.com/hunktrack/hunktrack/internal/domain"
)

func TestStableID_Format(t *testing.T) {
	h := domain.Hunk{
		Filename: "src/main.go",
		OldStart: 10, OldLines: 6,
		NewStart: 10, NewLines: 7,
	}

	if got := diff.StableID(h); got != "src/main.go:@-10,6+10,7" {
		t.Errorf("StableID = %q, want %q", got, "src/main.go:@-10,6+10,7")
	}
}

func TestStableID_IgnoresEphemeralID(t *testing.T) {
	a := domain.Hunk{ID: 1, Filename: "f.go", OldStart: 1, OldLines: 2, NewStart: 1, NewLines: 2}
	b := a
	b.ID = 99

	if diff.StableID(a) != diff.StableID(b) {
		t.Error("stable id must not depend on the ephemeral parse-run id")
	}
}

func TestParseStableID_RoundTrip(t *testing.T) {
	hunks := []domain.Hunk{
		{Filename: "src/main.go", OldStart: 10, OldLines: 6, NewStart: 10, NewLines: 7},
		{Filename: "a:b/weird.txt", OldStart: 0, OldLines: 0, NewStart: 1, NewLines: 3},
		{Filename: "no-dir", OldStart: 120, OldLines: 1, NewStart: 98, NewLines: 1},
	}

	for _, h := range hunks {
		addr, err := diff.ParseStableID(diff.StableID(h))
		if err != nil {
			t.Fatalf("ParseStableID(%q) error = %v", diff.StableID(h), err)
		}
		want := diff.Address{
			Filename: h.Filename,
			OldStart: h.OldStart, OldLines: h.OldLines,
			NewStart: h.NewStart, NewLines: h.NewLines,
		}
		if addr != want {
			t.Errorf("round trip of %q: got %+v, want %+v", diff.StableID(h), addr, want)
		}
	}
}

func TestParseStableID_ColonFilename(t *testing.T) {
	addr, err := diff.ParseStableID("c:/windows/file.txt:@-1,2+1,2")
	if err != nil {
		t.Fatalf("ParseStableID error = %v", err)
	}
	if addr.Filename != "c:/windows/file.txt" {
		t.Errorf("expected colon filename preserved, got %q", addr.Filename)
	}
}

func TestParseStableID_Invalid(t *testing.T) {
	cases := []string{
		"",
		"no-marker-here",
		"f.go:@-1,2",        // missing new pair
		"f.go:@-1,2+3",      // missing comma in new pair
		"f.go:@-a,2+3,4",    // non-numeric
		"f.go:@--1,2+3,4",   // negative
		"f.go:@-1,2+3,45,6", // trailing garbage pair
	}

	for _, id := range cases {
		if _, err := diff.ParseStableID(id); !errors.Is(err, diff.ErrInvalidHunkID) {
			t.Errorf("ParseStableID(%q): expected ErrInvalidHunkID, got %v", id, err)
		}
	}
}

func TestFindByStableID(t *testing.T) {
	hunks, err := diff.ParseHunks(twoFileDiff)
	if err != nil {
		t.Fatalf("ParseHunks() error = %v", err)
	}

	id := diff.StableID(hunks[1])
	found, ok := diff.FindByStableID(hunks, id)
	if !ok {
		t.Fatalf("expected to find hunk for %q", id)
	}
	if found.ID != hunks[1].ID {
		t.Errorf("found wrong hunk: id %d, want %d", found.ID, hunks[1].ID)
	}

	// A stale id is an expected steady-state outcome, never an error.
	if _, ok := diff.FindByStableID(hunks, "gone.go:@-1,1+1,1"); ok {
		t.Error("expected miss for stale id")
	}
}
