// Package diff parses unified-diff text into addressable hunks and renders
// hunks back into valid patch text.
//
// A parsed hunk carries two identities: an ephemeral numeric ID scoped to
// one ParseHunks call (1-based, in file order then hunk order), and a
// stable textual address derived only from the hunk's filename and header
// coordinates. The stable address round-trips through ParseStableID and is
// the form external tooling accepts as input, so its format is a wire
// contract.
package diff
