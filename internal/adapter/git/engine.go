// Package git materializes raw unified-diff text from a repository using
// go-git, falling back to the git binary for working-tree state go-git
// does not expose. It is the input side of the hunk engine: producing diff
// text, never applying it.
package git

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os/exec"
	"strings"

	goGit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	formatdiff "github.com/go-git/go-git/v5/plumbing/format/diff"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Engine produces unified-diff text for a repository directory.
type Engine struct {
	repoDir       string
	maxPatchLines int
}

// NewEngine constructs an engine for the provided repository directory.
func NewEngine(repoDir string) *Engine {
	return &Engine{repoDir: repoDir}
}

// WithMaxPatchLines sets a per-file elision threshold: files whose patch
// exceeds this many lines are dropped from the output with a warning, so
// pathological diffs do not swamp downstream parsing. Zero disables.
func (e *Engine) WithMaxPatchLines(n int) *Engine {
	e.maxPatchLines = n
	return e
}

// DiffText returns the combined unified diff between two refs, one file
// patch after another. With includeUncommitted the working tree is diffed
// against baseRef via the git binary instead, matching what `git diff`
// would show.
func (e *Engine) DiffText(ctx context.Context, baseRef, targetRef string, includeUncommitted bool) (string, error) {
	if includeUncommitted {
		out, err := runGitCommand(ctx, e.repoDir, "diff", baseRef)
		if err != nil {
			return "", err
		}
		return e.elideLargeFiles(out), nil
	}

	repo, err := goGit.PlainOpenWithOptions(e.repoDir, &goGit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", fmt.Errorf("open repo: %w", err)
	}

	baseCommit, err := resolveCommit(repo, baseRef)
	if err != nil {
		return "", fmt.Errorf("resolve base ref: %w", err)
	}
	targetCommit, err := resolveCommit(repo, targetRef)
	if err != nil {
		return "", fmt.Errorf("resolve target ref: %w", err)
	}

	patch, err := baseCommit.Patch(targetCommit)
	if err != nil {
		return "", fmt.Errorf("compute patch: %w", err)
	}

	var b strings.Builder
	for _, fp := range patch.FilePatches() {
		patchText, err := encodeFilePatch(fp)
		if err != nil {
			return "", fmt.Errorf("encode patch: %w", err)
		}
		if IsBinaryPatch(patchText) {
			continue
		}
		if e.tooLarge(patchText) {
			log.Printf("warning: eliding %s (%d lines over threshold %d)",
				filePatchPath(fp), countLines(patchText), e.maxPatchLines)
			continue
		}
		b.WriteString(patchText)
	}
	return b.String(), nil
}

// CurrentBranch returns the name of the checked-out branch.
func (e *Engine) CurrentBranch(ctx context.Context) (string, error) {
	repo, err := goGit.PlainOpenWithOptions(e.repoDir, &goGit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", fmt.Errorf("open repo: %w", err)
	}
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	name := head.Name()
	if name.IsBranch() {
		return name.Short(), nil
	}
	return "", fmt.Errorf("detached HEAD")
}

func resolveCommit(repo *goGit.Repository, ref string) (*object.Commit, error) {
	candidates := []string{
		ref,
		fmt.Sprintf("refs/heads/%s", ref),
		fmt.Sprintf("refs/remotes/origin/%s", ref),
	}

	var lastErr error
	for _, candidate := range candidates {
		name := plumbing.Revision(candidate)
		hash, err := repo.ResolveRevision(name)
		if err != nil {
			lastErr = err
			continue
		}
		return repo.CommitObject(*hash)
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, fmt.Errorf("unable to resolve ref %s", ref)
}

// IsBinaryPatch checks if a patch represents a binary file. Git uses
// "Binary files ... differ" or "GIT binary patch" in the patch text.
func IsBinaryPatch(patchText string) bool {
	return strings.Contains(patchText, "Binary files") ||
		strings.Contains(patchText, "GIT binary patch")
}

func (e *Engine) tooLarge(patchText string) bool {
	return e.maxPatchLines > 0 && countLines(patchText) > e.maxPatchLines
}

// elideLargeFiles applies the per-file threshold to git-binary output,
// which arrives as one combined diff rather than per-file patches.
func (e *Engine) elideLargeFiles(combined string) string {
	if e.maxPatchLines <= 0 || combined == "" {
		return combined
	}

	var b strings.Builder
	for _, section := range SplitFileSections(combined) {
		if countLines(section) > e.maxPatchLines {
			log.Printf("warning: eliding file section (%d lines over threshold %d)",
				countLines(section), e.maxPatchLines)
			continue
		}
		b.WriteString(section)
	}
	return b.String()
}

// SplitFileSections cuts a combined diff at each "diff --git" boundary.
// Exported for tests.
func SplitFileSections(combined string) []string {
	const marker = "\ndiff --git "
	var sections []string
	rest := combined
	for len(rest) > 0 {
		idx := strings.Index(rest[1:], marker)
		if idx < 0 {
			sections = append(sections, rest)
			break
		}
		cut := idx + 2 // past the first byte and the newline
		sections = append(sections, rest[:cut])
		rest = rest[cut:]
	}
	return sections
}

func countLines(s string) int {
	return strings.Count(s, "\n")
}

func filePatchPath(fp formatdiff.FilePatch) string {
	from, to := fp.Files()
	if to != nil {
		return to.Path()
	}
	if from != nil {
		return from.Path()
	}
	return "?"
}

func runGitCommand(ctx context.Context, repoDir string, args ...string) (string, error) {
	fullArgs := append([]string{"-C", repoDir}, args...)
	cmd := exec.CommandContext(ctx, "git", fullArgs...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("git %v: %w", args, ctx.Err())
		}
		if stderr.Len() > 0 {
			err = fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return "", fmt.Errorf("git %v: %w", args, err)
	}
	return stdout.String(), nil
}

func encodeFilePatch(fp formatdiff.FilePatch) (string, error) {
	var buf bytes.Buffer
	encoder := formatdiff.NewUnifiedEncoder(&buf, formatdiff.DefaultContextLines)
	if err := encoder.Encode(singlePatch{fp: fp}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

type singlePatch struct {
	fp formatdiff.FilePatch
}

func (s singlePatch) FilePatches() []formatdiff.FilePatch {
	return []formatdiff.FilePatch{s.fp}
}

func (s singlePatch) Message() string {
	return ""
}
