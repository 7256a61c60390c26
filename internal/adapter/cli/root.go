package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hunktrack/hunktrack/internal/adapter/output/markdown"
	"github.com/hunktrack/hunktrack/internal/diff"
	"github.com/hunktrack/hunktrack/internal/domain"
	"github.com/hunktrack/hunktrack/internal/usecase/coverage"
	"github.com/hunktrack/hunktrack/internal/usecase/session"
)

// ErrVersionRequested indicates the user requested the CLI version and no further work should be done.
var ErrVersionRequested = errors.New("version requested")

// DiffSource materializes unified-diff text from a repository.
type DiffSource interface {
	DiffText(ctx context.Context, baseRef, targetRef string, includeUncommitted bool) (string, error)
	CurrentBranch(ctx context.Context) (string, error)
}

// SessionRunner defines the session operations the CLI drives.
type SessionRunner interface {
	Begin(ctx context.Context, key, diffText string) (*session.Review, error)
	Resume(ctx context.Context, key, diffText string) (*session.Review, []string, error)
	ApplyGroup(ctx context.Context, r *session.Review, g coverage.Group) ([]string, error)
	CoverRange(ctx context.Context, r *session.Review, key string, iv coverage.Interval) error
	CoverAll(ctx context.Context, r *session.Review, key string) error
	UncoveredMessage(r *session.Review) string
}

// ReportWriter renders a session coverage report to disk.
type ReportWriter interface {
	Write(ctx context.Context, artifact markdown.Artifact) (string, error)
}

// Arguments encapsulates IO streams injected from the host process.
type Arguments struct {
	InReader  io.Reader
	OutWriter io.Writer
	ErrWriter io.Writer
}

// Dependencies captures the collaborators for the CLI.
type Dependencies struct {
	Diff                      DiffSource
	Sessions                  SessionRunner
	Reporter                  ReportWriter
	Args                      Arguments
	DefaultBase               string
	DefaultOutput             string
	DefaultIncludeUncommitted bool
	Version                   string
}

// diffOptions are the shared flags every hunk command uses to obtain a diff
// snapshot and a session key.
type diffOptions struct {
	baseRef            string
	targetRef          string
	diffFile           string
	sessionKey         string
	includeUncommitted bool
}

// NewRootCommand constructs the root Cobra command.
func NewRootCommand(deps Dependencies) *cobra.Command {
	versionString := deps.Version
	if versionString == "" {
		versionString = "v0.0.0"
	}

	root := &cobra.Command{
		Use:   "ht",
		Short: "Track review coverage of diff hunks",
	}
	root.SilenceUsage = true
	root.SilenceErrors = true

	outWriter := deps.Args.OutWriter
	if outWriter == nil {
		outWriter = os.Stdout
	}
	errWriter := deps.Args.ErrWriter
	if errWriter == nil {
		errWriter = os.Stderr
	}
	inReader := deps.Args.InReader
	if inReader == nil {
		inReader = os.Stdin
	}
	root.SetOut(outWriter)
	root.SetErr(errWriter)
	root.SetIn(inReader)

	root.AddCommand(
		hunksCommand(deps),
		showCommand(deps),
		splitCommand(deps),
		combineCommand(deps),
		coverCommand(deps),
		applyCommand(deps),
		statusCommand(deps),
		reportCommand(deps),
	)

	var showVersion bool
	root.PersistentFlags().BoolVarP(&showVersion, "version", "v", false, "Show version and exit")
	versionHandler := func(cmd *cobra.Command, args []string) error {
		if showVersion {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), versionString)
			return ErrVersionRequested
		}
		return nil
	}
	root.PersistentPreRunE = versionHandler
	root.PreRunE = versionHandler
	root.RunE = func(cmd *cobra.Command, args []string) error {
		if err := versionHandler(cmd, args); err != nil {
			return err
		}
		return cmd.Help()
	}

	return root
}

func hunksCommand(deps Dependencies) *cobra.Command {
	var opts diffOptions
	var asXML bool

	cmd := &cobra.Command{
		Use:   "hunks",
		Short: "List the hunks of the current diff",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, text, err := resolveDiff(cmd, deps, &opts)
			if err != nil {
				return err
			}
			hunks, err := diff.ParseHunks(text)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asXML {
				_, _ = fmt.Fprintln(out, session.ContextXML(hunks))
				return nil
			}
			if len(hunks) == 0 {
				_, _ = fmt.Fprintln(out, "No hunks in diff.")
				return nil
			}
			for _, h := range hunks {
				_, _ = fmt.Fprintf(out, "%3d  %s  %d lines\n", h.ID, diff.StableID(h), len(h.Lines))
			}
			return nil
		},
	}

	registerDiffFlags(cmd, deps, &opts)
	cmd.Flags().BoolVar(&asXML, "xml", false, "Emit hunks as an XML context payload")
	return cmd
}

func showCommand(deps Dependencies) *cobra.Command {
	var opts diffOptions

	cmd := &cobra.Command{
		Use:   "show <hunk>",
		Short: "Print one hunk as a standalone patch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, text, err := resolveDiff(cmd, deps, &opts)
			if err != nil {
				return err
			}
			hunks, err := diff.ParseHunks(text)
			if err != nil {
				return err
			}
			h, ok := findHunk(hunks, args[0])
			if !ok {
				return fmt.Errorf("hunk %q not found", args[0])
			}
			_, _ = fmt.Fprint(cmd.OutOrStdout(), diff.HunkPatch(h))
			return nil
		},
	}

	registerDiffFlags(cmd, deps, &opts)
	return cmd
}

func splitCommand(deps Dependencies) *cobra.Command {
	var opts diffOptions

	cmd := &cobra.Command{
		Use:   "split <hunk> <start> <end>",
		Short: "Print a contiguous [start,end) slice of a hunk as a patch",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid start %q: %w", args[1], err)
			}
			end, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid end %q: %w", args[2], err)
			}

			_, text, err := resolveDiff(cmd, deps, &opts)
			if err != nil {
				return err
			}
			hunks, err := diff.ParseHunks(text)
			if err != nil {
				return err
			}
			h, ok := findHunk(hunks, args[0])
			if !ok {
				return fmt.Errorf("hunk %q not found", args[0])
			}

			sub, err := diff.SubHunk(h, start, end)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprint(cmd.OutOrStdout(), diff.HunkPatch(sub))
			return nil
		},
	}

	registerDiffFlags(cmd, deps, &opts)
	return cmd
}

func combineCommand(deps Dependencies) *cobra.Command {
	var opts diffOptions

	cmd := &cobra.Command{
		Use:   "combine <hunk>...",
		Short: "Print several same-file hunks as one multi-hunk patch",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, text, err := resolveDiff(cmd, deps, &opts)
			if err != nil {
				return err
			}
			hunks, err := diff.ParseHunks(text)
			if err != nil {
				return err
			}

			selected := make([]domain.Hunk, 0, len(args))
			for _, ref := range args {
				h, ok := findHunk(hunks, ref)
				if !ok {
					return fmt.Errorf("hunk %q not found", ref)
				}
				selected = append(selected, h)
			}

			patch, err := diff.CombinePatches(selected)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprint(cmd.OutOrStdout(), patch)
			return nil
		},
	}

	registerDiffFlags(cmd, deps, &opts)
	return cmd
}

func coverCommand(deps Dependencies) *cobra.Command {
	var opts diffOptions
	var all bool

	cmd := &cobra.Command{
		Use:   "cover <hunk> [start end]",
		Short: "Mark line positions of a hunk as reviewed",
		Args:  cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) != 3 {
				return fmt.Errorf("pass start and end positions, or use --all")
			}

			r, err := openSession(cmd, deps, &opts)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if all {
				if err := deps.Sessions.CoverAll(ctx, r, args[0]); err != nil {
					return err
				}
			} else {
				start, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("invalid start %q: %w", args[1], err)
				}
				end, err := strconv.Atoi(args[2])
				if err != nil {
					return fmt.Errorf("invalid end %q: %w", args[2], err)
				}
				if err := deps.Sessions.CoverRange(ctx, r, args[0], coverage.Interval{Start: start, End: end}); err != nil {
					return err
				}
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), deps.Sessions.UncoveredMessage(r))
			return nil
		},
	}

	registerDiffFlags(cmd, deps, &opts)
	cmd.Flags().BoolVar(&all, "all", false, "Mark the whole hunk covered")
	return cmd
}

// groupFile is the on-disk shape of a review group: covered [start,end)
// pairs keyed by hunk id.
type groupFile struct {
	Name   string              `json:"name"`
	Ranges map[string][][2]int `json:"ranges"`
}

func applyCommand(deps Dependencies) *cobra.Command {
	var opts diffOptions

	cmd := &cobra.Command{
		Use:   "apply <group.json>",
		Short: "Apply a review group's covered ranges to the session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read group: %w", err)
			}
			var gf groupFile
			if err := json.Unmarshal(data, &gf); err != nil {
				return fmt.Errorf("parse group %s: %w", args[0], err)
			}
			if gf.Name == "" {
				gf.Name = filepath.Base(args[0])
			}

			g := coverage.Group{Name: gf.Name, Ranges: make(map[string][]coverage.Interval, len(gf.Ranges))}
			for key, pairs := range gf.Ranges {
				for _, p := range pairs {
					g.Ranges[key] = append(g.Ranges[key], coverage.Interval{Start: p[0], End: p[1]})
				}
			}

			r, err := openSession(cmd, deps, &opts)
			if err != nil {
				return err
			}
			warnings, err := deps.Sessions.ApplyGroup(cmd.Context(), r, g)
			for _, w := range warnings {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
			}
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), deps.Sessions.UncoveredMessage(r))
			return nil
		},
	}

	registerDiffFlags(cmd, deps, &opts)
	return cmd
}

func statusCommand(deps Dependencies) *cobra.Command {
	var opts diffOptions

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show which hunks still have uncovered lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openSession(cmd, deps, &opts)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), deps.Sessions.UncoveredMessage(r))
			return nil
		},
	}

	registerDiffFlags(cmd, deps, &opts)
	return cmd
}

func reportCommand(deps Dependencies) *cobra.Command {
	var opts diffOptions
	var outputDir string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write a Markdown coverage report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if deps.Reporter == nil {
				return fmt.Errorf("no report writer configured")
			}

			r, err := openSession(cmd, deps, &opts)
			if err != nil {
				return err
			}
			path, err := deps.Reporter.Write(cmd.Context(), markdown.Artifact{
				OutputDir: outputDir,
				BaseRef:   opts.baseRef,
				TargetRef: opts.targetRef,
				Review:    r,
			})
			if err != nil {
				return err
			}
			if terminalOutput(cmd.OutOrStdout()) {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "report written to %s\n", path)
			} else {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}

	registerDiffFlags(cmd, deps, &opts)
	defaultOutput := deps.DefaultOutput
	if defaultOutput == "" {
		defaultOutput = "out"
	}
	cmd.Flags().StringVar(&outputDir, "output", defaultOutput, "Directory to write the report into")
	return cmd
}

func registerDiffFlags(cmd *cobra.Command, deps Dependencies, opts *diffOptions) {
	defaultBase := deps.DefaultBase
	if defaultBase == "" {
		defaultBase = "main"
	}
	cmd.Flags().StringVar(&opts.baseRef, "base", defaultBase, "Base reference to diff against")
	cmd.Flags().StringVar(&opts.targetRef, "target", "", "Target ref to diff (defaults to the checked out branch)")
	cmd.Flags().StringVar(&opts.diffFile, "diff-file", "", "Read the diff from a file instead of the repository ('-' for stdin)")
	cmd.Flags().StringVar(&opts.sessionKey, "session", "", "Session key override (defaults to base..target)")
	cmd.Flags().BoolVar(&opts.includeUncommitted, "include-uncommitted", deps.DefaultIncludeUncommitted, "Diff the working tree against the base ref")
}

// resolveDiff obtains the diff snapshot and session key the command operates
// on, either from a file or from the configured repository.
func resolveDiff(cmd *cobra.Command, deps Dependencies, opts *diffOptions) (string, string, error) {
	if opts.diffFile != "" {
		var data []byte
		var err error
		if opts.diffFile == "-" {
			if terminalInput(cmd.InOrStdin()) {
				return "", "", fmt.Errorf("stdin is a terminal; pipe a diff in or pass a file path")
			}
			data, err = io.ReadAll(cmd.InOrStdin())
		} else {
			data, err = os.ReadFile(opts.diffFile)
		}
		if err != nil {
			return "", "", fmt.Errorf("read diff: %w", err)
		}
		key := opts.sessionKey
		if key == "" {
			if opts.diffFile == "-" {
				key = "stdin"
			} else {
				key = filepath.Base(opts.diffFile)
			}
		}
		return key, string(data), nil
	}

	if deps.Diff == nil {
		return "", "", fmt.Errorf("no repository configured; pass --diff-file")
	}

	ctx := cmd.Context()
	target := opts.targetRef
	if target == "" {
		resolved, err := deps.Diff.CurrentBranch(ctx)
		if err != nil {
			return "", "", fmt.Errorf("detect target branch: %w", err)
		}
		target = resolved
		opts.targetRef = resolved
	}

	text, err := deps.Diff.DiffText(ctx, opts.baseRef, target, opts.includeUncommitted)
	if err != nil {
		return "", "", err
	}

	key := opts.sessionKey
	if key == "" {
		key = opts.baseRef + ".." + target
	}
	return key, text, nil
}

// openSession resumes the session for the resolved diff, starting a fresh
// one when nothing is persisted yet. Divergence warnings go to stderr.
func openSession(cmd *cobra.Command, deps Dependencies, opts *diffOptions) (*session.Review, error) {
	key, text, err := resolveDiff(cmd, deps, opts)
	if err != nil {
		return nil, err
	}

	r, warnings, err := deps.Sessions.Resume(cmd.Context(), key, text)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return deps.Sessions.Begin(cmd.Context(), key, text)
		}
		return nil, err
	}
	for _, w := range warnings {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
	}
	return r, nil
}

// findHunk resolves a hunk reference: a decimal ephemeral id, or a stable id
// when the reference carries the stable marker.
func findHunk(hunks []domain.Hunk, ref string) (domain.Hunk, bool) {
	if strings.Contains(ref, ":@-") {
		return diff.FindByStableID(hunks, ref)
	}
	id, err := strconv.Atoi(ref)
	if err != nil {
		return domain.Hunk{}, false
	}
	for _, h := range hunks {
		if h.ID == id {
			return h, true
		}
	}
	return domain.Hunk{}, false
}
