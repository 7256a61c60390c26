package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/hunktrack/hunktrack/internal/adapter/cli"
	"github.com/hunktrack/hunktrack/internal/adapter/git"
	"github.com/hunktrack/hunktrack/internal/adapter/output/markdown"
	"github.com/hunktrack/hunktrack/internal/adapter/store/sqlite"
	"github.com/hunktrack/hunktrack/internal/config"
	"github.com/hunktrack/hunktrack/internal/usecase/session"
	"github.com/hunktrack/hunktrack/internal/version"
)

func main() {
	if err := run(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

func run() error {
	// Cancellable context with signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(config.LoaderOptions{
		ConfigPaths: defaultConfigPaths(),
		FileName:    "ht",
		EnvPrefix:   "HT",
	})
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	repoDir := cfg.Git.RepositoryDir
	if repoDir == "" {
		repoDir = "."
	}

	gitEngine := git.NewEngine(repoDir).WithMaxPatchLines(cfg.Diff.MaxPatchLines)

	// Timestamp function for deterministic output file naming
	nowFunc := func() string {
		return time.Now().UTC().Format("20060102T150405Z")
	}
	markdownWriter := markdown.NewWriter(nowFunc)

	// Initialize store if enabled; a broken store degrades to an
	// in-memory session rather than aborting.
	var sessionStore session.Store
	if cfg.Store.Enabled {
		storeDir := filepath.Dir(cfg.Store.Path)
		if err := os.MkdirAll(storeDir, 0755); err != nil {
			log.Printf("warning: failed to create store directory: %v", err)
		} else {
			sqliteStore, err := sqlite.NewStore(cfg.Store.Path)
			if err != nil {
				log.Printf("warning: failed to initialize store: %v", err)
			} else {
				sessionStore = sqliteStore
				defer sessionStore.Close()
			}
		}
	}

	sessions := session.New(sessionStore, cfg.Coverage.PreviewLines)

	root := cli.NewRootCommand(cli.Dependencies{
		Diff:                      gitEngine,
		Sessions:                  sessions,
		Reporter:                  markdownWriter,
		DefaultBase:               cfg.Git.BaseRef,
		DefaultOutput:             cfg.Output.Directory,
		DefaultIncludeUncommitted: cfg.Diff.IncludeUncommitted,
		Version:                   version.Value(),
	})

	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, cli.ErrVersionRequested) {
			return nil
		}
		return fmt.Errorf("command failed: %w", err)
	}
	return nil
}

func defaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "ht"))
	}
	return paths
}

// Compile-time interface compliance checks
var _ cli.DiffSource = (*git.Engine)(nil)
var _ cli.SessionRunner = (*session.Service)(nil)
var _ cli.ReportWriter = (*markdown.Writer)(nil)
var _ session.Store = (*sqlite.Store)(nil)
