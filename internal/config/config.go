package config

// Config represents the full application configuration.
type Config struct {
	Git      GitConfig      `yaml:"git"`
	Diff     DiffConfig     `yaml:"diff"`
	Coverage CoverageConfig `yaml:"coverage"`
	Store    StoreConfig    `yaml:"store"`
	Output   OutputConfig   `yaml:"output"`
}

type GitConfig struct {
	RepositoryDir string `yaml:"repositoryDir"`
	BaseRef       string `yaml:"baseRef"`
}

// DiffConfig configures diff materialization.
type DiffConfig struct {
	// IncludeUncommitted diffs the working tree against the base ref
	// instead of comparing two commits.
	IncludeUncommitted bool `yaml:"includeUncommitted"`

	// MaxPatchLines drops file patches over this many lines from the
	// materialized diff. Zero disables the threshold.
	MaxPatchLines int `yaml:"maxPatchLines"`
}

// CoverageConfig configures coverage reporting.
type CoverageConfig struct {
	// PreviewLines is how many lines of an uncovered range are shown in
	// status output.
	PreviewLines int `yaml:"previewLines"`
}

// StoreConfig configures the persistence layer.
type StoreConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type OutputConfig struct {
	Directory string `yaml:"directory"`
}

// Merge combines multiple configuration instances, prioritising the latter ones.
func Merge(configs ...Config) Config {
	result := Config{}
	for _, cfg := range configs {
		result = merge(result, cfg)
	}
	return result
}

func merge(base, overlay Config) Config {
	result := base

	result.Git = chooseGit(base.Git, overlay.Git)
	result.Diff = chooseDiff(base.Diff, overlay.Diff)
	result.Coverage = chooseCoverage(base.Coverage, overlay.Coverage)
	result.Store = chooseStore(base.Store, overlay.Store)
	result.Output = chooseOutput(base.Output, overlay.Output)

	return result
}

func chooseGit(base, overlay GitConfig) GitConfig {
	if overlay.RepositoryDir != "" || overlay.BaseRef != "" {
		return overlay
	}
	return base
}

func chooseDiff(base, overlay DiffConfig) DiffConfig {
	if overlay.IncludeUncommitted || overlay.MaxPatchLines != 0 {
		return overlay
	}
	return base
}

func chooseCoverage(base, overlay CoverageConfig) CoverageConfig {
	if overlay.PreviewLines != 0 {
		return overlay
	}
	return base
}

func chooseStore(base, overlay StoreConfig) StoreConfig {
	if overlay.Enabled || overlay.Path != "" {
		return overlay
	}
	return base
}

func chooseOutput(base, overlay OutputConfig) OutputConfig {
	if overlay.Directory != "" {
		return overlay
	}
	return base
}
