// Package config loads changelog settings through viper and compiles them
// into the typed form the extraction engine consumes.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/joescharf/changelog/internal/issues"
)

// Default configuration values.
const (
	DefaultUntaggedName    = "Unreleased"
	DefaultReadableTagName = `/([^/]+?)$`
	DefaultIgnoreCommits   = `^\[maven-release-plugin\].*|^\[Gradle Release Plugin\].*|^Merge.*`
	DefaultDateFormat      = "2006-01-02 15:04:05"
	DefaultTimeZone        = "UTC"
	DefaultNoIssueName     = "No issue"
	DefaultGitHubName      = "GitHub"
	DefaultGitHubPattern   = `#([0-9]+)`
	DefaultJiraName        = "Jira"
	DefaultJiraPattern     = `\b[a-zA-Z]([a-zA-Z]+)-([0-9]+)\b`
	DefaultCacheTTL        = 24 * time.Hour
	DefaultWorkers         = 4
)

// Git backends.
const (
	BackendCLI   = "cli"
	BackendGoGit = "go-git"
)

// Output formats.
const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
	FormatYAML     = "yaml"
)

// Config is the raw configuration as read by viper.
type Config struct {
	Repo                   string        `mapstructure:"repo"`
	FromRef                string        `mapstructure:"from_ref"`
	ToRef                  string        `mapstructure:"to_ref"`
	UntaggedName           string        `mapstructure:"untagged_name"`
	ReadableTagName        string        `mapstructure:"readable_tag_name"`
	IgnoreCommitsPattern   string        `mapstructure:"ignore_commits_pattern"`
	DateFormat             string        `mapstructure:"date_format"`
	TimeZone               string        `mapstructure:"time_zone"`
	NoIssueName            string        `mapstructure:"no_issue_name"`
	RemoveIssueFromMessage bool          `mapstructure:"remove_issue_from_message"`
	Issues                 []IssueConfig `mapstructure:"issues"`
	Labels                 []LabelConfig `mapstructure:"labels"`
	GitHub                 GitHubConfig  `mapstructure:"github"`
	Jira                   JiraConfig    `mapstructure:"jira"`
	Cache                  CacheConfig   `mapstructure:"cache"`
	Git                    GitConfig     `mapstructure:"git"`
	Template               string        `mapstructure:"template"`
	Output                 OutputConfig  `mapstructure:"output"`
	Workers                int           `mapstructure:"workers"`
}

// IssueConfig is one configured issue pattern.
type IssueConfig struct {
	Name    string `mapstructure:"name"`
	Pattern string `mapstructure:"pattern"`
	Link    string `mapstructure:"link"`
	Kind    string `mapstructure:"kind"`
}

// LabelConfig is one configured label pattern.
type LabelConfig struct {
	Name    string `mapstructure:"name"`
	Pattern string `mapstructure:"pattern"`
}

// GitHubConfig enables GitHub issue lookups through the gh CLI.
type GitHubConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Repo    string `mapstructure:"repo"`
	Name    string `mapstructure:"name"`
	Pattern string `mapstructure:"pattern"`
}

// JiraConfig enables Jira issue lookups. Lookups are attempted when Server is set.
type JiraConfig struct {
	Server   string `mapstructure:"server"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	Pattern  string `mapstructure:"pattern"`
}

// CacheConfig controls the persistent tracker cache.
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	DBPath  string        `mapstructure:"db_path"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// GitConfig selects the history backend.
type GitConfig struct {
	Backend string `mapstructure:"backend"`
}

// OutputConfig selects how the report is rendered.
type OutputConfig struct {
	Format string `mapstructure:"format"`
}

// Settings is the validated configuration with every pattern compiled.
type Settings struct {
	Repo         string
	FromRef      string
	ToRef        string
	UntaggedName string

	ReadableTagName *issues.Pattern
	// IgnoreCommits is nil when no commits are ignored.
	IgnoreCommits *issues.Pattern

	DateFormat string
	Location   *time.Location

	NoIssueName            string
	RemoveIssueFromMessage bool

	IssuePatterns []issues.IssuePattern
	LabelPatterns []issues.LabelPattern

	GitHub GitHubConfig
	Jira   JiraConfig
	Cache  CacheConfig

	GitBackend   string
	Template     string
	OutputFormat string
	// Workers bounds how many tags are extracted concurrently.
	Workers int
}

// Dir returns the default configuration directory, ~/.config/changelog.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "changelog")
	}
	return filepath.Join(home, ".config", "changelog")
}

// SetDefaults registers the default of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("repo", ".")
	v.SetDefault("from_ref", "")
	v.SetDefault("to_ref", "HEAD")
	v.SetDefault("untagged_name", DefaultUntaggedName)
	v.SetDefault("readable_tag_name", DefaultReadableTagName)
	v.SetDefault("ignore_commits_pattern", DefaultIgnoreCommits)
	v.SetDefault("date_format", DefaultDateFormat)
	v.SetDefault("time_zone", DefaultTimeZone)
	v.SetDefault("no_issue_name", DefaultNoIssueName)
	v.SetDefault("remove_issue_from_message", true)
	v.SetDefault("issues", []map[string]any{})
	v.SetDefault("labels", []map[string]any{})

	v.SetDefault("github.enabled", false)
	v.SetDefault("github.repo", "")
	v.SetDefault("github.name", DefaultGitHubName)
	v.SetDefault("github.pattern", DefaultGitHubPattern)

	v.SetDefault("jira.server", "")
	v.SetDefault("jira.username", "")
	v.SetDefault("jira.password", "")
	v.SetDefault("jira.name", DefaultJiraName)
	v.SetDefault("jira.pattern", DefaultJiraPattern)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.db_path", filepath.Join(Dir(), "cache.db"))
	v.SetDefault("cache.ttl", DefaultCacheTTL.String())

	v.SetDefault("git.backend", BackendCLI)
	v.SetDefault("template", "")
	v.SetDefault("output.format", FormatMarkdown)
	v.SetDefault("workers", DefaultWorkers)
}

// BindEnv makes every key overridable through CHANGELOG_* environment
// variables, e.g. CHANGELOG_GIT_BACKEND for git.backend.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix("CHANGELOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load unmarshals v and validates the result. Every failure wraps
// issues.ErrConfiguration.
func Load(v *viper.Viper) (*Settings, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", issues.ErrConfiguration, err)
	}
	return cfg.Compile()
}

// Compile validates c and compiles its patterns.
func (c Config) Compile() (*Settings, error) {
	s := &Settings{
		Repo:                   c.Repo,
		FromRef:                c.FromRef,
		ToRef:                  c.ToRef,
		UntaggedName:           c.UntaggedName,
		DateFormat:             c.DateFormat,
		NoIssueName:            c.NoIssueName,
		RemoveIssueFromMessage: c.RemoveIssueFromMessage,
		GitHub:                 c.GitHub,
		Jira:                   c.Jira,
		Cache:                  c.Cache,
		GitBackend:             strings.ToLower(c.Git.Backend),
		Template:               expandHome(c.Template),
		OutputFormat:           strings.ToLower(c.Output.Format),
		Workers:                c.Workers,
	}
	if s.Repo == "" {
		s.Repo = "."
	}
	if s.ToRef == "" {
		s.ToRef = "HEAD"
	}
	if s.DateFormat == "" {
		s.DateFormat = DefaultDateFormat
	}
	if s.Workers < 1 {
		s.Workers = 1
	}
	s.Cache.DBPath = expandHome(s.Cache.DBPath)
	s.Jira.Server = strings.TrimRight(s.Jira.Server, "/")

	var err error
	if s.ReadableTagName, err = issues.Compile(c.ReadableTagName); err != nil {
		return nil, fmt.Errorf("readable_tag_name: %w", err)
	}
	if c.IgnoreCommitsPattern != "" {
		if s.IgnoreCommits, err = issues.Compile(c.IgnoreCommitsPattern); err != nil {
			return nil, fmt.Errorf("ignore_commits_pattern: %w", err)
		}
	}

	tz := c.TimeZone
	if tz == "" {
		tz = DefaultTimeZone
	}
	if s.Location, err = time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("%w: time_zone %q: %v", issues.ErrConfiguration, tz, err)
	}

	if s.IssuePatterns, err = c.issuePatterns(); err != nil {
		return nil, err
	}
	for i, lc := range c.Labels {
		if lc.Name == "" {
			return nil, fmt.Errorf("%w: labels[%d]: name is required", issues.ErrConfiguration, i)
		}
		p, err := issues.Compile(lc.Pattern)
		if err != nil {
			return nil, fmt.Errorf("labels[%d]: %w", i, err)
		}
		s.LabelPatterns = append(s.LabelPatterns, issues.LabelPattern{Name: lc.Name, Pattern: p})
	}

	switch s.GitBackend {
	case BackendCLI, BackendGoGit:
	default:
		return nil, fmt.Errorf("%w: unknown git.backend %q (use: cli, go-git)", issues.ErrConfiguration, c.Git.Backend)
	}
	switch s.OutputFormat {
	case FormatMarkdown, FormatJSON, FormatYAML:
	default:
		return nil, fmt.Errorf("%w: unknown output.format %q (use: markdown, json, yaml)", issues.ErrConfiguration, c.Output.Format)
	}
	return s, nil
}

// issuePatterns returns the custom patterns, then GitHub when enabled, then
// Jira when a server is configured.
func (c Config) issuePatterns() ([]issues.IssuePattern, error) {
	var out []issues.IssuePattern
	for i, ic := range c.Issues {
		if ic.Name == "" {
			return nil, fmt.Errorf("%w: issues[%d]: name is required", issues.ErrConfiguration, i)
		}
		kind, err := issues.ParseKind(ic.Kind)
		if err != nil {
			return nil, fmt.Errorf("issues[%d]: %w", i, err)
		}
		p, err := issues.Compile(ic.Pattern)
		if err != nil {
			return nil, fmt.Errorf("issues[%d]: %w", i, err)
		}
		out = append(out, issues.IssuePattern{Name: ic.Name, Pattern: p, Kind: kind, Link: ic.Link})
	}

	if c.GitHub.Enabled {
		p, err := issues.Compile(c.GitHub.Pattern)
		if err != nil {
			return nil, fmt.Errorf("github.pattern: %w", err)
		}
		link := ""
		if c.GitHub.Repo != "" {
			link = "https://github.com/" + c.GitHub.Repo + "/issues/${PATTERN_GROUP_1}"
		}
		out = append(out, issues.IssuePattern{Name: c.GitHub.Name, Pattern: p, Kind: issues.KindGitHub, Link: link})
	}

	if server := strings.TrimRight(c.Jira.Server, "/"); server != "" {
		p, err := issues.Compile(c.Jira.Pattern)
		if err != nil {
			return nil, fmt.Errorf("jira.pattern: %w", err)
		}
		out = append(out, issues.IssuePattern{Name: c.Jira.Name, Pattern: p, Kind: issues.KindJira, Link: server + "/browse/${PATTERN_GROUP}"})
	}
	return out, nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
