package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/changelog/internal/config"
	"github.com/joescharf/changelog/internal/git"
	"github.com/joescharf/changelog/internal/issues"
	"github.com/joescharf/changelog/internal/output"
	"github.com/joescharf/changelog/internal/store"
	"github.com/joescharf/changelog/internal/trackers"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui         *output.UI
	logger     *slog.Logger
	trackCache store.Cache
	configErr  error

	verbose bool
	dryRun  bool
	logJSON bool
)

// localConfigNames are looked up in the working directory before the
// user config directory.
var localConfigNames = []string{".changelog.yaml", ".changelog.yml", ".changelog.toml"}

var rootCmd = &cobra.Command{
	Use:   "changelog",
	Short: "Generate changelogs from git history",
	Long: `changelog reads the commit history of a git repository, groups commits
by release tag, extracts issue references and labels from commit messages,
and renders a changelog.

Running bare 'changelog' is the same as 'changelog generate'.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		closeCache()
		stop()
		os.Exit(1)
	}
	closeCache()
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return generateRun(cmd)
	}
	addGenerateFlags(rootCmd)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would happen without making changes")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Write logs to stderr as JSON")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ./.changelog.yaml or ~/.config/changelog/config.yaml)")
}

func initConfig() {
	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if local := findLocalConfig(); local != "" {
		viper.SetConfigFile(local)
	} else {
		viper.AddConfigPath(config.Dir())
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	config.BindEnv(viper.GetViper())
	config.SetDefaults(viper.GetViper())

	configErr = readConfig(viper.GetViper())
}

// readConfig reads the selected config file. A missing file is fine and
// leaves the defaults; a file that exists but cannot be parsed is a
// configuration error.
func readConfig(v *viper.Viper) error {
	err := v.ReadInConfig()
	if err == nil {
		return nil
	}
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("%w: read config %s: %v", issues.ErrConfiguration, v.ConfigFileUsed(), err)
}

func findLocalConfig() string {
	for _, name := range localConfigNames {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
	ui.DryRun = dryRun

	logger = newLogger(ui, verbose, logJSON)
	slog.SetDefault(logger)

	// The tracker cache is opened lazily, only by commands that resolve
	// issues.
}

// newLogger returns a stderr logger: debug when verbose, warnings otherwise.
func newLogger(u *output.UI, verbose, asJSON bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelWarn}
	if verbose {
		opts.Level = slog.LevelDebug
	}
	if asJSON {
		return slog.New(slog.NewJSONHandler(u.ErrOut, opts))
	}
	return slog.New(slog.NewTextHandler(u.ErrOut, opts))
}

// loadSettings compiles the effective configuration, failing first on any
// error from reading the config file.
func loadSettings() (*config.Settings, error) {
	if configErr != nil {
		return nil, configErr
	}
	s, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	ui.VerboseLog("Repository: %s (%s..%s, backend %s)", s.Repo, s.FromRef, s.ToRef, s.GitBackend)
	return s, nil
}

// getCache returns the shared tracker cache, opening it on first call.
func getCache(ctx context.Context, s *config.Settings) (store.Cache, error) {
	if trackCache != nil {
		return trackCache, nil
	}

	c, err := store.NewSQLiteStore(s.Cache.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}

	if err := c.Migrate(ctx); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("migrate cache: %w", err)
	}

	trackCache = c
	return trackCache, nil
}

func closeCache() {
	if trackCache != nil {
		_ = trackCache.Close()
		trackCache = nil
	}
}

// pipeline builds the git backend and the issue trackers for s. An
// unusable cache only costs lookups, so it is reported and skipped.
func pipeline(ctx context.Context, s *config.Settings) (git.Client, issues.Trackers, error) {
	gc, err := git.NewBackend(s.GitBackend)
	if err != nil {
		return nil, nil, err
	}

	deps := trackers.Deps{Git: gc, Logger: logger}
	if s.Cache.Enabled && (s.GitHub.Enabled || s.Jira.Server != "") {
		c, err := getCache(ctx, s)
		if err != nil {
			ui.Warning("Tracker cache disabled: %v", err)
		} else {
			deps.Cache = c
		}
	}

	tr, err := trackers.Build(s, deps)
	if err != nil {
		return nil, nil, err
	}
	return gc, tr, nil
}
