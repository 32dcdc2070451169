// Package changelog runs the whole pipeline: history, extraction and
// aggregation.
package changelog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joescharf/changelog/internal/config"
	"github.com/joescharf/changelog/internal/git"
	"github.com/joescharf/changelog/internal/issues"
	"github.com/joescharf/changelog/internal/models"
	"github.com/joescharf/changelog/internal/transform"
)

// Options override the configured refs for one run. Empty fields keep the
// configured value.
type Options struct {
	FromRef string
	ToRef   string
}

// Result holds the outcome of one run.
type Result struct {
	Repo        string
	Tags        []models.GitTag
	Changelog   *models.Changelog
	Diagnostics []issues.Diagnostic
}

// Generate reads history from the repository in s and builds the changelog.
// Tracker failures are reported in Diagnostics; configuration errors abort.
func Generate(ctx context.Context, s *config.Settings, gc git.Client, trackers issues.Trackers, logger *slog.Logger, opts Options) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}

	root, err := gc.RepoRoot(s.Repo)
	if err != nil {
		return nil, fmt.Errorf("find repository: %w", err)
	}

	hist := git.HistoryOptions{FromRef: s.FromRef, ToRef: s.ToRef, UntaggedName: s.UntaggedName}
	if opts.FromRef != "" {
		hist.FromRef = opts.FromRef
	}
	if opts.ToRef != "" {
		hist.ToRef = opts.ToRef
	}
	if err := hist.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", issues.ErrConfiguration, err)
	}

	tags, err := gc.History(root, hist)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	logger.Debug("history loaded", "repo", root, "tags", len(tags), "from", hist.FromRef, "to", hist.ToRef)

	cl, diags, err := transform.New(s, trackers, logger).ToChangelog(ctx, tags)
	if err != nil {
		return nil, err
	}

	return &Result{
		Repo:        root,
		Tags:        tags,
		Changelog:   cl,
		Diagnostics: diags,
	}, nil
}
