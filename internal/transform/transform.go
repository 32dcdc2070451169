// Package transform builds the nested report model from raw commits and
// the issues and labels found in them.
package transform

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/joescharf/changelog/internal/config"
	"github.com/joescharf/changelog/internal/issues"
	"github.com/joescharf/changelog/internal/models"
)

// Transformer converts git history into report views. Every extraction pass
// owns its state, so tag passes run concurrently.
type Transformer struct {
	settings  *config.Settings
	extractor *issues.Extractor
}

// New returns a Transformer for s. trackers may be nil, in which case every
// match resolves as a custom issue.
func New(s *config.Settings, trackers issues.Trackers, logger *slog.Logger) *Transformer {
	return &Transformer{
		settings: s,
		extractor: &issues.Extractor{
			IssuePatterns: s.IssuePatterns,
			LabelPatterns: s.LabelPatterns,
			Trackers:      trackers,
			NoIssueName:   s.NoIssueName,
			Logger:        logger,
		},
	}
}

// Extract runs one issue and label pass over commits.
func (t *Transformer) Extract(ctx context.Context, commits []*models.GitCommit) *issues.Pass {
	return t.extractor.Extract(ctx, commits)
}

// ToTags builds one view per tag, each from its own extraction pass. Tags
// left without commits or authors after filtering are dropped. Output order
// and diagnostics follow the input order regardless of settings.Workers.
func (t *Transformer) ToTags(ctx context.Context, tags []models.GitTag) ([]*models.Tag, []issues.Diagnostic, error) {
	type tagResult struct {
		view  *models.Tag
		diags []issues.Diagnostic
	}
	results := make([]tagResult, len(tags))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(t.settings.Workers, 1))
	for i, gt := range tags {
		g.Go(func() error {
			view, diags, err := t.toTag(gctx, gt)
			if err != nil {
				return err
			}
			results[i] = tagResult{view: view, diags: diags}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var (
		out   []*models.Tag
		diags []issues.Diagnostic
	)
	for _, r := range results {
		diags = append(diags, r.diags...)
		if r.view != nil {
			out = append(out, r.view)
		}
	}
	return out, diags, nil
}

// toTag returns a nil view when the tag has nothing left after filtering.
func (t *Transformer) toTag(ctx context.Context, gt models.GitTag) (*models.Tag, []issues.Diagnostic, error) {
	name, err := t.ReadableTagName(gt.Name)
	if err != nil {
		return nil, nil, err
	}

	pass := t.Extract(ctx, gt.Commits)
	tag := &models.Tag{
		Name:    name,
		Commits: t.ToCommits(gt.Commits),
		Authors: t.ToAuthors(gt.Commits),
	}
	if len(tag.Commits) == 0 || len(tag.Authors) == 0 {
		return nil, pass.Diagnostics, nil
	}

	views := t.issueViews(pass.Issues)
	tag.Issues = flatIssues(views)
	tag.IssueTypes = issueTypes(views)
	tag.IssueLabels = issueLabels(views)
	return tag, pass.Diagnostics, nil
}

// ToChangelog builds the whole-history model: tags as in ToTags plus one
// pass over every commit of every tag.
func (t *Transformer) ToChangelog(ctx context.Context, tags []models.GitTag) (*models.Changelog, []issues.Diagnostic, error) {
	tagViews, diags, err := t.ToTags(ctx, tags)
	if err != nil {
		return nil, nil, err
	}

	var all []*models.GitCommit
	for _, gt := range tags {
		all = append(all, gt.Commits...)
	}
	pass := t.Extract(ctx, all)
	diags = append(diags, pass.Diagnostics...)

	views := t.issueViews(pass.Issues)
	return &models.Changelog{
		Commits:     t.ToCommits(all),
		Tags:        tagViews,
		Authors:     t.ToAuthors(all),
		Issues:      flatIssues(views),
		IssueTypes:  issueTypes(views),
		IssueLabels: issueLabels(views),
	}, diags, nil
}

// ToIssues returns the issues that keep at least one commit after
// filtering. The no-issue record is not an issue and is left out.
func (t *Transformer) ToIssues(resolved []*issues.ResolvedIssue) []*models.Issue {
	return flatIssues(t.issueViews(resolved))
}

// ToIssueTypes groups the issues with commits by bucket name, sorted by
// name. The no-issue record forms its own bucket.
func (t *Transformer) ToIssueTypes(resolved []*issues.ResolvedIssue) []*models.IssueType {
	return issueTypes(t.issueViews(resolved))
}

// ToIssueLabels groups the issues with commits under each of their labels,
// sorted by label name.
func (t *Transformer) ToIssueLabels(resolved []*issues.ResolvedIssue) []*models.IssueLabel {
	return issueLabels(t.issueViews(resolved))
}

// ReadableTagName returns capture group 1 of the readable_tag_name pattern
// applied to raw, or raw itself when the pattern does not match. A matching
// pattern without groups is a configuration error.
func (t *Transformer) ReadableTagName(raw string) (string, error) {
	p := t.settings.ReadableTagName
	if p == nil {
		return raw, nil
	}
	m, ok := p.Find(raw)
	if !ok {
		return raw, nil
	}
	if len(m.Groups) < 2 {
		return "", fmt.Errorf("%w: readable_tag_name %q matched %q but defines no group", issues.ErrConfiguration, p.String(), raw)
	}
	return m.Groups[1], nil
}

// issueViews maps the resolved issues that keep commits after filtering.
// Input order is kept.
func (t *Transformer) issueViews(resolved []*issues.ResolvedIssue) []*models.Issue {
	var out []*models.Issue
	for _, r := range resolved {
		commits := t.ToCommits(r.Commits)
		if len(commits) == 0 {
			continue
		}
		out = append(out, &models.Issue{
			Name:    r.Name,
			Title:   r.Title,
			ID:      r.ID,
			Link:    r.Link,
			Labels:  append([]string(nil), r.Labels...),
			NoIssue: r.NoIssue,
			Commits: commits,
			Authors: t.ToAuthors(r.Commits),
		})
	}
	return out
}

func flatIssues(views []*models.Issue) []*models.Issue {
	var out []*models.Issue
	for _, v := range views {
		if !v.NoIssue {
			out = append(out, v)
		}
	}
	return out
}

func issueTypes(views []*models.Issue) []*models.IssueType {
	byName := make(map[string]*models.IssueType)
	var names []string
	for _, v := range views {
		it, ok := byName[v.Name]
		if !ok {
			it = &models.IssueType{Name: v.Name}
			byName[v.Name] = it
			names = append(names, v.Name)
		}
		it.Issues = append(it.Issues, v)
	}
	sort.Strings(names)

	out := make([]*models.IssueType, 0, len(names))
	for _, name := range names {
		out = append(out, byName[name])
	}
	return out
}

func issueLabels(views []*models.Issue) []*models.IssueLabel {
	byName := make(map[string]*models.IssueLabel)
	var names []string
	for _, v := range views {
		if v.NoIssue {
			continue
		}
		for _, label := range v.Labels {
			il, ok := byName[label]
			if !ok {
				il = &models.IssueLabel{Name: label}
				byName[label] = il
				names = append(names, label)
			}
			il.Issues = append(il.Issues, v)
		}
	}
	sort.Strings(names)

	out := make([]*models.IssueLabel, 0, len(names))
	for _, name := range names {
		out = append(out, byName[name])
	}
	return out
}
