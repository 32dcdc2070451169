// Package trackers adapts issue tracker clients to issues.Tracker.
package trackers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/joescharf/changelog/internal/config"
	"github.com/joescharf/changelog/internal/git"
	"github.com/joescharf/changelog/internal/issues"
	"github.com/joescharf/changelog/internal/jira"
	"github.com/joescharf/changelog/internal/store"
)

// GitHub resolves "#123"-style ids against one repository.
type GitHub struct {
	Client git.GitHubClient
	Owner  string
	Repo   string
}

func (g *GitHub) Lookup(_ context.Context, id string) (*issues.TrackerIssue, error) {
	number, err := strconv.Atoi(strings.TrimLeft(id, "#"))
	if err != nil || number <= 0 {
		return nil, nil
	}
	issue, err := g.Client.Issue(g.Owner, g.Repo, number)
	if err != nil || issue == nil {
		return nil, err
	}
	return &issues.TrackerIssue{Title: issue.Title, Link: issue.URL}, nil
}

// Jira resolves issue keys through the REST API.
type Jira struct {
	Client *jira.Client
}

func (j *Jira) Lookup(ctx context.Context, id string) (*issues.TrackerIssue, error) {
	issue, err := j.Client.Issue(ctx, id)
	if err != nil || issue == nil {
		return nil, err
	}
	return &issues.TrackerIssue{Title: issue.Summary, Link: issue.Link}, nil
}

// Deps are the collaborators Build wires trackers from. Nil fields get
// real implementations.
type Deps struct {
	Git        git.Client
	GitHub     git.GitHubClient
	Cache      store.Cache
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Build returns the trackers enabled in s, each wrapped in the persistent
// cache when deps.Cache is set.
func Build(s *config.Settings, deps Deps) (issues.Trackers, error) {
	out := issues.Trackers{}

	if s.GitHub.Enabled {
		gh := deps.GitHub
		if gh == nil {
			gh = git.NewGitHubClient()
		}
		owner, repo, err := githubRepo(s, deps.Git)
		if err != nil {
			return nil, err
		}
		out[issues.KindGitHub] = wrap(issues.KindGitHub, &GitHub{Client: gh, Owner: owner, Repo: repo}, s, deps)
	}

	if s.Jira.Server != "" {
		var opts []jira.Option
		if s.Jira.Username != "" {
			opts = append(opts, jira.WithBasicAuth(s.Jira.Username, s.Jira.Password))
		}
		if deps.HTTPClient != nil {
			opts = append(opts, jira.WithHTTPClient(deps.HTTPClient))
		}
		out[issues.KindJira] = wrap(issues.KindJira, &Jira{Client: jira.NewClient(s.Jira.Server, opts...)}, s, deps)
	}

	return out, nil
}

func wrap(kind issues.Kind, t issues.Tracker, s *config.Settings, deps Deps) issues.Tracker {
	if deps.Cache == nil || !s.Cache.Enabled {
		return t
	}
	return &Cached{Kind: kind, Next: t, Cache: deps.Cache, TTL: s.Cache.TTL, Logger: deps.Logger}
}

// githubRepo returns github.repo, or the owner and repo of the origin remote.
func githubRepo(s *config.Settings, gc git.Client) (string, string, error) {
	if s.GitHub.Repo != "" {
		owner, repo, ok := strings.Cut(s.GitHub.Repo, "/")
		if !ok || owner == "" || repo == "" {
			return "", "", fmt.Errorf("%w: github.repo %q is not owner/repo", issues.ErrConfiguration, s.GitHub.Repo)
		}
		return owner, repo, nil
	}

	if gc == nil {
		gc = git.NewClient()
	}
	remote, err := gc.RemoteURL(s.Repo)
	if err != nil {
		return "", "", err
	}
	if remote == "" {
		return "", "", fmt.Errorf("%w: github.enabled needs github.repo or an origin remote", issues.ErrConfiguration)
	}
	owner, repo, err := git.ExtractOwnerRepo(remote)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", issues.ErrConfiguration, err)
	}
	return owner, repo, nil
}
