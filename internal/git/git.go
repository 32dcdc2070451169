package git

import (
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joescharf/changelog/internal/models"
)

// HistoryOptions bounds a history walk.
type HistoryOptions struct {
	// FromRef is excluded along with everything reachable from it. Empty means
	// the walk runs to the root commit.
	FromRef string
	ToRef   string
	// UntaggedName names the group of commits newer than the newest tag.
	UntaggedName string
}

// ErrInvalidRef reports a ref that git would parse as an option.
var ErrInvalidRef = errors.New("invalid ref")

// Validate rejects an empty ToRef and any ref beginning with "-".
func (o HistoryOptions) Validate() error {
	if o.ToRef == "" {
		return fmt.Errorf("%w: to_ref is empty", ErrInvalidRef)
	}
	for _, ref := range []string{o.FromRef, o.ToRef} {
		if strings.HasPrefix(ref, "-") {
			return fmt.Errorf("%w: %q", ErrInvalidRef, ref)
		}
	}
	return nil
}

// Client defines the interface for reading repository history.
type Client interface {
	RepoRoot(path string) (string, error)
	RemoteURL(path string) (string, error)
	History(path string, opts HistoryOptions) ([]models.GitTag, error)
}

// RealClient implements Client using real git commands.
type RealClient struct{}

// NewClient returns a new RealClient.
func NewClient() *RealClient {
	return &RealClient{}
}

func gitCmd(path string, args ...string) (string, error) {
	fullArgs := append([]string{"-C", path}, args...)
	out, err := exec.Command("git", fullArgs...).Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("git %s: %s", strings.Join(args, " "), strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (c *RealClient) RepoRoot(path string) (string, error) {
	return gitCmd(path, "rev-parse", "--show-toplevel")
}

func (c *RealClient) RemoteURL(path string) (string, error) {
	out, err := gitCmd(path, "remote", "get-url", "origin")
	if err != nil {
		return "", nil // no remote is not an error
	}
	return out, nil
}

// logFormat separates fields with US and records with RS so that multi-line
// messages survive parsing.
const logFormat = "--format=%H%x1f%an%x1f%ae%x1f%ct%x1f%D%x1f%B%x1e"

// logArgs builds the git log invocation. Revisions follow --end-of-options so
// git never reads them as flags.
func logArgs(opts HistoryOptions) []string {
	args := []string{"log", "--date-order", logFormat, "--end-of-options", opts.ToRef}
	if opts.FromRef != "" {
		args = append(args, "^"+opts.FromRef)
	}
	return append(args, "--")
}

func (c *RealClient) History(path string, opts HistoryOptions) ([]models.GitTag, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	out, err := gitCmd(path, logArgs(opts)...)
	if err != nil {
		return nil, err
	}
	commits, err := ParseLog(out)
	if err != nil {
		return nil, err
	}
	return assignTags(commits, opts.UntaggedName), nil
}

// TaggedCommit is a commit and the short names of the tags pointing at it.
type TaggedCommit struct {
	Commit *models.GitCommit
	Tags   []string
}

// ParseLog parses output produced with logFormat, newest commit first.
func ParseLog(out string) ([]TaggedCommit, error) {
	var commits []TaggedCommit
	for _, record := range strings.Split(out, "\x1e") {
		record = strings.TrimLeft(record, "\n")
		if record == "" {
			continue
		}
		fields := strings.SplitN(record, "\x1f", 6)
		if len(fields) != 6 {
			return nil, fmt.Errorf("parse git log: malformed record %q", record)
		}
		secs, err := strconv.ParseInt(fields[3], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse git log: commit %s time: %w", fields[0], err)
		}
		commits = append(commits, TaggedCommit{
			Commit: &models.GitCommit{
				Hash:        fields[0],
				AuthorName:  fields[1],
				AuthorEmail: fields[2],
				CommitTime:  time.Unix(secs, 0).UTC(),
				Message:     strings.TrimSpace(fields[5]),
			},
			Tags: parseDecorations(fields[4]),
		})
	}
	return commits, nil
}

// parseDecorations returns the tag names in a %D decoration list such as
// "HEAD -> main, tag: v1.0.0, origin/main".
func parseDecorations(d string) []string {
	var tags []string
	for _, part := range strings.Split(d, ",") {
		part = strings.TrimSpace(part)
		if name, ok := strings.CutPrefix(part, "tag: "); ok {
			tags = append(tags, name)
		}
	}
	return tags
}

// assignTags walks commits newest first and files each under the nearest
// tag at or above it. Commits above the newest tag form an untagged group,
// dropped when empty. A commit with several tags is filed under the first
// in sorted order.
func assignTags(commits []TaggedCommit, untaggedName string) []models.GitTag {
	var out []models.GitTag
	current := models.GitTag{Name: untaggedName}
	for _, tc := range commits {
		if len(tc.Tags) > 0 {
			if len(current.Commits) > 0 {
				out = append(out, current)
			}
			names := append([]string(nil), tc.Tags...)
			sort.Strings(names)
			current = models.GitTag{Name: "refs/tags/" + names[0]}
		}
		current.Commits = append(current.Commits, tc.Commit)
	}
	if len(current.Commits) > 0 {
		out = append(out, current)
	}
	return out
}

// ExtractOwnerRepo parses a GitHub remote URL and returns owner/repo.
func ExtractOwnerRepo(remoteURL string) (owner, repo string, err error) {
	// Handle SSH: git@github.com:owner/repo.git
	if strings.HasPrefix(remoteURL, "git@") {
		parts := strings.SplitN(remoteURL, ":", 2)
		if len(parts) != 2 {
			return "", "", fmt.Errorf("cannot parse SSH remote: %s", remoteURL)
		}
		path := strings.TrimSuffix(parts[1], ".git")
		segments := strings.SplitN(path, "/", 2)
		if len(segments) != 2 {
			return "", "", fmt.Errorf("cannot parse owner/repo from: %s", remoteURL)
		}
		return segments[0], segments[1], nil
	}

	// Handle HTTPS: https://github.com/owner/repo.git
	trimmed := strings.TrimSuffix(remoteURL, ".git")
	trimmed = strings.TrimPrefix(trimmed, "https://github.com/")
	trimmed = strings.TrimPrefix(trimmed, "http://github.com/")
	segments := strings.SplitN(trimmed, "/", 2)
	if len(segments) != 2 || segments[0] == "" || segments[1] == "" {
		return "", "", fmt.Errorf("cannot parse owner/repo from: %s", remoteURL)
	}
	return segments[0], segments[1], nil
}

// NewBackend returns the Client for a git.backend setting: "cli" or "go-git".
func NewBackend(name string) (Client, error) {
	switch name {
	case "", "cli":
		return NewClient(), nil
	case "go-git":
		return NewGoGitClient(), nil
	default:
		return nil, fmt.Errorf("unknown git backend %q", name)
	}
}
