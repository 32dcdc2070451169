package git

import (
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Issue is a GitHub issue or pull request as reported by `gh issue view`.
type Issue struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	URL    string `json:"url"`
}

// GitHubClient wraps the gh CLI for GitHub metadata.
type GitHubClient interface {
	// Issue returns nil when the repository has no such issue.
	Issue(owner, repo string, number int) (*Issue, error)
}

// RealGitHubClient implements GitHubClient using the gh CLI.
type RealGitHubClient struct{}

// NewGitHubClient returns a new RealGitHubClient.
func NewGitHubClient() *RealGitHubClient {
	return &RealGitHubClient{}
}

// errGHNotFound marks gh failures caused by a missing issue.
type errGHNotFound struct{ msg string }

func (e *errGHNotFound) Error() string { return e.msg }

func ghCmd(args ...string) (string, error) {
	out, err := exec.Command("gh", args...).Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			stderr := strings.TrimSpace(string(exitErr.Stderr))
			msg := fmt.Sprintf("gh %s: %s", strings.Join(args, " "), stderr)
			if isNotFound(stderr) {
				return "", &errGHNotFound{msg: msg}
			}
			return "", errors.New(msg)
		}
		return "", fmt.Errorf("gh %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// isNotFound matches only gh's missing-issue message. A missing repository or
// a generic HTTP 404 is a real failure and must stay visible.
func isNotFound(stderr string) bool {
	return strings.Contains(strings.ToLower(stderr), "could not resolve to an issue")
}

func (c *RealGitHubClient) Issue(owner, repo string, number int) (*Issue, error) {
	out, err := ghCmd("issue", "view", fmt.Sprint(number),
		"--repo", fmt.Sprintf("%s/%s", owner, repo),
		"--json", "number,title,url",
	)
	if err != nil {
		var nf *errGHNotFound
		if errors.As(err, &nf) {
			return nil, nil
		}
		return nil, err
	}
	return parseIssue(out)
}

func parseIssue(out string) (*Issue, error) {
	var issue Issue
	if err := json.Unmarshal([]byte(out), &issue); err != nil {
		return nil, fmt.Errorf("parse issue: %w", err)
	}
	return &issue, nil
}
