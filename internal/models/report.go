package models

// Commit is the report view of a GitCommit.
type Commit struct {
	AuthorName       string `json:"authorName" yaml:"authorName"`
	AuthorEmail      string `json:"authorEmail" yaml:"authorEmail"`
	CommitTime       string `json:"commitTime" yaml:"commitTime"`
	CommitTimeMillis int64  `json:"commitTimeLong" yaml:"commitTimeLong"`
	Message          string `json:"message" yaml:"message"`
	Hash             string `json:"hash" yaml:"hash"`
}

// Author groups the commits of one (email, name) identity.
type Author struct {
	Name    string    `json:"authorName" yaml:"authorName"`
	Email   string    `json:"authorEmail" yaml:"authorEmail"`
	Commits []*Commit `json:"commits" yaml:"commits"`
}

// Issue is a resolved issue together with its filtered commits and authors.
// NoIssue marks the bucket of commits that reference no issue.
type Issue struct {
	Name    string    `json:"name" yaml:"name"`
	Title   string    `json:"title" yaml:"title"`
	ID      string    `json:"issue" yaml:"issue"`
	Link    string    `json:"link" yaml:"link"`
	Labels  []string  `json:"labels" yaml:"labels"`
	NoIssue bool      `json:"noIssue,omitempty" yaml:"noIssue,omitempty"`
	Commits []*Commit `json:"commits" yaml:"commits"`
	Authors []*Author `json:"authors" yaml:"authors"`
}

// IssueType collects the issues sharing one bucket name (e.g. "Bugs").
type IssueType struct {
	Name   string   `json:"name" yaml:"name"`
	Issues []*Issue `json:"issues" yaml:"issues"`
}

// IssueLabel collects the issues carrying one label.
type IssueLabel struct {
	Name   string   `json:"name" yaml:"name"`
	Issues []*Issue `json:"issues" yaml:"issues"`
}

// Tag is the report view of one release.
type Tag struct {
	Name        string        `json:"name" yaml:"name"`
	Commits     []*Commit     `json:"commits" yaml:"commits"`
	Authors     []*Author     `json:"authors" yaml:"authors"`
	Issues      []*Issue      `json:"issues" yaml:"issues"`
	IssueTypes  []*IssueType  `json:"issueTypes" yaml:"issueTypes"`
	IssueLabels []*IssueLabel `json:"issueLabels" yaml:"issueLabels"`
}

// Commit returns the newest commit of the tag.
func (t *Tag) Commit() *Commit {
	if len(t.Commits) == 0 {
		return nil
	}
	return t.Commits[0]
}

// Changelog is the whole-history report.
type Changelog struct {
	Commits     []*Commit     `json:"commits" yaml:"commits"`
	Tags        []*Tag        `json:"tags" yaml:"tags"`
	Authors     []*Author     `json:"authors" yaml:"authors"`
	Issues      []*Issue      `json:"issues" yaml:"issues"`
	IssueTypes  []*IssueType  `json:"issueTypes" yaml:"issueTypes"`
	IssueLabels []*IssueLabel `json:"issueLabels" yaml:"issueLabels"`
}
