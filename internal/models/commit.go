package models

import "time"

// GitCommit is a single commit as supplied by the history provider.
type GitCommit struct {
	Hash        string
	AuthorName  string
	AuthorEmail string
	CommitTime  time.Time
	Message     string
}

// GitTag is a release boundary and the commits that belong to it, newest first.
// Name is the raw ref (e.g. "refs/tags/v1.2.0").
type GitTag struct {
	Name    string
	Commits []*GitCommit
}
