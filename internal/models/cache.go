package models

import "time"

// CachedIssue is a persisted tracker answer. Found is false when the tracker
// reported that the id does not exist.
type CachedIssue struct {
	ID        string
	Kind      string
	IssueID   string
	Title     string
	Link      string
	Found     bool
	FetchedAt time.Time
}

// CacheStat summarizes the cached entries of one tracker kind.
type CacheStat struct {
	Kind    string
	Entries int
	Oldest  time.Time
	Newest  time.Time
}
