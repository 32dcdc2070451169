package changelog

import (
	"strings"

	"github.com/joescharf/changelog/internal/models"
)

// TagSummary is the per-release overview listed by the tags surfaces.
type TagSummary struct {
	Name    string `json:"name"`
	Commits int    `json:"commits"`
	Authors int    `json:"authors"`
	Issues  int    `json:"issues"`
	Latest  string `json:"latest,omitempty"`
}

// IssueSummary is one issue without its commit and author lists.
type IssueSummary struct {
	Bucket  string   `json:"bucket"`
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Link    string   `json:"link,omitempty"`
	Labels  []string `json:"labels,omitempty"`
	Commits int      `json:"commits"`
}

// TagSummaries lists the tags of cl in order.
func TagSummaries(cl *models.Changelog) []TagSummary {
	out := make([]TagSummary, len(cl.Tags))
	for i, t := range cl.Tags {
		out[i] = TagSummary{
			Name:    t.Name,
			Commits: len(t.Commits),
			Authors: len(t.Authors),
			Issues:  len(t.Issues),
		}
		if c := t.Commit(); c != nil {
			out[i].Latest = c.CommitTime
		}
	}
	return out
}

// IssueSummaries lists the issues of cl, only those of bucket when it is
// set. Buckets compare case-insensitively.
func IssueSummaries(cl *models.Changelog, bucket string) []IssueSummary {
	out := []IssueSummary{}
	for _, is := range cl.Issues {
		if bucket != "" && !strings.EqualFold(is.Name, bucket) {
			continue
		}
		out = append(out, IssueSummary{
			Bucket:  is.Name,
			ID:      is.ID,
			Title:   is.Title,
			Link:    is.Link,
			Labels:  is.Labels,
			Commits: len(is.Commits),
		})
	}
	return out
}

// FindTag returns the tag of cl with the given display name, or nil.
func FindTag(cl *models.Changelog, name string) *models.Tag {
	for _, t := range cl.Tags {
		if t.Name == name {
			return t
		}
	}
	return nil
}
