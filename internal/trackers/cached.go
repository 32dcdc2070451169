package trackers

import (
	"context"
	"log/slog"
	"time"

	"github.com/joescharf/changelog/internal/issues"
	"github.com/joescharf/changelog/internal/models"
	"github.com/joescharf/changelog/internal/store"
)

// Cached is a read-through cache in front of a tracker. Answers, including
// "not found", are kept for TTL; failed lookups are never cached.
type Cached struct {
	Kind   issues.Kind
	Next   issues.Tracker
	Cache  store.Cache
	TTL    time.Duration
	Logger *slog.Logger

	now func() time.Time
}

func (c *Cached) Lookup(ctx context.Context, id string) (*issues.TrackerIssue, error) {
	now := c.clock()

	hit, err := c.Cache.GetIssue(ctx, string(c.Kind), id)
	if err != nil {
		c.logger().Warn("tracker cache read failed", "kind", string(c.Kind), "id", id, "error", err)
	}
	if hit != nil && (c.TTL <= 0 || now.Sub(hit.FetchedAt) < c.TTL) {
		if !hit.Found {
			return nil, nil
		}
		return &issues.TrackerIssue{Title: hit.Title, Link: hit.Link}, nil
	}

	found, err := c.Next.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	entry := &models.CachedIssue{Kind: string(c.Kind), IssueID: id, Found: found != nil, FetchedAt: now}
	if found != nil {
		entry.Title = found.Title
		entry.Link = found.Link
	}
	if err := c.Cache.PutIssue(ctx, entry); err != nil {
		c.logger().Warn("tracker cache write failed", "kind", string(c.Kind), "id", id, "error", err)
	}
	return found, nil
}

func (c *Cached) clock() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now().UTC()
}

func (c *Cached) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
