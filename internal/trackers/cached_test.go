package trackers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/changelog/internal/issues"
	"github.com/joescharf/changelog/internal/models"
)

// memCache implements store.Cache in memory.
type memCache struct {
	entries map[string]*models.CachedIssue
	getErr  error
	putErr  error
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]*models.CachedIssue)}
}

func (m *memCache) GetIssue(_ context.Context, kind, issueID string) (*models.CachedIssue, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.entries[kind+"/"+issueID], nil
}

func (m *memCache) PutIssue(_ context.Context, issue *models.CachedIssue) error {
	if m.putErr != nil {
		return m.putErr
	}
	cp := *issue
	m.entries[issue.Kind+"/"+issue.IssueID] = &cp
	return nil
}

func (m *memCache) Stats(context.Context) ([]models.CacheStat, error) { return nil, nil }
func (m *memCache) Clear(context.Context, string) (int64, error)      { return 0, nil }
func (m *memCache) Migrate(context.Context) error                     { return nil }
func (m *memCache) Close() error                                      { return nil }

type countingTracker struct {
	answer *issues.TrackerIssue
	err    error
	calls  int
}

func (c *countingTracker) Lookup(context.Context, string) (*issues.TrackerIssue, error) {
	c.calls++
	return c.answer, c.err
}

func TestCached_HitWithinTTL(t *testing.T) {
	next := &countingTracker{answer: &issues.TrackerIssue{Title: "T", Link: "L"}}
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := &Cached{Kind: issues.KindJira, Next: next, Cache: newMemCache(), TTL: time.Hour, now: func() time.Time { return now }}

	for range 3 {
		got, err := c.Lookup(context.Background(), "JIR-1")
		require.NoError(t, err)
		assert.Equal(t, "T", got.Title)
	}
	assert.Equal(t, 1, next.calls)

	now = now.Add(2 * time.Hour)
	_, err := c.Lookup(context.Background(), "JIR-1")
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls, "expired entries are refreshed")
}

func TestCached_NotFoundIsCached(t *testing.T) {
	next := &countingTracker{}
	c := &Cached{Kind: issues.KindGitHub, Next: next, Cache: newMemCache(), TTL: time.Hour}

	for range 2 {
		got, err := c.Lookup(context.Background(), "#9")
		require.NoError(t, err)
		assert.Nil(t, got)
	}
	assert.Equal(t, 1, next.calls)
}

func TestCached_ErrorsAreNotCached(t *testing.T) {
	next := &countingTracker{err: errors.New("unreachable")}
	cache := newMemCache()
	c := &Cached{Kind: issues.KindJira, Next: next, Cache: cache, TTL: time.Hour}

	_, err := c.Lookup(context.Background(), "JIR-1")
	require.Error(t, err)
	assert.Empty(t, cache.entries)
}

func TestCached_CacheFailuresFallThrough(t *testing.T) {
	next := &countingTracker{answer: &issues.TrackerIssue{Title: "T"}}
	cache := newMemCache()
	cache.getErr = errors.New("disk I/O error")
	cache.putErr = errors.New("disk I/O error")
	c := &Cached{Kind: issues.KindJira, Next: next, Cache: cache, TTL: time.Hour}

	got, err := c.Lookup(context.Background(), "JIR-1")
	require.NoError(t, err)
	assert.Equal(t, "T", got.Title)
}
