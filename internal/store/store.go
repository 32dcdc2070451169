package store

import (
	"context"

	"github.com/joescharf/changelog/internal/models"
)

// Cache defines the persistence interface for tracker lookups.
type Cache interface {
	// GetIssue returns nil when nothing is cached for kind and issueID.
	GetIssue(ctx context.Context, kind, issueID string) (*models.CachedIssue, error)
	// PutIssue inserts or replaces the entry for the issue's kind and id.
	PutIssue(ctx context.Context, issue *models.CachedIssue) error
	Stats(ctx context.Context) ([]models.CacheStat, error)
	// Clear deletes the entries of kind, or every entry when kind is empty.
	Clear(ctx context.Context, kind string) (int64, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
