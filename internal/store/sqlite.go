package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/joescharf/changelog/internal/models"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements Cache using modernc.org/sqlite (pure Go, no CGO).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only supports one concurrent writer; tag passes may look up
	// issues in parallel.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// boolToInt converts a bool to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// newULID generates a new ULID string.
func newULID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropy, 0)).String()
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()

		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetIssue(ctx context.Context, kind, issueID string) (*models.CachedIssue, error) {
	issue := &models.CachedIssue{}
	var found int
	var fetchedAt int64

	err := s.db.QueryRowContext(ctx,
		`SELECT id, kind, issue_id, title, link, found, fetched_at
		FROM tracker_issues WHERE kind = ? AND issue_id = ?`, kind, issueID,
	).Scan(&issue.ID, &issue.Kind, &issue.IssueID, &issue.Title, &issue.Link, &found, &fetchedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cached issue: %w", err)
	}

	issue.Found = found != 0
	issue.FetchedAt = time.UnixMilli(fetchedAt).UTC()
	return issue, nil
}

func (s *SQLiteStore) PutIssue(ctx context.Context, issue *models.CachedIssue) error {
	if issue.ID == "" {
		issue.ID = newULID()
	}
	if issue.FetchedAt.IsZero() {
		issue.FetchedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tracker_issues (id, kind, issue_id, title, link, found, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(kind, issue_id) DO UPDATE SET
			title = excluded.title,
			link = excluded.link,
			found = excluded.found,
			fetched_at = excluded.fetched_at`,
		issue.ID, issue.Kind, issue.IssueID, issue.Title, issue.Link,
		boolToInt(issue.Found), issue.FetchedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("put cached issue: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Stats(ctx context.Context) ([]models.CacheStat, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, COUNT(*), MIN(fetched_at), MAX(fetched_at)
		FROM tracker_issues GROUP BY kind ORDER BY kind`)
	if err != nil {
		return nil, fmt.Errorf("cache stats: %w", err)
	}
	defer rows.Close()

	var stats []models.CacheStat
	for rows.Next() {
		var st models.CacheStat
		var oldest, newest int64
		if err := rows.Scan(&st.Kind, &st.Entries, &oldest, &newest); err != nil {
			return nil, fmt.Errorf("scan cache stats: %w", err)
		}
		st.Oldest = time.UnixMilli(oldest).UTC()
		st.Newest = time.UnixMilli(newest).UTC()
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

func (s *SQLiteStore) Clear(ctx context.Context, kind string) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if kind == "" {
		res, err = s.db.ExecContext(ctx, "DELETE FROM tracker_issues")
	} else {
		res, err = s.db.ExecContext(ctx, "DELETE FROM tracker_issues WHERE kind = ?", kind)
	}
	if err != nil {
		return 0, fmt.Errorf("clear cache: %w", err)
	}
	return res.RowsAffected()
}
