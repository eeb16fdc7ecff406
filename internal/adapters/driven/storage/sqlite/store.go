package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/recall/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
)

// summaryDBName is the summary database file inside the data directory.
const summaryDBName = "summaries.db"

// DefaultBusyTimeout is how long SQLite itself waits on a locked database.
const DefaultBusyTimeout = 5 * time.Second

// Store is a SQLite-based storage for session summaries.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.recall/data/summaries.db.
func NewStore(dataDir string) (*Store, error) {
	dataDir, err := ResolveDataDir(dataDir)
	if err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dataDir, summaryDBName)
	db, err := Open(dbPath, DefaultBusyTimeout)
	if err != nil {
		return nil, err
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := Migrate(db, migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// ResolveDataDir returns dataDir, or ~/.recall/data when empty, and makes
// sure the directory exists.
func ResolveDataDir(dataDir string) (string, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".recall", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return "", fmt.Errorf("creating data directory: %w", err)
	}
	return dataDir, nil
}

// Open opens a SQLite database in WAL mode.
// Other adapters that keep their own database file share this setup.
func Open(path string, busyTimeout time.Duration) (*sql.DB, error) {
	// Open database with WAL mode for better concurrency
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)", path, busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: opening database: %v", domain.ErrStorageUnavailable, err)
	}
	return db, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// SummaryStore returns a SummaryStore interface backed by this store.
func (s *Store) SummaryStore() driven.SummaryStore {
	return &summaryStore{store: s}
}

// Migrate runs all pending migrations found in fsys.
// Files are named NNN_description.up.sql and applied in order; each one
// runs in a transaction together with its schema_migrations row.
func Migrate(db *sql.DB, fsys fs.FS) error {
	// Ensure schema_migrations table exists
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if err := applyMigration(db, version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

func applyMigration(db *sql.DB, version int, content string) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(content); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// ==================== Summary Store ====================

// summaryStore implements driven.SummaryStore.
type summaryStore struct {
	store *Store
}

var _ driven.SummaryStore = (*summaryStore)(nil)

// Save stores or updates a summary record.
func (s *summaryStore) Save(ctx context.Context, record domain.SummaryRecord) error {
	if record.SessionID == "" {
		return fmt.Errorf("%w: session id is required", domain.ErrInvalidInput)
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = time.Now()
	}
	record.UpdatedAt = record.UpdatedAt.UTC()

	keywords := record.RawKeywords
	if len(record.Keywords) > 0 || keywords == "" {
		keywords = domain.EncodeKeywords(domain.CleanKeywords(record.Keywords))
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO session_summaries (owner_id, session_id, session_date, summary, key_sentence, keywords, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(owner_id, session_id) DO UPDATE SET
			session_date = excluded.session_date,
			summary = excluded.summary,
			key_sentence = excluded.key_sentence,
			keywords = excluded.keywords,
			updated_at = excluded.updated_at
	`, record.OwnerID, record.SessionID, record.SessionDate.String(), record.Summary,
		record.KeySentence, keywords, record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving summary: %w", wrapBusy(err))
	}
	return nil
}

// Get retrieves the summary of a session.
// Keywords are parsed when the stored payload is well formed; the raw
// payload is always returned in RawKeywords.
func (s *summaryStore) Get(ctx context.Context, ownerID int64, sessionID string) (*domain.SummaryRecord, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT owner_id, session_id, session_date, summary, key_sentence, keywords, updated_at
		FROM session_summaries WHERE owner_id = ? AND session_id = ?
	`, ownerID, sessionID)

	rec, err := scanSummary(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning summary: %w", wrapBusy(err))
	}
	return rec, nil
}

// Delete removes a summary record.
func (s *summaryStore) Delete(ctx context.Context, ownerID int64, sessionID string) error {
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM session_summaries WHERE owner_id = ? AND session_id = ?", ownerID, sessionID)
	if err != nil {
		return fmt.Errorf("deleting summary: %w", wrapBusy(err))
	}
	return nil
}

// List returns every summary of an owner, most recently updated first.
func (s *summaryStore) List(ctx context.Context, ownerID int64) ([]domain.SummaryRecord, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT owner_id, session_id, session_date, summary, key_sentence, keywords, updated_at
		FROM session_summaries WHERE owner_id = ?
		ORDER BY updated_at DESC, session_id
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("querying summaries: %w", wrapBusy(err))
	}
	defer rows.Close()

	records := make([]domain.SummaryRecord, 0)
	for rows.Next() {
		rec, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning summary: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSummary(row scanner) (*domain.SummaryRecord, error) {
	var rec domain.SummaryRecord
	var date string
	var updatedAt sql.NullTime
	if err := row.Scan(&rec.OwnerID, &rec.SessionID, &date, &rec.Summary,
		&rec.KeySentence, &rec.RawKeywords, &updatedAt); err != nil {
		return nil, err
	}

	rec.SessionDate = domain.SessionDate(date)
	if updatedAt.Valid {
		rec.UpdatedAt = updatedAt.Time
	}
	if keywords, err := domain.ParseKeywords(rec.RawKeywords); err == nil {
		rec.Keywords = keywords
	}
	return &rec, nil
}
