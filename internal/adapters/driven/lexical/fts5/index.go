// Package fts5 implements the lexical index on SQLite FTS5 with the trigram
// tokenizer. Trigrams give substring matching for Hangul without a
// morphological analyser.
package fts5

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/recall/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
	"github.com/custodia-labs/recall/internal/logger"
)

// lexicalDBName is the index database file inside the data directory.
const lexicalDBName = "lexical.db"

// busyTimeout keeps SQLite's own wait short; reads retry on top of it.
const busyTimeout = 50 * time.Millisecond

// Defaults for the read retry loop.
const (
	DefaultReadRetries  = 3
	DefaultRetryBackoff = 50 * time.Millisecond
)

//go:embed schema/*.sql
var schemaFiles embed.FS

// Config configures an Index.
type Config struct {
	// DataDir holds lexical.db. Empty means ~/.recall/data.
	DataDir string

	// ReadRetries is the number of attempts for a read hitting a locked database.
	ReadRetries int

	// RetryBackoff is the delay before the second attempt; it doubles after that.
	RetryBackoff time.Duration
}

// Index is an FTS5 trigram keyword index.
type Index struct {
	db      *sql.DB
	path    string
	retries int
	backoff time.Duration

	// mu serialises writers. Readers never take it.
	mu sync.Mutex
}

var _ driven.LexicalIndex = (*Index)(nil)

// New opens (or creates) the index database and applies its schema.
func New(cfg Config) (*Index, error) {
	dataDir, err := sqlite.ResolveDataDir(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(dataDir, lexicalDBName)
	db, err := sqlite.Open(path, busyTimeout)
	if err != nil {
		return nil, err
	}

	schema, err := fs.Sub(schemaFiles, "schema")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("loading lexical schema: %w", err)
	}
	if err := sqlite.Migrate(db, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running lexical migrations: %w", err)
	}

	if cfg.ReadRetries <= 0 {
		cfg.ReadRetries = DefaultReadRetries
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = DefaultRetryBackoff
	}

	return &Index{
		db:      db,
		path:    path,
		retries: cfg.ReadRetries,
		backoff: cfg.RetryBackoff,
	}, nil
}

// Path returns the database file path.
func (ix *Index) Path() string {
	return ix.path
}

// Upsert replaces the fragment with the same doc id.
func (ix *Index) Upsert(ctx context.Context, fragment domain.Fragment) error {
	if err := fragment.Validate(); err != nil {
		return err
	}

	metadata := "{}"
	if len(fragment.Metadata) > 0 {
		data, err := json.Marshal(fragment.Metadata)
		if err != nil {
			return fmt.Errorf("%w: metadata: %v", domain.ErrMalformedFragment, err)
		}
		metadata = string(data)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return storageError("beginning upsert", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM fragments WHERE doc_id = ?", fragment.DocID); err != nil {
		return storageError("deleting fragment", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO fragments (doc_id, owner_id, session_id, session_date, type, text, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, fragment.DocID, fragment.OwnerID, fragment.SessionID, fragment.SessionDate.String(),
		fragment.Type.String(), fragment.Text, metadata)
	if err != nil {
		return storageError("inserting fragment", err)
	}

	if err := tx.Commit(); err != nil {
		return storageError("committing upsert", err)
	}
	return nil
}

// DeleteBySession removes every fragment of a session.
func (ix *Index) DeleteBySession(ctx context.Context, ownerID int64, sessionID string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	res, err := ix.db.ExecContext(ctx,
		"DELETE FROM fragments WHERE owner_id = ? AND session_id = ?", ownerID, sessionID)
	if err != nil {
		return storageError("deleting session", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		logger.Debug("fts5: deleted %d fragments of %d/%s", n, ownerID, sessionID)
	}
	return nil
}

// Search returns up to topK fragments of the owner ranked by bm25.
func (ix *Index) Search(ctx context.Context, query string, topK int, ownerID int64) ([]domain.IndexHit, error) {
	hits := make([]domain.IndexHit, 0)
	if topK <= 0 {
		return hits, nil
	}

	q := buildQuery(query)
	if q.empty() {
		return hits, nil
	}

	err := retry(ctx, ix.retries, ix.backoff, func() error {
		var err error
		hits, err = ix.search(ctx, q, topK, ownerID)
		return err
	})
	if err != nil {
		return make([]domain.IndexHit, 0), searchError(err)
	}
	return hits, nil
}

// search runs the MATCH arm, then the LIKE arm for short tokens, and merges
// them by doc id.
func (ix *Index) search(ctx context.Context, q ftsQuery, topK int, ownerID int64) ([]domain.IndexHit, error) {
	hits := make([]domain.IndexHit, 0)
	if q.match != "" {
		matched, err := ix.searchMatch(ctx, q.match, topK, ownerID)
		if err != nil {
			return nil, err
		}
		hits = matched
	}
	if len(q.like) == 0 || len(hits) >= topK {
		return hits, nil
	}

	// Overfetch so LIKE rows already found by MATCH do not eat the budget.
	liked, err := ix.searchLike(ctx, q.like, topK+len(hits), ownerID)
	if err != nil {
		return nil, err
	}
	return mergeHits(hits, liked, topK), nil
}

func (ix *Index) searchMatch(ctx context.Context, match string, topK int, ownerID int64) ([]domain.IndexHit, error) {
	rows, err := ix.db.QueryContext(ctx, `
		SELECT f.doc_id, f.owner_id, f.session_id, f.session_date, f.type, f.text, bm25(fragments_fts) AS score
		FROM fragments_fts
		JOIN fragments f ON f.seq = fragments_fts.rowid
		WHERE fragments_fts MATCH ? AND f.owner_id = ?
		ORDER BY score, f.seq
		LIMIT ?
	`, match, ownerID, topK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hits := make([]domain.IndexHit, 0, topK)
	for rows.Next() {
		var hit domain.IndexHit
		var date, typ string
		var bm25 float64
		if err := rows.Scan(&hit.DocID, &hit.OwnerID, &hit.SessionID, &date, &typ, &hit.Text, &bm25); err != nil {
			return nil, err
		}
		hit.SessionDate = domain.SessionDate(date)
		hit.Type = domain.NormalizeFragmentType(typ)
		hit.Source = domain.SourceLexical
		hit.Rank = len(hits) + 1
		// bm25() is lower-is-better; report it the other way round.
		hit.Score = -bm25
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

// searchLike matches tokens too short for trigrams, in insertion order.
func (ix *Index) searchLike(ctx context.Context, tokens []string, topK int, ownerID int64) ([]domain.IndexHit, error) {
	conditions := make([]string, 0, len(tokens))
	args := make([]any, 0, len(tokens)+2)
	args = append(args, ownerID)
	for _, tok := range tokens {
		conditions = append(conditions, `text LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(tok)+"%")
	}
	args = append(args, topK)

	rows, err := ix.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT doc_id, owner_id, session_id, session_date, type, text
		FROM fragments
		WHERE owner_id = ? AND (%s)
		ORDER BY seq
		LIMIT ?
	`, strings.Join(conditions, " OR ")), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hits := make([]domain.IndexHit, 0, topK)
	for rows.Next() {
		var hit domain.IndexHit
		var date, typ string
		if err := rows.Scan(&hit.DocID, &hit.OwnerID, &hit.SessionID, &date, &typ, &hit.Text); err != nil {
			return nil, err
		}
		hit.SessionDate = domain.SessionDate(date)
		hit.Type = domain.NormalizeFragmentType(typ)
		hit.Source = domain.SourceLexical
		hit.Rank = len(hits) + 1
		hit.Score = float64(countMatches(hit.Text, tokens))
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

// Count returns the number of indexed fragments.
func (ix *Index) Count(ctx context.Context) (int, error) {
	var n int
	err := retry(ctx, ix.retries, ix.backoff, func() error {
		return ix.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM fragments").Scan(&n)
	})
	if err != nil {
		return 0, searchError(err)
	}
	return n, nil
}

// Close closes the database connection.
func (ix *Index) Close() error {
	return ix.db.Close()
}

// retry runs op up to attempts times while it fails with a busy error,
// sleeping backoff, 2*backoff, ... between attempts.
func retry(ctx context.Context, attempts int, backoff time.Duration, op func() error) error {
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = op()
		if err == nil || !sqlite.IsBusy(err) {
			return err
		}
		if attempt == attempts {
			break
		}
		logger.Debug("fts5: database busy, retry %d/%d in %s", attempt, attempts-1, backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return fmt.Errorf("%w: still locked after %d attempts: %v", domain.ErrStorageUnavailable, attempts, err)
}

// searchError maps read failures onto ErrStorageUnavailable.
// Context errors pass through so callers can tell cancellation apart.
func searchError(err error) error {
	switch {
	case errors.Is(err, domain.ErrStorageUnavailable):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: lexical search: %v", domain.ErrStorageUnavailable, err)
	}
}

func storageError(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrStorageUnavailable, op, err)
}
