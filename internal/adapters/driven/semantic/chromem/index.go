// Package chromem implements the semantic index on chromem-go, an embedded
// pure Go vector store with cosine similarity.
package chromem

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/custodia-labs/recall/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
	"github.com/custodia-labs/recall/internal/logger"
)

// vectorDirName is the persistence directory inside the data directory.
const vectorDirName = "vectors"

// DefaultCollection is the collection fragments are stored in.
const DefaultCollection = "session_fragments"

// Metadata keys written with every vector. Fragment metadata never overrides them.
const (
	metaOwnerID     = "owner_id"
	metaSessionID   = "session_id"
	metaSessionDate = "session_date"
	metaType        = "type"
	metaDocID       = "doc_id"
)

// Config configures an Index.
type Config struct {
	// DataDir holds the vectors directory. Empty means ~/.recall/data.
	DataDir string

	// Collection is the collection name (default: session_fragments).
	Collection string

	// InMemory skips persistence entirely.
	InMemory bool

	// Compress gzips the persisted documents.
	Compress bool

	// MinSimilarity drops hits below this cosine similarity. 0 keeps all.
	MinSimilarity float64
}

// Index is a chromem-go backed semantic index.
type Index struct {
	db            *chromem.DB
	collection    *chromem.Collection
	embedder      driven.EmbeddingService
	minSimilarity float32
	path          string

	// mu serialises writers. Queries hold the read side across the count
	// check and the query so a concurrent delete cannot shrink the collection
	// below nResults in between.
	mu sync.RWMutex
}

var _ driven.SemanticIndex = (*Index)(nil)

// New opens the vector store and its collection.
func New(cfg Config, embedder driven.EmbeddingService) (*Index, error) {
	if embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}

	var db *chromem.DB
	var path string
	if cfg.InMemory {
		db = chromem.NewDB()
	} else {
		dataDir, err := sqlite.ResolveDataDir(cfg.DataDir)
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dataDir, vectorDirName)
		db, err = chromem.NewPersistentDB(path, cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("%w: opening vector store: %v", domain.ErrStorageUnavailable, err)
		}
	}

	// Vectors are always supplied explicitly; the embedding func only serves
	// chromem's own text queries.
	embed := func(ctx context.Context, text string) ([]float32, error) {
		return embedder.Embed(ctx, text)
	}
	col, err := db.GetOrCreateCollection(cfg.Collection, map[string]string{
		"model": embedder.ModelName(),
	}, embed)
	if err != nil {
		return nil, fmt.Errorf("%w: opening collection %s: %v", domain.ErrStorageUnavailable, cfg.Collection, err)
	}

	logger.Debug("chromem: collection %s ready with %d vectors (path=%q)", cfg.Collection, col.Count(), path)

	return &Index{
		db:            db,
		collection:    col,
		embedder:      embedder,
		minSimilarity: float32(cfg.MinSimilarity),
		path:          path,
	}, nil
}

// Path returns the persistence directory, empty for in-memory indexes.
func (ix *Index) Path() string {
	return ix.path
}

// Upsert replaces the vector with the same doc id.
func (ix *Index) Upsert(ctx context.Context, fragment domain.Fragment) error {
	doc, err := ix.document(ctx, fragment)
	if err != nil {
		return err
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if _, err := ix.collection.GetByID(ctx, fragment.DocID); err == nil {
		if err := ix.collection.Delete(ctx, nil, nil, fragment.DocID); err != nil {
			return fmt.Errorf("%w: deleting vector: %v", domain.ErrStorageUnavailable, err)
		}
	}
	if err := ix.collection.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("%w: adding vector: %v", domain.ErrStorageUnavailable, err)
	}
	return nil
}

// Add inserts a vector whose doc id is not stored yet.
func (ix *Index) Add(ctx context.Context, fragment domain.Fragment) error {
	doc, err := ix.document(ctx, fragment)
	if err != nil {
		return err
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if err := ix.collection.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("%w: adding vector: %v", domain.ErrStorageUnavailable, err)
	}
	return nil
}

// DeleteBySession removes every vector of a session.
func (ix *Index) DeleteBySession(ctx context.Context, ownerID int64, sessionID string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	where := map[string]string{
		metaOwnerID:   strconv.FormatInt(ownerID, 10),
		metaSessionID: sessionID,
	}
	if err := ix.collection.Delete(ctx, where, nil); err != nil {
		return fmt.Errorf("%w: deleting session vectors: %v", domain.ErrStorageUnavailable, err)
	}
	return nil
}

// SearchSimilar embeds query and returns the owner's nearest fragments.
func (ix *Index) SearchSimilar(ctx context.Context, query string, topK int, ownerID int64) ([]domain.IndexHit, error) {
	hits := make([]domain.IndexHit, 0)
	if topK <= 0 {
		return hits, nil
	}

	if ix.collection.Count() == 0 {
		return hits, nil
	}

	vec, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		return hits, embeddingError(err)
	}

	results, err := ix.query(ctx, vec, topK, ownerID)
	if err != nil {
		if ctx.Err() != nil {
			return hits, ctx.Err()
		}
		return hits, fmt.Errorf("%w: vector query: %v", domain.ErrStorageUnavailable, err)
	}

	for _, r := range results {
		if r.Similarity < ix.minSimilarity {
			continue
		}
		hits = append(hits, toHit(r, len(hits)+1))
	}
	return hits, nil
}

func (ix *Index) query(ctx context.Context, vec []float32, topK int, ownerID int64) ([]chromem.Result, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	// chromem rejects nResults above the collection size.
	n := min(topK, ix.collection.Count())
	if n == 0 {
		return nil, nil
	}
	where := map[string]string{metaOwnerID: strconv.FormatInt(ownerID, 10)}
	return ix.collection.QueryEmbedding(ctx, vec, n, where, nil)
}

// Count returns the number of stored vectors.
func (ix *Index) Count() int {
	return ix.collection.Count()
}

// Close releases resources. Persistent collections are written on every change.
func (ix *Index) Close() error {
	return nil
}

func (ix *Index) document(ctx context.Context, fragment domain.Fragment) (chromem.Document, error) {
	if err := fragment.Validate(); err != nil {
		return chromem.Document{}, err
	}

	vec, err := ix.embedder.Embed(ctx, fragment.Text)
	if err != nil {
		return chromem.Document{}, embeddingError(err)
	}

	metadata := make(map[string]string, len(fragment.Metadata)+5)
	for k, v := range fragment.Metadata {
		metadata[k] = v
	}
	metadata[metaOwnerID] = strconv.FormatInt(fragment.OwnerID, 10)
	metadata[metaSessionID] = fragment.SessionID
	metadata[metaSessionDate] = fragment.SessionDate.String()
	metadata[metaType] = fragment.Type.String()
	metadata[metaDocID] = fragment.DocID

	return chromem.Document{
		ID:        fragment.DocID,
		Metadata:  metadata,
		Embedding: vec,
		Content:   fragment.Text,
	}, nil
}

func toHit(r chromem.Result, rank int) domain.IndexHit {
	owner, _ := strconv.ParseInt(r.Metadata[metaOwnerID], 10, 64)
	return domain.IndexHit{
		DocID:       r.ID,
		Type:        domain.NormalizeFragmentType(r.Metadata[metaType]),
		OwnerID:     owner,
		SessionID:   r.Metadata[metaSessionID],
		SessionDate: domain.SessionDate(r.Metadata[metaSessionDate]),
		Rank:        rank,
		Source:      domain.SourceSemantic,
		Score:       float64(r.Similarity),
		Text:        r.Content,
	}
}

// embeddingError keeps cancellation visible and tags everything else as ErrEmbedding.
func embeddingError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, domain.ErrEmbedding) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrEmbedding, err)
}
