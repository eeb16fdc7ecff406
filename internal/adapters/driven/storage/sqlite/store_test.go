package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/recall/internal/core/domain"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, store)
	t.Cleanup(func() { assert.NoError(t, store.Close()) })

	return store
}

// ==================== Store Creation and Initialization Tests ====================

func TestNewStore_CreatesDatabase(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, filepath.Join(dir, "summaries.db"), store.Path())
	assert.FileExists(t, store.Path())
}

func TestNewStore_CreatesMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")

	store, err := NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	assert.DirExists(t, dir)
}

func TestMigrate_RecordsVersionAndIsIdempotent(t *testing.T) {
	store := setupTestStore(t)

	var version int
	require.NoError(t, store.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version))
	assert.Equal(t, 1, version)

	require.NoError(t, Migrate(store.db, migrations.FS))

	var count int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestNewStore_ReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.SummaryStore().Save(ctx, domain.SummaryRecord{OwnerID: 1, SessionID: "s", Summary: "x"}))
	require.NoError(t, store.Close())

	store, err = NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	rec, err := store.SummaryStore().Get(ctx, 1, "s")
	require.NoError(t, err)
	assert.Equal(t, "x", rec.Summary)
}

// ==================== Summary Store Tests ====================

func TestSummaryStore_SaveAndGet(t *testing.T) {
	store := setupTestStore(t).SummaryStore()
	ctx := context.Background()
	updated := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)

	rec := domain.SummaryRecord{
		OwnerID:     7,
		SessionID:   "240101_a",
		SessionDate: "240101",
		Summary:     "오늘 보온병을 샀다",
		KeySentence: "보온병을 샀다",
		Keywords:    []string{"보온병", " 텀블러 ", ""},
		UpdatedAt:   updated,
	}
	require.NoError(t, store.Save(ctx, rec))

	got, err := store.Get(ctx, 7, "240101_a")
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.OwnerID)
	assert.Equal(t, domain.SessionDate("240101"), got.SessionDate)
	assert.Equal(t, rec.Summary, got.Summary)
	assert.Equal(t, rec.KeySentence, got.KeySentence)
	assert.Equal(t, []string{"보온병", "텀블러"}, got.Keywords)
	assert.JSONEq(t, `["보온병","텀블러"]`, got.RawKeywords)
	assert.WithinDuration(t, updated, got.UpdatedAt, time.Second)
}

func TestSummaryStore_SaveUpdates(t *testing.T) {
	store := setupTestStore(t).SummaryStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domain.SummaryRecord{OwnerID: 1, SessionID: "s", Summary: "old"}))
	require.NoError(t, store.Save(ctx, domain.SummaryRecord{OwnerID: 1, SessionID: "s", Summary: "new"}))

	got, err := store.Get(ctx, 1, "s")
	require.NoError(t, err)
	assert.Equal(t, "new", got.Summary)

	list, err := store.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSummaryStore_RawKeywordsPreserved(t *testing.T) {
	store := setupTestStore(t).SummaryStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domain.SummaryRecord{OwnerID: 1, SessionID: "csv", RawKeywords: "a, b"}))
	require.NoError(t, store.Save(ctx, domain.SummaryRecord{OwnerID: 1, SessionID: "bad", RawKeywords: `["a" "b"]`}))

	csv, err := store.Get(ctx, 1, "csv")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, csv.Keywords)

	bad, err := store.Get(ctx, 1, "bad")
	require.NoError(t, err)
	assert.Empty(t, bad.Keywords)
	assert.Equal(t, `["a" "b"]`, bad.RawKeywords)
}

func TestSummaryStore_GetNotFound(t *testing.T) {
	store := setupTestStore(t).SummaryStore()

	_, err := store.Get(context.Background(), 1, "missing")

	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestSummaryStore_SaveRequiresSessionID(t *testing.T) {
	store := setupTestStore(t).SummaryStore()

	err := store.Save(context.Background(), domain.SummaryRecord{OwnerID: 1})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSummaryStore_DeleteAndList(t *testing.T) {
	store := setupTestStore(t).SummaryStore()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(ctx, domain.SummaryRecord{OwnerID: 1, SessionID: "old", UpdatedAt: base}))
	require.NoError(t, store.Save(ctx, domain.SummaryRecord{OwnerID: 1, SessionID: "new", UpdatedAt: base.Add(time.Hour)}))
	require.NoError(t, store.Save(ctx, domain.SummaryRecord{OwnerID: 2, SessionID: "other", UpdatedAt: base}))

	list, err := store.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].SessionID)
	assert.Equal(t, "old", list[1].SessionID)

	require.NoError(t, store.Delete(ctx, 1, "new"))
	require.NoError(t, store.Delete(ctx, 1, "missing"))

	list, err = store.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	empty, err := store.List(ctx, 99)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestIsBusy(t *testing.T) {
	assert.False(t, IsBusy(nil))
	assert.False(t, IsBusy(errors.New("no such table")))
	assert.True(t, IsBusy(errors.New("database is locked (5) (SQLITE_BUSY)")))
	assert.ErrorIs(t, wrapBusy(errors.New("database is locked")), domain.ErrStorageUnavailable)
}
