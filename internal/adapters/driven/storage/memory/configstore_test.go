package memory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall/internal/core/ports/driven"
)

func TestConfigStore_ImplementsPort(t *testing.T) {
	var store driven.ConfigStore = NewConfigStore()

	assert.NoError(t, store.Save())
	assert.NoError(t, store.Load())
	assert.Equal(t, ":memory:", store.Path())
}

func TestConfigStore_SetAndGet(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Set("lexical.backend", "bleve"))
	require.NoError(t, store.Set("lexical.backend", "fts5"))

	val, ok := store.Get("lexical.backend")
	assert.True(t, ok)
	assert.Equal(t, "fts5", val)

	_, ok = store.Get("lexical.top_k")
	assert.False(t, ok)
}

func TestConfigStore_GetString(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("embedding.provider", "ollama"))
	require.NoError(t, store.Set("fusion.rrf_k", 60))

	assert.Equal(t, "ollama", store.GetString("embedding.provider"))
	assert.Equal(t, "", store.GetString("fusion.rrf_k"))
	assert.Equal(t, "", store.GetString("embedding.model"))
}

func TestConfigStore_GetInt(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  int
	}{
		{"int", 60, 60},
		{"int64 from TOML", int64(200), 200},
		{"float64 truncates", 12.9, 12},
		{"string", "sixty", 0},
		{"bool", true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewConfigStore()
			require.NoError(t, store.Set("fusion.rrf_k", tt.value))
			assert.Equal(t, tt.want, store.GetInt("fusion.rrf_k"))
		})
	}

	assert.Zero(t, NewConfigStore().GetInt("fusion.rrf_k"))
}

func TestConfigStore_GetFloat(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  float64
	}{
		{"float64", 0.25, 0.25},
		{"float32", float32(0.5), 0.5},
		{"int", 3, 3},
		{"int64 from TOML", int64(10), 10},
		{"string", "0.3", 0},
		{"bool", true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewConfigStore()
			require.NoError(t, store.Set("semantic.min_similarity", tt.value))
			assert.InDelta(t, tt.want, store.GetFloat("semantic.min_similarity"), 1e-9)
		})
	}

	assert.Zero(t, NewConfigStore().GetFloat("semantic.min_similarity"))
}

func TestConfigStore_GetBool(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("fusion.normalize_query", false))
	require.NoError(t, store.Set("semantic.compress", true))
	require.NoError(t, store.Set("semantic.in_memory", "yes"))

	assert.False(t, store.GetBool("fusion.normalize_query"))
	_, ok := store.Get("fusion.normalize_query")
	assert.True(t, ok, "explicit false is still present")
	assert.True(t, store.GetBool("semantic.compress"))
	assert.False(t, store.GetBool("semantic.in_memory"))
	assert.False(t, store.GetBool("fusion.replace_session"))
}

func TestConfigStore_GetStringSlice(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("tags", []string{"a", "b"}))
	require.NoError(t, store.Set("mixed", []any{"a", 1, "b"}))
	require.NoError(t, store.Set("scalar", "a"))

	assert.Equal(t, []string{"a", "b"}, store.GetStringSlice("tags"))
	assert.Equal(t, []string{"a", "b"}, store.GetStringSlice("mixed"))
	assert.Nil(t, store.GetStringSlice("scalar"))
	assert.Nil(t, store.GetStringSlice("missing"))
}

func TestConfigStore_InstancesAreIsolated(t *testing.T) {
	a := NewConfigStore()
	b := NewConfigStore()
	require.NoError(t, a.Set("bucket.high_min", 4))

	assert.Equal(t, 4, a.GetInt("bucket.high_min"))
	_, ok := b.Get("bucket.high_min")
	assert.False(t, ok)
}

func TestConfigStore_ConcurrentAccess(t *testing.T) {
	store := NewConfigStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("fusion.k%d", n%5)
			_ = store.Set(key, n)
			_ = store.GetInt(key)
			_ = store.GetFloat("semantic.min_similarity")
		}(i)
	}
	wg.Wait()

	for i := 0; i < 5; i++ {
		_, ok := store.Get(fmt.Sprintf("fusion.k%d", i))
		assert.True(t, ok)
	}
}
