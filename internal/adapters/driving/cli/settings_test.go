package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/services"
)

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Short key", input: "abc123", expected: "****"},
		{name: "Exactly 8 chars", input: "12345678", expected: "****"},
		{name: "Long key", input: "sk-1234567890abcdef", expected: "sk-1...cdef"},
		{name: "Empty key", input: "", expected: "****"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, maskAPIKey(tt.input))
		})
	}
}

func TestParseChoice(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		maxVal     int
		defaultVal int
		expected   int
	}{
		{"Empty input returns default", "", 3, 1, 1},
		{"Valid choice", "2", 3, 1, 2},
		{"Out of range", "4", 3, 1, 1},
		{"Zero", "0", 3, 2, 2},
		{"Not a number", "abc", 3, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseChoice(tt.input, tt.maxVal, tt.defaultVal))
		})
	}
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, true, parseValue("true"))
	assert.Equal(t, false, parseValue("false"))
	assert.Equal(t, 60, parseValue("60"))
	assert.Equal(t, 0.25, parseValue("0.25"))
	assert.Equal(t, "bleve", parseValue("bleve"))
	assert.Equal(t, 1, parseValue("1"), "1 is an int, not a bool")
}

func TestSettingsShow(t *testing.T) {
	setupTestConfig(t)

	out, err := execute(t, "settings", "show")

	require.NoError(t, err)
	assert.Contains(t, out, "Current Settings")
	assert.Contains(t, out, "SQLite FTS5")
	assert.Contains(t, out, "RRF k: 60")
	assert.Contains(t, out, "Provider: hash")
	assert.Contains(t, out, "Buckets: high >= 3, middle >= 2")
}

func TestSettingsSet(t *testing.T) {
	store := setupTestConfig(t)

	out, err := execute(t, "settings", "set", "fusion.rrf_k", "30")

	require.NoError(t, err)
	assert.Contains(t, out, "fusion.rrf_k = 30")
	settings, err := services.NewSettingsService(store).Get()
	require.NoError(t, err)
	assert.Equal(t, 30, settings.Fusion.RRFK)
}

func TestSettingsSet_UnknownKey(t *testing.T) {
	setupTestConfig(t)

	_, err := execute(t, "settings", "set", "fusion.rrf", "30")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSettingsSet_RejectsInvalidAndRestores(t *testing.T) {
	store := setupTestConfig(t)
	require.NoError(t, store.Set("semantic.min_similarity", 0.3))

	_, err := execute(t, "settings", "set", "semantic.min_similarity", "1.5")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.InDelta(t, 0.3, store.GetFloat("semantic.min_similarity"), 1e-9)
}

func TestSettingsEmbedding_Interactive(t *testing.T) {
	store := setupTestConfig(t)
	original := settingsInput
	defer func() { settingsInput = original }()

	// Choose openai, keep the default model and base URL, enter a key.
	settingsInput = strings.NewReader("3\n\n\nsk-test-1234567890\n")

	out, err := execute(t, "settings", "embedding")

	require.NoError(t, err)
	assert.Contains(t, out, "Embedding settings saved.")
	settings, err := services.NewSettingsService(store).Get()
	require.NoError(t, err)
	assert.Equal(t, domain.EmbeddingProviderOpenAI, settings.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-small", settings.Embedding.Model)
	assert.Equal(t, "sk-test-1234567890", settings.Embedding.APIKey)
}

func TestSettingsEmbedding_HashNeedsNoQuestions(t *testing.T) {
	store := setupTestConfig(t)
	original := settingsInput
	defer func() { settingsInput = original }()
	settingsInput = strings.NewReader("1\n")

	_, err := execute(t, "settings", "embedding")

	require.NoError(t, err)
	assert.Equal(t, "hash", store.GetString("embedding.provider"))
}
