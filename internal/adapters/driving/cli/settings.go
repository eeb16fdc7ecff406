package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/recall/internal/adapters/driven/config/file"
	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/services"
)

// settingsInput is where interactive settings commands read answers.
var settingsInput io.Reader = os.Stdin

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure index backends, the embedding provider and fusion tuning.

Settings live in config.toml inside the config directory.`,
	Annotations: map[string]string{skipEngine: "true"},
	RunE:        runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:         "show",
	Short:       "Show current settings",
	Annotations: map[string]string{skipEngine: "true"},
	RunE:        runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a single setting",
	Long: `Set a single setting by its dotted key, for example:

  recall settings set fusion.rrf_k 60
  recall settings set lexical.backend bleve

The change is rejected when the resulting settings are invalid.`,
	Args:        cobra.ExactArgs(2),
	Annotations: map[string]string{skipEngine: "true"},
	RunE:        runSettingsSet,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:         "embedding",
	Short:       "Configure embedding provider",
	Long:        `Interactively choose the embedding provider used by the vector index.`,
	Annotations: map[string]string{skipEngine: "true"},
	RunE:        runSettingsEmbedding,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	rootCmd.AddCommand(settingsCmd)
}

func loadConfigStore() (*file.ConfigStore, error) {
	if configStore != nil {
		return configStore, nil
	}
	store, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	configStore = store
	return store, nil
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	store, err := loadConfigStore()
	if err != nil {
		return err
	}
	settings, err := services.NewSettingsService(store).Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	p := newPrinter(cmd.OutOrStdout())
	cmd.Println(p.Title("Current Settings"))
	cmd.Println(p.Muted(store.Path()))
	cmd.Println()

	dataDir := settings.Storage.DataDir
	if dataDir == "" {
		dataDir = "~/.recall/data"
	}
	cmd.Println("[Storage]")
	cmd.Printf("  Data dir: %s\n", dataDir)
	cmd.Println()

	cmd.Println("[Lexical]")
	cmd.Printf("  Backend: %s\n", settings.Lexical.Backend.Description())
	cmd.Printf("  Top K: %d\n", settings.Lexical.TopK)
	cmd.Printf("  Read retries: %d (backoff %dms)\n", settings.Lexical.ReadRetries, settings.Lexical.RetryBackoffMS)
	cmd.Println()

	cmd.Println("[Semantic]")
	cmd.Printf("  Collection: %s\n", settings.Semantic.Collection)
	cmd.Printf("  Top K: %d\n", settings.Semantic.TopK)
	cmd.Printf("  Min similarity: %.2f\n", settings.Semantic.MinSimilarity)
	cmd.Printf("  In memory: %t\n", settings.Semantic.InMemory)
	cmd.Println()

	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider)
	if settings.Embedding.Model != "" {
		cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	}
	if settings.Embedding.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", settings.Embedding.BaseURL)
	}
	if settings.Embedding.Provider.RequiresAPIKey() {
		if settings.Embedding.APIKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(settings.Embedding.APIKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	status := "configured"
	if !settings.Embedding.IsConfigured() {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
	cmd.Println()

	cmd.Println("[Fusion]")
	cmd.Printf("  RRF k: %d\n", settings.Fusion.RRFK)
	cmd.Printf("  Top K: %d\n", settings.Fusion.TopK)
	cmd.Printf("  Normalize query: %t\n", settings.Fusion.NormalizeQuery)
	cmd.Printf("  Buckets: high >= %d, middle >= %d\n", settings.Buckets.HighMin, settings.Buckets.MiddleMin)
	cmd.Printf("  Selection need: %d\n", settings.Selection.Need)
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	key, raw := args[0], args[1]
	if !slices.Contains(services.ConfigKeys(), key) {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	store, err := loadConfigStore()
	if err != nil {
		return err
	}

	previous, existed := store.Get(key)
	if err := store.Set(key, parseValue(raw)); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}

	settings, err := services.NewSettingsService(store).Get()
	if err == nil {
		err = settings.Validate()
	}
	if err != nil {
		if existed {
			_ = store.Set(key, previous)
		}
		return fmt.Errorf("rejected %s=%s: %w", key, raw, err)
	}

	cmd.Printf("%s = %v\n", key, parseValue(raw))
	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	store, err := loadConfigStore()
	if err != nil {
		return err
	}
	svc := services.NewSettingsService(store)
	settings, err := svc.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	reader := bufio.NewReader(settingsInput)
	if err := configureEmbeddingProvider(cmd, reader, settings); err != nil {
		return err
	}
	if err := svc.Save(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	if err := svc.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	}
	cmd.Println("Embedding settings saved. Re-index sessions after changing the model.")
	return nil
}

func configureEmbeddingProvider(cmd *cobra.Command, reader *bufio.Reader, settings *domain.Settings) error {
	providers := []domain.EmbeddingProvider{
		domain.EmbeddingProviderHash,
		domain.EmbeddingProviderOllama,
		domain.EmbeddingProviderOpenAI,
	}
	current := 1
	cmd.Println("Embedding provider:")
	for i, p := range providers {
		if p == settings.Embedding.Provider {
			current = i + 1
		}
		cmd.Printf("  %d) %s\n", i+1, p)
	}
	cmd.Printf("Choose [1-%d] (%d): ", len(providers), current)
	provider := providers[parseChoice(readLine(reader), len(providers), current)-1]

	if provider != settings.Embedding.Provider {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[provider]
		settings.Embedding.BaseURL = ""
	}
	settings.Embedding.Provider = provider

	if provider == domain.EmbeddingProviderHash {
		return nil
	}

	cmd.Printf("Model (%s): ", settings.Embedding.Model)
	if model := readLine(reader); model != "" {
		settings.Embedding.Model = model
	}
	cmd.Printf("Base URL (%s): ", valueOr(settings.Embedding.BaseURL, "provider default"))
	if baseURL := readLine(reader); baseURL != "" {
		settings.Embedding.BaseURL = baseURL
	}

	if provider.RequiresAPIKey() {
		cmd.Print("API key: ")
		key := readPassword(reader)
		cmd.Println()
		if key == "" && settings.Embedding.APIKey == "" {
			return errors.New("an API key is required for " + provider.String())
		}
		if key != "" {
			settings.Embedding.APIKey = key
		}
	}
	return nil
}

// parseValue converts a command line value to the TOML type it looks like.
func parseValue(raw string) any {
	if b, err := strconv.ParseBool(raw); err == nil && (raw == "true" || raw == "false") {
		return b
	}
	if i, err := strconv.Atoi(raw); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo when stdin is a terminal.
func readPassword(reader *bufio.Reader) string {
	if f, ok := settingsInput.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
