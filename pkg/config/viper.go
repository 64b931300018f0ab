package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/ragify/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the RAGIFY_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (RAGIFY_API_LISTEN, RAGIFY_EMBEDDING_MODEL, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: RAGIFY_CHUNKING_MAX_TOKENS, RAGIFY_VECTOR_STORE_TARGET, etc.
	v.SetEnvPrefix("RAGIFY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// ChunkingFromViper reads the chunking section out of v and validates it.
// Commands call this before constructing a chunker so that a broken window
// configuration fails at startup with ErrInvalidChunkConfig.
func ChunkingFromViper(v *viper.Viper) (ChunkingConfig, error) {
	cfg := ChunkingConfig{
		MaxTokens:     v.GetInt("chunking.max_tokens"),
		OverlapTokens: v.GetInt("chunking.overlap_tokens"),
		MinTokens:     v.GetInt("chunking.min_tokens"),
	}

	if err := cfg.ChunkerConfig().Validate(); err != nil {
		return ChunkingConfig{}, err
	}

	return cfg, nil
}

// BrokersFromViper reads the Kafka broker list out of v. The value is a
// TOML array in config files but a single comma-separated string when it
// arrives through a flag or environment variable.
func BrokersFromViper(v *viper.Viper) []string {
	raw := v.GetStringSlice("events.brokers")
	brokers := make([]string, 0, len(raw))
	for _, entry := range raw {
		for _, b := range strings.Split(entry, ",") {
			b = strings.TrimSpace(b)
			if b != "" {
				brokers = append(brokers, b)
			}
		}
	}
	return brokers
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Tokenizer
	v.SetDefault("tokenizer.encoding", d.Tokenizer.Encoding)

	// Chunking
	v.SetDefault("chunking.max_tokens", d.Chunking.MaxTokens)
	v.SetDefault("chunking.overlap_tokens", d.Chunking.OverlapTokens)
	v.SetDefault("chunking.min_tokens", d.Chunking.MinTokens)

	// Embedding
	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.target", d.Embedding.Target)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)
	v.SetDefault("embedding.api_key", d.Embedding.APIKey)

	// Vector store
	v.SetDefault("vector_store.provider", d.VectorStore.Provider)
	v.SetDefault("vector_store.target", d.VectorStore.Target)

	// LLM
	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.target", d.LLM.Target)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.api_key", d.LLM.APIKey)

	// Ingest
	v.SetDefault("ingest.workers", d.Ingest.Workers)
	v.SetDefault("ingest.upload_dir", d.Ingest.UploadDir)

	// Events
	v.SetDefault("events.backend", d.Events.Backend)
	v.SetDefault("events.brokers", d.Events.Brokers)
	v.SetDefault("events.topic", d.Events.Topic)

	// API
	v.SetDefault("api.listen", d.API.Listen)

	// Client
	v.SetDefault("client.api_target", d.Client.APITarget)
}
