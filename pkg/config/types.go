package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/papercomputeco/ragify/pkg/chunker"
)

// Config represents the persistent ragify configuration stored as config.toml
// in the .ragify/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Tokenizer   TokenizerConfig   `toml:"tokenizer"`
	Chunking    ChunkingConfig    `toml:"chunking"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	LLM         LLMConfig         `toml:"llm"`
	Ingest      IngestConfig      `toml:"ingest"`
	Events      EventsConfig      `toml:"events"`
	API         APIConfig         `toml:"api"`
	Client      ClientConfig      `toml:"client"`
}

// TokenizerConfig names the tiktoken encoding shared by the chunker and
// the context assembler.
type TokenizerConfig struct {
	Encoding string `toml:"encoding,omitempty"`
}

// ChunkingConfig holds the chunking window parameters, all in tokens.
type ChunkingConfig struct {
	MaxTokens     int `toml:"max_tokens,omitempty"`
	OverlapTokens int `toml:"overlap_tokens,omitempty"`
	MinTokens     int `toml:"min_tokens,omitempty"`
}

// ChunkerConfig converts the section into the chunker's config type.
func (c ChunkingConfig) ChunkerConfig() chunker.Config {
	return chunker.Config{
		MaxTokens:     c.MaxTokens,
		OverlapTokens: c.OverlapTokens,
		MinTokens:     c.MinTokens,
	}
}

// EmbeddingConfig holds the primary embedding provider settings plus the
// ordered fallback providers tried when the primary is unavailable.
// Fallbacks share the primary's dimensions; a fallback that produces a
// different dimension is rejected at embed time, not configured here.
type EmbeddingConfig struct {
	Provider   string              `toml:"provider,omitempty"`
	Target     string              `toml:"target,omitempty"`
	Model      string              `toml:"model,omitempty"`
	Dimensions uint                `toml:"dimensions,omitempty"`
	APIKey     string              `toml:"api_key,omitempty"`
	Fallbacks  []EmbeddingFallback `toml:"fallback,omitempty"`
}

// EmbeddingFallback describes one fallback embedding provider.
type EmbeddingFallback struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
	Model    string `toml:"model,omitempty"`
	APIKey   string `toml:"api_key,omitempty"`
}

// VectorStoreConfig holds vector store settings.
type VectorStoreConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
}

// LLMConfig holds the completion provider used by "ragify query".
type LLMConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
	Model    string `toml:"model,omitempty"`
	APIKey   string `toml:"api_key,omitempty"`
}

// IngestConfig holds ingestion pipeline settings.
type IngestConfig struct {
	Workers   uint   `toml:"workers,omitempty"`
	UploadDir string `toml:"upload_dir,omitempty"`
}

// EventsConfig selects the ingest progress event backend.
type EventsConfig struct {
	Backend string   `toml:"backend,omitempty"`
	Brokers []string `toml:"brokers,omitempty"`
	Topic   string   `toml:"topic,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// ClientConfig holds settings for CLI commands that connect to a running
// API server (e.g. ragify search against a remote index).
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
}

// Validate checks the parts of the config that can fail startup.
// Chunking parameters that cannot produce an advancing window are a
// configuration error, never retried.
func (c *Config) Validate() error {
	return c.Chunking.ChunkerConfig().Validate()
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func intKey(get func(c *Config) *int, name string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *get(c) == 0 {
				return ""
			}
			return strconv.Itoa(*get(c))
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*get(c) = n
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
// Embedding fallbacks are configured by editing the [[embedding.fallback]]
// tables directly; they are not addressable as a flat key.
var configKeys = map[string]configKeyInfo{
	"tokenizer.encoding": {
		get: func(c *Config) string { return c.Tokenizer.Encoding },
		set: func(c *Config, v string) error { c.Tokenizer.Encoding = v; return nil },
	},
	"chunking.max_tokens":     intKey(func(c *Config) *int { return &c.Chunking.MaxTokens }, "chunking.max_tokens"),
	"chunking.overlap_tokens": intKey(func(c *Config) *int { return &c.Chunking.OverlapTokens }, "chunking.overlap_tokens"),
	"chunking.min_tokens":     intKey(func(c *Config) *int { return &c.Chunking.MinTokens }, "chunking.min_tokens"),
	"embedding.provider": {
		get: func(c *Config) string { return c.Embedding.Provider },
		set: func(c *Config, v string) error { c.Embedding.Provider = v; return nil },
	},
	"embedding.target": {
		get: func(c *Config) string { return c.Embedding.Target },
		set: func(c *Config, v string) error { c.Embedding.Target = v; return nil },
	},
	"embedding.model": {
		get: func(c *Config) string { return c.Embedding.Model },
		set: func(c *Config, v string) error { c.Embedding.Model = v; return nil },
	},
	"embedding.dimensions": {
		get: func(c *Config) string {
			if c.Embedding.Dimensions == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Embedding.Dimensions), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for embedding.dimensions: %w", err)
			}
			c.Embedding.Dimensions = uint(n)
			return nil
		},
	},
	"embedding.api_key": {
		get: func(c *Config) string { return c.Embedding.APIKey },
		set: func(c *Config, v string) error { c.Embedding.APIKey = v; return nil },
	},
	"vector_store.provider": {
		get: func(c *Config) string { return c.VectorStore.Provider },
		set: func(c *Config, v string) error { c.VectorStore.Provider = v; return nil },
	},
	"vector_store.target": {
		get: func(c *Config) string { return c.VectorStore.Target },
		set: func(c *Config, v string) error { c.VectorStore.Target = v; return nil },
	},
	"llm.provider": {
		get: func(c *Config) string { return c.LLM.Provider },
		set: func(c *Config, v string) error { c.LLM.Provider = v; return nil },
	},
	"llm.target": {
		get: func(c *Config) string { return c.LLM.Target },
		set: func(c *Config, v string) error { c.LLM.Target = v; return nil },
	},
	"llm.model": {
		get: func(c *Config) string { return c.LLM.Model },
		set: func(c *Config, v string) error { c.LLM.Model = v; return nil },
	},
	"llm.api_key": {
		get: func(c *Config) string { return c.LLM.APIKey },
		set: func(c *Config, v string) error { c.LLM.APIKey = v; return nil },
	},
	"ingest.workers": {
		get: func(c *Config) string {
			if c.Ingest.Workers == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Ingest.Workers), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for ingest.workers: %w", err)
			}
			c.Ingest.Workers = uint(n)
			return nil
		},
	},
	"ingest.upload_dir": {
		get: func(c *Config) string { return c.Ingest.UploadDir },
		set: func(c *Config, v string) error { c.Ingest.UploadDir = v; return nil },
	},
	"events.backend": {
		get: func(c *Config) string { return c.Events.Backend },
		set: func(c *Config, v string) error { c.Events.Backend = v; return nil },
	},
	"events.brokers": {
		get: func(c *Config) string { return strings.Join(c.Events.Brokers, ",") },
		set: func(c *Config, v string) error {
			c.Events.Brokers = nil
			for _, b := range strings.Split(v, ",") {
				if b = strings.TrimSpace(b); b != "" {
					c.Events.Brokers = append(c.Events.Brokers, b)
				}
			}
			return nil
		},
	},
	"events.topic": {
		get: func(c *Config) string { return c.Events.Topic },
		set: func(c *Config, v string) error { c.Events.Topic = v; return nil },
	},
	"api.listen": {
		get: func(c *Config) string { return c.API.Listen },
		set: func(c *Config, v string) error { c.API.Listen = v; return nil },
	},
	"client.api_target": {
		get: func(c *Config) string { return c.Client.APITarget },
		set: func(c *Config, v string) error { c.Client.APITarget = v; return nil },
	},
}
