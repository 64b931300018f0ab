package config

import (
	"github.com/papercomputeco/ragify/pkg/tokenizer"
)

const (
	defaultChunkMaxTokens     = 512
	defaultChunkOverlapTokens = 64
	defaultChunkMinTokens     = 0

	defaultEmbeddingProvider   = "ollama"
	defaultEmbeddingTarget     = "http://localhost:11434"
	defaultEmbeddingModel      = "nomic-embed-text"
	defaultEmbeddingDimensions = 768

	defaultVectorProvider = "sqlite"

	defaultLLMProvider = "ollama"
	defaultLLMTarget   = "http://localhost:11434"
	defaultLLMModel    = "llama3"

	defaultIngestWorkers = 3

	defaultEventsBackend = "nop"
	defaultEventsTopic   = "ragify.ingest"

	defaultAPIListen       = ":8081"
	defaultClientAPITarget = "http://localhost:8081"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Tokenizer: TokenizerConfig{
			Encoding: tokenizer.DefaultEncoding,
		},
		Chunking: ChunkingConfig{
			MaxTokens:     defaultChunkMaxTokens,
			OverlapTokens: defaultChunkOverlapTokens,
			MinTokens:     defaultChunkMinTokens,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultEmbeddingTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		VectorStore: VectorStoreConfig{
			Provider: defaultVectorProvider,
		},
		LLM: LLMConfig{
			Provider: defaultLLMProvider,
			Target:   defaultLLMTarget,
			Model:    defaultLLMModel,
		},
		Ingest: IngestConfig{
			Workers: defaultIngestWorkers,
		},
		Events: EventsConfig{
			Backend: defaultEventsBackend,
			Topic:   defaultEventsTopic,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
	}
}
