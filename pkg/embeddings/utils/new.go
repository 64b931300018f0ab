package embeddingutils

import (
	"fmt"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/papercomputeco/ragify/pkg/config"
	"github.com/papercomputeco/ragify/pkg/embeddings"
	"github.com/papercomputeco/ragify/pkg/embeddings/ollama"
	"github.com/papercomputeco/ragify/pkg/embeddings/openai"
)

// ProviderOpts describes one embedding provider.
type ProviderOpts struct {
	// ProviderType selects the backend: "ollama" or "openai".
	ProviderType string

	// TargetURL is the provider's base URL. Empty uses the provider default.
	TargetURL string

	// Model is the embedding model name. Empty uses the provider default.
	Model string

	// APIKey is sent as a bearer token when the provider supports one.
	APIKey string

	// Dimensions is the advertised vector dimension of the model.
	Dimensions int
}

// NewChainOpts configures a fallback chain of embedding providers.
type NewChainOpts struct {
	// Primary is tried first for every batch.
	Primary ProviderOpts

	// Fallbacks are tried in order when the primary is unavailable. Each
	// fallback inherits the primary's dimensions.
	Fallbacks []ProviderOpts

	// CacheSize, when positive, enables an in-process embedding cache
	// holding up to that many entries.
	CacheSize int

	Logger *zap.Logger
}

// NewProvider creates a single embedding provider from opts.
func NewProvider(o ProviderOpts) (embeddings.Provider, error) {
	switch o.ProviderType {
	case "ollama":
		return ollama.NewProvider(ollama.Config{
			BaseURL:    o.TargetURL,
			Model:      o.Model,
			Dimensions: o.Dimensions,
		})
	case "openai":
		return openai.NewProvider(openai.Config{
			BaseURL:    o.TargetURL,
			APIKey:     o.APIKey,
			Model:      o.Model,
			Dimensions: o.Dimensions,
		})
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", o.ProviderType)
	}
}

// NewChain creates an embedding chain from a primary provider and its
// ordered fallbacks.
func NewChain(o *NewChainOpts) (*embeddings.Chain, error) {
	primary, err := NewProvider(o.Primary)
	if err != nil {
		return nil, err
	}

	providers := []embeddings.Provider{primary}
	for _, f := range o.Fallbacks {
		f.Dimensions = o.Primary.Dimensions
		p, err := NewProvider(f)
		if err != nil {
			return nil, fmt.Errorf("fallback %s: %w", f.ProviderType, err)
		}
		providers = append(providers, p)
	}

	var cache *embeddings.Cache
	if o.CacheSize > 0 {
		cache = embeddings.NewCache(o.CacheSize)
	}

	return embeddings.NewChain(embeddings.ChainConfig{
		Providers: providers,
		Cache:     cache,
		Logger:    o.Logger,
	})
}

// NewChainFromViper builds a chain from the viper-resolved primary provider
// settings plus the [[embedding.fallback]] tables, which live only in the
// config file.
func NewChainFromViper(v *viper.Viper, configDir string, log *zap.Logger) (*embeddings.Chain, error) {
	configured, err := config.LoadEmbeddingFallbacks(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	fallbacks := make([]ProviderOpts, 0, len(configured))
	for _, f := range configured {
		fallbacks = append(fallbacks, ProviderOpts{
			ProviderType: f.Provider,
			TargetURL:    f.Target,
			Model:        f.Model,
			APIKey:       f.APIKey,
		})
	}

	return NewChain(&NewChainOpts{
		Primary: ProviderOpts{
			ProviderType: v.GetString("embedding.provider"),
			TargetURL:    v.GetString("embedding.target"),
			Model:        v.GetString("embedding.model"),
			APIKey:       v.GetString("embedding.api_key"),
			Dimensions:   v.GetInt("embedding.dimensions"),
		},
		Fallbacks: fallbacks,
		Logger:    log,
	})
}
