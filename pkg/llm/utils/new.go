package llmutils

import (
	"fmt"

	"github.com/papercomputeco/ragify/pkg/llm"
	"github.com/papercomputeco/ragify/pkg/llm/ollama"
	"github.com/papercomputeco/ragify/pkg/llm/openai"
)

type NewProviderOpts struct {
	// ProviderType selects the backend: "ollama" or "openai".
	ProviderType string

	// TargetURL is the provider's base URL. Empty uses the provider default.
	TargetURL string

	// Model is the completion model name. Empty uses the provider default.
	Model string

	// APIKey is sent as a bearer token when the provider supports one.
	APIKey string
}

// NewProvider creates a completion provider from opts.
func NewProvider(o *NewProviderOpts) (llm.Provider, error) {
	switch o.ProviderType {
	case "ollama":
		return ollama.NewProvider(ollama.Config{
			BaseURL: o.TargetURL,
			Model:   o.Model,
		})
	case "openai":
		return openai.NewProvider(openai.Config{
			BaseURL: o.TargetURL,
			APIKey:  o.APIKey,
			Model:   o.Model,
		})
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", o.ProviderType)
	}
}
