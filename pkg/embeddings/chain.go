package embeddings

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	defaultBatchSize       = 32
	defaultMaxInFlight     = 4
	defaultRetries         = 2
	defaultInitialBackoff  = 200 * time.Millisecond
	defaultProviderTimeout = 60 * time.Second
)

// ChainConfig configures a Chain.
type ChainConfig struct {
	// Providers is the prioritized fallback order; the first entry is the
	// primary provider.
	Providers []Provider

	// BatchSize is the number of texts per provider call.
	BatchSize int

	// MaxInFlight bounds concurrent provider calls within one EmbedBatch.
	MaxInFlight int

	// Retries is how many times a transient provider failure is retried
	// before falling back to the next provider.
	Retries int

	// Timeout applies per provider call.
	Timeout time.Duration

	// Cache, when set, serves exact-match texts without a provider call.
	// Best-effort only.
	Cache *Cache

	// Logger is the provided zap logger.
	Logger *zap.Logger
}

// Chain embeds text through an ordered list of providers, falling back on
// failure. Batching and concurrency are internal; callers see an ordered
// one-to-one mapping from texts to vectors.
type Chain struct {
	cfg ChainConfig
}

// NewChain creates a Chain. At least one provider is required.
func NewChain(cfg ChainConfig) (*Chain, error) {
	if len(cfg.Providers) == 0 {
		return nil, fmt.Errorf("%w: chain has no providers", ErrUnavailable)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = defaultMaxInFlight
	}
	if cfg.Retries < 0 {
		cfg.Retries = defaultRetries
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultProviderTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Chain{cfg: cfg}, nil
}

// Primary returns the identity of the chain's primary provider.
func (c *Chain) Primary() string {
	return c.cfg.Providers[0].Name()
}

// Provider returns the chain member with the given identity.
func (c *Chain) Provider(name string) (Provider, error) {
	for _, p := range c.cfg.Providers {
		if p.Name() == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
}

// EmbedBatch embeds texts, preserving input order. It walks the provider
// chain: transient failures are retried with bounded backoff, then the
// next provider is tried; ErrUnavailable is returned only when every
// provider fails. The returned identity names the provider that produced
// the vectors.
//
// If expectDim is non-zero, vectors of any other dimension fail fast with
// ErrDimensionMismatch instead of corrupting the target collection.
func (c *Chain) EmbedBatch(ctx context.Context, texts []string, expectDim int) ([][]float32, string, error) {
	if len(texts) == 0 {
		return nil, c.Primary(), nil
	}

	var errs []error
	for _, provider := range c.cfg.Providers {
		if expectDim != 0 && provider.Dimensions() != 0 && provider.Dimensions() != expectDim {
			return nil, "", fmt.Errorf("%w: provider %s advertises %d, collection has %d",
				ErrDimensionMismatch, provider.Name(), provider.Dimensions(), expectDim)
		}

		vectors, err := c.embedWithProvider(ctx, provider, texts, expectDim)
		if err == nil {
			return vectors, provider.Name(), nil
		}

		// Dimension violations are config errors, not provider outages.
		if errors.Is(err, ErrDimensionMismatch) || ctx.Err() != nil {
			return nil, "", err
		}

		c.cfg.Logger.Warn("embedding provider failed, falling back",
			zap.String("provider", provider.Name()),
			zap.Error(err),
		)
		errs = append(errs, fmt.Errorf("%s: %w", provider.Name(), err))
	}

	return nil, "", fmt.Errorf("%w: %w", ErrUnavailable, errors.Join(errs...))
}

// EmbedWith embeds texts using only the named provider. Used at query time
// when a collection records which provider indexed it.
func (c *Chain) EmbedWith(ctx context.Context, name string, texts []string, expectDim int) ([][]float32, error) {
	provider, err := c.Provider(name)
	if err != nil {
		return nil, err
	}
	return c.embedWithProvider(ctx, provider, texts, expectDim)
}

// embedWithProvider runs the batched, bounded-concurrency embed for a
// single provider, with retry on transient failure.
func (c *Chain) embedWithProvider(ctx context.Context, provider Provider, texts []string, expectDim int) ([][]float32, error) {
	out := make([][]float32, len(texts))

	// Serve exact-match cache hits first; misses keep their index so the
	// output order is untouched.
	missIdx := make([]int, 0, len(texts))
	missTexts := make([]string, 0, len(texts))
	for i, text := range texts {
		if c.cfg.Cache != nil {
			if vec, ok := c.cfg.Cache.Get(provider.Name(), text); ok {
				out[i] = vec
				continue
			}
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	type batch struct {
		lo, hi int // indexes into missTexts
	}
	var batches []batch
	for lo := 0; lo < len(missTexts); lo += c.cfg.BatchSize {
		hi := lo + c.cfg.BatchSize
		if hi > len(missTexts) {
			hi = len(missTexts)
		}
		batches = append(batches, batch{lo: lo, hi: hi})
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	sem := make(chan struct{}, c.cfg.MaxInFlight)

	for _, b := range batches {
		wg.Add(1)
		sem <- struct{}{}
		go func(b batch) {
			defer wg.Done()
			defer func() { <-sem }()

			mu.Lock()
			failed := firstErr != nil
			mu.Unlock()
			if failed {
				return
			}

			vectors, err := c.embedBatchOnce(ctx, provider, missTexts[b.lo:b.hi], expectDim)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			for i, vec := range vectors {
				out[missIdx[b.lo+i]] = vec
			}
		}(b)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	if c.cfg.Cache != nil {
		for i, text := range missTexts {
			c.cfg.Cache.Put(provider.Name(), text, out[missIdx[i]])
		}
	}

	return out, nil
}

// embedBatchOnce performs one provider call with timeout and bounded
// retry/backoff on transient failure.
func (c *Chain) embedBatchOnce(ctx context.Context, provider Provider, texts []string, expectDim int) ([][]float32, error) {
	var lastErr error

	for attempt := 0; attempt <= c.cfg.Retries; attempt++ {
		if attempt > 0 {
			backoff := defaultInitialBackoff * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		vectors, err := provider.EmbedBatch(callCtx, texts)
		cancel()

		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}

		if len(vectors) != len(texts) {
			return nil, fmt.Errorf("provider %s returned %d vectors for %d texts",
				provider.Name(), len(vectors), len(texts))
		}

		dim := expectDim
		for _, vec := range vectors {
			if dim == 0 {
				dim = len(vec)
			}
			if len(vec) != dim {
				return nil, fmt.Errorf("%w: provider %s returned dimension %d, expected %d",
					ErrDimensionMismatch, provider.Name(), len(vec), dim)
			}
		}

		return vectors, nil
	}

	return nil, lastErr
}

// Close closes every provider in the chain.
func (c *Chain) Close() error {
	var errs []error
	for _, p := range c.cfg.Providers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
