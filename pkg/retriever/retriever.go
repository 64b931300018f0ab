// Package retriever turns a natural-language query into a ranked list of
// candidate chunks from one collection.
package retriever

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/papercomputeco/ragify/pkg/embeddings"
	"github.com/papercomputeco/ragify/pkg/vector"
)

// DefaultFanout is the candidate over-fetch multiplier used when reranking.
const DefaultFanout = 4

// Options controls a single retrieval.
type Options struct {
	// Rerank applies a secondary scoring pass over the candidates.
	Rerank bool

	// Fanout multiplies topK for the candidate fetch when reranking.
	// Defaults to DefaultFanout.
	Fanout int
}

// Retriever embeds queries with the collection's recorded embedder and
// queries the vector store.
type Retriever struct {
	chain  *embeddings.Chain
	store  vector.Store
	scorer Scorer
	logger *zap.Logger
}

// New creates a Retriever. The scorer may be nil, in which case reranking
// uses the lexical scorer.
func New(chain *embeddings.Chain, store vector.Store, scorer Scorer, logger *zap.Logger) *Retriever {
	if scorer == nil {
		scorer = LexicalScorer{}
	}
	return &Retriever{
		chain:  chain,
		store:  store,
		scorer: scorer,
		logger: logger,
	}
}

// Retrieve embeds the query and returns up to topK ranked results from the
// collection. The query is embedded with the provider that indexed the
// collection; if the chain cannot serve that provider the retrieval is
// rejected rather than silently degraded.
func (r *Retriever) Retrieve(ctx context.Context, query, collection string, topK int, opts Options) ([]vector.Result, error) {
	if topK <= 0 {
		return []vector.Result{}, nil
	}

	meta, err := r.store.Meta(ctx, collection)
	if err != nil {
		return nil, err
	}

	vectors, err := r.chain.EmbedWith(ctx, meta.Embedder, []string{query}, meta.Dimension)
	if err != nil {
		if errors.Is(err, embeddings.ErrUnknownProvider) {
			return nil, fmt.Errorf("%w: collection %s was indexed by %s",
				vector.ErrEmbedderMismatch, collection, meta.Embedder)
		}
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	fetch := topK
	if opts.Rerank {
		fanout := opts.Fanout
		if fanout <= 0 {
			fanout = DefaultFanout
		}
		fetch = topK * fanout
	}

	results, err := r.store.Query(ctx, collection, vectors[0], fetch)
	if err != nil {
		return nil, err
	}

	if opts.Rerank {
		results = r.rerank(query, results, topK)
	}

	r.logger.Debug("retrieved chunks",
		zap.String("collection", collection),
		zap.Int("top_k", topK),
		zap.Bool("rerank", opts.Rerank),
		zap.Int("results", len(results)),
	)

	return results, nil
}

// rerank rescores candidates, re-sorts, and truncates to topK. The sort is
// stable so equal rerank scores keep their similarity ordering.
func (r *Retriever) rerank(query string, results []vector.Result, topK int) []vector.Result {
	scores := make([]float32, len(results))
	for i, res := range results {
		scores[i] = r.scorer.Score(query, res.Text)
	}

	order := make([]int, len(results))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	reranked := make([]vector.Result, 0, len(results))
	for _, idx := range order {
		reranked = append(reranked, results[idx])
	}
	if len(reranked) > topK {
		reranked = reranked[:topK]
	}
	for i := range reranked {
		reranked[i].Rank = i
	}
	return reranked
}
