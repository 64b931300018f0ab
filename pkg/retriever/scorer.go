package retriever

import "strings"

// Scorer assigns a relevance score to a chunk text for a query. Higher is
// more relevant.
type Scorer interface {
	Score(query, text string) float32
}

// LexicalScorer scores by the fraction of distinct query terms present in
// the chunk text. Deterministic and dependency-free, it serves as the
// default rerank pass.
type LexicalScorer struct{}

func (LexicalScorer) Score(query, text string) float32 {
	terms := map[string]bool{}
	for _, t := range strings.Fields(strings.ToLower(query)) {
		terms[t] = true
	}
	if len(terms) == 0 {
		return 0
	}

	present := map[string]bool{}
	for _, t := range strings.Fields(strings.ToLower(text)) {
		if terms[t] {
			present[t] = true
		}
	}

	return float32(len(present)) / float32(len(terms))
}
