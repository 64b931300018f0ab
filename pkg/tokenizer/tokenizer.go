// Package tokenizer wraps a tiktoken encoding behind the small capability
// the pipeline needs: counting, encoding and decoding tokens.
//
// One Tokenizer instance is shared by the chunker and the context assembler
// so that chunk sizing and context-budget accounting always agree.
package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the encoding used when none is configured.
const DefaultEncoding = "cl100k_base"

// Tokenizer converts text to and from token ids using a fixed encoding.
type Tokenizer struct {
	encoding string
	tke      *tiktoken.Tiktoken
}

// New creates a Tokenizer for the named tiktoken encoding
// (e.g. "cl100k_base", "o200k_base").
func New(encoding string) (*Tokenizer, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}

	tke, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("loading tiktoken encoding %q: %w", encoding, err)
	}

	return &Tokenizer{
		encoding: encoding,
		tke:      tke,
	}, nil
}

// Encoding returns the name of the underlying encoding.
func (t *Tokenizer) Encoding() string {
	return t.encoding
}

// Encode converts text into token ids.
func (t *Tokenizer) Encode(text string) []int {
	return t.tke.Encode(text, nil, nil)
}

// Decode converts token ids back into text.
func (t *Tokenizer) Decode(tokens []int) string {
	return t.tke.Decode(tokens)
}

// Count returns the number of tokens in text.
func (t *Tokenizer) Count(text string) int {
	return len(t.tke.Encode(text, nil, nil))
}

// Offsets returns, for each token, the byte offset into text at which that
// token's bytes begin, plus a final entry equal to len(text). Decoding a
// token span [a:b) therefore yields exactly text[offsets[a]:offsets[b]].
func (t *Tokenizer) Offsets(text string, tokens []int) []int {
	offsets := make([]int, len(tokens)+1)
	pos := 0
	for i, tok := range tokens {
		offsets[i] = pos
		pos += len(t.tke.Decode([]int{tok}))
	}
	offsets[len(tokens)] = len(text)
	return offsets
}
