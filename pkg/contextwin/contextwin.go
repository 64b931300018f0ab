// Package contextwin assembles retrieved chunks into a bounded context
// string for the LLM call, plus citation metadata for source references.
package contextwin

import (
	"strings"

	"github.com/papercomputeco/ragify/pkg/tokenizer"
	"github.com/papercomputeco/ragify/pkg/vector"
)

// Citation points at one included chunk, in inclusion order.
type Citation struct {
	DocumentID string `json:"document_id"`
	Seq        int    `json:"seq"`
}

// segment is a run of one or more merged adjacent chunks from one document.
type segment struct {
	documentID string
	minSeq     int
	maxSeq     int
	start      int
	end        int
	text       string
	tokens     int
}

// Assembler builds context strings within a token budget. It shares the
// pipeline's tokenizer so budget accounting agrees with chunk sizing.
type Assembler struct {
	tok *tokenizer.Tokenizer
}

// New creates an Assembler.
func New(tok *tokenizer.Tokenizer) *Assembler {
	return &Assembler{tok: tok}
}

// Assemble greedily includes results in the given order (descending score)
// until the next chunk would exceed budget, then stops. Chunks are included
// whole or not at all. Adjacent chunks of the same document are merged
// using their byte offsets, so the overlap region is never repeated.
func (a *Assembler) Assemble(results []vector.Result, budget int) (string, []Citation) {
	var (
		segments  []segment
		citations []Citation
		total     int
	)

	for _, res := range results {
		merged := false

		for i := range segments {
			seg := &segments[i]
			if seg.documentID != res.DocumentID {
				continue
			}

			var candidate segment
			switch {
			case res.Seq == seg.maxSeq+1 && res.Start <= seg.end:
				candidate = *seg
				candidate.maxSeq = res.Seq
				candidate.end = res.End
				candidate.text = seg.text + res.Text[seg.end-res.Start:]
			case res.Seq == seg.minSeq-1 && res.End >= seg.start:
				candidate = *seg
				candidate.minSeq = res.Seq
				candidate.start = res.Start
				candidate.text = res.Text + seg.text[res.End-seg.start:]
			default:
				continue
			}

			candidate.tokens = a.tok.Count(candidate.text)
			delta := candidate.tokens - seg.tokens
			if total+delta > budget {
				return render(segments), citations
			}

			total += delta
			*seg = candidate
			citations = append(citations, Citation{DocumentID: res.DocumentID, Seq: res.Seq})
			merged = true
			break
		}
		if merged {
			continue
		}

		tokens := res.TokenCount
		if tokens == 0 {
			tokens = a.tok.Count(res.Text)
		}
		if total+tokens > budget {
			return render(segments), citations
		}

		total += tokens
		segments = append(segments, segment{
			documentID: res.DocumentID,
			minSeq:     res.Seq,
			maxSeq:     res.Seq,
			start:      res.Start,
			end:        res.End,
			text:       res.Text,
			tokens:     tokens,
		})
		citations = append(citations, Citation{DocumentID: res.DocumentID, Seq: res.Seq})
	}

	return render(segments), citations
}

func render(segments []segment) string {
	parts := make([]string, len(segments))
	for i, seg := range segments {
		parts[i] = seg.text
	}
	return strings.Join(parts, "\n\n")
}
