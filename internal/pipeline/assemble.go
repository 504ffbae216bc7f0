package pipeline

import (
	"fmt"
	"strings"

	"ragcompare/internal/domain"
)

const blockDelimiter = "\n\n---\n\n"

// Assemble renders ranked candidates into the context block handed to
// the generator. Candidate order is preserved; each block names its
// source and, when reranking produced one, its relevance score.
func Assemble(candidates []domain.RankedCandidate) string {
	if len(candidates) == 0 {
		return ""
	}
	blocks := make([]string, len(candidates))
	for i, c := range candidates {
		var b strings.Builder
		fmt.Fprintf(&b, "Source: %s", c.Payload.SourceID)
		if c.RelevanceScore != nil {
			fmt.Fprintf(&b, "\nRelevance Score: %.3f", *c.RelevanceScore)
		}
		b.WriteString("\n\n")
		b.WriteString(c.Payload.ContextText())
		blocks[i] = b.String()
	}
	return strings.Join(blocks, blockDelimiter)
}
