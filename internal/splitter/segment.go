package splitter

import "strings"

// DefaultMinSentenceLen is the buffer length below which terminal
// punctuation does not end a sentence.
const DefaultMinSentenceLen = 20

// Segmenter splits text into sentences. Windowing and indexing depend
// only on this interface, so the boundary heuristic can be replaced
// without touching either.
type Segmenter interface {
	Segment(text string) []string
}

// PunctSegmenter scans characters and ends a sentence at '.', '!' or '?'
// once the accumulated buffer exceeds minLen runes. The length threshold
// suppresses false splits on short abbreviations, at the cost of
// mis-handling decimal numbers; it is a placeholder for a real
// segmentation algorithm. Trailing unterminated text is emitted as a
// final sentence.
type PunctSegmenter struct {
	minLen int
}

func NewPunctSegmenter(minLen int) *PunctSegmenter {
	if minLen < 0 {
		minLen = 0
	}
	return &PunctSegmenter{minLen: minLen}
}

func (s *PunctSegmenter) Segment(text string) []string {
	var sentences []string
	buf := make([]rune, 0, 128)
	for _, r := range text {
		buf = append(buf, r)
		if isTerminal(r) && len(buf) > s.minLen {
			if sent := strings.TrimSpace(string(buf)); sent != "" {
				sentences = append(sentences, sent)
			}
			buf = buf[:0]
		}
	}
	if sent := strings.TrimSpace(string(buf)); sent != "" {
		sentences = append(sentences, sent)
	}
	return sentences
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
