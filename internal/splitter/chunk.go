package splitter

import (
	"strings"

	"ragcompare/internal/domain"
)

// ChunkSplitter accumulates paragraphs greedily into fixed-size chunks,
// the segmentation of the naive strategy. chunkSize is a soft bound: a
// single paragraph longer than chunkSize is emitted whole rather than
// force-split. chunkOverlap duplicates the trailing paragraphs of each
// chunk into the next one, up to chunkOverlap characters; paragraphs are
// never split to fit the overlap budget, so a trailing paragraph larger
// than the budget carries nothing over.
type ChunkSplitter struct {
	chunkSize    int
	chunkOverlap int
}

func NewChunkSplitter(chunkSize, chunkOverlap int) *ChunkSplitter {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 2
	}
	return &ChunkSplitter{chunkSize: chunkSize, chunkOverlap: chunkOverlap}
}

// Split segments text into ordered chunks for the given source document.
func (s *ChunkSplitter) Split(sourceID, text string) []domain.Chunk {
	paragraphs := splitParagraphs(text)
	if len(paragraphs) == 0 {
		return nil
	}

	var texts []string
	var buf []string
	bufLen := 0 // length of strings.Join(buf, "\n\n")
	seeded := 0 // leading paragraphs of buf carried over as overlap

	for _, para := range paragraphs {
		// Emit the running buffer once appending would exceed the soft
		// bound, but never emit a buffer that holds only carried-over
		// overlap: that would duplicate a chunk without new content.
		if len(buf) > seeded && bufLen+2+len(para) > s.chunkSize {
			texts = append(texts, strings.Join(buf, "\n\n"))
			buf, bufLen = s.overlapTail(buf)
			seeded = len(buf)
		}
		if len(buf) > 0 {
			bufLen += 2
		}
		buf = append(buf, para)
		bufLen += len(para)
	}
	if len(buf) > seeded {
		texts = append(texts, strings.Join(buf, "\n\n"))
	}

	chunks := make([]domain.Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = domain.Chunk{
			SourceID: sourceID,
			Text:     t,
			Index:    i,
			Total:    len(texts),
		}
	}
	return chunks
}

// Units implements domain.UnitSplitter for the naive strategy: the chunk
// text is both the embedded text and the stored payload text.
func (s *ChunkSplitter) Units(doc domain.Document) []domain.IndexUnit {
	chunks := s.Split(doc.SourceID, doc.Text)
	units := make([]domain.IndexUnit, len(chunks))
	for i, ch := range chunks {
		units[i] = domain.IndexUnit{
			ID:        domain.EntryID(ch.SourceID, ch.Index),
			EmbedText: ch.Text,
			Payload: domain.Payload{
				SourceID: ch.SourceID,
				Position: ch.Index,
				Total:    ch.Total,
				Text:     ch.Text,
			},
		}
	}
	return units
}

// overlapTail returns the trailing paragraphs of buf fitting within the
// overlap budget, together with their joined length.
func (s *ChunkSplitter) overlapTail(buf []string) ([]string, int) {
	if s.chunkOverlap == 0 {
		return nil, 0
	}
	var tail []string
	tailLen := 0
	for i := len(buf) - 1; i >= 0; i-- {
		add := len(buf[i])
		if len(tail) > 0 {
			add += 2
		}
		if tailLen+add > s.chunkOverlap {
			break
		}
		tail = append([]string{buf[i]}, tail...)
		tailLen += add
	}
	return tail, tailLen
}

func splitParagraphs(text string) []string {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	parts := strings.Split(normalized, "\n\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
