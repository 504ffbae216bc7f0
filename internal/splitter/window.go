package splitter

import (
	"strings"

	"ragcompare/internal/domain"
)

// SentenceWindower builds one SentenceUnit per sentence, pairing it with
// the space-joined concatenation of its neighbours within windowSize
// sentences on each side. Windows are symmetric except at document
// boundaries, where they are truncated rather than padded.
type SentenceWindower struct {
	segmenter  Segmenter
	windowSize int
}

func NewSentenceWindower(segmenter Segmenter, windowSize int) *SentenceWindower {
	if windowSize < 0 {
		windowSize = 0
	}
	return &SentenceWindower{segmenter: segmenter, windowSize: windowSize}
}

// Window segments text into sentences and returns one unit per sentence.
func (w *SentenceWindower) Window(sourceID, text string) []domain.SentenceUnit {
	sentences := w.segmenter.Segment(text)
	n := len(sentences)
	units := make([]domain.SentenceUnit, 0, n)
	for i, sentence := range sentences {
		start := i - w.windowSize
		if start < 0 {
			start = 0
		}
		end := i + w.windowSize + 1
		if end > n {
			end = n
		}
		units = append(units, domain.SentenceUnit{
			SourceID: sourceID,
			Sentence: sentence,
			Window:   strings.Join(sentences[start:end], " "),
			Position: i,
			Total:    n,
		})
	}
	return units
}

// Units implements domain.UnitSplitter for the advanced strategy: the
// short sentence is embedded for retrieval precision while the window is
// stored in the payload for generation.
func (w *SentenceWindower) Units(doc domain.Document) []domain.IndexUnit {
	sws := w.Window(doc.SourceID, doc.Text)
	units := make([]domain.IndexUnit, len(sws))
	for i, sw := range sws {
		units[i] = domain.IndexUnit{
			ID:        domain.EntryID(sw.SourceID, sw.Position),
			EmbedText: sw.Sentence,
			Payload: domain.Payload{
				SourceID: sw.SourceID,
				Position: sw.Position,
				Total:    sw.Total,
				Text:     sw.Sentence,
				Window:   sw.Window,
			},
		}
	}
	return units
}
