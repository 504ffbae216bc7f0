package domain

import (
	"strconv"

	"github.com/google/uuid"
)

// Document is a single text file loaded from the corpus directory.
// The filename is its source identifier.
type Document struct {
	SourceID string
	Path     string
	Text     string
}

// Chunk is a fixed-size contiguous segment of a document, the retrieval
// unit of the naive strategy.
type Chunk struct {
	SourceID string
	Text     string
	Index    int
	Total    int
}

// SentenceUnit is one sentence plus its surrounding context window, the
// retrieval unit of the advanced strategy. The sentence is what gets
// embedded; the window is what gets handed to the generator.
type SentenceUnit struct {
	SourceID string
	Sentence string
	Window   string
	Position int
	Total    int
}

// Payload is the metadata stored alongside each indexed vector.
type Payload struct {
	SourceID string `json:"source_id"`
	Position int    `json:"position"`
	Total    int    `json:"total"`
	Text     string `json:"text"`
	Window   string `json:"window,omitempty"`
}

// ContextText returns the text a candidate contributes to the generation
// context: the full window when one exists, the retrieval text otherwise.
func (p Payload) ContextText() string {
	if p.Window != "" {
		return p.Window
	}
	return p.Text
}

// IndexUnit is one retrieval unit ready for embedding and indexing.
type IndexUnit struct {
	ID        string
	EmbedText string
	Payload   Payload
}

// Candidate is a single similarity-search hit.
type Candidate struct {
	ID      string
	Score   float64
	Payload Payload
}

// RankedCandidate is a Candidate with an optional second-pass relevance
// score. RelevanceScore is nil when the candidate kept its original
// similarity order.
type RankedCandidate struct {
	Candidate
	RelevanceScore *float64
}

// RerankResult maps a reranked document back to its index in the input
// document sequence.
type RerankResult struct {
	Index          int
	RelevanceScore float64
}

// QueryResult is the structured output a pipeline returns to callers.
type QueryResult struct {
	Answer     string
	Candidates []RankedCandidate
}

// entryNamespace scopes the v5 UUIDs derived for index entries.
var entryNamespace = uuid.MustParse("9c0bd7f6-3c54-4a1c-9cb8-0f2a6f0d5c21")

// EntryID derives the index id for a unit of a source document as a
// name-based (v5) UUID. Ids are deterministic, so rebuilding the same
// corpus yields the same ids, and the UUID form is accepted as a point
// id by backends that restrict id types.
func EntryID(sourceID string, position int) string {
	return uuid.NewSHA1(entryNamespace, []byte(sourceID+":"+strconv.Itoa(position))).String()
}
