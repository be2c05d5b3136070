package domain

// Document is a source text in the evaluation corpus. Documents are treated
// as immutable once loaded; chunking and embedding never modify them.
type Document struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Chunk is a contiguous window of a document's text, the retrieval unit.
// Index is the zero-based position within the owning document's chunk
// sequence. Embedding is nil until the chunk is indexed; once set it is
// unit-L2-normalized and never mutated.
type Chunk struct {
	DocumentID string    `json:"document_id"`
	Index      int       `json:"index"`
	Content    string    `json:"content"`
	Embedding  []float32 `json:"-"`
}
