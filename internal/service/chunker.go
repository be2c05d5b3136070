package service

import (
	"fmt"

	"github.com/ragtune/ragtune/internal/domain"
)

// splitText cuts text into fixed-size overlapping windows. Sizes are
// measured in characters, not bytes, so multi-byte runes are never split
// mid-sequence. Each window is chunkSize characters, successive windows
// advance by chunkSize - overlap, and a final partial window is kept if
// non-empty. Concatenating the windows with the overlap removed
// reconstructs the text exactly.
func splitText(text string, chunkSize, overlap int) ([]string, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk_size %d: %w", chunkSize, domain.ErrInvalidRange)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("chunk_overlap %d for chunk_size %d: %w", overlap, chunkSize, domain.ErrInvalidRange)
	}
	runes := []rune(text)
	if len(runes) == 0 {
		return nil, nil
	}

	stride := chunkSize - overlap
	var windows []string
	for start := 0; start < len(runes); start += stride {
		end := start + chunkSize
		if end >= len(runes) {
			windows = append(windows, string(runes[start:]))
			break
		}
		windows = append(windows, string(runes[start:end]))
	}
	return windows, nil
}

// SplitDocument chunks one document into retrieval units, preserving the
// window order as the chunk index.
func SplitDocument(doc domain.Document, chunkSize, overlap int) ([]domain.Chunk, error) {
	windows, err := splitText(doc.Content, chunkSize, overlap)
	if err != nil {
		return nil, err
	}
	chunks := make([]domain.Chunk, len(windows))
	for i, w := range windows {
		chunks[i] = domain.Chunk{
			DocumentID: doc.ID,
			Index:      i,
			Content:    w,
		}
	}
	return chunks, nil
}
