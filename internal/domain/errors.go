package domain

import "errors"

// Sentinel errors for data-level failures.
var (
	// ErrInvalidRange marks a malformed chunk size, overlap, or count.
	ErrInvalidRange = errors.New("parameter out of valid range")

	// ErrDimensionMismatch marks inconsistent embedding dimensionality
	// within one index.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrEmptyCorpus marks a document set that produced no chunks.
	ErrEmptyCorpus = errors.New("no chunks produced from documents")
)
