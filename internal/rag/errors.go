package rag

import "errors"

var (
	// ErrConfig indicates invalid runtime configuration parameters.
	ErrConfig = errors.New("invalid configuration")

	// ErrGeneration indicates the language model call failed.
	ErrGeneration = errors.New("answer generation failed")

	// ErrRegistryInconsistency indicates the vector store and document
	// registry disagree: vectors were removed but the registry row
	// could not be deleted. Manual reconciliation is required.
	ErrRegistryInconsistency = errors.New("registry inconsistent with vector store")
)
