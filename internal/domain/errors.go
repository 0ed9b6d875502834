package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput signals a request that cannot be processed as given.
	ErrInvalidInput = errors.New("invalid input")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")

	// ErrCollaboratorUnavailable signals a failed corpus, search or generation call.
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
	// ErrMalformedOutput signals generator output that does not match the response schema.
	ErrMalformedOutput = errors.New("malformed generator output")
	// ErrUnknownScenario signals a scenario identifier outside the registry.
	ErrUnknownScenario = errors.New("unknown scenario")

	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrGenerationProviderError signals a generation provider failure.
	ErrGenerationProviderError = errors.New("generation provider error")
)

// CollaboratorError tags a collaborator failure with the collaborator name.
type CollaboratorError struct {
	Collaborator string
	Err          error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrCollaboratorUnavailable.Error(), e.Collaborator, e.Err)
}

func (e *CollaboratorError) Unwrap() []error { return []error{ErrCollaboratorUnavailable, e.Err} }

// NewCollaboratorError wraps err as a collaborator failure.
func NewCollaboratorError(collaborator string, err error) error {
	return &CollaboratorError{Collaborator: collaborator, Err: err}
}
