package ingest

import "errors"

var (
	// ErrChunkRepositoryRequired is returned when a chunk repository is not provided.
	ErrChunkRepositoryRequired = errors.New("chunk repository required")

	// ErrJobRepositoryRequired is returned when a job repository is not provided.
	ErrJobRepositoryRequired = errors.New("job repository required")

	// ErrBlobRepositoryRequired is returned when a blob repository is not provided.
	ErrBlobRepositoryRequired = errors.New("blob repository required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrPolicyRequired is returned when a tenant policy is not provided.
	ErrPolicyRequired = errors.New("tenant policy required")

	// ErrEmptyDocument is returned when a submitted document has no content.
	ErrEmptyDocument = errors.New("document is empty")

	// ErrDocumentTooLarge is returned when a submitted document exceeds the
	// tenant's size policy.
	ErrDocumentTooLarge = errors.New("document exceeds size limit")
)
