package domain

import "errors"

var (
	// ErrPersistenceCorrupt marks a store file that exists but does not
	// parse. The owning store recovers by starting empty and logging a
	// warning; it is never swallowed silently.
	ErrPersistenceCorrupt = errors.New("persisted store file is corrupt")

	// ErrStoreNotFound means a registered retrieval store identifier no
	// longer resolves on the backend.
	ErrStoreNotFound = errors.New("retrieval store not found")

	// ErrIngestDocumentFailed marks a single document that could not be
	// uploaded during an ingest batch. The batch continues.
	ErrIngestDocumentFailed = errors.New("document upload failed")

	// ErrGenerationFailed marks a query-time backend failure. No ledger
	// or history writes happen for the failed call.
	ErrGenerationFailed = errors.New("text generation failed")

	// ErrBackendUnreachable means store creation failed with no
	// fallback; the current top-level operation aborts.
	ErrBackendUnreachable = errors.New("retrieval backend unreachable")

	ErrInvalidInput = errors.New("invalid input")
)
