// Package backend abstracts the retrieval/generation service: vector
// stores for grounding, document upload, and grounded generation.
package backend

import (
	"context"

	"github.com/liliang-cn/tubechat/pkg/domain"
)

// Backend is the surface the registry, pipeline and query engine
// consume. Implementations block until the call completes; all
// timeouts come from the passed context.
type Backend interface {
	// CreateStore provisions a new retrieval store.
	CreateStore(ctx context.Context, name string) (domain.StoreHandle, error)

	// GetStore validates that an identifier still resolves. Returns
	// domain.ErrStoreNotFound when the backend no longer knows it.
	GetStore(ctx context.Context, id string) (domain.StoreHandle, error)

	// DeleteStore removes a store and its documents.
	DeleteStore(ctx context.Context, id string) error

	// UploadDocument registers one document into a store.
	UploadDocument(ctx context.Context, doc domain.Document, store domain.StoreHandle) error

	// ListDocuments returns the identifiers of the documents held in
	// a store, in the backend's listing order.
	ListDocuments(ctx context.Context, storeID string) ([]string, error)

	// Generate answers prompt grounded in the given stores. Token
	// counts in the result are zero when the backend reports no usage.
	Generate(ctx context.Context, prompt, model string, storeIDs []string) (*domain.GenerateResult, error)
}
