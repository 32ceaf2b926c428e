// Package registry maps logical collection names to retrieval-store
// identifiers and keeps the mapping durable across runs. Each name is
// bound to at most one live store: bindings are revalidated on every
// use and overwritten in place when stale, never duplicated.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/liliang-cn/tubechat/pkg/backend"
	"github.com/liliang-cn/tubechat/pkg/domain"
	"github.com/liliang-cn/tubechat/pkg/log"
	"github.com/liliang-cn/tubechat/pkg/utils"
)

// Binding is one collection-name → store-identifier entry.
type Binding struct {
	StoreID     string    `json:"store_id"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// Registry persists bindings to store_config.json.
type Registry struct {
	path     string
	backend  backend.Backend
	bindings map[string]Binding
	logger   *slog.Logger
}

// New loads the binding file. Missing means empty; corrupt means empty
// with a logged warning.
func New(path string, b backend.Backend) (*Registry, error) {
	r := &Registry{
		path:     path,
		backend:  b,
		bindings: make(map[string]Binding),
		logger:   log.WithModule("registry"),
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read store config %s: %w", path, err)
	}

	if err := json.Unmarshal(raw, &r.bindings); err != nil {
		r.logger.Warn("store config is corrupt, starting fresh",
			"path", path, "error", err)
		r.bindings = make(map[string]Binding)
	}
	return r, nil
}

// Resolve returns a live store handle for the collection, creating one
// if none is bound or the bound one no longer exists. Repeated calls
// with the same name converge on a single identifier, including across
// process restarts. A validation failure of any kind degrades to
// "assume stale, recreate"; only creation failure is fatal.
func (r *Registry) Resolve(ctx context.Context, collection string) (domain.StoreHandle, error) {
	if bound, ok := r.bindings[collection]; ok {
		handle, err := r.backend.GetStore(ctx, bound.StoreID)
		if err == nil {
			return handle, nil
		}
		r.logger.Warn("bound store no longer resolves, recreating",
			"collection", collection, "store_id", bound.StoreID, "error", err)
	}

	handle, err := r.backend.CreateStore(ctx, collection)
	if err != nil {
		return domain.StoreHandle{}, fmt.Errorf("%w: creating store for %q: %v",
			domain.ErrBackendUnreachable, collection, err)
	}

	r.bindings[collection] = Binding{
		StoreID:     handle.ID,
		DisplayName: collection,
		CreatedAt:   time.Now(),
	}
	if err := r.save(); err != nil {
		return domain.StoreHandle{}, err
	}

	r.logger.Info("created retrieval store",
		"collection", collection, "store_id", handle.ID)
	return handle, nil
}

// Forget deletes the backend store best-effort and removes the local
// binding either way.
func (r *Registry) Forget(ctx context.Context, collection string) error {
	bound, ok := r.bindings[collection]
	if !ok {
		return fmt.Errorf("%w: no binding for collection %q", domain.ErrStoreNotFound, collection)
	}

	if err := r.backend.DeleteStore(ctx, bound.StoreID); err != nil {
		r.logger.Warn("backend delete failed, removing local binding anyway",
			"collection", collection, "store_id", bound.StoreID, "error", err)
	}

	delete(r.bindings, collection)
	return r.save()
}

// Info returns the persisted binding without touching the backend.
func (r *Registry) Info(collection string) (Binding, bool) {
	b, ok := r.bindings[collection]
	return b, ok
}

// Collections lists the bound collection names.
func (r *Registry) Collections() []string {
	names := make([]string, 0, len(r.bindings))
	for name := range r.bindings {
		names = append(names, name)
	}
	return names
}

func (r *Registry) save() error {
	return utils.WriteJSONFile(r.path, r.bindings)
}
