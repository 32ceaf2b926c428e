package rag

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/liliang-cn/tubechat/pkg/backend"
	"github.com/liliang-cn/tubechat/pkg/domain"
	"github.com/liliang-cn/tubechat/pkg/log"
	"github.com/liliang-cn/tubechat/pkg/registry"
)

// QueryResult is one grounded answer with the backend's own token
// accounting. Zero counts mean the backend reported no usage and the
// derived cost is an underestimate.
type QueryResult struct {
	Prompt       string   `json:"prompt"`
	Response     string   `json:"response"`
	InputTokens  int64    `json:"input_tokens"`
	OutputTokens int64    `json:"output_tokens"`
	Model        string   `json:"model"`
	Citations    []string `json:"citations,omitempty"`
}

// Engine answers natural-language prompts grounded in a collection's
// store. It performs no ledger or history writes; the caller prices
// the returned token counts and records both.
type Engine struct {
	registry *registry.Registry
	backend  backend.Backend
	logger   *slog.Logger
}

func NewEngine(reg *registry.Registry, b backend.Backend) *Engine {
	return &Engine{
		registry: reg,
		backend:  b,
		logger:   log.WithModule("query"),
	}
}

// Ask resolves the collection's store and generates an answer grounded
// in it. Any backend failure during generation surfaces as
// domain.ErrGenerationFailed with no side effects.
func (e *Engine) Ask(ctx context.Context, prompt, collection, model string) (*QueryResult, error) {
	if prompt == "" {
		return nil, fmt.Errorf("%w: empty prompt", domain.ErrInvalidInput)
	}

	store, err := e.registry.Resolve(ctx, collection)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("querying", "collection", collection, "model", model)

	gen, err := e.backend.Generate(ctx, prompt, model, []string{store.ID})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
	}

	return &QueryResult{
		Prompt:       prompt,
		Response:     gen.Text,
		InputTokens:  gen.InputTokens,
		OutputTokens: gen.OutputTokens,
		Model:        model,
		Citations:    gen.Citations,
	}, nil
}
