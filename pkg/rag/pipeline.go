// Package rag turns scraped transcripts into queryable retrieval state
// and answers grounded questions against it. Billing stays with the
// caller: the pipeline reports estimated units and the engine reports
// token usage, so pricing can change without touching either path.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/liliang-cn/tubechat/pkg/backend"
	"github.com/liliang-cn/tubechat/pkg/domain"
	"github.com/liliang-cn/tubechat/pkg/log"
	"github.com/liliang-cn/tubechat/pkg/registry"
)

// UploadedFile is one successfully ingested document.
type UploadedFile struct {
	ID              string `json:"id"`
	Path            string `json:"path,omitempty"`
	EstimatedTokens int64  `json:"estimated_tokens"`
}

// UploadError is one document that could not be ingested.
type UploadError struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// IngestResult summarizes one ingest batch. Partial failure is
// expected; Errors lists what was skipped.
type IngestResult struct {
	StoreID     string         `json:"store_id"`
	Uploaded    int            `json:"uploaded"`
	Attempted   int            `json:"attempted"`
	TotalTokens int64          `json:"total_tokens"`
	Files       []UploadedFile `json:"files"`
	Errors      []UploadError  `json:"errors"`
}

// Pipeline registers documents into the retrieval store for a
// collection. It does not write to the ledger; the caller prices each
// successful upload from the per-file estimates in the result.
type Pipeline struct {
	registry *registry.Registry
	backend  backend.Backend
	logger   *slog.Logger
}

func NewPipeline(reg *registry.Registry, b backend.Backend) *Pipeline {
	return &Pipeline{
		registry: reg,
		backend:  b,
		logger:   log.WithModule("ingest"),
	}
}

// Ingest uploads documents in input order into the collection's store.
// A per-document failure is recorded and the batch continues; only a
// store-resolution failure aborts the whole batch.
func (p *Pipeline) Ingest(ctx context.Context, docs []domain.Document, collection string) (*IngestResult, error) {
	store, err := p.registry.Resolve(ctx, collection)
	if err != nil {
		return nil, err
	}

	result := &IngestResult{
		StoreID:   store.ID,
		Attempted: len(docs),
	}

	for _, doc := range docs {
		tokens, err := p.estimateTokens(doc)
		if err == nil {
			err = p.backend.UploadDocument(ctx, doc, store)
		}
		if err != nil {
			p.logger.Warn("skipping document",
				"id", doc.ID, "error", err)
			result.Errors = append(result.Errors, UploadError{
				ID:     doc.ID,
				Reason: fmt.Errorf("%w: %v", domain.ErrIngestDocumentFailed, err).Error(),
			})
			continue
		}

		result.Uploaded++
		result.TotalTokens += tokens
		result.Files = append(result.Files, UploadedFile{
			ID:              doc.ID,
			Path:            doc.Path,
			EstimatedTokens: tokens,
		})
	}

	p.logger.Info("ingest complete",
		"collection", collection,
		"uploaded", result.Uploaded,
		"attempted", result.Attempted,
		"estimated_tokens", result.TotalTokens)
	return result, nil
}

// estimateTokens sizes a document in billable units: byte length over
// four, from the file when the document lives on disk.
func (p *Pipeline) estimateTokens(doc domain.Document) (int64, error) {
	if doc.Path != "" {
		info, err := os.Stat(doc.Path)
		if err != nil {
			return 0, err
		}
		return domain.EstimateTokens(info.Size()), nil
	}
	return domain.EstimateTokens(int64(len(doc.Content))), nil
}
