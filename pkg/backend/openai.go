package backend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/responses"
	"github.com/openai/openai-go/v2/shared"

	"github.com/liliang-cn/tubechat/pkg/auth"
	"github.com/liliang-cn/tubechat/pkg/domain"
)

// OpenAIBackend implements Backend on the OpenAI API: vector stores
// hold the transcripts and the Responses API with the file_search tool
// produces grounded answers.
type OpenAIBackend struct {
	client openai.Client
}

// NewOpenAIBackend builds a client from an already-resolved
// AuthContext. Credentials are never read from the environment here.
func NewOpenAIBackend(authCtx *auth.AuthContext) (*OpenAIBackend, error) {
	if authCtx == nil || authCtx.APIKey == "" {
		return nil, fmt.Errorf("%w: missing auth context", domain.ErrInvalidInput)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(authCtx.APIKey),
	}
	if authCtx.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(authCtx.BaseURL))
	}

	return &OpenAIBackend{client: openai.NewClient(opts...)}, nil
}

func (b *OpenAIBackend) CreateStore(ctx context.Context, name string) (domain.StoreHandle, error) {
	vs, err := b.client.VectorStores.New(ctx, openai.VectorStoreNewParams{
		Name: openai.String(name),
	})
	if err != nil {
		return domain.StoreHandle{}, fmt.Errorf("failed to create vector store %q: %w", name, err)
	}
	return domain.StoreHandle{ID: vs.ID, DisplayName: vs.Name}, nil
}

func (b *OpenAIBackend) GetStore(ctx context.Context, id string) (domain.StoreHandle, error) {
	vs, err := b.client.VectorStores.Get(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return domain.StoreHandle{}, fmt.Errorf("%w: %s", domain.ErrStoreNotFound, id)
		}
		return domain.StoreHandle{}, fmt.Errorf("failed to get vector store %s: %w", id, err)
	}
	return domain.StoreHandle{ID: vs.ID, DisplayName: vs.Name}, nil
}

func (b *OpenAIBackend) DeleteStore(ctx context.Context, id string) error {
	if _, err := b.client.VectorStores.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete vector store %s: %w", id, err)
	}
	return nil
}

func (b *OpenAIBackend) UploadDocument(ctx context.Context, doc domain.Document, store domain.StoreHandle) error {
	var params openai.FileNewParams
	if doc.Path != "" {
		f, err := os.Open(doc.Path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", doc.Path, err)
		}
		defer f.Close()
		params = openai.FileNewParams{
			File:    f,
			Purpose: openai.FilePurposeAssistants,
		}
	} else {
		name := doc.ID
		if filepath.Ext(name) == "" {
			name += ".txt"
		}
		params = openai.FileNewParams{
			File:    openai.File(strings.NewReader(doc.Content), name, "text/plain"),
			Purpose: openai.FilePurposeAssistants,
		}
	}

	file, err := b.client.Files.New(ctx, params)
	if err != nil {
		return fmt.Errorf("failed to upload file for %s: %w", doc.ID, err)
	}

	if _, err := b.client.VectorStores.Files.New(ctx, store.ID, openai.VectorStoreFileNewParams{
		FileID: file.ID,
	}); err != nil {
		return fmt.Errorf("failed to attach %s to store %s: %w", doc.ID, store.ID, err)
	}
	return nil
}

func (b *OpenAIBackend) ListDocuments(ctx context.Context, storeID string) ([]string, error) {
	page, err := b.client.VectorStores.Files.List(ctx, storeID, openai.VectorStoreFileListParams{})
	if err != nil {
		return nil, fmt.Errorf("failed to list files in store %s: %w", storeID, err)
	}

	var ids []string
	for page != nil {
		for _, f := range page.Data {
			ids = append(ids, f.ID)
		}
		page, err = page.GetNextPage()
		if err != nil {
			return nil, fmt.Errorf("failed to page files in store %s: %w", storeID, err)
		}
	}
	return ids, nil
}

func (b *OpenAIBackend) Generate(ctx context.Context, prompt, model string, storeIDs []string) (*domain.GenerateResult, error) {
	resp, err := b.client.Responses.New(ctx, responses.ResponseNewParams{
		Model: shared.ResponsesModel(model),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: openai.String(prompt),
		},
		Tools: []responses.ToolUnionParam{
			{
				OfFileSearch: &responses.FileSearchToolParam{
					VectorStoreIDs: storeIDs,
				},
			},
		},
	})
	if err != nil {
		return nil, err
	}

	result := &domain.GenerateResult{
		Text:         resp.OutputText(),
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}

	// File citations are best-effort; not every model reports them.
	for _, item := range resp.Output {
		if item.Type != "message" {
			continue
		}
		for _, part := range item.Content {
			for _, ann := range part.Annotations {
				if ann.Type == "file_citation" && ann.Filename != "" {
					result.Citations = append(result.Citations, ann.Filename)
				}
			}
		}
	}

	return result, nil
}

func isNotFound(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 404
	}
	return false
}
