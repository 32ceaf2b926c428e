package tubechat

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liliang-cn/tubechat/pkg/config"
	"github.com/liliang-cn/tubechat/pkg/domain"
	"github.com/liliang-cn/tubechat/pkg/history"
	"github.com/liliang-cn/tubechat/pkg/ledger"
	"github.com/liliang-cn/tubechat/pkg/rag"
	"github.com/liliang-cn/tubechat/pkg/registry"
	"github.com/liliang-cn/tubechat/pkg/scraper"
)

// fakeBackend keeps stores and uploads in memory.
type fakeBackend struct {
	stores  map[string]domain.StoreHandle
	nextID  int
	uploads []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{stores: make(map[string]domain.StoreHandle)}
}

func (f *fakeBackend) CreateStore(_ context.Context, name string) (domain.StoreHandle, error) {
	f.nextID++
	h := domain.StoreHandle{ID: fmt.Sprintf("vs_%03d", f.nextID), DisplayName: name}
	f.stores[h.ID] = h
	return h, nil
}

func (f *fakeBackend) GetStore(_ context.Context, id string) (domain.StoreHandle, error) {
	h, ok := f.stores[id]
	if !ok {
		return domain.StoreHandle{}, fmt.Errorf("%w: %s", domain.ErrStoreNotFound, id)
	}
	return h, nil
}

func (f *fakeBackend) DeleteStore(_ context.Context, id string) error {
	delete(f.stores, id)
	return nil
}

func (f *fakeBackend) UploadDocument(_ context.Context, doc domain.Document, _ domain.StoreHandle) error {
	f.uploads = append(f.uploads, doc.ID)
	return nil
}

func (f *fakeBackend) ListDocuments(_ context.Context, _ string) ([]string, error) {
	return f.uploads, nil
}

func (f *fakeBackend) Generate(_ context.Context, _, _ string, _ []string) (*domain.GenerateResult, error) {
	return &domain.GenerateResult{Text: "ok"}, nil
}

// newTestApp builds an app over a fake backend with two transcripts
// already on disk, pointing the package-level config at a temp dir.
func newTestApp(t *testing.T) (*app, *fakeBackend) {
	t.Helper()

	dir := t.TempDir()
	prevCfg, prevSkip := cfg, skipScrape
	t.Cleanup(func() { cfg, skipScrape = prevCfg, prevSkip })
	cfg = &config.Config{
		DataDir:   dir,
		ConfigDir: dir,
		Chat:      config.ChatConfig{Model: "gpt-4o-mini", Collection: "youtube_transcripts"},
		Pricing:   config.PricingConfig{IndexingPer1M: 0.15, ContextPer1M: 0.075, OutputPer1M: 0.30},
	}

	require.NoError(t, os.MkdirAll(cfg.TranscriptsDir(), 0755))
	for _, name := range []string{"vid1_First_Video.txt", "vid2_Second_Video.txt"} {
		require.NoError(t, os.WriteFile(
			filepath.Join(cfg.TranscriptsDir(), name), []byte("transcript body"), 0644))
	}

	fb := newFakeBackend()
	led, err := ledger.New(cfg.CostsPath(), cfg.Pricing)
	require.NoError(t, err)
	hist, err := history.New(cfg.HistoryPath())
	require.NoError(t, err)
	reg, err := registry.New(cfg.StoreConfigPath(), fb)
	require.NoError(t, err)

	return &app{
		ledger:   led,
		history:  hist,
		registry: reg,
		backend:  fb,
		pipeline: rag.NewPipeline(reg, fb),
		engine:   rag.NewEngine(reg, fb),
		scraper:  scraper.New(cfg.TranscriptsDir(), time.Minute, "test"),
	}, fb
}

func TestSkipScrapeIndexesOnlyOnce(t *testing.T) {
	a, fb := newTestApp(t)
	skipScrape = true
	ctx := context.Background()

	// First run over existing transcripts indexes and bills them.
	require.NoError(t, a.prepareCollection(ctx))
	assert.Len(t, fb.uploads, 2)
	assert.Equal(t, 2, a.ledger.Summary().TotalTransactions)

	// A repeat run finds the binding and must not upload or bill again.
	require.NoError(t, a.prepareCollection(ctx))
	assert.Len(t, fb.uploads, 2)
	assert.Equal(t, 2, a.ledger.Summary().TotalTransactions)
	assert.Equal(t, 1, fb.nextID)
}

func TestSkipScrapeBillsAtIndexingRate(t *testing.T) {
	a, _ := newTestApp(t)
	skipScrape = true

	require.NoError(t, a.prepareCollection(context.Background()))

	// Two 15-byte transcripts, 3 tokens each at $0.15/1M.
	for _, tx := range a.ledger.Transactions() {
		assert.Equal(t, ledger.KindIndexing, tx.Kind)
		assert.Equal(t, int64(3), tx.Metadata.Tokens)
	}
}

func TestStoreFilesListsIndexedDocuments(t *testing.T) {
	a, _ := newTestApp(t)
	skipScrape = true
	ctx := context.Background()

	require.NoError(t, a.prepareCollection(ctx))

	files, err := a.storeFiles(ctx, cfg.Chat.Collection)
	require.NoError(t, err)
	assert.ElementsMatch(t,
		[]string{"vid1_First_Video.txt", "vid2_Second_Video.txt"}, files)

	_, err = a.storeFiles(ctx, "unbound")
	assert.ErrorIs(t, err, domain.ErrStoreNotFound)
}
