package tubechat

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/liliang-cn/tubechat/pkg/auth"
	"github.com/liliang-cn/tubechat/pkg/backend"
	"github.com/liliang-cn/tubechat/pkg/domain"
	"github.com/liliang-cn/tubechat/pkg/history"
	"github.com/liliang-cn/tubechat/pkg/ledger"
	"github.com/liliang-cn/tubechat/pkg/log"
	"github.com/liliang-cn/tubechat/pkg/rag"
	"github.com/liliang-cn/tubechat/pkg/registry"
	"github.com/liliang-cn/tubechat/pkg/scraper"
)

// app wires the persisted stores and, when withBackend is set, the
// retrieval pipeline and query engine on top of them.
type app struct {
	ledger   *ledger.Store
	history  *history.Store
	registry *registry.Registry
	backend  backend.Backend
	pipeline *rag.Pipeline
	engine   *rag.Engine
	scraper  *scraper.Scraper
}

// newApp opens the local stores. Backend credentials are only resolved
// when the command actually talks to the API, so cost and history
// reporting work offline.
func newApp(withBackend bool) (*app, error) {
	led, err := ledger.New(cfg.CostsPath(), cfg.Pricing)
	if err != nil {
		return nil, err
	}
	hist, err := history.New(cfg.HistoryPath())
	if err != nil {
		return nil, err
	}

	a := &app{ledger: led, history: hist}
	if !withBackend {
		return a, nil
	}

	authCtx, err := auth.Resolve(cfg)
	if err != nil {
		return nil, err
	}
	log.Info("authenticated", "method", authCtx.Method)

	be, err := backend.NewOpenAIBackend(authCtx)
	if err != nil {
		return nil, err
	}
	reg, err := registry.New(cfg.StoreConfigPath(), be)
	if err != nil {
		return nil, err
	}

	a.registry = reg
	a.backend = be
	a.pipeline = rag.NewPipeline(reg, be)
	a.engine = rag.NewEngine(reg, be)
	a.scraper = scraper.New(cfg.TranscriptsDir(), cfg.Scraper.Timeout, cfg.Scraper.UserAgent)
	return a, nil
}

func runChat(ctx context.Context) error {
	batch := len(prompts) > 0

	if channelURL == "" {
		if batch {
			return fmt.Errorf("--channel is required in batch mode")
		}
		fmt.Print("Enter YouTube channel URL: ")
		scanner := bufio.NewScanner(os.Stdin)
		if scanner.Scan() {
			channelURL = strings.TrimSpace(scanner.Text())
		}
		if channelURL == "" {
			return fmt.Errorf("channel URL is required")
		}
	}

	a, err := newApp(true)
	if err != nil {
		return err
	}

	if err := a.prepareCollection(ctx); err != nil {
		return err
	}

	if batch {
		return a.runBatch(ctx)
	}
	return a.runInteractive(ctx)
}

// prepareCollection scrapes the channel (unless skipped) and indexes
// the transcripts, recording one indexing transaction per uploaded
// file.
func (a *app) prepareCollection(ctx context.Context) error {
	var docs []domain.Document

	if skipScrape {
		fmt.Println("Skipping scraping, using existing transcripts...")
		// Transcripts indexed on a previous run stay indexed; uploading
		// them again would duplicate documents in the store and append
		// fresh indexing transactions to the ledger.
		if binding, ok := a.registry.Info(cfg.Chat.Collection); ok {
			fmt.Printf("Collection %q is already indexed (store %s), skipping upload.\n\n",
				cfg.Chat.Collection, binding.StoreID)
			return nil
		}
		paths, err := a.scraper.SavedTranscripts()
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			return fmt.Errorf("no existing transcripts under %s", a.scraper.DataDir())
		}
		for _, p := range paths {
			docs = append(docs, domain.Document{ID: filepath.Base(p), Path: p})
		}
	} else {
		result, err := a.scraper.ScrapeChannel(ctx, channelURL, numVideos)
		if err != nil {
			return err
		}
		fmt.Printf("Videos found: %d, transcripts saved: %d\n",
			result.VideosFound, result.TranscriptsSaved)
		if result.TranscriptsSaved == 0 {
			return fmt.Errorf("no transcripts were saved, cannot proceed")
		}
		for _, f := range result.Files {
			docs = append(docs, domain.Document{ID: filepath.Base(f.Path), Path: f.Path})
		}
	}

	ingest, err := a.pipeline.Ingest(ctx, docs, cfg.Chat.Collection)
	if err != nil {
		return err
	}
	fmt.Printf("Uploaded %d/%d documents (%d estimated tokens)\n",
		ingest.Uploaded, ingest.Attempted, ingest.TotalTokens)
	for _, e := range ingest.Errors {
		fmt.Printf("  skipped %s: %s\n", e.ID, e.Reason)
	}

	for _, f := range ingest.Files {
		if _, err := a.ledger.RecordIndexing(f.EstimatedTokens, f.ID, cfg.Chat.Collection); err != nil {
			return err
		}
	}

	est := a.ledger.EstimateIndexing(ingest.TotalTokens)
	fmt.Printf("Estimated indexing cost: $%.6f USD (storage free)\n\n", est.IndexingCostUSD)
	return nil
}

func (a *app) runInteractive(ctx context.Context) error {
	fmt.Println("Chat mode: ask questions about the video transcripts.")
	fmt.Println("Type 'quit' to exit, 'cost' for a cost summary, 'history' for recent turns.")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("\nYou: ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())

		switch strings.ToLower(input) {
		case "":
			continue
		case "quit", "exit", "q":
			fmt.Println("Goodbye!")
			return nil
		case "cost":
			printCostReport(a.ledger)
			continue
		case "history":
			printRecent(a.history, 5)
			continue
		}

		if err := a.answer(ctx, input); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
}

func (a *app) runBatch(ctx context.Context) error {
	for i, prompt := range prompts {
		fmt.Printf("\n[%d/%d] Prompt: %s\n", i+1, len(prompts), prompt)
		if err := a.answer(ctx, prompt); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}

	fmt.Println()
	printCostReport(a.ledger)
	return nil
}

// answer runs one prompt end to end: grounded generation, then a query
// transaction, then a history entry carrying that transaction's cost.
// A failed generation writes nothing.
func (a *app) answer(ctx context.Context, prompt string) error {
	result, err := a.engine.Ask(ctx, prompt, cfg.Chat.Collection, cfg.Chat.Model)
	if err != nil {
		return err
	}

	fmt.Printf("\nAssistant: %s\n", result.Response)
	fmt.Printf("[Tokens - input: %d, output: %d]\n", result.InputTokens, result.OutputTokens)

	tx, err := a.ledger.RecordQuery(result.InputTokens, result.OutputTokens, prompt)
	if err != nil {
		return err
	}

	return a.history.Append(prompt, result.Response, tx.CostUSD, result.Model,
		result.InputTokens, result.OutputTokens, channelURL, nil)
}
