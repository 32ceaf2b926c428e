// Package ledger is the append-only record of priced API operations.
// Transactions are immutable once appended; the summary is recomputed
// from the full transaction sequence after every append, so reloading
// the file always reproduces it exactly.
package ledger

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/liliang-cn/tubechat/pkg/config"
	"github.com/liliang-cn/tubechat/pkg/log"
	"github.com/liliang-cn/tubechat/pkg/utils"
)

// Kind is the transaction type.
type Kind string

const (
	KindIndexing Kind = "indexing"
	KindQuery    Kind = "query"
)

// Metadata carries the kind-specific details of a transaction. Only
// the fields relevant to the kind are set; Extra is a free-form bag
// for forward-compatible additions.
type Metadata struct {
	Tokens        int64             `json:"tokens,omitempty"`
	InputTokens   int64             `json:"input_tokens,omitempty"`
	OutputTokens  int64             `json:"output_tokens,omitempty"`
	FileName      string            `json:"file_name,omitempty"`
	StoreName     string            `json:"store_name,omitempty"`
	PromptPreview string            `json:"prompt_preview,omitempty"`
	Extra         map[string]string `json:"extra,omitempty"`
}

// Transaction is one priced event. Created once, never mutated.
type Transaction struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Kind      Kind      `json:"type"`
	CostUSD   float64   `json:"cost_usd"`
	Metadata  Metadata  `json:"metadata"`
}

// KindSummary aggregates one transaction kind.
type KindSummary struct {
	Count     int     `json:"count"`
	TotalCost float64 `json:"total_cost"`
}

// Summary is the derived aggregate over all transactions.
type Summary struct {
	TotalCost         float64              `json:"total_cost"`
	TotalTransactions int                  `json:"total_transactions"`
	ByKind            map[Kind]KindSummary `json:"by_type"`
	LastUpdated       time.Time            `json:"last_updated"`
}

type ledgerFile struct {
	Transactions []Transaction `json:"transactions"`
	Summary      Summary       `json:"summary"`
}

// Store is the file-backed transaction ledger. Not safe for concurrent
// use; the process owns the file exclusively.
type Store struct {
	path    string
	pricing config.PricingConfig
	data    ledgerFile
	logger  *slog.Logger
}

// New loads the ledger from path, creating an empty one if the file
// does not exist. A file that exists but fails to parse is treated as
// empty with a logged warning; it is overwritten on the next append.
func New(path string, pricing config.PricingConfig) (*Store, error) {
	s := &Store{
		path:    path,
		pricing: pricing,
		logger:  log.WithModule("ledger"),
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger %s: %w", path, err)
	}

	if err := json.Unmarshal(raw, &s.data); err != nil {
		s.logger.Warn("ledger file is corrupt, starting fresh",
			"path", path, "error", err)
		s.data = ledgerFile{}
	}
	return s, nil
}

// Record prices units at rate, rounds to 6 decimals and appends the
// transaction. Zero units are legal and still recorded for audit
// completeness. Only a persistence failure makes this return an error.
func (s *Store) Record(kind Kind, units int64, rate float64, meta Metadata) (Transaction, error) {
	return s.record(kind, float64(units)*rate, meta)
}

// RecordIndexing appends an indexing transaction priced at the
// configured indexing rate.
func (s *Store) RecordIndexing(tokens int64, fileName, storeName string) (Transaction, error) {
	return s.record(KindIndexing, float64(tokens)*s.pricing.IndexingRate(), Metadata{
		Tokens:    tokens,
		FileName:  fileName,
		StoreName: storeName,
	})
}

// RecordQuery appends a query transaction priced at the configured
// context and output rates.
func (s *Store) RecordQuery(inputTokens, outputTokens int64, prompt string) (Transaction, error) {
	cost := float64(inputTokens)*s.pricing.ContextRate() +
		float64(outputTokens)*s.pricing.OutputRate()
	return s.record(KindQuery, cost, Metadata{
		InputTokens:   inputTokens,
		OutputTokens:  outputTokens,
		PromptPreview: truncate(prompt, 100),
	})
}

func (s *Store) record(kind Kind, cost float64, meta Metadata) (Transaction, error) {
	tx := Transaction{
		ID:        uuid.New().String(),
		Timestamp: time.Now(),
		Kind:      kind,
		CostUSD:   round6(cost),
		Metadata:  meta,
	}

	s.data.Transactions = append(s.data.Transactions, tx)
	s.data.Summary = summarize(s.data.Transactions)

	if err := s.save(); err != nil {
		return Transaction{}, err
	}
	return tx, nil
}

// summarize folds the full transaction sequence into a Summary. Always
// recomputed from scratch so the cached value can never drift from the
// sequence it describes.
func summarize(txs []Transaction) Summary {
	sum := Summary{
		TotalTransactions: len(txs),
		ByKind:            make(map[Kind]KindSummary),
		LastUpdated:       time.Now(),
	}
	for _, tx := range txs {
		sum.TotalCost += tx.CostUSD
		ks := sum.ByKind[tx.Kind]
		ks.Count++
		ks.TotalCost += tx.CostUSD
		sum.ByKind[tx.Kind] = ks
	}
	sum.TotalCost = round6(sum.TotalCost)
	for k, ks := range sum.ByKind {
		ks.TotalCost = round6(ks.TotalCost)
		sum.ByKind[k] = ks
	}
	return sum
}

// TotalCost returns the all-time total in USD.
func (s *Store) TotalCost() float64 {
	return s.data.Summary.TotalCost
}

// Summary returns the current derived summary.
func (s *Store) Summary() Summary {
	return s.data.Summary
}

// Transactions returns a copy of the recorded transaction sequence in
// append order.
func (s *Store) Transactions() []Transaction {
	out := make([]Transaction, len(s.data.Transactions))
	copy(out, s.data.Transactions)
	return out
}

// IndexingEstimate previews what indexing a corpus of the given size
// would cost before committing to it.
type IndexingEstimate struct {
	TotalTokens     int64   `json:"total_tokens"`
	IndexingCostUSD float64 `json:"indexing_cost_usd"`
	StorageCostUSD  float64 `json:"storage_cost_usd"`
	TotalCostUSD    float64 `json:"total_cost_usd"`
}

// EstimateIndexing prices totalTokens at the indexing rate. Storage is
// currently free on the backend and reported as zero.
func (s *Store) EstimateIndexing(totalTokens int64) IndexingEstimate {
	indexing := round6(float64(totalTokens) * s.pricing.IndexingRate())
	return IndexingEstimate{
		TotalTokens:     totalTokens,
		IndexingCostUSD: indexing,
		StorageCostUSD:  0,
		TotalCostUSD:    indexing,
	}
}

func (s *Store) save() error {
	data, err := json.MarshalIndent(&s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal ledger: %w", err)
	}
	return utils.AtomicWriteFile(s.path, data, 0644)
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
