package ledger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liliang-cn/tubechat/pkg/config"
)

func testPricing() config.PricingConfig {
	return config.PricingConfig{
		IndexingPer1M: 0.15,
		ContextPer1M:  0.075,
		OutputPer1M:   0.30,
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "costs.json"), testPricing())
	require.NoError(t, err)
	return s
}

func TestRecordIndexingPricing(t *testing.T) {
	s := newTestStore(t)

	tx, err := s.RecordIndexing(1_000_000, "video.txt", "youtube_transcripts")
	require.NoError(t, err)

	assert.Equal(t, KindIndexing, tx.Kind)
	assert.Equal(t, 0.15, tx.CostUSD)
	assert.Equal(t, int64(1_000_000), tx.Metadata.Tokens)
	assert.Equal(t, "video.txt", tx.Metadata.FileName)
	assert.NotEmpty(t, tx.ID)
}

func TestRecordQueryPricing(t *testing.T) {
	s := newTestStore(t)

	tx, err := s.RecordQuery(1000, 500, "what is discussed about AI?")
	require.NoError(t, err)

	// (1000*0.075 + 500*0.30) / 1e6
	assert.Equal(t, 0.000225, tx.CostUSD)
	assert.Equal(t, KindQuery, tx.Kind)
	assert.Equal(t, int64(1000), tx.Metadata.InputTokens)
	assert.Equal(t, int64(500), tx.Metadata.OutputTokens)
}

func TestRecordZeroUnits(t *testing.T) {
	s := newTestStore(t)

	tx, err := s.Record(KindIndexing, 0, 0.15/1e6, Metadata{FileName: "empty.txt"})
	require.NoError(t, err)

	assert.Equal(t, 0.0, tx.CostUSD)
	assert.Equal(t, 1, s.Summary().TotalTransactions)
}

func TestPromptPreviewTruncated(t *testing.T) {
	s := newTestStore(t)

	long := strings.Repeat("x", 500)
	tx, err := s.RecordQuery(10, 10, long)
	require.NoError(t, err)

	assert.Len(t, tx.Metadata.PromptPreview, 100)
}

func TestSummaryIsFoldOfTransactions(t *testing.T) {
	s := newTestStore(t)

	_, err := s.RecordIndexing(200_000, "a.txt", "store")
	require.NoError(t, err)
	_, err = s.RecordIndexing(300_000, "b.txt", "store")
	require.NoError(t, err)
	_, err = s.RecordQuery(1000, 500, "q1")
	require.NoError(t, err)
	_, err = s.RecordQuery(2000, 1000, "q2")
	require.NoError(t, err)

	var want float64
	byKind := map[Kind]float64{}
	for _, tx := range s.Transactions() {
		want += tx.CostUSD
		byKind[tx.Kind] += tx.CostUSD
	}

	sum := s.Summary()
	assert.Equal(t, round6(want), sum.TotalCost)
	assert.Equal(t, 4, sum.TotalTransactions)
	assert.Equal(t, 2, sum.ByKind[KindIndexing].Count)
	assert.Equal(t, 2, sum.ByKind[KindQuery].Count)
	assert.Equal(t, round6(byKind[KindIndexing]), sum.ByKind[KindIndexing].TotalCost)
	assert.Equal(t, round6(byKind[KindQuery]), sum.ByKind[KindQuery].TotalCost)
	assert.Equal(t, sum.TotalCost, s.TotalCost())
}

func TestSummarySurvivesReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "costs.json")

	s, err := New(path, testPricing())
	require.NoError(t, err)
	_, err = s.RecordIndexing(123_456, "a.txt", "store")
	require.NoError(t, err)
	_, err = s.RecordQuery(777, 333, "reload me")
	require.NoError(t, err)
	want := s.Summary()

	reloaded, err := New(path, testPricing())
	require.NoError(t, err)

	// Recomputing from the persisted sequence must agree with the
	// persisted summary exactly.
	recomputed := summarize(reloaded.Transactions())
	assert.Equal(t, want.TotalCost, recomputed.TotalCost)
	assert.Equal(t, want.TotalTransactions, recomputed.TotalTransactions)
	assert.Equal(t, want.ByKind, recomputed.ByKind)
	assert.Equal(t, want.TotalCost, reloaded.TotalCost())
}

func TestCorruptLedgerStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "costs.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	s, err := New(path, testPricing())
	require.NoError(t, err)

	assert.Equal(t, 0.0, s.TotalCost())
	assert.Empty(t, s.Transactions())

	// The next record must overwrite the corrupt file with valid JSON.
	_, err = s.RecordIndexing(1000, "a.txt", "store")
	require.NoError(t, err)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var parsed map[string]json.RawMessage
	assert.NoError(t, json.Unmarshal(raw, &parsed))
}

// seed appends a transaction with an arbitrary timestamp, bypassing
// the wall clock used by Record.
func seed(t *testing.T, s *Store, ts time.Time, cost float64) {
	t.Helper()
	s.data.Transactions = append(s.data.Transactions, Transaction{
		ID:        "seed",
		Timestamp: ts,
		Kind:      KindQuery,
		CostUSD:   cost,
	})
	s.data.Summary = summarize(s.data.Transactions)
	require.NoError(t, s.save())
}

func TestCostInWindowIsAdditiveAtBoundary(t *testing.T) {
	s := newTestStore(t)

	a := time.Date(2026, 3, 1, 0, 0, 0, 0, time.Local)
	b := time.Date(2026, 3, 2, 0, 0, 0, 0, time.Local)
	c := time.Date(2026, 3, 3, 0, 0, 0, 0, time.Local)

	seed(t, s, a.Add(time.Hour), 0.10)
	seed(t, s, b, 0.20) // exactly on the shared boundary
	seed(t, s, b.Add(time.Hour), 0.30)

	left := s.CostInWindow(a, b)
	right := s.CostInWindow(b, c)
	whole := s.CostInWindow(a, c)

	assert.Equal(t, 0.10, left)
	assert.Equal(t, 0.50, right)
	assert.Equal(t, whole, round6(left+right))
}

func TestDerivedWindows(t *testing.T) {
	s := newTestStore(t)

	now := time.Now()
	today := midnight(now)

	seed(t, s, today.Add(time.Hour), 0.01)               // today
	seed(t, s, today.Add(-2*time.Hour), 0.02)            // yesterday
	seed(t, s, today.AddDate(0, 0, -40), 0.04)           // well in the past
	require.InDelta(t, 0.01, s.TodayCost(), 1e-9)
	require.InDelta(t, 0.02, s.YesterdayCost(), 1e-9)
	assert.InDelta(t, 0.07,
		s.CostInWindow(today.AddDate(0, 0, -60), today.AddDate(0, 0, 1)), 1e-9)
}

func TestThisWeekStartsMonday(t *testing.T) {
	s := newTestStore(t)

	now := time.Now()
	daysSinceMonday := (int(now.Weekday()) + 6) % 7
	monday := midnight(now).AddDate(0, 0, -daysSinceMonday)

	seed(t, s, monday, 0.05)                   // window start is inclusive
	seed(t, s, monday.Add(-time.Minute), 0.50) // previous week

	assert.InDelta(t, 0.05, s.ThisWeekCost(), 1e-9)
}

func TestEstimateIndexing(t *testing.T) {
	s := newTestStore(t)

	est := s.EstimateIndexing(2_000_000)
	assert.Equal(t, int64(2_000_000), est.TotalTokens)
	assert.Equal(t, 0.30, est.IndexingCostUSD)
	assert.Equal(t, 0.0, est.StorageCostUSD)
	assert.Equal(t, 0.30, est.TotalCostUSD)
}
