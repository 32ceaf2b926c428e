// Package history persists the log of prompt/response interactions.
// Each entry freezes the cost that was billed when it happened; it is
// never re-derived from current rates, which may have changed since.
package history

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/liliang-cn/tubechat/pkg/log"
	"github.com/liliang-cn/tubechat/pkg/utils"
)

// TokenCounts breaks an interaction's usage into input and output.
type TokenCounts struct {
	Input  int64 `json:"input"`
	Output int64 `json:"output"`
	Total  int64 `json:"total"`
}

// Interaction is one completed conversation turn. Appended once, never
// mutated, removed only by Clear.
type Interaction struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Prompt    string            `json:"prompt"`
	Response  string            `json:"response"`
	CostUSD   float64           `json:"cost_usd"`
	Model     string            `json:"model"`
	Tokens    TokenCounts       `json:"tokens"`
	Channel   string            `json:"channel,omitempty"`
	Metadata  map[string]string `json:"metadata"`
}

type historyFile struct {
	Conversations []Interaction `json:"conversations"`
}

// Store is the file-backed interaction log. Single-process use only.
type Store struct {
	path   string
	data   historyFile
	logger *slog.Logger
}

// New loads history from path. Missing file means empty history; a
// corrupt file is treated as empty with a logged warning.
func New(path string) (*Store, error) {
	s := &Store{
		path:   path,
		logger: log.WithModule("history"),
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history %s: %w", path, err)
	}

	if err := json.Unmarshal(raw, &s.data); err != nil {
		s.logger.Warn("history file is corrupt, starting fresh",
			"path", path, "error", err)
		s.data = historyFile{}
	}
	return s, nil
}

// Append records an interaction and persists it before returning. The
// cost is stored as billed; host and user provenance are stamped into
// the metadata.
func (s *Store) Append(prompt, response string, cost float64, model string,
	inputTokens, outputTokens int64, channel string, metadata map[string]string) error {

	meta := make(map[string]string, len(metadata)+2)
	for k, v := range metadata {
		meta[k] = v
	}
	if host, err := os.Hostname(); err == nil {
		meta["hostname"] = host
	}
	if u, err := user.Current(); err == nil {
		meta["user"] = u.Username
	}

	s.data.Conversations = append(s.data.Conversations, Interaction{
		ID:        uuid.New().String(),
		Timestamp: time.Now(),
		Prompt:    prompt,
		Response:  response,
		CostUSD:   cost,
		Model:     model,
		Tokens: TokenCounts{
			Input:  inputTokens,
			Output: outputTokens,
			Total:  inputTokens + outputTokens,
		},
		Channel:  channel,
		Metadata: meta,
	})

	return s.save()
}

// Recent returns the last n interactions in insertion order, or all of
// them when fewer exist.
func (s *Store) Recent(n int) []Interaction {
	convs := s.data.Conversations
	if n > len(convs) {
		n = len(convs)
	}
	if n <= 0 {
		return nil
	}
	out := make([]Interaction, n)
	copy(out, convs[len(convs)-n:])
	return out
}

// InRange returns interactions whose timestamp falls in the half-open
// interval [start, end), order preserved.
func (s *Store) InRange(start, end time.Time) []Interaction {
	var out []Interaction
	for _, c := range s.data.Conversations {
		if !c.Timestamp.Before(start) && c.Timestamp.Before(end) {
			out = append(out, c)
		}
	}
	return out
}

// Search returns interactions whose prompt or response contains the
// query, case-insensitively.
func (s *Store) Search(query string) []Interaction {
	q := strings.ToLower(query)
	var out []Interaction
	for _, c := range s.data.Conversations {
		if strings.Contains(strings.ToLower(c.Prompt), q) ||
			strings.Contains(strings.ToLower(c.Response), q) {
			out = append(out, c)
		}
	}
	return out
}

// Count returns the number of recorded interactions.
func (s *Store) Count() int {
	return len(s.data.Conversations)
}

// Clear replaces the store with an empty sequence. Irreversible.
func (s *Store) Clear() error {
	s.data = historyFile{}
	return s.save()
}

func (s *Store) save() error {
	data, err := json.MarshalIndent(&s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}
	return utils.AtomicWriteFile(s.path, data, 0644)
}
