package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "history.json"))
	require.NoError(t, err)
	return s
}

func appendN(t *testing.T, s *Store, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		err := s.Append(
			"prompt "+string(rune('a'+i)),
			"response "+string(rune('a'+i)),
			0.0001, "gpt-4o-mini", 100, 50, "https://youtube.com/@chan", nil)
		require.NoError(t, err)
	}
}

func TestAppendStampsProvenance(t *testing.T) {
	s := newTestStore(t)

	err := s.Append("hello", "hi there", 0.000225, "gpt-4o-mini", 1000, 500,
		"https://youtube.com/@chan", map[string]string{"session": "abc"})
	require.NoError(t, err)

	got := s.Recent(1)
	require.Len(t, got, 1)
	in := got[0]

	assert.Equal(t, "hello", in.Prompt)
	assert.Equal(t, 0.000225, in.CostUSD)
	assert.Equal(t, int64(1500), in.Tokens.Total)
	assert.Equal(t, "abc", in.Metadata["session"])
	assert.NotEmpty(t, in.Metadata["hostname"])
	assert.NotEmpty(t, in.ID)
}

func TestRecentSemantics(t *testing.T) {
	s := newTestStore(t)

	appendN(t, s, 3)
	got := s.Recent(5)
	require.Len(t, got, 3)
	assert.Equal(t, "prompt a", got[0].Prompt)
	assert.Equal(t, "prompt c", got[2].Prompt)

	appendN(t, s, 7) // 10 total
	got = s.Recent(5)
	require.Len(t, got, 5)
	// Oldest of the selected window first.
	assert.True(t, !got[0].Timestamp.After(got[4].Timestamp))
}

func TestSearchIsCaseInsensitive(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Append("What about Kubernetes?", "It is discussed in episode 3.",
		0.0001, "gpt-4o-mini", 10, 10, "", nil))
	require.NoError(t, s.Append("weather", "Sunny with KUBERNETES clouds.",
		0.0001, "gpt-4o-mini", 10, 10, "", nil))
	require.NoError(t, s.Append("unrelated", "nothing here",
		0.0001, "gpt-4o-mini", 10, 10, "", nil))

	matches := s.Search("kubernetes")
	assert.Len(t, matches, 2)
}

func TestInRange(t *testing.T) {
	s := newTestStore(t)
	appendN(t, s, 3)

	all := s.InRange(time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	assert.Len(t, all, 3)

	none := s.InRange(time.Now().Add(time.Hour), time.Now().Add(2*time.Hour))
	assert.Empty(t, none)
}

func TestClearThenRecentIsEmpty(t *testing.T) {
	s := newTestStore(t)
	appendN(t, s, 4)

	require.NoError(t, s.Clear())
	assert.Empty(t, s.Recent(10))
	assert.Equal(t, 0, s.Count())
}

func TestSurvivesReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")

	s, err := New(path)
	require.NoError(t, err)
	require.NoError(t, s.Append("persist me", "ok", 0.0001, "gpt-4o-mini", 5, 5, "", nil))

	reloaded, err := New(path)
	require.NoError(t, err)
	require.Equal(t, 1, reloaded.Count())
	assert.Equal(t, "persist me", reloaded.Recent(1)[0].Prompt)
}

func TestCorruptHistoryStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, os.WriteFile(path, []byte("]["), 0644))

	s, err := New(path)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Count())
}

func TestExportTxt(t *testing.T) {
	s := newTestStore(t)
	appendN(t, s, 2)

	out := filepath.Join(t.TempDir(), "export.txt")
	require.NoError(t, s.Export(out, "txt"))

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "prompt a")
	assert.Contains(t, string(raw), "response b")

	assert.Error(t, s.Export(out, "yaml"))
}
