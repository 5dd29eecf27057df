package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/blog-autopilot/pkg/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

var base = time.Date(2026, 10, 1, 6, 0, 0, 0, time.UTC)

func testRun(id string, themeID int, day int) types.Run {
	start := base.AddDate(0, 0, day)
	return types.Run{
		ID:         id,
		ThemeID:    themeID,
		ThemeTitle: "Theme " + id,
		PostID:     100 + day,
		PostStatus: types.StatusDraft,
		PostLink:   "https://example.com/?p=" + id,
		StartedAt:  start,
		FinishedAt: start.Add(42 * time.Second),
	}
}

func TestRecordAndRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, testRun("a", 1, 0)))
	require.NoError(t, s.Record(ctx, testRun("b", 2, 1)))
	require.NoError(t, s.Record(ctx, testRun("c", 1, 2)))

	runs, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].ID)
	assert.Equal(t, "b", runs[1].ID)

	got := runs[1]
	want := testRun("b", 2, 1)
	assert.Equal(t, want.ThemeTitle, got.ThemeTitle)
	assert.Equal(t, want.PostID, got.PostID)
	assert.Equal(t, types.StatusDraft, got.PostStatus)
	assert.True(t, want.StartedAt.Equal(got.StartedAt))
	assert.True(t, want.FinishedAt.Equal(got.FinishedAt))
	assert.True(t, got.Succeeded())
}

func TestRecentDefaultLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	for i := 0; i < 25; i++ {
		require.NoError(t, s.Record(ctx, testRun(string(rune('a'+i)), i, i)))
	}

	runs, err := s.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 20)
}

func TestForTheme(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, testRun("a", 1, 0)))
	require.NoError(t, s.Record(ctx, testRun("b", 2, 1)))
	require.NoError(t, s.Record(ctx, testRun("c", 1, 2)))

	runs, err := s.ForTheme(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "a", runs[0].ID)
	assert.Equal(t, "c", runs[1].ID)

	runs, err = s.ForTheme(ctx, 99)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestRecordFailedRun(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	r := types.Run{ID: "f", ThemeID: 3, ThemeTitle: "T", StartedAt: base, FinishedAt: base, Error: "wordpress unreachable"}
	require.NoError(t, s.Record(ctx, r))

	runs, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "wordpress unreachable", runs[0].Error)
	assert.False(t, runs[0].Succeeded())
}

func TestRecordReplacesByID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	r := testRun("a", 1, 0)
	require.NoError(t, s.Record(ctx, r))
	r.MediaID = 55
	require.NoError(t, s.Record(ctx, r))

	runs, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 55, runs[0].MediaID)
}

func TestRecordRequiresID(t *testing.T) {
	s := openTestStore(t)
	require.Error(t, s.Record(context.Background(), types.Run{}))
}

func TestReopenKeepsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Record(ctx, testRun("a", 1, 0)))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	runs, err := s.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
