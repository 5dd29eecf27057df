package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/blog-autopilot/internal/theme"
)

// executeCLI runs rootCmd with args against a theme file in a temp dir and
// returns the command output.
func executeCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--secrets-dir", filepath.Join(t.TempDir(), "secrets")}, args...))
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func useThemeFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "themes.json")
	t.Setenv("BLOG_AUTOPILOT_THEMES_PATH", path)
	t.Setenv("BLOG_AUTOPILOT_AI_API_KEY", "")
	t.Setenv("CLAUDE_API_KEY", "")
	return path
}

func openThemeFile(t *testing.T, path string) *theme.Store {
	t.Helper()
	s, err := theme.Open(path, theme.Options{})
	require.NoError(t, err)
	return s
}

func TestThemesCommands(t *testing.T) {
	path := useThemeFile(t)

	out, err := executeCLI(t, "themes", "add", "EQ", "Basics")
	require.NoError(t, err)
	assert.Contains(t, out, "added: 1 EQ Basics")

	out, err = executeCLI(t, "themes", "add", "Sidechain Pumping")
	require.NoError(t, err)
	assert.Contains(t, out, "added: 2 Sidechain Pumping")

	_, err = executeCLI(t, "themes", "add", "eq basics")
	require.ErrorIs(t, err, theme.ErrDuplicate)

	out, err = executeCLI(t, "themes", "mark-used", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "marked 1 theme(s) used, 1 unused remain")

	s := openThemeFile(t, path)
	th, err := s.Get(1)
	require.NoError(t, err)
	assert.True(t, th.Used)
	assert.Equal(t, 1, s.UnusedCount())

	out, err = executeCLI(t, "themes", "next")
	require.NoError(t, err)
	assert.Contains(t, out, "2  Sidechain Pumping")

	out, err = executeCLI(t, "themes", "reset")
	require.NoError(t, err)
	assert.Contains(t, out, "reset 2 theme(s)")
	assert.Equal(t, 2, openThemeFile(t, path).UnusedCount())
}

func TestThemesMarkUsedUnknownIDLeavesFile(t *testing.T) {
	path := useThemeFile(t)
	_, err := executeCLI(t, "themes", "add", "EQ Basics")
	require.NoError(t, err)

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	_, err = executeCLI(t, "themes", "mark-used", "1", "999")
	require.ErrorIs(t, err, theme.ErrNotFound)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, 1, openThemeFile(t, path).UnusedCount())
}

func TestThemesMissingStoreHint(t *testing.T) {
	useThemeFile(t)

	_, err := executeCLI(t, "themes", "list")
	require.ErrorIs(t, err, theme.ErrStoreMissing)
	assert.Contains(t, err.Error(), "themes add")
}
