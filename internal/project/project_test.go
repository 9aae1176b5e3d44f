package project

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParseTime(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return ts
}

func TestConfig_Defaults(t *testing.T) {
	var cfg Config

	assert.Equal(t, "data/grit", cfg.ResolvedDataBranch())

	branch, ok := cfg.ResolvedMergeBranch()
	assert.True(t, ok)
	assert.Equal(t, "main", branch)
}

func TestConfig_DataOnlyMode(t *testing.T) {
	empty := ""
	cfg := Config{MergeBranch: &empty}

	_, ok := cfg.ResolvedMergeBranch()
	assert.False(t, ok, "empty merge_branch disables merging")
}

func TestConfig_ExplicitValues(t *testing.T) {
	trunk := "trunk"
	cfg := Config{DataBranch: "data/issues", MergeBranch: &trunk}

	assert.Equal(t, "data/issues", cfg.ResolvedDataBranch())
	branch, ok := cfg.ResolvedMergeBranch()
	assert.True(t, ok)
	assert.Equal(t, "trunk", branch)
}

func TestConfig_ResolvedEditor(t *testing.T) {
	t.Setenv("EDITOR", "")
	t.Setenv("VISUAL", "")

	var cfg Config
	assert.Equal(t, "vi", cfg.ResolvedEditor())

	t.Setenv("VISUAL", "emacs")
	assert.Equal(t, "emacs", cfg.ResolvedEditor())

	t.Setenv("EDITOR", "nano")
	assert.Equal(t, "nano", cfg.ResolvedEditor())

	cfg.Editor = "code --wait"
	assert.Equal(t, "code --wait", cfg.ResolvedEditor())
}

func TestGlobalDir_HomeOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("GRIT_HOME", dir)

	got, err := GlobalDir()
	require.NoError(t, err)
	assert.Equal(t, dir, got)
}

func TestConfig_SaveLoadRoundTrip(t *testing.T) {
	t.Setenv("GRIT_HOME", t.TempDir())

	trunk := "trunk"
	cfg := Config{
		DefaultAssignee: "agent-1",
		DataBranch:      "data/issues",
		MergeBranch:     &trunk,
	}
	require.NoError(t, SaveConfig(cfg))

	loaded, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadConfig_MissingFileIsDefaults(t *testing.T) {
	t.Setenv("GRIT_HOME", t.TempDir())

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, Config{}, cfg)
}

func TestMetadata_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.toml")

	md := NewMetadata()
	require.NotEmpty(t, md.ProjectID)
	require.NoError(t, md.Save(path))

	loaded, err := LoadMetadata(path)
	require.NoError(t, err)
	assert.Equal(t, md, loaded)
}

func TestLoadMetadata_MissingProjectID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.toml")
	require.NoError(t, os.WriteFile(path, []byte(""), 0o644))

	_, err := LoadMetadata(path)
	assert.Error(t, err)
}

func TestIsInitialized(t *testing.T) {
	root := t.TempDir()
	assert.False(t, IsInitialized(root))

	gritDir := filepath.Join(root, IssuesDir)
	require.NoError(t, os.MkdirAll(gritDir, 0o755))
	assert.False(t, IsInitialized(root), "directory alone is not enough")

	require.NoError(t, NewMetadata().Save(filepath.Join(gritDir, "metadata.toml")))
	assert.True(t, IsInitialized(root))
}

func TestIssuePath(t *testing.T) {
	created := mustParseTime(t, "2024-01-15T10:30:00Z")
	assert.Equal(t, ".grit/2024-01-15-issue-007.md", IssuePath(7, created))
}
