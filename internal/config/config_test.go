package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
	return dir
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := LoadFrom("")
	require.NoError(t, err)
	require.Equal(t, DefaultExecTimeout, cfg.Tools.Exec.Timeout)
	require.Equal(t, DefaultMaxOutputChars, cfg.Tools.Exec.MaxOutputChars)
	require.Empty(t, cfg.Tools.Exec.EnvStrip)
	require.Nil(t, cfg.Tools.Exec.DenyPatterns)
	require.Equal(t, "brave", cfg.Tools.Web.Search.Provider)
	require.Equal(t, DefaultSearchResults, cfg.Tools.Web.Search.MaxResults)
	require.Equal(t, DefaultFetchMaxChars, cfg.Tools.Web.Fetch.MaxChars)
	require.Empty(t, cfg.Store.Path)
	require.Empty(t, cfg.File)
}

func TestLoadCamelCaseYAML(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "cfg.yaml", `
tools:
  exec:
    timeout: 120
    envStrip: [SECRET, AWS_SECRET_ACCESS_KEY]
    maxOutputChars: 500
    restrictToWorkspace: true
  web:
    search:
      provider: Tavily
      apiKey: tv-123
      maxResults: 7
      requestsPerSecond: 2
store:
  path: /tmp/history.db
`)

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	require.Equal(t, path, cfg.File)
	require.Equal(t, 120, cfg.Tools.Exec.Timeout)
	require.Equal(t, []string{"SECRET", "AWS_SECRET_ACCESS_KEY"}, cfg.Tools.Exec.EnvStrip)
	require.Equal(t, 500, cfg.Tools.Exec.MaxOutputChars)
	require.True(t, cfg.Tools.Exec.RestrictToWorkspace)
	require.Equal(t, "tavily", cfg.Tools.Web.Search.Provider)
	require.Equal(t, "tv-123", cfg.Tools.Web.Search.APIKey)
	require.Equal(t, 7, cfg.Tools.Web.Search.MaxResults)
	require.Equal(t, 2.0, cfg.Tools.Web.Search.RequestsPerSecond)
	require.Equal(t, "/tmp/history.db", cfg.Store.Path)
}

func TestLoadSnakeCaseJSON(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "cfg.json", `{"tools":{"exec":{"env_strip":["TOKEN"],"max_output_chars":42},"web":{"search":{"api_key":"k","max_results":3}}}}`)

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	require.Equal(t, []string{"TOKEN"}, cfg.Tools.Exec.EnvStrip)
	require.Equal(t, 42, cfg.Tools.Exec.MaxOutputChars)
	require.Equal(t, "k", cfg.Tools.Web.Search.APIKey)
	require.Equal(t, 3, cfg.Tools.Web.Search.MaxResults)
}

func TestLegacyAPIKeyDefaultsToBrave(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "cfg.yaml", "tools:\n  web:\n    search:\n      apiKey: legacy-key\n")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	require.Equal(t, "brave", cfg.Tools.Web.Search.Provider)
	require.Equal(t, "legacy-key", cfg.Tools.Web.Search.APIKey)
}

func TestMaxResultsClamped(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "cfg.yaml", "tools:\n  web:\n    search:\n      maxResults: 50\n")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	require.Equal(t, MaxSearchResults, cfg.Tools.Web.Search.MaxResults)
}

func TestInvalidProviderRejected(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "cfg.yaml", "tools:\n  web:\n    search:\n      provider: bing\n")

	_, err := LoadFrom(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), `unsupported provider "bing"`)
}

func TestExecTimeoutOutOfRangeRejected(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "cfg.yaml", "tools:\n  exec:\n    timeout: 5000\n")

	_, err := LoadFrom(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "tools.exec.timeout")
}

func TestEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("AGTOOLS_TOOLS_EXEC_TIMEOUT", "15")
	t.Setenv("AGTOOLS_TOOLS_WEB_SEARCH_PROVIDER", "tavily")
	t.Setenv("AGTOOLS_TOOLS_EXEC_ENVSTRIP", "A,B")

	cfg, err := LoadFrom("")
	require.NoError(t, err)
	require.Equal(t, 15, cfg.Tools.Exec.Timeout)
	require.Equal(t, "tavily", cfg.Tools.Web.Search.Provider)
	require.Equal(t, []string{"A", "B"}, cfg.Tools.Exec.EnvStrip)
}

func TestUserConfigDirIsSearched(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, filepath.Join("ag-tools", "config.yaml"), "tools:\n  exec:\n    timeout: 30\n")

	cfg, err := LoadFrom("")
	require.NoError(t, err)
	require.Equal(t, path, cfg.File)
	require.Equal(t, 30, cfg.Tools.Exec.Timeout)
}

func TestLoadReadsConfigFlag(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "flag.yaml", "tools:\n  exec:\n    timeout: 9\n")
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("config", "", "")
	require.NoError(t, cmd.Flags().Set("config", path))

	cfg, err := Load(cmd)
	require.NoError(t, err)
	require.Equal(t, 9, cfg.Tools.Exec.Timeout)
}

func TestMissingExplicitFileFails(t *testing.T) {
	isolate(t)

	_, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
