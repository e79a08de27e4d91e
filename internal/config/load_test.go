package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	err := os.WriteFile(path, []byte(content), 0o600)
	require.NoError(t, err)

	return path
}

func TestDefaultConfig_Values(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "README.md", cfg.Filename)
	assert.Equal(t, "folder", cfg.SyncMode)
	assert.Equal(t, "osmosmemo", cfg.FolderName)
	assert.False(t, cfg.SyncToBookmarksBar)
	assert.Zero(t, cfg.SyncIntervalMinutes)
	assert.Equal(t, "127.0.0.1:47821", cfg.ControlAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "auto", cfg.LogFormat)
	assert.Equal(t, 30, cfg.LogRetentionDays)
	assert.NoError(t, Validate(cfg))
}

func TestLoad_ValidFullConfig(t *testing.T) {
	path := writeTestConfig(t, `
access_token = "ghp_x"
username = "octo"
repo = "notes"
filename = "bookmarks/README.md"
branch = "main"

sync_to_bookmarks_bar = true
bookmarks_sync_mode = "bar"
bookmarks_sync_interval_minutes = 15
bookmarks_file = "/tmp/Bookmarks"
folder_name = "reading"

log_level = "debug"
log_file = "/tmp/osmosync.log"
log_format = "json"
log_retention_days = 7

connect_timeout = "5s"
data_timeout = "30s"
user_agent = "custom/1.0"

control_addr = "127.0.0.1:9000"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ghp_x", cfg.AccessToken)
	assert.Equal(t, "octo", cfg.Username)
	assert.Equal(t, "notes", cfg.Repo)
	assert.Equal(t, "bookmarks/README.md", cfg.Filename)
	assert.Equal(t, "main", cfg.Branch)
	assert.True(t, cfg.SyncToBookmarksBar)
	assert.Equal(t, "bar", cfg.SyncMode)
	assert.Equal(t, 15, cfg.SyncIntervalMinutes)
	assert.Equal(t, "/tmp/Bookmarks", cfg.BookmarksFile)
	assert.Equal(t, "reading", cfg.FolderName)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/tmp/osmosync.log", cfg.LogFile)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 7, cfg.LogRetentionDays)
	assert.Equal(t, "5s", cfg.NetworkConfig.ConnectTimeout)
	assert.Equal(t, "30s", cfg.NetworkConfig.DataTimeout)
	assert.Equal(t, "custom/1.0", cfg.UserAgent)
	assert.Equal(t, "127.0.0.1:9000", cfg.ControlAddr)
}

func TestLoad_PartialConfigKeepsDefaults(t *testing.T) {
	path := writeTestConfig(t, `repo = "notes"`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "notes", cfg.Repo)
	assert.Equal(t, "README.md", cfg.Filename)
	assert.Equal(t, "folder", cfg.SyncMode)
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := writeTestConfig(t, `repo = `)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config file")
}

func TestLoad_WrongType(t *testing.T) {
	path := writeTestConfig(t, `sync_to_bookmarks_bar = "yes"`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_ValidationErrors(t *testing.T) {
	path := writeTestConfig(t, `
bookmarks_sync_mode = "mirror"
log_level = "verbose"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bookmarks_sync_mode")
	assert.Contains(t, err.Error(), "log_level")
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestConfigPath_Precedence(t *testing.T) {
	assert.Equal(t, DefaultConfigPath(), ConfigPath(EnvOverrides{}, CLIOverrides{}))
	assert.Equal(t, "/env.toml", ConfigPath(EnvOverrides{ConfigPath: "/env.toml"}, CLIOverrides{}))
	assert.Equal(t, "/cli.toml",
		ConfigPath(EnvOverrides{ConfigPath: "/env.toml"}, CLIOverrides{ConfigPath: "/cli.toml"}))
}

func TestLoadResolved_UsesEnvConfigPath(t *testing.T) {
	path := writeTestConfig(t, `
username = "octo"
repo = "notes"
bookmarks_file = "/tmp/Bookmarks"
`)

	cfg, resolved, err := LoadResolved(EnvOverrides{ConfigPath: path, Token: "env-token"}, CLIOverrides{}, "")
	require.NoError(t, err)

	assert.Equal(t, "notes", cfg.Repo)
	assert.Equal(t, "env-token", resolved.Token)
	assert.True(t, resolved.Target().Complete())
}

func TestReadEnvOverrides(t *testing.T) {
	t.Setenv(EnvConfig, "/cfg.toml")
	t.Setenv(EnvToken, "tok")
	t.Setenv(EnvBookmarksFile, "/b")

	assert.Equal(t, EnvOverrides{ConfigPath: "/cfg.toml", Token: "tok", BookmarksFile: "/b"}, ReadEnvOverrides())
}
