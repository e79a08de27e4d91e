package config

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolvedForShow(t *testing.T, mutate func(*Config), env EnvOverrides) *Resolved {
	t.Helper()

	cfg := DefaultConfig()
	cfg.BookmarksFile = "/tmp/Bookmarks"

	if mutate != nil {
		mutate(cfg)
	}

	r, err := Resolve(cfg, env, CLIOverrides{}, "")
	require.NoError(t, err)

	return r
}

func TestRenderEffective_Defaults(t *testing.T) {
	r := resolvedForShow(t, nil, EnvOverrides{})

	var buf bytes.Buffer
	require.NoError(t, RenderEffective(r, "/cfg/config.toml", &buf))

	out := buf.String()
	assert.Contains(t, out, "/cfg/config.toml")
	assert.Contains(t, out, `access_token = ""  # not set`)
	assert.Contains(t, out, `filename     = "README.md"`)
	assert.Contains(t, out, `bookmarks_sync_mode             = "folder"`)
	assert.Contains(t, out, `control_addr = "127.0.0.1:47821"`)
	assert.NotContains(t, out, "branch")
	assert.NotContains(t, out, "log_file ")
}

func TestRenderEffective_MasksToken(t *testing.T) {
	r := resolvedForShow(t, func(c *Config) { c.AccessToken = "ghp_secret" }, EnvOverrides{})

	var buf bytes.Buffer
	require.NoError(t, RenderEffective(r, "p", &buf))

	out := buf.String()
	assert.NotContains(t, out, "ghp_secret")
	assert.Contains(t, out, tokenMask)
	assert.Contains(t, out, "# from config")
}

func TestRenderEffective_TokenFromEnv(t *testing.T) {
	r := resolvedForShow(t, nil, EnvOverrides{Token: "env-secret"})

	var buf bytes.Buffer
	require.NoError(t, RenderEffective(r, "p", &buf))

	assert.NotContains(t, buf.String(), "env-secret")
	assert.Contains(t, buf.String(), "# from env")
}

func TestRenderEffective_OptionalFieldsShown(t *testing.T) {
	r := resolvedForShow(t, func(c *Config) {
		c.Branch = "main"
		c.LogFile = "/var/log/osmosync.log"
		c.UserAgent = "ua/1"
	}, EnvOverrides{})

	var buf bytes.Buffer
	require.NoError(t, RenderEffective(r, "p", &buf))

	out := buf.String()
	assert.Contains(t, out, `branch       = "main"`)
	assert.Contains(t, out, "/var/log/osmosync.log")
	assert.Contains(t, out, `user_agent      = "ua/1"`)
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestRenderEffective_WriteError(t *testing.T) {
	r := resolvedForShow(t, nil, EnvOverrides{})

	err := RenderEffective(r, "p", failWriter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestEffectiveValues_CoversEveryKeyAndMasksToken(t *testing.T) {
	r := resolvedForShow(t, func(c *Config) { c.AccessToken = "ghp_secret" }, EnvOverrides{})

	values := EffectiveValues(r)

	for _, key := range knownKeysList {
		assert.Contains(t, values, key)
	}

	assert.Equal(t, tokenMask, values["access_token"])
	assert.Equal(t, "config", values["token_source"])
	assert.Equal(t, "folder", values["bookmarks_sync_mode"])
	assert.Equal(t, "10s", values["connect_timeout"])
}
