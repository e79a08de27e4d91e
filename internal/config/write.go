package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/natefinch/atomic"
)

// The config file can hold access_token, so it is owner-only.
const (
	configFilePermissions = 0o600
	configDirPermissions  = 0o700
)

// ErrConfigExists is returned by CreateConfig when the file is already there.
var ErrConfigExists = errors.New("config: file already exists")

// configTemplate is written by `config init`. Every key is present as a
// commented-out default so users can discover options without docs.
const configTemplate = `# osmosync configuration

# ── GitHub ──
# Token with contents read/write on the repository. Prefer 'osmosync connect',
# which stores it in the data directory, or the OSMOSYNC_TOKEN variable.
# access_token = ""

# Repository owner and name, and the Markdown file holding the bookmarks.
# username = ""
# repo = ""
# filename = "README.md"

# Branch to read and commit to (default: the repository's default branch)
# branch = ""

# ── Bookmarks ──
# Master switch for bookmark sync
# sync_to_bookmarks_bar = false

# "folder" mirrors the document into a folder on the bookmarks bar,
# "bar" adds and renames bookmarks on the bar itself but never removes any.
# bookmarks_sync_mode = "folder"

# Folder created on the bookmarks bar in folder mode
# folder_name = "osmosmemo"

# Minutes between background syncs while the daemon runs; 0 disables the timer
# bookmarks_sync_interval_minutes = 0

# Chromium Bookmarks file (default: Chrome's Default profile)
# bookmarks_file = ""

# ── Logging ──
# log_level = "info"
# log_file = ""
# log_format = "auto"
# log_retention_days = 30

# ── Network ──
# connect_timeout = "10s"
# data_timeout = "60s"
# user_agent = ""

# ── Daemon ──
# Local control endpoint used by 'sync' and 'enable'; empty disables it
# control_addr = "127.0.0.1:47821"
`

// CreateConfig writes the default template to path. It refuses to replace
// an existing file.
func CreateConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrConfigExists, path)
	}

	slog.Info("creating config file", slog.String("path", path))

	return writeConfigFile(path, []byte(configTemplate))
}

// SetKey sets key to value in the config file at path, creating the file
// from the template if it does not exist. An existing assignment is
// replaced in place and a commented-out default is uncommented; otherwise
// the key is appended. The edited file must still load and validate, or
// nothing is written.
func SetKey(path, key, value string) error {
	if !IsKnownKey(key) {
		return unknownKeyError(key)
	}

	formatted, err := formatTOMLValue(key, value)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		data = []byte(configTemplate)
	} else if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	content := setKeyInText(string(data), key, formatted)

	if err := validateText(content); err != nil {
		return err
	}

	logValue := value
	if key == "access_token" {
		logValue = tokenMask
	}

	slog.Info("setting config key",
		slog.String("path", path),
		slog.String("key", key),
		slog.String("value", logValue),
	)

	return writeConfigFile(path, []byte(content))
}

// setKeyInText rewrites the first assignment of key, or the first
// commented-out assignment when there is none, or appends a new line.
func setKeyInText(content, key, formatted string) string {
	lines := strings.Split(content, "\n")
	newLine := key + " = " + formatted

	commented := -1

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)

		if assigns(trimmed, key) {
			lines[i] = newLine

			return strings.Join(lines, "\n")
		}

		if commented < 0 && strings.HasPrefix(trimmed, "#") &&
			assigns(strings.TrimSpace(strings.TrimPrefix(trimmed, "#")), key) {
			commented = i
		}
	}

	if commented >= 0 {
		lines[commented] = newLine

		return strings.Join(lines, "\n")
	}

	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}

	return content + newLine + "\n"
}

// assigns reports whether a trimmed line assigns key.
func assigns(trimmed, key string) bool {
	rest, ok := strings.CutPrefix(trimmed, key)
	if !ok {
		return false
	}

	return strings.HasPrefix(strings.TrimSpace(rest), "=")
}

// keyKinds records the TOML type of every non-string key.
var keyKinds = map[string]string{
	"sync_to_bookmarks_bar":           "bool",
	"bookmarks_sync_interval_minutes": "int",
	"log_retention_days":              "int",
}

// formatTOMLValue renders value as a TOML literal of the key's type.
func formatTOMLValue(key, value string) (string, error) {
	switch keyKinds[key] {
	case "bool":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return "", fmt.Errorf("%s: expected true or false, got %q", key, value)
		}

		return strconv.FormatBool(b), nil
	case "int":
		n, err := strconv.Atoi(value)
		if err != nil {
			return "", fmt.Errorf("%s: expected an integer, got %q", key, value)
		}

		return strconv.Itoa(n), nil
	default:
		return strconv.Quote(value), nil
	}
}

// validateText decodes content the way Load does.
func validateText(content string) error {
	cfg := DefaultConfig()

	md, err := toml.Decode(content, cfg)
	if err != nil {
		return fmt.Errorf("parsing edited config: %w", err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return err
	}

	if err := Validate(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	return nil
}

// writeConfigFile replaces path atomically, creating parent directories
// as needed.
func writeConfigFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), configDirPermissions); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	if err := os.Chmod(path, configFilePermissions); err != nil {
		return fmt.Errorf("setting file permissions: %w", err)
	}

	return nil
}
