package config

import "sync"

// Holder provides thread-safe access to a mutable *Config and an immutable
// config file path. The daemon's scheduler, control server and session all
// read through one Holder, so a reload updates config in exactly one place.
type Holder struct {
	mu   sync.RWMutex
	cfg  *Config
	env  EnvOverrides
	cli  CLIOverrides
	path string // immutable after construction
}

// NewHolder creates a Holder with the initial config and config file path.
func NewHolder(cfg *Config, path string) *Holder {
	return &Holder{
		cfg:  cfg,
		path: path,
	}
}

// Config returns the current config snapshot. Thread-safe (read lock).
func (h *Holder) Config() *Config {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.cfg
}

// Path returns the config file path. Thread-safe without locking because
// the path is immutable after construction.
func (h *Holder) Path() string {
	return h.path
}

// Update replaces the config. Thread-safe (write lock).
func (h *Holder) Update(cfg *Config) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.cfg = cfg
}

// SetOverrides records the environment and flag overrides that Resolved
// applies on top of every snapshot.
func (h *Holder) SetOverrides(env EnvOverrides, cli CLIOverrides) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.env = env
	h.cli = cli
}

// Reload re-reads the config file and swaps it in. A file that fails to
// load leaves the previous config in place.
func (h *Holder) Reload() error {
	cfg, err := LoadOrDefault(h.path)
	if err != nil {
		return err
	}

	h.Update(cfg)

	return nil
}

// Resolved returns the current snapshot with environment overrides and
// token resolution applied.
func (h *Holder) Resolved(tokenPath string) (*Resolved, error) {
	h.mu.RLock()
	cfg, env, cli := h.cfg, h.env, h.cli
	h.mu.RUnlock()

	return Resolve(cfg, env, cli, tokenPath)
}
