package project

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// DefaultDataBranch is the branch records live on unless configured
// otherwise.
const DefaultDataBranch = "data/grit"

// defaultMergeBranch is merged into after data-branch commits unless
// the config disables merging.
const defaultMergeBranch = "main"

// homeEnv redirects the global config directory, primarily so tests
// can isolate ledger storage.
const homeEnv = "GRIT_HOME"

// Config is the global configuration, resolved once at startup and
// passed to the components that need it.
type Config struct {
	// DefaultAssignee is used by claim when no assignee is given.
	DefaultAssignee string `toml:"default_assignee,omitempty"`

	// Editor overrides EDITOR/VISUAL for the edit command.
	Editor string `toml:"editor,omitempty"`

	// DataBranch is where records are stored.
	DataBranch string `toml:"data_branch,omitempty"`

	// MergeBranch is merged from the data branch after mutations.
	// An explicit empty string selects data-branch-only mode, where
	// the working directory is a disposable view.
	MergeBranch *string `toml:"merge_branch,omitempty"`
}

// ResolvedDataBranch returns the configured data branch or the
// default.
func (c *Config) ResolvedDataBranch() string {
	if c.DataBranch == "" {
		return DefaultDataBranch
	}
	return c.DataBranch
}

// ResolvedMergeBranch returns the branch to merge into and whether
// merging is enabled at all. ok=false means data-branch-only mode.
func (c *Config) ResolvedMergeBranch() (string, bool) {
	if c.MergeBranch == nil {
		return defaultMergeBranch, true
	}
	if *c.MergeBranch == "" {
		return "", false
	}
	return *c.MergeBranch, true
}

// ResolvedEditor picks the editor command: config, then EDITOR, then
// VISUAL, then vi.
func (c *Config) ResolvedEditor() string {
	if c.Editor != "" {
		return c.Editor
	}
	if ed := os.Getenv("EDITOR"); ed != "" {
		return ed
	}
	if ed := os.Getenv("VISUAL"); ed != "" {
		return ed
	}
	return "vi"
}

// GlobalDir returns the global configuration directory: GRIT_HOME if
// set, else ~/.grit.
func GlobalDir() (string, error) {
	if home := os.Getenv(homeEnv); home != "" {
		return home, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".grit"), nil
}

// InitGlobalDir creates the global configuration directory if needed.
func InitGlobalDir() error {
	dir, err := GlobalDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create global directory: %w", err)
	}
	return nil
}

// LoadConfig reads the global config file, returning defaults when it
// does not exist.
func LoadConfig() (Config, error) {
	var cfg Config

	dir, err := GlobalDir()
	if err != nil {
		return cfg, err
	}

	content, err := os.ReadFile(filepath.Join(dir, "config.toml"))
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes the global config file, creating the directory if
// needed.
func SaveConfig(cfg Config) error {
	dir, err := GlobalDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create global directory: %w", err)
	}

	content, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), content, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
