// Package config loads warp's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"warpdir/internal/datafile"
	"warpdir/internal/fuzzy"
)

const (
	EnvConfig       = "WARP_CONFIG"
	DefaultDatafile = "~/.warpdata"
	DefaultDelay    = time.Second
)

var ErrConfigExists = errors.New("config file already exists")

// ConfigError wraps a missing, unreadable or invalid configuration.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("config: %v", e.Err)
	}
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

type Config struct {
	// Datafile is where entries persist; "~" is expanded on load.
	Datafile string `yaml:"datafile"`
	// ExcludeDirs are gitignore-style patterns; matching paths and their
	// children are never inserted.
	ExcludeDirs []string      `yaml:"exclude_dirs"`
	Debug       bool          `yaml:"debug"`
	Socket      string        `yaml:"socket"`
	SaveDelay   time.Duration `yaml:"save_delay"`
	Matcher     string        `yaml:"matcher"`

	// Path is the file this config came from, empty for defaults.
	Path string `yaml:"-"`
}

func DefaultSocket() string {
	return filepath.Join(os.TempDir(), fmt.Sprintf("warpd-%d.sock", os.Getuid()))
}

func Default() *Config {
	return &Config{
		Datafile:  DefaultDatafile,
		Socket:    DefaultSocket(),
		SaveDelay: DefaultDelay,
		Matcher:   fuzzy.Fzy.String(),
	}
}

// ResolvePath picks the config file location: $WARP_CONFIG when it names a
// regular file, then $XDG_CONFIG_HOME/warp/config.yaml, then
// ~/.config/warp/config.yaml.
func ResolvePath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfig)); p != "" {
		if st, err := os.Stat(p); err == nil && st.Mode().IsRegular() {
			return p, nil
		}
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" && filepath.IsAbs(xdg) {
		return filepath.Join(xdg, "warp", "config.yaml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", &ConfigError{Err: fmt.Errorf("resolve home: %w", err)}
	}
	return filepath.Join(home, ".config", "warp", "config.yaml"), nil
}

// Load reads path, or the resolved default location when path is empty.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		p, err := ResolvePath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := cfg.normalize(); err != nil {
			return nil, err
		}
		return cfg, nil
	case err != nil:
		return nil, &ConfigError{Path: path, Err: err}
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	cfg.Path = path
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() error {
	var err error
	if c.Datafile, err = datafile.ExpandHome(strings.TrimSpace(c.Datafile)); err != nil {
		return &ConfigError{Path: c.Path, Err: err}
	}
	if c.Socket, err = datafile.ExpandHome(strings.TrimSpace(c.Socket)); err != nil {
		return &ConfigError{Path: c.Path, Err: err}
	}

	dirs := make([]string, 0, len(c.ExcludeDirs))
	for _, d := range c.ExcludeDirs {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		neg := strings.HasPrefix(d, "!")
		expanded, err := datafile.ExpandHome(strings.TrimPrefix(d, "!"))
		if err != nil {
			return &ConfigError{Path: c.Path, Err: err}
		}
		if neg {
			expanded = "!" + expanded
		}
		dirs = append(dirs, expanded)
	}
	c.ExcludeDirs = dirs

	return c.Validate()
}

func (c *Config) Validate() error {
	if c == nil {
		return &ConfigError{Err: fmt.Errorf("config is nil")}
	}
	if c.Datafile == "" {
		return &ConfigError{Path: c.Path, Err: fmt.Errorf("datafile is required")}
	}
	if st, err := os.Stat(c.Datafile); err == nil && st.IsDir() {
		return &ConfigError{Path: c.Path, Err: fmt.Errorf("datafile %s is a directory", c.Datafile)}
	}
	if c.Socket == "" {
		return &ConfigError{Path: c.Path, Err: fmt.Errorf("socket is required")}
	}
	if c.SaveDelay <= 0 {
		return &ConfigError{Path: c.Path, Err: fmt.Errorf("save_delay must be positive, got %v", c.SaveDelay)}
	}
	if _, err := fuzzy.ParseMatcher(c.Matcher); err != nil {
		return &ConfigError{Path: c.Path, Err: err}
	}
	return nil
}

// MatcherStrategy returns the configured matcher; Validate has already
// rejected unknown names.
func (c *Config) MatcherStrategy() fuzzy.Matcher {
	m, _ := fuzzy.ParseMatcher(c.Matcher)
	return m
}

const defaultYAML = `# warp configuration.
#
# Where visited paths are stored.
datafile: ~/.warpdata

# Paths never recorded, gitignore syntax. A match also covers every
# directory below it.
# exclude_dirs:
#   - ~/tmp
#   - node_modules
exclude_dirs: []

# Verbose logging.
debug: false

# Unix socket the warpd server listens on. Defaults to $TMPDIR/warpd-<uid>.sock.
# socket: /tmp/warpd.sock

# How long the server waits after a change before writing the datafile.
save_delay: 1s

# fzy or naive.
matcher: fzy
`

// Generate writes the default config to path. It refuses to replace an
// existing file unless overwrite is set.
func Generate(path string, overwrite bool) error {
	if strings.TrimSpace(path) == "" {
		p, err := ResolvePath()
		if err != nil {
			return err
		}
		path = p
	}
	if _, err := os.Stat(path); err == nil && !overwrite {
		return &ConfigError{Path: path, Err: ErrConfigExists}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &ConfigError{Path: path, Err: err}
	}
	if err := os.WriteFile(path, []byte(defaultYAML), 0o644); err != nil {
		return &ConfigError{Path: path, Err: err}
	}
	return nil
}
