package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"warpdir/internal/fuzzy"
)

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	home, _ := os.UserHomeDir()
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Datafile != filepath.Join(home, ".warpdata") {
		t.Fatalf("datafile=%q", cfg.Datafile)
	}
	if cfg.SaveDelay != DefaultDelay || cfg.Socket == "" || cfg.Path != "" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.MatcherStrategy() != fuzzy.Fzy {
		t.Fatalf("expected fzy matcher")
	}
}

func TestLoad_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	home, _ := os.UserHomeDir()
	writeFile(t, path, `
datafile: `+filepath.Join(dir, "data")+`
exclude_dirs:
  - ~/tmp
  - "!~/tmp/keep"
  - node_modules
  - "  "
debug: true
socket: `+filepath.Join(dir, "s.sock")+`
save_delay: 250ms
matcher: naive
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Path != path || !cfg.Debug {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.SaveDelay != 250*time.Millisecond {
		t.Fatalf("save_delay=%v", cfg.SaveDelay)
	}
	want := []string{filepath.Join(home, "tmp"), "!" + filepath.Join(home, "tmp/keep"), "node_modules"}
	if len(cfg.ExcludeDirs) != len(want) {
		t.Fatalf("exclude_dirs=%v", cfg.ExcludeDirs)
	}
	for i := range want {
		if cfg.ExcludeDirs[i] != want[i] {
			t.Fatalf("exclude_dirs[%d]=%q want %q", i, cfg.ExcludeDirs[i], want[i])
		}
	}
	if cfg.MatcherStrategy() != fuzzy.Naive {
		t.Fatalf("expected naive matcher")
	}
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"bad yaml":       "datafile: [unterminated\n",
		"negative delay": "save_delay: -1s\n",
		"datafile dir":   "datafile: " + dir + "\n",
		"unknown match":  "matcher: regex\n",
		"empty datafile": "datafile: \"\"\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			writeFile(t, path, body)

			_, err := Load(path)
			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
			if ce.Path != path {
				t.Fatalf("expected path %q, got %q", path, ce.Path)
			}
		})
	}
}

func TestLoad_Unreadable(t *testing.T) {
	// A directory where the file should be cannot be read.
	path := t.TempDir()
	_, err := Load(path)
	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestResolvePath(t *testing.T) {
	dir := t.TempDir()
	explicit := filepath.Join(dir, "explicit.yaml")
	writeFile(t, explicit, "debug: true\n")

	t.Setenv(EnvConfig, explicit)
	if got, _ := ResolvePath(); got != explicit {
		t.Fatalf("expected %q, got %q", explicit, got)
	}

	t.Setenv(EnvConfig, filepath.Join(dir, "missing.yaml"))
	t.Setenv("XDG_CONFIG_HOME", dir)
	if got, _ := ResolvePath(); got != filepath.Join(dir, "warp", "config.yaml") {
		t.Fatalf("unexpected xdg path %q", got)
	}

	t.Setenv("XDG_CONFIG_HOME", "relative/dir")
	home, _ := os.UserHomeDir()
	if got, _ := ResolvePath(); got != filepath.Join(home, ".config", "warp", "config.yaml") {
		t.Fatalf("unexpected home path %q", got)
	}
}

func TestGenerate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warp", "config.yaml")
	if err := Generate(path, false); err != nil {
		t.Fatalf("generate: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load generated: %v", err)
	}
	def := Default()
	if cfg.SaveDelay != def.SaveDelay || cfg.Debug || len(cfg.ExcludeDirs) != 0 {
		t.Fatalf("generated config differs from defaults: %+v", cfg)
	}

	if err := Generate(path, false); !errors.Is(err, ErrConfigExists) {
		t.Fatalf("expected ErrConfigExists, got %v", err)
	}
	if err := Generate(path, true); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
}

func TestWatch_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "datafile: "+filepath.Join(dir, "data")+"\n")

	got := make(chan *Config, 4)
	w, err := Watch(path, nil, func(c *Config) { got <- c })
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })
	go func() { _ = w.Run(t.Context()) }()

	writeFile(t, path, "datafile: "+filepath.Join(dir, "data")+"\ndebug: true\n")

	select {
	case cfg := <-got:
		if !cfg.Debug {
			t.Fatalf("expected reloaded debug=true")
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for reload")
	}
}
