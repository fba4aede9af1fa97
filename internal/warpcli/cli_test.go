package warpcli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"warpdir/internal/config"
	"warpdir/internal/warpd"
)

type env struct {
	dir      string
	cfgPath  string
	datafile string
	socket   string
}

// newEnv writes a config whose datafile and socket live in a private temp
// dir. Socket paths are length-limited, hence os.MkdirTemp.
func newEnv(t *testing.T, extra string) *env {
	t.Helper()
	dir, err := os.MkdirTemp("", "wc")
	if err != nil {
		t.Fatalf("mkdtemp: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	e := &env{
		dir:      dir,
		cfgPath:  filepath.Join(dir, "config.yaml"),
		datafile: filepath.Join(dir, "data"),
		socket:   filepath.Join(dir, "sock"),
	}
	yml := fmt.Sprintf("datafile: %s\nsocket: %s\nsave_delay: 1h\n%s", e.datafile, e.socket, extra)
	if err := os.WriteFile(e.cfgPath, []byte(yml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return e
}

func (e *env) mkdir(t *testing.T, name string) string {
	t.Helper()
	p := filepath.Join(e.dir, name)
	if err := os.MkdirAll(p, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	return p
}

func (e *env) run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(RewriteArgsForImplicitQuery(cmd, append([]string{"-c", e.cfgPath}, args...)))
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func (e *env) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, stderr, err := e.run(t, args...)
	if err != nil {
		t.Fatalf("warp %v: %v\n%s", args, err, stderr)
	}
	return out
}

func TestDirect_InsertQueryDelete(t *testing.T) {
	e := newEnv(t, "")
	alpha := e.mkdir(t, "alpha-project")
	beta := e.mkdir(t, "beta")

	e.mustRun(t, "insert", alpha+"/")
	e.mustRun(t, "insert", beta)

	if got := e.mustRun(t, "query", "alp"); got != alpha+"\n" {
		t.Fatalf("query=%q", got)
	}
	if got := e.mustRun(t, "bet"); got != beta+"\n" {
		t.Fatalf("implicit query=%q", got)
	}

	list := e.mustRun(t, "list")
	if !strings.Contains(list, alpha) || !strings.Contains(list, beta) {
		t.Fatalf("list=%q", list)
	}

	e.mustRun(t, "delete", alpha)
	_, _, err := e.run(t, "query", "alp")
	if !errors.Is(err, ErrNoMatch) {
		t.Fatalf("expected ErrNoMatch, got %v", err)
	}

	data, err := os.ReadFile(e.datafile)
	if err != nil {
		t.Fatalf("read datafile: %v", err)
	}
	if !strings.HasPrefix(string(data), beta+"|") || strings.Count(string(data), "\n") != 1 {
		t.Fatalf("datafile=%q", data)
	}
}

func TestDirect_QueryAllOrdersByScore(t *testing.T) {
	e := newEnv(t, "")
	exact := e.mkdir(t, "src/warp")
	loose := e.mkdir(t, "src/w/a/r/p")
	e.mustRun(t, "insert", loose)
	e.mustRun(t, "insert", loose)
	e.mustRun(t, "insert", exact)

	got := strings.Split(strings.TrimSpace(e.mustRun(t, "query", "--all", "warp")), "\n")
	if len(got) != 2 || got[0] != exact || got[1] != loose {
		t.Fatalf("query --all=%v", got)
	}
}

func TestDirect_ExcludedInsert(t *testing.T) {
	e := newEnv(t, "")
	secret := filepath.Join(e.dir, "secret")
	if err := os.WriteFile(e.cfgPath, []byte(fmt.Sprintf(
		"datafile: %s\nsocket: %s\nexclude_dirs:\n  - %s\n", e.datafile, e.socket, secret)), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	inner := e.mkdir(t, "secret/inner")
	open := e.mkdir(t, "open")

	e.mustRun(t, "insert", inner)
	e.mustRun(t, "insert", open)

	out := e.mustRun(t, "list", "--jsonl")
	if strings.Contains(out, inner) || !strings.Contains(out, open) {
		t.Fatalf("list=%q", out)
	}
}

func TestDirect_ExplainJSON(t *testing.T) {
	e := newEnv(t, "")
	e.mustRun(t, "insert", e.mkdir(t, "projects"))

	_, stderr, err := e.run(t, "query", "--explain=json", "proj")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	var line string
	for _, l := range strings.Split(stderr, "\n") {
		if strings.HasPrefix(l, "{") {
			line = l
		}
	}
	var v map[string]any
	if err := json.Unmarshal([]byte(line), &v); err != nil {
		t.Fatalf("bad json %q: %v", line, err)
	}
	if v["mode"] != "direct" || v["matcher"] != "fzy" || v["matched"] != float64(1) {
		t.Fatalf("explain=%v", v)
	}
}

func TestDirect_MatcherOverride(t *testing.T) {
	e := newEnv(t, "")
	e.mustRun(t, "insert", e.mkdir(t, "home/user/projects"))

	if _, _, err := e.run(t, "query", "--matcher", "naive", "hup"); !errors.Is(err, ErrNoMatch) {
		t.Fatalf("naive should need a substring, got %v", err)
	}
	if _, _, err := e.run(t, "query", "--matcher", "fzy", "hup"); err != nil {
		t.Fatalf("fzy query: %v", err)
	}
	if _, _, err := e.run(t, "query", "--matcher", "regex", "x"); err == nil {
		t.Fatalf("expected error for unknown matcher")
	}
}

func TestDirect_ExportClearImport(t *testing.T) {
	e := newEnv(t, "")
	a := e.mkdir(t, "a")
	b := e.mkdir(t, "b")
	e.mustRun(t, "insert", a)
	e.mustRun(t, "insert", b)

	for _, format := range []string{"z", "sqlite"} {
		t.Run(format, func(t *testing.T) {
			file := filepath.Join(e.dir, "export."+format)
			if out := e.mustRun(t, "export", "--format", format, file); !strings.Contains(out, "exported 2 entries") {
				t.Fatalf("export=%q", out)
			}
			if out := e.mustRun(t, "clear"); out != "cleared 2 entries\n" {
				t.Fatalf("clear=%q", out)
			}
			if _, err := os.Stat(e.datafile); !errors.Is(err, os.ErrNotExist) {
				t.Fatalf("datafile still present: %v", err)
			}
			if out := e.mustRun(t, "import", "-f", format, file); !strings.Contains(out, "imported 2 entries") {
				t.Fatalf("import=%q", out)
			}
			list := e.mustRun(t, "list")
			if !strings.Contains(list, a) || !strings.Contains(list, b) {
				t.Fatalf("list=%q", list)
			}
		})
	}

	if _, _, err := e.run(t, "export", "--format", "csv", filepath.Join(e.dir, "x")); err == nil {
		t.Fatalf("expected unknown format error")
	}
}

func TestConfigCommand(t *testing.T) {
	e := newEnv(t, "")

	if got := e.mustRun(t, "config", "--path"); got != e.cfgPath+"\n" {
		t.Fatalf("config --path=%q", got)
	}
	if got := e.mustRun(t, "config"); !strings.Contains(got, "datafile: "+e.datafile) {
		t.Fatalf("config=%q", got)
	}

	fresh := filepath.Join(e.dir, "nested", "config.yaml")
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"-c", fresh, "config", "--generate"})
	if _, _, err := ExecuteForTest(cmd); err != nil {
		t.Fatalf("generate: %v", err)
	}
	cfg, err := config.Load(fresh)
	if err != nil || cfg.Path != fresh {
		t.Fatalf("load generated: cfg=%+v err=%v", cfg, err)
	}

	cmd = NewRootCommand()
	cmd.SetArgs([]string{"-c", fresh, "config", "--generate"})
	if _, _, err := ExecuteForTest(cmd); !errors.Is(err, config.ErrConfigExists) {
		t.Fatalf("expected ErrConfigExists, got %v", err)
	}
	cmd = NewRootCommand()
	cmd.SetArgs([]string{"-c", fresh, "config", "--generate", "--force"})
	if _, _, err := ExecuteForTest(cmd); err != nil {
		t.Fatalf("generate --force: %v", err)
	}
}

func TestInitCommand(t *testing.T) {
	e := newEnv(t, "")

	zsh := e.mustRun(t, "init")
	if !strings.Contains(zsh, "chpwd_functions") || !strings.Contains(zsh, `warp insert "$PWD"`) || !strings.Contains(zsh, "z() {") {
		t.Fatalf("zsh hook=%q", zsh)
	}
	bash := e.mustRun(t, "init", "--shell", "bash", "--cmd", "j")
	if !strings.Contains(bash, "PROMPT_COMMAND") || !strings.Contains(bash, "j() {") {
		t.Fatalf("bash hook=%q", bash)
	}
	if _, _, err := e.run(t, "init", "--shell", "fish"); err == nil {
		t.Fatalf("expected error for fish")
	}
}

func startServer(t *testing.T, e *env) <-chan error {
	t.Helper()
	cfg, err := config.Load(e.cfgPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	done := make(chan struct{})
	go func() {
		errCh <- warpd.ListenAndServe(ctx, cfg, slog.New(slog.DiscardHandler), nil)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
		}
	})

	deadline := time.Now().Add(2 * time.Second)
	for !warpd.Alive("unix", e.socket) {
		if time.Now().After(deadline) {
			t.Fatalf("server did not start")
		}
		time.Sleep(10 * time.Millisecond)
	}
	return errCh
}

func TestServerMode_MatchesDirect(t *testing.T) {
	served := newEnv(t, "")
	direct := newEnv(t, "")
	startServer(t, served)

	dirs := []string{"code/warp", "code/web", "docs", "code/warp"}
	for _, d := range dirs {
		served.mustRun(t, "insert", served.mkdir(t, d))
		direct.mustRun(t, "insert", direct.mkdir(t, d))
	}
	served.mustRun(t, "delete", filepath.Join(served.dir, "docs"))
	direct.mustRun(t, "delete", filepath.Join(direct.dir, "docs"))

	rel := func(e *env) []string {
		out := e.mustRun(t, "query", "--all", "")
		var got []string
		for _, p := range strings.Fields(out) {
			got = append(got, strings.TrimPrefix(p, e.dir))
		}
		sort.Strings(got)
		return got
	}
	if s, d := rel(served), rel(direct); fmt.Sprint(s) != fmt.Sprint(d) {
		t.Fatalf("server=%v direct=%v", s, d)
	}

	// The server defers saves, so nothing reached its datafile yet.
	if _, err := os.Stat(served.datafile); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("server datafile written early: %v", err)
	}
}

func TestServerMode_AdminCommands(t *testing.T) {
	e := newEnv(t, "")
	errCh := startServer(t, e)
	dir := e.mkdir(t, "work")
	e.mustRun(t, "insert", dir)

	status := e.mustRun(t, "server", "status")
	if !strings.Contains(status, "entries  1") || !strings.Contains(status, e.socket) {
		t.Fatalf("status=%q", status)
	}

	if _, _, err := e.run(t, "clear"); !errors.Is(err, errServerRunning) {
		t.Fatalf("clear with server: %v", err)
	}

	// export flushes the server first.
	out := filepath.Join(e.dir, "out.zcd")
	e.mustRun(t, "export", out)
	data, err := os.ReadFile(out)
	if err != nil || !strings.HasPrefix(string(data), dir+"|") {
		t.Fatalf("export=%q err=%v", data, err)
	}

	if got := e.mustRun(t, "server", "restart"); got != "server reloaded\n" {
		t.Fatalf("restart=%q", got)
	}
	if got := e.mustRun(t, "server", "stop"); got != "server stopping\n" {
		t.Fatalf("stop=%q", got)
	}
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("server: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}

	if got := e.mustRun(t, "server", "status"); !strings.Contains(got, "server not running") {
		t.Fatalf("status after stop=%q", got)
	}
	if got := e.mustRun(t, "work"); got != dir+"\n" {
		t.Fatalf("direct query after stop=%q", got)
	}
}
