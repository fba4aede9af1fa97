package warpcli

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"
)

const (
	explainText = "text"
	explainJSON = "json"
)

func parseExplainFormat(s string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(s)); f {
	case "", explainText:
		return explainText, nil
	case explainJSON:
		return explainJSON, nil
	default:
		return "", fmt.Errorf("invalid --explain %q (expected: text|json)", s)
	}
}

// ExplainCollector gathers what a query did so it can be printed after the
// results. It satisfies explain.Explain.
type ExplainCollector struct {
	mu      sync.Mutex
	format  string
	keys    []string
	values  map[string]any
	elapsed map[string]time.Duration
}

func NewExplainCollector(format string) *ExplainCollector {
	if format == "" {
		format = explainText
	}
	return &ExplainCollector{
		format:  format,
		values:  map[string]any{},
		elapsed: map[string]time.Duration{},
	}
}

func (e *ExplainCollector) KV(key string, value any) {
	if e == nil || strings.TrimSpace(key) == "" {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.values[key]; !ok {
		e.keys = append(e.keys, key)
	}
	e.values[key] = value
}

func (e *ExplainCollector) Timer(name string) func() {
	if e == nil || strings.TrimSpace(name) == "" {
		return func() {}
	}
	start := time.Now()
	return func() {
		d := time.Since(start)
		e.mu.Lock()
		e.elapsed[name] += d
		e.mu.Unlock()
	}
}

// Snapshot flattens values and timings; timings appear as elapsed_us_<name>.
func (e *ExplainCollector) Snapshot() map[string]any {
	out := map[string]any{}
	if e == nil {
		return out
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for k, v := range e.values {
		out[k] = v
	}
	for name, d := range e.elapsed {
		out["elapsed_us_"+name] = d.Microseconds()
	}
	return out
}

// Emit writes values in the order they were recorded, then timings by name.
func (e *ExplainCollector) Emit(w io.Writer) error {
	if e == nil || w == nil {
		return nil
	}
	if e.format == explainJSON {
		b, err := json.Marshal(e.Snapshot())
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	var b strings.Builder
	b.WriteString("explain:\n")
	for _, k := range e.keys {
		fmt.Fprintf(&b, "  %s: %v\n", k, e.values[k])
	}
	names := make([]string, 0, len(e.elapsed))
	for name := range e.elapsed {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		fmt.Fprintf(&b, "  elapsed_%s: %s\n", name, e.elapsed[name])
	}
	_, err := io.WriteString(w, b.String())
	return err
}
