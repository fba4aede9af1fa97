package watch

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Debouncer coalesces pushed keys and hands them to the OnFire callback once
// no new key has arrived for the configured delay.
type Debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	queued  map[string]struct{}
	onFire  func(keys []string)
	stopped bool

	// fireMu keeps callbacks from overlapping when Flush races the timer.
	fireMu sync.Mutex
}

func NewDebouncer(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = 200 * time.Millisecond
	}
	return &Debouncer{
		delay:  delay,
		queued: map[string]struct{}{},
	}
}

func (d *Debouncer) Delay() time.Duration {
	if d == nil {
		return 0
	}
	return d.delay
}

func (d *Debouncer) OnFire(fn func(keys []string)) {
	if d == nil {
		return
	}
	d.mu.Lock()
	d.onFire = fn
	d.mu.Unlock()
}

func (d *Debouncer) Push(key string) {
	if d == nil {
		return
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.queued[key] = struct{}{}
	if d.timer != nil {
		_ = d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fire)
}

// Pending reports how many keys are waiting for the next fire.
func (d *Debouncer) Pending() int {
	if d == nil {
		return 0
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queued)
}

// Flush fires any pending keys right away, on the caller's goroutine.
func (d *Debouncer) Flush() {
	if d == nil {
		return
	}
	d.mu.Lock()
	if d.timer != nil {
		_ = d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()
	d.fire()
}

// Stop drops pending keys and ignores later pushes.
func (d *Debouncer) Stop() {
	if d == nil {
		return
	}
	d.mu.Lock()
	d.stopped = true
	if d.timer != nil {
		_ = d.timer.Stop()
		d.timer = nil
	}
	d.queued = map[string]struct{}{}
	d.mu.Unlock()
}

func (d *Debouncer) fire() {
	d.fireMu.Lock()
	defer d.fireMu.Unlock()

	d.mu.Lock()
	queued := d.queued
	d.queued = map[string]struct{}{}
	fn := d.onFire
	d.mu.Unlock()

	if fn == nil || len(queued) == 0 {
		return
	}

	keys := make([]string, 0, len(queued))
	for k := range queued {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fn(keys)
}
