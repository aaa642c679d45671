package schedule

import (
	"sync"
	"time"
)

// Debouncer delays a callback until a key has been quiet for the configured
// delay. Each key owns one reusable timer: scheduling again re-arms it and
// replaces the callback instead of creating another timer.
type Debouncer struct {
	mu      sync.Mutex
	clock   Clock
	delay   time.Duration
	entries map[string]*debounceEntry
	stopped bool
}

type debounceEntry struct {
	timer   Timer
	fn      func()
	pending bool
	due     time.Time // firings before this instant are superseded
}

// NewDebouncer creates a debouncer on the given clock
func NewDebouncer(clock Clock, delay time.Duration) *Debouncer {
	if clock == nil {
		clock = RealClock{}
	}
	return &Debouncer{
		clock:   clock,
		delay:   delay,
		entries: make(map[string]*debounceEntry),
	}
}

// Delay returns the quiet period
func (d *Debouncer) Delay() time.Duration {
	return d.delay
}

// Schedule (re)arms the timer for key; fn replaces any callback still pending
func (d *Debouncer) Schedule(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	e, ok := d.entries[key]
	if !ok {
		e = &debounceEntry{}
		d.entries[key] = e
		e.fn = fn
		e.pending = true
		e.due = d.clock.Now().Add(d.delay)
		e.timer = d.clock.AfterFunc(d.delay, func() { d.fire(key) })
		return
	}

	e.fn = fn
	e.pending = true
	e.due = d.clock.Now().Add(d.delay)
	e.timer.Reset(d.delay)
}

// fire runs when a timer expires. A callback already waiting on d.mu while
// Schedule re-armed the key, or one left over from a forgotten entry, sees a
// later due time and does nothing; the re-armed timer fires on its own.
func (d *Debouncer) fire(key string) {
	d.mu.Lock()
	e, ok := d.entries[key]
	if !ok || !e.pending || d.clock.Now().Before(e.due) {
		d.mu.Unlock()
		return
	}
	e.pending = false
	fn := e.fn
	d.mu.Unlock()

	fn()
}

// Pending reports whether key has a callback waiting to fire
func (d *Debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.entries[key]
	return ok && e.pending
}

// Cancel drops the pending callback for key without running it
func (d *Debouncer) Cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if e, ok := d.entries[key]; ok {
		e.timer.Stop()
		e.pending = false
	}
}

// FireNow runs the pending callback for key immediately.
// Reports whether anything was pending.
func (d *Debouncer) FireNow(key string) bool {
	d.mu.Lock()
	e, ok := d.entries[key]
	if !ok || !e.pending {
		d.mu.Unlock()
		return false
	}
	e.timer.Stop()
	e.pending = false
	fn := e.fn
	d.mu.Unlock()

	fn()
	return true
}

// Forget cancels key and releases its timer
func (d *Debouncer) Forget(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if e, ok := d.entries[key]; ok {
		e.timer.Stop()
		delete(d.entries, key)
	}
}

// Stop runs every pending callback once, then refuses new work
func (d *Debouncer) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	var fns []func()
	for key, e := range d.entries {
		e.timer.Stop()
		if e.pending {
			fns = append(fns, e.fn)
		}
		delete(d.entries, key)
	}
	d.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
