// Package autosave arms cancellable delayed tasks keyed by an arbitrary string.
package autosave

import (
	"sync"
	"time"
)

type entry struct {
	timer *time.Timer
	gen   uint64
}

// Debouncer runs the most recently scheduled task for a key once the key has been quiet
// for the configured delay. Scheduling again or cancelling disarms the previous task.
type Debouncer struct {
	delay   time.Duration
	mu      sync.Mutex
	pending map[string]*entry
	gen     uint64
	stopped bool
}

// New constructs a Debouncer. A non-positive delay defaults to two seconds.
func New(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = 2 * time.Second
	}
	return &Debouncer{delay: delay, pending: make(map[string]*entry)}
}

// Delay returns the quiet period.
func (d *Debouncer) Delay() time.Duration {
	return d.delay
}

// Schedule (re)arms the task for key. It returns false after Stop.
func (d *Debouncer) Schedule(key string, task func()) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return false
	}
	if prev, ok := d.pending[key]; ok {
		prev.timer.Stop()
	}
	d.gen++
	gen := d.gen
	e := &entry{gen: gen}
	e.timer = time.AfterFunc(d.delay, func() { d.fire(key, gen, task) })
	d.pending[key] = e
	return true
}

func (d *Debouncer) fire(key string, gen uint64, task func()) {
	d.mu.Lock()
	e, ok := d.pending[key]
	// a timer that already fired cannot be stopped; the generation tells us it was superseded
	if !ok || e.gen != gen || d.stopped {
		d.mu.Unlock()
		return
	}
	delete(d.pending, key)
	d.mu.Unlock()
	task()
}

// Cancel disarms the pending task for key and reports whether one was pending.
func (d *Debouncer) Cancel(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.pending[key]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(d.pending, key)
	return true
}

// Pending reports whether a task is armed for key.
func (d *Debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pending[key]
	return ok
}

// Stop disarms every pending task and refuses new ones.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	for key, e := range d.pending {
		e.timer.Stop()
		delete(d.pending, key)
	}
}
