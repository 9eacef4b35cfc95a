package remotesync

import (
	"sync"
	"time"
)

// Debouncer runs fn once after calls to Trigger have been quiet for wait
// (trailing edge). fn never runs concurrently with itself.
type Debouncer struct {
	wait  time.Duration
	fn    func()
	runMu sync.Mutex

	mu      sync.Mutex
	idle    *sync.Cond
	timer   *time.Timer
	gen     uint64
	pending bool
	running int
	stopped bool
}

// NewDebouncer creates a debouncer guarding fn.
func NewDebouncer(wait time.Duration, fn func()) *Debouncer {
	d := &Debouncer{wait: wait, fn: fn}
	d.idle = sync.NewCond(&d.mu)
	return d
}

// Trigger (re)starts the quiescence window.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.pending = true
	d.timer = time.AfterFunc(d.wait, func() { d.fire(gen) })
}

// Pending reports whether a run is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || !d.pending {
		// Superseded by a later Trigger or already flushed.
		d.mu.Unlock()
		return
	}
	d.pending = false
	d.timer = nil
	d.running++
	d.mu.Unlock()
	d.run()
}

// run executes fn; the caller has already counted it in running.
func (d *Debouncer) run() {
	d.runMu.Lock()
	d.fn()
	d.runMu.Unlock()

	d.mu.Lock()
	d.running--
	d.idle.Broadcast()
	d.mu.Unlock()
}

// Flush runs a scheduled call immediately instead of waiting. With nothing
// scheduled it waits for a run already in progress, so fn's effects are
// visible once Flush returns.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.pending {
		if d.timer != nil {
			d.timer.Stop()
		}
		d.gen++
		d.pending = false
		d.timer = nil
		d.running++
		d.mu.Unlock()
		d.run()
		return
	}
	for d.running > 0 {
		d.idle.Wait()
	}
	d.mu.Unlock()
}

// Stop flushes anything pending and ignores later triggers.
func (d *Debouncer) Stop() {
	d.Flush()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
}
