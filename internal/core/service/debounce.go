package service

import (
	"sync"
	"time"

	"github.com/adminkit/admin-console/internal/core/ports"
)

// Debouncer commits only the last value received before a quiet period,
// and only when it differs from the previously committed value.
type Debouncer struct {
	quiet    time.Duration
	schedule ports.Scheduler
	commit   func(string)

	mu        sync.Mutex
	pending   ports.Timer
	gen       uint64
	committed string
}

// NewDebouncer returns a Debouncer whose committed value starts at initial.
func NewDebouncer(quiet time.Duration, schedule ports.Scheduler, initial string, commit func(string)) *Debouncer {
	return &Debouncer{quiet: quiet, schedule: schedule, commit: commit, committed: initial}
}

// Input schedules value for commit, cancelling any pending one.
func (d *Debouncer) Input(value string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	gen := d.gen
	if d.pending != nil {
		d.pending.Stop()
	}
	d.pending = d.schedule.AfterFunc(d.quiet, func() { d.fire(gen, value) })
}

// Cancel drops the pending value, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	if d.pending != nil {
		d.pending.Stop()
		d.pending = nil
	}
}

// Reset sets the committed value without committing, e.g. after the
// search term was changed through another path.
func (d *Debouncer) Reset(committed string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.committed = committed
}

func (d *Debouncer) fire(gen uint64, value string) {
	d.mu.Lock()
	// A timer that lost the race with Stop may still run; gen tells.
	if gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.pending = nil
	if value == d.committed {
		d.mu.Unlock()
		return
	}
	d.committed = value
	d.mu.Unlock()

	d.commit(value)
}
