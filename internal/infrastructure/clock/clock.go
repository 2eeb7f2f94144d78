// Package clock provides the wall-clock Scheduler.
package clock

import (
	"time"

	"github.com/adminkit/admin-console/internal/core/ports"
)

// Scheduler runs callbacks on the runtime timer.
type Scheduler struct{}

func (Scheduler) AfterFunc(d time.Duration, f func()) ports.Timer {
	return time.AfterFunc(d, f)
}
