package ports

import (
	"context"
	"time"
)

// Timer is a pending scheduled call.
type Timer interface {
	// Stop prevents the call from firing. It reports whether it was still pending.
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// TaskRunner executes tasks; tasks sharing a key run one at a time, in
// submission order.
type TaskRunner interface {
	Submit(key string, task func(ctx context.Context))
}
