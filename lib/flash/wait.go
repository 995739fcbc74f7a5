package flash

import (
	"context"
	"time"
)

// Completion is the result of waiting for a polled operation.
type Completion uint8

const (
	Done     Completion = iota // the operation finished, successfully or not
	TimedOut                   // the deadline expired while the operation was still running
)

func (c Completion) String() string {
	if c == Done {
		return "done"
	}
	return "timed out"
}

// DefaultPollInterval is the pause between two polls of a busy controller.
const DefaultPollInterval = time.Millisecond

// WaitComplete polls s until the operation in flight finishes or ctx expires.
// A finished operation that failed is reported as Done together with ErrProgramFailed.
// An expired context yields TimedOut and the context error.
func WaitComplete(ctx context.Context, s IAsyncRowStore, interval time.Duration) (Completion, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		switch s.Poll() {
		case OpIdle, OpDone:
			return Done, nil
		case OpFailed:
			return Done, ErrProgramFailed
		}

		select {
		case <-ctx.Done():
			return TimedOut, ctx.Err()
		case <-ticker.C:
		}
	}
}
