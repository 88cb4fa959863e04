package async

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/platinummonkey/agora/pkg/observability"
)

// Launcher starts fire-and-forget work. SafeGo, Inline and (*Tracker).Go all
// satisfy it, so callers can swap the background behaviour in tests.
type Launcher func(parentCtx context.Context, timeout time.Duration, taskName string, fn func(context.Context) error)

// SafeGo executes a function in a goroutine with:
// - Panic recovery
// - Timeout enforcement
// - Error logging
//
// The task keeps the parent's values (request id, logger) but not its
// cancellation, so a write-back started while serving a request survives the
// response being sent.
//
// Example:
//
//	SafeGo(r.Context(), 5*time.Second, "normalize vote type", func(ctx context.Context) error {
//	    return store.NormalizeVoteObjectType(ctx, voteID, kind)
//	})
func SafeGo(parentCtx context.Context, timeout time.Duration, taskName string, fn func(context.Context) error) {
	go run(parentCtx, timeout, taskName, fn)
}

// Inline runs the task synchronously with the same recovery and logging as
// SafeGo.
func Inline(parentCtx context.Context, timeout time.Duration, taskName string, fn func(context.Context) error) {
	run(parentCtx, timeout, taskName, fn)
}

func run(parentCtx context.Context, timeout time.Duration, taskName string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parentCtx), timeout)
	defer cancel()

	logger := observability.FromContext(ctx).WithField("task", taskName)

	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("panic in background task: %v\n%s", r, debug.Stack())
		}
	}()

	if err := fn(ctx); err != nil {
		logger.WithError(err).Warn("background task failed")
	}
}

// Tracker launches background tasks and lets shutdown wait for the ones still
// in flight.
type Tracker struct {
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{}
}

// Go starts fn like SafeGo. After Wait has been called new tasks are dropped.
func (t *Tracker) Go(parentCtx context.Context, timeout time.Duration, taskName string, fn func(context.Context) error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		observability.FromContext(parentCtx).WithField("task", taskName).Warn("tracker closed, dropping background task")
		return
	}
	t.wg.Add(1)
	t.mu.Unlock()

	go func() {
		defer t.wg.Done()
		run(parentCtx, timeout, taskName, fn)
	}()
}

// Wait stops accepting tasks and blocks until the running ones finish or ctx
// expires.
func (t *Tracker) Wait(ctx context.Context) error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("background tasks still running: %w", ctx.Err())
	}
}
