// Package bg runs work off the request path.
//
// Production code uses Async; tests use Sync so side effects are observable
// as soon as the call returns.
package bg

import (
	"context"
	"sync"
)

type Runner interface {
	Do(fn func())
}

// Async runs each function in its own goroutine and keeps count of the ones
// still running so shutdown can wait for them.
type Async struct {
	wg sync.WaitGroup
}

func (a *Async) Do(fn func()) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		fn()
	}()
}

// Wait blocks until every started function returned or ctx is done.
func (a *Async) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Sync runs each function inline.
type Sync struct{}

func (Sync) Do(fn func()) {
	fn()
}
