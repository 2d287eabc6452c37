/*
 * MIT License
 *
 * Copyright (c) 2022 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package startStop provides a small goroutine-lifecycle wrapper around a
// pair of start/stop functions: Start launches the start function in its own
// goroutine and tracks it, Stop cancels it and waits for it to return, and
// Restart chains the two. Errors returned by either function are kept as a
// short history queryable with ErrorsLast/ErrorsList instead of being dropped
// on the floor, since both functions normally run detached from the caller.
package startStop

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nabbar/golib/runner"
)

// maxErrorsHistory bounds the size of the error history kept by a runner.
const maxErrorsHistory = 100

// StartStop manages the lifecycle of a background goroutine defined by a
// start and a stop function.
type StartStop interface {
	// Start launches the configured start function in a new goroutine and
	// returns immediately. A previously running instance is stopped first.
	Start(ctx context.Context) error

	// Stop cancels the running goroutine, waits for it to return, then
	// invokes the configured stop function. Safe to call when not running.
	Stop(ctx context.Context) error

	// Restart stops then starts the runner.
	Restart(ctx context.Context) error

	// IsRunning reports whether the start function's goroutine is active.
	IsRunning() bool

	// Uptime reports the duration since the last successful Start, or zero
	// if not currently running.
	Uptime() time.Duration

	// ErrorsLast returns the most recent error captured from the start or
	// stop function, or nil if none occurred since the last Start.
	ErrorsLast() error

	// ErrorsList returns every error captured since the last Start.
	ErrorsList() []error
}

// New creates a StartStop runner around the given start and stop functions.
// Either may be nil: invoking a nil function records an "invalid start
// function" / "invalid stop function" error instead of panicking.
func New(fnStart func(ctx context.Context) error, fnStop func(ctx context.Context) error) StartStop {
	return &runnerImpl{
		fnStart: fnStart,
		fnStop:  fnStop,
	}
}

type runnerImpl struct {
	mu sync.Mutex

	fnStart func(ctx context.Context) error
	fnStop  func(ctx context.Context) error

	running   bool
	startedAt time.Time
	cancel    context.CancelFunc
	done      chan struct{}

	errMu sync.Mutex
	errs  []error
}

func (o *runnerImpl) addError(err error) {
	if err == nil {
		return
	}

	o.errMu.Lock()
	defer o.errMu.Unlock()

	o.errs = append(o.errs, err)
	if len(o.errs) > maxErrorsHistory {
		o.errs = o.errs[len(o.errs)-maxErrorsHistory:]
	}
}

func (o *runnerImpl) resetErrors() {
	o.errMu.Lock()
	defer o.errMu.Unlock()

	o.errs = nil
}

func (o *runnerImpl) ErrorsLast() error {
	o.errMu.Lock()
	defer o.errMu.Unlock()

	if len(o.errs) == 0 {
		return nil
	}

	return o.errs[len(o.errs)-1]
}

func (o *runnerImpl) ErrorsList() []error {
	o.errMu.Lock()
	defer o.errMu.Unlock()

	if len(o.errs) == 0 {
		return nil
	}

	out := make([]error, len(o.errs))
	copy(out, o.errs)
	return out
}

func (o *runnerImpl) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.running {
		o.stopLocked(ctx)
	}

	o.resetErrors()

	cctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	o.cancel = cancel
	o.done = done
	o.running = true
	o.startedAt = time.Now()

	fn := o.fnStart

	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				runner.RecoveryCaller("runner/startStop/start", r)
			}
		}()
		defer func() {
			o.mu.Lock()
			o.running = false
			o.mu.Unlock()
		}()

		var err error
		if fn == nil {
			err = errors.New("invalid start function")
		} else {
			err = fn(cctx)
		}

		o.addError(err)
	}()

	return nil
}

func (o *runnerImpl) Stop(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.stopLocked(ctx)
	return nil
}

// stopLocked performs the actual stop sequence. Caller must hold o.mu.
func (o *runnerImpl) stopLocked(ctx context.Context) {
	if !o.running {
		return
	}

	cancel := o.cancel
	done := o.done

	if cancel != nil {
		cancel()
	}

	if done != nil {
		o.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
		}
		o.mu.Lock()
	}

	o.running = false

	fn := o.fnStop

	func() {
		defer func() {
			if r := recover(); r != nil {
				runner.RecoveryCaller("runner/startStop/stop", r)
			}
		}()

		var err error
		if fn == nil {
			err = errors.New("invalid stop function")
		} else {
			err = fn(ctx)
		}

		o.addError(err)
	}()
}

func (o *runnerImpl) Restart(ctx context.Context) error {
	if err := o.Stop(ctx); err != nil {
		return err
	}

	return o.Start(ctx)
}

func (o *runnerImpl) IsRunning() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.running
}

func (o *runnerImpl) Uptime() time.Duration {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.running {
		return 0
	}

	return time.Since(o.startedAt)
}
