// Copyright 2020 Ahmad Sameh(asmsh)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package loop implements the "yield to the next tick" scheduling contract
// that a Deferred's producer and dependents rely on: a minimum
// -delay scheduling call that runs a given closure only after the current
// synchronous call stack has unwound, in FIFO order relative to every other
// task scheduled the same way.
//
// It's the Go stand-in for a host event loop's setImmediate; the rest of
// this module only ever consumes that one contract.
package loop

import "sync"

// Loop is a single dedicated goroutine draining a FIFO queue of tasks.
// Schedule is safe to call from any goroutine; tasks run one at a time, in
// the order they were scheduled, on the Loop's own goroutine (or, under
// Drain, on the goroutine calling Drain).
type Loop struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []func()
	started bool
	closed  bool
}

// New returns a new, unstarted Loop. Call Start to begin draining it.
func New() *Loop {
	l := &Loop{}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// Start launches the Loop's dedicated draining goroutine, if it hasn't
// been launched yet. It's idempotent and safe to call concurrently.
func (l *Loop) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started {
		return
	}
	l.started = true
	go l.run()
}

// Schedule enqueues fn to run on the Loop's goroutine after the current
// call stack unwinds, after every task already queued.
func (l *Loop) Schedule(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.queue = append(l.queue, fn)
	l.cond.Signal()
}

func (l *Loop) run() {
	for {
		l.mu.Lock()
		for len(l.queue) == 0 && !l.closed {
			l.cond.Wait()
		}
		if l.closed && len(l.queue) == 0 {
			l.mu.Unlock()
			return
		}
		fn := l.queue[0]
		l.queue = l.queue[1:]
		l.mu.Unlock()

		fn()
	}
}

// Drain synchronously runs every task currently queued, and every task
// newly scheduled by those tasks, until the queue goes empty. It's meant
// for tests that need deterministic chain resolution without depending
// on the background goroutine's scheduling, and must not be called
// concurrently with Start on the same Loop.
func (l *Loop) Drain() {
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return
		}
		fn := l.queue[0]
		l.queue = l.queue[1:]
		l.mu.Unlock()

		fn()
	}
}

// Close stops the Loop's draining goroutine once its queue is empty. A
// closed Loop silently drops any further Schedule calls.
func (l *Loop) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	l.cond.Broadcast()
}

// Default is the package-level Loop every Deferred uses unless told
// otherwise. It's started eagerly, when this package is initialized.
var Default = New()

func init() {
	Default.Start()
}
