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

package deferred

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyResolved is returned by succeed when it's called a second
	// time on a node that's already Callbacked.
	ErrAlreadyResolved = errors.New("deferred: already resolved")

	// ErrFinallyAlreadySet is the value AtLast panics with when a finally
	// hook has already been registered on this node.
	ErrFinallyAlreadySet = errors.New("deferred: finally already set")

	// ErrNoError is the sentinel failure value recorded when fail is called
	// with a nil error.
	ErrNoError = errors.New("deferred: errback called without error")
)

// UnhandledError wraps a user error that reached at least one leaf of its
// subtree with no OrIfError handler along the way, and for which no
// process-wide default error handler was registered (or the default handler
// itself panicked). It's the value this package panics with, on the
// loop goroutine, after emitting a fatal diagnostic.
type UnhandledError struct {
	// Err is the original error passed to fail, or produced by a callback.
	Err error

	// Callback, if non-empty, identifies the callback whose subtree failed
	// to handle Err; best-effort, derived from runtime.FuncForPC.
	Callback string
}

func (e *UnhandledError) Error() string {
	if e.Callback != "" {
		return fmt.Sprintf("deferred: unhandled error from %s: %s", e.Callback, e.Err)
	}
	return fmt.Sprintf("deferred: unhandled error: %s", e.Err)
}

func (e *UnhandledError) Unwrap() error {
	return e.Err
}

// HandlerFault wraps a panic raised from inside an OrIfError handler while
// the error-bubbling walk runs it; the walk re-panics with it, on the loop
// goroutine. A handler fault is always fatal: the default handler is never
// consulted for it. A panic from the default handler itself is reported as
// an *UnhandledError instead.
type HandlerFault struct {
	// V is the value passed to panic inside the faulting handler.
	V any

	// Err is the error the faulting handler was invoked with.
	Err error
}

func (e *HandlerFault) Error() string {
	return fmt.Sprintf("deferred: error handler panicked with %v while handling %s", e.V, e.Err)
}

// callbackPanic wraps a panic raised from inside a success callback
// registered with Then. Its next link is resolved to Errbacked with this
// value as the error.
type callbackPanic struct {
	v        any
	callback string
}

func (e callbackPanic) Error() string {
	if e.callback != "" {
		return fmt.Sprintf("deferred: callback %s panicked: %v", e.callback, e.v)
	}
	return fmt.Sprintf("deferred: callback panicked: %v", e.v)
}

// Unwrap exposes the panic value for errors.Is/errors.As when the callback
// panicked with an error, the common case of a callback re-panicking a
// failure it received from elsewhere.
func (e callbackPanic) Unwrap() error {
	err, _ := e.v.(error)
	return err
}
