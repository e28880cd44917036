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
	"reflect"
	"runtime"

	"github.com/google/uuid"

	"github.com/asmsh/deferred/internal/loop"
)

// panic messages
const (
	nilCallbackPanicMsg = "deferred: the provided callback is nil"
)

// sched is the scheduler every Deferred uses for its "yield to next tick"
// steps. Tests override it with a Loop they control and Drain
// explicitly, to observe a chain's state deterministically.
var sched = loop.Default

// Deferred is a single-resolution asynchronous value; see the package doc
// for the full model.
//
// The zero value is not usable; construct one with New.
type Deferred struct {
	id uuid.UUID

	state     State
	result    Res
	err       error
	abortArgs Res

	nextLinks   []*Deferred
	callbackFns []func(res Res) any
	errbackFns  []func(err error)
	abortFns    []func(args Res)
	progressFns []func(done, outOf int)
	partialFns  []func(v any)

	// spliceSuccessFns and spliceErrorFns are registered by spliceInto
	// (splice.go) when this Deferred is returned from another Deferred's
	// success callback. They're distinct from callbackFns/errbackFns so
	// that splicing never counts as a "local handler ran" for this node's
	// own error-bubbling bookkeeping.
	spliceSuccessFns []func(res Res)
	spliceErrorFns   []func(err error)

	// errbackSettled is set once runErrback has walked this node, so a
	// splice attached after the fact (spliceInto) knows it must forward
	// a recorded failure itself instead of waiting on a walk that already
	// happened.
	errbackSettled bool

	finallyFn    func()
	finallySet   bool
	finallyFired bool

	// progressSet is true once a progress tuple has been broadcast; a
	// listener registered afterward is invoked immediately with it.
	progressSet                 bool
	progressDone, progressOutOf int

	// root and branch are back-edges used only for abortAll/abortBranch
	// scoping; both are cleared on any terminal transition.
	root   *Deferred
	branch *Deferred
}

// New constructs a new Pending Deferred.
func New() *Deferred {
	d := &Deferred{id: uuid.New()}
	d.root = d
	d.branch = d
	return d
}

// newChild constructs a Pending Deferred to be linked as the next link of
// parent, inheriting parent's root.
// Its branch is assigned by the caller (Then), once it knows whether
// parent is becoming a branch point.
func newChild(parent *Deferred) *Deferred {
	d := &Deferred{id: uuid.New()}
	d.root = parent.root
	return d
}

// State returns the Deferred's current state.
func (d *Deferred) State() State {
	return d.state
}

// Result returns the argument tuple this Deferred succeeded with. It's
// only meaningful once State() == Callbacked.
func (d *Deferred) Result() Res {
	return d.result
}

// Err returns the error this Deferred failed with. It's only meaningful
// once State() == Errbacked.
func (d *Deferred) Err() error {
	return d.err
}

// AbortArgs returns the arguments this Deferred was aborted with. It's
// only meaningful once State() == Aborted.
func (d *Deferred) AbortArgs() Res {
	return d.abortArgs
}

func (d *Deferred) String() string {
	switch d.state {
	case Callbacked:
		return "callbacked: " + d.result.String()
	case Errbacked:
		return "errbacked: " + d.err.Error()
	case Aborted:
		return "aborted: " + d.abortArgs.String()
	default:
		return "pending"
	}
}

// funcName returns a best-effort, human-readable identity for fn, used to
// annotate diagnostics with the faulty callback's identity, when known.
func funcName(fn any) string {
	if fn == nil {
		return ""
	}
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return ""
	}
	rf := runtime.FuncForPC(v.Pointer())
	if rf == nil {
		return ""
	}
	return rf.Name()
}

// clearBackEdges releases root and branch, breaking the back-edges once
// this node reaches a terminal state.
func (d *Deferred) clearBackEdges() {
	d.root = nil
	d.branch = nil
}

// runFinally schedules d's finally hook, if one is registered and hasn't
// already fired. Called at every Callbacked/Errbacked settle site; never
// called on abort, so an aborted Deferred never runs its finally hook.
func (d *Deferred) runFinally() {
	if !d.finallySet || d.finallyFired {
		return
	}
	d.finallyFired = true
	sched.Schedule(d.finallyFn)
}

// Succeed resolves d to success with the given argument tuple.
// It's a no-op, with a diagnostic warning, if d is already Errbacked or
// already Callbacked (the latter also returns ErrAlreadyResolved); it's a
// silent no-op if d is Aborted.
func (d *Deferred) Succeed(values ...any) error {
	exit := raceGuard()
	defer exit()

	switch d.state {
	case Callbacked:
		warnAlreadyResolved(d, "succeed")
		return ErrAlreadyResolved
	case Errbacked:
		warnAlreadyResolved(d, "succeed")
		return nil
	case Aborted:
		return nil
	}

	d.state = Callbacked
	d.result = Res(values)
	d.clearBackEdges()
	d.runFinally()

	sched.Schedule(func() {
		d.runCallback()
	})
	return nil
}

// Callback is an alias for Succeed.
func (d *Deferred) Callback(values ...any) error {
	return d.Succeed(values...)
}

// Fail resolves d to failure with err. A nil err is recorded as
// ErrNoError. It's a no-op if d is Aborted, and a no-op with a
// diagnostic warning if d is already terminal otherwise.
func (d *Deferred) Fail(err error) *Deferred {
	exit := raceGuard()
	defer exit()

	switch d.state {
	case Aborted:
		return d
	case Errbacked, Callbacked:
		warnAlreadyResolved(d, "fail")
		return d
	}

	if err == nil {
		err = ErrNoError
	}

	d.state = Errbacked
	d.err = err
	d.clearBackEdges()
	d.runFinally()

	sched.Schedule(func() {
		enterErrback(d, err, "")
	})
	return d
}

// Errback is an alias for Fail.
func (d *Deferred) Errback(err error) *Deferred {
	return d.Fail(err)
}

// Abort transitions d to Aborted and recursively aborts every descendant.
// It's a no-op with a diagnostic warning if d is already terminal.
func (d *Deferred) Abort(args ...any) *Deferred {
	exit := raceGuard()
	defer exit()

	if d.state.IsTerminal() {
		warnAbortTerminal(d)
		return d
	}

	d.state = Aborted
	d.abortArgs = Res(args)
	for _, fn := range d.abortFns {
		fn(d.abortArgs)
	}
	d.clearBackEdges()

	children := d.nextLinks
	abortArgs := d.abortArgs
	sched.Schedule(func() {
		for _, child := range children {
			child.propagateAbort(abortArgs)
		}
	})
	return d
}

// propagateAbort aborts d (if it's still Pending) and every node in its
// subtree, synchronously, as part of an already-scheduled propagation
// step. A node already in a terminal state is left untouched.
func (d *Deferred) propagateAbort(args Res) {
	if d.state.IsTerminal() {
		return
	}

	d.state = Aborted
	d.abortArgs = args
	for _, fn := range d.abortFns {
		fn(args)
	}
	d.clearBackEdges()

	for _, child := range d.nextLinks {
		child.propagateAbort(args)
	}
}

// AbortBranch aborts the branch head: this node and every node on the
// same maximal single-successor chain leading up to it.
func (d *Deferred) AbortBranch() *Deferred {
	exit := raceGuard()
	defer exit()

	branch := d.branch
	if branch == nil {
		branch = d
	}
	return branch.Abort()
}

// AbortAll aborts the root of this Deferred's tree.
func (d *Deferred) AbortAll() *Deferred {
	exit := raceGuard()
	defer exit()

	root := d.root
	if root == nil {
		root = d
	}
	return root.Abort()
}
