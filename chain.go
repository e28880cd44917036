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

// Then registers a success continuation and returns a new child Deferred.
// fn receives the full argument tuple this node succeeds with; if it
// returns a *Deferred, that Deferred is spliced into the chain
// (splice.go); if it panics, the child is resolved to failure with the
// panic value, annotated with fn's identity.
//
// It panics if fn is nil.
func (d *Deferred) Then(fn func(res Res) any) *Deferred {
	exit := raceGuard()
	defer exit()
	if fn == nil {
		panic(nilCallbackPanicMsg)
	}

	child := newChild(d)
	idx := len(d.nextLinks)
	d.nextLinks = append(d.nextLinks, child)
	d.callbackFns = append(d.callbackFns, fn)

	// branch bookkeeping.
	if idx == 0 {
		child.branch = d.branch
	} else {
		if idx == 1 {
			rearrangeBranch(d.nextLinks[0])
		}
		child.branch = child
	}

	switch d.state {
	case Callbacked:
		sched.Schedule(func() {
			d.runCallbackForChild(idx)
		})
	case Errbacked:
		err := d.err
		sched.Schedule(func() {
			enterErrback(child, err, "")
		})
	case Aborted:
		args := d.abortArgs
		sched.Schedule(func() {
			child.propagateAbort(args)
		})
	}

	return child
}

// rearrangeBranch reclassifies head's maximal single-successor chain as
// its own branch, triggered by the 1→2 children transition of head's
// parent. Every descendant along that
// chain gets branch = head, until a descendant with zero or more than one
// child is reached.
func rearrangeBranch(head *Deferred) {
	head.branch = head
	node := head
	for len(node.nextLinks) == 1 {
		node = node.nextLinks[0]
		node.branch = head
	}
}

// invokeCallback runs fn with res, recovering a panic into a
// callbackPanic error.
func invokeCallback(fn func(Res) any, res Res, name string) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = callbackPanic{v: r, callback: name}
		}
	}()
	v = fn(res)
	return
}

// runCallback cascades a success resolution into every child, in
// insertion order, synchronously.
func (d *Deferred) runCallback() {
	for i := range d.nextLinks {
		d.runCallbackForChild(i)
	}
	for _, fn := range d.spliceSuccessFns {
		fn(d.result)
	}
}

// runCallbackForChild invokes the i-th callback of d against d's result,
// and settles (or splices) the corresponding child. A child already
// Aborted is skipped without invoking its callback.
func (d *Deferred) runCallbackForChild(i int) {
	child := d.nextLinks[i]
	if child.state == Aborted {
		return
	}

	fn := d.callbackFns[i]
	name := funcName(fn)
	v, callErr := invokeCallback(fn, d.result, name)
	if callErr != nil {
		enterErrback(child, callErr, name)
		return
	}

	if inner, ok := v.(*Deferred); ok {
		spliceInto(inner, child)
		return
	}

	child.state = Callbacked
	child.result = asRes(v)
	child.clearBackEdges()
	child.runFinally()
	child.runCallback()
}

// enterErrback runs the error-bubbling walk rooted at d and, if the error goes unhandled across
// every branch, reports it through the diagnostics channel and panics
// with an *UnhandledError, on the loop goroutine.
func enterErrback(d *Deferred, err error, callback string) {
	if d.runErrback(err) {
		return
	}
	handleUnhandled(d, err, callback)
}

// runErrback is the depth-first, left-to-right error-bubbling walk. It
// settles d to Errbacked if it's still Pending, runs every
// locally registered handler, and, only if none ran, recurses into every
// non-aborted child. It reports "handled" for d's subtree iff a local
// handler ran, or every child subtree reports handled.
func (d *Deferred) runErrback(err error) bool {
	defer func() { d.errbackSettled = true }()

	if d.state == Pending {
		d.state = Errbacked
		d.err = err
		d.clearBackEdges()
		d.runFinally()
	}

	ran := false
	for _, fn := range d.errbackFns {
		func() {
			defer func() {
				if r := recover(); r != nil {
					panic(&HandlerFault{V: r, Err: err})
				}
			}()
			fn(err)
		}()
		ran = true
	}
	if ran {
		return true
	}

	// d has no local handler of its own: any Deferred spliced in around d
	// (splice.go) gets to see the error now, per the "inner absorbs its own
	// errors" rule. The splice target takes ownership of the error from
	// here, so forwarding it this way counts as handling it for d's own
	// bubbling too; d must not also escalate it to its own children or the
	// default handler.
	if len(d.spliceErrorFns) > 0 {
		for _, fn := range d.spliceErrorFns {
			fn(err)
		}
		return true
	}

	if len(d.nextLinks) == 0 {
		return false
	}

	allHandled := true
	for _, child := range d.nextLinks {
		if child.state == Aborted {
			continue
		}
		if !child.runErrback(err) {
			allHandled = false
		}
	}
	return allHandled
}

// callDefaultHandler invokes h with err, recovering a panic into a
// "not handled" result: a default handler fault is always fatal, never
// retried.
func callDefaultHandler(h func(error), err error) (handled bool) {
	defer func() {
		if recover() != nil {
			handled = false
		}
	}()
	h(err)
	handled = true
	return
}

// handleUnhandled consults the process-wide default error handler, if
// any, and otherwise reports a fatal diagnostic and panics with an
// *UnhandledError.
func handleUnhandled(d *Deferred, err error, callback string) {
	if h := getDefaultErrorHandler(); h != nil {
		if callDefaultHandler(h, err) {
			return
		}
	}

	ue := &UnhandledError{Err: err, Callback: callback}
	reportUnhandled(d, ue)
	panic(ue)
}

// OrIfError registers an error handler local to d. If d is
// already Errbacked, fn is invoked, after a yield-to-loop step, with the
// recorded error; this doesn't redo the handled/unhandled bookkeeping of
// d's original resolution, which already ran. It's refused, with a
// diagnostic warning, if d is Aborted.
//
// It panics if fn is nil.
func (d *Deferred) OrIfError(fn func(err error)) *Deferred {
	exit := raceGuard()
	defer exit()
	if fn == nil {
		panic(nilCallbackPanicMsg)
	}

	if d.state == Aborted {
		warnRefusedOnAborted(d, "orIfError")
		return d
	}

	d.errbackFns = append(d.errbackFns, fn)
	if d.state == Errbacked {
		err := d.err
		sched.Schedule(func() {
			fn(err)
		})
	}
	return d
}

// OnAbort registers an abort listener. If d is already
// Aborted, fn is invoked immediately with the recorded abort arguments.
//
// It panics if fn is nil.
func (d *Deferred) OnAbort(fn func(args Res)) *Deferred {
	exit := raceGuard()
	defer exit()
	if fn == nil {
		panic(nilCallbackPanicMsg)
	}

	if d.state == Aborted {
		fn(d.abortArgs)
		return d
	}
	d.abortFns = append(d.abortFns, fn)
	return d
}

// OnProgress registers a progress listener. If a prior
// progress tuple was already broadcast, fn is invoked immediately with
// it. It's refused, with a diagnostic warning, if d is Aborted.
//
// It panics if fn is nil.
func (d *Deferred) OnProgress(fn func(done, outOf int)) *Deferred {
	exit := raceGuard()
	defer exit()
	if fn == nil {
		panic(nilCallbackPanicMsg)
	}

	if d.state == Aborted {
		warnRefusedOnAborted(d, "onProgress")
		return d
	}
	if d.progressSet {
		fn(d.progressDone, d.progressOutOf)
	}
	d.progressFns = append(d.progressFns, fn)
	return d
}

// Progress broadcasts a progress tuple to every registered progress
// listener. It's refused, with a diagnostic warning, if d is
// Aborted.
func (d *Deferred) Progress(done, outOf int) *Deferred {
	exit := raceGuard()
	defer exit()

	if d.state == Aborted {
		warnRefusedOnAborted(d, "progress")
		return d
	}
	d.progressSet = true
	d.progressDone, d.progressOutOf = done, outOf
	for _, fn := range d.progressFns {
		fn(done, outOf)
	}
	return d
}

// OnPartialResult registers a partial-result listener. It's
// refused, with a diagnostic warning, if d is Aborted.
//
// It panics if fn is nil.
func (d *Deferred) OnPartialResult(fn func(v any)) *Deferred {
	exit := raceGuard()
	defer exit()
	if fn == nil {
		panic(nilCallbackPanicMsg)
	}

	if d.state == Aborted {
		warnRefusedOnAborted(d, "onPartialResult")
		return d
	}
	d.partialFns = append(d.partialFns, fn)
	return d
}

// PartialResult broadcasts a one-shot partial value to every registered
// partial-result listener. It's refused, with a diagnostic
// warning, if d is Aborted.
func (d *Deferred) PartialResult(v any) *Deferred {
	exit := raceGuard()
	defer exit()

	if d.state == Aborted {
		warnRefusedOnAborted(d, "partialResult")
		return d
	}
	for _, fn := range d.partialFns {
		fn(v)
	}
	return d
}

// AtLast registers the single finally hook, fired exactly once on
// Callbacked or Errbacked. Registering
// a second finally hook is fatal to the caller: it panics with
// ErrFinallyAlreadySet.
//
// It panics if fn is nil.
func (d *Deferred) AtLast(fn func()) *Deferred {
	exit := raceGuard()
	defer exit()
	if fn == nil {
		panic(nilCallbackPanicMsg)
	}
	if d.finallySet {
		panic(ErrFinallyAlreadySet)
	}

	d.finallySet = true
	d.finallyFn = fn
	if d.state == Callbacked || d.state == Errbacked {
		d.finallyFired = true
		sched.Schedule(fn)
	}
	return d
}

// Finally is an alias for AtLast.
func (d *Deferred) Finally(fn func()) *Deferred {
	return d.AtLast(fn)
}
