// Copyright 2024 Ahmad Sameh(asmsh)
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
	"testing"
)

// TestLinearChain checks a two-deep chain: d.then(x => x+1).then(x => x*2);
// d.succeed(3) settles the final child with 8.
func TestLinearChain(t *testing.T) {
	l := withTestLoop(t)

	d := New()
	final := d.Then(func(res Res) any {
		n, _ := res.First()
		return n.(int) + 1
	}).Then(func(res Res) any {
		n, _ := res.First()
		return n.(int) * 2
	})

	_ = d.Succeed(3)
	l.Drain()

	if final.State() != Callbacked {
		t.Fatalf("final.State() = %v, want Callbacked", final.State())
	}
	if got, _ := final.Result().First(); got != 8 {
		t.Fatalf("final.Result() = %v, want [8]", final.Result())
	}
}

// TestErrorBubblingAcrossBranch checks two branches off the same node,
// one with a handler observing its own error, the other with none; the
// unhandled one reaches the default handler.
func TestErrorBubblingAcrossBranch(t *testing.T) {
	l := withTestLoop(t)

	e1 := errors.New("e1")
	e2 := errors.New("e2")

	var defaultErr error
	RegisterDefaultErrorHandler(func(err error) { defaultErr = err })
	t.Cleanup(func() { RegisterDefaultErrorHandler(nil) })

	d := New()
	d.Then(func(res Res) any { panic(e1) })

	var h2Err error
	d.Then(func(res Res) any { panic(e2) }).OrIfError(func(err error) {
		h2Err = err
	})

	_ = d.Succeed()
	l.Drain()

	if !errors.Is(h2Err, e2) {
		t.Fatalf("h2 observed %v, want %v", h2Err, e2)
	}
	if !errors.Is(defaultErr, e1) {
		t.Fatalf("default handler observed %v, want %v", defaultErr, e1)
	}
}

// TestSpliceSuccess is the splice identity law: a callback that returns a
// Deferred which immediately succeeds with y behaves as if it had
// returned y directly.
func TestSpliceSuccess(t *testing.T) {
	l := withTestLoop(t)

	d := New()
	inner := New()
	_ = inner.Succeed("y")

	child := d.Then(func(res Res) any {
		return inner
	})

	_ = d.Succeed()
	l.Drain()

	if child.State() != Callbacked {
		t.Fatalf("child.State() = %v, want Callbacked", child.State())
	}
	if got, _ := child.Result().First(); got != "y" {
		t.Fatalf("child.Result() = %v, want [y]", child.Result())
	}
}

// TestSpliceFailureAbsorbedByInnerHandler checks d.then(() =>
// inner).then(f); inner.fail(E); d.succeed(), where inner has its own
// orIfError: the outer child stays Pending and f is never invoked.
func TestSpliceFailureAbsorbedByInnerHandler(t *testing.T) {
	l := withTestLoop(t)

	boom := errors.New("boom")
	inner := New()
	var innerHandlerErr error
	inner.OrIfError(func(err error) { innerHandlerErr = err })
	inner.Fail(boom)
	l.Drain()

	var fCalled bool
	d := New()
	outerChild := d.Then(func(res Res) any {
		return inner
	}).Then(func(res Res) any {
		fCalled = true
		return nil
	})

	_ = d.Succeed()
	l.Drain()

	if !errors.Is(innerHandlerErr, boom) {
		t.Fatalf("inner's own handler observed %v, want %v", innerHandlerErr, boom)
	}
	if fCalled {
		t.Fatal("f was invoked despite inner absorbing its own error")
	}
	if outerChild.State() != Pending {
		t.Fatalf("outerChild.State() = %v, want Pending", outerChild.State())
	}
}

// TestSpliceFailureWithoutInnerHandlerPropagates is the flip side: when
// inner has no local handler, its failure does reach the outer child.
func TestSpliceFailureWithoutInnerHandlerPropagates(t *testing.T) {
	l := withTestLoop(t)

	boom := errors.New("boom")
	inner := New()

	d := New()
	var outerErr error
	d.Then(func(res Res) any {
		return inner
	}).OrIfError(func(err error) {
		outerErr = err
	})

	_ = d.Succeed()
	inner.Fail(boom)
	l.Drain()

	if !errors.Is(outerErr, boom) {
		t.Fatalf("outer observed %v, want %v", outerErr, boom)
	}
}

// TestFullyHandledChainSkipsDefaultHandler checks that if every leaf
// reachable from a failing node has an orIfError handler, the default
// handler is never invoked.
func TestFullyHandledChainSkipsDefaultHandler(t *testing.T) {
	l := withTestLoop(t)

	var defaultCalled bool
	RegisterDefaultErrorHandler(func(err error) { defaultCalled = true })
	t.Cleanup(func() { RegisterDefaultErrorHandler(nil) })

	boom := errors.New("boom")
	d := New()
	var handled error
	d.OrIfError(func(err error) { handled = err })

	d.Fail(boom)
	l.Drain()

	if defaultCalled {
		t.Fatal("default handler was invoked despite a local handler")
	}
	if !errors.Is(handled, boom) {
		t.Fatalf("handled = %v, want %v", handled, boom)
	}
}

// TestAttachBeforeAndAfterResolveAgree is the attach-before-resolve ≡
// attach-after-resolve law.
func TestAttachBeforeAndAfterResolveAgree(t *testing.T) {
	t.Run("before", func(t *testing.T) {
		l := withTestLoop(t)
		d := New()
		var got any
		d.Then(func(res Res) any {
			got, _ = res.First()
			return nil
		})
		_ = d.Succeed("x")
		l.Drain()
		if got != "x" {
			t.Fatalf("got %v, want x", got)
		}
	})

	t.Run("after", func(t *testing.T) {
		l := withTestLoop(t)
		d := New()
		_ = d.Succeed("x")
		l.Drain()

		var got any
		d.Then(func(res Res) any {
			got, _ = res.First()
			return nil
		})
		l.Drain()
		if got != "x" {
			t.Fatalf("got %v, want x", got)
		}
	})
}

// TestAtLastRunsOnceOnEitherOutcome checks atLast/finally fires exactly
// once, whether the node succeeds or fails.
func TestAtLastRunsOnceOnEitherOutcome(t *testing.T) {
	l := withTestLoop(t)
	RegisterDefaultErrorHandler(func(err error) {})
	t.Cleanup(func() { RegisterDefaultErrorHandler(nil) })

	d := New()
	var calls int
	d.AtLast(func() { calls++ })

	d.Fail(errors.New("boom"))
	l.Drain()

	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}

	s := New()
	var successCalls int
	s.AtLast(func() { successCalls++ })

	_ = s.Succeed(1)
	l.Drain()

	if successCalls != 1 {
		t.Fatalf("successCalls = %d, want 1", successCalls)
	}
}

// TestAtLastTwiceIsFatal checks the one misuse that's fatal rather than a
// warning, .
func TestAtLastTwiceIsFatal(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic on double atLast registration")
		}
	}()

	d := New()
	d.AtLast(func() {})
	d.AtLast(func() {})
}
