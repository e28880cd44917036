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

package deferred_test

import (
	"testing"
	"time"

	"github.com/asmsh/deferred"
)

const testTimeout = 2 * time.Second

// TestAllOfJoinsInOrder checks allOf(a, b).onProgress((k,n) => log).then((x,y)
// => ...); a.succeed(1); b.succeed(2) yields (1, 2), with progress
// observing (1,2) then (2,2) along the way.
func TestAllOfJoinsInOrder(t *testing.T) {
	a, b := deferred.New(), deferred.New()

	progress := make(chan [2]int, 2)
	joined := make(chan deferred.Res, 1)

	j := deferred.AllOf(a, b)
	j.OnProgress(func(done, outOf int) {
		progress <- [2]int{done, outOf}
	})
	j.Then(func(res deferred.Res) any {
		joined <- res
		return nil
	})

	_ = a.Succeed(1)
	_ = b.Succeed(2)

	first := recvTick(t, progress)
	second := recvTick(t, progress)
	if first != [2]int{1, 2} || second != [2]int{2, 2} {
		t.Fatalf("progress ticks = %v, %v, want [1 2], [2 2]", first, second)
	}

	res := recvRes(t, joined)
	if len(res) != 2 || res[0] != 1 || res[1] != 2 {
		t.Fatalf("joined result = %v, want [1 2]", res)
	}
}

// TestAllOfFailsFastWithoutAbortingSiblings checks that a single input
// failure settles the join, while the other inputs are left running.
func TestAllOfFailsFastWithoutAbortingSiblings(t *testing.T) {
	a, b := deferred.New(), deferred.New()
	failed := make(chan error, 1)

	j := deferred.AllOf(a, b)
	j.OrIfError(func(err error) {
		failed <- err
	})

	boom := testErr("boom")
	a.Fail(boom)

	err := recvErr(t, failed)
	if err.Error() != string(boom) {
		t.Fatalf("join failed with %v, want %v", err, boom)
	}

	if b.State() != deferred.Pending {
		t.Fatalf("b.State() = %v, want Pending (allOf doesn't abort siblings)", b.State())
	}
	_ = b.Succeed(2) // drain it so it doesn't linger as an unhandled resolve.
}

// TestFirstOfWithAbort checks firstOf(slow, fast).then(v => v);
// fast.succeed("ok"): the join yields "ok" and slow is aborted.
func TestFirstOfWithAbort(t *testing.T) {
	slow, fast := deferred.New(), deferred.New()
	won := make(chan deferred.Res, 1)
	slowAborted := make(chan deferred.Res, 1)

	w := deferred.FirstOf(slow, fast)
	w.Then(func(res deferred.Res) any {
		won <- res
		return nil
	})
	slow.OnAbort(func(args deferred.Res) {
		slowAborted <- args
	})

	_ = fast.Succeed("ok")

	res := recvRes(t, won)
	if len(res) != 1 || res[0] != "ok" {
		t.Fatalf("won with %v, want [ok]", res)
	}

	recvRes(t, slowAborted)
	if slow.State() != deferred.Aborted {
		t.Fatalf("slow.State() = %v, want Aborted", slow.State())
	}
}

// TestFirstOfIdempotence is the first-wins idempotence law: once firstOf
// resolves, a losing input's later completion has no observable effect
// beyond having already been aborted.
func TestFirstOfIdempotence(t *testing.T) {
	a, b := deferred.New(), deferred.New()
	won := make(chan deferred.Res, 1)

	w := deferred.FirstOf(a, b)
	w.Then(func(res deferred.Res) any {
		won <- res
		return nil
	})

	_ = a.Succeed("first")
	recvRes(t, won)

	// b is already Aborted; resolving it now must be a silent no-op, not
	// a second observable effect on w.
	_ = b.Succeed("second")

	select {
	case res := <-won:
		t.Fatalf("w observed a second result: %v", res)
	case <-time.After(200 * time.Millisecond):
	}
}

type testErr string

func (e testErr) Error() string { return string(e) }

func recvTick(t *testing.T, ch chan [2]int) [2]int {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(testTimeout):
		t.Fatal("timed out waiting for a progress tick")
		return [2]int{}
	}
}

func recvRes(t *testing.T, ch chan deferred.Res) deferred.Res {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(testTimeout):
		t.Fatal("timed out waiting for a result")
		return nil
	}
}

func recvErr(t *testing.T, ch chan error) error {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(testTimeout):
		t.Fatal("timed out waiting for an error")
		return nil
	}
}
