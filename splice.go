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

// spliceInto wires inner into child's place in the tree: inner is the
// Deferred a success callback returned instead of a plain value, and
// child is the node that callback's Then created.
//
// child adopts inner's eventual success as its own. On failure, child only
// adopts inner's error if inner has no locally registered error handler of
// its own at the moment inner fails; otherwise inner's own chain is left to
// handle it, and child never settles. This matches the intent that a
// Deferred "absorbs" its own errors once it advertises handling them.
//
// inner is left wired into its own tree exactly as its caller built it;
// splicing only ever adds listeners, never rewires inner's root or branch.
func spliceInto(inner, child *Deferred) {
	switch inner.state {
	case Callbacked:
		settleSpliced(child, inner.result)
		return
	case Aborted:
		child.propagateAbort(inner.abortArgs)
		return
	}

	// forward re-checks inner.errbackFns at call time, not now, so a
	// handler attached to inner after this splice (but before inner
	// resolves) still counts.
	forward := func(err error) {
		if len(inner.errbackFns) == 0 {
			enterErrback(child, err, "")
		}
	}
	inner.spliceErrorFns = append(inner.spliceErrorFns, forward)

	if inner.state == Errbacked {
		// inner already failed. If its own error-bubbling walk (runErrback)
		// already ran, it won't revisit spliceErrorFns on its own, so this
		// splice, arriving late, has to forward the failure itself.
		if inner.errbackSettled && len(inner.errbackFns) == 0 {
			forward(inner.err)
		}
		return
	}

	// inner is still Pending: park the remaining two listeners that fire
	// out of inner's own resolution, whichever way it goes.
	inner.spliceSuccessFns = append(inner.spliceSuccessFns, func(res Res) {
		settleSpliced(child, res)
	})
	inner.OnAbort(func(args Res) {
		child.propagateAbort(args)
	})
}

// settleSpliced resolves child to Callbacked with res and cascades into
// child's own subtree, synchronously, the same way runCallbackForChild
// settles a plain (non-Deferred) callback return value.
func settleSpliced(child *Deferred, res Res) {
	if child.state.IsTerminal() {
		return
	}
	child.state = Callbacked
	child.result = res
	child.clearBackEdges()
	child.runFinally()
	child.runCallback()
}
