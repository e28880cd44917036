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

// AllOf joins ds into a single Deferred J that succeeds once every input
// has succeeded, with their first success value in input order. J fails
// on the first input failure; every later input event,
// success or failure, is then ignored. Inputs are never aborted on a
// sibling's failure, unlike FirstOf.
//
// Along the way, J broadcasts progress(k, len(ds)) after the k-th input
// completes, and partialResult with the aggregate built so far, where a
// not-yet-completed slot is nil.
//
// AllOf of zero inputs succeeds immediately with an empty result.
func AllOf(ds ...*Deferred) *Deferred {
	out := New()

	n := len(ds)
	if n == 0 {
		out.Succeed()
		return out
	}

	aggregate := make(Res, n)
	done := 0
	settled := false

	for i, d := range ds {
		i, d := i, d

		d.Then(func(res Res) any {
			if settled {
				return nil
			}
			v, _ := res.First()
			aggregate[i] = v
			done++

			out.Progress(done, n)
			out.PartialResult(aggregate.Copy())

			if done == n {
				settled = true
				out.Succeed(aggregate...)
			}
			return nil
		})

		d.OrIfError(func(err error) {
			if settled {
				return
			}
			settled = true
			out.Fail(err)
		})
	}

	return out
}

// FirstOf joins ds into a single Deferred W that settles on whichever
// input completes first:
//
//   - The first input to succeed decides W's success value; every other
//     still-Pending input is then aborted.
//   - If no input has yet succeeded, the first input to fail decides W's
//     failure; every later failure, from that input or any other, is
//     suppressed.
//
// Every input gets its own orIfError attached up front, before any input
// can resolve, so a losing input's eventual failure is always handled
// locally and never surfaces a spurious unhandled-error diagnostic.
//
// FirstOf of zero inputs returns a Deferred that never settles; there is
// no value for it to win with.
func FirstOf(ds ...*Deferred) *Deferred {
	out := New()

	settled := false
	failed := false

	for _, d := range ds {
		d := d

		d.Then(func(res Res) any {
			if settled {
				return nil
			}
			settled = true
			for _, other := range ds {
				if other.State() == Pending {
					other.Abort()
				}
			}
			out.Succeed(res...)
			return nil
		})

		d.OrIfError(func(err error) {
			if settled || failed {
				return
			}
			failed = true
			settled = true
			out.Fail(err)
		})
	}

	return out
}
