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

// Package deferred provides a single-threaded, cooperative Deferred value,
// in the style of the classic JavaScript "Deferred" object: a pending
// computation that's resolved exactly once, by its producer, through one
// of three terminal transitions (success, failure, or abort), and observed
// by any number of dependents, attached either before or after resolution.
//
// Dependents attached through Then form a tree rooted at the Deferred that
// created them. Each dependent may itself grow new dependents, so a single
// root can end up with many branches, each progressing independently once
// the node they hang off has resolved.
//
// A Deferred has exactly one of four states, at any time:
//   - Pending: not yet resolved.
//   - Callbacked: resolved to success; its registered success callbacks
//     will run (or have run), in registration order.
//   - Errbacked: resolved to failure; its registered error handlers will
//     run (or have run), in registration order.
//   - Aborted: cancelled; its registered abort listeners will run (or
//     have run), and every descendant is aborted in turn.
//
// A Deferred is not safe to resolve from an arbitrary goroutine while other
// goroutines observe it: it models a single logical executor ("one event
// loop, one call stack at a time"), with all state transitions and callback
// invocations happening either synchronously on the calling goroutine, or
// scheduled onto the package's single loop goroutine to run after the
// current call stack unwinds (see internal/loop). That tradeoff buys the
// tree/branch/abort semantics described below without any locking inside a
// single node.
//
// # Callback Notes
//
// A success callback registered with Then receives the full argument tuple
// passed to the preceding succeed call, as a Res value. If it returns a
// Deferred, that Deferred is spliced into the chain: the child created by
// Then doesn't resolve until the returned Deferred does (see splice.go). If it
// panics, the child it feeds is resolved to failure with the panic value
// wrapped, annotated with the faulty callback's identity.
//
// An error reaching a node with no local OrIfError handler bubbles into
// every child of that node; it's considered handled only if every branch
// below the failing node contains a handler somewhere along it. An error
// that reaches any leaf unhandled falls through to the process-wide
// default handler, if one is registered (see RegisterDefaultErrorHandler),
// or is reported through the package's diagnostics channel and re-raised
// as a panic on the loop goroutine.
package deferred
