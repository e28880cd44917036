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

//go:build enable_deferred_raceguard

package deferred

import (
	"fmt"
	"sync"

	"github.com/petermattis/goid"
)

// raceGuardState tracks which single goroutine is currently allowed to be
// inside mutating Deferred API calls; operations are not re-entrant-safe
// against parallel mutation. It's only compiled in by the
// enable_deferred_raceguard build tag.
var raceGuardState struct {
	mu    sync.Mutex
	gid   int64
	depth int
}

// raceGuard asserts that the calling goroutine is either the sole goroutine
// currently inside a mutating call, or that no other goroutine is. It
// panics, loudly, the moment two goroutines try to mutate Deferred state
// concurrently, instead of letting them race silently.
func raceGuard() func() {
	gid := goid.Get()

	raceGuardState.mu.Lock()
	if raceGuardState.depth == 0 {
		raceGuardState.gid = gid
	} else if raceGuardState.gid != gid {
		got, want := gid, raceGuardState.gid
		raceGuardState.mu.Unlock()
		panic(fmt.Sprintf(
			"deferred: concurrent mutation detected: goroutine %d entered while goroutine %d was already inside the Deferred tree; "+
				"Deferred models a single logical executor and is not safe to share across goroutines",
			got, want))
	}
	raceGuardState.depth++
	raceGuardState.mu.Unlock()

	return func() {
		raceGuardState.mu.Lock()
		raceGuardState.depth--
		if raceGuardState.depth == 0 {
			raceGuardState.gid = 0
		}
		raceGuardState.mu.Unlock()
	}
}
