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
	"testing"

	"github.com/asmsh/deferred/internal/loop"
)

// withTestLoop swaps the package's scheduler for a fresh, unstarted Loop
// for the duration of a test, restoring the original on cleanup. Tests
// drive resolution with l.Drain() instead of racing the background Loop
// goroutine, so a chain's state can be asserted deterministically.
func withTestLoop(t *testing.T) *loop.Loop {
	t.Helper()
	l := loop.New()
	prev := sched
	sched = l
	t.Cleanup(func() { sched = prev })
	return l
}
