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

// State represents the current state of a Deferred. A Deferred starts
// Pending and enters exactly one of the three terminal states, exactly
// once.
type State int32

const (
	// Pending is the state of a Deferred that hasn't been resolved yet.
	Pending State = iota

	// Callbacked is the state of a Deferred resolved to success.
	Callbacked

	// Errbacked is the state of a Deferred resolved to failure.
	Errbacked

	// Aborted is the state of a Deferred that's been cancelled.
	Aborted
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Callbacked:
		return "callbacked"
	case Errbacked:
		return "errbacked"
	case Aborted:
		return "aborted"
	default:
		return "<unknown>"
	}
}

// IsTerminal reports whether s is one of the three terminal states.
func (s State) IsTerminal() bool {
	return s == Callbacked || s == Errbacked || s == Aborted
}
