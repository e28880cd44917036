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

import "sync"

var defaultErrorHandler struct {
	mu sync.Mutex
	fn func(err error)
}

// RegisterDefaultErrorHandler installs the process-wide handler consulted
// when an error reaches at least one leaf of its subtree with no handler
// along the way.
// Registering a second one replaces the first;
// callers are expected to set this once, early, the same way they'd
// install a global panic recovery hook.
//
// A nil fn clears the handler, which tests rely on for isolation between
// runs.
func RegisterDefaultErrorHandler(fn func(err error)) {
	defaultErrorHandler.mu.Lock()
	defer defaultErrorHandler.mu.Unlock()
	defaultErrorHandler.fn = fn
}

// getDefaultErrorHandler returns the currently installed handler, or nil.
func getDefaultErrorHandler() func(error) {
	defaultErrorHandler.mu.Lock()
	defer defaultErrorHandler.mu.Unlock()
	return defaultErrorHandler.fn
}
