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

import "fmt"

// Res is the argument tuple a Deferred carries across a transition.
//
// succeed(values...) records the full argument tuple as a Res; a chained
// callback receives that tuple as positional arguments. When a callback
// returns a single, non-Res value, that value becomes a one-element Res.
//
// Values of this type must not be modified after they're handed to succeed,
// or returned from a callback.
type Res []any

// First returns the first element of res and true, if res isn't empty,
// otherwise it returns nil and false.
func (res Res) First() (first any, ok bool) {
	if len(res) == 0 {
		return nil, false
	}
	return res[0], true
}

// Copy returns a new copy of res, or res itself if it's empty.
func (res Res) Copy() Res {
	if len(res) == 0 {
		return res
	}
	newRes := make(Res, len(res))
	copy(newRes, res)
	return newRes
}

func (res Res) String() string {
	return fmt.Sprintf("%v", []any(res))
}

// asRes normalizes the value returned from a success callback into a Res:
// a Res value is used as-is, nil becomes an empty Res, and anything else
// becomes the sole element of a one-element Res.
func asRes(v any) Res {
	switch v := v.(type) {
	case Res:
		return v
	case nil:
		return nil
	default:
		return Res{v}
	}
}
