// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package clock provides a narrow abstraction over wall-clock time, so
// callers that need timestamps or delays go through an interface rather
// than calling time.Now/time.After directly.
package clock

import "time"

// Clock is the common interface implemented by RealClock.
type Clock interface {
	// Now returns the current time according to the clock.
	Now() time.Time

	// After returns a channel that receives a time value once d has
	// elapsed according to the clock.
	After(d time.Duration) <-chan time.Time
}

var _ Clock = RealClock{}
