// Copyright 2024 Google LLC
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

package tagindex

// bimap is a bidirectional map between a uint32 identity and a string
// name. Every key on one side has exactly one matching entry on the
// other; mutators keep both sides in lockstep. No bimap library appears
// anywhere in the retrieved example pack, so this is a direct paired-map
// reimplementation (see DESIGN.md).
type bimap struct {
	byNumber map[uint32]string
	byName   map[string]uint32
}

func newBimap() *bimap {
	return &bimap{
		byNumber: make(map[uint32]string),
		byName:   make(map[string]uint32),
	}
}

func (b *bimap) insert(number uint32, name string) {
	if old, ok := b.byNumber[number]; ok {
		delete(b.byName, old)
	}
	if old, ok := b.byName[name]; ok {
		delete(b.byNumber, old)
	}
	b.byNumber[number] = name
	b.byName[name] = number
}

func (b *bimap) byNumberLookup(number uint32) (string, bool) {
	name, ok := b.byNumber[number]
	return name, ok
}

func (b *bimap) byNameLookup(name string) (uint32, bool) {
	number, ok := b.byName[name]
	return number, ok
}

func (b *bimap) removeByNumber(number uint32) {
	if name, ok := b.byNumber[number]; ok {
		delete(b.byNumber, number)
		delete(b.byName, name)
	}
}

// numbers returns every number currently bound, in no particular order.
func (b *bimap) numbers() []uint32 {
	out := make([]uint32, 0, len(b.byNumber))
	for n := range b.byNumber {
		out = append(out, n)
	}
	return out
}
