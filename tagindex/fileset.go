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

// fileSet is an insertion-ordered set of file numbers. Order is preserved
// so that persistence (§4.5) and intersection (§4.4) are deterministic
// across runs.
type fileSet struct {
	order []uint32
	has   map[uint32]bool
}

func newFileSet() *fileSet {
	return &fileSet{has: make(map[uint32]bool)}
}

func (s *fileSet) add(f uint32) {
	if s.has[f] {
		return
	}
	s.has[f] = true
	s.order = append(s.order, f)
}

func (s *fileSet) remove(f uint32) {
	if !s.has[f] {
		return
	}
	delete(s.has, f)
	for i, v := range s.order {
		if v == f {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *fileSet) contains(f uint32) bool {
	return s.has[f]
}

// slice returns a copy of the set's contents in insertion order.
func (s *fileSet) slice() []uint32 {
	out := make([]uint32, len(s.order))
	copy(out, s.order)
	return out
}

func (s *fileSet) clone() *fileSet {
	c := newFileSet()
	for _, f := range s.order {
		c.add(f)
	}
	return c
}
