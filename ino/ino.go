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

// Package ino implements the bit-packed inode numbering scheme shared by
// the tag-path tree and the filesystem protocol adapter.
//
// An Ino is a 64-bit value split into a 32-bit file part (high) and a
// 32-bit tag part (low). A zero file part denotes a tag directory; any
// other value denotes a tagged file as seen under the tag directory whose
// ino_part equals the tag part.
package ino

// Ino is a 64-bit inode number: high 32 bits file part, low 32 bits tag part.
type Ino uint64

// Root is the inode of the top of the virtual tree: file part 0, tag part 1.
const Root Ino = 1

// FilePart returns the high 32 bits of ino.
func (i Ino) FilePart() uint32 {
	return uint32(i >> 32)
}

// TagPart returns the low 32 bits of ino.
func (i Ino) TagPart() uint32 {
	return uint32(i)
}

// IsTag reports whether ino denotes a tag directory.
func (i Ino) IsTag() bool {
	return i.FilePart() == 0
}

// IsFile reports whether ino denotes a tagged file.
func (i Ino) IsFile() bool {
	return !i.IsTag()
}

// FromParts packs a file number and a tag-tree ino_part into an Ino.
func FromParts(file, tag uint32) Ino {
	return Ino(uint64(file)<<32 | uint64(tag))
}

// FromTag packs a tag-tree ino_part into an Ino with a zero file part.
func FromTag(tagInoPart uint32) Ino {
	return FromParts(0, tagInoPart)
}
