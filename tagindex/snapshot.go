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

import "github.com/tagfs/tagfs/tagtree"

// Snapshot is the persistent-state shape described in §4.5: everything
// needed to reconstruct an Index, independent of any particular encoding.
// Slice fields carry the insertion order that Encode must preserve for
// savefiles to be reproducible.
type Snapshot struct {
	TagOrder   []TagNumber
	TagContent map[TagNumber][]FileNumber
	TagNames   map[TagNumber]string

	FileOrder []FileNumber
	FileNames map[FileNumber]string

	FileTally FileNumber
}

// Snapshot captures idx's current state.
func (idx *Index) Snapshot() Snapshot {
	s := Snapshot{
		TagOrder:   idx.TagOrder(),
		TagContent: make(map[TagNumber][]FileNumber, len(idx.tagContent)),
		TagNames:   make(map[TagNumber]string, len(idx.tags.byNumber)),
		FileOrder:  idx.FileUniverse(),
		FileNames:  make(map[FileNumber]string, len(idx.files.byNumber)),
		FileTally:  idx.fileTally,
	}
	for tag, set := range idx.tagContent {
		s.TagContent[tag] = set.slice()
	}
	for tag, name := range idx.tags.byNumber {
		s.TagNames[tag] = name
	}
	for file, name := range idx.files.byNumber {
		s.FileNames[file] = name
	}
	return s
}

// Restore replaces idx's state with s, rebuilding derived structures
// (the bimaps, the per-tag file sets) from the snapshot's slices and
// maps. It also seeds the backing tag tree's counter past the highest
// restored tag number, so that a subsequent CreateTag cannot mint a tag
// number that collides with one this snapshot already uses: the tree
// itself is never persisted, only the tag numbers it once allocated.
func Restore(tree *tagtree.Tree, s Snapshot) *Index {
	idx := New(tree)

	idx.tagOrder = append([]TagNumber(nil), s.TagOrder...)
	idx.tagContent = make(map[TagNumber]*fileSet, len(s.TagContent))
	for _, tag := range idx.tagOrder {
		set := newFileSet()
		for _, f := range s.TagContent[tag] {
			set.add(f)
		}
		idx.tagContent[tag] = set
	}
	for tag, name := range s.TagNames {
		idx.tags.insert(tag, name)
	}

	idx.fileOrder = append([]FileNumber(nil), s.FileOrder...)
	for file, name := range s.FileNames {
		idx.files.insert(file, name)
	}

	idx.fileTally = s.FileTally

	var maxTag TagNumber
	for _, tag := range idx.tagOrder {
		if tag > maxTag {
			maxTag = tag
		}
	}
	tree.SeedCounter(maxTag)

	return idx
}
