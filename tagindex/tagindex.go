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

// Package tagindex implements the tag index: the authoritative data model
// mapping files to tags and tags to file-sets.
package tagindex

import "github.com/tagfs/tagfs/tagtree"

// FileNumber identifies a source file for the life of a session.
type FileNumber = uint32

// TagNumber identifies a tag. It also names the ino_part of the canonical
// root-level tag-path tree node for that tag.
type TagNumber = uint32

// Index is the bidirectional, intersection-capable data model described
// in §4.4. Its zero value is not usable; construct with New.
type Index struct {
	tree *tagtree.Tree

	tagOrder   []TagNumber
	tagContent map[TagNumber]*fileSet
	tags       *bimap

	fileOrder []FileNumber
	files     *bimap

	fileTally FileNumber
}

// New returns an empty index backed by tree for tag-number allocation.
// file_tally starts at 1; the first AddFile call yields file number 2 (1
// is reserved for root), matching Invariant 4.3's FileNumber range.
func New(tree *tagtree.Tree) *Index {
	return &Index{
		tree:       tree,
		tagContent: make(map[TagNumber]*fileSet),
		tags:       newBimap(),
		files:      newBimap(),
		fileTally:  1,
	}
}

// CreateTag allocates a fresh tag number via the tag tree and registers
// an empty file-set and name binding for it.
func (idx *Index) CreateTag(name string) TagNumber {
	tnb := idx.tree.CreateNew()
	idx.tagOrder = append(idx.tagOrder, tnb)
	idx.tagContent[tnb] = newFileSet()
	idx.tags.insert(tnb, name)
	return tnb
}

// AddFile registers a brand new file name, bumping file_tally.
func (idx *Index) AddFile(name string) FileNumber {
	idx.fileTally++
	fnb := idx.fileTally
	idx.files.insert(fnb, name)
	idx.fileOrder = append(idx.fileOrder, fnb)
	return fnb
}

// AddFileTo adds file to tag's file-set.
func (idx *Index) AddFileTo(file FileNumber, tag TagNumber) {
	if set, ok := idx.tagContent[tag]; ok {
		set.add(file)
	}
}

// RemoveFileFrom removes file from tag's file-set, if present.
func (idx *Index) RemoveFileFrom(file FileNumber, tag TagNumber) {
	if set, ok := idx.tagContent[tag]; ok {
		set.remove(file)
	}
}

// OmitFile removes file from the name binding and every tag's file-set.
func (idx *Index) OmitFile(file FileNumber) {
	idx.files.removeByNumber(file)
	for i, f := range idx.fileOrder {
		if f == file {
			idx.fileOrder = append(idx.fileOrder[:i], idx.fileOrder[i+1:]...)
			break
		}
	}
	for _, set := range idx.tagContent {
		set.remove(file)
	}
}

// FileNumberByName returns the file number bound to name, if any.
func (idx *Index) FileNumberByName(name string) (FileNumber, bool) {
	return idx.files.byNameLookup(name)
}

// FileNameByNumber returns the file name bound to number, if any.
func (idx *Index) FileNameByNumber(number FileNumber) (string, bool) {
	return idx.files.byNumberLookup(number)
}

// TagNumberByName returns the tag number bound to name, if any.
func (idx *Index) TagNumberByName(name string) (TagNumber, bool) {
	return idx.tags.byNameLookup(name)
}

// TagNameByNumber returns the tag name bound to number, if any.
func (idx *Index) TagNameByNumber(number TagNumber) (string, bool) {
	return idx.tags.byNumberLookup(number)
}

// RenameTag rebinds tag to newName in the tags bijection.
func (idx *Index) RenameTag(tag TagNumber, newName string) {
	idx.tags.insert(tag, newName)
}

// TagOrder returns every known tag number in the order tags were created
// (the "tags bijection's natural order" referenced by readdir, §4.7.8).
func (idx *Index) TagOrder() []TagNumber {
	out := make([]TagNumber, len(idx.tagOrder))
	copy(out, idx.tagOrder)
	return out
}

// FileUniverse returns every known file number, in the order files were
// added (used when the intersection path is empty, §4.4).
func (idx *Index) FileUniverse() []FileNumber {
	out := make([]FileNumber, len(idx.fileOrder))
	copy(out, idx.fileOrder)
	return out
}

// Intersection computes the set of files carrying every tag in tagList.
// An empty tagList yields the full universe. Tags absent from the index
// are treated as empty sets, so any unknown tag makes the result empty.
func (idx *Index) Intersection(tagList []TagNumber) []FileNumber {
	if len(tagList) == 0 {
		return idx.FileUniverse()
	}

	in := make(map[TagNumber]bool, len(tagList))
	for _, t := range tagList {
		in[t] = true
	}

	var sets []*fileSet
	for _, tag := range idx.tagOrder {
		if in[tag] {
			sets = append(sets, idx.tagContent[tag])
		}
	}
	// A tag in tagList that was never created (hence absent from
	// tagOrder) contributes an empty set, which empties the whole
	// intersection.
	if len(sets) != len(in) {
		return nil
	}

	result := sets[0].clone()
	for _, set := range sets[1:] {
		result = intersectSets(result, set)
	}
	return result.slice()
}

func intersectSets(a, b *fileSet) *fileSet {
	out := newFileSet()
	for _, f := range a.order {
		if b.contains(f) {
			out.add(f)
		}
	}
	return out
}

// ContainsFile reports whether tag's file-set contains file.
func (idx *Index) ContainsFile(tag TagNumber, file FileNumber) bool {
	set, ok := idx.tagContent[tag]
	return ok && set.contains(file)
}
