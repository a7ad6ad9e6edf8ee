// Copyright 2015 Google Inc. All Rights Reserved.
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

package fs

import (
	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"

	"github.com/tagfs/tagfs/ino"
	"github.com/tagfs/tagfs/tagtree"
)

// dirHandle answers ReadDir for one OpenDir call. Unlike the source this is
// adapted from, there is no cross-call buffering: replies carry a zero TTL
// (§5), so every call recomputes the full ordered entry list fresh and
// slices it by op.Offset. This directory never changes shape between two
// calls from the same process faster than a human could act on it, and
// correctness never depends on a stable generation the way a remote
// listing API would.
type dirHandle struct {
	fs   *fileSystem
	node *tagtree.Node
	self ino.Ino
}

func newDirHandle(fs *fileSystem, node *tagtree.Node, self ino.Ino) *dirHandle {
	return &dirHandle{fs: fs, node: node, self: self}
}

// readDir implements §4.7.8.
//
// EXCLUSIVE_LOCKS_REQUIRED(dh.fs.mu)
func (dh *dirHandle) readDir(op *fuseops.ReadDirOp) error {
	entries := dh.entries()

	index := int(op.Offset)
	if index > len(entries) {
		index = len(entries)
	}

	for _, e := range entries[index:] {
		next := fuseutil.AppendDirent(op.Data, e)
		if len(next) > op.Size {
			break
		}
		op.Data = next
	}
	return nil
}

// entries synthesizes the full, stably-ordered directory listing for
// dh.node: ".", "..", every not-yet-present tag, then every file in the
// intersection of this node's ancestor tags.
func (dh *dirHandle) entries() []fuseutil.Dirent {
	fs := dh.fs
	var out []fuseutil.Dirent
	var offset fuseops.DirOffset = 1

	out = append(out, fuseutil.Dirent{
		Offset: offset,
		Inode:  fuseops.InodeID(dh.self),
		Name:   ".",
		Type:   fuseutil.DT_Directory,
	})
	offset++

	parentInoPart := tagtree.RootInoPart
	if parent := dh.node.Parent(); parent != nil {
		parentInoPart = parent.InoPart
	}
	out = append(out, fuseutil.Dirent{
		Offset: offset,
		Inode:  fuseops.InodeID(ino.FromTag(parentInoPart)),
		Name:   "..",
		Type:   fuseutil.DT_Directory,
	})
	offset++

	selfTags := dh.node.CollectTags()
	present := make(map[uint32]bool, len(selfTags))
	for _, t := range selfTags {
		present[t] = true
	}

	for _, tag := range fs.index.TagOrder() {
		if present[tag] {
			continue
		}
		name, ok := fs.index.TagNameByNumber(tag)
		if !ok {
			continue
		}
		child := fs.tree.AddToIfNeeded(dh.node, tag)
		out = append(out, fuseutil.Dirent{
			Offset: offset,
			Inode:  fuseops.InodeID(ino.FromTag(child.InoPart)),
			Name:   name,
			Type:   fuseutil.DT_Directory,
		})
		offset++
	}

	for _, file := range fs.index.Intersection(selfTags) {
		name, ok := fs.index.FileNameByNumber(file)
		if !ok {
			continue
		}
		out = append(out, fuseutil.Dirent{
			Offset: offset,
			Inode:  fuseops.InodeID(ino.FromParts(file, dh.node.InoPart)),
			Name:   name,
			Type:   fuseutil.DT_File,
		})
		offset++
	}

	return out
}
