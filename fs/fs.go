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
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"
	"github.com/jacobsa/syncutil"

	"github.com/tagfs/tagfs/backing"
	"github.com/tagfs/tagfs/clock"
	"github.com/tagfs/tagfs/common"
	"github.com/tagfs/tagfs/ino"
	"github.com/tagfs/tagfs/internal/logger"
	"github.com/tagfs/tagfs/persist"
	"github.com/tagfs/tagfs/reindex"
	"github.com/tagfs/tagfs/tagindex"
	"github.com/tagfs/tagfs/tagtree"
)

// trashName is the one reserved directory name mkdir refuses, so that
// trash-aware file managers don't get to silently create a working trash
// can inside a tag namespace that has no delete semantics of its own.
const trashName = ".Trash-1000"

// epoch is the synthetic modification/access/change/creation time reported
// for every tag directory.
var epoch = time.Unix(0, 0)

// ServerConfig carries the arguments needed to mount a tagfs instance.
type ServerConfig struct {
	// SourcePath is the directory whose flat file contents are exposed
	// through the tag-intersection namespace.
	SourcePath string

	// Uid and Gid are reported as the owner of every synthesized tag
	// directory.
	Uid uint32
	Gid uint32
}

// NewServer brings up a tagfs file system rooted at cfg.SourcePath: it
// reconciles any persisted tag index against the directory's current
// contents and returns a fuse.Server ready to be passed to fuse.Mount.
func NewServer(ctx context.Context, cfg *ServerConfig) (server fuse.Server, err error) {
	// sessionID distinguishes this mount's log lines from any other mount
	// of the same source directory; it is logged once here and not attached
	// to the metrics. Tag-part inodes are not
	// stable across remounts (Invariant 3.5), so a remount is not the same
	// observable session even when nothing else changed.
	sessionID := uuid.NewString()
	logger.Infof("starting mount session %s for source %q", sessionID, cfg.SourcePath)

	store := backing.NewDirStore(cfg.SourcePath)

	names, err := reindex.ListSourceFiles(store)
	if err != nil {
		return nil, fmt.Errorf("fs.NewServer: %w", err)
	}

	tree := tagtree.New()
	var index *tagindex.Index
	if snapshot, loadErr := persist.Load(store); loadErr != nil {
		logger.Warnf("no usable savefile at %q, starting with an empty tag index: %v", cfg.SourcePath, loadErr)
		index = tagindex.New(tree)
	} else {
		index = tagindex.Restore(tree, snapshot)
	}

	reindex.Repopulate(index, names)
	if err := persist.Save(store, index.Snapshot()); err != nil {
		logger.Warnf("failed to persist reconciled tag index at %q: %v", cfg.SourcePath, err)
	}

	metrics, err := common.NewOTelMetrics()
	if err != nil {
		return nil, fmt.Errorf("fs.NewServer: %w", err)
	}

	fs := &fileSystem{
		clock:       clock.RealClock{},
		store:       store,
		tree:        tree,
		index:       index,
		uid:         cfg.Uid,
		gid:         cfg.Gid,
		metrics:     metrics,
		dirHandles:  make(map[fuseops.HandleID]*dirHandle),
		fileHandles: make(map[fuseops.HandleID]backing.Handle),
		nextHandle:  1,
	}
	fs.mu = syncutil.NewInvariantMutex(fs.checkInvariants)

	server = fuseutil.NewFileSystemServer(fs)
	return server, nil
}

// fileSystem implements fuseops.FileSystem over a tag index and a backing
// store. Every method is serialized by mu; nothing here blocks on another
// callback, so a single lock is sufficient (§5).
type fileSystem struct {
	fuseutil.NotImplementedFileSystem

	clock   clock.Clock
	store   *backing.DirStore
	metrics common.MetricHandle

	uid uint32
	gid uint32

	mu syncutil.InvariantMutex

	// GUARDED_BY(mu)
	tree *tagtree.Tree

	// GUARDED_BY(mu)
	index *tagindex.Index

	// GUARDED_BY(mu)
	dirHandles map[fuseops.HandleID]*dirHandle

	// GUARDED_BY(mu)
	fileHandles map[fuseops.HandleID]backing.Handle

	// GUARDED_BY(mu)
	nextHandle fuseops.HandleID
}

////////////////////////////////////////////////////////////////////////
// Invariants
////////////////////////////////////////////////////////////////////////

func (fs *fileSystem) checkInvariants() {
	// INVARIANT: the tree's root is always reachable at RootInoPart.
	if _, ok := fs.tree.Lookup(tagtree.RootInoPart); !ok {
		panic("tagtree root missing from its own tree")
	}
}

////////////////////////////////////////////////////////////////////////
// Metrics
////////////////////////////////////////////////////////////////////////

// recordOp returns a function to be deferred at the top of every op method.
// It records the op's count, latency, and (if *errOut is non-nil when the
// deferred call runs) error count, tagged with the op's name.
func (fs *fileSystem) recordOp(ctx context.Context, opName string, errOut *error) func() {
	start := fs.clock.Now()
	return func() {
		attrs := []common.MetricAttr{{Key: common.FSOpKey, Value: opName}}
		fs.metrics.OpsCount(ctx, 1, attrs)
		fs.metrics.OpsLatency(ctx, fs.clock.Now().Sub(start), attrs)
		if *errOut != nil {
			fs.metrics.OpsErrorCount(ctx, 1, attrs)
		}
	}
}

////////////////////////////////////////////////////////////////////////
// Attribute synthesis
////////////////////////////////////////////////////////////////////////

// tagDirAttributes returns the synthetic attributes every tag directory
// reports, per §4.7.8.
func (fs *fileSystem) tagDirAttributes() fuseops.InodeAttributes {
	return fuseops.InodeAttributes{
		Size:   4096,
		Nlink:  1,
		Mode:   os.ModeDir | 0700,
		Atime:  epoch,
		Mtime:  epoch,
		Ctime:  epoch,
		Crtime: epoch,
		Uid:    fs.uid,
		Gid:    fs.gid,
	}
}

// fileAttributes converts backing metadata into the reply shape the kernel
// expects, leaving ownership and timestamps as the backing store reported
// them.
func fileAttributes(a backing.Attributes) fuseops.InodeAttributes {
	return fuseops.InodeAttributes{
		Size:   a.Size,
		Nlink:  uint64(a.Nlink),
		Mode:   a.Mode,
		Atime:  a.Atime,
		Mtime:  a.Mtime,
		Ctime:  a.Ctime,
		Crtime: a.Crtime,
		Uid:    a.UID,
		Gid:    a.GID,
	}
}

// resolveTagNode looks up the TagNode named by a tag-part inode, translating
// a miss into ENOENT. Callers that already know ino is a tag inode can skip
// the IsTag check; LookUpInode, MkDir, Unlink, Rename and OpenDir do it
// themselves against the raw fuseops.InodeID first.
func (fs *fileSystem) resolveTagNode(i ino.Ino) (*tagtree.Node, error) {
	node, ok := fs.tree.Lookup(i.TagPart())
	if !ok {
		return nil, fuse.ENOENT
	}
	return node, nil
}

////////////////////////////////////////////////////////////////////////
// FileSystem methods
////////////////////////////////////////////////////////////////////////

func (fs *fileSystem) Init(op *fuseops.InitOp) (err error) {
	return nil
}

// LookUpInode implements §4.7.1.
func (fs *fileSystem) LookUpInode(op *fuseops.LookUpInodeOp) (err error) {
	defer fs.recordOp(op.Context(), common.OpLookUpInode, &err)()

	fs.mu.Lock()
	defer fs.mu.Unlock()

	parentIno := ino.Ino(op.Parent)
	if parentIno.IsFile() {
		return fuse.ENOTDIR
	}

	parentNode, err := fs.resolveTagNode(parentIno)
	if err != nil {
		return err
	}

	if fnb, ok := fs.index.FileNumberByName(op.Name); ok {
		ancestorTags := parentNode.CollectTags()
		for _, t := range ancestorTags {
			if !fs.index.ContainsFile(t, fnb) {
				return fuse.ENOENT
			}
		}

		attrs, statErr := fs.store.Metadata(op.Name)
		if statErr != nil {
			logger.Errorf("stat %q: %v", op.Name, statErr)
			return fuse.EIO
		}

		op.Entry.Child = fuseops.InodeID(ino.FromParts(fnb, parentIno.TagPart()))
		op.Entry.Attributes = fileAttributes(attrs)
		return nil
	}

	if tnb, ok := fs.index.TagNumberByName(op.Name); ok {
		child := fs.tree.AddToIfNeeded(parentNode, tnb)
		op.Entry.Child = fuseops.InodeID(ino.FromTag(child.InoPart))
		op.Entry.Attributes = fs.tagDirAttributes()
		return nil
	}

	return fuse.ENOENT
}

// GetInodeAttributes implements §4.7.2.
func (fs *fileSystem) GetInodeAttributes(op *fuseops.GetInodeAttributesOp) (err error) {
	defer fs.recordOp(op.Context(), common.OpGetInodeAttributes, &err)()

	fs.mu.Lock()
	defer fs.mu.Unlock()

	i := ino.Ino(op.Inode)
	if i.IsTag() {
		op.Attributes = fs.tagDirAttributes()
		return nil
	}

	name, ok := fs.index.FileNameByNumber(i.FilePart())
	if !ok {
		return fuse.ENOENT
	}

	attrs, statErr := fs.store.Metadata(name)
	if statErr != nil {
		logger.Errorf("stat %q: %v", name, statErr)
		return fuse.EIO
	}

	op.Attributes = fileAttributes(attrs)
	return nil
}

// MkDir implements §4.7.3: creating a directory always means minting a
// fresh, globally-visible tag.
func (fs *fileSystem) MkDir(op *fuseops.MkDirOp) (err error) {
	defer fs.recordOp(op.Context(), common.OpMkDir, &err)()

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if op.Name == trashName {
		return fuse.ENOTSUP
	}

	parentIno := ino.Ino(op.Parent)
	if parentIno.IsFile() {
		return fuse.ENOTDIR
	}
	if _, err := fs.resolveTagNode(parentIno); err != nil {
		return err
	}

	tnb := fs.index.CreateTag(op.Name)
	op.Entry.Child = fuseops.InodeID(ino.FromTag(tnb))
	op.Entry.Attributes = fs.tagDirAttributes()

	fs.persistOrWarn()
	return nil
}

// Unlink implements §4.7.4: detach a file from every tag on the path it
// was reached through. The file itself is left alone in the source
// directory.
func (fs *fileSystem) Unlink(op *fuseops.UnlinkOp) (err error) {
	defer fs.recordOp(op.Context(), common.OpUnlink, &err)()

	fs.mu.Lock()
	defer fs.mu.Unlock()

	parentIno := ino.Ino(op.Parent)
	if parentIno.IsFile() {
		return fuse.ENOTDIR
	}
	parentNode, err := fs.resolveTagNode(parentIno)
	if err != nil {
		return err
	}

	fnb, ok := fs.index.FileNumberByName(op.Name)
	if !ok {
		return fuse.ENOENT
	}

	for _, t := range parentNode.CollectTags() {
		fs.index.RemoveFileFrom(fnb, t)
	}

	fs.persistOrWarn()
	return nil
}

// Rename implements §4.7.5's three cases.
func (fs *fileSystem) Rename(op *fuseops.RenameOp) (err error) {
	defer fs.recordOp(op.Context(), common.OpRename, &err)()

	fs.mu.Lock()
	defer fs.mu.Unlock()

	// Case 1: renaming a tag.
	if tnb, ok := fs.index.TagNumberByName(op.OldName); ok {
		fs.index.RenameTag(tnb, op.NewName)
		fs.persistOrWarn()
		return nil
	}

	// Case 2: moving a file between tag paths.
	if op.OldName == op.NewName && op.OldParent != op.NewParent {
		fnb, ok := fs.index.FileNumberByName(op.OldName)
		if !ok {
			return fuse.ENOENT
		}

		oldParentIno := ino.Ino(op.OldParent)
		newParentIno := ino.Ino(op.NewParent)
		if oldParentIno.IsFile() || newParentIno.IsFile() {
			return fuse.ENOTDIR
		}

		oldParentNode, err := fs.resolveTagNode(oldParentIno)
		if err != nil {
			return err
		}
		newParentNode, err := fs.resolveTagNode(newParentIno)
		if err != nil {
			return err
		}

		for _, t := range oldParentNode.CollectTags() {
			fs.index.RemoveFileFrom(fnb, t)
		}
		for _, t := range newParentNode.CollectTags() {
			fs.index.AddFileTo(fnb, t)
		}

		fs.persistOrWarn()
		return nil
	}

	return fuse.ENOTSUP
}

// OpenDir implements the directory-handle half of §4.7.8.
func (fs *fileSystem) OpenDir(op *fuseops.OpenDirOp) (err error) {
	defer fs.recordOp(op.Context(), common.OpOpenDir, &err)()

	fs.mu.Lock()
	defer fs.mu.Unlock()

	i := ino.Ino(op.Inode)
	if i.IsFile() {
		return fuse.ENOTDIR
	}
	node, err := fs.resolveTagNode(i)
	if err != nil {
		return err
	}

	handleID := fs.nextHandle
	fs.nextHandle++
	fs.dirHandles[handleID] = newDirHandle(fs, node, i)
	op.Handle = handleID
	return nil
}

// ReadDir implements §4.7.8.
func (fs *fileSystem) ReadDir(op *fuseops.ReadDirOp) (err error) {
	defer fs.recordOp(op.Context(), common.OpReadDir, &err)()

	fs.mu.Lock()
	defer fs.mu.Unlock()

	dh, ok := fs.dirHandles[op.Handle]
	if !ok {
		return fuse.EIO
	}
	return dh.readDir(op)
}

func (fs *fileSystem) ReleaseDirHandle(op *fuseops.ReleaseDirHandleOp) (err error) {
	defer fs.recordOp(op.Context(), common.OpReleaseDirHandle, &err)()

	fs.mu.Lock()
	defer fs.mu.Unlock()

	delete(fs.dirHandles, op.Handle)
	return nil
}

// OpenFile implements §4.7.6.
func (fs *fileSystem) OpenFile(op *fuseops.OpenFileOp) (err error) {
	defer fs.recordOp(op.Context(), common.OpOpenFile, &err)()

	fs.mu.Lock()
	defer fs.mu.Unlock()

	i := ino.Ino(op.Inode)
	if i.IsTag() {
		return fuse.ENOENT
	}

	name, ok := fs.index.FileNameByNumber(i.FilePart())
	if !ok {
		return fuse.ENOENT
	}

	h, openErr := fs.store.Open(name)
	if openErr != nil {
		logger.Errorf("open %q: %v", name, openErr)
		return fuse.EIO
	}

	handleID := fs.nextHandle
	fs.nextHandle++
	fs.fileHandles[handleID] = h
	op.Handle = handleID
	return nil
}

// ReadFile implements the read half of §4.7.7.
func (fs *fileSystem) ReadFile(op *fuseops.ReadFileOp) (err error) {
	defer fs.recordOp(op.Context(), common.OpReadFile, &err)()

	fs.mu.Lock()
	defer fs.mu.Unlock()

	h, ok := fs.fileHandles[op.Handle]
	if !ok {
		return fuse.EIO
	}

	data, readErr := fs.store.Read(h, uint64(op.Offset), uint64(op.Size))
	if readErr != nil {
		logger.Errorf("read handle %v: %v", h, readErr)
		return fuse.EIO
	}

	op.Data = data
	return nil
}

// ReleaseFileHandle implements the release half of §4.7.7.
func (fs *fileSystem) ReleaseFileHandle(op *fuseops.ReleaseFileHandleOp) (err error) {
	defer fs.recordOp(op.Context(), common.OpReleaseFileHandle, &err)()

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if h, ok := fs.fileHandles[op.Handle]; ok {
		fs.store.Release(h)
		delete(fs.fileHandles, op.Handle)
	}
	return nil
}

// persistOrWarn saves the current tag index, logging rather than failing
// the in-flight op on error: per §7, the in-memory mutation has already
// taken effect and the kernel has no recovery path for a persistence
// failure after the fact.
//
// EXCLUSIVE_LOCKS_REQUIRED(fs.mu)
func (fs *fileSystem) persistOrWarn() {
	if err := persist.Save(fs.store, fs.index.Snapshot()); err != nil {
		logger.Warnf("failed to persist tag index: %v", err)
	}
}
