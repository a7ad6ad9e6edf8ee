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

package fs

import (
	"os"
	"testing"
	"time"

	"github.com/jacobsa/fuse"
	"github.com/stretchr/testify/suite"

	"github.com/tagfs/tagfs/backing"
	"github.com/tagfs/tagfs/ino"
	"github.com/tagfs/tagfs/tagindex"
	"github.com/tagfs/tagfs/tagtree"
)

type FileSystemTestSuite struct {
	suite.Suite
}

func TestFileSystemTestSuite(t *testing.T) {
	suite.Run(t, new(FileSystemTestSuite))
}

func (s *FileSystemTestSuite) TestTagDirAttributesCarryTheEpochAndConfiguredOwner() {
	fs := &fileSystem{uid: 501, gid: 20}

	attrs := fs.tagDirAttributes()
	s.Equal(os.ModeDir|0700, attrs.Mode)
	s.Equal(uint32(501), attrs.Uid)
	s.Equal(uint32(20), attrs.Gid)
	s.Equal(time.Unix(0, 0), attrs.Mtime)
}

func (s *FileSystemTestSuite) TestFileAttributesPassThroughBackingMetadata() {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	a := backing.Attributes{
		Size:  42,
		Nlink: 1,
		Mode:  0644,
		Atime: now,
		Mtime: now,
		Ctime: now,
		UID:   7,
		GID:   8,
	}

	attrs := fileAttributes(a)
	s.Equal(uint64(42), attrs.Size)
	s.Equal(os.FileMode(0644), attrs.Mode)
	s.Equal(uint32(7), attrs.Uid)
	s.Equal(uint32(8), attrs.Gid)
	s.Equal(now, attrs.Mtime)
}

func (s *FileSystemTestSuite) TestResolveTagNodeFindsTheRoot() {
	tree := tagtree.New()
	fs := &fileSystem{tree: tree}

	node, err := fs.resolveTagNode(ino.Root)
	s.NoError(err)
	s.Equal(tree.Root(), node)
}

func (s *FileSystemTestSuite) TestResolveTagNodeReportsENOENTForAnUnmaterializedInoPart() {
	tree := tagtree.New()
	fs := &fileSystem{tree: tree}

	_, err := fs.resolveTagNode(ino.FromTag(999))
	s.Equal(fuse.ENOENT, err)
}

func (s *FileSystemTestSuite) TestCheckInvariantsPassesOnAFreshTree() {
	fs := &fileSystem{tree: tagtree.New()}
	s.NotPanics(func() { fs.checkInvariants() })
}

func (s *FileSystemTestSuite) TestCheckInvariantsPanicsIfTheRootIsUnreachable() {
	fs := &fileSystem{tree: &tagtree.Tree{}}
	s.Panics(func() { fs.checkInvariants() })
}

// A short end-to-end exercise of the data model that backs the protocol
// adapter: minting two tags, tagging a file into one, and reading off the
// resulting intersection the way readDir does.
func (s *FileSystemTestSuite) TestTagAndFileWiringMatchesWhatReaddirWouldSee() {
	tree := tagtree.New()
	idx := tagindex.New(tree)

	red := idx.CreateTag("red")
	idx.CreateTag("blue")

	photo := idx.AddFile("photo.jpg")
	idx.AddFileTo(photo, red)

	s.ElementsMatch([]tagindex.FileNumber{photo}, idx.Intersection([]tagindex.TagNumber{red}))
	s.Empty(idx.Intersection([]tagindex.TagNumber{idx.TagOrder()[1]}))

	idx.RemoveFileFrom(photo, red)
	s.Empty(idx.Intersection([]tagindex.TagNumber{red}))
}
