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

package tagindex_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/tagfs/tagfs/tagindex"
	"github.com/tagfs/tagfs/tagtree"
)

type TagIndexTest struct {
	suite.Suite
	idx *tagindex.Index
}

func TestTagIndexSuite(t *testing.T) {
	suite.Run(t, new(TagIndexTest))
}

func (t *TagIndexTest) SetupTest() {
	t.idx = tagindex.New(tagtree.New())
}

func (t *TagIndexTest) TestAddFileBindsNameAndNumber() {
	fnb := t.idx.AddFile("a.txt")

	name, ok := t.idx.FileNameByNumber(fnb)
	require.True(t.T(), ok)
	assert.Equal(t.T(), "a.txt", name)

	gotFnb, ok := t.idx.FileNumberByName("a.txt")
	require.True(t.T(), ok)
	assert.Equal(t.T(), fnb, gotFnb)
}

func (t *TagIndexTest) TestCreateTagStartsWithEmptySet() {
	red := t.idx.CreateTag("red")

	assert.Empty(t.T(), t.idx.Intersection([]tagindex.TagNumber{red}))
}

func (t *TagIndexTest) TestEmptyIntersectionIsUniverse() {
	a := t.idx.AddFile("a.txt")
	b := t.idx.AddFile("b.txt")

	got := t.idx.Intersection(nil)

	assert.ElementsMatch(t.T(), []tagindex.FileNumber{a, b}, got)
}

func (t *TagIndexTest) TestIntersectionOfTwoTags() {
	x := t.idx.AddFile("x")
	y := t.idx.AddFile("y")
	z := t.idx.AddFile("z")
	red := t.idx.CreateTag("red")
	blue := t.idx.CreateTag("blue")

	t.idx.AddFileTo(x, red)
	t.idx.AddFileTo(x, blue)
	t.idx.AddFileTo(y, red)
	t.idx.AddFileTo(z, blue)

	assert.ElementsMatch(t.T(), []tagindex.FileNumber{x}, t.idx.Intersection([]tagindex.TagNumber{red, blue}))
	assert.ElementsMatch(t.T(), []tagindex.FileNumber{x, y}, t.idx.Intersection([]tagindex.TagNumber{red}))
	assert.ElementsMatch(t.T(), []tagindex.FileNumber{x}, t.idx.Intersection([]tagindex.TagNumber{blue, red}))
}

func (t *TagIndexTest) TestIntersectionWithUnknownTagIsEmpty() {
	x := t.idx.AddFile("x")
	red := t.idx.CreateTag("red")
	t.idx.AddFileTo(x, red)

	assert.Empty(t.T(), t.idx.Intersection([]tagindex.TagNumber{red, 9999}))
}

func (t *TagIndexTest) TestRemoveFileFromUntagsWithoutDeletingFile() {
	x := t.idx.AddFile("x")
	red := t.idx.CreateTag("red")
	t.idx.AddFileTo(x, red)

	t.idx.RemoveFileFrom(x, red)

	assert.Empty(t.T(), t.idx.Intersection([]tagindex.TagNumber{red}))
	_, ok := t.idx.FileNameByNumber(x)
	assert.True(t.T(), ok)
}

func (t *TagIndexTest) TestOmitFileRemovesFromEverySet() {
	x := t.idx.AddFile("x")
	red := t.idx.CreateTag("red")
	blue := t.idx.CreateTag("blue")
	t.idx.AddFileTo(x, red)
	t.idx.AddFileTo(x, blue)

	t.idx.OmitFile(x)

	assert.Empty(t.T(), t.idx.Intersection([]tagindex.TagNumber{red}))
	assert.Empty(t.T(), t.idx.Intersection([]tagindex.TagNumber{blue}))
	_, ok := t.idx.FileNameByNumber(x)
	assert.False(t.T(), ok)
	assert.NotContains(t.T(), t.idx.FileUniverse(), x)
}

func (t *TagIndexTest) TestRenameTagRebindsName() {
	red := t.idx.CreateTag("red")

	t.idx.RenameTag(red, "crimson")

	name, ok := t.idx.TagNameByNumber(red)
	require.True(t.T(), ok)
	assert.Equal(t.T(), "crimson", name)
	_, ok = t.idx.TagNumberByName("red")
	assert.False(t.T(), ok)
}
