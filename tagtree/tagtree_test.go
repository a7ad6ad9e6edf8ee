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

package tagtree_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/tagfs/tagfs/tagtree"
)

type TagTreeTest struct {
	suite.Suite
	tree *tagtree.Tree
}

func TestTagTreeSuite(t *testing.T) {
	suite.Run(t, new(TagTreeTest))
}

func (t *TagTreeTest) SetupTest() {
	t.tree = tagtree.New()
}

func (t *TagTreeTest) TestRootIsInoPartOne() {
	assert.Equal(t.T(), uint32(1), t.tree.Root().InoPart)
	assert.Nil(t.T(), t.tree.Root().Parent())
	assert.Empty(t.T(), t.tree.Root().CollectTags())
}

func (t *TagTreeTest) TestLookupFindsMaterializedNode() {
	child := t.tree.AddTo(t.tree.Root(), 5)

	found, ok := t.tree.Lookup(child.InoPart)

	require.True(t.T(), ok)
	assert.Same(t.T(), child, found)
}

func (t *TagTreeTest) TestLookupMissesUnknownInoPart() {
	_, ok := t.tree.Lookup(999)
	assert.False(t.T(), ok)
}

func (t *TagTreeTest) TestAddToIfNeededIsIdempotent() {
	first := t.tree.AddToIfNeeded(t.tree.Root(), 7)
	second := t.tree.AddToIfNeeded(t.tree.Root(), 7)

	assert.Same(t.T(), first, second)
}

func (t *TagTreeTest) TestAddToIfNeededCreatesDistinctChildrenForDistinctTags() {
	red := t.tree.AddToIfNeeded(t.tree.Root(), 1)
	blue := t.tree.AddToIfNeeded(t.tree.Root(), 2)

	assert.NotEqual(t.T(), red.InoPart, blue.InoPart)
}

func (t *TagTreeTest) TestCollectTagsWalksToRootExcludingIt() {
	red := t.tree.AddTo(t.tree.Root(), 1)
	blue := t.tree.AddTo(red, 2)

	assert.Equal(t.T(), []uint32{1, 2}, blue.CollectTags())
}

func (t *TagTreeTest) TestCreateNewReservesTagNumberAsInoPart() {
	tnb := t.tree.CreateNew()

	node, ok := t.tree.Lookup(tnb)
	require.True(t.T(), ok)
	assert.Equal(t.T(), tnb, node.InoPart)
	assert.Equal(t.T(), tnb, node.Tag)
	assert.Same(t.T(), t.tree.Root(), node.Parent())
}

func (t *TagTreeTest) TestSeedCounterPreventsCollisionAfterReload() {
	t.tree.SeedCounter(10)

	tnb := t.tree.CreateNew()

	assert.Equal(t.T(), uint32(11), tnb)
}

func (t *TagTreeTest) TestSeedCounterIgnoresLowerValue() {
	t.tree.CreateNew() // counter is now 2

	t.tree.SeedCounter(1)
	tnb := t.tree.CreateNew()

	assert.Equal(t.T(), uint32(3), tnb)
}

func (t *TagTreeTest) TestAliasedPathsGetDistinctNodesWithIdenticalTagSets() {
	a := t.tree.AddToIfNeeded(t.tree.Root(), 1)
	ab := t.tree.AddToIfNeeded(a, 2)

	b := t.tree.AddToIfNeeded(t.tree.Root(), 2)
	ba := t.tree.AddToIfNeeded(b, 1)

	assert.NotEqual(t.T(), ab.InoPart, ba.InoPart)
	assert.ElementsMatch(t.T(), ab.CollectTags(), ba.CollectTags())
}
