package views

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entity struct {
	ID    string
	Score int
}

func (e entity) EntityKey() string { return e.ID }

func bump(e entity) entity {
	e.Score++
	return e
}

func TestFlatPatch(t *testing.T) {
	f := Flat[entity]{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	next, changed := f.Patch("b", bump)
	require.True(t, changed)
	assert.Equal(t, 1, next[1].Score)

	// Original untouched
	assert.Equal(t, 0, f[1].Score)
	// Unmatched entries copied as-is
	assert.Equal(t, f[0], next[0])
	assert.Equal(t, f[2], next[2])
}

func TestFlatPatchMiss(t *testing.T) {
	f := Flat[entity]{{ID: "a"}, {ID: "b"}}

	next, changed := f.Patch("zzz", bump)
	require.False(t, changed)
	// Identity fast path: same backing array
	assert.Same(t, &f[0], &next[0])
}

func TestPagedPatch(t *testing.T) {
	p := &Paged[entity]{
		Pages: []Flat[entity]{
			{{ID: "a"}, {ID: "b"}},
			{{ID: "c"}, {ID: "d"}},
		},
		Cursor: "next",
	}

	next, changed := p.Patch("c", bump)
	require.True(t, changed)
	assert.Equal(t, 1, next.Pages[1][0].Score)
	assert.Equal(t, "next", next.Cursor)

	// Untouched page shares its backing array
	assert.Same(t, &p.Pages[0][0], &next.Pages[0][0])
	// Original untouched
	assert.Equal(t, 0, p.Pages[1][0].Score)
}

func TestPagedPatchMiss(t *testing.T) {
	p := &Paged[entity]{Pages: []Flat[entity]{{{ID: "a"}}}}

	next, changed := p.Patch("zzz", bump)
	require.False(t, changed)
	// Identity fast path: same view pointer
	assert.Same(t, p, next)
}

func TestPagedPatchNil(t *testing.T) {
	var p *Paged[entity]
	next, changed := p.Patch("a", bump)
	assert.False(t, changed)
	assert.Nil(t, next)
}

func TestNodePatchRoot(t *testing.T) {
	n := &Node[entity]{Entity: entity{ID: "root"}}

	next, changed := n.Patch("root", bump)
	require.True(t, changed)
	assert.Equal(t, 1, next.Entity.Score)
	assert.Equal(t, 0, n.Entity.Score)
}

func TestNodePatchDeep(t *testing.T) {
	leaf := &Node[entity]{Entity: entity{ID: "leaf"}}
	sibling := &Node[entity]{Entity: entity{ID: "sibling"}}
	mid := &Node[entity]{Entity: entity{ID: "mid"}, Children: []*Node[entity]{leaf}}
	root := &Node[entity]{Entity: entity{ID: "root"}, Children: []*Node[entity]{sibling, mid}}

	next, changed := root.Patch("leaf", bump)
	require.True(t, changed)

	// Path to the match rebuilt
	assert.NotSame(t, root, next)
	assert.NotSame(t, mid, next.Children[1])
	assert.Equal(t, 1, next.Children[1].Children[0].Entity.Score)

	// Off-path subtree reused
	assert.Same(t, sibling, next.Children[0])

	// Original tree untouched
	assert.Equal(t, 0, leaf.Entity.Score)
}

func TestNodePatchMiss(t *testing.T) {
	root := &Node[entity]{
		Entity:   entity{ID: "root"},
		Children: []*Node[entity]{{Entity: entity{ID: "child"}}},
	}

	next, changed := root.Patch("zzz", bump)
	require.False(t, changed)
	assert.Same(t, root, next)
}

func TestNodeFind(t *testing.T) {
	root := &Node[entity]{
		Entity: entity{ID: "root"},
		Children: []*Node[entity]{
			{Entity: entity{ID: "a", Score: 7}},
			{Entity: entity{ID: "b"}},
		},
	}

	e, ok := root.Find("a")
	require.True(t, ok)
	assert.Equal(t, 7, e.Score)

	_, ok = root.Find("zzz")
	assert.False(t, ok)
}

func TestPagedFind(t *testing.T) {
	p := &Paged[entity]{Pages: []Flat[entity]{
		{{ID: "a"}},
		{{ID: "b", Score: 3}},
	}}

	e, ok := p.Find("b")
	require.True(t, ok)
	assert.Equal(t, 3, e.Score)

	_, ok = p.Find("zzz")
	assert.False(t, ok)
}
