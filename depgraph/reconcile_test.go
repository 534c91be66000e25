/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/
package depgraph

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(id string, children ...string) *FileRecord {
	r := &FileRecord{Identity: id, DisplayName: id, Children: []ChildRef{}}
	for _, c := range children {
		r.Children = append(r.Children, ChildRef{DisplayName: c, Identity: c, Dynamic: true})
	}
	return r
}

func TestBuildEmpty(t *testing.T) {
	assert.Nil(t, Build(nil))
	assert.Nil(t, Build([]*FileRecord{}))

	data, err := json.Marshal(Build(nil))
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))
}

func TestBuildChain(t *testing.T) {
	tree := Build([]*FileRecord{
		rec("root", "a"),
		rec("a", "b"),
		rec("b"),
	})
	require.NotNil(t, tree)

	assert.Equal(t, "root", tree.Name)
	require.Len(t, tree.Children, 1)
	a := tree.Children[0]
	assert.Equal(t, "a", a.Identity)
	require.Len(t, a.Children, 1)
	b := a.Children[0]
	assert.Equal(t, "b", b.Identity)
	assert.Empty(t, b.Children)
	assert.NotNil(t, b.Children, "leaves serialize children as []")

	stats := Stats(tree)
	assert.Equal(t, 3, stats.Depth)
	assert.Equal(t, 3, stats.Nodes)
	assert.Equal(t, 3, stats.Modules)
}

func TestBuildTwoCycle(t *testing.T) {
	tree := Build([]*FileRecord{
		rec("A", "B"),
		rec("B", "A"),
	})
	require.NotNil(t, tree)

	require.Len(t, tree.Children, 1)
	b := tree.Children[0]
	assert.Equal(t, "B", b.Identity)
	assert.False(t, b.Cycle)

	require.Len(t, b.Children, 1)
	again := b.Children[0]
	assert.Equal(t, "A", again.Identity)
	assert.True(t, again.Cycle)
	assert.Empty(t, again.Children)

	assert.Equal(t, 1, Stats(tree).Cycles)
}

func TestBuildSelfImport(t *testing.T) {
	tree := Build([]*FileRecord{rec("A", "A")})
	require.Len(t, tree.Children, 1)
	assert.True(t, tree.Children[0].Cycle)
	assert.Empty(t, tree.Children[0].Children)
}

func TestBuildLongCycleTerminates(t *testing.T) {
	tree := Build([]*FileRecord{
		rec("a", "b"),
		rec("b", "c"),
		rec("c", "d"),
		rec("d", "b"),
	})
	stats := Stats(tree)
	assert.Equal(t, 5, stats.Depth)
	assert.Equal(t, 1, stats.Cycles)
}

func TestBuildSharedSubtree(t *testing.T) {
	tree := Build([]*FileRecord{
		rec("root", "x", "y"),
		rec("x", "c"),
		rec("y", "c"),
		rec("c", "leaf1", "leaf2"),
	})
	require.Len(t, tree.Children, 2)
	x, y := tree.Children[0], tree.Children[1]
	require.Len(t, x.Children, 1)
	require.Len(t, y.Children, 1)

	cx, cy := x.Children[0], y.Children[0]
	assert.Equal(t, cx.Identity, cy.Identity)
	assert.Equal(t, cx.Children, cy.Children)
	require.Len(t, cx.Children, 2)
	assert.Same(t, cx.Children[0], cy.Children[0], "shared subtree is expanded once")
}

// requirePathsAcyclic fails when a non-cycle node repeats an identity
// already on its path from the root.
func requirePathsAcyclic(t *testing.T, root *Node) {
	t.Helper()
	var walk func(n *Node, path map[string]bool)
	walk = func(n *Node, path map[string]bool) {
		if n.Cycle {
			require.True(t, path[n.Identity], "%s marked as cycle but not an ancestor", n.Identity)
			return
		}
		require.False(t, path[n.Identity], "%s expanded under itself", n.Identity)
		path[n.Identity] = true
		for _, child := range n.Children {
			walk(child, path)
		}
		delete(path, n.Identity)
	}
	walk(root, map[string]bool{})
}

func TestBuildCycleInsideSharedSubtree(t *testing.T) {
	tree := Build([]*FileRecord{
		rec("R", "B", "C"),
		rec("B", "C"),
		rec("C", "B"),
	})
	require.Len(t, tree.Children, 2)
	requirePathsAcyclic(t, tree)

	b := tree.Children[0]
	require.Len(t, b.Children, 1)
	bc := b.Children[0]
	assert.Equal(t, "C", bc.Identity)
	require.Len(t, bc.Children, 1)
	assert.True(t, bc.Children[0].Cycle)

	c := tree.Children[1]
	assert.Equal(t, "C", c.Identity)
	require.Len(t, c.Children, 1)
	cb := c.Children[0]
	assert.Equal(t, "B", cb.Identity)
	assert.False(t, cb.Cycle, "B is not an ancestor on R -> C")
	require.Len(t, cb.Children, 1)
	assert.Equal(t, "C", cb.Children[0].Identity)
	assert.True(t, cb.Children[0].Cycle)

	stats := Stats(tree)
	assert.Equal(t, 7, stats.Nodes)
	assert.Equal(t, 4, stats.Depth)
	assert.Equal(t, 2, stats.Cycles)
}

func TestBuildSharedSubtreeContainingAncestor(t *testing.T) {
	tree := Build([]*FileRecord{
		rec("R", "X", "Y"),
		rec("X", "Z"),
		rec("Z", "Y"),
		rec("Y", "X"),
	})
	requirePathsAcyclic(t, tree)

	require.Len(t, tree.Children, 2)
	y := tree.Children[1]
	require.Len(t, y.Children, 1)
	x := y.Children[0]
	assert.False(t, x.Cycle)
	require.Len(t, x.Children, 1)
	z := x.Children[0]
	require.Len(t, z.Children, 1)
	assert.Equal(t, "Y", z.Children[0].Identity)
	assert.True(t, z.Children[0].Cycle)
	assert.Empty(t, z.Children[0].Children)

	assert.Equal(t, 2, Stats(tree).Cycles)
}

func TestBuildAcyclicSubtreeSharedBesideCycle(t *testing.T) {
	tree := Build([]*FileRecord{
		rec("R", "A", "B"),
		rec("A", "S", "R"),
		rec("B", "S"),
		rec("S", "leaf"),
	})
	requirePathsAcyclic(t, tree)

	a, b := tree.Children[0], tree.Children[1]
	require.Len(t, a.Children, 2)
	assert.True(t, a.Children[1].Cycle)
	require.Len(t, b.Children, 1)
	assert.Same(t, a.Children[0].Children[0], b.Children[0].Children[0], "S is expanded once")
}

func TestBuildDanglingReference(t *testing.T) {
	records := []*FileRecord{{
		Identity:    "/src/index.js",
		DisplayName: "./src/index.js",
		Children: []ChildRef{
			{DisplayName: "./missing.js", Unresolved: true},
			{DisplayName: "./leaf.js", Identity: "/src/leaf.js"},
		},
	}}
	tree := Build(records)
	require.Len(t, tree.Children, 2)
	for _, child := range tree.Children {
		assert.Empty(t, child.Children)
		assert.False(t, child.Cycle)
	}
	assert.True(t, tree.Children[0].Unresolved)
	assert.Equal(t, 1, Stats(tree).Unresolved)
}

func TestBuildRootIsFirstRecord(t *testing.T) {
	tree := Build([]*FileRecord{
		rec("entry", "a"),
		rec("other", "entry"),
		rec("a"),
	})
	assert.Equal(t, "entry", tree.Identity)
	assert.Equal(t, []string{"other"}, Unreachable([]*FileRecord{
		rec("entry", "a"),
		rec("other", "entry"),
		rec("a"),
	}, tree))
}

func TestBuildDuplicateIdentityUsesFirstRecord(t *testing.T) {
	// F, G, F produces two records for F; lookups use the first one.
	tree := Build([]*FileRecord{
		rec("F", "G"),
		rec("G", "x"),
		rec("F", "y"),
	})
	require.Len(t, tree.Children, 1)
	g := tree.Children[0]
	require.Len(t, g.Children, 1)
	assert.Equal(t, "x", g.Children[0].Identity)
}

func TestBuildDoesNotMutateRecords(t *testing.T) {
	records := []*FileRecord{rec("a", "b"), rec("b", "c")}
	_ = Build(records)
	assert.Len(t, records[0].Children, 1)
	assert.Len(t, records[1].Children, 1)
	assert.Equal(t, "b", records[0].Children[0].Identity)
}

func TestStatsNil(t *testing.T) {
	assert.Equal(t, TreeStats{}, Stats(nil))
	assert.Nil(t, Unreachable(nil, nil))
}

func TestTreeJSON(t *testing.T) {
	tree := Build([]*FileRecord{rec("root", "a"), rec("a", "root")})
	data, err := json.Marshal(tree)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "root", decoded["name"])
	children, ok := decoded["children"].([]any)
	require.True(t, ok)
	require.Len(t, children, 1)
	a := children[0].(map[string]any)
	assert.Equal(t, "a", a["name"])
	inner := a["children"].([]any)[0].(map[string]any)
	assert.Equal(t, true, inner["cycle"])
	assert.Equal(t, []any{}, inner["children"])
}

func TestParseIdentityMode(t *testing.T) {
	tests := []struct {
		in   string
		want IdentityMode
	}{
		{"", IdentityResolved},
		{"resolved", IdentityResolved},
		{"RAW", IdentityRaw},
		{" raw ", IdentityRaw},
	}
	for _, tt := range tests {
		got, err := ParseIdentityMode(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, got.String(), tt.want.String())
	}

	_, err := ParseIdentityMode("path")
	assert.True(t, errors.Is(err, ErrUnknownIdentityMode))
}
