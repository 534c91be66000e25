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
	"maps"
	"math"
)

// Node is an element of the reconciled tree.
type Node struct {
	Name       string  `json:"name"`
	Identity   string  `json:"identity,omitempty"`
	Resource   string  `json:"resource,omitempty"`
	Cycle      bool    `json:"cycle,omitempty"`
	Unresolved bool    `json:"unresolved,omitempty"`
	Children   []*Node `json:"children"`
}

// Build reconciles records into a tree rooted at records[0].
// It returns nil when there are no records.
//
// Each child reference is expanded with the children of the record sharing its
// identity. References without a record are leaves. A reference to an identity
// already on the path from the root is a leaf marked Cycle. Subtrees are
// expanded once per identity and the resulting slice is shared by every
// reference to that identity, unless the expansion depends on the path it was
// reached by: a subtree cut short by a cycle to one of its ancestors, or one
// containing a module that is an ancestor of the new reference, is expanded
// again in place.
func Build(records []*FileRecord) *Node {
	if len(records) == 0 {
		return nil
	}

	index := indexRecords(records)
	root := records[0]

	r := &reconciler{
		index: index,
		cache: make(map[string]expansion),
		path:  map[string]int{root.Identity: 0},
	}
	children, _, _ := r.expand(root, 0)

	return &Node{
		Name:     root.DisplayName,
		Identity: root.Identity,
		Resource: root.Resource,
		Children: children,
	}
}

// indexRecords maps each identity to the first record carrying it.
func indexRecords(records []*FileRecord) map[string]*FileRecord {
	index := make(map[string]*FileRecord, len(records))
	for _, rec := range records {
		if _, ok := index[rec.Identity]; !ok {
			index[rec.Identity] = rec
		}
	}
	return index
}

// expansion is a memoized subtree with the identities it contains.
type expansion struct {
	children []*Node
	members  map[string]bool
}

type reconciler struct {
	index map[string]*FileRecord
	cache map[string]expansion
	// path maps identities on the current root-to-node path to their depth.
	path map[string]int
}

// expand builds the children of rec, which sits at depth on the current path.
// It also returns the identities in the expanded subtree and the shallowest
// path depth a cycle in it pointed back to (math.MaxInt for none).
func (r *reconciler) expand(rec *FileRecord, depth int) ([]*Node, map[string]bool, int) {
	nodes := make([]*Node, 0, len(rec.Children))
	members := make(map[string]bool)
	low := math.MaxInt

	for _, ref := range rec.Children {
		node := &Node{
			Name:       ref.DisplayName,
			Identity:   ref.Identity,
			Resource:   ref.Resource,
			Unresolved: ref.Unresolved,
			Children:   []*Node{},
		}
		nodes = append(nodes, node)

		if ref.Identity == "" {
			continue
		}
		members[ref.Identity] = true
		target, ok := r.index[ref.Identity]
		if !ok {
			continue
		}
		if at, ok := r.path[ref.Identity]; ok {
			node.Cycle = true
			low = min(low, at)
			continue
		}
		if cached, ok := r.cache[ref.Identity]; ok && r.offPath(cached.members) {
			node.Children = cached.children
			maps.Copy(members, cached.members)
			continue
		}

		childDepth := depth + 1
		r.path[ref.Identity] = childDepth
		children, sub, subLow := r.expand(target, childDepth)
		delete(r.path, ref.Identity)

		node.Children = children
		maps.Copy(members, sub)
		if subLow >= childDepth {
			r.cache[ref.Identity] = expansion{children: children, members: sub}
		} else {
			low = min(low, subLow)
		}
	}
	return nodes, members, low
}

// offPath reports whether none of members is on the current path.
func (r *reconciler) offPath(members map[string]bool) bool {
	for id := range r.path {
		if members[id] {
			return false
		}
	}
	return true
}

// Unreachable returns the identities of records that are not part of the tree
// rooted at root, in record order.
func Unreachable(records []*FileRecord, root *Node) []string {
	reached := make(map[string]bool)
	visited := make(map[*Node]bool)
	var visit func(n *Node)
	visit = func(n *Node) {
		if visited[n] {
			return
		}
		visited[n] = true
		reached[n.Identity] = true
		for _, child := range n.Children {
			visit(child)
		}
	}
	if root != nil {
		visit(root)
	}

	var orphans []string
	seen := make(map[string]bool)
	for _, rec := range records {
		if reached[rec.Identity] || seen[rec.Identity] {
			continue
		}
		seen[rec.Identity] = true
		orphans = append(orphans, rec.Identity)
	}
	return orphans
}

// TreeStats summarizes a reconciled tree.
type TreeStats struct {
	Nodes      int // Nodes in the serialized tree, counting shared subtrees per reference
	Modules    int // Distinct identities
	Depth      int // Longest root-to-leaf path, root included
	Cycles     int // References truncated because of a cycle
	Unresolved int // Dangling references the resolver could not resolve
}

// Stats walks the tree rooted at root. A nil root yields zero stats.
func Stats(root *Node) TreeStats {
	var stats TreeStats
	if root == nil {
		return stats
	}
	modules := make(map[string]bool)
	var walk func(n *Node, depth int)
	walk = func(n *Node, depth int) {
		stats.Nodes++
		stats.Depth = max(stats.Depth, depth)
		if n.Identity != "" {
			modules[n.Identity] = true
		}
		if n.Cycle {
			stats.Cycles++
		}
		if n.Unresolved {
			stats.Unresolved++
		}
		for _, child := range n.Children {
			walk(child, depth+1)
		}
	}
	walk(root, 1)
	stats.Modules = len(modules)
	return stats
}
