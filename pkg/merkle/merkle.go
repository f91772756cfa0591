// Package merkle builds a binary hash tree over an ordered snapshot of leaf
// hashes and answers inclusion proofs for individual leaves.
//
// When a level holds an odd number of nodes the last node is paired with
// itself, at every level. Proofs generated against one tree only verify
// against trees built with the same rule, so it must not be swapped for the
// promote-unpaired variant.
package merkle

import (
	"github.com/juanpablocruz/flightrec/pkg/hashutil"
)

// Node is one vertex of the tree. Leaves carry their position in the
// original hash sequence; internal nodes own their two children.
type Node struct {
	Hash      string
	Left      *Node
	Right     *Node
	IsLeaf    bool
	LeafIndex int
}

// Tree is an immutable snapshot tree. Build a new one whenever the leaf set
// changes; a built tree is safe for concurrent proof generation.
type Tree struct {
	root   *Node
	leaves []*Node
}

// New builds a tree over leafHashes in order. An empty input yields a tree
// with no root.
func New(leafHashes []string) *Tree {
	t := &Tree{}
	if len(leafHashes) == 0 {
		return t
	}

	t.leaves = make([]*Node, len(leafHashes))
	for i, h := range leafHashes {
		t.leaves[i] = &Node{Hash: h, IsLeaf: true, LeafIndex: i}
	}

	level := t.leaves
	for len(level) > 1 {
		next := make([]*Node, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			left := level[i]
			right := left // lone tail node pairs with itself
			if i+1 < len(level) {
				right = level[i+1]
			}
			next = append(next, &Node{
				Hash:  hashutil.Combine(left.Hash, right.Hash),
				Left:  left,
				Right: right,
			})
		}
		level = next
	}
	t.root = level[0]
	return t
}

// Root returns the root digest, or "" for an empty tree.
func (t *Tree) Root() string {
	if t.root == nil {
		return ""
	}
	return t.root.Hash
}

// LeafCount returns the number of leaves the tree was built over.
func (t *Tree) LeafCount() int {
	return len(t.leaves)
}

// Leaf returns the hash at index, or "" when out of range.
func (t *Tree) Leaf(index int) string {
	if index < 0 || index >= len(t.leaves) {
		return ""
	}
	return t.leaves[index].Hash
}
