package merkle

import (
	"github.com/juanpablocruz/flightrec/pkg/hashutil"
)

// Side of the sibling relative to the hash being carried up.
const (
	SideLeft  = "left"
	SideRight = "right"
)

// ProofStep is one sibling hash on the path from a leaf to the root.
// Position names the side the sibling occupies.
type ProofStep struct {
	Hash     string `json:"hash"`
	Position string `json:"position"`
}

// Proof returns the inclusion proof for the leaf at index, ordered from the
// leaf level up. Out-of-range indices yield an empty proof rather than an
// error. For a lone node at the tail of an odd level the step re-uses the
// node's own hash on the right, mirroring the pairing rule in New.
func (t *Tree) Proof(index int) []ProofStep {
	if index < 0 || index >= len(t.leaves) {
		return []ProofStep{}
	}

	proof := []ProofStep{}
	level := make([]string, len(t.leaves))
	for i, n := range t.leaves {
		level[i] = n.Hash
	}

	for len(level) > 1 {
		isLeft := index%2 == 0
		sibling := index - 1
		if isLeft {
			sibling = index + 1
		}

		if sibling < len(level) {
			pos := SideLeft
			if isLeft {
				pos = SideRight
			}
			proof = append(proof, ProofStep{Hash: level[sibling], Position: pos})
		} else {
			proof = append(proof, ProofStep{Hash: level[index], Position: SideRight})
		}

		index /= 2
		next := make([]string, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			left := level[i]
			right := left
			if i+1 < len(level) {
				right = level[i+1]
			}
			next = append(next, hashutil.Combine(left, right))
		}
		level = next
	}
	return proof
}

// Verify folds proof over leafHash and compares the result to expectedRoot.
// It depends only on its arguments, so a holder of just the leaf hash, the
// proof and the root can check inclusion.
func Verify(leafHash string, proof []ProofStep, expectedRoot string) bool {
	current := leafHash
	for _, step := range proof {
		if step.Position == SideLeft {
			current = hashutil.Combine(step.Hash, current)
		} else {
			current = hashutil.Combine(current, step.Hash)
		}
	}
	return current == expectedRoot
}
