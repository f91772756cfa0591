package merkle_test

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/juanpablocruz/flightrec/pkg/hashutil"
	"github.com/juanpablocruz/flightrec/pkg/merkle"
)

func leafHashes(n int) []string {
	hs := make([]string, n)
	for i := range hs {
		sum := sha256.Sum256([]byte(fmt.Sprintf("leaf-%d", i)))
		hs[i] = hex.EncodeToString(sum[:])
	}
	return hs
}

func TestEmptyTree(t *testing.T) {
	tree := merkle.New(nil)
	if tree.Root() != "" {
		t.Fatalf("empty tree should have no root, got %q", tree.Root())
	}
	if got := tree.Proof(0); len(got) != 0 {
		t.Fatalf("proof on empty tree should be empty, got %v", got)
	}
}

func TestSingleLeaf(t *testing.T) {
	hs := leafHashes(1)
	tree := merkle.New(hs)

	if tree.Root() != hs[0] {
		t.Fatalf("single-leaf root must equal the leaf hash")
	}
	proof := tree.Proof(0)
	if len(proof) != 0 {
		t.Fatalf("single-leaf proof should be empty, got %d steps", len(proof))
	}
	if !merkle.Verify(hs[0], proof, tree.Root()) {
		t.Fatalf("empty proof against own root must verify")
	}
	if merkle.Verify(leafHashes(2)[1], proof, tree.Root()) {
		t.Fatalf("empty proof with wrong leaf must fail")
	}
}

func TestTwoLeaves(t *testing.T) {
	hs := leafHashes(2)
	tree := merkle.New(hs)

	want := hashutil.Combine(hs[0], hs[1])
	if tree.Root() != want {
		t.Fatalf("root = %s, want %s", tree.Root(), want)
	}
	for i := range hs {
		proof := tree.Proof(i)
		if len(proof) != 1 {
			t.Fatalf("leaf %d: proof length %d, want 1", i, len(proof))
		}
		if !merkle.Verify(hs[i], proof, tree.Root()) {
			t.Fatalf("leaf %d: proof failed", i)
		}
	}
}

func TestOddLeavesDuplicateLast(t *testing.T) {
	hs := leafHashes(3)
	tree := merkle.New(hs)

	// level 1: [C(0,1), C(2,2)], root: C(C(0,1), C(2,2))
	p01 := hashutil.Combine(hs[0], hs[1])
	p22 := hashutil.Combine(hs[2], hs[2])
	want := hashutil.Combine(p01, p22)
	if tree.Root() != want {
		t.Fatalf("odd-count root does not follow the self-pairing rule")
	}

	proof := tree.Proof(2)
	if len(proof) != 2 {
		t.Fatalf("proof length %d, want 2", len(proof))
	}
	if proof[0].Hash != hs[2] || proof[0].Position != merkle.SideRight {
		t.Fatalf("lone leaf must pair with itself on the right, got %+v", proof[0])
	}
	if !merkle.Verify(hs[2], proof, tree.Root()) {
		t.Fatalf("self-paired proof failed")
	}
}

func TestFiveLeavesAllProofsRoundTrip(t *testing.T) {
	hs := leafHashes(5)
	tree := merkle.New(hs)

	for i := range hs {
		proof := tree.Proof(i)
		if !merkle.Verify(hs[i], proof, tree.Root()) {
			t.Fatalf("leaf %d: proof did not verify against root", i)
		}
		// Proof for n=5 spans 3 levels.
		if len(proof) != 3 {
			t.Fatalf("leaf %d: proof length %d, want 3", i, len(proof))
		}
	}
}

func TestProofOutOfRange(t *testing.T) {
	tree := merkle.New(leafHashes(4))
	for _, idx := range []int{-1, 4, 100} {
		if got := tree.Proof(idx); len(got) != 0 {
			t.Fatalf("index %d: want empty proof, got %d steps", idx, len(got))
		}
	}
}

func TestVerifyRejectsMutations(t *testing.T) {
	hs := leafHashes(6)
	tree := merkle.New(hs)
	proof := tree.Proof(3)

	if !merkle.Verify(hs[3], proof, tree.Root()) {
		t.Fatalf("baseline proof failed")
	}

	// Altered leaf.
	if merkle.Verify(flipHex(hs[3]), proof, tree.Root()) {
		t.Fatalf("altered leaf verified")
	}
	// Altered proof step.
	bad := make([]merkle.ProofStep, len(proof))
	copy(bad, proof)
	bad[1].Hash = flipHex(bad[1].Hash)
	if merkle.Verify(hs[3], bad, tree.Root()) {
		t.Fatalf("altered proof step verified")
	}
	// Flipped side.
	bad2 := make([]merkle.ProofStep, len(proof))
	copy(bad2, proof)
	if bad2[0].Position == merkle.SideLeft {
		bad2[0].Position = merkle.SideRight
	} else {
		bad2[0].Position = merkle.SideLeft
	}
	if merkle.Verify(hs[3], bad2, tree.Root()) {
		t.Fatalf("flipped side verified")
	}
	// Altered root.
	if merkle.Verify(hs[3], proof, flipHex(tree.Root())) {
		t.Fatalf("altered root verified")
	}
}

func TestManySizes(t *testing.T) {
	for n := 1; n <= 33; n++ {
		hs := leafHashes(n)
		tree := merkle.New(hs)
		for i := range hs {
			if !merkle.Verify(hs[i], tree.Proof(i), tree.Root()) {
				t.Fatalf("n=%d leaf=%d: proof failed", n, i)
			}
		}
	}
}

func flipHex(h string) string {
	b := []byte(h)
	if b[0] == 'a' {
		b[0] = 'b'
	} else {
		b[0] = 'a'
	}
	return string(b)
}
