package commitment_test

import (
	"path/filepath"
	"testing"

	"github.com/juanpablocruz/flightrec/pkg/commitment"
	"github.com/juanpablocruz/flightrec/pkg/ledger"
	"github.com/juanpablocruz/flightrec/pkg/storage"
)

func newTestStore(t *testing.T, count int) *commitment.Store {
	t.Helper()
	fs := storage.NewFileStore(filepath.Join(t.TempDir(), "commitments.jsonl"))
	return commitment.NewStore(fs, func(ledger.EventType) int { return count })
}

func TestCreateHidesCount(t *testing.T) {
	s := newTestStore(t, 10)

	c, err := s.Create(ledger.SafetyEvalRun)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.ID == "" || len(c.CommitmentHash) != 64 {
		t.Fatalf("malformed commitment: %+v", c)
	}
	if c.EventType != ledger.SafetyEvalRun {
		t.Fatalf("event type %q", c.EventType)
	}

	got, ok := s.Get(c.ID)
	if !ok || got.CommitmentHash != c.CommitmentHash {
		t.Fatalf("get returned %+v", got)
	}
	if _, ok := s.Get("no-such-id"); ok {
		t.Fatalf("unknown id found")
	}
}

func TestCommitmentsToSameCountDiffer(t *testing.T) {
	s := newTestStore(t, 7)
	a, _ := s.Create(ledger.SafetyEvalRun)
	b, _ := s.Create(ledger.SafetyEvalRun)
	if a.CommitmentHash == b.CommitmentHash {
		t.Fatalf("distinct blinding factors should give distinct hashes")
	}
	if a.ID == b.ID {
		t.Fatalf("ids collide")
	}
}

func TestProveAboveThreshold(t *testing.T) {
	s := newTestStore(t, 10)
	c, _ := s.Create(ledger.SafetyEvalRun)

	p, ok := s.GenerateProof(c.ID, 5)
	if !ok {
		t.Fatalf("commitment vanished")
	}
	if !p.IsValid {
		t.Fatalf("count 10 >= threshold 5 should prove: %+v", p)
	}
	if p.ExcessCommitment == "" {
		t.Fatalf("missing excess commitment")
	}
	if p.ProofData["verification_hash"] == "" || p.ProofData["threshold_blinding"] == "" {
		t.Fatalf("incomplete proof data: %v", p.ProofData)
	}

	ok2, msg := commitment.VerifyProof(c.CommitmentHash, 5, p.ExcessCommitment, p.ProofData)
	if !ok2 {
		t.Fatalf("verify rejected honest proof: %s", msg)
	}

	// Same proof material against a different threshold must fail: the
	// verification hash no longer matches.
	ok3, _ := commitment.VerifyProof(c.CommitmentHash, 6, p.ExcessCommitment, p.ProofData)
	if ok3 {
		t.Fatalf("proof for threshold 5 verified at threshold 6")
	}
}

func TestThresholdEqualsCount(t *testing.T) {
	s := newTestStore(t, 5)
	c, _ := s.Create(ledger.SafetyEvalRun)
	p, _ := s.GenerateProof(c.ID, 5)
	if !p.IsValid {
		t.Fatalf("count == threshold should prove")
	}
	ok, _ := commitment.VerifyProof(c.CommitmentHash, 5, p.ExcessCommitment, p.ProofData)
	if !ok {
		t.Fatalf("boundary proof rejected")
	}
}

func TestThresholdAboveCount(t *testing.T) {
	s := newTestStore(t, 3)
	c, _ := s.Create(ledger.SafetyEvalRun)

	p, ok := s.GenerateProof(c.ID, 4)
	if !ok {
		t.Fatalf("commitment vanished")
	}
	if p.IsValid {
		t.Fatalf("threshold above count reported valid")
	}
	if p.ExcessCommitment != "" {
		t.Fatalf("invalid proof carries excess commitment")
	}
	ok2, msg := commitment.VerifyProof(c.CommitmentHash, 4, p.ExcessCommitment, p.ProofData)
	if ok2 {
		t.Fatalf("verify accepted failed proof")
	}
	if msg == "" {
		t.Fatalf("missing rejection message")
	}
}

func TestGenerateProofUnknownID(t *testing.T) {
	s := newTestStore(t, 3)
	if _, ok := s.GenerateProof("missing", 1); ok {
		t.Fatalf("proof generated for unknown commitment")
	}
}

func TestVerifyProofRejectsIncomplete(t *testing.T) {
	if ok, _ := commitment.VerifyProof("hash", 1, "", map[string]string{"verification_hash": "x", "threshold_blinding": "y"}); ok {
		t.Fatalf("empty excess commitment accepted")
	}
	if ok, _ := commitment.VerifyProof("hash", 1, "ec", map[string]string{"threshold_blinding": "y"}); ok {
		t.Fatalf("missing verification hash accepted")
	}
	if ok, _ := commitment.VerifyProof("hash", 1, "ec", map[string]string{"verification_hash": "x"}); ok {
		t.Fatalf("missing threshold blinding accepted")
	}
}

func TestCountReadAtCreationTime(t *testing.T) {
	count := 2
	fs := storage.NewFileStore(filepath.Join(t.TempDir(), "c.jsonl"))
	s := commitment.NewStore(fs, func(ledger.EventType) int { return count })

	c, _ := s.Create(ledger.SafetyEvalRun)
	count = 100 // later growth must not affect the old commitment

	p, _ := s.GenerateProof(c.ID, 3)
	if p.IsValid {
		t.Fatalf("commitment should be bound to the count at creation (2), not 100")
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "commitments.jsonl")
	fs := storage.NewFileStore(path)
	s := commitment.NewStore(fs, func(ledger.EventType) int { return 8 })
	c, _ := s.Create(ledger.ModelDeployed)

	s2 := commitment.NewStore(storage.NewFileStore(path), nil)
	got, ok := s2.Get(c.ID)
	if !ok || got.CommitmentHash != c.CommitmentHash {
		t.Fatalf("commitment lost across restart")
	}

	// Proofs still work from the reloaded private pair.
	p, ok := s2.GenerateProof(c.ID, 8)
	if !ok || !p.IsValid {
		t.Fatalf("reloaded store cannot prove: %+v", p)
	}
	ok2, _ := commitment.VerifyProof(got.CommitmentHash, 8, p.ExcessCommitment, p.ProofData)
	if !ok2 {
		t.Fatalf("proof from reloaded store rejected")
	}
}
