// Package commitment implements a hash-based commit-reveal scheme over event
// counts: an issuer commits to a private count, later proves
// count >= threshold, and a third party checks the proof without learning
// the count.
//
// Verification only checks that the supplied values are mutually consistent
// under the hash; nothing binds the excess commitment to the originally
// committed count (the scheme is not additively homomorphic), so a party
// holding just the commitment hash can forge a passing proof. The protocol
// is kept as-is for compatibility and is not production-grade.
package commitment

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/juanpablocruz/flightrec/pkg/ledger"
)

// Commitment is the public view of a committed count. The count and its
// blinding factor stay inside the store.
type Commitment struct {
	ID             string           `json:"id"`
	CommitmentHash string           `json:"commitment_hash"`
	EventType      ledger.EventType `json:"event_type"`
	Timestamp      time.Time        `json:"timestamp"`
}

// Proof claims that a committed count is at least Threshold. It is an
// ephemeral output, re-derivable from the commitment and the threshold,
// never ledger state.
type Proof struct {
	CommitmentID     string            `json:"commitment_id"`
	Threshold        int               `json:"threshold"`
	ExcessCommitment string            `json:"excess_commitment"`
	ProofData        map[string]string `json:"proof_data"`
	IsValid          bool              `json:"is_valid"`
	Timestamp        time.Time         `json:"timestamp"`
}

// proofErrorKey marks a proof whose threshold exceeded the count.
const proofErrorKey = "error"

func hexSHA256(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// commitmentHash commits to a count under a blinding factor.
func commitmentHash(count int, blinding string) string {
	return hexSHA256(fmt.Sprintf("%d||%s", count, blinding))
}

func thresholdBlinding(origBlinding, excessBlinding string, threshold, excess int) string {
	return hexSHA256(fmt.Sprintf("%s:%s:%d:%d", origBlinding, excessBlinding, threshold, excess))
}

func verificationHash(commitHash string, threshold int, excessCommitment string) string {
	return hexSHA256(fmt.Sprintf("%s:%d:%s", commitHash, threshold, excessCommitment))
}

// newBlinding draws a fresh 32-byte blinding factor.
func newBlinding() (string, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("draw blinding factor: %w", err)
	}
	return hex.EncodeToString(b[:]), nil
}

// VerifyProof checks a threshold proof against a commitment hash. It
// rejects proofs carrying an error marker or missing components, then
// recomputes the verification hash and compares.
func VerifyProof(commitHash string, threshold int, excessCommitment string, proofData map[string]string) (bool, string) {
	if msg, ok := proofData[proofErrorKey]; ok {
		return false, fmt.Sprintf("Proof generation failed: %s", msg)
	}
	if excessCommitment == "" {
		return false, "Missing excess commitment"
	}
	if _, ok := proofData["verification_hash"]; !ok {
		return false, "Missing verification hash"
	}
	if _, ok := proofData["threshold_blinding"]; !ok {
		return false, "Missing threshold blinding"
	}

	expected := verificationHash(commitHash, threshold, excessCommitment)
	if proofData["verification_hash"] != expected {
		return false, "Verification hash mismatch - proof is invalid"
	}
	return true, fmt.Sprintf("Proof verified: count >= %d", threshold)
}
