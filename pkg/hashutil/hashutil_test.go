package hashutil

import (
	"strings"
	"testing"
)

func TestCanonicalKeyOrderIndependent(t *testing.T) {
	a := map[string]any{"b": 2, "a": 1, "nested": map[string]any{"z": true, "y": "v"}}
	b := map[string]any{"nested": map[string]any{"y": "v", "z": true}, "a": 1, "b": 2}

	ha, err := Canonical(a)
	if err != nil {
		t.Fatalf("canonical: %v", err)
	}
	hb, err := Canonical(b)
	if err != nil {
		t.Fatalf("canonical: %v", err)
	}
	if ha != hb {
		t.Fatalf("key order changed digest: %s vs %s", ha, hb)
	}
	if len(ha) != 64 || strings.ToLower(ha) != ha {
		t.Fatalf("digest not lowercase 64-hex: %q", ha)
	}
}

func TestCanonicalValueSensitive(t *testing.T) {
	ha, _ := Canonical(map[string]any{"a": 1})
	hb, _ := Canonical(map[string]any{"a": 2})
	if ha == hb {
		t.Fatalf("different values produced equal digests")
	}
}

func TestChainGenesisSentinel(t *testing.T) {
	record := map[string]any{"id": 0}

	h1, err := Chain("", record)
	if err != nil {
		t.Fatalf("chain: %v", err)
	}
	h2, err := Chain(Genesis, record)
	if err != nil {
		t.Fatalf("chain: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("empty prev must behave as genesis sentinel")
	}
	if len(Genesis) != 64 || strings.Trim(Genesis, "0") != "" {
		t.Fatalf("genesis sentinel malformed: %q", Genesis)
	}
}

func TestChainPredecessorDependent(t *testing.T) {
	record := map[string]any{"id": 1, "desc": "same record"}

	h1, _ := Chain("aaaa", record)
	h2, _ := Chain("bbbb", record)
	if h1 == h2 {
		t.Fatalf("equal records after different predecessors must differ")
	}

	if !VerifyChain("aaaa", record, h1) {
		t.Fatalf("verify rejected matching chain hash")
	}
	if VerifyChain("bbbb", record, h1) {
		t.Fatalf("verify accepted wrong predecessor")
	}
}

func TestCombineOrderSensitive(t *testing.T) {
	a := strings.Repeat("a", 64)
	b := strings.Repeat("b", 64)

	ab := Combine(a, b)
	ba := Combine(b, a)
	if ab == ba {
		t.Fatalf("combine is order insensitive")
	}
	if ab != Combine(a, b) {
		t.Fatalf("combine not deterministic")
	}
	if len(ab) != 64 {
		t.Fatalf("combined digest length %d", len(ab))
	}
}

func TestDeriveIDStable(t *testing.T) {
	id := DeriveID("reporter@example.org", "hunter2hunter2")
	if id != DeriveID("reporter@example.org", "hunter2hunter2") {
		t.Fatalf("same identity/salt produced different ids")
	}
	if !strings.HasPrefix(id, "anon_") || len(id) != len("anon_")+12 {
		t.Fatalf("unexpected id shape: %q", id)
	}
	if id == DeriveID("reporter@example.org", "other-salt-00") {
		t.Fatalf("different salt produced same id")
	}
	if id == DeriveID("other@example.org", "hunter2hunter2") {
		t.Fatalf("different identity produced same id")
	}

	if !VerifyDerivedID("reporter@example.org", "hunter2hunter2", id) {
		t.Fatalf("verify rejected matching pair")
	}
	if VerifyDerivedID("reporter@example.org", "wrong", id) {
		t.Fatalf("verify accepted wrong salt")
	}
}

func TestCanonicalStructsAndNumbers(t *testing.T) {
	type payload struct {
		Name  string         `json:"name"`
		Score int            `json:"score"`
		Tags  map[string]any `json:"tags"`
	}
	h1, err := Canonical(payload{Name: "x", Score: 3, Tags: map[string]any{"b": 1.5, "a": "z"}})
	if err != nil {
		t.Fatalf("canonical struct: %v", err)
	}
	h2, _ := Canonical(payload{Name: "x", Score: 3, Tags: map[string]any{"a": "z", "b": 1.5}})
	if h1 != h2 {
		t.Fatalf("struct canonicalization unstable")
	}
}
