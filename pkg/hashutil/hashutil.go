// Package hashutil provides the hashing primitives shared by the ledger,
// the Merkle proof engine and the commitment scheme: canonical record
// hashing, chain hashing and ordered digest combination.
package hashutil

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"lukechampine.com/blake3"
)

// Genesis is the sentinel previous-hash for the first entry of a chain.
const Genesis = "0000000000000000000000000000000000000000000000000000000000000000"

// Canonical hashes v with recursively sorted map keys, so that key order
// never affects the digest. Digests are lowercase 64-char hex.
func Canonical(v any) (string, error) {
	b, err := CanonicalJSON(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// CanonicalJSON returns the compact, key-sorted encoding used by Canonical.
func CanonicalJSON(v any) ([]byte, error) {
	norm, err := normalize(v)
	if err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm); err != nil {
		return nil, fmt.Errorf("canonical encode: %w", err)
	}
	return bytes.TrimSpace(buf.Bytes()), nil
}

// chainWrapper binds a record to its predecessor's digest before hashing.
type chainWrapper struct {
	PreviousHash string `json:"previous_hash"`
	Data         any    `json:"data"`
}

// Chain hashes v together with the previous entry's digest. An empty prev
// selects the genesis sentinel, so two equal records chained after different
// predecessors never collide.
func Chain(prev string, v any) (string, error) {
	if prev == "" {
		prev = Genesis
	}
	return Canonical(chainWrapper{PreviousHash: prev, Data: v})
}

// VerifyChain recomputes Chain(prev, v) and compares against want.
func VerifyChain(prev string, v any, want string) bool {
	got, err := Chain(prev, v)
	if err != nil {
		return false
	}
	return got == want
}

// Combine hashes the raw concatenation of two hex digests. Order matters:
// Combine(a, b) != Combine(b, a).
func Combine(left, right string) string {
	sum := sha256.Sum256([]byte(left + right))
	return hex.EncodeToString(sum[:])
}

// DeriveID maps (identity, salt) to a stable pseudonym. The same pair always
// yields the same ID, so a submitter can later prove ownership by revealing
// both values to a trusted party.
func DeriveID(identity, salt string) string {
	sum := blake3.Sum256([]byte(identity + "||" + salt))
	return "anon_" + hex.EncodeToString(sum[:])[:12]
}

// VerifyDerivedID reports whether (identity, salt) produces id.
func VerifyDerivedID(identity, salt, id string) bool {
	return DeriveID(identity, salt) == id
}

// normalize rewrites v into a shape whose JSON encoding is deterministic.
// Maps become alternating key/value slices in sorted key order, which keeps
// nested maps canonical all the way down.
func normalize(v any) (any, error) {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]any, 0, len(keys)*2)
		for _, k := range keys {
			nv, err := normalize(val[k])
			if err != nil {
				return nil, err
			}
			out = append(out, k, nv)
		}
		return out, nil
	case []any:
		out := make([]any, 0, len(val))
		for _, item := range val {
			nv, err := normalize(item)
			if err != nil {
				return nil, err
			}
			out = append(out, nv)
		}
		return out, nil
	case json.Number:
		return val.String(), nil
	case string, float64, float32, bool, nil,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return val, nil
	default:
		// Structs and other composites round-trip through JSON first.
		b, err := json.Marshal(val)
		if err != nil {
			return nil, fmt.Errorf("normalize: %w", err)
		}
		dec := json.NewDecoder(strings.NewReader(string(b)))
		dec.UseNumber()
		var decoded any
		if err := dec.Decode(&decoded); err != nil {
			return nil, fmt.Errorf("normalize: %w", err)
		}
		return normalize(decoded)
	}
}
