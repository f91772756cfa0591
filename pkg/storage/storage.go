// Package storage provides the durable ordered-record stores backing the
// ledger and the commitment scheme, plus a single-document state file for
// the surrounding services.
//
// All implementations share the same failure contract: a store that cannot
// be read is treated as empty (start fresh), while write failures propagate
// to the caller.
package storage

// Store persists an ordered sequence of opaque records. Save replaces the
// full sequence; Load returns it in the order it was saved.
type Store interface {
	Load() ([][]byte, error)
	Save(records [][]byte) error
	Close() error
}
