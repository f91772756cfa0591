package storage

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore keeps records as one JSON document per line. Save rewrites the
// whole file through a temp file and rename, so a crashed write never leaves
// a half-updated store behind.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by path. The file is not created
// until the first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load() ([][]byte, error) {
	file, err := os.Open(s.path)
	if err != nil {
		// Missing or unreadable file means an empty store.
		return nil, nil
	}
	defer file.Close()

	var records [][]byte
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 5*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if !json.Valid(line) {
			// Corrupt store: start fresh rather than fail.
			return nil, nil
		}
		records = append(records, append([]byte(nil), line...))
	}
	if err := scanner.Err(); err != nil {
		return nil, nil
	}
	return records, nil
}

func (s *FileStore) Save(records [][]byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp store: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	for _, rec := range records {
		if _, err := w.Write(rec); err != nil {
			tmp.Close()
			return fmt.Errorf("write record: %w", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			tmp.Close()
			return fmt.Errorf("write record: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp store: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace store: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }
