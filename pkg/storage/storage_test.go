package storage_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/juanpablocruz/flightrec/pkg/storage"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.jsonl")
	fs := storage.NewFileStore(path)

	got, err := fs.Load()
	if err != nil {
		t.Fatalf("load empty: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("missing file should load as empty, got %d records", len(got))
	}

	records := [][]byte{
		[]byte(`{"id":0,"v":"a"}`),
		[]byte(`{"id":1,"v":"b"}`),
		[]byte(`{"id":2,"v":"c"}`),
	}
	if err := fs.Save(records); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err = fs.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("loaded %d records, want 3", len(got))
	}
	for i := range records {
		if string(got[i]) != string(records[i]) {
			t.Fatalf("record %d: got %s want %s", i, got[i], records[i])
		}
	}
}

func TestFileStoreCorruptTreatedAsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.jsonl")
	if err := os.WriteFile(path, []byte("{\"ok\":true}\nnot json at all\n"), 0o644); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}

	fs := storage.NewFileStore(path)
	got, err := fs.Load()
	if err != nil {
		t.Fatalf("corrupt load must not error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("corrupt store should load as empty, got %d records", len(got))
	}
}

func TestFileStoreSaveReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.jsonl")
	fs := storage.NewFileStore(path)

	if err := fs.Save([][]byte{[]byte(`{"id":0}`), []byte(`{"id":1}`)}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := fs.Save([][]byte{[]byte(`{"id":0}`)}); err != nil {
		t.Fatalf("resave: %v", err)
	}
	got, _ := fs.Load()
	if len(got) != 1 {
		t.Fatalf("save must replace, got %d records", len(got))
	}
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.db")
	st, err := storage.OpenSQLite(path, "events")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer st.Close()

	got, err := st.Load()
	if err != nil {
		t.Fatalf("load empty: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("fresh table should be empty, got %d", len(got))
	}

	records := [][]byte{[]byte(`{"id":0}`), []byte(`{"id":1}`), []byte(`{"id":2}`)}
	if err := st.Save(records); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err = st.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("loaded %d records, want 3", len(got))
	}
	for i := range records {
		if string(got[i]) != string(records[i]) {
			t.Fatalf("record %d out of order: %s", i, got[i])
		}
	}

	// Replacement keeps order of the new set only.
	if err := st.Save(records[1:]); err != nil {
		t.Fatalf("resave: %v", err)
	}
	got, _ = st.Load()
	if len(got) != 2 || string(got[0]) != `{"id":1}` {
		t.Fatalf("resave did not replace records: %v", got)
	}
}

func TestSQLiteTwoTablesOneFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")
	a, err := storage.OpenSQLite(path, "events")
	if err != nil {
		t.Fatalf("open a: %v", err)
	}
	defer a.Close()
	b, err := storage.OpenSQLite(path, "commitments")
	if err != nil {
		t.Fatalf("open b: %v", err)
	}
	defer b.Close()

	if err := a.Save([][]byte{[]byte(`{"t":"event"}`)}); err != nil {
		t.Fatalf("save a: %v", err)
	}
	if err := b.Save([][]byte{[]byte(`{"t":"commitment"}`), []byte(`{"t":"commitment2"}`)}); err != nil {
		t.Fatalf("save b: %v", err)
	}

	ga, _ := a.Load()
	gb, _ := b.Load()
	if len(ga) != 1 || len(gb) != 2 {
		t.Fatalf("tables bled into each other: %d/%d", len(ga), len(gb))
	}
}

func TestStateFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	sf := storage.NewStateFile(path)

	type state struct {
		Names []string `json:"names"`
	}
	var loaded state
	if sf.Load(&loaded) {
		t.Fatalf("missing state file should report not loaded")
	}

	if err := sf.Save(state{Names: []string{"lab", "auditor"}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !sf.Load(&loaded) {
		t.Fatalf("load after save failed")
	}
	if len(loaded.Names) != 2 || loaded.Names[0] != "lab" {
		t.Fatalf("unexpected state: %+v", loaded)
	}
}

func TestStateFileCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{{{{"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	var v map[string]any
	if storage.NewStateFile(path).Load(&v) {
		t.Fatalf("corrupt state should report not loaded")
	}
}
