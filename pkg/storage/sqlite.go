package storage

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps records in a single SQLite table, ordered by an
// autoincrement sequence. One store owns one table, so several stores can
// share a database file.
type SQLiteStore struct {
	db    *sql.DB
	table string
	owned bool
}

// OpenSQLite opens (creating if needed) a record table inside the database
// at path. Open and schema errors propagate; they indicate a configuration
// problem rather than a corrupt store.
func OpenSQLite(path, table string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	s := &SQLiteStore{db: db, table: table, owned: true}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteStore wraps an existing handle; Close then leaves the handle
// open for the owner.
func NewSQLiteStore(db *sql.DB, table string) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db, table: table}
	if err := s.init(); err != nil {
		return nil, err
	}
	return s, nil
}

// DB exposes the underlying handle so further stores can share it.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) init() error {
	stmt := fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %q (seq INTEGER PRIMARY KEY AUTOINCREMENT, data BLOB NOT NULL)`,
		s.table)
	if _, err := s.db.Exec(stmt); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

func (s *SQLiteStore) Load() ([][]byte, error) {
	rows, err := s.db.Query(fmt.Sprintf(`SELECT data FROM %q ORDER BY seq`, s.table))
	if err != nil {
		// Unreadable table: treat as empty, same as a corrupt file.
		return nil, nil
	}
	defer rows.Close()

	var records [][]byte
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, nil
		}
		records = append(records, data)
	}
	if err := rows.Err(); err != nil {
		return nil, nil
	}
	return records, nil
}

func (s *SQLiteStore) Save(records [][]byte) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(fmt.Sprintf(`DELETE FROM %q`, s.table)); err != nil {
		return fmt.Errorf("clear %s: %w", s.table, err)
	}
	stmt, err := tx.Prepare(fmt.Sprintf(`INSERT INTO %q (data) VALUES (?)`, s.table))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()
	for _, rec := range records {
		if _, err := stmt.Exec(rec); err != nil {
			return fmt.Errorf("insert record: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}
