// Package storage provides a narrow, parameterized-query table store
// backed by SQLite.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/jiocoin/jiochain/pkg/logging"
)

// Column describes a table column for EnsureTable. Type is a raw SQLite
// column type (e.g. "TEXT", "INTEGER", "REAL").
type Column struct {
	Name       string
	Type       string
	PrimaryKey bool
}

// Row is a single record, keyed by column name.
type Row map[string]any

// Store is the narrow tabular persistence interface every ledger
// component is built on. Every method is safe for concurrent use.
type Store interface {
	EnsureTable(table string, columns []Column) error
	GetAll(table string) ([]Row, error)
	GetOne(table, column string, value any) (Row, bool, error)
	Insert(table string, values Row) error
	DeleteWhere(table, column string, value any) error
	Truncate(table string) error
	UpdateWhere(table, whereCol string, whereVal any, set Row) error
	Close() error
}

// SQLiteStore is the Store implementation used by every ledger node.
type SQLiteStore struct {
	db   *sql.DB
	path string
	log  *logging.Logger
	mu   sync.RWMutex
}

// Open opens (creating if necessary) a SQLite-backed Store at path.
func Open(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// SQLite only supports one writer at a time; a single open connection
	// plus our own table-level RWMutex keeps writes serialized without
	// tripping "database is locked" errors under concurrent access.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	return &SQLiteStore{
		db:   db,
		path: path,
		log:  logging.GetDefault().Component("storage"),
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// EnsureTable creates table if it does not already exist.
func (s *SQLiteStore) EnsureTable(table string, columns []Column) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	defs := make([]string, 0, len(columns))
	for _, c := range columns {
		def := fmt.Sprintf("%q %s", c.Name, c.Type)
		if c.PrimaryKey {
			def += " PRIMARY KEY"
		}
		defs = append(defs, def)
	}

	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %q (", table)
	for i, d := range defs {
		if i > 0 {
			stmt += ", "
		}
		stmt += d
	}
	stmt += ")"

	_, err := s.db.Exec(stmt)
	if err != nil {
		return fmt.Errorf("ensure table %s: %w", table, err)
	}
	return nil
}

// GetAll returns every row of table in insertion order.
func (s *SQLiteStore) GetAll(table string) ([]Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(fmt.Sprintf("SELECT * FROM %q", table))
	if err != nil {
		return nil, fmt.Errorf("get all %s: %w", table, err)
	}
	defer rows.Close()
	return scanRows(rows)
}

// GetOne returns the first row whose column equals value.
func (s *SQLiteStore) GetOne(table, column string, value any) (Row, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := fmt.Sprintf("SELECT * FROM %q WHERE %q = ? LIMIT 1", table, column)
	rows, err := s.db.Query(query, value)
	if err != nil {
		return nil, false, fmt.Errorf("get one %s: %w", table, err)
	}
	defer rows.Close()

	results, err := scanRows(rows)
	if err != nil {
		return nil, false, err
	}
	if len(results) == 0 {
		return nil, false, nil
	}
	return results[0], true, nil
}

// Insert appends a new row to table. Every value is bound as a query
// parameter; no caller-controlled value is ever interpolated into SQL text.
func (s *SQLiteStore) Insert(table string, values Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cols := make([]string, 0, len(values))
	placeholders := make([]string, 0, len(values))
	args := make([]any, 0, len(values))
	for col, val := range values {
		cols = append(cols, fmt.Sprintf("%q", col))
		placeholders = append(placeholders, "?")
		args = append(args, val)
	}

	query := fmt.Sprintf("INSERT INTO %q (%s) VALUES (%s)",
		table, join(cols, ", "), join(placeholders, ", "))

	_, err := s.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	return nil
}

// DeleteWhere removes every row whose column equals value.
func (s *SQLiteStore) DeleteWhere(table, column string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := fmt.Sprintf("DELETE FROM %q WHERE %q = ?", table, column)
	_, err := s.db.Exec(query, value)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	return nil
}

// Truncate removes every row from table.
func (s *SQLiteStore) Truncate(table string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(fmt.Sprintf("DELETE FROM %q", table))
	if err != nil {
		return fmt.Errorf("truncate %s: %w", table, err)
	}
	return nil
}

// UpdateWhere sets columns in set for every row whose whereCol equals
// whereVal.
func (s *SQLiteStore) UpdateWhere(table, whereCol string, whereVal any, set Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	assigns := make([]string, 0, len(set))
	args := make([]any, 0, len(set)+1)
	for col, val := range set {
		assigns = append(assigns, fmt.Sprintf("%q = ?", col))
		args = append(args, val)
	}
	args = append(args, whereVal)

	query := fmt.Sprintf("UPDATE %q SET %s WHERE %q = ?", table, join(assigns, ", "), whereCol)
	_, err := s.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", table, err)
	}
	return nil
}

func scanRows(rows *sql.Rows) ([]Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(Row, len(cols))
		for i, c := range cols {
			row[c] = normalizeValue(vals[i])
		}
		results = append(results, row)
	}
	return results, rows.Err()
}

// normalizeValue converts driver-returned []byte (SQLite returns TEXT
// columns as []byte) into string so callers never need a type switch per
// column.
func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

func join(parts []string, sep string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += sep
		}
		out += p
	}
	return out
}
