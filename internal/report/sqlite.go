// internal/report/sqlite.go

package report

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteOptions configures the SQLite sink.
type SQLiteOptions struct {
	// Path is the database file. Parent directories are created as
	// needed.
	Path string

	// Table receives the records. Defaults to "checks".
	Table string

	// OnConflict picks the INSERT variant. Defaults to ConflictIgnore.
	OnConflict ConflictStrategy
}

// SQLiteWriter persists records in a SQLite database file. The schema
// is fixed, one row per record, created on first use.
type SQLiteWriter struct {
	mu     sync.Mutex
	db     *sql.DB
	table  string
	insert string
	closed bool
}

// NewSQLiteWriter opens the database, creates the table if missing and
// returns a writer bound to it.
func NewSQLiteWriter(options SQLiteOptions) (*SQLiteWriter, error) {
	if options.Path == "" {
		return nil, fmt.Errorf("SQLite database path is required")
	}
	if options.Table == "" {
		options.Table = "checks"
	}
	if options.OnConflict == "" {
		options.OnConflict = ConflictIgnore
	}

	if err := ValidateSQLiteIdentifier(options.Table); err != nil {
		return nil, fmt.Errorf("invalid table name: %w", err)
	}

	if dir := filepath.Dir(options.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", options.Path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SQLite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	// SQLite works best with a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set pragma: %w", err)
	}

	w := &SQLiteWriter{
		db:     db,
		table:  options.Table,
		insert: sqliteInsertQuery(options.Table, options.OnConflict),
	}

	if err := w.createTable(); err != nil {
		db.Close()
		return nil, err
	}
	return w, nil
}

func (w *SQLiteWriter) createTable() error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS [%s] (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			suite TEXT NOT NULL,
			page TEXT,
			element TEXT,
			check_name TEXT NOT NULL,
			status TEXT NOT NULL,
			message TEXT,
			duration_ms REAL,
			ts DATETIME,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`, w.table)

	if _, err := w.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

func sqliteInsertQuery(table string, strategy ConflictStrategy) string {
	verb := "INSERT"
	switch strategy {
	case ConflictIgnore:
		verb = "INSERT OR IGNORE"
	case ConflictReplace:
		verb = "INSERT OR REPLACE"
	}

	columnList := make([]string, len(sqlRecordColumns))
	for i, column := range sqlRecordColumns {
		columnList[i] = "[" + column + "]"
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(sqlRecordColumns)), ",")

	return fmt.Sprintf("%s INTO [%s] (%s) VALUES (%s)",
		verb, table, strings.Join(columnList, ", "), placeholders)
}

// Write inserts records inside one transaction.
func (w *SQLiteWriter) Write(records []Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("writer is closed")
	}
	if len(records) == 0 {
		return nil
	}

	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(w.insert)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, record := range records {
		if _, err := stmt.Exec(record.rowValues()...); err != nil {
			return fmt.Errorf("failed to execute statement: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Count returns the number of rows in the table. Used by health checks
// and tests.
func (w *SQLiteWriter) Count() (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, fmt.Errorf("writer is closed")
	}

	var count int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM [%s]", w.table)
	if err := w.db.QueryRow(query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}
	return count, nil
}

// Close closes the database connection.
func (w *SQLiteWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
