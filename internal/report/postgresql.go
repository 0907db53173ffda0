// internal/report/postgresql.go

package report

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// PostgreSQLOptions configures the PostgreSQL sink.
type PostgreSQLOptions struct {
	// DSN is the lib/pq connection string.
	DSN string

	// Schema holds the table. Defaults to "public".
	Schema string

	// Table receives the records. Defaults to "checks".
	Table string

	// OnConflict picks the INSERT variant. Defaults to ConflictIgnore.
	OnConflict ConflictStrategy

	// BatchSize caps rows per INSERT statement so the placeholder count
	// stays within driver limits. Defaults to 1000.
	BatchSize int
}

// PostgreSQLWriter persists records in a PostgreSQL table with a fixed
// schema, created on first use.
type PostgreSQLWriter struct {
	mu        sync.Mutex
	db        *sql.DB
	schema    string
	table     string
	strategy  ConflictStrategy
	batchSize int
	closed    bool
}

// NewPostgreSQLWriter connects to the database, creates the table if
// missing and returns a writer bound to it.
func NewPostgreSQLWriter(options PostgreSQLOptions) (*PostgreSQLWriter, error) {
	if options.DSN == "" {
		return nil, fmt.Errorf("PostgreSQL connection string is required")
	}
	if options.Schema == "" {
		options.Schema = "public"
	}
	if options.Table == "" {
		options.Table = "checks"
	}
	if options.OnConflict == "" {
		options.OnConflict = ConflictIgnore
	}
	if options.BatchSize <= 0 {
		options.BatchSize = 1000
	}

	if err := ValidatePostgreSQLIdentifier(options.Table); err != nil {
		return nil, fmt.Errorf("invalid table name: %w", err)
	}
	if err := ValidatePostgreSQLIdentifier(options.Schema); err != nil {
		return nil, fmt.Errorf("invalid schema name: %w", err)
	}

	db, err := sql.Open("postgres", options.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	w := &PostgreSQLWriter{
		db:        db,
		schema:    options.Schema,
		table:     options.Table,
		strategy:  options.OnConflict,
		batchSize: options.BatchSize,
	}

	if err := w.createTable(); err != nil {
		db.Close()
		return nil, err
	}
	return w, nil
}

func (w *PostgreSQLWriter) createTable() error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.%s (
			id SERIAL PRIMARY KEY,
			suite TEXT NOT NULL,
			page TEXT,
			element TEXT,
			check_name TEXT NOT NULL,
			status TEXT NOT NULL,
			message TEXT,
			duration_ms DOUBLE PRECISION,
			ts TIMESTAMPTZ,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)`, quotePostgreSQLIdentifier(w.schema), quotePostgreSQLIdentifier(w.table))

	if _, err := w.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

// Write inserts records, batching rows into multi-value INSERT
// statements.
func (w *PostgreSQLWriter) Write(records []Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("writer is closed")
	}

	for i := 0; i < len(records); i += w.batchSize {
		end := i + w.batchSize
		if end > len(records) {
			end = len(records)
		}
		if err := w.insertBatch(records[i:end]); err != nil {
			return fmt.Errorf("failed to insert batch %d-%d: %w", i, end-1, err)
		}
	}
	return nil
}

func (w *PostgreSQLWriter) insertBatch(batch []Record) error {
	if len(batch) == 0 {
		return nil
	}

	placeholders := make([]string, len(batch))
	args := make([]interface{}, 0, len(batch)*len(sqlRecordColumns))
	argIndex := 1

	for i, record := range batch {
		rowPlaceholders := make([]string, len(sqlRecordColumns))
		for j := range sqlRecordColumns {
			rowPlaceholders[j] = "$" + strconv.Itoa(argIndex)
			argIndex++
		}
		args = append(args, record.rowValues()...)
		placeholders[i] = "(" + strings.Join(rowPlaceholders, ", ") + ")"
	}

	quotedColumns := make([]string, len(sqlRecordColumns))
	for i, column := range sqlRecordColumns {
		quotedColumns[i] = quotePostgreSQLIdentifier(column)
	}

	query := fmt.Sprintf("INSERT INTO %s.%s (%s) VALUES %s",
		quotePostgreSQLIdentifier(w.schema),
		quotePostgreSQLIdentifier(w.table),
		strings.Join(quotedColumns, ", "),
		strings.Join(placeholders, ", "),
	)

	switch w.strategy {
	case ConflictIgnore:
		query += " ON CONFLICT DO NOTHING"
	case ConflictReplace:
		updateClauses := make([]string, len(sqlRecordColumns))
		for i, column := range sqlRecordColumns {
			quoted := quotePostgreSQLIdentifier(column)
			updateClauses[i] = fmt.Sprintf("%s = EXCLUDED.%s", quoted, quoted)
		}
		query += " ON CONFLICT (id) DO UPDATE SET " + strings.Join(updateClauses, ", ")
	}

	if _, err := w.db.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to execute insert: %w", err)
	}
	return nil
}

func quotePostgreSQLIdentifier(identifier string) string {
	return `"` + strings.ReplaceAll(identifier, `"`, `""`) + `"`
}

// Close closes the database connection.
func (w *PostgreSQLWriter) Close() error {
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
