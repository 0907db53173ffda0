// internal/report/mysql.go

package report

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

// MySQLOptions configures the MySQL sink.
type MySQLOptions struct {
	// DSN is the go-sql-driver connection string. parseTime and loc
	// parameters are appended when absent.
	DSN string

	// Table receives the records. Defaults to "checks".
	Table string

	// OnConflict picks the INSERT variant. Defaults to ConflictIgnore.
	OnConflict ConflictStrategy

	// BatchSize caps rows per INSERT statement. Defaults to 1000.
	BatchSize int
}

// MySQLWriter persists records in a MySQL table with a fixed schema,
// created on first use.
type MySQLWriter struct {
	mu        sync.Mutex
	db        *sql.DB
	table     string
	verb      string
	batchSize int
	closed    bool
}

// NewMySQLWriter connects to the database, creates the table if
// missing and returns a writer bound to it.
func NewMySQLWriter(options MySQLOptions) (*MySQLWriter, error) {
	if options.DSN == "" {
		return nil, fmt.Errorf("MySQL connection string is required")
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

	if err := ValidateMySQLIdentifier(options.Table); err != nil {
		return nil, fmt.Errorf("invalid table name: %w", err)
	}

	db, err := sql.Open("mysql", mysqlDSN(options.DSN))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	verb := "INSERT INTO"
	switch options.OnConflict {
	case ConflictIgnore:
		verb = "INSERT IGNORE INTO"
	case ConflictReplace:
		verb = "REPLACE INTO"
	}

	w := &MySQLWriter{
		db:        db,
		table:     options.Table,
		verb:      verb,
		batchSize: options.BatchSize,
	}

	if err := w.createTable(); err != nil {
		db.Close()
		return nil, err
	}
	return w, nil
}

// mysqlDSN appends the parameters the writer relies on when the caller
// did not set them.
func mysqlDSN(dsn string) string {
	var params []string
	if !strings.Contains(dsn, "parseTime=") {
		params = append(params, "parseTime=true")
	}
	if !strings.Contains(dsn, "loc=") {
		params = append(params, "loc=UTC")
	}
	if len(params) == 0 {
		return dsn
	}

	separator := "?"
	if strings.Contains(dsn, "?") {
		separator = "&"
	}
	return dsn + separator + strings.Join(params, "&")
}

func (w *MySQLWriter) createTable() error {
	query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS `%s` (\n"+
		"	id BIGINT AUTO_INCREMENT PRIMARY KEY,\n"+
		"	suite VARCHAR(255) NOT NULL,\n"+
		"	page TEXT,\n"+
		"	element TEXT,\n"+
		"	check_name VARCHAR(255) NOT NULL,\n"+
		"	status VARCHAR(16) NOT NULL,\n"+
		"	message TEXT,\n"+
		"	duration_ms DOUBLE,\n"+
		"	ts DATETIME(6),\n"+
		"	created_at DATETIME(6) DEFAULT CURRENT_TIMESTAMP(6)\n"+
		") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4", w.table)

	if _, err := w.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

// Write inserts records, batching rows into multi-value INSERT
// statements.
func (w *MySQLWriter) Write(records []Record) error {
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

func (w *MySQLWriter) insertBatch(batch []Record) error {
	if len(batch) == 0 {
		return nil
	}

	rowPlaceholders := "(" + strings.TrimSuffix(strings.Repeat("?,", len(sqlRecordColumns)), ",") + ")"
	values := make([]string, len(batch))
	args := make([]interface{}, 0, len(batch)*len(sqlRecordColumns))
	for i, record := range batch {
		values[i] = rowPlaceholders
		args = append(args, record.rowValues()...)
	}

	query := fmt.Sprintf("%s `%s` (`%s`) VALUES %s",
		w.verb,
		w.table,
		strings.Join(sqlRecordColumns, "`, `"),
		strings.Join(values, ", "),
	)

	if _, err := w.db.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to execute insert: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (w *MySQLWriter) Close() error {
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
