// internal/report/types.go

// Package report persists check outcomes. A Record is one assertion
// result; Writer implementations deliver batches of records to a file,
// database or spreadsheet sink; Manager picks the sink from the suite
// configuration and writes through the recovery layer.
package report

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/valpere/PageXpect/internal/utils"
	"github.com/valpere/PageXpect/pkg/expect"
)

// maxMessageLen caps stored failure messages so records fit the text
// columns of the database sinks.
const maxMessageLen = 2000

// Status classifies a check outcome.
type Status string

const (
	StatusPass  Status = "pass"
	StatusFail  Status = "fail"
	StatusError Status = "error"
)

// Record is one check outcome.
type Record struct {
	Suite     string        `json:"suite" yaml:"suite"`
	Page      string        `json:"page" yaml:"page"`
	Element   string        `json:"element" yaml:"element"`
	Check     string        `json:"check" yaml:"check"`
	Status    Status        `json:"status" yaml:"status"`
	Message   string        `json:"message,omitempty" yaml:"message,omitempty"`
	Duration  time.Duration `json:"-" yaml:"-"`
	Timestamp time.Time     `json:"timestamp" yaml:"timestamp"`
}

// recordColumns is the serialization order shared by the file sinks.
var recordColumns = []string{
	"suite", "page", "element", "check", "status", "message", "duration_ms", "timestamp",
}

// sqlRecordColumns mirrors recordColumns for SQL sinks. "check" is a
// reserved word in every supported dialect, "timestamp" in some.
var sqlRecordColumns = []string{
	"suite", "page", "element", "check_name", "status", "message", "duration_ms", "ts",
}

// recordView is the flattened form shared by the file sinks. Field
// order matches recordColumns.
type recordView struct {
	Suite      string  `json:"suite" yaml:"suite"`
	Page       string  `json:"page" yaml:"page"`
	Element    string  `json:"element,omitempty" yaml:"element,omitempty"`
	Check      string  `json:"check" yaml:"check"`
	Status     string  `json:"status" yaml:"status"`
	Message    string  `json:"message,omitempty" yaml:"message,omitempty"`
	DurationMS float64 `json:"duration_ms" yaml:"duration_ms"`
	Timestamp  string  `json:"timestamp" yaml:"timestamp"`
}

// view flattens the record for serialization. Duration is reported in
// milliseconds, the timestamp in RFC3339.
func (r Record) view() recordView {
	return recordView{
		Suite:      r.Suite,
		Page:       r.Page,
		Element:    r.Element,
		Check:      r.Check,
		Status:     string(r.Status),
		Message:    r.Message,
		DurationMS: float64(r.Duration) / float64(time.Millisecond),
		Timestamp:  r.Timestamp.Format(time.RFC3339),
	}
}

// fieldStrings returns the record values as strings aligned with
// recordColumns.
func (r Record) fieldStrings() []string {
	return []string{
		r.Suite,
		r.Page,
		r.Element,
		r.Check,
		string(r.Status),
		r.Message,
		strconv.FormatFloat(float64(r.Duration)/float64(time.Millisecond), 'f', 3, 64),
		r.Timestamp.Format(time.RFC3339),
	}
}

// rowValues returns the record values aligned with sqlRecordColumns.
// The timestamp stays a time.Time so each driver stores a native value.
func (r Record) rowValues() []interface{} {
	return []interface{}{
		r.Suite,
		r.Page,
		r.Element,
		r.Check,
		string(r.Status),
		r.Message,
		float64(r.Duration) / float64(time.Millisecond),
		r.Timestamp,
	}
}

// FromCollector converts collected assertion failures into fail
// records. Access failures become StatusError, everything else
// StatusFail. The collector does not track which check produced a
// message, so Check is left generic.
func FromCollector(suite, page string, c *expect.Collector) []Record {
	if c == nil {
		return nil
	}

	failures := c.Failures()
	records := make([]Record, 0, len(failures))
	now := time.Now()
	for _, message := range failures {
		status := StatusFail
		if strings.HasPrefix(message, expect.AccessFailurePrefix) {
			status = StatusError
		}
		records = append(records, Record{
			Suite:     suite,
			Page:      page,
			Check:     "assertion",
			Status:    status,
			Message:   utils.TruncateString(message, maxMessageLen),
			Timestamp: now,
		})
	}
	return records
}

// Writer delivers record batches to one sink.
type Writer interface {
	Write(records []Record) error
	Close() error
}

// Format represents supported report sinks
type Format string

const (
	FormatJSON       Format = "json"
	FormatCSV        Format = "csv"
	FormatYAML       Format = "yaml"
	FormatXML        Format = "xml"
	FormatSQLite     Format = "sqlite"
	FormatPostgreSQL Format = "postgres"
	FormatMySQL      Format = "mysql"
	FormatMongoDB    Format = "mongodb"
	FormatExcel      Format = "excel"
)

// ValidFormats returns all valid report format values
func ValidFormats() []Format {
	return []Format{
		FormatJSON, FormatCSV, FormatYAML, FormatXML,
		FormatSQLite, FormatPostgreSQL, FormatMySQL, FormatMongoDB, FormatExcel,
	}
}

// IsValid checks if the report format is valid
func (f Format) IsValid() bool {
	for _, valid := range ValidFormats() {
		if f == valid {
			return true
		}
	}
	return false
}

// GetFileExtension returns the appropriate file extension for the format
func (f Format) GetFileExtension() string {
	switch f {
	case FormatJSON:
		return ".json"
	case FormatCSV:
		return ".csv"
	case FormatYAML:
		return ".yaml"
	case FormatXML:
		return ".xml"
	case FormatSQLite:
		return ".db"
	case FormatExcel:
		return ".xlsx"
	default:
		return ".txt"
	}
}

// ConflictStrategy represents database conflict resolution strategies
type ConflictStrategy string

const (
	ConflictIgnore  ConflictStrategy = "ignore"  // Skip conflicting rows
	ConflictError   ConflictStrategy = "error"   // Fail on conflicts (default INSERT behavior)
	ConflictReplace ConflictStrategy = "replace" // Replace the existing row
)

// ValidConflictStrategies returns all valid conflict strategy values
func ValidConflictStrategies() []ConflictStrategy {
	return []ConflictStrategy{ConflictIgnore, ConflictError, ConflictReplace}
}

// IsValidConflictStrategy checks if a conflict strategy is valid
func IsValidConflictStrategy(strategy ConflictStrategy) bool {
	for _, valid := range ValidConflictStrategies() {
		if strategy == valid {
			return true
		}
	}
	return false
}

// SQL identifier validation
var (
	// SQL identifier regex: starts with letter or underscore, contains letters, digits, underscores
	sqlIdentifierRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

	// Reserved SQL keywords for PostgreSQL (from https://www.postgresql.org/docs/current/sql-keywords-appendix.html)
	postgresReservedWords = map[string]bool{
		"ALL": true, "ANALYSE": true, "ANALYZE": true, "AND": true, "ANY": true, "ARRAY": true, "AS": true, "ASC": true,
		"ASYMMETRIC": true, "AUTHORIZATION": true, "BINARY": true, "BOTH": true, "CASE": true, "CAST": true, "CHECK": true,
		"COLLATE": true, "COLLATION": true, "COLUMN": true, "CONCURRENTLY": true, "CONSTRAINT": true, "CREATE": true,
		"CROSS": true, "CURRENT_CATALOG": true, "CURRENT_DATE": true, "CURRENT_ROLE": true, "CURRENT_SCHEMA": true,
		"CURRENT_TIME": true, "CURRENT_TIMESTAMP": true, "CURRENT_USER": true, "DEFAULT": true, "DEFERRABLE": true,
		"DESC": true, "DISTINCT": true, "DO": true, "ELSE": true, "END": true, "EXCEPT": true, "FALSE": true, "FETCH": true,
		"FOR": true, "FOREIGN": true, "FREEZE": true, "FROM": true, "FULL": true, "GRANT": true, "GROUP": true, "HAVING": true,
		"ILIKE": true, "IN": true, "INITIALLY": true, "INNER": true, "INTERSECT": true, "INTO": true, "IS": true, "ISNULL": true,
		"JOIN": true, "LATERAL": true, "LEADING": true, "LEFT": true, "LIKE": true, "LIMIT": true, "LOCALTIME": true,
		"LOCALTIMESTAMP": true, "NATURAL": true, "NOT": true, "NOTNULL": true, "NULL": true, "OFFSET": true, "ON": true,
		"ONLY": true, "OR": true, "ORDER": true, "OUTER": true, "OVERLAPS": true, "PLACING": true, "PRIMARY": true,
		"REFERENCES": true, "RETURNING": true, "RIGHT": true, "SELECT": true, "SESSION_USER": true, "SIMILAR": true,
		"SOME": true, "SYMMETRIC": true, "TABLE": true, "TABLESAMPLE": true, "THEN": true, "TO": true, "TRAILING": true,
		"TRUE": true, "UNION": true, "UNIQUE": true, "USER": true, "USING": true, "VARIADIC": true, "VERBOSE": true,
		"WHEN": true, "WHERE": true, "WINDOW": true, "WITH": true,
	}

	// Reserved SQL keywords for SQLite (from https://www.sqlite.org/lang_keywords.html)
	sqliteReservedWords = map[string]bool{
		"ABORT": true, "ACTION": true, "ADD": true, "AFTER": true, "ALL": true, "ALTER": true, "ANALYZE": true, "AND": true,
		"AS": true, "ASC": true, "ATTACH": true, "AUTOINCREMENT": true, "BEFORE": true, "BEGIN": true, "BETWEEN": true,
		"BY": true, "CASCADE": true, "CASE": true, "CAST": true, "CHECK": true, "COLLATE": true, "COLUMN": true,
		"COMMIT": true, "CONFLICT": true, "CONSTRAINT": true, "CREATE": true, "CROSS": true, "CURRENT": true,
		"CURRENT_DATE": true, "CURRENT_TIME": true, "CURRENT_TIMESTAMP": true, "DATABASE": true, "DEFAULT": true,
		"DEFERRABLE": true, "DEFERRED": true, "DELETE": true, "DESC": true, "DETACH": true, "DISTINCT": true,
		"DROP": true, "EACH": true, "ELSE": true, "END": true, "ESCAPE": true, "EXCEPT": true, "EXCLUSIVE": true,
		"EXISTS": true, "EXPLAIN": true, "FAIL": true, "FOR": true, "FOREIGN": true, "FROM": true, "FULL": true,
		"GLOB": true, "GROUP": true, "HAVING": true, "IF": true, "IGNORE": true, "IMMEDIATE": true, "IN": true,
		"INDEX": true, "INDEXED": true, "INITIALLY": true, "INNER": true, "INSERT": true, "INSTEAD": true, "INTERSECT": true,
		"INTO": true, "IS": true, "ISNULL": true, "JOIN": true, "KEY": true, "LEFT": true, "LIKE": true, "LIMIT": true,
		"MATCH": true, "NATURAL": true, "NO": true, "NOT": true, "NOTNULL": true, "NULL": true, "OF": true, "OFFSET": true,
		"ON": true, "OR": true, "ORDER": true, "OUTER": true, "PLAN": true, "PRAGMA": true, "PRIMARY": true, "QUERY": true,
		"RAISE": true, "RECURSIVE": true, "REFERENCES": true, "REGEXP": true, "REINDEX": true, "RELEASE": true,
		"RENAME": true, "REPLACE": true, "RESTRICT": true, "RIGHT": true, "ROLLBACK": true, "ROW": true, "SAVEPOINT": true,
		"SELECT": true, "SET": true, "TABLE": true, "TEMP": true, "TEMPORARY": true, "THEN": true, "TO": true, "TRANSACTION": true,
		"TRIGGER": true, "UNION": true, "UNIQUE": true, "UPDATE": true, "USING": true, "VACUUM": true, "VALUES": true,
		"VIEW": true, "VIRTUAL": true, "WHEN": true, "WHERE": true, "WITH": true, "WITHOUT": true,
	}

	// Reserved SQL keywords for MySQL (the subset likely to collide with
	// user-chosen table names, from https://dev.mysql.com/doc/refman/8.0/en/keywords.html)
	mysqlReservedWords = map[string]bool{
		"ADD": true, "ALL": true, "ALTER": true, "AND": true, "AS": true, "ASC": true, "BEFORE": true, "BETWEEN": true,
		"BY": true, "CASE": true, "CHANGE": true, "CHECK": true, "COLUMN": true, "CONDITION": true, "CONSTRAINT": true,
		"CREATE": true, "CROSS": true, "CURRENT_DATE": true, "CURRENT_TIME": true, "CURRENT_TIMESTAMP": true,
		"DATABASE": true, "DEFAULT": true, "DELETE": true, "DESC": true, "DESCRIBE": true, "DISTINCT": true, "DROP": true,
		"EACH": true, "ELSE": true, "EXISTS": true, "EXPLAIN": true, "FALSE": true, "FOR": true, "FOREIGN": true,
		"FROM": true, "FULLTEXT": true, "GROUP": true, "HAVING": true, "IF": true, "IGNORE": true, "IN": true,
		"INDEX": true, "INNER": true, "INSERT": true, "INTERVAL": true, "INTO": true, "IS": true, "JOIN": true,
		"KEY": true, "LEFT": true, "LIKE": true, "LIMIT": true, "LOCK": true, "MATCH": true, "NATURAL": true,
		"NOT": true, "NULL": true, "ON": true, "OR": true, "ORDER": true, "OUTER": true, "PRIMARY": true, "RANGE": true,
		"REFERENCES": true, "REGEXP": true, "RENAME": true, "REPLACE": true, "RESTRICT": true, "RIGHT": true,
		"SELECT": true, "SET": true, "SHOW": true, "TABLE": true, "THEN": true, "TO": true, "TRIGGER": true, "TRUE": true,
		"UNION": true, "UNIQUE": true, "UPDATE": true, "USING": true, "VALUES": true, "WHEN": true, "WHERE": true,
		"WITH": true,
	}
)

// Database-specific limits
const (
	MaxPostgreSQLIdentifierLength = 63  // PostgreSQL maximum identifier length
	MaxSQLiteIdentifierLength     = 999 // SQLite maximum identifier length
	MaxMySQLIdentifierLength      = 64  // MySQL maximum identifier length
)

// ValidateSQLIdentifier validates that a string is a safe SQL identifier
// using PostgreSQL limits, the most restrictive of the supported
// dialects.
func ValidateSQLIdentifier(identifier string) error {
	return ValidatePostgreSQLIdentifier(identifier)
}

// ValidatePostgreSQLIdentifier validates PostgreSQL-specific identifier constraints
func ValidatePostgreSQLIdentifier(identifier string) error {
	return validateIdentifier(identifier, MaxPostgreSQLIdentifierLength, postgresReservedWords)
}

// ValidateSQLiteIdentifier validates SQLite-specific identifier constraints
func ValidateSQLiteIdentifier(identifier string) error {
	return validateIdentifier(identifier, MaxSQLiteIdentifierLength, sqliteReservedWords)
}

// ValidateMySQLIdentifier validates MySQL-specific identifier constraints
func ValidateMySQLIdentifier(identifier string) error {
	return validateIdentifier(identifier, MaxMySQLIdentifierLength, mysqlReservedWords)
}

func validateIdentifier(identifier string, maxLength int, reserved map[string]bool) error {
	if identifier == "" {
		return fmt.Errorf("identifier cannot be empty")
	}

	if len(identifier) > maxLength {
		return fmt.Errorf("identifier too long (max %d characters): %s", maxLength, identifier)
	}

	if !sqlIdentifierRegex.MatchString(identifier) {
		return fmt.Errorf("invalid identifier format: %s", identifier)
	}

	if reserved[strings.ToUpper(identifier)] {
		return fmt.Errorf("identifier is a reserved SQL keyword: %s", identifier)
	}

	return nil
}
