// internal/report/database_test.go
package report

import (
	"strings"
	"testing"
)

func TestValidatePostgreSQLIdentifier(t *testing.T) {
	tests := []struct {
		name        string
		identifier  string
		expectError bool
	}{
		{"valid identifier", "check_results", false},
		{"valid with numbers", "checks2024", false},
		{"starts with underscore", "_private", false},
		{"mixed case", "CheckResults", false},
		{"empty string", "", true},
		{"starts with number", "1checks", true},
		{"contains space", "check results", true},
		{"contains hyphen", "check-results", true},
		{"reserved word", "select", true},
		{"reserved word case", "SELECT", true},
		{"too long", "a" + strings.Repeat("b", 63), true},
		{"max length", "a" + strings.Repeat("b", 61), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePostgreSQLIdentifier(tt.identifier)
			if tt.expectError && err == nil {
				t.Error("expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateSQLiteIdentifier(t *testing.T) {
	tests := []struct {
		name        string
		identifier  string
		expectError bool
	}{
		{"valid identifier", "check_results", false},
		{"valid with numbers", "checks2024", false},
		{"starts with underscore", "_private", false},
		{"empty string", "", true},
		{"starts with number", "1checks", true},
		{"contains space", "check results", true},
		{"reserved word", "table", true},
		{"reserved word case", "TABLE", true},
		{"too long", "a" + strings.Repeat("b", 999), true},
		{"long but allowed", "a" + strings.Repeat("b", 997), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSQLiteIdentifier(tt.identifier)
			if tt.expectError && err == nil {
				t.Error("expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateMySQLIdentifier(t *testing.T) {
	tests := []struct {
		name        string
		identifier  string
		expectError bool
	}{
		{"valid identifier", "check_results", false},
		{"valid with numbers", "checks2024", false},
		{"empty string", "", true},
		{"starts with number", "1checks", true},
		{"contains backtick", "check`s", true},
		{"reserved word", "insert", true},
		{"reserved word case", "INSERT", true},
		{"too long", "a" + strings.Repeat("b", 64), true},
		{"max length", "a" + strings.Repeat("b", 62), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMySQLIdentifier(tt.identifier)
			if tt.expectError && err == nil {
				t.Error("expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateSQLIdentifierUsesStrictestLimits(t *testing.T) {
	// 64 characters passes SQLite and MySQL would reject, PostgreSQL
	// limit is the binding one.
	long := "a" + strings.Repeat("b", 63)
	if err := ValidateSQLIdentifier(long); err == nil {
		t.Error("expected error for identifier above the PostgreSQL limit")
	}
	if err := ValidateSQLIdentifier("check_results"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSQLiteInsertQueryConflictStrategies(t *testing.T) {
	tests := []struct {
		strategy ConflictStrategy
		want     string
	}{
		{ConflictIgnore, "INSERT OR IGNORE INTO"},
		{ConflictReplace, "INSERT OR REPLACE INTO"},
		{ConflictError, "INSERT INTO"},
	}

	for _, tt := range tests {
		query := sqliteInsertQuery("checks", tt.strategy)
		if !strings.HasPrefix(query, tt.want) {
			t.Errorf("strategy %q: query %q does not start with %q", tt.strategy, query, tt.want)
		}
		if !strings.Contains(query, "[check_name]") {
			t.Errorf("strategy %q: query %q missing check_name column", tt.strategy, query)
		}
	}
}

func TestNewSQLiteWriterRejectsBadOptions(t *testing.T) {
	if _, err := NewSQLiteWriter(SQLiteOptions{}); err == nil {
		t.Error("expected error for missing path")
	}
	if _, err := NewSQLiteWriter(SQLiteOptions{Path: "x.db", Table: "select"}); err == nil {
		t.Error("expected error for reserved table name")
	}
}

func TestNewPostgreSQLWriterRejectsBadOptions(t *testing.T) {
	if _, err := NewPostgreSQLWriter(PostgreSQLOptions{}); err == nil {
		t.Error("expected error for missing connection string")
	}
	if _, err := NewPostgreSQLWriter(PostgreSQLOptions{DSN: "postgres://localhost/x", Table: "select"}); err == nil {
		t.Error("expected error for reserved table name")
	}
}

func TestNewMySQLWriterRejectsBadOptions(t *testing.T) {
	if _, err := NewMySQLWriter(MySQLOptions{}); err == nil {
		t.Error("expected error for missing connection string")
	}
	if _, err := NewMySQLWriter(MySQLOptions{DSN: "root@/checks", Table: "insert"}); err == nil {
		t.Error("expected error for reserved table name")
	}
}

func TestNewMongoDBWriterRejectsBadOptions(t *testing.T) {
	if _, err := NewMongoDBWriter(MongoDBOptions{}); err == nil {
		t.Error("expected error for missing connection string")
	}
	if _, err := NewMongoDBWriter(MongoDBOptions{URI: "mongodb://localhost"}); err == nil {
		t.Error("expected error for missing database name")
	}
	if _, err := NewMongoDBWriter(MongoDBOptions{
		URI:        "mongodb://localhost",
		Database:   "reports",
		OnConflict: ConflictReplace,
	}); err == nil {
		t.Error("expected error for unsupported conflict strategy")
	}
}

func TestMySQLDSNParameters(t *testing.T) {
	tests := []struct {
		name string
		dsn  string
		want string
	}{
		{"bare dsn", "root@/checks", "root@/checks?parseTime=true&loc=UTC"},
		{"existing params", "root@/checks?charset=utf8", "root@/checks?charset=utf8&parseTime=true&loc=UTC"},
		{"already configured", "root@/checks?parseTime=true&loc=Local", "root@/checks?parseTime=true&loc=Local"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mysqlDSN(tt.dsn); got != tt.want {
				t.Errorf("mysqlDSN(%q) = %q, want %q", tt.dsn, got, tt.want)
			}
		})
	}
}
