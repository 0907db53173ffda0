// internal/report/manager.go

package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/valpere/PageXpect/internal/config"
	"github.com/valpere/PageXpect/internal/errors"
	"github.com/valpere/PageXpect/internal/utils"
)

// flushTimeout bounds one flush including its retries.
const flushTimeout = 2 * time.Minute

// defaultBufferSize batches records between sink writes.
const defaultBufferSize = 100

// Manager buffers records and delivers them to the configured sink
// through the recovery layer. It satisfies Writer, so callers do not
// care whether they talk to a sink directly or through a manager.
type Manager struct {
	mu      sync.Mutex
	writer  Writer
	breaker *errors.CircuitBreaker
	policy  errors.RetryPolicy
	log     utils.Logger
	buffer  []Record
	size    int
	written int64
	dropped int64
	closed  bool
}

// ManagerStats reports delivery counters.
type ManagerStats struct {
	Written  int64
	Dropped  int64
	Buffered int
	Breaker  map[string]interface{}
}

// NewManager creates the sink for cfg.Format and wraps it with
// buffering, retries and a circuit breaker.
func NewManager(cfg *config.ReportConfig, log utils.Logger) (*Manager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("report configuration is required")
	}
	if log == nil {
		log = utils.NewNopLogger()
	}

	writer, err := NewWriter(cfg)
	if err != nil {
		return nil, err
	}

	size := cfg.BufferSize
	if size <= 0 {
		size = defaultBufferSize
	}

	return &Manager{
		writer:  writer,
		breaker: errors.NewCircuitBreaker("report-sink", 5, 60*time.Second),
		policy:  retryPolicy(cfg.Retry),
		log:     log.WithField("component", "report"),
		buffer:  make([]Record, 0, size),
		size:    size,
	}, nil
}

// NewWriter creates the sink writer for the configured format.
func NewWriter(cfg *config.ReportConfig) (Writer, error) {
	format := Format(cfg.Format)
	conflict := ConflictStrategy(cfg.OnConflict)

	switch format {
	case FormatJSON:
		return NewJSONWriter(sinkPath(cfg))
	case FormatCSV:
		return NewCSVWriter(sinkPath(cfg))
	case FormatYAML:
		return NewYAMLWriter(sinkPath(cfg))
	case FormatXML:
		return NewXMLWriter(sinkPath(cfg))
	case FormatSQLite:
		path := cfg.Path
		if path == "" {
			path = cfg.DSN
		}
		return NewSQLiteWriter(SQLiteOptions{
			Path:       path,
			Table:      cfg.Table,
			OnConflict: conflict,
		})
	case FormatPostgreSQL:
		return NewPostgreSQLWriter(PostgreSQLOptions{
			DSN:        cfg.DSN,
			Table:      cfg.Table,
			OnConflict: conflict,
		})
	case FormatMySQL:
		return NewMySQLWriter(MySQLOptions{
			DSN:        cfg.DSN,
			Table:      cfg.Table,
			OnConflict: conflict,
		})
	case FormatMongoDB:
		return NewMongoDBWriter(MongoDBOptions{
			URI:        cfg.DSN,
			Database:   cfg.Database,
			Collection: cfg.Collection,
			OnConflict: conflict,
		})
	case FormatExcel:
		return NewExcelWriter(ExcelOptions{Path: sinkPath(cfg)})
	default:
		return nil, fmt.Errorf("unsupported report format: %s", cfg.Format)
	}
}

// sinkPath resolves the output path for the file sinks. An empty path
// or a path naming a directory gets a generated, timestamped file name.
func sinkPath(cfg *config.ReportConfig) string {
	path := cfg.Path
	isDir := strings.HasSuffix(path, "/") || strings.HasSuffix(path, string(os.PathSeparator))
	if !isDir && path != "" {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			isDir = true
		}
	}
	if path != "" && !isDir {
		return path
	}

	ext := strings.TrimPrefix(Format(cfg.Format).GetFileExtension(), ".")
	name := utils.GenerateReportFileName("report", ext)
	if path == "" {
		return name
	}
	return filepath.Join(path, name)
}

// retryPolicy maps the configured retry block onto the recovery
// layer's policy. Attempts counts the first try, MaxRetries does not.
func retryPolicy(cfg config.RetryConfig) errors.RetryPolicy {
	policy := errors.DefaultRetryPolicy()
	if cfg.Attempts > 0 {
		policy.MaxRetries = cfg.Attempts - 1
	}
	if cfg.Delay > 0 {
		policy.BaseDelay = cfg.Delay
	}
	if cfg.Backoff == "linear" {
		policy.BackoffFactor = 1.0
	}
	return policy
}

// Record buffers one record, flushing when the buffer is full.
func (m *Manager) Record(record Record) error {
	return m.Write([]Record{record})
}

// Write buffers records, flushing when the buffer is full. Records
// from a failed flush stay buffered for the next attempt.
func (m *Manager) Write(records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("writer is closed")
	}

	m.buffer = append(m.buffer, records...)
	if len(m.buffer) < m.size {
		return nil
	}
	return m.flushLocked()
}

// Flush delivers all buffered records to the sink.
func (m *Manager) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("writer is closed")
	}
	return m.flushLocked()
}

func (m *Manager) flushLocked() error {
	if len(m.buffer) == 0 {
		return nil
	}

	batch := m.buffer
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	err := m.breaker.Execute(ctx, func() error {
		return m.writer.Write(batch)
	}, m.policy)
	if err != nil {
		m.log.Warnf("report flush failed, %d records still buffered: %v", len(batch), err)
		return utils.WrapError(err, utils.ErrCodeReportFailed, "failed to flush report").
			WithContext("records", len(batch))
	}

	m.written += int64(len(batch))
	m.buffer = m.buffer[:0]
	m.log.Debugf("flushed %d records", len(batch))
	return nil
}

// Stats returns delivery counters and the breaker state.
func (m *Manager) Stats() ManagerStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	return ManagerStats{
		Written:  m.written,
		Dropped:  m.dropped,
		Buffered: len(m.buffer),
		Breaker:  m.breaker.GetStats(),
	}
}

// Close flushes remaining records and closes the sink. Records that
// still cannot be delivered are dropped and counted.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}

	flushErr := m.flushLocked()
	if flushErr != nil {
		m.dropped += int64(len(m.buffer))
		m.log.Errorf("dropping %d undelivered records: %v", len(m.buffer), flushErr)
		m.buffer = m.buffer[:0]
	}
	m.closed = true

	if err := m.writer.Close(); err != nil {
		return fmt.Errorf("failed to close report sink: %w", err)
	}
	if flushErr != nil {
		return flushErr
	}

	m.log.Infof("report sink closed, %d records written", m.written)
	return nil
}
