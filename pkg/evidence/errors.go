package evidence

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedDatabase is returned for a database URL whose scheme has
	// no storage backend.
	ErrUnsupportedDatabase = errors.New("unsupported audit database")

	ErrRecorderClosed = errors.New("recorder closed")

	// ErrBufferFull means the write queue was full and the record dropped.
	ErrBufferFull = errors.New("audit buffer full")
)

// StorageError wraps a failure of a storage backend (sqlite, sqlite3 or
// postgres) during one operation such as store, query or migrate.
type StorageError struct {
	Backend   string
	Operation string
	Cause     error
}

func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{Backend: backend, Operation: operation, Cause: cause}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("audit %s %s: %v", e.Backend, e.Operation, e.Cause)
}

func (e *StorageError) Unwrap() error { return e.Cause }

// QueryError is a rejected or failed audit query.
type QueryError struct {
	Query *Query
	Cause error
}

func NewQueryError(q *Query, cause error) *QueryError {
	return &QueryError{Query: q, Cause: cause}
}

func (e *QueryError) Error() string { return "invalid audit query: " + e.Cause.Error() }

func (e *QueryError) Unwrap() error { return e.Cause }

// RecorderError is returned when a record cannot be queued.
type RecorderError struct {
	RecordID string
	Cause    error
}

func NewRecorderError(recordID string, cause error) *RecorderError {
	return &RecorderError{RecordID: recordID, Cause: cause}
}

func (e *RecorderError) Error() string {
	if e.RecordID == "" {
		return "audit record not queued: " + e.Cause.Error()
	}
	return fmt.Sprintf("audit record %s not queued: %v", e.RecordID, e.Cause)
}

func (e *RecorderError) Unwrap() error { return e.Cause }

// RetentionError is a failed prune.
type RetentionError struct {
	RetentionDays int
	Cause         error
}

func NewRetentionError(days int, cause error) *RetentionError {
	return &RetentionError{RetentionDays: days, Cause: cause}
}

func (e *RetentionError) Error() string {
	return fmt.Sprintf("pruning records older than %d days: %v", e.RetentionDays, e.Cause)
}

func (e *RetentionError) Unwrap() error { return e.Cause }

// ExportError is a failed export of RecordCount records as Format.
type ExportError struct {
	Format      string
	RecordCount int
	Cause       error
}

func NewExportError(format string, count int, cause error) *ExportError {
	return &ExportError{Format: format, RecordCount: count, Cause: cause}
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("exporting %d records as %s: %v", e.RecordCount, e.Format, e.Cause)
}

func (e *ExportError) Unwrap() error { return e.Cause }
