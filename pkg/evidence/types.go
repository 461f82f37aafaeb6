package evidence

import (
	"context"
	"io"
	"time"
)

// EvidenceRecord is the audit trail of one completion request: who asked for
// which model, which deployments were tried and how the request ended.
type EvidenceRecord struct {
	// Identity
	ID        string `json:"id"`         // UUID v4
	RequestID string `json:"request_id"` // X-Request-ID

	// Timestamps
	RequestTime  time.Time `json:"request_time"`  // When the gateway accepted the request
	RecordedTime time.Time `json:"recorded_time"` // When the record was built

	// Request
	Operation  string `json:"operation"`   // chat/completions or completions
	Model      string `json:"model"`       // Model name the client asked for
	ModelGroup string `json:"model_group"` // Resolved group, empty when unrouted
	Stream     bool   `json:"stream"`
	KeyAlias   string `json:"key_alias"` // Never the key itself

	// Outcome
	Deployment       string          `json:"deployment"` // Deployment that produced the response
	Status           int             `json:"status"`     // HTTP status sent to the client
	Attempts         []AttemptRecord `json:"attempts"`
	UpstreamAttempts int             `json:"upstream_attempts"` // Attempts that reached an upstream
	Latency          time.Duration   `json:"latency"`

	// Error info
	Error     string `json:"error,omitempty"`
	ErrorType string `json:"error_type,omitempty"` // Error code sent to the client
}

// AttemptRecord is one entry of the attempt history.
type AttemptRecord struct {
	Deployment string  `json:"deployment"`
	Result     string  `json:"result"` // rejected, success, failure, cancelled, client_error
	Status     int     `json:"status,omitempty"`
	LatencyMS  float64 `json:"latency_ms"`
	Error      string  `json:"error,omitempty"`
}

// Query defines filter parameters for querying evidence records.
type Query struct {
	// Time range
	StartTime *time.Time `json:"start_time,omitempty"` // Inclusive start time
	EndTime   *time.Time `json:"end_time,omitempty"`   // Exclusive end time

	// Filters
	RequestID  string `json:"request_id,omitempty"`
	Model      string `json:"model,omitempty"`
	ModelGroup string `json:"model_group,omitempty"`
	KeyAlias   string `json:"key_alias,omitempty"`
	Deployment string `json:"deployment,omitempty"`

	// Status is "success" (no error) or "error".
	Status string `json:"status,omitempty"`

	// Pagination
	Limit  int `json:"limit,omitempty"`  // Max records to return
	Offset int `json:"offset,omitempty"` // Skip N records

	// Sorting
	SortBy    string `json:"sort_by,omitempty"`    // request_time, latency or status
	SortOrder string `json:"sort_order,omitempty"` // asc or desc
}

// Storage defines the interface for evidence storage backends.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Store persists an evidence record.
	Store(ctx context.Context, record *EvidenceRecord) error

	// Query retrieves evidence records matching the query filters.
	// Returns an empty slice if no records match.
	Query(ctx context.Context, query *Query) ([]*EvidenceRecord, error)

	// Count returns the number of evidence records matching the query filters.
	Count(ctx context.Context, query *Query) (int64, error)

	// Delete removes evidence records matching the query filters and
	// returns the number of records deleted. Used by retention pruning.
	Delete(ctx context.Context, query *Query) (int64, error)

	// PingContext reports whether the backend is reachable.
	PingContext(ctx context.Context) error

	// Close releases any resources held by the storage backend.
	Close() error
}

// Exporter defines the interface for exporting evidence records to various formats.
type Exporter interface {
	// Export writes evidence records to the provided writer in the exporter's format.
	Export(ctx context.Context, records []*EvidenceRecord, w io.Writer) error
}
