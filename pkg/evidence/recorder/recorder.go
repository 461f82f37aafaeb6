package recorder

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/igamenovoer/my-litellm-proxy/pkg/dispatch"
	"github.com/igamenovoer/my-litellm-proxy/pkg/evidence"
	"github.com/igamenovoer/my-litellm-proxy/pkg/proxy"
	"github.com/igamenovoer/my-litellm-proxy/pkg/proxy/middleware"
	"github.com/igamenovoer/my-litellm-proxy/pkg/security/auth"
)

// Config contains configuration for the evidence recorder.
type Config struct {
	// AsyncBuffer is the size of the async write channel buffer.
	// Default: 1000
	AsyncBuffer int

	// WriteTimeout is the timeout for writing one record to storage.
	// Default: 5 seconds
	WriteTimeout time.Duration

	// MaxFieldLength caps error messages before they are stored.
	// Default: 500
	MaxFieldLength int

	// Redact scrubs credentials from error messages. Optional.
	Redact func(string) string

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() *Config {
	return &Config{
		AsyncBuffer:    1000,
		WriteTimeout:   5 * time.Second,
		MaxFieldLength: 500,
	}
}

// Recorder writes one evidence record per completion request. It implements
// handlers.RequestObserver: records are built on the request goroutine and
// written by a background worker, so a slow database never delays a client.
// When the queue is full the record is dropped and counted.
type Recorder struct {
	storage    evidence.Storage
	config     Config
	recordChan chan *evidence.EvidenceRecord
	wg         sync.WaitGroup
	logger     *slog.Logger
	now        func() time.Time

	mu     sync.RWMutex
	closed bool

	written atomic.Int64
	dropped atomic.Int64
	failed  atomic.Int64
}

// NewRecorder creates a recorder and starts its worker.
func NewRecorder(storage evidence.Storage, config *Config) *Recorder {
	cfg := *DefaultConfig()
	if config != nil {
		cfg = *config
		if cfg.AsyncBuffer <= 0 {
			cfg.AsyncBuffer = DefaultConfig().AsyncBuffer
		}
		if cfg.WriteTimeout <= 0 {
			cfg.WriteTimeout = DefaultConfig().WriteTimeout
		}
		if cfg.MaxFieldLength <= 0 {
			cfg.MaxFieldLength = DefaultConfig().MaxFieldLength
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := &Recorder{
		storage:    storage,
		config:     cfg,
		recordChan: make(chan *evidence.EvidenceRecord, cfg.AsyncBuffer),
		logger:     logger.With("component", "evidence.recorder"),
		now:        time.Now,
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Info("evidence recorder initialized",
		"async_buffer", cfg.AsyncBuffer,
		"write_timeout", cfg.WriteTimeout,
	)
	return r
}

// ObserveRequest builds the record for a finished request and queues it.
func (r *Recorder) ObserveRequest(ctx context.Context, rc *dispatch.RequestContext, status int, err error) {
	record := r.buildRecord(ctx, rc, status, err)
	if qerr := r.Record(record); qerr != nil {
		r.logger.Warn("dropping evidence record",
			"request_id", record.RequestID,
			"error", qerr,
		)
	}
}

// Record queues a record for writing. It never blocks.
func (r *Recorder) Record(record *evidence.EvidenceRecord) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.dropped.Add(1)
		return evidence.NewRecorderError(record.ID, evidence.ErrRecorderClosed)
	}

	select {
	case r.recordChan <- record:
		return nil
	default:
		r.dropped.Add(1)
		return evidence.NewRecorderError(record.ID, evidence.ErrBufferFull)
	}
}

// Written is the number of records stored so far.
func (r *Recorder) Written() int64 { return r.written.Load() }

// Dropped is the number of records lost to a full queue or a closed recorder.
func (r *Recorder) Dropped() int64 { return r.dropped.Load() }

// Failed is the number of records the storage backend refused.
func (r *Recorder) Failed() int64 { return r.failed.Load() }

// Close stops accepting records, drains the queue and waits for the worker.
// It does not close the storage backend.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.recordChan)
	r.mu.Unlock()

	r.logger.Info("draining evidence queue", "pending_count", len(r.recordChan))
	r.wg.Wait()
	r.logger.Info("evidence recorder shut down",
		"written", r.Written(),
		"dropped", r.Dropped(),
		"failed", r.Failed(),
	)
	return nil
}

func (r *Recorder) worker() {
	defer r.wg.Done()
	for record := range r.recordChan {
		r.writeRecord(record)
	}
}

func (r *Recorder) writeRecord(record *evidence.EvidenceRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	start := time.Now()
	if err := r.storage.Store(ctx, record); err != nil {
		r.failed.Add(1)
		r.logger.Error("failed to store evidence record",
			"record_id", record.ID,
			"request_id", record.RequestID,
			"error", err,
		)
		return
	}
	r.written.Add(1)

	r.logger.Debug("evidence recorded",
		"record_id", record.ID,
		"request_id", record.RequestID,
		"duration", time.Since(start),
	)
}

func (r *Recorder) buildRecord(ctx context.Context, rc *dispatch.RequestContext, status int, err error) *evidence.EvidenceRecord {
	now := r.now()
	record := &evidence.EvidenceRecord{
		ID:           uuid.NewString(),
		RecordedTime: now.UTC(),
		Status:       status,
		Attempts:     []evidence.AttemptRecord{},
	}

	if rc != nil {
		record.RequestID = rc.ID
		record.RequestTime = rc.Started
		record.Operation = string(rc.Operation)
		record.Model = rc.Model
		if rc.Group != nil {
			record.ModelGroup = rc.Group.Name
		}
		record.Stream = rc.Stream
		record.KeyAlias = rc.KeyAlias

		attempts := rc.Attempts()
		for _, a := range attempts {
			ar := evidence.AttemptRecord{
				Deployment: a.DeploymentID,
				Result:     a.Result(),
				Status:     a.StatusCode,
				LatencyMS:  float64(a.Latency) / float64(time.Millisecond),
			}
			if a.Err != nil {
				ar.Error = r.scrub(a.Err.Error())
			}
			record.Attempts = append(record.Attempts, ar)
			if ar.Result == "success" {
				record.Deployment = a.DeploymentID
			}
		}
		record.UpstreamAttempts = rc.UpstreamAttempts()
	} else {
		// refused before routing
		record.RequestID = middleware.GetRequestID(ctx)
		record.RequestTime = middleware.GetStartTime(ctx)
		if info, ok := auth.GetKeyInfo(ctx); ok {
			record.KeyAlias = info.Alias
		}
	}

	if record.RequestTime.IsZero() {
		record.RequestTime = now
	}
	record.RequestTime = record.RequestTime.UTC()
	record.Latency = now.Sub(record.RequestTime)

	if err != nil {
		record.Error = r.scrub(err.Error())
		record.ErrorType = errorType(err)
	}
	return record
}

func (r *Recorder) scrub(s string) string {
	if r.config.Redact != nil {
		s = r.config.Redact(s)
	}
	return TruncateString(s, r.config.MaxFieldLength)
}

// errorType is the error code the client saw.
func errorType(err error) string {
	var nr *dispatch.NonRetryableError
	if errors.As(err, &nr) {
		return "upstream_error"
	}
	_, resp := proxy.HandleError(err)
	if resp.Error.Code != "" {
		return resp.Error.Code
	}
	return resp.Error.Type
}

// TruncateString truncates s to maxLen bytes, ending it with "..." when cut.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
