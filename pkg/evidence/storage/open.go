package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/lib/pq"           // postgres://
	_ "github.com/mattn/go-sqlite3" // sqlite3://
	_ "modernc.org/sqlite"          // sqlite:// and bare paths

	"github.com/igamenovoer/my-litellm-proxy/pkg/evidence"
)

// BusyTimeout is how long an embedded database waits on a locked file.
const BusyTimeout = 5 * time.Second

// Options tune Open.
type Options struct {
	// ConnectTimeout bounds the connection retries. Zero tries once.
	ConnectTimeout time.Duration

	Logger *slog.Logger
}

// Target is a parsed database URL.
type Target struct {
	Dialect Dialect
	DSN     string
	Memory  bool
}

// ParseDatabaseURL maps a database URL onto a driver and DSN:
//
//	memory://                     in-process, not persisted
//	sqlite://path, path           modernc.org/sqlite
//	sqlite3://path                github.com/mattn/go-sqlite3
//	postgres://..., postgresql:// github.com/lib/pq
func ParseDatabaseURL(raw string) (Target, error) {
	raw = strings.TrimSpace(raw)
	scheme, rest, hasScheme := strings.Cut(raw, "://")

	switch {
	case raw == "":
		return Target{}, fmt.Errorf("%w: empty database url", evidence.ErrUnsupportedDatabase)
	case !hasScheme:
		return Target{Dialect: SQLite, DSN: sqliteDSN(raw)}, nil
	}

	switch strings.ToLower(scheme) {
	case "memory":
		return Target{Memory: true}, nil
	case "sqlite":
		if rest == "" {
			return Target{}, fmt.Errorf("%w: sqlite url has no path", evidence.ErrUnsupportedDatabase)
		}
		return Target{Dialect: SQLite, DSN: sqliteDSN(rest)}, nil
	case "sqlite3":
		if rest == "" {
			return Target{}, fmt.Errorf("%w: sqlite3 url has no path", evidence.ErrUnsupportedDatabase)
		}
		return Target{Dialect: SQLite3, DSN: sqlite3DSN(rest)}, nil
	case "postgres", "postgresql":
		return Target{Dialect: Postgres, DSN: raw}, nil
	default:
		return Target{}, fmt.Errorf("%w: scheme %q", evidence.ErrUnsupportedDatabase, scheme)
	}
}

func sqliteDSN(path string) string {
	return appendParams(path, fmt.Sprintf("_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)", BusyTimeout.Milliseconds()))
}

func sqlite3DSN(path string) string {
	return appendParams(path, fmt.Sprintf("_journal_mode=WAL&_busy_timeout=%d", BusyTimeout.Milliseconds()))
}

func appendParams(path, params string) string {
	if strings.Contains(path, "?") {
		return path + "&" + params
	}
	return path + "?" + params
}

// Open connects to the audit database named by databaseURL, retrying with
// exponential backoff until opts.ConnectTimeout elapses, and creates the
// schema.
func Open(ctx context.Context, databaseURL string, opts Options) (evidence.Storage, error) {
	target, err := ParseDatabaseURL(databaseURL)
	if err != nil {
		return nil, err
	}
	if target.Memory {
		return NewMemoryStorage(), nil
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open(target.Dialect.Driver, target.DSN)
	if err != nil {
		return nil, evidence.NewStorageError(target.Dialect.Name, "open", err)
	}
	if target.Dialect.embedded() {
		// One writer per file; the pool would only queue on the lock.
		db.SetMaxOpenConns(1)
	}

	if err := connect(ctx, db, opts.ConnectTimeout, logger); err != nil {
		db.Close()
		return nil, evidence.NewStorageError(target.Dialect.Name, "connect", err)
	}

	s, err := New(ctx, db, target.Dialect, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("evidence storage opened",
		"backend", target.Dialect.Name,
		"database", redactURL(databaseURL),
	)
	return s, nil
}

func connect(ctx context.Context, db *sql.DB, timeout time.Duration, logger *slog.Logger) error {
	if timeout <= 0 {
		return db.PingContext(ctx)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = timeout

	return backoff.RetryNotify(
		func() error { return db.PingContext(ctx) },
		backoff.WithContext(b, ctx),
		func(err error, wait time.Duration) {
			logger.Warn("audit database not reachable, retrying",
				"error", err,
				"retry_in", wait,
			)
		},
	)
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	return u.Redacted()
}
