// Package storage provides the audit log backends.
//
// Open picks a backend from a database URL:
//
//	memory://                   MemoryStorage, for tests and throwaway runs
//	sqlite://path or a bare path  modernc.org/sqlite, pure Go, the default
//	sqlite3://path              github.com/mattn/go-sqlite3, needs cgo
//	postgres://...              github.com/lib/pq
//
// The SQL backends share one implementation, SQLStorage. Embedded databases
// run in WAL mode with a busy timeout and a single connection. The initial
// connection is retried with exponential backoff for Options.ConnectTimeout
// so the gateway can start before its database.
//
//	store, err := storage.Open(ctx, cfg.Audit.DatabaseURL, storage.Options{
//	    ConnectTimeout: cfg.Audit.ConnectTimeout,
//	    Logger:         logger,
//	})
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
package storage
