// Package evidence defines the audit log of gateway requests.
//
// Every completion request that reaches a handler produces one
// EvidenceRecord: the request id, the model asked for and the group it
// resolved to, the caller's key alias, each deployment attempt with its
// result, the final status and the error code returned to the client. Keys
// and request bodies are never recorded.
//
// The subpackages split the work:
//
//	recorder   builds records from finished requests and writes them asynchronously
//	storage    SQLite (modernc or mattn), PostgreSQL and in-memory backends
//	query      query validation and defaults
//	retention  cron-scheduled pruning with optional JSON archiving
//	export     JSON and CSV exporters
//
// Wiring, as done by "llmproxy run":
//
//	store, err := storage.Open(ctx, databaseURL, storage.Options{ConnectTimeout: 30 * time.Second})
//	if err != nil {
//	    return err
//	}
//	rec := recorder.NewRecorder(store, nil)
//	// pass rec as a handlers.RequestObserver
//	defer store.Close()
//	defer rec.Close()
package evidence
