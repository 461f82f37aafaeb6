// Package recorder turns finished gateway requests into evidence records.
//
// Recorder is registered as a request observer on the completion handlers.
// For each request it captures the request id, the model asked for and the
// group it resolved to, the key alias, the attempt history, the final
// status and the error code the client saw. Error messages are passed
// through the configured redactor and truncated before they are stored.
//
// Records are queued on a buffered channel and written by one background
// worker. Recording never blocks a request: when the queue is full the
// record is dropped and Dropped is incremented.
//
//	rec := recorder.NewRecorder(store, &recorder.Config{
//	    AsyncBuffer:  cfg.Audit.BufferSize,
//	    WriteTimeout: cfg.Audit.WriteTimeout,
//	    Redact:       redactor.RedactString,
//	    Logger:       logger,
//	})
//	defer rec.Close()
package recorder
