// Package logging builds the process-wide slog logger.
//
// Records pass through a redacting ReplaceAttr hook: attributes whose key
// names a secret (api_key, authorization, master_key, token...) are
// replaced, and string values are scanned for API keys, bearer tokens,
// JWTs and URL credentials. Context fields such as the request id and the
// active trace are appended to every record logged with a context.
//
//	logger, err := logging.New(cfg.Telemetry.Logging, logging.Options{
//	    Fields: []logging.ContextField{
//	        logging.StringField("request_id", middleware.GetRequestID),
//	    },
//	})
//	slog.SetDefault(logger)
package logging
