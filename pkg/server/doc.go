// Package server wires the gateway handlers behind a chi router and owns
// the HTTP listener lifecycle.
//
// Routes:
//
//	POST /v1/chat/completions, /chat/completions   chat completions (authenticated)
//	POST /v1/completions, /completions             text completions (authenticated)
//	GET  /v1/models, /models                       model list (authenticated)
//	GET  /health                                   liveness
//	GET  /health/deployments                       breaker state per deployment
//	GET  /health/readiness                         readiness checks, when configured
//	GET  /version                                  build information, when configured
//	GET  /metrics                                  Prometheus metrics, when enabled
//
// Start blocks until its context is cancelled and then drains in-flight
// requests for up to server.shutdown_timeout:
//
//	srv := server.NewServer(&cfg.Server, server.Deps{...})
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
//	defer stop()
//	if err := srv.Start(ctx); err != nil {
//	    return err
//	}
//
// TLS is expected to be terminated in front of the gateway.
package server
