// Package metrics exposes gateway metrics in the Prometheus format.
//
// A single Collector is registered in three places: as a request observer
// on the completion handlers, as an attempt observer on the dispatcher and
// as a state listener on the health tracker. In-flight counts and breaker
// states are read from the tracker at scrape time.
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	tracker := health.NewTracker(settings, health.WithStateListener(collector.StateChanged))
//	collector.WatchHealth(tracker)
//	d := dispatch.New(pm, tracker, ds, dispatch.WithObserver(collector))
package metrics
