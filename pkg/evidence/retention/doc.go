// Package retention deletes audit records older than the retention period.
//
// A Pruner computes the cutoff from RetentionDays and deletes every record
// whose request time is before it. With ArchiveDir set, the doomed records
// are first exported to a JSON file in that directory. The Scheduler runs
// the pruner on a cron expression via robfig/cron:
//
//	pruner := retention.NewPruner(store, retention.Config{
//	    RetentionDays: 30,
//	    PruneSchedule: "0 3 * * *", // daily at 3 AM
//	}, logger)
//	if err := pruner.Start(ctx); err != nil {
//	    return err
//	}
//	defer pruner.Stop()
//
// RetentionDays of 0 keeps records forever and Start does nothing.
package retention
