// Package maintenance runs periodic housekeeping jobs on a cron schedule.
//
// Two jobs exist:
//
//   - legacy vote sweep: rewrites votes still stored with a lowercase
//     objectType to the canonical Kind. The vote join heals rows it reads;
//     the sweep catches rows nobody has read.
//   - token purge: deletes API tokens past their expiry.
//
// Usage:
//
//	sweeper := maintenance.NewSweeper(store, logger)
//	scheduler, err := maintenance.NewScheduler(sweeper, maintenance.DefaultSchedules())
//	scheduler.Start()
//	defer scheduler.Stop(ctx)
package maintenance
