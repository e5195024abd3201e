// Package jobs implements background jobs for the Tours API.
//
// Jobs run on a ticker independently of HTTP request handling. Each job
// has Start and Stop for the server lifecycle and RunOnce for tests or a
// manual trigger.
//
// # Jobs
//
//   - ResetTokenSweeper: clears password reset tokens past their expiry
//
// # Usage
//
//	sweeper := jobs.NewResetTokenSweeper(jobs.ResetTokenSweeperConfig{
//	    Store:  users,
//	    Logger: logger,
//	})
//	sweeper.Start()
//	defer sweeper.Stop()
//
// # Error Handling
//
// Jobs log errors but don't crash the application. A failed run is
// retried on the next tick.
package jobs
