// Package worker runs background jobs on a fixed set of goroutines fed by a
// bounded in-memory queue.
//
// Jobs are fire-and-forget. Each runs under its own timeout and inside its own
// panic boundary, so a failing or panicking job is logged and handed to the
// configured error handler without affecting the submitter or other jobs.
package worker
