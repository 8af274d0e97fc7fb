package worker

import "context"

// Job is a unit of background work.
type Job interface {
	// Name identifies the kind of job in log lines.
	Name() string

	// Run executes the job. The context carries the per-job timeout.
	Run(ctx context.Context) error
}

type funcJob struct {
	name string
	fn   func(ctx context.Context) error
}

func (j funcJob) Name() string                  { return j.name }
func (j funcJob) Run(ctx context.Context) error { return j.fn(ctx) }

// JobFunc adapts a function into a Job.
func JobFunc(name string, fn func(ctx context.Context) error) Job {
	return funcJob{name: name, fn: fn}
}
