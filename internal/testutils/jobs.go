package testutils

import (
	"context"
	"sync"

	"github.com/phrazzld/teamtask-api/internal/worker"
)

// InlineJobs runs every submitted job synchronously on the caller's
// goroutine and records the failures. It satisfies the service layer's
// JobSubmitter so handler tests can assert on deliveries without waiting for
// a pool.
type InlineJobs struct {
	mu       sync.Mutex
	names    []string
	failures []error
}

// Submit runs job immediately. Job failures are recorded, never returned.
func (j *InlineJobs) Submit(job worker.Job) error {
	err := job.Run(context.Background())

	j.mu.Lock()
	defer j.mu.Unlock()
	j.names = append(j.names, job.Name())
	if err != nil {
		j.failures = append(j.failures, err)
	}
	return nil
}

// Names returns the names of the jobs run so far.
func (j *InlineJobs) Names() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.names...)
}

// Failures returns the errors of failed jobs.
func (j *InlineJobs) Failures() []error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]error(nil), j.failures...)
}
