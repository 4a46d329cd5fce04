package runtime

import (
	"context"
	"sync"
)

// RunJobs runs every job in jobIDs, at most Cfg.ParallelJobLimit (default
// 5) concurrently.
// Jobs are independent: one job's error does not cancel the others. The
// returned slice is ordered the same as jobIDs, one error (possibly nil)
// per job.
func (r *Runtime) RunJobs(ctx context.Context, jobIDs []string) []error {
	limit := r.Cfg.ParallelJobLimit
	if limit <= 0 {
		limit = 5
	}

	errs := make([]error, len(jobIDs))
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup

	for i, id := range jobIDs {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, id string) {
			defer wg.Done()
			defer func() { <-sem }()
			errs[i] = r.RunJob(ctx, id)
		}(i, id)
	}
	wg.Wait()
	return errs
}
