package export

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"doc-annotator/internal/annot"
)

// Job is one document plus its sidecar annotations.
type Job struct {
	Name  string
	Doc   []byte
	Store *annot.Store
}

// FlattenAll flattens multiple documents concurrently. The first failure
// cancels the remaining jobs and is returned; completed results are
// keyed by job name.
func (f *Flattener) FlattenAll(ctx context.Context, jobs []Job, workers int) (map[string]*Result, error) {
	if workers < 1 {
		workers = runtime.NumCPU()
	}

	var mu sync.Mutex
	results := make(map[string]*Result, len(jobs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, job := range jobs {
		job := job
		g.Go(func() error {
			res, err := f.Flatten(ctx, job.Doc, job.Store)
			if err != nil {
				return err
			}
			mu.Lock()
			results[job.Name] = res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
