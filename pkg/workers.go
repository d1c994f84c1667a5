package deltat

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
)

type WorkerData struct {
	ID   int
	Path string
}

type workerOutcome[T any] struct {
	Path  string
	Value T
	Err   error
}

func worker[T any](id int, jobs <-chan WorkerData, results chan<- workerOutcome[T],
	process func(string) (T, error), verbosity int) {
	for job := range jobs {
		if verbosity > 1 {
			message := fmt.Sprintf("Worker %d processing file %d (%s)", id, job.ID, filepath.Base(job.Path))
			logger.Info(message, "workers")
		}
		results <- runJob(id, job, process)
	}
}

// runJob isolates a decode panic to the file that caused it.
func runJob[T any](id int, job WorkerData, process func(string) (T, error)) (outcome workerOutcome[T]) {
	outcome.Path = job.Path
	defer func() {
		if r := recover(); r != nil {
			outcome.Err = fmt.Errorf("worker %d recovered from panic on %s: %v", id, job.Path, r)
		}
	}()
	outcome.Value, outcome.Err = process(job.Path)
	return outcome
}

func sendFilesToWorkers(ctx context.Context, files []string, jobs chan<- WorkerData) {
	defer close(jobs)
	for i, file := range files {
		select {
		case <-ctx.Done():
			return
		case jobs <- WorkerData{ID: i, Path: file}:
		}
	}
}

// processFiles runs process on every file with numWorkers goroutines and
// hands each outcome to collect from the calling goroutine only. Files not
// yet dispatched when ctx is cancelled are skipped; files already running
// are allowed to finish.
func processFiles[T any](ctx context.Context, files []string, numWorkers int, verbosity int,
	process func(string) (T, error), collect func(workerOutcome[T])) error {
	if numWorkers < 1 {
		numWorkers = 1
	}
	jobs := make(chan WorkerData, numWorkers)
	results := make(chan workerOutcome[T], numWorkers)

	var wg sync.WaitGroup
	for w := 1; w <= numWorkers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			worker(id, jobs, results, process, verbosity)
		}(w)
	}
	go sendFilesToWorkers(ctx, files, jobs)
	go func() {
		wg.Wait()
		close(results)
	}()

	for outcome := range results {
		collect(outcome)
	}
	return ctx.Err()
}
