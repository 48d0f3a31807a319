package scheduler

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

const DefaultPoolSize = 5

// Result is the outcome of one pooled task
type Result struct {
	Index int
	Err   error
}

// Pool runs tasks with bounded parallelism. Tasks start in submission order.
type Pool struct {
	sem   *semaphore.Weighted
	limit int
}

func NewPool(limit int) *Pool {
	if limit <= 0 {
		limit = DefaultPoolSize
	}
	return &Pool{sem: semaphore.NewWeighted(int64(limit)), limit: limit}
}

func (p *Pool) Limit() int {
	return p.limit
}

// Submit starts n tasks and streams their results as they complete.
// The channel is closed once every task has reported. Tasks not yet started
// when ctx is cancelled report ctx.Err() without running.
func (p *Pool) Submit(ctx context.Context, n int, task func(ctx context.Context, i int) error) <-chan Result {
	results := make(chan Result, n)

	go func() {
		var wg sync.WaitGroup
		defer func() {
			wg.Wait()
			close(results)
		}()

		for i := 0; i < n; i++ {
			if err := p.sem.Acquire(ctx, 1); err != nil {
				for j := i; j < n; j++ {
					results <- Result{Index: j, Err: err}
				}
				return
			}

			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				defer p.sem.Release(1)
				results <- Result{Index: i, Err: task(ctx, i)}
			}(i)
		}
	}()

	return results
}

// Run is Submit that waits for every task and returns errors indexed by task
func (p *Pool) Run(ctx context.Context, n int, task func(ctx context.Context, i int) error) []error {
	errs := make([]error, n)
	for r := range p.Submit(ctx, n, task) {
		errs[r.Index] = r.Err
	}
	return errs
}

// Do runs a single task once a slot is free
func (p *Pool) Do(ctx context.Context, task func(ctx context.Context) error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)
	return task(ctx)
}
