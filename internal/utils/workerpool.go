package utils

import (
	"context"
	"sync"
)

// ParallelForEach executes fn for each item using at most workers goroutines.
// The returned slice holds one error slot per item, in item order. Items not
// started before ctx is cancelled report ctx.Err().
func ParallelForEach[T any](ctx context.Context, items []T, workers int, fn func(context.Context, T) error) []error {
	errs := make([]error, len(items))
	if len(items) == 0 {
		return errs
	}
	if workers <= 0 {
		workers = 1
	}
	if workers > len(items) {
		workers = len(items)
	}

	taskChan := make(chan int)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range taskChan {
				errs[idx] = fn(ctx, items[idx])
			}
		}()
	}

	next := 0
submit:
	for ; next < len(items); next++ {
		select {
		case <-ctx.Done():
			break submit
		case taskChan <- next:
		}
	}
	close(taskChan)
	wg.Wait()

	for ; next < len(items); next++ {
		errs[next] = ctx.Err()
	}
	return errs
}
