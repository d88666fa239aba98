package tlcache

import (
	"context"
	"errors"
	"sync"
)

// forgetAll deletes keys from the store using up to workers goroutines.
// Every key is attempted even when some fail; failures are joined. A
// non-nil limiter paces the deletes.
func forgetAll(ctx context.Context, store Store, keys []string, workers int, limiter *RateLimiter) error {
	if len(keys) == 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}
	if workers > len(keys) {
		workers = len(keys)
	}

	jobs := make(chan string)
	failures := make(chan error, len(keys))
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for key := range jobs {
				if limiter != nil {
					if err := limiter.Wait(ctx); err != nil {
						failures <- &StoreError{Op: "forget", Key: key, Cause: err}
						continue
					}
				}
				if err := store.Forget(ctx, key); err != nil {
					failures <- &StoreError{Op: "forget", Key: key, Cause: err}
				}
			}
		}()
	}

	for _, key := range keys {
		jobs <- key
	}
	close(jobs)

	// Close failures channel when all workers complete
	go func() {
		wg.Wait()
		close(failures)
	}()

	var errs []error
	for err := range failures {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
