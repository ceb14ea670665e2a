package assemble

import (
	"context"
	"sync"
)

// fetchAll downloads urls with at most workers concurrent fetches. Results
// are indexed by position in urls. The first failure cancels the remaining
// fetches and is returned.
func fetchAll(ctx context.Context, fetcher PageFetcher, urls []string, workers int, destination func(int) string) ([]string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if workers > len(urls) {
		workers = len(urls)
	}
	if workers < 1 {
		workers = 1
	}

	results := make([]string, len(urls))
	jobs := make(chan int)
	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	fail := func(err error) {
		once.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					continue
				}
				path, err := fetcher.FetchAndNormalize(ctx, urls[i], destination(i))
				if err != nil {
					fail(err)
					continue
				}
				results[i] = path
			}
		}()
	}

feed:
	for i := range urls {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
