package fieldmesh

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// DefaultGrain is the minimum number of elements handed to a worker.
const DefaultGrain = 1024

// parallelFor splits [0,n) into contiguous ranges of at least grain
// elements and calls fn on each range from at most workers goroutines.
// It returns the first error returned by fn. Ranges not yet started when
// an error occurs are skipped.
func parallelFor(n, grain, workers int, fn func(start, end int) error) error {
	if n <= 0 {
		return nil
	}
	if grain <= 0 {
		grain = DefaultGrain
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers == 1 || n <= grain {
		return fn(0, n)
	}
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(workers)
	for start := 0; start < n && ctx.Err() == nil; start += grain {
		start, end := start, min(start+grain, n)
		g.Go(func() error {
			return fn(start, end)
		})
	}
	return g.Wait()
}
