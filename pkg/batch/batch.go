// Package batch processes items in fixed-size concurrent groups separated by
// a pause, bounding the number of in-flight calls against a shared remote
// service.
package batch

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	errs "socialscraper/pkg/errors"
)

// Outcome is the per-item result of fn. Failures are captured here instead
// of aborting the group.
type Outcome[U any] struct {
	Value U
	Err   error
}

// Options controls grouping and pacing
type Options struct {
	// Size is the maximum number of items per group; must be >= 1
	Size int
	// Delay is the pause after a group settles
	Delay time.Duration
	// TrailingDelay also pauses after the final group
	TrailingDelay bool
	// OnBatch is called before each group with a 1-based index and the
	// [start, end) item range
	OnBatch func(index, total, start, end int)
	// Sleep replaces the timed wait; tests use it to observe pacing
	Sleep func(ctx context.Context, d time.Duration) error
}

// Groups returns the number of groups n items split into
func Groups(n, size int) int {
	if size < 1 || n <= 0 {
		return 0
	}
	return (n + size - 1) / size
}

// Process invokes fn exactly once per item. Items are split into consecutive
// groups of at most opts.Size; calls within a group run concurrently and the
// next group starts only after every call settled and opts.Delay elapsed.
// Outcomes are returned in input order.
//
// The only errors returned are a configuration error for Size < 1 and the
// context error when ctx is cancelled between groups.
func Process[T, U any](ctx context.Context, items []T, opts Options, fn func(context.Context, T) (U, error)) ([]Outcome[U], error) {
	if opts.Size < 1 {
		return nil, errs.Configuration("batch", "size must be >= 1, got %d", opts.Size)
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = wait
	}

	out := make([]Outcome[U], len(items))
	total := Groups(len(items), opts.Size)

	for g := 0; g < total; g++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		start := g * opts.Size
		end := min(start+opts.Size, len(items))
		if opts.OnBatch != nil {
			opts.OnBatch(g+1, total, start, end)
		}

		// A plain Group: one failing call must not cancel its siblings.
		var eg errgroup.Group
		for i := start; i < end; i++ {
			eg.Go(func() error {
				v, err := fn(ctx, items[i])
				out[i] = Outcome[U]{Value: v, Err: err}
				return nil
			})
		}
		_ = eg.Wait()

		last := g == total-1
		if opts.Delay > 0 && (!last || opts.TrailingDelay) {
			if err := sleep(ctx, opts.Delay); err != nil {
				return out, err
			}
		}
	}

	return out, nil
}

func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
