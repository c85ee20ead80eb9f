// Package fanout runs independent calls concurrently and gathers their
// results in input order.
package fanout

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Error reports which item made All fail.
type Error struct {
	Index int
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("item %d: %v", e.Index, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// All starts fn for every item without waiting on the others and blocks until
// every call has returned. Results are placed by input index, never by
// completion order.
//
// The batch is all-or-nothing: if any call fails, All returns nil results and
// the first failure to complete, wrapped in an *Error. Calls still in flight
// when a failure happens are not cancelled; they run to completion and their
// results are discarded.
func All[T, R any](ctx context.Context, items []T, fn func(context.Context, T) (R, error)) ([]R, error) {
	results := make([]R, len(items))

	// A zero Group never cancels: Wait blocks on every call and reports the
	// first error returned.
	var g errgroup.Group
	for i, item := range items {
		g.Go(func() error {
			result, err := fn(ctx, item)
			if err != nil {
				return &Error{Index: i, Err: err}
			}
			results[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
