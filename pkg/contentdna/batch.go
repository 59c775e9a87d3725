package contentdna

import (
	"context"
	"sync"

	"github.com/mdobak/go-xerrors"
	"golang.org/x/sync/errgroup"
)

// RunBatch calls fn for every item with at most workers calls in flight. A
// failed item gets an entry in errs and none in results; it never stops its
// siblings. Items not started before ctx is done fail with ctx.Err().
func RunBatch[I, O any](ctx context.Context, items map[string]I, workers int, fn func(ctx context.Context, id string, item I) (O, error)) (map[string]O, map[string]error) {
	var mu sync.Mutex
	results := make(map[string]O, len(items))
	errs := make(map[string]error)

	var g errgroup.Group
	g.SetLimit(max(workers, 1))
	for id, item := range items {
		id, item := id, item
		g.Go(func() error {
			var (
				out O
				err = ctx.Err()
			)
			if err == nil {
				out, err = fn(ctx, id, item)
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs[id] = xerrors.New(err)
				return nil
			}
			results[id] = out
			return nil
		})
	}
	_ = g.Wait()
	return results, errs
}
