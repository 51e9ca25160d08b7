package embedding

import (
	"context"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
)

// DefaultPoolSize bounds concurrent per-text provider calls.
const DefaultPoolSize = 8

// Pool runs per-index jobs on a bounded ants worker pool.
type Pool struct {
	pool *ants.Pool
}

// NewPool creates a worker pool. size <= 0 selects DefaultPoolSize.
func NewPool(size int) (*Pool, error) {
	if size <= 0 {
		size = DefaultPoolSize
	}
	p, err := ants.NewPool(size)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	return &Pool{pool: p}, nil
}

// Each runs fn(i) for i in [0, n) and waits for all of them.
// Jobs write to their own index, so callers keep input order for free.
// Stops submitting once ctx is done; already running jobs finish.
func (p *Pool) Each(ctx context.Context, n int, fn func(i int)) error {
	var wg sync.WaitGroup
	for i := range n {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return err //nolint:wrapcheck // context error
		}
		wg.Add(1)
		idx := i
		if err := p.pool.Submit(func() {
			defer wg.Done()
			fn(idx)
		}); err != nil {
			wg.Done()
			wg.Wait()
			return fmt.Errorf("submit job %d: %w", i, err)
		}
	}
	wg.Wait()
	return nil
}

// Release stops the pool's workers.
func (p *Pool) Release() {
	p.pool.Release()
}
