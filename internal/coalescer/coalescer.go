// Package coalescer deduplicates concurrent batched lookups: at most one
// in-flight fetch per distinct identifier, shared by every caller that asks
// for it while the fetch is pending. Resource keys and group lookups both
// ride on it.
package coalescer

import (
	"context"
	"sync"
)

// FetchFunc fetches a batch of values by id. Identifiers omitted from the
// returned map are treated as "not found", which is not an error: the caller
// simply gets no entry for them.
type FetchFunc[K comparable, V any] func(ctx context.Context, ids []K) (map[K]V, error)

// task is one identifier's in-flight request. Every caller interested in the
// identifier waits on done; the fields are written exactly once, before done
// is closed.
type task[V any] struct {
	done  chan struct{}
	value V
	found bool
	err   error
}

// Coalescer tracks in-flight lookups keyed by identifier. Each component
// that issues lookups owns its own instance; there is no process-global
// table.
type Coalescer[K comparable, V any] struct {
	mu       sync.Mutex
	inflight map[K]*task[V]
}

// New creates an empty coalescer.
func New[K comparable, V any]() *Coalescer[K, V] {
	return &Coalescer[K, V]{inflight: make(map[K]*task[V])}
}

// Run resolves ids through fetch, attaching to in-flight requests where one
// exists and issuing a single batched fetch for the genuinely new ids.
//
// Results are returned in the order of the caller's requested ids (first
// occurrence wins for duplicates); ids the fetch did not return are dropped.
// A fetch failure fails every caller waiting on that particular batch, and
// only those: callers attached to a different batch that happens to share
// ids are unaffected. Each id's entry leaves the in-flight table once its
// own request settles, so a later Run with the same id starts fresh.
func (c *Coalescer[K, V]) Run(ctx context.Context, ids []K, fetch FetchFunc[K, V]) ([]V, error) {
	ordered := make([]K, 0, len(ids))
	seen := make(map[K]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ordered = append(ordered, id)
	}

	tasks := make(map[K]*task[V], len(ordered))
	var fresh []K

	c.mu.Lock()
	for _, id := range ordered {
		if t, ok := c.inflight[id]; ok {
			tasks[id] = t
			continue
		}
		t := &task[V]{done: make(chan struct{})}
		c.inflight[id] = t
		tasks[id] = t
		fresh = append(fresh, id)
	}
	c.mu.Unlock()

	// The batch serves every caller attached to it, not just the one that
	// started it, so it must not die with the initiator's context.
	if len(fresh) > 0 {
		go c.runBatch(context.WithoutCancel(ctx), fresh, tasks, fetch)
	}

	results := make([]V, 0, len(ordered))
	var firstErr error
	for _, id := range ordered {
		t := tasks[id]
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.done:
		}
		if t.err != nil {
			if firstErr == nil {
				firstErr = t.err
			}
			continue
		}
		if t.found {
			results = append(results, t.value)
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}

// runBatch performs one fetch for the fresh ids and settles their tasks.
// Settling removes each id from the in-flight table before waking waiters,
// so a retry after failure never observes the stale entry.
func (c *Coalescer[K, V]) runBatch(ctx context.Context, fresh []K, tasks map[K]*task[V], fetch FetchFunc[K, V]) {
	values, err := fetch(ctx, fresh)

	c.mu.Lock()
	for _, id := range fresh {
		delete(c.inflight, id)
	}
	c.mu.Unlock()

	for _, id := range fresh {
		t := tasks[id]
		if err != nil {
			t.err = err
		} else if v, ok := values[id]; ok {
			t.value = v
			t.found = true
		}
		close(t.done)
	}
}
