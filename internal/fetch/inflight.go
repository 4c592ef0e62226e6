// SPDX-License-Identifier: MPL-2.0

package fetch

import (
	"context"
	"sync"

	"github.com/graviton-app/graviton/internal/progress"
)

type (
	// flights deduplicates identical fetches. Each running operation is a
	// reference-counted call; the operation is cancelled once its last
	// caller detaches, and removed from the table when it finishes.
	flights struct {
		mu    sync.Mutex
		calls map[string]*call
	}

	call struct {
		done   chan struct{}
		cancel context.CancelFunc
		events *progress.Broadcaster
		refs   int

		result *ResolvedArtifact
		err    error
	}

	runFunc func(ctx context.Context, events progress.Sink) (*ResolvedArtifact, error)
)

func newFlights() *flights {
	return &flights{calls: make(map[string]*call)}
}

// join attaches sink to the operation under key, starting it with run when
// none is running, and waits for its result or for ctx to end.
func (f *flights) join(ctx context.Context, key, name string, sink progress.Sink, run runFunc) (*ResolvedArtifact, error) {
	f.mu.Lock()
	c, running := f.calls[key]
	if !running {
		opCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		c = &call{
			done:   make(chan struct{}),
			cancel: cancel,
			events: progress.NewBroadcaster(name),
		}
		f.calls[key] = c
		go f.run(opCtx, key, c, run)
	}
	c.refs++
	id := c.events.Attach(sink)
	f.mu.Unlock()

	select {
	case <-c.done:
		return c.result.Clone(), c.err
	case <-ctx.Done():
		f.detach(key, c, id)
		return nil, context.Cause(ctx)
	}
}

func (f *flights) run(ctx context.Context, key string, c *call, run runFunc) {
	defer c.cancel()

	result, err := run(ctx, c.events)

	f.mu.Lock()
	if f.calls[key] == c {
		delete(f.calls, key)
	}
	f.mu.Unlock()

	c.result, c.err = result, err
	c.events.Emit(progress.Stopped{})
	close(c.done)
}

func (f *flights) detach(key string, c *call, id int) {
	c.events.Detach(id)

	f.mu.Lock()
	defer f.mu.Unlock()
	c.refs--
	if c.refs > 0 {
		return
	}
	// Nobody is waiting any more: stop the work and let the next caller
	// start afresh instead of joining a dying operation.
	c.cancel()
	if f.calls[key] == c {
		delete(f.calls, key)
	}
}

// size returns the number of running operations.
func (f *flights) size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
