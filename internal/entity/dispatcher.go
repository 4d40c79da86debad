package entity

import (
	"context"
	"sync"

	"github.com/daemonp/vivint2mqtt/internal/log"
	"github.com/daemonp/vivint2mqtt/internal/metrics"
)

// Dispatcher runs queued listener deliveries on a fixed pool of workers so
// that the goroutine handling a push message is never blocked by slow
// listeners. With a single worker deliveries keep their submission order.
type Dispatcher struct {
	log     *log.Logger
	queue   chan func()
	workers int

	mu      sync.RWMutex
	stopped bool
	done    <-chan struct{}
	wg      sync.WaitGroup
}

// NewDispatcher creates a dispatcher with the given pool size and queue
// depth. Values below one are raised to one.
func NewDispatcher(logger *log.Logger, workers, depth int) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if depth < 1 {
		depth = 1
	}
	return &Dispatcher{
		log:     log.OrNop(logger),
		queue:   make(chan func(), depth),
		workers: workers,
	}
}

// Start launches the workers. They exit once ctx is done or Stop is called
// and the queue has drained.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	d.done = ctx.Done()
	d.mu.Unlock()
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work(ctx)
	}
}

func (d *Dispatcher) work(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case fn, ok := <-d.queue:
			if !ok {
				return
			}
			d.run(fn)
		}
	}
}

func (d *Dispatcher) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("dispatch: %v", errPanic(r))
		}
	}()
	metrics.ListenerDeliveries.Inc()
	fn()
}

// Submit queues fn, blocking while the queue is full. Before Start the
// delivery runs on the caller's goroutine. After Stop, or once the context
// given to Start is done, the work is dropped.
func (d *Dispatcher) Submit(fn func()) {
	d.mu.RLock()
	if d.done == nil && !d.stopped {
		d.mu.RUnlock()
		d.run(fn)
		return
	}
	defer d.mu.RUnlock()
	if d.stopped {
		d.log.Warn("dispatch: dropping delivery after stop")
		return
	}
	select {
	case d.queue <- fn:
	case <-d.done:
		d.log.Warn("dispatch: dropping delivery, dispatcher shut down")
	}
}

// Stop closes the queue and waits for the workers to finish what is left.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.queue)
	d.mu.Unlock()
	d.wg.Wait()
}
