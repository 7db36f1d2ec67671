package alerts

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ahmetcoskunkizilkaya/safety-core/internal/metrics"
)

// Dispatcher decouples event producers from delivery: Publish enqueues and
// returns, worker goroutines run the handler.
type Dispatcher struct {
	handler Handler
	queue   chan Event
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(handler Handler, queueSize, workers int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 256
	}
	if workers <= 0 {
		workers = 1
	}
	d := &Dispatcher{
		handler: handler,
		queue:   make(chan Event, queueSize),
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	return d
}

// Publish never blocks. A full or stopped queue drops the event.
func (d *Dispatcher) Publish(ctx context.Context, ev Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		slog.Warn("alert dispatcher stopped, dropping event", "type", string(ev.Type))
		metrics.AlertEventsDroppedTotal.Inc()
		return
	}

	select {
	case d.queue <- ev:
		metrics.AlertQueueDepth.Inc()
	default:
		slog.Error("alert queue full, dropping event", "type", string(ev.Type))
		metrics.AlertEventsDroppedTotal.Inc()
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for ev := range d.queue {
		metrics.AlertQueueDepth.Dec()
		d.handle(ev)
	}
}

func (d *Dispatcher) handle(ev Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("alert handler panicked", "type", string(ev.Type), "panic", r)
		}
	}()
	d.handler.Handle(context.Background(), ev)
}

// Stop closes the queue and waits until queued events are handled.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
}
