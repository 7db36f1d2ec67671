package alerts

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type countingHandler struct {
	mu      sync.Mutex
	handled []Event
	gate    chan struct{}
	panicOn EventType
}

func (h *countingHandler) Handle(_ context.Context, ev Event) {
	if h.gate != nil {
		<-h.gate
	}
	if ev.Type == h.panicOn {
		panic("handler exploded")
	}
	h.mu.Lock()
	h.handled = append(h.handled, ev)
	h.mu.Unlock()
}

func (h *countingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

func TestDispatcher_DrainsOnStop(t *testing.T) {
	h := &countingHandler{}
	d := NewDispatcher(h, 64, 4)

	for i := 0; i < 50; i++ {
		d.Publish(context.Background(), UserNotice(uuid.New(), "warned", nil))
	}
	d.Stop()

	assert.Equal(t, 50, h.count())
}

func TestDispatcher_DropsAfterStop(t *testing.T) {
	h := &countingHandler{}
	d := NewDispatcher(h, 4, 1)
	d.Stop()
	d.Stop()

	d.Publish(context.Background(), UserNotice(uuid.New(), "warned", nil))
	assert.Equal(t, 0, h.count())
}

func TestDispatcher_PublishNeverBlocks(t *testing.T) {
	h := &countingHandler{gate: make(chan struct{})}
	d := NewDispatcher(h, 2, 1)

	var published atomic.Int32
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			d.Publish(context.Background(), UserNotice(uuid.New(), "warned", nil))
			published.Add(1)
		}
		close(done)
	}()
	<-done
	assert.Equal(t, int32(10), published.Load())

	close(h.gate)
	d.Stop()
	// One event in the worker plus a full queue of two; the rest were dropped.
	assert.LessOrEqual(t, h.count(), 3)
	assert.GreaterOrEqual(t, h.count(), 2)
}

func TestDispatcher_SurvivesHandlerPanic(t *testing.T) {
	h := &countingHandler{panicOn: EventReportCreated}
	d := NewDispatcher(h, 8, 1)

	d.Publish(context.Background(), ReportCreated(nil, nil))
	d.Publish(context.Background(), UserNotice(uuid.New(), "warned", nil))
	d.Stop()

	assert.Equal(t, 1, h.count())
}
