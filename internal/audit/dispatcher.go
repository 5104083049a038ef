package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// Config controls dispatcher buffering.
type Config struct {
	Enabled    bool
	BufferSize int
	// DropIfFull drops events when the buffer is full instead of making
	// the request wait.
	DropIfFull bool
}

// Dispatcher relays events to a sink from one background goroutine. A nil
// *Dispatcher discards everything.
type Dispatcher struct {
	sink       Sink
	dropIfFull bool

	queue chan Event
	quit  chan struct{}

	// mu guards closed and the close of queue against in-flight Emits.
	mu     sync.RWMutex
	closed bool

	stopOnce sync.Once
	stopped  chan struct{}

	dropped   atomic.Uint64
	delivered atomic.Uint64
}

// NewDispatcher starts a dispatcher, or returns nil when cfg is disabled.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		queue:      make(chan Event, max(cfg.BufferSize, 1)),
		quit:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
	go d.loop()
	return d
}

func (d *Dispatcher) loop() {
	defer close(d.stopped)
	ctx := context.Background()
	for event := range d.queue {
		d.sink.Emit(ctx, event)
		d.delivered.Add(1)
	}
}

// Emit queues event. Without DropIfFull it waits for buffer space until ctx
// is done or the dispatcher closes.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil {
		return
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
		default:
			d.dropped.Add(1)
		}
		return
	}

	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case d.queue <- event:
	case <-ctx.Done():
		d.dropped.Add(1)
	case <-d.quit:
	}
}

// Close stops intake and blocks until queued events reach the sink.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.stopOnce.Do(func() {
		close(d.quit)
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()
	})
	<-d.stopped
}

// Dropped counts events lost to a full buffer or a cancelled context.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

func (d *Dispatcher) Delivered() uint64 {
	if d == nil {
		return 0
	}
	return d.delivered.Load()
}
