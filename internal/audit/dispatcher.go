package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// Options tunes dispatcher buffering. A lossy dispatcher sheds events
// when the buffer is full instead of blocking the caller.
type Options struct {
	Buffer     int
	DropIfFull bool
}

// Dispatcher decouples event producers from the configured Sink: events
// are handed off to a single background goroutine so a slow sink never
// stalls an authentication call. Close drains whatever is still buffered.
// A nil *Dispatcher is valid and silently discards events.
type Dispatcher struct {
	sink    Sink
	queue   chan Event
	quit    chan struct{}
	lossy   bool
	dropped atomic.Uint64
	stopped atomic.Bool
	wg      sync.WaitGroup
	once    sync.Once
}

func NewDispatcher(sink Sink, opts Options) *Dispatcher {
	if sink == nil {
		sink = NoOpSink{}
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 1
	}

	d := &Dispatcher{
		sink:  sink,
		queue: make(chan Event, opts.Buffer),
		quit:  make(chan struct{}),
		lossy: opts.DropIfFull,
	}

	d.wg.Add(1)
	go d.forward()

	return d
}

func (d *Dispatcher) forward() {
	defer d.wg.Done()

	for {
		select {
		case event := <-d.queue:
			d.sink.Emit(context.Background(), event)
		case <-d.quit:
			d.drain()
			return
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case event := <-d.queue:
			d.sink.Emit(context.Background(), event)
		default:
			return
		}
	}
}

// Emit queues event for delivery. A lossy dispatcher counts the event as
// dropped when the buffer is full; otherwise Emit waits for buffer space,
// ctx cancellation, or Close.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.stopped.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.lossy {
		select {
		case d.queue <- event:
		case <-d.quit:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
	case <-d.quit:
	}
}

// Close drains buffered events and stops the forwarding goroutine.
// Close is idempotent; Emit after Close discards the event.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.once.Do(func() {
		d.stopped.Store(true)
		close(d.quit)
		d.wg.Wait()
	})
}

// Dropped reports how many events a lossy dispatcher has shed so far.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
