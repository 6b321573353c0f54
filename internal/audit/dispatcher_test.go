package audit

import (
	"context"
	"testing"
)

type blockingSink struct {
	release chan struct{}
}

func (s *blockingSink) Emit(ctx context.Context, event Event) {
	<-s.release
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}

	d := NewDispatcher(sink, Options{Buffer: 1, DropIfFull: true})
	defer func() {
		close(sink.release)
		d.Close()
	}()

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{EventType: "login_success"})
	}

	// One event may be in flight and one buffered; the rest must have been
	// counted as dropped rather than blocking the caller.
	if dropped := d.Dropped(); dropped < 8 {
		t.Fatalf("Dropped = %d, want at least 8", dropped)
	}
}

func TestDispatcherDrainsOnClose(t *testing.T) {
	sink := NewChannelSink(16)

	d := NewDispatcher(sink, Options{Buffer: 16, DropIfFull: true})
	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), Event{EventType: "login_success"})
	}
	d.Close()

	received := 0
	for {
		select {
		case <-sink.Events():
			received++
		default:
			if received != 5 {
				t.Fatalf("received %d events after Close, want 5", received)
			}
			return
		}
	}
}

func TestDispatcherEmitAfterCloseIsDiscarded(t *testing.T) {
	sink := NewChannelSink(4)

	d := NewDispatcher(sink, Options{Buffer: 4, DropIfFull: true})
	d.Close()
	d.Close()
	d.Emit(context.Background(), Event{EventType: "login_success"})

	select {
	case event := <-sink.Events():
		t.Fatalf("unexpected event after Close: %+v", event)
	default:
	}
}

func TestNilDispatcherIsInert(t *testing.T) {
	var d *Dispatcher
	d.Emit(context.Background(), Event{EventType: "login_success"})
	d.Close()
	if got := d.Dropped(); got != 0 {
		t.Fatalf("Dropped on nil dispatcher = %d, want 0", got)
	}
}
