package amqp

import (
	"context"
	"errors"
	"sync"
	"time"

	"autonome/internal/events"
	"autonome/internal/log"
)

// EventPublisher is the broker side of a Forwarder. *Client implements it.
type EventPublisher interface {
	PublishEvent(ctx context.Context, e events.Event) error
}

const (
	defaultBuffer   = 256
	maxSendAttempts = 3
)

// Forwarder copies bus events to the broker from a background goroutine so a
// slow or unreachable broker never blocks a ledger write. Events are dropped,
// with a warning, when the buffer is full.
type Forwarder struct {
	pub     EventPublisher
	logger  *log.Logger
	queue   chan events.Event
	backoff func(attempt int) time.Duration

	mu      sync.Mutex
	dropped int
	sent    int
}

func NewForwarder(pub EventPublisher, buffer int, logger *log.Logger) *Forwarder {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	if logger == nil {
		logger = log.Default(log.ComponentEvents)
	}
	return &Forwarder{
		pub:     pub,
		logger:  logger.WithComponent(log.ComponentEvents),
		queue:   make(chan events.Event, buffer),
		backoff: exponentialBackoff,
	}
}

// Attach subscribes the forwarder to bus and returns the unsubscribe func.
func (f *Forwarder) Attach(bus *events.Bus) func() {
	return bus.Subscribe(f.Enqueue)
}

// Enqueue is an events.Handler.
func (f *Forwarder) Enqueue(ctx context.Context, e events.Event) {
	select {
	case f.queue <- e:
	default:
		f.mu.Lock()
		f.dropped++
		f.mu.Unlock()
		f.logger.WarnContext(ctx, "Event forward buffer full, dropping event",
			log.FieldEventType, e.Type,
			"event_id", e.ID)
	}
}

// Run drains the buffer until ctx is cancelled, then returns.
func (f *Forwarder) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-f.queue:
			f.send(ctx, e)
		}
	}
}

// Drain publishes whatever is still buffered. Hosts call it on shutdown with
// a deadline context.
func (f *Forwarder) Drain(ctx context.Context) {
	for {
		select {
		case e := <-f.queue:
			f.send(ctx, e)
		default:
			return
		}
	}
}

func (f *Forwarder) send(ctx context.Context, e events.Event) {
	var err error
	for attempt := 0; attempt < maxSendAttempts; attempt++ {
		if err = f.pub.PublishEvent(ctx, e); err == nil {
			f.mu.Lock()
			f.sent++
			f.mu.Unlock()
			return
		}
		if errors.Is(err, ErrCircuitOpen) || !isConnectionError(err) {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(f.backoff(attempt)):
		}
	}
	f.logger.WarnContext(ctx, "Failed to forward event",
		log.FieldEventType, e.Type,
		"event_id", e.ID,
		log.FieldError, err)
}

// Stats reports how many events were sent and dropped so far.
func (f *Forwarder) Stats() (sent, dropped int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent, f.dropped
}
