package events

import (
	"context"
	"fmt"
	"log/slog"
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/SaiWorkProfile/manortha-website/internal/entity"
	"github.com/SaiWorkProfile/manortha-website/pkg/metrics"
)

type Handler func(ctx context.Context, event entity.OutboundMessageQueued)

// Bus is a fire-and-forget, single-listener queue for outbound message
// events. Publish never blocks; events that do not fit are dropped.
type Bus struct {
	mu      sync.Mutex
	queue   chan entity.OutboundMessageQueued
	handler Handler
	done    chan struct{}
	closed  bool
}

func NewBus(size int) *Bus {
	if size <= 0 {
		size = 1
	}

	return &Bus{
		queue: make(chan entity.OutboundMessageQueued, size),
		done:  make(chan struct{}),
	}
}

func (b *Bus) Subscribe(h Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.handler != nil {
		return fmt.Errorf("%w: bus already has a listener", entity.ErrConflict)
	}

	b.handler = h

	return nil
}

// Publish reports whether the event was queued.
func (b *Bus) Publish(ctx context.Context, event entity.OutboundMessageQueued) bool {
	if event.ID == "" {
		event.ID = NewID()
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		slog.WarnContext(ctx, "event bus closed, event dropped", "event_id", event.ID)
		return false
	}

	select {
	case b.queue <- event:
		return true
	default:
		metrics.EventDropped()
		slog.WarnContext(ctx, "event queue full, event dropped", "event_id", event.ID, "recipient", event.Recipient)

		return false
	}
}

// Run dispatches queued events until ctx is done or the bus is closed.
func (b *Bus) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.done:
			return
		case event := <-b.queue:
			b.dispatch(ctx, event)
		}
	}
}

func (b *Bus) dispatch(ctx context.Context, event entity.OutboundMessageQueued) {
	b.mu.Lock()
	h := b.handler
	b.mu.Unlock()

	if h == nil {
		slog.DebugContext(ctx, "no listener for event", "event_id", event.ID)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "event listener panic", "event_id", event.ID, "error", r)
		}
	}()

	h(ctx, event)
}

func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true
	close(b.done)
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0) //nolint:gosec
)

// NewID returns a lexicographically sortable event identifier.
func NewID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
