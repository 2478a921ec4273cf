package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/SaiWorkProfile/manortha-website/internal/entity"
	"github.com/SaiWorkProfile/manortha-website/pkg/broker"
	"github.com/SaiWorkProfile/manortha-website/pkg/config"
)

type OutboundProducer interface {
	SendOutboundMessage(ctx context.Context, event broker.OutboundMessageEvent)
}

// Notifications is the listener of the outbound message bus. It keeps the
// toast the portal shows for the latest message and forwards every message
// to the broker when one is configured.
type Notifications struct {
	cfg      config.NotificationsConfig
	clock    clockwork.Clock
	producer OutboundProducer

	mu    sync.Mutex
	toast *entity.Toast
	gen   uint64
	timer clockwork.Timer
}

// NewNotifications accepts a nil producer when no broker is configured.
func NewNotifications(cfg config.NotificationsConfig, clock clockwork.Clock, producer OutboundProducer) *Notifications {
	return &Notifications{
		cfg:      cfg,
		clock:    clock,
		producer: producer,
	}
}

func (n *Notifications) Handle(ctx context.Context, event entity.OutboundMessageQueued) {
	n.mu.Lock()

	n.stopLocked()
	n.gen++
	gen := n.gen

	n.toast = &entity.Toast{
		EventID:   event.ID,
		Recipient: event.Recipient,
		Message:   event.Message,
		Status:    entity.ToastSending,
	}
	n.timer = n.clock.AfterFunc(n.cfg.SendingDuration, func() { n.markSent(gen) })

	n.mu.Unlock()

	slog.InfoContext(ctx, "outbound message queued", "event_id", event.ID, "recipient", event.Recipient)

	if n.producer == nil {
		return
	}

	n.producer.SendOutboundMessage(ctx, broker.OutboundMessageEvent{
		ID:         event.ID,
		Type:       broker.EventTypeEmail,
		Recipient:  event.Recipient,
		Address:    event.Address,
		Message:    event.Message,
		OccurredAt: event.OccurredAt,
	})
}

func (n *Notifications) markSent(gen uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if gen != n.gen || n.toast == nil {
		return
	}

	n.toast.Status = entity.ToastSent
	n.timer = n.clock.AfterFunc(n.cfg.VisibleDuration, func() { n.clear(gen) })
}

func (n *Notifications) clear(gen uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if gen != n.gen {
		return
	}

	n.toast = nil
	n.timer = nil
}

func (n *Notifications) Current() (entity.Toast, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.toast == nil {
		return entity.Toast{}, false
	}

	return *n.toast, true
}

func (n *Notifications) Dismiss() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.stopLocked()
	n.gen++
	n.toast = nil
}

func (n *Notifications) stopLocked() {
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
}
