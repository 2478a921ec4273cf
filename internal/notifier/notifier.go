package notifier

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SaiWorkProfile/manortha-website/internal/entity"
	"github.com/SaiWorkProfile/manortha-website/pkg/broker"
	"github.com/SaiWorkProfile/manortha-website/pkg/logger"
)

type Mailer interface {
	SendMessage(m entity.Message) error
}

type Service struct {
	mailer Mailer
}

func New(mailer Mailer) *Service {
	return &Service{mailer: mailer}
}

func (s *Service) SendMessage(message entity.Message) error {
	switch message.Type {
	case broker.EventTypeEmail:
		return s.mailer.SendMessage(message)
	default:
		return fmt.Errorf("%w: %s", entity.ErrUnknownMessage, message.Type)
	}
}

type EventHandler struct {
	s *Service
}

func NewEventHandler(s *Service) *EventHandler {
	return &EventHandler{s: s}
}

// HandleOutboundMessage delivers a queued lead message. Messages without an
// address are skipped.
func (h *EventHandler) HandleOutboundMessage(ctx context.Context, event broker.OutboundMessageEvent) error {
	ctx = logger.SetRequestID(ctx, event.ID)

	if event.Address == "" {
		slog.WarnContext(ctx, "outbound message without address skipped", "recipient", event.Recipient)
		return nil
	}

	err := h.s.SendMessage(entity.Message{
		Type:        event.Type,
		Message:     fmt.Sprintf("Dear %s,\n\n%s", event.Recipient, event.Message),
		ContentType: "text/plain",
		Recipients:  []string{event.Address},
	})
	if err != nil {
		return fmt.Errorf("send outbound message: %w", err)
	}

	slog.InfoContext(ctx, "outbound message delivered", "recipient", event.Recipient)

	return nil
}
