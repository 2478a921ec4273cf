package notifier_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/SaiWorkProfile/manortha-website/internal/entity"
	"github.com/SaiWorkProfile/manortha-website/internal/notifier"
	"github.com/SaiWorkProfile/manortha-website/pkg/broker"
)

type fakeMailer struct {
	sent []entity.Message
}

func (f *fakeMailer) SendMessage(m entity.Message) error {
	f.sent = append(f.sent, m)
	return nil
}

const topic = "manortha.outbound"

func kafkaMessage(t *testing.T, event broker.OutboundMessageEvent) kafka.Message {
	t.Helper()

	b, err := json.Marshal(event)
	require.NoError(t, err)

	return kafka.Message{Topic: topic, Value: b}
}

func newDispatcher(mailer notifier.Mailer) *broker.Consumer {
	h := notifier.NewEventHandler(notifier.New(mailer))
	return broker.NewDispatcher(slog.Default()).HandleOutbound(topic, h.HandleOutboundMessage)
}

func TestHandleOutboundMessage(t *testing.T) {
	t.Parallel()

	mailer := &fakeMailer{}

	err := newDispatcher(mailer).Dispatch(context.Background(), kafkaMessage(t, broker.OutboundMessageEvent{
		ID:        "01J",
		Recipient: "Priya",
		Address:   "priya@example.com",
		Message:   entity.QualifiedMessage,
	}))
	require.NoError(t, err)
	require.Len(t, mailer.sent, 1)
	require.Equal(t, broker.EventTypeEmail, mailer.sent[0].Type)
	require.Equal(t, []string{"priya@example.com"}, mailer.sent[0].Recipients)
	require.Contains(t, mailer.sent[0].Message, "Dear Priya")
	require.Contains(t, mailer.sent[0].Message, entity.QualifiedMessage)
}

func TestHandleOutboundMessageSkipsMissingAddress(t *testing.T) {
	t.Parallel()

	mailer := &fakeMailer{}

	err := newDispatcher(mailer).Dispatch(context.Background(), kafkaMessage(t, broker.OutboundMessageEvent{Recipient: "X"}))
	require.NoError(t, err)
	require.Empty(t, mailer.sent)
}

func TestHandleOutboundMessageRejectsBadPayload(t *testing.T) {
	t.Parallel()

	err := newDispatcher(&fakeMailer{}).Dispatch(context.Background(), kafka.Message{Topic: topic, Value: []byte("{")})
	require.Error(t, err)
}

func TestDispatchUnknownTopic(t *testing.T) {
	t.Parallel()

	err := newDispatcher(&fakeMailer{}).Dispatch(context.Background(), kafka.Message{Topic: "other", Value: []byte("{}")})
	require.ErrorIs(t, err, broker.ErrNoHandler)
}

func TestSendMessageUnknownType(t *testing.T) {
	t.Parallel()

	err := notifier.New(&fakeMailer{}).SendMessage(entity.Message{Type: "sms"})
	require.ErrorIs(t, err, entity.ErrUnknownMessage)
}
