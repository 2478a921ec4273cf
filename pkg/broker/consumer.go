package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/segmentio/kafka-go"
)

// ErrNoHandler is returned by Dispatch for topics nobody subscribed to.
var ErrNoHandler = errors.New("no handler for topic")

// OutboundHandler receives decoded outbound lead messages.
type OutboundHandler func(ctx context.Context, event OutboundMessageEvent) error

type messageHandler func(ctx context.Context, m kafka.Message) error

// Consumer reads the group topics and routes every message to the handler
// registered for its topic.
type Consumer struct {
	l        *slog.Logger
	reader   *kafka.Reader
	done     sync.WaitGroup
	handlers map[string]messageHandler
}

func NewConsumer(l *slog.Logger, brokers []string, groupID string, topics ...string) *Consumer {
	l = l.WithGroup("kafka").With("group_id", groupID)

	return &Consumer{
		l: l,
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     brokers,
			GroupID:     groupID,
			GroupTopics: topics,
			Logger:      kafkaLogger{l: l, level: slog.LevelDebug},
			ErrorLogger: kafkaLogger{l: l, level: slog.LevelError},
		}),
		handlers: make(map[string]messageHandler),
	}
}

// NewDispatcher builds a consumer without a reader. Only Dispatch may be
// used on it.
func NewDispatcher(l *slog.Logger) *Consumer {
	return &Consumer{
		l:        l.WithGroup("kafka"),
		handlers: make(map[string]messageHandler),
	}
}

// HandleOutbound decodes OutboundMessageEvent payloads on topic before
// passing them to h.
func (c *Consumer) HandleOutbound(topic string, h OutboundHandler) *Consumer {
	c.handlers[topic] = func(ctx context.Context, m kafka.Message) error {
		var event OutboundMessageEvent

		err := json.Unmarshal(m.Value, &event)
		if err != nil {
			return fmt.Errorf("decode outbound message: %w", err)
		}

		if event.Type == "" {
			event.Type = EventTypeEmail
		}

		return h(ctx, event)
	}

	return c
}

// Dispatch routes a single message.
func (c *Consumer) Dispatch(ctx context.Context, m kafka.Message) error {
	h, ok := c.handlers[m.Topic]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoHandler, m.Topic)
	}

	return h(ctx, m)
}

// Consume runs the read loop in the background until ctx is done or the
// consumer is closed. Handler failures are logged and the offset is still
// committed.
func (c *Consumer) Consume(ctx context.Context) *Consumer {
	c.done.Add(1)

	go func() {
		defer c.done.Done()

		c.run(ctx)
	}()

	return c
}

func (c *Consumer) run(ctx context.Context) {
	for {
		m, err := c.reader.ReadMessage(ctx)
		switch {
		case err == nil:
		case errors.Is(err, io.EOF), ctx.Err() != nil:
			c.l.Info("consumer stopped")
			return
		default:
			c.l.Error("read kafka message", "error", err)
			continue
		}

		err = c.Dispatch(ctx, m)
		if errors.Is(err, ErrNoHandler) {
			c.l.Warn("unrouted kafka message", "topic", m.Topic)
		} else if err != nil {
			c.l.Error("handle kafka message", "error", err, "topic", m.Topic, "offset", m.Offset)
		}
	}
}

func (c *Consumer) Close() {
	if c.reader != nil {
		err := c.reader.Close()
		if err != nil {
			c.l.Error("close kafka reader", "error", err)
		}
	}

	c.done.Wait()
}

// kafkaLogger adapts slog to the kafka-go Logger interface.
type kafkaLogger struct {
	l     *slog.Logger
	level slog.Level
}

func (k kafkaLogger) Printf(format string, v ...any) {
	k.l.Log(context.Background(), k.level, fmt.Sprintf(format, v...))
}
