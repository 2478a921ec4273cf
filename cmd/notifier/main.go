package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/SaiWorkProfile/manortha-website/internal/clients/gomail"
	"github.com/SaiWorkProfile/manortha-website/internal/notifier"
	"github.com/SaiWorkProfile/manortha-website/pkg/broker"
	"github.com/SaiWorkProfile/manortha-website/pkg/config"
	"github.com/SaiWorkProfile/manortha-website/pkg/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.New(".env")
	panicOnErr("create config", err)

	l := logger.New(logger.ParseLevel(cfg.LogLevel))
	slog.SetDefault(l)

	if !cfg.KafkaEnabled() {
		log.Panic("KAFKA_BROKERS is required for the notifier")
	}

	s := notifier.New(gomail.New(cfg.Mailer))

	// Kafka consumers
	{
		consumer := broker.NewConsumer(l, cfg.Kafka.Brokers, cfg.Kafka.ConsumerID, cfg.Kafka.OutboundTopic)
		defer consumer.Close()

		eventHandler := notifier.NewEventHandler(s)

		consumer.HandleOutbound(cfg.Kafka.OutboundTopic, eventHandler.HandleOutboundMessage)
		consumer.Consume(ctx)
	}

	l.Info("notifier started", "topic", cfg.Kafka.OutboundTopic)

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT)
	sig := <-ch

	l.Info("got OS signal", "signal", sig.String())

	cancel()
}

func panicOnErr(msg string, err error) {
	if err != nil {
		log.Panicf("%s: %s", msg, err)
	}
}
