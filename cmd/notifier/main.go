package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"library/internal/notifier"
	"library/pkg/amqp"
	"library/pkg/config"
	"library/pkg/kafka"
	kafka_middleware "library/pkg/kafka/middleware"
)

const ServiceName = "library-notifier"

func main() {
	cfg := config.Load(ServiceName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handler := notifier.NewHandler(cfg.Log,
		notifier.NewEmailNotifier(cfg.Log),
		notifier.NewSMSNotifier(cfg.Log),
	)

	cfg.Log.Info("Starting notifier", "broker", cfg.Broker, "exchange", cfg.EventsExchange)

	var err error
	switch cfg.Broker {
	case config.BrokerAMQP:
		err = runAMQP(ctx, cfg, handler)
	case config.BrokerKafka:
		err = runKafka(ctx, cfg, handler)
	default:
		cfg.Log.Fatal("Notifier requires a broker", "broker", cfg.Broker)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		cfg.Log.Fatal("Notifier stopped", "error", err)
	}
	cfg.Log.Info("Notifier stopped gracefully")
}

func runAMQP(ctx context.Context, cfg *config.Config, handler *notifier.Handler) error {
	conn, err := amqp.Connect(cfg.AMQPURL)
	if err != nil {
		return err
	}
	defer func() {
		if err := conn.Close(); err != nil {
			cfg.Log.Error("Failed to close broker connection", "error", err)
		}
	}()

	return notifier.ConsumeAMQP(ctx, conn.Channel(), cfg.EventsExchange, cfg.DeadLetterExchange, handler, cfg.Log)
}

func runKafka(ctx context.Context, cfg *config.Config, handler *notifier.Handler) error {
	consumer, err := kafka.NewConsumer(cfg.Kafka, cfg.EventsExchange, cfg.NotifierGroupID, cfg.DeadLetterExchange, notifier.KafkaHandler(handler), cfg.Log)
	if err != nil {
		return err
	}
	if cfg.Kafka.LogMessages {
		consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
	}

	err = consumer.Start(ctx)
	if closeErr := consumer.Close(); closeErr != nil {
		cfg.Log.Error("Failed to close kafka consumer", "error", closeErr)
	}
	return err
}
