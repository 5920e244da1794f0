package client

import (
	"context"
	"time"

	"library/pkg/amqp"
	"library/pkg/cache"
	"library/pkg/db/postgres"
	"library/pkg/events"
	"library/pkg/kafka"
	kafka_config "library/pkg/kafka/config"
	kafka_middleware "library/pkg/kafka/middleware"
	"library/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	brokerAMQP  = "amqp"
	brokerKafka = "kafka"
)

// Client owns the process-wide connections. Each Set* call connects once at
// startup and exits the process on failure.
type Client struct {
	Postgres  *pgxpool.Pool
	Cache     cache.Backend
	Publisher events.Publisher
}

func NewClient() *Client {
	return &Client{}
}

type PostgresOptions struct {
	URL            string
	ConnectTimeout time.Duration
	MaxConns       int32
}

func (c *Client) SetPostgres(log *logger.Logger, opts PostgresOptions) {
	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()

	pool, err := postgres.Connect(ctx, postgres.Options{URL: opts.URL, MaxConns: opts.MaxConns})
	if err != nil {
		log.Fatal("Failed to connect to Postgres", "error", err)
	}

	log.Info("Successfully connected to Postgres", "max_conns", pool.Config().MaxConns)
	c.Postgres = pool
}

type CacheOptions struct {
	URL           string
	LocalCapacity int
	LocalTTL      time.Duration
	PingTimeout   time.Duration
}

// SetCache connects the cache backend. An unreachable Redis is logged and
// the service keeps running, since the cache is advisory.
func (c *Client) SetCache(log *logger.Logger, opts CacheOptions) {
	backend, err := cache.Open(cache.Options{
		URL:           opts.URL,
		LocalCapacity: opts.LocalCapacity,
		LocalTTL:      opts.LocalTTL,
	})
	if err != nil {
		log.Fatal("Failed to configure cache", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.PingTimeout)
	defer cancel()
	if err := backend.Ping(ctx); err != nil {
		log.Warn("Cache is not reachable, continuing without it until it recovers", "error", err)
	} else {
		log.Info("Cache backend ready")
	}
	c.Cache = backend
}

type PublisherOptions struct {
	Broker             string
	AMQPURL            string
	Exchange           string
	DeadLetterExchange string
	Kafka              *kafka_config.Config
	Source             string
}

func (c *Client) SetPublisher(log *logger.Logger, opts PublisherOptions) {
	switch opts.Broker {
	case brokerAMQP:
		conn, err := amqp.Connect(opts.AMQPURL)
		if err != nil {
			log.Fatal("Failed to connect to RabbitMQ", "error", err)
		}
		publisher, err := events.NewAMQPPublisher(conn, amqp.Topology{
			Exchange:           opts.Exchange,
			DeadLetterExchange: opts.DeadLetterExchange,
		}, opts.Source)
		if err != nil {
			_ = conn.Close()
			log.Fatal("Failed to declare exchanges", "error", err)
		}
		log.Info("Successfully connected to RabbitMQ", "exchange", opts.Exchange)
		c.Publisher = publisher

	case brokerKafka:
		producer, err := kafka.NewProducer(opts.Kafka, opts.Exchange, opts.DeadLetterExchange, log)
		if err != nil {
			log.Fatal("Failed to create Kafka producer", "error", err)
		}
		if opts.Kafka.LogMessages {
			producer.Use(kafka_middleware.LoggingProducerMiddleware(log))
		}
		log.Info("Kafka producer ready", "topic", opts.Exchange, "brokers", opts.Kafka.Brokers)
		c.Publisher = events.NewKafkaPublisher(producer, opts.Source)

	default:
		log.Info("Event publishing disabled")
		c.Publisher = events.NewNopPublisher()
	}
}

func (c *Client) GracefulShutdown(log *logger.Logger) {
	if c.Publisher != nil {
		if err := c.Publisher.Close(); err != nil {
			log.Error("Failed to close event publisher", "error", err)
		} else {
			log.Info("Event publisher closed")
		}
	}

	if c.Cache != nil {
		if err := c.Cache.Close(); err != nil {
			log.Error("Failed to close cache", "error", err)
		} else {
			log.Info("Cache closed")
		}
	}

	if c.Postgres != nil {
		c.Postgres.Close()
		log.Info("Postgres pool closed")
	}
}
