package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"library/pkg/client"
	kafka_config "library/pkg/kafka/config"
	"library/pkg/logger"
)

type Config struct {
	Port string

	DatabaseURL      string
	DBConnectTimeout time.Duration
	DBLockTimeout    time.Duration
	DBMaxConns       int

	CacheURL           string
	CacheOpTimeout     time.Duration
	CacheDefaultTTL    time.Duration
	CacheBookListTTL   time.Duration
	CacheLocalCapacity int

	Broker             string
	AMQPURL            string
	EventsExchange     string
	DeadLetterExchange string
	PublishTimeout     time.Duration
	NotifierGroupID    string

	RequestTimeout    time.Duration
	MaxRequestSize    int
	IdempotencyTTL    time.Duration
	RateLimitRequests int
	RateLimitWindow   time.Duration

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	ServiceName string

	Log    *logger.Logger
	Client *client.Client
	Kafka  *kafka_config.Config
}

func Load(serviceName string) *Config {
	cfg := &Config{
		Port: getEnvStr(EnvPort, DefaultPort),

		DatabaseURL:      getEnvStr(EnvDatabaseURL, DefaultDatabaseURL),
		DBConnectTimeout: getEnvDuration(EnvDBConnectTimeout, DefaultDBConnectTimeout),
		DBLockTimeout:    getEnvDuration(EnvDBLockTimeout, DefaultDBLockTimeout),
		DBMaxConns:       getEnvNum(EnvDBMaxConns, DefaultDBMaxConns),

		CacheURL:           getEnvStr(EnvCacheURL, DefaultCacheURL),
		CacheOpTimeout:     getEnvDuration(EnvCacheOpTimeout, DefaultCacheOpTimeout),
		CacheDefaultTTL:    getEnvDuration(EnvCacheDefaultTTL, DefaultCacheDefaultTTL),
		CacheBookListTTL:   getEnvDuration(EnvCacheBookListTTL, DefaultCacheBookListTTL),
		CacheLocalCapacity: getEnvNum(EnvCacheLocalCapacity, DefaultCacheLocalCapacity),

		Broker:             strings.ToLower(getEnvStr(EnvBroker, DefaultBroker)),
		AMQPURL:            getEnvStr(EnvAMQPURL, DefaultAMQPURL),
		EventsExchange:     getEnvStr(EnvEventsExchange, DefaultEventsExchange),
		DeadLetterExchange: getEnvStr(EnvDeadLetterExchange, DefaultDeadLetterExchange),
		PublishTimeout:     getEnvDuration(EnvPublishTimeout, DefaultPublishTimeout),
		NotifierGroupID:    getEnvStr(EnvNotifierGroupID, DefaultNotifierGroupID),

		RequestTimeout:    getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		MaxRequestSize:    getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),
		IdempotencyTTL:    getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		ServiceName: serviceName,

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	if cfg.Broker == BrokerKafka {
		kafkaCfg, err := kafka_config.Load()
		if err != nil {
			cfg.Log.Fatal(err.Error())
		}
		cfg.Kafka = kafkaCfg
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) SetPostgres() {
	cfg.Client.SetPostgres(cfg.Log, client.PostgresOptions{
		URL:            cfg.DatabaseURL,
		ConnectTimeout: cfg.DBConnectTimeout,
		MaxConns:       int32(cfg.DBMaxConns),
	})
}

func (cfg *Config) SetCache() {
	cfg.Client.SetCache(cfg.Log, client.CacheOptions{
		URL:           cfg.CacheURL,
		LocalCapacity: cfg.CacheLocalCapacity,
		LocalTTL:      cfg.CacheDefaultTTL,
		PingTimeout:   cfg.DBConnectTimeout,
	})
}

func (cfg *Config) SetPublisher() {
	cfg.Client.SetPublisher(cfg.Log, client.PublisherOptions{
		Broker:             cfg.Broker,
		AMQPURL:            cfg.AMQPURL,
		Exchange:           cfg.EventsExchange,
		DeadLetterExchange: cfg.DeadLetterExchange,
		Kafka:              cfg.Kafka,
		Source:             cfg.ServiceName,
	})
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.DatabaseURL == "" {
		errors = append(errors, "DatabaseURL cannot be empty")
	} else if !regexp.MustCompile(`^postgres(ql)?://`).MatchString(cfg.DatabaseURL) {
		errors = append(errors, fmt.Sprintf("DatabaseURL must start with 'postgres://' or 'postgresql://', got: %s", redactURL(cfg.DatabaseURL)))
	}
	if cfg.DBConnectTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("DBConnectTimeout must be positive, got: %s", cfg.DBConnectTimeout))
	}
	if cfg.DBLockTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("DBLockTimeout must be positive, got: %s", cfg.DBLockTimeout))
	}
	if cfg.DBMaxConns <= 0 {
		errors = append(errors, fmt.Sprintf("DBMaxConns must be positive, got: %d", cfg.DBMaxConns))
	}

	switch {
	case cfg.CacheURL == CacheLocal, cfg.CacheURL == CacheNone:
	case regexp.MustCompile(`^rediss?://`).MatchString(cfg.CacheURL):
	default:
		errors = append(errors, fmt.Sprintf("CacheURL must be 'redis://...', 'rediss://...', 'local' or 'none', got: %s", redactURL(cfg.CacheURL)))
	}
	if cfg.CacheOpTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("CacheOpTimeout must be positive, got: %s", cfg.CacheOpTimeout))
	}
	if cfg.CacheDefaultTTL <= 0 {
		errors = append(errors, fmt.Sprintf("CacheDefaultTTL must be positive, got: %s", cfg.CacheDefaultTTL))
	}
	if cfg.CacheBookListTTL <= 0 {
		errors = append(errors, fmt.Sprintf("CacheBookListTTL must be positive, got: %s", cfg.CacheBookListTTL))
	}
	if cfg.CacheURL == CacheLocal && cfg.CacheLocalCapacity <= 0 {
		errors = append(errors, fmt.Sprintf("CacheLocalCapacity must be positive, got: %d", cfg.CacheLocalCapacity))
	}

	switch cfg.Broker {
	case BrokerAMQP:
		if !regexp.MustCompile(`^amqps?://`).MatchString(cfg.AMQPURL) {
			errors = append(errors, fmt.Sprintf("AMQPURL must start with 'amqp://' or 'amqps://', got: %s", redactURL(cfg.AMQPURL)))
		}
	case BrokerKafka:
		if cfg.Kafka == nil {
			errors = append(errors, "Kafka configuration is required when Broker is 'kafka'")
		}
	case BrokerNone:
	default:
		errors = append(errors, fmt.Sprintf("Broker must be one of [amqp, kafka, none], got: %s", cfg.Broker))
	}
	if cfg.EventsExchange == "" {
		errors = append(errors, "EventsExchange cannot be empty")
	}
	if cfg.PublishTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("PublishTimeout must be positive, got: %s", cfg.PublishTimeout))
	}

	if cfg.RequestTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.IdempotencyTTL <= 0 {
		errors = append(errors, fmt.Sprintf("IdempotencyTTL must be positive, got: %s", cfg.IdempotencyTTL))
	}
	if cfg.RateLimitRequests < 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests cannot be negative, got: %d", cfg.RateLimitRequests))
	}
	if cfg.RateLimitWindow <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitWindow must be positive, got: %s", cfg.RateLimitWindow))
	}
	if cfg.ReadTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"port", cfg.Port,
		"database_url", redactURL(cfg.DatabaseURL),
		"db_connect_timeout", cfg.DBConnectTimeout,
		"db_lock_timeout", cfg.DBLockTimeout,
		"db_max_conns", cfg.DBMaxConns,
		"cache_url", redactURL(cfg.CacheURL),
		"cache_op_timeout", cfg.CacheOpTimeout,
		"cache_default_ttl", cfg.CacheDefaultTTL,
		"cache_book_list_ttl", cfg.CacheBookListTTL,
		"broker", cfg.Broker,
		"amqp_url", redactURL(cfg.AMQPURL),
		"events_exchange", cfg.EventsExchange,
		"publish_timeout", cfg.PublishTimeout,
		"request_timeout", cfg.RequestTimeout,
		"max_request_size", cfg.MaxRequestSize,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
	)
	if cfg.Kafka != nil {
		cfg.Kafka.LogConfiguration(cfg.Log.Info)
	}
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log)
}

var credentialRegex = regexp.MustCompile(`(://)[^:/@]+:[^@]+@`)

func redactURL(uri string) string {
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
