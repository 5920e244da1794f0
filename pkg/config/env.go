package config

const (
	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvDatabaseURL      = "DATABASE_URL"
	EnvDBConnectTimeout = "DB_CONNECT_TIMEOUT"
	EnvDBLockTimeout    = "DB_LOCK_TIMEOUT"
	EnvDBMaxConns       = "DB_MAX_CONNS"

	EnvCacheURL           = "CACHE_URL"
	EnvCacheOpTimeout     = "CACHE_OP_TIMEOUT"
	EnvCacheDefaultTTL    = "CACHE_DEFAULT_TTL"
	EnvCacheBookListTTL   = "CACHE_BOOK_LIST_TTL"
	EnvCacheLocalCapacity = "CACHE_LOCAL_CAPACITY"

	EnvBroker             = "BROKER"
	EnvAMQPURL            = "AMQP_URL"
	EnvEventsExchange     = "EVENTS_EXCHANGE"
	EnvDeadLetterExchange = "DEAD_LETTER_EXCHANGE"
	EnvPublishTimeout     = "PUBLISH_TIMEOUT"
	EnvNotifierGroupID    = "NOTIFIER_GROUP_ID"

	EnvRequestTimeout    = "REQUEST_TIMEOUT"
	EnvMaxRequestSize    = "MAX_REQUEST_SIZE"
	EnvIdempotencyTTL    = "IDEMPOTENCY_TTL"
	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
)
