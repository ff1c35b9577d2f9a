package config

import (
	"github.com/taskilo/mailsync/internal/logger"
	"github.com/taskilo/mailsync/internal/tracing"
)

type AppConfig struct {
	APIPort     string `env:"PORT,required" envDefault:"12333"`
	APIKey      string `env:"API_KEY,required"`
	RabbitMQURL string `env:"RABBITMQ_URL"`
	Logger      *logger.Config
	Tracing     *tracing.JaegerConfig
}

type DatabaseConfig struct {
	Host            string `env:"MAILSYNC_POSTGRES_HOST,required"`
	Port            string `env:"MAILSYNC_POSTGRES_PORT,required"`
	User            string `env:"MAILSYNC_POSTGRES_USER,required"`
	DBName          string `env:"MAILSYNC_POSTGRES_DB_NAME,required"`
	Password        string `env:"MAILSYNC_POSTGRES_PASSWORD,required"`
	MaxConn         int    `env:"MAILSYNC_POSTGRES_DB_MAX_CONN"`
	MaxIdleConn     int    `env:"MAILSYNC_POSTGRES_DB_MAX_IDLE_CONN"`
	ConnMaxLifetime int    `env:"MAILSYNC_POSTGRES_DB_CONN_MAX_LIFETIME"`
	LogLevel        string `env:"MAILSYNC_POSTGRES_LOG_LEVEL" envDefault:"WARN"`
	SSLMode         string `env:"MAILSYNC_POSTGRES_SSL_MODE"`
}

type GoogleOAuthConfig struct {
	ClientID     string `env:"GOOGLE_CLIENT_ID,required"`
	ClientSecret string `env:"GOOGLE_CLIENT_SECRET,required"`
	// PubSubTopic is the fully qualified Cloud Pub/Sub topic Gmail publishes
	// push notifications to, e.g. projects/my-project/topics/gmail-push.
	PubSubTopic string `env:"GMAIL_PUBSUB_TOPIC"`
}

type SyncConfig struct {
	HistoryPageSize      int64 `env:"SYNC_HISTORY_PAGE_SIZE" envDefault:"500"`
	FallbackLookbackDays int   `env:"SYNC_FALLBACK_LOOKBACK_DAYS" envDefault:"30"`
	FallbackMaxResults   int64 `env:"SYNC_FALLBACK_MAX_RESULTS" envDefault:"500"`
	ForceListMaxResults  int64 `env:"SYNC_FORCE_LIST_MAX_RESULTS" envDefault:"500"`
	ForceProcessLimit    int   `env:"SYNC_FORCE_PROCESS_LIMIT" envDefault:"100"`
	FetchConcurrency     int   `env:"SYNC_FETCH_CONCURRENCY" envDefault:"10"`
	FetchMaxAttempts     int   `env:"SYNC_FETCH_MAX_ATTEMPTS" envDefault:"3"`
	FetchBaseDelayMs     int   `env:"SYNC_FETCH_BASE_DELAY_MS" envDefault:"1000"`
	RequestTimeoutSec    int   `env:"SYNC_REQUEST_TIMEOUT_SEC" envDefault:"30"`
	WatchRenewalWindowHr int   `env:"WATCH_RENEWAL_WINDOW_HOURS" envDefault:"24"`
}
