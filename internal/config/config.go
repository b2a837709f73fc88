package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Chunk failure policies for the indexer. "fail" aborts the block so the
// checkpoint never advances past a chunk whose receipts were lost;
// "skip" drops the chunk's receipts and keeps going.
const (
	ChunkPolicyFail = "fail"
	ChunkPolicySkip = "skip"
)

// Config holds all configuration for the application
type Config struct {
	// NEAR RPC configuration
	NEAR NEARConfig

	// Database configuration
	Database DatabaseConfig

	// Redis configuration
	Redis RedisConfig

	// API server configuration
	API APIConfig

	// Indexer configuration
	Indexer IndexerConfig

	// Price feed configuration
	Pricing PricingConfig

	// Logging configuration
	Log LogConfig
}

// NEARConfig holds NEAR RPC connection settings
type NEARConfig struct {
	RPCURL         string        `envconfig:"NEAR_RPC_URL" default:"https://rpc.mainnet.near.org"`
	RequestTimeout time.Duration `envconfig:"NEAR_REQUEST_TIMEOUT" default:"30s"`
	MaxRetries     int           `envconfig:"NEAR_MAX_RETRIES" default:"3"`
	RetryDelay     time.Duration `envconfig:"NEAR_RETRY_DELAY" default:"1s"`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host            string        `envconfig:"DB_HOST" default:"localhost"`
	Port            int           `envconfig:"DB_PORT" default:"5432"`
	User            string        `envconfig:"DB_USER" default:"indexer"`
	Password        string        `envconfig:"DB_PASSWORD" default:"indexer"`
	Name            string        `envconfig:"DB_NAME" default:"donation_indexer"`
	SSLMode         string        `envconfig:"DB_SSL_MODE" default:"disable"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// APIConfig holds API server settings
type APIConfig struct {
	Host            string        `envconfig:"API_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"API_PORT" default:"8081"`
	ReadTimeout     time.Duration `envconfig:"API_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"API_WRITE_TIMEOUT" default:"10s"`
	ShutdownTimeout time.Duration `envconfig:"API_SHUTDOWN_TIMEOUT" default:"30s"`
	RateLimitRPS    int           `envconfig:"API_RATE_LIMIT_RPS" default:"100"`
	CacheTTL        time.Duration `envconfig:"API_CACHE_TTL" default:"30s"`
}

// IndexerConfig holds indexer-specific settings
type IndexerConfig struct {
	MetricsPort  int           `envconfig:"INDEXER_METRICS_PORT" default:"8080"`
	PollInterval time.Duration `envconfig:"INDEXER_POLL_INTERVAL" default:"5s"`

	// Block height to start from when no checkpoint exists. Zero means
	// "start a small offset behind the current chain head".
	StartBlockHeight uint64 `envconfig:"INDEXER_START_BLOCK_HEIGHT" default:"0"`
	StartOffset      uint64 `envconfig:"INDEXER_START_OFFSET" default:"10"`

	// What to do when a chunk fetch or a receipt within it fails:
	// "fail" retries the whole block, "skip" drops the chunk.
	ChunkFailurePolicy string `envconfig:"INDEXER_CHUNK_FAILURE_POLICY" default:"fail"`
}

// PricingConfig holds remote price feed settings
type PricingConfig struct {
	FeedURL        string        `envconfig:"PRICE_FEED_URL" default:"https://api.coingecko.com/api/v3"`
	TokenID        string        `envconfig:"PRICE_TOKEN_ID" default:"near"`
	VsCurrency     string        `envconfig:"PRICE_VS_CURRENCY" default:"usd"`
	CacheTTL       time.Duration `envconfig:"PRICE_CACHE_TTL" default:"5m"`
	RequestTimeout time.Duration `envconfig:"PRICE_REQUEST_TIMEOUT" default:"10s"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	switch cfg.Indexer.ChunkFailurePolicy {
	case ChunkPolicyFail, ChunkPolicySkip:
	default:
		return nil, fmt.Errorf("invalid INDEXER_CHUNK_FAILURE_POLICY %q", cfg.Indexer.ChunkFailurePolicy)
	}

	return &cfg, nil
}
