package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds every setting the service reads from the environment.
type Config struct {
	Server      ServerConfig
	Log         LogConfig
	Storefront  StorefrontConfig
	Search      SearchConfig
	Aggregation AggregationConfig
	Regions     RegionsConfig
	Cache       CacheConfig
	Database    DatabaseConfig
	Events      EventsConfig
	Scheduler   SchedulerConfig
}

type ServerConfig struct {
	Host            string        `envconfig:"HOST" default:"0.0.0.0"`
	Port            string        `envconfig:"PORT" default:"8080"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"15s"`
	APIKeys         []string      `envconfig:"API_KEYS"`
	AllowedOrigins  []string      `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`
	RateLimitRPS    float64       `envconfig:"RATE_LIMIT_RPS" default:"10"`
}

type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"`
}

// SearchConfig tunes matching and classification.
type SearchConfig struct {
	MinScore           int           `envconfig:"SEARCH_MIN_SCORE" default:"50"`
	DominanceRatio     float64       `envconfig:"SEARCH_DOMINANCE_RATIO" default:"1.5"`
	AmbiguousTopK      int           `envconfig:"SEARCH_AMBIGUOUS_TOP_K" default:"5"`
	ResolverMinScore   int           `envconfig:"RESOLVER_MIN_SCORE" default:"500"`
	Sources            []string      `envconfig:"SEARCH_SOURCES" default:"europe,americas"`
	MinQueryLength     int           `envconfig:"SEARCH_MIN_QUERY_LENGTH" default:"2"`
	MaxQueryLength     int           `envconfig:"SEARCH_MAX_QUERY_LENGTH" default:"100"`
	ResolverMaxWords   int           `envconfig:"RESOLVER_MAX_WORDS" default:"3"`
	CatalogSnapshotTTL time.Duration `envconfig:"CATALOG_SNAPSHOT_TTL" default:"1h"`
}

// AggregationConfig tunes the regional fan-out.
type AggregationConfig struct {
	BatchSize      int           `envconfig:"AGGREGATION_BATCH_SIZE" default:"5"`
	BatchDelay     time.Duration `envconfig:"AGGREGATION_BATCH_DELAY" default:"2s"`
	PriceTTL       time.Duration `envconfig:"PRICE_CACHE_TTL" default:"15m"`
	IdentifierTTL  time.Duration `envconfig:"IDENTIFIER_CACHE_TTL" default:"1h"`
	CommonCurrency string        `envconfig:"COMMON_CURRENCY" default:"SGD"`
	RatesTTL       time.Duration `envconfig:"RATES_CACHE_TTL" default:"30m"`
}

type RegionsConfig struct {
	LiveRefresh bool          `envconfig:"REGIONS_LIVE_REFRESH" default:"false"`
	LiveTTL     time.Duration `envconfig:"REGIONS_LIVE_TTL" default:"1h"`
	ExtraCodes  []string      `envconfig:"REGIONS_EXTRA_CODES"`
}

// CacheConfig selects where cached values survive restarts.
type CacheConfig struct {
	Backend       string `envconfig:"CACHE_BACKEND" default:"memory"`
	MaxKeys       int    `envconfig:"CACHE_MAX_KEYS" default:"5000"`
	PebbleDir     string `envconfig:"CACHE_PEBBLE_DIR" default:"./data/cache"`
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
}

type DatabaseConfig struct {
	URL string `envconfig:"DATABASE_URL"`
}

type EventsConfig struct {
	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"eshop.price-sets"`
}

type SchedulerConfig struct {
	RefreshSpec   string        `envconfig:"REFRESH_CRON" default:"0 */15 * * * *"`
	PopularLimit  int           `envconfig:"REFRESH_POPULAR_LIMIT" default:"10"`
	PopularTitles []string      `envconfig:"REFRESH_POPULAR_TITLES" default:"Mario Kart 8 Deluxe,Super Mario Odyssey,Super Smash Bros. Ultimate"`
	RatesInterval time.Duration `envconfig:"RATES_REFRESH_INTERVAL" default:"30m"`
	TaskWorkers   int           `envconfig:"LOOKUP_WORKERS" default:"5"`
	TaskQueueSize int           `envconfig:"LOOKUP_QUEUE_SIZE" default:"100"`
	TaskRetention time.Duration `envconfig:"LOOKUP_RETENTION" default:"1h"`
}

// Address returns the listen address for the HTTP server.
func (c ServerConfig) Address() string {
	return c.Host + ":" + c.Port
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to process env config: %w", err)
	}
	return cfg, nil
}

// NewTestConfig returns a config suitable for unit tests: no delays, no
// persistence, no live refresh.
func NewTestConfig() Config {
	return Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            "8889",
			ShutdownTimeout: time.Second,
			RateLimitRPS:    1000,
		},
		Log: LogConfig{Level: "error", Format: "text"},
		Storefront: StorefrontConfig{
			UserAgent:      "eshopscout-test",
			RequestsPerSec: 1000,
			MaxRetries:     0,
			CatalogTimeout: 2 * time.Second,
			PriceTimeout:   2 * time.Second,
			RatesTimeout:   2 * time.Second,
		},
		Search: SearchConfig{
			MinScore:           50,
			DominanceRatio:     1.5,
			AmbiguousTopK:      5,
			ResolverMinScore:   500,
			Sources:            []string{"europe"},
			MinQueryLength:     2,
			MaxQueryLength:     100,
			ResolverMaxWords:   3,
			CatalogSnapshotTTL: time.Hour,
		},
		Aggregation: AggregationConfig{
			BatchSize:      5,
			BatchDelay:     0,
			PriceTTL:       15 * time.Minute,
			IdentifierTTL:  time.Hour,
			CommonCurrency: "SGD",
			RatesTTL:       30 * time.Minute,
		},
		Regions: RegionsConfig{LiveTTL: time.Hour},
		Cache:   CacheConfig{Backend: "memory", MaxKeys: 100},
		Scheduler: SchedulerConfig{
			RefreshSpec:   "0 */15 * * * *",
			PopularLimit:  5,
			RatesInterval: time.Minute,
			TaskWorkers:   2,
			TaskQueueSize: 10,
			TaskRetention: time.Hour,
		},
	}
}
