package config

import (
	// Go Internal Packages
	"log"
	"strings"
	"time"

	// Local Packages
	domainErrors "pinkpay/internal/errors"

	// External Packages
	"github.com/joho/godotenv"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
)

// EnvPrefix marks environment overrides, e.g. PINKPAY_TOKENS__TTL=48h.
const EnvPrefix = "PINKPAY_"

var DefaultConfig = []byte(`
application: "pinkpay-switch"
is_prod_mode: false

logger:
  level: "debug"
  encoding: "logfmt"

http:
  port: "3000"
  allow_origins: "http://localhost:5173"
  pay_limit_per_minute: 30
  refund_limit_per_minute: 10
  admin_key: ""

storage:
  driver: "memory"

postgres:
  host: "localhost"
  port: "5432"
  user: "postgres"
  password: ""
  name: "pinkpay"
  sslmode: "disable"
  max_idle_conns: 10
  max_open_conns: 50
  conn_max_lifetime: 1h

redis:
  enabled: false
  uri: "localhost:6379"
  password: ""
  db: 0
  cache_ttl: 10m
  dlq_key: "pinkpay:failed-tasks"

kafka:
  enabled: false
  brokers:
    - "localhost:9092"
  topic: "transaction-events"
  client_id: "pinkpay-switch"

plugins:
  enabled:
    - "fx_converter"
    - "risk_checker"
    - "token_handler"
  timeout: 2s

risk:
  base_currency: "MYR"
  high_amount: 10000
  very_high_amount: 50000
  suspicious_frequency: 10
  velocity_limit: 50000
  auto_block_threshold: 85
  manual_review_threshold: 70
  renormalize_weights: false

tokens:
  ttl: 24h
  min_amount: 5
  max_amount: 1000
  max_active_per_user: 5
  currencies:
    - "MYR"
    - "USD"
    - "SGD"
  signing_secret: ""

qr:
  default_ttl: 15m

queue:
  workers: 4
  max_retries: 3
  async_processing: true

sweeper:
  interval: 5m

settlement:
  simulate_delay: true
`)

type Config struct {
	Application string     `koanf:"application"`
	IsProdMode  bool       `koanf:"is_prod_mode"`
	Logger      Logger     `koanf:"logger"`
	HTTP        HTTP       `koanf:"http"`
	Storage     Storage    `koanf:"storage"`
	Postgres    Postgres   `koanf:"postgres"`
	Redis       Redis      `koanf:"redis"`
	Kafka       Kafka      `koanf:"kafka"`
	Plugins     Plugins    `koanf:"plugins"`
	Risk        Risk       `koanf:"risk"`
	Tokens      Tokens     `koanf:"tokens"`
	QR          QR         `koanf:"qr"`
	Queue       Queue      `koanf:"queue"`
	Sweeper     Sweeper    `koanf:"sweeper"`
	Settlement  Settlement `koanf:"settlement"`
}

type Logger struct {
	Level    string `koanf:"level"`
	Encoding string `koanf:"encoding"`
}

type HTTP struct {
	Port                 string `koanf:"port"`
	AllowOrigins         string `koanf:"allow_origins"`
	PayLimitPerMinute    int    `koanf:"pay_limit_per_minute"`
	RefundLimitPerMinute int    `koanf:"refund_limit_per_minute"`
	AdminKey             string `koanf:"admin_key"`
}

type Storage struct {
	Driver string `koanf:"driver"`
}

type Postgres struct {
	Host            string        `koanf:"host"`
	Port            string        `koanf:"port"`
	User            string        `koanf:"user"`
	Password        string        `koanf:"password"`
	Name            string        `koanf:"name"`
	SSLMode         string        `koanf:"sslmode"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

type Redis struct {
	Enabled  bool          `koanf:"enabled"`
	URI      string        `koanf:"uri"`
	Password string        `koanf:"password"`
	DB       int           `koanf:"db"`
	CacheTTL time.Duration `koanf:"cache_ttl"`
	DLQKey   string        `koanf:"dlq_key"`
}

type Kafka struct {
	Enabled  bool     `koanf:"enabled"`
	Brokers  []string `koanf:"brokers"`
	Topic    string   `koanf:"topic"`
	ClientID string   `koanf:"client_id"`
}

type Plugins struct {
	Enabled []string      `koanf:"enabled"`
	Timeout time.Duration `koanf:"timeout"`
}

type Risk struct {
	BaseCurrency          string  `koanf:"base_currency"`
	HighAmount            float64 `koanf:"high_amount"`
	VeryHighAmount        float64 `koanf:"very_high_amount"`
	SuspiciousFrequency   int     `koanf:"suspicious_frequency"`
	VelocityLimit         float64 `koanf:"velocity_limit"`
	AutoBlockThreshold    float64 `koanf:"auto_block_threshold"`
	ManualReviewThreshold float64 `koanf:"manual_review_threshold"`
	RenormalizeWeights    bool    `koanf:"renormalize_weights"`
}

type Tokens struct {
	TTL              time.Duration `koanf:"ttl"`
	MinAmount        float64       `koanf:"min_amount"`
	MaxAmount        float64       `koanf:"max_amount"`
	MaxActivePerUser int           `koanf:"max_active_per_user"`
	Currencies       []string      `koanf:"currencies"`
	SigningSecret    string        `koanf:"signing_secret"`
}

type QR struct {
	DefaultTTL time.Duration `koanf:"default_ttl"`
}

type Queue struct {
	Workers         int  `koanf:"workers"`
	MaxRetries      int  `koanf:"max_retries"`
	AsyncProcessing bool `koanf:"async_processing"`
}

type Sweeper struct {
	Interval time.Duration `koanf:"interval"`
}

type Settlement struct {
	SimulateDelay bool `koanf:"simulate_delay"`
}

// LoadEnv loads variables from a .env file if present.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file found: %v", err)
	}
}

// Load layers the defaults, the optional YAML file at path and PINKPAY_*
// environment variables, in that order.
func Load(path string) (*Config, *koanf.Koanf, error) {
	LoadEnv()

	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(DefaultConfig), yaml.Parser()); err != nil {
		return nil, nil, err
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			log.Printf("config file %s not loaded: %v", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, nil, err
	}
	return cfg, k, nil
}

// envKey maps PINKPAY_TOKENS__SIGNING_SECRET to tokens.signing_secret.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	ve := domainErrors.ValidationErrs()

	if c.Application == "" {
		ve.Add("application", "cannot be empty")
	}
	if c.Logger.Level == "" {
		ve.Add("logger.level", "cannot be empty")
	}
	if c.HTTP.Port == "" {
		ve.Add("http.port", "cannot be empty")
	}
	switch c.Storage.Driver {
	case "memory":
	case "postgres":
		if c.Postgres.Host == "" || c.Postgres.Name == "" {
			ve.Add("postgres", "host and name are required for the postgres driver")
		}
	default:
		ve.Add("storage.driver", "must be memory or postgres")
	}
	if c.Redis.Enabled && c.Redis.URI == "" {
		ve.Add("redis.uri", "cannot be empty when redis is enabled")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		ve.Add("kafka.brokers", "cannot be empty when kafka is enabled")
	}
	if c.Plugins.Timeout <= 0 {
		ve.Add("plugins.timeout", "must be positive")
	}
	if c.Risk.ManualReviewThreshold > c.Risk.AutoBlockThreshold {
		ve.Add("risk.manual_review_threshold", "cannot exceed auto_block_threshold")
	}
	if c.Tokens.TTL <= 0 {
		ve.Add("tokens.ttl", "must be positive")
	}
	if c.Tokens.MinAmount <= 0 || c.Tokens.MaxAmount < c.Tokens.MinAmount {
		ve.Add("tokens.min_amount", "must be positive and not above max_amount")
	}
	if len(c.Tokens.Currencies) == 0 {
		ve.Add("tokens.currencies", "cannot be empty")
	}
	if c.IsProdMode && len(c.Tokens.SigningSecret) < 32 {
		ve.Add("tokens.signing_secret", "must be at least 32 characters in production")
	}
	if c.QR.DefaultTTL <= 0 {
		ve.Add("qr.default_ttl", "must be positive")
	}
	if c.Queue.Workers <= 0 {
		ve.Add("queue.workers", "must be positive")
	}
	if c.Queue.MaxRetries < 0 {
		ve.Add("queue.max_retries", "cannot be negative")
	}
	if c.Sweeper.Interval <= 0 {
		ve.Add("sweeper.interval", "must be positive")
	}

	return ve.Err()
}

// PluginEnabled reports whether name appears in plugins.enabled.
func (c *Config) PluginEnabled(name string) bool {
	for _, p := range c.Plugins.Enabled {
		if p == name {
			return true
		}
	}
	return false
}
