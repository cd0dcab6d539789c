package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string            `yaml:"environment" default:"development" validate:"required,oneof=development staging production test"`
	Log         LogConfig         `yaml:"log"`
	Server      ServerConfig      `yaml:"server"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Warehouse   WarehouseConfig   `yaml:"warehouse"`
	Cache       CacheConfig       `yaml:"cache"`
	Kafka       KafkaConfig       `yaml:"kafka"`
	Ingest      IngestConfig      `yaml:"ingest"`
	Aggregation AggregationConfig `yaml:"aggregation"`
	Forecast    ForecastConfig    `yaml:"forecast"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
}

type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" default:"console" validate:"oneof=console json"`
	Output string `yaml:"output" default:"stdout"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" default:"0.0.0.0"`
	Port            int           `yaml:"port" default:"8080" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	DisableCORS     bool          `yaml:"disable_cors"`
}

type MetricsConfig struct {
	Path          string        `yaml:"path" default:"/metrics"`
	SlowThreshold time.Duration `yaml:"slow_threshold" default:"2s"`
}

type WarehouseConfig struct {
	Driver           string        `yaml:"driver" default:"clickhouse" validate:"oneof=clickhouse mysql sqlite"`
	DSN              string        `yaml:"dsn" validate:"required_unless=Driver clickhouse"`
	Host             string        `yaml:"host" validate:"required_if=Driver clickhouse"`
	Port             int           `yaml:"port" default:"9000"`
	Database         string        `yaml:"database" default:"tourism"`
	User             string        `yaml:"user" default:"default"`
	Password         string        `yaml:"password"`
	Table            string        `yaml:"table" default:"cultural_tourism_events" validate:"required"`
	UseHTTP          bool          `yaml:"use_http"`
	AsyncInsert      bool          `yaml:"async_insert"`
	WaitForAsync     bool          `yaml:"wait_for_async_insert"`
	InitSchema       bool          `yaml:"init_schema"`
	MaxOpenConns     int           `yaml:"max_open_conns" default:"10"`
	MaxIdleConns     int           `yaml:"max_idle_conns" default:"5"`
	DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
	WriteTimeout     time.Duration `yaml:"write_timeout" default:"30s"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
}

type CacheConfig struct {
	Backend       string        `yaml:"backend" default:"memory" validate:"oneof=memory redis layered"`
	TTL           time.Duration `yaml:"ttl" default:"10m"`
	MemoryMaxSize int           `yaml:"memory_max_size" default:"1000" validate:"min=1"`
	Redis         RedisConfig   `yaml:"redis"`
}

type RedisConfig struct {
	Host     string `yaml:"host" default:"localhost"`
	Port     int    `yaml:"port" default:"6379"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix" default:"tourcast"`
}

type KafkaConfig struct {
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic" default:"tourism.events"`
	RequiredAcks int           `yaml:"required_acks" default:"-1"`
	Compression  string        `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
	Producer     KafkaProducer `yaml:"producer"`
	Consumer     KafkaConsumer `yaml:"consumer"`
}

type KafkaProducer struct {
	MaxAttempts  int           `yaml:"max_attempts" default:"3"`
	Linger       time.Duration `yaml:"linger" default:"1s"`
	BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
	BatchSize    int           `yaml:"batch_size" default:"100"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
	Async        bool          `yaml:"async"`
}

type KafkaConsumer struct {
	Disabled   bool          `yaml:"disabled"`
	GroupID    string        `yaml:"group_id" default:"tourcast"`
	Workers    int           `yaml:"workers" default:"2" validate:"min=1"`
	BufferSize int           `yaml:"buffer_size" default:"64"`
	RetryMax   int           `yaml:"retry_max" default:"3"`
	BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
	BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
	DLQTopic   string        `yaml:"dlq_topic" default:"tourism.events.dlq"`
	MinBytes   int           `yaml:"min_bytes" default:"1"`
	MaxBytes   int           `yaml:"max_bytes" default:"10000000"`
}

type IngestConfig struct {
	Backend   string `yaml:"backend" default:"warehouse" validate:"oneof=warehouse kafka"`
	BatchSize int    `yaml:"batch_size" default:"500" validate:"min=1"`
}

type AggregationConfig struct {
	InvalidRecordPolicy string `yaml:"invalid_record_policy" default:"skip" validate:"oneof=skip abort"`
}

type ForecastConfig struct {
	Engine                    string        `yaml:"engine" default:"native" validate:"oneof=native remote"`
	RemoteURL                 string        `yaml:"remote_url" validate:"required_if=Engine remote,omitempty,url"`
	RemoteTimeout             time.Duration `yaml:"remote_timeout" default:"15s"`
	DefaultHorizon            int           `yaml:"default_horizon" default:"24" validate:"min=1,max=1825"`
	MinPoints                 int           `yaml:"min_points" default:"30" validate:"min=2"`
	IntervalWidth             float64       `yaml:"interval_width" default:"0.8" validate:"gt=0,lt=1"`
	ChangepointPriorScale     float64       `yaml:"changepoint_prior_scale" default:"0.05" validate:"gt=0"`
	SeasonalityPriorScale     float64       `yaml:"seasonality_prior_scale" default:"10" validate:"gt=0"`
	NChangepoints             int           `yaml:"n_changepoints" default:"25" validate:"min=0"`
	ChangepointRange          float64       `yaml:"changepoint_range" default:"0.8" validate:"gt=0,lte=1"`
	DisableMonthlySeasonality bool          `yaml:"disable_monthly_seasonality"`
}

type RateLimitConfig struct {
	Disabled     bool    `yaml:"disabled"`
	Capacity     float64 `yaml:"capacity" default:"20" validate:"gt=0"`
	RefillPerSec float64 `yaml:"refill_per_sec" default:"2" validate:"gt=0"`
}

var (
	validate   = validator.New()
	identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)
)

// Default returns a configuration with every default applied and nothing read from disk.
func Default() *Config {
	var c Config
	_ = defaults.Set(&c)
	return &c
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	c, err := parse(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads .env (if present) and the YAML file, then applies environment overrides.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	c, err := parse(path)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func parse(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	return &c, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("WAREHOUSE_DRIVER"); v != "" {
		c.Warehouse.Driver = v
	}
	if v := os.Getenv("WAREHOUSE_DSN"); v != "" {
		c.Warehouse.DSN = v
	}
	if v := os.Getenv("WAREHOUSE_PASSWORD"); v != "" {
		c.Warehouse.Password = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		host, port, err := net.SplitHostPort(v)
		if err != nil {
			return fmt.Errorf("REDIS_ADDR: %w", err)
		}
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("REDIS_ADDR port: %w", err)
		}
		c.Cache.Redis.Host, c.Cache.Redis.Port = host, p
	}
	if v := os.Getenv("FORECAST_ENGINE"); v != "" {
		c.Forecast.Engine = v
	}
	if v := os.Getenv("FORECAST_REMOTE_URL"); v != "" {
		c.Forecast.RemoteURL = v
	}
	return nil
}

// Validate checks struct tags and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if !identifier.MatchString(c.Warehouse.Table) {
		return fmt.Errorf("warehouse.table %q is not a valid identifier", c.Warehouse.Table)
	}
	if c.Ingest.Backend == "kafka" && !c.KafkaEnabled() {
		return fmt.Errorf("ingest.backend 'kafka' requires kafka.brokers")
	}
	return nil
}

// KafkaEnabled reports whether any broker is configured.
func (c *Config) KafkaEnabled() bool {
	return len(c.Kafka.Brokers) > 0
}
