package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/jwalitptl/practice-api/internal/middleware"
	"github.com/jwalitptl/practice-api/internal/repository/mongodb"
	"github.com/jwalitptl/practice-api/internal/repository/postgres"
	"github.com/jwalitptl/practice-api/pkg/assets"
	"github.com/jwalitptl/practice-api/pkg/generator"
	"github.com/jwalitptl/practice-api/pkg/logger"
	"github.com/jwalitptl/practice-api/pkg/messaging/redis"
	"github.com/jwalitptl/practice-api/pkg/worker"
)

// EnvPrefix prefixes every environment override, e.g. PRACTICE_MONGO_URI.
const EnvPrefix = "PRACTICE"

type Config struct {
	Server    ServerConfig    `mapstructure:"server" envconfig:"server"`
	Store     string          `mapstructure:"store" envconfig:"store"`
	Mongo     MongoConfig     `mapstructure:"mongo" envconfig:"mongo"`
	Postgres  DatabaseConfig  `mapstructure:"postgres" envconfig:"postgres"`
	Redis     RedisConfig     `mapstructure:"redis" envconfig:"redis"`
	Outbox    OutboxConfig    `mapstructure:"outbox" envconfig:"outbox"`
	Assets    AssetsConfig    `mapstructure:"assets" envconfig:"assets"`
	Generator GeneratorConfig `mapstructure:"generator" envconfig:"generator"`
	Auth      AuthConfig      `mapstructure:"auth" envconfig:"auth"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit" envconfig:"rate_limit"`
	CORS      CORSConfig      `mapstructure:"cors" envconfig:"cors"`
	Cascade   CascadeConfig   `mapstructure:"cascade" envconfig:"cascade"`
	Log       LogConfig       `mapstructure:"log" envconfig:"log"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port" envconfig:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout" envconfig:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout" envconfig:"write_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" envconfig:"request_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes" envconfig:"max_header_bytes"`
	MetricsPath    string        `mapstructure:"metrics_path" envconfig:"metrics_path"`
}

type MongoConfig struct {
	URI            string        `mapstructure:"uri" envconfig:"uri"`
	Database       string        `mapstructure:"database" envconfig:"database"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" envconfig:"connect_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host" envconfig:"host"`
	Port     int    `mapstructure:"port" envconfig:"port"`
	User     string `mapstructure:"user" envconfig:"user"`
	Password string `mapstructure:"password" envconfig:"password"`
	Name     string `mapstructure:"name" envconfig:"name"`
	SSLMode  string `mapstructure:"sslmode" envconfig:"sslmode"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url" envconfig:"url"`
	MaxRetries   int           `mapstructure:"max_retries" envconfig:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff" envconfig:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size" envconfig:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns" envconfig:"min_idle_conns"`
}

type OutboxConfig struct {
	BatchSize       int           `mapstructure:"batch_size" envconfig:"batch_size"`
	PollInterval    time.Duration `mapstructure:"poll_interval" envconfig:"poll_interval"`
	RetryAttempts   int           `mapstructure:"retry_attempts" envconfig:"retry_attempts"`
	RetryDelay      time.Duration `mapstructure:"retry_delay" envconfig:"retry_delay"`
	MaxDeliveries   int           `mapstructure:"max_deliveries" envconfig:"max_deliveries"`
	ChannelPrefix   string        `mapstructure:"channel_prefix" envconfig:"channel_prefix"`
	Retention       time.Duration `mapstructure:"retention" envconfig:"retention"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" envconfig:"cleanup_interval"`
}

type AssetsConfig struct {
	Driver          string `mapstructure:"driver" envconfig:"driver"`
	PublicBaseURL   string `mapstructure:"public_base_url" envconfig:"public_base_url"`
	LocalRoot       string `mapstructure:"local_root" envconfig:"local_root"`
	Bucket          string `mapstructure:"bucket" envconfig:"bucket"`
	Region          string `mapstructure:"region" envconfig:"region"`
	Endpoint        string `mapstructure:"endpoint" envconfig:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id" envconfig:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key" envconfig:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style" envconfig:"use_path_style"`
}

type GeneratorConfig struct {
	Endpoint string        `mapstructure:"endpoint" envconfig:"endpoint"`
	Model    string        `mapstructure:"model" envconfig:"model"`
	APIKey   string        `mapstructure:"api_key" envconfig:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout" envconfig:"timeout"`
	CacheTTL time.Duration `mapstructure:"cache_ttl" envconfig:"cache_ttl"`
}

type AuthConfig struct {
	Secret string `mapstructure:"secret" envconfig:"secret"`
	Issuer string `mapstructure:"issuer" envconfig:"issuer"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled" envconfig:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" envconfig:"requests_per_second"`
	Burst             int     `mapstructure:"burst" envconfig:"burst"`
}

// CORSConfig lists the dashboard origins allowed to call the API.
type CORSConfig struct {
	AllowOrigins     []string `mapstructure:"allow_origins" envconfig:"allow_origins"`
	AllowHeaders     []string `mapstructure:"allow_headers" envconfig:"allow_headers"`
	ExposeHeaders    []string `mapstructure:"expose_headers" envconfig:"expose_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials" envconfig:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age" envconfig:"max_age"`
}

type CascadeConfig struct {
	Concurrency int `mapstructure:"concurrency" envconfig:"concurrency"`
}

type LogConfig struct {
	Level string `mapstructure:"level" envconfig:"level"`
	JSON  bool   `mapstructure:"json" envconfig:"json"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.request_timeout", 25*time.Second)
	v.SetDefault("server.max_header_bytes", 1<<20)
	v.SetDefault("server.metrics_path", "/metrics")
	v.SetDefault("store", "mongo")
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "practice")
	v.SetDefault("mongo.connect_timeout", 10*time.Second)
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", 100*time.Millisecond)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("outbox.batch_size", 100)
	v.SetDefault("outbox.poll_interval", 5*time.Second)
	v.SetDefault("outbox.retry_attempts", 3)
	v.SetDefault("outbox.retry_delay", time.Second)
	v.SetDefault("outbox.max_deliveries", 5)
	v.SetDefault("outbox.channel_prefix", "practice.")
	v.SetDefault("outbox.retention", 7*24*time.Hour)
	v.SetDefault("outbox.cleanup_interval", time.Hour)
	v.SetDefault("assets.driver", "none")
	v.SetDefault("generator.endpoint", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("generator.model", "gemini-2.0-flash")
	v.SetDefault("generator.timeout", 30*time.Second)
	v.SetDefault("generator.cache_ttl", 10*time.Minute)
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 20)
	v.SetDefault("rate_limit.burst", 40)
	cors := middleware.DefaultCORSConfig()
	v.SetDefault("cors.allow_origins", cors.AllowOrigins)
	v.SetDefault("cors.allow_headers", cors.AllowHeaders)
	v.SetDefault("cors.expose_headers", cors.ExposeHeaders)
	v.SetDefault("cors.allow_credentials", cors.AllowCredentials)
	v.SetDefault("cors.max_age", cors.MaxAge)
	v.SetDefault("cascade.concurrency", 8)
	v.SetDefault("log.level", "info")
}

// Load reads the YAML file at path (or config.yml from the usual locations
// when path is empty) and then applies PRACTICE_* environment overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yml")
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/app/config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Store {
	case "mongo":
		if c.Mongo.URI == "" {
			errs = append(errs, errors.New("mongo.uri is required"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown store %q", c.Store))
	}
	if c.Server.Port <= 0 {
		errs = append(errs, errors.New("server.port must be positive"))
	}
	if c.Cascade.Concurrency <= 0 {
		errs = append(errs, errors.New("cascade.concurrency must be positive"))
	}
	if c.Outbox.BatchSize <= 0 || c.Outbox.PollInterval <= 0 {
		errs = append(errs, errors.New("outbox batch_size and poll_interval must be positive"))
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerSecond <= 0 {
		errs = append(errs, errors.New("rate_limit.requests_per_second must be positive"))
	}
	if len(c.CORS.AllowOrigins) == 0 {
		errs = append(errs, errors.New("cors.allow_origins must list at least one origin"))
	}
	switch c.Assets.Driver {
	case "s3":
		if c.Assets.Bucket == "" {
			errs = append(errs, errors.New("assets.bucket is required for the s3 driver"))
		}
	case "local", "none":
	default:
		errs = append(errs, fmt.Errorf("unknown assets driver %q", c.Assets.Driver))
	}
	return errors.Join(errs...)
}

func (c *Config) ToMongoConfig() mongodb.Config {
	return mongodb.Config{
		URI:            c.Mongo.URI,
		Database:       c.Mongo.Database,
		ConnectTimeout: c.Mongo.ConnectTimeout,
	}
}

func (c *DatabaseConfig) ToPostgresConfig() postgres.Config {
	return postgres.Config{
		Host:     c.Host,
		Port:     c.Port,
		User:     c.User,
		Password: c.Password,
		Name:     c.Name,
		SSLMode:  c.SSLMode,
	}
}

func (c *OutboxConfig) ToWorkerConfig() worker.OutboxProcessorConfig {
	return worker.OutboxProcessorConfig{
		BatchSize:     c.BatchSize,
		PollInterval:  c.PollInterval,
		RetryAttempts: c.RetryAttempts,
		RetryDelay:    c.RetryDelay,
		MaxDeliveries: c.MaxDeliveries,
		ChannelPrefix: c.ChannelPrefix,
	}
}

func (c *RedisConfig) ToBrokerConfig() redis.Config {
	return redis.Config{
		URL:          c.URL,
		MaxRetries:   c.MaxRetries,
		RetryBackoff: c.RetryBackoff,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
	}
}

func (c *AssetsConfig) ToAssetsConfig() assets.Config {
	return assets.Config{
		Driver:        c.Driver,
		PublicBaseURL: c.PublicBaseURL,
		LocalRoot:     c.LocalRoot,
		S3: assets.S3Config{
			Bucket:          c.Bucket,
			Region:          c.Region,
			Endpoint:        c.Endpoint,
			AccessKeyID:     c.AccessKeyID,
			SecretAccessKey: c.SecretAccessKey,
			UsePathStyle:    c.UsePathStyle,
		},
	}
}

func (c *GeneratorConfig) ToGeneratorConfig() generator.Config {
	return generator.Config{
		Endpoint: c.Endpoint,
		Model:    c.Model,
		APIKey:   c.APIKey,
		Timeout:  c.Timeout,
		CacheTTL: c.CacheTTL,
	}
}

func (c *CORSConfig) ToCORSConfig() middleware.CORSConfig {
	return middleware.CORSConfig{
		AllowOrigins:     c.AllowOrigins,
		AllowHeaders:     c.AllowHeaders,
		ExposeHeaders:    c.ExposeHeaders,
		AllowCredentials: c.AllowCredentials,
		MaxAge:           c.MaxAge,
	}
}

func (c *LogConfig) ToLoggerConfig() *logger.Config {
	return &logger.Config{
		Level:      logger.ParseLevel(c.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		JSON:       c.JSON,
	}
}
