package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the complete service configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
	RabbitMQ RabbitMQConfig `mapstructure:"rabbitmq"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	Log      LogConfig      `mapstructure:"log"`
}

type AppConfig struct {
	Name            string        `mapstructure:"name"`
	Env             string        `mapstructure:"env"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type ServerConfig struct {
	Port         int             `mapstructure:"port"`
	ReadTimeout  time.Duration   `mapstructure:"read_timeout"`
	WriteTimeout time.Duration   `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration   `mapstructure:"idle_timeout"`
	CORS         CORSConfig      `mapstructure:"cors"`
	RateLimit    RateLimitConfig `mapstructure:"rate_limit"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	MaxAge         int      `mapstructure:"max_age"`
}

type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"`
	Burst   int     `mapstructure:"burst"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	DB             string `mapstructure:"db"`
	SSLMode        string `mapstructure:"sslmode"`
	MaxConns       int32  `mapstructure:"max_conns"`
	MigrationsPath string `mapstructure:"migrations_path"`
}

// DSN returns a libpq-style connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DB, c.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type RabbitMQConfig struct {
	Enabled    bool         `mapstructure:"enabled"`
	Host       string       `mapstructure:"host"`
	Port       int          `mapstructure:"port"`
	User       string       `mapstructure:"user"`
	Password   string       `mapstructure:"password"`
	Exchange   string       `mapstructure:"exchange"`
	RoutingKey string       `mapstructure:"routing_key"`
	Queue      string       `mapstructure:"queue"`
	Outbox     OutboxConfig `mapstructure:"outbox"`
}

// URL returns the AMQP connection URL.
func (c RabbitMQConfig) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/", c.User, c.Password, c.Host, c.Port)
}

type OutboxConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	BatchSize    int           `mapstructure:"batch_size"`
	MaxRetries   int           `mapstructure:"max_retries"`
	BaseBackoff  time.Duration `mapstructure:"base_backoff"`
}

type AuthConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

type AuditConfig struct {
	PurgeSchedule string `mapstructure:"purge_schedule"`
	DaysToKeep    int    `mapstructure:"days_to_keep"`
}

type TracingConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	SampleRatio    float64 `mapstructure:"sample_ratio"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "shop-svc")
	v.SetDefault("app.env", "production")
	v.SetDefault("app.shutdown_timeout", 10*time.Second)

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.cors.allowed_origins", []string{"*"})
	v.SetDefault("server.cors.max_age", 300)
	v.SetDefault("server.rate_limit.enabled", true)
	v.SetDefault("server.rate_limit.rps", 50)
	v.SetDefault("server.rate_limit.burst", 100)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.db", "shop")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.migrations_path", "./migrations")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.ttl", 5*time.Minute)

	v.SetDefault("rabbitmq.enabled", false)
	v.SetDefault("rabbitmq.host", "rabbitmq")
	v.SetDefault("rabbitmq.port", 5672)
	v.SetDefault("rabbitmq.user", "guest")
	v.SetDefault("rabbitmq.password", "guest")
	v.SetDefault("rabbitmq.exchange", "shop.audit")
	v.SetDefault("rabbitmq.routing_key", "audit.entry.created")
	v.SetDefault("rabbitmq.queue", "shop.audit.entries")
	v.SetDefault("rabbitmq.outbox.poll_interval", 10*time.Second)
	v.SetDefault("rabbitmq.outbox.batch_size", 100)
	v.SetDefault("rabbitmq.outbox.max_retries", 5)
	v.SetDefault("rabbitmq.outbox.base_backoff", 30*time.Second)

	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.issuer", "shop-svc")

	v.SetDefault("audit.purge_schedule", "0 3 * * *")
	v.SetDefault("audit.days_to_keep", 365)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.jaeger_endpoint", "http://jaeger:14268/api/traces")
	v.SetDefault("tracing.sample_ratio", 1.0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load reads configuration from an optional .env file, an optional
// config.yaml and SHOP_* environment variables, in increasing priority.
func Load(paths ...string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"/etc/shop-svc", "."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix("SHOP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// MustLoad is Load that panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic("error while loading config: " + err.Error())
	}

	return cfg
}

// Development reports whether the service runs in a development environment.
func (c *Config) Development() bool {
	return c.App.Env == "development" || c.App.Env == "dev" || c.App.Env == "local"
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required when auth is enabled")
	}
	if c.Audit.DaysToKeep < 0 {
		return fmt.Errorf("invalid audit.days_to_keep %d", c.Audit.DaysToKeep)
	}

	return nil
}
