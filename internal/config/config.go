package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/jwalitptl/bloodlink-api/pkg/messaging/redis"
	"github.com/jwalitptl/bloodlink-api/pkg/worker"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	SMTP      SMTPConfig      `mapstructure:"smtp"`
	Inbox     InboxConfig     `mapstructure:"inbox"`
	Dispatch  DispatchConfig  `mapstructure:"dispatch"`
	Cache     CacheConfig     `mapstructure:"cache"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

type LogConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
}

type DatabaseConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password" envconfig:"PASSWORD"`
	Name        string `mapstructure:"name"`
	SSLMode     string `mapstructure:"sslmode"`
	MaxOpen     int    `mapstructure:"max_open_conns"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url" envconfig:"URL"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret" envconfig:"SECRET"`
	Issuer string `mapstructure:"issuer"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type SMTPConfig struct {
	Host        string        `mapstructure:"host" envconfig:"HOST"`
	Port        int           `mapstructure:"port" envconfig:"PORT"`
	Username    string        `mapstructure:"username" envconfig:"USERNAME"`
	Password    string        `mapstructure:"password" envconfig:"PASSWORD"`
	FromAddress string        `mapstructure:"from_address" envconfig:"FROM_ADDRESS"`
	FromName    string        `mapstructure:"from_name"`
	SendTimeout time.Duration `mapstructure:"send_timeout"`
}

// InboxConfig controls the inbound reply monitor.
type InboxConfig struct {
	MonitoringEnabled bool          `mapstructure:"monitoring_enabled" envconfig:"MONITORING_ENABLED"`
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	Host              string        `mapstructure:"host" envconfig:"HOST"`
	Port              int           `mapstructure:"port" envconfig:"PORT"`
	Username          string        `mapstructure:"username" envconfig:"USERNAME"`
	Password          string        `mapstructure:"password" envconfig:"PASSWORD"`
	Mailbox           string        `mapstructure:"mailbox"`
	UseTLS            bool          `mapstructure:"use_tls"`
	InitialLookback   time.Duration `mapstructure:"initial_lookback"`
	MaxMessageLength  int           `mapstructure:"max_message_length"`
}

// HasCredentials is false when the poll cycle should be a no-op.
func (c InboxConfig) HasCredentials() bool {
	return c.Host != "" && c.Username != "" && c.Password != ""
}

type DispatchConfig struct {
	Channels      []string      `mapstructure:"channels"`
	Concurrency   int           `mapstructure:"concurrency"`
	Workers       int           `mapstructure:"workers"`
	QueueSize     int           `mapstructure:"queue_size"`
	TaskTimeout   time.Duration `mapstructure:"task_timeout"`
	NotifyRetries int           `mapstructure:"notify_retries"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
	PublicBaseURL string        `mapstructure:"public_base_url"`
}

type CacheConfig struct {
	ReferenceTTL    time.Duration `mapstructure:"reference_ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.max_body_bytes", 1<<20)

	v.SetDefault("log.level", "info")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "bloodlink")
	v.SetDefault("database.name", "bloodlink")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 20)

	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", 100*time.Millisecond)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("jwt.issuer", "bloodlink")

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 20.0)
	v.SetDefault("rate_limit.burst", 40)

	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.from_name", "Blood Donation Coordination")
	v.SetDefault("smtp.send_timeout", 20*time.Second)

	v.SetDefault("inbox.monitoring_enabled", false)
	v.SetDefault("inbox.poll_interval", 5*time.Minute)
	v.SetDefault("inbox.port", 993)
	v.SetDefault("inbox.mailbox", "INBOX")
	v.SetDefault("inbox.use_tls", true)
	v.SetDefault("inbox.initial_lookback", 24*time.Hour)
	v.SetDefault("inbox.max_message_length", 500)

	v.SetDefault("dispatch.channels", []string{"email"})
	v.SetDefault("dispatch.concurrency", 8)
	v.SetDefault("dispatch.workers", 4)
	v.SetDefault("dispatch.queue_size", 256)
	v.SetDefault("dispatch.task_timeout", 2*time.Minute)
	v.SetDefault("dispatch.notify_retries", 2)
	v.SetDefault("dispatch.retry_delay", 5*time.Second)

	v.SetDefault("cache.reference_ttl", 15*time.Minute)
	v.SetDefault("cache.cleanup_interval", time.Hour)
}

// LoadConfig reads config.yml (optional), applies BLOODLINK_* environment
// overrides and then the unprefixed secret variables (SMTP_*, INBOX_*, ...).
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/app")
	v.AddConfigPath("/app/config")

	v.SetEnvPrefix("bloodlink")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := applySecretEnv(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applySecretEnv(cfg *Config) error {
	overlays := []struct {
		prefix string
		target interface{}
	}{
		{"smtp", &cfg.SMTP},
		{"inbox", &cfg.Inbox},
		{"jwt", &cfg.JWT},
		{"database", &cfg.Database},
		{"redis", &cfg.Redis},
	}
	for _, o := range overlays {
		if err := envconfig.Process(o.prefix, o.target); err != nil {
			return fmt.Errorf("failed to apply %s environment: %w", o.prefix, err)
		}
	}
	return nil
}

func (c *DispatchConfig) ToPoolConfig() worker.PoolConfig {
	return worker.PoolConfig{
		Workers:     c.Workers,
		QueueSize:   c.QueueSize,
		TaskTimeout: c.TaskTimeout,
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
