package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment override, e.g. SEHAT_STORE_BACKEND.
const EnvPrefix = "sehat"

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Log           LogConfig           `mapstructure:"log"`
	Store         StoreConfig         `mapstructure:"store"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Session       SessionConfig       `mapstructure:"session"`
	Booking       BookingConfig       `mapstructure:"booking"`
	Watcher       WatcherConfig       `mapstructure:"watcher"`
	Broker        BrokerConfig        `mapstructure:"broker"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Payment       BreakerConfig       `mapstructure:"payment"`
	Dispatch      BreakerConfig       `mapstructure:"dispatch"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit" split_words:"true"`
	CORS          CORSConfig          `mapstructure:"cors"`
	Chatbot       ChatbotConfig       `mapstructure:"chatbot"`
	Audit         AuditConfig         `mapstructure:"audit"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" split_words:"true"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" split_words:"true"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" split_words:"true"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes" split_words:"true"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

type StoreConfig struct {
	// Backend is one of memory, redis or postgres.
	Backend     string        `mapstructure:"backend"`
	Key         string        `mapstructure:"key"`
	MaxBytes    int           `mapstructure:"max_bytes" split_words:"true"`
	CASAttempts int           `mapstructure:"cas_attempts" envconfig:"CAS_ATTEMPTS"`
	RetryDelay  time.Duration `mapstructure:"retry_delay" split_words:"true"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	MaxRetries   int           `mapstructure:"max_retries" split_words:"true"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff" split_words:"true"`
	PoolSize     int           `mapstructure:"pool_size" split_words:"true"`
	MinIdleConns int           `mapstructure:"min_idle_conns" split_words:"true"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN renders the lib/pq connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

type SessionConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" envconfig:"JWT_SECRET"`
	// TTL of zero keeps sessions until logout.
	TTL time.Duration `mapstructure:"ttl"`
}

type BookingConfig struct {
	MaxFileBytes int64         `mapstructure:"max_file_bytes" split_words:"true"`
	FlowTTL      time.Duration `mapstructure:"flow_ttl" split_words:"true"`
}

type WatcherConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type BrokerConfig struct {
	// Driver is memory or redis.
	Driver  string `mapstructure:"driver"`
	Channel string `mapstructure:"channel"`
}

type NotificationsConfig struct {
	Enabled bool        `mapstructure:"enabled"`
	Workers int         `mapstructure:"workers"`
	Email   EmailConfig `mapstructure:"email"`
	SMS     SMSConfig   `mapstructure:"sms"`
}

type EmailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type SMSConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	AccountSID string `mapstructure:"account_sid" envconfig:"ACCOUNT_SID"`
	AuthToken  string `mapstructure:"auth_token" split_words:"true"`
	From       string `mapstructure:"from"`
}

type BreakerConfig struct {
	MaxFailures int           `mapstructure:"max_failures" split_words:"true"`
	Interval    time.Duration `mapstructure:"interval"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" split_words:"true"`
	Burst             int     `mapstructure:"burst"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins" split_words:"true"`
	AllowedMethods []string `mapstructure:"allowed_methods" split_words:"true"`
	AllowedHeaders []string `mapstructure:"allowed_headers" split_words:"true"`
}

type ChatbotConfig struct {
	URL   string `mapstructure:"url"`
	Title string `mapstructure:"title"`
}

type AuditConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Path of the JSON-lines file; empty or "stdout" writes to stdout.
	Path string `mapstructure:"path"`
}

// LoadConfig reads .env, then config.yml, then SEHAT_* overrides. A
// missing config file is not an error; defaults cover every key.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/app/config")
	}

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

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 0)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.max_body_bytes", 12<<20)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)

	v.SetDefault("store.backend", "memory")
	v.SetDefault("store.key", "appointments")
	v.SetDefault("store.max_bytes", 5<<20)
	v.SetDefault("store.cas_attempts", 5)
	v.SetDefault("store.retry_delay", 20*time.Millisecond)

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", 100*time.Millisecond)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.name", "sehatsathi")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("session.jwt_secret", "sehatsathi-dev-secret")
	v.SetDefault("session.ttl", 0)

	v.SetDefault("booking.max_file_bytes", 10<<20)
	v.SetDefault("booking.flow_ttl", 30*time.Minute)

	v.SetDefault("watcher.interval", 2*time.Second)

	v.SetDefault("broker.driver", "memory")
	v.SetDefault("broker.channel", "appointments")

	v.SetDefault("notifications.enabled", false)
	v.SetDefault("notifications.workers", 2)
	v.SetDefault("notifications.email.enabled", false)
	v.SetDefault("notifications.email.host", "smtp.gmail.com")
	v.SetDefault("notifications.email.port", 587)
	v.SetDefault("notifications.email.from", "care@sehatsathi.in")
	v.SetDefault("notifications.sms.enabled", false)

	for _, section := range []string{"payment", "dispatch"} {
		v.SetDefault(section+".max_failures", 5)
		v.SetDefault(section+".interval", time.Minute)
		v.SetDefault(section+".timeout", 30*time.Second)
	}

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 20.0)
	v.SetDefault("rate_limit.burst", 40)

	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"})

	v.SetDefault("chatbot.url", "https://ruralchatbot.netlify.app/")
	v.SetDefault("chatbot.title", "SehatSathi AI Health Assistant")

	v.SetDefault("audit.enabled", true)
	v.SetDefault("audit.path", "stdout")
}

func (c *Config) Validate() error {
	var problems []string

	switch c.Store.Backend {
	case "memory", "redis", "postgres":
	default:
		problems = append(problems, fmt.Sprintf("store.backend %q must be memory, redis or postgres", c.Store.Backend))
	}
	switch c.Broker.Driver {
	case "memory", "redis":
	default:
		problems = append(problems, fmt.Sprintf("broker.driver %q must be memory or redis", c.Broker.Driver))
	}
	if c.Store.Key == "" {
		problems = append(problems, "store.key is required")
	}
	if c.Store.CASAttempts < 1 {
		problems = append(problems, "store.cas_attempts must be at least 1")
	}
	if c.Store.MaxBytes <= 0 {
		problems = append(problems, "store.max_bytes must be positive")
	}
	if c.Session.JWTSecret == "" {
		problems = append(problems, "session.jwt_secret is required")
	}
	if c.Watcher.Interval <= 0 {
		problems = append(problems, "watcher.interval must be positive")
	}
	if c.Booking.MaxFileBytes <= 0 {
		problems = append(problems, "booking.max_file_bytes must be positive")
	}
	if c.Notifications.Workers < 1 {
		problems = append(problems, "notifications.workers must be at least 1")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}
