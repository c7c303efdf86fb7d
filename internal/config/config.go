package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Notification backends.
const (
	NotifyNone     = "none"
	NotifyRedis    = "redis"
	NotifyRabbitMQ = "rabbitmq"
)

type Config struct {
	Feed     FeedConfig
	Server   ServerConfig
	Worker   WorkerConfig
	Log      LogConfig
	Notify   NotifyConfig
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig
}

type FeedConfig struct {
	ChannelIDs     []string      `envconfig:"FEED_CHANNEL_IDS"`
	FreshnessHours float64       `envconfig:"FEED_FRESHNESS_HOURS" default:"1"`
	URLTemplate    string        `envconfig:"FEED_URL_TEMPLATE" default:"https://www.youtube.com/feeds/videos.xml?channel_id=%s"`
	FetchTimeout   time.Duration `envconfig:"FEED_FETCH_TIMEOUT" default:"30s"`
}

// Freshness returns the freshness interval as a duration.
func (c FeedConfig) Freshness() time.Duration {
	return time.Duration(c.FreshnessHours * float64(time.Hour))
}

type ServerConfig struct {
	Port            int           `envconfig:"API_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"API_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"API_WRITE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"API_SHUTDOWN_TIMEOUT" default:"10s"`
}

type WorkerConfig struct {
	ShutdownTimeout time.Duration `envconfig:"WORKER_SHUTDOWN_TIMEOUT" default:"10s"`
}

type LogConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
}

// SlogLevel maps Level to a slog.Level. Unknown values fall back to info.
func (c LogConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

type NotifyConfig struct {
	Backend string `envconfig:"NOTIFY_BACKEND" default:"none"`
}

type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

type RabbitMQConfig struct {
	Host     string `envconfig:"RABBITMQ_HOST" default:"localhost"`
	Port     int    `envconfig:"RABBITMQ_PORT" default:"5672"`
	User     string `envconfig:"RABBITMQ_USER" default:"ytfeed"`
	Password string `envconfig:"RABBITMQ_PASSWORD" default:"ytfeed"`
	VHost    string `envconfig:"RABBITMQ_VHOST" default:"/"`
}

func (c RabbitMQConfig) URL() string {
	return fmt.Sprintf(
		"amqp://%s:%s@%s:%d%s",
		c.User, c.Password, c.Host, c.Port, c.VHost,
	)
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	ids := c.Feed.ChannelIDs[:0]
	for _, id := range c.Feed.ChannelIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	c.Feed.ChannelIDs = ids

	var errs []error
	if len(c.Feed.ChannelIDs) == 0 {
		errs = append(errs, errors.New("FEED_CHANNEL_IDS must name at least one channel"))
	}
	if c.Feed.FreshnessHours <= 0 {
		errs = append(errs, fmt.Errorf("FEED_FRESHNESS_HOURS must be positive, got %v", c.Feed.FreshnessHours))
	}
	if !strings.Contains(c.Feed.URLTemplate, "%s") {
		errs = append(errs, fmt.Errorf("FEED_URL_TEMPLATE must contain %%s, got %q", c.Feed.URLTemplate))
	}
	if c.Feed.FetchTimeout < 0 {
		errs = append(errs, fmt.Errorf("FEED_FETCH_TIMEOUT must not be negative, got %v", c.Feed.FetchTimeout))
	}
	switch c.Notify.Backend {
	case NotifyNone, NotifyRedis, NotifyRabbitMQ:
	default:
		errs = append(errs, fmt.Errorf("NOTIFY_BACKEND must be one of none, redis, rabbitmq, got %q", c.Notify.Backend))
	}
	return errors.Join(errs...)
}
