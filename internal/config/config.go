package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Articles ArticlesConfig `yaml:"articles"`
	Cache    CacheConfig    `yaml:"cache"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	AI       AIConfig       `yaml:"ai"`
	Prewarm  PrewarmConfig  `yaml:"prewarm"`
	LogLevel string         `yaml:"log_level"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	BaseURL         string        `yaml:"base_url"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type UpstreamConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

type ArticlesConfig struct {
	MaxCount     int           `yaml:"max_count"`
	MaxBodyChars int           `yaml:"max_body_chars"`
	Timeout      time.Duration `yaml:"timeout"`
}

type CacheConfig struct {
	Version      int           `yaml:"version"`
	TTL          time.Duration `yaml:"ttl"`
	LookbackDays int           `yaml:"lookback_days"`
}

// DatabaseConfig describes the optional durable cache backend. An empty
// Host disables it.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// RedisConfig describes the optional edge cache backend. An empty URL
// disables it.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// RabbitMQConfig describes the optional resolution event publisher. An
// empty URL disables it.
type RabbitMQConfig struct {
	URL        string `yaml:"url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
	QueueName  string `yaml:"queue_name"`
}

type AIConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Model     string        `yaml:"model"`
	APIKeyEnv string        `yaml:"api_key_env"`
	Timeout   time.Duration `yaml:"timeout"`
}

type PrewarmConfig struct {
	Interval   time.Duration `yaml:"interval"`
	Categories []string      `yaml:"categories"`
}

func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = "http://localhost:8080"
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Upstream.BaseURL == "" {
		c.Upstream.BaseURL = "https://b.hatena.ne.jp/hotentry"
	}
	if c.Upstream.Timeout == 0 {
		c.Upstream.Timeout = 30 * time.Second
	}
	if c.Upstream.UserAgent == "" {
		c.Upstream.UserAgent = "hinichi/1.0"
	}
	if c.Articles.MaxCount == 0 {
		c.Articles.MaxCount = 20
	}
	if c.Articles.MaxBodyChars == 0 {
		c.Articles.MaxBodyChars = 3000
	}
	if c.Articles.Timeout == 0 {
		c.Articles.Timeout = 10 * time.Second
	}
	if c.Cache.Version == 0 {
		c.Cache.Version = 1
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 7 * 24 * time.Hour
	}
	if c.Cache.LookbackDays == 0 {
		c.Cache.LookbackDays = 2
	}
	if c.RabbitMQ.Exchange == "" {
		c.RabbitMQ.Exchange = "hinichi"
	}
	if c.RabbitMQ.RoutingKey == "" {
		c.RabbitMQ.RoutingKey = "rankings"
	}
	if c.RabbitMQ.QueueName == "" {
		c.RabbitMQ.QueueName = "resolved_rankings"
	}
	if c.AI.BaseURL == "" {
		c.AI.BaseURL = "https://api.openai.com/v1"
	}
	if c.AI.Model == "" {
		c.AI.Model = "gpt-4o-mini"
	}
	if c.AI.APIKeyEnv == "" {
		c.AI.APIKeyEnv = "OPENAI_API_KEY"
	}
	if c.AI.Timeout == 0 {
		c.AI.Timeout = 60 * time.Second
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}
