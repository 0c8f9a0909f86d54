package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Feed struct {
		UseMock        bool          `yaml:"use_mock"`
		WebSocketURL   string        `yaml:"websocket_url"`
		SnapshotURL    string        `yaml:"snapshot_url"`
		APIKey         string        `yaml:"api_key"`
		Underlyings    []string      `yaml:"underlyings"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
		SnapshotPoll   time.Duration `yaml:"snapshot_poll"`
		SnapshotTTL    time.Duration `yaml:"snapshot_ttl"`
	} `yaml:"feed"`
	Detector struct {
		Threshold        float64       `yaml:"threshold"`
		HysteresisWindow float64       `yaml:"hysteresis_window"`
		ThrottleInterval time.Duration `yaml:"throttle_interval"`
		QueueCapacity    int           `yaml:"queue_capacity"`
		AlertTTL         time.Duration `yaml:"alert_ttl"`
		CooldownDelay    time.Duration `yaml:"cooldown_delay"`
	} `yaml:"detector"`
	Scheduler struct {
		Capacity   int           `yaml:"capacity"`
		Stagger    time.Duration `yaml:"stagger"`
		DefaultTTL time.Duration `yaml:"default_ttl"`
	} `yaml:"scheduler"`
	Cache struct {
		Redis struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Alerts struct {
		Kafka struct {
			Enabled      bool          `yaml:"enabled"`
			Brokers      []string      `yaml:"brokers"`
			Topic        string        `yaml:"topic"`
			RequiredAcks int           `yaml:"required_acks"`
			Compression  string        `yaml:"compression"`
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"kafka"`
	} `yaml:"alerts"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("COINGECKO_API_KEY"); v != "" {
		c.Feed.APIKey = v
	}
	if v := os.Getenv("FEED_WS_URL"); v != "" {
		c.Feed.WebSocketURL = v
	}
	if v := os.Getenv("FEED_SNAPSHOT_URL"); v != "" {
		c.Feed.SnapshotURL = v
	}
	if v := os.Getenv("UNDERLYINGS"); v != "" {
		c.Feed.Underlyings = strings.Split(v, ",")
	}
	if v := os.Getenv("USE_MOCK_FEED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Feed.UseMock = b
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Enabled = true
		c.Cache.Redis.Addr = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Alerts.Kafka.Enabled = true
		c.Alerts.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Alerts.Kafka.Topic = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if len(c.Feed.Underlyings) == 0 {
		return fmt.Errorf("feed.underlyings cannot be empty")
	}
	if !c.Feed.UseMock {
		if c.Feed.WebSocketURL == "" {
			return fmt.Errorf("feed.websocket_url is required")
		}
		if c.Feed.SnapshotURL == "" {
			return fmt.Errorf("feed.snapshot_url is required")
		}
	}
	if c.Detector.Threshold < 0 {
		return fmt.Errorf("detector.threshold cannot be negative")
	}
	if c.Detector.HysteresisWindow < 0 {
		return fmt.Errorf("detector.hysteresis_window cannot be negative")
	}
	if c.Detector.Threshold > 0 && c.Detector.HysteresisWindow >= c.Detector.Threshold {
		return fmt.Errorf("detector.hysteresis_window must be below detector.threshold")
	}
	if c.Scheduler.Capacity < 0 {
		return fmt.Errorf("scheduler.capacity cannot be negative")
	}
	if c.Alerts.Kafka.Enabled {
		if len(c.Alerts.Kafka.Brokers) == 0 {
			return fmt.Errorf("alerts.kafka.brokers cannot be empty when enabled")
		}
		if c.Alerts.Kafka.Topic == "" {
			return fmt.Errorf("alerts.kafka.topic is required when enabled")
		}
	}
	return nil
}
