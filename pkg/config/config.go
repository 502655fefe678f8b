package config

import (
	"fmt"
	"os"
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
	Ingest struct {
		Enabled      bool          `yaml:"enabled"`
		Backend      string        `yaml:"backend"`
		BatchSize    int           `yaml:"batch_size"`
		BatchTimeout time.Duration `yaml:"batch_timeout"`
		MaxRPS       float64       `yaml:"max_rps"`
		BufferSize   int           `yaml:"buffer_size"`
	} `yaml:"ingest"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		TickTopic    string   `yaml:"tick_topic"`
		TradeTopic   string   `yaml:"trade_topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Binance struct {
		WebSocketURL   string        `yaml:"websocket_url"`
		RESTBaseURL    string        `yaml:"rest_base_url"`
		Symbols        []string      `yaml:"symbols"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
		HTTPTimeout    time.Duration `yaml:"http_timeout"`
	} `yaml:"binance"`
	Strategy struct {
		ModelDir  string  `yaml:"model_dir"`
		TrainDays int     `yaml:"train_days"`
		Fee       float64 `yaml:"fee"`
		CacheTTL  struct {
			Signal   time.Duration `yaml:"signal"`
			Backtest time.Duration `yaml:"backtest"`
		} `yaml:"cache_ttl"`
		Redis struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
		Retrain struct {
			Enabled  bool          `yaml:"enabled"`
			Interval time.Duration `yaml:"interval"`
			Workers  int           `yaml:"workers"`
		} `yaml:"retrain"`
	} `yaml:"strategy"`
	Session struct {
		DefaultIntervalSec int     `yaml:"default_interval_sec"`
		DefaultBalance     float64 `yaml:"default_balance"`
		MaxActive          int     `yaml:"max_active"`
	} `yaml:"session"`
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

	// Validate required fields
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

	// Override with environment variables
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Binance.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("BINANCE_WS_URL"); v != "" {
		c.Binance.WebSocketURL = v
	}
	if v := os.Getenv("INGEST_BACKEND"); v != "" {
		c.Ingest.Backend = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("MODEL_DIR"); v != "" {
		c.Strategy.ModelDir = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Strategy.Redis.Addr = v
		c.Strategy.Redis.Enabled = true
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Ingest.Enabled {
		if c.Ingest.Backend != "kafka" && c.Ingest.Backend != "clickhouse" {
			return fmt.Errorf("ingest.backend must be 'kafka' or 'clickhouse', got '%s'", c.Ingest.Backend)
		}
		if len(c.Binance.Symbols) == 0 {
			return fmt.Errorf("binance.symbols cannot be empty when ingest is enabled")
		}
	}
	if c.Strategy.ModelDir == "" {
		return fmt.Errorf("strategy.model_dir is required")
	}
	if c.Strategy.Retrain.Enabled && !c.Strategy.Redis.Enabled {
		return fmt.Errorf("strategy.retrain requires strategy.redis to be enabled")
	}
	return nil
}
