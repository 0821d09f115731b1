// Package config loads the ordmapd YAML configuration.
package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	DefaultGRPCAddr          = ":50051"
	DefaultHTTPAddr          = ":8080"
	DefaultTopic             = "ordmap.changes"
	DefaultFeedDriver        = DriverKafkaGo
	DefaultFlushInterval     = 100 * time.Millisecond
	DefaultBatchSize         = 1000
	DefaultMaxRetries        = 3
	DefaultRetryInterval     = time.Second
	DefaultPartitions        = 1
	DefaultReplicationFactor = 1
)

// Feed drivers.
const (
	DriverKafkaGo = "kafka-go"
	DriverSarama  = "sarama"
)

var (
	ErrNoBrokers     = errors.New("feed enabled but no brokers configured")
	ErrUnknownDriver = errors.New("unknown feed driver")
)

type Config struct {
	GRPC  ListenConfig `yaml:"grpc"`
	HTTP  ListenConfig `yaml:"http"`
	Store StoreConfig  `yaml:"store"`
	Feed  FeedConfig   `yaml:"feed"`
	Log   LogConfig    `yaml:"log"`
}

type ListenConfig struct {
	Addr string `yaml:"addr"`
}

type StoreConfig struct {
	// Capacity caps the number of entries; 0 means unbounded.
	Capacity int `yaml:"capacity"`
}

type FeedConfig struct {
	Enabled bool     `yaml:"enabled"`
	Driver  string   `yaml:"driver"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`

	// OutboxDir holds undelivered events on disk; empty keeps them in memory.
	OutboxDir     string        `yaml:"outbox_dir"`
	CreateTopic   bool          `yaml:"create_topic"`
	Partitions    int           `yaml:"partitions"`
	Replication   int           `yaml:"replication"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BatchSize     int           `yaml:"batch_size"`
	MaxRetries    int           `yaml:"max_retries"`
	RetryInterval time.Duration `yaml:"retry_interval"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads path, applies defaults and validates. An empty path yields Default().
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.GRPC.Addr == "" {
		c.GRPC.Addr = DefaultGRPCAddr
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = DefaultHTTPAddr
	}
	if c.Store.Capacity < 0 {
		c.Store.Capacity = 0
	}
	if c.Feed.Driver == "" {
		c.Feed.Driver = DefaultFeedDriver
	}
	if c.Feed.Topic == "" {
		c.Feed.Topic = DefaultTopic
	}
	if c.Feed.Partitions <= 0 {
		c.Feed.Partitions = DefaultPartitions
	}
	if c.Feed.Replication <= 0 {
		c.Feed.Replication = DefaultReplicationFactor
	}
	if c.Feed.FlushInterval <= 0 {
		c.Feed.FlushInterval = DefaultFlushInterval
	}
	if c.Feed.BatchSize <= 0 {
		c.Feed.BatchSize = DefaultBatchSize
	}
	if c.Feed.MaxRetries <= 0 {
		c.Feed.MaxRetries = DefaultMaxRetries
	}
	if c.Feed.RetryInterval <= 0 {
		c.Feed.RetryInterval = DefaultRetryInterval
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks settings that have no sensible default.
func (c *Config) Validate() error {
	if !c.Feed.Enabled {
		return nil
	}
	if len(c.Feed.Brokers) == 0 {
		return ErrNoBrokers
	}
	switch c.Feed.Driver {
	case DriverKafkaGo, DriverSarama:
	default:
		return errors.Wrapf(ErrUnknownDriver, "%q", c.Feed.Driver)
	}
	return nil
}
