package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Core      CoreConfig      `yaml:"core"`
	Streaming StreamingConfig `yaml:"streaming"`
}

type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	AuthToken      string        `yaml:"auth_token"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	StatusInterval time.Duration `yaml:"status_interval"`
	FeedThrottle   time.Duration `yaml:"feed_throttle"`
}

type CoreConfig struct {
	Addr         string        `yaml:"addr"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	CallTimeout  time.Duration `yaml:"call_timeout"`
	LockTimeout  time.Duration `yaml:"lock_timeout"`
	ProcessHints []string      `yaml:"process_hints"`
}

type StreamingConfig struct {
	PollingRateHz          int `yaml:"polling_rate_hz"`
	MaxQueueSize           int `yaml:"max_queue_size"`
	MaxTraceLinesPerSecond int `yaml:"max_trace_lines_per_second"`
	MaxEventsPerSecond     int `yaml:"max_events_per_second"`
	MaxMemoryChangesPerSec int `yaml:"max_memory_changes_per_second"`
	MaxBatchPerPoll        int `yaml:"max_batch_per_poll"`
	MaxWatchLength         int `yaml:"max_watch_length"`
	BackoffThreshold       int `yaml:"backoff_threshold"`
	BackoffFactor          int `yaml:"backoff_factor"`
	BackoffMaxMultiplier   int `yaml:"backoff_max_multiplier"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "127.0.0.1",
			Port:           8080,
			StatusInterval: 5 * time.Second,
			FeedThrottle:   100 * time.Millisecond,
		},
		Core: CoreConfig{
			Addr:         "127.0.0.1:9855",
			DialTimeout:  5 * time.Second,
			CallTimeout:  2 * time.Second,
			LockTimeout:  5 * time.Second,
			ProcessHints: []string{"Mesen", "mesen"},
		},
		Streaming: StreamingConfig{
			PollingRateHz:          10,
			MaxQueueSize:           1000,
			MaxTraceLinesPerSecond: 1000,
			MaxEventsPerSecond:     100,
			MaxMemoryChangesPerSec: 50,
			MaxBatchPerPoll:        500,
			MaxWatchLength:         256,
			BackoffThreshold:       3,
			BackoffFactor:          2,
			BackoffMaxMultiplier:   8,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Streaming.PollingRateHz <= 0 {
		return fmt.Errorf("streaming.polling_rate_hz must be positive, got %d", c.Streaming.PollingRateHz)
	}
	if c.Streaming.MaxQueueSize <= 0 {
		return fmt.Errorf("streaming.max_queue_size must be positive, got %d", c.Streaming.MaxQueueSize)
	}
	if c.Streaming.BackoffFactor < 2 {
		return fmt.Errorf("streaming.backoff_factor must be at least 2, got %d", c.Streaming.BackoffFactor)
	}
	return nil
}

// Interval is the base sampler tick period derived from the polling rate.
func (s StreamingConfig) Interval() time.Duration {
	return time.Second / time.Duration(s.PollingRateHz)
}

// PerTick converts a per-second cap into a per-tick budget. A cap below the
// polling rate still yields a budget of 1 so the feed starves slowly instead
// of completely.
func (s StreamingConfig) PerTick(perSecond int) int {
	n := perSecond / s.PollingRateHz
	if n < 1 {
		n = 1
	}
	return n
}
