package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/matheus3301/chatlog/internal/broker"
	"github.com/matheus3301/chatlog/internal/queue"
)

// Transports understood by the daemon.
const (
	TransportMQTT   = "mqtt"
	TransportAMQP   = "amqp"
	TransportMemory = "memory"
)

const (
	DefaultTopic        = "chat/messages"
	DefaultLogFile      = "chat.log"
	DefaultIdleInterval = 50 * time.Millisecond
)

// Config represents ~/.chatlog/config.toml after environment overrides.
type Config struct {
	DefaultInstance string `toml:"default_instance"`

	Transport string `toml:"transport"`
	BrokerURI string `toml:"broker_uri"`
	Topic     string `toml:"topic"`
	ClientID  string `toml:"client_id"`
	QoS       int    `toml:"qos"`
	Exchange  string `toml:"amqp_exchange"`

	// LogPath and LogFile locate the message log. An empty LogPath means the
	// instance log directory.
	LogPath string `toml:"log_path"`
	LogFile string `toml:"log_file"`

	IdleInterval time.Duration `toml:"idle_interval"`
	MaxPending   int           `toml:"max_pending"`
	Overflow     string        `toml:"overflow"`

	Archive     bool   `toml:"archive"`
	MetricsAddr string `toml:"metrics_addr"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Transport:    TransportMQTT,
		Topic:        DefaultTopic,
		LogFile:      DefaultLogFile,
		IdleInterval: DefaultIdleInterval,
		Overflow:     string(queue.DropOldest),
		Archive:      true,
	}
}

// Load reads config from the given path on top of Default. Returns error if file missing.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault is Load, but a missing file yields Default.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

// LoadDotenv loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not an error.
func LoadDotenv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from environment variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	strs := []struct {
		key string
		dst *string
	}{
		{"LOGPATH", &c.LogPath},
		{"LOGFILE", &c.LogFile},
		{"BROKER_URI", &c.BrokerURI},
		{"TOPIC", &c.Topic},
		{"CHATLOG_TRANSPORT", &c.Transport},
		{"CHATLOG_CLIENT_ID", &c.ClientID},
		{"CHATLOG_METRICS_ADDR", &c.MetricsAddr},
		{"CHATLOG_OVERFLOW", &c.Overflow},
	}
	for _, s := range strs {
		if v, ok := lookup(s.key); ok {
			*s.dst = v
		}
	}

	if v, ok := lookup("CHATLOG_IDLE_INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CHATLOG_IDLE_INTERVAL: %w", err)
		}
		c.IdleInterval = d
	}
	if v, ok := lookup("CHATLOG_MAX_PENDING"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CHATLOG_MAX_PENDING: %w", err)
		}
		c.MaxPending = n
	}
	if v, ok := lookup("CHATLOG_ARCHIVE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("CHATLOG_ARCHIVE: %w", err)
		}
		c.Archive = b
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Transport {
	case TransportMQTT, TransportAMQP, TransportMemory:
	default:
		return fmt.Errorf("unknown transport %q (want mqtt, amqp or memory)", c.Transport)
	}
	if err := broker.ValidateFilter(c.Topic); err != nil {
		return err
	}
	if c.QoS < 0 || c.QoS > 2 {
		return fmt.Errorf("qos %d out of range 0..2", c.QoS)
	}
	if c.LogFile == "" {
		return errors.New("log_file is empty")
	}
	if c.IdleInterval <= 0 {
		return fmt.Errorf("idle_interval must be positive, got %s", c.IdleInterval)
	}
	if c.MaxPending < 0 {
		return fmt.Errorf("max_pending must not be negative, got %d", c.MaxPending)
	}
	if _, err := queue.ParsePolicy(c.Overflow); err != nil {
		return err
	}
	return nil
}
