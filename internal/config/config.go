// Package config loads application configuration from an optional YAML
// file with environment variable overrides.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Exchange names the directories shared with the instrument.
type Exchange struct {
	Inbox     string `yaml:"inbox"`
	Outbox    string `yaml:"outbox"`
	Requests  string `yaml:"requests"`
	Responses string `yaml:"responses"`
}

// Sender identifies this control panel in outgoing order headers.
type Sender struct {
	Name string `yaml:"name"`
	PC   string `yaml:"pc"`
}

// Config defines the runtime configuration.
type Config struct {
	DatabaseURL string   `yaml:"database_url"`
	HTTPAddr    string   `yaml:"http_addr"`
	JWTSecret   string   `yaml:"jwt_secret"`
	WebhookURL  string   `yaml:"webhook_url"`
	Exchange    Exchange `yaml:"exchange"`
	Sender      Sender   `yaml:"sender"`

	WatcherQuiet      time.Duration `yaml:"watcher_quiet"`
	PollerInterval    time.Duration `yaml:"poller_interval"`
	StateThreshold    time.Duration `yaml:"state_threshold"`
	SchedulerInterval time.Duration `yaml:"scheduler_interval"`
	OrderMaxAge       time.Duration `yaml:"order_max_age"`
	ExpiryInterval    time.Duration `yaml:"expiry_interval"`
}

// Load builds the configuration. Defaults are applied first, then the
// YAML file named by ARGUS_CONFIG (if set), then environment variables.
// A .env file in the working directory is honored when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		HTTPAddr: ":8080",
		Exchange: Exchange{
			Inbox:     filepath.FromSlash("var/exchange/inbox"),
			Outbox:    filepath.FromSlash("var/exchange/outbox"),
			Requests:  filepath.FromSlash("var/exchange/requests"),
			Responses: filepath.FromSlash("var/exchange/responses"),
		},
		Sender:            Sender{Name: "ARGUS-CP", PC: "localhost"},
		WatcherQuiet:      500 * time.Millisecond,
		PollerInterval:    time.Minute,
		StateThreshold:    5 * time.Minute,
		SchedulerInterval: time.Minute,
		OrderMaxAge:       time.Hour,
		ExpiryInterval:    5 * time.Minute,
	}

	if path := os.Getenv("ARGUS_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	cfg.DatabaseURL = getenvDefault("DATABASE_URL", cfg.DatabaseURL)
	cfg.HTTPAddr = getenvDefault("HTTP_ADDR", cfg.HTTPAddr)
	cfg.JWTSecret = getenvDefault("AUTH_JWT_SECRET", cfg.JWTSecret)
	cfg.WebhookURL = getenvDefault("ALERT_WEBHOOK_URL", cfg.WebhookURL)
	cfg.Exchange.Inbox = getenvDefault("ARGUS_INBOX", cfg.Exchange.Inbox)
	cfg.Exchange.Outbox = getenvDefault("ARGUS_OUTBOX", cfg.Exchange.Outbox)
	cfg.Exchange.Requests = getenvDefault("ARGUS_REQUESTS", cfg.Exchange.Requests)
	cfg.Exchange.Responses = getenvDefault("ARGUS_RESPONSES", cfg.Exchange.Responses)
	cfg.Sender.Name = getenvDefault("ARGUS_SENDER", cfg.Sender.Name)
	cfg.Sender.PC = getenvDefault("ARGUS_SENDER_PC", cfg.Sender.PC)
	cfg.WatcherQuiet = getenvDuration("WATCHER_QUIET", cfg.WatcherQuiet)
	cfg.PollerInterval = getenvDuration("POLLER_INTERVAL", cfg.PollerInterval)
	cfg.StateThreshold = getenvDuration("STATE_THRESHOLD", cfg.StateThreshold)
	cfg.SchedulerInterval = getenvDuration("SCHEDULER_INTERVAL", cfg.SchedulerInterval)
	cfg.OrderMaxAge = getenvDuration("ORDER_MAX_AGE", cfg.OrderMaxAge)
	cfg.ExpiryInterval = getenvDuration("EXPIRY_INTERVAL", cfg.ExpiryInterval)

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.Exchange.Inbox == "" || c.Exchange.Outbox == "" || c.Exchange.Requests == "" || c.Exchange.Responses == "" {
		return errors.New("config: exchange directories required")
	}
	if c.Sender.Name == "" {
		return errors.New("config: sender name required")
	}
	if c.WatcherQuiet <= 0 || c.PollerInterval <= 0 || c.SchedulerInterval <= 0 {
		return errors.New("config: intervals must be positive")
	}
	if c.OrderMaxAge <= 0 || c.ExpiryInterval <= 0 || c.StateThreshold <= 0 {
		return errors.New("config: durations must be positive")
	}
	return nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
