package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App           AppConfig          `yaml:"app"`
	Telegram      TelegramConfig     `yaml:"telegram"`
	Database      DatabaseConfig     `yaml:"database"`
	Redis         RedisConfig        `yaml:"redis"`
	Backup        BackupConfig       `yaml:"backup"`
	Monitoring    MonitoringConfig   `yaml:"monitoring"`
	Logging       LoggingConfig      `yaml:"logging"`
	Exports       ExportConfig       `yaml:"exports"`
	Bot           BotConfig          `yaml:"bot"`
	Slots         SlotsConfig        `yaml:"slots"`
	Shop          ShopConfig         `yaml:"shop"`
	Notifications NotificationConfig `yaml:"notifications"`
	API           APIConfig          `yaml:"api"`
	Admins        []int64            `yaml:"admins"`
	Blacklist     []int64            `yaml:"blacklist"`
}

type BotConfig struct {
	ReminderTime      string `yaml:"reminder_time"`
	BookingDays       int    `yaml:"booking_days"`
	Timezone          string `yaml:"timezone"`
	RateLimitMessages int    `yaml:"rate_limit_messages"`
	RateLimitWindow   int    `yaml:"rate_limit_window"`
	SessionTTL        int    `yaml:"session_ttl"`
	PresenceTTL       int    `yaml:"presence_ttl"`
	Workers           int    `yaml:"workers"`
	BroadcastRPS      int    `yaml:"broadcast_rps"`
}

// SlotsConfig describes the slot universe: every tick from Start to End
// inclusive, Step apart.
type SlotsConfig struct {
	Start string        `yaml:"start"`
	End   string        `yaml:"end"`
	Step  time.Duration `yaml:"step"`
}

type ShopConfig struct {
	Name      string  `yaml:"name"`
	Address   string  `yaml:"address"`
	Phone     string  `yaml:"phone"`
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
}

type NotificationConfig struct {
	PollInterval  time.Duration `yaml:"poll_interval"`
	BatchSize     int           `yaml:"batch_size"`
	MaxAttempts   int           `yaml:"max_attempts"`
	InitialDelay  time.Duration `yaml:"initial_delay"`
	MaxDelay      time.Duration `yaml:"max_delay"`
	BackoffFactor float64       `yaml:"backoff_factor"`
}

// APIConfig controls the read-only HTTP availability API.
type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	Port      int                `yaml:"port"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	HeaderExtra  string         `yaml:"header_extra"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Extra       string   `yaml:"extra"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
	Days int    `yaml:"days"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	Debug    bool   `yaml:"debug"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional; a missing file is not an error
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" || c.Telegram.BotToken == "YOUR_BOT_TOKEN_HERE" {
		return errors.New("telegram bot token is required")
	}

	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	return c.Slots.Validate()
}

// Validate checks that the slot universe is non-empty and well formed.
func (s SlotsConfig) Validate() error {
	start, err := time.Parse("15:04", s.Start)
	if err != nil {
		return fmt.Errorf("slots.start %q: %w", s.Start, err)
	}
	end, err := time.Parse("15:04", s.End)
	if err != nil {
		return fmt.Errorf("slots.end %q: %w", s.End, err)
	}
	if end.Before(start) {
		return fmt.Errorf("slots.end %s is before slots.start %s", s.End, s.Start)
	}
	if s.Step <= 0 || s.Step%time.Minute != 0 {
		return fmt.Errorf("slots.step must be a positive whole number of minutes, got %s", s.Step)
	}
	return nil
}

// Location resolves the shop timezone, falling back to the process zone.
func (b BotConfig) Location() *time.Location {
	if strings.TrimSpace(b.Timezone) == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(b.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.Admins {
		if id == userID {
			return true
		}
	}
	return false
}

func (c *Config) applyDefaults() {
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}

	if c.Bot.ReminderTime == "" {
		c.Bot.ReminderTime = "09:00"
	}
	if c.Bot.BookingDays == 0 {
		c.Bot.BookingDays = 3
	}
	if c.Bot.RateLimitMessages == 0 {
		c.Bot.RateLimitMessages = 20
	}
	if c.Bot.RateLimitWindow == 0 {
		c.Bot.RateLimitWindow = 60
	}
	if c.Bot.SessionTTL == 0 {
		c.Bot.SessionTTL = 2 * 60 * 60
	}
	if c.Bot.PresenceTTL == 0 {
		c.Bot.PresenceTTL = 10 * 60
	}
	if c.Bot.Workers == 0 {
		c.Bot.Workers = 8
	}
	if c.Bot.BroadcastRPS == 0 {
		c.Bot.BroadcastRPS = 25
	}

	if c.Slots.Start == "" {
		c.Slots.Start = "10:00"
	}
	if c.Slots.End == "" {
		c.Slots.End = "17:00"
	}
	if c.Slots.Step == 0 {
		c.Slots.Step = time.Hour
	}

	if c.Notifications.PollInterval == 0 {
		c.Notifications.PollInterval = 15 * time.Second
	}
	if c.Notifications.BatchSize == 0 {
		c.Notifications.BatchSize = 20
	}
	if c.Notifications.MaxAttempts == 0 {
		c.Notifications.MaxAttempts = 5
	}
	if c.Notifications.InitialDelay == 0 {
		c.Notifications.InitialDelay = 30 * time.Second
	}
	if c.Notifications.MaxDelay == 0 {
		c.Notifications.MaxDelay = 30 * time.Minute
	}
	if c.Notifications.BackoffFactor == 0 {
		c.Notifications.BackoffFactor = 2
	}

	if c.API.Enabled && c.API.Port == 0 {
		c.API.Port = 8080
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.Auth.HeaderExtra == "" {
		c.API.Auth.HeaderExtra = "x-api-extra"
	}

	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
	if c.Exports.Days == 0 {
		c.Exports.Days = 7
	}
}
