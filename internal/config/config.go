package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"guesthouse/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig         `yaml:"app"`
	HTTP       HTTPConfig        `yaml:"http"`
	Storage    StorageConfig     `yaml:"storage"`
	Redis      RedisConfig       `yaml:"redis"`
	Mail       MailConfig        `yaml:"mail"`
	Paystack   PaystackConfig    `yaml:"paystack"`
	Admin      AdminConfig       `yaml:"admin"`
	Rooms      []models.RoomRate `yaml:"rooms"`
	EmailQueue EmailQueueConfig  `yaml:"email_queue"`
	Telegram   TelegramConfig    `yaml:"telegram"`
	Monitoring MonitoringConfig  `yaml:"monitoring"`
	Logging    LoggingConfig     `yaml:"logging"`
	Exports    ExportConfig      `yaml:"exports"`
	Backup     BackupConfig      `yaml:"backup"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
	Timezone    string `yaml:"timezone"`
}

type HTTPConfig struct {
	Port         int             `yaml:"port"`
	StaticDir    string          `yaml:"static_dir"`
	ReadTimeout  time.Duration   `yaml:"read_timeout"`
	WriteTimeout time.Duration   `yaml:"write_timeout"`
	RateLimit    RateLimitConfig `yaml:"rate_limit"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

const (
	BackendAuto   = "auto"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

type StorageConfig struct {
	Backend    string `yaml:"backend"`
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type MailConfig struct {
	Host       string        `yaml:"host"`
	Port       int           `yaml:"port"`
	Username   string        `yaml:"username"`
	Password   string        `yaml:"password"`
	From       string        `yaml:"from"`
	AdminEmail string        `yaml:"admin_email"`
	Timeout    time.Duration `yaml:"timeout"`
}

// Enabled reports whether SMTP credentials are present.
func (m MailConfig) Enabled() bool {
	return m.Host != "" && m.Username != "" && m.Password != ""
}

type PaystackConfig struct {
	SecretKey     string        `yaml:"secret_key"`
	PublicKey     string        `yaml:"public_key"`
	WebhookSecret string        `yaml:"webhook_secret"`
	BaseURL       string        `yaml:"base_url"`
	Currency      string        `yaml:"currency"`
	CallbackURL   string        `yaml:"callback_url"`
	Timeout       time.Duration `yaml:"timeout"`
}

type AdminConfig struct {
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	PasswordHash string        `yaml:"password_hash"`
	SessionTTL   time.Duration `yaml:"session_ttl"`
}

type EmailQueueConfig struct {
	MaxAttempts   int           `yaml:"max_attempts"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
	MaxDelay      time.Duration `yaml:"max_delay"`
	BackoffFactor float64       `yaml:"backoff_factor"`
	Buffer        int           `yaml:"buffer"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
	Debug    bool   `yaml:"debug"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	Output     string `yaml:"output"`
	FilePath   string `yaml:"file_path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

type BackupConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Interval      time.Duration `yaml:"interval"`
	Path          string        `yaml:"path"`
	RetentionDays int           `yaml:"retention_days"`
}

// DefaultRooms mirrors the guesthouse price list.
func DefaultRooms() []models.RoomRate {
	return []models.RoomRate{
		{Type: "executive", Name: "Executive Room", NightlyRate: 299, SortOrder: 1},
		{Type: "regular", Name: "Regular Room", NightlyRate: 199, SortOrder: 2},
		{Type: "full-house", Name: "Full House", NightlyRate: 0, SortOrder: 3},
	}
}

func Load(configPath string) (*Config, error) {
	// .env is optional in production where the environment is injected
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
	switch c.Storage.Backend {
	case BackendAuto, BackendFile, BackendSQLite:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	if c.Storage.DataDir == "" {
		return errors.New("storage data_dir is required")
	}

	if (c.Admin.Password != "" || c.Admin.PasswordHash != "") && c.Admin.Username == "" {
		return errors.New("admin username is required when a password is set")
	}

	if c.EmailQueue.MaxAttempts < 1 {
		return errors.New("email_queue max_attempts must be positive")
	}

	return ValidateRooms(c.Rooms)
}

func ValidateRooms(rooms []models.RoomRate) error {
	if len(rooms) == 0 {
		return errors.New("at least one room type is required")
	}
	seen := make(map[string]bool)
	for _, room := range rooms {
		if strings.TrimSpace(room.Type) == "" {
			return fmt.Errorf("room '%s' has empty type", room.Name)
		}
		if room.NightlyRate < 0 {
			return fmt.Errorf("room '%s' has negative rate", room.Type)
		}
		if seen[room.Type] {
			return fmt.Errorf("duplicate room type found: %s", room.Type)
		}
		seen[room.Type] = true
	}
	return nil
}

// Room looks up a room by type.
func (c *Config) Room(roomType string) (models.RoomRate, bool) {
	for _, r := range c.Rooms {
		if r.Type == roomType {
			return r, true
		}
	}
	return models.RoomRate{}, false
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "guesthouse"
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8000
	}
	if c.HTTP.ReadTimeout == 0 {
		c.HTTP.ReadTimeout = 15 * time.Second
	}
	if c.HTTP.WriteTimeout == 0 {
		c.HTTP.WriteTimeout = 60 * time.Second
	}
	if c.HTTP.RateLimit.RPS > 0 && c.HTTP.RateLimit.Burst == 0 {
		c.HTTP.RateLimit.Burst = 5
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}

	// Storage defaults
	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendAuto
	}
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = "data"
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = c.Storage.DataDir + "/guesthouse.db"
	}

	// Mail defaults
	if c.Mail.Port == 0 {
		c.Mail.Port = 587
	}
	if c.Mail.Timeout == 0 {
		c.Mail.Timeout = 30 * time.Second
	}
	if c.Mail.From == "" {
		c.Mail.From = c.Mail.Username
	}
	if c.Mail.AdminEmail == "" {
		c.Mail.AdminEmail = c.Mail.Username
	}

	// Paystack defaults
	if c.Paystack.BaseURL == "" {
		c.Paystack.BaseURL = "https://api.paystack.co"
	}
	if c.Paystack.Currency == "" {
		c.Paystack.Currency = models.DefaultCurrency
	}
	if c.Paystack.Timeout == 0 {
		c.Paystack.Timeout = 30 * time.Second
	}
	if c.Paystack.WebhookSecret == "" {
		c.Paystack.WebhookSecret = c.Paystack.SecretKey
	}

	if c.Admin.SessionTTL == 0 {
		c.Admin.SessionTTL = models.DefaultSessionTTL * time.Second
	}

	// Email queue defaults
	if c.EmailQueue.MaxAttempts == 0 {
		c.EmailQueue.MaxAttempts = models.DefaultEmailAttempts
	}
	if c.EmailQueue.RetryDelay == 0 {
		c.EmailQueue.RetryDelay = 5 * time.Second
	}
	if c.EmailQueue.BackoffFactor == 0 {
		c.EmailQueue.BackoffFactor = 1
	}
	if c.EmailQueue.Buffer == 0 {
		c.EmailQueue.Buffer = models.EmailQueueBuffer
	}

	if len(c.Rooms) == 0 {
		c.Rooms = DefaultRooms()
	}
	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
	if c.Backup.Interval == 0 {
		c.Backup.Interval = 24 * time.Hour
	}
	if c.Backup.Path == "" {
		c.Backup.Path = "backups"
	}
}
