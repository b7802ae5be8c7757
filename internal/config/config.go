// Package config loads runtime settings from the environment
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Notification channels
const (
	ChannelLINE     = "line"
	ChannelTelegram = "telegram"
)

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Port     int
	APIToken string // bearer token required on dispatcher action requests, empty disables the check
}

// DatabaseConfig points at the SQLite file
type DatabaseConfig struct {
	Path string
}

// LINEConfig holds Messaging API credentials
type LINEConfig struct {
	ChannelAccessToken string
	ChannelSecret      string
	APIBaseURL         string
}

// TelegramConfig holds the bot token
type TelegramConfig struct {
	BotToken string
}

// SheetsConfig describes where elder and health rows live
type SheetsConfig struct {
	SpreadsheetID   string
	APIKey          string
	CredentialsFile string // service-account JSON, optional
	APIBaseURL      string
	PublishedID     string            // "published to web" document id, used when no API access is configured
	PublishedGIDs   map[string]string // sheet name -> gid for published documents
	EldersRange     string
	HealthRange     string
	CacheTTL        time.Duration
	CacheSize       int
}

// ChartConfig configures the chart image endpoint
type ChartConfig struct {
	BaseURL string
	Width   int
	Height  int
}

// OpenAIConfig enables the free-text query agent when APIKey is set
type OpenAIConfig struct {
	APIKey string
}

// SchedulerConfig controls the batch notification job
type SchedulerConfig struct {
	Spec             string
	Timezone         string
	AnomalyThreshold int
	WindowDays       int
}

// NotifyConfig selects the push channel
type NotifyConfig struct {
	Channel string
}

// LogConfig controls zerolog output
type LogConfig struct {
	Level  string
	Format string
}

// Config is the full runtime configuration passed into every component
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	LINE      LINEConfig
	Telegram  TelegramConfig
	Sheets    SheetsConfig
	Chart     ChartConfig
	OpenAI    OpenAIConfig
	Scheduler SchedulerConfig
	Notify    NotifyConfig
	Log       LogConfig
}

// Default returns a configuration with every default filled in
func Default() *Config {
	return &Config{
		Server:   ServerConfig{Port: 8080},
		Database: DatabaseConfig{Path: "data/daycare.db"},
		LINE:     LINEConfig{APIBaseURL: "https://api.line.me"},
		Sheets: SheetsConfig{
			APIBaseURL:    "https://sheets.googleapis.com",
			PublishedGIDs: map[string]string{},
			EldersRange:   "Elders!A:B",
			HealthRange:   "HealthRecords!A:F",
			CacheTTL:      5 * time.Minute,
			CacheSize:     64,
		},
		Chart: ChartConfig{BaseURL: "https://quickchart.io/chart", Width: 600, Height: 400},
		Scheduler: SchedulerConfig{
			Spec:             "0 9 * * *",
			Timezone:         "Asia/Taipei",
			AnomalyThreshold: 3,
			WindowDays:       30,
		},
		Notify: NotifyConfig{Channel: ChannelLINE},
		Log:    LogConfig{Level: "info", Format: "json"},
	}
}

// Load reads an optional .env file, then the process environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("Could not read .env file")
	}

	cfg := Default()
	cfg.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv overrides fields with any environment variables that are set
func (c *Config) LoadFromEnv() {
	c.Server.Port = getEnvInt("PORT", c.Server.Port)
	c.Server.APIToken = getEnv("API_TOKEN", c.Server.APIToken)
	c.Database.Path = getEnv("DB_PATH", c.Database.Path)

	c.LINE.ChannelAccessToken = getEnv("LINE_CHANNEL_ACCESS_TOKEN", c.LINE.ChannelAccessToken)
	c.LINE.ChannelSecret = getEnv("LINE_CHANNEL_SECRET", c.LINE.ChannelSecret)
	c.LINE.APIBaseURL = getEnv("LINE_API_BASE_URL", c.LINE.APIBaseURL)

	c.Telegram.BotToken = getEnv("TELEGRAM_BOT_TOKEN", c.Telegram.BotToken)

	c.Sheets.SpreadsheetID = getEnv("GOOGLE_SHEETS_ID", c.Sheets.SpreadsheetID)
	c.Sheets.APIKey = getEnv("GOOGLE_API_KEY", c.Sheets.APIKey)
	c.Sheets.CredentialsFile = getEnv("GOOGLE_CREDENTIALS_FILE", c.Sheets.CredentialsFile)
	c.Sheets.APIBaseURL = getEnv("GOOGLE_SHEETS_API_BASE_URL", c.Sheets.APIBaseURL)
	c.Sheets.PublishedID = getEnv("GOOGLE_SHEETS_PUBLISHED_ID", c.Sheets.PublishedID)
	if gids := os.Getenv("GOOGLE_SHEETS_PUBLISHED_GIDS"); gids != "" {
		c.Sheets.PublishedGIDs = parsePairs(gids)
	}
	c.Sheets.EldersRange = getEnv("SHEETS_ELDERS_RANGE", c.Sheets.EldersRange)
	c.Sheets.HealthRange = getEnv("SHEETS_HEALTH_RANGE", c.Sheets.HealthRange)
	c.Sheets.CacheTTL = getEnvDuration("SHEETS_CACHE_TTL", c.Sheets.CacheTTL)
	c.Sheets.CacheSize = getEnvInt("SHEETS_CACHE_SIZE", c.Sheets.CacheSize)

	c.Chart.BaseURL = getEnv("CHART_BASE_URL", c.Chart.BaseURL)
	c.Chart.Width = getEnvInt("CHART_WIDTH", c.Chart.Width)
	c.Chart.Height = getEnvInt("CHART_HEIGHT", c.Chart.Height)

	c.OpenAI.APIKey = getEnv("OPENAI_API_KEY", c.OpenAI.APIKey)

	c.Scheduler.Spec = getEnv("NOTIFY_CRON", c.Scheduler.Spec)
	c.Scheduler.Timezone = getEnv("NOTIFY_TIMEZONE", c.Scheduler.Timezone)
	c.Scheduler.AnomalyThreshold = getEnvInt("NOTIFY_ANOMALY_THRESHOLD", c.Scheduler.AnomalyThreshold)
	c.Scheduler.WindowDays = getEnvInt("NOTIFY_WINDOW_DAYS", c.Scheduler.WindowDays)

	c.Notify.Channel = strings.ToLower(getEnv("NOTIFY_CHANNEL", c.Notify.Channel))

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
}

// Validate checks settings that would otherwise fail later at runtime
func (c *Config) Validate() error {
	switch c.Notify.Channel {
	case ChannelLINE, ChannelTelegram:
	default:
		return fmt.Errorf("NOTIFY_CHANNEL must be %q or %q, got %q", ChannelLINE, ChannelTelegram, c.Notify.Channel)
	}
	if c.Scheduler.WindowDays <= 0 {
		return fmt.Errorf("NOTIFY_WINDOW_DAYS must be positive, got %d", c.Scheduler.WindowDays)
	}
	if c.Sheets.CacheSize <= 0 {
		return fmt.Errorf("SHEETS_CACHE_SIZE must be positive, got %d", c.Sheets.CacheSize)
	}
	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("invalid NOTIFY_TIMEZONE %q: %w", c.Scheduler.Timezone, err)
	}
	return nil
}

// Location returns the scheduler time zone, falling back to UTC
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Ignoring non-integer environment value")
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Ignoring invalid duration")
		return fallback
	}
	return d
}

// parsePairs parses "a=1,b=2" into a map
func parsePairs(s string) map[string]string {
	out := map[string]string{}
	for _, pair := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out
}
