package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port  string
	Debug bool

	// Organization the dashboard is computed for
	OrgID   string
	OrgName string

	// Digest schedule configuration
	ReportSchedule string // "daily" or "weekly"
	TimeZone       string

	// Cycle cadence
	ScanInterval       time.Duration
	ReviewSyncInterval time.Duration
	MetricsInterval    time.Duration
	InsightInterval    time.Duration
	WidgetInterval     time.Duration

	// Timeouts and fan-out
	FetchTimeout    time.Duration
	NotifyTimeout   time.Duration
	ScanConcurrency int

	// Azure Storage configuration
	StorageAccount   string
	StorageContainer string

	// Notification configuration
	TeamsWebhookURL   string
	SlackWebhookURL   string
	NotificationEmail string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string

	// Data sources
	SourceEndpoints  map[string]string // source name -> snapshot endpoint
	SourceAPIKey     string
	ReviewEndpoint   string
	BusinessEndpoint string
	NewsWindow       time.Duration
	EntitiesFile     string

	// Response drafting
	ResponderProvider string // "template", "openai" or "anthropic"
	OpenAIAPIKey      string
	OpenAIModel       string
	AnthropicAPIKey   string
	AnthropicModel    string
	PositiveMinChars  int

	// Intelligence
	InsightWindow  time.Duration
	MetricsHistory int
}

// Load loads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := FromEnv()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// FromEnv reads the configuration without validating it. Local tools that
// replace the notification channels use it directly.
func FromEnv() *Config {
	return &Config{
		Port:    getEnv("PORT", "8080"),
		Debug:   getBoolEnv("DEBUG", false),
		OrgID:   getEnv("ORG_ID", "default"),
		OrgName: getEnv("ORG_NAME", "Our Business"),

		ReportSchedule: getEnv("REPORT_SCHEDULE", "weekly"),
		TimeZone:       getEnv("TIMEZONE", "UTC"),

		ScanInterval:       getDurationEnv("SCAN_INTERVAL", 60*time.Second),
		ReviewSyncInterval: getDurationEnv("REVIEW_SYNC_INTERVAL", 5*time.Minute),
		MetricsInterval:    getDurationEnv("METRICS_INTERVAL", 5*time.Minute),
		InsightInterval:    getDurationEnv("INSIGHT_INTERVAL", time.Hour),
		WidgetInterval:     getDurationEnv("WIDGET_INTERVAL", 30*time.Second),

		FetchTimeout:    getDurationEnv("FETCH_TIMEOUT", 20*time.Second),
		NotifyTimeout:   getDurationEnv("NOTIFY_TIMEOUT", 10*time.Second),
		ScanConcurrency: getIntEnv("SCAN_CONCURRENCY", 4),

		StorageAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		StorageContainer: getEnv("AZURE_STORAGE_CONTAINER", "market-watch"),

		TeamsWebhookURL:   getEnv("TEAMS_WEBHOOK_URL", ""),
		SlackWebhookURL:   getEnv("SLACK_WEBHOOK_URL", ""),
		NotificationEmail: getEnv("NOTIFICATION_EMAIL", ""),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getIntEnv("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),

		SourceEndpoints:  getMapEnv("SOURCE_ENDPOINTS"),
		SourceAPIKey:     getEnv("SOURCE_API_KEY", ""),
		ReviewEndpoint:   getEnv("REVIEW_ENDPOINT", ""),
		BusinessEndpoint: getEnv("BUSINESS_ENDPOINT", ""),
		NewsWindow:       getDurationEnv("NEWS_WINDOW", 24*time.Hour),
		EntitiesFile:     getEnv("ENTITIES_FILE", ""),

		ResponderProvider: getEnv("RESPONDER_PROVIDER", "template"),
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		AnthropicAPIKey:   getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:    getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929"),
		PositiveMinChars:  getIntEnv("AUTO_RESPOND_POSITIVE_MIN_CHARS", 80),

		InsightWindow:  getDurationEnv("INSIGHT_WINDOW", 30*24*time.Hour),
		MetricsHistory: getIntEnv("METRICS_HISTORY", 288),
	}
}

func (c *Config) validate() error {
	if c.ReportSchedule != "daily" && c.ReportSchedule != "weekly" {
		return fmt.Errorf("REPORT_SCHEDULE must be 'daily' or 'weekly'")
	}

	if c.TeamsWebhookURL == "" && c.NotificationEmail == "" && c.SlackWebhookURL == "" {
		return fmt.Errorf("at least one notification method must be configured (TEAMS_WEBHOOK_URL, SLACK_WEBHOOK_URL or NOTIFICATION_EMAIL)")
	}

	if c.NotificationEmail != "" {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when NOTIFICATION_EMAIL is set")
		}
	}

	for name, d := range map[string]time.Duration{
		"SCAN_INTERVAL":        c.ScanInterval,
		"REVIEW_SYNC_INTERVAL": c.ReviewSyncInterval,
		"METRICS_INTERVAL":     c.MetricsInterval,
		"INSIGHT_INTERVAL":     c.InsightInterval,
		"WIDGET_INTERVAL":      c.WidgetInterval,
		"FETCH_TIMEOUT":        c.FetchTimeout,
		"NOTIFY_TIMEOUT":       c.NotifyTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	if c.ScanConcurrency < 1 {
		return fmt.Errorf("SCAN_CONCURRENCY must be at least 1")
	}

	switch c.ResponderProvider {
	case "template":
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when RESPONDER_PROVIDER is 'openai'")
		}
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required when RESPONDER_PROVIDER is 'anthropic'")
		}
	default:
		return fmt.Errorf("RESPONDER_PROVIDER must be 'template', 'openai' or 'anthropic'")
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getMapEnv parses "name=value,name=value" pairs
func getMapEnv(key string) map[string]string {
	result := make(map[string]string)
	value := os.Getenv(key)
	if value == "" {
		return result
	}
	for _, pair := range strings.Split(value, ",") {
		name, target, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || name == "" || target == "" {
			continue
		}
		result[strings.TrimSpace(name)] = strings.TrimSpace(target)
	}
	return result
}
