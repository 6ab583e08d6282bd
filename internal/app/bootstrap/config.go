package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration for the orchestrator.
// It merges file defaults and environment overrides to support both local and deployed runs.
type Config struct {
	ServiceID string

	HTTPPort int
	GRPCPort int

	DBDriver    string
	DatabaseURL string
	RedisURL    string
	MaxDBConns  int32

	KafkaBrokers []string

	AnthropicAPIKey  string
	AnthropicModel   string
	AnthropicBaseURL string

	SMTPHost     string
	SMTPPort     int
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	DiscordBotToken  string
	DiscordChannelID string

	CalendarBaseURL string

	ReplyTimeout    time.Duration
	MaxStepAttempts int
	RetryBaseDelay  time.Duration
	RetryMaxDelay   time.Duration

	RunPollInterval time.Duration
	RunBatchSize    int
	RunClaimTTL     time.Duration

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxClaimTTL     time.Duration
	OutboxMaxRetries   int
}

// configFile mirrors the YAML schema used by configs/default.yaml.
// It is intentionally separate from Config so runtime-only fields stay internal.
type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		DBDriver     string   `yaml:"db_driver"`
		DatabaseURL  string   `yaml:"database_url"`
		RedisURL     string   `yaml:"redis_url"`
		KafkaBrokers []string `yaml:"kafka_brokers"`
		CalendarURL  string   `yaml:"calendar_url"`
	} `yaml:"dependencies"`
	Anthropic struct {
		APIKey  string `yaml:"api_key"`
		Model   string `yaml:"model"`
		BaseURL string `yaml:"base_url"`
	} `yaml:"anthropic"`
	SMTP struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		From     string `yaml:"from"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
	} `yaml:"smtp"`
	Discord struct {
		BotToken  string `yaml:"bot_token"`
		ChannelID string `yaml:"channel_id"`
	} `yaml:"discord"`
	Workflow struct {
		ReplyTimeoutHours int `yaml:"reply_timeout_hours"`
		MaxStepAttempts   int `yaml:"max_step_attempts"`
	} `yaml:"workflow"`
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
// This order keeps local bootstrap simple while allowing environment-specific overrides.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:          "upsell-orchestrator",
		HTTPPort:           8080,
		GRPCPort:           9090,
		DBDriver:           "postgres",
		MaxDBConns:         20,
		AnthropicModel:     "claude-3-5-sonnet-20241022",
		SMTPPort:           587,
		SMTPFrom:           "upsell@easytrade.example.com",
		ReplyTimeout:       24 * time.Hour,
		MaxStepAttempts:    3,
		RetryBaseDelay:     5 * time.Second,
		RetryMaxDelay:      10 * time.Minute,
		RunPollInterval:    time.Second,
		RunBatchSize:       20,
		RunClaimTTL:        2 * time.Minute,
		OutboxPollInterval: 2 * time.Second,
		OutboxBatchSize:    100,
		OutboxClaimTTL:     30 * time.Second,
		OutboxMaxRetries:   5,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Service.GRPCPort > 0 {
			cfg.GRPCPort = f.Service.GRPCPort
		}
		if f.Dependencies.DBDriver != "" {
			cfg.DBDriver = f.Dependencies.DBDriver
		}
		if f.Dependencies.DatabaseURL != "" {
			cfg.DatabaseURL = f.Dependencies.DatabaseURL
		}
		if f.Dependencies.RedisURL != "" {
			cfg.RedisURL = f.Dependencies.RedisURL
		}
		if len(f.Dependencies.KafkaBrokers) > 0 {
			cfg.KafkaBrokers = f.Dependencies.KafkaBrokers
		}
		if f.Dependencies.CalendarURL != "" {
			cfg.CalendarBaseURL = f.Dependencies.CalendarURL
		}
		if f.Anthropic.APIKey != "" {
			cfg.AnthropicAPIKey = f.Anthropic.APIKey
		}
		if f.Anthropic.Model != "" {
			cfg.AnthropicModel = f.Anthropic.Model
		}
		if f.Anthropic.BaseURL != "" {
			cfg.AnthropicBaseURL = f.Anthropic.BaseURL
		}
		if f.SMTP.Host != "" {
			cfg.SMTPHost = f.SMTP.Host
		}
		if f.SMTP.Port > 0 {
			cfg.SMTPPort = f.SMTP.Port
		}
		if f.SMTP.From != "" {
			cfg.SMTPFrom = f.SMTP.From
		}
		if f.SMTP.Username != "" {
			cfg.SMTPUsername = f.SMTP.Username
		}
		if f.SMTP.Password != "" {
			cfg.SMTPPassword = f.SMTP.Password
		}
		if f.Discord.BotToken != "" {
			cfg.DiscordBotToken = f.Discord.BotToken
		}
		if f.Discord.ChannelID != "" {
			cfg.DiscordChannelID = f.Discord.ChannelID
		}
		if f.Workflow.ReplyTimeoutHours > 0 {
			cfg.ReplyTimeout = time.Duration(f.Workflow.ReplyTimeoutHours) * time.Hour
		}
		if f.Workflow.MaxStepAttempts > 0 {
			cfg.MaxStepAttempts = f.Workflow.MaxStepAttempts
		}
	}

	cfg.DBDriver = strings.ToLower(envOrDefault("DB_DRIVER", cfg.DBDriver))
	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.CalendarBaseURL = envOrDefault("CALENDAR_URL", cfg.CalendarBaseURL)
	cfg.AnthropicAPIKey = envOrDefault("ANTHROPIC_API_KEY", cfg.AnthropicAPIKey)
	cfg.AnthropicModel = envOrDefault("ANTHROPIC_MODEL", cfg.AnthropicModel)
	cfg.AnthropicBaseURL = envOrDefault("ANTHROPIC_BASE_URL", cfg.AnthropicBaseURL)
	cfg.SMTPHost = envOrDefault("SMTP_HOST", cfg.SMTPHost)
	cfg.SMTPPort = envInt("SMTP_PORT", cfg.SMTPPort)
	cfg.SMTPFrom = envOrDefault("SMTP_FROM", cfg.SMTPFrom)
	cfg.SMTPUsername = envOrDefault("SMTP_USERNAME", cfg.SMTPUsername)
	cfg.SMTPPassword = envOrDefault("SMTP_PASSWORD", cfg.SMTPPassword)
	cfg.DiscordBotToken = envOrDefault("DISCORD_BOT_TOKEN", cfg.DiscordBotToken)
	cfg.DiscordChannelID = envOrDefault("DISCORD_CHANNEL_ID", cfg.DiscordChannelID)

	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))

	cfg.ReplyTimeout = time.Duration(envInt("REPLY_TIMEOUT_HOURS", int(cfg.ReplyTimeout.Hours()))) * time.Hour
	cfg.MaxStepAttempts = envInt("MAX_STEP_ATTEMPTS", cfg.MaxStepAttempts)
	cfg.RetryBaseDelay = time.Duration(envInt("RETRY_BASE_DELAY_SECONDS", int(cfg.RetryBaseDelay.Seconds()))) * time.Second
	cfg.RetryMaxDelay = time.Duration(envInt("RETRY_MAX_DELAY_SECONDS", int(cfg.RetryMaxDelay.Seconds()))) * time.Second
	cfg.RunPollInterval = time.Duration(envInt("RUN_POLL_SECONDS", int(cfg.RunPollInterval.Seconds()))) * time.Second
	cfg.RunBatchSize = envInt("RUN_BATCH_SIZE", cfg.RunBatchSize)
	cfg.RunClaimTTL = time.Duration(envInt("RUN_CLAIM_TTL_SECONDS", int(cfg.RunClaimTTL.Seconds()))) * time.Second
	cfg.OutboxPollInterval = time.Duration(envInt("OUTBOX_POLL_SECONDS", int(cfg.OutboxPollInterval.Seconds()))) * time.Second
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.OutboxClaimTTL = time.Duration(envInt("OUTBOX_CLAIM_TTL_SECONDS", int(cfg.OutboxClaimTTL.Seconds()))) * time.Second
	cfg.OutboxMaxRetries = envInt("OUTBOX_MAX_RETRIES", cfg.OutboxMaxRetries)

	if cfg.DBDriver == "postgres" && cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("missing DB_URL/POSTGRES_URL for postgres driver")
	}

	return cfg, nil
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt parses integer env vars with safe fallback on empty/invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// envCSV parses comma-separated env vars and removes empty segments.
func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		parts = append(parts, trimmed)
	}
	if len(parts) == 0 {
		return fallback
	}
	return parts
}
