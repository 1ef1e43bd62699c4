package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"basegraph.app/intake/core/db"
)

type Config struct {
	OTel       OTelConfig
	Slack      SlackConfig
	Tracker    TrackerConfig
	LLM        LLMConfig
	Sessions   SessionConfig
	Dispatch   DispatchConfig
	Duplicates DuplicateConfig
	Catalog    CatalogConfig
	Env        string
	Port       string
	LogLevel   string
	NodeID     int64
	// CallTimeout bounds every language model and tracker call.
	CallTimeout time.Duration
	DB          db.Config
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
}

type SlackConfig struct {
	BotToken      string
	SigningSecret string
}

type TrackerConfig struct {
	Provider     string // "jira" or "gitlab"
	JiraServer   string
	JiraUsername string
	JiraAPIToken string
	GitLabURL    string
	GitLabToken  string
}

type LLMConfig struct {
	Provider  string // "openai" or "anthropic"
	APIKey    string
	BaseURL   string // Optional: for custom endpoints
	Model     string
	MaxTokens int
}

type SessionConfig struct {
	Backend   string // "memory" or "redis"
	TTL       time.Duration
	RedisURL  string
	KeyPrefix string
	LockTTL   time.Duration
}

type DispatchConfig struct {
	Concurrency int
	Backend     string // "local" or "redis"
	Stream      string
	Group       string
	Consumer    string
	MaxAttempts int
}

type DuplicateConfig struct {
	MaxResults int
	Scoring    bool
	Threshold  float64
}

type CatalogConfig struct {
	TTL               time.Duration
	DefaultProjectKey string
}

type ServiceType string

const (
	ServiceTypeServer  ServiceType = "server"
	ServiceTypeConsole ServiceType = "console"
)

// Load loads configuration from environment variables.
// In development, it loads from service-specific .env files:
//   - .env.server for the webhook server
//   - .env.console for the local console driver
//
// Falls back to .env if service-specific file doesn't exist.
func Load(serviceType ServiceType) (Config, error) {
	if getEnv("INTAKE_ENV", "development") == "development" {
		envFile := fmt.Sprintf(".env.%s", serviceType)
		if err := godotenv.Load(envFile); err != nil {
			_ = godotenv.Load(".env")
		}
	}

	cfg := Config{
		Env:         getEnv("INTAKE_ENV", "development"),
		Port:        getEnv("PORT", "3000"),
		LogLevel:    getEnv("LOG_LEVEL", getEnv("APP_LOG_LEVEL", "")),
		NodeID:      int64(getEnvInt("SNOWFLAKE_NODE", 1)),
		CallTimeout: getEnvDuration("CALL_TIMEOUT", 20*time.Second),
		DB: db.Config{
			DSN:      getEnv("DATABASE_URL", ""),
			MaxConns: getEnvInt32("DB_MAX_CONNS", 5),
			MinConns: getEnvInt32("DB_MIN_CONNS", 1),
		},
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "intake"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
		},
		Slack: SlackConfig{
			BotToken:      getEnv("SLACK_BOT_TOKEN", ""),
			SigningSecret: getEnv("SLACK_SIGNING_SECRET", ""),
		},
		Tracker: TrackerConfig{
			Provider:     strings.ToLower(getEnv("TRACKER_PROVIDER", "jira")),
			JiraServer:   strings.TrimSuffix(getEnv("JIRA_SERVER", ""), "/"),
			JiraUsername: getEnv("JIRA_USERNAME", ""),
			JiraAPIToken: getEnv("JIRA_API_TOKEN", ""),
			GitLabURL:    getEnv("GITLAB_BASE_URL", ""),
			GitLabToken:  getEnv("GITLAB_TOKEN", ""),
		},
		LLM: LLMConfig{
			Provider:  strings.ToLower(getEnv("LLM_PROVIDER", "anthropic")),
			APIKey:    getEnv("LLM_API_KEY", getEnv("CLAUDE_API_KEY", "")),
			BaseURL:   getEnv("LLM_BASE_URL", ""),
			Model:     getEnv("LLM_MODEL", ""),
			MaxTokens: getEnvInt("LLM_MAX_TOKENS", 500),
		},
		Sessions: SessionConfig{
			Backend:   strings.ToLower(getEnv("SESSION_BACKEND", "memory")),
			TTL:       getEnvDuration("SESSION_TTL", 30*time.Minute),
			RedisURL:  getEnv("REDIS_URL", "redis://localhost:6379/0"),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "intake"),
			LockTTL:   getEnvDuration("LOCK_TTL", 2*time.Minute),
		},
		Dispatch: DispatchConfig{
			Concurrency: getEnvInt("DISPATCH_CONCURRENCY", 32),
			Backend:     strings.ToLower(getEnv("DISPATCH_BACKEND", "local")),
			Stream:      getEnv("DISPATCH_STREAM", "intake_events"),
			Group:       getEnv("DISPATCH_GROUP", "intake"),
			Consumer:    getEnv("DISPATCH_CONSUMER", hostname()),
			MaxAttempts: getEnvInt("DISPATCH_MAX_ATTEMPTS", 3),
		},
		Duplicates: DuplicateConfig{
			MaxResults: getEnvInt("DUPLICATE_MAX_RESULTS", 5),
			Scoring:    getEnvBool("DUPLICATE_SCORING", false),
			Threshold:  getEnvFloat("DUPLICATE_THRESHOLD", 0.6),
		},
		Catalog: CatalogConfig{
			TTL:               getEnvDuration("PROJECT_CACHE_TTL", 10*time.Minute),
			DefaultProjectKey: getEnv("DEFAULT_PROJECT_KEY", getEnv("DEFAULT_JIRA_PROJECT_KEY", "")),
		},
	}

	if err := cfg.validate(serviceType); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate(serviceType ServiceType) error {
	if serviceType == ServiceTypeServer && !c.Slack.Enabled() {
		return fmt.Errorf("SLACK_BOT_TOKEN and SLACK_SIGNING_SECRET are required")
	}

	switch c.Tracker.Provider {
	case "jira":
		if c.Tracker.JiraServer == "" || c.Tracker.JiraUsername == "" || c.Tracker.JiraAPIToken == "" {
			return fmt.Errorf("JIRA_SERVER, JIRA_USERNAME and JIRA_API_TOKEN are required")
		}
	case "gitlab":
		if c.Tracker.GitLabToken == "" {
			return fmt.Errorf("GITLAB_TOKEN is required")
		}
	default:
		return fmt.Errorf("unsupported TRACKER_PROVIDER: %s", c.Tracker.Provider)
	}

	if !c.LLM.Enabled() {
		return fmt.Errorf("LLM_API_KEY is required and LLM_PROVIDER must be openai or anthropic")
	}

	switch c.Sessions.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported SESSION_BACKEND: %s", c.Sessions.Backend)
	}

	switch c.Dispatch.Backend {
	case "local":
	case "redis":
		// Replicas sharing a stream must also share sessions and locks.
		if !c.Sessions.UsesRedis() {
			return fmt.Errorf("DISPATCH_BACKEND=redis requires SESSION_BACKEND=redis")
		}
	default:
		return fmt.Errorf("unsupported DISPATCH_BACKEND: %s", c.Dispatch.Backend)
	}

	if c.Duplicates.Threshold < 0 || c.Duplicates.Threshold > 1 {
		return fmt.Errorf("DUPLICATE_THRESHOLD must be within [0,1]")
	}

	return nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

func (c SlackConfig) Enabled() bool {
	return c.BotToken != "" && c.SigningSecret != ""
}

func (c LLMConfig) Enabled() bool {
	return c.APIKey != "" && (c.Provider == "openai" || c.Provider == "anthropic")
}

func (c SessionConfig) UsesRedis() bool {
	return c.Backend == "redis"
}

func (c DispatchConfig) UsesRedis() bool {
	return c.Backend == "redis"
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return "intake"
	}
	return name
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt32(key string, fallback int32) int32 {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(i)
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
