package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service. It is built once
// at startup and passed into every component; nothing reads the environment
// after Load returns.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Webhook  WebhookConfig
	GitLab   GitLabConfig
	Tracker  TrackerConfig
	Summary  SummaryConfig
	Bridge   BridgeConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values for the delivery audit log.
// Auditing is disabled when DSN is empty.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values for the correlation store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// WebhookConfig guards the inbound webhook endpoints. An empty secret
// disables the token check.
type WebhookConfig struct {
	Secret string
}

// GitLabConfig targets the primary ticket store: one project's issue
// tracker, addressed by its full path.
type GitLabConfig struct {
	BaseURL        string
	Token          string
	Project        string
	Labels         []string
	SeverityLabels map[string]string
}

// TrackerConfig targets the secondary ticket store's REST API.
type TrackerConfig struct {
	BaseURL   string
	Token     string
	ProjectID string
}

// SummaryConfig points at an OpenAI-compatible chat-completions endpoint.
// Summarization is best-effort and disabled when APIURL is empty.
type SummaryConfig struct {
	APIURL string
	APIKey string
	Model  string
}

// BridgeConfig holds the correlation policy toggles. Update strategies are
// "comment" (append an occurrence note) or "patch" (re-render the body,
// rewriting only the Status section).
type BridgeConfig struct {
	CreatePrimaryOnFirstEvent bool
	CommentOnRepeatUpdate     bool
	TriggerTag                string
	PrimaryFrameLimit         int
	SecondaryFrameLimit       int
	PrimaryUpdateStrategy     string
	SecondaryUpdateStrategy   string
}

// Load reads configuration from environment variables, applying defaults
// where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	severityLabels, err := parseSeverityLabels(getEnv("SEVERITY_LABELS", "fatal=critical,error=bug"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "alert-bridge"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Webhook: WebhookConfig{
			Secret: os.Getenv("WEBHOOK_SECRET"),
		},
		GitLab: GitLabConfig{
			BaseURL:        getEnv("GITLAB_BASE_URL", ""),
			Token:          os.Getenv("GITLAB_TOKEN"),
			Project:        os.Getenv("GITLAB_PROJECT"),
			Labels:         splitList(getEnv("GITLAB_LABELS", "alert-bridge")),
			SeverityLabels: severityLabels,
		},
		Tracker: TrackerConfig{
			BaseURL:   getEnv("TRACKER_BASE_URL", ""),
			Token:     os.Getenv("TRACKER_TOKEN"),
			ProjectID: os.Getenv("TRACKER_PROJECT_ID"),
		},
		Summary: SummaryConfig{
			APIURL: getEnv("SUMMARY_API_URL", ""),
			APIKey: os.Getenv("SUMMARY_API_KEY"),
			Model:  getEnv("SUMMARY_MODEL", "gpt-4o-mini"),
		},
		Bridge: BridgeConfig{
			CreatePrimaryOnFirstEvent: getEnvAsBool("CREATE_PRIMARY_ON_FIRST_EVENT", false),
			CommentOnRepeatUpdate:     getEnvAsBool("COMMENT_ON_REPEAT_UPDATE", true),
			TriggerTag:                getEnv("TRIGGER_TAG", "ai-to-fix"),
			PrimaryFrameLimit:         getEnvAsInt("PRIMARY_FRAME_LIMIT", 8),
			SecondaryFrameLimit:       getEnvAsInt("SECONDARY_FRAME_LIMIT", 4),
			PrimaryUpdateStrategy:     getEnv("PRIMARY_UPDATE_STRATEGY", "comment"),
			SecondaryUpdateStrategy:   getEnv("SECONDARY_UPDATE_STRATEGY", "patch"),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// parseSeverityLabels parses "fatal=critical,error=bug" into a map.
func parseSeverityLabels(raw string) (map[string]string, error) {
	labels := make(map[string]string)
	for _, pair := range splitList(raw) {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid SEVERITY_LABELS entry %q", pair)
		}
		labels[parts[0]] = parts[1]
	}
	return labels, nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
