package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// LLM providers
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderNone   = "none"
)

// Config holds application configuration
type Config struct {
	Port     string
	LogLevel logrus.Level
	DataPath string

	LLMProvider    string // resolved: openai, gemini or none
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	OpenAIModel    string
	GeminiAPIKey   string
	GeminiModel    string
	LLMTimeout     time.Duration
	LLMMaxTokens   int
	LLMTemperature float64

	InsightRatePerMin int

	DBConn string

	JWTSecret         string
	AdminUsername     string
	AdminPasswordHash string

	KeyRateURL string

	ReloadSchedule   string
	DigestSchedule   string
	DigestRecipients []string
	SMTPHost         string
	SMTPPort         string
	SMTPUsername     string
	SMTPPassword     string
	SenderEmail      string
}

// NewConfig loads configuration from environment variables. When CONFIG_FILE
// names a YAML file of KEY: value pairs, its values serve as defaults that the
// environment overrides.
func NewConfig() (*Config, error) {
	file, err := loadFile(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return nil, err
	}
	getEnv := func(key, defaultVal string) string {
		if value, exists := os.LookupEnv(key); exists {
			return value
		}
		if value, exists := file[key]; exists {
			return value
		}
		return defaultVal
	}

	cfg := &Config{
		Port:              getEnv("PORT", "8050"),
		DataPath:          getEnv("DATA_PATH", "german_credit_data.csv"),
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:       getEnv("OPENAI_MODEL", "gpt-3.5-turbo"),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GeminiModel:       getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		DBConn:            getEnv("DB_CONN", ""),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		AdminUsername:     getEnv("ADMIN_USERNAME", "admin"),
		AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
		KeyRateURL:        getEnv("KEY_RATE_URL", ""),
		ReloadSchedule:    getEnv("RELOAD_SCHEDULE", "@every 5m"),
		DigestSchedule:    getEnv("DIGEST_SCHEDULE", ""),
		DigestRecipients:  splitList(getEnv("DIGEST_RECIPIENTS", "")),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getEnv("SMTP_PORT", "587"),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
		SenderEmail:       getEnv("SENDER_EMAIL", ""),
	}

	if cfg.DataPath == "" {
		return nil, fmt.Errorf("DATA_PATH is required")
	}
	if cfg.LogLevel, err = logrus.ParseLevel(getEnv("LOG_LEVEL", "INFO")); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	if cfg.LLMTimeout, err = time.ParseDuration(getEnv("LLM_TIMEOUT", "60s")); err != nil {
		return nil, fmt.Errorf("invalid LLM_TIMEOUT: %w", err)
	}
	if cfg.LLMMaxTokens, err = strconv.Atoi(getEnv("LLM_MAX_TOKENS", "600")); err != nil {
		return nil, fmt.Errorf("invalid LLM_MAX_TOKENS: %w", err)
	}
	if cfg.LLMTemperature, err = strconv.ParseFloat(getEnv("LLM_TEMPERATURE", "0.7"), 64); err != nil {
		return nil, fmt.Errorf("invalid LLM_TEMPERATURE: %w", err)
	}
	if cfg.InsightRatePerMin, err = strconv.Atoi(getEnv("INSIGHT_RATE_PER_MIN", "6")); err != nil {
		return nil, fmt.Errorf("invalid INSIGHT_RATE_PER_MIN: %w", err)
	}
	if cfg.LLMProvider, err = resolveProvider(getEnv("LLM_PROVIDER", ""), cfg); err != nil {
		return nil, err
	}
	if cfg.DigestSchedule != "" {
		if cfg.SMTPHost == "" || cfg.SenderEmail == "" {
			return nil, fmt.Errorf("DIGEST_SCHEDULE requires SMTP_HOST and SENDER_EMAIL")
		}
		if len(cfg.DigestRecipients) == 0 {
			return nil, fmt.Errorf("DIGEST_SCHEDULE requires DIGEST_RECIPIENTS")
		}
	}

	return cfg, nil
}

// AdminEnabled reports whether the login and admin routes are available
func (c *Config) AdminEnabled() bool {
	return c.JWTSecret != "" && c.AdminPasswordHash != ""
}

// resolveProvider picks the narrative provider. A provider without an API key
// resolves to none so the feature is disabled instead of failing startup.
func resolveProvider(requested string, cfg *Config) (string, error) {
	switch strings.ToLower(strings.TrimSpace(requested)) {
	case "":
		if cfg.OpenAIAPIKey != "" {
			return ProviderOpenAI, nil
		}
		if cfg.GeminiAPIKey != "" {
			return ProviderGemini, nil
		}
		return ProviderNone, nil
	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return ProviderNone, nil
		}
		return ProviderOpenAI, nil
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return ProviderNone, nil
		}
		return ProviderGemini, nil
	case ProviderNone, "disabled":
		return ProviderNone, nil
	default:
		return "", fmt.Errorf("unknown LLM_PROVIDER %q", requested)
	}
}

func loadFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	values := map[string]string{}
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return values, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
