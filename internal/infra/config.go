package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"studio/internal/apperr"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv          string
	Port            string
	DatabaseURL     string
	SessionSecret   string
	StorageBasePath string
	StorageBaseURL  string

	// Generation API.
	GeminiAPIKey      string
	GeminiBaseURL     string
	GeminiTextModel   string
	GeminiImageModel  string
	GeminiSpeechModel string

	// Account backend identifiers. All six must be present and none may
	// still be a placeholder, otherwise the server refuses to start.
	AccountAPIKey        string
	AccountAuthDomain    string
	AccountProjectID     string
	AccountStorageBucket string
	AccountSenderID      string
	AccountAppID         string

	GoogleIssuer   string
	GoogleClientID string

	AllowedOrigins []string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables and applies
// defaults where needed. A missing or placeholder credential is fatal: the
// caller is expected to stop rather than run with partial functionality.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:          getEnv("APP_ENV", "development"),
		Port:            getEnv("PORT", "8080"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		SessionSecret:   os.Getenv("SESSION_SECRET"),
		StorageBasePath: getEnv("STORAGE_BASE_PATH", "data/images"),
		StorageBaseURL:  getEnv("STORAGE_BASE_URL", "http://localhost:8080/static"),

		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		GeminiBaseURL:     getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		GeminiTextModel:   getEnv("GEMINI_TEXT_MODEL", "gemini-2.5-flash"),
		GeminiImageModel:  getEnv("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image"),
		GeminiSpeechModel: getEnv("GEMINI_SPEECH_MODEL", "gemini-2.5-flash-preview-tts"),

		AccountAPIKey:        os.Getenv("ACCOUNT_API_KEY"),
		AccountAuthDomain:    os.Getenv("ACCOUNT_AUTH_DOMAIN"),
		AccountProjectID:     os.Getenv("ACCOUNT_PROJECT_ID"),
		AccountStorageBucket: os.Getenv("ACCOUNT_STORAGE_BUCKET"),
		AccountSenderID:      os.Getenv("ACCOUNT_MESSAGING_SENDER_ID"),
		AccountAppID:         os.Getenv("ACCOUNT_APP_ID"),

		GoogleIssuer:   getEnv("GOOGLE_ISSUER", "https://accounts.google.com"),
		GoogleClientID: os.Getenv("GOOGLE_CLIENT_ID"),

		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 60)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("%w: DATABASE_URL is required", apperr.ErrConfiguration)
	}
	if cfg.SessionSecret == "" {
		return nil, fmt.Errorf("%w: SESSION_SECRET is required", apperr.ErrConfiguration)
	}

	credentials := []struct {
		name  string
		value string
	}{
		{"GEMINI_API_KEY", cfg.GeminiAPIKey},
		{"ACCOUNT_API_KEY", cfg.AccountAPIKey},
		{"ACCOUNT_AUTH_DOMAIN", cfg.AccountAuthDomain},
		{"ACCOUNT_PROJECT_ID", cfg.AccountProjectID},
		{"ACCOUNT_STORAGE_BUCKET", cfg.AccountStorageBucket},
		{"ACCOUNT_MESSAGING_SENDER_ID", cfg.AccountSenderID},
		{"ACCOUNT_APP_ID", cfg.AccountAppID},
	}
	for _, cred := range credentials {
		if isPlaceholder(cred.value) {
			return nil, fmt.Errorf("%w: %s is absent or still set to a placeholder", apperr.ErrConfiguration, cred.name)
		}
	}

	return cfg, nil
}

// isPlaceholder reports whether a credential is unusable: empty, or still
// carrying the documented YOUR_ prefix from the example configuration.
func isPlaceholder(value string) bool {
	value = strings.TrimSpace(value)
	return value == "" || strings.HasPrefix(value, "YOUR_")
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
