package nutripal

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ServerConfig holds the HTTP surface settings.
type ServerConfig struct {
	Port              string        `env:"PORT,default=8081"`
	ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT,default=5s"`
	WriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT,default=90s"`
	ShutdownTimeout   time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT,default=15s"`
	CORSOrigins       string        `env:"CORS_ORIGIN,default=*"`
	LogLevel          string        `env:"LOG_LEVEL,default=info"`
	LogFormat         string        `env:"LOG_FORMAT,default=text"`
}

// AllowedOrigins splits the comma separated CORS_ORIGIN value.
func (c ServerConfig) AllowedOrigins() []string {
	return SplitList(c.CORSOrigins)
}

type AuthConfig struct {
	JWTSecret string        `env:"JWT_SECRET,required"`
	TokenTTL  time.Duration `env:"JWT_TTL,default=24h"`
}

// ExtractConfig selects the language model provider and its credentials.
type ExtractConfig struct {
	Provider        string        `env:"EXTRACT_PROVIDER,default=gemini"`
	GeminiAPIKeys   string        `env:"GEMINI_API_KEYS"`
	GeminiAPIKey    string        `env:"GEMINI_API_KEY"`
	GeminiModel     string        `env:"GEMINI_MODEL"`
	BedrockProfiles string        `env:"BEDROCK_PROFILES,default=default"`
	BedrockModel    string        `env:"BEDROCK_MODEL"`
	BedrockRegion   string        `env:"AWS_REGION"`
	OllamaEndpoint  string        `env:"OLLAMA_ENDPOINT,default=http://localhost:11434"`
	OllamaAPIKeys   string        `env:"OLLAMA_API_KEYS,default=local"`
	OllamaModel     string        `env:"OLLAMA_MODEL"`
	AttemptTimeout  time.Duration `env:"EXTRACT_ATTEMPT_TIMEOUT,default=20s"`
	MaxTokens       int32         `env:"MAX_TOKENS,default=1024"`
	Temperature     float32       `env:"TEMPERATURE,default=0.2"`
}

// Credentials returns the ordered credential list for the configured provider.
// For gemini, GEMINI_API_KEYS wins over the single GEMINI_API_KEY.
func (c ExtractConfig) Credentials() []string {
	switch c.Provider {
	case "bedrock":
		return SplitList(c.BedrockProfiles)
	case "ollama":
		return SplitList(c.OllamaAPIKeys)
	}
	if keys := SplitList(c.GeminiAPIKeys); len(keys) > 0 {
		return keys
	}
	return SplitList(c.GeminiAPIKey)
}

// PreferredModel returns the model to try before the provider's fallback list.
func (c ExtractConfig) PreferredModel() string {
	switch c.Provider {
	case "bedrock":
		return c.BedrockModel
	case "ollama":
		return c.OllamaModel
	}
	return c.GeminiModel
}

// StoreConfig selects persistence. An empty DATABASE_URL keeps everything in memory.
type StoreConfig struct {
	DatabaseURL string `env:"DATABASE_URL"`
	MaxConns    int32  `env:"DB_MAX_CONNS,default=10"`
	Migrate     bool   `env:"DB_MIGRATE,default=true"`
}

type CatalogConfig struct {
	FoodsPath     string `env:"FOODS_PATH"`
	FoodsS3Bucket string `env:"FOODS_S3_BUCKET"`
	FoodsS3Key    string `env:"FOODS_S3_KEY,default=foods.json"`
	SearchLimit   int    `env:"FOODS_SEARCH_LIMIT,default=10"`
}

type SlackConfig struct {
	WebhookURL string `env:"SLACK_WEBHOOK_URL"`
	Channel    string `env:"SLACK_CHANNEL,default=#nutripal-ops"`
}

// LoadDotEnv loads .env files from the working directory and its parent when
// present. Variables already set in the environment are not overridden.
func LoadDotEnv() {
	for _, path := range []string{".env", "../.env"} {
		if err := godotenv.Load(path); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				slog.Warn("SETUP: Failed to load env file", "path", path, "error", err)
			}
			continue
		}
		slog.Info("SETUP: Loaded env file", "path", path)
	}
}

// SplitList splits a comma separated value, dropping blanks.
func SplitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT values.
func NewLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
