package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	APIPort  string
	LogLevel string

	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string

	MaxTextChars      int
	MaxExtractedChars int
	MaxFileMB         int
	MaxBodyMB         int
	MaxPDFPages       int
	PDFTimeoutSeconds int
	LLMTimeoutSeconds int

	RateLimitRequests      int
	RateLimitWindowSeconds int
	APIRateLimitRPS        float64
	APIRateLimitBurst      int
	MaxInFlightRequests    int

	BaselineThreshold float64
	BaselineModelPath string

	FeedbackPath string
}

// Load reads configuration from the environment, with an optional YAML file
// (CONFIG_FILE, default ./config.yaml) applied first so that environment
// variables always win.
func Load() (Config, error) {
	cfg := Config{
		APIPort:  "8080",
		LogLevel: "info",

		GeminiModel: "gemini-1.5-flash-002",

		MaxTextChars:      40000,
		MaxExtractedChars: 40000,
		MaxFileMB:         2,
		MaxBodyMB:         3,
		MaxPDFPages:       20,
		PDFTimeoutSeconds: 10,
		LLMTimeoutSeconds: 20,

		RateLimitRequests:      30,
		RateLimitWindowSeconds: 60,
		APIRateLimitRPS:        50,
		APIRateLimitBurst:      100,
		MaxInFlightRequests:    64,

		BaselineThreshold: 0.85,
		BaselineModelPath: "./models/baseline.json",

		FeedbackPath: "./data/feedback.csv",
	}

	if err := applyFile(&cfg); err != nil {
		return Config{}, err
	}
	applyEnv(&cfg)

	if cfg.RateLimitWindowSeconds <= 0 {
		return Config{}, fmt.Errorf("config: rate limit window must be positive, got %d", cfg.RateLimitWindowSeconds)
	}
	if cfg.MaxFileMB <= 0 || cfg.MaxBodyMB <= 0 {
		return Config{}, fmt.Errorf("config: size caps must be positive")
	}
	return cfg, nil
}

func (c Config) MaxFileBytes() int64 { return int64(c.MaxFileMB) * 1024 * 1024 }
func (c Config) MaxBodyBytes() int64 { return int64(c.MaxBodyMB) * 1024 * 1024 }

func (c Config) PDFTimeout() time.Duration {
	return time.Duration(c.PDFTimeoutSeconds) * time.Second
}

func (c Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutSeconds) * time.Second
}

func (c Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}

// fileConfig mirrors Config with optional fields so that absent YAML keys
// leave defaults untouched.
type fileConfig struct {
	APIPort  *string `yaml:"api_port"`
	LogLevel *string `yaml:"log_level"`

	GeminiAPIKey  *string `yaml:"gemini_api_key"`
	GeminiModel   *string `yaml:"gemini_model"`
	GeminiBaseURL *string `yaml:"gemini_base_url"`

	MaxTextChars      *int `yaml:"max_chars"`
	MaxExtractedChars *int `yaml:"max_extracted_chars"`
	MaxFileMB         *int `yaml:"max_file_mb"`
	MaxBodyMB         *int `yaml:"max_body_mb"`
	MaxPDFPages       *int `yaml:"max_pdf_pages"`
	PDFTimeoutSeconds *int `yaml:"pdf_timeout_seconds"`
	LLMTimeoutSeconds *int `yaml:"llm_timeout_seconds"`

	RateLimitRequests      *int     `yaml:"rate_limit_requests"`
	RateLimitWindowSeconds *int     `yaml:"rate_limit_window_seconds"`
	APIRateLimitRPS        *float64 `yaml:"api_rate_limit_rps"`
	APIRateLimitBurst      *int     `yaml:"api_rate_limit_burst"`
	MaxInFlightRequests    *int     `yaml:"max_in_flight_requests"`

	BaselineThreshold *float64 `yaml:"baseline_threshold"`
	BaselineModelPath *string  `yaml:"baseline_model_path"`

	FeedbackPath *string `yaml:"feedback_path"`
}

func applyFile(cfg *Config) error {
	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		path = "config.yaml"
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var file fileConfig
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	setString(&cfg.APIPort, file.APIPort)
	setString(&cfg.LogLevel, file.LogLevel)
	setString(&cfg.GeminiAPIKey, file.GeminiAPIKey)
	setString(&cfg.GeminiModel, file.GeminiModel)
	setString(&cfg.GeminiBaseURL, file.GeminiBaseURL)
	setInt(&cfg.MaxTextChars, file.MaxTextChars)
	setInt(&cfg.MaxExtractedChars, file.MaxExtractedChars)
	setInt(&cfg.MaxFileMB, file.MaxFileMB)
	setInt(&cfg.MaxBodyMB, file.MaxBodyMB)
	setInt(&cfg.MaxPDFPages, file.MaxPDFPages)
	setInt(&cfg.PDFTimeoutSeconds, file.PDFTimeoutSeconds)
	setInt(&cfg.LLMTimeoutSeconds, file.LLMTimeoutSeconds)
	setInt(&cfg.RateLimitRequests, file.RateLimitRequests)
	setInt(&cfg.RateLimitWindowSeconds, file.RateLimitWindowSeconds)
	setFloat(&cfg.APIRateLimitRPS, file.APIRateLimitRPS)
	setInt(&cfg.APIRateLimitBurst, file.APIRateLimitBurst)
	setInt(&cfg.MaxInFlightRequests, file.MaxInFlightRequests)
	setFloat(&cfg.BaselineThreshold, file.BaselineThreshold)
	setString(&cfg.BaselineModelPath, file.BaselineModelPath)
	setString(&cfg.FeedbackPath, file.FeedbackPath)
	return nil
}

func applyEnv(cfg *Config) {
	cfg.APIPort = env("API_PORT", cfg.APIPort)
	cfg.LogLevel = env("LOG_LEVEL", cfg.LogLevel)
	cfg.GeminiAPIKey = env("GEMINI_API_KEY", cfg.GeminiAPIKey)
	cfg.GeminiModel = env("GEMINI_MODEL", cfg.GeminiModel)
	cfg.GeminiBaseURL = env("GEMINI_BASE_URL", cfg.GeminiBaseURL)
	cfg.MaxTextChars = envInt("MAX_CHARS", cfg.MaxTextChars)
	cfg.MaxExtractedChars = envInt("MAX_EXTRACTED_CHARS", cfg.MaxExtractedChars)
	cfg.MaxFileMB = envInt("MAX_FILE_MB", cfg.MaxFileMB)
	cfg.MaxBodyMB = envInt("MAX_BODY_MB", cfg.MaxBodyMB)
	cfg.MaxPDFPages = envInt("MAX_PDF_PAGES", cfg.MaxPDFPages)
	cfg.PDFTimeoutSeconds = envInt("PDF_TIMEOUT_SECONDS", cfg.PDFTimeoutSeconds)
	cfg.LLMTimeoutSeconds = envInt("LLM_TIMEOUT_SECONDS", cfg.LLMTimeoutSeconds)
	cfg.RateLimitRequests = envInt("RATE_LIMIT_REQUESTS", cfg.RateLimitRequests)
	cfg.RateLimitWindowSeconds = envInt("RATE_LIMIT_WINDOW_SECONDS", cfg.RateLimitWindowSeconds)
	cfg.APIRateLimitRPS = envFloat("API_RATE_LIMIT_RPS", cfg.APIRateLimitRPS)
	cfg.APIRateLimitBurst = envInt("API_RATE_LIMIT_BURST", cfg.APIRateLimitBurst)
	cfg.MaxInFlightRequests = envInt("MAX_IN_FLIGHT_REQUESTS", cfg.MaxInFlightRequests)
	cfg.BaselineThreshold = envFloat("BASELINE_THRESHOLD", cfg.BaselineThreshold)
	cfg.BaselineModelPath = env("BASELINE_MODEL_PATH", cfg.BaselineModelPath)
	cfg.FeedbackPath = env("FEEDBACK_PATH", cfg.FeedbackPath)
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}
