package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the quiz API service.
type Config struct {
	AppName         string
	AppEnv          string
	AppPort         string
	DatabaseURL     string
	SQLitePath      string
	RedisURL        string
	NATSURL         string
	NATSSubject     string
	AnswerKeyTTL    time.Duration
	CheckLockTTL    time.Duration
	GradingBaseURL  string
	GradingEndpoint string
	GradingTimeout  time.Duration
	PassThreshold   float64
	RateLimitMax    int
	RateLimitWindow time.Duration
	SeedEnabled     bool
	SeedToken       string
	CORSOrigins     string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// GradingURL resolves the grading endpoint against the base URL.
func (c Config) GradingURL() string {
	endpoint := strings.TrimSpace(c.GradingEndpoint)
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	base := strings.TrimRight(strings.TrimSpace(c.GradingBaseURL), "/")
	if base == "" {
		return endpoint
	}
	return base + "/" + strings.TrimLeft(endpoint, "/")
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("LANEX")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Lanex Quiz API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("database.sqlite_path", "lanex.db")
	v.SetDefault("nats.subject", "quiz.checked")
	v.SetDefault("answer_key.cache_ttl", "10m")
	v.SetDefault("check.lock_ttl", "30s")
	v.SetDefault("grading.base_url", "http://localhost:8080")
	v.SetDefault("grading.endpoint", "/api/check_test")
	v.SetDefault("grading.timeout_ms", 8000)
	v.SetDefault("result.pass_threshold", 0)
	v.SetDefault("rate_limit.max", 30)
	v.SetDefault("rate_limit.window", "1m")
	v.SetDefault("seed.enabled", true)
	v.SetDefault("cors.allow_origins", "*")

	keyTTL, err := parseDuration(v, "answer_key.cache_ttl", "10m")
	if err != nil {
		return Config{}, err
	}
	lockTTL, err := parseDuration(v, "check.lock_ttl", "30s")
	if err != nil {
		return Config{}, err
	}
	window, err := parseDuration(v, "rate_limit.window", "1m")
	if err != nil {
		return Config{}, err
	}

	timeoutMs := v.GetInt("grading.timeout_ms")
	if timeoutMs <= 0 {
		timeoutMs = 8000
	}

	cfg := Config{
		AppName:         v.GetString("app.name"),
		AppEnv:          v.GetString("app.env"),
		AppPort:         v.GetString("app.port"),
		DatabaseURL:     v.GetString("database.url"),
		SQLitePath:      v.GetString("database.sqlite_path"),
		RedisURL:        v.GetString("redis.url"),
		NATSURL:         v.GetString("nats.url"),
		NATSSubject:     v.GetString("nats.subject"),
		AnswerKeyTTL:    keyTTL,
		CheckLockTTL:    lockTTL,
		GradingBaseURL:  v.GetString("grading.base_url"),
		GradingEndpoint: v.GetString("grading.endpoint"),
		GradingTimeout:  time.Duration(timeoutMs) * time.Millisecond,
		PassThreshold:   v.GetFloat64("result.pass_threshold"),
		RateLimitMax:    v.GetInt("rate_limit.max"),
		RateLimitWindow: window,
		SeedEnabled:     v.GetBool("seed.enabled"),
		SeedToken:       v.GetString("seed.token"),
		CORSOrigins:     v.GetString("cors.allow_origins"),
	}

	if cfg.PassThreshold < 0 || cfg.PassThreshold > 100 {
		return Config{}, fmt.Errorf("pass threshold must be between 0 and 100, got %v", cfg.PassThreshold)
	}

	if cfg.DatabaseURL == "" && cfg.SQLitePath == "" {
		return Config{}, fmt.Errorf("either database url or sqlite path must be provided")
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key, fallback string) (time.Duration, error) {
	raw := v.GetString(key)
	if raw == "" {
		raw = fallback
	}

	duration, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return duration, nil
}
