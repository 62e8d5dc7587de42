package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// Config holds agent settings
type Config struct {
	FixtureFile    string
	ReportURL      string
	APIKey         string
	ReportInterval time.Duration
	FrameRate      int
	HardwareEvery  int
	LogLevel       slog.Level
	LogFormat      string
}

// Load reads .env, then environment variables, then flags from args.
// Flags win over the environment.
func Load(args []string) (*Config, error) {
	// Try .env, fall back to plain environment
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	cfg := &Config{
		FixtureFile:    getEnv("FIXTURE_FILE", ""),
		ReportURL:      getEnv("REPORT_URL", ""),
		APIKey:         getEnv("API_KEY", ""),
		ReportInterval: time.Duration(getEnvInt("REPORT_INTERVAL_SECONDS", 5)) * time.Second,
		FrameRate:      getEnvInt("FRAME_RATE", 60),
		HardwareEvery:  getEnvInt("HARDWARE_REFRESH_TICKS", 5),
		LogFormat:      getEnv("LOG_FORMAT", "text"),
	}
	logLevel := getEnv("LOG_LEVEL", "info")

	flags := pflag.NewFlagSet("perfmetrics-agent", pflag.ContinueOnError)
	flags.StringVar(&cfg.FixtureFile, "fixture", cfg.FixtureFile, "YAML environment fixture to sample instead of the host")
	flags.StringVar(&cfg.ReportURL, "report-url", cfg.ReportURL, "endpoint that receives state payloads")
	flags.StringVar(&cfg.APIKey, "api-key", cfg.APIKey, "API key sent with reports")
	flags.DurationVar(&cfg.ReportInterval, "report-interval", cfg.ReportInterval, "time between reports")
	flags.IntVar(&cfg.FrameRate, "frame-rate", cfg.FrameRate, "simulated display refresh rate in Hz")
	flags.IntVar(&cfg.HardwareEvery, "hardware-every", cfg.HardwareEvery, "run a full hardware refresh every N periodic ticks")
	flags.StringVar(&logLevel, "log-level", logLevel, "debug, info, warn or error")
	flags.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "text or json")

	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	level, err := parseLevel(logLevel)
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.ReportInterval < time.Second {
		return fmt.Errorf("report interval %v is below 1s", c.ReportInterval)
	}
	if c.FrameRate < 1 || c.FrameRate > 1000 {
		return fmt.Errorf("frame rate %d out of range 1-1000", c.FrameRate)
	}
	if c.HardwareEvery < 1 {
		return fmt.Errorf("hardware refresh ticks must be at least 1, got %d", c.HardwareEvery)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	if c.ReportURL != "" && c.APIKey == "" {
		return fmt.Errorf("API_KEY required when REPORT_URL is set")
	}
	return nil
}

func parseLevel(raw string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(raw))); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", raw, err)
	}
	return level, nil
}

// getEnv reads an env var with fallback
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getEnvInt reads a positive integer env var with fallback
func getEnvInt(key string, fallback int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil || value < 1 {
		return fallback
	}
	return value
}
