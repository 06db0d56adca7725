package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	Port      string
	PublicDir string

	AnthropicAPIKey string
	SuggestModel    string
	SuggestBaseURL  string
	SuggestTimeout  time.Duration

	RedisURL     string
	BotDelayFile string

	AllowedOrigins []string

	ShutdownGrace time.Duration
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		Port:           "3000",
		PublicDir:      "public",
		SuggestTimeout: 10 * time.Second,
		ShutdownGrace:  10 * time.Second,
	}

	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		cfg.Port = v
	}
	if v := strings.TrimSpace(os.Getenv("PUBLIC_DIR")); v != "" {
		cfg.PublicDir = v
	}

	cfg.AnthropicAPIKey = strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
	cfg.SuggestModel = strings.TrimSpace(os.Getenv("SUGGEST_MODEL"))
	cfg.SuggestBaseURL = strings.TrimSpace(os.Getenv("SUGGEST_BASE_URL"))
	if v := strings.TrimSpace(os.Getenv("SUGGEST_TIMEOUT")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.SuggestTimeout = d
		} else if n, err := strconv.Atoi(v); err == nil && n > 0 { // bare seconds
			cfg.SuggestTimeout = time.Duration(n) * time.Second
		}
	}

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.BotDelayFile = strings.TrimSpace(os.Getenv("BOT_DELAY_FILE"))

	if v := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); v != "" {
		for _, p := range strings.Split(v, ",") {
			if s := strings.TrimSpace(p); s != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, s)
			}
		}
	}

	if v := strings.TrimSpace(os.Getenv("SHUTDOWN_GRACE")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.ShutdownGrace = d
		}
	}

	return cfg, nil
}

func (c *AppConfig) Addr() string {
	if strings.Contains(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}
