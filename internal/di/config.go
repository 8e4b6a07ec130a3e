package di

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"vision-crawler/internal/application/port/output"
	"vision-crawler/internal/infrastructure/browser/rod"
	"vision-crawler/internal/infrastructure/llm/openrouter"
	"vision-crawler/internal/infrastructure/logger"
	"vision-crawler/internal/infrastructure/prompts"
	"vision-crawler/internal/infrastructure/screenshot"
)

var ErrInvalidConfig = errors.New("invalid configuration")

const (
	defaultSettleTimeout          = 8 * time.Second
	defaultMaxConsecutiveFailures = 3
	defaultMaxTokens              = 1024
)

type Config struct {
	OpenRouterAPIKey  string
	OpenRouterModel   string
	OpenRouterBaseURL string
	ModelMinInterval  time.Duration
	ModelMaxTokens    int
	ModelTemperature  float32

	Browser rod.BrowserConfig

	ScreenshotPath         string
	SettleTimeout          time.Duration
	MaxConsecutiveFailures int
	SearchURL              string

	Log         logger.Config
	MetricsAddr string
}

var requiredKeys = []string{"OPENROUTER_API_KEY", "OPENROUTER_MODEL_NAME"}

// LoadConfig maps environment keys onto Config and validates the result.
func LoadConfig(env output.ConfigPort) (Config, error) {
	if err := env.Require(requiredKeys...); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	browser := rod.DefaultConfig()
	browser.Headless = env.GetBool("BROWSER_HEADLESS", browser.Headless)
	browser.Stealth = env.GetBool("BROWSER_STEALTH", browser.Stealth)
	browser.NoSandbox = env.GetBool("BROWSER_NO_SANDBOX", browser.NoSandbox)
	browser.Width = env.GetInt("VIEWPORT_WIDTH", browser.Width)
	browser.Height = env.GetInt("VIEWPORT_HEIGHT", browser.Height)
	browser.Scale = env.GetFloat("VIEWPORT_SCALE", browser.Scale)
	browser.MaxWidth = env.GetInt("SCREENSHOT_MAX_WIDTH", browser.MaxWidth)

	logCfg := logger.DefaultConfig()
	logCfg.Level = env.GetWithDefault("LOG_LEVEL", logCfg.Level)
	logCfg.File = env.GetWithDefault("LOG_FILE", logCfg.File)

	cfg := Config{
		OpenRouterAPIKey:  env.Get("OPENROUTER_API_KEY"),
		OpenRouterModel:   env.Get("OPENROUTER_MODEL_NAME"),
		OpenRouterBaseURL: env.GetWithDefault("OPENROUTER_BASE_URL", openrouter.DefaultBaseURL),
		ModelMinInterval:  env.GetDuration("MODEL_MIN_INTERVAL", 0),
		ModelMaxTokens:    env.GetInt("MODEL_MAX_TOKENS", defaultMaxTokens),
		ModelTemperature:  float32(env.GetFloat("MODEL_TEMPERATURE", 0)),

		Browser: browser,

		ScreenshotPath:         env.GetWithDefault("SCREENSHOT_PATH", screenshot.DefaultPath),
		SettleTimeout:          env.GetDuration("SETTLE_TIMEOUT", defaultSettleTimeout),
		MaxConsecutiveFailures: env.GetInt("MAX_CONSECUTIVE_FAILURES", defaultMaxConsecutiveFailures),
		SearchURL:              env.GetWithDefault("SEARCH_URL", prompts.DefaultSearchURL),

		Log:         logCfg,
		MetricsAddr: env.Get("METRICS_ADDR"),
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.OpenRouterAPIKey) == "" {
		problems = append(problems, "OPENROUTER_API_KEY is required")
	}
	if strings.TrimSpace(c.OpenRouterModel) == "" {
		problems = append(problems, "OPENROUTER_MODEL_NAME is required")
	}
	if c.Browser.Width <= 0 || c.Browser.Height <= 0 {
		problems = append(problems, fmt.Sprintf("viewport %dx%d must be positive", c.Browser.Width, c.Browser.Height))
	}
	if c.Browser.Scale <= 0 {
		problems = append(problems, fmt.Sprintf("viewport scale %.2f must be positive", c.Browser.Scale))
	}
	if c.SettleTimeout <= 0 {
		problems = append(problems, "SETTLE_TIMEOUT must be positive")
	}
	if c.MaxConsecutiveFailures <= 0 {
		problems = append(problems, "MAX_CONSECUTIVE_FAILURES must be positive")
	}
	if c.ModelMinInterval < 0 {
		problems = append(problems, "MODEL_MIN_INTERVAL must not be negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
