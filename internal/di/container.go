package di

import (
	"context"
	"fmt"

	"vision-crawler/internal/application/port/input"
	"vision-crawler/internal/application/port/output"
	"vision-crawler/internal/infrastructure/browser/rod"
	"vision-crawler/internal/infrastructure/llm/openrouter"
	"vision-crawler/internal/infrastructure/logger"
	"vision-crawler/internal/infrastructure/metrics"
	"vision-crawler/internal/infrastructure/prompts"
	"vision-crawler/internal/infrastructure/screenshot"
	"vision-crawler/internal/infrastructure/tokens"
	"vision-crawler/internal/infrastructure/userinteraction"
	"vision-crawler/internal/usecase/session"

	"github.com/google/uuid"
)

type Container struct {
	SessionID string

	Page    output.PagePort
	LLM     output.LLMPort
	Logger  output.LoggerPort
	Metrics *metrics.Collector
	Session input.SessionRunner

	metricsAddr string
}

func NewContainer(ctx context.Context, cfg Config) (*Container, error) {
	base, err := logger.NewLoggerAdapter(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	sessionID := uuid.NewString()
	log := base.WithFields(map[string]any{
		"session_id": sessionID,
		"model":      cfg.OpenRouterModel,
	})

	page, err := rod.NewPageAdapter(ctx, cfg.Browser, log)
	if err != nil {
		base.Close()
		return nil, fmt.Errorf("failed to create browser: %w", err)
	}

	llmCfg := openrouter.DefaultConfig(cfg.OpenRouterAPIKey, cfg.OpenRouterModel)
	llmCfg.BaseURL = cfg.OpenRouterBaseURL
	llmCfg.MinInterval = cfg.ModelMinInterval
	llmCfg.Logger = log.WithField("component", "openrouter")
	llm := openrouter.NewOpenRouterAdapter(llmCfg)

	systemPrompt, err := prompts.GenerateSystemPrompt(prompts.SystemPromptTemplate, prompts.SystemPromptData{
		SearchURL: cfg.SearchURL,
	})
	if err != nil {
		page.Close()
		base.Close()
		return nil, fmt.Errorf("failed to build system prompt: %w", err)
	}

	collector := metrics.NewCollector(log)

	loop := session.New(session.Deps{
		Page:        page,
		LLM:         llm,
		User:        userinteraction.NewConsoleUserInteraction(),
		Screenshots: screenshot.NewFileStore(cfg.ScreenshotPath, log),
		Logger:      log,
		Metrics:     collector,
		Tokens:      tokens.NewCounter(cfg.OpenRouterModel, log),
	}, session.Config{
		SystemPrompt:           systemPrompt,
		ScreenshotCaption:      prompts.ScreenshotCaption,
		Greeting:               prompts.Greeting,
		Temperature:            cfg.ModelTemperature,
		MaxTokens:              cfg.ModelMaxTokens,
		SettleTimeout:          cfg.SettleTimeout,
		MaxConsecutiveFailures: cfg.MaxConsecutiveFailures,
	})

	return &Container{
		SessionID:   sessionID,
		Page:        page,
		LLM:         llm,
		Logger:      log,
		Metrics:     collector,
		Session:     loop,
		metricsAddr: cfg.MetricsAddr,
	}, nil
}

// ServeMetrics blocks serving /metrics until ctx is done. It returns at once
// when no listen address is configured.
func (c *Container) ServeMetrics(ctx context.Context) error {
	if c.metricsAddr == "" {
		return nil
	}
	return c.Metrics.Serve(ctx, c.metricsAddr)
}

func (c *Container) Close() {
	if c.Page != nil {
		c.Page.Close()
	}
	if c.Logger != nil {
		c.Logger.Close()
	}
}
