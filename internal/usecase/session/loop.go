// Package session runs the interactive crawl: navigate, annotate, capture,
// ask the model, act on its reply, and fall back to the operator.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"vision-crawler/internal/application/port/input"
	"vision-crawler/internal/application/port/output"
	"vision-crawler/internal/domain/entity"
	"vision-crawler/internal/usecase/action"
	"vision-crawler/internal/usecase/annotator"
	"vision-crawler/internal/usecase/resolver"
)

var _ input.SessionRunner = (*Loop)(nil)

const (
	defaultSettleTimeout          = 8 * time.Second
	defaultMaxConsecutiveFailures = 3

	userPrompt      = "You: "
	clickFailedText = "ERROR: Unable to click that element"
)

// TokenCounter estimates the prompt size of a conversation.
type TokenCounter interface {
	CountMessages(messages []entity.Message) int
}

type Deps struct {
	Page        output.PagePort
	LLM         output.LLMPort
	User        output.UserInteractionPort
	Screenshots output.ScreenshotStore
	Logger      output.LoggerPort
	Metrics     output.MetricsPort
	Tokens      TokenCounter
}

type Config struct {
	SystemPrompt      string
	ScreenshotCaption string
	Greeting          string
	Temperature       float32
	MaxTokens         int

	// SettleTimeout bounds the wait for a page's load event.
	SettleTimeout time.Duration

	// MaxConsecutiveFailures is how many recoverable failures in a row end the
	// model's turn. The failure that reaches it hands control to the operator
	// instead of re-prompting the model.
	MaxConsecutiveFailures int
}

type Loop struct {
	page        output.PagePort
	llm         output.LLMPort
	user        output.UserInteractionPort
	screenshots output.ScreenshotStore
	logger      output.LoggerPort
	metrics     output.MetricsPort
	tokens      TokenCounter

	annotator *annotator.Annotator
	resolver  *resolver.Resolver

	cfg          Config
	conversation *entity.Conversation
}

func New(deps Deps, cfg Config) *Loop {
	if cfg.SettleTimeout <= 0 {
		cfg.SettleTimeout = defaultSettleTimeout
	}
	if cfg.MaxConsecutiveFailures <= 0 {
		cfg.MaxConsecutiveFailures = defaultMaxConsecutiveFailures
	}

	metrics := deps.Metrics
	if metrics == nil {
		metrics = nopMetrics{}
	}

	logger := deps.Logger.WithField("component", "session")

	return &Loop{
		page:         deps.Page,
		llm:          deps.LLM,
		user:         deps.User,
		screenshots:  deps.Screenshots,
		logger:       logger,
		metrics:      metrics,
		tokens:       deps.Tokens,
		annotator:    annotator.New(deps.Page, deps.Logger),
		resolver:     resolver.New(deps.Page, deps.Logger),
		cfg:          cfg,
		conversation: entity.NewConversation(cfg.SystemPrompt),
	}
}

// History returns the conversation sent to the model so far.
func (l *Loop) History() []entity.Message {
	return l.conversation.Messages()
}

// Run drives the state machine. It returns nil when ctx is cancelled or the
// operator closes stdin; any other input error is returned.
func (l *Loop) Run(ctx context.Context) error {
	if l.cfg.Greeting != "" {
		l.user.ShowGreeting(ctx, l.cfg.Greeting)
	}

	st := &State{Phase: AwaitingUserInput}

	for {
		if ctx.Err() != nil {
			l.logger.Info("Session stopped", "reason", ctx.Err())
			return nil
		}
		if err := st.check(); err != nil {
			return err
		}

		l.logger.Debug("Entering phase", "phase", st.Phase.String(), "failures", st.ConsecutiveFailures)

		switch st.Phase {
		case AwaitingUserInput:
			if err := l.awaitUser(ctx, st); err != nil {
				if errors.Is(err, io.EOF) || ctx.Err() != nil {
					l.logger.Info("Operator input closed")
					return nil
				}
				return err
			}
		case Navigating:
			l.navigate(ctx, st)
		case AnnotatingAndCapturing:
			l.capture(ctx, st)
		case ExchangingWithModel:
			l.exchange(ctx, st)
		case DispatchingClick:
			l.click(ctx, st)
		case DispatchingNavigate:
			st.CurrentURL = st.Action.URL
			st.Action = entity.NoAction()
			st.Phase = Navigating
		default:
			return fmt.Errorf("unknown session phase %s", st.Phase)
		}
	}
}

func (l *Loop) awaitUser(ctx context.Context, st *State) error {
	for {
		text, err := l.user.AskQuestion(ctx, userPrompt)
		if err != nil {
			return fmt.Errorf("read operator input: %w", err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		l.logger.Info("Operator input", "text", text)
		l.conversation.Append(entity.Message{Role: entity.RoleUser, Content: text})
		st.ConsecutiveFailures = 0
		st.Phase = ExchangingWithModel
		return nil
	}
}

func (l *Loop) navigate(ctx context.Context, st *State) {
	target := st.CurrentURL
	st.CurrentURL = ""

	if err := ValidateTarget(target); err != nil {
		l.logger.Warn("Rejected navigation target", "url", target, "error", err)
		l.metrics.ObserveNavigation(false)
		l.recoverable(ctx, st, "ERROR: "+err.Error())
		return
	}

	l.user.ShowNavigation(ctx, target)
	start := time.Now()

	if err := l.page.Navigate(ctx, target); err != nil {
		l.logger.Error("Navigation failed", "url", target, "error", err)
		l.metrics.ObserveNavigation(false)
		l.user.ShowError(ctx, fmt.Sprintf("navigation to %s failed: %v", target, err))
		st.Phase = AwaitingUserInput
		return
	}

	l.settle(ctx)
	l.metrics.ObserveNavigation(true)
	l.logger.Info("Navigated", "url", target, "final_url", l.page.CurrentURL(), "took", time.Since(start))

	st.ConsecutiveFailures = 0
	st.Phase = AnnotatingAndCapturing
}

// settle races the page's load event against SettleTimeout. Either outcome is fine.
func (l *Loop) settle(ctx context.Context) {
	start := time.Now()
	waitCtx, cancel := context.WithTimeout(ctx, l.cfg.SettleTimeout)
	defer cancel()

	if err := l.page.WaitLoad(waitCtx); err != nil {
		l.logger.Debug("Continuing without load event", "waited", time.Since(start), "error", err)
		return
	}
	l.logger.Debug("Page settled", "took", time.Since(start))
}

func (l *Loop) capture(ctx context.Context, st *State) {
	pass, err := l.annotator.Annotate(ctx)
	if err != nil {
		l.logger.Error("Annotation failed", "url", l.page.CurrentURL(), "error", err)
		l.user.ShowError(ctx, fmt.Sprintf("annotating %s failed: %v", l.page.CurrentURL(), err))
		st.Phase = AwaitingUserInput
		return
	}
	l.metrics.ObserveAnnotation(pass)

	shot, err := l.page.Screenshot(ctx)
	if err != nil {
		l.logger.Error("Screenshot failed", "url", l.page.CurrentURL(), "error", err)
		l.user.ShowError(ctx, fmt.Sprintf("screenshot of %s failed: %v", l.page.CurrentURL(), err))
		st.Phase = AwaitingUserInput
		return
	}

	image, err := l.screenshots.Save(shot)
	if err != nil {
		l.logger.Error("Saving screenshot failed", "error", err)
		l.user.ShowError(ctx, fmt.Sprintf("saving screenshot failed: %v", err))
		st.Phase = AwaitingUserInput
		return
	}

	l.logger.Debug("Screenshot captured", "path", image.Path, "bytes", len(shot.Data), "pass", pass.ID)

	st.Outbound = &entity.Message{
		Role:    entity.RoleUser,
		Content: l.cfg.ScreenshotCaption,
		Image:   image,
	}
	st.ScreenshotPending = true
	st.Phase = ExchangingWithModel
}

func (l *Loop) exchange(ctx context.Context, st *State) {
	if st.ScreenshotPending {
		l.conversation.Append(*st.Outbound)
		st.Outbound = nil
		st.ScreenshotPending = false
	}

	messages := l.conversation.Messages()
	tokens := 0
	if l.tokens != nil {
		tokens = l.tokens.CountMessages(messages)
	}

	start := time.Now()
	resp, err := l.llm.Chat(ctx, output.ChatRequest{
		Messages:    messages,
		Temperature: l.cfg.Temperature,
		MaxTokens:   l.cfg.MaxTokens,
	})
	if err != nil {
		l.logger.Error("Model exchange failed", "messages", len(messages), "error", err)
		l.metrics.ObserveExchange(false, tokens)
		l.user.ShowError(ctx, fmt.Sprintf("model request failed: %v", err))
		st.Phase = AwaitingUserInput
		return
	}
	l.metrics.ObserveExchange(true, tokens)

	reply := resp.Message.Content
	l.conversation.Append(entity.Message{Role: entity.RoleAssistant, Content: reply})
	l.user.ShowReply(ctx, reply)

	l.logger.Info("Model replied",
		"messages", len(messages),
		"prompt_tokens_estimate", tokens,
		"reply_len", len(reply),
		"took", time.Since(start),
	)

	act, err := action.Extract(reply)
	if err != nil {
		l.logger.Warn("Unparseable action directive", "error", err)
		l.metrics.ObserveParseFailure()
		l.user.ShowError(ctx, fmt.Sprintf("could not parse the model's action: %v", err))
		l.recoverable(ctx, st, fmt.Sprintf(
			"ERROR: I could not parse your action (%v). Reply with exactly one %s...\"} or %s...\"}, or with a regular message.",
			err, action.ClickMarker, action.URLMarker))
		return
	}

	l.logger.Debug("Extracted action", "action", act.String())

	switch act.Kind {
	case entity.ActionClick:
		st.Action = act
		st.Phase = DispatchingClick
	case entity.ActionNavigate:
		st.Action = act
		st.Phase = DispatchingNavigate
	default:
		st.Phase = AwaitingUserInput
	}
}

func (l *Loop) click(ctx context.Context, st *State) {
	target := st.Action.Label
	st.Action = entity.NoAction()
	l.user.ShowClick(ctx, target)

	if err := l.clickLabel(ctx, target); err != nil {
		l.logger.Warn("Click failed", "label", target, "pass", l.annotator.CurrentPass(), "error", err)
		l.metrics.ObserveClick(false)
		l.user.ShowError(ctx, "Failed to click on the element")
		l.recoverable(ctx, st, clickFailedText)
		return
	}

	l.metrics.ObserveClick(true)
	l.settle(ctx)

	st.ConsecutiveFailures = 0
	st.Phase = AnnotatingAndCapturing
}

func (l *Loop) clickLabel(ctx context.Context, target string) error {
	el, err := l.resolver.Resolve(ctx, target, l.annotator.CurrentPass())
	if err != nil {
		return err
	}
	if err := el.Click(ctx); err != nil {
		return fmt.Errorf("click %q: %w", target, err)
	}
	return nil
}

// recoverable feeds a failure back to the model, or hands control to the
// operator once MaxConsecutiveFailures is reached.
func (l *Loop) recoverable(ctx context.Context, st *State, message string) {
	st.ConsecutiveFailures++
	l.conversation.Append(entity.Message{Role: entity.RoleUser, Content: message})

	if st.ConsecutiveFailures >= l.cfg.MaxConsecutiveFailures {
		l.logger.Warn("Retry budget exhausted", "failures", st.ConsecutiveFailures)
		l.user.ShowError(ctx, fmt.Sprintf("the model failed %d times in a row; over to you", st.ConsecutiveFailures))
		st.ConsecutiveFailures = 0
		st.Phase = AwaitingUserInput
		return
	}

	st.Phase = ExchangingWithModel
}

type nopMetrics struct{}

func (nopMetrics) ObserveNavigation(bool)                   {}
func (nopMetrics) ObserveClick(bool)                        {}
func (nopMetrics) ObserveAnnotation(*entity.AnnotationPass) {}
func (nopMetrics) ObserveExchange(bool, int)                {}
func (nopMetrics) ObserveParseFailure()                     {}
