package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"vision-crawler/internal/application/port/output"
	"vision-crawler/internal/domain/entity"
	"vision-crawler/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	page    *testutil.FakePage
	llm     *testutil.FakeLLM
	console *testutil.FakeConsole
	store   *testutil.FakeStore
	loop    *Loop
}

func newHarness(t *testing.T, lines []string, replies []string, mutate func(*Config)) *harness {
	t.Helper()

	h := &harness{
		page:    testutil.NewFakePage(),
		llm:     &testutil.FakeLLM{Replies: replies},
		console: &testutil.FakeConsole{Lines: lines},
		store:   &testutil.FakeStore{},
	}
	h.llm.OnChat = func(req output.ChatRequest) {
		h.page.Events = append(h.page.Events, "chat")
	}

	cfg := Config{
		SystemPrompt:      "system",
		ScreenshotCaption: "caption",
		Greeting:          "How can I assist you today?",
		SettleTimeout:     50 * time.Millisecond,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	h.loop = New(Deps{
		Page:        h.page,
		LLM:         h.llm,
		User:        h.console,
		Screenshots: h.store,
		Logger:      testutil.NopLogger{},
	}, cfg)
	return h
}

func (h *harness) route(url string, labels ...string) []*testutil.FakeElement {
	els := make([]*testutil.FakeElement, 0, len(labels))
	for i, l := range labels {
		els = append(els, testutil.NewElement(l, i))
	}
	h.page.Routes[url] = els
	return els
}

func lastMessage(req output.ChatRequest) entity.Message {
	return req.Messages[len(req.Messages)-1]
}

func TestRun_NavigateThenClick(t *testing.T) {
	h := newHarness(t,
		[]string{"show me more"},
		[]string{
			`{"url": "https://a.test"}`,
			`I see it. {"click": "More"}`,
			`Here is the answer.`,
		}, nil)
	h.route("https://a.test", "Home", "More")

	require.NoError(t, h.loop.Run(context.Background()))

	assert.Equal(t, []string{"https://a.test"}, h.page.Navigations)
	assert.Equal(t, []string{"More"}, h.page.Clicks)
	assert.Equal(t, 2, h.page.Screenshots)
	assert.Equal(t, 2, h.page.Clears)
	require.Len(t, h.llm.Requests, 3)

	assert.Equal(t, []string{
		"chat",
		"navigate:https://a.test",
		"clear",
		"screenshot",
		"chat",
		"click:More",
		"clear",
		"screenshot",
		"chat",
	}, h.page.Events)

	first := h.llm.Requests[0].Messages
	require.Len(t, first, 2)
	assert.Equal(t, entity.RoleSystem, first[0].Role)
	assert.Equal(t, "show me more", first[1].Content)

	second := lastMessage(h.llm.Requests[1])
	require.True(t, second.HasImage())
	assert.Equal(t, "caption", second.Content)
	assert.Equal(t, "data:image/jpeg;base64,shot-1", second.Image.DataURL)

	third := lastMessage(h.llm.Requests[2])
	require.True(t, third.HasImage())
	assert.Equal(t, "data:image/jpeg;base64,shot-2", third.Image.DataURL)

	assert.Equal(t, []string{"How can I assist you today?"}, h.console.Greeting)
	assert.Equal(t, []string{"https://a.test"}, h.console.Navs)
	assert.Equal(t, []string{"More"}, h.console.Clicks)
	assert.Len(t, h.console.Replies, 3)
	assert.Equal(t, 2, h.console.Prompts)
}

func TestRun_PlainAnswerGoesBackToOperator(t *testing.T) {
	h := newHarness(t,
		[]string{"capital of France?", "and Germany?"},
		[]string{"The capital of France is Paris.", "Berlin."}, nil)

	require.NoError(t, h.loop.Run(context.Background()))

	assert.Empty(t, h.page.Navigations)
	assert.Zero(t, h.page.Screenshots)
	require.Len(t, h.llm.Requests, 2)
	assert.Equal(t, []string{"The capital of France is Paris.", "Berlin."}, h.console.Replies)

	history := h.loop.History()
	require.Len(t, history, 5)
	assert.Equal(t, entity.RoleAssistant, history[2].Role)
	assert.Equal(t, "and Germany?", history[3].Content)
}

func TestRun_BlankOperatorLinesAreSkipped(t *testing.T) {
	h := newHarness(t, []string{"", "   ", "hello"}, []string{"hi"}, nil)

	require.NoError(t, h.loop.Run(context.Background()))

	require.Len(t, h.llm.Requests, 1)
	assert.Equal(t, "hello", lastMessage(h.llm.Requests[0]).Content)
}

func TestRun_ClickOnMissingLabelIsRecoverable(t *testing.T) {
	h := newHarness(t,
		[]string{"log me out"},
		[]string{
			`{"url": "https://a.test"}`,
			`{"click": "Logout"}`,
			`There is no logout link on this page.`,
		}, nil)
	h.route("https://a.test", "Sign In", "Home")

	require.NoError(t, h.loop.Run(context.Background()))

	assert.Empty(t, h.page.Clicks)
	assert.Equal(t, 1, h.page.Screenshots, "failed click must not trigger a new capture")
	require.Len(t, h.llm.Requests, 3)

	retry := lastMessage(h.llm.Requests[2])
	assert.Equal(t, entity.RoleUser, retry.Role)
	assert.Equal(t, clickFailedText, retry.Content)
	assert.False(t, retry.HasImage())
	assert.Contains(t, h.console.Errors, "Failed to click on the element")
}

func TestRun_RetryBudget(t *testing.T) {
	h := newHarness(t,
		[]string{"log me out"},
		[]string{
			`{"url": "https://a.test"}`,
			`{"click": "Logout"}`,
			`{"click": "Log out"}`,
			`{"click": "Sign out"}`,
		}, func(cfg *Config) { cfg.MaxConsecutiveFailures = 2 })
	h.route("https://a.test", "Home")

	require.NoError(t, h.loop.Run(context.Background()))

	require.Len(t, h.llm.Requests, 3, "the second failure must not re-prompt the model")
	assert.Equal(t, 2, h.console.Prompts, "operator must get control back after the budget is spent")
	assert.Equal(t, 2, countFailedClicks(h.loop.History()))

	var gaveUp bool
	for _, e := range h.console.Errors {
		if strings.Contains(e, "over to you") {
			gaveUp = true
		}
	}
	assert.True(t, gaveUp)
}

func TestRun_SingleFailureBudgetHandsOverAtOnce(t *testing.T) {
	h := newHarness(t,
		[]string{"log me out"},
		[]string{
			`{"url": "https://a.test"}`,
			`{"click": "Logout"}`,
			`{"click": "Log out"}`,
		}, func(cfg *Config) { cfg.MaxConsecutiveFailures = 1 })
	h.route("https://a.test", "Home")

	require.NoError(t, h.loop.Run(context.Background()))

	require.Len(t, h.llm.Requests, 2)
	assert.Equal(t, 1, countFailedClicks(h.loop.History()))
	assert.Equal(t, 2, h.console.Prompts)
}

func TestRun_SuccessfulClickResetsBudget(t *testing.T) {
	h := newHarness(t,
		[]string{"go"},
		[]string{
			`{"url": "https://a.test"}`,
			`{"click": "Nope"}`,
			`{"click": "More"}`,
			`{"click": "Nope"}`,
			`done`,
		}, func(cfg *Config) { cfg.MaxConsecutiveFailures = 2 })
	h.route("https://a.test", "More")

	require.NoError(t, h.loop.Run(context.Background()))

	require.Len(t, h.llm.Requests, 5)
	assert.Equal(t, []string{"More"}, h.page.Clicks)
}

func countFailedClicks(history []entity.Message) int {
	n := 0
	for _, m := range history {
		if m.Role == entity.RoleUser && m.Content == clickFailedText {
			n++
		}
	}
	return n
}

func TestRun_MalformedDirectiveIsFedBack(t *testing.T) {
	h := newHarness(t,
		[]string{"click sign in"},
		[]string{
			`Sure {"click": "Sign In`,
			`Sorry, I cannot see the page yet.`,
		}, nil)

	require.NoError(t, h.loop.Run(context.Background()))

	require.Len(t, h.llm.Requests, 2)
	assert.Empty(t, h.page.Clicks)
	feedback := lastMessage(h.llm.Requests[1])
	assert.Equal(t, entity.RoleUser, feedback.Role)
	assert.True(t, strings.HasPrefix(feedback.Content, "ERROR: I could not parse your action"))
	require.NotEmpty(t, h.console.Errors)
	assert.Contains(t, h.console.Errors[0], "malformed action directive")
}

func TestRun_RejectedTargetIsFedBack(t *testing.T) {
	h := newHarness(t,
		[]string{"open it"},
		[]string{
			`{"url": "javascript:alert(1)"}`,
			`OK, I will not.`,
		}, nil)

	require.NoError(t, h.loop.Run(context.Background()))

	assert.Empty(t, h.page.Navigations)
	require.Len(t, h.llm.Requests, 2)
	assert.Contains(t, lastMessage(h.llm.Requests[1]).Content, "cannot navigate to")
}

func TestRun_NavigationFailureReturnsToOperator(t *testing.T) {
	h := newHarness(t,
		[]string{"open a.test"},
		[]string{`{"url": "https://a.test"}`}, nil)
	h.page.NavigateErr = errors.New("net::ERR_NAME_NOT_RESOLVED")

	require.NoError(t, h.loop.Run(context.Background()))

	require.Len(t, h.llm.Requests, 1)
	assert.Zero(t, h.page.Screenshots)
	require.Len(t, h.console.Errors, 1)
	assert.Contains(t, h.console.Errors[0], "navigation to https://a.test failed")
	assert.Equal(t, 2, h.console.Prompts)
}

func TestRun_ScreenshotFailureReturnsToOperator(t *testing.T) {
	h := newHarness(t,
		[]string{"open a.test"},
		[]string{`{"url": "https://a.test"}`}, nil)
	h.store.Err = errors.New("disk full")

	require.NoError(t, h.loop.Run(context.Background()))

	require.Len(t, h.llm.Requests, 1)
	require.Len(t, h.console.Errors, 1)
	assert.Contains(t, h.console.Errors[0], "disk full")
}

func TestRun_ModelFailureReturnsToOperator(t *testing.T) {
	h := newHarness(t, []string{"hello"}, nil, nil)
	h.llm.Err = errors.New("502 bad gateway")

	require.NoError(t, h.loop.Run(context.Background()))

	require.Len(t, h.llm.Requests, 1)
	require.Len(t, h.console.Errors, 1)
	assert.Contains(t, h.console.Errors[0], "502 bad gateway")
}

func TestRun_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := newHarness(t, []string{"hello"}, []string{"hi"}, nil)
	h.console.OnAsk = cancel

	require.NoError(t, h.loop.Run(ctx))
	assert.Empty(t, h.llm.Requests)
}

func TestRun_InputErrorIsReturned(t *testing.T) {
	h := newHarness(t, nil, nil, nil)
	boom := errors.New("tty gone")
	h.loop.user = &failingConsole{FakeConsole: h.console, err: boom}

	err := h.loop.Run(context.Background())
	assert.ErrorIs(t, err, boom)
}

type failingConsole struct {
	*testutil.FakeConsole
	err error
}

func (f *failingConsole) AskQuestion(ctx context.Context, prompt string) (string, error) {
	return "", f.err
}

func TestState_Check(t *testing.T) {
	st := &State{}
	assert.NoError(t, st.check())

	st.CurrentURL = "https://a.test"
	assert.NoError(t, st.check())

	st.ScreenshotPending = true
	st.Outbound = &entity.Message{}
	assert.Error(t, st.check())

	st.CurrentURL = ""
	assert.NoError(t, st.check())

	st.Outbound = nil
	assert.Error(t, st.check())
}

func TestValidateTarget(t *testing.T) {
	valid := []string{
		"https://a.test",
		"http://example.com/search?q=a b",
		"HTTPS://Example.com/path",
	}
	for _, u := range valid {
		assert.NoError(t, ValidateTarget(u), u)
	}

	invalid := []string{
		"",
		"example.com",
		"ftp://example.com",
		"javascript:alert(1)",
		"file:///etc/passwd",
		"https://",
	}
	for _, u := range invalid {
		err := ValidateTarget(u)
		var target *TargetError
		assert.ErrorAs(t, err, &target, u)
	}
}

func TestPhase_String(t *testing.T) {
	assert.Equal(t, "awaiting_user_input", AwaitingUserInput.String())
	assert.Equal(t, "dispatching_click", DispatchingClick.String())
	assert.Equal(t, "phase(42)", Phase(42).String())
}
