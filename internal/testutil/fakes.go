// Package testutil holds in-memory fakes of the output ports for unit tests.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"vision-crawler/internal/application/port/output"
	"vision-crawler/internal/domain/entity"
)

var ErrDetached = errors.New("element detached")

// FakeElement is one node of a FakePage.
type FakeElement struct {
	Snap        entity.ElementSnapshot
	annotation  *entity.Annotation
	Highlighted bool
	Detached    bool
	OnClick     func()
	page        *FakePage
}

var _ output.ElementHandle = (*FakeElement)(nil)

func (e *FakeElement) Snapshot() *entity.ElementSnapshot {
	snap := e.Snap
	return &snap
}

func (e *FakeElement) Annotation(ctx context.Context) (entity.Annotation, bool, error) {
	if e.Detached {
		return entity.Annotation{}, false, ErrDetached
	}
	if e.annotation == nil {
		return entity.Annotation{}, false, nil
	}
	return *e.annotation, true, nil
}

func (e *FakeElement) Annotate(ctx context.Context, a entity.Annotation) error {
	if e.Detached {
		return ErrDetached
	}
	e.annotation = &a
	return nil
}

// SetAnnotation plants a label directly, bypassing the annotator.
func (e *FakeElement) SetAnnotation(label string, pass uint64) {
	e.annotation = &entity.Annotation{Label: label, Pass: pass}
}

func (e *FakeElement) Label() string {
	if e.annotation == nil {
		return ""
	}
	return e.annotation.Label
}

func (e *FakeElement) HasAnnotation() bool {
	return e.annotation != nil
}

func (e *FakeElement) Highlight(ctx context.Context) error {
	e.Highlighted = true
	return nil
}

func (e *FakeElement) Click(ctx context.Context) error {
	if e.Detached {
		return ErrDetached
	}
	if e.page != nil {
		e.page.recordClick(e)
	}
	if e.OnClick != nil {
		e.OnClick()
	}
	return nil
}

// FakePage records every call the crawler makes against the rendering surface.
type FakePage struct {
	mu sync.Mutex

	Elements      []*FakeElement
	View          entity.Viewport
	URL           string
	NavigateErr   error
	ScreenshotErr error
	QueryErr      error
	Routes        map[string][]*FakeElement

	Navigations []string
	Clicks      []string
	Clears      int
	Loads       int
	Screenshots int
	Events      []string
}

var _ output.PagePort = (*FakePage)(nil)

func NewFakePage() *FakePage {
	return &FakePage{
		View:   entity.Viewport{Width: 1200, Height: 1200},
		URL:    "about:blank",
		Routes: make(map[string][]*FakeElement),
	}
}

// VisibleStyle is a computed style that passes every visibility check.
func VisibleStyle() entity.ComputedStyle {
	return entity.ComputedStyle{Width: "100px", Height: "24px", Opacity: "1", Display: "inline-block", Visibility: "visible"}
}

// NewElement builds a visible 100x24 element at the given row.
func NewElement(text string, row int) *FakeElement {
	return &FakeElement{
		Snap: entity.ElementSnapshot{
			Tag:       "a",
			Text:      text,
			Box:       entity.Rect{X: 10, Y: float64(10 + row*30), Width: 100, Height: 24},
			Style:     VisibleStyle(),
			Ancestors: []entity.ComputedStyle{VisibleStyle()},
		},
	}
}

// SetElements replaces the DOM.
func (p *FakePage) SetElements(els ...*FakeElement) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, el := range els {
		el.page = p
	}
	p.Elements = els
}

func (p *FakePage) record(event string) {
	p.Events = append(p.Events, event)
}

func (p *FakePage) recordClick(e *FakeElement) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Clicks = append(p.Clicks, e.Label())
	p.record("click:" + e.Label())
}

func (p *FakePage) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	p.Navigations = append(p.Navigations, url)
	p.record("navigate:" + url)
	if p.NavigateErr != nil {
		p.mu.Unlock()
		return p.NavigateErr
	}
	p.URL = url
	els, ok := p.Routes[url]
	p.mu.Unlock()
	if ok {
		p.SetElements(els...)
	}
	return nil
}

func (p *FakePage) WaitLoad(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Loads++
	return nil
}

func (p *FakePage) ClearAnnotations(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Clears++
	p.record("clear")
	for _, el := range p.Elements {
		el.annotation = nil
	}
	return nil
}

func (p *FakePage) QueryInteractive(ctx context.Context) ([]output.ElementHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.QueryErr != nil {
		return nil, p.QueryErr
	}
	out := make([]output.ElementHandle, 0, len(p.Elements))
	for _, el := range p.Elements {
		out = append(out, el)
	}
	return out, nil
}

func (p *FakePage) QueryAnnotated(ctx context.Context) ([]output.ElementHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.QueryErr != nil {
		return nil, p.QueryErr
	}
	var out []output.ElementHandle
	for _, el := range p.Elements {
		if el.annotation != nil {
			out = append(out, el)
		}
	}
	return out, nil
}

func (p *FakePage) Viewport(ctx context.Context) (entity.Viewport, error) {
	return p.View, nil
}

func (p *FakePage) Screenshot(ctx context.Context) (*entity.Screenshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ScreenshotErr != nil {
		return nil, p.ScreenshotErr
	}
	p.Screenshots++
	p.record("screenshot")
	return &entity.Screenshot{Data: []byte{0xFF, 0xD8, 0xFF}, Format: "jpeg", Width: 1200, Height: 1200}, nil
}

func (p *FakePage) CurrentURL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.URL
}

func (p *FakePage) Close() {}

// CountEvents returns how many recorded events start with prefix.
func (p *FakePage) CountEvents(prefix string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.Events {
		if strings.HasPrefix(e, prefix) {
			n++
		}
	}
	return n
}

// FakeLLM replays scripted replies and keeps every request it received.
type FakeLLM struct {
	Replies  []string
	Err      error
	Requests []output.ChatRequest
	OnChat   func(req output.ChatRequest)
}

var _ output.LLMPort = (*FakeLLM)(nil)

func (f *FakeLLM) Chat(ctx context.Context, req output.ChatRequest) (*output.ChatResponse, error) {
	f.Requests = append(f.Requests, req)
	if f.OnChat != nil {
		f.OnChat(req)
	}
	if f.Err != nil {
		return nil, f.Err
	}
	if len(f.Requests) > len(f.Replies) {
		return nil, fmt.Errorf("fake llm: no scripted reply for call %d", len(f.Requests))
	}
	return &output.ChatResponse{
		Message: entity.Message{Role: entity.RoleAssistant, Content: f.Replies[len(f.Requests)-1]},
	}, nil
}

// FakeConsole feeds scripted operator lines and records what was shown.
// Once the lines run out AskQuestion returns io.EOF, as a closed stdin would.
type FakeConsole struct {
	Lines    []string
	Greeting []string
	Replies  []string
	Errors   []string
	Navs     []string
	Clicks   []string
	Prompts  int
	OnAsk    func()
}

var _ output.UserInteractionPort = (*FakeConsole)(nil)

func (c *FakeConsole) AskQuestion(ctx context.Context, prompt string) (string, error) {
	c.Prompts++
	if c.OnAsk != nil {
		c.OnAsk()
	}
	if len(c.Lines) == 0 {
		return "", io.EOF
	}
	line := c.Lines[0]
	c.Lines = c.Lines[1:]
	return line, nil
}

func (c *FakeConsole) ShowGreeting(ctx context.Context, text string) {
	c.Greeting = append(c.Greeting, text)
}

func (c *FakeConsole) ShowReply(ctx context.Context, text string) {
	c.Replies = append(c.Replies, text)
}

func (c *FakeConsole) ShowNavigation(ctx context.Context, url string) {
	c.Navs = append(c.Navs, url)
}

func (c *FakeConsole) ShowClick(ctx context.Context, label string) {
	c.Clicks = append(c.Clicks, label)
}

func (c *FakeConsole) ShowError(ctx context.Context, message string) {
	c.Errors = append(c.Errors, message)
}

// FakeStore keeps screenshots in memory.
type FakeStore struct {
	Saved int
	Err   error
}

var _ output.ScreenshotStore = (*FakeStore)(nil)

func (s *FakeStore) Save(shot *entity.Screenshot) (*entity.ImageRef, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.Saved++
	return &entity.ImageRef{
		Path:    "screenshot.jpg",
		MIME:    "image/jpeg",
		DataURL: fmt.Sprintf("data:image/jpeg;base64,shot-%d", s.Saved),
	}, nil
}

// NopLogger discards everything.
type NopLogger struct{}

var _ output.LoggerPort = NopLogger{}

func (NopLogger) Debug(msg string, args ...any)                      {}
func (NopLogger) Info(msg string, args ...any)                       {}
func (NopLogger) Warn(msg string, args ...any)                       {}
func (NopLogger) Error(msg string, args ...any)                      {}
func (n NopLogger) WithField(key string, value any) output.LoggerPort { return n }
func (n NopLogger) WithFields(fields map[string]any) output.LoggerPort {
	return n
}
func (NopLogger) Close() error { return nil }
