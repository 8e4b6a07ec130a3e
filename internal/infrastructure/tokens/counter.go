// Package tokens estimates how large a conversation is before it is sent.
package tokens

import (
	"fmt"
	"strings"
	"sync"

	"vision-crawler/internal/application/port/output"
	"vision-crawler/internal/domain/entity"

	"github.com/pkoukk/tiktoken-go"
)

const (
	messageOverhead      = 4
	conversationOverhead = 3
	// imageTokens is the flat cost charged per inline screenshot.
	imageTokens = 765
	// charsPerToken backs the estimate when no encoding is available.
	charsPerToken = 4
)

var modelEncodings = map[string]string{
	"gpt-4o":        "o200k_base",
	"gpt-4.1":       "o200k_base",
	"o1":            "o200k_base",
	"o3":            "o200k_base",
	"gpt-4":         "cl100k_base",
	"gpt-3.5-turbo": "cl100k_base",
}

// EncodingFor maps a model id, with or without a provider prefix such as
// "openai/", to its tiktoken encoding.
func EncodingFor(model string) string {
	if i := strings.LastIndex(model, "/"); i >= 0 {
		model = model[i+1:]
	}

	best := ""
	for prefix := range modelEncodings {
		if strings.HasPrefix(model, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return "cl100k_base"
	}
	return modelEncodings[best]
}

// Counter implements session.TokenCounter on tiktoken. The encoding is loaded
// lazily on first use; if it cannot be loaded the counter degrades to a
// character-based estimate.
type Counter struct {
	encoding string
	logger   output.LoggerPort

	once   sync.Once
	encode func(string) int
}

func NewCounter(model string, logger output.LoggerPort) *Counter {
	return &Counter{
		encoding: EncodingFor(model),
		logger:   logger.WithField("component", "tokens"),
	}
}

func (c *Counter) init() {
	c.once.Do(func() {
		if c.encode != nil {
			return
		}
		enc, err := tiktoken.GetEncoding(c.encoding)
		if err != nil {
			c.logger.Warn("Falling back to character estimate",
				"encoding", c.encoding,
				"error", fmt.Errorf("init tiktoken encoding: %w", err),
			)
			c.encode = estimate
			return
		}
		c.encode = func(s string) int {
			return len(enc.Encode(s, nil, nil))
		}
	})
}

func (c *Counter) Count(text string) int {
	c.init()
	return c.encode(text)
}

func (c *Counter) CountMessages(messages []entity.Message) int {
	total := conversationOverhead
	for _, msg := range messages {
		total += messageOverhead
		total += c.Count(string(msg.Role))
		total += c.Count(msg.Content)
		if msg.HasImage() {
			total += imageTokens
		}
	}
	return total
}

func estimate(s string) int {
	if s == "" {
		return 0
	}
	return (len(s) + charsPerToken - 1) / charsPerToken
}
