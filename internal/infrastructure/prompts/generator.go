package prompts

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

const DefaultSearchURL = "https://google.com/search?q="

type SystemPromptData struct {
	// SearchURL is suggested to the model as the starting point for simple
	// searches; the query is appended to it.
	SearchURL string
}

// GenerateSystemPrompt renders baseTemplate. Unknown fields are an error so a
// typo in the template cannot silently reach the model.
func GenerateSystemPrompt(baseTemplate string, data SystemPromptData) (string, error) {
	if data.SearchURL == "" {
		data.SearchURL = DefaultSearchURL
	}

	tmpl, err := template.New("system").Option("missingkey=error").Parse(baseTemplate)
	if err != nil {
		return "", fmt.Errorf("parse system prompt: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render system prompt: %w", err)
	}

	return strings.TrimSpace(buf.String()), nil
}
