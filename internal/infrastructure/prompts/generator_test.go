package prompts

import (
	"strings"
	"testing"
)

func TestGenerateSystemPrompt(t *testing.T) {
	result, err := GenerateSystemPrompt(SystemPromptTemplate, SystemPromptData{})
	if err != nil {
		t.Fatalf("GenerateSystemPrompt failed: %v", err)
	}

	if !strings.HasPrefix(result, "You are a web crawler") {
		t.Error("Result should start with the crawler role")
	}

	if !strings.Contains(result, `{"url": "desired URL here"}`) {
		t.Error("Result should document the url directive")
	}

	if !strings.Contains(result, `{"click": "Text in link"}`) {
		t.Error("Result should document the click directive")
	}

	if !strings.Contains(result, "'https://google.com/search?q=your query'") {
		t.Error("Result should fall back to the default search URL")
	}

	if strings.Contains(result, "{{") {
		t.Error("Result should not contain template actions")
	}
}

func TestGenerateSystemPromptCustomSearch(t *testing.T) {
	result, err := GenerateSystemPrompt(SystemPromptTemplate, SystemPromptData{
		SearchURL: "https://duckduckgo.com/?q=",
	})
	if err != nil {
		t.Fatalf("GenerateSystemPrompt failed: %v", err)
	}

	if !strings.Contains(result, "'https://duckduckgo.com/?q=your query'") {
		t.Error("Result should use the configured search URL")
	}
}

func TestGenerateSystemPromptInvalidTemplate(t *testing.T) {
	if _, err := GenerateSystemPrompt(`Test {{.InvalidField}}`, SystemPromptData{}); err == nil {
		t.Error("Expected error for unknown field, got nil")
	}

	if _, err := GenerateSystemPrompt(`Test {{.SearchURL`, SystemPromptData{}); err == nil {
		t.Error("Expected error for unterminated action, got nil")
	}
}

func TestScreenshotCaption(t *testing.T) {
	if !strings.HasPrefix(ScreenshotCaption, "Here's the screenshot of the current webpage.") {
		t.Errorf("unexpected caption: %q", ScreenshotCaption)
	}
	if !strings.Contains(ScreenshotCaption, `{"click": "Link text"}`) {
		t.Error("Caption should remind the model of the click directive")
	}
}
