package session

import (
	"fmt"
	"net/url"
	"strings"
)

// TargetError is a navigation target rejected before it reaches the browser.
type TargetError struct {
	URL    string
	Reason string
}

func (e *TargetError) Error() string {
	return fmt.Sprintf("cannot navigate to %q: %s", e.URL, e.Reason)
}

// ValidateTarget accepts absolute http and https URLs only.
func ValidateTarget(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return &TargetError{URL: raw, Reason: fmt.Sprintf("invalid URL: %v", err)}
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return &TargetError{URL: raw, Reason: fmt.Sprintf("scheme %q not allowed, only http/https", parsed.Scheme)}
	}

	if parsed.Hostname() == "" {
		return &TargetError{URL: raw, Reason: "empty hostname"}
	}

	return nil
}
