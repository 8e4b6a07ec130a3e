// Package action pulls the navigate/click directive out of a free-form model reply.
package action

import (
	"errors"
	"fmt"
	"strings"

	"vision-crawler/internal/domain/entity"
	"vision-crawler/internal/domain/label"
)

const (
	ClickMarker = `{"click": "`
	URLMarker   = `{"url": "`
	closeMarker = `"}`
)

var (
	ErrMalformedDirective = errors.New("malformed action directive")
	ErrAmbiguousDirective = errors.New("ambiguous action directive")
)

// Extract returns the action embedded in reply. A click fragment wins over a
// url fragment regardless of their order. A reply without any fragment is a
// final answer and yields entity.ActionNone.
func Extract(reply string) (entity.PendingAction, error) {
	payload, found, err := fragment(reply, ClickMarker)
	if found {
		if err != nil {
			return entity.NoAction(), err
		}
		target := label.Sanitize(payload)
		if target == "" {
			return entity.NoAction(), fmt.Errorf("%w: click target %q is empty after sanitizing", ErrMalformedDirective, payload)
		}
		return entity.ClickOn(target), nil
	}

	payload, found, err = fragment(reply, URLMarker)
	if found {
		if err != nil {
			return entity.NoAction(), err
		}
		url := strings.TrimSpace(payload)
		if url == "" {
			return entity.NoAction(), fmt.Errorf("%w: empty url", ErrMalformedDirective)
		}
		return entity.NavigateTo(url), nil
	}

	return entity.NoAction(), nil
}

// fragment finds the first marker...closeMarker span. Any later fragment of
// the same kind makes the reply ambiguous, even an exact repeat.
func fragment(text, marker string) (payload string, found bool, err error) {
	start := strings.Index(text, marker)
	if start < 0 {
		return "", false, nil
	}

	payload, rest, err := cutPayload(text[start+len(marker):], marker)
	if err != nil {
		return "", true, err
	}

	if next := strings.Index(rest, marker); next >= 0 {
		again, _, err := cutPayload(rest[next+len(marker):], marker)
		if err != nil {
			return "", true, err
		}
		return "", true, fmt.Errorf("%w: %s%s%s and %s%s%s", ErrAmbiguousDirective,
			marker, payload, closeMarker, marker, again, closeMarker)
	}
	return payload, true, nil
}

// cutPayload splits s at the first closeMarker. A payload that runs into
// another opening marker spans two fragments and is rejected.
func cutPayload(s, marker string) (payload, rest string, err error) {
	end := strings.Index(s, closeMarker)
	if end < 0 {
		return "", "", fmt.Errorf("%w: %s has no closing %s", ErrMalformedDirective, marker, closeMarker)
	}
	payload = s[:end]
	for _, m := range []string{ClickMarker, URLMarker} {
		if strings.Contains(payload, m) {
			return "", "", fmt.Errorf("%w: %s payload runs into %s", ErrMalformedDirective, marker, m)
		}
	}
	return payload, s[end+len(closeMarker):], nil
}
