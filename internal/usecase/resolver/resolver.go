// Package resolver maps a click label back to an element of the current annotation pass.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"vision-crawler/internal/application/port/output"
)

var ErrNotFound = errors.New("no annotated element matches label")

type Resolver struct {
	page   output.PagePort
	logger output.LoggerPort
}

func New(page output.PagePort, logger output.LoggerPort) *Resolver {
	return &Resolver{
		page:   page,
		logger: logger.WithField("component", "resolver"),
	}
}

// Resolve scans the labelled elements once. An exact label match wins; failing
// that the last element whose label contains the wanted text. Elements
// labelled by any pass other than pass are ignored.
func (r *Resolver) Resolve(ctx context.Context, label string, pass uint64) (output.ElementHandle, error) {
	if label == "" {
		return nil, fmt.Errorf("%w: empty label", ErrNotFound)
	}

	elements, err := r.page.QueryAnnotated(ctx)
	if err != nil {
		return nil, fmt.Errorf("query annotated elements: %w", err)
	}

	var exact, partial output.ElementHandle
	stale := 0
	for _, el := range elements {
		ann, ok, err := el.Annotation(ctx)
		if err != nil || !ok {
			continue
		}
		if ann.Pass != pass {
			stale++
			continue
		}
		if strings.Contains(ann.Label, label) {
			partial = el
		}
		if ann.Label == label {
			exact = el
		}
	}

	r.logger.Debug("Resolved label",
		"label", label,
		"pass", pass,
		"scanned", len(elements),
		"stale", stale,
		"exact", exact != nil,
		"partial", partial != nil,
	)

	switch {
	case exact != nil:
		return exact, nil
	case partial != nil:
		return partial, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrNotFound, label)
	}
}
