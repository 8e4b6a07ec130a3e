// Package annotator labels the interactive elements of the current page so the
// model can refer to them by their visible text.
package annotator

import (
	"context"
	"fmt"

	"vision-crawler/internal/application/port/output"
	"vision-crawler/internal/domain/entity"
	"vision-crawler/internal/domain/label"
	"vision-crawler/internal/usecase/visibility"
)

// minBoxSize is exclusive: an element needs width > 5 and height > 5.
const minBoxSize = 5.0

type Annotator struct {
	page   output.PagePort
	logger output.LoggerPort
	pass   uint64
}

func New(page output.PagePort, logger output.LoggerPort) *Annotator {
	return &Annotator{
		page:   page,
		logger: logger.WithField("component", "annotator"),
	}
}

// CurrentPass is the id of the latest pass. Labels carrying any other id are stale.
func (a *Annotator) CurrentPass() uint64 {
	return a.pass
}

// Annotate runs one full pass. It is safe to call repeatedly; every call
// clears the previous labels first and starts a new pass id.
func (a *Annotator) Annotate(ctx context.Context) (*entity.AnnotationPass, error) {
	a.pass++
	result := &entity.AnnotationPass{ID: a.pass}
	log := a.logger.WithField("pass", a.pass)

	if err := a.page.ClearAnnotations(ctx); err != nil {
		log.Warn("Failed to clear previous labels", "error", err)
	}

	viewport, err := a.page.Viewport(ctx)
	if err != nil {
		return nil, fmt.Errorf("read viewport: %w", err)
	}

	candidates, err := a.page.QueryInteractive(ctx)
	if err != nil {
		// Mid-navigation documents can refuse queries; an empty pass is fine.
		log.Warn("Candidate query failed, pass left empty", "error", err)
		return result, nil
	}
	result.Candidates = len(candidates)

	for _, el := range candidates {
		snap := el.Snapshot()
		if !Eligible(snap, viewport) {
			continue
		}

		ann := entity.Annotation{Label: label.Sanitize(snap.Text), Pass: a.pass}
		if err := el.Annotate(ctx, ann); err != nil {
			log.Debug("Element vanished before labelling", "tag", snap.Tag, "error", err)
			continue
		}
		if err := el.Highlight(ctx); err != nil {
			log.Debug("Highlight failed", "tag", snap.Tag, "error", err)
		}

		result.Elements = append(result.Elements, entity.AnnotatedElement{
			Label:   ann.Label,
			Box:     snap.Box,
			Visible: true,
			Pass:    a.pass,
		})
	}

	log.Info("Annotation pass completed",
		"candidates", result.Candidates,
		"labelled", len(result.Elements),
		"viewport", fmt.Sprintf("%.0fx%.0f", viewport.Width, viewport.Height),
	)

	return result, nil
}

// Eligible applies the size threshold and the visibility predicate.
func Eligible(snap *entity.ElementSnapshot, vp entity.Viewport) bool {
	if snap == nil {
		return false
	}
	if snap.Box.Width <= minBoxSize || snap.Box.Height <= minBoxSize {
		return false
	}
	return visibility.IsVisible(snap, vp)
}
