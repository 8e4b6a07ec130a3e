package output

import (
	"context"

	"vision-crawler/internal/domain/entity"
)

// PagePort is the rendering surface the crawler drives. One page, one tab.
type PagePort interface {
	Navigate(ctx context.Context, url string) error
	// WaitLoad blocks until the page fires its load event or ctx is done.
	WaitLoad(ctx context.Context) error

	ClearAnnotations(ctx context.Context) error
	QueryInteractive(ctx context.Context) ([]ElementHandle, error)
	QueryAnnotated(ctx context.Context) ([]ElementHandle, error)

	Viewport(ctx context.Context) (entity.Viewport, error)
	Screenshot(ctx context.Context) (*entity.Screenshot, error)

	CurrentURL() string
	Close()
}

// ElementHandle is a live reference to one element of the current document.
type ElementHandle interface {
	// Snapshot is the layout state captured when the handle was queried.
	Snapshot() *entity.ElementSnapshot
	Annotation(ctx context.Context) (entity.Annotation, bool, error)
	Annotate(ctx context.Context, a entity.Annotation) error
	Highlight(ctx context.Context) error
	Click(ctx context.Context) error
}
