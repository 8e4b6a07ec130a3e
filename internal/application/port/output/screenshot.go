package output

import "vision-crawler/internal/domain/entity"

// ScreenshotStore persists the per-turn capture and turns it into an inline image.
type ScreenshotStore interface {
	Save(shot *entity.Screenshot) (*entity.ImageRef, error)
}
