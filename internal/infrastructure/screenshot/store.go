// Package screenshot persists the per-turn capture and encodes it for inline
// delivery to the model.
package screenshot

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"vision-crawler/internal/application/port/output"
	"vision-crawler/internal/domain/entity"

	"github.com/gabriel-vasile/mimetype"
)

const DefaultPath = "screenshot.jpg"

var ErrUnsupportedImage = errors.New("unsupported screenshot format")

var supportedMIMETypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

var _ output.ScreenshotStore = (*FileStore)(nil)

// FileStore keeps exactly one file on disk, overwritten every turn.
type FileStore struct {
	path   string
	logger output.LoggerPort
}

func NewFileStore(path string, logger output.LoggerPort) *FileStore {
	if path == "" {
		path = DefaultPath
	}
	return &FileStore{
		path:   path,
		logger: logger.WithField("component", "screenshot"),
	}
}

func (s *FileStore) Path() string {
	return s.path
}

// Save writes the capture, reads it back and returns it as a data URL. The
// MIME type comes from the bytes on disk, not from the capture's declared
// format.
func (s *FileStore) Save(shot *entity.Screenshot) (*entity.ImageRef, error) {
	if shot == nil || len(shot.Data) == 0 {
		return nil, fmt.Errorf("%w: empty capture", ErrUnsupportedImage)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create screenshot dir %s: %w", dir, err)
		}
	}

	if err := os.WriteFile(s.path, shot.Data, 0o644); err != nil {
		return nil, fmt.Errorf("write screenshot %s: %w", s.path, err)
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read screenshot %s: %w", s.path, err)
	}

	mime := mimetype.Detect(data).String()
	if !supportedMIMETypes[mime] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedImage, mime)
	}

	s.logger.Debug("Screenshot saved", "path", s.path, "mime", mime, "bytes", len(data))

	return &entity.ImageRef{
		Path:    s.path,
		MIME:    mime,
		DataURL: "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data),
	}, nil
}
