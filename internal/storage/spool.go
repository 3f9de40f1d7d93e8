package storage

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/google/uuid"

	"fleetdocs/internal/model"
)

const defaultContentType = "application/octet-stream"

// Spool parks staged file bytes in object storage under
// staging/<session>/<uuid> until they are committed or discarded.
type Spool struct {
	store Storage
}

func NewSpool(store Storage) *Spool {
	return &Spool{store: store}
}

// Stage copies r into the spool and returns a handle pointing at it.
func (s *Spool) Stage(ctx context.Context, sessionID, filename, contentType string, size int64, r io.Reader) (model.FileHandle, error) {
	if r == nil {
		return model.FileHandle{}, fmt.Errorf("spool %s: reader is nil", filename)
	}
	if contentType == "" {
		contentType = defaultContentType
	}
	key := path.Join("staging", sessionID, uuid.NewString()+path.Ext(filename))
	info, err := s.store.Put(ctx, key, r, PutObjectOptions{
		Size:        size,
		ContentType: contentType,
		Metadata:    map[string]string{"original-filename": filename},
	})
	if err != nil {
		return model.FileHandle{}, fmt.Errorf("spool %s: %w", filename, err)
	}
	return model.FileHandle{
		Name:        filename,
		ContentType: contentType,
		Size:        info.Size,
		Key:         key,
	}, nil
}

// Open streams a spooled file.
func (s *Spool) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	rc, _, err := s.store.Get(ctx, key)
	return rc, err
}

// Discard removes a spooled file. Missing keys are not an error.
func (s *Spool) Discard(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	return s.store.Delete(ctx, key)
}
