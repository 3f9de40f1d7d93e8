package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"fleetdocs/internal/export"
	"fleetdocs/internal/logger"
	"fleetdocs/internal/model"
	"fleetdocs/internal/remote"
	"fleetdocs/internal/staging"
)

var ErrDocumentNotFound = errors.New("document not found")

const exportPageSize = 200

// ArchiveQuery filters archived documents. An empty EntityID lists the module.
type ArchiveQuery struct {
	Module   model.Module
	EntityID string
	Limit    int
	Offset   int
}

// ArchiveService exposes archived documents and file previews.
type ArchiveService interface {
	List(ctx context.Context, q ArchiveQuery) (*model.Page[model.ArchivedDocumentRecord], error)
	// Export writes every matching archived document to w as XLSX.
	Export(ctx context.Context, module model.Module, entityID string, w io.Writer) error
	// Restore returns an archived document to the active set. Only roles
	// with restore permission may call it.
	Restore(ctx context.Context, id, role string) error
	DocumentContent(ctx context.Context, id string) (*model.FileContent, error)
	ArchivedContent(ctx context.Context, id string) (*model.FileContent, error)
}

type archiveService struct {
	api     remote.DocumentAPI
	content remote.ContentAPI
}

func NewArchiveService(api remote.DocumentAPI, content remote.ContentAPI) ArchiveService {
	return &archiveService{api: api, content: content}
}

func (s *archiveService) List(ctx context.Context, q ArchiveQuery) (*model.Page[model.ArchivedDocumentRecord], error) {
	if _, err := model.ParseModule(q.Module.String()); err != nil {
		return nil, err
	}
	if q.Limit <= 0 {
		q.Limit = 10
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	page, err := s.api.ListArchivedPage(ctx, remote.ArchiveQuery{
		Module:   q.Module,
		EntityID: q.EntityID,
		Limit:    q.Limit,
		Offset:   q.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list archived: %w", err)
	}
	return page, nil
}

func (s *archiveService) Export(ctx context.Context, module model.Module, entityID string, w io.Writer) error {
	if _, err := model.ParseModule(module.String()); err != nil {
		return err
	}
	var all []model.ArchivedDocumentRecord
	for offset := 0; ; offset += exportPageSize {
		page, err := s.api.ListArchivedPage(ctx, remote.ArchiveQuery{
			Module:   module,
			EntityID: entityID,
			Limit:    exportPageSize,
			Offset:   offset,
		})
		if err != nil {
			return fmt.Errorf("list archived: %w", err)
		}
		all = append(all, page.Items...)
		if len(page.Items) < exportPageSize || len(all) >= page.Total {
			break
		}
	}
	return export.WriteArchivedXLSX(w, all)
}

func (s *archiveService) Restore(ctx context.Context, id, role string) error {
	if id == "" {
		return ErrIDRequired
	}
	if !staging.PermissionsForRole(role).CanRestore {
		return staging.ErrForbidden
	}
	if err := s.api.Restore(ctx, id); err != nil {
		return fmt.Errorf("restore %s: %w", id, err)
	}
	log := logger.Get()
	log.Info().Str("archived_id", id).Msg("document_restored")
	return nil
}

func (s *archiveService) DocumentContent(ctx context.Context, id string) (*model.FileContent, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	c, err := s.content.DocumentContent(ctx, id)
	return c, mapContentErr(err)
}

func (s *archiveService) ArchivedContent(ctx context.Context, id string) (*model.FileContent, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	c, err := s.content.ArchivedContent(ctx, id)
	return c, mapContentErr(err)
}

func mapContentErr(err error) error {
	if errors.Is(err, remote.ErrNotFound) {
		return ErrDocumentNotFound
	}
	return err
}
