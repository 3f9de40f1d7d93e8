package remote

import (
	"context"
	"errors"

	"fleetdocs/internal/model"
)

var (
	// ErrRejected is returned when a mutation reports success=false.
	ErrRejected = errors.New("remote rejected the operation")
	// ErrNotFound is returned by the preview endpoints for unknown documents.
	ErrNotFound = errors.New("document not found")
)

// ArchiveQuery filters the paginated archived-documents listing.
// An empty EntityID lists the whole module.
type ArchiveQuery struct {
	Module   model.Module
	EntityID string
	Limit    int
	Offset   int
}

// UploadInput is the payload of the uploadDocument mutation.
// Content is the file encoded as a data URL.
type UploadInput struct {
	Module         model.Module
	EntityID       string
	DocumentTypeID string
	Filename       string
	ContentType    string
	Content        string
}

// DocumentAPI is the fleet backend's document surface. Mutations return
// nil only when the backend confirmed success.
type DocumentAPI interface {
	ListAssignments(ctx context.Context, module model.Module) ([]model.DocumentTypeAssignment, error)
	ListDocuments(ctx context.Context, module model.Module, entityID string) ([]model.DocumentRecord, error)
	ListArchived(ctx context.Context, module model.Module, entityID string) ([]model.ArchivedDocumentRecord, error)
	ListArchivedPage(ctx context.Context, q ArchiveQuery) (*model.Page[model.ArchivedDocumentRecord], error)
	Upload(ctx context.Context, in UploadInput) (*model.DocumentRecord, error)
	Delete(ctx context.Context, documentID string) error
	Archive(ctx context.Context, documentID string) error
	Restore(ctx context.Context, archivedID string) error
	// SystemConfigValue returns "" when the key is not set.
	SystemConfigValue(ctx context.Context, key string) (string, error)
}

// ContentAPI serves raw file content for previews.
type ContentAPI interface {
	DocumentContent(ctx context.Context, documentID string) (*model.FileContent, error)
	ArchivedContent(ctx context.Context, archivedID string) (*model.FileContent, error)
}
