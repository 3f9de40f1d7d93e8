package model

import "time"

// DocumentType is a named category of paperwork (e.g. "Driver's License Front").
// AllowedExtensions holds bare, lower-case extensions such as "pdf" or "jpg".
type DocumentType struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	AllowedExtensions []string `json:"allowed_extensions"`
	Active            bool     `json:"active"`
}

// DocumentTypeAssignment states that a document type is required or optional for a module.
// It is read-only from this service's point of view.
type DocumentTypeAssignment struct {
	ID             string       `json:"id"`
	DocumentTypeID string       `json:"document_type_id"`
	Module         Module       `json:"module"`
	Mandatory      bool         `json:"mandatory"`
	Active         bool         `json:"active"`
	DocumentType   DocumentType `json:"document_type"`
}

// DisplayName returns the document type name, falling back to its identifier.
func (a DocumentTypeAssignment) DisplayName() string {
	if a.DocumentType.Name != "" {
		return a.DocumentType.Name
	}
	return a.DocumentTypeID
}

// DocumentRecord is a previously uploaded, non-archived file tied to an entity.
// It mirrors server state and is never mutated locally.
type DocumentRecord struct {
	ID               string       `json:"id"`
	Module           Module       `json:"module"`
	EntityID         string       `json:"entity_id"`
	DocumentTypeID   string       `json:"document_type_id"`
	OriginalFilename string       `json:"original_filename"`
	MimeType         string       `json:"mime_type"`
	FileExtension    string       `json:"file_extension"`
	Size             int64        `json:"size"`
	UploadedAt       time.Time    `json:"uploaded_at"`
	DeletedAt        *time.Time   `json:"deleted_at,omitempty"`
	DocumentType     DocumentType `json:"document_type"`
}

// ArchivedDocumentRecord is a soft-removed document that can be restored.
type ArchivedDocumentRecord struct {
	DocumentRecord
	StoragePath string    `json:"storage_path"`
	ArchivedAt  time.Time `json:"archived_at"`
	ArchivedBy  string    `json:"archived_by"`
}

// FileContent is the raw payload served for previews.
type FileContent struct {
	Filename string `json:"filename"`
	MimeType string `json:"mime_type"`
	Content  string `json:"content"`
}

// Page is a generic pagination result wrapper.
type Page[T any] struct {
	Items []T `json:"data"`
	Total int `json:"total"`
}
