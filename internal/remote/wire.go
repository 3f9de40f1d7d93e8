package remote

import (
	"time"

	"fleetdocs/internal/model"
)

type wireDocumentType struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	AllowedExtensions []string `json:"allowedExtensions"`
	Active            bool     `json:"active"`
}

func (w wireDocumentType) toModel() model.DocumentType {
	return model.DocumentType{
		ID:                w.ID,
		Name:              w.Name,
		AllowedExtensions: w.AllowedExtensions,
		Active:            w.Active,
	}
}

type wireAssignment struct {
	ID             string           `json:"id"`
	DocumentTypeID string           `json:"documentTypeId"`
	Module         string           `json:"module"`
	Mandatory      bool             `json:"mandatory"`
	Active         bool             `json:"active"`
	DocumentType   wireDocumentType `json:"documentType"`
}

type wireDocument struct {
	ID               string           `json:"id"`
	Module           string           `json:"module"`
	EntityID         string           `json:"entityId"`
	DocumentTypeID   string           `json:"documentTypeId"`
	OriginalFilename string           `json:"originalFilename"`
	MimeType         string           `json:"mimeType"`
	FileExtension    string           `json:"fileExtension"`
	Size             int64            `json:"size"`
	UploadedAt       time.Time        `json:"uploadedAt"`
	DeletedAt        *time.Time       `json:"deletedAt"`
	DocumentType     wireDocumentType `json:"documentType"`
}

func (w wireDocument) toModel() model.DocumentRecord {
	return model.DocumentRecord{
		ID:               w.ID,
		Module:           model.Module(w.Module),
		EntityID:         w.EntityID,
		DocumentTypeID:   w.DocumentTypeID,
		OriginalFilename: w.OriginalFilename,
		MimeType:         w.MimeType,
		FileExtension:    w.FileExtension,
		Size:             w.Size,
		UploadedAt:       w.UploadedAt,
		DeletedAt:        w.DeletedAt,
		DocumentType:     w.DocumentType.toModel(),
	}
}

type wireArchived struct {
	wireDocument
	StoragePath string    `json:"storagePath"`
	ArchivedAt  time.Time `json:"archivedAt"`
	ArchivedBy  string    `json:"archivedBy"`
}

func (w wireArchived) toModel() model.ArchivedDocumentRecord {
	return model.ArchivedDocumentRecord{
		DocumentRecord: w.wireDocument.toModel(),
		StoragePath:    w.StoragePath,
		ArchivedAt:     w.ArchivedAt,
		ArchivedBy:     w.ArchivedBy,
	}
}

type wireContent struct {
	Filename string `json:"filename"`
	MimeType string `json:"mimeType"`
	Content  string `json:"content"`
}
