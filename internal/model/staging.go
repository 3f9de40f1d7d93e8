package model

// FileHandle describes a file selected by the user. The bytes live in the
// staging spool under Key until the file is committed or discarded.
type FileHandle struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Key         string `json:"-"`
}

// StagedUpload pairs a document type with a selected file. It exists only
// between selection and commit.
type StagedUpload struct {
	DocumentTypeID string     `json:"document_type_id"`
	File           FileHandle `json:"file"`
}
