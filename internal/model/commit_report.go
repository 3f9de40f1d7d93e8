package model

import "time"

// CommitReport is the persisted outcome of one commit call.
type CommitReport struct {
	ID         string             `json:"id"`
	SessionID  string             `json:"session_id"`
	Module     Module             `json:"module"`
	EntityID   string             `json:"entity_id"`
	Succeeded  int                `json:"succeeded"`
	Failed     int                `json:"failed"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
	Items      []CommitReportItem `json:"items,omitempty"`
}

// CommitReportItem records a single archive, delete or upload call.
type CommitReportItem struct {
	Kind           string `json:"kind"`
	DocumentID     string `json:"document_id,omitempty"`
	DocumentTypeID string `json:"document_type_id,omitempty"`
	Filename       string `json:"filename,omitempty"`
	Error          string `json:"error,omitempty"`
}
