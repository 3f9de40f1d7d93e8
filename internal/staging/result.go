package staging

import (
	"time"

	"fleetdocs/internal/model"
)

type OperationKind string

const (
	OpArchive OperationKind = "archive"
	OpDelete  OperationKind = "delete"
	OpUpload  OperationKind = "upload"
)

// OperationResult is the outcome of one remote call made during a commit.
// For archives and deletes DocumentID is the target; for uploads it is the
// identifier of the created document.
type OperationResult struct {
	Kind           OperationKind `json:"kind"`
	DocumentID     string        `json:"document_id,omitempty"`
	DocumentTypeID string        `json:"document_type_id,omitempty"`
	Filename       string        `json:"filename,omitempty"`
	Error          string        `json:"error,omitempty"`
	Err            error         `json:"-"`
}

func (o OperationResult) OK() bool { return o.Err == nil }

// CommitResult lists every operation a commit attempted. Per-item failures
// are reported here and never returned as an error.
type CommitResult struct {
	SessionID  string            `json:"session_id"`
	Module     model.Module      `json:"module"`
	EntityID   string            `json:"entity_id,omitempty"`
	Skipped    bool              `json:"skipped"`
	Operations []OperationResult `json:"operations"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
}

func (r *CommitResult) add(op OperationResult) {
	if op.Err != nil {
		op.Error = op.Err.Error()
	}
	r.Operations = append(r.Operations, op)
}

// Failed returns the operations that did not succeed.
func (r *CommitResult) Failed() []OperationResult {
	var out []OperationResult
	for _, op := range r.Operations {
		if !op.OK() {
			out = append(out, op)
		}
	}
	return out
}

// OK reports whether every attempted operation succeeded.
func (r *CommitResult) OK() bool {
	return len(r.Failed()) == 0
}

func (r *CommitResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Report converts the result into its persisted audit form.
func (r *CommitResult) Report() model.CommitReport {
	rep := model.CommitReport{
		SessionID:  r.SessionID,
		Module:     r.Module,
		EntityID:   r.EntityID,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
	for _, op := range r.Operations {
		if op.OK() {
			rep.Succeeded++
		} else {
			rep.Failed++
		}
		rep.Items = append(rep.Items, model.CommitReportItem{
			Kind:           string(op.Kind),
			DocumentID:     op.DocumentID,
			DocumentTypeID: op.DocumentTypeID,
			Filename:       op.Filename,
			Error:          op.Error,
		})
	}
	return rep
}
