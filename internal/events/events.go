package events

import (
	"context"
	"time"

	"fleetdocs/internal/model"
	"fleetdocs/internal/staging"
)

// CommitEvent is published after every non-skipped commit.
type CommitEvent struct {
	SessionID   string                    `json:"session_id"`
	Module      model.Module              `json:"module"`
	EntityID    string                    `json:"entity_id"`
	Succeeded   int                       `json:"succeeded"`
	Failed      int                       `json:"failed"`
	Operations  []staging.OperationResult `json:"operations"`
	CommittedAt time.Time                 `json:"committed_at"`
}

func NewCommitEvent(res *staging.CommitResult) CommitEvent {
	failed := len(res.Failed())
	return CommitEvent{
		SessionID:   res.SessionID,
		Module:      res.Module,
		EntityID:    res.EntityID,
		Succeeded:   len(res.Operations) - failed,
		Failed:      failed,
		Operations:  res.Operations,
		CommittedAt: res.FinishedAt,
	}
}

type Publisher interface {
	PublishCommit(ctx context.Context, ev CommitEvent) error
	Close()
}

// Noop drops every event. Used when NATS is not configured.
type Noop struct{}

func (Noop) PublishCommit(context.Context, CommitEvent) error { return nil }

func (Noop) Close() {}
