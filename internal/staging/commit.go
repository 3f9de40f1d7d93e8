package staging

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"fleetdocs/internal/model"
	"fleetdocs/internal/remote"
)

const defaultContentType = "application/octet-stream"

var tracer = otel.Tracer("fleetdocs/internal/staging")

// Commit applies the staged intent to the remote API for the override
// entity, or the bound entity when override is empty. With neither, it
// makes no calls, leaves staged state alone and returns a skipped result.
//
// Archives run first, then deletes, both one at a time. Uploads run
// concurrently and all of them settle before cleanup. Staged state is
// cleared and read state refreshed whatever the outcome.
func (s *Session) Commit(ctx context.Context, entityIDOverride string) *CommitResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	entityID := entityIDOverride
	if entityID == "" {
		entityID = s.entityID
	}
	res := &CommitResult{
		SessionID:  s.id,
		Module:     s.module,
		EntityID:   entityID,
		Operations: []OperationResult{},
		StartedAt:  time.Now().UTC(),
	}
	if entityID == "" {
		res.Skipped = true
		res.FinishedAt = res.StartedAt
		return res
	}

	ctx, span := tracer.Start(ctx, "staging.Commit", trace.WithAttributes(
		attribute.String("session.id", s.id),
		attribute.String("document.module", s.module.String()),
		attribute.String("document.entity_id", entityID),
	))
	defer span.End()

	snap := s.store.Snapshot()

	s.runPhase(ctx, res, OpArchive, snap.PendingArchive, s.api.Archive)
	s.runPhase(ctx, res, OpDelete, snap.PendingDelete, s.api.Delete)
	s.uploadAll(ctx, res, entityID, snap.Uploads)

	s.store.Reset()
	for _, up := range snap.Uploads {
		s.discard(ctx, up.File)
	}
	if s.entityID == "" {
		s.entityID = entityID
	}
	s.refreshLocked(ctx, false)

	res.FinishedAt = time.Now().UTC()
	if failed := len(res.Failed()); failed > 0 {
		span.SetStatus(codes.Error, fmt.Sprintf("%d of %d operations failed", failed, len(res.Operations)))
	}
	if s.recorder != nil {
		s.recorder.ObserveCommit(res)
	}
	s.log.Info().
		Str("entity_id", entityID).
		Int("operations", len(res.Operations)).
		Int("failed", len(res.Failed())).
		Dur("duration", res.Duration()).
		Msg("commit_finished")
	return res
}

// runPhase calls fn for each id in order. Failures are recorded and the
// remaining calls still run.
func (s *Session) runPhase(ctx context.Context, res *CommitResult, kind OperationKind, ids []string,
	fn func(context.Context, string) error) {
	if len(ids) == 0 {
		return
	}
	ctx, span := tracer.Start(ctx, "staging.Commit."+string(kind))
	defer span.End()

	for _, id := range ids {
		err := fn(ctx, id)
		s.observe(kind, err)
		if err != nil {
			span.RecordError(err)
			s.log.Error().Err(err).Str("op", string(kind)).Str("document_id", id).Msg("commit_operation_failed")
		}
		res.add(OperationResult{Kind: kind, DocumentID: id, Err: err})
	}
}

// uploadAll issues every upload at once and waits for all of them.
func (s *Session) uploadAll(ctx context.Context, res *CommitResult, entityID string, uploads []model.StagedUpload) {
	if len(uploads) == 0 {
		return
	}
	ctx, span := tracer.Start(ctx, "staging.Commit.upload", trace.WithAttributes(
		attribute.Int("upload.count", len(uploads)),
	))
	defer span.End()

	results := make([]OperationResult, len(uploads))
	var g errgroup.Group
	for i, up := range uploads {
		g.Go(func() error {
			results[i] = s.upload(ctx, entityID, up)
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		if r.Err != nil {
			span.RecordError(r.Err)
		}
		res.add(r)
	}
}

func (s *Session) upload(ctx context.Context, entityID string, up model.StagedUpload) OperationResult {
	out := OperationResult{Kind: OpUpload, DocumentTypeID: up.DocumentTypeID, Filename: up.File.Name}

	contentType := up.File.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}
	content, err := s.dataURL(ctx, up.File.Key, contentType)
	if err == nil {
		var doc *model.DocumentRecord
		doc, err = s.api.Upload(ctx, remote.UploadInput{
			Module:         s.module,
			EntityID:       entityID,
			DocumentTypeID: up.DocumentTypeID,
			Filename:       up.File.Name,
			ContentType:    contentType,
			Content:        content,
		})
		if err == nil && doc != nil {
			out.DocumentID = doc.ID
		}
	}

	s.observe(OpUpload, err)
	if err != nil {
		s.log.Error().Err(err).Str("op", string(OpUpload)).Str("filename", up.File.Name).
			Str("document_type_id", up.DocumentTypeID).Msg("commit_operation_failed")
	}
	out.Err = err
	return out
}

// dataURL reads spooled content and encodes it as a base64 data URL.
func (s *Session) dataURL(ctx context.Context, key, contentType string) (string, error) {
	if s.blobs == nil {
		return "", fmt.Errorf("read %s: no spool configured", key)
	}
	rc, err := s.blobs.Open(ctx, key)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(raw), nil
}

func (s *Session) observe(kind OperationKind, err error) {
	if s.recorder != nil {
		s.recorder.ObserveOperation(kind, err)
	}
}
