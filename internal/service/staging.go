package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"fleetdocs/internal/config"
	"fleetdocs/internal/events"
	"fleetdocs/internal/logger"
	"fleetdocs/internal/model"
	"fleetdocs/internal/remote"
	"fleetdocs/internal/repository"
	"fleetdocs/internal/staging"
	"fleetdocs/internal/storage"
)

var (
	ErrIDRequired         = errors.New("id is required")
	ErrSessionNotFound    = errors.New("staging session not found")
	ErrReaderNil          = errors.New("reader is nil")
	ErrInvalidReplaceMode = errors.New("replace mode must be delete or archive")
	ErrReportNotFound     = errors.New("commit report not found")
)

// OpenSessionInput describes a new staging session. A nil
// AllowDeleteWithoutReplacement falls back to the configured default.
type OpenSessionInput struct {
	Module                        model.Module
	EntityID                      string
	MaxUploadMB                   int
	AllowDeleteWithoutReplacement *bool
	Role                          string
}

// FileUpload is a file received from a client.
type FileUpload struct {
	Reader      io.Reader
	Filename    string
	ContentType string
	Size        int64
}

type ReplaceMode string

const (
	ReplaceDelete  ReplaceMode = "delete"
	ReplaceArchive ReplaceMode = "archive"
)

// ReportListResult is the service-level DTO for paginated commit reports.
type ReportListResult struct {
	Items []model.CommitReport `json:"data"`
	Total int                  `json:"total"`
}

// StagingService owns the staging sessions of all open forms.
type StagingService interface {
	Open(ctx context.Context, in OpenSessionInput) (*staging.View, error)
	View(ctx context.Context, id string) (*staging.View, error)
	// Close discards the session and its spooled files.
	Close(ctx context.Context, id string) error

	StageFile(ctx context.Context, id, documentTypeID string, f FileUpload) (*staging.View, error)
	UnstageFile(ctx context.Context, id, documentTypeID string, index int) (*staging.View, error)
	Replace(ctx context.Context, id, documentID string, mode ReplaceMode, f FileUpload) (*staging.View, error)
	MarkDelete(ctx context.Context, id, documentID string) (*staging.View, error)
	UndoDelete(ctx context.Context, id, documentID string) (*staging.View, error)
	MarkArchive(ctx context.Context, id, documentID string) (*staging.View, error)
	UndoArchive(ctx context.Context, id, documentID string) (*staging.View, error)

	// Commit applies the session's staged intent. Per-operation failures are
	// reported in the result, never as an error.
	Commit(ctx context.Context, id, entityID string) (*staging.CommitResult, error)
	Reset(ctx context.Context, id string) (*staging.View, error)

	ListReports(ctx context.Context, f repository.ReportFilter) (*ReportListResult, error)
	GetReport(ctx context.Context, id string) (*model.CommitReport, error)

	// Sweep closes sessions idle for longer than the TTL and returns how many.
	Sweep(ctx context.Context) int
	// Run sweeps on every tick until ctx is done.
	Run(ctx context.Context, every time.Duration)
}

// SessionGauge is told how many sessions are open.
type SessionGauge interface {
	SetSessionsOpen(n int)
}

// StagingDeps are the collaborators of the staging service. Reports,
// Events, Recorder and Gauge may be nil.
type StagingDeps struct {
	API      remote.DocumentAPI
	Spool    *storage.Spool
	Reports  repository.CommitReportRepository
	Events   events.Publisher
	Recorder staging.Recorder
	Gauge    SessionGauge
	Config   config.StagingConfig
	Now      func() time.Time
}

type stagingService struct {
	deps StagingDeps
	ttl  time.Duration

	mu       sync.RWMutex
	sessions map[string]*staging.Session
}

func NewStagingService(deps StagingDeps) StagingService {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Events == nil {
		deps.Events = events.Noop{}
	}
	ttl := time.Duration(deps.Config.SessionTTLMin) * time.Minute
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &stagingService{deps: deps, ttl: ttl, sessions: make(map[string]*staging.Session)}
}

func (s *stagingService) Open(ctx context.Context, in OpenSessionInput) (*staging.View, error) {
	if _, err := model.ParseModule(in.Module.String()); err != nil {
		return nil, err
	}
	lenient := s.deps.Config.AllowDeleteWithoutReplacement
	if in.AllowDeleteWithoutReplacement != nil {
		lenient = *in.AllowDeleteWithoutReplacement
	}

	sess := staging.Open(ctx, staging.SessionConfig{
		ID:                            uuid.NewString(),
		Module:                        in.Module,
		EntityID:                      in.EntityID,
		MaxUploadMB:                   in.MaxUploadMB,
		DefaultMaxUploadMB:            s.deps.Config.DefaultMaxUploadMB,
		AllowDeleteWithoutReplacement: lenient,
		ExtensionAliases:              s.deps.Config.ExtensionAliases,
		Permissions:                   staging.PermissionsForRole(in.Role),
		API:                           s.deps.API,
		Blobs:                         s.deps.Spool,
		Recorder:                      s.deps.Recorder,
	})

	s.mu.Lock()
	s.sessions[sess.ID()] = sess
	n := len(s.sessions)
	s.mu.Unlock()
	s.reportOpen(n)

	log := logger.Get()
	log.Info().
		Str("session_id", sess.ID()).
		Str("module", in.Module.String()).
		Str("entity_id", in.EntityID).
		Msg("session_opened")

	v := sess.View()
	return &v, nil
}

func (s *stagingService) session(id string) (*staging.Session, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// withSession runs fn against the session and returns its fresh view.
func (s *stagingService) withSession(id string, fn func(*staging.Session) error) (*staging.View, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	if err := fn(sess); err != nil {
		return nil, err
	}
	v := sess.View()
	return &v, nil
}

func (s *stagingService) View(_ context.Context, id string) (*staging.View, error) {
	return s.withSession(id, func(*staging.Session) error { return nil })
}

func (s *stagingService) Close(ctx context.Context, id string) error {
	if id == "" {
		return ErrIDRequired
	}
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	n := len(s.sessions)
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	s.reportOpen(n)
	sess.Reset(ctx)
	return nil
}

func (s *stagingService) spool(ctx context.Context, id string, f FileUpload) (model.FileHandle, error) {
	if f.Reader == nil {
		return model.FileHandle{}, ErrReaderNil
	}
	h, err := s.deps.Spool.Stage(ctx, id, f.Filename, f.ContentType, f.Size, f.Reader)
	if err != nil {
		return model.FileHandle{}, fmt.Errorf("spool upload: %w", err)
	}
	return h, nil
}

func (s *stagingService) StageFile(ctx context.Context, id, documentTypeID string, f FileUpload) (*staging.View, error) {
	return s.withSession(id, func(sess *staging.Session) error {
		h, err := s.spool(ctx, id, f)
		if err != nil {
			return err
		}
		return sess.StageFile(ctx, documentTypeID, h)
	})
}

func (s *stagingService) UnstageFile(ctx context.Context, id, documentTypeID string, index int) (*staging.View, error) {
	return s.withSession(id, func(sess *staging.Session) error {
		sess.UnstageFile(ctx, documentTypeID, index)
		return nil
	})
}

func (s *stagingService) Replace(ctx context.Context, id, documentID string, mode ReplaceMode, f FileUpload) (*staging.View, error) {
	if mode != ReplaceDelete && mode != ReplaceArchive {
		return nil, ErrInvalidReplaceMode
	}
	return s.withSession(id, func(sess *staging.Session) error {
		h, err := s.spool(ctx, id, f)
		if err != nil {
			return err
		}
		if mode == ReplaceArchive {
			return sess.ArchiveAndReplace(ctx, documentID, &h)
		}
		return sess.ReplaceExisting(ctx, documentID, &h)
	})
}

func (s *stagingService) MarkDelete(_ context.Context, id, documentID string) (*staging.View, error) {
	return s.withSession(id, func(sess *staging.Session) error { return sess.MarkDelete(documentID) })
}

func (s *stagingService) UndoDelete(_ context.Context, id, documentID string) (*staging.View, error) {
	return s.withSession(id, func(sess *staging.Session) error {
		sess.UndoDelete(documentID)
		return nil
	})
}

func (s *stagingService) MarkArchive(_ context.Context, id, documentID string) (*staging.View, error) {
	return s.withSession(id, func(sess *staging.Session) error { return sess.MarkArchive(documentID) })
}

func (s *stagingService) UndoArchive(_ context.Context, id, documentID string) (*staging.View, error) {
	return s.withSession(id, func(sess *staging.Session) error {
		sess.UndoArchive(documentID)
		return nil
	})
}

func (s *stagingService) Commit(ctx context.Context, id, entityID string) (*staging.CommitResult, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	res := sess.Commit(ctx, entityID)
	if res.Skipped {
		return res, nil
	}

	log := logger.Get()
	if s.deps.Reports != nil {
		rep := res.Report()
		if _, err := s.deps.Reports.Create(ctx, &rep); err != nil {
			log.Error().Err(err).Str("session_id", id).Msg("commit_report_save_failed")
		}
	}
	if err := s.deps.Events.PublishCommit(ctx, events.NewCommitEvent(res)); err != nil {
		log.Error().Err(err).Str("session_id", id).Msg("commit_event_publish_failed")
	}
	return res, nil
}

func (s *stagingService) Reset(ctx context.Context, id string) (*staging.View, error) {
	return s.withSession(id, func(sess *staging.Session) error {
		sess.Reset(ctx)
		return nil
	})
}

func (s *stagingService) ListReports(ctx context.Context, f repository.ReportFilter) (*ReportListResult, error) {
	if s.deps.Reports == nil {
		return &ReportListResult{Items: []model.CommitReport{}}, nil
	}
	if f.Limit <= 0 {
		f.Limit = 10
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	res, err := s.deps.Reports.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return &ReportListResult{Items: res.Items, Total: res.Total}, nil
}

func (s *stagingService) GetReport(ctx context.Context, id string) (*model.CommitReport, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	if s.deps.Reports == nil {
		return nil, ErrReportNotFound
	}
	rep, err := s.deps.Reports.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}
	return rep, nil
}

func (s *stagingService) Sweep(ctx context.Context) int {
	cutoff := s.deps.Now().Add(-s.ttl)

	s.mu.RLock()
	open := make(map[string]*staging.Session, len(s.sessions))
	for id, sess := range s.sessions {
		open[id] = sess
	}
	s.mu.RUnlock()

	var expired []*staging.Session
	for id, sess := range open {
		if !sess.LastUsed().Before(cutoff) {
			continue
		}
		s.mu.Lock()
		if s.sessions[id] == sess {
			delete(s.sessions, id)
			expired = append(expired, sess)
		}
		s.mu.Unlock()
	}
	if len(expired) == 0 {
		return 0
	}

	s.mu.RLock()
	n := len(s.sessions)
	s.mu.RUnlock()
	s.reportOpen(n)

	log := logger.Get()
	for _, sess := range expired {
		sess.Reset(ctx)
		log.Info().Str("session_id", sess.ID()).Msg("session_expired")
	}
	return len(expired)
}

func (s *stagingService) Run(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

func (s *stagingService) reportOpen(n int) {
	if s.deps.Gauge != nil {
		s.deps.Gauge.SetSessionsOpen(n)
	}
}
