package staging

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"fleetdocs/internal/logger"
	"fleetdocs/internal/model"
	"fleetdocs/internal/remote"
)

// Blobs gives the commit access to spooled file content.
type Blobs interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Discard(ctx context.Context, key string) error
}

// Recorder observes commit outcomes. A nil Recorder is allowed.
type Recorder interface {
	ObserveOperation(kind OperationKind, err error)
	ObserveCommit(res *CommitResult)
}

type assignmentInvalidator interface {
	InvalidateAssignments(ctx context.Context, module model.Module) error
}

// SessionConfig configures a new Session.
type SessionConfig struct {
	ID       string
	Module   model.Module
	EntityID string

	// MaxUploadMB overrides the backend and configured limits when positive.
	MaxUploadMB        int
	DefaultMaxUploadMB int
	// AllowDeleteWithoutReplacement opts into lenient validity.
	AllowDeleteWithoutReplacement bool
	ExtensionAliases              map[string]string
	Permissions                   Permissions

	API      remote.DocumentAPI
	Blobs    Blobs
	Recorder Recorder
	Logger   *zerolog.Logger
}

// Session is the staging state of one form: the last fetched read state of
// an entity's documents plus the Store of deferred intent. All methods are
// safe for concurrent use; a commit holds the session lock throughout.
type Session struct {
	id      string
	module  model.Module
	lenient bool

	api      remote.DocumentAPI
	blobs    Blobs
	recorder Recorder
	log      zerolog.Logger

	mu          sync.Mutex
	entityID    string
	store       *Store
	assignments []model.DocumentTypeAssignment
	documents   []model.DocumentRecord
	archived    []model.ArchivedDocumentRecord
	warnings    []string
	lastUsed    time.Time
}

// Open resolves the upload limit, builds the store and loads read state.
// Read failures are soft: the session opens with empty data and warnings.
func Open(ctx context.Context, cfg SessionConfig) *Session {
	log := logger.Get()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}
	s := &Session{
		id:       cfg.ID,
		module:   cfg.Module,
		lenient:  cfg.AllowDeleteWithoutReplacement,
		api:      cfg.API,
		blobs:    cfg.Blobs,
		recorder: cfg.Recorder,
		log:      log.With().Str("session_id", cfg.ID).Str("module", cfg.Module.String()).Logger(),
		entityID: cfg.EntityID,
		lastUsed: time.Now(),
	}
	s.store = NewStore(Options{
		MaxUploadMB:      ResolveMaxUploadMB(ctx, cfg.MaxUploadMB, cfg.API, cfg.DefaultMaxUploadMB),
		ExtensionAliases: cfg.ExtensionAliases,
		Permissions:      cfg.Permissions,
	})
	s.refreshLocked(ctx, false)
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) Module() model.Module { return s.module }

func (s *Session) EntityID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entityID
}

// LastUsed is the time of the last call that touched the session.
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

func (s *Session) touch() { s.lastUsed = time.Now() }

// StageFile stages a spooled file for a document type. On rejection the
// spooled content is discarded and staged state is unchanged.
func (s *Session) StageFile(ctx context.Context, typeID string, f model.FileHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	a, ok := s.assignmentLocked(typeID)
	if !ok {
		s.discard(ctx, f)
		return fmt.Errorf("stage %s: %w", typeID, ErrUnknownDocumentType)
	}
	if err := s.store.StageFile(a, f); err != nil {
		s.discard(ctx, f)
		return err
	}
	return nil
}

// UnstageFile removes a staged file by position. It reports whether
// anything was removed.
func (s *Session) UnstageFile(ctx context.Context, typeID string, index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	f, ok := s.store.UnstageFile(typeID, index)
	if ok {
		s.discard(ctx, f)
	}
	return ok
}

func (s *Session) MarkDelete(docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if _, ok := s.documentLocked(docID); !ok {
		return fmt.Errorf("mark delete %s: %w", docID, ErrDocumentNotFound)
	}
	return s.store.MarkDelete(docID)
}

func (s *Session) UndoDelete(docID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.store.UndoDelete(docID)
}

func (s *Session) MarkArchive(docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if _, ok := s.documentLocked(docID); !ok {
		return fmt.Errorf("mark archive %s: %w", docID, ErrDocumentNotFound)
	}
	return s.store.MarkArchive(docID)
}

func (s *Session) UndoArchive(docID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.store.UndoArchive(docID)
}

// ReplaceExisting stages f under the document's type and marks the
// document for deletion.
func (s *Session) ReplaceExisting(ctx context.Context, docID string, f *model.FileHandle) error {
	return s.replace(ctx, docID, f, (*Store).ReplaceExisting)
}

// ArchiveAndReplace stages f under the document's type and marks the
// document for archiving.
func (s *Session) ArchiveAndReplace(ctx context.Context, docID string, f *model.FileHandle) error {
	return s.replace(ctx, docID, f, (*Store).ArchiveAndReplace)
}

func (s *Session) replace(ctx context.Context, docID string, f *model.FileHandle,
	op func(*Store, model.DocumentTypeAssignment, string, *model.FileHandle) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if f == nil {
		return nil
	}
	doc, ok := s.documentLocked(docID)
	if !ok {
		s.discard(ctx, *f)
		return fmt.Errorf("replace %s: %w", docID, ErrDocumentNotFound)
	}
	a, ok := s.assignmentLocked(doc.DocumentTypeID)
	if !ok {
		s.discard(ctx, *f)
		return fmt.Errorf("replace %s: %w", docID, ErrUnknownDocumentType)
	}
	if err := op(s.store, a, docID, f); err != nil {
		s.discard(ctx, *f)
		return err
	}
	return nil
}

func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Dirty()
}

// Validity projects the current state. It is never cached.
func (s *Session) Validity() Validity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Project(s.assignments, s.documents, s.store.Snapshot(), s.lenient)
}

// Reset discards all staged intent without contacting the remote API.
func (s *Session) Reset(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	for _, f := range s.store.Reset() {
		s.discard(ctx, f)
	}
}

// Refresh reloads assignments, documents and archived documents. Cached
// assignments are dropped first so an explicit refresh always reaches the backend.
func (s *Session) Refresh(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.refreshLocked(ctx, true)
}

// View is the merged read model of a session.
type View struct {
	ID             string                         `json:"id"`
	Module         model.Module                   `json:"module"`
	EntityID       string                         `json:"entity_id,omitempty"`
	MaxUploadMB    int                            `json:"max_upload_mb"`
	Assignments    []model.DocumentTypeAssignment `json:"assignments"`
	Documents      []model.DocumentRecord         `json:"documents"`
	Archived       []model.ArchivedDocumentRecord `json:"archived"`
	Staged         []model.StagedUpload           `json:"staged"`
	PendingDelete  []string                       `json:"pending_delete"`
	PendingArchive []string                       `json:"pending_archive"`
	Validity       Validity                       `json:"validity"`
	Dirty          bool                           `json:"dirty"`
	CanDelete      bool                           `json:"can_delete"`
	CanArchive     bool                           `json:"can_archive"`
	Warnings       []string                       `json:"warnings,omitempty"`
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.store.Snapshot()
	perms := s.store.Permissions()
	return View{
		ID:             s.id,
		Module:         s.module,
		EntityID:       s.entityID,
		MaxUploadMB:    s.store.MaxUploadMB(),
		Assignments:    append([]model.DocumentTypeAssignment{}, s.assignments...),
		Documents:      append([]model.DocumentRecord{}, s.documents...),
		Archived:       append([]model.ArchivedDocumentRecord{}, s.archived...),
		Staged:         snap.Uploads,
		PendingDelete:  snap.PendingDelete,
		PendingArchive: snap.PendingArchive,
		Validity:       Project(s.assignments, s.documents, snap, s.lenient),
		Dirty:          s.store.Dirty(),
		CanDelete:      perms.CanDelete,
		CanArchive:     perms.CanArchive,
		Warnings:       append([]string(nil), s.warnings...),
	}
}

func (s *Session) assignmentLocked(typeID string) (model.DocumentTypeAssignment, bool) {
	for _, a := range s.assignments {
		if a.DocumentTypeID == typeID && a.Active {
			return a, true
		}
	}
	return model.DocumentTypeAssignment{}, false
}

func (s *Session) documentLocked(docID string) (model.DocumentRecord, bool) {
	for _, d := range s.documents {
		if d.ID == docID {
			return d, true
		}
	}
	return model.DocumentRecord{}, false
}

func (s *Session) discard(ctx context.Context, f model.FileHandle) {
	if s.blobs == nil || f.Key == "" {
		return
	}
	if err := s.blobs.Discard(ctx, f.Key); err != nil {
		s.log.Warn().Err(err).Str("key", f.Key).Msg("spool_discard_failed")
	}
}

// refreshLocked reloads the three read queries concurrently. A failed
// query keeps the previous data and adds a warning; it never returns an error.
func (s *Session) refreshLocked(ctx context.Context, invalidate bool) {
	if inv, ok := s.api.(assignmentInvalidator); ok && invalidate {
		if err := inv.InvalidateAssignments(ctx, s.module); err != nil {
			s.log.Warn().Err(err).Msg("assignment_cache_invalidate_failed")
		}
	}

	var (
		g           errgroup.Group
		wmu         sync.Mutex
		warnings    []string
		assignments = s.assignments
		documents   = s.documents
		archived    = s.archived
	)
	warn := func(what string, err error) {
		s.log.Warn().Err(err).Str("query", what).Msg("refresh_failed")
		wmu.Lock()
		warnings = append(warnings, what+" could not be loaded")
		wmu.Unlock()
	}

	g.Go(func() error {
		a, err := s.api.ListAssignments(ctx, s.module)
		if err != nil {
			warn("assignments", err)
			return nil
		}
		assignments = a
		return nil
	})

	entityID := s.entityID
	if entityID != "" {
		g.Go(func() error {
			d, err := s.api.ListDocuments(ctx, s.module, entityID)
			if err != nil {
				warn("documents", err)
				return nil
			}
			documents = d
			return nil
		})
		g.Go(func() error {
			a, err := s.api.ListArchived(ctx, s.module, entityID)
			if err != nil {
				warn("archived documents", err)
				return nil
			}
			archived = a
			return nil
		})
	}
	_ = g.Wait()
	sort.Strings(warnings)

	s.assignments = assignments
	s.documents = documents
	s.archived = archived
	s.warnings = warnings
}
