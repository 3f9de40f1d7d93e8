// Package remotetest provides an in-memory fleet backend for tests.
package remotetest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"fleetdocs/internal/model"
	"fleetdocs/internal/remote"
)

// Fake is an in-memory DocumentAPI and ContentAPI. Calls are recorded in
// order as "kind:arg" strings.
type Fake struct {
	mu          sync.Mutex
	assignments map[model.Module][]model.DocumentTypeAssignment
	active      map[string]model.DocumentRecord
	archived    map[string]model.ArchivedDocumentRecord
	contents    map[string]string
	sysConfig   map[string]string
	calls       []string

	// Failures keyed by "kind:arg" (e.g. "archive:doc-1", "upload:a.pdf", "list:documents").
	Failures map[string]error
}

var (
	_ remote.DocumentAPI = (*Fake)(nil)
	_ remote.ContentAPI  = (*Fake)(nil)
)

func New() *Fake {
	return &Fake{
		assignments: make(map[model.Module][]model.DocumentTypeAssignment),
		active:      make(map[string]model.DocumentRecord),
		archived:    make(map[string]model.ArchivedDocumentRecord),
		contents:    make(map[string]string),
		sysConfig:   make(map[string]string),
		Failures:    make(map[string]error),
	}
}

func (f *Fake) AddAssignment(a model.DocumentTypeAssignment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assignments[a.Module] = append(f.assignments[a.Module], a)
}

func (f *Fake) AddDocument(d model.DocumentRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active[d.ID] = d
}

func (f *Fake) SetSystemConfig(key, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sysConfig[key] = value
}

// Calls returns a copy of the recorded call log.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// CallsWithPrefix returns the recorded calls starting with prefix.
func (f *Fake) CallsWithPrefix(prefix string) []string {
	var out []string
	for _, c := range f.Calls() {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

func (f *Fake) ResetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

// UploadedContent returns the data URL sent for an uploaded document.
func (f *Fake) UploadedContent(documentID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.contents[documentID]
}

func (f *Fake) record(call string) error {
	f.calls = append(f.calls, call)
	return f.Failures[call]
}

func (f *Fake) ListAssignments(_ context.Context, module model.Module) ([]model.DocumentTypeAssignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("list:assignments"); err != nil {
		return nil, err
	}
	return append([]model.DocumentTypeAssignment(nil), f.assignments[module]...), nil
}

func (f *Fake) ListDocuments(_ context.Context, module model.Module, entityID string) ([]model.DocumentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("list:documents"); err != nil {
		return nil, err
	}
	var out []model.DocumentRecord
	for _, d := range f.active {
		if d.Module == module && d.EntityID == entityID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *Fake) ListArchived(_ context.Context, module model.Module, entityID string) ([]model.ArchivedDocumentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("list:archived"); err != nil {
		return nil, err
	}
	return f.archivedLocked(module, entityID), nil
}

func (f *Fake) ListArchivedPage(_ context.Context, q remote.ArchiveQuery) (*model.Page[model.ArchivedDocumentRecord], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("list:archived_page"); err != nil {
		return nil, err
	}
	all := f.archivedLocked(q.Module, q.EntityID)
	page := &model.Page[model.ArchivedDocumentRecord]{Total: len(all), Items: []model.ArchivedDocumentRecord{}}
	if q.Offset < len(all) {
		end := len(all)
		if q.Limit > 0 && q.Offset+q.Limit < end {
			end = q.Offset + q.Limit
		}
		page.Items = all[q.Offset:end]
	}
	return page, nil
}

func (f *Fake) archivedLocked(module model.Module, entityID string) []model.ArchivedDocumentRecord {
	out := []model.ArchivedDocumentRecord{}
	for _, d := range f.archived {
		if d.Module == module && (entityID == "" || d.EntityID == entityID) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *Fake) Upload(_ context.Context, in remote.UploadInput) (*model.DocumentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("upload:" + in.Filename); err != nil {
		return nil, err
	}
	ext := ""
	if i := strings.LastIndex(in.Filename, "."); i >= 0 {
		ext = strings.ToLower(in.Filename[i+1:])
	}
	doc := model.DocumentRecord{
		ID:               uuid.NewString(),
		Module:           in.Module,
		EntityID:         in.EntityID,
		DocumentTypeID:   in.DocumentTypeID,
		OriginalFilename: in.Filename,
		MimeType:         in.ContentType,
		FileExtension:    ext,
		Size:             int64(len(in.Content)),
		UploadedAt:       time.Now().UTC(),
	}
	for _, a := range f.assignments[in.Module] {
		if a.DocumentTypeID == in.DocumentTypeID {
			doc.DocumentType = a.DocumentType
		}
	}
	f.active[doc.ID] = doc
	f.contents[doc.ID] = in.Content
	return &doc, nil
}

func (f *Fake) Delete(_ context.Context, documentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("delete:" + documentID); err != nil {
		return err
	}
	if _, ok := f.active[documentID]; !ok {
		return fmt.Errorf("deleteDocument %s: %w", documentID, remote.ErrRejected)
	}
	delete(f.active, documentID)
	return nil
}

// Archive moves an active document to the archive, keeping its identifier.
func (f *Fake) Archive(_ context.Context, documentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("archive:" + documentID); err != nil {
		return err
	}
	doc, ok := f.active[documentID]
	if !ok {
		return fmt.Errorf("archiveDocument %s: %w", documentID, remote.ErrRejected)
	}
	delete(f.active, documentID)
	f.archived[documentID] = model.ArchivedDocumentRecord{
		DocumentRecord: doc,
		StoragePath:    fmt.Sprintf("archive/%s/%s/%s", doc.Module, doc.EntityID, doc.ID),
		ArchivedAt:     time.Now().UTC(),
		ArchivedBy:     "tester",
	}
	return nil
}

func (f *Fake) Restore(_ context.Context, archivedID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("restore:" + archivedID); err != nil {
		return err
	}
	doc, ok := f.archived[archivedID]
	if !ok {
		return fmt.Errorf("restoreArchivedDocument %s: %w", archivedID, remote.ErrRejected)
	}
	delete(f.archived, archivedID)
	f.active[archivedID] = doc.DocumentRecord
	return nil
}

func (f *Fake) SystemConfigValue(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("sysconfig:" + key); err != nil {
		return "", err
	}
	return f.sysConfig[key], nil
}

func (f *Fake) DocumentContent(_ context.Context, documentID string) (*model.FileContent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.active[documentID]
	if !ok {
		return nil, remote.ErrNotFound
	}
	return &model.FileContent{Filename: doc.OriginalFilename, MimeType: doc.MimeType, Content: f.contents[documentID]}, nil
}

func (f *Fake) ArchivedContent(_ context.Context, archivedID string) (*model.FileContent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.archived[archivedID]
	if !ok {
		return nil, remote.ErrNotFound
	}
	return &model.FileContent{Filename: doc.OriginalFilename, MimeType: doc.MimeType, Content: f.contents[archivedID]}, nil
}
