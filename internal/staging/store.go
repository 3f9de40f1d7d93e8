package staging

import (
	"fleetdocs/internal/model"
)

// Options configures a Store.
type Options struct {
	MaxUploadMB      int
	ExtensionAliases map[string]string
	Permissions      Permissions
}

// Store holds deferred user intent for one entity's documents: files to
// upload, documents to delete and documents to archive. It never talks to
// the remote API. Store is not safe for concurrent use; Session guards it.
type Store struct {
	maxUploadMB int
	aliases     map[string]string
	perms       Permissions

	uploads   map[string][]model.FileHandle
	typeOrder []string

	pendingDelete  orderedSet
	pendingArchive orderedSet
}

func NewStore(opts Options) *Store {
	maxMB := opts.MaxUploadMB
	if maxMB <= 0 {
		maxMB = DefaultMaxUploadMB
	}
	return &Store{
		maxUploadMB: maxMB,
		aliases:     opts.ExtensionAliases,
		perms:       opts.Permissions,
		uploads:     make(map[string][]model.FileHandle),
	}
}

func (s *Store) MaxUploadMB() int { return s.maxUploadMB }

func (s *Store) Permissions() Permissions { return s.perms }

// StageFile validates f against the assignment and appends it to the staged
// list for the assignment's document type. A rejected file changes nothing.
func (s *Store) StageFile(a model.DocumentTypeAssignment, f model.FileHandle) error {
	if err := validateFile(a, f, s.maxUploadMB, s.aliases); err != nil {
		return err
	}
	s.appendUpload(a.DocumentTypeID, f)
	return nil
}

func (s *Store) appendUpload(typeID string, f model.FileHandle) {
	if _, ok := s.uploads[typeID]; !ok {
		s.typeOrder = append(s.typeOrder, typeID)
	}
	s.uploads[typeID] = append(s.uploads[typeID], f)
}

// UnstageFile removes the staged file at index for a document type.
// Out of range indexes are a no-op.
func (s *Store) UnstageFile(typeID string, index int) (model.FileHandle, bool) {
	files := s.uploads[typeID]
	if index < 0 || index >= len(files) {
		return model.FileHandle{}, false
	}
	removed := files[index]
	files = append(files[:index:index], files[index+1:]...)
	if len(files) == 0 {
		s.dropType(typeID)
	} else {
		s.uploads[typeID] = files
	}
	return removed, true
}

func (s *Store) dropType(typeID string) {
	delete(s.uploads, typeID)
	for i, id := range s.typeOrder {
		if id == typeID {
			s.typeOrder = append(s.typeOrder[:i:i], s.typeOrder[i+1:]...)
			return
		}
	}
}

// MarkDelete adds docID to the pending-delete set and evicts it from the
// pending-archive set.
func (s *Store) MarkDelete(docID string) error {
	if !s.perms.CanDelete {
		return ErrForbidden
	}
	s.pendingArchive.remove(docID)
	s.pendingDelete.add(docID)
	return nil
}

func (s *Store) UndoDelete(docID string) {
	s.pendingDelete.remove(docID)
}

// MarkArchive adds docID to the pending-archive set and evicts it from the
// pending-delete set.
func (s *Store) MarkArchive(docID string) error {
	if !s.perms.CanArchive {
		return ErrForbidden
	}
	s.pendingDelete.remove(docID)
	s.pendingArchive.add(docID)
	return nil
}

func (s *Store) UndoArchive(docID string) {
	s.pendingArchive.remove(docID)
}

// ReplaceExisting stages f and marks docID for deletion. Either both steps
// apply or neither does. A nil file is a no-op.
func (s *Store) ReplaceExisting(a model.DocumentTypeAssignment, docID string, f *model.FileHandle) error {
	return s.replace(a, docID, f, s.MarkDelete)
}

// ArchiveAndReplace stages f and marks docID for archiving. Either both
// steps apply or neither does. A nil file is a no-op.
func (s *Store) ArchiveAndReplace(a model.DocumentTypeAssignment, docID string, f *model.FileHandle) error {
	return s.replace(a, docID, f, s.MarkArchive)
}

func (s *Store) replace(a model.DocumentTypeAssignment, docID string, f *model.FileHandle, mark func(string) error) error {
	if f == nil {
		return nil
	}
	if err := s.StageFile(a, *f); err != nil {
		return err
	}
	if err := mark(docID); err != nil {
		s.UnstageFile(a.DocumentTypeID, len(s.uploads[a.DocumentTypeID])-1)
		return err
	}
	return nil
}

// Dirty reports whether there is anything to commit.
func (s *Store) Dirty() bool {
	return s.pendingDelete.len() > 0 || s.pendingArchive.len() > 0 || len(s.typeOrder) > 0
}

// Reset clears all staged state and returns the handles that were staged
// so their spooled content can be discarded.
func (s *Store) Reset() []model.FileHandle {
	var dropped []model.FileHandle
	for _, typeID := range s.typeOrder {
		dropped = append(dropped, s.uploads[typeID]...)
	}
	s.uploads = make(map[string][]model.FileHandle)
	s.typeOrder = nil
	s.pendingDelete = orderedSet{}
	s.pendingArchive = orderedSet{}
	return dropped
}

// Snapshot is an immutable copy of staged state.
type Snapshot struct {
	Uploads        []model.StagedUpload `json:"staged"`
	PendingDelete  []string             `json:"pending_delete"`
	PendingArchive []string             `json:"pending_archive"`
}

func (s *Store) Snapshot() Snapshot {
	snap := Snapshot{
		Uploads:        []model.StagedUpload{},
		PendingDelete:  s.pendingDelete.values(),
		PendingArchive: s.pendingArchive.values(),
	}
	for _, typeID := range s.typeOrder {
		for _, f := range s.uploads[typeID] {
			snap.Uploads = append(snap.Uploads, model.StagedUpload{DocumentTypeID: typeID, File: f})
		}
	}
	return snap
}

// Empty reports whether the snapshot carries no staged intent.
func (s Snapshot) Empty() bool {
	return len(s.Uploads) == 0 && len(s.PendingDelete) == 0 && len(s.PendingArchive) == 0
}

// orderedSet keeps insertion order so commit phases are deterministic.
type orderedSet struct {
	items []string
}

func (o *orderedSet) has(id string) bool {
	for _, v := range o.items {
		if v == id {
			return true
		}
	}
	return false
}

func (o *orderedSet) add(id string) {
	if !o.has(id) {
		o.items = append(o.items, id)
	}
}

func (o *orderedSet) remove(id string) {
	for i, v := range o.items {
		if v == id {
			o.items = append(o.items[:i:i], o.items[i+1:]...)
			return
		}
	}
}

func (o *orderedSet) len() int { return len(o.items) }

func (o *orderedSet) values() []string {
	return append([]string{}, o.items...)
}
