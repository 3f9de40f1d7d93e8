package staging

import (
	"errors"
	"testing"

	"fleetdocs/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func licenseAssignment() model.DocumentTypeAssignment {
	return model.DocumentTypeAssignment{
		ID:             "as-license",
		DocumentTypeID: "license",
		Module:         model.ModuleDriver,
		Mandatory:      true,
		Active:         true,
		DocumentType: model.DocumentType{
			ID:                "license",
			Name:              "License",
			AllowedExtensions: []string{"pdf", ".JPG"},
			Active:            true,
		},
	}
}

func file(name string, size int64) model.FileHandle {
	return model.FileHandle{Name: name, ContentType: "application/pdf", Size: size, Key: "staging/s/" + name}
}

func newTestStore() *Store {
	return NewStore(Options{MaxUploadMB: 1, Permissions: FullAccess})
}

func TestStore_StageFile(t *testing.T) {
	tests := []struct {
		name    string
		file    model.FileHandle
		aliases map[string]string
		allowed []string
		wantErr error
	}{
		{name: "allowed extension", file: file("scan.pdf", 100)},
		{name: "extension is case insensitive", file: file("SCAN.PDF", 100)},
		{name: "allowed list entry with leading dot", file: file("photo.jpg", 100)},
		{name: "alias maps to allowed extension", file: file("photo.jpeg", 100), aliases: map[string]string{"jpeg": "jpg"}},
		{name: "aliased extension listed verbatim", file: file("scan.jpeg", 100),
			aliases: map[string]string{"jpeg": "jpg"}, allowed: []string{"jpeg", "png"}},
		{name: "alias target matches aliased allowed entry", file: file("scan.jpg", 100),
			aliases: map[string]string{"jpeg": "jpg"}, allowed: []string{"JPEG"}},
		{name: "alias does not widen unrelated list", file: file("scan.jpeg", 100),
			aliases: map[string]string{"jpeg": "jpg"}, allowed: []string{"pdf"}, wantErr: ErrExtensionNotAllowed},
		{name: "disallowed extension", file: file("notes.docx", 100), wantErr: ErrExtensionNotAllowed},
		{name: "no extension", file: file("README", 100), wantErr: ErrExtensionNotAllowed},
		{name: "exactly at the limit", file: file("big.pdf", 1024*1024)},
		{name: "over the limit", file: file("big.pdf", 1024*1024+1), wantErr: ErrFileTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := licenseAssignment()
			if tt.allowed != nil {
				a.DocumentType.AllowedExtensions = tt.allowed
			}
			s := NewStore(Options{MaxUploadMB: 1, ExtensionAliases: tt.aliases, Permissions: FullAccess})
			err := s.StageFile(a, tt.file)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr))
				var verr *ValidationError
				require.True(t, errors.As(err, &verr))
				assert.Equal(t, tt.file.Name, verr.Filename)
				assert.NotEmpty(t, verr.Message)
				assert.Empty(t, s.Snapshot().Uploads)
				assert.False(t, s.Dirty())
				return
			}
			require.NoError(t, err)
			snap := s.Snapshot()
			require.Len(t, snap.Uploads, 1)
			assert.Equal(t, "license", snap.Uploads[0].DocumentTypeID)
			assert.Equal(t, tt.file, snap.Uploads[0].File)
		})
	}
}

func TestStore_StageFile_EmptyAllowedListAcceptsAnything(t *testing.T) {
	a := licenseAssignment()
	a.DocumentType.AllowedExtensions = nil
	s := newTestStore()

	require.NoError(t, s.StageFile(a, file("anything.xyz", 10)))
	assert.Len(t, s.Snapshot().Uploads, 1)
}

func TestStore_RejectedFileKeepsExistingState(t *testing.T) {
	s := newTestStore()
	require.NoError(t, s.StageFile(licenseAssignment(), file("a.pdf", 10)))
	require.NoError(t, s.MarkDelete("doc-1"))
	before := s.Snapshot()

	err := s.StageFile(licenseAssignment(), file("b.exe", 10))
	assert.ErrorIs(t, err, ErrExtensionNotAllowed)
	err = s.StageFile(licenseAssignment(), file("c.pdf", 5*1024*1024))
	assert.ErrorIs(t, err, ErrFileTooLarge)

	assert.Equal(t, before, s.Snapshot())
}

func TestStore_UnstageFile(t *testing.T) {
	s := newTestStore()
	a := licenseAssignment()
	require.NoError(t, s.StageFile(a, file("a.pdf", 1)))
	require.NoError(t, s.StageFile(a, file("b.pdf", 1)))
	require.NoError(t, s.StageFile(a, file("c.pdf", 1)))

	removed, ok := s.UnstageFile("license", 1)
	require.True(t, ok)
	assert.Equal(t, "b.pdf", removed.Name)

	snap := s.Snapshot()
	require.Len(t, snap.Uploads, 2)
	assert.Equal(t, "a.pdf", snap.Uploads[0].File.Name)
	assert.Equal(t, "c.pdf", snap.Uploads[1].File.Name)

	_, ok = s.UnstageFile("license", 5)
	assert.False(t, ok)
	_, ok = s.UnstageFile("license", -1)
	assert.False(t, ok)
	_, ok = s.UnstageFile("unknown", 0)
	assert.False(t, ok)
	assert.Len(t, s.Snapshot().Uploads, 2)

	_, _ = s.UnstageFile("license", 0)
	_, _ = s.UnstageFile("license", 0)
	assert.False(t, s.Dirty())
}

func TestStore_StagedUploadsGroupedByTypeInOrder(t *testing.T) {
	s := newTestStore()
	a := licenseAssignment()
	b := licenseAssignment()
	b.DocumentTypeID = "insurance"

	require.NoError(t, s.StageFile(b, file("i1.pdf", 1)))
	require.NoError(t, s.StageFile(a, file("l1.pdf", 1)))
	require.NoError(t, s.StageFile(b, file("i2.pdf", 1)))

	var names []string
	for _, up := range s.Snapshot().Uploads {
		names = append(names, up.File.Name)
	}
	assert.Equal(t, []string{"i1.pdf", "i2.pdf", "l1.pdf"}, names)
}

func TestStore_PendingSetsAreMutuallyExclusive(t *testing.T) {
	ops := map[string]func(s *Store){
		"delete":      func(s *Store) { _ = s.MarkDelete("doc-1") },
		"archive":     func(s *Store) { _ = s.MarkArchive("doc-1") },
		"undoDelete":  func(s *Store) { s.UndoDelete("doc-1") },
		"undoArchive": func(s *Store) { s.UndoArchive("doc-1") },
	}
	sequences := [][]string{
		{"delete", "archive"},
		{"archive", "delete"},
		{"delete", "archive", "delete"},
		{"archive", "archive", "delete", "undoDelete"},
		{"delete", "undoArchive", "archive", "undoDelete"},
		{"archive", "delete", "undoArchive", "archive"},
	}

	for _, seq := range sequences {
		s := newTestStore()
		for _, op := range seq {
			ops[op](s)
		}
		snap := s.Snapshot()
		inDelete := contains(snap.PendingDelete, "doc-1")
		inArchive := contains(snap.PendingArchive, "doc-1")
		assert.False(t, inDelete && inArchive, "sequence %v left doc-1 in both sets", seq)
		assert.LessOrEqual(t, len(snap.PendingDelete), 1)
		assert.LessOrEqual(t, len(snap.PendingArchive), 1)
	}

	s := newTestStore()
	require.NoError(t, s.MarkDelete("doc-1"))
	require.NoError(t, s.MarkArchive("doc-1"))
	assert.Equal(t, []string{"doc-1"}, s.Snapshot().PendingArchive)
	assert.Empty(t, s.Snapshot().PendingDelete)

	require.NoError(t, s.MarkDelete("doc-1"))
	assert.Equal(t, []string{"doc-1"}, s.Snapshot().PendingDelete)
	assert.Empty(t, s.Snapshot().PendingArchive)
}

func TestStore_Permissions(t *testing.T) {
	s := NewStore(Options{Permissions: PermissionsForRole("user")})

	assert.ErrorIs(t, s.MarkDelete("doc-1"), ErrForbidden)
	assert.NoError(t, s.MarkArchive("doc-1"))
	assert.Equal(t, DefaultMaxUploadMB, s.MaxUploadMB())

	none := NewStore(Options{})
	assert.ErrorIs(t, none.MarkArchive("doc-1"), ErrForbidden)
	assert.False(t, none.Dirty())
}

func TestPermissionsForRole(t *testing.T) {
	assert.Equal(t, FullAccess, PermissionsForRole("admin"))
	assert.Equal(t, FullAccess, PermissionsForRole(" ADMIN "))
	assert.Equal(t, Permissions{CanArchive: true}, PermissionsForRole("dispatcher"))
	assert.Equal(t, Permissions{CanArchive: true}, PermissionsForRole(""))
}

func TestStore_ReplaceExisting(t *testing.T) {
	s := newTestStore()
	f := file("new.pdf", 10)

	require.NoError(t, s.ReplaceExisting(licenseAssignment(), "doc-1", &f))

	snap := s.Snapshot()
	require.Len(t, snap.Uploads, 1)
	assert.Equal(t, []string{"doc-1"}, snap.PendingDelete)
	assert.Empty(t, snap.PendingArchive)
}

func TestStore_ArchiveAndReplace(t *testing.T) {
	s := newTestStore()
	require.NoError(t, s.MarkDelete("doc-1"))
	f := file("new.pdf", 10)

	require.NoError(t, s.ArchiveAndReplace(licenseAssignment(), "doc-1", &f))

	snap := s.Snapshot()
	require.Len(t, snap.Uploads, 1)
	assert.Equal(t, []string{"doc-1"}, snap.PendingArchive)
	assert.Empty(t, snap.PendingDelete)
}

func TestStore_ReplaceIsAtomic(t *testing.T) {
	t.Run("nil file is a no-op", func(t *testing.T) {
		s := newTestStore()
		require.NoError(t, s.ReplaceExisting(licenseAssignment(), "doc-1", nil))
		require.NoError(t, s.ArchiveAndReplace(licenseAssignment(), "doc-1", nil))
		assert.False(t, s.Dirty())
	})

	t.Run("invalid file marks nothing", func(t *testing.T) {
		s := newTestStore()
		f := file("bad.exe", 10)
		assert.ErrorIs(t, s.ReplaceExisting(licenseAssignment(), "doc-1", &f), ErrExtensionNotAllowed)
		assert.False(t, s.Dirty())
	})

	t.Run("forbidden mark rolls back the staged file", func(t *testing.T) {
		s := NewStore(Options{Permissions: Permissions{CanArchive: true}})
		a := licenseAssignment()
		require.NoError(t, s.StageFile(a, file("keep.pdf", 1)))
		f := file("new.pdf", 10)

		assert.ErrorIs(t, s.ReplaceExisting(a, "doc-1", &f), ErrForbidden)

		snap := s.Snapshot()
		require.Len(t, snap.Uploads, 1)
		assert.Equal(t, "keep.pdf", snap.Uploads[0].File.Name)
		assert.Empty(t, snap.PendingDelete)
	})
}

func TestStore_Dirty(t *testing.T) {
	s := newTestStore()
	assert.False(t, s.Dirty())

	require.NoError(t, s.MarkArchive("doc-1"))
	assert.True(t, s.Dirty())
	s.UndoArchive("doc-1")
	assert.False(t, s.Dirty())

	require.NoError(t, s.MarkDelete("doc-1"))
	assert.True(t, s.Dirty())
	s.UndoDelete("doc-1")
	assert.False(t, s.Dirty())

	require.NoError(t, s.StageFile(licenseAssignment(), file("a.pdf", 1)))
	assert.True(t, s.Dirty())
}

func TestStore_Reset(t *testing.T) {
	s := newTestStore()
	require.NoError(t, s.StageFile(licenseAssignment(), file("a.pdf", 1)))
	require.NoError(t, s.StageFile(licenseAssignment(), file("b.pdf", 1)))
	require.NoError(t, s.MarkDelete("doc-1"))
	require.NoError(t, s.MarkArchive("doc-2"))

	dropped := s.Reset()

	assert.Len(t, dropped, 2)
	snap := s.Snapshot()
	assert.True(t, snap.Empty())
	assert.Empty(t, snap.Uploads)
	assert.Empty(t, snap.PendingDelete)
	assert.Empty(t, snap.PendingArchive)
	assert.False(t, s.Dirty())

	assert.Empty(t, s.Reset())
}

func TestStore_SnapshotIsACopy(t *testing.T) {
	s := newTestStore()
	require.NoError(t, s.MarkDelete("doc-1"))
	snap := s.Snapshot()
	snap.PendingDelete[0] = "changed"

	assert.Equal(t, []string{"doc-1"}, s.Snapshot().PendingDelete)
}

func contains(items []string, want string) bool {
	for _, v := range items {
		if v == want {
			return true
		}
	}
	return false
}
