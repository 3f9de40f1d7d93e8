package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"fleetdocs/internal/export"
	"fleetdocs/internal/model"
	"fleetdocs/internal/remote/remotetest"
	"fleetdocs/internal/staging"
)

func archivedFixture(t *testing.T, n int) *remotetest.Fake {
	t.Helper()
	api := remotetest.New()
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("doc-%03d", i)
		api.AddDocument(model.DocumentRecord{
			ID:               id,
			Module:           model.ModuleVehicle,
			EntityID:         "veh-1",
			DocumentTypeID:   "registration",
			OriginalFilename: id + ".pdf",
		})
		require.NoError(t, api.Archive(context.Background(), id))
	}
	api.ResetCalls()
	return api
}

func TestArchiveService_List(t *testing.T) {
	ctx := context.Background()
	api := archivedFixture(t, 3)
	svc := NewArchiveService(api, api)

	page, err := svc.List(ctx, ArchiveQuery{Module: model.ModuleVehicle, EntityID: "veh-1", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Items, 2)

	page, err = svc.List(ctx, ArchiveQuery{Module: model.ModuleVehicle, Offset: -1})
	require.NoError(t, err)
	assert.Len(t, page.Items, 3)

	_, err = svc.List(ctx, ArchiveQuery{Module: "boat"})
	assert.ErrorIs(t, err, model.ErrInvalidModule)

	api.Failures["list:archived_page"] = errors.New("timeout")
	_, err = svc.List(ctx, ArchiveQuery{Module: model.ModuleVehicle})
	assert.ErrorContains(t, err, "list archived: timeout")
}

func TestArchiveService_ExportPagesThroughEverything(t *testing.T) {
	ctx := context.Background()
	api := archivedFixture(t, exportPageSize+5)
	svc := NewArchiveService(api, api)

	var buf bytes.Buffer
	require.NoError(t, svc.Export(ctx, model.ModuleVehicle, "veh-1", &buf))

	assert.Len(t, api.CallsWithPrefix("list:archived_page"), 2)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(export.ArchiveSheet)
	require.NoError(t, err)
	assert.Len(t, rows, exportPageSize+5+1)
}

func TestArchiveService_Restore(t *testing.T) {
	ctx := context.Background()
	api := archivedFixture(t, 1)
	svc := NewArchiveService(api, api)

	assert.ErrorIs(t, svc.Restore(ctx, "doc-000", "user"), staging.ErrForbidden)
	assert.Empty(t, api.CallsWithPrefix("restore:"))

	assert.ErrorIs(t, svc.Restore(ctx, "", "admin"), ErrIDRequired)

	require.NoError(t, svc.Restore(ctx, "doc-000", "admin"))
	docs, err := api.ListDocuments(ctx, model.ModuleVehicle, "veh-1")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "doc-000.pdf", docs[0].OriginalFilename)

	err = svc.Restore(ctx, "doc-000", "admin")
	assert.Error(t, err)
}

func TestArchiveService_Content(t *testing.T) {
	ctx := context.Background()
	api := archivedFixture(t, 1)
	api.AddDocument(model.DocumentRecord{ID: "live-1", Module: model.ModuleVehicle, EntityID: "veh-1", OriginalFilename: "live.pdf", MimeType: "application/pdf"})
	svc := NewArchiveService(api, api)

	c, err := svc.DocumentContent(ctx, "live-1")
	require.NoError(t, err)
	assert.Equal(t, "live.pdf", c.Filename)

	c, err = svc.ArchivedContent(ctx, "doc-000")
	require.NoError(t, err)
	assert.Equal(t, "doc-000.pdf", c.Filename)

	_, err = svc.DocumentContent(ctx, "nope")
	assert.ErrorIs(t, err, ErrDocumentNotFound)
	_, err = svc.ArchivedContent(ctx, "nope")
	assert.ErrorIs(t, err, ErrDocumentNotFound)
	_, err = svc.ArchivedContent(ctx, "")
	assert.ErrorIs(t, err, ErrIDRequired)
}
