package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"fleetdocs/internal/http/middleware"
	"fleetdocs/internal/model"
	"fleetdocs/internal/repository"
	"fleetdocs/internal/service"
	serviceMocks "fleetdocs/internal/service/mocks"
	"fleetdocs/internal/staging"
)

func newArchiveApp(archive service.ArchiveService, stagingSvc service.StagingService, role string) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(middleware.RoleLocalKey, role)
		return c.Next()
	})
	RegisterRoutes(app, Deps{Staging: stagingSvc, Archive: archive})
	return app
}

func TestListArchives(t *testing.T) {
	mockSvc := new(serviceMocks.MockArchiveService)
	app := newArchiveApp(mockSvc, new(serviceMocks.MockStagingService), "user")

	t.Run("success", func(t *testing.T) {
		page := &model.Page[model.ArchivedDocumentRecord]{
			Items: []model.ArchivedDocumentRecord{{DocumentRecord: model.DocumentRecord{ID: "a-1", OriginalFilename: "old.pdf"}}},
			Total: 1,
		}
		mockSvc.On("List", mock.Anything, service.ArchiveQuery{
			Module: model.ModuleVehicle, EntityID: "veh-1", Limit: 5, Offset: 10,
		}).Return(page, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/archives?module=vehicle&entity_id=veh-1&limit=5&offset=10", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var got model.Page[model.ArchivedDocumentRecord]
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Equal(t, 1, got.Total)
		assert.Equal(t, "old.pdf", got.Items[0].OriginalFilename)
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid limit", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/archives?module=driver&limit=abc", nil))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_LIMIT", decodeError(t, resp).Error.Code)
	})

	t.Run("missing module", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/archives", nil))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_MODULE", decodeError(t, resp).Error.Code)
	})
}

func TestExportArchives(t *testing.T) {
	mockSvc := new(serviceMocks.MockArchiveService)
	app := newArchiveApp(mockSvc, new(serviceMocks.MockStagingService), "user")

	t.Run("success", func(t *testing.T) {
		mockSvc.On("Export", mock.Anything, model.ModuleDriver, "drv-1", mock.Anything).
			Return(func(w io.Writer) error {
				_, err := w.Write([]byte("PK-xlsx"))
				return err
			}).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/archives/export?module=driver&entity_id=drv-1", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, xlsxContentType, resp.Header.Get("Content-Type"))
		assert.Contains(t, resp.Header.Get("Content-Disposition"), "archived-driver.xlsx")
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "PK-xlsx", string(body))
		mockSvc.AssertExpectations(t)
	})

	t.Run("backend error", func(t *testing.T) {
		mockSvc.On("Export", mock.Anything, model.ModuleVehicle, "", mock.Anything).
			Return(errors.New("list archived: timeout")).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/archives/export?module=vehicle", nil))

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	})
}

func TestRestoreArchive(t *testing.T) {
	t.Run("admin", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockArchiveService)
		app := newArchiveApp(mockSvc, new(serviceMocks.MockStagingService), "admin")
		mockSvc.On("Restore", mock.Anything, "a-1", "admin").Return(nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/archives/a-1/restore", nil))

		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("forbidden", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockArchiveService)
		app := newArchiveApp(mockSvc, new(serviceMocks.MockStagingService), "user")
		mockSvc.On("Restore", mock.Anything, "a-1", "user").Return(staging.ErrForbidden).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/archives/a-1/restore", nil))

		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, "FORBIDDEN", decodeError(t, resp).Error.Code)
	})
}

func TestContentPreview(t *testing.T) {
	mockSvc := new(serviceMocks.MockArchiveService)
	app := newArchiveApp(mockSvc, new(serviceMocks.MockStagingService), "user")

	t.Run("document", func(t *testing.T) {
		mockSvc.On("DocumentContent", mock.Anything, "d-1").
			Return(&model.FileContent{Filename: "a.pdf", MimeType: "application/pdf", Content: "JVBERi0="}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/documents/d-1/content", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var got model.FileContent
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Equal(t, "a.pdf", got.Filename)
	})

	t.Run("archived not found", func(t *testing.T) {
		mockSvc.On("ArchivedContent", mock.Anything, "missing").Return(nil, service.ErrDocumentNotFound).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/archives/missing/content", nil))

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "DOCUMENT_NOT_FOUND", decodeError(t, resp).Error.Code)
	})

	mockSvc.AssertExpectations(t)
}

func TestCommitReports(t *testing.T) {
	mockSvc := new(serviceMocks.MockStagingService)
	app := newArchiveApp(new(serviceMocks.MockArchiveService), mockSvc, "user")

	t.Run("list", func(t *testing.T) {
		mockSvc.On("ListReports", mock.Anything, repository.ReportFilter{
			PageQuery: repository.PageQuery{Limit: 10, Offset: 0},
			Module:    model.ModuleDriver,
		}).Return(&service.ReportListResult{
			Items: []model.CommitReport{{ID: "r-1", Succeeded: 2, Failed: 1}},
			Total: 1,
		}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/commits?module=driver", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var got service.ReportListResult
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Equal(t, 1, got.Total)
		assert.Equal(t, 1, got.Items[0].Failed)
	})

	t.Run("invalid offset", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/commits?offset=x", nil))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_OFFSET", decodeError(t, resp).Error.Code)
	})

	t.Run("get", func(t *testing.T) {
		mockSvc.On("GetReport", mock.Anything, "r-1").Return(&model.CommitReport{ID: "r-1", Items: []model.CommitReportItem{{Kind: "upload"}}}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/commits/r-1", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var got model.CommitReport
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Len(t, got.Items, 1)
	})

	t.Run("get missing", func(t *testing.T) {
		mockSvc.On("GetReport", mock.Anything, "nope").Return(nil, service.ErrReportNotFound).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/commits/nope", nil))

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	mockSvc.AssertExpectations(t)
}
