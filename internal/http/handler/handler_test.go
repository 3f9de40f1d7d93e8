package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetdocs/internal/model"
	"fleetdocs/internal/remote"
	"fleetdocs/internal/service"
	serviceMocks "fleetdocs/internal/service/mocks"
	"fleetdocs/internal/staging"
)

func decodeError(t *testing.T, resp *http.Response) errorPayload {
	t.Helper()
	var body errorPayload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestHealthCheck(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	app := fiber.New()
	app.Get("/health", HealthCheck(Check{Name: "postgres", Ping: db.PingContext}))

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(nil)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

		body := decodeError(t, resp)
		assert.Equal(t, "SERVICE_UNAVAILABLE", body.Error.Code)
		assert.Equal(t, "postgres unavailable", body.Error.Message)
	})

	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestHealthCheck_NoDependencies(t *testing.T) {
	app := fiber.New()
	app.Get("/health", HealthCheck())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWriteServiceError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"extension", &staging.ValidationError{Filename: "a.exe", Message: "not allowed"}, 422, "INVALID_FILE"},
		{"wrapped extension", fmt.Errorf("stage: %w", staging.NewValidationError("a.exe", staging.ErrExtensionNotAllowed, "extension exe is not allowed")), 422, "EXTENSION_NOT_ALLOWED"},
		{"too large", staging.NewValidationError("big.pdf", staging.ErrFileTooLarge, "file exceeds 10 MB"), 422, "FILE_TOO_LARGE"},
		{"session", service.ErrSessionNotFound, 404, "SESSION_NOT_FOUND"},
		{"report", service.ErrReportNotFound, 404, "NOT_FOUND"},
		{"document", staging.ErrDocumentNotFound, 404, "DOCUMENT_NOT_FOUND"},
		{"preview", service.ErrDocumentNotFound, 404, "DOCUMENT_NOT_FOUND"},
		{"type", staging.ErrUnknownDocumentType, 422, "UNKNOWN_DOCUMENT_TYPE"},
		{"forbidden", staging.ErrForbidden, 403, "FORBIDDEN"},
		{"module", model.ErrInvalidModule, 400, "INVALID_MODULE"},
		{"mode", service.ErrInvalidReplaceMode, 400, "INVALID_MODE"},
		{"reader", service.ErrReaderNil, 400, "FILE_REQUIRED"},
		{"id", service.ErrIDRequired, 400, "ID_REQUIRED"},
		{"rejected", fmt.Errorf("restore x: %w", remote.ErrRejected), 502, "REMOTE_REJECTED"},
		{"breaker", gobreaker.ErrOpenState, 503, "SERVICE_UNAVAILABLE"},
		{"unknown", errors.New("boom"), 500, "INTERNAL_ERROR"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error { return writeServiceError(c, tc.err) })

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)
			assert.Equal(t, tc.code, decodeError(t, resp).Error.Code)
		})
	}
}

func TestRouting(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(),
	})

	reg := prometheus.NewRegistry()
	RegisterRoutes(app, Deps{
		Staging: new(serviceMocks.MockStagingService),
		Archive: new(serviceMocks.MockArchiveService),
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})

	t.Run("not found route", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/non-existent", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Error.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		assert.Equal(t, "METHOD_NOT_ALLOWED", decodeError(t, resp).Error.Code)
	})

	t.Run("metrics", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestRouting_AuthGuardsAPI(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(),
	})

	RegisterRoutes(app, Deps{
		Staging: new(serviceMocks.MockStagingService),
		Archive: new(serviceMocks.MockArchiveService),
		Auth: func(c *fiber.Ctx) error {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		},
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/commits", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", decodeError(t, resp).Error.Code)
}
