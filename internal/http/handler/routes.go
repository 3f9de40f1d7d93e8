package handler

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/swaggo/swag"

	"fleetdocs/internal/service"
)

// Deps are the collaborators of the HTTP routes. Auth guards every API
// route; Metrics serves /metrics when set.
type Deps struct {
	Staging service.StagingService
	Archive service.ArchiveService
	Checks  []Check
	Auth    fiber.Handler
	Metrics http.Handler
	Swagger *swag.Spec
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, d Deps) {
	app.Get("/health", HealthCheck(d.Checks...))
	app.Get("/healthz", LivenessProbe())
	if d.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(d.Metrics))
	}
	if d.Swagger != nil {
		app.Get("/swagger/*", swaggerUI(d.Swagger))
	}

	api := app.Group("")
	if d.Auth != nil {
		api = app.Group("", d.Auth)
	}

	sessions := api.Group("/sessions")
	sessions.Post("/", OpenSession(d.Staging))
	sessions.Get("/:id", GetSession(d.Staging))
	sessions.Delete("/:id", CloseSession(d.Staging))
	sessions.Post("/:id/uploads", StageUpload(d.Staging))
	sessions.Delete("/:id/uploads/:typeId/:index", UnstageUpload(d.Staging))
	sessions.Post("/:id/replacements", ReplaceDocument(d.Staging))
	sessions.Put("/:id/deletes/:docId", MarkDelete(d.Staging))
	sessions.Delete("/:id/deletes/:docId", UndoDelete(d.Staging))
	sessions.Put("/:id/archives/:docId", MarkArchive(d.Staging))
	sessions.Delete("/:id/archives/:docId", UndoArchive(d.Staging))
	sessions.Post("/:id/commit", CommitSession(d.Staging))
	sessions.Post("/:id/reset", ResetSession(d.Staging))

	api.Get("/archives", ListArchives(d.Archive))
	api.Get("/archives/export", ExportArchives(d.Archive))
	api.Post("/archives/:id/restore", RestoreArchive(d.Archive))
	api.Get("/archives/:id/content", ArchivedContent(d.Archive))
	api.Get("/documents/:id/content", DocumentContent(d.Archive))

	api.Get("/commits", ListCommits(d.Staging))
	api.Get("/commits/:id", GetCommit(d.Staging))
}

// swaggerUI serves Swagger UI with the host and scheme of the incoming request.
func swaggerUI(spec *swag.Spec) fiber.Handler {
	return func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		spec.Host = c.Get("Host")
		spec.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	}
}
