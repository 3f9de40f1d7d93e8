package handler

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"fleetdocs/internal/http/middleware"
	"fleetdocs/internal/model"
	"fleetdocs/internal/repository"
	"fleetdocs/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var (
	errInvalidLimit  = errors.New("invalid limit")
	errInvalidOffset = errors.New("invalid offset")
)

// pageParams parses limit and offset, defaulting to 10 and 0.
func pageParams(c *fiber.Ctx) (limit, offset int, err error) {
	if limit, err = strconv.Atoi(c.Query("limit", "10")); err != nil {
		return 0, 0, errInvalidLimit
	}
	if offset, err = strconv.Atoi(c.Query("offset", "0")); err != nil {
		return 0, 0, errInvalidOffset
	}
	return limit, offset, nil
}

// ListArchives lists archived documents of a module, optionally for one entity.
// @Summary List archived documents
// @Tags archives
// @Produce json
// @Param module query string true "driver or vehicle"
// @Param entity_id query string false "entity id"
// @Param limit query int false "page size" default(10)
// @Param offset query int false "offset" default(0)
// @Success 200 {object} model.Page[model.ArchivedDocumentRecord]
// @Router /archives [get]
func ListArchives(svc service.ArchiveService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		module, err := model.ParseModule(c.Query("module"))
		if err != nil {
			return writeServiceError(c, err)
		}
		limit, offset, err := pageParams(c)
		if err != nil {
			return writeServiceError(c, err)
		}

		page, err := svc.List(c.UserContext(), service.ArchiveQuery{
			Module:   module,
			EntityID: c.Query("entity_id"),
			Limit:    limit,
			Offset:   offset,
		})
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(page)
	}
}

// ExportArchives streams archived documents as an XLSX workbook.
// @Summary Export archived documents
// @Tags archives
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param module query string true "driver or vehicle"
// @Param entity_id query string false "entity id"
// @Success 200 {file} file
// @Router /archives/export [get]
func ExportArchives(svc service.ArchiveService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		module, err := model.ParseModule(c.Query("module"))
		if err != nil {
			return writeServiceError(c, err)
		}
		var buf bytes.Buffer
		if err := svc.Export(c.UserContext(), module, c.Query("entity_id"), &buf); err != nil {
			return writeServiceError(c, err)
		}
		c.Set(fiber.HeaderContentType, xlsxContentType)
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="archived-%s.xlsx"`, module))
		return c.Send(buf.Bytes())
	}
}

// RestoreArchive returns an archived document to the active set.
// @Summary Restore an archived document
// @Tags archives
// @Param id path string true "archived document id"
// @Success 204
// @Failure 403 {object} errorPayload
// @Router /archives/{id}/restore [post]
func RestoreArchive(svc service.ArchiveService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.Restore(c.UserContext(), c.Params("id"), middleware.Role(c)); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// DocumentContent returns the preview payload of an active document.
// @Summary Preview a document
// @Tags documents
// @Produce json
// @Param id path string true "document id"
// @Success 200 {object} model.FileContent
// @Failure 404 {object} errorPayload
// @Router /documents/{id}/content [get]
func DocumentContent(svc service.ArchiveService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		content, err := svc.DocumentContent(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(content)
	}
}

// ArchivedContent returns the preview payload of an archived document.
// @Summary Preview an archived document
// @Tags archives
// @Produce json
// @Param id path string true "archived document id"
// @Success 200 {object} model.FileContent
// @Failure 404 {object} errorPayload
// @Router /archives/{id}/content [get]
func ArchivedContent(svc service.ArchiveService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		content, err := svc.ArchivedContent(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(content)
	}
}

// ListCommits lists commit reports, newest first.
// @Summary List commit reports
// @Tags commits
// @Produce json
// @Param module query string false "driver or vehicle"
// @Param entity_id query string false "entity id"
// @Param limit query int false "page size" default(10)
// @Param offset query int false "offset" default(0)
// @Success 200 {object} service.ReportListResult
// @Router /commits [get]
func ListCommits(svc service.StagingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var module model.Module
		if raw := c.Query("module"); raw != "" {
			m, err := model.ParseModule(raw)
			if err != nil {
				return writeServiceError(c, err)
			}
			module = m
		}
		limit, offset, err := pageParams(c)
		if err != nil {
			return writeServiceError(c, err)
		}

		res, err := svc.ListReports(c.UserContext(), repository.ReportFilter{
			PageQuery: repository.PageQuery{Limit: limit, Offset: offset},
			Module:    module,
			EntityID:  c.Query("entity_id"),
		})
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

// GetCommit returns one commit report with its items.
// @Summary Get a commit report
// @Tags commits
// @Produce json
// @Param id path string true "report id"
// @Success 200 {object} model.CommitReport
// @Failure 404 {object} errorPayload
// @Router /commits/{id} [get]
func GetCommit(svc service.StagingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rep, err := svc.GetReport(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(rep)
	}
}
