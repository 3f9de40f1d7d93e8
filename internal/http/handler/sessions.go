package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"fleetdocs/internal/http/middleware"
	"fleetdocs/internal/model"
	"fleetdocs/internal/service"
	"fleetdocs/internal/staging"
)

type openSessionRequest struct {
	Module                        string `json:"module"`
	EntityID                      string `json:"entity_id"`
	MaxUploadMB                   int    `json:"max_upload_mb"`
	AllowDeleteWithoutReplacement *bool  `json:"allow_delete_without_replacement"`
}

type commitRequest struct {
	EntityID string `json:"entity_id"`
}

// sessionID validates the :id path parameter.
func sessionID(c *fiber.Ctx) (string, bool) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

func invalidID(c *fiber.Ctx) error {
	return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
}

// withFormFile opens the multipart "file" field and passes it to fn.
func withFormFile(c *fiber.Ctx, fn func(service.FileUpload) error) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
	}

	f, err := fh.Open()
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
	}
	defer f.Close()

	ct := fh.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/octet-stream"
	}

	return fn(service.FileUpload{Reader: f, Filename: fh.Filename, ContentType: ct, Size: fh.Size})
}

// OpenSession starts a staging session for a module and optional entity.
// @Summary Open a staging session
// @Tags sessions
// @Accept json
// @Produce json
// @Param body body openSessionRequest true "session options"
// @Success 201 {object} staging.View
// @Failure 400 {object} errorPayload
// @Router /sessions [post]
func OpenSession(svc service.StagingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req openSessionRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		module, err := model.ParseModule(req.Module)
		if err != nil {
			return writeServiceError(c, err)
		}
		if req.MaxUploadMB < 0 {
			return writeError(c, fiber.StatusBadRequest, "INVALID_MAX_UPLOAD", "max_upload_mb must not be negative")
		}

		view, err := svc.Open(c.UserContext(), service.OpenSessionInput{
			Module:                        module,
			EntityID:                      req.EntityID,
			MaxUploadMB:                   req.MaxUploadMB,
			AllowDeleteWithoutReplacement: req.AllowDeleteWithoutReplacement,
			Role:                          middleware.Role(c),
		})
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(view)
	}
}

// GetSession returns the current view of a session.
// @Summary Get a staging session
// @Tags sessions
// @Produce json
// @Param id path string true "session id"
// @Success 200 {object} staging.View
// @Failure 404 {object} errorPayload
// @Router /sessions/{id} [get]
func GetSession(svc service.StagingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := sessionID(c)
		if !ok {
			return invalidID(c)
		}
		view, err := svc.View(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(view)
	}
}

// CloseSession discards a session and its staged files.
// @Summary Close a staging session
// @Tags sessions
// @Param id path string true "session id"
// @Success 204
// @Failure 404 {object} errorPayload
// @Router /sessions/{id} [delete]
func CloseSession(svc service.StagingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := sessionID(c)
		if !ok {
			return invalidID(c)
		}
		if err := svc.Close(c.UserContext(), id); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// StageUpload stages a file under a document type.
// @Summary Stage a file
// @Tags sessions
// @Accept mpfd
// @Produce json
// @Param id path string true "session id"
// @Param document_type_id formData string true "document type"
// @Param file formData file true "file"
// @Success 200 {object} staging.View
// @Failure 422 {object} errorPayload
// @Router /sessions/{id}/uploads [post]
func StageUpload(svc service.StagingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := sessionID(c)
		if !ok {
			return invalidID(c)
		}
		typeID := c.FormValue("document_type_id")
		if typeID == "" {
			return writeError(c, fiber.StatusBadRequest, "DOCUMENT_TYPE_REQUIRED", "document_type_id is required")
		}
		return withFormFile(c, func(f service.FileUpload) error {
			view, err := svc.StageFile(c.UserContext(), id, typeID, f)
			if err != nil {
				return writeServiceError(c, err)
			}
			return c.JSON(view)
		})
	}
}

// UnstageUpload removes the staged file at index for a document type.
// @Summary Unstage a file
// @Tags sessions
// @Produce json
// @Param id path string true "session id"
// @Param typeId path string true "document type id"
// @Param index path int true "position within the type"
// @Success 200 {object} staging.View
// @Router /sessions/{id}/uploads/{typeId}/{index} [delete]
func UnstageUpload(svc service.StagingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := sessionID(c)
		if !ok {
			return invalidID(c)
		}
		index, err := strconv.Atoi(c.Params("index"))
		if err != nil || index < 0 {
			return writeError(c, fiber.StatusBadRequest, "INVALID_INDEX", "invalid index")
		}
		view, err := svc.UnstageFile(c.UserContext(), id, c.Params("typeId"), index)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(view)
	}
}

// ReplaceDocument stages a file and marks an existing document for
// deletion or archival in one step.
// @Summary Replace an existing document
// @Tags sessions
// @Accept mpfd
// @Produce json
// @Param id path string true "session id"
// @Param document_id formData string true "document to replace"
// @Param mode formData string false "delete or archive" default(delete)
// @Param file formData file true "file"
// @Success 200 {object} staging.View
// @Router /sessions/{id}/replacements [post]
func ReplaceDocument(svc service.StagingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := sessionID(c)
		if !ok {
			return invalidID(c)
		}
		docID := c.FormValue("document_id")
		if docID == "" {
			return writeError(c, fiber.StatusBadRequest, "DOCUMENT_ID_REQUIRED", "document_id is required")
		}
		mode := service.ReplaceMode(c.FormValue("mode", string(service.ReplaceDelete)))
		if mode != service.ReplaceDelete && mode != service.ReplaceArchive {
			return writeServiceError(c, service.ErrInvalidReplaceMode)
		}
		return withFormFile(c, func(f service.FileUpload) error {
			view, err := svc.Replace(c.UserContext(), id, docID, mode, f)
			if err != nil {
				return writeServiceError(c, err)
			}
			return c.JSON(view)
		})
	}
}

// pendingHandler adapts one of the mark/undo service calls to a route
// with :id and :docId parameters.
func pendingHandler(call func(c *fiber.Ctx, id, docID string) (*staging.View, error)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := sessionID(c)
		if !ok {
			return invalidID(c)
		}
		view, err := call(c, id, c.Params("docId"))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(view)
	}
}

// MarkDelete marks an existing document for deletion on commit.
// @Summary Mark a document for deletion
// @Tags sessions
// @Produce json
// @Param id path string true "session id"
// @Param docId path string true "document id"
// @Success 200 {object} staging.View
// @Failure 403 {object} errorPayload
// @Router /sessions/{id}/deletes/{docId} [put]
func MarkDelete(svc service.StagingService) fiber.Handler {
	return pendingHandler(func(c *fiber.Ctx, id, docID string) (*staging.View, error) {
		return svc.MarkDelete(c.UserContext(), id, docID)
	})
}

// UndoDelete clears a pending deletion.
// @Summary Undo a pending deletion
// @Tags sessions
// @Produce json
// @Param id path string true "session id"
// @Param docId path string true "document id"
// @Success 200 {object} staging.View
// @Router /sessions/{id}/deletes/{docId} [delete]
func UndoDelete(svc service.StagingService) fiber.Handler {
	return pendingHandler(func(c *fiber.Ctx, id, docID string) (*staging.View, error) {
		return svc.UndoDelete(c.UserContext(), id, docID)
	})
}

// MarkArchive marks an existing document for archival on commit.
// @Summary Mark a document for archival
// @Tags sessions
// @Produce json
// @Param id path string true "session id"
// @Param docId path string true "document id"
// @Success 200 {object} staging.View
// @Router /sessions/{id}/archives/{docId} [put]
func MarkArchive(svc service.StagingService) fiber.Handler {
	return pendingHandler(func(c *fiber.Ctx, id, docID string) (*staging.View, error) {
		return svc.MarkArchive(c.UserContext(), id, docID)
	})
}

// UndoArchive clears a pending archival.
// @Summary Undo a pending archival
// @Tags sessions
// @Produce json
// @Param id path string true "session id"
// @Param docId path string true "document id"
// @Success 200 {object} staging.View
// @Router /sessions/{id}/archives/{docId} [delete]
func UndoArchive(svc service.StagingService) fiber.Handler {
	return pendingHandler(func(c *fiber.Ctx, id, docID string) (*staging.View, error) {
		return svc.UndoArchive(c.UserContext(), id, docID)
	})
}

// CommitSession applies the staged intent. Per-operation failures are
// listed in the result; the response status stays 200.
// @Summary Commit a staging session
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "session id"
// @Param body body commitRequest false "entity override"
// @Success 200 {object} staging.CommitResult
// @Router /sessions/{id}/commit [post]
func CommitSession(svc service.StagingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := sessionID(c)
		if !ok {
			return invalidID(c)
		}
		var req commitRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
			}
		}
		res, err := svc.Commit(c.UserContext(), id, req.EntityID)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

// ResetSession drops all staged intent. Read state is left as it is.
// @Summary Reset a staging session
// @Tags sessions
// @Produce json
// @Param id path string true "session id"
// @Success 200 {object} staging.View
// @Router /sessions/{id}/reset [post]
func ResetSession(svc service.StagingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := sessionID(c)
		if !ok {
			return invalidID(c)
		}
		view, err := svc.Reset(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(view)
	}
}
