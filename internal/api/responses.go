package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/paindiary/internal/migration"
	"github.com/terraincognita07/paindiary/internal/services"
	"github.com/terraincognita07/paindiary/internal/storage"
	"github.com/terraincognita07/paindiary/internal/validation"
)

func apiError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message})
}

func decodeJSONBody(c *fiber.Ctx, target any) error {
	decoder := json.NewDecoder(bytes.NewReader(c.Body()))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return err
	}
	if decoder.More() {
		return errors.New("unexpected trailing data")
	}
	return nil
}

// writeError maps a Data Manager error onto a status and JSON body.
func (handler *Handler) writeError(c *fiber.Ctx, err error) error {
	var validationErr *validation.Error
	if errors.As(err, &validationErr) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":    "validation failed",
			"errors":   validationErr.Result.Errors,
			"warnings": validationErr.Result.Warnings,
		})
	}

	var importErr *services.ImportError
	if errors.As(err, &importErr) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "import rejected",
			"items": importErr.Items,
		})
	}

	var duplicateErr *services.DuplicateRecordError
	if errors.As(err, &duplicateErr) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":      "a record already exists for this date and time",
			"existingId": duplicateErr.ExistingID,
		})
	}

	var backupErr *services.BackupError
	if errors.As(err, &backupErr) {
		status := fiber.StatusServiceUnavailable
		if errors.Is(err, storage.ErrQuotaExceeded) {
			status = fiber.StatusInsufficientStorage
		}
		handler.log.Error("operation aborted before any change", "path", c.Path(), "error", err)
		return apiError(c, status, backupErr.Error())
	}

	var quotaErr *storage.QuotaExceededError
	if errors.As(err, &quotaErr) {
		return c.Status(fiber.StatusInsufficientStorage).JSON(fiber.Map{
			"error":    "storage quota exceeded",
			"used":     quotaErr.Used,
			"required": quotaErr.Required,
			"limit":    quotaErr.Limit,
		})
	}

	switch {
	case errors.Is(err, services.ErrRecordNotFound), errors.Is(err, storage.ErrSnapshotNotFound):
		return apiError(c, fiber.StatusNotFound, "not found")
	case errors.Is(err, storage.ErrQuotaExceeded):
		return apiError(c, fiber.StatusInsufficientStorage, "storage quota exceeded")
	case errors.Is(err, services.ErrStoreUnavailable),
		errors.Is(err, storage.ErrDataCorruption),
		errors.Is(err, migration.ErrMigrationFailed):
		handler.log.Error("store unavailable", "path", c.Path(), "error", err)
		return apiError(c, fiber.StatusServiceUnavailable, "store unavailable")
	case errors.Is(err, services.ErrInvalidQuery),
		errors.Is(err, services.ErrInvalidImportMode),
		errors.Is(err, storage.ErrInvalidSnapshot):
		return apiError(c, fiber.StatusBadRequest, err.Error())
	}

	handler.log.Error("request failed", "path", c.Path(), "error", err)
	return apiError(c, fiber.StatusInternalServerError, "internal error")
}

// errorHandler renders fiber's own errors (unknown routes, oversized bodies)
// as JSON.
func errorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "internal error"
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		status = fiberErr.Code
		message = fiberErr.Message
	}
	return apiError(c, status, message)
}

func attachmentName(stamp string, extension string) string {
	return fmt.Sprintf("attachment; filename=\"paindiary-%s.%s\"", stamp, extension)
}
