package api

import (
	"bytes"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/paindiary/internal/models"
	"github.com/terraincognita07/paindiary/internal/services"
)

type clearInput struct {
	Confirm bool `json:"confirm"`
}

// Export sends the stored envelope as JSON, or the records as CSV with
// ?format=csv. Without a format the export preference decides.
func (handler *Handler) Export(c *fiber.Ctx) error {
	ctx := c.UserContext()
	format := strings.ToLower(strings.TrimSpace(c.Query("format")))
	if format == "" {
		preferences, err := handler.manager.GetPreferences(ctx)
		if err != nil {
			return handler.writeError(c, err)
		}
		format = preferences.Export.DefaultFormat
	}
	stamp := handler.now().UTC().Format("2006-01-02")

	switch format {
	case models.ExportFormatCSV:
		var buffer bytes.Buffer
		if err := handler.manager.ExportCSV(ctx, &buffer); err != nil {
			return handler.writeError(c, err)
		}
		c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
		c.Set(fiber.HeaderContentDisposition, attachmentName(stamp, "csv"))
		return c.Send(buffer.Bytes())
	case models.ExportFormatJSON:
		payload, err := handler.manager.ExportJSON(ctx)
		if err != nil {
			return handler.writeError(c, err)
		}
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
		c.Set(fiber.HeaderContentDisposition, attachmentName(stamp, "json"))
		return c.Send(payload)
	default:
		return apiError(c, fiber.StatusBadRequest, "format must be json or csv")
	}
}

func (handler *Handler) Import(c *fiber.Ctx) error {
	mode, err := services.ParseImportMode(c.Query("mode"))
	if err != nil {
		return handler.writeError(c, err)
	}
	if len(bytes.TrimSpace(c.Body())) == 0 {
		return apiError(c, fiber.StatusBadRequest, "import payload is empty")
	}
	payload := append([]byte(nil), c.Body()...)
	summary, err := handler.manager.ImportData(c.UserContext(), payload, mode)
	if err != nil {
		return handler.writeError(c, err)
	}
	return c.JSON(summary)
}

func (handler *Handler) Stats(c *fiber.Ctx) error {
	stats, err := handler.manager.GetDataStatistics(c.UserContext())
	if err != nil {
		return handler.writeError(c, err)
	}
	return c.JSON(stats)
}

func (handler *Handler) Cleanup(c *fiber.Ctx) error {
	report, err := handler.manager.PerformDataCleanup(c.UserContext())
	if err != nil {
		return handler.writeError(c, err)
	}
	return c.JSON(report)
}

// Clear wipes the store and needs an explicit {"confirm": true} body.
func (handler *Handler) Clear(c *fiber.Ctx) error {
	input := clearInput{}
	if err := decodeJSONBody(c, &input); err != nil || !input.Confirm {
		return apiError(c, fiber.StatusBadRequest, "confirmation required")
	}
	report, err := handler.manager.ClearAllData(c.UserContext())
	if err != nil {
		return handler.writeError(c, err)
	}
	return c.JSON(report)
}

func (handler *Handler) GetPreferences(c *fiber.Ctx) error {
	preferences, err := handler.manager.GetPreferences(c.UserContext())
	if err != nil {
		return handler.writeError(c, err)
	}
	return c.JSON(preferences)
}

func (handler *Handler) UpdatePreferences(c *fiber.Ctx) error {
	preferences := models.UserPreferences{}
	if err := decodeJSONBody(c, &preferences); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}
	if _, err := handler.manager.UpdatePreferences(c.UserContext(), preferences); err != nil {
		return handler.writeError(c, err)
	}
	return c.JSON(preferences)
}

func (handler *Handler) ListBackups(c *fiber.Ctx) error {
	snapshots, err := handler.manager.ListBackups(c.UserContext())
	if err != nil {
		return handler.writeError(c, err)
	}
	return c.JSON(fiber.Map{"backups": snapshots})
}

func (handler *Handler) CreateBackup(c *fiber.Ctx) error {
	info, err := handler.manager.CreateBackup(c.UserContext())
	if err != nil {
		return handler.writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(info)
}

func (handler *Handler) RestoreBackup(c *fiber.Ctx) error {
	key := strings.TrimSpace(c.Params("key"))
	if !strings.HasPrefix(key, models.SnapshotKeyPrefix) {
		return apiError(c, fiber.StatusNotFound, "not found")
	}
	result, err := handler.manager.RestoreBackup(c.UserContext(), key)
	if err != nil {
		return handler.writeError(c, err)
	}
	return c.JSON(fiber.Map{"restored": key, "migration": result})
}

func (handler *Handler) StorageUsage(c *fiber.Ctx) error {
	usage, err := handler.manager.StorageUsage(c.UserContext())
	if err != nil {
		return handler.writeError(c, err)
	}
	return c.JSON(usage)
}

func (handler *Handler) Health(c *fiber.Ctx) error {
	if err := handler.manager.Ready(); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
