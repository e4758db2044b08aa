package api

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/paindiary/internal/models"
	"github.com/terraincognita07/paindiary/internal/validation"
)

type recordResponse struct {
	Record   models.PainRecord         `json:"record"`
	Warnings []validation.FieldWarning `json:"warnings"`
}

type recordsResponse struct {
	Records []models.PainRecord `json:"records"`
	Count   int                 `json:"count"`
}

// ListRecords serves every record or one filtered view: ?q, ?from&to,
// ?min_pain&max_pain or ?menstrual_status. Filters cannot be combined.
func (handler *Handler) ListRecords(c *fiber.Ctx) error {
	ctx := c.UserContext()
	query := strings.TrimSpace(c.Query("q"))
	from, to := strings.TrimSpace(c.Query("from")), strings.TrimSpace(c.Query("to"))
	minPain, maxPain := strings.TrimSpace(c.Query("min_pain")), strings.TrimSpace(c.Query("max_pain"))
	status := strings.TrimSpace(c.Query("menstrual_status"))

	filters := 0
	for _, present := range []bool{query != "", from != "" || to != "", minPain != "" || maxPain != "", status != ""} {
		if present {
			filters++
		}
	}
	if filters > 1 {
		return apiError(c, fiber.StatusBadRequest, "use one filter at a time")
	}

	var (
		records []models.PainRecord
		err     error
	)
	switch {
	case query != "":
		records, err = handler.manager.SearchRecords(ctx, query)
	case from != "" || to != "":
		if from == "" || to == "" {
			return apiError(c, fiber.StatusBadRequest, "from and to are both required")
		}
		records, err = handler.manager.GetRecordsByDateRange(ctx, from, to)
	case minPain != "" || maxPain != "":
		low, lowErr := parsePainBound(minPain, models.MinPainLevel)
		high, highErr := parsePainBound(maxPain, models.MaxPainLevel)
		if lowErr != nil || highErr != nil {
			return apiError(c, fiber.StatusBadRequest, "pain bounds must be integers")
		}
		records, err = handler.manager.GetRecordsByPainLevel(ctx, low, high)
	case status != "":
		records, err = handler.manager.GetRecordsByMenstrualStatus(ctx, status)
	default:
		records, err = handler.manager.GetAllRecords(ctx)
	}
	if err != nil {
		return handler.writeError(c, err)
	}
	return c.JSON(recordsResponse{Records: records, Count: len(records)})
}

func parsePainBound(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func (handler *Handler) CreateRecord(c *fiber.Ctx) error {
	draft := models.RecordDraft{}
	if err := decodeJSONBody(c, &draft); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}
	record, result, err := handler.manager.SaveRecord(c.UserContext(), draft)
	if err != nil {
		return handler.writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(recordResponse{Record: record, Warnings: result.Warnings})
}

func (handler *Handler) GetRecord(c *fiber.Ctx) error {
	record, err := handler.manager.GetRecord(c.UserContext(), c.Params("id"))
	if err != nil {
		return handler.writeError(c, err)
	}
	return c.JSON(record)
}

func (handler *Handler) UpdateRecord(c *fiber.Ctx) error {
	patch := models.RecordPatch{}
	if err := decodeJSONBody(c, &patch); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}
	record, result, err := handler.manager.UpdateRecord(c.UserContext(), c.Params("id"), patch)
	if err != nil {
		return handler.writeError(c, err)
	}
	return c.JSON(recordResponse{Record: record, Warnings: result.Warnings})
}

func (handler *Handler) DeleteRecord(c *fiber.Ctx) error {
	if err := handler.manager.DeleteRecord(c.UserContext(), c.Params("id")); err != nil {
		return handler.writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
