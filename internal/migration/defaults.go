package migration

import (
	"fmt"
	"math"
	"time"

	"github.com/terraincognita07/paindiary/internal/logger"
	"github.com/terraincognita07/paindiary/internal/models"
)

// NewDefaultPipeline registers every known step up to models.CurrentSchemaVersion.
func NewDefaultPipeline(options LegacyOptions, log *logger.Logger) *Pipeline {
	pipeline := NewPipeline(models.CurrentSchemaVersion, log)
	if err := pipeline.Register(LegacyStep(options, log)); err != nil {
		panic(fmt.Sprintf("register legacy step: %v", err))
	}
	return pipeline
}

// ValidateVersion1Document checks the structural shape of a version-1
// document. Field-level rules live in the validation package.
func ValidateVersion1Document(doc Document) error {
	rawRecords, ok := doc[FieldRecords].([]any)
	if !ok {
		return fmt.Errorf("records must be an array")
	}
	seen := make(map[string]struct{}, len(rawRecords))
	for index, raw := range rawRecords {
		record, ok := raw.(map[string]any)
		if !ok {
			return fmt.Errorf("record %d is not an object", index)
		}
		id, _ := record["id"].(string)
		if id == "" {
			return fmt.Errorf("record %d has no id", index)
		}
		if _, duplicate := seen[id]; duplicate {
			return fmt.Errorf("record id %q is duplicated", id)
		}
		seen[id] = struct{}{}

		date, _ := record["date"].(string)
		if _, err := time.Parse(models.DateLayout, date); err != nil {
			return fmt.Errorf("record %q has invalid date %q", id, date)
		}
		clock, _ := record["time"].(string)
		if _, err := time.Parse(models.TimeLayout, clock); err != nil {
			return fmt.Errorf("record %q has invalid time %q", id, clock)
		}
		level, ok := record["painLevel"].(float64)
		if !ok || level != math.Trunc(level) || level < models.MinPainLevel || level > models.MaxPainLevel {
			return fmt.Errorf("record %q has invalid pain level", id)
		}
	}

	if _, ok := doc[FieldPreferences].(map[string]any); !ok {
		return fmt.Errorf("preferences must be an object")
	}
	if _, ok := doc[FieldMetadata].(map[string]any); !ok {
		return fmt.Errorf("metadata must be an object")
	}
	return nil
}
