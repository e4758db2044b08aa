package migration

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/terraincognita07/paindiary/internal/logger"
	"github.com/terraincognita07/paindiary/internal/models"
)

type LegacyOptions struct {
	Now      func() time.Time
	NewID    func() string
	Location *time.Location
	MaxNotes int
}

func (options LegacyOptions) withDefaults() LegacyOptions {
	if options.Now == nil {
		options.Now = time.Now
	}
	if options.NewID == nil {
		options.NewID = func() string { return uuid.Must(uuid.NewV7()).String() }
	}
	if options.Location == nil {
		options.Location = time.UTC
	}
	if options.MaxNotes <= 0 {
		options.MaxNotes = 2000
	}
	return options
}

// LegacyStep ingests every pre-versioning layout into schema version 1.
func LegacyStep(options LegacyOptions, log *logger.Logger) Step {
	options = options.withDefaults()
	if log == nil {
		log = logger.NewNop()
	}
	return Step{
		From:        0,
		Name:        "legacy-to-v1",
		Description: "normalize unversioned pain entries into versioned records",
		Up: func(doc Document) (Document, error) {
			return upgradeLegacyDocument(doc, options, log)
		},
		Down:     downgradeToLegacyDocument,
		Validate: ValidateVersion1Document,
	}
}

func upgradeLegacyDocument(doc Document, options LegacyOptions, log *logger.Logger) (Document, error) {
	shape := DetectLegacyShape(doc[FieldRecords])
	if shape.Kind == ShapeUnknown {
		return nil, fmt.Errorf("unrecognized legacy records layout")
	}

	now := options.Now().UTC()
	normalizer := newLegacyNormalizer(options, now)
	records := make([]models.PainRecord, 0, len(shape.Entries))
	dropped := 0
	for index, entry := range shape.Entries {
		record, ok := normalizer.normalize(entry)
		if !ok {
			dropped++
			log.Warn("legacy entry dropped", "index", index, "shape", shape.Kind.String())
			continue
		}
		records = append(records, record)
	}
	log.Info("legacy records normalized", "shape", shape.Kind.String(), "records", len(records), "dropped", dropped)

	genericRecords, err := FromValue(records)
	if err != nil {
		return nil, fmt.Errorf("encode normalized records: %w", err)
	}

	preferences := legacyPreferences(doc[FieldPreferences], shape.Wrapper)
	genericPreferences, err := FromValue(preferences)
	if err != nil {
		return nil, fmt.Errorf("encode preferences: %w", err)
	}

	metadata := models.StorageMetadata{
		CreatedAt:    now,
		LastModified: now,
		RecordCount:  len(records),
		Version:      models.DataFormatVersion,
	}
	if existing, ok := doc[FieldMetadata].(map[string]any); ok {
		if created, ok := parseLegacyTimestamp(existing["createdAt"], options.Location); ok {
			metadata.CreatedAt = created.UTC()
		}
	}
	genericMetadata, err := FromValue(metadata)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}

	upgraded := Document{
		FieldRecords:     genericRecords,
		FieldPreferences: genericPreferences,
		FieldMetadata:    genericMetadata,
	}
	if lastBackup, ok := doc[FieldLastBackup]; ok && lastBackup != nil {
		upgraded[FieldLastBackup] = lastBackup
	}
	return upgraded, nil
}

// Version 0 accepts a bare record array, so the inverse only has to drop the
// version-1 envelope fields.
func downgradeToLegacyDocument(doc Document) (Document, error) {
	records, ok := doc[FieldRecords]
	if !ok || records == nil {
		records = []any{}
	}
	if _, isArray := records.([]any); !isArray {
		shape := DetectLegacyShape(records)
		if shape.Kind == ShapeUnknown {
			return nil, errors.New("cannot downgrade unrecognized records payload")
		}
		records = shape.Entries
		if records == nil {
			records = []any{}
		}
	}

	downgraded := Document{FieldRecords: cloneValue(records)}
	if preferences, ok := doc[FieldPreferences]; ok {
		downgraded[FieldPreferences] = cloneValue(preferences)
	}
	return downgraded, nil
}

func legacyPreferences(raw any, wrapper map[string]any) models.UserPreferences {
	preferences := models.DefaultUserPreferences()
	source := raw
	if source == nil && wrapper != nil {
		if nested, ok := wrapper["preferences"]; ok {
			source = nested
		} else if nested, ok := wrapper["settings"]; ok {
			source = nested
		}
	}
	object, ok := source.(map[string]any)
	if !ok {
		return preferences
	}
	decoded := preferences
	if err := Document(object).Decode(&decoded); err != nil {
		return preferences
	}
	return decoded
}
