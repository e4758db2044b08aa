package migration

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/terraincognita07/paindiary/internal/models"
)

func fixedLegacyOptions() LegacyOptions {
	counter := 0
	return LegacyOptions{
		Now: func() time.Time { return time.Date(2024, time.March, 10, 9, 0, 0, 0, time.UTC) },
		NewID: func() string {
			counter++
			return "generated-" + strconv.Itoa(counter)
		},
	}
}

func migrateLegacy(t *testing.T, doc Document) models.StoredData {
	t.Helper()
	pipeline := NewDefaultPipeline(fixedLegacyOptions(), nil)
	migrated, result, err := pipeline.Migrate(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, []string{"legacy-to-v1"}, result.Applied)

	var stored models.StoredData
	require.NoError(t, migrated.Decode(&stored))
	assert.Equal(t, models.CurrentSchemaVersion, stored.SchemaVersion)
	return stored
}

func TestLegacyPainEntriesUpgrade(t *testing.T) {
	stored := migrateLegacy(t, Document{
		FieldRecords: map[string]any{
			"painEntries": []any{
				map[string]any{"intensity": float64(7), "date": "2024-01-01"},
			},
		},
	})

	require.Len(t, stored.Records, 1)
	record := stored.Records[0]
	assert.Equal(t, 7, record.PainLevel)
	assert.Equal(t, "2024-01-01", record.Date)
	assert.Equal(t, models.DefaultRecordTime, record.Time)
	assert.Equal(t, "generated-1", record.ID)
	assert.Empty(t, record.MenstrualStatus)
	assert.NotNil(t, record.PainTypes)
	assert.Equal(t, 1, stored.Metadata.RecordCount)
	assert.Equal(t, models.DefaultUserPreferences(), stored.Preferences)
}

func TestLegacyArrayUpgradeMapsVocabulary(t *testing.T) {
	stored := migrateLegacy(t, Document{
		FieldRecords: []any{
			map[string]any{
				"id":              "abc",
				"date":            "2024-02-03T18:45:00Z",
				"severity":        "severe",
				"painType":        []any{"Cramps", "zigzag"},
				"location":        "Lower Back",
				"symptoms":        []any{"nausea", "Brain Fog", "tingling"},
				"menstrualStatus": "Day 1",
				"medications":     []any{"Ibuprofen", map[string]any{"name": "Naproxen", "dose": "220mg"}},
				"relief":          float64(14),
				"sleep":           float64(30),
				"notes":           "heat pad helped",
			},
		},
	})

	require.Len(t, stored.Records, 1)
	record := stored.Records[0]
	assert.Equal(t, "abc", record.ID)
	assert.Equal(t, "2024-02-03", record.Date)
	assert.Equal(t, "18:45", record.Time)
	assert.Equal(t, 8, record.PainLevel)
	assert.Equal(t, []string{models.PainTypeCramping, models.PainTypeAching}, record.PainTypes)
	assert.Equal(t, []string{models.LocationLowerBack}, record.Locations)
	assert.Contains(t, record.Symptoms, models.SymptomNausea)
	assert.NotContains(t, record.Symptoms, "tingling")
	assert.Equal(t, models.MenstrualStatusDay1, record.MenstrualStatus)
	require.Len(t, record.Medications, 2)
	assert.Equal(t, "220mg", record.Medications[1].Dosage)
	require.NotNil(t, record.Effectiveness)
	assert.Equal(t, models.MaxEffectiveness, *record.Effectiveness)
	require.Len(t, record.LifestyleFactors, 1)
	assert.Equal(t, models.FactorSleepHours, record.LifestyleFactors[0].Factor)
	assert.Equal(t, models.LifestyleFactorRanges()[models.FactorSleepHours].Max, record.LifestyleFactors[0].Value)
	assert.Contains(t, record.Notes, "heat pad helped")
	assert.Contains(t, record.Notes, "zigzag")
	assert.Contains(t, record.Notes, "tingling")
}

func TestLegacyEntriesWithoutDateAreDropped(t *testing.T) {
	stored := migrateLegacy(t, Document{
		FieldRecords: map[string]any{
			"records": []any{
				map[string]any{"painLevel": float64(3)},
				"not an object",
				map[string]any{"painLevel": float64(4), "timestamp": float64(1704067200000)},
			},
		},
	})

	require.Len(t, stored.Records, 1)
	assert.Equal(t, "2024-01-01", stored.Records[0].Date)
	assert.Equal(t, "00:00", stored.Records[0].Time)
	assert.Equal(t, 4, stored.Records[0].PainLevel)
}

func TestLegacyUnmappedMenstrualStatusFallsBack(t *testing.T) {
	stored := migrateLegacy(t, Document{
		FieldRecords: []any{
			map[string]any{"id": "a", "date": "2024-01-01", "painLevel": float64(2), "menstrualStatus": "moon phase"},
			map[string]any{"id": "b", "date": "2024-01-02", "painLevel": float64(2), "menstrualStatus": "  "},
		},
	})

	require.Len(t, stored.Records, 2)
	byID := map[string]models.PainRecord{}
	for _, record := range stored.Records {
		byID[record.ID] = record
	}
	assert.Equal(t, models.MenstrualStatusIrregular, byID["a"].MenstrualStatus)
	assert.Contains(t, byID["a"].Notes, "menstrual status")
	assert.Empty(t, byID["b"].MenstrualStatus)
}

func TestLegacySameDayEntriesGetDistinctTimes(t *testing.T) {
	stored := migrateLegacy(t, Document{
		FieldRecords: map[string]any{
			"painEntries": []any{
				map[string]any{"id": "first", "date": "2024-01-01", "intensity": float64(3)},
				map[string]any{"id": "second", "date": "2024-01-01", "intensity": float64(5), "notes": "after lunch"},
				map[string]any{"id": "third", "date": "2024-01-01", "time": "12:01", "intensity": float64(4)},
			},
		},
	})

	require.Len(t, stored.Records, 3)
	byID := map[string]models.PainRecord{}
	for _, record := range stored.Records {
		byID[record.ID] = record
	}
	assert.Equal(t, "12:00", byID["first"].Time)
	assert.Empty(t, byID["first"].Notes)
	assert.Equal(t, "12:01", byID["second"].Time)
	assert.Contains(t, byID["second"].Notes, "after lunch")
	assert.Contains(t, byID["second"].Notes, "Time moved from 12:00 to 12:01")
	assert.Equal(t, "12:02", byID["third"].Time)
	assert.Contains(t, byID["third"].Notes, "Time moved from 12:01 to 12:02")
}

func TestLegacyDuplicateIDsAreReissued(t *testing.T) {
	stored := migrateLegacy(t, Document{
		FieldRecords: []any{
			map[string]any{"id": "same", "date": "2024-01-01", "painLevel": float64(2)},
			map[string]any{"id": "same", "date": "2024-01-02", "painLevel": float64(3)},
		},
	})

	require.Len(t, stored.Records, 2)
	assert.Equal(t, "same", stored.Records[0].ID)
	assert.NotEqual(t, "same", stored.Records[1].ID)
}

func TestLegacyEmptyStoreUpgrades(t *testing.T) {
	stored := migrateLegacy(t, Document{})
	assert.Empty(t, stored.Records)
	assert.Equal(t, models.DataFormatVersion, stored.Metadata.Version)
}

func TestLegacyUnknownShapeFails(t *testing.T) {
	pipeline := NewDefaultPipeline(fixedLegacyOptions(), nil)
	input := Document{FieldRecords: map[string]any{"something": "else"}}

	migrated, _, err := pipeline.Migrate(context.Background(), input)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMigrationFailed)
	assert.Equal(t, Document{FieldRecords: map[string]any{"something": "else"}}, migrated)
}

func TestLegacyPreferencesAreCarried(t *testing.T) {
	stored := migrateLegacy(t, Document{
		FieldRecords: map[string]any{
			"painEntries": []any{},
			"settings":    map[string]any{"display": map[string]any{"theme": "dark"}},
		},
	})
	assert.Equal(t, "dark", stored.Preferences.Display.Theme)
	assert.Equal(t, models.DefaultBackupRetentionDays, stored.Preferences.Privacy.BackupRetentionDays)
}

func TestLegacyDowngradeDropsEnvelope(t *testing.T) {
	pipeline := NewDefaultPipeline(fixedLegacyOptions(), nil)
	migrated, _, err := pipeline.Migrate(context.Background(), Document{
		FieldRecords: []any{map[string]any{"date": "2024-01-01", "painLevel": float64(1)}},
	})
	require.NoError(t, err)

	rolled, err := pipeline.Rollback(context.Background(), migrated, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, rolled.Version())
	assert.NotContains(t, rolled, FieldMetadata)
	assert.Len(t, rolled[FieldRecords], 1)
}

func TestValidateVersion1DocumentRejectsBadRecords(t *testing.T) {
	base := func(record map[string]any) Document {
		return Document{
			FieldRecords:     []any{record},
			FieldPreferences: map[string]any{},
			FieldMetadata:    map[string]any{},
		}
	}

	assert.NoError(t, ValidateVersion1Document(base(map[string]any{"id": "a", "date": "2024-01-01", "time": "08:00", "painLevel": float64(4)})))
	assert.Error(t, ValidateVersion1Document(base(map[string]any{"date": "2024-01-01", "time": "08:00", "painLevel": float64(4)})))
	assert.Error(t, ValidateVersion1Document(base(map[string]any{"id": "a", "date": "01/01/2024", "time": "08:00", "painLevel": float64(4)})))
	assert.Error(t, ValidateVersion1Document(base(map[string]any{"id": "a", "date": "2024-01-01", "time": "08:00", "painLevel": float64(11)})))
	assert.Error(t, ValidateVersion1Document(Document{FieldRecords: "nope"}))
}
