package services

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/terraincognita07/paindiary/internal/migration"
	"github.com/terraincognita07/paindiary/internal/models"
	"github.com/terraincognita07/paindiary/internal/validation"
)

type ImportMode string

const (
	ImportMerge   ImportMode = "merge"
	ImportReplace ImportMode = "replace"
)

func ParseImportMode(raw string) (ImportMode, error) {
	switch ImportMode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ImportMerge:
		return ImportMerge, nil
	case ImportReplace:
		return ImportReplace, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidImportMode, raw)
	}
}

type ImportSkip struct {
	ID         string `json:"id"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	ExistingID string `json:"existingId"`
}

type ImportSummary struct {
	Mode     ImportMode       `json:"mode"`
	Total    int              `json:"total"`
	Added    int              `json:"added"`
	Updated  int              `json:"updated"`
	Skipped  []ImportSkip     `json:"skipped"`
	Records  int              `json:"records"`
	Migrated migration.Result `json:"migrated"`
	Snapshot string           `json:"snapshot,omitempty"`
}

var recordCSVHeaders = []string{
	"ID",
	"Date",
	"Time",
	"Pain level",
	"Pain types",
	"Locations",
	"Symptoms",
	"Menstrual status",
	"Medications",
	"Effectiveness",
	"Lifestyle factors",
	"Notes",
	"Created at",
	"Updated at",
}

// ExportData returns the stored envelope verbatim.
func (service *DataManager) ExportData(ctx context.Context) (data models.StoredData, err error) {
	service.mu.Lock()
	defer service.mu.Unlock()
	defer func() { service.metrics.ObserveOperation("export", err) }()

	if err := service.available(); err != nil {
		return models.StoredData{}, err
	}
	data, err = service.store.LoadStoredData(ctx)
	if err != nil {
		return models.StoredData{}, service.guard(err)
	}
	return data, nil
}

func (service *DataManager) ExportJSON(ctx context.Context) ([]byte, error) {
	data, err := service.ExportData(ctx)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(data, "", "  ")
}

// ExportCSV writes one row per record, newest first. Notes are left out when
// the export preferences say so.
func (service *DataManager) ExportCSV(ctx context.Context, writer io.Writer) error {
	data, err := service.ExportData(ctx)
	if err != nil {
		return err
	}
	records := cloneRecords(data.Records)
	sortNewestFirst(records)

	csvWriter := csv.NewWriter(writer)
	if err := csvWriter.Write(recordCSVHeaders); err != nil {
		return err
	}
	for _, record := range records {
		notes := record.Notes
		if !data.Preferences.Export.IncludeNotes {
			notes = ""
		}
		if err := csvWriter.Write(recordCSVRow(record, notes)); err != nil {
			return err
		}
	}
	csvWriter.Flush()
	return csvWriter.Error()
}

func recordCSVRow(record models.PainRecord, notes string) []string {
	medications := make([]string, 0, len(record.Medications))
	for _, medication := range record.Medications {
		parts := []string{medication.Name}
		if medication.Dosage != "" {
			parts = append(parts, medication.Dosage)
		}
		if medication.Timing != "" {
			parts = append(parts, medication.Timing)
		}
		medications = append(medications, strings.Join(parts, " "))
	}
	factors := make([]string, 0, len(record.LifestyleFactors))
	for _, factor := range record.LifestyleFactors {
		factors = append(factors, factor.Factor+"="+strconv.FormatFloat(factor.Value, 'f', -1, 64))
	}
	effectiveness := ""
	if record.Effectiveness != nil {
		effectiveness = strconv.Itoa(*record.Effectiveness)
	}
	return []string{
		record.ID,
		record.Date,
		record.Time,
		strconv.Itoa(record.PainLevel),
		strings.Join(record.PainTypes, "; "),
		strings.Join(record.Locations, "; "),
		strings.Join(record.Symptoms, "; "),
		record.MenstrualStatus,
		strings.Join(medications, "; "),
		effectiveness,
		strings.Join(factors, "; "),
		notes,
		record.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		record.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// ImportData validates every record in payload before writing any of them.
// One invalid record rejects the whole import with an *ImportError.
//
// Merge keeps existing records, overwrites those with the same id and skips
// incoming records whose date and time slot is already taken by a different
// id. Replace swaps in the payload's records and preferences.
func (service *DataManager) ImportData(ctx context.Context, payload []byte, mode ImportMode) (summary ImportSummary, err error) {
	service.mu.Lock()
	defer service.mu.Unlock()
	defer func() { service.metrics.ObserveOperation("import", err) }()

	if mode == "" {
		mode = ImportMerge
	}
	if mode != ImportMerge && mode != ImportReplace {
		return ImportSummary{}, fmt.Errorf("%w: %q", ErrInvalidImportMode, mode)
	}
	if err := service.available(); err != nil {
		return ImportSummary{}, err
	}

	incoming, migrated, err := service.store.ParseSnapshot(ctx, payload)
	if err != nil {
		return ImportSummary{}, &ImportError{Items: []ImportItemError{{Index: -1, Reason: err.Error()}}}
	}
	records, problems := service.validateImport(incoming)
	if mode == ImportReplace {
		if result := validation.ValidatePreferences(incoming.Preferences); !result.IsValid {
			problems = append(problems, ImportItemError{Index: -1, Reason: "preferences are invalid", Errors: result.Errors})
		}
	}
	if len(problems) > 0 {
		service.log.Warn("import rejected", "invalid_items", len(problems))
		return ImportSummary{}, &ImportError{Items: problems}
	}

	summary = ImportSummary{Mode: mode, Total: len(records), Skipped: []ImportSkip{}, Migrated: migrated}
	existing, err := service.loadRecords(ctx)
	if err != nil {
		return ImportSummary{}, err
	}

	change, err := service.begin(ctx, "import", backupFull, existing)
	if err != nil {
		return ImportSummary{}, err
	}
	summary.Snapshot = change.snapshot
	switch mode {
	case ImportReplace:
		data := models.StoredData{
			Records:       records,
			Preferences:   incoming.Preferences,
			SchemaVersion: models.CurrentSchemaVersion,
		}
		err = change.commit(ctx, func() error { return service.store.WriteStoredData(ctx, data) }, func() int { return len(records) })
		summary.Added = len(records)
		summary.Records = len(records)
	default:
		next := mergeRecords(existing, records, &summary)
		err = change.commitRecords(ctx, next)
		summary.Records = len(next)
	}
	if err != nil {
		return ImportSummary{}, service.guard(err)
	}
	service.log.Info("import applied", "mode", string(mode), "added", summary.Added, "updated", summary.Updated, "skipped", len(summary.Skipped))
	return summary, nil
}

func (service *DataManager) validateImport(incoming models.StoredData) ([]models.PainRecord, []ImportItemError) {
	records := make([]models.PainRecord, 0, len(incoming.Records))
	problems := make([]ImportItemError, 0)
	slots := make(map[string]string, len(incoming.Records))

	for index, candidate := range incoming.Records {
		draft := validation.SanitizeDraft(candidate.Draft())
		result := service.validator.ValidateRecord(draft)
		if !result.IsValid {
			problems = append(problems, ImportItemError{Index: index, ID: candidate.ID, Errors: result.Errors})
			continue
		}
		if candidate.CreatedAt.IsZero() || candidate.UpdatedAt.Before(candidate.CreatedAt) {
			problems = append(problems, ImportItemError{Index: index, ID: candidate.ID, Reason: "updatedAt must not precede createdAt"})
			continue
		}
		slot := candidate.Date + " " + candidate.Time
		if otherID, taken := slots[slot]; taken {
			problems = append(problems, ImportItemError{Index: index, ID: candidate.ID, Reason: fmt.Sprintf("same date and time as record %s in the payload", otherID)})
			continue
		}
		slots[slot] = candidate.ID
		records = append(records, models.NewPainRecord(candidate.ID, draft, candidate.CreatedAt.UTC(), candidate.UpdatedAt.UTC()))
	}
	return records, problems
}

func mergeRecords(existing []models.PainRecord, incoming []models.PainRecord, summary *ImportSummary) []models.PainRecord {
	merged := cloneRecords(existing)
	byID := make(map[string]int, len(merged))
	for index, record := range merged {
		byID[record.ID] = index
	}

	for _, record := range incoming {
		if index, ok := byID[record.ID]; ok {
			if duplicate, found := findSlotOwner(merged, record, index); found {
				summary.Skipped = append(summary.Skipped, ImportSkip{ID: record.ID, Date: record.Date, Time: record.Time, ExistingID: duplicate})
				continue
			}
			merged[index] = record
			summary.Updated++
			continue
		}
		if duplicate, found := findSlotOwner(merged, record, -1); found {
			summary.Skipped = append(summary.Skipped, ImportSkip{ID: record.ID, Date: record.Date, Time: record.Time, ExistingID: duplicate})
			continue
		}
		byID[record.ID] = len(merged)
		merged = append(merged, record)
		summary.Added++
	}
	return merged
}

func findSlotOwner(records []models.PainRecord, record models.PainRecord, skipIndex int) (string, bool) {
	for index, candidate := range records {
		if index == skipIndex {
			continue
		}
		if candidate.Date == record.Date && candidate.Time == record.Time {
			return candidate.ID, true
		}
	}
	return "", false
}
