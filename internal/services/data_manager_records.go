package services

import (
	"context"
	"time"

	"github.com/terraincognita07/paindiary/internal/models"
	"github.com/terraincognita07/paindiary/internal/validation"
)

// SaveRecord validates draft, rejects a taken date and time slot and
// persists a new record. The returned Result carries warnings even on success.
func (service *DataManager) SaveRecord(ctx context.Context, draft models.RecordDraft) (record models.PainRecord, result validation.Result, err error) {
	service.mu.Lock()
	defer service.mu.Unlock()
	defer func() { service.metrics.ObserveOperation("save_record", err) }()

	records, err := service.loadRecords(ctx)
	if err != nil {
		return models.PainRecord{}, validation.Result{}, err
	}

	draft = validation.SanitizeDraft(draft)
	result = service.validator.ValidateRecord(draft)
	if err := result.Err(); err != nil {
		return models.PainRecord{}, result, err
	}

	now := service.timestamp()
	record = models.NewPainRecord(service.newID(), draft, now, now)
	if existing, found := validation.FindDuplicate(record, records); found {
		return models.PainRecord{}, result, &DuplicateRecordError{ExistingID: existing.ID, Date: record.Date, Time: record.Time}
	}

	change, err := service.begin(ctx, "save_record", backupRecords, records)
	if err != nil {
		return models.PainRecord{}, result, err
	}
	next := append(cloneRecords(records), record)
	if err := change.commitRecords(ctx, next); err != nil {
		return models.PainRecord{}, result, service.guard(err)
	}
	service.log.Info("record saved", "id", record.ID, "date", record.Date, "warnings", len(result.Warnings))
	return record.Clone(), result, nil
}

// UpdateRecord merges patch onto the stored record and re-validates the
// merged result. id and createdAt never change; updatedAt always advances.
func (service *DataManager) UpdateRecord(ctx context.Context, id string, patch models.RecordPatch) (record models.PainRecord, result validation.Result, err error) {
	service.mu.Lock()
	defer service.mu.Unlock()
	defer func() { service.metrics.ObserveOperation("update_record", err) }()

	records, err := service.loadRecords(ctx)
	if err != nil {
		return models.PainRecord{}, validation.Result{}, err
	}
	index := indexOfRecord(records, id)
	if index < 0 {
		return models.PainRecord{}, validation.Result{}, ErrRecordNotFound
	}
	existing := records[index]

	merged := validation.SanitizeDraft(patch.Apply(existing.Draft()))
	result = service.validator.ValidateRecord(merged)
	if err := result.Err(); err != nil {
		return models.PainRecord{}, result, err
	}

	updatedAt := service.timestamp()
	if !updatedAt.After(existing.UpdatedAt) {
		updatedAt = existing.UpdatedAt.Add(time.Millisecond)
	}
	record = models.NewPainRecord(existing.ID, merged, existing.CreatedAt, updatedAt)
	// A record keeps its slot: only a move to another date or time is checked.
	if record.Date != existing.Date || record.Time != existing.Time {
		if duplicate, found := validation.FindDuplicate(record, records); found {
			return models.PainRecord{}, result, &DuplicateRecordError{ExistingID: duplicate.ID, Date: record.Date, Time: record.Time}
		}
	}

	change, err := service.begin(ctx, "update_record", backupRecords, records)
	if err != nil {
		return models.PainRecord{}, result, err
	}
	next := cloneRecords(records)
	next[index] = record
	if err := change.commitRecords(ctx, next); err != nil {
		return models.PainRecord{}, result, service.guard(err)
	}
	service.log.Info("record updated", "id", record.ID)
	return record.Clone(), result, nil
}

func (service *DataManager) DeleteRecord(ctx context.Context, id string) (err error) {
	service.mu.Lock()
	defer service.mu.Unlock()
	defer func() { service.metrics.ObserveOperation("delete_record", err) }()

	records, err := service.loadRecords(ctx)
	if err != nil {
		return err
	}
	index := indexOfRecord(records, id)
	if index < 0 {
		return ErrRecordNotFound
	}

	change, err := service.begin(ctx, "delete_record", backupRecords, records)
	if err != nil {
		return err
	}
	next := make([]models.PainRecord, 0, len(records)-1)
	next = append(next, records[:index]...)
	next = append(next, records[index+1:]...)
	if err := change.commitRecords(ctx, next); err != nil {
		return service.guard(err)
	}
	service.log.Info("record deleted", "id", id)
	return nil
}

func (service *DataManager) GetRecord(ctx context.Context, id string) (record models.PainRecord, err error) {
	service.mu.Lock()
	defer service.mu.Unlock()
	defer func() { service.metrics.ObserveOperation("get_record", err) }()

	records, err := service.loadRecords(ctx)
	if err != nil {
		return models.PainRecord{}, err
	}
	index := indexOfRecord(records, id)
	if index < 0 {
		return models.PainRecord{}, ErrRecordNotFound
	}
	return records[index].Clone(), nil
}

func indexOfRecord(records []models.PainRecord, id string) int {
	for index, record := range records {
		if record.ID == id {
			return index
		}
	}
	return -1
}
