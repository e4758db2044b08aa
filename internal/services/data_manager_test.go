package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/terraincognita07/paindiary/internal/migration"
	"github.com/terraincognita07/paindiary/internal/models"
	"github.com/terraincognita07/paindiary/internal/storage"
	"github.com/terraincognita07/paindiary/internal/validation"
)

type manualClock struct {
	current time.Time
}

func (clock *manualClock) Now() time.Time {
	return clock.current
}

type dataManagerFixture struct {
	manager *DataManager
	adapter *storage.Adapter
	store   *storage.MemoryStore
	clock   *manualClock
}

func newDataManagerFixture(t *testing.T) dataManagerFixture {
	t.Helper()
	return newDataManagerFixtureWithStore(t, storage.NewMemoryStore(), 0)
}

func newDataManagerFixtureWithStore(t *testing.T, store *storage.MemoryStore, quota int64) dataManagerFixture {
	t.Helper()
	clock := &manualClock{current: time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)}
	pipeline := migration.NewDefaultPipeline(migration.LegacyOptions{Now: clock.Now}, nil)
	adapter := storage.NewAdapter(store, pipeline, nil, storage.Options{QuotaBytes: quota, Now: clock.Now})
	counter := 0
	manager := NewDataManager(adapter, nil, DataManagerOptions{
		Now: clock.Now,
		NewID: func() string {
			counter++
			return "rec-" + strconv.Itoa(counter)
		},
	})
	if _, err := manager.Open(context.Background()); err != nil {
		t.Fatalf("open data manager: %v", err)
	}
	return dataManagerFixture{manager: manager, adapter: adapter, store: store, clock: clock}
}

func level(value int) *int {
	return &value
}

func draftAt(date string, clock string, painLevel int) models.RecordDraft {
	return models.RecordDraft{
		Date:            date,
		Time:            clock,
		PainLevel:       level(painLevel),
		PainTypes:       []string{models.PainTypeCramping},
		Locations:       []string{models.LocationLowerAbdomen},
		Symptoms:        []string{},
		MenstrualStatus: models.MenstrualStatusDay1,
	}
}

func mustSave(t *testing.T, manager *DataManager, draft models.RecordDraft) models.PainRecord {
	t.Helper()
	record, _, err := manager.SaveRecord(context.Background(), draft)
	if err != nil {
		t.Fatalf("save record %s %s: %v", draft.Date, draft.Time, err)
	}
	return record
}

func TestSaveRecordRoundTrip(t *testing.T) {
	fixture := newDataManagerFixture(t)
	draft := draftAt("2024-06-10", "08:30", 6)
	draft.Medications = []models.Medication{{Name: "Ibuprofen", Dosage: "400mg", Timing: "morning"}}
	draft.Effectiveness = level(7)
	draft.LifestyleFactors = []models.LifestyleFactor{{Factor: models.FactorSleepHours, Value: 6.5}}
	draft.Notes = "woke up with cramps"

	saved := mustSave(t, fixture.manager, draft)
	if saved.ID != "rec-1" {
		t.Fatalf("expected generated id rec-1, got %q", saved.ID)
	}
	if !saved.CreatedAt.Equal(fixture.clock.Now()) || !saved.UpdatedAt.Equal(saved.CreatedAt) {
		t.Fatalf("expected timestamps at %s, got %s/%s", fixture.clock.Now(), saved.CreatedAt, saved.UpdatedAt)
	}

	loaded, err := fixture.manager.GetRecord(context.Background(), saved.ID)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	expected := models.NewPainRecord(saved.ID, draft, saved.CreatedAt, saved.UpdatedAt)
	if loaded.Date != expected.Date || loaded.Time != expected.Time || loaded.PainLevel != expected.PainLevel {
		t.Fatalf("expected %#v, got %#v", expected, loaded)
	}
	if loaded.Notes != expected.Notes || len(loaded.Medications) != 1 || loaded.Medications[0] != expected.Medications[0] {
		t.Fatalf("expected notes and medications to round-trip, got %#v", loaded)
	}
	if loaded.Effectiveness == nil || *loaded.Effectiveness != 7 {
		t.Fatalf("expected effectiveness 7, got %v", loaded.Effectiveness)
	}
	if len(loaded.LifestyleFactors) != 1 || loaded.LifestyleFactors[0].Value != 6.5 {
		t.Fatalf("expected lifestyle factor to round-trip, got %#v", loaded.LifestyleFactors)
	}
}

func TestSaveRecordRejectsDuplicateSlot(t *testing.T) {
	fixture := newDataManagerFixture(t)
	first := mustSave(t, fixture.manager, draftAt("2024-06-10", "08:30", 6))

	_, _, err := fixture.manager.SaveRecord(context.Background(), draftAt("2024-06-10", "08:30", 2))
	if !errors.Is(err, ErrDuplicateRecord) {
		t.Fatalf("expected ErrDuplicateRecord, got %v", err)
	}
	var duplicate *DuplicateRecordError
	if !errors.As(err, &duplicate) || duplicate.ExistingID != first.ID {
		t.Fatalf("expected duplicate error naming %s, got %#v", first.ID, err)
	}

	records, err := fixture.manager.GetAllRecords(context.Background())
	if err != nil {
		t.Fatalf("get all records: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected one stored record, got %d", len(records))
	}
}

func TestSaveRecordValidationBlocksWrite(t *testing.T) {
	fixture := newDataManagerFixture(t)

	for _, painLevel := range []int{-1, 11} {
		_, result, err := fixture.manager.SaveRecord(context.Background(), draftAt("2024-06-10", "08:30", painLevel))
		if !errors.Is(err, validation.ErrInvalidRecord) {
			t.Fatalf("pain level %d: expected ErrInvalidRecord, got %v", painLevel, err)
		}
		if !result.HasError("painLevel", validation.CodeOutOfRange) {
			t.Fatalf("pain level %d: expected out_of_range, got %#v", painLevel, result.Errors)
		}
	}
	for index, painLevel := range []int{0, 10} {
		mustSave(t, fixture.manager, draftAt("2024-06-10", "0"+strconv.Itoa(index)+":00", painLevel))
	}

	missingDate := draftAt("", "09:00", 3)
	_, result, err := fixture.manager.SaveRecord(context.Background(), missingDate)
	if err == nil || !result.HasError("date", validation.CodeRequired) {
		t.Fatalf("expected required date error, got err=%v errors=%#v", err, result.Errors)
	}

	records, err := fixture.manager.GetAllRecords(context.Background())
	if err != nil {
		t.Fatalf("get all records: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected only the two boundary records, got %d", len(records))
	}
}

func TestUpdateRecordPinsIdentityAndAdvancesUpdatedAt(t *testing.T) {
	fixture := newDataManagerFixture(t)
	saved := mustSave(t, fixture.manager, draftAt("2024-06-10", "08:30", 6))

	notes := "second thoughts"
	painLevel := 4
	updated, _, err := fixture.manager.UpdateRecord(context.Background(), saved.ID, models.RecordPatch{Notes: &notes, PainLevel: &painLevel})
	if err != nil {
		t.Fatalf("update record: %v", err)
	}
	if updated.ID != saved.ID || !updated.CreatedAt.Equal(saved.CreatedAt) {
		t.Fatalf("expected id and createdAt to be pinned, got %#v", updated)
	}
	if !updated.UpdatedAt.After(saved.UpdatedAt) {
		t.Fatalf("expected updatedAt to advance past %s under a frozen clock, got %s", saved.UpdatedAt, updated.UpdatedAt)
	}
	if updated.PainLevel != 4 || updated.Notes != notes || updated.Date != saved.Date {
		t.Fatalf("expected patch merged onto stored record, got %#v", updated)
	}

	badLevel := 12
	if _, _, err := fixture.manager.UpdateRecord(context.Background(), saved.ID, models.RecordPatch{PainLevel: &badLevel}); !errors.Is(err, validation.ErrInvalidRecord) {
		t.Fatalf("expected merged record validation to fail, got %v", err)
	}
	if _, _, err := fixture.manager.UpdateRecord(context.Background(), "missing", models.RecordPatch{Notes: &notes}); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestUpdateRecordRejectsMovingOntoTakenSlot(t *testing.T) {
	fixture := newDataManagerFixture(t)
	mustSave(t, fixture.manager, draftAt("2024-06-10", "08:30", 6))
	second := mustSave(t, fixture.manager, draftAt("2024-06-11", "08:30", 6))

	date := "2024-06-10"
	_, _, err := fixture.manager.UpdateRecord(context.Background(), second.ID, models.RecordPatch{Date: &date})
	if !errors.Is(err, ErrDuplicateRecord) {
		t.Fatalf("expected ErrDuplicateRecord, got %v", err)
	}
}

func TestDeleteRecordBacksUpFirst(t *testing.T) {
	fixture := newDataManagerFixture(t)
	saved := mustSave(t, fixture.manager, draftAt("2024-06-10", "08:30", 6))

	if err := fixture.manager.DeleteRecord(context.Background(), saved.ID); err != nil {
		t.Fatalf("delete record: %v", err)
	}
	if _, err := fixture.manager.GetRecord(context.Background(), saved.ID); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected deleted record to be gone, got %v", err)
	}
	if err := fixture.manager.DeleteRecord(context.Background(), saved.ID); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected second delete to report ErrRecordNotFound, got %v", err)
	}

	backup, found, err := fixture.adapter.LoadAutoBackup(context.Background())
	if err != nil || !found {
		t.Fatalf("expected auto-backup, found=%v err=%v", found, err)
	}
	if len(backup.Records) != 1 || backup.Records[0].ID != saved.ID {
		t.Fatalf("expected auto-backup to hold the deleted record, got %#v", backup.Records)
	}
}

type failingBackupStore struct {
	*storage.Adapter
}

func (store failingBackupStore) AutoBackup(context.Context) error {
	return errors.New("backup sink unavailable")
}

func TestFailedBackupDoesNotBlockWrite(t *testing.T) {
	clock := &manualClock{current: time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)}
	pipeline := migration.NewDefaultPipeline(migration.LegacyOptions{Now: clock.Now}, nil)
	adapter := storage.NewAdapter(storage.NewMemoryStore(), pipeline, nil, storage.Options{Now: clock.Now})
	manager := NewDataManager(failingBackupStore{Adapter: adapter}, nil, DataManagerOptions{Now: clock.Now})
	if _, err := manager.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}

	if _, _, err := manager.SaveRecord(context.Background(), draftAt("2024-06-10", "08:30", 6)); err != nil {
		t.Fatalf("expected save to proceed without backup, got %v", err)
	}
}

func TestSaveRecordQuotaExceededLeavesDataUnchanged(t *testing.T) {
	fixture := newDataManagerFixtureWithStore(t, storage.NewMemoryStore(), 3000)
	first := mustSave(t, fixture.manager, draftAt("2024-06-10", "08:30", 6))

	big := draftAt("2024-06-11", "08:30", 6)
	big.Notes = strings.Repeat("x", 1900)
	_, _, err := fixture.manager.SaveRecord(context.Background(), big)
	if !errors.Is(err, storage.ErrQuotaExceeded) {
		t.Fatalf("expected quota exceeded, got %v", err)
	}

	records, err := fixture.manager.GetAllRecords(context.Background())
	if err != nil {
		t.Fatalf("get all records: %v", err)
	}
	if len(records) != 1 || records[0].ID != first.ID {
		t.Fatalf("expected prior data untouched, got %#v", records)
	}
}

func TestCorruptedRecordsRecoverFromAutoBackup(t *testing.T) {
	fixture := newDataManagerFixture(t)
	first := mustSave(t, fixture.manager, draftAt("2024-06-10", "08:30", 6))
	mustSave(t, fixture.manager, draftAt("2024-06-11", "08:30", 6))

	if err := fixture.store.PutMany(context.Background(), map[string][]byte{models.RecordsKey: []byte("{corrupt")}); err != nil {
		t.Fatalf("corrupt records: %v", err)
	}

	records, err := fixture.manager.GetAllRecords(context.Background())
	if err != nil {
		t.Fatalf("expected transparent recovery, got %v", err)
	}
	if len(records) != 1 || records[0].ID != first.ID {
		t.Fatalf("expected records from the auto-backup, got %#v", records)
	}
}

func TestCorruptionWithoutBackupIsStoreLevel(t *testing.T) {
	fixture := newDataManagerFixture(t)
	if err := fixture.store.PutMany(context.Background(), map[string][]byte{models.RecordsKey: []byte("{corrupt")}); err != nil {
		t.Fatalf("corrupt records: %v", err)
	}

	_, err := fixture.manager.GetAllRecords(context.Background())
	if !errors.Is(err, ErrStoreUnavailable) || !errors.Is(err, storage.ErrDataCorruption) {
		t.Fatalf("expected store-level corruption error, got %v", err)
	}
}

func TestFailedMigrationBlocksDataManager(t *testing.T) {
	store := storage.NewMemoryStore()
	if err := store.PutMany(context.Background(), map[string][]byte{models.RecordsKey: []byte(`{"unknown":true}`)}); err != nil {
		t.Fatalf("seed legacy payload: %v", err)
	}
	clock := &manualClock{current: time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)}
	pipeline := migration.NewDefaultPipeline(migration.LegacyOptions{Now: clock.Now}, nil)
	adapter := storage.NewAdapter(store, pipeline, nil, storage.Options{Now: clock.Now})
	manager := NewDataManager(adapter, nil, DataManagerOptions{Now: clock.Now})

	_, err := manager.Open(context.Background())
	if !errors.Is(err, ErrStoreUnavailable) || !errors.Is(err, migration.ErrMigrationFailed) {
		t.Fatalf("expected unavailable migration failure, got %v", err)
	}
	if _, err := manager.GetAllRecords(context.Background()); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected reads to be blocked, got %v", err)
	}
	if _, _, err := manager.SaveRecord(context.Background(), draftAt("2024-06-10", "08:30", 6)); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected writes to be blocked, got %v", err)
	}
}

func TestOperationsRequireOpen(t *testing.T) {
	adapter := storage.NewAdapter(storage.NewMemoryStore(), migration.NewDefaultPipeline(migration.LegacyOptions{}, nil), nil, storage.Options{})
	manager := NewDataManager(adapter, nil, DataManagerOptions{})
	if _, err := manager.GetAllRecords(context.Background()); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable before Open, got %v", err)
	}
}
