package storage

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/terraincognita07/paindiary/internal/db"
	"github.com/terraincognita07/paindiary/internal/migration"
	"github.com/terraincognita07/paindiary/internal/models"
)

type testClock struct {
	current time.Time
}

func (clock *testClock) Now() time.Time {
	return clock.current
}

func (clock *testClock) Advance(duration time.Duration) {
	clock.current = clock.current.Add(duration)
}

func newTestAdapter(t *testing.T, store Store, quota int64) (*Adapter, *testClock) {
	t.Helper()
	clock := &testClock{current: time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)}
	pipeline := migration.NewDefaultPipeline(migration.LegacyOptions{Now: clock.Now}, nil)
	adapter := NewAdapter(store, pipeline, nil, Options{QuotaBytes: quota, Now: clock.Now})
	return adapter, clock
}

func sampleRecord(id string, date string, clock string, level int) models.PainRecord {
	stamp := time.Date(2024, time.May, 1, 8, 0, 0, 0, time.UTC)
	return models.NewPainRecord(id, models.RecordDraft{
		Date:            date,
		Time:            clock,
		PainLevel:       &level,
		MenstrualStatus: models.MenstrualStatusDay1,
	}, stamp, stamp)
}

func TestInitializeSeedsPrimaryKeys(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	adapter, _ := newTestAdapter(t, store, 0)

	result, err := adapter.Initialize(ctx)
	require.NoError(t, err)
	assert.True(t, result.NoOp())

	for _, key := range models.PrimaryKeys() {
		exists, err := adapter.Exists(ctx, key)
		require.NoError(t, err)
		assert.True(t, exists, key)
	}

	data, err := adapter.LoadStoredData(ctx)
	require.NoError(t, err)
	assert.Empty(t, data.Records)
	assert.Equal(t, models.CurrentSchemaVersion, data.SchemaVersion)
	assert.Equal(t, models.DefaultUserPreferences(), data.Preferences)
	assert.Equal(t, models.DataFormatVersion, data.Metadata.Version)
	assert.Nil(t, data.LastBackup)

	again, err := adapter.Initialize(ctx)
	require.NoError(t, err)
	assert.True(t, again.NoOp())
}

func TestSaveRecordsRecomputesMetadata(t *testing.T) {
	ctx := context.Background()
	adapter, clock := newTestAdapter(t, NewMemoryStore(), 0)
	_, err := adapter.Initialize(ctx)
	require.NoError(t, err)
	before, err := adapter.LoadMetadata(ctx)
	require.NoError(t, err)

	clock.Advance(time.Hour)
	records := []models.PainRecord{
		sampleRecord("a", "2024-05-01", "08:00", 4),
		sampleRecord("b", "2024-05-02", "09:30", 6),
	}
	require.NoError(t, adapter.SaveRecords(ctx, records))

	metadata, err := adapter.LoadMetadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, metadata.RecordCount)
	assert.Equal(t, before.CreatedAt, metadata.CreatedAt)
	assert.Equal(t, clock.Now(), metadata.LastModified)

	size, err := adapter.Size(ctx)
	require.NoError(t, err)
	assert.InDelta(t, float64(size), float64(metadata.DataSize), 2)

	loaded, err := adapter.LoadRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, records, loaded)
}

func TestSaveRefusesWritePastQuotaCeiling(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	quota := int64(4096)
	adapter, _ := newTestAdapter(t, store, quota)
	_, err := adapter.Initialize(ctx)
	require.NoError(t, err)

	original := []models.PainRecord{sampleRecord("a", "2024-05-01", "08:00", 4)}
	require.NoError(t, adapter.SaveRecords(ctx, original))

	oversized := make([]models.PainRecord, 0, 40)
	for index := 0; index < 40; index++ {
		record := sampleRecord("id-"+strconv.Itoa(index), "2024-05-01", "08:00", 4)
		record.Notes = "a long note that takes up room in the store"
		oversized = append(oversized, record)
	}
	err = adapter.SaveRecords(ctx, oversized)

	var quotaErr *QuotaExceededError
	require.ErrorAs(t, err, &quotaErr)
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Equal(t, int64(float64(quota)*DefaultCeilingRatio), quotaErr.Limit)

	loaded, err := adapter.LoadRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, original, loaded)
}

type fullStore struct {
	*MemoryStore
	fail bool
}

func (store *fullStore) PutMany(ctx context.Context, values map[string][]byte) error {
	if store.fail {
		return errors.New("database or disk is full (13)")
	}
	return store.MemoryStore.PutMany(ctx, values)
}

func TestSaveMapsPlatformFullToQuotaError(t *testing.T) {
	ctx := context.Background()
	store := &fullStore{MemoryStore: NewMemoryStore()}
	adapter, _ := newTestAdapter(t, store, 0)
	_, err := adapter.Initialize(ctx)
	require.NoError(t, err)

	store.fail = true
	err = adapter.Save(ctx, models.PreferencesKey, models.DefaultUserPreferences())
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.NotErrorIs(t, err, ErrStorage)
}

func TestLoadRecordsRecoversFromAutoBackup(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	adapter, _ := newTestAdapter(t, store, 0)
	_, err := adapter.Initialize(ctx)
	require.NoError(t, err)

	records := []models.PainRecord{sampleRecord("a", "2024-05-01", "08:00", 4)}
	require.NoError(t, adapter.SaveRecords(ctx, records))
	require.NoError(t, adapter.AutoBackup(ctx))

	require.NoError(t, store.PutMany(ctx, map[string][]byte{models.RecordsKey: []byte(`{"broken`)}))

	loaded, err := adapter.LoadRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, records, loaded)

	repaired, ok, err := store.Get(ctx, models.RecordsKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, json.Valid(repaired))
}

func TestLoadRecordsWithoutBackupReportsCorruption(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	adapter, _ := newTestAdapter(t, store, 0)
	_, err := adapter.Initialize(ctx)
	require.NoError(t, err)

	require.NoError(t, store.PutMany(ctx, map[string][]byte{models.RecordsKey: []byte(`not json`)}))

	_, err = adapter.LoadRecords(ctx)
	var corruption *DataCorruptionError
	require.ErrorAs(t, err, &corruption)
	assert.Equal(t, models.RecordsKey, corruption.Key)
	assert.True(t, IsUnavailable(err))
}

func TestAutoBackupSkipsCorruptRecords(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	adapter, _ := newTestAdapter(t, store, 0)
	_, err := adapter.Initialize(ctx)
	require.NoError(t, err)
	records := []models.PainRecord{sampleRecord("a", "2024-05-01", "08:00", 4)}
	require.NoError(t, adapter.SaveRecords(ctx, records))
	require.NoError(t, adapter.AutoBackup(ctx))

	require.NoError(t, store.PutMany(ctx, map[string][]byte{models.RecordsKey: []byte(`[{`)}))
	assert.ErrorIs(t, adapter.AutoBackup(ctx), ErrDataCorruption)

	backup, ok, err := adapter.LoadAutoBackup(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, records, backup.Records)
}

func TestBackupRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	adapter, _ := newTestAdapter(t, NewMemoryStore(), 0)
	_, err := adapter.Initialize(ctx)
	require.NoError(t, err)
	records := []models.PainRecord{sampleRecord("a", "2024-05-01", "08:00", 4)}
	require.NoError(t, adapter.SaveRecords(ctx, records))

	snapshot, err := adapter.Backup(ctx)
	require.NoError(t, err)

	require.NoError(t, adapter.SaveRecords(ctx, nil))
	result, err := adapter.Restore(ctx, snapshot)
	require.NoError(t, err)
	assert.True(t, result.NoOp())

	loaded, err := adapter.LoadRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, records, loaded)
}

func TestRestoreRejectsMalformedSnapshot(t *testing.T) {
	ctx := context.Background()
	adapter, _ := newTestAdapter(t, NewMemoryStore(), 0)
	_, err := adapter.Initialize(ctx)
	require.NoError(t, err)
	records := []models.PainRecord{sampleRecord("a", "2024-05-01", "08:00", 4)}
	require.NoError(t, adapter.SaveRecords(ctx, records))

	_, err = adapter.Restore(ctx, []byte(`[1,2,3]`))
	assert.ErrorIs(t, err, ErrInvalidSnapshot)
	_, err = adapter.Restore(ctx, []byte(`{"preferences":{}}`))
	assert.ErrorIs(t, err, ErrInvalidSnapshot)
	_, err = adapter.Restore(ctx, []byte(`{"schemaVersion":1,"records":[{"id":"x"},{"id":"x"}]}`))
	assert.ErrorIs(t, err, ErrInvalidSnapshot)

	loaded, err := adapter.LoadRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, records, loaded)
}

func TestRestoreMigratesLegacySnapshot(t *testing.T) {
	ctx := context.Background()
	adapter, _ := newTestAdapter(t, NewMemoryStore(), 0)
	_, err := adapter.Initialize(ctx)
	require.NoError(t, err)

	result, err := adapter.Restore(ctx, []byte(`{"records":{"painEntries":[{"intensity":7,"date":"2024-01-01"}]}}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"legacy-to-v1"}, result.Applied)

	loaded, err := adapter.LoadRecords(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, 7, loaded[0].PainLevel)
}

func TestParseSnapshotAcceptsTopLevelLegacyPayloads(t *testing.T) {
	ctx := context.Background()
	adapter, _ := newTestAdapter(t, NewMemoryStore(), 0)
	_, err := adapter.Initialize(ctx)
	require.NoError(t, err)

	payloads := map[string]string{
		"pain entries": `{"painEntries":[{"intensity":6,"date":"2024-01-01"},{"intensity":2,"date":"2024-01-02"}]}`,
		"bare array":   `[{"painLevel":6,"date":"2024-01-01","time":"09:15"},{"painLevel":2,"date":"2024-01-02"}]`,
	}
	for name, payload := range payloads {
		t.Run(name, func(t *testing.T) {
			data, result, err := adapter.ParseSnapshot(ctx, []byte(payload))
			require.NoError(t, err)
			assert.Equal(t, []string{"legacy-to-v1"}, result.Applied)
			require.Len(t, data.Records, 2)
			assert.Equal(t, models.CurrentSchemaVersion, data.SchemaVersion)
		})
	}

	_, _, err = adapter.ParseSnapshot(ctx, []byte(`{"entries":[]}`))
	assert.ErrorIs(t, err, ErrInvalidSnapshot)
	_, _, err = adapter.ParseSnapshot(ctx, []byte(`null`))
	assert.ErrorIs(t, err, ErrInvalidSnapshot)
}

func TestInitializeMigratesLegacyStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.PutMany(ctx, map[string][]byte{
		models.RecordsKey: []byte(`[{"date":"2024-01-01","painLevel":5,"location":"back"}]`),
	}))
	adapter, _ := newTestAdapter(t, store, 0)

	result, err := adapter.Initialize(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.From)
	assert.Equal(t, models.CurrentSchemaVersion, result.To)

	version, err := adapter.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.CurrentSchemaVersion, version)

	records, err := adapter.LoadRecords(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, []string{models.LocationLowerBack}, records[0].Locations)

	snapshots, err := adapter.ListSnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	raw, err := adapter.LoadSnapshot(ctx, snapshots[0].Key)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"location":"back"`)
}

func TestInitializeFailedMigrationLeavesStoreUntouched(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	legacy := []byte(`{"entries":"unrecognised"}`)
	require.NoError(t, store.PutMany(ctx, map[string][]byte{models.RecordsKey: legacy}))
	adapter, _ := newTestAdapter(t, store, 0)

	_, err := adapter.Initialize(ctx)
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))

	raw, ok, err := store.Get(ctx, models.RecordsKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, legacy, raw)
	exists, err := store.Exists(ctx, models.SchemaVersionKey)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPruneSnapshotsKeepsNewest(t *testing.T) {
	ctx := context.Background()
	adapter, clock := newTestAdapter(t, NewMemoryStore(), 0)
	_, err := adapter.Initialize(ctx)
	require.NoError(t, err)

	first, err := adapter.SaveSnapshot(ctx)
	require.NoError(t, err)
	clock.Advance(24 * time.Hour)
	second, err := adapter.SaveSnapshot(ctx)
	require.NoError(t, err)
	clock.Advance(30 * 24 * time.Hour)

	pruned, err := adapter.PruneSnapshots(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, pruned)

	snapshots, err := adapter.ListSnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.Equal(t, second.Key, snapshots[0].Key)
	assert.NotEqual(t, first.Key, snapshots[0].Key)
}

func TestSnapshotKeysStayUniqueUnderFrozenClock(t *testing.T) {
	ctx := context.Background()
	adapter, _ := newTestAdapter(t, NewMemoryStore(), 0)
	_, err := adapter.Initialize(ctx)
	require.NoError(t, err)

	first, err := adapter.SaveSnapshot(ctx)
	require.NoError(t, err)
	second, err := adapter.SaveSnapshot(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first.Key, second.Key)

	data, err := adapter.LoadStoredData(ctx)
	require.NoError(t, err)
	require.NotNil(t, data.LastBackup)
}

func TestClearRetainsBackupsAndReseeds(t *testing.T) {
	ctx := context.Background()
	adapter, _ := newTestAdapter(t, NewMemoryStore(), 0)
	_, err := adapter.Initialize(ctx)
	require.NoError(t, err)
	require.NoError(t, adapter.SaveRecords(ctx, []models.PainRecord{sampleRecord("a", "2024-05-01", "08:00", 4)}))
	require.NoError(t, adapter.AutoBackup(ctx))
	snapshot, err := adapter.SaveSnapshot(ctx)
	require.NoError(t, err)

	require.NoError(t, adapter.Clear(ctx))

	records, err := adapter.LoadRecords(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
	backup, ok, err := adapter.LoadAutoBackup(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, backup.Records, 1)
	assert.Equal(t, "a", backup.Records[0].ID)
	raw, err := adapter.LoadSnapshot(ctx, snapshot.Key)
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
}

func TestQuotaUsageReportsCeiling(t *testing.T) {
	ctx := context.Background()
	adapter, _ := newTestAdapter(t, NewMemoryStore(), 10000)
	_, err := adapter.Initialize(ctx)
	require.NoError(t, err)

	usage, err := adapter.QuotaUsage(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), usage.Quota)
	assert.Equal(t, int64(9000), usage.Limit)
	assert.Equal(t, usage.Quota-usage.Used, usage.Available)
	assert.Greater(t, usage.Used, int64(0))
}

func TestAdapterOverSQLite(t *testing.T) {
	ctx := context.Background()
	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "paindiary.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.CloseSQLite(database) })

	adapter, _ := newTestAdapter(t, db.NewKeyValueRepository(database), 0)
	_, err = adapter.Initialize(ctx)
	require.NoError(t, err)

	records := []models.PainRecord{sampleRecord("a", "2024-05-01", "08:00", 4)}
	require.NoError(t, adapter.SaveRecords(ctx, records))
	loaded, err := adapter.LoadRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, records, loaded)

	metadata, err := adapter.LoadMetadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, metadata.RecordCount)
}
