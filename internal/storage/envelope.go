package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/terraincognita07/paindiary/internal/migration"
	"github.com/terraincognita07/paindiary/internal/models"
)

// Initialize makes the store readable at the current schema version. A
// fresh store is seeded; an older one is snapshotted and migrated. When
// migration fails nothing is written and the error is returned as is.
func (adapter *Adapter) Initialize(ctx context.Context) (migration.Result, error) {
	current := adapter.pipeline.CurrentVersion()
	raw, err := adapter.readPrimary(ctx)
	if err != nil {
		return migration.Result{}, err
	}
	if len(raw) == 0 {
		adapter.log.Info("seeding empty store", "schema_version", current)
		return migration.Result{From: current, To: current}, adapter.seed(ctx)
	}

	version := 0
	if versionRaw, ok := raw[models.SchemaVersionKey]; ok {
		if err := json.Unmarshal(versionRaw, &version); err != nil {
			return migration.Result{}, &DataCorruptionError{Key: models.SchemaVersionKey, Err: err}
		}
		if version == current {
			return migration.Result{From: current, To: current}, adapter.repairPrimary(ctx, raw)
		}
	}

	doc, err := documentFromRaw(raw)
	if err != nil {
		return migration.Result{}, err
	}
	doc.SetVersion(version)

	if encoded, err := doc.Encode(); err == nil {
		if key, err := adapter.writeSnapshot(ctx, encoded); err != nil {
			adapter.log.Warn("pre-migration snapshot failed", "error", err)
		} else {
			adapter.log.Info("pre-migration snapshot saved", "key", key, "schema_version", version)
		}
	}

	migrated, result, err := adapter.pipeline.Migrate(ctx, doc)
	if err != nil {
		adapter.log.Error("schema migration failed", "from", version, "to", current, "error", err)
		return result, err
	}
	data := models.StoredData{}
	if err := migrated.Decode(&data); err != nil {
		return result, &DataCorruptionError{Key: models.RecordsKey, Err: fmt.Errorf("migrated document: %w", err)}
	}
	if err := adapter.writeStoredData(ctx, data); err != nil {
		return result, err
	}
	adapter.log.Info("schema migrated", "from", result.From, "to", result.To, "steps", len(result.Applied))
	return result, nil
}

func (adapter *Adapter) readPrimary(ctx context.Context) (map[string][]byte, error) {
	raw := make(map[string][]byte, 4)
	for _, key := range models.PrimaryKeys() {
		value, ok, err := adapter.store.Get(ctx, key)
		if err != nil {
			return nil, &StorageError{Op: "load", Key: key, Err: err}
		}
		if ok {
			raw[key] = value
		}
	}
	return raw, nil
}

func documentFromRaw(raw map[string][]byte) (migration.Document, error) {
	doc := migration.Document{}
	fields := map[string]string{
		models.RecordsKey:     migration.FieldRecords,
		models.PreferencesKey: migration.FieldPreferences,
		models.MetadataKey:    migration.FieldMetadata,
	}
	for key, field := range fields {
		value, ok := raw[key]
		if !ok {
			continue
		}
		var decoded any
		if err := json.Unmarshal(value, &decoded); err != nil {
			if key == models.RecordsKey {
				return nil, &DataCorruptionError{Key: key, Err: err}
			}
			continue
		}
		doc[field] = decoded
	}
	return doc, nil
}

// repairPrimary rewrites primary keys that are missing or unreadable at the
// current version. A corrupt records payload is left for Load to recover.
func (adapter *Adapter) repairPrimary(ctx context.Context, raw map[string][]byte) error {
	entries := make(map[string][]byte)
	if _, ok := raw[models.RecordsKey]; !ok {
		entries[models.RecordsKey] = []byte("[]")
	}
	preferences := models.DefaultUserPreferences()
	if value, ok := raw[models.PreferencesKey]; !ok || json.Unmarshal(value, &preferences) != nil {
		encoded, err := json.Marshal(models.DefaultUserPreferences())
		if err != nil {
			return &StorageError{Op: "encode", Key: models.PreferencesKey, Err: err}
		}
		entries[models.PreferencesKey] = encoded
	}
	metadata := models.StorageMetadata{}
	if value, ok := raw[models.MetadataKey]; !ok || json.Unmarshal(value, &metadata) != nil {
		var records []json.RawMessage
		if value, ok := raw[models.RecordsKey]; ok && json.Unmarshal(value, &records) == nil {
			entries[models.RecordsKey] = value
		}
	}
	if len(entries) == 0 {
		adapter.refreshUsage(ctx)
		return nil
	}
	adapter.log.Warn("repairing primary keys", "keys", len(entries))
	return adapter.commit(ctx, entries)
}

func (adapter *Adapter) seed(ctx context.Context) error {
	return adapter.writeStoredData(ctx, models.StoredData{
		Records:       []models.PainRecord{},
		Preferences:   models.DefaultUserPreferences(),
		SchemaVersion: adapter.pipeline.CurrentVersion(),
	})
}

// writeStoredData writes all four primary keys as one unit.
func (adapter *Adapter) writeStoredData(ctx context.Context, data models.StoredData) error {
	if data.Records == nil {
		data.Records = []models.PainRecord{}
	}
	entries := make(map[string][]byte, 4)
	values := map[string]any{
		models.RecordsKey:       data.Records,
		models.PreferencesKey:   data.Preferences,
		models.SchemaVersionKey: adapter.pipeline.CurrentVersion(),
	}
	if !data.Metadata.CreatedAt.IsZero() {
		values[models.MetadataKey] = data.Metadata
	}
	for key, value := range values {
		encoded, err := json.Marshal(value)
		if err != nil {
			return &StorageError{Op: "encode", Key: key, Err: err}
		}
		entries[key] = encoded
	}
	return adapter.commit(ctx, entries)
}

func (adapter *Adapter) LoadRecords(ctx context.Context) ([]models.PainRecord, error) {
	records := make([]models.PainRecord, 0)
	if _, err := adapter.Load(ctx, models.RecordsKey, &records); err != nil {
		return nil, err
	}
	if records == nil {
		records = make([]models.PainRecord, 0)
	}
	return records, nil
}

// SaveRecords replaces the full record collection.
func (adapter *Adapter) SaveRecords(ctx context.Context, records []models.PainRecord) error {
	if records == nil {
		records = []models.PainRecord{}
	}
	return adapter.Save(ctx, models.RecordsKey, records)
}

func (adapter *Adapter) LoadPreferences(ctx context.Context) (models.UserPreferences, error) {
	preferences := models.DefaultUserPreferences()
	if _, err := adapter.Load(ctx, models.PreferencesKey, &preferences); err != nil {
		return models.DefaultUserPreferences(), err
	}
	return preferences, nil
}

func (adapter *Adapter) SavePreferences(ctx context.Context, preferences models.UserPreferences) error {
	return adapter.Save(ctx, models.PreferencesKey, preferences)
}

func (adapter *Adapter) LoadMetadata(ctx context.Context) (models.StorageMetadata, error) {
	metadata := models.StorageMetadata{}
	if _, err := adapter.Load(ctx, models.MetadataKey, &metadata); err != nil {
		return models.StorageMetadata{}, err
	}
	return metadata, nil
}

func (adapter *Adapter) SchemaVersion(ctx context.Context) (int, error) {
	version := 0
	if _, err := adapter.Load(ctx, models.SchemaVersionKey, &version); err != nil {
		return 0, err
	}
	return version, nil
}

// LoadStoredData assembles the full envelope. LastBackup is derived from
// the newest backup on record.
func (adapter *Adapter) LoadStoredData(ctx context.Context) (models.StoredData, error) {
	records, err := adapter.LoadRecords(ctx)
	if err != nil {
		return models.StoredData{}, err
	}
	preferences, err := adapter.LoadPreferences(ctx)
	if err != nil {
		return models.StoredData{}, err
	}
	version, err := adapter.SchemaVersion(ctx)
	if err != nil {
		return models.StoredData{}, err
	}
	metadata, err := adapter.LoadMetadata(ctx)
	if err != nil {
		return models.StoredData{}, err
	}
	data := models.StoredData{
		Records:       records,
		Preferences:   preferences,
		SchemaVersion: version,
		Metadata:      metadata,
	}
	if lastBackup, ok := adapter.lastBackupTime(ctx); ok {
		data.LastBackup = &lastBackup
	}
	return data, nil
}

// Backup serialises records, preferences, schema version and metadata as
// one snapshot.
func (adapter *Adapter) Backup(ctx context.Context) ([]byte, error) {
	data, err := adapter.LoadStoredData(ctx)
	if err != nil {
		return nil, err
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		return nil, &StorageError{Op: "encode", Err: err}
	}
	return encoded, nil
}

// ParseSnapshot checks a serialised envelope and brings it to the current
// schema version without touching the store.
func (adapter *Adapter) ParseSnapshot(ctx context.Context, snapshot []byte) (models.StoredData, migration.Result, error) {
	doc, err := snapshotDocument(snapshot)
	if err != nil {
		return models.StoredData{}, migration.Result{}, err
	}

	migrated, result, err := adapter.pipeline.Migrate(ctx, doc)
	if err != nil {
		return models.StoredData{}, result, err
	}
	data := models.StoredData{}
	if err := migrated.Decode(&data); err != nil {
		return models.StoredData{}, result, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	if err := checkEnvelope(data); err != nil {
		return models.StoredData{}, result, err
	}
	if data.Records == nil {
		data.Records = []models.PainRecord{}
	}
	return data, result, nil
}

// snapshotDocument decodes an exported payload. Payloads without a records
// field are accepted when the whole payload is a legacy records layout: a bare
// array of entries or an object holding painEntries.
func snapshotDocument(snapshot []byte) (migration.Document, error) {
	var raw any
	if err := json.Unmarshal(snapshot, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	if object, ok := raw.(map[string]any); ok {
		if _, found := object[migration.FieldRecords]; found {
			return migration.Document(object), nil
		}
	}
	shape := migration.DetectLegacyShape(raw)
	if shape.Kind != migration.ShapeArray && shape.Kind != migration.ShapePainEntries {
		return nil, fmt.Errorf("%w: records are missing", ErrInvalidSnapshot)
	}
	for index, entry := range shape.Entries {
		if _, ok := entry.(map[string]any); !ok {
			return nil, fmt.Errorf("%w: entry %d is not an object", ErrInvalidSnapshot, index)
		}
	}
	return migration.Document{migration.FieldRecords: raw}, nil
}

// Restore validates snapshot, migrates it when behind and replaces the
// primary keys with its contents.
func (adapter *Adapter) Restore(ctx context.Context, snapshot []byte) (migration.Result, error) {
	data, result, err := adapter.ParseSnapshot(ctx, snapshot)
	if err != nil {
		return result, err
	}
	if err := adapter.WriteStoredData(ctx, data); err != nil {
		return result, err
	}
	adapter.log.Info("snapshot restored", "records", len(data.Records), "migrated_from", result.From)
	return result, nil
}

// WriteStoredData replaces the primary keys with data in one transaction.
func (adapter *Adapter) WriteStoredData(ctx context.Context, data models.StoredData) error {
	return adapter.writeStoredData(ctx, data)
}

func checkEnvelope(data models.StoredData) error {
	seen := make(map[string]struct{}, len(data.Records))
	for index, record := range data.Records {
		if record.ID == "" {
			return fmt.Errorf("%w: record %d has no id", ErrInvalidSnapshot, index)
		}
		if _, duplicate := seen[record.ID]; duplicate {
			return fmt.Errorf("%w: record id %q is duplicated", ErrInvalidSnapshot, record.ID)
		}
		seen[record.ID] = struct{}{}
	}
	return nil
}

// IsUnavailable reports errors that make the whole store unreadable rather
// than a single request invalid.
func IsUnavailable(err error) bool {
	var migrationErr *migration.MigrationError
	return errors.Is(err, ErrDataCorruption) ||
		errors.As(err, &migrationErr) ||
		errors.Is(err, migration.ErrUnsupportedVersion)
}
