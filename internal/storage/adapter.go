package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/terraincognita07/paindiary/internal/db"
	"github.com/terraincognita07/paindiary/internal/logger"
	"github.com/terraincognita07/paindiary/internal/metrics"
	"github.com/terraincognita07/paindiary/internal/migration"
	"github.com/terraincognita07/paindiary/internal/models"
)

const (
	DefaultQuotaBytes      int64 = 5 * 1024 * 1024
	DefaultCeilingRatio          = 0.9
	DefaultBackupRetention       = 7 * 24 * time.Hour
)

type Options struct {
	QuotaBytes      int64
	CeilingRatio    float64
	BackupRetention time.Duration
	Metrics         *metrics.Metrics
	Now             func() time.Time
}

// Adapter is the only component that touches the key/value store. It knows
// key names and envelope shapes but nothing about record rules.
type Adapter struct {
	store     Store
	pipeline  *migration.Pipeline
	log       *logger.Logger
	metrics   *metrics.Metrics
	quota     int64
	ceiling   float64
	retention time.Duration
	now       func() time.Time
}

type QuotaUsage struct {
	Used      int64   `json:"used"`
	Available int64   `json:"available"`
	Quota     int64   `json:"quota"`
	Limit     int64   `json:"limit"`
	Percent   float64 `json:"percent"`
}

func NewAdapter(store Store, pipeline *migration.Pipeline, log *logger.Logger, options Options) *Adapter {
	if log == nil {
		log = logger.NewNop()
	}
	if options.QuotaBytes <= 0 {
		options.QuotaBytes = DefaultQuotaBytes
	}
	if options.CeilingRatio <= 0 || options.CeilingRatio > 1 {
		options.CeilingRatio = DefaultCeilingRatio
	}
	if options.BackupRetention <= 0 {
		options.BackupRetention = DefaultBackupRetention
	}
	if options.Now == nil {
		options.Now = time.Now
	}
	adapter := &Adapter{
		store:     store,
		pipeline:  pipeline,
		log:       log.With("component", "storage"),
		metrics:   options.Metrics,
		quota:     options.QuotaBytes,
		ceiling:   options.CeilingRatio,
		retention: options.BackupRetention,
		now:       options.Now,
	}
	adapter.metrics.SetStorageUsage(0, adapter.quota)
	return adapter
}

func (adapter *Adapter) Pipeline() *migration.Pipeline {
	return adapter.pipeline
}

func (adapter *Adapter) limit() int64 {
	return int64(float64(adapter.quota) * adapter.ceiling)
}

// Save serialises value to JSON under key. Writing the records key also
// rewrites the metadata key in the same transaction.
func (adapter *Adapter) Save(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return &StorageError{Op: "encode", Key: key, Err: err}
	}
	return adapter.commit(ctx, map[string][]byte{key: raw})
}

// Load decodes the value under key into target and reports whether the key
// existed. An unreadable records payload is replaced by the auto-backup when
// one exists.
func (adapter *Adapter) Load(ctx context.Context, key string, target any) (bool, error) {
	raw, ok, err := adapter.store.Get(ctx, key)
	if err != nil {
		return false, &StorageError{Op: "load", Key: key, Err: err}
	}
	if !ok {
		return false, nil
	}
	decodeErr := json.Unmarshal(raw, target)
	if decodeErr == nil {
		return true, nil
	}
	if key != models.RecordsKey {
		return false, &DataCorruptionError{Key: key, Err: decodeErr}
	}
	if err := adapter.recoverRecords(ctx, target); err != nil {
		adapter.log.Error("records payload corrupted and no usable auto-backup", "error", decodeErr, "recovery_error", err)
		return false, &DataCorruptionError{Key: key, Err: decodeErr}
	}
	return true, nil
}

func (adapter *Adapter) recoverRecords(ctx context.Context, target any) error {
	backup, found, err := adapter.LoadAutoBackup(ctx)
	if err != nil {
		return err
	}
	if !found {
		return errors.New("no auto-backup present")
	}
	raw, err := json.Marshal(backup.Records)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return err
	}
	adapter.log.Warn("records payload corrupted, recovered from auto-backup", "backup_created_at", backup.CreatedAt, "records", len(backup.Records))
	if err := adapter.commit(ctx, map[string][]byte{models.RecordsKey: raw}); err != nil {
		adapter.log.Warn("could not repair records payload from auto-backup", "error", err)
	}
	return nil
}

func (adapter *Adapter) Remove(ctx context.Context, key string) error {
	if err := adapter.store.Delete(ctx, key); err != nil {
		return &StorageError{Op: "remove", Key: key, Err: err}
	}
	adapter.refreshUsage(ctx)
	return nil
}

// Clear removes the primary keys, then seeds an empty store. The records
// auto-backup and snapshot keys are retained.
func (adapter *Adapter) Clear(ctx context.Context) error {
	if err := adapter.store.Delete(ctx, models.PrimaryKeys()...); err != nil {
		return &StorageError{Op: "clear", Err: err}
	}
	adapter.log.Info("store cleared")
	return adapter.seed(ctx)
}

func (adapter *Adapter) Exists(ctx context.Context, key string) (bool, error) {
	exists, err := adapter.store.Exists(ctx, key)
	if err != nil {
		return false, &StorageError{Op: "exists", Key: key, Err: err}
	}
	return exists, nil
}

// Size is the number of bytes the store currently accounts for.
func (adapter *Adapter) Size(ctx context.Context) (int64, error) {
	size, err := adapter.store.TotalSize(ctx)
	if err != nil {
		return 0, &StorageError{Op: "size", Err: err}
	}
	return size, nil
}

func (adapter *Adapter) QuotaUsage(ctx context.Context) (QuotaUsage, error) {
	used, err := adapter.Size(ctx)
	if err != nil {
		return QuotaUsage{}, err
	}
	available := adapter.quota - used
	if available < 0 {
		available = 0
	}
	return QuotaUsage{
		Used:      used,
		Available: available,
		Quota:     adapter.quota,
		Limit:     adapter.limit(),
		Percent:   float64(used) / float64(adapter.quota) * 100,
	}, nil
}

// commit writes entries in one transaction after the quota check. Metadata
// is recomputed whenever the records key is part of the batch.
func (adapter *Adapter) commit(ctx context.Context, entries map[string][]byte) error {
	firstKey := ""
	for key := range entries {
		if firstKey == "" || key < firstKey {
			firstKey = key
		}
	}

	keys := make([]string, 0, len(entries)+1)
	for key := range entries {
		keys = append(keys, key)
	}
	_, hasRecords := entries[models.RecordsKey]
	_, hasMetadata := entries[models.MetadataKey]
	if hasRecords && !hasMetadata {
		keys = append(keys, models.MetadataKey)
	}

	total, err := adapter.store.TotalSize(ctx)
	if err != nil {
		return &StorageError{Op: "size", Key: firstKey, Err: err}
	}
	var replaced int64
	for _, key := range keys {
		size, err := adapter.store.EntrySize(ctx, key)
		if err != nil {
			return &StorageError{Op: "size", Key: key, Err: err}
		}
		replaced += size
	}
	others := total - replaced

	var incoming int64
	for key, value := range entries {
		if key == models.MetadataKey {
			continue
		}
		incoming += db.EntrySize(key, value)
	}

	if hasRecords {
		metadataRaw, err := adapter.recomputeMetadata(ctx, entries, others+incoming)
		if err != nil {
			return err
		}
		entries[models.MetadataKey] = metadataRaw
	}
	if raw, ok := entries[models.MetadataKey]; ok {
		incoming += db.EntrySize(models.MetadataKey, raw)
	}

	projected := others + incoming
	if limit := adapter.limit(); projected > limit {
		adapter.log.Warn("write refused by quota ceiling", "key", firstKey, "projected", projected, "limit", limit)
		return &QuotaExceededError{Key: firstKey, Used: total, Required: incoming, Limit: limit}
	}

	if err := adapter.store.PutMany(ctx, entries); err != nil {
		if isPlatformFull(err) {
			return &QuotaExceededError{Key: firstKey, Used: total, Required: incoming, Limit: adapter.limit(), Err: err}
		}
		return &StorageError{Op: "save", Key: firstKey, Err: err}
	}
	adapter.metrics.SetStorageUsage(projected, adapter.quota)
	return nil
}

func (adapter *Adapter) recomputeMetadata(ctx context.Context, entries map[string][]byte, sizeWithoutMetadata int64) ([]byte, error) {
	var records []json.RawMessage
	if err := json.Unmarshal(entries[models.RecordsKey], &records); err != nil {
		return nil, &StorageError{Op: "encode", Key: models.RecordsKey, Err: fmt.Errorf("records payload is not an array: %w", err)}
	}

	now := adapter.now().UTC()
	metadata := models.StorageMetadata{CreatedAt: now}
	if raw, ok := entries[models.MetadataKey]; ok {
		_ = json.Unmarshal(raw, &metadata)
	} else if raw, ok, err := adapter.store.Get(ctx, models.MetadataKey); err == nil && ok {
		_ = json.Unmarshal(raw, &metadata)
	}
	if metadata.CreatedAt.IsZero() {
		metadata.CreatedAt = now
	}
	metadata.LastModified = now
	metadata.RecordCount = len(records)
	metadata.Version = models.DataFormatVersion
	metadata.DataSize = sizeWithoutMetadata

	draft, err := json.Marshal(metadata)
	if err != nil {
		return nil, &StorageError{Op: "encode", Key: models.MetadataKey, Err: err}
	}
	metadata.DataSize += db.EntrySize(models.MetadataKey, draft)
	raw, err := json.Marshal(metadata)
	if err != nil {
		return nil, &StorageError{Op: "encode", Key: models.MetadataKey, Err: err}
	}
	return raw, nil
}

func (adapter *Adapter) refreshUsage(ctx context.Context) {
	if adapter.metrics == nil {
		return
	}
	if used, err := adapter.store.TotalSize(ctx); err == nil {
		adapter.metrics.SetStorageUsage(used, adapter.quota)
	}
}
