package storage

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/terraincognita07/paindiary/internal/models"
)

type SnapshotInfo struct {
	Key       string    `json:"key"`
	CreatedAt time.Time `json:"createdAt"`
	SizeBytes int64     `json:"sizeBytes"`
}

// AutoBackup mirrors the current records payload into the auto-backup key.
// An unreadable records payload is never mirrored over a good backup.
func (adapter *Adapter) AutoBackup(ctx context.Context) error {
	raw, ok, err := adapter.store.Get(ctx, models.RecordsKey)
	if err != nil {
		adapter.metrics.ObserveBackup("auto", err)
		return &StorageError{Op: "backup", Key: models.RecordsKey, Err: err}
	}
	records := make([]models.PainRecord, 0)
	if ok {
		if err := json.Unmarshal(raw, &records); err != nil {
			corruption := &DataCorruptionError{Key: models.RecordsKey, Err: err}
			adapter.metrics.ObserveBackup("auto", corruption)
			return corruption
		}
	}

	backup := models.AutoBackup{
		CreatedAt:     adapter.now().UTC(),
		SchemaVersion: adapter.pipeline.CurrentVersion(),
		Records:       records,
	}
	encoded, err := json.Marshal(backup)
	if err != nil {
		return &StorageError{Op: "encode", Key: models.AutoBackupKey, Err: err}
	}
	err = adapter.commit(ctx, map[string][]byte{models.AutoBackupKey: encoded})
	adapter.metrics.ObserveBackup("auto", err)
	return err
}

func (adapter *Adapter) LoadAutoBackup(ctx context.Context) (models.AutoBackup, bool, error) {
	raw, ok, err := adapter.store.Get(ctx, models.AutoBackupKey)
	if err != nil {
		return models.AutoBackup{}, false, &StorageError{Op: "load", Key: models.AutoBackupKey, Err: err}
	}
	if !ok {
		return models.AutoBackup{}, false, nil
	}
	backup := models.AutoBackup{}
	if err := json.Unmarshal(raw, &backup); err != nil {
		return models.AutoBackup{}, false, &DataCorruptionError{Key: models.AutoBackupKey, Err: err}
	}
	if backup.Records == nil {
		backup.Records = []models.PainRecord{}
	}
	return backup, true, nil
}

// SaveSnapshot stores a full Backup under a fresh snapshot key.
func (adapter *Adapter) SaveSnapshot(ctx context.Context) (SnapshotInfo, error) {
	encoded, err := adapter.Backup(ctx)
	if err != nil {
		adapter.metrics.ObserveBackup("snapshot", err)
		return SnapshotInfo{}, err
	}
	key, err := adapter.writeSnapshot(ctx, encoded)
	adapter.metrics.ObserveBackup("snapshot", err)
	if err != nil {
		return SnapshotInfo{}, err
	}
	createdAt, _ := snapshotTime(key)
	return SnapshotInfo{Key: key, CreatedAt: createdAt, SizeBytes: int64(len(key) + len(encoded))}, nil
}

func (adapter *Adapter) writeSnapshot(ctx context.Context, encoded []byte) (string, error) {
	stamp := adapter.now().UTC().UnixNano()
	key := models.SnapshotKeyPrefix + strconv.FormatInt(stamp, 10)
	for {
		exists, err := adapter.store.Exists(ctx, key)
		if err != nil {
			return "", &StorageError{Op: "backup", Key: key, Err: err}
		}
		if !exists {
			break
		}
		stamp++
		key = models.SnapshotKeyPrefix + strconv.FormatInt(stamp, 10)
	}
	if err := adapter.commit(ctx, map[string][]byte{key: encoded}); err != nil {
		return "", err
	}
	return key, nil
}

// ListSnapshots returns snapshots newest first.
func (adapter *Adapter) ListSnapshots(ctx context.Context) ([]SnapshotInfo, error) {
	keys, err := adapter.store.Keys(ctx, models.SnapshotKeyPrefix)
	if err != nil {
		return nil, &StorageError{Op: "list", Key: models.SnapshotKeyPrefix, Err: err}
	}
	snapshots := make([]SnapshotInfo, 0, len(keys))
	for _, key := range keys {
		createdAt, ok := snapshotTime(key)
		if !ok {
			continue
		}
		size, err := adapter.store.EntrySize(ctx, key)
		if err != nil {
			return nil, &StorageError{Op: "size", Key: key, Err: err}
		}
		snapshots = append(snapshots, SnapshotInfo{Key: key, CreatedAt: createdAt, SizeBytes: size})
	}
	sort.SliceStable(snapshots, func(i, j int) bool {
		return snapshots[i].CreatedAt.After(snapshots[j].CreatedAt)
	})
	return snapshots, nil
}

func (adapter *Adapter) LoadSnapshot(ctx context.Context, key string) ([]byte, error) {
	if _, ok := snapshotTime(key); !ok {
		return nil, ErrSnapshotNotFound
	}
	raw, ok, err := adapter.store.Get(ctx, key)
	if err != nil {
		return nil, &StorageError{Op: "load", Key: key, Err: err}
	}
	if !ok {
		return nil, ErrSnapshotNotFound
	}
	return raw, nil
}

// PruneSnapshots deletes snapshots older than retention, always keeping the
// newest one. A non-positive retention uses the adapter default.
func (adapter *Adapter) PruneSnapshots(ctx context.Context, retention time.Duration) (int, error) {
	if retention <= 0 {
		retention = adapter.retention
	}
	snapshots, err := adapter.ListSnapshots(ctx)
	if err != nil {
		return 0, err
	}
	if len(snapshots) <= 1 {
		return 0, nil
	}
	cutoff := adapter.now().UTC().Add(-retention)
	stale := make([]string, 0)
	for _, snapshot := range snapshots[1:] {
		if snapshot.CreatedAt.Before(cutoff) {
			stale = append(stale, snapshot.Key)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}
	if err := adapter.store.Delete(ctx, stale...); err != nil {
		return 0, &StorageError{Op: "prune", Key: models.SnapshotKeyPrefix, Err: err}
	}
	adapter.refreshUsage(ctx)
	adapter.log.Info("stale snapshots pruned", "count", len(stale))
	return len(stale), nil
}

func (adapter *Adapter) lastBackupTime(ctx context.Context) (time.Time, bool) {
	var newest time.Time
	if backup, ok, err := adapter.LoadAutoBackup(ctx); err == nil && ok {
		newest = backup.CreatedAt
	}
	if snapshots, err := adapter.ListSnapshots(ctx); err == nil && len(snapshots) > 0 {
		if snapshots[0].CreatedAt.After(newest) {
			newest = snapshots[0].CreatedAt
		}
	}
	return newest, !newest.IsZero()
}

func snapshotTime(key string) (time.Time, bool) {
	suffix, found := strings.CutPrefix(key, models.SnapshotKeyPrefix)
	if !found || suffix == "" {
		return time.Time{}, false
	}
	nanos, err := strconv.ParseInt(suffix, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(0, nanos).UTC(), true
}

// LatestSnapshot returns the newest snapshot payload.
func (adapter *Adapter) LatestSnapshot(ctx context.Context) (SnapshotInfo, []byte, error) {
	snapshots, err := adapter.ListSnapshots(ctx)
	if err != nil {
		return SnapshotInfo{}, nil, err
	}
	if len(snapshots) == 0 {
		return SnapshotInfo{}, nil, ErrSnapshotNotFound
	}
	raw, err := adapter.LoadSnapshot(ctx, snapshots[0].Key)
	if err != nil {
		return SnapshotInfo{}, nil, err
	}
	return snapshots[0], raw, nil
}
