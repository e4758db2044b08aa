package services

import (
	"context"
	"sort"
	"time"

	"github.com/terraincognita07/paindiary/internal/migration"
	"github.com/terraincognita07/paindiary/internal/models"
	"github.com/terraincognita07/paindiary/internal/storage"
	"github.com/terraincognita07/paindiary/internal/validation"
)

const topFrequencyLimit = 5

type Frequency struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Statistics is derived on every call and never stored.
type Statistics struct {
	TotalRecords         int                `json:"totalRecords"`
	EarliestDate         string             `json:"earliestDate,omitempty"`
	LatestDate           string             `json:"latestDate,omitempty"`
	AveragePainLevel     float64            `json:"averagePainLevel"`
	AverageEffectiveness *float64           `json:"averageEffectiveness,omitempty"`
	TopPainTypes         []Frequency        `json:"topPainTypes"`
	TopLocations         []Frequency        `json:"topLocations"`
	TopSymptoms          []Frequency        `json:"topSymptoms"`
	ByMenstrualStatus    map[string]int     `json:"byMenstrualStatus"`
	StorageBytes         int64              `json:"storageBytes"`
	Quota                storage.QuotaUsage `json:"quota"`
	LastBackup           *time.Time         `json:"lastBackup,omitempty"`
}

type CleanupReport struct {
	Removed          int    `json:"removed"`
	RemainingRecords int    `json:"remainingRecords"`
	StorageBytes     int64  `json:"storageBytes"`
	Snapshot         string `json:"snapshot,omitempty"`
}

type ClearReport struct {
	RemovedRecords int    `json:"removedRecords"`
	Snapshot       string `json:"snapshot,omitempty"`
}

func (service *DataManager) GetDataStatistics(ctx context.Context) (stats Statistics, err error) {
	service.mu.Lock()
	defer service.mu.Unlock()
	defer func() { service.metrics.ObserveOperation("statistics", err) }()

	if err := service.available(); err != nil {
		return Statistics{}, err
	}
	data, err := service.store.LoadStoredData(ctx)
	if err != nil {
		return Statistics{}, service.guard(err)
	}
	usage, err := service.store.QuotaUsage(ctx)
	if err != nil {
		return Statistics{}, err
	}

	stats = BuildStatistics(data.Records)
	stats.StorageBytes = usage.Used
	stats.Quota = usage
	stats.LastBackup = data.LastBackup
	return stats, nil
}

// BuildStatistics derives the record-level part of Statistics.
func BuildStatistics(records []models.PainRecord) Statistics {
	stats := Statistics{
		TotalRecords:      len(records),
		TopPainTypes:      []Frequency{},
		TopLocations:      []Frequency{},
		TopSymptoms:       []Frequency{},
		ByMenstrualStatus: map[string]int{},
	}
	if len(records) == 0 {
		return stats
	}

	painTypes := map[string]int{}
	locations := map[string]int{}
	symptoms := map[string]int{}
	painTotal := 0
	effectivenessTotal := 0
	effectivenessCount := 0
	stats.EarliestDate = records[0].Date
	stats.LatestDate = records[0].Date

	for _, record := range records {
		if record.Date < stats.EarliestDate {
			stats.EarliestDate = record.Date
		}
		if record.Date > stats.LatestDate {
			stats.LatestDate = record.Date
		}
		painTotal += record.PainLevel
		if record.Effectiveness != nil {
			effectivenessTotal += *record.Effectiveness
			effectivenessCount++
		}
		countValues(painTypes, record.PainTypes)
		countValues(locations, record.Locations)
		countValues(symptoms, record.Symptoms)
		if record.MenstrualStatus != "" {
			stats.ByMenstrualStatus[record.MenstrualStatus]++
		}
	}

	stats.AveragePainLevel = roundTenth(float64(painTotal) / float64(len(records)))
	if effectivenessCount > 0 {
		average := roundTenth(float64(effectivenessTotal) / float64(effectivenessCount))
		stats.AverageEffectiveness = &average
	}
	stats.TopPainTypes = topFrequencies(painTypes, topFrequencyLimit)
	stats.TopLocations = topFrequencies(locations, topFrequencyLimit)
	stats.TopSymptoms = topFrequencies(symptoms, topFrequencyLimit)
	return stats
}

func countValues(counts map[string]int, values []string) {
	for _, value := range values {
		counts[value]++
	}
}

func topFrequencies(counts map[string]int, limit int) []Frequency {
	frequencies := make([]Frequency, 0, len(counts))
	for value, count := range counts {
		frequencies = append(frequencies, Frequency{Value: value, Count: count})
	}
	sort.Slice(frequencies, func(i, j int) bool {
		if frequencies[i].Count != frequencies[j].Count {
			return frequencies[i].Count > frequencies[j].Count
		}
		return frequencies[i].Value < frequencies[j].Value
	})
	if len(frequencies) > limit {
		frequencies = frequencies[:limit]
	}
	return frequencies
}

func roundTenth(value float64) float64 {
	return float64(int(value*10+0.5)) / 10
}

// PerformDataCleanup removes records that repeat the date, time and pain
// level of an earlier-created record.
func (service *DataManager) PerformDataCleanup(ctx context.Context) (report CleanupReport, err error) {
	service.mu.Lock()
	defer service.mu.Unlock()
	defer func() { service.metrics.ObserveOperation("cleanup", err) }()

	records, err := service.loadRecords(ctx)
	if err != nil {
		return CleanupReport{}, err
	}

	ordered := cloneRecords(records)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})
	type cleanupKey struct {
		date  string
		clock string
		level int
	}
	kept := make(map[string]struct{}, len(ordered))
	seen := make(map[cleanupKey]struct{}, len(ordered))
	for _, record := range ordered {
		key := cleanupKey{date: record.Date, clock: record.Time, level: record.PainLevel}
		if _, duplicate := seen[key]; duplicate {
			continue
		}
		seen[key] = struct{}{}
		kept[record.ID] = struct{}{}
	}
	next := make([]models.PainRecord, 0, len(kept))
	for _, record := range records {
		if _, ok := kept[record.ID]; ok {
			next = append(next, record)
			delete(kept, record.ID)
		}
	}

	change, err := service.begin(ctx, "cleanup", backupFull, records)
	if err != nil {
		return CleanupReport{}, err
	}
	report = CleanupReport{Removed: len(records) - len(next), RemainingRecords: len(next), Snapshot: change.snapshot}
	if report.Removed > 0 {
		if err := change.commitRecords(ctx, next); err != nil {
			return CleanupReport{}, service.guard(err)
		}
	} else {
		change.finish(ctx, len(next))
	}

	usage, err := service.store.QuotaUsage(ctx)
	if err != nil {
		return CleanupReport{}, err
	}
	report.StorageBytes = usage.Used
	service.log.Info("data cleanup finished", "removed", report.Removed, "remaining", report.RemainingRecords)
	return report, nil
}

// ClearAllData snapshots the store and then wipes records and preferences.
// The snapshot and the records auto-backup survive. A failed snapshot aborts
// the clear.
func (service *DataManager) ClearAllData(ctx context.Context) (report ClearReport, err error) {
	service.mu.Lock()
	defer service.mu.Unlock()
	defer func() { service.metrics.ObserveOperation("clear", err) }()

	records, err := service.loadRecords(ctx)
	if err != nil {
		return ClearReport{}, err
	}
	change, err := service.begin(ctx, "clear", backupFull, records)
	if err != nil {
		return ClearReport{}, err
	}
	if err := change.commit(ctx, func() error { return service.store.Clear(ctx) }, func() int { return 0 }); err != nil {
		return ClearReport{}, service.guard(err)
	}
	service.log.Warn("all data cleared", "records", len(records), "snapshot", change.snapshot)
	return ClearReport{RemovedRecords: len(records), Snapshot: change.snapshot}, nil
}

func (service *DataManager) GetPreferences(ctx context.Context) (preferences models.UserPreferences, err error) {
	service.mu.Lock()
	defer service.mu.Unlock()
	defer func() { service.metrics.ObserveOperation("get_preferences", err) }()

	if err := service.available(); err != nil {
		return models.UserPreferences{}, err
	}
	preferences, err = service.store.LoadPreferences(ctx)
	if err != nil {
		return models.UserPreferences{}, service.guard(err)
	}
	return preferences, nil
}

func (service *DataManager) UpdatePreferences(ctx context.Context, preferences models.UserPreferences) (result validation.Result, err error) {
	service.mu.Lock()
	defer service.mu.Unlock()
	defer func() { service.metrics.ObserveOperation("update_preferences", err) }()

	if err := service.available(); err != nil {
		return validation.Result{}, err
	}
	result = validation.ValidatePreferences(preferences)
	if err := result.Err(); err != nil {
		return result, err
	}
	records, err := service.loadRecords(ctx)
	if err != nil {
		return result, err
	}
	previous, err := service.store.LoadPreferences(ctx)
	if err != nil {
		return result, service.guard(err)
	}

	change, err := service.begin(ctx, "update_preferences", backupRecords, records)
	if err != nil {
		return result, err
	}
	apply := func() error { return service.store.SavePreferences(ctx, preferences) }
	if err := change.commit(ctx, apply, func() int { return len(records) }); err != nil {
		if restoreErr := service.store.SavePreferences(ctx, previous); restoreErr != nil {
			service.log.Error("restoring preferences failed", "error", restoreErr)
		}
		return result, service.guard(err)
	}
	return result, nil
}

func (service *DataManager) CreateBackup(ctx context.Context) (info storage.SnapshotInfo, err error) {
	service.mu.Lock()
	defer service.mu.Unlock()
	defer func() { service.metrics.ObserveOperation("create_backup", err) }()

	if err := service.available(); err != nil {
		return storage.SnapshotInfo{}, err
	}
	info, err = service.store.SaveSnapshot(ctx)
	if err != nil {
		return storage.SnapshotInfo{}, service.guard(err)
	}
	service.log.Info("backup created", "key", info.Key)
	return info, nil
}

func (service *DataManager) ListBackups(ctx context.Context) (snapshots []storage.SnapshotInfo, err error) {
	service.mu.Lock()
	defer service.mu.Unlock()
	defer func() { service.metrics.ObserveOperation("list_backups", err) }()

	if err := service.available(); err != nil {
		return nil, err
	}
	return service.store.ListSnapshots(ctx)
}

// RestoreBackup replaces the store with the snapshot under key after
// snapshotting the current state.
func (service *DataManager) RestoreBackup(ctx context.Context, key string) (result migration.Result, err error) {
	service.mu.Lock()
	defer service.mu.Unlock()
	defer func() { service.metrics.ObserveOperation("restore_backup", err) }()

	records, err := service.loadRecords(ctx)
	if err != nil {
		return migration.Result{}, err
	}
	raw, err := service.store.LoadSnapshot(ctx, key)
	if err != nil {
		return migration.Result{}, err
	}
	if _, _, err := service.store.ParseSnapshot(ctx, raw); err != nil {
		return migration.Result{}, err
	}

	change, err := service.begin(ctx, "restore_backup", backupFull, records)
	if err != nil {
		return migration.Result{}, err
	}
	restoredCount := 0
	apply := func() error {
		var restoreErr error
		result, restoreErr = service.store.Restore(ctx, raw)
		return restoreErr
	}
	count := func() int {
		if restored, loadErr := service.store.LoadRecords(ctx); loadErr == nil {
			restoredCount = len(restored)
		}
		return restoredCount
	}
	if err := change.commit(ctx, apply, count); err != nil {
		return migration.Result{}, service.guard(err)
	}
	service.log.Info("backup restored", "key", key, "records", restoredCount, "previous_snapshot", change.snapshot)
	return result, nil
}

func (service *DataManager) StorageUsage(ctx context.Context) (usage storage.QuotaUsage, err error) {
	service.mu.Lock()
	defer service.mu.Unlock()
	defer func() { service.metrics.ObserveOperation("storage_usage", err) }()

	return service.store.QuotaUsage(ctx)
}
