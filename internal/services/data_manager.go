package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/terraincognita07/paindiary/internal/logger"
	"github.com/terraincognita07/paindiary/internal/metrics"
	"github.com/terraincognita07/paindiary/internal/migration"
	"github.com/terraincognita07/paindiary/internal/models"
	"github.com/terraincognita07/paindiary/internal/storage"
	"github.com/terraincognita07/paindiary/internal/validation"
)

// DataStore is the storage surface the Data Manager needs.
// *storage.Adapter implements it.
type DataStore interface {
	Initialize(ctx context.Context) (migration.Result, error)
	LoadRecords(ctx context.Context) ([]models.PainRecord, error)
	SaveRecords(ctx context.Context, records []models.PainRecord) error
	LoadPreferences(ctx context.Context) (models.UserPreferences, error)
	SavePreferences(ctx context.Context, preferences models.UserPreferences) error
	LoadStoredData(ctx context.Context) (models.StoredData, error)
	WriteStoredData(ctx context.Context, data models.StoredData) error
	ParseSnapshot(ctx context.Context, snapshot []byte) (models.StoredData, migration.Result, error)
	Restore(ctx context.Context, snapshot []byte) (migration.Result, error)
	Clear(ctx context.Context) error
	AutoBackup(ctx context.Context) error
	SaveSnapshot(ctx context.Context) (storage.SnapshotInfo, error)
	ListSnapshots(ctx context.Context) ([]storage.SnapshotInfo, error)
	LoadSnapshot(ctx context.Context, key string) ([]byte, error)
	PruneSnapshots(ctx context.Context, retention time.Duration) (int, error)
	QuotaUsage(ctx context.Context) (storage.QuotaUsage, error)
}

var _ DataStore = (*storage.Adapter)(nil)

type DataManagerOptions struct {
	Validator *validation.Validator
	Metrics   *metrics.Metrics
	Now       func() time.Time
	NewID     func() string
	Location  *time.Location
}

// DataManager is the application-facing facade over the store. Operations
// are serialised by one mutex; a second process writing the same store is
// not detected.
type DataManager struct {
	mu        sync.Mutex
	store     DataStore
	validator *validation.Validator
	log       *logger.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
	newID     func() string
	location  *time.Location

	opened  bool
	openErr error
}

func NewDataManager(store DataStore, log *logger.Logger, options DataManagerOptions) *DataManager {
	if log == nil {
		log = logger.NewNop()
	}
	if options.Now == nil {
		options.Now = time.Now
	}
	if options.Location == nil {
		options.Location = time.UTC
	}
	if options.NewID == nil {
		options.NewID = func() string { return uuid.Must(uuid.NewV7()).String() }
	}
	if options.Validator == nil {
		options.Validator = validation.NewValidator(validation.Options{Now: options.Now, Location: options.Location})
	}
	return &DataManager{
		store:     store,
		validator: options.Validator,
		log:       log.With("component", "data_manager"),
		metrics:   options.Metrics,
		now:       options.Now,
		newID:     options.NewID,
		location:  options.Location,
	}
}

// Open initializes the store, migrating it when needed. Until Open succeeds
// every other operation fails with ErrStoreUnavailable.
func (service *DataManager) Open(ctx context.Context) (result migration.Result, err error) {
	service.mu.Lock()
	defer service.mu.Unlock()
	defer func() { service.metrics.ObserveOperation("open", err) }()

	result, err = service.store.Initialize(ctx)
	if err != nil {
		service.opened = false
		service.openErr = err
		service.log.Error("store could not be opened", "error", err)
		return result, &UnavailableError{Err: err}
	}
	service.opened = true
	service.openErr = nil
	if !result.NoOp() {
		service.log.Info("store migrated", "from", result.From, "to", result.To, "steps", result.Applied)
	}
	if records, loadErr := service.store.LoadRecords(ctx); loadErr == nil {
		service.metrics.SetRecordCount(len(records))
	}
	return result, nil
}

// Ready reports nil once the store is open and usable.
func (service *DataManager) Ready() error {
	service.mu.Lock()
	defer service.mu.Unlock()
	return service.available()
}

func (service *DataManager) available() error {
	if service.opened {
		return nil
	}
	if service.openErr != nil {
		return &UnavailableError{Err: service.openErr}
	}
	return &UnavailableError{Err: errors.New("store has not been opened")}
}

// guard marks the store unavailable when a read or write reveals corruption
// or a failed migration.
func (service *DataManager) guard(err error) error {
	if err == nil {
		return nil
	}
	if storage.IsUnavailable(err) && !errors.Is(err, ErrStoreUnavailable) {
		return &UnavailableError{Err: err}
	}
	return err
}

func (service *DataManager) loadRecords(ctx context.Context) ([]models.PainRecord, error) {
	if err := service.available(); err != nil {
		return nil, err
	}
	records, err := service.store.LoadRecords(ctx)
	if err != nil {
		return nil, service.guard(err)
	}
	return records, nil
}

type backupKind int

const (
	backupRecords backupKind = iota
	backupFull
)

// recordsChange is one backup, mutate, restore-on-failure cycle over the
// record collection.
type recordsChange struct {
	service  *DataManager
	op       string
	previous []models.PainRecord
	snapshot string
}

// begin takes the backup for op. A failed records auto-backup is logged and
// the change proceeds. A failed full snapshot aborts the change: operations
// taking one discard data the auto-backup cannot bring back.
func (service *DataManager) begin(ctx context.Context, op string, kind backupKind, previous []models.PainRecord) (*recordsChange, error) {
	change := &recordsChange{service: service, op: op, previous: cloneRecords(previous)}
	if err := service.store.AutoBackup(ctx); err != nil {
		service.log.Warn("auto-backup before mutation failed, continuing", "operation", op, "error", err)
	}
	if kind != backupFull {
		return change, nil
	}
	info, err := service.store.SaveSnapshot(ctx)
	if err != nil {
		service.log.Error("snapshot before mutation failed, aborting", "operation", op, "error", err)
		return nil, &BackupError{Op: op, Err: err}
	}
	change.snapshot = info.Key
	return change, nil
}

// commitRecords writes next, restoring the previous collection when the
// write fails.
func (change *recordsChange) commitRecords(ctx context.Context, next []models.PainRecord) error {
	if err := change.service.store.SaveRecords(ctx, next); err != nil {
		change.rollback(ctx, err)
		return err
	}
	change.finish(ctx, len(next))
	return nil
}

// commit runs apply, which performs a write other than a plain records
// replacement.
func (change *recordsChange) commit(ctx context.Context, apply func() error, count func() int) error {
	if err := apply(); err != nil {
		change.rollback(ctx, err)
		return err
	}
	change.finish(ctx, count())
	return nil
}

func (change *recordsChange) rollback(ctx context.Context, cause error) {
	service := change.service
	if change.snapshot != "" {
		raw, err := service.store.LoadSnapshot(ctx, change.snapshot)
		if err == nil {
			_, err = service.store.Restore(ctx, raw)
		}
		if err != nil {
			service.log.Error("restore after failed mutation failed", "operation", change.op, "snapshot", change.snapshot, "cause", cause, "error", err)
		}
		return
	}
	if err := service.store.SaveRecords(ctx, change.previous); err != nil {
		service.log.Error("restore after failed mutation failed", "operation", change.op, "cause", cause, "error", err)
	}
}

func (change *recordsChange) finish(ctx context.Context, count int) {
	service := change.service
	service.metrics.SetRecordCount(count)
	retention := time.Duration(0)
	if preferences, err := service.store.LoadPreferences(ctx); err == nil && preferences.Privacy.BackupRetentionDays > 0 {
		retention = time.Duration(preferences.Privacy.BackupRetentionDays) * 24 * time.Hour
	}
	if _, err := service.store.PruneSnapshots(ctx, retention); err != nil {
		service.log.Warn("snapshot pruning failed", "error", err)
	}
}

func cloneRecords(records []models.PainRecord) []models.PainRecord {
	cloned := make([]models.PainRecord, 0, len(records))
	for _, record := range records {
		cloned = append(cloned, record.Clone())
	}
	return cloned
}

func (service *DataManager) timestamp() time.Time {
	return service.now().UTC()
}
