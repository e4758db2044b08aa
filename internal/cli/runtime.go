package cli

import (
	"context"

	"github.com/terraincognita07/paindiary/internal/config"
	"github.com/terraincognita07/paindiary/internal/db"
	"github.com/terraincognita07/paindiary/internal/logger"
	"github.com/terraincognita07/paindiary/internal/metrics"
	"github.com/terraincognita07/paindiary/internal/migration"
	"github.com/terraincognita07/paindiary/internal/services"
	"github.com/terraincognita07/paindiary/internal/storage"
	"github.com/terraincognita07/paindiary/internal/validation"
	"gorm.io/gorm"
)

// diaryRuntime is the wired store stack one command works against.
type diaryRuntime struct {
	cfg      config.Config
	log      *logger.Logger
	metrics  *metrics.Metrics
	database *gorm.DB
	adapter  *storage.Adapter
	manager  *services.DataManager
	migrated migration.Result
}

func openRuntime(ctx context.Context, opts *RootOptions, log *logger.Logger) (*diaryRuntime, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = commandLogger(opts, cfg)
	}

	database, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "database init failed", err)
	}

	location := cfg.Location()
	collectors := metrics.New()
	storageOptions := cfg.StorageOptions()
	storageOptions.Metrics = collectors

	pipeline := migration.NewDefaultPipeline(migration.LegacyOptions{Location: location}, log)
	adapter := storage.NewAdapter(db.NewRepositories(database).KeyValues, pipeline, log, storageOptions)
	manager := services.NewDataManager(adapter, log, services.DataManagerOptions{
		Validator: validation.NewValidator(validation.Options{MinDate: cfg.MinDate(), Location: location}),
		Metrics:   collectors,
		Location:  location,
	})

	runtime := &diaryRuntime{
		cfg:      cfg,
		log:      log,
		metrics:  collectors,
		database: database,
		adapter:  adapter,
		manager:  manager,
	}
	runtime.migrated, err = manager.Open(ctx)
	if err != nil {
		runtime.close()
		return nil, WrapExitError(ExitFailure, "store unavailable", err)
	}
	return runtime, nil
}

func (runtime *diaryRuntime) close() {
	if err := db.CloseSQLite(runtime.database); err != nil {
		runtime.log.Warn("closing database failed", "error", err)
	}
	runtime.log.Sync()
}

// commandLogger stays silent for one-shot commands unless --verbose is set.
func commandLogger(opts *RootOptions, cfg config.Config) *logger.Logger {
	if !opts.Verbose {
		return logger.NewNop()
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return logger.NewNop()
	}
	return log
}
