package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/terraincognita07/paindiary/internal/api"
	"github.com/terraincognita07/paindiary/internal/config"
	"github.com/terraincognita07/paindiary/internal/logger"
	"github.com/terraincognita07/paindiary/internal/metrics"
)

const shutdownTimeout = 10 * time.Second

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the diary over the HTTP API",
		Long: `Serve the diary over a JSON HTTP API guarded by a passphrase login.

SECRET_KEY (at least 32 characters) signs API tokens and PASSPHRASE_HASH holds
the bcrypt hash printed by "paindiary hash-passphrase".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, rootOpts)
		},
	}
}

func runServe(cmd *cobra.Command, opts *RootOptions) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	secret, err := cfg.ResolveSecretKey()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid SECRET_KEY", err)
	}
	port, err := config.ResolvePort(cfg.Port)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid PORT", err)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return WrapExitError(ExitCommandError, "logger init failed", err)
	}
	sigCtx, stopSignals := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	runtime, err := openRuntime(sigCtx, opts, log)
	if err != nil {
		log.Sync()
		return err
	}
	defer runtime.close()

	handler, err := api.NewHandler(runtime.manager, api.HandlerOptions{
		SecretKey:      secret,
		PassphraseHash: cfg.PassphraseHash,
		TokenTTL:       cfg.TokenTTL,
		Logger:         log,
		Metrics:        metricsIfEnabled(runtime),
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "handler init failed", err)
	}
	app := api.NewApp(handler, api.AppOptions{AccessLog: os.Stdout})

	go func() {
		<-sigCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
	}()

	log.Info("paindiary listening", "address", "0.0.0.0:"+port, "db", cfg.DBPath, "tz", cfg.Location().String(), "migrated_steps", runtime.migrated.Applied)
	if err := app.Listen(":" + port); err != nil {
		return WrapExitError(ExitFailure, "server exited", err)
	}
	return nil
}

func metricsIfEnabled(runtime *diaryRuntime) *metrics.Metrics {
	if !runtime.cfg.MetricsEnabled {
		return nil
	}
	return runtime.metrics
}
