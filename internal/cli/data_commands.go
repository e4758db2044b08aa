package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/terraincognita07/paindiary/internal/models"
	"github.com/terraincognita07/paindiary/internal/services"
)

type ExportOptions struct {
	*RootOptions
	As     string
	Output string
}

func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the diary as JSON or CSV",
		Long: `Export the diary.

JSON exports carry the full envelope (records, preferences, schema version,
metadata) and can be imported again. CSV exports carry records only.

Examples:
  paindiary export --output diary.json
  paindiary export --as csv > diary.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.As, "as", models.ExportFormatJSON, "export format (json|csv)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write to a file instead of stdout")
	return cmd
}

func runExport(cmd *cobra.Command, opts *ExportOptions) error {
	format := strings.ToLower(strings.TrimSpace(opts.As))
	if format != models.ExportFormatJSON && format != models.ExportFormatCSV {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid export format %q: must be json or csv", opts.As))
	}

	runtime, err := openRuntime(cmd.Context(), opts.RootOptions, nil)
	if err != nil {
		return err
	}
	defer runtime.close()

	writer := cmd.OutOrStdout()
	if opts.Output != "" {
		file, err := os.OpenFile(opts.Output, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open output file", err)
		}
		defer file.Close()
		writer = file
	}

	if format == models.ExportFormatCSV {
		if err := runtime.manager.ExportCSV(cmd.Context(), writer); err != nil {
			return WrapExitError(ExitFailure, "export failed", err)
		}
		return nil
	}
	payload, err := runtime.manager.ExportJSON(cmd.Context())
	if err != nil {
		return WrapExitError(ExitFailure, "export failed", err)
	}
	if _, err := writer.Write(append(payload, '\n')); err != nil {
		return WrapExitError(ExitCommandError, "failed to write export", err)
	}
	return nil
}

type ImportOptions struct {
	*RootOptions
	Mode string
}

func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a JSON export",
		Long: `Import a JSON export, migrating it first when it was written by an older
version. Every record is validated before anything is written; one invalid
record rejects the whole import.

Modes:
  merge    keep existing records, overwrite same ids, skip taken date/time slots
  replace  swap in the file's records and preferences`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, opts, args[0])
		},
	}
	cmd.Flags().StringVar(&opts.Mode, "mode", string(services.ImportMerge), "import mode (merge|replace)")
	return cmd
}

func runImport(cmd *cobra.Command, opts *ImportOptions, path string) error {
	mode, err := services.ParseImportMode(opts.Mode)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid import mode", err)
	}
	var payload []byte
	if path == "-" {
		payload, err = io.ReadAll(cmd.InOrStdin())
	} else {
		payload, err = os.ReadFile(path)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read import file", err)
	}

	runtime, err := openRuntime(cmd.Context(), opts.RootOptions, nil)
	if err != nil {
		return err
	}
	defer runtime.close()

	summary, err := runtime.manager.ImportData(cmd.Context(), payload, mode)
	if err != nil {
		return WrapExitError(ExitFailure, "import failed", err)
	}
	return emit(cmd.OutOrStdout(), opts.Format, summary, func(w io.Writer) {
		fmt.Fprintf(w, "Imported %d record(s) in %s mode: %d added, %d updated, %d skipped\n",
			summary.Total, summary.Mode, summary.Added, summary.Updated, len(summary.Skipped))
		for _, skipped := range summary.Skipped {
			fmt.Fprintf(w, "  skipped %s (%s %s): slot held by %s\n", skipped.ID, skipped.Date, skipped.Time, skipped.ExistingID)
		}
		if len(summary.Migrated.Applied) > 0 {
			fmt.Fprintf(w, "Migrated from schema v%d: %s\n", summary.Migrated.From, strings.Join(summary.Migrated.Applied, ", "))
		}
		if summary.Snapshot != "" {
			fmt.Fprintf(w, "Previous data saved as %s\n", summary.Snapshot)
		}
	})
}

func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show diary statistics and storage usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runtime, err := openRuntime(cmd.Context(), rootOpts, nil)
			if err != nil {
				return err
			}
			defer runtime.close()

			stats, err := runtime.manager.GetDataStatistics(cmd.Context())
			if err != nil {
				return WrapExitError(ExitFailure, "statistics failed", err)
			}
			return emit(cmd.OutOrStdout(), rootOpts.Format, stats, func(w io.Writer) {
				printStatistics(w, stats)
			})
		},
	}
}

func printStatistics(w io.Writer, stats services.Statistics) {
	fmt.Fprintf(w, "Records:            %d\n", stats.TotalRecords)
	if stats.TotalRecords > 0 {
		fmt.Fprintf(w, "Date range:         %s to %s\n", stats.EarliestDate, stats.LatestDate)
		fmt.Fprintf(w, "Average pain:       %.1f\n", stats.AveragePainLevel)
	}
	if stats.AverageEffectiveness != nil {
		fmt.Fprintf(w, "Average relief:     %.1f\n", *stats.AverageEffectiveness)
	}
	printFrequencies(w, "Pain types", stats.TopPainTypes)
	printFrequencies(w, "Locations", stats.TopLocations)
	printFrequencies(w, "Symptoms", stats.TopSymptoms)
	if len(stats.ByMenstrualStatus) > 0 {
		statuses := make([]string, 0, len(stats.ByMenstrualStatus))
		for status := range stats.ByMenstrualStatus {
			statuses = append(statuses, status)
		}
		sort.Strings(statuses)
		parts := make([]string, 0, len(statuses))
		for _, status := range statuses {
			parts = append(parts, fmt.Sprintf("%s %d", status, stats.ByMenstrualStatus[status]))
		}
		fmt.Fprintf(w, "Menstrual status:   %s\n", strings.Join(parts, ", "))
	}
	fmt.Fprintf(w, "Storage:            %s of %s (%.1f%%)\n", formatBytes(stats.Quota.Used), formatBytes(stats.Quota.Limit), stats.Quota.Percent)
	if stats.LastBackup != nil {
		fmt.Fprintf(w, "Last backup:        %s\n", stats.LastBackup.UTC().Format("2006-01-02 15:04:05 MST"))
	} else {
		fmt.Fprintln(w, "Last backup:        never")
	}
}

func printFrequencies(w io.Writer, label string, values []services.Frequency) {
	if len(values) == 0 {
		return
	}
	parts := make([]string, 0, len(values))
	for _, value := range values {
		parts = append(parts, fmt.Sprintf("%s %d", value.Value, value.Count))
	}
	fmt.Fprintf(w, "%-20s%s\n", label+":", strings.Join(parts, ", "))
}

func NewCleanupCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove exact duplicate records",
		Long:  "Remove records repeating the date, time and pain level of an earlier record. A snapshot is taken first.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runtime, err := openRuntime(cmd.Context(), rootOpts, nil)
			if err != nil {
				return err
			}
			defer runtime.close()

			report, err := runtime.manager.PerformDataCleanup(cmd.Context())
			if err != nil {
				return WrapExitError(ExitFailure, "cleanup failed", err)
			}
			return emit(cmd.OutOrStdout(), rootOpts.Format, report, func(w io.Writer) {
				fmt.Fprintf(w, "Removed %d duplicate(s); %d record(s) remain, %s used\n",
					report.Removed, report.RemainingRecords, formatBytes(report.StorageBytes))
			})
		},
	}
}

type ClearOptions struct {
	*RootOptions
	Yes bool
}

func NewClearCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ClearOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every record and reset preferences",
		Long:  "Delete every record and reset preferences. A snapshot is taken first and can be restored with \"paindiary backups restore\".",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.Yes {
				return NewExitError(ExitCommandError, "refusing to clear without --yes")
			}
			runtime, err := openRuntime(cmd.Context(), opts.RootOptions, nil)
			if err != nil {
				return err
			}
			defer runtime.close()

			report, err := runtime.manager.ClearAllData(cmd.Context())
			if err != nil {
				return WrapExitError(ExitFailure, "clear failed", err)
			}
			return emit(cmd.OutOrStdout(), opts.Format, report, func(w io.Writer) {
				fmt.Fprintf(w, "Removed %d record(s); snapshot %s\n", report.RemovedRecords, report.Snapshot)
			})
		},
	}
	cmd.Flags().BoolVar(&opts.Yes, "yes", false, "confirm deleting all data")
	return cmd
}

func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Bring the stored data up to the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runtime, err := openRuntime(cmd.Context(), rootOpts, nil)
			if err != nil {
				return err
			}
			defer runtime.close()

			result := runtime.migrated
			return emit(cmd.OutOrStdout(), rootOpts.Format, result, func(w io.Writer) {
				if result.NoOp() {
					fmt.Fprintf(w, "Already at schema version %d\n", models.CurrentSchemaVersion)
					return
				}
				fmt.Fprintf(w, "Migrated from schema v%d to v%d: %s\n", result.From, result.To, strings.Join(result.Applied, ", "))
			})
		},
	}
}
