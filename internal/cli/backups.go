package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/terraincognita07/paindiary/internal/storage"
)

func NewBackupsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backups",
		Short: "List, create and restore snapshots",
	}
	cmd.AddCommand(newBackupsListCommand(rootOpts))
	cmd.AddCommand(newBackupsCreateCommand(rootOpts))
	cmd.AddCommand(newBackupsRestoreCommand(rootOpts))
	return cmd
}

func newBackupsListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List snapshots, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runtime, err := openRuntime(cmd.Context(), rootOpts, nil)
			if err != nil {
				return err
			}
			defer runtime.close()

			snapshots, err := runtime.manager.ListBackups(cmd.Context())
			if err != nil {
				return WrapExitError(ExitFailure, "listing backups failed", err)
			}
			now := time.Now()
			return emit(cmd.OutOrStdout(), rootOpts.Format, snapshots, func(w io.Writer) {
				if len(snapshots) == 0 {
					fmt.Fprintln(w, "No snapshots")
					return
				}
				for _, snapshot := range snapshots {
					printSnapshot(w, snapshot, now)
				}
			})
		},
	}
}

func newBackupsCreateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Snapshot the whole store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runtime, err := openRuntime(cmd.Context(), rootOpts, nil)
			if err != nil {
				return err
			}
			defer runtime.close()

			info, err := runtime.manager.CreateBackup(cmd.Context())
			if err != nil {
				return WrapExitError(ExitFailure, "backup failed", err)
			}
			return emit(cmd.OutOrStdout(), rootOpts.Format, info, func(w io.Writer) {
				fmt.Fprintf(w, "Created %s (%s)\n", info.Key, formatBytes(info.SizeBytes))
			})
		},
	}
}

func newBackupsRestoreCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <key>",
		Short: "Replace the store with a snapshot",
		Long:  "Replace the store with a snapshot. The current state is snapshotted first.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runtime, err := openRuntime(cmd.Context(), rootOpts, nil)
			if err != nil {
				return err
			}
			defer runtime.close()

			result, err := runtime.manager.RestoreBackup(cmd.Context(), args[0])
			if err != nil {
				return WrapExitError(ExitFailure, "restore failed", err)
			}
			return emit(cmd.OutOrStdout(), rootOpts.Format, result, func(w io.Writer) {
				fmt.Fprintf(w, "Restored %s\n", args[0])
			})
		},
	}
}

func printSnapshot(w io.Writer, snapshot storage.SnapshotInfo, now time.Time) {
	fmt.Fprintf(w, "%s  %s  %s (%s)\n",
		snapshot.Key,
		formatBytes(snapshot.SizeBytes),
		snapshot.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		formatAge(snapshot.CreatedAt, now))
}
