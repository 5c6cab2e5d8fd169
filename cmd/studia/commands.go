package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"studia/internal/account"
	"studia/internal/app"
)

func newExportCommand(configPath *string) *cobra.Command {
	var (
		outDir   string
		copyPath bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the signed-in user's data to studia-export.json",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(*configPath, func(a *app.App) error {
				ctx, cancel := a.Context()
				defer cancel()

				path, err := a.Exporter.Write(ctx, outDir)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				if copyPath {
					if err := a.Sharer.Share(account.SharePayload(path)); err != nil {
						return fmt.Errorf("copy to clipboard: %w", err)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&outDir, "out", account.CacheDir(), "directory to write the export to")
	cmd.Flags().BoolVar(&copyPath, "copy", false, "also copy the file path to the clipboard")
	return cmd
}

func newMigrateDatesCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate-dates",
		Short: "Rewrite DD/MM/YYYY due dates as YYYY-MM-DD",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(*configPath, func(a *app.App) error {
				ctx, cancel := a.Context()
				defer cancel()

				n, err := a.Tasks.MigrateDueDates(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d due dates converted\n", n)
				return nil
			})
		},
	}
}

func newResetPrefsCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-prefs",
		Short: "Clear the preferences stored on this device",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(*configPath, func(a *app.App) error {
				if err := a.Prefs.Clear(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "preferences cleared")
				return nil
			})
		},
	}
}
