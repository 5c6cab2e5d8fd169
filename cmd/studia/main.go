package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"studia/internal/app"
	"studia/internal/config"
	"studia/internal/logging"
	"studia/internal/ui"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "studia",
		Short:         "Study planner for the terminal",
		Long:          `Studia keeps track of classes, homework and exams, with a calendar of what is due.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(configPath, func(a *app.App) error {
				return ui.Run(ui.FromApp(a))
			})
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: $STUDIA_CONFIG or the user config dir)")

	rootCmd.AddCommand(newExportCommand(&configPath))
	rootCmd.AddCommand(newMigrateDatesCommand(&configPath))
	rootCmd.AddCommand(newResetPrefsCommand(&configPath))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "studia: %v\n", err)
		os.Exit(1)
	}
}

// withApp opens the app for one command and closes it afterwards. Logs go
// to the configured file since the TUI owns the terminal.
func withApp(configPath string, fn func(a *app.App) error) error {
	if configPath == "" {
		configPath = config.ResolveConfigPath()
	}
	cfg, err := config.LoadOrCreate(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Close()

	a, err := app.New(cfg, log)
	if err != nil {
		log.Errorw("startup failed", "error", err)
		return fmt.Errorf("failed to start: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warnw("shutdown failed", "error", err)
		}
	}()

	return fn(a)
}
