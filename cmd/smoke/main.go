// Command smoke uploads generated feedback to the analysis backend and checks
// the dashboard data it reports back.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/feedlens/internal/smoke"
	"github.com/okian/feedlens/pkg/logger"
)

// Default configuration constants.
const (
	defaultBackendURL = "http://127.0.0.1:8000"
	defaultRows       = 30
	defaultTimeout    = 30 * time.Second
	defaultRunTimeout = 5 * time.Minute
)

var config = smoke.Config{} //nolint:gochecknoglobals // bound to flags

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{ //nolint:gochecknoglobals // cobra root
	Use:           "smoke",
	Short:         "End-to-end check of the feedback analysis backend",
	Long:          "smoke uploads a generated CSV to the analysis backend and verifies the summary, keywords and samples it returns.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logger.Init(logger.WithFormat(logger.FormatTint), logger.WithOutput(os.Stderr)); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		if config.Verbose {
			return logger.SetLevelString("debug")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if config.Rows <= 0 {
			return fmt.Errorf("--rows must be positive, got %d", config.Rows)
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), defaultRunTimeout)
		defer cancel()

		report, err := smoke.Run(ctx, &config)
		if err != nil {
			if errors.Is(err, smoke.ErrChecksFailed) && report != nil {
				for _, c := range report.Checks {
					if !c.Passed {
						fmt.Fprintf(os.Stderr, "FAIL %s: %s\n", c.Name, c.Detail)
					}
				}
			}
			fmt.Fprintln(os.Stderr, "Smoke test failed: "+err.Error())
			return err
		}
		fmt.Printf("Smoke test passed: %d rows processed, run %s\n", report.RowsProcessed, report.RunID)
		return nil
	},
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&config.BackendURL, "backend", defaultBackendURL, "Base URL of the analysis backend")
	flags.IntVar(&config.Rows, "rows", defaultRows, "Number of feedback rows to generate and upload")
	flags.DurationVar(&config.Timeout, "timeout", defaultTimeout, "HTTP request timeout")
	flags.StringVar(&config.ReportFile, "report", "", "Write a YAML report to this file")
	flags.BoolVarP(&config.Verbose, "verbose", "v", false, "Enable verbose logging")
}
