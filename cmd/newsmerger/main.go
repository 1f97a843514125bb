package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"NewsMerger/internal/app"
	"NewsMerger/internal/config"
	"NewsMerger/internal/logging"
)

var cfgFile string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCommand().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "newsmerger",
		Short:         "Scrape, deduplicate, enrich and store news articles",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "path to YAML config (defaults to $NEWSMERGER_CONFIG)")

	root.AddCommand(
		scrapeCommand(),
		mergeCommand(),
		enrichCommand(),
		uploadCommand(),
		runCommand(),
		scheduleCommand(),
		statusCommand(),
	)
	return root
}

// withApp loads configuration, builds the application and logs a fatal error before returning it.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, application *app.Application) error) error {
	cfg := config.Load(cfgFile)
	logger := logging.New(cfg.Logging.Level).With("command", cmd.Name())

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return err
	}
	defer func() {
		if cErr := application.Close(); cErr != nil {
			logger.Warn("close", "error", cErr)
		}
	}()

	if err := fn(cmd.Context(), application); err != nil {
		logger.Error("command failed", "error", err)
		return err
	}
	return nil
}
