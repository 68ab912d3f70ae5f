package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	perrors "github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/teleroute/teleroute/internal/app"
	"github.com/teleroute/teleroute/internal/config"
	"github.com/teleroute/teleroute/internal/logger"
)

const defaultConfigPath = "config.yaml"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "teleroute",
		Short:         "Run the Telegram bot",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	cmd.Flags().StringP("config", "c", defaultConfigPath, "Path to the YAML config file.")
	cmd.Flags().String("log-level", "", "Override log.level (debug, info, warn, error).")
	return cmd
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		return err
	}

	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		return err
	}
	log := logger.New(os.Stderr, level, cfg.Log.NoColor)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	api, err := app.NewAPI(cfg, log)
	if err != nil {
		log.Error("failed to connect", logger.Err(err))
		return err
	}

	a, err := app.New(cfg, api, log)
	if err != nil {
		log.Error("failed to build bot", logger.Err(err))
		return err
	}

	if err := a.Run(ctx); err != nil {
		log.Error("bot failed to start", logger.Err(err))
		return err
	}
	return nil
}

// loadConfig reads the config file when one was asked for or the default
// exists; otherwise settings come from the environment only.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if !cmd.Flags().Changed("config") {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			path = ""
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, perrors.Wrap(err, "loading config")
	}

	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
		if err := cfg.Validate(); err != nil {
			return nil, perrors.Wrap(err, "--log-level")
		}
	}
	return cfg, nil
}
