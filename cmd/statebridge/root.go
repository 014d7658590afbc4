package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/statebridge/internal/cli"
	"github.com/aretw0/statebridge/internal/config"
	"github.com/spf13/cobra"
)

// defaultConfigFile is picked up from the working directory when --config is not set.
const defaultConfigFile = "statebridge.yaml"

var rootCmd = &cobra.Command{
	Use:   "statebridge",
	Short: "Statebridge shares one state between a scene and the outside world",
	Long: `Statebridge runs a scene holding a declarative shared state.
Actions declared in the configuration can be dispatched over HTTP, Redis pub/sub
or MCP, and every change is broadcast back as a state update.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("config", "c", "", "Configuration file (default ./statebridge.yaml when present)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
}

// loadConfig resolves the configuration file and the logger for a command.
func loadConfig(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	debug, _ := cmd.Flags().GetBool("debug")

	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		} else if !errors.Is(err, os.ErrNotExist) {
			return config.Config{}, nil, err
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return cfg, nil, fmt.Errorf("error loading configuration: %w", err)
	}
	logger, err := cli.NewLogger(cfg.LogLevel, debug)
	if err != nil {
		return cfg, nil, err
	}
	if path != "" {
		logger.Debug("configuration loaded", "path", path)
	}
	return cfg, logger, nil
}
