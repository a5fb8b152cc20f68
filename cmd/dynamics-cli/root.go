package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/norpie/dynamics-cli-sub003/internal/config"
)

var (
	configPathFlag  string
	debugMetrics    bool
	logLevelFlag    string
	rootCtx         context.Context
	rootCancel      context.CancelFunc
)

// settings is the layered (flags > env > file > default) ambient
// configuration this process runs with.
type settings struct {
	ConfigPath   string
	DebugMetrics bool
	LogLevel     string
}

func loadSettings(cmd *cobra.Command) (settings, error) {
	v := viper.New()
	v.SetEnvPrefix("DYNAMICS_CLI")
	v.AutomaticEnv()
	v.SetDefault("log-level", "info")
	v.SetDefault("debug-metrics", false)

	configDir, err := os.UserConfigDir()
	if err == nil {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join(configDir, "dynamics-cli"))
		if readErr := v.ReadInConfig(); readErr != nil {
			if _, notFound := readErr.(viper.ConfigFileNotFoundError); !notFound {
				return settings{}, fmt.Errorf("read config file: %w", readErr)
			}
		}
	}

	if err := v.BindPFlag("config-path", cmd.Flags().Lookup("config")); err != nil {
		return settings{}, err
	}
	if err := v.BindPFlag("debug-metrics", cmd.Flags().Lookup("debug-metrics")); err != nil {
		return settings{}, err
	}
	if err := v.BindPFlag("log-level", cmd.Flags().Lookup("log-level")); err != nil {
		return settings{}, err
	}

	path := v.GetString("config-path")
	if path == "" {
		path, err = config.DefaultPath()
		if err != nil {
			return settings{}, fmt.Errorf("resolve default config path: %w", err)
		}
	}

	return settings{
		ConfigPath:   path,
		DebugMetrics: v.GetBool("debug-metrics"),
		LogLevel:     v.GetString("log-level"),
	}, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

var rootCmd = &cobra.Command{
	Use:   "dynamics-cli",
	Short: "Operator console for Microsoft Dynamics 365 environments",
	Long: `dynamics-cli authenticates against Dynamics 365 tenants, issues OData
requests, and drives long-running administrative workflows: metadata
comparison across environments, bulk entity migration, deadline ingestion
from spreadsheets, and a queued background job runner.

With no subcommand, it launches the interactive terminal UI.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		rootCancel()
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPathFlag, "config", "", "Path to the store database file (default: OS config dir)")
	rootCmd.PersistentFlags().BoolVar(&debugMetrics, "debug-metrics", false, "Print resilience-stack metrics to stderr via the otel stdoutmetric exporter")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "info", "Log level: debug, info, warn, error")
}

// Execute runs the command tree; exit code handling lives in main.go
// (0 normal, non-zero on unrecoverable startup failure).
func Execute() error {
	return rootCmd.Execute()
}
