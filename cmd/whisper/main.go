// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/luxfi/whisper/config"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// Set by the root command before any subcommand runs.
var (
	cfg    config.Config
	logger *zap.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "whisper",
	Short: "Whisper - encrypted messages with verifiable decryption",
	Long: `Whisper stores messages whose value is encrypted under FHE on a
message board contract, and publicly decrypts them with an on-chain
verified proof.`,
	Version:           fmt.Sprintf("%s (built %s)", version, buildDate),
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
	PersistentPostRun: func(*cobra.Command, []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	PersistentPreRunE: func(*cobra.Command, []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "whisper %s (built %s)\n", version, buildDate)
	},
}

func init() {
	config.AddFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(decryptCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the optional env file, then flags, environment and config
// file, and builds the logger.
func loadConfig(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	if err := loadEnvFile(flags.Lookup(config.EnvFileKey).Value.String()); err != nil {
		return err
	}

	v, err := config.BuildViper(flags)
	if err != nil {
		return err
	}
	cfg, err = config.NewConfig(v)
	if err != nil {
		return err
	}
	logger, err = newLogger(cfg)
	return err
}

// loadEnvFile loads path, or ./.env when path is empty and the file exists.
func loadEnvFile(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", path, err)
		}
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Level() == zapcore.DebugLevel {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(cfg.Level())
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger.Named("whisper"), nil
}
