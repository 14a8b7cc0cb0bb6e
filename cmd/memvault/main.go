// Package main implements the memvault CLI for inspecting vector
// store configuration and exercising collection connectivity.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fathomworks/memvault/internal/config"
	"github.com/fathomworks/memvault/internal/logging"
)

var (
	// configFile is an optional yaml file layered under the environment.
	configFile string
	logLevel   string
	logFormat  string

	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "memvault",
	Short: "Vector memory configuration and connectivity tool",
	Long: `memvault resolves vector store configuration from the environment
(and an optional config file), validates it, and can perform a full
orchestrated connect against the configured backends.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "optional yaml config file layered under the environment")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "log format (json, console)")
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(connectCmd)
}

// newLogger builds the process logger from the persistent flags.
func newLogger() (*zap.Logger, error) {
	logger, err := logging.New(logging.Config{Level: logLevel, Format: logFormat})
	if err != nil {
		return nil, fmt.Errorf("configuring logging: %w", err)
	}
	return logger, nil
}

// newSource returns the configuration source: the environment alone,
// or a file layered under it when --config is set.
func newSource() (config.Source, error) {
	if configFile == "" {
		return config.EnvSource{}, nil
	}
	src, err := config.NewFileSource(configFile)
	if err != nil {
		return nil, fmt.Errorf("loading config file: %w", err)
	}
	return src, nil
}
