package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bryanwahyu/automaton-recon/internal/config"
	"github.com/bryanwahyu/automaton-recon/internal/logger"
)

const serviceName = "automaton-recon"

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "automaton-recon",
		Short: "Passive domain reconnaissance service",
		Long: `automaton-recon runs theHarvester and amass against a domain, split into
many small chunks, and merges what they find into one categorized result.

Run "serve" for the HTTP API or "scan" for a one-shot scan in the terminal.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("config", defaultConfigPath(), "path to config.yaml (env CONFIG_PATH)")
	cmd.PersistentFlags().String("log-level", "", "override log level (trace, debug, info, warn, error)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return "config.yaml"
}

// loadConfig reads the config named by --config.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// initLogger applies config, then LOG_LEVEL/LOG_FORMAT, then --log-level.
func initLogger(cmd *cobra.Command, cfg *config.Config, opt logger.Options) {
	opt.Service = serviceName
	if opt.Level == "" {
		opt.Level = cfg.Log.Level
	}
	if opt.Format == "" {
		opt.Format = cfg.Log.Format
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		opt.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		opt.Format = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); strings.TrimSpace(v) != "" {
		opt.Level = v
	}
	logger.Init(opt)
}
