package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	domain "github.com/bryanwahyu/automaton-recon/internal/domain/scans"
	"github.com/bryanwahyu/automaton-recon/internal/logger"
	"github.com/bryanwahyu/automaton-recon/internal/output"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <domain>",
		Short: "Run one scan and print the result",
		Long: `Run one scan in the foreground and print the categorized result.

By default nothing is persisted; pass --persist to record the scan in the
configured database like the API does.`,
		Example: `  automaton-recon scan example.com
  automaton-recon scan example.com --json`,
		Args: cobra.ExactArgs(1),
		RunE: runScan,
	}
	cmd.Flags().Bool("json", false, "print the scan record as JSON")
	cmd.Flags().Bool("no-color", false, "disable colored output (env NO_COLOR)")
	cmd.Flags().Bool("persist", false, "store the scan in the configured database")
	return cmd
}

func runScan(cmd *cobra.Command, args []string) error {
	target := args[0]
	if !domain.ValidDomain(target) {
		return fmt.Errorf("invalid domain format: %q", target)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if persist, _ := cmd.Flags().GetBool("persist"); !persist {
		cfg.Database.Driver = "memory"
	}
	// stdout carries the result
	initLogger(cmd, cfg, logger.Options{Format: "console", Level: "warn", Writer: cmd.ErrOrStderr()})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	a, err := buildApp(ctx, cfg, st)
	if err != nil {
		return err
	}

	scan, err := a.scans.Submit(ctx, target)
	if err != nil {
		return err
	}
	if err := a.scans.Wait(ctx, scan.ID); err != nil {
		a.scans.Cancel(scan.ID)
	}
	_ = a.scans.Shutdown(cmd.Context())

	final, err := a.scans.Get(cmd.Context(), scan.ID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		if err := output.WriteJSON(out, final); err != nil {
			return err
		}
	} else {
		noColor, _ := cmd.Flags().GetBool("no-color")
		if os.Getenv("NO_COLOR") != "" {
			noColor = true
		}
		output.WriteTable(out, final, noColor)
	}

	if final.Status == domain.StatusError {
		return fmt.Errorf("scan %s ended with status %s", final.ID, final.Status)
	}
	return nil
}
