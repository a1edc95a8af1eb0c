package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/grixate/pulseboard/internal/app"
	"github.com/grixate/pulseboard/internal/config"
	"github.com/grixate/pulseboard/internal/dashboard"
	"github.com/grixate/pulseboard/internal/store"
)

func main() {
	logger := log.New(os.Stderr, "", log.LstdFlags)
	root := newRootCmd(logger)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(logger *log.Logger) *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:   "pulseboard",
		Short: "pulseboard - live command health dashboard bot",
		RunE:  func(cmd *cobra.Command, args []string) error { return cmd.Help() },
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file path")

	root.AddCommand(runCmd(logger, &configPath))
	root.AddCommand(statusCmd(&configPath))
	root.AddCommand(secretCmd(&configPath))
	return root
}

func runCmd(logger *log.Logger, configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the chat gateway, refresh loop and report server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			runtime, err := app.BuildRuntime(cfg, logger)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			logger.Printf("pulseboard starting (platform=%s data=%s)", cfg.Platform, cfg.DataDir)
			return runtime.Run(ctx)
		},
	}
}

func statusCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the persisted command status table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			st, err := store.Open(cfg.DataDir)
			if err != nil {
				return err
			}
			storeCfg, err := st.LoadConfig()
			if err != nil {
				return err
			}
			catalog, err := st.LoadCatalog()
			if err != nil {
				return err
			}
			status, err := st.LoadStatus()
			if err != nil {
				return err
			}
			for _, name := range catalog {
				command := store.NormalizeCommand(name)
				fmt.Fprintln(cmd.OutOrStdout(), formatStatusLine(storeCfg, command, status[command]))
			}
			return nil
		},
	}
}

func secretCmd(configPath *string) *cobra.Command {
	var rotate bool
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Print or rotate the report ingestion secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			st, err := store.Open(cfg.DataDir)
			if err != nil {
				return err
			}
			if rotate {
				secret := uuid.NewString()
				if err := st.SetReportSecret(secret); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), secret)
				return nil
			}
			storeCfg, err := st.LoadConfig()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), storeCfg.ReportSecret)
			return nil
		},
	}
	cmd.Flags().BoolVar(&rotate, "rotate", false, "generate and persist a new secret")
	return cmd
}

func formatStatusLine(cfg store.Config, command string, entry store.CommandStatus) string {
	return fmt.Sprintf("%-24s %-18s %s", "/"+command, statusSummary(cfg, command, entry), lastUpdated(entry))
}

func statusSummary(cfg store.Config, command string, entry store.CommandStatus) string {
	if !entry.LastSuccess {
		return "failed"
	}
	if cfg.IsSilent(command) {
		return "ok (silent)"
	}
	if entry.LastLatency == nil {
		return "ok"
	}
	return fmt.Sprintf("ok %s %d ms", dashboard.LatencyMarker(cfg, *entry.LastLatency), *entry.LastLatency)
}

func lastUpdated(entry store.CommandStatus) string {
	if entry.LastUpdated == nil || *entry.LastUpdated == "" {
		return "never reported"
	}
	when, err := time.Parse(time.RFC3339, *entry.LastUpdated)
	if err != nil {
		return *entry.LastUpdated
	}
	return humanize.Time(when)
}
