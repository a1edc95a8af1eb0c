package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/grixate/pulseboard/internal/channels"
	"github.com/grixate/pulseboard/internal/config"
	"github.com/grixate/pulseboard/internal/control"
	"github.com/grixate/pulseboard/internal/report"
	"github.com/grixate/pulseboard/internal/scheduler"
	"github.com/grixate/pulseboard/internal/snapshot"
	"github.com/grixate/pulseboard/internal/store"
	"github.com/grixate/pulseboard/internal/telemetry"
)

type Runtime struct {
	Config    config.Config
	Store     *store.Store
	Metrics   *telemetry.Metrics
	Report    *report.Server
	Backend   channels.Backend
	Scheduler *scheduler.Scheduler
	Snapshots *snapshot.Service
	log       *log.Logger
}

func BuildRuntime(cfg config.Config, logger *log.Logger) (*Runtime, error) {
	if logger == nil {
		logger = log.Default()
	}
	st, err := store.Open(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	if secret := strings.TrimSpace(os.Getenv("PULSEBOARD_REPORT_SECRET")); secret != "" {
		if err := st.SetReportSecret(secret); err != nil {
			return nil, err
		}
	}
	token, err := chatToken(cfg, st)
	if err != nil {
		return nil, err
	}

	metrics := &telemetry.Metrics{}
	ctrl := control.NewService(st, logger)

	var backend channels.Backend
	switch cfg.Platform {
	case config.PlatformDiscord:
		backend = channels.NewDiscord(token, ctrl, logger)
	case config.PlatformTelegram:
		backend = channels.NewTelegram(token, ctrl, logger)
	default:
		return nil, fmt.Errorf("unsupported platform %q", cfg.Platform)
	}

	reportSrv, err := report.NewServer(report.Options{
		ListenAddr:     cfg.Report.ListenAddr,
		Store:          st,
		Metrics:        metrics,
		MetricsEnabled: cfg.Report.MetricsEnabled,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}

	return &Runtime{
		Config:    cfg,
		Store:     st,
		Metrics:   metrics,
		Report:    reportSrv,
		Backend:   backend,
		Scheduler: scheduler.New(st, backend, metrics, logger),
		Snapshots: snapshot.NewService(st, filepath.Join(cfg.DataDir, "snapshots"), cfg.Snapshots.Schedule, cfg.Snapshots.Keep, metrics, logger),
		log:       logger,
	}, nil
}

// Run starts the report server, the chat gateway and the snapshot
// schedule, then blocks on the refresh loop until ctx is cancelled.
func (r *Runtime) Run(ctx context.Context) error {
	if err := r.Backend.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := r.Backend.Close(); err != nil {
			r.log.Printf("chat backend close: %v", err)
		}
	}()
	if err := r.Snapshots.Start(); err != nil {
		return err
	}
	defer r.Snapshots.Stop()

	reportErr := make(chan error, 1)
	go func() { reportErr <- r.Report.Start(ctx) }()

	if err := r.Scheduler.Run(ctx); err != nil {
		return err
	}
	return <-reportErr
}

// chatToken resolves the chat credential: environment first, then the
// stored config table. A missing credential is fatal before any
// service starts.
func chatToken(cfg config.Config, st *store.Store) (string, error) {
	storeCfg, err := st.LoadConfig()
	if err != nil {
		return "", err
	}
	envName := "DISCORD_TOKEN"
	if cfg.Platform == config.PlatformTelegram {
		envName = "TELEGRAM_TOKEN"
	}
	token := strings.TrimSpace(os.Getenv(envName))
	if token == "" {
		token = strings.TrimSpace(storeCfg.Token)
	}
	if token == "" {
		return "", fmt.Errorf("no chat token configured: set %q in %s or export %s",
			"token", filepath.Join(cfg.DataDir, "config.json"), envName)
	}
	return token, nil
}
