package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	PlatformDiscord  = "discord"
	PlatformTelegram = "telegram"
)

// Config is the process bootstrap configuration: where state lives,
// which chat platform to connect, where the report server listens.
// The runtime configuration table (channel, interval, secret, markers)
// is owned by the state store, not by this file.
type Config struct {
	Platform  string          `json:"platform"`
	DataDir   string          `json:"dataDir"`
	Report    ReportConfig    `json:"report"`
	Snapshots SnapshotsConfig `json:"snapshots"`
}

type ReportConfig struct {
	ListenAddr     string `json:"listenAddr"`
	MetricsEnabled bool   `json:"metricsEnabled"`
}

type SnapshotsConfig struct {
	// Schedule is a cron expression ("@daily", "0 3 * * *"). Empty
	// disables snapshots. Always serialized, so a disabled schedule
	// survives a save/load round trip instead of reverting to the
	// default.
	Schedule string `json:"schedule"`
	Keep     int    `json:"keep"`
}

func Default() Config {
	return Config{
		Platform: PlatformDiscord,
		DataDir:  filepath.Join(HomeDir(), "data"),
		Report: ReportConfig{
			ListenAddr:     ":5000",
			MetricsEnabled: true,
		},
		Snapshots: SnapshotsConfig{
			Schedule: "@daily",
			Keep:     7,
		},
	}
}

func HomeDir() string {
	h, err := os.UserHomeDir()
	if err != nil {
		return ".pulseboard"
	}
	return filepath.Join(h, ".pulseboard")
}

func ConfigPath() string {
	return filepath.Join(HomeDir(), "config.json")
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		h, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(h, path[2:])
		}
	}
	return path
}

func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = ConfigPath()
	}
	path = expandPath(path)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			return cfg, validate(cfg)
		}
		return cfg, err
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	applyEnvOverrides(&cfg)
	return cfg, validate(cfg)
}

func Save(path string, cfg Config) error {
	if path == "" {
		path = ConfigPath()
	}
	path = expandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("PULSEBOARD_PLATFORM")); v != "" {
		cfg.Platform = v
	}
	if v := strings.TrimSpace(os.Getenv("PULSEBOARD_DATA_DIR")); v != "" {
		cfg.DataDir = v
	}
	if v := strings.TrimSpace(os.Getenv("PULSEBOARD_LISTEN_ADDR")); v != "" {
		cfg.Report.ListenAddr = v
	}
	cfg.DataDir = expandPath(cfg.DataDir)
}

func validate(cfg Config) error {
	switch cfg.Platform {
	case PlatformDiscord, PlatformTelegram:
	default:
		return fmt.Errorf("unsupported platform %q (want %q or %q)", cfg.Platform, PlatformDiscord, PlatformTelegram)
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		return fmt.Errorf("dataDir must not be empty")
	}
	return nil
}
