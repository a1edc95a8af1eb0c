package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	configFile    = "config.json"
	statusFile    = "status.json"
	catalogFile   = "commands.txt"
	sampleCatalog = "avatar,ban,blacklist,clear,help,hi,kick,logs,say,ping,pong,usage,set_status_refresh,get_status_refresh"
)

// Config is the runtime configuration table. It is mutated by the
// owner control operations and, for the message identifier only, by
// the refresh scheduler.
type Config struct {
	Token           string   `json:"token"`
	StatusChannelID string   `json:"status_channel_id,omitempty"`
	StatusMessageID string   `json:"status_message_id,omitempty"`
	RefreshSeconds  int      `json:"refresh_seconds"`
	OwnerID         string   `json:"owner_id"`
	ReportSecret    string   `json:"report_secret"`
	GoodMarker      string   `json:"good_marker"`
	WarnMarker      string   `json:"warn_marker"`
	BadMarker       string   `json:"bad_marker"`
	SilentCommands  []string `json:"silent_commands"`
}

func (c Config) IsSilent(command string) bool {
	for _, name := range c.SilentCommands {
		if NormalizeCommand(name) == command {
			return true
		}
	}
	return false
}

// CommandStatus is the liveness snapshot for one command. It is
// overwritten in place on every report; no history is kept.
type CommandStatus struct {
	LastSuccess bool    `json:"last_success"`
	LastLatency *int    `json:"last_latency"`
	LastUpdated *string `json:"last_updated"`
}

func DefaultConfig() Config {
	return Config{
		RefreshSeconds: 60,
		GoodMarker:     "\U0001f7e2",
		WarnMarker:     "\U0001f7e1",
		BadMarker:      "\U0001f534",
		SilentCommands: []string{"clear"},
	}
}

// Store owns the three durable tables (config, status, catalog). Every
// read reloads from disk and every write replaces the backing file
// atomically, so readers never observe a half-written record.
type Store struct {
	dir string
	mu  sync.Mutex
}

func Open(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("store directory required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	s := &Store{dir: dir}
	if err := s.ensure(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) path(name string) string { return filepath.Join(s.dir, name) }

// ensure creates any absent table on first run: the catalog from the
// built-in sample list, the config from defaults with a fresh
// ingestion secret, and one default status record per catalog entry.
func (s *Store) ensure() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path(catalogFile)); os.IsNotExist(err) {
		if err := writeFileAtomic(s.path(catalogFile), []byte(sampleCatalog)); err != nil {
			return fmt.Errorf("init catalog: %w", err)
		}
	}
	if _, err := os.Stat(s.path(configFile)); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.ReportSecret = uuid.NewString()
		if err := s.saveConfigLocked(cfg); err != nil {
			return fmt.Errorf("init config: %w", err)
		}
	}
	if _, err := os.Stat(s.path(statusFile)); os.IsNotExist(err) {
		catalog, err := s.loadCatalogLocked()
		if err != nil {
			return err
		}
		status := make(map[string]CommandStatus, len(catalog))
		for _, name := range catalog {
			status[NormalizeCommand(name)] = CommandStatus{LastSuccess: true}
		}
		if err := s.saveStatusLocked(status); err != nil {
			return fmt.Errorf("init status: %w", err)
		}
	}
	return nil
}

func (s *Store) LoadConfig() (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadConfigLocked()
}

func (s *Store) SaveConfig(cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveConfigLocked(cfg)
}

func (s *Store) loadConfigLocked() (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(s.path(configFile))
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func (s *Store) saveConfigLocked(cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	if err := writeFileAtomic(s.path(configFile), data); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}

func (s *Store) LoadStatus() (map[string]CommandStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadStatusLocked()
}

func (s *Store) SaveStatus(status map[string]CommandStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveStatusLocked(status)
}

func (s *Store) loadStatusLocked() (map[string]CommandStatus, error) {
	data, err := os.ReadFile(s.path(statusFile))
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]CommandStatus{}, nil
		}
		return nil, fmt.Errorf("load status: %w", err)
	}
	status := map[string]CommandStatus{}
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("load status: %w", err)
	}
	return status, nil
}

func (s *Store) saveStatusLocked(status map[string]CommandStatus) error {
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("save status: %w", err)
	}
	if err := writeFileAtomic(s.path(statusFile), data); err != nil {
		return fmt.Errorf("save status: %w", err)
	}
	return nil
}

// UpdateCommandStatus upserts one status record. The whole
// read-modify-write runs under the store lock so concurrent reports
// for the same command cannot interleave. An empty timestamp records
// the current UTC time.
func (s *Store) UpdateCommandStatus(name string, success bool, latencyMS *int, timestamp string) error {
	command := NormalizeCommand(name)
	if command == "" {
		return errors.New("empty command name")
	}
	if timestamp == "" {
		timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	status, err := s.loadStatusLocked()
	if err != nil {
		return err
	}
	entry := status[command]
	entry.LastSuccess = success
	entry.LastLatency = latencyMS
	entry.LastUpdated = &timestamp
	status[command] = entry
	return s.saveStatusLocked(status)
}

// SetRefreshSeconds updates the refresh interval; values below one
// second are rejected.
func (s *Store) SetRefreshSeconds(seconds int) error {
	if seconds < 1 {
		return fmt.Errorf("refresh interval must be at least 1 second, got %d", seconds)
	}
	return s.updateConfig(func(cfg *Config) {
		cfg.RefreshSeconds = seconds
	})
}

// SetStatusChannel reassigns the dashboard channel and clears the
// tracked message identifier so a fresh message is published.
func (s *Store) SetStatusChannel(channelID string) error {
	if strings.TrimSpace(channelID) == "" {
		return errors.New("channel id required")
	}
	return s.updateConfig(func(cfg *Config) {
		cfg.StatusChannelID = strings.TrimSpace(channelID)
		cfg.StatusMessageID = ""
	})
}

func (s *Store) SetStatusMessageID(messageID string) error {
	return s.updateConfig(func(cfg *Config) {
		cfg.StatusMessageID = messageID
	})
}

func (s *Store) SetReportSecret(secret string) error {
	if strings.TrimSpace(secret) == "" {
		return errors.New("report secret required")
	}
	return s.updateConfig(func(cfg *Config) {
		cfg.ReportSecret = secret
	})
}

func (s *Store) updateConfig(mutate func(cfg *Config)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, err := s.loadConfigLocked()
	if err != nil {
		return err
	}
	mutate(&cfg)
	return s.saveConfigLocked(cfg)
}

// Snapshot copies the three table files into destDir while holding the
// store lock, so the copy is a consistent point-in-time state.
func (s *Store) Snapshot(destDir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}
	for _, name := range []string{configFile, statusFile, catalogFile} {
		if err := copyFile(s.path(name), filepath.Join(destDir, name)); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("snapshot %s: %w", name, err)
		}
	}
	return nil
}

// NormalizeCommand strips any leading command-prefix characters and
// surrounding whitespace, so "/ping" and "ping" address the same
// status record.
func NormalizeCommand(raw string) string {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimLeft(trimmed, "/!")
	return strings.TrimSpace(trimmed)
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
