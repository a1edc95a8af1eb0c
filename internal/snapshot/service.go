package snapshot

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	gocron "github.com/robfig/cron/v3"

	"github.com/grixate/pulseboard/internal/store"
	"github.com/grixate/pulseboard/internal/telemetry"
)

const dirTimeFormat = "20060102T150405Z"

// Service takes cron-scheduled copies of the state directory so a
// corrupted or lost data dir can be restored. Snapshots beyond the
// retained count are pruned oldest-first.
type Service struct {
	store    *store.Store
	dest     string
	schedule string
	keep     int
	metrics  *telemetry.Metrics
	log      *log.Logger
	cron     *gocron.Cron
}

func NewService(st *store.Store, dest, schedule string, keep int, metrics *telemetry.Metrics, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	if metrics == nil {
		metrics = &telemetry.Metrics{}
	}
	if keep <= 0 {
		keep = 7
	}
	return &Service{store: st, dest: dest, schedule: schedule, keep: keep, metrics: metrics, log: logger}
}

func (s *Service) Start() error {
	if s.schedule == "" {
		return nil
	}
	c := gocron.New()
	_, err := c.AddFunc(s.schedule, func() {
		if err := s.Take(); err != nil {
			s.metrics.SnapshotFailures.Add(1)
			s.log.Printf("snapshot: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("snapshot schedule %q: %w", s.schedule, err)
	}
	s.cron = c
	c.Start()
	return nil
}

func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// Take copies the current state files into a timestamped directory and
// prunes old snapshots.
func (s *Service) Take() error {
	dir := filepath.Join(s.dest, time.Now().UTC().Format(dirTimeFormat))
	if err := s.store.Snapshot(dir); err != nil {
		return err
	}
	s.metrics.SnapshotsTaken.Add(1)
	s.log.Printf("snapshot: wrote %s", dir)
	return s.prune()
}

func (s *Service) prune() error {
	entries, err := os.ReadDir(s.dest)
	if err != nil {
		return err
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := time.Parse(dirTimeFormat, entry.Name()); err != nil {
			continue
		}
		names = append(names, entry.Name())
	}
	if len(names) <= s.keep {
		return nil
	}
	sort.Strings(names)
	for _, name := range names[:len(names)-s.keep] {
		if err := os.RemoveAll(filepath.Join(s.dest, name)); err != nil {
			return err
		}
	}
	return nil
}
