package scheduler

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/grixate/pulseboard/internal/channels"
	"github.com/grixate/pulseboard/internal/dashboard"
	"github.com/grixate/pulseboard/internal/store"
	"github.com/grixate/pulseboard/internal/telemetry"
)

type State string

const (
	// StateUnbound: no dashboard channel configured yet.
	StateUnbound State = "unbound"
	// StateTracking: a published message is known and assumed live.
	StateTracking State = "tracking"
	// StateRecovering: channel known, message unknown or stale.
	StateRecovering State = "recovering"
)

const (
	defaultTickEvery      = 1 * time.Second
	defaultCallTimeout    = 10 * time.Second
	defaultRefreshSeconds = 60
)

// Scheduler owns the lifecycle of the published dashboard message. It
// runs as a single loop: one tick at a time, blocking only on store
// I/O, chat-API calls and the inter-tick timer. Config is reloaded on
// every tick so channel, interval and marker changes apply without a
// restart.
type Scheduler struct {
	store   *store.Store
	chat    channels.ChatAPI
	metrics *telemetry.Metrics
	log     *log.Logger

	tickEvery   time.Duration
	callTimeout time.Duration

	state     State
	channelID string
	messageID string
	countdown int
}

func New(st *store.Store, chat channels.ChatAPI, metrics *telemetry.Metrics, logger *log.Logger) *Scheduler {
	if metrics == nil {
		metrics = &telemetry.Metrics{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Scheduler{
		store:       st,
		chat:        chat,
		metrics:     metrics,
		log:         logger,
		tickEvery:   defaultTickEvery,
		callTimeout: defaultCallTimeout,
		state:       StateUnbound,
	}
}

func (s *Scheduler) State() State { return s.state }

// Run restores the tracked message, then drives the refresh loop until
// ctx is cancelled. Shutdown needs no drain: the next process start
// re-enters through the recovery path.
func (s *Scheduler) Run(ctx context.Context) error {
	s.restore(ctx)
	ticker := time.NewTicker(s.tickEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// restore picks up the message published by a previous process. A
// fetch failure (deleted message, wrong channel, API error) leaves the
// scheduler recovering, so the first tick publishes a fresh message.
func (s *Scheduler) restore(ctx context.Context) {
	cfg, err := s.store.LoadConfig()
	if err != nil {
		s.log.Printf("scheduler: load config: %v", err)
		return
	}
	s.countdown = normalizeInterval(cfg.RefreshSeconds)
	if strings.TrimSpace(cfg.StatusChannelID) == "" {
		return
	}
	s.channelID = cfg.StatusChannelID
	s.state = StateRecovering
	if cfg.StatusMessageID == "" {
		return
	}
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	err = s.chat.FetchMessage(callCtx, cfg.StatusChannelID, cfg.StatusMessageID)
	cancel()
	if err != nil {
		s.log.Printf("scheduler: tracked message %s not recoverable: %v", cfg.StatusMessageID, err)
		return
	}
	s.messageID = cfg.StatusMessageID
	s.state = StateTracking
}

func (s *Scheduler) tick(ctx context.Context) {
	s.metrics.SchedulerTicks.Add(1)

	cfg, err := s.store.LoadConfig()
	if err != nil {
		s.log.Printf("scheduler: load config: %v", err)
		return
	}
	if strings.TrimSpace(cfg.StatusChannelID) == "" {
		s.state = StateUnbound
		s.channelID = ""
		s.messageID = ""
		return
	}
	if cfg.StatusChannelID != s.channelID {
		// Channel reassigned: the old message is no longer ours.
		s.channelID = cfg.StatusChannelID
		s.messageID = ""
		s.state = StateRecovering
	} else if s.state == StateUnbound {
		s.state = StateRecovering
	}

	catalog, err := s.store.LoadCatalog()
	if err != nil {
		s.log.Printf("scheduler: load catalog: %v", err)
		return
	}
	status, err := s.store.LoadStatus()
	if err != nil {
		s.log.Printf("scheduler: load status: %v", err)
		return
	}
	doc := dashboard.Render(cfg, catalog, status, s.countdown)

	switch s.state {
	case StateRecovering:
		s.publish(ctx, doc)
	case StateTracking:
		s.edit(ctx, doc)
	}

	// The countdown is cosmetic: it only changes the title text.
	// Publishing and editing happen every tick regardless.
	s.countdown--
	if s.countdown <= 0 {
		s.countdown = normalizeInterval(cfg.RefreshSeconds)
	}
}

func (s *Scheduler) publish(ctx context.Context, doc dashboard.Document) {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	messageID, err := s.chat.PublishMessage(callCtx, s.channelID, doc)
	cancel()
	if err != nil {
		s.metrics.PublishFailures.Add(1)
		s.logChatFailure("publish", err)
		return
	}
	s.metrics.MessagesPublished.Add(1)
	s.messageID = messageID
	s.state = StateTracking
	if err := s.store.SetStatusMessageID(messageID); err != nil {
		// Tracking continues in memory; the next restart republishes.
		s.log.Printf("scheduler: persist message id: %v", err)
	}
}

// edit updates the tracked message in place. Any failure drops the
// tracked reference: the same message is never retried, the next tick
// publishes a fresh one.
func (s *Scheduler) edit(ctx context.Context, doc dashboard.Document) {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	err := s.chat.EditMessage(callCtx, s.channelID, s.messageID, doc)
	cancel()
	if err == nil {
		s.metrics.MessagesEdited.Add(1)
		return
	}
	s.metrics.EditFailures.Add(1)
	s.logChatFailure("edit", err)
	s.messageID = ""
	s.state = StateRecovering
}

func (s *Scheduler) logChatFailure(op string, err error) {
	var apiErr *channels.APIError
	if errors.As(err, &apiErr) {
		s.log.Printf("scheduler: dashboard %s failed: %v", op, err)
		return
	}
	s.log.Printf("scheduler: unexpected %s error: %v", op, err)
}

func normalizeInterval(seconds int) int {
	if seconds < 1 {
		return defaultRefreshSeconds
	}
	return seconds
}
