package control

import (
	"errors"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"

	"github.com/grixate/pulseboard/internal/store"
)

var (
	ErrNotOwner    = errors.New("caller is not the configured owner")
	ErrBadDuration = errors.New("unparsable duration")
)

var timeInputPattern = regexp.MustCompile(`^(\d+)\s*([smhd])?$`)

// Service implements the owner-restricted control operations. Every
// operation goes through the store contract; the chat backends only
// relay the caller identity and the raw arguments.
type Service struct {
	store *store.Store
	log   *log.Logger
}

func NewService(st *store.Store, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{store: st, log: logger}
}

// SetRefresh updates the refresh interval. The returned string is the
// user-facing reply for the chat surface.
func (s *Service) SetRefresh(callerID, input string) (string, error) {
	cfg, err := s.store.LoadConfig()
	if err != nil {
		return "", err
	}
	if !isOwner(cfg, callerID) {
		return "You don't have permission to change the refresh time.", ErrNotOwner
	}
	seconds, err := ParseTimeInput(input)
	if err != nil {
		return "Invalid time format. Use a number with s/m/h/d, e.g. 30s or 5m.", err
	}
	if err := s.store.SetRefreshSeconds(seconds); err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ Status refresh time set to %s (%d seconds).", HumanSeconds(seconds), seconds), nil
}

func (s *Service) GetRefresh() (string, error) {
	cfg, err := s.store.LoadConfig()
	if err != nil {
		return "", err
	}
	seconds := cfg.RefreshSeconds
	return fmt.Sprintf("Current status refresh: %s (%d seconds).", HumanSeconds(seconds), seconds), nil
}

// SetChannel reassigns the dashboard channel. The stored message
// identifier is cleared so the scheduler publishes a fresh message.
func (s *Service) SetChannel(callerID, channelID string) (string, error) {
	cfg, err := s.store.LoadConfig()
	if err != nil {
		return "", err
	}
	if !isOwner(cfg, callerID) {
		return "You don't have permission to change the status channel.", ErrNotOwner
	}
	if err := s.store.SetStatusChannel(channelID); err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ Status channel set to %s.", strings.TrimSpace(channelID)), nil
}

func isOwner(cfg store.Config, callerID string) bool {
	owner := strings.TrimSpace(cfg.OwnerID)
	return owner != "" && owner == strings.TrimSpace(callerID)
}

// ParseTimeInput parses a duration like "30", "5m", "2h" or "1d" into
// whole seconds. A bare number means seconds.
func ParseTimeInput(input string) (int, error) {
	match := timeInputPattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(input)))
	if match == nil {
		return 0, fmt.Errorf("%w: %q", ErrBadDuration, input)
	}
	value, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadDuration, input)
	}
	switch match[2] {
	case "", "s":
		return value, nil
	case "m":
		return value * 60, nil
	case "h":
		return value * 3600, nil
	case "d":
		return value * 86400, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrBadDuration, input)
}

// HumanSeconds renders a second count with the largest unit that
// divides it evenly.
func HumanSeconds(seconds int) string {
	switch {
	case seconds%86400 == 0:
		return fmt.Sprintf("%dd", seconds/86400)
	case seconds%3600 == 0:
		return fmt.Sprintf("%dh", seconds/3600)
	case seconds%60 == 0:
		return fmt.Sprintf("%dm", seconds/60)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}
