package channels

import (
	"context"
	"fmt"

	"github.com/grixate/pulseboard/internal/dashboard"
)

// ChatAPI is the platform surface the refresh scheduler drives: probe
// a previously-sent message, publish a new dashboard, edit one in
// place. Implementations return *APIError for platform failures so
// callers can tell them apart from programmer error.
type ChatAPI interface {
	FetchMessage(ctx context.Context, channelID, messageID string) error
	PublishMessage(ctx context.Context, channelID string, doc dashboard.Document) (string, error)
	EditMessage(ctx context.Context, channelID, messageID string, doc dashboard.Document) error
}

// Backend is a ChatAPI together with its gateway lifecycle. Start
// connects the session and wires the owner control commands; the
// backend keeps receiving them until ctx is cancelled.
type Backend interface {
	ChatAPI
	Start(ctx context.Context) error
	Close() error
}

// APIError marks a failed or timed-out chat-platform call. These are
// recoverable: the scheduler reacts by republishing, never by
// crashing.
type APIError struct {
	Op  string
	Err error
}

func (e *APIError) Error() string { return fmt.Sprintf("chat %s: %v", e.Op, e.Err) }

func (e *APIError) Unwrap() error { return e.Err }

func apiError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &APIError{Op: op, Err: err}
}
