package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"testing"

	"github.com/grixate/pulseboard/internal/channels"
	"github.com/grixate/pulseboard/internal/dashboard"
	"github.com/grixate/pulseboard/internal/store"
)

type fakeChat struct {
	fetchErr   error
	publishErr error
	editErr    error

	nextID    int
	published []string
	edited    []string
	fetches   int
}

func (f *fakeChat) FetchMessage(ctx context.Context, channelID, messageID string) error {
	f.fetches++
	return f.fetchErr
}

func (f *fakeChat) PublishMessage(ctx context.Context, channelID string, doc dashboard.Document) (string, error) {
	if f.publishErr != nil {
		return "", f.publishErr
	}
	f.nextID++
	id := fmt.Sprintf("msg-%d", f.nextID)
	f.published = append(f.published, channelID+"/"+id)
	return id, nil
}

func (f *fakeChat) EditMessage(ctx context.Context, channelID, messageID string, doc dashboard.Document) error {
	if f.editErr != nil {
		return f.editErr
	}
	f.edited = append(f.edited, channelID+"/"+messageID)
	return nil
}

func chatGone() error {
	return &channels.APIError{Op: "fetch message", Err: errors.New("unknown message")}
}

func newTestScheduler(t *testing.T, chat *fakeChat) (*Scheduler, *store.Store) {
	t.Helper()
	st, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	s := New(st, chat, nil, log.New(io.Discard, "", 0))
	return s, st
}

func TestUnboundWithoutChannel(t *testing.T) {
	chat := &fakeChat{}
	s, _ := newTestScheduler(t, chat)

	s.restore(context.Background())
	s.tick(context.Background())

	if s.State() != StateUnbound {
		t.Fatalf("expected unbound, got %s", s.State())
	}
	if len(chat.published) != 0 || len(chat.edited) != 0 {
		t.Fatal("no chat calls expected without a channel")
	}
}

func TestRestoreRecoversTrackedMessage(t *testing.T) {
	chat := &fakeChat{}
	s, st := newTestScheduler(t, chat)
	if err := st.SetStatusChannel("chan-1"); err != nil {
		t.Fatal(err)
	}
	if err := st.SetStatusMessageID("old-msg"); err != nil {
		t.Fatal(err)
	}

	s.restore(context.Background())
	if s.State() != StateTracking {
		t.Fatalf("fetchable message should resume tracking, got %s", s.State())
	}
	if chat.fetches != 1 {
		t.Fatalf("expected one fetch probe, got %d", chat.fetches)
	}

	s.tick(context.Background())
	if len(chat.edited) != 1 || chat.edited[0] != "chan-1/old-msg" {
		t.Fatalf("expected edit of tracked message, got %v", chat.edited)
	}
}

func TestRestoreWithStaleMessagePublishesFresh(t *testing.T) {
	chat := &fakeChat{fetchErr: chatGone()}
	s, st := newTestScheduler(t, chat)
	if err := st.SetStatusChannel("chan-1"); err != nil {
		t.Fatal(err)
	}
	if err := st.SetStatusMessageID("deleted-msg"); err != nil {
		t.Fatal(err)
	}

	s.restore(context.Background())
	if s.State() != StateRecovering {
		t.Fatalf("unfetchable message should recover, got %s", s.State())
	}

	s.tick(context.Background())
	if len(chat.published) != 1 {
		t.Fatalf("expected one publish, got %v", chat.published)
	}
	if s.State() != StateTracking {
		t.Fatalf("expected tracking after publish, got %s", s.State())
	}

	cfg, err := st.LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.StatusMessageID != "msg-1" {
		t.Fatalf("new message id not persisted: %q", cfg.StatusMessageID)
	}
}

func TestEditFailurePublishesNextTick(t *testing.T) {
	chat := &fakeChat{}
	s, st := newTestScheduler(t, chat)
	if err := st.SetStatusChannel("chan-1"); err != nil {
		t.Fatal(err)
	}
	if err := st.SetStatusMessageID("live-msg"); err != nil {
		t.Fatal(err)
	}
	s.restore(context.Background())

	chat.editErr = &channels.APIError{Op: "edit message", Err: errors.New("missing permissions")}
	s.tick(context.Background())
	if s.State() != StateRecovering {
		t.Fatalf("edit failure should drop to recovering, got %s", s.State())
	}
	if len(chat.published) != 0 {
		t.Fatal("the failing tick must not publish: no same-tick retry")
	}

	chat.editErr = nil
	s.tick(context.Background())
	if len(chat.published) != 1 {
		t.Fatalf("next tick should publish a fresh message, got %v", chat.published)
	}
	if len(chat.edited) != 0 {
		t.Fatalf("the stale message must not be edited again, got %v", chat.edited)
	}
}

func TestPublishFailureStaysRecovering(t *testing.T) {
	chat := &fakeChat{publishErr: &channels.APIError{Op: "send message", Err: errors.New("timeout")}}
	s, st := newTestScheduler(t, chat)
	if err := st.SetStatusChannel("chan-1"); err != nil {
		t.Fatal(err)
	}
	s.restore(context.Background())

	s.tick(context.Background())
	if s.State() != StateRecovering {
		t.Fatalf("expected recovering after failed publish, got %s", s.State())
	}

	chat.publishErr = nil
	s.tick(context.Background())
	if s.State() != StateTracking {
		t.Fatalf("expected tracking after retry, got %s", s.State())
	}
}

func TestChannelReassignmentDropsTrackedMessage(t *testing.T) {
	chat := &fakeChat{}
	s, st := newTestScheduler(t, chat)
	if err := st.SetStatusChannel("chan-1"); err != nil {
		t.Fatal(err)
	}
	s.restore(context.Background())
	s.tick(context.Background())
	if s.State() != StateTracking {
		t.Fatalf("expected tracking, got %s", s.State())
	}

	if err := st.SetStatusChannel("chan-2"); err != nil {
		t.Fatal(err)
	}
	s.tick(context.Background())
	if len(chat.published) != 2 {
		t.Fatalf("expected publish into the new channel, got %v", chat.published)
	}
	if chat.published[1] != "chan-2/msg-2" {
		t.Fatalf("publish went to the wrong channel: %v", chat.published)
	}
}

func TestCountdownResetsToCurrentInterval(t *testing.T) {
	chat := &fakeChat{}
	s, st := newTestScheduler(t, chat)
	if err := st.SetRefreshSeconds(3); err != nil {
		t.Fatal(err)
	}
	if err := st.SetStatusChannel("chan-1"); err != nil {
		t.Fatal(err)
	}
	s.restore(context.Background())
	if s.countdown != 3 {
		t.Fatalf("countdown should start at the interval, got %d", s.countdown)
	}

	// Interval change applies when the countdown next reaches zero.
	if err := st.SetRefreshSeconds(5); err != nil {
		t.Fatal(err)
	}
	s.tick(context.Background()) // renders 3, countdown -> 2
	s.tick(context.Background()) // renders 2, countdown -> 1
	if s.countdown != 1 {
		t.Fatalf("expected countdown 1, got %d", s.countdown)
	}
	s.tick(context.Background()) // renders 1, resets to current interval
	if s.countdown != 5 {
		t.Fatalf("expected reset to updated interval 5, got %d", s.countdown)
	}

	// Every tick published or edited regardless of the countdown.
	total := len(chat.published) + len(chat.edited)
	if total != 3 {
		t.Fatalf("expected a chat call per tick, got %d", total)
	}
}
