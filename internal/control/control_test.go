package control

import (
	"errors"
	"io"
	"log"
	"testing"

	"github.com/grixate/pulseboard/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	st, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := st.LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	cfg.OwnerID = "owner-1"
	if err := st.SaveConfig(cfg); err != nil {
		t.Fatal(err)
	}
	return NewService(st, log.New(io.Discard, "", 0)), st
}

func TestParseTimeInput(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"30", 30, false},
		{"30s", 30, false},
		{"5m", 300, false},
		{"2h", 7200, false},
		{"1d", 86400, false},
		{" 10 m ", 600, false},
		{"5M", 300, false},
		{"abc", 0, true},
		{"", 0, true},
		{"-5", 0, true},
		{"5w", 0, true},
		{"m5", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseTimeInput(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseTimeInput(%q): expected error", tc.in)
			}
			if err != nil && !errors.Is(err, ErrBadDuration) {
				t.Errorf("ParseTimeInput(%q): error should wrap ErrBadDuration, got %v", tc.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseTimeInput(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseTimeInput(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestHumanSeconds(t *testing.T) {
	cases := []struct {
		in   int
		want string
	}{
		{45, "45s"},
		{60, "1m"},
		{300, "5m"},
		{3600, "1h"},
		{7200, "2h"},
		{86400, "1d"},
		{90, "90s"},
	}
	for _, tc := range cases {
		if got := HumanSeconds(tc.in); got != tc.want {
			t.Errorf("HumanSeconds(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSetRefreshOwnerOnly(t *testing.T) {
	svc, st := newTestService(t)

	reply, err := svc.SetRefresh("intruder", "5m")
	if !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if reply == "" {
		t.Fatal("expected a user-facing denial")
	}
	cfg, err := st.LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RefreshSeconds != 60 {
		t.Fatalf("denied call mutated config: %d", cfg.RefreshSeconds)
	}
}

func TestSetRefresh(t *testing.T) {
	svc, st := newTestService(t)

	reply, err := svc.SetRefresh("owner-1", "5m")
	if err != nil {
		t.Fatal(err)
	}
	if reply != "✅ Status refresh time set to 5m (300 seconds)." {
		t.Fatalf("unexpected reply: %q", reply)
	}
	cfg, err := st.LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RefreshSeconds != 300 {
		t.Fatalf("interval not persisted: %d", cfg.RefreshSeconds)
	}
}

func TestSetRefreshRejectsBadInput(t *testing.T) {
	svc, st := newTestService(t)

	if _, err := svc.SetRefresh("owner-1", "abc"); !errors.Is(err, ErrBadDuration) {
		t.Fatalf("expected ErrBadDuration, got %v", err)
	}
	cfg, err := st.LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RefreshSeconds != 60 {
		t.Fatalf("rejected input mutated config: %d", cfg.RefreshSeconds)
	}
}

func TestGetRefresh(t *testing.T) {
	svc, st := newTestService(t)
	if err := st.SetRefreshSeconds(7200); err != nil {
		t.Fatal(err)
	}
	reply, err := svc.GetRefresh()
	if err != nil {
		t.Fatal(err)
	}
	if reply != "Current status refresh: 2h (7200 seconds)." {
		t.Fatalf("unexpected reply: %q", reply)
	}
}

func TestSetChannelClearsMessage(t *testing.T) {
	svc, st := newTestService(t)
	if err := st.SetStatusChannel("chan-1"); err != nil {
		t.Fatal(err)
	}
	if err := st.SetStatusMessageID("msg-1"); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.SetChannel("owner-1", "chan-2"); err != nil {
		t.Fatal(err)
	}
	cfg, err := st.LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.StatusChannelID != "chan-2" {
		t.Fatalf("channel not updated: %q", cfg.StatusChannelID)
	}
	if cfg.StatusMessageID != "" {
		t.Fatalf("message id should be cleared, got %q", cfg.StatusMessageID)
	}
}

func TestSetChannelOwnerOnly(t *testing.T) {
	svc, st := newTestService(t)
	if _, err := svc.SetChannel("intruder", "chan-2"); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	cfg, err := st.LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.StatusChannelID != "" {
		t.Fatalf("denied call mutated config: %q", cfg.StatusChannelID)
	}
}
