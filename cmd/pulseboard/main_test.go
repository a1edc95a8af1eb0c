package main

import (
	"strings"
	"testing"
	"time"

	"github.com/grixate/pulseboard/internal/store"
)

func testConfig() store.Config {
	cfg := store.DefaultConfig()
	cfg.GoodMarker = "[good]"
	cfg.WarnMarker = "[warn]"
	cfg.BadMarker = "[bad]"
	return cfg
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func TestStatusSummary(t *testing.T) {
	cfg := testConfig()

	if got := statusSummary(cfg, "ping", store.CommandStatus{LastSuccess: false}); got != "failed" {
		t.Fatalf("failed summary: %q", got)
	}
	if got := statusSummary(cfg, "clear", store.CommandStatus{LastSuccess: true, LastLatency: intPtr(900)}); got != "ok (silent)" {
		t.Fatalf("silent summary: %q", got)
	}
	if got := statusSummary(cfg, "ping", store.CommandStatus{LastSuccess: true}); got != "ok" {
		t.Fatalf("unmeasured summary: %q", got)
	}
	if got := statusSummary(cfg, "ping", store.CommandStatus{LastSuccess: true, LastLatency: intPtr(200)}); got != "ok [bad] 200 ms" {
		t.Fatalf("measured summary: %q", got)
	}
}

func TestLastUpdated(t *testing.T) {
	if got := lastUpdated(store.CommandStatus{}); got != "never reported" {
		t.Fatalf("empty timestamp: %q", got)
	}
	if got := lastUpdated(store.CommandStatus{LastUpdated: strPtr("not-a-time")}); got != "not-a-time" {
		t.Fatalf("unparsable timestamp should pass through: %q", got)
	}
	recent := time.Now().UTC().Add(-2 * time.Minute).Format(time.RFC3339)
	got := lastUpdated(store.CommandStatus{LastUpdated: &recent})
	if !strings.Contains(got, "ago") {
		t.Fatalf("expected relative time, got %q", got)
	}
}

func TestFormatStatusLine(t *testing.T) {
	line := formatStatusLine(testConfig(), "ping", store.CommandStatus{LastSuccess: true, LastLatency: intPtr(30)})
	if !strings.HasPrefix(line, "/ping") {
		t.Fatalf("line should start with the command: %q", line)
	}
	if !strings.Contains(line, "ok [good] 30 ms") {
		t.Fatalf("line missing summary: %q", line)
	}
	if !strings.Contains(line, "never reported") {
		t.Fatalf("line missing last-updated: %q", line)
	}
}
