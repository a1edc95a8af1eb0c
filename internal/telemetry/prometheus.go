package telemetry

import (
	"fmt"
	"strings"
	"sync/atomic"
)

type descriptor struct {
	name    string
	help    string
	counter func(*Metrics) *atomic.Uint64
}

// descriptors fixes the exposition order; every Metrics counter has an
// entry here.
var descriptors = []descriptor{
	{"pulseboard_reports_accepted_total", "Reports accepted and applied to the status table.", func(m *Metrics) *atomic.Uint64 { return &m.ReportsAccepted }},
	{"pulseboard_reports_rejected_auth_total", "Reports rejected for a missing or wrong token.", func(m *Metrics) *atomic.Uint64 { return &m.ReportsRejectedAuth }},
	{"pulseboard_reports_rejected_invalid_total", "Reports rejected for malformed or invalid payloads.", func(m *Metrics) *atomic.Uint64 { return &m.ReportsRejectedInvalid }},
	{"pulseboard_scheduler_ticks_total", "Refresh loop iterations.", func(m *Metrics) *atomic.Uint64 { return &m.SchedulerTicks }},
	{"pulseboard_messages_published_total", "Fresh dashboard messages published.", func(m *Metrics) *atomic.Uint64 { return &m.MessagesPublished }},
	{"pulseboard_messages_edited_total", "In-place dashboard message edits.", func(m *Metrics) *atomic.Uint64 { return &m.MessagesEdited }},
	{"pulseboard_publish_failures_total", "Failed dashboard publish attempts.", func(m *Metrics) *atomic.Uint64 { return &m.PublishFailures }},
	{"pulseboard_edit_failures_total", "Failed dashboard edit attempts.", func(m *Metrics) *atomic.Uint64 { return &m.EditFailures }},
	{"pulseboard_snapshots_taken_total", "State snapshots written.", func(m *Metrics) *atomic.Uint64 { return &m.SnapshotsTaken }},
	{"pulseboard_snapshot_failures_total", "State snapshot attempts that failed.", func(m *Metrics) *atomic.Uint64 { return &m.SnapshotFailures }},
}

// Prometheus renders the counters in text exposition format.
func (m *Metrics) Prometheus() string {
	var b strings.Builder
	for _, d := range descriptors {
		fmt.Fprintf(&b, "# HELP %s %s\n", d.name, d.help)
		fmt.Fprintf(&b, "# TYPE %s counter\n", d.name)
		fmt.Fprintf(&b, "%s %d\n", d.name, d.counter(m).Load())
	}
	return b.String()
}
