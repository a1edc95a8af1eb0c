package dashboard

import (
	"fmt"

	"github.com/grixate/pulseboard/internal/store"
)

const (
	// DisplayCap bounds how many catalog entries the dashboard shows.
	DisplayCap = 15

	// AccentColor is the embed accent used by backends that support it.
	AccentColor = 0x1abc9c

	fastCeilingMS = 50
	warnCeilingMS = 150
)

type Field struct {
	Name  string
	Value string
}

// Document is the rendered dashboard, independent of any chat
// platform. Backends translate it into an embed or plain text.
type Document struct {
	Title  string
	Fields []Field
	Footer string
	Color  int
}

// Render builds the dashboard from a point-in-time view of the three
// tables. It is a pure transform: no store or chat-API access.
func Render(cfg store.Config, catalog []string, status map[string]store.CommandStatus, countdownSeconds int) Document {
	doc := Document{
		Title: fmt.Sprintf("⚡ Command Status | Updating in: %d seconds \U0001f4f6", countdownSeconds),
		Color: AccentColor,
	}

	shown := catalog
	if len(shown) > DisplayCap {
		shown = shown[:DisplayCap]
	}
	for _, raw := range shown {
		command := store.NormalizeCommand(raw)
		entry, ok := status[command]
		if !ok {
			entry = store.CommandStatus{LastSuccess: true}
		}
		doc.Fields = append(doc.Fields, Field{
			Name:  fieldName(command, entry.LastSuccess),
			Value: fieldValue(cfg, command, entry),
		})
	}
	if len(catalog) > DisplayCap {
		doc.Footer = fmt.Sprintf("Only the first %d commands are displayed (%d total).", DisplayCap, len(catalog))
	}
	return doc
}

func fieldName(command string, lastSuccess bool) string {
	percent := "100%"
	if !lastSuccess {
		percent = "0%"
	}
	return fmt.Sprintf("\U0001f539 | /%s: %s", command, percent)
}

// fieldValue applies the display precedence: failure first, then the
// silent-command marker, then the measured latency bucket.
func fieldValue(cfg store.Config, command string, entry store.CommandStatus) string {
	if !entry.LastSuccess {
		return "(Ping: — | ❌ Failed last run)"
	}
	if cfg.IsSilent(command) {
		return fmt.Sprintf("(Ping: — | %s Executes silently)", cfg.GoodMarker)
	}
	if entry.LastLatency == nil {
		return fmt.Sprintf("(Ping: — | %s)", cfg.GoodMarker)
	}
	return fmt.Sprintf("(Ping: %d ms | %s)", *entry.LastLatency, LatencyMarker(cfg, *entry.LastLatency))
}

// LatencyMarker buckets a latency measurement: below 50 ms is good,
// 50-150 ms inclusive is warn, above 150 ms is bad.
func LatencyMarker(cfg store.Config, latencyMS int) string {
	switch {
	case latencyMS < fastCeilingMS:
		return cfg.GoodMarker
	case latencyMS <= warnCeilingMS:
		return cfg.WarnMarker
	default:
		return cfg.BadMarker
	}
}
