package telemetry

import (
	"sync/atomic"
)

type Metrics struct {
	ReportsAccepted        atomic.Uint64
	ReportsRejectedAuth    atomic.Uint64
	ReportsRejectedInvalid atomic.Uint64
	SchedulerTicks         atomic.Uint64
	MessagesPublished      atomic.Uint64
	MessagesEdited         atomic.Uint64
	PublishFailures        atomic.Uint64
	EditFailures           atomic.Uint64
	SnapshotsTaken         atomic.Uint64
	SnapshotFailures       atomic.Uint64
}
