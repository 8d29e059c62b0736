package reconciler

import (
	"sync"
	"time"

	"quadsync/pkg/logging"
)

const metricsSubsystem = "ReconcilerMetrics"

// Link operations counted by Metrics.
const (
	LinkCreated = "create"
	LinkRemoved = "remove"
)

// Metrics tracks reconciliation counters for the lifetime of the process.
//
// Every pass is logged at debug level as it is recorded; the counters are
// summarised in the log at shutdown.
type Metrics struct {
	mu sync.RWMutex

	passes        int64
	changedPasses int64
	stalePasses   int64
	rescans       int64

	linksCreated int64
	linksRemoved int64
	linkFailures int64

	reloads         int64
	serviceStarts   int64
	serviceStops    int64
	serviceFailures int64

	lastPassAt       time.Time
	lastPassDuration time.Duration
	lastChangeAt     time.Time
}

// NewMetrics creates an empty Metrics instance.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordPass records the outcome of a finished pass.
func (m *Metrics) RecordPass(res PassResult) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.passes++
	if res.Changed {
		m.changedPasses++
	}
	if res.Stale {
		m.stalePasses++
	}
	if res.Rescanned {
		m.rescans++
	}
	now := time.Now()
	m.lastPassAt = now
	m.lastPassDuration = res.Duration
	if res.Changed {
		m.lastChangeAt = now
	}

	logging.Debug(metricsSubsystem, "Pass %s finished in %s (changed=%t stale=%t)",
		res.ID, res.Duration, res.Changed, res.Stale)
}

// RecordLinkOp records a link mutation. err is nil on success.
func (m *Metrics) RecordLinkOp(op string, err error) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		m.linkFailures++
		return
	}
	switch op {
	case LinkCreated:
		m.linksCreated++
	case LinkRemoved:
		m.linksRemoved++
	}
}

// RecordServiceCall records a mutating service manager call (reload,
// start, stop). err is nil on success.
func (m *Metrics) RecordServiceCall(op string, err error) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		m.serviceFailures++
		return
	}
	switch op {
	case "reload":
		m.reloads++
	case "start":
		m.serviceStarts++
	case "stop":
		m.serviceStops++
	}
}

// MetricsSummary is a point-in-time copy of the counters.
type MetricsSummary struct {
	Passes           int64         `json:"passes"`
	ChangedPasses    int64         `json:"changed_passes"`
	StalePasses      int64         `json:"stale_passes"`
	Rescans          int64         `json:"rescans"`
	LinksCreated     int64         `json:"links_created"`
	LinksRemoved     int64         `json:"links_removed"`
	LinkFailures     int64         `json:"link_failures"`
	Reloads          int64         `json:"reloads"`
	ServiceStarts    int64         `json:"service_starts"`
	ServiceStops     int64         `json:"service_stops"`
	ServiceFailures  int64         `json:"service_failures"`
	LastPassAt       time.Time     `json:"last_pass_at,omitempty"`
	LastPassDuration time.Duration `json:"last_pass_duration"`
	LastChangeAt     time.Time     `json:"last_change_at,omitempty"`
}

// Summary returns a copy of the current counters.
func (m *Metrics) Summary() MetricsSummary {
	if m == nil {
		return MetricsSummary{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	return MetricsSummary{
		Passes:           m.passes,
		ChangedPasses:    m.changedPasses,
		StalePasses:      m.stalePasses,
		Rescans:          m.rescans,
		LinksCreated:     m.linksCreated,
		LinksRemoved:     m.linksRemoved,
		LinkFailures:     m.linkFailures,
		Reloads:          m.reloads,
		ServiceStarts:    m.serviceStarts,
		ServiceStops:     m.serviceStops,
		ServiceFailures:  m.serviceFailures,
		LastPassAt:       m.lastPassAt,
		LastPassDuration: m.lastPassDuration,
		LastChangeAt:     m.lastChangeAt,
	}
}

// LogSummary writes the counters to the log at info level.
func (m *Metrics) LogSummary() {
	s := m.Summary()
	logging.Info(metricsSubsystem,
		"%d passes (%d changed, %d stale), links +%d/-%d (%d failed), %d reloads, %d starts, %d stops, %d service failures",
		s.Passes, s.ChangedPasses, s.StalePasses, s.LinksCreated, s.LinksRemoved, s.LinkFailures,
		s.Reloads, s.ServiceStarts, s.ServiceStops, s.ServiceFailures)
}
