// Package metrics holds process-wide sanitization counters surfaced on /stats.
// Counters are atomic; latency summaries take a mutex once per call.
package metrics

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hannes/pellucid-sanitizer/pii/detectors"
)

// Metrics is safe for concurrent use. Use New; the per-type map is only
// populated there.
type Metrics struct {
	Requests      atomic.Int64 // single-item sanitize calls
	BatchRequests atomic.Int64
	BatchItems    atomic.Int64
	InvalidInputs atomic.Int64

	RemoteSuccesses atomic.Int64
	RemoteFailures  atomic.Int64
	Fallbacks       atomic.Int64 // items sanitized locally after a remote failure
	LocalOnly       atomic.Int64 // items sanitized locally with no remote configured
	ItemFailures    atomic.Int64 // batch items that produced no result

	ValidationFailures atomic.Int64
	Escalations        atomic.Int64

	// written only in New
	replacements map[detectors.EntityType]*atomic.Int64

	localMu   sync.Mutex
	localStat latencyStats

	remoteMu   sync.Mutex
	remoteStat latencyStats

	startTime time.Time
}

func New() *Metrics {
	m := &Metrics{
		replacements: make(map[detectors.EntityType]*atomic.Int64, len(detectors.AllEntityTypes)),
		startTime:    time.Now(),
	}
	for _, t := range detectors.AllEntityTypes {
		m.replacements[t] = new(atomic.Int64)
	}
	return m
}

// RecordReplacement counts one replaced span. Types outside the local
// catalog are ignored.
func (m *Metrics) RecordReplacement(t detectors.EntityType) {
	if c, ok := m.replacements[t]; ok {
		c.Add(1)
	}
}

func (m *Metrics) RecordLocalLatency(d time.Duration) {
	m.localMu.Lock()
	m.localStat.record(float64(d.Microseconds()) / 1000.0)
	m.localMu.Unlock()
}

func (m *Metrics) RecordRemoteLatency(d time.Duration) {
	m.remoteMu.Lock()
	m.remoteStat.record(float64(d.Microseconds()) / 1000.0)
	m.remoteMu.Unlock()
}

// Snapshot returns a point-in-time copy suitable for JSON encoding
func (m *Metrics) Snapshot() Snapshot {
	m.localMu.Lock()
	local := m.localStat.snapshot()
	m.localMu.Unlock()

	m.remoteMu.Lock()
	remote := m.remoteStat.snapshot()
	m.remoteMu.Unlock()

	byType := make(map[string]int64, len(m.replacements))
	for t, c := range m.replacements {
		if n := c.Load(); n > 0 {
			byType[string(t)] = n
		}
	}

	var uptime float64
	if !m.startTime.IsZero() {
		uptime = time.Since(m.startTime).Seconds()
	}

	return Snapshot{
		Requests: RequestSnapshot{
			Single:  m.Requests.Load(),
			Batch:   m.BatchRequests.Load(),
			Items:   m.BatchItems.Load(),
			Invalid: m.InvalidInputs.Load(),
		},
		Engine: EngineSnapshot{
			RemoteSuccesses: m.RemoteSuccesses.Load(),
			RemoteFailures:  m.RemoteFailures.Load(),
			Fallbacks:       m.Fallbacks.Load(),
			LocalOnly:       m.LocalOnly.Load(),
			ItemFailures:    m.ItemFailures.Load(),
		},
		Validation: ValidationSnapshot{
			Failures:    m.ValidationFailures.Load(),
			Escalations: m.Escalations.Load(),
		},
		Replacements: byType,
		Latency: LatencyGroup{
			LocalMs:  local,
			RemoteMs: remote,
		},
		UptimeSecs: uptime,
	}
}

type Snapshot struct {
	Requests     RequestSnapshot    `json:"requests"`
	Engine       EngineSnapshot     `json:"engine"`
	Validation   ValidationSnapshot `json:"validation"`
	Replacements map[string]int64   `json:"replacements,omitempty"`
	Latency      LatencyGroup       `json:"latency"`
	UptimeSecs   float64            `json:"uptime_secs"`
}

type RequestSnapshot struct {
	Single  int64 `json:"single"`
	Batch   int64 `json:"batch"`
	Items   int64 `json:"batch_items"`
	Invalid int64 `json:"invalid"`
}

type EngineSnapshot struct {
	RemoteSuccesses int64 `json:"remote_successes"`
	RemoteFailures  int64 `json:"remote_failures"`
	Fallbacks       int64 `json:"fallbacks"`
	LocalOnly       int64 `json:"local_only"`
	ItemFailures    int64 `json:"item_failures"`
}

type ValidationSnapshot struct {
	Failures    int64 `json:"failures"`
	Escalations int64 `json:"escalations"`
}

type LatencyGroup struct {
	LocalMs  LatencySnapshot `json:"local_ms"`
	RemoteMs LatencySnapshot `json:"remote_ms"`
}

type LatencySnapshot struct {
	Count  int64   `json:"count"`
	MinMs  float64 `json:"min_ms"`
	MeanMs float64 `json:"mean_ms"`
	MaxMs  float64 `json:"max_ms"`
}

type latencyStats struct {
	count int64
	sum   float64
	min   float64
	max   float64
}

func (s *latencyStats) record(ms float64) {
	s.count++
	s.sum += ms
	if s.count == 1 || ms < s.min {
		s.min = ms
	}
	if ms > s.max {
		s.max = ms
	}
}

func (s *latencyStats) snapshot() LatencySnapshot {
	if s.count == 0 {
		return LatencySnapshot{}
	}
	return LatencySnapshot{
		Count:  s.count,
		MinMs:  round2(s.min),
		MeanMs: round2(s.sum / float64(s.count)),
		MaxMs:  round2(s.max),
	}
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
