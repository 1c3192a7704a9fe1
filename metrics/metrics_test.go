package metrics

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/hannes/pellucid-sanitizer/pii/detectors"
)

func TestZeroValue_SnapshotSafe(t *testing.T) {
	var m Metrics
	m.RecordReplacement(detectors.Email)
	s := m.Snapshot()
	if s.Requests.Single != 0 || len(s.Replacements) != 0 {
		t.Errorf("unexpected zero-value snapshot: %+v", s)
	}
}

func TestCounters(t *testing.T) {
	m := New()
	m.Requests.Add(4)
	m.RemoteFailures.Add(2)
	m.Fallbacks.Add(3)
	m.Escalations.Add(1)

	s := m.Snapshot()
	if s.Requests.Single != 4 {
		t.Errorf("Single: got %d, want 4", s.Requests.Single)
	}
	if s.Engine.RemoteFailures != 2 {
		t.Errorf("RemoteFailures: got %d, want 2", s.Engine.RemoteFailures)
	}
	if s.Engine.Fallbacks != 3 {
		t.Errorf("Fallbacks: got %d, want 3", s.Engine.Fallbacks)
	}
	if s.Validation.Escalations != 1 {
		t.Errorf("Escalations: got %d, want 1", s.Validation.Escalations)
	}
}

func TestRecordReplacement(t *testing.T) {
	m := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordReplacement(detectors.SSN)
		}()
	}
	wg.Wait()
	m.RecordReplacement(detectors.EntityType("ORG"))

	s := m.Snapshot()
	if s.Replacements["SSN"] != 50 {
		t.Errorf("SSN replacements: got %d, want 50", s.Replacements["SSN"])
	}
	if _, ok := s.Replacements["ORG"]; ok {
		t.Error("unknown type should be ignored")
	}
	if _, ok := s.Replacements["EMAIL_ADDRESS"]; ok {
		t.Error("zero counters should be omitted")
	}
}

func TestLatency(t *testing.T) {
	m := New()
	m.RecordLocalLatency(2 * time.Millisecond)
	m.RecordLocalLatency(4 * time.Millisecond)

	s := m.Snapshot()
	if s.Latency.LocalMs.Count != 2 {
		t.Fatalf("count: got %d, want 2", s.Latency.LocalMs.Count)
	}
	if s.Latency.LocalMs.MinMs != 2 || s.Latency.LocalMs.MaxMs != 4 || s.Latency.LocalMs.MeanMs != 3 {
		t.Errorf("unexpected latency summary: %+v", s.Latency.LocalMs)
	}
	if s.Latency.RemoteMs.Count != 0 {
		t.Errorf("remote latency should be empty: %+v", s.Latency.RemoteMs)
	}
}

func TestSnapshot_JSON(t *testing.T) {
	m := New()
	m.BatchRequests.Add(1)
	data, err := json.Marshal(m.Snapshot())
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"requests", "engine", "validation", "latency", "uptime_secs"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("snapshot JSON missing %q", key)
		}
	}
}
