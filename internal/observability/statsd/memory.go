package statsd

import (
	"maps"
	"sync"
	"time"
)

// Recorded is one metric captured by MemorySink.
type Recorded struct {
	Kind  string
	Name  string
	Value float64
	Tags  map[string]string
}

// MemorySink keeps metrics in memory. Used by tests and local runs without an agent.
type MemorySink struct {
	mu      sync.Mutex
	records []Recorded
}

var _ Sink = (*MemorySink)(nil)

func (m *MemorySink) add(r Recorded) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.Tags = maps.Clone(r.Tags)
	m.records = append(m.records, r)
}

func (m *MemorySink) Count(name string, value int64, tags map[string]string) {
	m.add(Recorded{Kind: "c", Name: name, Value: float64(value), Tags: tags})
}

func (m *MemorySink) Gauge(name string, value float64, tags map[string]string) {
	m.add(Recorded{Kind: "g", Name: name, Value: value, Tags: tags})
}

func (m *MemorySink) Timing(name string, value time.Duration, tags map[string]string) {
	m.add(Recorded{Kind: "ms", Name: name, Value: float64(value) / float64(time.Millisecond), Tags: tags})
}

// Records returns a copy of everything captured so far.
func (m *MemorySink) Records() []Recorded {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Recorded, len(m.records))
	copy(out, m.records)
	return out
}

// Sum adds up every counter named name whose tags include match.
func (m *MemorySink) Sum(name string, match map[string]string) float64 {
	var total float64
	for _, r := range m.Records() {
		if r.Kind != "c" || r.Name != name {
			continue
		}
		ok := true
		for k, v := range match {
			if r.Tags[k] != v {
				ok = false
				break
			}
		}
		if ok {
			total += r.Value
		}
	}
	return total
}
