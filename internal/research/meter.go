package research

import (
	"sync"

	"github.com/sells-group/contact-research/internal/cost"
)

// Meter accumulates provider usage across concurrent calls. A nil *Meter
// discards everything.
type Meter struct {
	mu    sync.Mutex
	usage map[string]cost.Usage
}

// NewMeter returns an empty Meter.
func NewMeter() *Meter {
	return &Meter{usage: make(map[string]cost.Usage)}
}

// Record adds u to the provider's running total.
func (m *Meter) Record(provider string, u cost.Usage) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usage[provider] = m.usage[provider].Add(u)
}

// Snapshot returns a copy of the usage recorded so far, keyed by provider.
func (m *Meter) Snapshot() map[string]cost.Usage {
	out := make(map[string]cost.Usage)
	if m == nil {
		return out
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range m.usage {
		out[k] = v
	}
	return out
}

// Total returns the usage of all providers combined.
func (m *Meter) Total() cost.Usage {
	var total cost.Usage
	for _, u := range m.Snapshot() {
		total = total.Add(u)
	}
	return total
}
