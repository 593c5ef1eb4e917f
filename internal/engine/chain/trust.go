package chain

import (
	"sync"

	"github.com/erp-ledger-engine/internal/platform/metrics"
)

// TrustState tracks, per org, whether the last chain verification
// passed. A break never blocks reads or writes; it flips this flag so
// every response can carry the degraded-trust marker until an operator
// intervenes.
type TrustState struct {
	mu      sync.RWMutex
	broken  map[string]bool
	metrics *metrics.Metrics
}

func NewTrustState(m *metrics.Metrics) *TrustState {
	return &TrustState{
		broken:  make(map[string]bool),
		metrics: m,
	}
}

// Record stores a verification outcome for the org.
func (t *TrustState) Record(orgID string, intact bool) {
	t.mu.Lock()
	t.broken[orgID] = !intact
	t.mu.Unlock()

	value := 1.0
	if !intact {
		value = 0.0
	}
	t.metrics.ChainIntact.WithLabelValues(orgID).Set(value)
}

// Intact reports the last known verification outcome. Unverified orgs
// are treated as intact.
func (t *TrustState) Intact(orgID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return !t.broken[orgID]
}
