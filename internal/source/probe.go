package source

import (
	"context"
	"net/url"
	"sync"
	"time"
)

// Provider names used in probe results.
const (
	ProviderOpenGov = "opengov"
	ProviderValet   = "valet"
	ProviderCensus  = "census"
)

// ProviderStatus is the outcome of one reachability check.
type ProviderStatus struct {
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	OK        bool      `json:"ok"`
	LatencyMS int64     `json:"latency_ms"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Probe checks that each upstream provider answers a minimal query and
// keeps the latest results.
type Probe struct {
	upstream

	mu   sync.Mutex
	last []ProviderStatus
}

// NewProbe creates a probe. It shares the client options so it hits the
// same endpoints with the same timeout as the enhanced client.
func NewProbe(opts ...Option) *Probe {
	return &Probe{upstream: upstream{buildOptions("probe", EnhancedTimeout, opts)}}
}

type probeTarget struct {
	name     string
	endpoint string
	query    url.Values
}

func (p *Probe) targets() []probeTarget {
	return []probeTarget{
		{ProviderOpenGov, p.endpoints.packageSearch(), searchParams("housing", orgCMHC, 1, false)},
		{ProviderValet, p.endpoints.valetObservations(SeriesOvernightRate), url.Values{"recent": {"1"}}},
		{ProviderCensus, p.endpoints.census("hv"), url.Values{"get": {"cell_value"}, "time": {"2024"}}},
	}
}

// Run checks every provider sequentially and returns the results.
func (p *Probe) Run(ctx context.Context) []ProviderStatus {
	var results []ProviderStatus
	for _, t := range p.targets() {
		start := p.now()
		_, err := p.fetcher.Get(ctx, t.endpoint, t.query)
		st := ProviderStatus{
			Name:      t.name,
			URL:       t.endpoint,
			OK:        err == nil,
			LatencyMS: p.now().Sub(start).Milliseconds(),
			CheckedAt: start.UTC(),
		}
		if err != nil {
			st.Error = err.Error()
			p.logger.Warn("provider unreachable", "provider", t.name, "error", err)
		} else {
			p.logger.Debug("provider reachable", "provider", t.name, "latency_ms", st.LatencyMS)
		}
		results = append(results, st)
	}

	p.mu.Lock()
	p.last = results
	p.mu.Unlock()
	return results
}

// Last returns the results of the most recent Run, or an empty slice.
func (p *Probe) Last() []ProviderStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ProviderStatus, len(p.last))
	copy(out, p.last)
	return out
}
