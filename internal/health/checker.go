// Package health tracks whether the ledgerd process can serve calls by
// periodically probing its dependencies.
package health

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Config holds health check configuration.
type Config struct {
	CheckInterval time.Duration
	ProbeTimeout  time.Duration
	FailThreshold int
}

// Probe checks one dependency. A nil error means healthy.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

// StatusChangeFunc is called when overall readiness flips.
type StatusChangeFunc func(ready bool)

// MetricsRecordFunc is an optional callback for recording probe results.
type MetricsRecordFunc func(probe string, success bool)

// Status is the last known state of one probe.
type Status struct {
	Name      string    `json:"name"`
	Healthy   bool      `json:"healthy"`
	FailCount int       `json:"fail_count"`
	LastError string    `json:"last_error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Checker runs periodic dependency probes. A probe is considered degraded
// once it fails FailThreshold times in a row, and the checker is ready only
// while no probe is degraded.
type Checker struct {
	probes   []Probe
	cfg      Config
	mu       sync.Mutex
	statuses map[string]*Status
	ready    bool
	onChange StatusChangeFunc
	onMetric MetricsRecordFunc
	logger   *zap.Logger
}

// New creates a Checker over probes. It starts ready.
func New(probes []Probe, cfg Config, logger *zap.Logger) *Checker {
	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = 15 * time.Second
	}
	if cfg.ProbeTimeout == 0 {
		cfg.ProbeTimeout = 5 * time.Second
	}
	if cfg.FailThreshold == 0 {
		cfg.FailThreshold = 3
	}

	statuses := make(map[string]*Status, len(probes))
	for _, p := range probes {
		statuses[p.Name] = &Status{Name: p.Name, Healthy: true}
	}
	return &Checker{
		probes:   probes,
		cfg:      cfg,
		statuses: statuses,
		ready:    true,
		logger:   logger,
	}
}

// SetStatusChange configures the readiness transition callback.
func (h *Checker) SetStatusChange(fn StatusChangeFunc) {
	h.onChange = fn
}

// SetMetricsRecord configures the metrics recording callback.
func (h *Checker) SetMetricsRecord(fn MetricsRecordFunc) {
	h.onMetric = fn
}

// Start runs the check loop until ctx is done.
func (h *Checker) Start(ctx context.Context) {
	ticker := time.NewTicker(h.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.CheckAll(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// CheckAll runs every probe concurrently and updates readiness.
func (h *Checker) CheckAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, p := range h.probes {
		wg.Add(1)
		go func(p Probe) {
			defer wg.Done()
			pctx, cancel := context.WithTimeout(ctx, h.cfg.ProbeTimeout)
			err := p.Check(pctx)
			cancel()
			h.record(p.Name, err)
		}(p)
	}
	wg.Wait()

	h.mu.Lock()
	ready := true
	for _, st := range h.statuses {
		if st.FailCount >= h.cfg.FailThreshold {
			ready = false
		}
	}
	changed := ready != h.ready
	h.ready = ready
	h.mu.Unlock()

	if changed {
		if ready {
			h.logger.Info("health: ready")
		} else {
			h.logger.Warn("health: not ready")
		}
		if h.onChange != nil {
			h.onChange(ready)
		}
	}
}

func (h *Checker) record(name string, err error) {
	if h.onMetric != nil {
		h.onMetric(name, err == nil)
	}

	h.mu.Lock()
	st := h.statuses[name]
	prevCount := st.FailCount
	st.CheckedAt = time.Now().UTC()
	if err == nil {
		st.FailCount = 0
		st.LastError = ""
	} else {
		st.FailCount++
		st.LastError = err.Error()
	}
	st.Healthy = st.FailCount < h.cfg.FailThreshold
	count := st.FailCount
	h.mu.Unlock()

	switch {
	case err == nil && prevCount >= h.cfg.FailThreshold:
		h.logger.Info("health: recovered", zap.String("probe", name))
	case err != nil && count == h.cfg.FailThreshold:
		// Logged once, exactly at the threshold.
		h.logger.Warn("health: degraded",
			zap.String("probe", name),
			zap.Int("fail_count", count),
			zap.Error(err),
		)
	}
}

// Ready reports whether every probe is below the failure threshold.
func (h *Checker) Ready() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ready
}

// Statuses returns a copy of every probe's status, ordered by name.
func (h *Checker) Statuses() []Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Status, 0, len(h.statuses))
	for _, st := range h.statuses {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
