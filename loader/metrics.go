package loader

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts chunk lifecycle events. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	ChunkLoads            prometheus.Counter
	StaleCompletions      prometheus.Counter
	BlockedUnloads        prometheus.Counter
	SuppressedTransitions prometheus.Counter
	FanOuts               prometheus.Counter
	Promotions            prometheus.Counter
	HookFailures          *prometheus.CounterVec
	Resident              prometheus.Gauge
}

// NewMetrics creates the collectors and registers them on reg when it is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ChunkLoads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "onelevel",
			Name:      "chunk_loads_total",
			Help:      "Chunk scenes that finished loading and were placed in world space.",
		}),
		StaleCompletions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "onelevel",
			Name:      "stale_completions_total",
			Help:      "Chunk loads that finished after their map stopped being active.",
		}),
		BlockedUnloads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "onelevel",
			Name:      "blocked_unloads_total",
			Help:      "Host unload calls suppressed to keep a chunk resident.",
		}),
		SuppressedTransitions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "onelevel",
			Name:      "suppressed_transitions_total",
			Help:      "Transition triggers suppressed because the target chunk is resident.",
		}),
		FanOuts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "onelevel",
			Name:      "fan_outs_total",
			Help:      "Host scene loads expanded into a whole chunk map.",
		}),
		Promotions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "onelevel",
			Name:      "promotions_total",
			Help:      "Changes of the current chunk.",
		}),
		HookFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "onelevel",
			Name:      "hook_failures_total",
			Help:      "Recovered panics inside host hooks.",
		}, []string{"hook"}),
		Resident: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "onelevel",
			Name:      "resident_chunks",
			Help:      "Chunks loaded or loading.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.ChunkLoads,
			m.StaleCompletions,
			m.BlockedUnloads,
			m.SuppressedTransitions,
			m.FanOuts,
			m.Promotions,
			m.HookFailures,
			m.Resident,
		)
	}
	return m
}

func (m *Metrics) chunkLoaded() {
	if m != nil && m.ChunkLoads != nil {
		m.ChunkLoads.Inc()
	}
}

func (m *Metrics) staleCompletion() {
	if m != nil && m.StaleCompletions != nil {
		m.StaleCompletions.Inc()
	}
}

func (m *Metrics) unloadBlocked() {
	if m != nil && m.BlockedUnloads != nil {
		m.BlockedUnloads.Inc()
	}
}

func (m *Metrics) transitionSuppressed() {
	if m != nil && m.SuppressedTransitions != nil {
		m.SuppressedTransitions.Inc()
	}
}

func (m *Metrics) fannedOut() {
	if m != nil && m.FanOuts != nil {
		m.FanOuts.Inc()
	}
}

func (m *Metrics) promoted() {
	if m != nil && m.Promotions != nil {
		m.Promotions.Inc()
	}
}

func (m *Metrics) hookFailed(hook string) {
	if m == nil || m.HookFailures == nil {
		return
	}
	m.HookFailures.WithLabelValues(hook).Inc()
}

func (m *Metrics) resident(n int) {
	if m == nil || m.Resident == nil {
		return
	}
	m.Resident.Set(float64(n))
}
