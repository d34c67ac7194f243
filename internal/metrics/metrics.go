// Package metrics records remote fetch activity of a crawl run.
//
// Every run owns its own prometheus registry so that statistics of one
// crawl never leak into another. The collected values are summarized into
// model.FetchStats for the output artifact.
package metrics

import (
	"fmt"
	"sort"
	"time"

	"github.com/nao1215/componentscan/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Fetch kinds.
const (
	KindJSON   = "json"
	KindText   = "text"
	KindBinary = "binary"
)

// Fetch outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeNotFound    = "not_found"
	OutcomeStatus      = "status"
	OutcomeTimeout     = "timeout"
	OutcomeInvalidJSON = "invalid_json"
	OutcomeError       = "error"
)

const (
	fetchesTotalName = "componentscan_fetches_total"
	cacheHitsName    = "componentscan_cache_hits_total"
	componentsName   = "componentscan_components_analyzed_total"
)

// Registry holds the metrics of one crawl run.
type Registry struct {
	FetchesTotal       *prometheus.CounterVec
	FetchDuration      *prometheus.HistogramVec
	CacheHitsTotal     prometheus.Counter
	ComponentsAnalyzed prometheus.Counter

	registry *prometheus.Registry
}

// NewRegistry creates a registry with all metrics registered.
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}

	r.FetchesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: fetchesTotalName,
			Help: "Total number of repository fetches",
		},
		[]string{"kind", "outcome"},
	)

	r.FetchDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "componentscan_fetch_duration_seconds",
			Help:    "Repository fetch latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	r.CacheHitsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: cacheHitsName,
			Help: "JSON lookups served from the per-run memo",
		},
	)

	r.ComponentsAnalyzed = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: componentsName,
			Help: "Components analyzed in this run",
		},
	)

	return r
}

// RecordFetch counts one remote request.
func (r *Registry) RecordFetch(kind, outcome string, duration time.Duration) {
	r.FetchesTotal.WithLabelValues(kind, outcome).Inc()
	r.FetchDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordCacheHit counts one memoized JSON lookup.
func (r *Registry) RecordCacheHit() {
	r.CacheHitsTotal.Inc()
}

// RecordComponent counts one analyzed component.
func (r *Registry) RecordComponent() {
	r.ComponentsAnalyzed.Inc()
}

// Gatherer exposes the underlying registry, e.g. for a text exposition dump.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Snapshot summarizes the current counter values.
func (r *Registry) Snapshot() (*model.FetchStats, error) {
	families, err := r.registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("failed to gather metrics: %w", err)
	}

	stats := &model.FetchStats{Requests: make(map[string]int)}
	for _, family := range families {
		switch family.GetName() {
		case fetchesTotalName:
			for _, m := range family.GetMetric() {
				n := int(m.GetCounter().GetValue())
				stats.Requests[labelValue(m, "kind")+"/"+labelValue(m, "outcome")] = n
				stats.Total += n
			}
		case cacheHitsName:
			stats.CacheHits = sumCounters(family)
		case componentsName:
			stats.Components = sumCounters(family)
		}
	}
	return stats, nil
}

// Keys returns the request keys of stats in sorted order.
func Keys(stats *model.FetchStats) []string {
	keys := make([]string, 0, len(stats.Requests))
	for k := range stats.Requests {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

func sumCounters(family *dto.MetricFamily) int {
	total := 0
	for _, m := range family.GetMetric() {
		total += int(m.GetCounter().GetValue())
	}
	return total
}
