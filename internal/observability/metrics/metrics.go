package metrics

import "github.com/prometheus/client_golang/prometheus"

// GalleryMetrics exposes counters/histograms for image workflow flows.
type GalleryMetrics struct {
	workflowTotal      *prometheus.CounterVec
	capacityRejections prometheus.Counter
	conflictRetries    prometheus.Counter
	workflowLatency    *prometheus.HistogramVec
}

func NewGalleryMetrics(reg prometheus.Registerer) *GalleryMetrics {
	m := &GalleryMetrics{
		workflowTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadimage",
			Subsystem: "gallery",
			Name:      "workflow_total",
			Help:      "Total image workflow invocations",
		}, []string{"operation", "status"}),
		capacityRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "leadimage",
			Subsystem: "gallery",
			Name:      "capacity_rejections_total",
			Help:      "Uploads rejected because the lead was at its image limit",
		}),
		conflictRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "leadimage",
			Subsystem: "gallery",
			Name:      "write_conflicts_total",
			Help:      "Conditional writes that lost an optimistic concurrency race",
		}),
		workflowLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "leadimage",
			Subsystem: "gallery",
			Name:      "workflow_latency_seconds",
			Help:      "Latency of image workflow processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.workflowTotal, m.capacityRejections, m.conflictRetries, m.workflowLatency)
	return m
}

func (m *GalleryMetrics) ObserveWorkflow(operation, status string) {
	if m == nil {
		return
	}
	m.workflowTotal.WithLabelValues(operation, status).Inc()
}

func (m *GalleryMetrics) ObserveCapacityRejection() {
	if m == nil {
		return
	}
	m.capacityRejections.Inc()
}

func (m *GalleryMetrics) ObserveConflict() {
	if m == nil {
		return
	}
	m.conflictRetries.Inc()
}

func (m *GalleryMetrics) ObserveLatency(operation string, seconds float64) {
	if m == nil {
		return
	}
	m.workflowLatency.WithLabelValues(operation).Observe(seconds)
}
