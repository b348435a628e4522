package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestGalleryMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewGalleryMetrics(reg)
	m.ObserveWorkflow("upload", "success")
	m.ObserveWorkflow("replace", "not_found")
	m.ObserveCapacityRejection()
	m.ObserveConflict()
	m.ObserveLatency("upload", 0.25)
}

func TestGalleryMetricsNilSafe(t *testing.T) {
	var m *GalleryMetrics
	m.ObserveWorkflow("upload", "success")
	m.ObserveCapacityRejection()
	m.ObserveConflict()
	m.ObserveLatency("upload", 0.1)
}
