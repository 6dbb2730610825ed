package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// Cassette metrics
	cassettesOpened *prometheus.CounterVec
	storeOps        *prometheus.CounterVec
	storeMisses     *prometheus.CounterVec

	// Archive metrics
	artifactsPacked   prometheus.Counter
	artifactsRestored prometheus.Counter
	archiveBytes      *prometheus.CounterVec
}

// NewRegistry creates a metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		cassettesOpened: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fixtape_cassettes_opened_total",
				Help: "Total number of cassettes opened",
			},
			[]string{"mode"},
		),
		storeOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fixtape_store_operations_total",
				Help: "Total number of cassette store/read operations",
			},
			[]string{"op", "status"},
		),
		storeMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fixtape_store_misses_total",
				Help: "Total number of key sequences not found during replay",
			},
			[]string{"tolerated"},
		),
		artifactsPacked: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "fixtape_artifacts_packed_total",
				Help: "Total number of artifacts packed into archives",
			},
		),
		artifactsRestored: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "fixtape_artifacts_restored_total",
				Help: "Total number of artifacts restored from archives",
			},
		),
		archiveBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fixtape_archive_bytes_total",
				Help: "Total archive bytes written to or read from cassettes",
			},
			[]string{"direction"},
		),
	}

	reg.MustRegister(r.cassettesOpened)
	reg.MustRegister(r.storeOps)
	reg.MustRegister(r.storeMisses)
	reg.MustRegister(r.artifactsPacked)
	reg.MustRegister(r.artifactsRestored)
	reg.MustRegister(r.archiveBytes)

	return r
}

// RecordCassetteOpened records a cassette being opened in a mode.
func (r *Registry) RecordCassetteOpened(mode string) {
	if r == nil {
		return
	}
	r.cassettesOpened.WithLabelValues(mode).Inc()
}

// RecordStoreOp records one cassette store or read operation.
func (r *Registry) RecordStoreOp(op, status string) {
	if r == nil {
		return
	}
	r.storeOps.WithLabelValues(op, status).Inc()
}

// RecordMiss records a key sequence that was absent during replay.
func (r *Registry) RecordMiss(tolerated bool) {
	if r == nil {
		return
	}
	label := "no"
	if tolerated {
		label = "yes"
	}
	r.storeMisses.WithLabelValues(label).Inc()
}

// RecordPack records an artifact packed into an archive blob.
func (r *Registry) RecordPack(bytes int) {
	if r == nil {
		return
	}
	r.artifactsPacked.Inc()
	r.archiveBytes.WithLabelValues("out").Add(float64(bytes))
}

// RecordRestore records an artifact restored from an archive blob.
func (r *Registry) RecordRestore(bytes int) {
	if r == nil {
		return
	}
	r.artifactsRestored.Inc()
	r.archiveBytes.WithLabelValues("in").Add(float64(bytes))
}
