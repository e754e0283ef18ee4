// Package metrics exposes Prometheus collectors for the crawl pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the pipeline's collectors. A nil *Metrics is valid and
// turns every record call into a no-op, so tests can pass nil.
type Metrics struct {
	productsDiscovered    prometheus.Counter
	productsCrawled       prometheus.Counter
	sizesExtracted        prometheus.Counter
	snapshotsExtracted    prometheus.Counter
	productTaskFailures   prometheus.Counter
	changesDetected       *prometheus.CounterVec
	observationsPersisted prometheus.Counter
	persistFailures       *prometheus.CounterVec
}

// New registers the collectors with reg and returns the bundle.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		productsDiscovered: factory.NewCounter(prometheus.CounterOpts{
			Name: "stridewatch_products_discovered_total",
			Help: "Product cards accepted from the listing page.",
		}),
		productsCrawled: factory.NewCounter(prometheus.CounterOpts{
			Name: "stridewatch_products_crawled_total",
			Help: "Product detail walks completed, including partial ones.",
		}),
		sizesExtracted: factory.NewCounter(prometheus.CounterOpts{
			Name: "stridewatch_sizes_extracted_total",
			Help: "Size variants extracted across all products.",
		}),
		snapshotsExtracted: factory.NewCounter(prometheus.CounterOpts{
			Name: "stridewatch_snapshots_extracted_total",
			Help: "Price/availability snapshots extracted across all products.",
		}),
		productTaskFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "stridewatch_product_task_failures_total",
			Help: "Product tasks that failed and contributed an empty result.",
		}),
		changesDetected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stridewatch_changes_detected_total",
			Help: "Observations emitted by the change tracker.",
		}, []string{"kind"}),
		observationsPersisted: factory.NewCounter(prometheus.CounterOpts{
			Name: "stridewatch_observations_persisted_total",
			Help: "Price observation rows written to the store.",
		}),
		persistFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stridewatch_persist_failures_total",
			Help: "Failed writes by table, counting rows for observations.",
		}, []string{"table"}),
	}
}

// Handler serves the Prometheus scrape endpoint for the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ProductDiscovered records one accepted listing card.
func (m *Metrics) ProductDiscovered() {
	if m == nil {
		return
	}
	m.productsDiscovered.Inc()
}

// ProductCrawled records one completed product walk and its leaf counts.
func (m *Metrics) ProductCrawled(sizes, snapshots int) {
	if m == nil {
		return
	}
	m.productsCrawled.Inc()
	m.sizesExtracted.Add(float64(sizes))
	m.snapshotsExtracted.Add(float64(snapshots))
}

// ProductTaskFailed records one product task that produced nothing.
func (m *Metrics) ProductTaskFailed() {
	if m == nil {
		return
	}
	m.productTaskFailures.Inc()
}

// ChangeDetected records one emitted observation by kind (initial or update).
func (m *Metrics) ChangeDetected(kind string) {
	if m == nil {
		return
	}
	m.changesDetected.WithLabelValues(kind).Inc()
}

// ObservationsPersisted records successfully written observation rows.
func (m *Metrics) ObservationsPersisted(count int) {
	if m == nil {
		return
	}
	m.observationsPersisted.Add(float64(count))
}

// PersistFailed records failed writes against one table.
func (m *Metrics) PersistFailed(table string, rows int) {
	if m == nil {
		return
	}
	m.persistFailures.WithLabelValues(table).Add(float64(rows))
}
