package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ExportMetrics инкапсулирует Prometheus-метрики экспорта.
// Метрики регистрируются в переданном регистре, а не в глобальном,
// чтобы несколько экспортёров в одном процессе не конфликтовали.
type ExportMetrics struct {
	registry *prometheus.Registry

	voxels   prometheus.Counter
	quads    prometheus.Counter
	hidden   prometheus.Counter
	split    prometheus.Counter
	chunks   prometheus.Counter
	cacheHit prometheus.Counter
	failures prometheus.Counter
	duration prometheus.Histogram
}

// NewExportMetrics создаёт метрики и регистрирует их в reg.
// Если reg == nil, создаётся собственный регистр.
func NewExportMetrics(reg *prometheus.Registry) *ExportMetrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &ExportMetrics{
		registry: reg,
		voxels: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voxel_export",
			Name:      "voxels_total",
			Help:      "Число обработанных непустых вокселей.",
		}),
		quads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voxel_export",
			Name:      "quads_total",
			Help:      "Число граней, прошедших через движок окклюзии.",
		}),
		hidden: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voxel_export",
			Name:      "quads_hidden_total",
			Help:      "Число граней, скрытых соседями.",
		}),
		split: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voxel_export",
			Name:      "quads_split_total",
			Help:      "Число граней, добавленных разбиением.",
		}),
		chunks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voxel_export",
			Name:      "chunks_total",
			Help:      "Число экспортированных чанков.",
		}),
		cacheHit: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voxel_export",
			Name:      "chunk_cache_hits_total",
			Help:      "Число чанков, взятых из кэша мешей.",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voxel_export",
			Name:      "failures_total",
			Help:      "Число экспортов, завершившихся ошибкой.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "voxel_export",
			Name:      "duration_seconds",
			Help:      "Длительность экспорта.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
	}

	reg.MustRegister(m.voxels, m.quads, m.hidden, m.split, m.chunks, m.cacheHit, m.failures, m.duration)
	return m
}

// Registry возвращает регистр, в котором живут метрики
func (m *ExportMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordChunk учитывает один экспортированный чанк
func (m *ExportMetrics) RecordChunk(voxels, quads, hidden, split int, cached bool) {
	m.chunks.Inc()
	if cached {
		m.cacheHit.Inc()
	}
	m.voxels.Add(float64(voxels))
	m.quads.Add(float64(quads))
	m.hidden.Add(float64(hidden))
	m.split.Add(float64(split))
}

// RecordExport учитывает завершение экспорта
func (m *ExportMetrics) RecordExport(d time.Duration, err error) {
	m.duration.Observe(d.Seconds())
	if err != nil {
		m.failures.Inc()
	}
}

// Handler возвращает HTTP-обработчик /metrics для регистра
func (m *ExportMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
