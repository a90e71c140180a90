package services

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/agrotomo/bdagro-sync/pkg/eventbus"
)

type metrics struct {
	filesDiscovered prometheus.Counter
	foldersSkipped  *prometheus.CounterVec
	rowsMerged      *prometheus.CounterVec
	stageRows       *prometheus.GaugeVec
	stageDuration   *prometheus.HistogramVec
	lookupFailures  prometheus.Counter
	rowsDeleted     *prometheus.CounterVec
	rowsInserted    *prometheus.CounterVec
	writeFailures   *prometheus.CounterVec
}

var metricsSingleton = sync.OnceValue(func() *metrics {
	return &metrics{
		filesDiscovered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "bdagro",
			Name:      "files_discovered_total",
			Help:      "Total number of BD_AGRO export files discovered.",
		}),
		foldersSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bdagro",
			Name:      "folders_skipped_total",
			Help:      "Total number of client folders skipped during discovery.",
		}, []string{"reason"}),
		rowsMerged: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bdagro",
			Name:      "rows_merged_total",
			Help:      "Total number of rows read from export files.",
		}, []string{"client_id"}),
		stageRows: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "bdagro",
			Name:      "stage_rows",
			Help:      "Rows produced by the last run of a stage.",
		}, []string{"stage"}),
		stageDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bdagro",
			Name:      "stage_duration_seconds",
			Help:      "Duration distribution of pipeline stages.",
			Buckets: []float64{
				0.01, 0.05, 0.1,
				0.5, 1, 2, 5,
				10, 30, 60, 120,
			},
		}, []string{"stage"}),
		lookupFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "bdagro",
			Name:      "group_lookup_failures_total",
			Help:      "Total number of failed group lookups.",
		}),
		rowsDeleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bdagro",
			Name:      "rows_deleted_total",
			Help:      "Total number of rows deleted from the target table.",
		}, []string{"table"}),
		rowsInserted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bdagro",
			Name:      "rows_inserted_total",
			Help:      "Total number of rows inserted into the target table.",
		}, []string{"table"}),
		writeFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bdagro",
			Name:      "persistence_failures_total",
			Help:      "Total number of failed store writes.",
		}, []string{"table", "operation"}),
	}
})

func getMetrics() *metrics {
	return metricsSingleton()
}

// SubscribeMetrics records pipeline events in the default prometheus registry.
func SubscribeMetrics(bus eventbus.EventBus) {
	m := getMetrics()
	bus.Subscribe(func(EntityDiscovered) { m.filesDiscovered.Inc() })
	bus.Subscribe(func(e EntitySkipped) { m.foldersSkipped.WithLabelValues(string(e.Reason)).Inc() })
	bus.Subscribe(func(e EntityMerged) {
		m.rowsMerged.WithLabelValues(formatID(e.Client.ID)).Add(float64(e.Rows))
	})
	bus.Subscribe(func(e StageCompleted) {
		m.stageRows.WithLabelValues(string(e.Stage)).Set(float64(e.Rows))
		m.stageDuration.WithLabelValues(string(e.Stage)).Observe(e.Duration.Seconds())
	})
	bus.Subscribe(func(GroupLookupFailed) { m.lookupFailures.Inc() })
	bus.Subscribe(func(e RowsDeleted) { m.rowsDeleted.WithLabelValues(e.Target).Add(float64(e.Count)) })
	bus.Subscribe(func(e RowsInserted) { m.rowsInserted.WithLabelValues(e.Target).Add(float64(e.Count)) })
	bus.Subscribe(func(e PersistenceFailed) {
		m.writeFailures.WithLabelValues(e.Target, string(e.Operation)).Inc()
	})
}

// WriteMetrics dumps the default registry in text exposition format to path,
// for node_exporter's textfile collector.
func WriteMetrics(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
