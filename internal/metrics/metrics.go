package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "paindiary"

const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics groups the collectors for diary storage. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	usedBytes  prometheus.Gauge
	quotaBytes prometheus.Gauge
	records    prometheus.Gauge
	backups    *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Data manager operations by name and result.",
		}, []string{"operation", "result"}),
		usedBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "storage_used_bytes",
			Help:      "Bytes used in the key/value store.",
		}),
		quotaBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "storage_quota_bytes",
			Help:      "Configured storage quota in bytes.",
		}),
		records: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "records",
			Help:      "Pain records currently stored.",
		}),
		backups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backups_total",
			Help:      "Backups taken by kind and result.",
		}, []string{"kind", "result"}),
	}
	registry.MustRegister(
		m.operations,
		m.usedBytes,
		m.quotaBytes,
		m.records,
		m.backups,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveOperation(operation string, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, resultLabel(err)).Inc()
}

func (m *Metrics) ObserveBackup(kind string, err error) {
	if m == nil {
		return
	}
	m.backups.WithLabelValues(kind, resultLabel(err)).Inc()
}

func (m *Metrics) SetStorageUsage(used int64, quota int64) {
	if m == nil {
		return
	}
	m.usedBytes.Set(float64(used))
	m.quotaBytes.Set(float64(quota))
}

func (m *Metrics) SetRecordCount(count int) {
	if m == nil {
		return
	}
	m.records.Set(float64(count))
}

func resultLabel(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}
