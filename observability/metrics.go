package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "chatsphere"

// Metrics groups every collector the server exposes on /metrics.
// Each instance owns its registry so tests can build as many as they need.
type Metrics struct {
	Registry *prometheus.Registry

	Connections        prometheus.Gauge
	OnlineUsers        prometheus.Gauge
	PresenceBroadcasts prometheus.Counter
	MessagesPersisted  prometheus.Counter
	MessagesPushed     prometheus.Counter
	StorageFailures    prometheus.Counter
	TypingSignals      *prometheus.CounterVec
	RejectedEvents     *prometheus.CounterVec
	DroppedEvents      prometheus.Counter
	PersistLatency     prometheus.Histogram

	ProcessRSSBytes   prometheus.Gauge
	ProcessCPUPercent prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "connections",
			Help: "Live transport connections, announced or not.",
		}),
		OnlineUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "online_users",
			Help: "Users with at least one live connection.",
		}),
		PresenceBroadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "presence_broadcasts_total",
			Help: "Online-user snapshots pushed to every connection.",
		}),
		MessagesPersisted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "messages_persisted_total",
			Help: "Messages committed to the message store.",
		}),
		MessagesPushed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "messages_pushed_total",
			Help: "receive-message events queued on recipient connections.",
		}),
		StorageFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "storage_failures_total",
			Help: "Sends aborted because the message could not be persisted.",
		}),
		TypingSignals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "typing_signals_total",
			Help: "Typing signals relayed, by kind.",
		}, []string{"kind"}),
		RejectedEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "rejected_events_total",
			Help: "Inbound events rejected at the boundary, by reason.",
		}, []string{"reason"}),
		DroppedEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "dropped_events_total",
			Help: "Outbound events dropped because a connection could not take them.",
		}),
		PersistLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "persist_duration_seconds",
			Help:    "Time spent waiting on the message store.",
			Buckets: prometheus.DefBuckets,
		}),
		ProcessRSSBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "process_rss_bytes",
			Help: "Resident memory sampled by the heartbeat worker.",
		}),
		ProcessCPUPercent: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "process_cpu_percent",
			Help: "CPU usage sampled by the heartbeat worker.",
		}),
	}
	m.Registry.MustRegister(
		m.Connections, m.OnlineUsers, m.PresenceBroadcasts,
		m.MessagesPersisted, m.MessagesPushed, m.StorageFailures,
		m.TypingSignals, m.RejectedEvents, m.DroppedEvents, m.PersistLatency,
		m.ProcessRSSBytes, m.ProcessCPUPercent,
		collectors.NewGoCollector(),
	)
	return m
}

// Value sums every sample of the named family (namespace included), 0 when absent.
func (m *Metrics) Value(name string) float64 {
	families, err := m.Registry.Gather()
	if err != nil {
		return 0
	}
	total := 0.0
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			switch {
			case metric.GetGauge() != nil:
				total += metric.GetGauge().GetValue()
			case metric.GetCounter() != nil:
				total += metric.GetCounter().GetValue()
			case metric.GetHistogram() != nil:
				total += float64(metric.GetHistogram().GetSampleCount())
			}
		}
	}
	return total
}
