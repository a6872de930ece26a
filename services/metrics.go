package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "mafiachain"

// Metrics 业务指标。所有方法对 nil 接收者安全，测试中可以不创建
type Metrics struct {
	registry         *prometheus.Registry
	eventsDecoded    *prometheus.CounterVec
	eventsDropped    *prometheus.CounterVec
	delivered        prometheus.Counter
	dispatchFailures *prometheus.CounterVec
	pipelineDuration prometheus.Histogram
	syncTicks        *prometheus.CounterVec
	syncDuration     prometheus.Histogram
	actionsSubmitted *prometheus.CounterVec
	watchedGames     prometheus.Gauge
	wsConnections    prometheus.Gauge
}

// NewMetrics 在独立的注册表上创建指标
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		eventsDecoded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "pipeline",
			Name:      "events_decoded_total",
			Help:      "Decoded game events by kind",
		}, []string{"kind"}),
		eventsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "pipeline",
			Name:      "events_dropped_total",
			Help:      "Receipt log entries dropped during decoding",
		}, []string{"reason"}),
		delivered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "dispatch",
			Name:      "messages_delivered_total",
			Help:      "Notification messages appended to conversations",
		}),
		dispatchFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "dispatch",
			Name:      "failures_total",
			Help:      "Failed chat service calls by step",
		}, []string{"step"}),
		pipelineDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Time from receipt request to dispatch completion",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
		syncTicks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "sync",
			Name:      "ticks_total",
			Help:      "Synchronizer ticks by result",
		}, []string{"result"}),
		syncDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "sync",
			Name:      "tick_duration_seconds",
			Help:      "Duration of successful synchronizer ticks",
			Buckets:   prometheus.DefBuckets,
		}),
		actionsSubmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "actions",
			Name:      "submitted_total",
			Help:      "Submitted actions by type and result",
		}, []string{"action", "result"}),
		watchedGames: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "rooms",
			Name:      "watched_games",
			Help:      "Games with a running synchronizer",
		}),
		wsConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "rooms",
			Name:      "websocket_connections",
			Help:      "Open websocket connections",
		}),
	}
}

// Registry 指标注册表，用于 /metrics 和 HTTP 中间件
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) eventDecoded(kind string) {
	if m != nil {
		m.eventsDecoded.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) eventDropped(reason string) {
	if m != nil {
		m.eventsDropped.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) messagesDelivered(n int) {
	if m != nil {
		m.delivered.Add(float64(n))
	}
}

func (m *Metrics) dispatchFailed(step string) {
	if m != nil {
		m.dispatchFailures.WithLabelValues(step).Inc()
	}
}

func (m *Metrics) pipelineObserved(seconds float64) {
	if m != nil {
		m.pipelineDuration.Observe(seconds)
	}
}

func (m *Metrics) tick(result string, seconds float64) {
	if m == nil {
		return
	}
	m.syncTicks.WithLabelValues(result).Inc()
	if result == "ok" {
		m.syncDuration.Observe(seconds)
	}
}

func (m *Metrics) actionSubmitted(action, result string) {
	if m != nil {
		m.actionsSubmitted.WithLabelValues(action, result).Inc()
	}
}

func (m *Metrics) setWatchedGames(n int) {
	if m != nil {
		m.watchedGames.Set(float64(n))
	}
}

func (m *Metrics) connectionOpened() {
	if m != nil {
		m.wsConnections.Inc()
	}
}

func (m *Metrics) connectionClosed() {
	if m != nil {
		m.wsConnections.Dec()
	}
}
