package services

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counterValue 读取计数器或仪表的当前值
func counterValue(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	require.NoError(t, m.Write(&out))
	if out.Counter != nil {
		return out.Counter.GetValue()
	}
	return out.Gauge.GetValue()
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.eventDecoded("GameCreated")
		m.eventDropped("unknown_selector")
		m.messagesDelivered(3)
		m.dispatchFailed("append")
		m.pipelineObserved(1)
		m.tick("ok", 0.1)
		m.actionSubmitted("vote", "ok")
		m.setWatchedGames(2)
		m.connectionOpened()
		m.connectionClosed()
	})
	assert.Nil(t, m.Registry())
}

func TestMetricsRegistry(t *testing.T) {
	m := NewMetrics()
	m.tick("ok", 0.2)
	m.tick("skipped", 0)
	m.connectionOpened()
	m.connectionOpened()
	m.connectionClosed()

	assert.Equal(t, float64(1), counterValue(t, m.syncTicks.WithLabelValues("skipped")))
	assert.Equal(t, float64(1), counterValue(t, m.wsConnections))

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "mafiachain_sync_ticks_total")
	assert.Contains(t, names, "mafiachain_rooms_websocket_connections")
}
