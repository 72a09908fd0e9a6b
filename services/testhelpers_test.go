package services

import (
	"testing"

	"notewiz-notes/notewiz/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestConn(name string, route HubRoute) *Connection {
	return NewConnection(uuid.New(), name, route, 16)
}

// drain pops every frame currently queued on conn and decodes it.
func drain(t *testing.T, conn *Connection) []models.ServerEvent {
	t.Helper()
	var events []models.ServerEvent
	for {
		select {
		case raw, ok := <-conn.Messages():
			if !ok {
				return events
			}
			var ev models.ServerEvent
			require.NoError(t, ev.FromJSON(raw))
			events = append(events, ev)
		default:
			return events
		}
	}
}

// metricValue sums a gauge or counter across its label sets.
func metricValue(t *testing.T, m *HubMetrics, name string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		total := 0.0
		for _, metric := range mf.GetMetric() {
			if g := metric.GetGauge(); g != nil {
				total += g.GetValue()
			} else if c := metric.GetCounter(); c != nil {
				total += c.GetValue()
			}
		}
		return total
	}
	return 0
}

func kinds(events []models.ServerEvent) []models.ServerEventKind {
	out := make([]models.ServerEventKind, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Event)
	}
	return out
}
