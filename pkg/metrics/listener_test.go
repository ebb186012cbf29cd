package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	io_prometheus_client "github.com/prometheus/client_model/go"
)

func TestListenerMetrics_NilSafe(t *testing.T) {
	// All methods on a nil *ListenerMetrics must not panic.
	var m *ListenerMetrics

	m.RecordQueueOpen("create", "created")
	m.RecordPrefixRegistration("registered")
	m.SetStarted(true)
	m.RecordDisconnectRegistration("pending")
	m.RecordDisconnect()
	m.RecordHandlerPanic()
	m.SetTrackedConnections(3)
}

func TestListenerMetrics_RecordQueueOpen(t *testing.T) {
	m := NewListenerMetrics(prometheus.NewRegistry())

	m.RecordQueueOpen("create", "created")
	m.RecordQueueOpen("create", "created")
	m.RecordQueueOpen("attach", "not_found")

	if v := counterValue(t, m.QueueOpenTotal, "create", "created"); v != 2 {
		t.Errorf("QueueOpenTotal{mode=create,result=created} = %f, want 2", v)
	}
	if v := counterValue(t, m.QueueOpenTotal, "attach", "not_found"); v != 1 {
		t.Errorf("QueueOpenTotal{mode=attach,result=not_found} = %f, want 1", v)
	}
}

func TestListenerMetrics_Disconnects(t *testing.T) {
	m := NewListenerMetrics(prometheus.NewRegistry())

	m.RecordDisconnectRegistration("pending")
	m.RecordDisconnectRegistration("pending")
	m.RecordDisconnectRegistration("immediate")
	m.RecordDisconnect()
	m.RecordHandlerPanic()

	if v := counterValue(t, m.DisconnectRegistrationTotal, "pending"); v != 2 {
		t.Errorf("DisconnectRegistrationTotal{result=pending} = %f, want 2", v)
	}
	if v := counterValue(t, m.DisconnectRegistrationTotal, "immediate"); v != 1 {
		t.Errorf("DisconnectRegistrationTotal{result=immediate} = %f, want 1", v)
	}
	if v := plainCounterValue(t, m.DisconnectTotal); v != 1 {
		t.Errorf("DisconnectTotal = %f, want 1", v)
	}
	if v := plainCounterValue(t, m.DisconnectHandlerPanicTotal); v != 1 {
		t.Errorf("DisconnectHandlerPanicTotal = %f, want 1", v)
	}
}

func TestListenerMetrics_Gauges(t *testing.T) {
	m := NewListenerMetrics(prometheus.NewRegistry())

	m.SetStarted(true)
	if v := gaugeValue(t, m.ListenerStarted); v != 1 {
		t.Errorf("ListenerStarted = %f, want 1", v)
	}
	m.SetStarted(false)
	if v := gaugeValue(t, m.ListenerStarted); v != 0 {
		t.Errorf("ListenerStarted = %f, want 0", v)
	}

	m.SetTrackedConnections(12)
	if v := gaugeValue(t, m.TrackedConnections); v != 12 {
		t.Errorf("TrackedConnections = %f, want 12", v)
	}
}

func TestListenerMetrics_ReuseOnReregister(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := NewListenerMetrics(reg)
	first.RecordPrefixRegistration("registered")

	// A second listener on the same registry shares the collectors.
	second := NewListenerMetrics(reg)
	second.RecordPrefixRegistration("registered")

	if v := counterValue(t, first.PrefixRegistrationTotal, "registered"); v != 2 {
		t.Errorf("PrefixRegistrationTotal{result=registered} = %f, want 2", v)
	}
	if first.DisconnectTotal != second.DisconnectTotal {
		t.Error("expected the existing DisconnectTotal collector to be reused")
	}
}

func TestListenerMetrics_NilRegisterer(t *testing.T) {
	m := NewListenerMetrics(nil)
	m.RecordDisconnect()

	if v := plainCounterValue(t, m.DisconnectTotal); v != 1 {
		t.Errorf("DisconnectTotal = %f, want 1", v)
	}
}

// counterValue extracts the value from a CounterVec for the given labels.
func counterValue(t *testing.T, cv *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	counter, err := cv.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues(%q): %v", labels, err)
	}
	return plainCounterValue(t, counter)
}

func plainCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var metric io_prometheus_client.Metric
	if err := c.Write(&metric); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return metric.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var metric io_prometheus_client.Metric
	if err := g.Write(&metric); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return metric.GetGauge().GetValue()
}
