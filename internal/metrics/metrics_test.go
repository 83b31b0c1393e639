package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.ObserveRebuild("ok", 20*time.Millisecond)
	m.ObserveRebuild("ok", 0)
	m.ObserveRebuild("error", time.Millisecond)
	m.ObserveCompile(true)
	m.ObserveCompile(false)
	m.ObserveNotification("hot")
	m.ObserveFSEvent("public", "notify")
	m.SetLiveClient(true)

	if got := testutil.ToFloat64(m.rebuilds.WithLabelValues("ok")); got != 2 {
		t.Errorf("rebuilds{ok} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.rebuilds.WithLabelValues("error")); got != 1 {
		t.Errorf("rebuilds{error} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.compiles.WithLabelValues("error")); got != 1 {
		t.Errorf("compiles{error} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.notifications.WithLabelValues("hot")); got != 1 {
		t.Errorf("notifications{hot} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.fsEvents.WithLabelValues("public", "notify")); got != 1 {
		t.Errorf("fs_events{public,notify} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.liveClients); got != 1 {
		t.Errorf("live_clients = %v, want 1", got)
	}
	m.SetLiveClient(false)
	if got := testutil.ToFloat64(m.liveClients); got != 0 {
		t.Errorf("live_clients = %v, want 0", got)
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveRebuild("ok", time.Second)
	m.ObserveCompile(true)
	m.ObserveNotification("reload")
	m.ObserveFSEvent("src", "rebuild")
	m.SetLiveClient(true)
	if m.Registry() != nil {
		t.Error("nil Metrics should have no registry")
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 404 {
		t.Errorf("nil handler status = %d, want 404", rec.Code)
	}
}

func TestMetrics_Handler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(WithRegistry(reg), WithNamespace("devloop"))
	m.ObserveNotification("reload")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	if !strings.Contains(string(body), `devloop_notifications_total{kind="reload"} 1`) {
		t.Errorf("exposition missing notification counter:\n%s", body)
	}
	if m.Registry() != reg {
		t.Error("Registry() should return the configured registry")
	}
}
