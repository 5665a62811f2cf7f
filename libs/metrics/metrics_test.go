package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddlewareCountsRequests(t *testing.T) {
	c := NewCollector("portal")
	h := c.Middleware("slots", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

	if got := testutil.ToFloat64(c.RequestsTotal.WithLabelValues(http.MethodGet, "slots", "202")); got != 1 {
		t.Fatalf("expected 1 request, got %v", got)
	}
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	c.ObserveSlots("open", 3)
	c.ObserveBackend("procedures", 200, time.Now())
	c.ObserveBooking("create", "ok")
	c.ObserveCache("schedule", "hit")
}

func TestHandlerExposesNamespace(t *testing.T) {
	c := NewCollector("portal")
	c.ObserveSlots("full", 0)
	rw := httptest.NewRecorder()
	c.Handler().ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rw.Body.String(), "portal_availability_computations_total") {
		t.Fatalf("expected availability counter in output")
	}
}
