package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	. "github.com/mkrupp/voicechat/internal/infra/metrics"
)

func TestClientMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := NewClientMetrics(reg)

	m.ObserveAttempt("update user", "PATCH", "bearer", OutcomeHTTPError)
	m.ObserveAttempt("update user", "PATCH", "bare", OutcomeHTTPError)
	m.ObserveAttempt("update user", "PUT", "bearer", OutcomeSuccess)
	m.ObserveRequest("PUT", 200, 20*time.Millisecond)
	m.ObserveRequest("GET", 0, time.Second)

	if got := testutil.ToFloat64(m.Attempts.WithLabelValues("update user", "PATCH", "bearer", OutcomeHTTPError)); got != 1 {
		t.Errorf("PATCH/bearer attempts = %v, want 1", got)
	}

	if got := testutil.ToFloat64(m.Attempts.WithLabelValues("update user", "PUT", "bearer", OutcomeSuccess)); got != 1 {
		t.Errorf("PUT/bearer attempts = %v, want 1", got)
	}

	if got := testutil.CollectAndCount(m.Attempts); got != 3 {
		t.Errorf("attempt series = %d, want 3", got)
	}

	if got := testutil.CollectAndCount(m.Duration); got != 2 {
		t.Errorf("duration series = %d, want 2", got)
	}
}

func TestNilClientMetrics(t *testing.T) {
	t.Parallel()

	var m *ClientMetrics

	m.ObserveAttempt("login", "POST", "none", OutcomeSuccess)
	m.ObserveRequest("POST", 200, time.Millisecond)
}

func TestServerMetricsHandler(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := NewServerMetrics(reg)
	m.ObserveRequest("PATCH", "/users/{user_id}", 405)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	if !strings.Contains(rec.Body.String(), `voicechat_fakeapi_requests_total{method="PATCH",route="/users/{user_id}",status="405"} 1`) {
		t.Errorf("metrics output is missing the request counter:\n%s", rec.Body.String())
	}
}
