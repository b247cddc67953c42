package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func metricsBody(t *testing.T, collector *Collector) string {
	t.Helper()
	rr := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected metrics handler to return 200, got %d", rr.Code)
	}
	return rr.Body.String()
}

func TestCollectorRecordsHTTPMetrics(t *testing.T) {
	collector, err := NewCollector()
	if err != nil {
		t.Fatalf("NewCollector returned error: %v", err)
	}

	handlerInvoked := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerInvoked = true
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("ok"))
	})

	instrumented := collector.InstrumentHandler(handler)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rr := httptest.NewRecorder()

	instrumented.ServeHTTP(rr, req)

	if !handlerInvoked {
		t.Fatal("expected handler to be invoked")
	}

	if rr.Code != http.StatusAccepted {
		t.Fatalf("unexpected status code: %d", rr.Code)
	}

	body := metricsBody(t, collector)
	if !strings.Contains(body, `coinpilot_http_requests_total{method="GET",path="/test",status="202"} 1`) {
		t.Fatalf("requests_total metric not recorded, body=%q", body)
	}

	if !strings.Contains(body, `coinpilot_http_request_duration_seconds_count{method="GET",path="/test",status="202"} 1`) {
		t.Fatalf("request_duration_seconds_count metric not recorded, body=%q", body)
	}
}

func TestCollectorRecordsStageMetrics(t *testing.T) {
	collector, err := NewCollector()
	if err != nil {
		t.Fatalf("NewCollector returned error: %v", err)
	}

	collector.ObserveStage("screener", 2500, 4, true, "")
	collector.ObserveStage("committee", 800, 0, false, "extraction_error")

	body := metricsBody(t, collector)
	if !strings.Contains(body, `coinpilot_advisor_stage_duration_seconds_count{stage="screener"} 1`) {
		t.Fatalf("stage duration not recorded, body=%q", body)
	}
	if !strings.Contains(body, `coinpilot_advisor_tool_calls_total{stage="screener"} 4`) {
		t.Fatalf("tool calls not recorded, body=%q", body)
	}
	if !strings.Contains(body, `coinpilot_advisor_stage_failures_total{error_type="extraction_error",stage="committee"} 1`) {
		t.Fatalf("stage failure not recorded, body=%q", body)
	}
}

func TestObserveStageDefaultsErrorType(t *testing.T) {
	collector, err := NewCollector()
	if err != nil {
		t.Fatalf("NewCollector returned error: %v", err)
	}

	collector.ObserveStage("profile", 100, 0, false, "")

	body := metricsBody(t, collector)
	if !strings.Contains(body, `coinpilot_advisor_stage_failures_total{error_type="internal_error",stage="profile"} 1`) {
		t.Fatalf("default error type not applied, body=%q", body)
	}
}
