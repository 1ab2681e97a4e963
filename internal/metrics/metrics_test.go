package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestCollector_RecordsAndExposes(t *testing.T) {
	registry := prometheus.NewRegistry()
	c := NewCollector(registry)

	c.RecordRegistration()
	c.RecordLogin(true)
	c.RecordLogin(false)
	c.RecordProfileUpdate()
	c.RecordReportCreated()
	c.RecordStaleImageDeleteFailure()
	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(404)
	c.RecordInferenceLatency(150 * time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	Handler(registry).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	body := w.Body.String()
	for _, want := range []string{
		`agriiq_registrations_total 1`,
		`agriiq_logins_total{result="success"} 1`,
		`agriiq_logins_total{result="failure"} 1`,
		`agriiq_profile_updates_total 1`,
		`agriiq_reports_created_total 1`,
		`agriiq_stale_image_delete_failures_total 1`,
		`agriiq_http_responses_total{status_code="200"} 1`,
		`agriiq_http_responses_total{status_code="404"} 1`,
		`agriiq_inference_duration_seconds_count 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestNewCollector_RegistersOnce(t *testing.T) {
	// 同一レジストリへの二重登録はMustRegisterがpanicする
	registry := prometheus.NewRegistry()
	NewCollector(registry)

	defer func() {
		if recover() == nil {
			t.Error("second NewCollector on same registry did not panic")
		}
	}()
	NewCollector(registry)
}
