package metrics_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	metricsstore "github.com/dalemusser/crushnote/internal/app/store/metrics"
	"github.com/dalemusser/crushnote/internal/app/system/apperr"
	"github.com/dalemusser/crushnote/internal/app/system/metrics"
	"github.com/go-chi/chi/v5"
)

func TestResult(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{apperr.WindowClosed("closed"), apperr.KindWindowClosed.String()},
		{apperr.RateLimited("slow down"), apperr.KindRateLimited.String()},
		{context.DeadlineExceeded, apperr.KindInternal.String()},
	}
	for _, tt := range tests {
		if got := metrics.Result(tt.err); got != tt.want {
			t.Errorf("Result(%v): got %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestHandler_ExposesEngineAndStoreMetrics(t *testing.T) {
	metrics.Observe("crush_submit", nil)
	metrics.Observe("letter_send", apperr.RateLimited("quota"))

	err := metrics.RegisterCounts(func(ctx context.Context) metricsstore.Counts {
		return metricsstore.Counts{Users: 3, Letters: 7}
	}, time.Second)
	if err != nil {
		t.Fatalf("RegisterCounts: %v", err)
	}

	r := chi.NewRouter()
	r.Use(metrics.Instrument)
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	r.Handle("/metrics", metrics.Handler())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}

	body := rec.Body.String()
	for _, want := range []string{
		`crushnote_engine_operations_total{operation="crush_submit",result="ok"}`,
		`crushnote_engine_operations_total{operation="letter_send",result="` + apperr.KindRateLimited.String() + `"}`,
		`crushnote_store_users 3`,
		`crushnote_store_letters 7`,
		`crushnote_http_request_duration_seconds_count{method="GET",route="/ping",status="204"}`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
