// internal/app/system/metrics/metrics.go
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	metricsstore "github.com/dalemusser/crushnote/internal/app/store/metrics"
	"github.com/dalemusser/crushnote/internal/app/system/apperr"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "crushnote"

var (
	// outcomes counts engine operations by result.
	// Labels: operation (e.g. crush_submit), result ("ok" or an error kind)
	outcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "operations_total",
		Help:      "Engine operations by outcome",
	}, []string{"operation", "result"})

	// requestDuration measures handler latency.
	// Labels: route (chi pattern), method, status
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"route", "method", "status"})
)

// Observe records the outcome of one engine operation.
func Observe(operation string, err error) {
	outcomes.WithLabelValues(operation, Result(err)).Inc()
}

// Result is the label recorded for err: "ok" on success, else the error kind.
func Result(err error) string {
	if err == nil {
		return "ok"
	}
	return apperr.KindOf(err).String()
}

// Instrument records request latency labelled by the matched route pattern.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		requestDuration.WithLabelValues(route, r.Method, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// CountsFunc fetches collection totals.
type CountsFunc func(ctx context.Context) metricsstore.Counts

// countsCollector reads totals from the store at scrape time.
type countsCollector struct {
	fetch   CountsFunc
	timeout time.Duration
	descs   map[string]*prometheus.Desc
}

// RegisterCounts exports collection totals as gauges. Registering twice is a
// no-op.
func RegisterCounts(fetch CountsFunc, timeout time.Duration) error {
	c := &countsCollector{fetch: fetch, timeout: timeout, descs: map[string]*prometheus.Desc{}}
	for _, name := range []string{"users", "groups", "crushes", "letters", "replied_letters"} {
		c.descs[name] = prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "store", name),
			"Documents currently stored: "+name,
			nil, nil)
	}
	if err := prometheus.Register(c); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return nil
		}
		return err
	}
	return nil
}

func (c *countsCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.descs {
		ch <- d
	}
}

func (c *countsCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	n := c.fetch(ctx)

	values := map[string]int64{
		"users":           n.Users,
		"groups":          n.Groups,
		"crushes":         n.Crushes,
		"letters":         n.Letters,
		"replied_letters": n.Replied,
	}
	for name, v := range values {
		ch <- prometheus.MustNewConstMetric(c.descs[name], prometheus.GaugeValue, float64(v))
	}
}

// Track is Observe for deferred use with a named error result:
//
//	defer metrics.Track("crush_submit", &err)
func Track(operation string, err *error) {
	Observe(operation, *err)
}
