// Package prom registers the dispatch metric set and serves the scrape
// endpoint. Recording helpers are no-ops until Create has run, so code
// paths can record unconditionally.
package prom

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	xhttp "github.com/techlab/whatsapp-gateway/pkg/http"
	"github.com/techlab/whatsapp-gateway/pkg/logger"
)

var (
	mu      sync.Mutex
	enabled bool

	dispatchAttempts *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	queueDepth       *prometheus.GaugeVec
)

// Create registers the metric families under the given namespace. env and
// host become const labels on everything.
func Create(host, env, namespace string) error {
	mu.Lock()
	defer mu.Unlock()

	constLabels := prometheus.Labels{"env": env, "instance": host}

	dispatchAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   namespace,
		Subsystem:   "dispatch",
		Name:        "attempts_total",
		Help:        "Dispatch attempts by gateway type and terminal status.",
		ConstLabels: constLabels,
	}, []string{"gateway_type", "status"})

	dispatchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   namespace,
		Subsystem:   "dispatch",
		Name:        "duration_seconds",
		Help:        "Provider round trip duration by gateway type.",
		ConstLabels: constLabels,
		Buckets:     prometheus.DefBuckets,
	}, []string{"gateway_type"})

	queueDepth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   namespace,
		Subsystem:   "queue",
		Name:        "depth",
		Help:        "Messages waiting per queue.",
		ConstLabels: constLabels,
	}, []string{"queue"})

	for _, c := range []prometheus.Collector{dispatchAttempts, dispatchDuration, queueDepth} {
		if err := prometheus.Register(c); err != nil {
			return err
		}
	}

	enabled = true
	return nil
}

// ListenAndServe exposes the prometheus handler on its own listener, kept
// off the API server so scrapes never compete with request traffic.
func ListenAndServe(addr string, path string) {
	h := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	s := xhttp.CreateServer()
	s.GET(path, h)
	logger.Info("[metrics-server] listening...", "addr", addr, "path", path)
	if err := s.ListenAndServe(addr); err != nil {
		logger.Panic("[metrics-server] http listen error", "error", err)
	}
}

// IncDispatchAttempt counts one dispatch attempt by gateway type and
// terminal status (success or error).
func IncDispatchAttempt(gatewayType, status string) {
	if !enabled {
		return
	}
	dispatchAttempts.WithLabelValues(gatewayType, status).Inc()
}

func ObserveDispatchDuration(seconds float64, gatewayType string) {
	if !enabled {
		return
	}
	dispatchDuration.WithLabelValues(gatewayType).Observe(seconds)
}

func SetQueueDepth(queue string, depth float64) {
	if !enabled {
		return
	}
	queueDepth.WithLabelValues(queue).Set(depth)
}
