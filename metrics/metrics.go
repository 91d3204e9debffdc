// Package metrics exposes Prometheus-format metrics on a dedicated
// listener and provides the counters the storage handlers increment.
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/VictoriaMetrics/metrics"
)

// MetricsServer serves the /metrics endpoint on its own address so the
// scrape surface stays off the public API listener.
type MetricsServer struct {
	namespace string
	srv       *http.Server
}

// New creates a metrics server for the given listen address.
func New(namespace, listenAddr string) (*MetricsServer, error) {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w, true)
	})

	return &MetricsServer{
		namespace: namespace,
		srv: &http.Server{
			Addr:    listenAddr,
			Handler: mux,
		},
	}, nil
}

// ListenAndServe blocks serving metrics until Shutdown.
func (s *MetricsServer) ListenAndServe() error {
	return s.srv.ListenAndServe()
}

// Shutdown gracefully stops the metrics listener.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// IncStorageOp counts one completed storage provider operation.
func IncStorageOp(op string) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`storage_operations_total{op=%q}`, op)).Inc()
}

// IncStorageError counts one failed storage provider operation.
func IncStorageError(op string) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`storage_operation_errors_total{op=%q}`, op)).Inc()
}
