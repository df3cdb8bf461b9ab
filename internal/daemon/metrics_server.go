package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/matheus3301/chatlog/internal/status"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// MetricsServer exposes /metrics and /healthz over HTTP when metrics_addr is set.
type MetricsServer struct {
	addr    string
	srv     *http.Server
	machine *status.Machine
	logger  *zap.Logger
}

// NewMetricsServer builds the HTTP server. It does not listen until Start.
func NewMetricsServer(p Params, machine *status.Machine, logger *zap.Logger) *MetricsServer {
	m := &MetricsServer{
		addr:    p.Config.MetricsAddr,
		machine: machine,
		logger:  logger,
	}

	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", m.healthz)

	m.srv = &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return m
}

// Handler returns the HTTP routes, for tests.
func (m *MetricsServer) Handler() http.Handler {
	return m.srv.Handler
}

// Start listens on the configured address. No-op when the address is empty.
func (m *MetricsServer) Start() error {
	if m.addr == "" {
		return nil
	}
	ln, err := net.Listen("tcp", m.addr)
	if err != nil {
		return fmt.Errorf("listen metrics %s: %w", m.addr, err)
	}
	m.logger.Info("metrics server starting", zap.String("addr", ln.Addr().String()))
	go func() {
		if err := m.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("metrics server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop shuts the server down.
func (m *MetricsServer) Stop(ctx context.Context) error {
	if m.addr == "" {
		return nil
	}
	return m.srv.Shutdown(ctx)
}

func (m *MetricsServer) healthz(w http.ResponseWriter, _ *http.Request) {
	state := m.machine.Current()
	if state != status.Listening {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_, _ = fmt.Fprintln(w, state)
}
