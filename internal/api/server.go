package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lolovespi/reolink-livestream-youtube/internal/broadcast"
	"github.com/lolovespi/reolink-livestream-youtube/internal/logging"
	"github.com/lolovespi/reolink-livestream-youtube/internal/orchestrator"
)

const shutdownTimeout = 10 * time.Second

// SnapshotFunc supplies the current orchestrator state to the server.
type SnapshotFunc func() orchestrator.Snapshot

// Server exposes read-only orchestrator state over HTTP: a health probe,
// a JSON status view, and Prometheus metrics.
type Server struct {
	bind     string
	snapshot SnapshotFunc
	logger   *slog.Logger
	registry *prometheus.Registry
}

// New builds a Server for the given bind address. Metrics are registered on
// a private registry and computed from the snapshot at scrape time.
func New(bind string, snapshot SnapshotFunc, logger *slog.Logger) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "livestream_cycles_started_total",
			Help: "Broadcast cycles started since process start",
		}, func() float64 { return float64(snapshot().CyclesStarted) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "livestream_cycles_completed_total",
			Help: "Broadcast cycles that ran to their rotation deadline",
		}, func() float64 { return float64(snapshot().CyclesCompleted) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "livestream_transcoder_restarts_total",
			Help: "Transcoder restarts across all cycles",
		}, func() float64 { return float64(snapshot().Restarts) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "livestream_recoveries_total",
			Help: "Ingest-inactivity recovery restarts across all cycles",
		}, func() float64 { return float64(snapshot().Recoveries) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "livestream_ingest_active",
			Help: "Whether the remote ingest currently reports active",
		}, func() float64 {
			if snapshot().IngestActive {
				return 1
			}
			return 0
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "livestream_transcoder_pid",
			Help: "PID of the running transcoder, zero when stopped",
		}, func() float64 { return float64(snapshot().PID) }),
		newLifecycleCollector(snapshot),
	)

	if logger == nil {
		logger = logging.NewNop()
	}
	return &Server{
		bind:     bind,
		snapshot: snapshot,
		logger:   logging.NewComponentLogger(logger, "api"),
		registry: registry,
	}
}

// Handler returns the HTTP routing tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealthz)
	r.Get("/status", s.handleStatus)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return r
}

// Run serves until ctx is cancelled, then drains connections.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.bind, Handler: s.Handler()}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("status server listening", logging.String("bind", s.bind))

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("status server stopped")
	return nil
}

var lifecycleStates = []broadcast.Lifecycle{
	broadcast.LifecycleCreated,
	broadcast.LifecycleReady,
	broadcast.LifecycleTesting,
	broadcast.LifecycleLive,
	broadcast.LifecycleComplete,
	broadcast.LifecycleRevoked,
	broadcast.LifecycleUnknown,
}

// lifecycleCollector exposes the current broadcast lifecycle as a state set
// with one series per state and the current one set to 1.
type lifecycleCollector struct {
	snapshot SnapshotFunc
	desc     *prometheus.Desc
}

func newLifecycleCollector(snapshot SnapshotFunc) *lifecycleCollector {
	return &lifecycleCollector{
		snapshot: snapshot,
		desc: prometheus.NewDesc(
			"livestream_broadcast_lifecycle",
			"Current broadcast lifecycle state",
			[]string{"state"}, nil),
	}
}

func (c *lifecycleCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

func (c *lifecycleCollector) Collect(ch chan<- prometheus.Metric) {
	current := c.snapshot().Lifecycle
	for _, state := range lifecycleStates {
		value := 0.0
		if string(state) == current {
			value = 1
		}
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, value, string(state))
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.snapshot()); err != nil {
		s.logger.Warn("status encode failed", logging.Error(err))
	}
}
