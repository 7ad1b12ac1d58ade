// Package metrics exposes the sync layer's counters and gauges through
// Prometheus. Each Metrics owns its registry so tests and multiple clients in
// one process never collide.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Versifine/arena/internal/logger"
)

const namespace = "arena"

type Metrics struct {
	reg *prometheus.Registry

	ConnectionState prometheus.Gauge
	RemotePlayers   prometheus.Gauge
	Received        *prometheus.CounterVec
	Sent            *prometheus.CounterVec
	Dropped         *prometheus.CounterVec
	Published       prometheus.Counter
	PublishSkipped  *prometheus.CounterVec
	AttackIntents   *prometheus.CounterVec
	Damage          *prometheus.CounterVec
	Teleports       prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		ConnectionState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connection_state",
			Help:      "Session state: 0 disconnected, 1 connecting, 2 joined.",
		}),
		RemotePlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "remote_players",
			Help:      "Remote players currently mirrored.",
		}),
		Received: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Server messages handled, by type.",
		}, []string{"type"}),
		Sent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Client messages queued for sending, by type.",
		}, []string{"type"}),
		Dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_dropped_total",
			Help:      "Inbound or outbound messages dropped, by reason.",
		}, []string{"reason"}),
		Published: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_published_total",
			Help:      "Local state updates sent.",
		}),
		PublishSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_publish_skipped_total",
			Help:      "Publication ticks that sent nothing, by reason.",
		}, []string{"reason"}),
		AttackIntents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attack_intents_total",
			Help:      "Attack intents against remote players, by result.",
		}, []string{"result"}),
		Damage: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "damage_events_total",
			Help:      "Server damage reports applied, by target kind.",
		}, []string{"target"}),
		Teleports: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_teleports_total",
			Help:      "Remote reconciliations that snapped instead of chasing.",
		}),
	}
	m.reg.MustRegister(
		m.ConnectionState,
		m.RemotePlayers,
		m.Received,
		m.Sent,
		m.Dropped,
		m.Published,
		m.PublishSkipped,
		m.AttackIntents,
		m.Damage,
		m.Teleports,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.With("metrics").Info("Metrics listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
