// Package metrics exposes Prometheus counters for assistant turns.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Recorder holds the assistant's collectors on its own registry. A nil
// *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	Turns            *prometheus.CounterVec
	Actions          *prometheus.CounterVec
	ActionFailures   *prometheus.CounterVec
	Learning         *prometheus.CounterVec
	MatchScore       prometheus.Histogram
	TurnDuration     prometheus.Histogram
	KnowledgeEntries prometheus.Gauge
}

// New creates a recorder with Go runtime and process collectors attached.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,

		Turns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jarvis_turns_total",
				Help: "Total number of utterances handled, by terminal state",
			},
			[]string{"state"},
		),

		Actions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jarvis_actions_total",
				Help: "Total number of built-in actions dispatched",
			},
			[]string{"action"},
		),

		ActionFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jarvis_action_failures_total",
				Help: "Total number of built-in actions that failed",
			},
			[]string{"action"},
		),

		Learning: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jarvis_learning_total",
				Help: "Total number of learning flows, by outcome",
			},
			[]string{"outcome"},
		),

		MatchScore: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "jarvis_match_score",
				Help:    "Best similarity score of knowledge lookups",
				Buckets: prometheus.LinearBuckets(0, 0.1, 11),
			},
		),

		TurnDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name: "jarvis_turn_duration_seconds",
				Help: "Time to handle one utterance in seconds",
			},
		),

		KnowledgeEntries: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "jarvis_knowledge_entries",
				Help: "Number of entries in the knowledge base",
			},
		),
	}
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Turn records one handled utterance.
func (r *Recorder) Turn(state string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.Turns.WithLabelValues(state).Inc()
	r.TurnDuration.Observe(elapsed.Seconds())
}

// Action records a dispatched action and whether it failed.
func (r *Recorder) Action(action string, failed bool) {
	if r == nil {
		return
	}
	r.Actions.WithLabelValues(action).Inc()
	if failed {
		r.ActionFailures.WithLabelValues(action).Inc()
	}
}

// Lookup records the best score of a knowledge lookup.
func (r *Recorder) Lookup(score float64) {
	if r == nil {
		return
	}
	r.MatchScore.Observe(score)
}

// Learned records a learning flow outcome.
func (r *Recorder) Learned(outcome string) {
	if r == nil {
		return
	}
	r.Learning.WithLabelValues(outcome).Inc()
}

// SetKnowledgeSize records the current knowledge base size.
func (r *Recorder) SetKnowledgeSize(n int) {
	if r == nil {
		return
	}
	r.KnowledgeEntries.Set(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (r *Recorder) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("metrics endpoint listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
