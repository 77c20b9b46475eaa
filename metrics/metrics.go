// Package metrics instruments drip collaborators with Prometheus metrics.
package metrics

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/fwojciec/drip"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the instruments registered for one process.
type Metrics struct {
	registry *prometheus.Registry

	PartialUpdates     prometheus.Counter
	PartialUpdateBytes prometheus.Histogram
	Exchanges          *prometheus.CounterVec
	CodeGPTEvents      *prometheus.CounterVec
	FirstUpdateLatency prometheus.Histogram
	TokenEstimate      prometheus.Gauge
	PolicyDecisions    *prometheus.CounterVec
}

// New registers the instruments on a fresh registry under namespace.
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		PartialUpdates: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "partial_updates_total",
			Help:      "Partial updates delivered to the sink.",
		}),
		PartialUpdateBytes: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "partial_update_bytes",
			Help:      "Size of each coalesced partial update.",
			Buckets:   prometheus.ExponentialBuckets(8, 4, 7),
		}),
		Exchanges: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exchanges_total",
			Help:      "Finished exchanges by outcome.",
		}, []string{"outcome"}),
		CodeGPTEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "codegpt_events_total",
			Help:      "Out-of-band events forwarded to the sink by kind.",
		}, []string{"kind"}),
		FirstUpdateLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "first_update_latency_ms",
			Help:      "Time from request open to the first partial update in milliseconds.",
			Buckets:   []float64{50, 100, 200, 400, 800, 1600, 3200, 6400},
		}),
		TokenEstimate: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "token_estimate",
			Help:      "Latest running token estimate of the current exchange.",
		}),
		PolicyDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_limit_decisions_total",
			Help:      "Answers to the token limit prompt.",
		}, []string{"decision"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the registry the instruments are registered on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

var _ drip.Sink = (*Sink)(nil)

// Sink records metrics and forwards every call to the wrapped Sink.
type Sink struct {
	next drip.Sink
	m    *Metrics
	now  func() time.Time

	mu       sync.Mutex
	openedAt time.Time
}

// WrapSink returns a Sink recording to m.
func (m *Metrics) WrapSink(next drip.Sink) *Sink {
	return &Sink{next: next, m: m, now: time.Now}
}

func (s *Sink) OnPartialUpdate(text string) {
	s.m.PartialUpdates.Inc()
	s.m.PartialUpdateBytes.Observe(float64(len(text)))
	s.mu.Lock()
	if !s.openedAt.IsZero() {
		s.m.FirstUpdateLatency.Observe(float64(s.now().Sub(s.openedAt).Milliseconds()))
		s.openedAt = time.Time{}
	}
	s.mu.Unlock()
	s.next.OnPartialUpdate(text)
}

func (s *Sink) OnTokenEstimateChanged(total int) {
	s.m.TokenEstimate.Set(float64(total))
	s.next.OnTokenEstimateChanged(total)
}

func (s *Sink) OnTokenTotals(totals drip.TokenTotals) {
	s.next.OnTokenTotals(totals)
}

func (s *Sink) OnError(message string) {
	s.m.Exchanges.WithLabelValues("error").Inc()
	s.next.OnError(message)
}

func (s *Sink) OnQuotaExceeded() {
	s.m.Exchanges.WithLabelValues("quota_exceeded").Inc()
	s.next.OnQuotaExceeded()
}

func (s *Sink) OnCompleted(text string) {
	s.m.Exchanges.WithLabelValues("completed").Inc()
	s.next.OnCompleted(text)
}

func (s *Sink) OnCancelled() {
	s.m.Exchanges.WithLabelValues("cancelled").Inc()
	s.next.OnCancelled()
}

func (s *Sink) OnCodeGPTEvent(evt drip.CodeGPTEvent) {
	s.m.CodeGPTEvents.WithLabelValues(evt.Kind).Inc()
	s.next.OnCodeGPTEvent(evt)
}

// SetInteractionEnabled(false) marks the start of an exchange for the
// first-update latency.
func (s *Sink) SetInteractionEnabled(enabled bool) {
	s.mu.Lock()
	if enabled {
		s.openedAt = time.Time{}
	} else {
		s.openedAt = s.now()
	}
	s.mu.Unlock()
	s.next.SetInteractionEnabled(enabled)
}

var _ drip.PolicyGate = (*Gate)(nil)

// Gate counts the answers given by the wrapped PolicyGate.
type Gate struct {
	next drip.PolicyGate
	m    *Metrics
}

// WrapGate returns a PolicyGate recording to m.
func (m *Metrics) WrapGate(next drip.PolicyGate) *Gate {
	return &Gate{next: next, m: m}
}

func (g *Gate) ConfirmContinue(ctx context.Context, conv *drip.Conversation, resolve func(ok bool)) {
	g.next.ConfirmContinue(ctx, conv, func(ok bool) {
		decision := "declined"
		if ok {
			decision = "accepted"
		}
		g.m.PolicyDecisions.WithLabelValues(decision).Inc()
		resolve(ok)
	})
}
