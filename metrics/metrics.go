// Package metrics exposes Prometheus counters and histograms driven by
// the event stream escrow.Ledger publishes. It never reads the ledger's
// state directly; everything here is derived purely from events crossing
// the bus, the same separation stellar-arrow-source's metrics collector
// keeps between its processing pipeline and its Prometheus registry.
package metrics

import (
	"time"

	"github.com/fusionswap/escrowd/escrow"
	"github.com/prometheus/client_golang/prometheus"
)

// Collector owns every metric this package registers and the goroutine
// that updates them from a subscribed event channel.
type Collector struct {
	registry *prometheus.Registry

	walletsCreated    prometheus.Counter
	escrowsCreated    *prometheus.CounterVec
	escrowsWithdrawn  *prometheus.CounterVec
	escrowsCancelled  *prometheus.CounterVec
	rescuesPerformed  prometheus.Counter
	rescueCandidates  prometheus.Counter
	fillAmount        prometheus.Histogram
	eventLatency      prometheus.Histogram

	quit chan struct{}
}

// New registers every metric against a fresh registry and returns a
// Collector ready to run.
func New() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		walletsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "escrowd",
			Name:      "wallets_created_total",
			Help:      "Number of Dutch-auction wallets published.",
		}),
		escrowsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "escrowd",
			Name:      "escrows_created_total",
			Help:      "Number of escrow objects funded, by side.",
		}, []string{"side"}),
		escrowsWithdrawn: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "escrowd",
			Name:      "escrows_withdrawn_total",
			Help:      "Number of escrow objects settled by secret reveal, by side.",
		}, []string{"side"}),
		escrowsCancelled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "escrowd",
			Name:      "escrows_cancelled_total",
			Help:      "Number of escrow objects returned to their depositor, by side.",
		}, []string{"side"}),
		rescuesPerformed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "escrowd",
			Name:      "rescues_performed_total",
			Help:      "Number of objects force-drained through the rescue path.",
		}),
		rescueCandidates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "escrowd",
			Name:      "rescue_candidates_total",
			Help:      "Number of RescueCandidate notifications raised by the background scanner.",
		}),
		fillAmount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "escrowd",
			Name:      "escrow_fill_amount",
			Help:      "Distribution of escrow principal amounts at creation.",
			Buckets:   prometheus.ExponentialBuckets(1, 10, 10),
		}),
		eventLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "escrowd",
			Name:      "event_observe_latency_seconds",
			Help:      "Time between an event's own timestamp and the collector observing it.",
		}),
		quit: make(chan struct{}),
	}

	registry.MustRegister(
		c.walletsCreated,
		c.escrowsCreated,
		c.escrowsWithdrawn,
		c.escrowsCancelled,
		c.rescuesPerformed,
		c.rescueCandidates,
		c.fillAmount,
		c.eventLatency,
		prometheus.NewGoCollector(),
	)

	return c
}

// Registry returns the Prometheus registry every collector is registered on.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Run consumes events off ch until it is closed or Stop is called.
func (c *Collector) Run(ch <-chan escrow.Event) {
	log.Infof("starting metrics collector")
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			c.observe(ev)
		case <-c.quit:
			return
		}
	}
}

// Stop halts Run.
func (c *Collector) Stop() {
	close(c.quit)
}

func (c *Collector) observe(ev escrow.Event) {
	c.eventLatency.Observe(time.Since(ev.When()).Seconds())

	switch e := ev.(type) {
	case escrow.WalletCreated:
		c.walletsCreated.Inc()

	case escrow.EscrowCreated:
		c.escrowsCreated.WithLabelValues(e.Side.String()).Inc()
		c.fillAmount.Observe(float64(e.Amount))

	case escrow.EscrowWithdrawn:
		c.escrowsWithdrawn.WithLabelValues(e.Side.String()).Inc()

	case escrow.EscrowCancelled:
		c.escrowsCancelled.WithLabelValues(e.Side.String()).Inc()

	case escrow.FundsRescued:
		c.rescuesPerformed.Inc()

	case escrow.RescueCandidate:
		c.rescueCandidates.Inc()
	}
}
