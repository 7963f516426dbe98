package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/moviegraph-crawler/internal/graph"
	"github.com/JakeFAU/moviegraph-crawler/internal/progress"
)

// PrometheusSink exports crawl progress. Gauges follow the latest totals
// per kind; counters and histograms accumulate over the process lifetime.
type PrometheusSink struct {
	discovered    *prometheus.GaugeVec
	finished      *prometheus.GaugeVec
	visits        *prometheus.CounterVec
	visitDuration *prometheus.HistogramVec
	runs          *prometheus.CounterVec
	running       prometheus.Gauge
}

// NewPrometheusSink registers the collectors against reg, or the default
// registerer when reg is nil.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		discovered: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "moviegraph_nodes_discovered",
			Help: "Nodes registered in the identity registry per kind.",
		}, []string{"kind"}),
		finished: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "moviegraph_nodes_finished",
			Help: "Nodes visited and persisted per kind.",
		}, []string{"kind"}),
		visits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "moviegraph_visits_total",
			Help: "Node visits completed by this process per kind.",
		}, []string{"kind"}),
		visitDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "moviegraph_visit_duration_seconds",
			Help:    "Wall time of one node visit including fetch and parse.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"kind"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "moviegraph_runs_completed_total",
			Help: "Crawl runs ended partitioned by result.",
		}, []string{"result"}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "moviegraph_runs_active",
			Help: "Crawl runs currently in progress.",
		}),
	}
	for _, collector := range []prometheus.Collector{
		s.discovered, s.finished, s.visits, s.visitDuration, s.runs, s.running,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors from batch.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		switch evt.Stage {
		case progress.StageCrawlStart:
			kind := evt.Kind.String()
			s.discovered.WithLabelValues(kind).Set(float64(evt.Discovered))
			s.finished.WithLabelValues(kind).Set(float64(evt.Finished))
			// A run emits one start event per kind; count it once.
			if evt.Kind == graph.KindMovie {
				s.running.Inc()
			}
		case progress.StageDiscovered:
			s.discovered.WithLabelValues(evt.Kind.String()).Set(float64(evt.Discovered))
		case progress.StageVisited:
			kind := evt.Kind.String()
			s.finished.WithLabelValues(kind).Set(float64(evt.Finished))
			s.visits.WithLabelValues(kind).Inc()
			if evt.Dur > 0 {
				s.visitDuration.WithLabelValues(kind).Observe(evt.Dur.Seconds())
			}
		case progress.StageCrawlDone:
			s.runs.WithLabelValues("done").Inc()
			s.running.Dec()
		case progress.StageCrawlError:
			s.runs.WithLabelValues("error").Inc()
			s.running.Dec()
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
