package observers

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cwbudde/stride/internal/runner"
)

// Prom exports run progress as Prometheus metrics: an iteration counter, the
// latest and best cost, and a step-duration histogram. One Prom instance
// covers one run; metrics carry the run ID as a constant label.
type Prom struct {
	iterations   prometheus.Counter
	cost         prometheus.Gauge
	bestCost     prometheus.Gauge
	stepDuration prometheus.Histogram
	finished     *prometheus.CounterVec
}

// NewProm registers the run's collectors with reg.
func NewProm(reg prometheus.Registerer, runID string) (*Prom, error) {
	labels := prometheus.Labels{"run_id": runID}
	p := &Prom{
		iterations: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "stride_iterations_total",
			Help:        "Number of completed iterations.",
			ConstLabels: labels,
		}),
		cost: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "stride_cost",
			Help:        "Cost reported by the most recent iteration.",
			ConstLabels: labels,
		}),
		bestCost: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "stride_best_cost",
			Help:        "Lowest cost observed so far.",
			ConstLabels: labels,
		}),
		stepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "stride_step_duration_seconds",
			Help:        "Wall time of individual iteration steps.",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(1e-6, 10, 10),
		}),
		finished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "stride_runs_finished_total",
			Help:        "Completed runs by termination reason.",
			ConstLabels: labels,
		}, []string{"reason"}),
	}

	for _, c := range []prometheus.Collector{p.iterations, p.cost, p.bestCost, p.stepDuration, p.finished} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}
	return p, nil
}

func (p *Prom) OnIteration(m runner.Measurement) error {
	p.iterations.Inc()
	p.stepDuration.Observe(m.StepDuration.Seconds())
	if m.HasCost {
		p.cost.Set(m.Cost)
	}
	return nil
}

func (p *Prom) OnFinish(sum runner.Summary) error {
	if sum.HasCost {
		p.bestCost.Set(sum.BestCost)
	}
	p.finished.WithLabelValues(sum.Reason.String()).Inc()
	return nil
}
