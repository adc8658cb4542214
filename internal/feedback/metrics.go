package feedback

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts feedback outcomes. A nil *Metrics records nothing.
type Metrics struct {
	Submissions *prometheus.CounterVec
	Deletions   *prometheus.CounterVec
}

// NewMetrics registers the feedback counters with reg, reusing counters that
// are already registered there.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	submissions, err := registerCounterVec(reg, prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: "feedback",
			Name:      "submissions_total",
			Help:      "Feedback submissions by outcome",
		},
		[]string{"outcome"},
	))
	if err != nil {
		return nil, err
	}

	deletions, err := registerCounterVec(reg, prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: "feedback",
			Name:      "deletions_total",
			Help:      "Feedback deletions by outcome",
		},
		[]string{"outcome"},
	))
	if err != nil {
		return nil, err
	}

	return &Metrics{Submissions: submissions, Deletions: deletions}, nil
}

func registerCounterVec(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return c, nil
}

func (m *Metrics) submission(outcome string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) deletion(outcome string) {
	if m == nil {
		return
	}
	m.Deletions.WithLabelValues(outcome).Inc()
}
