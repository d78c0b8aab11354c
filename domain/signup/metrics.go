package signup

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeAccepted  = "accepted"
	OutcomeDuplicate = "duplicate"
	OutcomeInvalid   = "invalid"
	OutcomeError     = "error"
)

type submissionMetrics struct {
	submissions *prometheus.CounterVec
}

// newSubmissionMetrics registers signup_submissions_total on reg. A nil reg
// gets a private registry so the counters still work in tests and with
// metrics disabled.
func newSubmissionMetrics(reg prometheus.Registerer) *submissionMetrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	counter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signup_submissions_total",
			Help: "Signup submissions by outcome.",
		},
		[]string{"outcome"},
	)

	if err := reg.Register(counter); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				counter = existing
			}
		}
	}

	for _, outcome := range []string{OutcomeAccepted, OutcomeDuplicate, OutcomeInvalid, OutcomeError} {
		counter.WithLabelValues(outcome)
	}

	return &submissionMetrics{submissions: counter}
}

func (m *submissionMetrics) record(outcome string) {
	m.submissions.WithLabelValues(outcome).Inc()
}
