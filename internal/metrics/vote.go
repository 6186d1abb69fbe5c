package metrics

import "github.com/prometheus/client_golang/prometheus"

// VoteMetrics holds Prometheus metrics for vote admission.
type VoteMetrics struct {
	VotesProcessed *prometheus.CounterVec
}

// NewVoteMetrics creates and registers vote admission metrics on the given registry.
func NewVoteMetrics(reg prometheus.Registerer) *VoteMetrics {
	m := &VoteMetrics{
		VotesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_processed_total",
			Help:      "Total number of votes processed, by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(m.VotesProcessed)
	return m
}

// VoteAdmitted counts an accepted vote.
func (m *VoteMetrics) VoteAdmitted() {
	m.VotesProcessed.WithLabelValues("admitted").Inc()
}

// VoteRejected counts a rejected vote by reason.
func (m *VoteMetrics) VoteRejected(reason string) {
	m.VotesProcessed.WithLabelValues(reason).Inc()
}
