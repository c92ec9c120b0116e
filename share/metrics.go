package share

import "github.com/prometheus/client_golang/prometheus"

const (
	// ChannelLabel is the label holding the sharing channel of a worker.
	ChannelLabel = "channel"
	// ReasonLabel is the label telling why a clause was discarded.
	ReasonLabel = "reason"

	reasonEmpty     = "empty"
	reasonTooLong   = "too_long"
	reasonMalformed = "malformed"
)

var (
	clausesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gophersmt_shared_clauses_received_total",
			Help: "Number of clauses decoded from sharing messages",
		},
		[]string{ChannelLabel},
	)

	clausesDiscarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gophersmt_shared_clauses_discarded_total",
			Help: "Number of shared clauses dropped before reaching the clause set",
		},
		[]string{ChannelLabel, ReasonLabel},
	)

	clausesPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gophersmt_shared_clauses_published_total",
			Help: "Number of clauses published on a sharing channel",
		},
		[]string{ChannelLabel},
	)
)

// RegisterMetrics registers the clause sharing counters on reg.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(clausesReceived)
	reg.MustRegister(clausesDiscarded)
	reg.MustRegister(clausesPublished)
}
