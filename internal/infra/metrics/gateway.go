package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(GatewayCalls)
}

var (
	// Outbound gateway calls.
	// op: initialize|verify
	// status: ok|rejected|not_success|bad_json|error
	GatewayCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_gateway_calls_total",
			Help: "Outbound payment gateway calls by operation and outcome.",
		},
		[]string{"op", "status"},
	)
)
