package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(ProvisioningOutcomes)
}

var (
	// Best-effort provisioning that runs after the payment write.
	// kind: card|subscription
	// status: ok|error
	ProvisioningOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_provisioning_total",
			Help: "Card/subscription provisioning outcomes after a completed payment.",
		},
		[]string{"kind", "status"},
	)
)
