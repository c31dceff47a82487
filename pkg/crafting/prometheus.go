package crafting

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics for monitoring service.
var (
	//bindingRebuilds prometheus metric.
	bindingRebuilds = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of crafting binding rebuilds",
			Name:      "crafting_binding_rebuilds_total",
			Namespace: "volwal",
		},
	)
	//composedInvocations prometheus metric.
	composedInvocations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of invocations put into composed crafting bodies",
			Name:      "crafting_composed_invocations_total",
			Namespace: "volwal",
		},
	)
)

func init() {
	prometheus.MustRegister(
		bindingRebuilds,
		composedInvocations,
	)
}
