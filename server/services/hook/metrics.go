package hook

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	hookTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "saltci_hook_transitions_total",
			Help: "Hook enable and disable transitions applied, by hook kind.",
		},
		[]string{"kind", "transition"},
	)

	hookPayloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "saltci_hook_payloads_total",
			Help: "Inbound hook payloads accepted, by hook kind.",
		},
		[]string{"kind"},
	)
)
