package vectorstore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConstructionsTotal counts storage engine construction attempts.
	// Labels: backend, result (success, error)
	ConstructionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "memvault",
			Subsystem: "vectorstore",
			Name:      "constructions_total",
			Help:      "Total number of storage engine construction attempts",
		},
		[]string{"backend", "result"},
	)

	// FallbackSubstitutionsTotal counts in-memory fallback substitutions
	// by the originally requested backend.
	FallbackSubstitutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "memvault",
			Subsystem: "vectorstore",
			Name:      "fallback_substitutions_total",
			Help:      "Total number of in-memory fallback substitutions by requested backend",
		},
		[]string{"requested"},
	)

	// OpenStores tracks currently open store handles per backend.
	OpenStores = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "memvault",
			Subsystem: "vectorstore",
			Name:      "open_stores",
			Help:      "Number of currently open store handles",
		},
		[]string{"backend"},
	)
)
