package spell

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// correctionsTotal counts correction lookups by outcome.
// Labels: result (exact, corrected, unknown, cached)
var correctionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "dialog",
	Subsystem: "spell",
	Name:      "corrections_total",
	Help:      "Spell correction lookups by outcome",
}, []string{"result"})

func recordCorrection(result string) {
	correctionsTotal.WithLabelValues(result).Inc()
}
