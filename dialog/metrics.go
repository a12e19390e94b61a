package dialog

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const tracerName = "dialog-agent/dialog"

var (
	// repliesTotal counts generated replies.
	// Labels: outcome (matched, fallback, default_text)
	repliesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dialog",
		Subsystem: "engine",
		Name:      "replies_total",
		Help:      "Replies generated by outcome",
	}, []string{"outcome"})

	replyDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "dialog",
		Subsystem: "engine",
		Name:      "reply_duration_seconds",
		Help:      "Time to answer one sentence",
		Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	})

	tableActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dialog",
		Subsystem: "engine",
		Name:      "table_actions_total",
		Help:      "Table actions applied after a reply",
	}, []string{"action"})
)
