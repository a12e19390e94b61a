package dialog

import (
	"time"

	"dialog-agent/config"
	"dialog-agent/keywords"
	"dialog-agent/metric"
	"dialog-agent/normalize"
	"dialog-agent/retrieval"
	"dialog-agent/spell"

	"go.uber.org/zap"
)

// DefaultReplyText is said when nothing, not even a default response, fits.
const DefaultReplyText = "I don't understand you"

// Options configure an Engine.
type Options struct {
	Distance         spell.StringDistance
	Splitter         normalize.SentenceSplitter
	Correction       spell.Options
	MinKeywordsCount int
	MaxKeywords      int
	Metric           metric.Options
	// MetricInterval is the weariness tick period; 0 disables the ticker.
	MetricInterval   time.Duration
	DefaultReplyText string
	// AskCacheSize bounds the number of relationships with cached ask completions.
	AskCacheSize int
	// Snapshots restores saved weariness for new relationships when set.
	Snapshots metric.SnapshotStore
}

func DefaultOptions() Options {
	return Options{
		Distance:         spell.Levenshtein{},
		Splitter:         normalize.PunctuationSplitter{},
		Correction:       spell.DefaultOptions(),
		MinKeywordsCount: keywords.DefaultMinKeywordsCount,
		MaxKeywords:      retrieval.DefaultMaxKeywords,
		Metric:           metric.DefaultOptions(),
		MetricInterval:   metric.DefaultTickInterval,
		DefaultReplyText: DefaultReplyText,
		AskCacheSize:     1024,
	}
}

// OptionsFromConfig maps the loaded configuration onto engine options.
// Invalid choices fall back to defaults and are logged.
func OptionsFromConfig(cfg *config.Config, logger *zap.Logger) Options {
	opts := DefaultOptions()

	distance, err := spell.NewDistance(cfg.StringDistance)
	if err != nil {
		logger.Warn("Unknown string distance, using Levenshtein",
			zap.String("distance", cfg.StringDistance), zap.Error(err))
	}
	opts.Distance = distance
	opts.Splitter = normalize.NewSplitter(cfg.SentenceSplitter, logger)

	opts.Correction = spell.Options{
		MaxLengthDelta: cfg.MaxLengthDelta,
		CutoffMargin:   cfg.CorrectionCutoffMargin,
		EarlyStop:      cfg.CorrectionEarlyStop,
		CacheSize:      cfg.CorrectionCacheSize,
	}
	opts.MinKeywordsCount = cfg.MinKeywordsCount
	opts.MaxKeywords = cfg.MaxKeywords
	opts.Metric.Epsilon = cfg.JitterEpsilon
	opts.MetricInterval = cfg.MetricInterval
	if cfg.DefaultReplyText != "" {
		opts.DefaultReplyText = cfg.DefaultReplyText
	}

	if points := cfg.CurvePoints(); len(points) > 0 {
		curve, err := metric.NewLinearCurve(points)
		if err != nil {
			logger.Warn("Invalid METRIC_CURVE, using default decay", zap.Error(err))
		} else {
			opts.Metric.Curve = curve
		}
	}
	return opts
}
