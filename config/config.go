package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config holds the application's configuration
type Config struct {
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`
	WebPort   int    `mapstructure:"WEB_PORT"`

	DatabaseURL        string `mapstructure:"DATABASE_URL"`
	CorpusSource       string `mapstructure:"CORPUS_SOURCE"`
	CorpusPath         string `mapstructure:"CORPUS_PATH"`
	PersistenceBackend string `mapstructure:"PERSISTENCE_BACKEND"`
	BadgerPath         string `mapstructure:"BADGER_PATH"`

	DefaultResponsesTable string `mapstructure:"DEFAULT_RESPONSES_TABLE"`
	DefaultReplyText      string `mapstructure:"DEFAULT_REPLY_TEXT"`
	SentenceSplitter      string `mapstructure:"SENTENCE_SPLITTER"`

	StringDistance         string `mapstructure:"STRING_DISTANCE"`
	MaxLengthDelta         int    `mapstructure:"MAX_LENGTH_DELTA"`
	CorrectionCutoffMargin int    `mapstructure:"CORRECTION_CUTOFF_MARGIN"`
	CorrectionEarlyStop    bool   `mapstructure:"CORRECTION_EARLY_STOP"`
	CorrectionCacheSize    int    `mapstructure:"CORRECTION_CACHE_SIZE"`

	MinKeywordsCount int `mapstructure:"MIN_KEYWORDS_COUNT"`
	MaxKeywords      int `mapstructure:"MAX_KEYWORDS"`

	JitterEpsilon float64 `mapstructure:"JITTER_EPSILON"`
	// MetricCurve is a flat list of x,y pairs describing the weariness response curve.
	MetricCurve []float64 `mapstructure:"METRIC_CURVE"`

	// Intervals are configured in whole seconds.
	MetricIntervalSeconds          int `mapstructure:"METRIC_INTERVAL"`
	SnapshotIntervalSeconds        int `mapstructure:"SNAPSHOT_INTERVAL"`
	RelationshipIdleTimeoutSeconds int `mapstructure:"RELATIONSHIP_IDLE_TIMEOUT"`

	MetricInterval          time.Duration `mapstructure:"-"`
	SnapshotInterval        time.Duration `mapstructure:"-"`
	RelationshipIdleTimeout time.Duration `mapstructure:"-"`

	RateLimitRepliesPerMin int  `mapstructure:"RATE_LIMIT_REPLIES_PER_MIN"`
	RateLimitBurstSize     int  `mapstructure:"RATE_LIMIT_BURST_SIZE"`
	RenderMarkdown         bool `mapstructure:"RENDER_MARKDOWN"`
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("WEB_PORT", 8080)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("CORPUS_SOURCE", "yaml")
	v.SetDefault("CORPUS_PATH", "./data/corpus")
	v.SetDefault("PERSISTENCE_BACKEND", "none")
	v.SetDefault("BADGER_PATH", "./data/metrics")
	v.SetDefault("DEFAULT_RESPONSES_TABLE", "default_responses")
	v.SetDefault("DEFAULT_REPLY_TEXT", "I don't understand you")
	v.SetDefault("SENTENCE_SPLITTER", "punctuation")
	v.SetDefault("STRING_DISTANCE", "levenshtein")
	v.SetDefault("MAX_LENGTH_DELTA", 3)
	v.SetDefault("CORRECTION_CUTOFF_MARGIN", 1)
	v.SetDefault("CORRECTION_EARLY_STOP", true)
	v.SetDefault("CORRECTION_CACHE_SIZE", 4096)
	v.SetDefault("MIN_KEYWORDS_COUNT", 3)
	v.SetDefault("MAX_KEYWORDS", 6)
	v.SetDefault("JITTER_EPSILON", 0.15)
	v.SetDefault("METRIC_INTERVAL", 10)
	v.SetDefault("METRIC_CURVE", []float64{})
	v.SetDefault("SNAPSHOT_INTERVAL", 60)
	v.SetDefault("RELATIONSHIP_IDLE_TIMEOUT", 1800)
	v.SetDefault("RATE_LIMIT_REPLIES_PER_MIN", 60)
	v.SetDefault("RATE_LIMIT_BURST_SIZE", 10)
	v.SetDefault("RENDER_MARKDOWN", false)
}

func Load(logger *zap.Logger) *Config {
	return LoadFrom(viper.GetViper(), logger)
}

// LoadFrom reads configuration through the given viper instance. Tests pass a
// fresh instance so they do not share global state.
func LoadFrom(v *viper.Viper, logger *zap.Logger) *Config {
	var config Config
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")        // For running locally
	v.AddConfigPath("../")      // For running from docker subdir
	v.AddConfigPath("./config") // Common config folder
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if logger != nil {
			logger.Warn("Could not read config file, using defaults/env vars", zap.Error(err))
		}
	}

	if err := v.Unmarshal(&config); err != nil {
		// Config unmarshaling is critical - fail fast during bootstrap
		if logger != nil {
			logger.Fatal("Unable to decode config into struct", zap.Error(err))
		} else {
			fmt.Fprintf(os.Stderr, "FATAL: Unable to decode config into struct: %v\n", err)
			os.Exit(1)
		}
	}

	config.normalize(logger)
	return &config
}

func (c *Config) normalize(logger *zap.Logger) {
	c.CorpusSource = strings.ToLower(strings.TrimSpace(c.CorpusSource))
	c.PersistenceBackend = strings.ToLower(strings.TrimSpace(c.PersistenceBackend))
	c.StringDistance = strings.ToLower(strings.TrimSpace(c.StringDistance))
	c.SentenceSplitter = strings.ToLower(strings.TrimSpace(c.SentenceSplitter))

	if c.MaxLengthDelta < 0 {
		c.MaxLengthDelta = 0
	}
	if c.MinKeywordsCount < 1 {
		c.MinKeywordsCount = 1
	}
	// Combination search is exponential in the keyword count.
	if c.MaxKeywords < 1 || c.MaxKeywords > 6 {
		c.MaxKeywords = 6
	}
	if c.JitterEpsilon < 0 || c.JitterEpsilon >= 1 {
		c.JitterEpsilon = 0.15
	}
	if len(c.MetricCurve)%2 != 0 {
		if logger != nil {
			logger.Warn("METRIC_CURVE must hold x,y pairs; dropping the trailing value",
				zap.Int("values", len(c.MetricCurve)))
		}
		c.MetricCurve = c.MetricCurve[:len(c.MetricCurve)-1]
	}

	// Convert seconds to proper time.Duration
	c.MetricInterval = time.Duration(c.MetricIntervalSeconds) * time.Second
	c.SnapshotInterval = time.Duration(c.SnapshotIntervalSeconds) * time.Second
	c.RelationshipIdleTimeout = time.Duration(c.RelationshipIdleTimeoutSeconds) * time.Second
	if c.MetricInterval <= 0 {
		c.MetricInterval = 10 * time.Second
	}
}

// CurvePoints returns METRIC_CURVE as (x, y) pairs.
func (c *Config) CurvePoints() [][2]float64 {
	points := make([][2]float64, 0, len(c.MetricCurve)/2)
	for i := 0; i+1 < len(c.MetricCurve); i += 2 {
		points = append(points, [2]float64{c.MetricCurve[i], c.MetricCurve[i+1]})
	}
	return points
}
