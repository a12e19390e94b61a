package spell

import (
	"math"
	"unicode/utf8"

	"dialog-agent/dictionary"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
)

// Options tune the nearest-word search.
type Options struct {
	// MaxLengthDelta is the largest length difference between the input and a
	// candidate word that is still searched.
	MaxLengthDelta int
	// CutoffMargin rejects a candidate unless distance < len(candidate)-CutoffMargin.
	CutoffMargin int
	// EarlyStop ends the search once the best distance is <= the current delta.
	EarlyStop bool
	// CacheSize bounds the memoized corrections; 0 disables the cache.
	CacheSize int
}

func DefaultOptions() Options {
	return Options{MaxLengthDelta: 3, CutoffMargin: 1, EarlyStop: true, CacheSize: 4096}
}

type correction struct {
	word string
	ok   bool
}

// Corrector finds the closest dictionary word for a possibly misspelled term.
//
// Thread Safety: safe for concurrent use once the dictionary is built.
type Corrector struct {
	dict     dictionary.DictionaryStore
	distance StringDistance
	opts     Options
	cache    *lru.Cache
	logger   *zap.Logger
}

func NewCorrector(dict dictionary.DictionaryStore, distance StringDistance, opts Options, logger *zap.Logger) (*Corrector, error) {
	if distance == nil {
		logger.Warn("No string distance configured, using Levenshtein")
		distance = Levenshtein{}
	}
	if opts.MaxLengthDelta < 0 {
		opts.MaxLengthDelta = 0
	}

	c := &Corrector{dict: dict, distance: distance, opts: opts, logger: logger}
	if opts.CacheSize > 0 {
		cache, err := lru.New(opts.CacheSize)
		if err != nil {
			return nil, err
		}
		c.cache = cache
	}
	return c, nil
}

// Distance exposes the configured string distance to other pipeline stages.
func (c *Corrector) Distance() StringDistance {
	return c.distance
}

// Correct returns the dictionary word closest to word. The boolean is false
// when no candidate passes the cutoff.
func (c *Corrector) Correct(word string) (string, bool) {
	if word == "" {
		c.logger.Warn("Empty word passed to spell correction")
		return "", false
	}

	if c.cache != nil {
		if v, ok := c.cache.Get(word); ok {
			hit := v.(correction)
			recordCorrection("cached")
			return hit.word, hit.ok
		}
	}

	fixed, ok := c.search(word)
	switch {
	case !ok:
		recordCorrection("unknown")
	case fixed == word:
		recordCorrection("exact")
	default:
		recordCorrection("corrected")
	}

	if c.cache != nil {
		c.cache.Add(word, correction{word: fixed, ok: ok})
	}
	return fixed, ok
}

func (c *Corrector) search(word string) (string, bool) {
	n := utf8.RuneCountInString(word)
	best, bestDistance := "", math.MaxInt

	for delta := 0; delta <= c.opts.MaxLengthDelta; delta++ {
		lengths := []int{n + delta}
		if delta > 0 && n-delta > 0 {
			lengths = append(lengths, n-delta)
		}

		for _, length := range lengths {
			for _, candidate := range c.dict.WordsOfLength(length) {
				d := c.distance.Distance(word, candidate)
				if d == 0 {
					return candidate, true
				}
				if d < bestDistance && d < length-c.opts.CutoffMargin {
					best, bestDistance = candidate, d
				}
			}
		}

		// Any word further away in length needs at least delta+1 edits.
		if c.opts.EarlyStop && best != "" && bestDistance <= delta {
			break
		}
	}

	return best, best != ""
}

// Purge forgets memoized corrections. Call it after the dictionary changes.
func (c *Corrector) Purge() {
	if c.cache != nil {
		c.cache.Purge()
	}
}
