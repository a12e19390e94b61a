// Package keywords picks the salient terms of a sentence by TF-IDF weight.
package keywords

import (
	"math"

	"dialog-agent/dictionary"
	"dialog-agent/normalize"

	"go.uber.org/zap"
)

// DefaultMinKeywordsCount is the sentence size at or below which every term is a keyword.
const DefaultMinKeywordsCount = 3

// KeywordPicker selects the keywords of one sentence from its corrected terms.
type KeywordPicker interface {
	Pick(terms []string) []string
}

var _ KeywordPicker = (*TfIdfPicker)(nil)

// TfIdfPicker weights terms by how frequent they are in the corpus and how
// few tables use them.
type TfIdfPicker struct {
	dict        dictionary.DictionaryStore
	minKeywords int
	logger      *zap.Logger
}

func NewTfIdfPicker(dict dictionary.DictionaryStore, minKeywords int, logger *zap.Logger) *TfIdfPicker {
	if minKeywords < 1 {
		minKeywords = DefaultMinKeywordsCount
	}
	return &TfIdfPicker{dict: dict, minKeywords: minKeywords, logger: logger}
}

// Score returns TF*IDF for term. The boolean is false for words the
// dictionary does not know; such words are never scored.
func (p *TfIdfPicker) Score(term string) (float64, bool) {
	entry, ok := p.dict.EntryFor(term)
	if !ok || len(entry.TableOccurrences) == 0 {
		return 0, false
	}
	totalWords := p.dict.TotalWords()
	totalTables := p.dict.TableCount()
	if totalWords == 0 || totalTables == 0 {
		return 0, false
	}

	tf := float64(entry.Occurrences()) / float64(totalWords)
	idf := math.Log10(float64(totalTables) / float64(len(entry.TableOccurrences)))
	return math.Max(0, tf*idf), true
}

// precision maps the number of scored terms to the share of them kept:
// 1.0 for four terms falling linearly to 0.5 at ten or more.
func precision(n int) float64 {
	switch {
	case n <= 4:
		return 1
	case n >= 10:
		return 0.5
	default:
		return 1 - float64(n-4)/6*0.5
	}
}

type scoredTerm struct {
	term  string
	score float64
}

func argmax(pool []scoredTerm) int {
	best := 0
	for i := 1; i < len(pool); i++ {
		if pool[i].score > pool[best].score {
			best = i
		}
	}
	return best
}

// Pick returns at least one keyword for a non-empty input, in pick order.
func (p *TfIdfPicker) Pick(terms []string) []string {
	input := normalize.Dedupe(terms)
	if len(input) == 0 {
		return nil
	}

	// Short questions such as "who are you" are their own keywords.
	if len(input) <= p.minKeywords {
		out := make([]string, 0, len(input))
		for _, t := range input {
			if n := normalize.NormalizeTerm(t); n != "" {
				out = append(out, n)
			}
		}
		return normalize.Dedupe(out)
	}

	pool := make([]scoredTerm, 0, len(input))
	for _, t := range input {
		score, ok := p.Score(t)
		if !ok {
			p.logger.Warn("Term not found in dictionary, excluded from keywords", zap.String("term", t))
			continue
		}
		p.logger.Debug("Tf-idf value", zap.String("term", t), zap.Float64("score", score))
		pool = append(pool, scoredTerm{term: t, score: score})
	}

	if len(pool) == 0 {
		return []string{normalize.NormalizeTerm(input[0])}
	}

	prec := precision(len(pool))
	first := argmax(pool)
	result := []string{normalize.NormalizeTerm(pool[first].term)}
	pool = append(pool[:first], pool[first+1:]...)

	repeats := int(math.Round(float64(len(pool))*prec)) - 1
	for i := 0; i < repeats && len(pool) > 0; i++ {
		idx := argmax(pool)
		if pool[idx].score <= 0 && len(result) >= p.minKeywords {
			break
		}
		result = append(result, normalize.NormalizeTerm(pool[idx].term))
		pool = append(pool[:idx], pool[idx+1:]...)
	}

	return result
}
