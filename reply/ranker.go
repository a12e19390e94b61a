// Package reply scores the rows of candidate tables against a sentence's
// keywords and picks the answer to give.
package reply

import (
	"unicode/utf8"

	"dialog-agent/corpus"
	"dialog-agent/normalize"
	"dialog-agent/spell"

	"go.uber.org/zap"
)

// Candidate is one answer variant of a qualifying row.
type Candidate struct {
	MatchCount    int
	Table         corpus.TableID
	Row           string
	AnswerIndex   int
	AbsoluteError int
}

func (c Candidate) Ref() corpus.AnswerRef {
	return corpus.AnswerRef{Table: c.Table, Row: c.Row, AnswerIndex: c.AnswerIndex}
}

// Evaluator supplies the weariness-based tie-break value of an answer.
// metric.Store and metric.Tx implement it.
type Evaluator interface {
	EvalValue(table corpus.TableID, row string, answer int) float32
}

// ReplyStrategy turns keywords into candidates and candidates into one answer.
type ReplyStrategy interface {
	Collect(tables []*corpus.Table, keywords []string) []Candidate
	Fallback(table *corpus.Table) []Candidate
	Select(cands []Candidate, eval Evaluator) (Candidate, bool)
}

var _ ReplyStrategy = (*Ranker)(nil)

// Ranker matches keywords to row keywords with the configured string distance.
type Ranker struct {
	distance spell.StringDistance
	logger   *zap.Logger
}

func NewRanker(distance spell.StringDistance, logger *zap.Logger) *Ranker {
	if distance == nil {
		logger.Warn("No string distance configured for ranking, using Levenshtein")
		distance = spell.Levenshtein{}
	}
	return &Ranker{distance: distance, logger: logger}
}

// matchRow counts the keywords that match a row keyword and sums their length
// differences. A keyword matches a row keyword when their distance is exactly
// their length difference, i.e. one contains the other's letters in order.
func (r *Ranker) matchRow(row *corpus.Row, keywords []string) (matches, absErr int) {
	for _, kw := range keywords {
		kwLen := utf8.RuneCountInString(kw)
		for _, raw := range row.Keywords {
			rk := normalize.NormalizeTerm(raw)
			if rk == "" {
				continue
			}
			lenDiff := kwLen - utf8.RuneCountInString(rk)
			if lenDiff < 0 {
				lenDiff = -lenDiff
			}
			if r.distance.Distance(kw, rk) == lenDiff {
				matches++
				absErr += lenDiff
				break
			}
		}
	}
	return matches, absErr
}

// Collect returns the candidates of every qualifying row. Within one table
// only the rows of the highest match count survive.
func (r *Ranker) Collect(tables []*corpus.Table, keywords []string) []Candidate {
	var out []Candidate
	index := make(map[corpus.AnswerRef]int)

	for _, table := range tables {
		var tableCands []Candidate
		tier := 0

		for i := range table.Rows {
			row := &table.Rows[i]
			if err := row.Validate(); err != nil {
				continue
			}
			matches, absErr := r.matchRow(row, keywords)
			if matches == 0 || matches < row.MinKeywordsMatch {
				continue
			}

			switch {
			case matches > tier:
				tableCands = tableCands[:0]
				tier = matches
			case matches < tier:
				continue
			}

			for a := range row.Answers {
				tableCands = append(tableCands, Candidate{
					MatchCount:    matches,
					Table:         table.ID,
					Row:           row.Name,
					AnswerIndex:   a,
					AbsoluteError: absErr,
				})
			}
		}

		for _, c := range tableCands {
			ref := c.Ref()
			if at, seen := index[ref]; seen {
				if c.MatchCount > out[at].MatchCount {
					out[at] = c
				}
				continue
			}
			index[ref] = len(out)
			out = append(out, c)
		}
	}

	r.logger.Debug("Collected reply candidates",
		zap.Strings("keywords", keywords),
		zap.Int("tables", len(tables)),
		zap.Int("candidates", len(out)))
	return out
}

// Fallback offers every answer of the default-responses table at match count 0.
func (r *Ranker) Fallback(table *corpus.Table) []Candidate {
	if table == nil {
		return nil
	}
	var out []Candidate
	for _, row := range table.Rows {
		if row.Validate() != nil {
			continue
		}
		for a := range row.Answers {
			out = append(out, Candidate{Table: table.ID, Row: row.Name, AnswerIndex: a})
		}
	}
	return out
}

// Select prefers more matches, then a lower absolute error, then the higher
// eval value. Remaining ties keep the earliest candidate.
func (r *Ranker) Select(cands []Candidate, eval Evaluator) (Candidate, bool) {
	if len(cands) == 0 {
		return Candidate{}, false
	}
	value := func(c Candidate) float32 {
		if eval == nil {
			return 0
		}
		return eval.EvalValue(c.Table, c.Row, c.AnswerIndex)
	}

	best := cands[0]
	bestValue := value(best)
	for _, c := range cands[1:] {
		switch {
		case c.MatchCount > best.MatchCount:
		case c.MatchCount < best.MatchCount:
			continue
		case c.AbsoluteError < best.AbsoluteError:
		case c.AbsoluteError > best.AbsoluteError:
			continue
		default:
			if v := value(c); v <= bestValue {
				continue
			}
		}
		best, bestValue = c, value(c)
	}
	return best, true
}
