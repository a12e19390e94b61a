// Package retrieval narrows the available knowledge tables down to the ones
// sharing the most keywords with a sentence.
package retrieval

import (
	"sort"

	"dialog-agent/corpus"
	"dialog-agent/dictionary"

	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/zap"
)

// DefaultMaxKeywords bounds the combination search, which is exponential in the keyword count.
const DefaultMaxKeywords = 6

type Retriever struct {
	dict        dictionary.DictionaryStore
	maxKeywords int
	logger      *zap.Logger
}

func New(dict dictionary.DictionaryStore, maxKeywords int, logger *zap.Logger) *Retriever {
	if maxKeywords < 1 || maxKeywords > DefaultMaxKeywords {
		maxKeywords = DefaultMaxKeywords
	}
	return &Retriever{dict: dict, maxKeywords: maxKeywords, logger: logger}
}

// FindTables returns the largest set of available tables that all contain
// some combination of the keywords. A single keyword is looked up directly;
// otherwise every combination of two or more keywords is tried in
// lexicographic index order and the first largest result wins. The result is
// sorted and always a subset of available.
func (r *Retriever) FindTables(keywords []string, available []corpus.TableID) []corpus.TableID {
	if len(keywords) == 0 || len(available) == 0 {
		return nil
	}
	if len(keywords) > r.maxKeywords {
		r.logger.Debug("Keyword list truncated",
			zap.Int("keywords", len(keywords)),
			zap.Int("max_keywords", r.maxKeywords))
		keywords = keywords[:r.maxKeywords]
	}

	avail := mapset.NewThreadUnsafeSet(available...)
	containing := make([]mapset.Set[corpus.TableID], len(keywords))
	for i, kw := range keywords {
		containing[i] = mapset.NewThreadUnsafeSet(r.dict.TablesContaining(kw)...).Intersect(avail)
	}

	if len(keywords) < 2 {
		return sorted(containing[0])
	}

	var best mapset.Set[corpus.TableID]
	for size := 2; size <= len(keywords); size++ {
		combinations(len(keywords), size, func(idx []int) {
			found := containing[idx[0]].Clone()
			for _, i := range idx[1:] {
				if found.Cardinality() == 0 {
					return
				}
				found = found.Intersect(containing[i])
			}
			if found.Cardinality() > 0 && (best == nil || found.Cardinality() > best.Cardinality()) {
				best = found
			}
		})
	}

	if best == nil {
		r.logger.Debug("No table shares a keyword combination", zap.Strings("keywords", keywords))
		return nil
	}
	return sorted(best)
}

func sorted(s mapset.Set[corpus.TableID]) []corpus.TableID {
	if s.Cardinality() == 0 {
		return nil
	}
	out := s.ToSlice()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// combinations calls fn with every k-subset of 0..n-1 in lexicographic order.
// idx is reused between calls.
func combinations(n, k int, fn func(idx []int)) {
	if k <= 0 || k > n {
		return
	}
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	for {
		fn(idx)

		i := k - 1
		for i >= 0 && idx[i] == n-k+i {
			i--
		}
		if i < 0 {
			return
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}
