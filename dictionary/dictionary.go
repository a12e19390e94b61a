// Package dictionary stores the known vocabulary of the corpus, bucketed by
// word length, together with per-table occurrence counts used for TF-IDF.
package dictionary

import (
	"sort"
	"sync"
	"unicode/utf8"

	"dialog-agent/corpus"
	"dialog-agent/normalize"

	"go.uber.org/zap"
)

// DictionaryStore is the vocabulary used by spell correction, keyword
// weighting and candidate retrieval.
type DictionaryStore interface {
	RegisterWord(word string, table corpus.TableID)
	WordsOfLength(n int) []string
	EntryFor(word string) (Entry, bool)
	TablesContaining(word string) []corpus.TableID
	TotalWords() int
	TableCount() int
}

var _ DictionaryStore = (*BucketedDictionary)(nil)

// Entry is a known word and how often it appears in each table.
type Entry struct {
	Word             string
	TableOccurrences map[corpus.TableID]int
}

// Occurrences sums the word's occurrences across all tables.
func (e Entry) Occurrences() int {
	total := 0
	for _, n := range e.TableOccurrences {
		total += n
	}
	return total
}

// BucketedDictionary keeps one bucket per word length; bucket i holds words
// of length i+1. The total word counter only grows until Reset.
//
// Thread Safety: writes happen while the corpus is registered; reads may run
// concurrently from any number of sessions.
type BucketedDictionary struct {
	mu         sync.RWMutex
	buckets    []map[string]*Entry
	tables     map[corpus.TableID]struct{}
	totalWords int
	logger     *zap.Logger
}

func New(logger *zap.Logger) *BucketedDictionary {
	d := &BucketedDictionary{logger: logger}
	d.reset()
	return d
}

func (d *BucketedDictionary) reset() {
	d.buckets = make([]map[string]*Entry, 10)
	d.tables = make(map[corpus.TableID]struct{})
	d.totalWords = 0
}

// Reset drops every word and zeroes the global counter. Used before a corpus rebuild.
func (d *BucketedDictionary) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reset()
}

// RegisterWord records one occurrence of word in table.
func (d *BucketedDictionary) RegisterWord(word string, table corpus.TableID) {
	n := utf8.RuneCountInString(word)
	if n == 0 {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.registerLocked(word, n, table)
}

func (d *BucketedDictionary) registerLocked(word string, n int, table corpus.TableID) {
	for len(d.buckets) < n {
		d.buckets = append(d.buckets, nil)
	}
	bucket := d.buckets[n-1]
	if bucket == nil {
		bucket = make(map[string]*Entry)
		d.buckets[n-1] = bucket
	}

	entry, ok := bucket[word]
	if !ok {
		entry = &Entry{Word: word, TableOccurrences: make(map[corpus.TableID]int)}
		bucket[word] = entry
	}
	entry.TableOccurrences[table]++
	d.tables[table] = struct{}{}
	d.totalWords++
}

// WordsOfLength returns the known words of exactly n characters, sorted.
func (d *BucketedDictionary) WordsOfLength(n int) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if n <= 0 || n > len(d.buckets) || d.buckets[n-1] == nil {
		return nil
	}
	words := make([]string, 0, len(d.buckets[n-1]))
	for w := range d.buckets[n-1] {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}

// EntryFor returns a copy of the entry for word.
func (d *BucketedDictionary) EntryFor(word string) (Entry, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	entry := d.lookupLocked(word)
	if entry == nil {
		return Entry{}, false
	}
	occ := make(map[corpus.TableID]int, len(entry.TableOccurrences))
	for t, c := range entry.TableOccurrences {
		occ[t] = c
	}
	return Entry{Word: entry.Word, TableOccurrences: occ}, true
}

func (d *BucketedDictionary) lookupLocked(word string) *Entry {
	n := utf8.RuneCountInString(word)
	if n == 0 || n > len(d.buckets) || d.buckets[n-1] == nil {
		return nil
	}
	return d.buckets[n-1][word]
}

// TablesContaining lists the tables word occurs in, sorted. Unknown words yield nil.
func (d *BucketedDictionary) TablesContaining(word string) []corpus.TableID {
	d.mu.RLock()
	defer d.mu.RUnlock()

	entry := d.lookupLocked(word)
	if entry == nil {
		return nil
	}
	tables := make([]corpus.TableID, 0, len(entry.TableOccurrences))
	for t := range entry.TableOccurrences {
		tables = append(tables, t)
	}
	sort.Slice(tables, func(i, j int) bool { return tables[i] < tables[j] })
	return tables
}

func (d *BucketedDictionary) TotalWords() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.totalWords
}

// TableCount is the number of registered tables.
func (d *BucketedDictionary) TableCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.tables)
}

// WordCount is the number of distinct words.
func (d *BucketedDictionary) WordCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n := 0
	for _, b := range d.buckets {
		n += len(b)
	}
	return n
}

// RegisterTable registers every ask and answer term plus every keyword of
// table. Invalid rows are skipped and logged; the number of skipped rows is
// returned.
func (d *BucketedDictionary) RegisterTable(table *corpus.Table) int {
	skipped := 0

	d.mu.Lock()
	defer d.mu.Unlock()

	d.tables[table.ID] = struct{}{}
	for _, row := range table.Rows {
		if err := row.Validate(); err != nil {
			skipped++
			d.logger.Warn("Skipping corpus row",
				zap.String("table", string(table.ID)),
				zap.String("row", row.Name),
				zap.Error(err))
			continue
		}

		var words []string
		words = append(words, normalize.Tokenize(row.Ask)...)
		for _, answer := range row.Answers {
			words = append(words, normalize.Tokenize(answer.Text)...)
		}
		for _, keyword := range row.Keywords {
			if term := normalize.NormalizeTerm(keyword); term != "" {
				words = append(words, term)
			}
		}

		for _, w := range words {
			d.registerLocked(w, utf8.RuneCountInString(w), table.ID)
		}
	}

	d.logger.Debug("Registered words from table",
		zap.String("table", string(table.ID)),
		zap.Int("rows", len(table.Rows)),
		zap.Int("skipped_rows", skipped),
		zap.Int("total_words", d.totalWords))
	return skipped
}

// Build resets the dictionary and registers every table of the catalog.
func (d *BucketedDictionary) Build(catalog *corpus.Catalog) {
	d.Reset()
	for _, t := range catalog.Tables() {
		d.RegisterTable(t)
	}
	d.logger.Info("Dictionary built",
		zap.Int("tables", d.TableCount()),
		zap.Int("distinct_words", d.WordCount()),
		zap.Int("total_words", d.TotalWords()))
}
