package reply

import (
	"slices"
	"strings"
	"sync"

	"dialog-agent/corpus"
	"dialog-agent/normalize"
)

type askRow struct {
	ask   string
	words []string
}

// AskCompleter suggests ask texts that start with the words typed so far.
// It keeps one filtered row list per typed word and reuses the lists while
// the leading words stay the same, so typing one more letter only refilters
// the last level.
//
// Thread Safety: safe for concurrent use.
type AskCompleter struct {
	mu        sync.Mutex
	tablesKey string
	words     []string
	levels    [][]askRow
}

func NewAskCompleter() *AskCompleter {
	return &AskCompleter{}
}

// Complete returns the sorted, deduplicated asks of rows in tables whose ask
// words start with the typed words, position by position.
func (c *AskCompleter) Complete(tables []*corpus.Table, typed []string) []string {
	if len(typed) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := tablesKey(tables)
	if key != c.tablesKey {
		c.tablesKey = key
		c.words, c.levels = nil, nil
	}

	// Keep the cached levels up to the first changed word.
	keep := 0
	for keep < len(c.words) && keep < len(typed) && c.words[keep] == typed[keep] {
		keep++
	}
	c.words, c.levels = c.words[:keep], c.levels[:keep]

	for i := keep; i < len(typed); i++ {
		var level []askRow
		if i == 0 {
			level = firstLevel(tables, typed[0])
		} else {
			level = filterLevel(c.levels[i-1], i, typed[i])
		}
		c.words = append(c.words, typed[i])
		c.levels = append(c.levels, level)
	}

	last := c.levels[len(c.levels)-1]
	if len(last) == 0 {
		return nil
	}
	out := make([]string, 0, len(last))
	for _, r := range last {
		out = append(out, r.ask)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func firstLevel(tables []*corpus.Table, word string) []askRow {
	var level []askRow
	for _, table := range tables {
		for _, row := range table.Rows {
			if row.Ask == "" || row.Validate() != nil {
				continue
			}
			words := normalize.Tokenize(row.Ask)
			if len(words) > 0 && strings.HasPrefix(words[0], word) {
				level = append(level, askRow{ask: row.Ask, words: words})
			}
		}
	}
	return level
}

func filterLevel(previous []askRow, position int, word string) []askRow {
	var level []askRow
	for _, r := range previous {
		if position < len(r.words) && strings.HasPrefix(r.words[position], word) {
			level = append(level, r)
		}
	}
	return level
}

func tablesKey(tables []*corpus.Table) string {
	ids := make([]string, len(tables))
	for i, t := range tables {
		ids[i] = string(t.ID)
	}
	return strings.Join(ids, "\x00")
}
