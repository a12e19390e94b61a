package reply

import (
	"math/rand/v2"
	"reflect"
	"testing"

	"dialog-agent/corpus"
	"dialog-agent/metric"
	"dialog-agent/spell"

	"go.uber.org/zap"
)

type fixedEval map[corpus.AnswerRef]float32

func (f fixedEval) EvalValue(table corpus.TableID, row string, answer int) float32 {
	return f[corpus.AnswerRef{Table: table, Row: row, AnswerIndex: answer}]
}

func smithTable() *corpus.Table {
	return &corpus.Table{
		ID: "smith",
		Rows: []corpus.Row{
			{
				Name:             "sword_lore",
				Ask:              "Tell me about swords",
				Keywords:         []string{"sword"},
				MinKeywordsMatch: 1,
				Answers:          []corpus.Answer{{Text: "Swords are sharp."}},
			},
			{
				Name:             "buy_sword",
				Ask:              "Where can I buy a sword",
				Keywords:         []string{"Buy", "sword"},
				MinKeywordsMatch: 2,
				Answers:          []corpus.Answer{{Text: "Try the blacksmith."}, {Text: "Ask at the forge."}},
			},
			{
				Name:             "buy_sword_cheap",
				Ask:              "Where can I buy a cheap sword",
				Keywords:         []string{"buy", "sword", "cheap"},
				MinKeywordsMatch: 3,
				Answers:          []corpus.Answer{{Text: "Nowhere."}},
			},
			{Name: "broken", Keywords: []string{"buy"}, MinKeywordsMatch: 1},
		},
	}
}

func guardTable() *corpus.Table {
	return &corpus.Table{
		ID: "guard",
		Rows: []corpus.Row{{
			Name:             "swords_allowed",
			Ask:              "Are swords allowed",
			Keywords:         []string{"swords", "allowed"},
			MinKeywordsMatch: 1,
			Answers:          []corpus.Answer{{Text: "Keep it sheathed."}},
		}},
	}
}

func defaultTable() *corpus.Table {
	return &corpus.Table{
		ID:      "default_responses",
		Default: true,
		Rows: []corpus.Row{
			{Name: "pardon", Answers: []corpus.Answer{{Text: "Sorry, what?"}, {Text: "I beg your pardon?"}}},
			{Name: "shrug", Answers: []corpus.Answer{{Text: "Hm."}}},
		},
	}
}

func newRanker() *Ranker {
	return NewRanker(spell.Levenshtein{}, zap.NewNop())
}

func TestCollect(t *testing.T) {
	r := newRanker()

	tests := []struct {
		name     string
		tables   []*corpus.Table
		keywords []string
		want     []Candidate
	}{
		{
			name:     "highest_tier_replaces_lower",
			tables:   []*corpus.Table{smithTable()},
			keywords: []string{"buy", "sword"},
			want: []Candidate{
				{MatchCount: 2, Table: "smith", Row: "buy_sword", AnswerIndex: 0},
				{MatchCount: 2, Table: "smith", Row: "buy_sword", AnswerIndex: 1},
			},
		},
		{
			name:     "min_keywords_not_met",
			tables:   []*corpus.Table{smithTable()},
			keywords: []string{"buy"},
			want:     nil,
		},
		{
			name:     "contained_keyword_adds_error",
			tables:   []*corpus.Table{guardTable()},
			keywords: []string{"sword"},
			want: []Candidate{
				{MatchCount: 1, Table: "guard", Row: "swords_allowed", AnswerIndex: 0, AbsoluteError: 1},
			},
		},
		{
			name:     "substitution_is_not_a_match",
			tables:   []*corpus.Table{guardTable()},
			keywords: []string{"sward"},
			want:     nil,
		},
		{
			name:     "tiers_are_per_table",
			tables:   []*corpus.Table{smithTable(), guardTable()},
			keywords: []string{"buy", "sword", "cheap"},
			want: []Candidate{
				{MatchCount: 3, Table: "smith", Row: "buy_sword_cheap", AnswerIndex: 0},
				{MatchCount: 1, Table: "guard", Row: "swords_allowed", AnswerIndex: 0, AbsoluteError: 1},
			},
		},
		{
			name:     "duplicate_table_collapses",
			tables:   []*corpus.Table{guardTable(), guardTable()},
			keywords: []string{"swords"},
			want: []Candidate{
				{MatchCount: 1, Table: "guard", Row: "swords_allowed", AnswerIndex: 0},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Collect(tt.tables, tt.keywords)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Collect() =\n%+v\nwant\n%+v", got, tt.want)
			}
		})
	}
}

func TestSelect(t *testing.T) {
	r := newRanker()
	a := Candidate{MatchCount: 2, Table: "t", Row: "a", AbsoluteError: 1}
	b := Candidate{MatchCount: 2, Table: "t", Row: "b", AbsoluteError: 0}
	c := Candidate{MatchCount: 3, Table: "t", Row: "c", AbsoluteError: 5}
	d := Candidate{MatchCount: 2, Table: "t", Row: "d", AbsoluteError: 0}

	tests := []struct {
		name  string
		cands []Candidate
		eval  Evaluator
		want  Candidate
	}{
		{name: "more_matches_win", cands: []Candidate{a, b, c}, want: c},
		{name: "lower_error_wins", cands: []Candidate{a, b}, want: b},
		{
			name:  "eval_breaks_tie",
			cands: []Candidate{b, d},
			eval:  fixedEval{d.Ref(): 0.9, b.Ref(): 0.4},
			want:  d,
		},
		{
			name:  "equal_eval_keeps_earliest",
			cands: []Candidate{b, d},
			eval:  fixedEval{d.Ref(): 0.5, b.Ref(): 0.5},
			want:  b,
		},
		{name: "nil_eval_keeps_earliest", cands: []Candidate{d, b}, want: d},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.Select(tt.cands, tt.eval)
			if !ok || got != tt.want {
				t.Errorf("Select() = %+v, %v, want %+v", got, ok, tt.want)
			}
		})
	}

	if _, ok := r.Select(nil, nil); ok {
		t.Error("Select(nil) should report no candidate")
	}
}

func TestSelectDeterministic(t *testing.T) {
	r := newRanker()
	store := metric.NewStore(metric.Options{
		Epsilon: metric.DefaultJitterEpsilon,
		NewRand: func() *rand.Rand { return rand.New(rand.NewPCG(42, 43)) },
	})
	store.RegisterTable(defaultTable())

	cands := r.Fallback(defaultTable())
	first, ok := r.Select(cands, store)
	if !ok {
		t.Fatal("no candidate selected")
	}
	for range 20 {
		if got, _ := r.Select(cands, store); got != first {
			t.Fatalf("Select changed from %+v to %+v with a fixed store", first, got)
		}
	}
}

func TestSelectPrefersUnwornAnswer(t *testing.T) {
	r := newRanker()
	store := metric.NewStore(metric.Options{
		Epsilon: 0,
		NewRand: func() *rand.Rand { return rand.New(rand.NewPCG(1, 2)) },
	})
	store.RegisterTable(smithTable())

	cands := r.Collect([]*corpus.Table{smithTable()}, []string{"buy", "sword"})
	seen := make(map[int]bool)
	for range 2 {
		var chosen Candidate
		store.Transact(func(tx *metric.Tx) {
			chosen, _ = r.Select(cands, tx)
			tx.Modify(chosen.Table, chosen.Row, chosen.AnswerIndex)
		})
		seen[chosen.AnswerIndex] = true
	}
	if !seen[0] || !seen[1] {
		t.Errorf("two selections should rotate through both answers, saw %v", seen)
	}
}

func TestFallback(t *testing.T) {
	r := newRanker()
	got := r.Fallback(defaultTable())
	want := []Candidate{
		{Table: "default_responses", Row: "pardon", AnswerIndex: 0},
		{Table: "default_responses", Row: "pardon", AnswerIndex: 1},
		{Table: "default_responses", Row: "shrug", AnswerIndex: 0},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Fallback() = %+v, want %+v", got, want)
	}
	if r.Fallback(nil) != nil {
		t.Error("Fallback(nil) should be empty")
	}
}

func TestAskCompleter(t *testing.T) {
	tables := []*corpus.Table{smithTable(), guardTable()}
	c := NewAskCompleter()

	tests := []struct {
		name  string
		typed []string
		want  []string
	}{
		{name: "first_word_prefix", typed: []string{"wh"}, want: []string{"Where can I buy a cheap sword", "Where can I buy a sword"}},
		{name: "second_word", typed: []string{"where", "c"}, want: []string{"Where can I buy a cheap sword", "Where can I buy a sword"}},
		{name: "narrowed", typed: []string{"where", "can", "i", "buy", "a", "ch"}, want: []string{"Where can I buy a cheap sword"}},
		{name: "changed_first_word", typed: []string{"are"}, want: []string{"Are swords allowed"}},
		{name: "no_match", typed: []string{"are", "dragons"}, want: nil},
		{name: "empty", typed: nil, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Complete(tables, tt.typed); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Complete(%v) = %v, want %v", tt.typed, got, tt.want)
			}
		})
	}

	// A different table set invalidates the cached levels.
	if got := c.Complete([]*corpus.Table{guardTable()}, []string{"wh"}); got != nil {
		t.Errorf("Complete after table change = %v, want nil", got)
	}
}
