package keywords

import (
	"context"
	"reflect"
	"testing"

	"dialog-agent/corpus"
	"dialog-agent/dictionary"
	apperrors "dialog-agent/errors"
	"dialog-agent/spell"

	"go.uber.org/zap"
)

func swordDictionary() *dictionary.BucketedDictionary {
	d := dictionary.New(zap.NewNop())
	d.RegisterTable(&corpus.Table{
		ID: "smith",
		Rows: []corpus.Row{{
			Name:             "buy_sword",
			Ask:              "Where can I buy a sword",
			Keywords:         []string{"buy", "sword"},
			MinKeywordsMatch: 2,
			Answers:          []corpus.Answer{{Text: "Try the blacksmith."}},
		}},
	})
	d.RegisterTable(&corpus.Table{
		ID:      "default_responses",
		Default: true,
		Rows: []corpus.Row{{
			Name:    "pardon",
			Answers: []corpus.Answer{{Text: "Pardon me?"}, {Text: "I beg your pardon?"}},
		}},
	})
	return d
}

func TestScore(t *testing.T) {
	p := NewTfIdfPicker(swordDictionary(), DefaultMinKeywordsCount, zap.NewNop())

	if _, ok := p.Score("dragon"); ok {
		t.Error("unknown word must not be scored")
	}

	tests := []struct {
		term     string
		positive bool
	}{
		{"buy", true},
		{"sword", true},
		{"where", true},
		{"i", false}, // present in every table
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			score, ok := p.Score(tt.term)
			if !ok {
				t.Fatalf("Score(%q) not found", tt.term)
			}
			if score < 0 {
				t.Errorf("Score(%q) = %f, negative", tt.term, score)
			}
			if (score > 0) != tt.positive {
				t.Errorf("Score(%q) = %f, positive want %v", tt.term, score, tt.positive)
			}
		})
	}

	buy, _ := p.Score("buy")
	where, _ := p.Score("where")
	if buy <= where {
		t.Errorf("buy (%f) occurs twice and should outscore where (%f)", buy, where)
	}
}

func TestPrecision(t *testing.T) {
	tests := []struct {
		n    int
		want float64
	}{
		{1, 1}, {4, 1}, {7, 0.75}, {10, 0.5}, {25, 0.5},
	}
	for _, tt := range tests {
		if got := precision(tt.n); got != tt.want {
			t.Errorf("precision(%d) = %f, want %f", tt.n, got, tt.want)
		}
	}
}

func TestPick(t *testing.T) {
	single := dictionary.New(zap.NewNop())
	for _, w := range []string{"alpha", "beta", "gamma", "delta"} {
		single.RegisterWord(w, "only")
	}

	tests := []struct {
		name  string
		dict  dictionary.DictionaryStore
		terms []string
		want  []string
	}{
		{
			name:  "short_sentence_keeps_all",
			dict:  swordDictionary(),
			terms: []string{"who", "are", "you", "you"},
			want:  []string{"who", "are", "you"},
		},
		{
			name:  "tf_idf_order",
			dict:  swordDictionary(),
			terms: []string{"where", "can", "i", "buy", "a", "sword"},
			want:  []string{"buy", "sword", "where", "can"},
		},
		{
			name:  "all_zero_scores_fill_minimum",
			dict:  single,
			terms: []string{"beta", "alpha", "gamma", "delta"},
			want:  []string{"beta", "alpha", "gamma"},
		},
		{
			name:  "nothing_recognized_returns_first_input",
			dict:  single,
			terms: []string{"one", "two", "three", "four"},
			want:  []string{"one"},
		},
		{
			name:  "empty",
			dict:  single,
			terms: nil,
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewTfIdfPicker(tt.dict, DefaultMinKeywordsCount, zap.NewNop())
			if got := p.Pick(tt.terms); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Pick(%v) = %v, want %v", tt.terms, got, tt.want)
			}
		})
	}
}

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	dict := swordDictionary()
	corrector, err := spell.NewCorrector(dict, spell.Levenshtein{}, spell.DefaultOptions(), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	return NewExtractor(corrector, NewTfIdfPicker(dict, DefaultMinKeywordsCount, zap.NewNop()), zap.NewNop())
}

func TestGenerateKeywords(t *testing.T) {
	e := newTestExtractor(t)

	got, err := e.GenerateKeywords(context.Background(), "where can i by a sowrd")
	if err != nil {
		t.Fatalf("GenerateKeywords: %v", err)
	}
	want := []string{"buy", "sword", "where", "can"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("GenerateKeywords = %v, want %v", got, want)
	}

	short, err := e.GenerateKeywords(context.Background(), "Buy a sowrd!")
	if err != nil {
		t.Fatalf("GenerateKeywords: %v", err)
	}
	if !reflect.DeepEqual(short, []string{"buy", "a", "sword"}) {
		t.Errorf("short sentence keywords = %v", short)
	}
}

func TestGenerateKeywordsErrors(t *testing.T) {
	e := newTestExtractor(t)

	if _, err := e.GenerateKeywords(context.Background(), " ,;: "); !apperrors.IsInvalidInput(err) {
		t.Errorf("empty sentence: err = %v, want invalid input", err)
	}
	if _, err := e.GenerateKeywords(context.Background(), "zq xq"); !apperrors.IsNotFound(err) {
		t.Errorf("unrecognized sentence: err = %v, want not found", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.GenerateKeywords(ctx, "buy a sword"); err == nil {
		t.Error("cancelled context should fail")
	}
}

func TestCorrectTerms(t *testing.T) {
	e := newTestExtractor(t)
	got := e.CorrectTerms("By a sowrd zq")
	want := []string{"buy", "a", "sword"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CorrectTerms = %v, want %v", got, want)
	}
}
