package normalize

import (
	"reflect"
	"testing"

	"go.uber.org/zap"
)

func TestNormalizeCharacter(t *testing.T) {
	tests := []struct {
		name string
		in   rune
		want rune
	}{
		{name: "space_kept", in: ' ', want: ' '},
		{name: "tag_kept", in: '$', want: '$'},
		{name: "period_to_space", in: '.', want: ' '},
		{name: "bang_to_space", in: '!', want: ' '},
		{name: "question_to_space", in: '?', want: ' '},
		{name: "comma_dropped", in: ',', want: Drop},
		{name: "digit_dropped", in: '7', want: Drop},
		{name: "ascii_lowered", in: 'Q', want: 'q'},
		{name: "latin1_lowered", in: 'É', want: 'é'},
		{name: "cyrillic_lowered", in: 'Ж', want: 'ж'},
		{name: "greek_lowered", in: 'Σ', want: 'σ'},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeCharacter(tt.in); got != tt.want {
				t.Errorf("NormalizeCharacter(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "punctuation_and_case", in: "Hello,  World!", want: []string{"hello", "world"}},
		{name: "apostrophe_joins", in: "Don't go", want: []string{"dont", "go"}},
		{name: "sentence_separator_splits", in: "one.two", want: []string{"one", "two"}},
		{name: "tag_survives", in: "pay $gold", want: []string{"pay", "$gold"}},
		{name: "multibyte", in: "ŽLUŤOUČKÝ kůň", want: []string{"žluťoučký", "kůň"}},
		{name: "decomposed_input", in: "Café", want: []string{"café"}},
		{name: "empty", in: "", want: nil},
		{name: "only_punctuation", in: "?!,.", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeTermIdempotent(t *testing.T) {
	inputs := []string{
		"Hello, World!",
		"  Where CAN i buy?",
		"İstanbul",
		"Ünïcödé Wörds",
		"$Tag.value",
		"",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			once := NormalizeTerm(in)
			twice := NormalizeTerm(once)
			if once != twice {
				t.Errorf("NormalizeTerm not idempotent: %q -> %q -> %q", in, once, twice)
			}
		})
	}

	if got := NormalizeTerm("Black Smith!"); got != "blacksmith" {
		t.Errorf("NormalizeTerm collapsed to %q, want blacksmith", got)
	}
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "two_sentences", in: "Hi there. How are you?", want: []string{"Hi there.", " How are you?"}},
		{name: "trailing_partial", in: "Hello! where is", want: []string{"Hello!", " where is"}},
		{name: "repeated_separators", in: "What?!", want: []string{"What?"}},
		{name: "leading_separator", in: ".Hi", want: []string{"Hi"}},
		{name: "no_punctuation", in: "just words", want: []string{"just words"}},
		{name: "empty", in: "", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitSentences(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitSentences(%q) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

func TestDedupe(t *testing.T) {
	got := Dedupe([]string{"a", "b", "a", "c", "b"})
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Dedupe() = %v, want %v", got, want)
	}
}

func TestNewSplitter(t *testing.T) {
	logger := zap.NewNop()

	if _, ok := NewSplitter("punctuation", logger).(PunctuationSplitter); !ok {
		t.Error("punctuation should select PunctuationSplitter")
	}
	if _, ok := NewSplitter("prose", logger).(*ProseSplitter); !ok {
		t.Error("prose should select ProseSplitter")
	}
	if _, ok := NewSplitter("unknown", logger).(PunctuationSplitter); !ok {
		t.Error("unknown splitter should fall back to punctuation")
	}
}
