// Package normalize turns raw player text into normalized terms and sentences.
//
// All functions are pure and safe for concurrent use. Input is composed to NFC
// before per-rune mapping so precomposed and decomposed forms of the same
// letter produce the same term.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	// Tag is the reserved tag character; it survives normalization untouched.
	Tag rune = '$'

	// Drop is returned for characters that must be removed from a term.
	Drop rune = 0
)

// IsSeparator reports whether r terminates a sentence.
func IsSeparator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// NormalizeCharacter maps a single rune to its normalized form.
//
// Whitespace and Tag pass through unchanged, sentence separators become a
// space, anything else below 'A' becomes Drop, and all remaining runes are
// lowered with Unicode simple case mapping.
func NormalizeCharacter(r rune) rune {
	switch {
	case r == Tag, unicode.IsSpace(r):
		return r
	case IsSeparator(r):
		return ' '
	case r < 'A':
		return Drop
	default:
		return unicode.ToLower(r)
	}
}

// Tokenize splits text into normalized terms. Drop characters are skipped
// without breaking the current word, so "don't" yields "dont".
func Tokenize(text string) []string {
	var terms []string
	var word strings.Builder

	flush := func() {
		if word.Len() == 0 {
			return
		}
		terms = append(terms, word.String())
		word.Reset()
	}

	for _, r := range norm.NFC.String(text) {
		c := NormalizeCharacter(r)
		switch {
		case c == Drop:
			continue
		case unicode.IsSpace(c):
			flush()
		default:
			word.WriteRune(c)
		}
	}
	flush()

	return terms
}

// NormalizeTerm collapses text into a single term with every dropped and
// whitespace character elided. NormalizeTerm(NormalizeTerm(x)) == NormalizeTerm(x).
func NormalizeTerm(text string) string {
	var term strings.Builder
	term.Grow(len(text))

	for _, r := range norm.NFC.String(text) {
		c := NormalizeCharacter(r)
		if c == Drop || unicode.IsSpace(c) {
			continue
		}
		term.WriteRune(c)
	}
	return term.String()
}

// SplitSentences splits text on . ! and ?, keeping each separator attached to
// the sentence it terminates. A separator that would start an empty sentence
// is discarded, and a trailing sentence without punctuation is still returned.
func SplitSentences(text string) []string {
	var sentences []string
	var sentence strings.Builder

	for _, r := range text {
		if !IsSeparator(r) {
			sentence.WriteRune(r)
			continue
		}
		if sentence.Len() == 0 {
			continue
		}
		sentence.WriteRune(r)
		sentences = append(sentences, sentence.String())
		sentence.Reset()
	}

	if sentence.Len() > 0 {
		sentences = append(sentences, sentence.String())
	}
	return sentences
}

// Dedupe removes repeated terms, keeping the first occurrence order.
func Dedupe(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
