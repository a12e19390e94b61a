package keywords

import (
	"context"

	apperrors "dialog-agent/errors"
	"dialog-agent/normalize"
	"dialog-agent/spell"

	"go.uber.org/zap"
)

// Extractor runs tokenization, spell correction and keyword picking for one sentence.
type Extractor struct {
	corrector *spell.Corrector
	picker    KeywordPicker
	logger    *zap.Logger
}

func NewExtractor(corrector *spell.Corrector, picker KeywordPicker, logger *zap.Logger) *Extractor {
	return &Extractor{corrector: corrector, picker: picker, logger: logger}
}

// CorrectTerms tokenizes sentence and replaces every token with its dictionary
// correction. Tokens without a correction are dropped.
func (e *Extractor) CorrectTerms(sentence string) []string {
	tokens := normalize.Tokenize(sentence)
	fixed := make([]string, 0, len(tokens))

	for _, token := range tokens {
		word, ok := e.corrector.Correct(token)
		if !ok {
			e.logger.Warn("Word was not recognized", zap.String("word", token))
			continue
		}
		if word != token {
			e.logger.Debug("Word was fixed", zap.String("from", token), zap.String("to", word))
		}
		fixed = append(fixed, word)
	}
	return fixed
}

// GenerateKeywords returns the keywords of sentence. An empty sentence is
// ErrInvalidInput; a sentence with no recognizable word is ErrNotFound.
func (e *Extractor) GenerateKeywords(ctx context.Context, sentence string) ([]string, error) {
	if len(normalize.Tokenize(sentence)) == 0 {
		return nil, apperrors.WrapError(apperrors.ErrInvalidInput, "sentence has no terms")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fixed := e.CorrectTerms(sentence)
	if len(fixed) == 0 {
		return nil, apperrors.WrapError(apperrors.ErrNotFound, "no recognized words in sentence")
	}

	keywords := e.picker.Pick(fixed)
	e.logger.Debug("Keywords generated",
		zap.String("sentence", sentence),
		zap.Strings("keywords", keywords))
	return keywords, nil
}
