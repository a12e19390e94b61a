package normalize

import (
	"strings"

	"github.com/jdkato/prose/v2"
	"go.uber.org/zap"
)

// SentenceSplitter breaks player input into sentences that are answered one by one.
type SentenceSplitter interface {
	Split(text string) []string
}

var (
	_ SentenceSplitter = PunctuationSplitter{}
	_ SentenceSplitter = (*ProseSplitter)(nil)
)

// PunctuationSplitter applies SplitSentences.
type PunctuationSplitter struct{}

func (PunctuationSplitter) Split(text string) []string {
	return SplitSentences(text)
}

// ProseSplitter segments text with prose's sentence model. It handles
// abbreviations ("Mr. Smith") that plain punctuation splitting breaks apart.
type ProseSplitter struct {
	logger *zap.Logger
}

func NewProseSplitter(logger *zap.Logger) *ProseSplitter {
	return &ProseSplitter{logger: logger}
}

func (p *ProseSplitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	doc, err := prose.NewDocument(text,
		prose.WithTagging(false),
		prose.WithExtraction(false),
		prose.WithTokenization(false))
	if err != nil {
		p.logger.Warn("Failed to create prose document for sentence detection, falling back to punctuation", zap.Error(err))
		return SplitSentences(text)
	}

	sentences := doc.Sentences()
	out := make([]string, 0, len(sentences))
	for _, s := range sentences {
		if s.Text != "" {
			out = append(out, s.Text)
		}
	}
	if len(out) == 0 {
		return SplitSentences(text)
	}
	return out
}

// NewSplitter returns the splitter named by SENTENCE_SPLITTER.
func NewSplitter(kind string, logger *zap.Logger) SentenceSplitter {
	switch strings.ToLower(kind) {
	case "prose":
		return NewProseSplitter(logger)
	case "", "punctuation":
		return PunctuationSplitter{}
	default:
		logger.Warn("Unknown sentence splitter, using punctuation", zap.String("splitter", kind))
		return PunctuationSplitter{}
	}
}
