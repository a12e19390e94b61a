// Package dialog answers player sentences for a dialogue partner. It owns the
// corpus, the vocabulary and the per-relationship state, and runs the
// correction, keyword, retrieval and ranking stages for each sentence.
package dialog

import (
	"context"
	"strings"
	"sync"
	"time"

	"dialog-agent/corpus"
	"dialog-agent/dictionary"
	apperrors "dialog-agent/errors"
	"dialog-agent/keywords"
	"dialog-agent/metric"
	"dialog-agent/normalize"
	"dialog-agent/reply"
	"dialog-agent/retrieval"
	"dialog-agent/spell"

	lru "github.com/hashicorp/golang-lru"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Result is the reply to one sentence. Found is false when no row matched and
// the reply came from the default responses or the default reply text; in
// that last case Table is empty.
type Result struct {
	Sentence    string         `json:"sentence"`
	Keywords    []string       `json:"keywords,omitempty"`
	Found       bool           `json:"found"`
	Table       corpus.TableID `json:"table,omitempty"`
	Row         string         `json:"row,omitempty"`
	AnswerIndex int            `json:"answer_index"`
	Text        string         `json:"text"`
	Task        string         `json:"task,omitempty"`
	// Tasks are the side-effect references of the matched row.
	Tasks []string `json:"tasks,omitempty"`
}

type Engine struct {
	catalog      *corpus.Catalog
	dict         *dictionary.BucketedDictionary
	corrector    *spell.Corrector
	extractor    *keywords.Extractor
	retriever    *retrieval.Retriever
	strategy     reply.ReplyStrategy
	metrics      *metric.Registry
	availability *Availability
	// lifecycle serializes relationship creation against Forget so the store
	// and the availability list of a key appear and disappear together.
	lifecycle    sync.Mutex
	askCache     *lru.Cache
	splitter     normalize.SentenceSplitter
	snapshots    metric.SnapshotStore
	defaultReply string
	logger       *zap.Logger
}

// NewEngine builds the dictionary from catalog and wires every stage. The
// engine starts ticking weariness immediately; call Close to stop it.
func NewEngine(catalog *corpus.Catalog, opts Options, logger *zap.Logger) (*Engine, error) {
	if catalog == nil {
		return nil, apperrors.WrapError(apperrors.ErrConfigurationMissing, "no corpus catalog")
	}
	if opts.Splitter == nil {
		opts.Splitter = normalize.PunctuationSplitter{}
	}
	if opts.DefaultReplyText == "" {
		opts.DefaultReplyText = DefaultReplyText
	}
	if opts.AskCacheSize <= 0 {
		opts.AskCacheSize = 1024
	}

	if err := catalog.Check(); err != nil {
		logger.Warn("Corpus references unknown tables", zap.Error(err))
	}
	if _, ok := catalog.DefaultTable(); !ok {
		logger.Warn("No default responses table loaded, unmatched sentences get the default reply text",
			zap.String("table", string(catalog.DefaultTableID())),
			zap.Error(apperrors.ErrConfigurationMissing))
	}

	dict := dictionary.New(logger)
	dict.Build(catalog)

	corrector, err := spell.NewCorrector(dict, opts.Distance, opts.Correction, logger)
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to create spell corrector")
	}
	askCache, err := lru.New(opts.AskCacheSize)
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to create ask option cache")
	}

	picker := keywords.NewTfIdfPicker(dict, opts.MinKeywordsCount, logger)
	return &Engine{
		catalog:      catalog,
		dict:         dict,
		corrector:    corrector,
		extractor:    keywords.NewExtractor(corrector, picker, logger),
		retriever:    retrieval.New(dict, opts.MaxKeywords, logger),
		strategy:     reply.NewRanker(corrector.Distance(), logger),
		metrics:      metric.NewRegistry(opts.Metric, opts.MetricInterval, logger),
		availability: NewAvailability(),
		askCache:     askCache,
		splitter:     opts.Splitter,
		snapshots:    opts.Snapshots,
		defaultReply: opts.DefaultReplyText,
		logger:       logger,
	}, nil
}

// Close stops the weariness ticker.
func (e *Engine) Close() {
	e.metrics.Stop()
}

func (e *Engine) Catalog() *corpus.Catalog { return e.catalog }

func (e *Engine) Dictionary() *dictionary.BucketedDictionary { return e.dict }

func (e *Engine) Metrics() *metric.Registry { return e.metrics }

// RegisterInitialTables prepares the relationship on first contact: the
// default responses and the partner's initial tables are registered. Later
// calls return the existing store.
func (e *Engine) RegisterInitialTables(ctx context.Context, rel Relationship) (*metric.Store, error) {
	if err := rel.Validate(); err != nil {
		return nil, err
	}
	key := rel.Key()

	e.lifecycle.Lock()
	store, created := e.metrics.GetOrCreate(key, func(s *metric.Store) {
		if def, ok := e.catalog.DefaultTable(); ok {
			s.RegisterTable(def)
		}
		e.availability.Reset(key)
		for _, id := range e.catalog.InitialTables(rel.PartnerID) {
			table, ok := e.catalog.Table(id)
			if !ok {
				e.logger.Warn("Initial table not loaded",
					zap.String("partner", rel.PartnerID), zap.String("table", string(id)))
				continue
			}
			e.availability.Add(key, id)
			s.RegisterTable(table)
		}
	})
	store.Touch()
	e.lifecycle.Unlock()

	if created {
		e.logger.Debug("Relationship started",
			zap.String("relationship", key),
			zap.Strings("tables", tableStrings(e.availability.Tables(key))))
		e.restore(ctx, key)
	}
	return store, nil
}

func (e *Engine) restore(ctx context.Context, key string) {
	if e.snapshots == nil {
		return
	}
	snap, err := e.snapshots.LoadSnapshot(ctx, key)
	if err != nil {
		if !apperrors.IsNotFound(err) {
			e.logger.Warn("Failed to load weariness snapshot", zap.String("relationship", key), zap.Error(err))
		}
		return
	}
	applied := e.metrics.Restore(snap)
	e.logger.Debug("Restored weariness snapshot",
		zap.String("relationship", key),
		zap.Int("entries", applied),
		zap.Time("saved_at", snap.SavedAt))
}

// GenerateKeywords runs normalization, spell correction and keyword picking.
func (e *Engine) GenerateKeywords(ctx context.Context, rel Relationship, sentence string) ([]string, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "dialog.Engine.GenerateKeywords",
		trace.WithAttributes(attribute.String("relationship", rel.Key())))
	defer span.End()

	if _, err := e.RegisterInitialTables(ctx, rel); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	kws, err := e.extractor.GenerateKeywords(ctx, sentence)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.StringSlice("keywords", kws))
	return kws, nil
}

// GenerateReply answers one sentence. Sentences without usable keywords or
// matching rows are not errors: they get a default response with Found false.
// Errors are only returned for an invalid relationship or a cancelled context.
func (e *Engine) GenerateReply(ctx context.Context, rel Relationship, sentence string) (Result, error) {
	start := time.Now()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "dialog.Engine.GenerateReply",
		trace.WithAttributes(attribute.String("relationship", rel.Key())))
	defer span.End()

	store, err := e.RegisterInitialTables(ctx, rel)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}
	key := rel.Key()
	result := Result{Sentence: sentence}

	kws, err := e.extractor.GenerateKeywords(ctx, sentence)
	switch {
	case err == nil:
		result.Keywords = kws
	case apperrors.IsInvalidInput(err), apperrors.IsNotFound(err):
		e.logger.Debug("No keywords for sentence", zap.String("sentence", sentence), zap.Error(err))
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}

	var cands []reply.Candidate
	if len(kws) > 0 {
		ids := e.retriever.FindTables(kws, e.availability.Tables(key))
		cands = e.strategy.Collect(e.tablesFor(ids), kws)
	}
	result.Found = len(cands) > 0
	if !result.Found {
		def, _ := e.catalog.DefaultTable()
		cands = e.strategy.Fallback(def)
	}

	var chosen reply.Candidate
	var ok bool
	store.Transact(func(tx *metric.Tx) {
		chosen, ok = e.strategy.Select(cands, tx)
		if ok {
			tx.Modify(chosen.Table, chosen.Row, chosen.AnswerIndex)
		}
	})

	outcome := "matched"
	switch {
	case ok:
		e.fill(&result, chosen)
		if !result.Found {
			outcome = "fallback"
		}
	default:
		outcome = "default_text"
		result.Text = e.defaultReply
	}

	if result.Found {
		e.applyTableActions(ctx, rel, chosen)
	}

	repliesTotal.WithLabelValues(outcome).Inc()
	replyDuration.Observe(time.Since(start).Seconds())
	span.SetAttributes(
		attribute.Bool("found", result.Found),
		attribute.String("outcome", outcome),
		attribute.String("table", string(result.Table)),
		attribute.String("row", result.Row))

	e.logger.Debug("Reply generated",
		zap.String("relationship", key),
		zap.String("sentence", sentence),
		zap.Strings("keywords", result.Keywords),
		zap.String("outcome", outcome),
		zap.String("answer", chosen.Ref().String()))
	return result, nil
}

// Reply splits input into sentences and answers each one. Input without any
// sentence gets a single default reply.
func (e *Engine) Reply(ctx context.Context, rel Relationship, input string) ([]Result, error) {
	var sentences []string
	for _, s := range e.splitter.Split(input) {
		if s = strings.TrimSpace(s); s != "" {
			sentences = append(sentences, s)
		}
	}
	if len(sentences) == 0 {
		sentences = []string{""}
	}

	results := make([]Result, 0, len(sentences))
	for _, sentence := range sentences {
		res, err := e.GenerateReply(ctx, rel, sentence)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// FindAskOptions completes the last sentence of partial input with the ask
// texts of the available rows whose words start with what was typed. Earlier
// sentences are kept as a prefix.
func (e *Engine) FindAskOptions(ctx context.Context, rel Relationship, partial string) []string {
	if _, err := e.RegisterInitialTables(ctx, rel); err != nil {
		e.logger.Warn("Cannot complete input for relationship", zap.Error(err))
		return nil
	}
	sentences := normalize.SplitSentences(partial)
	if len(sentences) == 0 {
		return nil
	}
	last := sentences[len(sentences)-1]
	earlier := make([]string, 0, len(sentences)-1)
	for _, sentence := range sentences[:len(sentences)-1] {
		if s := strings.TrimSpace(sentence); s != "" {
			earlier = append(earlier, s)
		}
	}
	prefix := strings.Join(earlier, " ")

	key := rel.Key()
	var completer *reply.AskCompleter
	if v, ok := e.askCache.Get(key); ok {
		completer = v.(*reply.AskCompleter)
	} else {
		completer = reply.NewAskCompleter()
		e.askCache.Add(key, completer)
	}

	asks := completer.Complete(e.tablesFor(e.availability.Tables(key)), normalize.Tokenize(last))
	if prefix == "" {
		return asks
	}
	out := make([]string, len(asks))
	for i, ask := range asks {
		out[i] = prefix + " " + ask
	}
	return out
}

// RegisterTable makes table available to the relationship's partner.
func (e *Engine) RegisterTable(ctx context.Context, rel Relationship, id corpus.TableID) error {
	store, err := e.RegisterInitialTables(ctx, rel)
	if err != nil {
		return err
	}
	table, ok := e.catalog.Table(id)
	if !ok {
		return apperrors.WrapErrorf(apperrors.ErrNotFound, "table %s is not loaded", id)
	}
	if e.availability.Add(rel.Key(), id) {
		store.RegisterTable(table)
	}
	return nil
}

// UnregisterTable hides table from the relationship's partner and drops its weariness.
func (e *Engine) UnregisterTable(ctx context.Context, rel Relationship, id corpus.TableID) error {
	store, err := e.RegisterInitialTables(ctx, rel)
	if err != nil {
		return err
	}
	if !e.availability.Remove(rel.Key(), id) {
		return apperrors.WrapErrorf(apperrors.ErrNotFound, "table %s is not available to %s", id, rel.PartnerID)
	}
	if id != e.catalog.DefaultTableID() {
		store.UnregisterTable(id)
	}
	return nil
}

// Tables lists the tables available to the relationship's partner.
func (e *Engine) Tables(rel Relationship) []corpus.TableID {
	return e.availability.Tables(rel.Key())
}

func (e *Engine) HasTable(rel Relationship, id corpus.TableID) bool {
	return e.availability.Has(rel.Key(), id)
}

// Forget drops every piece of state held for the relationship key.
func (e *Engine) Forget(key string) {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()
	e.forgetLocked(key)
}

// ForgetIdle forgets key only if its store was not used since cutoff, and
// reports whether it did.
func (e *Engine) ForgetIdle(key string, cutoff time.Time) bool {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()
	store, ok := e.metrics.Get(key)
	if !ok || !store.LastUsed().Before(cutoff) {
		return false
	}
	e.forgetLocked(key)
	return true
}

func (e *Engine) forgetLocked(key string) {
	e.metrics.Remove(key)
	e.availability.Forget(key)
	e.askCache.Remove(key)
}

func (e *Engine) applyTableActions(ctx context.Context, rel Relationship, chosen reply.Candidate) {
	table, ok := e.catalog.Table(chosen.Table)
	if !ok {
		return
	}
	row, ok := table.Row(chosen.Row)
	if !ok || len(row.TableActions) == 0 {
		return
	}
	key := rel.Key()

	for _, action := range row.TableActions {
		var err error
		switch action.Action {
		case corpus.ActionAdd:
			err = e.RegisterTable(ctx, rel, action.Table)
		case corpus.ActionRemove:
			err = e.UnregisterTable(ctx, rel, action.Table)
		}
		if err != nil && !apperrors.IsNotFound(err) {
			e.logger.Warn("Table action failed",
				zap.String("relationship", key),
				zap.String("action", string(action.Action)),
				zap.String("table", string(action.Table)),
				zap.Error(err))
			continue
		}
		tableActionsTotal.WithLabelValues(string(action.Action)).Inc()
		e.logger.Debug("Table action applied",
			zap.String("relationship", key),
			zap.String("action", string(action.Action)),
			zap.String("table", string(action.Table)))
	}
}

func (e *Engine) fill(result *Result, c reply.Candidate) {
	result.Table = c.Table
	result.Row = c.Row
	result.AnswerIndex = c.AnswerIndex

	table, ok := e.catalog.Table(c.Table)
	if !ok {
		result.Text = e.defaultReply
		return
	}
	row, ok := table.Row(c.Row)
	if !ok || c.AnswerIndex >= len(row.Answers) {
		result.Text = e.defaultReply
		return
	}
	answer := row.Answers[c.AnswerIndex]
	result.Text = answer.Text
	result.Task = answer.Task
	result.Tasks = row.Tasks
}

// tablesFor resolves ids to loaded tables, skipping unknown ones.
func (e *Engine) tablesFor(ids []corpus.TableID) []*corpus.Table {
	tables := make([]*corpus.Table, 0, len(ids))
	for _, id := range ids {
		if t, ok := e.catalog.Table(id); ok {
			tables = append(tables, t)
		}
	}
	return tables
}

func tableStrings(ids []corpus.TableID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
