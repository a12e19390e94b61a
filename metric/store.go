// Package metric keeps the per-relationship weariness of every answer variant.
// Weariness falls each time an answer is chosen and recovers on a timer, so
// repeated questions get varied replies.
package metric

import (
	"math/rand/v2"
	"sync"
	"time"

	"dialog-agent/corpus"
)

const (
	MinWeariness float32 = 0.01
	MaxWeariness float32 = 1.0

	DefaultJitterEpsilon = 0.15

	// recoverChance is the probability that Tick touches a given entry.
	recoverChance = 0.5
	recoverFactor = 1.1
	decayFactor   = 0.5
)

// Entry is the mutable state of one answer variant.
type Entry struct {
	Weariness float32
	Jitter    float32
}

// Eval is the tie-break value: fresh answers with a high jitter win.
func (e Entry) Eval() float32 {
	return e.Weariness * e.Jitter
}

type answerKey struct {
	row    string
	answer int
}

// Options configure new stores.
type Options struct {
	// Epsilon bounds the jitter to [1-Epsilon, 1+Epsilon].
	Epsilon float64
	// Curve replaces the default halving on use when set.
	Curve Curve
	// NewRand returns the random source of one store. Tests inject seeded sources.
	NewRand func() *rand.Rand
}

func DefaultOptions() Options {
	return Options{Epsilon: DefaultJitterEpsilon}
}

func (o Options) newRand() *rand.Rand {
	if o.NewRand != nil {
		return o.NewRand()
	}
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// Store holds the entries of one relationship.
//
// Thread Safety: every method locks the store's own mutex; Transact groups
// reads and writes into one critical section.
type Store struct {
	mu       sync.Mutex
	tables   map[corpus.TableID]map[answerKey]*Entry
	epsilon  float64
	curve    Curve
	rng      *rand.Rand
	lastUsed time.Time
}

func NewStore(opts Options) *Store {
	if opts.Epsilon < 0 || opts.Epsilon >= 1 {
		opts.Epsilon = DefaultJitterEpsilon
	}
	return &Store{
		tables:   make(map[corpus.TableID]map[answerKey]*Entry),
		epsilon:  opts.Epsilon,
		curve:    opts.Curve,
		rng:      opts.newRand(),
		lastUsed: time.Now(),
	}
}

// RegisterTable creates an entry with full weariness and a fresh jitter for
// every answer of table. Answers that already have an entry keep it.
func (s *Store) RegisterTable(table *corpus.Table) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, ok := s.tables[table.ID]
	if !ok {
		entries = make(map[answerKey]*Entry)
		s.tables[table.ID] = entries
	}
	for _, row := range table.Rows {
		for i := range row.Answers {
			key := answerKey{row: row.Name, answer: i}
			if _, exists := entries[key]; exists {
				continue
			}
			jitter := 1 - s.epsilon + s.rng.Float64()*2*s.epsilon
			entries[key] = &Entry{Weariness: MaxWeariness, Jitter: float32(jitter)}
		}
	}
}

func (s *Store) UnregisterTable(id corpus.TableID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tables, id)
}

func (s *Store) HasTable(id corpus.TableID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tables[id]
	return ok
}

// Len is the number of entries over all tables.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, entries := range s.tables {
		n += len(entries)
	}
	return n
}

// Tick lets each entry, with even odds, recover ten percent toward full
// weariness: w = clamp(w*1.1, MinWeariness, MaxWeariness). The product form
// w *= clamp(w*1.1, 0, 1) would decay entries instead and leave the
// [MinWeariness, MaxWeariness] range.
func (s *Store) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entries := range s.tables {
		for _, e := range entries {
			if s.rng.Float64() < recoverChance {
				e.Weariness = clamp(e.Weariness*recoverFactor, MinWeariness, MaxWeariness)
			}
		}
	}
}

// Entry returns a copy of the entry for one answer.
func (s *Store) Entry(table corpus.TableID, row string, answer int) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.lookup(table, row, answer)
	if e == nil {
		return Entry{}, false
	}
	return *e, true
}

// EvalValue is weariness times jitter, or 0 for unknown answers.
func (s *Store) EvalValue(table corpus.TableID, row string, answer int) float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evalLocked(table, row, answer)
}

// Modify records that an answer was used and returns its new weariness.
func (s *Store) Modify(table corpus.TableID, row string, answer int) (float32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modifyLocked(table, row, answer)
}

// Transact runs fn with the store locked.
func (s *Store) Transact(fn func(tx *Tx)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = time.Now()
	fn(&Tx{s: s})
}

// Touch marks the store as in use without changing any entry.
func (s *Store) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = time.Now()
}

// LastUsed is the time of the last transaction or Touch.
func (s *Store) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

func (s *Store) lookup(table corpus.TableID, row string, answer int) *Entry {
	entries, ok := s.tables[table]
	if !ok {
		return nil
	}
	return entries[answerKey{row: row, answer: answer}]
}

func (s *Store) evalLocked(table corpus.TableID, row string, answer int) float32 {
	e := s.lookup(table, row, answer)
	if e == nil {
		return 0
	}
	return e.Eval()
}

func (s *Store) modifyLocked(table corpus.TableID, row string, answer int) (float32, bool) {
	e := s.lookup(table, row, answer)
	if e == nil {
		return 0, false
	}
	if s.curve != nil {
		e.Weariness = clamp(s.curve.Apply(e.Weariness), MinWeariness, MaxWeariness)
	} else {
		e.Weariness = clamp(e.Weariness*decayFactor, MinWeariness, MaxWeariness)
	}
	return e.Weariness, true
}

// Tx is the locked view of a store handed to Transact.
type Tx struct {
	s *Store
}

func (tx *Tx) EvalValue(table corpus.TableID, row string, answer int) float32 {
	return tx.s.evalLocked(table, row, answer)
}

func (tx *Tx) Modify(table corpus.TableID, row string, answer int) (float32, bool) {
	return tx.s.modifyLocked(table, row, answer)
}

func clamp(v, lo, hi float32) float32 {
	return min(max(v, lo), hi)
}
