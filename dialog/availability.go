package dialog

import (
	"slices"
	"sync"

	"dialog-agent/corpus"
)

// Availability records, per relationship, the ordered tables the partner
// currently answers from.
//
// Thread Safety: safe for concurrent use.
type Availability struct {
	mu     sync.RWMutex
	tables map[string][]corpus.TableID
}

func NewAvailability() *Availability {
	return &Availability{tables: make(map[string][]corpus.TableID)}
}

// Reset leaves key known with no tables.
func (a *Availability) Reset(key string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tables[key] = []corpus.TableID{}
}

// Add appends id and reports whether it was new.
func (a *Availability) Add(key string, id corpus.TableID) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if slices.Contains(a.tables[key], id) {
		return false
	}
	a.tables[key] = append(a.tables[key], id)
	return true
}

// Remove drops id and reports whether it was present.
func (a *Availability) Remove(key string, id corpus.TableID) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	ids := a.tables[key]
	i := slices.Index(ids, id)
	if i < 0 {
		return false
	}
	a.tables[key] = slices.Delete(slices.Clone(ids), i, i+1)
	return true
}

func (a *Availability) Has(key string, id corpus.TableID) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Contains(a.tables[key], id)
}

// Tables returns a copy of the tables of key in registration order.
func (a *Availability) Tables(key string) []corpus.TableID {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.tables[key])
}

// Forget drops key entirely.
func (a *Availability) Forget(key string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.tables, key)
}
