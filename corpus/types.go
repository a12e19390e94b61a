// Package corpus holds the knowledge base: tables of rows, each row an ask
// text, its keywords and the answer variants an NPC can reply with.
package corpus

import (
	"fmt"
	"sort"
	"sync"

	apperrors "dialog-agent/errors"
)

// DefaultMinKeywordsMatch applies to rows that do not set min_keywords_match.
const DefaultMinKeywordsMatch = 3

// TableID identifies a knowledge table.
type TableID string

// ActionKind tells whether a table action adds or removes a table.
type ActionKind string

const (
	ActionAdd    ActionKind = "add"
	ActionRemove ActionKind = "remove"
)

// TableAction changes which tables a partner exposes once its row was answered.
type TableAction struct {
	Action ActionKind `yaml:"action" json:"action"`
	Table  TableID    `yaml:"table" json:"table"`
}

// Answer is one reply variant of a row. Task is an opaque side-effect
// reference handed back to the caller; nothing here executes it.
type Answer struct {
	Text string `yaml:"text" json:"text"`
	Task string `yaml:"task,omitempty" json:"task,omitempty"`
}

type Row struct {
	Name             string        `yaml:"name" json:"name"`
	Ask              string        `yaml:"ask" json:"ask"`
	Keywords         []string      `yaml:"keywords" json:"keywords"`
	MinKeywordsMatch int           `yaml:"min_keywords_match" json:"min_keywords_match"`
	Answers          []Answer      `yaml:"answers" json:"answers"`
	TableActions     []TableAction `yaml:"table_actions,omitempty" json:"table_actions,omitempty"`
	Tasks            []string      `yaml:"tasks,omitempty" json:"tasks,omitempty"`
}

// Validate reports ErrCorpusRowInvalid for rows that cannot be served.
func (r Row) Validate() error {
	if r.Name == "" {
		return apperrors.WrapError(apperrors.ErrCorpusRowInvalid, "row has no name")
	}
	if len(r.Answers) == 0 {
		return apperrors.WrapErrorf(apperrors.ErrCorpusRowInvalid, "row %s has no answers", r.Name)
	}
	for _, a := range r.TableActions {
		if a.Action != ActionAdd && a.Action != ActionRemove {
			return apperrors.WrapErrorf(apperrors.ErrCorpusRowInvalid, "row %s has unknown table action %q", r.Name, a.Action)
		}
		if a.Table == "" {
			return apperrors.WrapErrorf(apperrors.ErrCorpusRowInvalid, "row %s has a table action without table", r.Name)
		}
	}
	return nil
}

// Table is an ordered list of rows. Default marks the default-responses table.
type Table struct {
	ID      TableID `yaml:"id" json:"id"`
	Default bool    `yaml:"default,omitempty" json:"default,omitempty"`
	Rows    []Row   `yaml:"rows" json:"rows"`
}

// Row returns the row with the given name.
func (t *Table) Row(name string) (*Row, bool) {
	for i := range t.Rows {
		if t.Rows[i].Name == name {
			return &t.Rows[i], true
		}
	}
	return nil, false
}

// AnswerCount is the total number of answer variants over all rows.
func (t *Table) AnswerCount() int {
	n := 0
	for _, r := range t.Rows {
		n += len(r.Answers)
	}
	return n
}

// Catalog is the full set of knowledge tables plus the partners' initial tables.
//
// Thread Safety: safe for concurrent use.
type Catalog struct {
	mu        sync.RWMutex
	tables    map[TableID]*Table
	order     []TableID
	defaultID TableID
	partners  map[string][]TableID
}

func NewCatalog(defaultID TableID) *Catalog {
	return &Catalog{
		tables:    make(map[TableID]*Table),
		defaultID: defaultID,
		partners:  make(map[string][]TableID),
	}
}

// Add inserts or replaces a table. A table flagged Default becomes the
// default-responses table when none was configured.
func (c *Catalog) Add(table *Table) error {
	if table == nil || table.ID == "" {
		return apperrors.WrapError(apperrors.ErrInvalidInput, "table has no id")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.tables[table.ID]; !exists {
		c.order = append(c.order, table.ID)
	}
	c.tables[table.ID] = table
	if table.Default && c.defaultID == "" {
		c.defaultID = table.ID
	}
	return nil
}

func (c *Catalog) Table(id TableID) (*Table, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tables[id]
	return t, ok
}

// Tables returns every table in insertion order.
func (c *Catalog) Tables() []*Table {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Table, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.tables[id])
	}
	return out
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

func (c *Catalog) DefaultTableID() TableID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.defaultID
}

// DefaultTable returns the default-responses table, if it is loaded.
func (c *Catalog) DefaultTable() (*Table, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.defaultID == "" {
		return nil, false
	}
	t, ok := c.tables[c.defaultID]
	return t, ok
}

// SetInitialTables records the tables a partner exposes on first contact.
func (c *Catalog) SetInitialTables(partner string, tables []TableID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.partners[partner] = append([]TableID(nil), tables...)
}

func (c *Catalog) InitialTables(partner string) []TableID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]TableID(nil), c.partners[partner]...)
}

// Partners lists partners with configured initial tables, sorted.
func (c *Catalog) Partners() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.partners))
	for p := range c.partners {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Check verifies that every table action and initial table points at a loaded table.
func (c *Catalog) Check() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, id := range c.order {
		for _, row := range c.tables[id].Rows {
			for _, a := range row.TableActions {
				if _, ok := c.tables[a.Table]; !ok {
					return apperrors.WrapErrorf(apperrors.ErrNotFound, "table %s row %s references unknown table %s", id, row.Name, a.Table)
				}
			}
		}
	}
	for partner, ids := range c.partners {
		for _, id := range ids {
			if _, ok := c.tables[id]; !ok {
				return apperrors.WrapErrorf(apperrors.ErrNotFound, "partner %s references unknown table %s", partner, id)
			}
		}
	}
	return nil
}

func (id TableID) String() string { return string(id) }

// AnswerRef points at one answer variant.
type AnswerRef struct {
	Table       TableID
	Row         string
	AnswerIndex int
}

func (r AnswerRef) String() string {
	return fmt.Sprintf("%s/%s#%d", r.Table, r.Row, r.AnswerIndex)
}
