package corpus

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	apperrors "dialog-agent/errors"
	"dialog-agent/utils"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// PartnersFile is the file name holding partners' initial tables.
const PartnersFile = "partners.yaml"

// yamlRow mirrors Row but keeps min_keywords_match optional so an omitted
// value can default to DefaultMinKeywordsMatch.
type yamlRow struct {
	Name             string        `yaml:"name"`
	Ask              string        `yaml:"ask"`
	Keywords         []string      `yaml:"keywords"`
	MinKeywordsMatch *int          `yaml:"min_keywords_match"`
	Answers          []Answer      `yaml:"answers"`
	TableActions     []TableAction `yaml:"table_actions"`
	Tasks            []string      `yaml:"tasks"`
}

type yamlTable struct {
	ID      string    `yaml:"id"`
	Default bool      `yaml:"default"`
	Rows    []yamlRow `yaml:"rows"`
}

type yamlPartners struct {
	Partners map[string][]string `yaml:"partners"`
}

// UnmarshalYAML accepts either a bare string or a {text, task} mapping.
func (a *Answer) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		a.Text = node.Value
		return nil
	}
	type plain Answer
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*a = Answer(p)
	return nil
}

// ParseTables decodes one or more YAML documents, each describing a table.
func ParseTables(r io.Reader) ([]*Table, error) {
	dec := yaml.NewDecoder(r)
	var tables []*Table
	for {
		var doc yamlTable
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperrors.WrapCause(apperrors.ErrInvalidInput, err, "decode table")
		}
		if doc.ID == "" && len(doc.Rows) == 0 {
			continue
		}
		tables = append(tables, doc.toTable())
	}
	return tables, nil
}

func (doc yamlTable) toTable() *Table {
	t := &Table{
		ID:      TableID(utils.SanitizeIdentifier(doc.ID)),
		Default: doc.Default,
		Rows:    make([]Row, 0, len(doc.Rows)),
	}
	for i, yr := range doc.Rows {
		row := Row{
			Name:             yr.Name,
			Ask:              yr.Ask,
			Keywords:         yr.Keywords,
			MinKeywordsMatch: DefaultMinKeywordsMatch,
			Answers:          yr.Answers,
			TableActions:     yr.TableActions,
			Tasks:            yr.Tasks,
		}
		if row.Name == "" {
			row.Name = fmt.Sprintf("row_%d", i+1)
		}
		if yr.MinKeywordsMatch != nil {
			row.MinKeywordsMatch = *yr.MinKeywordsMatch
		}
		for j := range row.TableActions {
			row.TableActions[j].Table = TableID(utils.SanitizeIdentifier(string(row.TableActions[j].Table)))
			row.TableActions[j].Action = ActionKind(strings.ToLower(string(row.TableActions[j].Action)))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// ParsePartners decodes the partners file.
func ParsePartners(r io.Reader) (map[string][]TableID, error) {
	var doc yamlPartners
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, apperrors.WrapCause(apperrors.ErrInvalidInput, err, "decode partners")
	}
	out := make(map[string][]TableID, len(doc.Partners))
	for partner, ids := range doc.Partners {
		tables := make([]TableID, 0, len(ids))
		for _, id := range ids {
			tables = append(tables, TableID(utils.SanitizeIdentifier(id)))
		}
		out[utils.SanitizeIdentifier(partner)] = tables
	}
	return out, nil
}

// LoadDir reads every *.yaml / *.yml file under dir into a Catalog. Files are
// read in lexical order so table order is stable between runs.
func LoadDir(dir string, defaultID TableID, logger *zap.Logger) (*Catalog, error) {
	if !utils.VerifyDirExists(dir) {
		return nil, apperrors.WrapErrorf(apperrors.ErrNotFound, "corpus directory %s", dir)
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk corpus directory: %w", err)
	}
	sort.Strings(files)

	catalog := NewCatalog(defaultID)
	for _, path := range files {
		if err := loadFile(catalog, path, logger); err != nil {
			return nil, err
		}
	}

	if err := catalog.Check(); err != nil {
		return nil, err
	}
	if _, ok := catalog.DefaultTable(); !ok {
		logger.Warn("Default responses table not found in corpus",
			zap.String("table", string(catalog.DefaultTableID())))
	}

	logger.Info("Corpus loaded",
		zap.String("dir", dir),
		zap.Int("files", len(files)),
		zap.Int("tables", catalog.Len()),
		zap.Int("partners", len(catalog.Partners())))
	return catalog, nil
}

func loadFile(catalog *Catalog, path string, logger *zap.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open corpus file %s: %w", path, err)
	}
	defer f.Close()

	if filepath.Base(path) == PartnersFile {
		partners, err := ParsePartners(f)
		if err != nil {
			return apperrors.WrapErrorf(err, "file %s", path)
		}
		for partner, tables := range partners {
			catalog.SetInitialTables(partner, tables)
		}
		return nil
	}

	tables, err := ParseTables(f)
	if err != nil {
		return apperrors.WrapErrorf(err, "file %s", path)
	}
	for _, t := range tables {
		if t.ID == "" {
			logger.Warn("Skipping table without id", zap.String("file", path))
			continue
		}
		if err := catalog.Add(t); err != nil {
			return err
		}
		logger.Debug("Loaded knowledge table",
			zap.String("table", string(t.ID)),
			zap.Int("rows", len(t.Rows)),
			zap.String("file", path))
	}
	return nil
}
