// Package classify maps free-text movement descriptions to catalog codes
// using an ordered keyword table loaded from YAML.
package classify

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/tinoosan/treasury/internal/catalog"
	"github.com/tinoosan/treasury/internal/errs"
	"github.com/tinoosan/treasury/internal/ledger"
	"github.com/tinoosan/treasury/internal/textnorm"
)

//go:embed rules.yaml
var embeddedRules []byte

// Rule maps any of its keywords to a catalog code.
type Rule struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Target   string   `yaml:"target"`
}

// Section is the ordered rule list for one direction.
type Section struct {
	Fallback string `yaml:"fallback"`
	Rules    []Rule `yaml:"rules"`
}

type document struct {
	Income  Section `yaml:"income"`
	Expense Section `yaml:"expense"`
}

// Table holds disjoint income and expense rule lists. It is immutable once built.
type Table struct {
	sections map[ledger.Direction]Section
}

// Default returns the table built from the embedded rules.
func Default() *Table {
	t, err := New(embeddedRules)
	if err != nil {
		panic(fmt.Sprintf("classify: embedded rules: %v", err))
	}
	return t
}

// LoadFile builds a table from a YAML file on disk.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}
	return New(data)
}

// New parses YAML rules. Keywords are normalised once here.
func New(data []byte) (*Table, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	t := &Table{sections: make(map[ledger.Direction]Section, 2)}
	for dir, sec := range map[ledger.Direction]Section{
		ledger.DirectionIncome:  doc.Income,
		ledger.DirectionExpense: doc.Expense,
	} {
		norm, err := normaliseSection(dir, sec)
		if err != nil {
			return nil, err
		}
		t.sections[dir] = norm
	}
	return t, nil
}

func normaliseSection(dir ledger.Direction, sec Section) (Section, error) {
	out := Section{Fallback: strings.TrimSpace(sec.Fallback), Rules: make([]Rule, 0, len(sec.Rules))}
	if out.Fallback == "" {
		return Section{}, fmt.Errorf("%s rules: fallback code is required", dir)
	}
	for i, r := range sec.Rules {
		target := strings.TrimSpace(r.Target)
		if target == "" {
			return Section{}, fmt.Errorf("%s rule %d (%s): target is required", dir, i, r.Name)
		}
		kws := make([]string, 0, len(r.Keywords))
		for _, k := range r.Keywords {
			if k = textnorm.Upper(k); k != "" {
				kws = append(kws, k)
			}
		}
		if len(kws) == 0 {
			return Section{}, fmt.Errorf("%s rule %d (%s): at least one keyword is required", dir, i, r.Name)
		}
		out.Rules = append(out.Rules, Rule{Name: r.Name, Keywords: kws, Target: target})
	}
	return out, nil
}

// Classify returns the target code of the first rule matching description,
// or the direction's fallback code.
func (t *Table) Classify(description string, dir ledger.Direction) string {
	sec := t.sections[dir]
	text := textnorm.Upper(description)
	for _, r := range sec.Rules {
		for _, k := range r.Keywords {
			if strings.Contains(text, k) {
				return r.Target
			}
		}
	}
	return sec.Fallback
}

// Codes lists every code the table can produce for a direction, fallback last.
func (t *Table) Codes(dir ledger.Direction) []string {
	sec := t.sections[dir]
	seen := make(map[string]struct{}, len(sec.Rules)+1)
	out := make([]string, 0, len(sec.Rules)+1)
	for _, c := range append(ruleTargets(sec.Rules), sec.Fallback) {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

func ruleTargets(rs []Rule) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Target
	}
	return out
}

// Resolver classifies descriptions straight to catalog ids.
type Resolver struct {
	table *Table
	ids   map[ledger.Direction]map[string]uuid.UUID
}

// Bind resolves every code the table can produce against snap. A code
// missing from the catalog is reported as errs.KindCatalogMissing.
func (t *Table) Bind(snap catalog.Snapshot) (*Resolver, error) {
	r := &Resolver{table: t, ids: make(map[ledger.Direction]map[string]uuid.UUID, 2)}
	for _, dir := range []ledger.Direction{ledger.DirectionIncome, ledger.DirectionExpense} {
		codes := t.Codes(dir)
		m := make(map[string]uuid.UUID, len(codes))
		for _, c := range codes {
			id, ok := snap.Lookup(dir, c)
			if !ok {
				return nil, errs.New(errs.KindCatalogMissing, "%s catalog entry %q not found", dir, c)
			}
			m[c] = id
		}
		r.ids[dir] = m
	}
	return r, nil
}

// Resolve returns the income-source id or expense-category id for the
// description. Exactly one of the two is non-nil.
func (r *Resolver) Resolve(description string, dir ledger.Direction) (income, expense *uuid.UUID) {
	id := r.ids[dir][r.table.Classify(description, dir)]
	if dir == ledger.DirectionIncome {
		return &id, nil
	}
	return nil, &id
}
