package pipeline

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"platval/internal"
	"platval/internal/util"
)

// AliasTable holds the explicit overrides for names whose catalog id cannot
// be derived by normalization. Patterns are compared punctuation-free and
// case-folded; when two rules reduce to the same key, the first-loaded rule
// wins.
type AliasTable struct {
	rules []internal.AliasRule
	byKey map[string]internal.AliasRule
}

type aliasFile struct {
	Aliases []internal.AliasRule `yaml:"aliases"`
}

// LoadAliases reads the alias data file. A missing file is an empty table,
// not an error: aliases are optional overrides.
func LoadAliases(path string) (*AliasTable, error) {
	blob, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewAliasTable(nil)
	}
	if err != nil {
		return nil, err
	}

	var file aliasFile
	if err := yaml.Unmarshal(blob, &file); err != nil {
		return nil, fmt.Errorf("alias file %s: %w", path, err)
	}
	return NewAliasTable(file.Aliases)
}

func NewAliasTable(rules []internal.AliasRule) (*AliasTable, error) {
	table := &AliasTable{
		rules: make([]internal.AliasRule, 0, len(rules)),
		byKey: make(map[string]internal.AliasRule, len(rules)),
	}

	for i, rule := range rules {
		key := util.AliasKey(rule.Pattern)
		if key == "" || rule.CanonicalID == "" {
			return nil, fmt.Errorf("alias rule %d: pattern and canonical are required", i+1)
		}
		if _, exists := table.byKey[key]; exists {
			continue
		}
		table.byKey[key] = rule
		table.rules = append(table.rules, rule)
	}
	return table, nil
}

func (t *AliasTable) Lookup(rawName string) (internal.AliasRule, bool) {
	rule, ok := t.byKey[util.AliasKey(rawName)]
	return rule, ok
}

func (t *AliasTable) Len() int {
	return len(t.rules)
}
