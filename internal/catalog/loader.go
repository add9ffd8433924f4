package catalog

import (
	"encoding/json"
	"fmt"
	"os"
)

// FileDefinitions represents the contents of a designer-authored definitions
// file. Entries replace same-keyed defaults and otherwise extend the catalog.
// The struct is exported so the schema generator can reflect over it.
type FileDefinitions struct {
	Abilities []AbilityDefinition `json:"abilities,omitempty" jsonschema:"title=Ability definitions"`
	Weapons   []WeaponDefinition  `json:"weapons,omitempty" jsonschema:"title=Weapon definitions"`
	Combos    []ComboDefinition   `json:"combos,omitempty" jsonschema:"title=Combo definitions"`
}

// LoadFile reads a definitions file and merges it over the compiled-in
// defaults.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	var file FileDefinitions
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("catalog: parse %s: %w", path, err)
	}
	return Merge(file)
}

// Merge folds file definitions over the defaults.
func Merge(file FileDefinitions) (*Catalog, error) {
	abilities := mergeAbilities(defaultAbilities(), file.Abilities)
	weapons := mergeWeapons(defaultWeapons(), file.Weapons)
	combos := mergeCombos(defaultCombos(), file.Combos)
	return New(abilities, weapons, combos)
}

func mergeAbilities(base, extra []AbilityDefinition) []AbilityDefinition {
	index := make(map[AbilityKey]int, len(base))
	for i, def := range base {
		index[def.Key] = i
	}
	for _, def := range extra {
		if i, exists := index[def.Key]; exists {
			base[i] = def
			continue
		}
		index[def.Key] = len(base)
		base = append(base, def)
	}
	return base
}

func mergeWeapons(base, extra []WeaponDefinition) []WeaponDefinition {
	index := make(map[WeaponKey]int, len(base))
	for i, def := range base {
		index[def.Key] = i
	}
	for _, def := range extra {
		if i, exists := index[def.Key]; exists {
			base[i] = def
			continue
		}
		index[def.Key] = len(base)
		base = append(base, def)
	}
	return base
}

func mergeCombos(base, extra []ComboDefinition) []ComboDefinition {
	index := make(map[string]int, len(base))
	for i, def := range base {
		index[def.ID] = i
	}
	for _, def := range extra {
		if i, exists := index[def.ID]; exists {
			base[i] = def
			continue
		}
		index[def.ID] = len(base)
		base = append(base, def)
	}
	return base
}
