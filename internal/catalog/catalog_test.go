package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultCatalogIsValid(t *testing.T) {
	c := Default()

	if len(c.AbilityKeys()) == 0 {
		t.Fatalf("expected default abilities")
	}
	if len(c.WeaponKeys()) == 0 {
		t.Fatalf("expected default weapons")
	}
	for _, combo := range c.Combos() {
		if len(combo.Sequence) < 2 {
			t.Fatalf("combo %s has a degenerate sequence", combo.ID)
		}
		for _, step := range combo.Sequence {
			if _, ok := c.Ability(step); !ok {
				t.Fatalf("combo %s references unknown ability %s", combo.ID, step)
			}
		}
	}
}

func TestNewRejectsDuplicates(t *testing.T) {
	abilities := []AbilityDefinition{
		{Key: "jab", BaseDamage: 5, DamageType: DamagePhysical},
		{Key: "jab", BaseDamage: 6, DamageType: DamagePhysical},
	}
	if _, err := New(abilities, nil, nil); err == nil {
		t.Fatalf("expected duplicate ability to fail validation")
	}
}

func TestNewRejectsUnknownComboStep(t *testing.T) {
	abilities := []AbilityDefinition{{Key: "jab", BaseDamage: 5, DamageType: DamagePhysical}}
	combos := []ComboDefinition{{ID: "mystery", Sequence: []AbilityKey{"jab", "uppercut"}, WindowMs: 1000, Bonus: 1.5}}
	if _, err := New(abilities, nil, combos); err == nil {
		t.Fatalf("expected unknown combo step to fail validation")
	}
}

func TestComboWindow(t *testing.T) {
	combo := ComboDefinition{WindowMs: 3000}
	if got := combo.Window(); got != 3*time.Second {
		t.Fatalf("expected 3s window, got %v", got)
	}
}

func TestMergeOverridesByKey(t *testing.T) {
	file := FileDefinitions{
		Abilities: []AbilityDefinition{
			{Key: AbilitySlash, Name: "Heavy Slash", BaseDamage: 20, DamageType: DamagePhysical, CanCrit: true},
			{Key: "uppercut", Name: "Uppercut", BaseDamage: 14, DamageType: DamagePhysical},
		},
	}
	merged, err := Merge(file)
	if err != nil {
		t.Fatalf("unexpected merge error: %v", err)
	}

	slash, ok := merged.Ability(AbilitySlash)
	if !ok || slash.BaseDamage != 20 {
		t.Fatalf("expected slash overridden to 20, got %+v", slash)
	}
	if _, ok := merged.Ability("uppercut"); !ok {
		t.Fatalf("expected uppercut added")
	}
	// Untouched defaults survive the merge.
	if _, ok := merged.Ability(AbilityFirebolt); !ok {
		t.Fatalf("expected firebolt to remain")
	}
}

func TestLoadFile(t *testing.T) {
	file := FileDefinitions{
		Weapons: []WeaponDefinition{
			{Key: "war_pick", Name: "War Pick", BaseDamage: 13, DamageType: DamagePhysical, CanCrit: true, StaminaCost: 6},
		},
	}
	data, err := json.Marshal(file)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	path := filepath.Join(t.TempDir(), "definitions.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if _, ok := loaded.Weapon("war_pick"); !ok {
		t.Fatalf("expected war_pick in loaded catalog")
	}
}

func TestLoadFileMissingPath(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
