package catalog

import (
	"fmt"
	"sort"
	"time"
)

// AbilityKey identifies an ability definition.
type AbilityKey string

// WeaponKey identifies a weapon definition.
type WeaponKey string

// DamageType tags the mitigation channel a hit resolves against.
type DamageType string

const (
	DamagePhysical DamageType = "physical"
	DamageMagical  DamageType = "magical"
)

// ResourceCost is the pool spend required to use an ability or weapon.
type ResourceCost struct {
	Kind   string  `json:"kind" jsonschema:"title=Resource kind,description=Ledger pool the cost is drawn from,enum=health,enum=mana,enum=stamina"`
	Amount float64 `json:"amount" jsonschema:"title=Cost amount,minimum=0"`
}

// AbilityDefinition is the designer-authored contract for one ability.
type AbilityDefinition struct {
	Key        AbilityKey   `json:"key" jsonschema:"title=Ability key,pattern=^[a-z0-9_]+$,minLength=1"`
	Name       string       `json:"name" jsonschema:"title=Display name"`
	BaseDamage float64      `json:"baseDamage" jsonschema:"title=Base damage,minimum=0"`
	Healing    float64      `json:"healing,omitempty" jsonschema:"title=Healing amount,minimum=0"`
	DamageType DamageType   `json:"damageType" jsonschema:"title=Damage type,enum=physical,enum=magical"`
	CanCrit    bool         `json:"canCrit" jsonschema:"title=Critical eligible"`
	Cost       ResourceCost `json:"cost" jsonschema:"title=Resource cost"`
}

// WeaponDefinition is the designer-authored contract for one weapon.
type WeaponDefinition struct {
	Key         WeaponKey  `json:"key" jsonschema:"title=Weapon key,pattern=^[a-z0-9_]+$,minLength=1"`
	Name        string     `json:"name" jsonschema:"title=Display name"`
	BaseDamage  float64    `json:"baseDamage" jsonschema:"title=Base damage,minimum=0"`
	DamageType  DamageType `json:"damageType" jsonschema:"title=Damage type,enum=physical,enum=magical"`
	CanCrit     bool       `json:"canCrit" jsonschema:"title=Critical eligible"`
	StaminaCost float64    `json:"staminaCost" jsonschema:"title=Stamina cost per swing,minimum=0"`
}

// ComboDefinition names an ability sequence and its completion bonus.
type ComboDefinition struct {
	ID       string       `json:"id" jsonschema:"title=Combo id,pattern=^[a-z0-9_]+$,minLength=1"`
	Sequence []AbilityKey `json:"sequence" jsonschema:"title=Ability sequence,minItems=2"`
	WindowMs int64        `json:"windowMs" jsonschema:"title=Step window in milliseconds,minimum=1"`
	Bonus    float64      `json:"bonus" jsonschema:"title=Completion multiplier,minimum=1"`
}

// Window returns the combo step window as a duration.
func (c ComboDefinition) Window() time.Duration {
	return time.Duration(c.WindowMs) * time.Millisecond
}

// Catalog resolves static ability, weapon, and combo definitions. It is
// immutable after construction; gameplay code reads, never writes.
type Catalog struct {
	abilities map[AbilityKey]AbilityDefinition
	weapons   map[WeaponKey]WeaponDefinition
	combos    []ComboDefinition
}

// New builds a catalog from explicit definitions, validating uniqueness.
func New(abilities []AbilityDefinition, weapons []WeaponDefinition, combos []ComboDefinition) (*Catalog, error) {
	c := &Catalog{
		abilities: make(map[AbilityKey]AbilityDefinition, len(abilities)),
		weapons:   make(map[WeaponKey]WeaponDefinition, len(weapons)),
	}
	for _, def := range abilities {
		if def.Key == "" {
			return nil, fmt.Errorf("catalog: ability with empty key")
		}
		if _, exists := c.abilities[def.Key]; exists {
			return nil, fmt.Errorf("catalog: duplicate ability %q", def.Key)
		}
		if def.BaseDamage < 0 {
			return nil, fmt.Errorf("catalog: ability %q has negative base damage", def.Key)
		}
		c.abilities[def.Key] = def
	}
	for _, def := range weapons {
		if def.Key == "" {
			return nil, fmt.Errorf("catalog: weapon with empty key")
		}
		if _, exists := c.weapons[def.Key]; exists {
			return nil, fmt.Errorf("catalog: duplicate weapon %q", def.Key)
		}
		if def.BaseDamage < 0 {
			return nil, fmt.Errorf("catalog: weapon %q has negative base damage", def.Key)
		}
		c.weapons[def.Key] = def
	}
	seen := make(map[string]struct{}, len(combos))
	for _, def := range combos {
		if def.ID == "" {
			return nil, fmt.Errorf("catalog: combo with empty id")
		}
		if _, exists := seen[def.ID]; exists {
			return nil, fmt.Errorf("catalog: duplicate combo %q", def.ID)
		}
		if len(def.Sequence) == 0 {
			return nil, fmt.Errorf("catalog: combo %q has empty sequence", def.ID)
		}
		for _, step := range def.Sequence {
			if _, exists := c.abilities[step]; !exists {
				return nil, fmt.Errorf("catalog: combo %q references unknown ability %q", def.ID, step)
			}
		}
		seen[def.ID] = struct{}{}
		c.combos = append(c.combos, def)
	}
	sort.Slice(c.combos, func(i, j int) bool { return c.combos[i].ID < c.combos[j].ID })
	return c, nil
}

// Ability resolves an ability definition.
func (c *Catalog) Ability(key AbilityKey) (AbilityDefinition, bool) {
	if c == nil {
		return AbilityDefinition{}, false
	}
	def, ok := c.abilities[key]
	return def, ok
}

// Weapon resolves a weapon definition.
func (c *Catalog) Weapon(key WeaponKey) (WeaponDefinition, bool) {
	if c == nil {
		return WeaponDefinition{}, false
	}
	def, ok := c.weapons[key]
	return def, ok
}

// Combos returns every combo definition in a stable order.
func (c *Catalog) Combos() []ComboDefinition {
	if c == nil {
		return nil
	}
	out := make([]ComboDefinition, len(c.combos))
	copy(out, c.combos)
	return out
}

// AbilityKeys lists the known abilities in a stable order.
func (c *Catalog) AbilityKeys() []AbilityKey {
	if c == nil {
		return nil
	}
	keys := make([]AbilityKey, 0, len(c.abilities))
	for key := range c.abilities {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// WeaponKeys lists the known weapons in a stable order.
func (c *Catalog) WeaponKeys() []WeaponKey {
	if c == nil {
		return nil
	}
	keys := make([]WeaponKey, 0, len(c.weapons))
	for key := range c.weapons {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
