package catalog

const (
	AbilitySlash      AbilityKey = "slash"
	AbilityThrust     AbilityKey = "thrust"
	AbilityRiposte    AbilityKey = "riposte"
	AbilityFirebolt   AbilityKey = "firebolt"
	AbilityEmberBurst AbilityKey = "ember_burst"
	AbilityMend       AbilityKey = "mend"

	WeaponFists      WeaponKey = "fists"
	WeaponIronSword  WeaponKey = "iron_sword"
	WeaponOakenStaff WeaponKey = "oaken_staff"
)

// Default returns the compiled-in catalog used when no definitions file is
// supplied. Must succeed; the defaults are validated by tests.
func Default() *Catalog {
	c, err := New(defaultAbilities(), defaultWeapons(), defaultCombos())
	if err != nil {
		panic(err)
	}
	return c
}

func defaultAbilities() []AbilityDefinition {
	return []AbilityDefinition{
		{
			Key:        AbilitySlash,
			Name:       "Slash",
			BaseDamage: 12,
			DamageType: DamagePhysical,
			CanCrit:    true,
			Cost:       ResourceCost{Kind: "stamina", Amount: 8},
		},
		{
			Key:        AbilityThrust,
			Name:       "Thrust",
			BaseDamage: 16,
			DamageType: DamagePhysical,
			CanCrit:    true,
			Cost:       ResourceCost{Kind: "stamina", Amount: 12},
		},
		{
			Key:        AbilityRiposte,
			Name:       "Riposte",
			BaseDamage: 24,
			DamageType: DamagePhysical,
			CanCrit:    true,
			Cost:       ResourceCost{Kind: "stamina", Amount: 15},
		},
		{
			Key:        AbilityFirebolt,
			Name:       "Firebolt",
			BaseDamage: 18,
			DamageType: DamageMagical,
			CanCrit:    true,
			Cost:       ResourceCost{Kind: "mana", Amount: 10},
		},
		{
			Key:        AbilityEmberBurst,
			Name:       "Ember Burst",
			BaseDamage: 30,
			DamageType: DamageMagical,
			CanCrit:    false,
			Cost:       ResourceCost{Kind: "mana", Amount: 25},
		},
		{
			Key:        AbilityMend,
			Name:       "Mend",
			BaseDamage: 0,
			Healing:    20,
			DamageType: DamageMagical,
			CanCrit:    false,
			Cost:       ResourceCost{Kind: "mana", Amount: 15},
		},
	}
}

func defaultWeapons() []WeaponDefinition {
	return []WeaponDefinition{
		{
			Key:        WeaponFists,
			Name:       "Fists",
			BaseDamage: 4,
			DamageType: DamagePhysical,
			CanCrit:    false,
		},
		{
			Key:         WeaponIronSword,
			Name:        "Iron Sword",
			BaseDamage:  10,
			DamageType:  DamagePhysical,
			CanCrit:     true,
			StaminaCost: 5,
		},
		{
			Key:         WeaponOakenStaff,
			Name:        "Oaken Staff",
			BaseDamage:  7,
			DamageType:  DamageMagical,
			CanCrit:     true,
			StaminaCost: 3,
		},
	}
}

func defaultCombos() []ComboDefinition {
	return []ComboDefinition{
		{
			ID:       "fencer_flow",
			Sequence: []AbilityKey{AbilitySlash, AbilityThrust, AbilityRiposte},
			WindowMs: 3000,
			Bonus:    2.0,
		},
		{
			ID:       "kindling_rush",
			Sequence: []AbilityKey{AbilityFirebolt, AbilityEmberBurst},
			WindowMs: 4000,
			Bonus:    1.5,
		},
	}
}
