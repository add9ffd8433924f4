package stats

// Archetype identifies the default stat seed used to initialise a component.
type Archetype uint8

const (
	ArchetypePlayer Archetype = iota
	ArchetypeMarauder
	ArchetypeWhelp
)

var archetypeBase = map[Archetype]ValueSet{
	ArchetypePlayer: {
		StatMight:     20,
		StatResonance: 15,
		StatGrit:      10,
		StatPrecision: 10,
	},
	ArchetypeMarauder: {
		StatMight:     14,
		StatResonance: 4,
		StatGrit:      12,
		StatPrecision: 6,
	},
	ArchetypeWhelp: {
		StatMight:     5,
		StatResonance: 2,
		StatGrit:      3,
		StatPrecision: 4,
	},
}

// DefaultBase returns a copy of the base values for the given archetype.
func DefaultBase(archetype Archetype) ValueSet {
	return archetypeBase[archetype]
}

// DefaultComponent constructs and resolves a component using the archetype defaults.
func DefaultComponent(archetype Archetype) Component {
	comp := NewComponent(DefaultBase(archetype))
	comp.Resolve(0)
	return comp
}

// DefaultDerived returns the resolved derived stats for the given archetype.
func DefaultDerived(archetype Archetype) DerivedSet {
	comp := DefaultComponent(archetype)
	return comp.DerivedValues()
}
