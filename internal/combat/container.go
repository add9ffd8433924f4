package combat

import (
	"time"

	"ironveil/server/internal/catalog"
)

// Status tracks a container through its single allowed transition:
// Pending → Applied or Pending → Expired, never both.
type Status uint8

const (
	StatusPending Status = iota
	StatusApplied
	StatusExpired
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusApplied:
		return "applied"
	case StatusExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// ComboContext carries the combo multiplier captured when the container was
// built. The tracker state may move on before the container resolves.
type ComboContext struct {
	Multiplier float64
}

// EnvironmentalModifier scales damage for terrain or weather effects.
type EnvironmentalModifier struct {
	Multiplier  float64
	Description string
}

// TargetOutcome is the resolved result for one target of an applied container.
type TargetOutcome struct {
	Damage        int
	Critical      bool
	Blocked       bool
	BlockFraction float64
	Killed        bool
	// Skipped marks a target that vanished before application; no damage was
	// committed for it.
	Skipped bool
}

// Container is one pending-or-resolved combat effect.
type Container struct {
	ID               string
	CreatedAt        time.Time
	SessionID        string
	Source           string
	AbilityKey       string
	PrimaryTarget    string
	SecondaryTargets []string
	BaseDamage       float64
	DamageType       catalog.DamageType
	CanCrit          bool
	Multipliers      []float64
	Combo            *ComboContext
	Environment      []EnvironmentalModifier
	Status           Status
	Results          map[string]TargetOutcome
}

// Targets returns the primary target followed by the secondaries. Resolution
// order is fixed: primary first.
func (c *Container) Targets() []string {
	out := make([]string, 0, 1+len(c.SecondaryTargets))
	out = append(out, c.PrimaryTarget)
	out = append(out, c.SecondaryTargets...)
	return out
}

// Involves reports whether the entity is the source or one of the targets.
func (c *Container) Involves(entityID string) bool {
	if c.Source == entityID || c.PrimaryTarget == entityID {
		return true
	}
	for _, t := range c.SecondaryTargets {
		if t == entityID {
			return true
		}
	}
	return false
}

func (c *Container) clone() Container {
	cloned := *c
	if len(c.SecondaryTargets) > 0 {
		cloned.SecondaryTargets = append([]string(nil), c.SecondaryTargets...)
	}
	if len(c.Multipliers) > 0 {
		cloned.Multipliers = append([]float64(nil), c.Multipliers...)
	}
	if len(c.Environment) > 0 {
		cloned.Environment = append([]EnvironmentalModifier(nil), c.Environment...)
	}
	if c.Combo != nil {
		combo := *c.Combo
		cloned.Combo = &combo
	}
	if c.Results != nil {
		results := make(map[string]TargetOutcome, len(c.Results))
		for k, v := range c.Results {
			results[k] = v
		}
		cloned.Results = results
	}
	return cloned
}
