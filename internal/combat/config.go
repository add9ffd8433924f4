package combat

import "time"

// Config tunes the resolution pipeline.
type Config struct {
	// BlockChance is the fixed probability a target blocks part of a hit.
	BlockChance float64
	// BlockFraction is the damage share removed by a successful block.
	BlockFraction float64
	// ContainerTTL bounds how long a pending container may wait for
	// application before the expiry sweep drops it.
	ContainerTTL time.Duration
	// MinimumDamage floors every committed hit.
	MinimumDamage int
	// ExperiencePerDamage converts committed damage into experience.
	ExperiencePerDamage float64
	// KillExperienceBonus is granted per target whose health reaches zero.
	KillExperienceBonus int
}

func DefaultConfig() Config {
	return Config{
		BlockChance:         0.10,
		BlockFraction:       0.50,
		ContainerTTL:        5 * time.Second,
		MinimumDamage:       1,
		ExperiencePerDamage: 0.1,
		KillExperienceBonus: 25,
	}
}

// normalized returns a config with defaults applied to zero or out-of-range
// fields.
func (c Config) normalized() Config {
	def := DefaultConfig()
	normalized := c
	if normalized.BlockChance < 0 || normalized.BlockChance > 1 {
		normalized.BlockChance = def.BlockChance
	}
	if normalized.BlockFraction < 0 || normalized.BlockFraction > 1 {
		normalized.BlockFraction = def.BlockFraction
	}
	if normalized.ContainerTTL <= 0 {
		normalized.ContainerTTL = def.ContainerTTL
	}
	if normalized.MinimumDamage < 1 {
		normalized.MinimumDamage = def.MinimumDamage
	}
	if normalized.ExperiencePerDamage <= 0 {
		normalized.ExperiencePerDamage = def.ExperiencePerDamage
	}
	if normalized.KillExperienceBonus < 0 {
		normalized.KillExperienceBonus = def.KillExperienceBonus
	}
	return normalized
}
