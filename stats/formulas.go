package stats

func computeDerived(total ValueSet) DerivedSet {
	var derived DerivedSet

	might := clamp(total[StatMight], 0, 1e9)
	resonance := clamp(total[StatResonance], 0, 1e9)
	grit := clamp(total[StatGrit], 0, 1e9)
	precision := clamp(total[StatPrecision], 0, 1e9)

	derived[DerivedMaxHealth] = baseHealthFlat + might*mightHealthScalar
	derived[DerivedMaxMana] = baseManaFlat + resonance*resonanceManaScalar
	derived[DerivedMaxStamina] = baseStaminaFlat + grit*gritStaminaScalar
	derived[DerivedAttackPower] = might*mightPowerScalar + precision*precisionPowerScalar
	derived[DerivedDefense] = grit * gritDefenseScalar
	derived[DerivedCritChance] = clamp(baseCritChance+precision*precisionCritScalar, 0, 0.5)
	derived[DerivedCritMultiplier] = clamp(baseCritMultiplier+precision*precisionCritMultScalar, 1, 3)

	return derived
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Formula tuning values. Kept deliberately flat so early balancing stays
// predictable.
const (
	baseHealthFlat          = 60.0
	mightHealthScalar       = 2.0
	baseManaFlat            = 40.0
	resonanceManaScalar     = 4.0
	baseStaminaFlat         = 50.0
	gritStaminaScalar       = 5.0
	mightPowerScalar        = 1.5
	precisionPowerScalar    = 0.5
	gritDefenseScalar       = 2.0
	baseCritChance          = 0.05
	precisionCritScalar     = 0.005
	baseCritMultiplier      = 1.5
	precisionCritMultScalar = 0.01
)
