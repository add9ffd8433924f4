package combat

// Hit-chance bounds for the pre-flight roll.
const (
	baseHitChance = 0.8
	minHitChance  = 0.1
	maxHitChance  = 0.95
)

// HitChance computes the pre-flight probability that an attack connects at
// all. Callers roll against it before constructing a container; a failed roll
// is a miss and no container is created.
func HitChance(attackerPower, targetDefense float64) float64 {
	chance := baseHitChance + attackerPower/1000 - targetDefense/2000
	if chance < minHitChance {
		return minHitChance
	}
	if chance > maxHitChance {
		return maxHitChance
	}
	return chance
}

// Mitigation converts defense into a fractional damage reduction.
func Mitigation(defense float64) float64 {
	if defense <= 0 {
		return 0
	}
	return defense / (defense + 100)
}
