package resources

import "math"

// Regenerate advances every pool with a positive regen rate by delta seconds.
// A pool still inside its post-mutation pause window is skipped outright; the
// gate is binary, not a ramp, so no partial credit accrues for time spent
// beyond the window. Regeneration does not stamp the mutation timestamp,
// otherwise each pass would re-arm its own pause.
func (l *Ledger) Regenerate(delta float64) {
	if l == nil || delta <= 0 || math.IsNaN(delta) || math.IsInf(delta, 0) {
		return
	}
	now := l.clock.Now()
	for _, entityID := range l.entityIDs() {
		pools := l.entries[entityID]
		for _, kind := range kindsOf(pools) {
			e := pools[kind]
			if e.regenPerSecond <= 0 || e.current >= e.max {
				continue
			}
			if e.pauseDelay > 0 && !e.lastMutatedAt.IsZero() && now.Sub(e.lastMutatedAt) < e.pauseDelay {
				continue
			}
			previous := e.current
			next := clamp(previous+e.regenPerSecond*delta, 0, e.max)
			if math.Abs(next-previous) < valueEpsilon {
				continue
			}
			e.current = next
			l.announce(entityID, kind, previous, e, "regen")
		}
	}
}
