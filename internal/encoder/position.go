package encoder

// Position thresholds used by the firmware to band the rotary encoder.
const (
	GreenZoneMin  = -5
	GreenZoneMax  = 5
	YellowZoneMin = -10
	YellowZoneMax = 10
)

// ZoneForPosition classifies an encoder position the way the strap does
// before notifying.
func ZoneForPosition(pos int) Zone {
	switch {
	case pos >= GreenZoneMin && pos <= GreenZoneMax:
		return ZoneTight
	case pos >= YellowZoneMin && pos <= YellowZoneMax:
		return ZoneMaybeLoose
	default:
		return ZoneLoose
	}
}

// ZoneTracker is edge-triggered: it reports a zone only when it differs
// from the previous one. The first observation always reports.
type ZoneTracker struct {
	prev  Zone
	valid bool
}

// Observe classifies pos and returns the zone with changed=true if it
// differs from the last observed zone.
func (t *ZoneTracker) Observe(pos int) (zone Zone, changed bool) {
	zone = ZoneForPosition(pos)
	if t.valid && zone == t.prev {
		return zone, false
	}
	t.prev = zone
	t.valid = true
	return zone, true
}

// Reset forgets the previous zone so the next observation reports again.
func (t *ZoneTracker) Reset() {
	t.valid = false
}
