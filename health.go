package server

import "time"

// DamageEvent is the authoritative broadcast produced when a source ship
// accepts a hit claim. Every observer, including the target ship's own
// authority, applies it as ground truth over any local prediction.
type DamageEvent struct {
	TargetShip string  `json:"targetShip"`
	SourceShip string  `json:"sourceShip"`
	Projectile string  `json:"projectile"`
	Damage     float64 `json:"damage"`
	NewHealth  float64 `json:"newHealth"`
	Sinking    bool    `json:"sinking"`
	Timestamp  int64   `json:"timestamp"` // unix milliseconds
}

// applyDamageEvent folds an authoritative damage event into the target ship's
// state and reports whether the ship started sinking on this event.
//
// The Afloat→Sinking transition fires exactly once per life: events arriving
// after health already reached zero are accepted for bookkeeping but never
// restart the sink timer or drive health negative.
func (s *shipState) applyDamageEvent(evt DamageEvent, now time.Time) bool {
	health := clampFloat(evt.NewHealth, 0, s.maxHealth)

	if s.phase != phaseAfloat {
		if health < s.health {
			s.health = health
		}
		return false
	}

	if health < s.health {
		s.health = health
	}
	if s.health > 0 {
		return false
	}

	s.beginSinking(now)
	return true
}

// beginSinking moves the ship into the sinking phase. The ship is immobile,
// accepts no new control grabs, and every sail is effectively struck.
func (s *shipState) beginSinking(now time.Time) {
	s.phase = phaseSinking
	s.sankAt = now
	s.health = 0
	s.wheelTurn = TurnNone
	s.sailLevel = 0
	s.velX, s.velY = 0, 0
}

// stepLifecycle advances the sink/respawn timers. Sinking→Respawning is a
// pure timer transition and cannot be interrupted by any message; the return
// value reports whether the ship respawned this tick.
func (s *shipState) stepLifecycle(now time.Time) bool {
	switch s.phase {
	case phaseSinking:
		if now.Sub(s.sankAt) >= s.cfg.sinkDuration() {
			s.phase = phaseRespawning
		}
	case phaseRespawning:
		if now.Sub(s.sankAt) >= s.cfg.sinkDuration()+s.cfg.respawnDelay() {
			s.respawn()
			return true
		}
	}
	return false
}

// respawn resets the vessel to its spawn point at full health. All held
// control points are forcibly released and cannon state returns to its
// mounted defaults.
func (s *shipState) respawn() {
	s.phase = phaseAfloat
	s.health = s.maxHealth
	s.x = s.spawn.X
	s.y = s.spawn.Y
	s.rotation = s.spawn.Rotation
	s.velX, s.velY = 0, 0
	s.wheelAngle = 0
	s.wheelTurn = TurnNone
	s.sailLevel = 0
	s.sankAt = time.Time{}
	s.forceReleaseAll()
	s.cannons = make(map[string]*cannonState)
	s.mountCannons()
	s.projectiles = make(map[string]*projectileRecord)
}
