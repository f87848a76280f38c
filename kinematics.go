package server

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// handleWheel updates the wheel's turning direction. Only the current wheel
// owner is heard; everyone else's input is a silent no-op.
func (s *shipState) handleWheel(participant string, direction TurnDirection) bool {
	if s.phase != phaseAfloat {
		return false
	}
	if !s.isOwner(ControlPointWheel, participant) {
		return false
	}
	switch direction {
	case TurnLeft, TurnRight, TurnNone:
		s.wheelTurn = direction
		return true
	}
	return false
}

// handleSails steps the discrete sail level by delta (±1), clamped to the
// configured range. Owner-only.
func (s *shipState) handleSails(participant string, delta int) bool {
	if s.phase != phaseAfloat {
		return false
	}
	if !s.isOwner(ControlPointSails, participant) {
		return false
	}
	if delta == 0 {
		return false
	}
	next := clampInt(s.sailLevel+delta, 0, s.cfg.MaxSailLevel)
	if next == s.sailLevel {
		return false
	}
	s.sailLevel = next
	return true
}

// handleAim sets a cannon's aim angle, expressed as an offset from the slot's
// ship-perpendicular base direction and clamped to ±AimLimit. Owner-only.
func (s *shipState) handleAim(participant, slot string, angle float64) bool {
	if s.phase != phaseAfloat {
		return false
	}
	cannon, ok := s.cannons[slot]
	if !ok || !s.isOwner(slot, participant) {
		return false
	}
	cannon.aim = clampFloat(angle, -s.cfg.AimLimit, s.cfg.AimLimit)
	return true
}

// handleElevation nudges a cannon's elevation by delta radians within the
// configured band. Owner-only.
func (s *shipState) handleElevation(participant, slot string, delta float64) bool {
	if s.phase != phaseAfloat {
		return false
	}
	cannon, ok := s.cannons[slot]
	if !ok || !s.isOwner(slot, participant) {
		return false
	}
	cannon.elevation = clampFloat(cannon.elevation+delta, s.cfg.MinElevation, s.cfg.MaxElevation)
	return true
}

// fire validates ownership and cooldown, then computes the spawn descriptor
// for a new projectile. The cannon's world position rotates the mount offset
// by the ship's heading; the muzzle velocity decomposes (heading + base + aim,
// elevation, muzzle speed) into ground-plane and vertical components and adds
// the ship's own velocity so shots inherit the firing ship's momentum.
func (s *shipState) fire(participant, slot string, now time.Time) (ProjectileParams, bool) {
	if s.phase != phaseAfloat {
		return ProjectileParams{}, false
	}
	cannon, ok := s.cannons[slot]
	if !ok || !s.isOwner(slot, participant) {
		return ProjectileParams{}, false
	}
	if cannon.cooldown > 0 {
		return ProjectileParams{}, false
	}

	mountX, mountY := rotatePoint(cannon.offsetX, cannon.offsetY, s.rotation)
	worldAim := s.rotation + cannon.baseAim + cannon.aim
	groundSpeed := s.cfg.MuzzleSpeed * math.Cos(cannon.elevation)
	vertical := s.cfg.MuzzleSpeed * math.Sin(cannon.elevation)

	params := ProjectileParams{
		ID:         uuid.NewString(),
		SourceShip: s.id,
		X:          s.x + mountX,
		Y:          s.y + mountY,
		VelX:       s.velX + groundSpeed*math.Cos(worldAim),
		VelY:       s.velY + groundSpeed*math.Sin(worldAim),
		Z:          s.cfg.DeckHeight,
		VertVel:    vertical,
		SpawnedAt:  now.UnixMilli(),
	}

	cannon.cooldown = s.cfg.CannonCooldown
	s.projectiles[params.ID] = &projectileRecord{params: params}
	return params, true
}

// stepKinematics advances steering, speed, and cooldowns by dt seconds. A
// sinking or respawning ship is immobile but cooldowns still drain.
func (s *shipState) stepKinematics(dt float64) {
	for _, cannon := range s.cannons {
		if cannon.cooldown > 0 {
			cannon.cooldown = math.Max(0, cannon.cooldown-dt)
		}
	}

	if s.phase != phaseAfloat {
		s.velX, s.velY = 0, 0
		return
	}

	// Wheel angle integrates toward its lock at a fixed rate while a
	// direction is held, and stays where it was left otherwise.
	switch s.wheelTurn {
	case TurnLeft:
		s.wheelAngle = clampFloat(s.wheelAngle+s.cfg.WheelTurnRate*dt, -s.cfg.MaxWheelAngle, s.cfg.MaxWheelAngle)
	case TurnRight:
		s.wheelAngle = clampFloat(s.wheelAngle-s.cfg.WheelTurnRate*dt, -s.cfg.MaxWheelAngle, s.cfg.MaxWheelAngle)
	}

	// Rotation follows wheel deflection proportionally, so the hull lags
	// behind full wheel lock and steering feels weighted.
	if s.wheelAngle != 0 {
		s.rotation = normalizeAngle(s.rotation + (s.wheelAngle/s.cfg.MaxWheelAngle)*s.cfg.ShipTurnRate*dt)
	}

	speed := 0.0
	if s.cfg.MaxSailLevel > 0 {
		speed = float64(s.sailLevel) / float64(s.cfg.MaxSailLevel) * s.cfg.MaxSpeed
	}
	s.velX = speed * math.Cos(s.rotation)
	s.velY = speed * math.Sin(s.rotation)
	s.x += s.velX * dt
	s.y += s.velY * dt
}
