package server

import (
	"math"
	"time"
)

// Claim rejection reasons, used only for logging and telemetry. The claimant
// is never told; a dropped claim is indistinguishable from "nothing happened".
const (
	claimRejectUnknownProjectile = "unknown_projectile"
	claimRejectConsumed          = "already_consumed"
	claimRejectSelfTarget        = "self_target"
	claimRejectUnknownTarget     = "unknown_target"
	claimRejectExpired           = "expired"
	claimRejectFutureClaim       = "future_claim"
	claimRejectHeightBand        = "height_band"
	claimRejectMiss              = "miss"
	claimRejectPoseDrift         = "pose_drift"
)

// claimClockSkew is how far ahead of the authority's clock a claim timestamp
// may run before it is treated as implausible.
const claimClockSkew = 500 * time.Millisecond

// validateClaim runs the source ship's authority checks over a hit claim.
// On acceptance the projectile record is marked consumed (the single point
// that makes damage at-most-once per projectile id) and the resulting
// DamageEvent is returned. On rejection the reason is returned and no state
// anywhere changes.
//
// Order of checks matters: idempotency (known id, not yet consumed) comes
// before plausibility, so a duplicate of an accepted claim is always a cheap
// silent no-op regardless of its contents.
func (s *shipState) validateClaim(claim HitClaim, now time.Time) (DamageEvent, string, bool) {
	rec, ok := s.projectiles[claim.ProjectileID]
	if !ok {
		return DamageEvent{}, claimRejectUnknownProjectile, false
	}
	if rec.consumed {
		return DamageEvent{}, claimRejectConsumed, false
	}
	if claim.TargetShip == s.id {
		return DamageEvent{}, claimRejectSelfTarget, false
	}

	target, known := s.known[claim.TargetShip]
	if !known {
		return DamageEvent{}, claimRejectUnknownTarget, false
	}

	claimTime := claim.ClaimTime()
	if claimTime.After(now.Add(claimClockSkew)) {
		return DamageEvent{}, claimRejectFutureClaim, false
	}
	elapsed := claimTime.Sub(rec.params.SpawnTime())
	if elapsed <= 0 || elapsed > s.cfg.projectileLifetime() {
		return DamageEvent{}, claimRejectExpired, false
	}

	// Replay the deterministic trajectory to the claimed instant. The claim
	// is plausible only if the ball was at deck height and inside the claimed
	// hull rectangle, evaluated with the same generous padding observers use.
	x, y, z := ProjectilePointAt(rec.params, s.cfg.Gravity, elapsed.Seconds())
	if !WithinDeckHeightBand(z, s.cfg.DeckHeight, s.cfg.DeckHeightBand) {
		return DamageEvent{}, claimRejectHeightBand, false
	}
	if !PointInRotatedRect(x, y, claim.TargetX, claim.TargetY,
		claim.TargetHalfLength, claim.TargetHalfWidth, claim.TargetRotation, s.cfg.HitboxPadding) {
		return DamageEvent{}, claimRejectMiss, false
	}

	// The claimed pose must agree with the authority's own view of the target
	// within tolerance, so a fabricated pose cannot drag the hitbox onto the
	// trajectory.
	if math.Hypot(claim.TargetX-target.X, claim.TargetY-target.Y) > s.cfg.ClaimPoseTolerance {
		return DamageEvent{}, claimRejectPoseDrift, false
	}

	rec.consumed = true

	// Damage is derived from the server-held shot configuration; the claimed
	// amount is never trusted.
	damage := s.cfg.ShotDamage
	newHealth := math.Max(0, target.Health-damage)

	// Fold the decrement back into the known pose immediately. The hub only
	// refreshes known poses on the next tick, so without this a second
	// accepted claim in the same window would restate the same NewHealth and
	// the target's monotonic apply would drop one hit.
	target.Health = newHealth
	if newHealth <= 0 {
		target.Sinking = true
	}
	s.known[claim.TargetShip] = target

	return DamageEvent{
		TargetShip: claim.TargetShip,
		SourceShip: s.id,
		Projectile: claim.ProjectileID,
		Damage:     damage,
		NewHealth:  newHealth,
		Sinking:    newHealth <= 0,
		Timestamp:  now.UnixMilli(),
	}, "", true
}
