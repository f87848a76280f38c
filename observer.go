package server

import (
	"sort"
	"time"
)

// ProjectileView is a rendered projectile position for one frame.
type ProjectileView struct {
	ID string
	X  float64
	Y  float64
	Z  float64
}

type observedProjectile struct {
	params ProjectileParams
}

type observedShip struct {
	pose ShipPose
}

// ObserverView is the client-side prediction core. Every observer keeps one:
// it ingests authoritative snapshots and events, advances projectiles locally
// from their spawn parameters and the local clock, dead-reckons ship poses
// between snapshots, and detects candidate hits.
//
// Hit detection is fire-and-forget: the projectile disappears from the local
// view immediately and a HitClaim is handed back for sending to the source
// ship. If the authority disagrees, the only consequence is that no damage
// broadcast ever arrives.
type ObserverView struct {
	physics     PhysicsConfig
	ships       map[string]*observedShip
	projectiles map[string]*observedProjectile
	seen        map[string]struct{}
	lastAdvance time.Time
}

// NewObserverView creates an empty view simulating with the given constants.
// The constants arrive in the join response, so every observer and the
// authority integrate identical physics.
func NewObserverView(physics PhysicsConfig) *ObserverView {
	return &ObserverView{
		physics:     physics.normalized(),
		ships:       make(map[string]*observedShip),
		projectiles: make(map[string]*observedProjectile),
		seen:        make(map[string]struct{}),
	}
}

// ApplySnapshot replaces the observer's ship poses with authoritative ones.
// Applied non-destructively at the start of a frame: projectiles in flight
// are untouched because their trajectories derive from spawn parameters, not
// from snapshots.
func (v *ObserverView) ApplySnapshot(ships []Ship, at time.Time) {
	for _, ship := range ships {
		v.ships[ship.ID] = &observedShip{pose: ship.ShipPose}
	}
	if v.lastAdvance.Before(at) {
		v.lastAdvance = at
	}
}

// ApplyProjectileSpawn registers a projectile. Redelivering a previously seen
// id is a no-op, including ids that already finished flight locally.
func (v *ObserverView) ApplyProjectileSpawn(params ProjectileParams) bool {
	if _, dup := v.seen[params.ID]; dup {
		return false
	}
	v.seen[params.ID] = struct{}{}
	v.projectiles[params.ID] = &observedProjectile{params: params}
	return true
}

// ApplyDamage folds an authoritative damage event into the local view,
// superseding whatever the observer predicted.
func (v *ObserverView) ApplyDamage(evt DamageEvent) {
	ship, ok := v.ships[evt.TargetShip]
	if !ok {
		return
	}
	ship.pose.Health = clampFloat(evt.NewHealth, 0, ship.pose.MaxHealth)
	ship.pose.Sinking = evt.Sinking
}

// Advance moves the view to now: dead-reckons ships, flies projectiles, and
// returns hit claims for any candidate hull hits detected this frame.
//
// Candidate detection uses the generous padded hitbox and the deck-height
// band, and never tests a projectile against its own source ship. Surface
// impacts are suppressed inside the minimum-flight grace period; the lifetime
// cutoff despawns unconditionally.
func (v *ObserverView) Advance(now time.Time) []HitClaim {
	dt := 0.0
	if !v.lastAdvance.IsZero() {
		dt = now.Sub(v.lastAdvance).Seconds()
	}
	if dt < 0 {
		dt = 0
	}
	v.lastAdvance = now

	for _, ship := range v.ships {
		if ship.pose.Sinking {
			continue
		}
		ship.pose.X += ship.pose.VelX * dt
		ship.pose.Y += ship.pose.VelY * dt
	}

	shipIDs := make([]string, 0, len(v.ships))
	for id := range v.ships {
		shipIDs = append(shipIDs, id)
	}
	sort.Strings(shipIDs)

	projectileIDs := make([]string, 0, len(v.projectiles))
	for id := range v.projectiles {
		projectileIDs = append(projectileIDs, id)
	}
	sort.Strings(projectileIDs)

	var claims []HitClaim
	for _, id := range projectileIDs {
		proj := v.projectiles[id]
		elapsed := now.Sub(proj.params.SpawnTime())
		if elapsed < 0 {
			continue
		}
		if elapsed >= v.physics.projectileLifetime() {
			delete(v.projectiles, id)
			continue
		}

		seconds := elapsed.Seconds()
		x, y, z := ProjectilePointAt(proj.params, v.physics.Gravity, seconds)

		if z <= 0 && elapsed >= v.physics.minFlight() {
			delete(v.projectiles, id)
			continue
		}

		if !WithinDeckHeightBand(z, v.physics.DeckHeight, v.physics.DeckHeightBand) {
			continue
		}

		for _, shipID := range shipIDs {
			if shipID == proj.params.SourceShip {
				continue
			}
			pose := v.ships[shipID].pose
			if !PointInRotatedRect(x, y, pose.X, pose.Y, pose.HalfLength, pose.HalfWidth, pose.Rotation, v.physics.HitboxPadding) {
				continue
			}
			claims = append(claims, HitClaim{
				ProjectileID:     id,
				TargetShip:       shipID,
				TargetX:          pose.X,
				TargetY:          pose.Y,
				TargetRotation:   pose.Rotation,
				TargetHalfLength: pose.HalfLength,
				TargetHalfWidth:  pose.HalfWidth,
				ClaimedDamage:    v.physics.ShotDamage,
				Timestamp:        now.UnixMilli(),
			})
			delete(v.projectiles, id)
			break
		}
	}
	return claims
}

// Projectiles returns render positions for every projectile still in flight.
func (v *ObserverView) Projectiles(now time.Time) []ProjectileView {
	views := make([]ProjectileView, 0, len(v.projectiles))
	for id, proj := range v.projectiles {
		elapsed := now.Sub(proj.params.SpawnTime()).Seconds()
		if elapsed < 0 {
			elapsed = 0
		}
		x, y, z := ProjectilePointAt(proj.params, v.physics.Gravity, elapsed)
		views = append(views, ProjectileView{ID: id, X: x, Y: y, Z: z})
	}
	sort.Slice(views, func(i, j int) bool { return views[i].ID < views[j].ID })
	return views
}

// ShipPoses returns the current dead-reckoned poses in stable order.
func (v *ObserverView) ShipPoses() []ShipPose {
	poses := make([]ShipPose, 0, len(v.ships))
	for _, ship := range v.ships {
		poses = append(poses, ship.pose)
	}
	sort.Slice(poses, func(i, j int) bool { return poses[i].ID < poses[j].ID })
	return poses
}
