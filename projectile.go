package server

import "time"

// ProjectileParams is the full spawn descriptor for one cannonball. Every
// observer that receives these parameters can reproduce the projectile's
// entire trajectory locally; no mid-flight state is ever exchanged.
type ProjectileParams struct {
	ID         string  `json:"id"`
	SourceShip string  `json:"sourceShip"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	VelX       float64 `json:"velX"`
	VelY       float64 `json:"velY"`
	Z          float64 `json:"z"`
	VertVel    float64 `json:"vertVel"`
	SpawnedAt  int64   `json:"spawnedAt"` // unix milliseconds
}

// SpawnTime returns the spawn instant as wall-clock time.
func (p ProjectileParams) SpawnTime() time.Time {
	return time.UnixMilli(p.SpawnedAt)
}

// ProjectilePointAt computes the projectile's ground position and elevation
// after elapsed seconds of flight. Horizontal motion is drag-free and the
// vertical axis integrates constant gravity, so the position is a closed form
// of the spawn parameters: identical inputs yield identical outputs on every
// copy of the simulation.
func ProjectilePointAt(p ProjectileParams, gravity, elapsed float64) (x, y, z float64) {
	x = p.X + p.VelX*elapsed
	y = p.Y + p.VelY*elapsed
	z = p.Z + p.VertVel*elapsed - 0.5*gravity*elapsed*elapsed
	return x, y, z
}

// projectileRecord is the source ship's canonical book-keeping for one shot.
// Only the source ship ever reads or writes the consumed flag, which is what
// makes damage application at-most-once without any locking.
type projectileRecord struct {
	params   ProjectileParams
	consumed bool
}

// expired reports whether the record has outlived the unconditional lifetime
// cutoff. Expired records are pruned on the next tick regardless of whether a
// claim ever arrived.
func (r *projectileRecord) expired(now time.Time, lifetime time.Duration) bool {
	return now.Sub(r.params.SpawnTime()) >= lifetime
}
