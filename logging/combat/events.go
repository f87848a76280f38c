package combat

import (
	"context"

	"broadside/server/logging"
)

const (
	// EventDamage is emitted when a validated hit applies damage to a ship.
	EventDamage logging.EventType = "combat.damage"
	// EventShipSunk is emitted when damage pushes a ship into sinking.
	EventShipSunk logging.EventType = "combat.ship_sunk"
	// EventClaimRejected is emitted when a hit claim is dropped. The claimant
	// is never notified; this event is the only trace of the rejection.
	EventClaimRejected logging.EventType = "combat.claim_rejected"
	// EventProjectileFired is emitted when a cannon fires.
	EventProjectileFired logging.EventType = "combat.projectile_fired"
)

type DamagePayload struct {
	Projectile string  `json:"projectile"`
	Damage     float64 `json:"damage"`
	NewHealth  float64 `json:"newHealth"`
	Sinking    bool    `json:"sinking"`
}

func Damage(ctx context.Context, pub logging.Publisher, tick uint64, source, target logging.EntityRef, payload DamagePayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventDamage,
		Tick:     tick,
		Actor:    source,
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryCombat,
		Payload:  payload,
	})
}

func ShipSunk(ctx context.Context, pub logging.Publisher, tick uint64, ship logging.EntityRef) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventShipSunk,
		Tick:     tick,
		Actor:    ship,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryCombat,
	})
}

type ClaimRejectedPayload struct {
	Projectile string `json:"projectile"`
	Target     string `json:"target"`
	Reason     string `json:"reason"`
}

func ClaimRejected(ctx context.Context, pub logging.Publisher, tick uint64, source logging.EntityRef, payload ClaimRejectedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventClaimRejected,
		Tick:     tick,
		Actor:    source,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryCombat,
		Payload:  payload,
	})
}

type ProjectileFiredPayload struct {
	Projectile string `json:"projectile"`
	Slot       string `json:"slot"`
}

func ProjectileFired(ctx context.Context, pub logging.Publisher, tick uint64, ship logging.EntityRef, payload ProjectileFiredPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventProjectileFired,
		Tick:     tick,
		Actor:    ship,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryCombat,
		Payload:  payload,
	})
}
