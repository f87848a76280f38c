package lifecycle

import (
	"context"

	"broadside/server/logging"
)

const (
	// EventJoin is emitted when a participant joins the session.
	EventJoin logging.EventType = "lifecycle.join"
	// EventDisconnect is emitted when a participant leaves or times out.
	EventDisconnect logging.EventType = "lifecycle.disconnect"
	// EventControlGranted is emitted when a control point grab succeeds.
	EventControlGranted logging.EventType = "lifecycle.control_granted"
	// EventControlDenied is emitted when a grab lands on an owned point.
	EventControlDenied logging.EventType = "lifecycle.control_denied"
	// EventControlReleased is emitted when a control point is released,
	// voluntarily or by force.
	EventControlReleased logging.EventType = "lifecycle.control_released"
	// EventShipRespawn is emitted when a sunk ship returns to its spawn.
	EventShipRespawn logging.EventType = "lifecycle.ship_respawn"
)

func Join(ctx context.Context, pub logging.Publisher, tick uint64, participant logging.EntityRef) {
	publish(ctx, pub, logging.Event{Type: EventJoin, Tick: tick, Actor: participant, Severity: logging.SeverityInfo})
}

func Disconnect(ctx context.Context, pub logging.Publisher, tick uint64, participant logging.EntityRef, reason string) {
	publish(ctx, pub, logging.Event{
		Type:     EventDisconnect,
		Tick:     tick,
		Actor:    participant,
		Severity: logging.SeverityInfo,
		Payload:  map[string]string{"reason": reason},
	})
}

type ControlPayload struct {
	Point  string `json:"point"`
	Forced bool   `json:"forced,omitempty"`
}

func ControlGranted(ctx context.Context, pub logging.Publisher, tick uint64, ship, participant logging.EntityRef, point string) {
	publish(ctx, pub, logging.Event{
		Type:     EventControlGranted,
		Tick:     tick,
		Actor:    participant,
		Targets:  []logging.EntityRef{ship},
		Severity: logging.SeverityInfo,
		Payload:  ControlPayload{Point: point},
	})
}

func ControlDenied(ctx context.Context, pub logging.Publisher, tick uint64, ship, participant logging.EntityRef, point string) {
	publish(ctx, pub, logging.Event{
		Type:     EventControlDenied,
		Tick:     tick,
		Actor:    participant,
		Targets:  []logging.EntityRef{ship},
		Severity: logging.SeverityDebug,
		Payload:  ControlPayload{Point: point},
	})
}

func ControlReleased(ctx context.Context, pub logging.Publisher, tick uint64, ship, participant logging.EntityRef, point string, forced bool) {
	publish(ctx, pub, logging.Event{
		Type:     EventControlReleased,
		Tick:     tick,
		Actor:    participant,
		Targets:  []logging.EntityRef{ship},
		Severity: logging.SeverityInfo,
		Payload:  ControlPayload{Point: point, Forced: forced},
	})
}

func ShipRespawn(ctx context.Context, pub logging.Publisher, tick uint64, ship logging.EntityRef) {
	publish(ctx, pub, logging.Event{Type: EventShipRespawn, Tick: tick, Actor: ship, Severity: logging.SeverityInfo})
}

func publish(ctx context.Context, pub logging.Publisher, event logging.Event) {
	if pub == nil {
		return
	}
	if event.Category == "" {
		event.Category = logging.CategoryGameplay
	}
	pub.Publish(ctx, event)
}
