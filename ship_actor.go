package server

import (
	"context"
	"time"

	"broadside/server/logging"
	loggingcombat "broadside/server/logging/combat"
	logginglifecycle "broadside/server/logging/lifecycle"
)

// hubEvent carries an actor's outbound broadcasts back to the hub. Exactly
// one field is set.
type hubEvent struct {
	spawn  *ProjectileParams
	damage *DamageEvent
}

// tickRequest drives one simulation step. The hub blocks on reply so a
// broadcast always reflects a coherent, fully stepped snapshot.
type tickRequest struct {
	now   time.Time
	dt    float64
	poses map[string]ShipPose
	reply chan Ship
}

// shipEnvelope is one mailbox entry. Exactly one field is set.
type shipEnvelope struct {
	cmd    *Command
	damage *DamageEvent
	tick   *tickRequest
}

// shipActor owns one ship. All mutation happens on the actor's goroutine, fed
// by a single mailbox processed strictly in arrival order. Concurrent grabs,
// claims, and steering are serialized here instead of behind locks.
type shipActor struct {
	state     *shipState
	inbox     chan shipEnvelope
	events    chan<- hubEvent
	publisher logging.Publisher
	telemetry *telemetryCounters
	tick      uint64
	now       time.Time
}

func newShipActor(spawn ShipSpawn, cfg PhysicsConfig, events chan<- hubEvent, publisher logging.Publisher, telemetry *telemetryCounters) *shipActor {
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	return &shipActor{
		state:     newShipState(spawn, cfg),
		inbox:     make(chan shipEnvelope, mailboxCapacity),
		events:    events,
		publisher: logging.WithFields(publisher, map[string]any{"ship": spawn.ID}),
		telemetry: telemetry,
		now:       time.Now(),
	}
}

// run consumes the mailbox until it closes. The goroutine is the only writer
// of the actor's state for the lifetime of the world.
func (a *shipActor) run() {
	for env := range a.inbox {
		a.handle(env)
	}
}

// deliver stages an envelope without blocking. A full mailbox rejects the
// envelope; the caller reports CommandRejectQueueFull.
func (a *shipActor) deliver(env shipEnvelope) bool {
	select {
	case a.inbox <- env:
		return true
	default:
		return false
	}
}

// deliverTick blocks until the mailbox accepts the tick; ticks are never
// dropped because the lifecycle timers depend on them.
func (a *shipActor) deliverTick(req *tickRequest) {
	a.inbox <- shipEnvelope{tick: req}
}

func (a *shipActor) handle(env shipEnvelope) {
	switch {
	case env.tick != nil:
		a.handleTick(env.tick)
	case env.cmd != nil:
		a.handleCommand(env.cmd)
	case env.damage != nil:
		a.handleDamage(*env.damage)
	}
}

func (a *shipActor) handleTick(req *tickRequest) {
	a.tick++
	a.now = req.now
	s := a.state

	s.updateKnownPoses(req.poses)
	s.stepKinematics(req.dt)
	if s.stepLifecycle(req.now) {
		logginglifecycle.ShipRespawn(context.Background(), a.publisher, a.tick, logging.ShipRef(s.id))
	}
	if pruned := s.pruneProjectiles(req.now); pruned > 0 && a.telemetry != nil {
		a.telemetry.RecordProjectilesExpired(pruned)
	}

	req.reply <- s.snapshot()
}

func (a *shipActor) handleCommand(cmd *Command) {
	ctx := context.Background()
	s := a.state
	shipRef := logging.ShipRef(s.id)
	actorRef := logging.ParticipantRef(cmd.ParticipantID)

	switch cmd.Type {
	case CommandGrab:
		if cmd.Grab == nil {
			return
		}
		if s.requestControl(cmd.Grab.Point, cmd.ParticipantID) {
			logginglifecycle.ControlGranted(ctx, a.publisher, a.tick, shipRef, actorRef, cmd.Grab.Point)
		} else {
			logginglifecycle.ControlDenied(ctx, a.publisher, a.tick, shipRef, actorRef, cmd.Grab.Point)
		}

	case CommandRelease:
		if cmd.Grab == nil {
			return
		}
		if s.releaseControl(cmd.Grab.Point, cmd.ParticipantID) {
			logginglifecycle.ControlReleased(ctx, a.publisher, a.tick, shipRef, actorRef, cmd.Grab.Point, false)
		}

	case CommandReleaseAll:
		for _, point := range s.releaseAll(cmd.ParticipantID) {
			logginglifecycle.ControlReleased(ctx, a.publisher, a.tick, shipRef, actorRef, point, true)
		}

	case CommandWheelTurn:
		if cmd.Wheel != nil {
			s.handleWheel(cmd.ParticipantID, cmd.Wheel.Direction)
		}

	case CommandAdjustSails:
		if cmd.Sails != nil {
			s.handleSails(cmd.ParticipantID, cmd.Sails.Delta)
		}

	case CommandAimCannon:
		if cmd.Aim != nil {
			s.handleAim(cmd.ParticipantID, cmd.Aim.Slot, cmd.Aim.Angle)
		}

	case CommandAdjustElevation:
		if cmd.Elevation != nil {
			s.handleElevation(cmd.ParticipantID, cmd.Elevation.Slot, cmd.Elevation.Delta)
		}

	case CommandFireCannon:
		if cmd.Fire == nil {
			return
		}
		params, ok := s.fire(cmd.ParticipantID, cmd.Fire.Slot, a.now)
		if !ok {
			return
		}
		if a.telemetry != nil {
			a.telemetry.RecordProjectileSpawned()
		}
		loggingcombat.ProjectileFired(ctx, a.publisher, a.tick, shipRef, loggingcombat.ProjectileFiredPayload{
			Projectile: params.ID,
			Slot:       cmd.Fire.Slot,
		})
		a.emit(hubEvent{spawn: &params})

	case CommandHitClaim:
		if cmd.Claim == nil {
			return
		}
		a.handleClaim(*cmd.Claim)
	}
}

// handleClaim runs the authority checks for a hit claim against one of this
// ship's own projectiles. Accepted claims broadcast exactly one DamageEvent;
// rejected claims leave no trace beyond a debug event and a counter.
func (a *shipActor) handleClaim(claim HitClaim) {
	ctx := context.Background()
	s := a.state

	evt, reason, ok := s.validateClaim(claim, a.now)
	if !ok {
		if a.telemetry != nil {
			a.telemetry.RecordClaimRejected(reason)
		}
		loggingcombat.ClaimRejected(ctx, a.publisher, a.tick, logging.ShipRef(s.id), loggingcombat.ClaimRejectedPayload{
			Projectile: claim.ProjectileID,
			Target:     claim.TargetShip,
			Reason:     reason,
		})
		return
	}

	if a.telemetry != nil {
		a.telemetry.RecordClaimAccepted()
	}
	loggingcombat.Damage(ctx, a.publisher, a.tick, logging.ShipRef(evt.SourceShip), logging.ShipRef(evt.TargetShip), loggingcombat.DamagePayload{
		Projectile: evt.Projectile,
		Damage:     evt.Damage,
		NewHealth:  evt.NewHealth,
		Sinking:    evt.Sinking,
	})
	a.emit(hubEvent{damage: &evt})
}

// handleDamage applies an authoritative damage event to this ship (it is the
// target). The event supersedes whatever the ship believed locally.
func (a *shipActor) handleDamage(evt DamageEvent) {
	if a.state.applyDamageEvent(evt, a.now) {
		loggingcombat.ShipSunk(context.Background(), a.publisher, a.tick, logging.ShipRef(a.state.id))
	}
}

// emit hands an outbound broadcast to the hub's event loop. The event loop
// drains continuously on its own goroutine, so this send only parks the actor
// when the hub is badly backlogged.
func (a *shipActor) emit(evt hubEvent) {
	if a.events == nil {
		return
	}
	a.events <- evt
}
