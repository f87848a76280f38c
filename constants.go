package server

import "time"

const (
	ProtocolVersion   = 1
	writeWait         = 10 * time.Second
	tickRate          = 20 // ticks per second
	heartbeatInterval = 2 * time.Second
	disconnectAfter   = 3 * heartbeatInterval

	// mailboxCapacity bounds each ship's inbound queue. Commands beyond the
	// bound are rejected with CommandRejectQueueFull rather than blocking the
	// transport goroutine.
	mailboxCapacity = 256
)

// Rejection reasons reported when a client command never reaches a ship's
// mailbox. Rejections inside the protocol itself (ownership, cooldown,
// implausible claims) carry no reason string and produce no reply.
const (
	CommandRejectUnknownShip   = "unknown_ship"
	CommandRejectUnknownActor  = "unknown_actor"
	CommandRejectInvalidAction = "invalid_action"
	CommandRejectQueueFull     = "queue_full"
)

// TickRate reports the simulation frequency in ticks per second.
func TickRate() int {
	return tickRate
}

// HeartbeatInterval reports the expected client heartbeat cadence.
func HeartbeatInterval() time.Duration {
	return heartbeatInterval
}
