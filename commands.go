package server

import "time"

// CommandType enumerates the ship-directed commands a mailbox can carry.
// The values double as the wire tags for client messages.
type CommandType string

const (
	CommandGrab            CommandType = "grab_control"
	CommandRelease         CommandType = "release_control"
	CommandReleaseAll      CommandType = "release_all"
	CommandWheelTurn       CommandType = "wheel_turn"
	CommandAdjustSails     CommandType = "adjust_sails"
	CommandAimCannon       CommandType = "aim_cannon"
	CommandAdjustElevation CommandType = "adjust_elevation"
	CommandFireCannon      CommandType = "fire_cannon"
	CommandHitClaim        CommandType = "projectile_hit_claim"
)

// Command represents one intent addressed to a single ship. Exactly one of
// the payload pointers matching Type is set.
type Command struct {
	ShipID        string
	ParticipantID string
	Type          CommandType
	IssuedAt      time.Time

	Grab      *GrabCommand
	Wheel     *WheelCommand
	Sails     *SailsCommand
	Aim       *AimCommand
	Elevation *ElevationCommand
	Fire      *FireCommand
	Claim     *HitClaim
}

// GrabCommand names the control point being grabbed or released.
type GrabCommand struct {
	Point string
}

// WheelCommand carries the wheel's new turning direction.
type WheelCommand struct {
	Direction TurnDirection
}

// SailsCommand steps the sail level up or down.
type SailsCommand struct {
	Delta int
}

// AimCommand sets a cannon slot's aim offset.
type AimCommand struct {
	Slot  string
	Angle float64
}

// ElevationCommand nudges a cannon slot's elevation.
type ElevationCommand struct {
	Slot  string
	Delta float64
}

// FireCommand triggers a cannon slot.
type FireCommand struct {
	Slot string
}

// HitClaim is an observer's locally predicted collision report, addressed to
// the projectile's source ship. The target pose is the claimant's view at
// claim time; the claimed damage is advisory only, damage is derived
// server-side.
type HitClaim struct {
	ProjectileID     string  `json:"projectileId"`
	TargetShip       string  `json:"targetShipId"`
	TargetX          float64 `json:"targetX"`
	TargetY          float64 `json:"targetY"`
	TargetRotation   float64 `json:"targetRotation"`
	TargetHalfLength float64 `json:"targetHalfLength"`
	TargetHalfWidth  float64 `json:"targetHalfWidth"`
	ClaimedDamage    float64 `json:"claimedDamage"`
	Timestamp        int64   `json:"timestamp"` // unix milliseconds
}

// ClaimTime returns the claim instant as wall-clock time.
func (c HitClaim) ClaimTime() time.Time {
	return time.UnixMilli(c.Timestamp)
}
