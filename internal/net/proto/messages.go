// Package proto defines the client→server wire envelope and its mapping onto
// simulation commands. Every message kind is a tagged variant; anything that
// fails to match a known tag is malformed and discarded at the dispatch
// boundary.
package proto

import (
	server "broadside/server"
)

// Client message tags.
const (
	TypeGrabControl     = "grab_control"
	TypeReleaseControl  = "release_control"
	TypeGrabCannon      = "grab_cannon"
	TypeReleaseCannon   = "release_cannon"
	TypeWheelTurnStart  = "wheel_turn_start"
	TypeWheelTurnStop   = "wheel_turn_stop"
	TypeAdjustSails     = "adjust_sails"
	TypeAimCannon       = "aim_cannon"
	TypeAdjustElevation = "adjust_elevation"
	TypeFireCannon      = "fire_cannon"
	TypeHitClaim        = "projectile_hit_claim"
	TypeHeartbeat       = "heartbeat"
)

// ClientMessage is the decoded union of every client→server payload. Fields
// irrelevant to a given tag stay zero; ShipCommand checks the ones that
// matter.
type ClientMessage struct {
	Type      string           `json:"type"`
	Ship      string           `json:"ship,omitempty"`
	Point     string           `json:"point,omitempty"`
	Side      string           `json:"side,omitempty"`
	Index     *int             `json:"index,omitempty"`
	Direction string           `json:"direction,omitempty"`
	Slot      string           `json:"slot,omitempty"`
	Angle     *float64         `json:"angle,omitempty"`
	Delta     *float64         `json:"delta,omitempty"`
	Claim     *server.HitClaim `json:"claim,omitempty"`
	SentAt    int64            `json:"sentAt,omitempty"` // heartbeat client time, unix ms
}

// ShipCommand translates a client message into a ship-directed command.
// It returns false for unknown tags and for known tags with missing or
// out-of-range payload fields; the caller treats both as malformed.
func ShipCommand(msg ClientMessage) (server.Command, bool) {
	var zero server.Command
	if msg.Ship == "" {
		return zero, false
	}
	cmd := server.Command{ShipID: msg.Ship}

	switch msg.Type {
	case TypeGrabControl, TypeReleaseControl:
		if msg.Point == "" {
			return zero, false
		}
		cmd.Type = server.CommandGrab
		if msg.Type == TypeReleaseControl {
			cmd.Type = server.CommandRelease
		}
		cmd.Grab = &server.GrabCommand{Point: msg.Point}

	case TypeGrabCannon, TypeReleaseCannon:
		if !validSide(msg.Side) || msg.Index == nil || *msg.Index < 0 {
			return zero, false
		}
		cmd.Type = server.CommandGrab
		if msg.Type == TypeReleaseCannon {
			cmd.Type = server.CommandRelease
		}
		cmd.Grab = &server.GrabCommand{Point: server.CannonPointName(msg.Side, *msg.Index)}

	case TypeWheelTurnStart:
		direction, ok := turnDirection(msg.Direction)
		if !ok {
			return zero, false
		}
		cmd.Type = server.CommandWheelTurn
		cmd.Wheel = &server.WheelCommand{Direction: direction}

	case TypeWheelTurnStop:
		cmd.Type = server.CommandWheelTurn
		cmd.Wheel = &server.WheelCommand{Direction: server.TurnNone}

	case TypeAdjustSails:
		delta, ok := sailDelta(msg.Direction)
		if !ok {
			return zero, false
		}
		cmd.Type = server.CommandAdjustSails
		cmd.Sails = &server.SailsCommand{Delta: delta}

	case TypeAimCannon:
		if msg.Slot == "" || msg.Angle == nil {
			return zero, false
		}
		cmd.Type = server.CommandAimCannon
		cmd.Aim = &server.AimCommand{Slot: msg.Slot, Angle: *msg.Angle}

	case TypeAdjustElevation:
		if msg.Slot == "" || msg.Delta == nil {
			return zero, false
		}
		cmd.Type = server.CommandAdjustElevation
		cmd.Elevation = &server.ElevationCommand{Slot: msg.Slot, Delta: *msg.Delta}

	case TypeFireCannon:
		if msg.Slot == "" {
			return zero, false
		}
		cmd.Type = server.CommandFireCannon
		cmd.Fire = &server.FireCommand{Slot: msg.Slot}

	case TypeHitClaim:
		if msg.Claim == nil || msg.Claim.ProjectileID == "" || msg.Claim.TargetShip == "" {
			return zero, false
		}
		claim := *msg.Claim
		cmd.Type = server.CommandHitClaim
		cmd.Claim = &claim

	default:
		return zero, false
	}

	return cmd, true
}

func validSide(side string) bool {
	return side == server.CannonSideLeft || side == server.CannonSideRight
}

func turnDirection(direction string) (server.TurnDirection, bool) {
	switch direction {
	case "left":
		return server.TurnLeft, true
	case "right":
		return server.TurnRight, true
	}
	return server.TurnNone, false
}

func sailDelta(direction string) (int, bool) {
	switch direction {
	case "up":
		return 1, true
	case "down":
		return -1, true
	}
	return 0, false
}
