package server

import (
	"math"
	"testing"
	"time"
)

func TestHandleWheelIsOwnerOnly(t *testing.T) {
	s := testShipState()

	if s.handleWheel("alice", TurnLeft) {
		t.Fatalf("wheel input accepted without ownership")
	}
	s.requestControl(ControlPointWheel, "alice")
	if !s.handleWheel("alice", TurnLeft) {
		t.Fatalf("owner wheel input rejected")
	}
	if s.handleWheel("bob", TurnRight) {
		t.Fatalf("non-owner wheel input accepted")
	}
	if s.wheelTurn != TurnLeft {
		t.Fatalf("wheelTurn = %q, want left", s.wheelTurn)
	}
}

func TestHandleSailsClampsToConfiguredRange(t *testing.T) {
	s := testShipState()
	s.requestControl(ControlPointSails, "alice")

	if s.handleSails("alice", -1) {
		t.Fatalf("lowering sails below zero must be a no-op")
	}
	for i := 0; i < 5; i++ {
		s.handleSails("alice", 1)
	}
	if s.sailLevel != s.cfg.MaxSailLevel {
		t.Fatalf("sailLevel = %d, want clamped to %d", s.sailLevel, s.cfg.MaxSailLevel)
	}
	if s.handleSails("alice", 1) {
		t.Fatalf("raising sails past the top must be a no-op")
	}
}

func TestHandleAimClampsToLimit(t *testing.T) {
	s := testShipState()
	slot := CannonPointName(CannonSideLeft, 0)
	s.requestControl(slot, "alice")

	if !s.handleAim("alice", slot, 10) {
		t.Fatalf("owner aim rejected")
	}
	if got := s.cannons[slot].aim; got != s.cfg.AimLimit {
		t.Fatalf("aim = %v, want clamped to %v", got, s.cfg.AimLimit)
	}
	s.handleAim("alice", slot, -10)
	if got := s.cannons[slot].aim; got != -s.cfg.AimLimit {
		t.Fatalf("aim = %v, want clamped to %v", got, -s.cfg.AimLimit)
	}

	if s.handleAim("bob", slot, 0.1) {
		t.Fatalf("non-owner aim accepted")
	}
}

func TestHandleElevationStaysInBand(t *testing.T) {
	s := testShipState()
	slot := CannonPointName(CannonSideRight, 0)
	s.requestControl(slot, "alice")

	for i := 0; i < 50; i++ {
		s.handleElevation("alice", slot, 0.1)
	}
	if got := s.cannons[slot].elevation; got != s.cfg.MaxElevation {
		t.Fatalf("elevation = %v, want clamped to %v", got, s.cfg.MaxElevation)
	}
	for i := 0; i < 50; i++ {
		s.handleElevation("alice", slot, -0.1)
	}
	if got := s.cannons[slot].elevation; got != s.cfg.MinElevation {
		t.Fatalf("elevation = %v, want clamped to %v", got, s.cfg.MinElevation)
	}
}

func TestFireRequiresOwnershipAndCooldown(t *testing.T) {
	s := testShipState()
	slot := CannonPointName(CannonSideLeft, 0)
	now := time.UnixMilli(1_000_000)

	if _, ok := s.fire("alice", slot, now); ok {
		t.Fatalf("fire accepted without ownership")
	}

	s.requestControl(slot, "alice")
	params, ok := s.fire("alice", slot, now)
	if !ok {
		t.Fatalf("owner fire rejected")
	}
	if params.SourceShip != s.id {
		t.Fatalf("projectile source = %q, want %q", params.SourceShip, s.id)
	}
	if params.ID == "" {
		t.Fatalf("projectile id missing")
	}
	if params.Z != s.cfg.DeckHeight {
		t.Fatalf("projectile spawned at z=%v, want deck height %v", params.Z, s.cfg.DeckHeight)
	}
	if _, recorded := s.projectiles[params.ID]; !recorded {
		t.Fatalf("fired projectile has no canonical record")
	}

	if _, ok := s.fire("alice", slot, now.Add(time.Second)); ok {
		t.Fatalf("fire accepted during cooldown")
	}

	s.stepKinematics(s.cfg.CannonCooldown)
	if _, ok := s.fire("alice", slot, now.Add(3*time.Second)); !ok {
		t.Fatalf("fire rejected after cooldown drained")
	}
}

func TestFireInheritsShipMomentum(t *testing.T) {
	s := testShipState()
	slot := CannonPointName(CannonSideLeft, 0)
	s.requestControl(slot, "alice")
	s.velX, s.velY = 50, -20

	params, ok := s.fire("alice", slot, time.UnixMilli(0))
	if !ok {
		t.Fatalf("fire rejected")
	}

	// Left rail at heading 0 fires along +y; the x component is pure hull
	// velocity.
	if math.Abs(params.VelX-50) > 1e-9 {
		t.Fatalf("velX = %v, want ship velocity 50", params.VelX)
	}
	groundSpeed := s.cfg.MuzzleSpeed * math.Cos(s.cannons[slot].elevation)
	if math.Abs(params.VelY-(-20+groundSpeed)) > 1e-9 {
		t.Fatalf("velY = %v, want %v", params.VelY, -20+groundSpeed)
	}
	if math.Abs(params.VertVel-s.cfg.MuzzleSpeed*math.Sin(s.cannons[slot].elevation)) > 1e-9 {
		t.Fatalf("vertVel = %v, want muzzle speed * sin(elevation)", params.VertVel)
	}
}

func TestStepKinematicsWheelIntegratesTowardLock(t *testing.T) {
	s := testShipState()
	s.requestControl(ControlPointWheel, "alice")
	s.handleWheel("alice", TurnLeft)

	for i := 0; i < 100; i++ {
		s.stepKinematics(0.05)
	}
	if s.wheelAngle != s.cfg.MaxWheelAngle {
		t.Fatalf("wheelAngle = %v, want locked at %v", s.wheelAngle, s.cfg.MaxWheelAngle)
	}

	// Letting go of the wheel holds the angle where it was left.
	s.handleWheel("alice", TurnNone)
	before := s.wheelAngle
	s.stepKinematics(0.05)
	if s.wheelAngle != before {
		t.Fatalf("wheelAngle drifted from %v to %v with no input", before, s.wheelAngle)
	}
}

func TestStepKinematicsSpeedFollowsSailLevel(t *testing.T) {
	s := testShipState()
	s.requestControl(ControlPointSails, "alice")

	s.stepKinematics(0.1)
	if s.velX != 0 || s.velY != 0 {
		t.Fatalf("ship moving with sails struck: (%v,%v)", s.velX, s.velY)
	}

	s.handleSails("alice", 1)
	s.stepKinematics(0.1)
	third := s.cfg.MaxSpeed / float64(s.cfg.MaxSailLevel)
	if math.Abs(s.velX-third) > 1e-9 {
		t.Fatalf("velX = %v at sail level 1, want %v", s.velX, third)
	}

	s.handleSails("alice", 1)
	s.handleSails("alice", 1)
	s.stepKinematics(0.1)
	if math.Abs(s.velX-s.cfg.MaxSpeed) > 1e-9 {
		t.Fatalf("velX = %v at full sail, want %v", s.velX, s.cfg.MaxSpeed)
	}
}

func TestStepKinematicsSinkingShipIsImmobileButCooldownsDrain(t *testing.T) {
	s := testShipState()
	slot := CannonPointName(CannonSideLeft, 0)
	s.requestControl(slot, "alice")
	if _, ok := s.fire("alice", slot, time.UnixMilli(0)); !ok {
		t.Fatalf("fire rejected")
	}

	s.beginSinking(time.UnixMilli(100))
	x, y := s.x, s.y
	s.stepKinematics(1)
	if s.x != x || s.y != y {
		t.Fatalf("sinking ship moved from (%v,%v) to (%v,%v)", x, y, s.x, s.y)
	}
	if got := s.cannons[slot].cooldown; got >= s.cfg.CannonCooldown {
		t.Fatalf("cooldown did not drain while sinking: %v", got)
	}
}
