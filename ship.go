package server

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Control point names. Cannons use CannonPointName so each slot arbitrates
// independently.
const (
	ControlPointWheel = "wheel"
	ControlPointSails = "sails"
	ControlPointMast  = "mast"
)

// Cannon slot sides as they appear on the wire.
const (
	CannonSideLeft  = "left"
	CannonSideRight = "right"
)

// CannonPointName derives the control point name for a cannon slot.
func CannonPointName(side string, index int) string {
	return fmt.Sprintf("cannon-%s-%d", side, index)
}

// TurnDirection is the wheel input state.
type TurnDirection string

const (
	TurnNone  TurnDirection = "none"
	TurnLeft  TurnDirection = "left"
	TurnRight TurnDirection = "right"
)

// ShipPose is the read-only projection of a ship that other actors and
// observers work from: enough to dead-reckon, draw, and run hull tests, and
// nothing that would let anyone mutate the ship from outside.
type ShipPose struct {
	ID         string  `json:"id"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Rotation   float64 `json:"rotation"`
	VelX       float64 `json:"velX"`
	VelY       float64 `json:"velY"`
	HalfLength float64 `json:"halfLength"`
	HalfWidth  float64 `json:"halfWidth"`
	Health     float64 `json:"health"`
	MaxHealth  float64 `json:"maxHealth"`
	Sinking    bool    `json:"sinking"`
}

// ControlPointView reports who holds a point in a snapshot.
type ControlPointView struct {
	Name  string `json:"name"`
	Owner string `json:"owner,omitempty"`
}

// CannonView is the per-slot cannon state included in snapshots.
type CannonView struct {
	Slot      string  `json:"slot"`
	Aim       float64 `json:"aim"`
	Elevation float64 `json:"elevation"`
	Cooldown  float64 `json:"cooldown"`
}

// Ship is the full per-vessel snapshot broadcast to subscribers.
type Ship struct {
	ShipPose
	WheelAngle    float64            `json:"wheelAngle"`
	WheelTurn     TurnDirection      `json:"wheelTurn"`
	SailLevel     int                `json:"sailLevel"`
	ControlPoints []ControlPointView `json:"controlPoints"`
	Cannons       []CannonView       `json:"cannons"`
}

type lifecyclePhase int

const (
	phaseAfloat lifecyclePhase = iota
	phaseSinking
	phaseRespawning
)

// cannonState carries one slot's aim, elevation, cooldown, and its fixed
// mount geometry relative to the hull.
type cannonState struct {
	slot      string
	offsetX   float64 // along the keel, ship frame
	offsetY   float64 // positive toward the left rail
	baseAim   float64 // perpendicular direction in the ship frame (±π/2)
	aim       float64 // offset from baseAim, clamped to ±AimLimit
	elevation float64
	cooldown  float64 // seconds remaining
}

// shipState is the authoritative state of one vessel. It is owned exclusively
// by the ship's actor goroutine; nothing outside the actor ever touches it, so
// no field needs a lock.
type shipState struct {
	id    string
	spawn ShipSpawn
	cfg   PhysicsConfig

	x, y       float64
	rotation   float64
	velX, velY float64

	health    float64
	maxHealth float64
	phase     lifecyclePhase
	sankAt    time.Time

	wheelTurn  TurnDirection
	wheelAngle float64
	sailLevel  int

	owners  map[string]string
	cannons map[string]*cannonState

	// projectiles holds the canonical records for shots this ship fired.
	projectiles map[string]*projectileRecord

	// known mirrors the other ships' poses as of the last tick, delivered by
	// the hub over the mailbox. Never aliased to another actor's state.
	known map[string]ShipPose
}

// newShipState builds a vessel from its spawn descriptor.
func newShipState(spawn ShipSpawn, cfg PhysicsConfig) *shipState {
	s := &shipState{
		id:          spawn.ID,
		spawn:       spawn,
		cfg:         cfg,
		x:           spawn.X,
		y:           spawn.Y,
		rotation:    spawn.Rotation,
		health:      spawn.MaxHealth,
		maxHealth:   spawn.MaxHealth,
		wheelTurn:   TurnNone,
		sailLevel:   0,
		owners:      make(map[string]string),
		cannons:     make(map[string]*cannonState),
		projectiles: make(map[string]*projectileRecord),
		known:       make(map[string]ShipPose),
	}
	s.mountCannons()
	return s
}

// mountCannons spaces the configured slots evenly along each rail. Elevation
// starts at the midpoint of the allowed band.
func (s *shipState) mountCannons() {
	midElevation := (s.cfg.MinElevation + s.cfg.MaxElevation) / 2
	for i := 0; i < s.spawn.CannonsPerSide; i++ {
		along := cannonOffsetAlongKeel(i, s.spawn.CannonsPerSide, s.spawn.HalfLength)
		left := &cannonState{
			slot:      CannonPointName(CannonSideLeft, i),
			offsetX:   along,
			offsetY:   s.spawn.HalfWidth,
			baseAim:   math.Pi / 2,
			elevation: midElevation,
		}
		right := &cannonState{
			slot:      CannonPointName(CannonSideRight, i),
			offsetX:   along,
			offsetY:   -s.spawn.HalfWidth,
			baseAim:   -math.Pi / 2,
			elevation: midElevation,
		}
		s.cannons[left.slot] = left
		s.cannons[right.slot] = right
	}
}

// cannonOffsetAlongKeel distributes count mounts across the middle half of
// the hull so bow and stern stay clear.
func cannonOffsetAlongKeel(index, count int, halfLength float64) float64 {
	if count <= 1 {
		return 0
	}
	span := halfLength // mounts live within ±halfLength/2
	step := span / float64(count-1)
	return -span/2 + step*float64(index)
}

// pose projects the state into its read-only form.
func (s *shipState) pose() ShipPose {
	return ShipPose{
		ID:         s.id,
		X:          s.x,
		Y:          s.y,
		Rotation:   s.rotation,
		VelX:       s.velX,
		VelY:       s.velY,
		HalfLength: s.spawn.HalfLength,
		HalfWidth:  s.spawn.HalfWidth,
		Health:     s.health,
		MaxHealth:  s.maxHealth,
		Sinking:    s.phase == phaseSinking,
	}
}

// snapshot copies the state into the wire representation. Views are sorted by
// name so broadcasts never depend on map iteration order.
func (s *shipState) snapshot() Ship {
	snap := Ship{
		ShipPose:   s.pose(),
		WheelAngle: s.wheelAngle,
		WheelTurn:  s.wheelTurn,
		SailLevel:  s.sailLevel,
	}

	snap.ControlPoints = s.controlPointViews()

	snap.Cannons = make([]CannonView, 0, len(s.cannons))
	for _, cannon := range s.cannons {
		snap.Cannons = append(snap.Cannons, CannonView{
			Slot:      cannon.slot,
			Aim:       cannon.aim,
			Elevation: cannon.elevation,
			Cooldown:  cannon.cooldown,
		})
	}
	sort.Slice(snap.Cannons, func(i, j int) bool { return snap.Cannons[i].Slot < snap.Cannons[j].Slot })

	return snap
}

// updateKnownPoses replaces the actor's view of the rest of the fleet.
func (s *shipState) updateKnownPoses(poses map[string]ShipPose) {
	s.known = make(map[string]ShipPose, len(poses))
	for id, pose := range poses {
		if id == s.id {
			continue
		}
		s.known[id] = pose
	}
}

// pruneProjectiles drops records past the unconditional lifetime cutoff and
// reports how many were removed.
func (s *shipState) pruneProjectiles(now time.Time) int {
	lifetime := s.cfg.projectileLifetime()
	pruned := 0
	for id, rec := range s.projectiles {
		if rec.expired(now, lifetime) {
			delete(s.projectiles, id)
			pruned++
		}
	}
	return pruned
}
