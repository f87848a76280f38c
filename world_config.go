package server

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// PhysicsConfig holds every externally tunable constant consumed by the combat
// core. Nothing in the protocol logic hard-codes these values; tests and the
// deployed server inject them through WorldConfig, and snapshots echo them so
// observers simulate with the same numbers.
type PhysicsConfig struct {
	Gravity            float64 `yaml:"gravity" json:"gravity"`                       // px/s², vertical
	MuzzleSpeed        float64 `yaml:"muzzleSpeed" json:"muzzleSpeed"`               // px/s along the barrel
	ShotDamage         float64 `yaml:"shotDamage" json:"shotDamage"`                 // health per validated hit
	CannonCooldown     float64 `yaml:"cannonCooldown" json:"cannonCooldown"`         // seconds between shots
	HitboxPadding      float64 `yaml:"hitboxPadding" json:"hitboxPadding"`           // generous-hitbox factor, >1
	DeckHeight         float64 `yaml:"deckHeight" json:"deckHeight"`                 // px above the waterline
	DeckHeightBand     float64 `yaml:"deckHeightBand" json:"deckHeightBand"`         // hull hits only within ±band of deck
	MinFlightTime      float64 `yaml:"minFlightTime" json:"minFlightTime"`           // seconds before surface impacts count
	ProjectileLife     float64 `yaml:"projectileLife" json:"projectileLife"`         // unconditional despawn, seconds
	MaxWheelAngle      float64 `yaml:"maxWheelAngle" json:"maxWheelAngle"`           // radians of wheel lock
	WheelTurnRate      float64 `yaml:"wheelTurnRate" json:"wheelTurnRate"`           // radians/s while a direction is held
	ShipTurnRate       float64 `yaml:"shipTurnRate" json:"shipTurnRate"`             // radians/s at full wheel lock
	MaxSpeed           float64 `yaml:"maxSpeed" json:"maxSpeed"`                     // px/s at the top sail level
	MaxSailLevel       int     `yaml:"maxSailLevel" json:"maxSailLevel"`             // discrete sail steps
	AimLimit           float64 `yaml:"aimLimit" json:"aimLimit"`                     // radians either side of ship-perpendicular
	MinElevation       float64 `yaml:"minElevation" json:"minElevation"`             // radians
	MaxElevation       float64 `yaml:"maxElevation" json:"maxElevation"`             // radians
	SinkDuration       float64 `yaml:"sinkDuration" json:"sinkDuration"`             // seconds spent sinking
	RespawnDelay       float64 `yaml:"respawnDelay" json:"respawnDelay"`             // seconds before a sunk ship returns
	ClaimPoseTolerance float64 `yaml:"claimPoseTolerance" json:"claimPoseTolerance"` // px of drift allowed in a claimed target pose
}

// ShipSpawn describes one vessel created at world initialization.
type ShipSpawn struct {
	ID             string  `yaml:"id" json:"id"`
	X              float64 `yaml:"x" json:"x"`
	Y              float64 `yaml:"y" json:"y"`
	Rotation       float64 `yaml:"rotation" json:"rotation"`
	HalfLength     float64 `yaml:"halfLength" json:"halfLength"`
	HalfWidth      float64 `yaml:"halfWidth" json:"halfWidth"`
	CannonsPerSide int     `yaml:"cannonsPerSide" json:"cannonsPerSide"`
	MaxHealth      float64 `yaml:"maxHealth" json:"maxHealth"`
}

// WorldConfig captures the toggles and tunables used when assembling a world.
type WorldConfig struct {
	Seed    string        `yaml:"seed" json:"seed"`
	Physics PhysicsConfig `yaml:"physics" json:"physics"`
	Ships   []ShipSpawn   `yaml:"ships" json:"ships"`
}

const defaultWorldSeed = "broadside"

// normalized returns a config with defaults applied. Zero-valued physics
// fields fall back to the shipping constants so a partial YAML file stays
// playable.
func (cfg WorldConfig) normalized() WorldConfig {
	normalized := cfg
	normalized.Seed = strings.TrimSpace(normalized.Seed)
	if normalized.Seed == "" {
		normalized.Seed = defaultWorldSeed
	}
	normalized.Physics = normalized.Physics.normalized()
	if len(normalized.Ships) == 0 {
		normalized.Ships = defaultShipSpawns()
	}
	for i := range normalized.Ships {
		normalized.Ships[i] = normalized.Ships[i].normalized(i)
	}
	return normalized
}

func (p PhysicsConfig) normalized() PhysicsConfig {
	def := defaultPhysicsConfig()
	if p.Gravity <= 0 {
		p.Gravity = def.Gravity
	}
	if p.MuzzleSpeed <= 0 {
		p.MuzzleSpeed = def.MuzzleSpeed
	}
	if p.ShotDamage <= 0 {
		p.ShotDamage = def.ShotDamage
	}
	if p.CannonCooldown <= 0 {
		p.CannonCooldown = def.CannonCooldown
	}
	if p.HitboxPadding < 1 {
		p.HitboxPadding = def.HitboxPadding
	}
	if p.DeckHeight <= 0 {
		p.DeckHeight = def.DeckHeight
	}
	if p.DeckHeightBand <= 0 {
		p.DeckHeightBand = def.DeckHeightBand
	}
	if p.MinFlightTime <= 0 {
		p.MinFlightTime = def.MinFlightTime
	}
	if p.ProjectileLife <= 0 {
		p.ProjectileLife = def.ProjectileLife
	}
	if p.MaxWheelAngle <= 0 {
		p.MaxWheelAngle = def.MaxWheelAngle
	}
	if p.WheelTurnRate <= 0 {
		p.WheelTurnRate = def.WheelTurnRate
	}
	if p.ShipTurnRate <= 0 {
		p.ShipTurnRate = def.ShipTurnRate
	}
	if p.MaxSpeed <= 0 {
		p.MaxSpeed = def.MaxSpeed
	}
	if p.MaxSailLevel <= 0 {
		p.MaxSailLevel = def.MaxSailLevel
	}
	if p.AimLimit <= 0 {
		p.AimLimit = def.AimLimit
	}
	if p.MaxElevation <= 0 {
		p.MaxElevation = def.MaxElevation
	}
	if p.MinElevation < 0 || p.MinElevation >= p.MaxElevation {
		p.MinElevation = def.MinElevation
	}
	if p.SinkDuration <= 0 {
		p.SinkDuration = def.SinkDuration
	}
	if p.RespawnDelay <= 0 {
		p.RespawnDelay = def.RespawnDelay
	}
	if p.ClaimPoseTolerance <= 0 {
		p.ClaimPoseTolerance = def.ClaimPoseTolerance
	}
	return p
}

func (s ShipSpawn) normalized(index int) ShipSpawn {
	if strings.TrimSpace(s.ID) == "" {
		s.ID = fmt.Sprintf("ship-%d", index+1)
	}
	if s.HalfLength <= 0 {
		s.HalfLength = 80
	}
	if s.HalfWidth <= 0 {
		s.HalfWidth = 30
	}
	if s.CannonsPerSide <= 0 {
		s.CannonsPerSide = 2
	}
	if s.MaxHealth <= 0 {
		s.MaxHealth = 100
	}
	return s
}

// defaultPhysicsConfig matches the tuning the client ships with.
func defaultPhysicsConfig() PhysicsConfig {
	return PhysicsConfig{
		Gravity:            150,
		MuzzleSpeed:        260,
		ShotDamage:         25,
		CannonCooldown:     2,
		HitboxPadding:      1.2,
		DeckHeight:         20,
		DeckHeightBand:     18,
		MinFlightTime:      0.2,
		ProjectileLife:     5,
		MaxWheelAngle:      math.Pi / 3,
		WheelTurnRate:      math.Pi / 2,
		ShipTurnRate:       0.6,
		MaxSpeed:           120,
		MaxSailLevel:       3,
		AimLimit:           math.Pi / 4,
		MinElevation:       0.1,
		MaxElevation:       0.9,
		SinkDuration:       5,
		RespawnDelay:       30,
		ClaimPoseTolerance: 48,
	}
}

func defaultShipSpawns() []ShipSpawn {
	return []ShipSpawn{
		{ID: "ship-1", X: 400, Y: 300, Rotation: 0},
		{ID: "ship-2", X: 1200, Y: 700, Rotation: math.Pi},
	}
}

// DefaultWorldConfig is the configuration used when no file is supplied.
func DefaultWorldConfig() WorldConfig {
	return WorldConfig{Seed: defaultWorldSeed}.normalized()
}

// LoadWorldConfig reads a YAML config file and applies defaults. An empty
// path yields the default world.
func LoadWorldConfig(path string) (WorldConfig, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultWorldConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return WorldConfig{}, fmt.Errorf("read world config: %w", err)
	}
	var cfg WorldConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return WorldConfig{}, fmt.Errorf("parse world config: %w", err)
	}
	return cfg.normalized(), nil
}

func (p PhysicsConfig) sinkDuration() time.Duration {
	return time.Duration(p.SinkDuration * float64(time.Second))
}

func (p PhysicsConfig) respawnDelay() time.Duration {
	return time.Duration(p.RespawnDelay * float64(time.Second))
}

func (p PhysicsConfig) projectileLifetime() time.Duration {
	return time.Duration(p.ProjectileLife * float64(time.Second))
}

func (p PhysicsConfig) minFlight() time.Duration {
	return time.Duration(p.MinFlightTime * float64(time.Second))
}
