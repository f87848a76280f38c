package server

// Server→client message tags.
const (
	MessageTypeState           = "state"
	MessageTypeProjectileSpawn = "projectile_spawn"
	MessageTypeDamage          = "ship/damage"
	MessageTypeHeartbeat       = "heartbeat"
)

type joinResponse struct {
	Ver        int         `json:"ver"`
	ID         string      `json:"id"`
	Ships      []Ship      `json:"ships"`
	Config     WorldConfig `json:"config"`
	ServerTime int64       `json:"serverTime"`
}

// stateMessage is the periodic snapshot broadcast. Ships are ordered by id so
// payloads are stable across ticks and observers can diff them cheaply.
type stateMessage struct {
	Ver        int    `json:"ver"`
	Type       string `json:"type"`
	Ships      []Ship `json:"ships"`
	Tick       uint64 `json:"t"`
	Sequence   uint64 `json:"sequence"`
	ServerTime int64  `json:"serverTime"`
}

// projectileSpawnMessage broadcasts the full spawn descriptor. Observers that
// have already seen the projectile id treat redelivery as a no-op.
type projectileSpawnMessage struct {
	Ver        int              `json:"ver"`
	Type       string           `json:"type"`
	Projectile ProjectileParams `json:"projectile"`
}

// damageMessage broadcasts an authoritative damage event.
type damageMessage struct {
	Ver   int         `json:"ver"`
	Type  string      `json:"type"`
	Event DamageEvent `json:"event"`
}

type heartbeatMessage struct {
	Ver        int    `json:"ver"`
	Type       string `json:"type"`
	ServerTime int64  `json:"serverTime"`
	ClientTime int64  `json:"clientTime"`
	RTTMillis  int64  `json:"rtt"`
}

type diagnosticsParticipant struct {
	Ver           int    `json:"ver"`
	ID            string `json:"id"`
	LastHeartbeat int64  `json:"lastHeartbeat"`
	RTTMillis     int64  `json:"rttMillis"`
}

type diagnosticsSnapshot struct {
	Ver          int                      `json:"ver"`
	Participants []diagnosticsParticipant `json:"participants"`
	Telemetry    telemetrySnapshot        `json:"telemetry"`
}
