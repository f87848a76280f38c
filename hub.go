package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"broadside/server/logging"
	logginglifecycle "broadside/server/logging/lifecycle"
)

// Subscriber wraps one websocket connection. Writes are serialized by the
// embedded mutex because broadcasts and per-connection replies race.
type Subscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// WriteMessage forwards to the connection under the write lock.
func (s *Subscriber) WriteMessage(messageType int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(messageType, data)
}

type participantState struct {
	ID            string
	lastHeartbeat time.Time
	lastRTT       time.Duration
}

// Hub owns the fleet of ship actors, the participant roster, and every
// subscriber connection. Ship state itself is never touched here; the hub
// only exchanges messages with the actors.
type Hub struct {
	cfg       WorldConfig
	publisher logging.Publisher
	telemetry *telemetryCounters

	mu            sync.Mutex
	participants  map[string]*participantState
	subscribers   map[string]*Subscriber
	lastPoses     map[string]ShipPose
	lastSnapshots []Ship

	ships   map[string]*shipActor
	shipIDs []string // stable broadcast order

	events   chan hubEvent
	nextID   atomic.Uint64
	tick     atomic.Uint64
	sequence atomic.Uint64
}

// NewHub assembles the world from config and starts one actor goroutine per
// ship. The simulation itself does not advance until Run is called.
func NewHub(cfg WorldConfig, publisher logging.Publisher) *Hub {
	cfg = cfg.normalized()
	if publisher == nil {
		publisher = logging.NopPublisher()
	}

	h := &Hub{
		cfg:          cfg,
		publisher:    publisher,
		telemetry:    newTelemetryCounters(),
		participants: make(map[string]*participantState),
		subscribers:  make(map[string]*Subscriber),
		lastPoses:    make(map[string]ShipPose),
		ships:        make(map[string]*shipActor),
		events:       make(chan hubEvent, 1024),
	}

	for _, spawn := range cfg.Ships {
		actor := newShipActor(spawn, cfg.Physics, h.events, publisher, h.telemetry)
		h.ships[spawn.ID] = actor
		h.shipIDs = append(h.shipIDs, spawn.ID)
		h.lastPoses[spawn.ID] = actor.state.pose()
		h.lastSnapshots = append(h.lastSnapshots, actor.state.snapshot())
		go actor.run()
	}
	sort.Strings(h.shipIDs)
	sort.Slice(h.lastSnapshots, func(i, j int) bool { return h.lastSnapshots[i].ID < h.lastSnapshots[j].ID })

	return h
}

// Config returns the normalized world configuration.
func (h *Hub) Config() WorldConfig {
	return h.cfg
}

// Join registers a new participant and returns the latest snapshot.
func (h *Hub) Join() joinResponse {
	id := h.nextID.Add(1)
	participantID := fmt.Sprintf("sailor-%d", id)
	now := time.Now()

	h.mu.Lock()
	h.participants[participantID] = &participantState{ID: participantID, lastHeartbeat: now}
	ships := h.snapshotLocked()
	h.mu.Unlock()

	logginglifecycle.Join(context.Background(), h.publisher, h.tick.Load(), logging.ParticipantRef(participantID))

	return joinResponse{
		Ver:        ProtocolVersion,
		ID:         participantID,
		Ships:      ships,
		Config:     h.cfg,
		ServerTime: now.UnixMilli(),
	}
}

// HasParticipant reports whether the id belongs to a live participant.
func (h *Hub) HasParticipant(participantID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.participants[participantID]
	return ok
}

// Subscribe associates a WebSocket connection with an existing participant.
func (h *Hub) Subscribe(participantID string, conn *websocket.Conn) (*Subscriber, []Ship, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	state, ok := h.participants[participantID]
	if !ok {
		return nil, nil, false
	}

	state.lastHeartbeat = time.Now()

	if existing, ok := h.subscribers[participantID]; ok {
		existing.conn.Close()
	}

	sub := &Subscriber{conn: conn}
	h.subscribers[participantID] = sub
	return sub, h.snapshotLocked(), true
}

// Disconnect removes a participant, closes any live connection, and forces
// release of every control point they held on any ship.
func (h *Hub) Disconnect(participantID string, reason string) {
	h.mu.Lock()
	sub, subOK := h.subscribers[participantID]
	if subOK {
		delete(h.subscribers, participantID)
	}
	_, participantOK := h.participants[participantID]
	if participantOK {
		delete(h.participants, participantID)
	}
	h.mu.Unlock()

	if subOK {
		sub.conn.Close()
	}
	if !participantOK {
		return
	}

	// A departed holder must never leave a point permanently locked.
	for _, shipID := range h.shipIDs {
		h.ships[shipID].deliver(shipEnvelope{cmd: &Command{
			ShipID:        shipID,
			ParticipantID: participantID,
			Type:          CommandReleaseAll,
			IssuedAt:      time.Now(),
		}})
	}

	logginglifecycle.Disconnect(context.Background(), h.publisher, h.tick.Load(), logging.ParticipantRef(participantID), reason)
}

// DisconnectSubscriber tears the participant down only if sub is still the
// registered connection. A reconnect replaces the subscriber and closes the
// old socket, which makes the old read loop fail; that failure must not take
// the new connection (or the participant's control points) with it.
func (h *Hub) DisconnectSubscriber(participantID string, sub *Subscriber, reason string) {
	h.mu.Lock()
	current, registered := h.subscribers[participantID]
	h.mu.Unlock()

	if registered && current != sub {
		sub.conn.Close()
		return
	}
	h.Disconnect(participantID, reason)
}

// UpdateHeartbeat records the most recent heartbeat time and RTT.
func (h *Hub) UpdateHeartbeat(participantID string, receivedAt time.Time, clientSent int64) (time.Duration, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	state, ok := h.participants[participantID]
	if !ok {
		return 0, false
	}

	state.lastHeartbeat = receivedAt

	if clientSent > 0 {
		clientTime := time.UnixMilli(clientSent)
		if clientTime.Before(receivedAt.Add(5 * time.Second)) {
			rtt := receivedAt.Sub(clientTime)
			if rtt < 0 {
				rtt = 0
			}
			state.lastRTT = rtt
		}
	}

	return state.lastRTT, true
}

// StageCommand routes a validated command to its ship's mailbox. The only
// rejections surfaced to the transport are routing-level ones; everything
// past the mailbox resolves without a reply.
func (h *Hub) StageCommand(cmd Command) (bool, string) {
	if !h.HasParticipant(cmd.ParticipantID) {
		h.telemetry.RecordCommandRejected(CommandRejectUnknownActor)
		return false, CommandRejectUnknownActor
	}
	actor, ok := h.ships[cmd.ShipID]
	if !ok {
		h.telemetry.RecordCommandRejected(CommandRejectUnknownShip)
		return false, CommandRejectUnknownShip
	}
	if cmd.IssuedAt.IsZero() {
		cmd.IssuedAt = time.Now()
	}
	if !actor.deliver(shipEnvelope{cmd: &cmd}) {
		h.telemetry.RecordCommandRejected(CommandRejectQueueFull)
		return false, CommandRejectQueueFull
	}
	return true, ""
}

// advance runs a single simulation step across the fleet and returns the
// fresh snapshots plus subscribers to close due to heartbeat timeouts.
func (h *Hub) advance(now time.Time, dt float64) ([]Ship, []*Subscriber) {
	h.mu.Lock()
	toClose := make([]*Subscriber, 0)
	stale := make([]string, 0)
	for id, state := range h.participants {
		if now.Sub(state.lastHeartbeat) > disconnectAfter {
			stale = append(stale, id)
			if sub, ok := h.subscribers[id]; ok {
				toClose = append(toClose, sub)
			}
		}
	}
	poses := make(map[string]ShipPose, len(h.lastPoses))
	for id, pose := range h.lastPoses {
		poses[id] = pose
	}
	h.mu.Unlock()

	for _, id := range stale {
		log.Printf("disconnecting %s due to heartbeat timeout", id)
		h.Disconnect(id, "heartbeat_timeout")
	}

	h.tick.Add(1)

	// Tick every actor in stable order. The reply wait keeps the broadcast
	// coherent: each snapshot reflects a fully stepped ship.
	ships := make([]Ship, 0, len(h.shipIDs))
	reply := make(chan Ship, 1)
	for _, shipID := range h.shipIDs {
		h.ships[shipID].deliverTick(&tickRequest{now: now, dt: dt, poses: poses, reply: reply})
		ships = append(ships, <-reply)
	}

	h.mu.Lock()
	h.lastSnapshots = ships
	h.lastPoses = make(map[string]ShipPose, len(ships))
	for _, ship := range ships {
		h.lastPoses[ship.ID] = ship.ShipPose
	}
	h.mu.Unlock()

	return ships, toClose
}

// Run drives the fixed-rate tick loop and the broadcast event loop until the
// stop channel closes.
func (h *Hub) Run(stop <-chan struct{}) {
	go h.eventLoop(stop)

	ticker := time.NewTicker(time.Second / tickRate)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			if dt <= 0 {
				dt = 1.0 / float64(tickRate)
			}
			last = now

			started := time.Now()
			ships, toClose := h.advance(now, dt)
			for _, sub := range toClose {
				sub.conn.Close()
			}
			h.broadcastState(ships)
			h.telemetry.RecordTickDuration(time.Since(started))
		}
	}
}

// eventLoop forwards actor broadcasts: projectile spawns go to every
// subscriber, damage events additionally route to the target ship's mailbox
// so its authority applies them as ground truth.
func (h *Hub) eventLoop(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case evt := <-h.events:
			switch {
			case evt.spawn != nil:
				h.broadcastJSON(projectileSpawnMessage{
					Ver:        ProtocolVersion,
					Type:       MessageTypeProjectileSpawn,
					Projectile: *evt.spawn,
				})
			case evt.damage != nil:
				if target, ok := h.ships[evt.damage.TargetShip]; ok {
					damage := *evt.damage
					// Blocking send off the event loop so a full target
					// mailbox cannot stall spawn broadcasts.
					go func() {
						target.inbox <- shipEnvelope{damage: &damage}
					}()
				}
				h.broadcastJSON(damageMessage{
					Ver:   ProtocolVersion,
					Type:  MessageTypeDamage,
					Event: *evt.damage,
				})
			}
		}
	}
}

// snapshotLocked returns the fleet snapshots captured on the last tick.
func (h *Hub) snapshotLocked() []Ship {
	ships := make([]Ship, len(h.lastSnapshots))
	copy(ships, h.lastSnapshots)
	return ships
}

// broadcastState sends the latest world snapshot to every subscriber.
func (h *Hub) broadcastState(ships []Ship) {
	if ships == nil {
		h.mu.Lock()
		ships = h.snapshotLocked()
		h.mu.Unlock()
	}

	msg := stateMessage{
		Ver:        ProtocolVersion,
		Type:       MessageTypeState,
		Ships:      ships,
		Tick:       h.tick.Load(),
		Sequence:   h.sequence.Add(1),
		ServerTime: time.Now().UnixMilli(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("failed to marshal state message: %v", err)
		return
	}
	h.telemetry.RecordBroadcast(len(data), len(ships))
	h.broadcastRaw(data)
}

func (h *Hub) broadcastJSON(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("failed to marshal broadcast: %v", err)
		return
	}
	h.telemetry.RecordBroadcast(len(data), 1)
	h.broadcastRaw(data)
}

func (h *Hub) broadcastRaw(data []byte) {
	h.mu.Lock()
	subs := make(map[string]*Subscriber, len(h.subscribers))
	for id, sub := range h.subscribers {
		subs[id] = sub
	}
	h.mu.Unlock()

	for id, sub := range subs {
		if err := sub.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("failed to send update to %s: %v", id, err)
			h.DisconnectSubscriber(id, sub, "write_failed")
		}
	}
}

// MarshalSnapshot encodes a state message for the given ships, returning the
// payload and the entity count for telemetry. Used for the initial state sent
// to a fresh subscriber.
func (h *Hub) MarshalSnapshot(ships []Ship) ([]byte, int, error) {
	msg := stateMessage{
		Ver:        ProtocolVersion,
		Type:       MessageTypeState,
		Ships:      ships,
		Tick:       h.tick.Load(),
		Sequence:   h.sequence.Load(),
		ServerTime: time.Now().UnixMilli(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, 0, fmt.Errorf("marshal snapshot: %w", err)
	}
	return data, len(ships), nil
}

// RecordTelemetryBroadcast feeds transport-level sends into the counters.
func (h *Hub) RecordTelemetryBroadcast(bytes, entities int) {
	h.telemetry.RecordBroadcast(bytes, entities)
}

// DiagnosticsSnapshot exposes heartbeat and telemetry data for /diagnostics.
func (h *Hub) DiagnosticsSnapshot() diagnosticsSnapshot {
	h.mu.Lock()
	participants := make([]diagnosticsParticipant, 0, len(h.participants))
	for _, state := range h.participants {
		participants = append(participants, diagnosticsParticipant{
			Ver:           ProtocolVersion,
			ID:            state.ID,
			LastHeartbeat: state.lastHeartbeat.UnixMilli(),
			RTTMillis:     state.lastRTT.Milliseconds(),
		})
	}
	h.mu.Unlock()

	sort.Slice(participants, func(i, j int) bool { return participants[i].ID < participants[j].ID })
	return diagnosticsSnapshot{
		Ver:          ProtocolVersion,
		Participants: participants,
		Telemetry:    h.telemetry.Snapshot(),
	}
}

// MetricsHandler serves Prometheus metrics for this hub.
func (h *Hub) MetricsHandler() http.Handler {
	return h.telemetry.MetricsHandler()
}
