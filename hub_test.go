package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func newTestHub() *Hub {
	cfg := WorldConfig{
		Ships: []ShipSpawn{
			{ID: "ship-1", X: 0, Y: 0},
			{ID: "ship-2", X: 900, Y: 0},
		},
	}
	return NewHub(cfg, nil)
}

func wheelOwner(ships []Ship, shipID string) string {
	for _, ship := range ships {
		if ship.ID != shipID {
			continue
		}
		for _, view := range ship.ControlPoints {
			if view.Name == ControlPointWheel {
				return view.Owner
			}
		}
	}
	return ""
}

func TestJoinAssignsUniqueParticipants(t *testing.T) {
	hub := newTestHub()

	first := hub.Join()
	second := hub.Join()

	if first.ID == second.ID {
		t.Fatalf("duplicate participant id %q", first.ID)
	}
	if first.Ver != ProtocolVersion {
		t.Fatalf("join ver = %d", first.Ver)
	}
	if len(first.Ships) != 2 {
		t.Fatalf("join carried %d ships, want 2", len(first.Ships))
	}
	if first.Config.Physics.MuzzleSpeed <= 0 {
		t.Fatalf("join config missing physics constants")
	}
	if !hub.HasParticipant(first.ID) || !hub.HasParticipant(second.ID) {
		t.Fatalf("joined participants not registered")
	}
}

func TestStageCommandRejectsUnknownParticipantAndShip(t *testing.T) {
	hub := newTestHub()

	if ok, reason := hub.StageCommand(Command{ShipID: "ship-1", ParticipantID: "ghost", Type: CommandGrab, Grab: &GrabCommand{Point: ControlPointWheel}}); ok || reason != CommandRejectUnknownActor {
		t.Fatalf("ghost participant staged (reason=%s)", reason)
	}

	join := hub.Join()
	if ok, reason := hub.StageCommand(Command{ShipID: "flying-dutchman", ParticipantID: join.ID, Type: CommandGrab, Grab: &GrabCommand{Point: ControlPointWheel}}); ok || reason != CommandRejectUnknownShip {
		t.Fatalf("unknown ship staged (reason=%s)", reason)
	}

	snapshot := hub.telemetry.Snapshot()
	if snapshot.CommandsRejected != 2 {
		t.Fatalf("commandsRejected = %d, want 2", snapshot.CommandsRejected)
	}
}

func TestAdvanceProducesOrderedCoherentSnapshots(t *testing.T) {
	hub := newTestHub()
	now := time.Now()

	ships, _ := hub.advance(now, 0.05)
	if len(ships) != 2 {
		t.Fatalf("advance returned %d ships", len(ships))
	}
	if ships[0].ID != "ship-1" || ships[1].ID != "ship-2" {
		t.Fatalf("snapshot order %q,%q not stable", ships[0].ID, ships[1].ID)
	}

	before := hub.tick.Load()
	hub.advance(now.Add(50*time.Millisecond), 0.05)
	if hub.tick.Load() != before+1 {
		t.Fatalf("tick did not advance monotonically")
	}
}

func TestStagedGrabAppearsInNextSnapshot(t *testing.T) {
	hub := newTestHub()
	join := hub.Join()

	if ok, reason := hub.StageCommand(Command{
		ShipID:        "ship-1",
		ParticipantID: join.ID,
		Type:          CommandGrab,
		Grab:          &GrabCommand{Point: ControlPointWheel},
	}); !ok {
		t.Fatalf("grab not staged: %s", reason)
	}

	ships, _ := hub.advance(time.Now(), 0.05)
	if owner := wheelOwner(ships, "ship-1"); owner != join.ID {
		t.Fatalf("wheel owner = %q, want %q", owner, join.ID)
	}
}

func TestDisconnectForcesReleaseOnEveryShip(t *testing.T) {
	hub := newTestHub()
	join := hub.Join()

	hub.StageCommand(Command{ShipID: "ship-1", ParticipantID: join.ID, Type: CommandGrab, Grab: &GrabCommand{Point: ControlPointWheel}})
	hub.StageCommand(Command{ShipID: "ship-2", ParticipantID: join.ID, Type: CommandGrab, Grab: &GrabCommand{Point: ControlPointSails}})
	hub.advance(time.Now(), 0.05)

	hub.Disconnect(join.ID, "test")
	if hub.HasParticipant(join.ID) {
		t.Fatalf("participant survived disconnect")
	}

	ships, _ := hub.advance(time.Now(), 0.05)
	if owner := wheelOwner(ships, "ship-1"); owner != "" {
		t.Fatalf("ship-1 wheel still owned by %q after disconnect", owner)
	}
	for _, ship := range ships {
		for _, view := range ship.ControlPoints {
			if view.Owner != "" {
				t.Fatalf("%s %s still owned by %q after disconnect", ship.ID, view.Name, view.Owner)
			}
		}
	}
}

// dialTestSocket upgrades a loopback connection and returns the server side.
func dialTestSocket(t *testing.T) *websocket.Conn {
	t.Helper()

	upgrader := websocket.Upgrader{}
	conns := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns <- conn
	}))
	t.Cleanup(srv.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	serverConn := <-conns
	t.Cleanup(func() { serverConn.Close() })
	return serverConn
}

func TestStaleConnectionFailureKeepsReconnectedSubscriber(t *testing.T) {
	hub := newTestHub()
	join := hub.Join()

	hub.StageCommand(Command{ShipID: "ship-1", ParticipantID: join.ID, Type: CommandGrab, Grab: &GrabCommand{Point: ControlPointWheel}})
	hub.advance(time.Now(), 0.05)

	oldSub, _, ok := hub.Subscribe(join.ID, dialTestSocket(t))
	if !ok {
		t.Fatalf("first subscribe rejected")
	}

	// Reconnect replaces the subscriber and closes the old socket, which
	// makes the old read loop report a failure shortly after.
	newSub, _, ok := hub.Subscribe(join.ID, dialTestSocket(t))
	if !ok {
		t.Fatalf("second subscribe rejected")
	}

	hub.DisconnectSubscriber(join.ID, oldSub, "read_failed")

	if !hub.HasParticipant(join.ID) {
		t.Fatalf("stale connection failure disconnected the participant")
	}
	hub.mu.Lock()
	current := hub.subscribers[join.ID]
	hub.mu.Unlock()
	if current != newSub {
		t.Fatalf("stale connection failure removed the reconnected subscriber")
	}

	ships, _ := hub.advance(time.Now(), 0.05)
	if owner := wheelOwner(ships, "ship-1"); owner != join.ID {
		t.Fatalf("wheel owner = %q after stale teardown, want %q", owner, join.ID)
	}

	// The live connection failing still tears everything down.
	hub.DisconnectSubscriber(join.ID, newSub, "read_failed")
	if hub.HasParticipant(join.ID) {
		t.Fatalf("live connection failure did not disconnect the participant")
	}
}

func TestUpdateHeartbeatTracksRTT(t *testing.T) {
	hub := newTestHub()
	join := hub.Join()

	received := time.Now()
	sent := received.Add(-40 * time.Millisecond)
	rtt, ok := hub.UpdateHeartbeat(join.ID, received, sent.UnixMilli())
	if !ok {
		t.Fatalf("heartbeat for live participant rejected")
	}
	if rtt < 30*time.Millisecond || rtt > 60*time.Millisecond {
		t.Fatalf("rtt = %v, want about 40ms", rtt)
	}

	if _, ok := hub.UpdateHeartbeat("ghost", received, sent.UnixMilli()); ok {
		t.Fatalf("heartbeat accepted for unknown participant")
	}
}

func TestStaleHeartbeatDisconnects(t *testing.T) {
	hub := newTestHub()
	join := hub.Join()

	// Age the participant past the disconnect threshold.
	hub.mu.Lock()
	hub.participants[join.ID].lastHeartbeat = time.Now().Add(-disconnectAfter - time.Second)
	hub.mu.Unlock()

	hub.advance(time.Now(), 0.05)
	if hub.HasParticipant(join.ID) {
		t.Fatalf("stale participant survived the tick")
	}
}

func TestMarshalSnapshotCarriesProtocolEnvelope(t *testing.T) {
	hub := newTestHub()
	ships, _ := hub.advance(time.Now(), 0.05)

	data, entities, err := hub.MarshalSnapshot(ships)
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}
	if entities != 2 {
		t.Fatalf("entities = %d, want 2", entities)
	}
	if len(data) == 0 {
		t.Fatalf("empty snapshot payload")
	}
}

func TestDiagnosticsSnapshotListsParticipants(t *testing.T) {
	hub := newTestHub()
	a := hub.Join()
	b := hub.Join()

	snap := hub.DiagnosticsSnapshot()
	if len(snap.Participants) != 2 {
		t.Fatalf("diagnostics listed %d participants, want 2", len(snap.Participants))
	}
	seen := map[string]bool{}
	for _, p := range snap.Participants {
		seen[p.ID] = true
	}
	if !seen[a.ID] || !seen[b.ID] {
		t.Fatalf("diagnostics missing joined participants: %+v", snap.Participants)
	}
	if snap.Participants[0].ID > snap.Participants[1].ID {
		t.Fatalf("participants not sorted: %q, %q", snap.Participants[0].ID, snap.Participants[1].ID)
	}
}
