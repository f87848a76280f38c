package intake

import (
	"testing"
	"time"

	server "broadside/server"
	"broadside/server/internal/net/proto"
)

func testHub() *server.Hub {
	return server.NewHub(server.WorldConfig{
		Ships: []server.ShipSpawn{{ID: "ship-1"}},
	}, nil)
}

func TestStageClientCommandRoutesValidMessage(t *testing.T) {
	hub := testHub()
	join := hub.Join()

	issued := time.UnixMilli(42_000)
	cmd, ok, reason := StageClientCommand(CommandContext{Hub: hub, Now: func() time.Time { return issued }}, join.ID, proto.ClientMessage{
		Type:  proto.TypeGrabControl,
		Ship:  "ship-1",
		Point: server.ControlPointWheel,
	})
	if !ok {
		t.Fatalf("valid message rejected: %s", reason)
	}
	if cmd.ParticipantID != join.ID {
		t.Fatalf("participant = %q, want %q", cmd.ParticipantID, join.ID)
	}
	if !cmd.IssuedAt.Equal(issued) {
		t.Fatalf("issuedAt = %v, want clock value %v", cmd.IssuedAt, issued)
	}
}

func TestStageClientCommandRejectsMalformedMessage(t *testing.T) {
	hub := testHub()
	join := hub.Join()

	_, ok, reason := StageClientCommand(CommandContext{Hub: hub}, join.ID, proto.ClientMessage{
		Type: "walk_the_plank",
		Ship: "ship-1",
	})
	if ok {
		t.Fatalf("unknown tag staged")
	}
	if reason != server.CommandRejectInvalidAction {
		t.Fatalf("reason = %s, want %s", reason, server.CommandRejectInvalidAction)
	}
}

func TestStageClientCommandRejectsUnknownParticipant(t *testing.T) {
	hub := testHub()

	_, ok, reason := StageClientCommand(CommandContext{Hub: hub}, "ghost", proto.ClientMessage{
		Type:  proto.TypeGrabControl,
		Ship:  "ship-1",
		Point: server.ControlPointWheel,
	})
	if ok {
		t.Fatalf("ghost participant staged")
	}
	if reason != server.CommandRejectUnknownActor {
		t.Fatalf("reason = %s, want %s", reason, server.CommandRejectUnknownActor)
	}
}

func TestStageClientCommandRejectsUnknownShip(t *testing.T) {
	hub := testHub()
	join := hub.Join()

	_, ok, reason := StageClientCommand(CommandContext{Hub: hub}, join.ID, proto.ClientMessage{
		Type:  proto.TypeGrabControl,
		Ship:  "flying-dutchman",
		Point: server.ControlPointWheel,
	})
	if ok {
		t.Fatalf("unknown ship staged")
	}
	if reason != server.CommandRejectUnknownShip {
		t.Fatalf("reason = %s, want %s", reason, server.CommandRejectUnknownShip)
	}
}
