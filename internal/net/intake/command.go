// Package intake stages decoded client messages into ship mailboxes,
// attaching actor identity and arrival time on the way in.
package intake

import (
	"time"

	server "broadside/server"
	"broadside/server/internal/net/proto"
)

// CommandContext carries the dependencies needed to stage one command.
type CommandContext struct {
	Hub *server.Hub
	Now func() time.Time
}

// StageClientCommand validates the message, stamps it with the participant's
// identity, and routes it to the addressed ship's mailbox. The returned
// reason is one of the server.CommandReject* values when staging fails.
func StageClientCommand(ctx CommandContext, participantID string, msg proto.ClientMessage) (server.Command, bool, string) {
	var zero server.Command

	command, ok := proto.ShipCommand(msg)
	if !ok {
		return zero, false, server.CommandRejectInvalidAction
	}

	command.ParticipantID = participantID
	if ctx.Now != nil {
		command.IssuedAt = ctx.Now()
	} else {
		command.IssuedAt = time.Now()
	}

	if ctx.Hub == nil {
		return zero, false, server.CommandRejectQueueFull
	}
	if ok, reason := ctx.Hub.StageCommand(command); !ok {
		return zero, false, reason
	}

	return command, true, ""
}
