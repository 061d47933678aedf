package internal

import (
	"context"

	"github.com/hoo-game/hoo-server/internal/dispatch"
	"github.com/hoo-game/hoo-server/internal/packets"
)

// Backend is the handler set of one protocol class. Every backend shares the
// frontend's listener; messages are routed to it by their class.
type Backend interface {
	// Identifier returns a uniquely identifying string.
	Identifier() string

	// Class is the protocol class whose messages the Backend handles.
	Class() packets.ProtocolClass

	// Init is called before the frontend accepts clients as a hook for the Backend
	// to check its dependencies and perform any necessary initialization.
	Init(ctx context.Context) error

	// Register adds a handler for every request type of the Backend's class.
	Register(t *dispatch.Table) error
}
