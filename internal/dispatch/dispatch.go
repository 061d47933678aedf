// Package dispatch routes decoded envelopes to the handler registered for their
// protocol class and type code.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/hoo-game/hoo-server/internal/core/metrics"
	"github.com/hoo-game/hoo-server/internal/packets"
	"github.com/hoo-game/hoo-server/internal/session"
)

// Handler handles one request type. It re-validates the session state it
// needs, sends its answer and returns nil, a *session.ViolationError to have
// the connection dropped with a reason, or any other error for an unexpected failure.
type Handler interface {
	Handle(ctx context.Context, typ uint16, sessionID int, env *packets.Envelope) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, typ uint16, sessionID int, env *packets.Envelope) error

func (f HandlerFunc) Handle(ctx context.Context, typ uint16, sessionID int, env *packets.Envelope) error {
	return f(ctx, typ, sessionID, env)
}

// Table is the dispatch table of one protocol class.
type Table struct {
	class packets.ProtocolClass

	mu       sync.RWMutex
	handlers map[uint16]Handler
}

func NewTable(class packets.ProtocolClass) *Table {
	return &Table{class: class, handlers: make(map[uint16]Handler)}
}

func (t *Table) Class() packets.ProtocolClass { return t.class }

// Register adds the handler for typ. Registering a type twice is an error.
func (t *Table) Register(typ uint16, h Handler) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.handlers[typ]; ok {
		return fmt.Errorf("%s handler for type %#04x already registered", t.class, typ)
	}
	t.handlers[typ] = h
	return nil
}

// RegisterAll registers every handler of handlers, in ascending type order.
func (t *Table) RegisterAll(handlers map[uint16]HandlerFunc) error {
	types := make([]uint16, 0, len(handlers))
	for typ := range handlers {
		types = append(types, typ)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	for _, typ := range types {
		if err := t.Register(typ, handlers[typ]); err != nil {
			return err
		}
	}
	return nil
}

// Types returns the registered type codes in ascending order.
func (t *Table) Types() []uint16 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	types := make([]uint16, 0, len(t.handlers))
	for typ := range t.handlers {
		types = append(types, typ)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Dispatch invokes the handler registered for the envelope's type. Unknown
// types and malformed payloads are INVALID_MESSAGE violations.
func (t *Table) Dispatch(ctx context.Context, env *packets.Envelope) error {
	t.mu.RLock()
	h, ok := t.handlers[env.Type]
	t.mu.RUnlock()
	if !ok {
		return session.Violation(env.SessionID, packets.ReasonInvalidMessage, fmt.Sprintf("%s type %#04x", t.class, env.Type))
	}

	err := h.Handle(ctx, env.Type, env.SessionID, env)
	if errors.Is(err, packets.ErrMalformed) {
		if _, ok := session.AsViolation(err); !ok {
			return &session.ViolationError{
				SessionID: env.SessionID,
				Reason:    packets.ReasonInvalidMessage,
				Op:        err.Error(),
			}
		}
	}
	return err
}

// Dispatcher routes envelopes to the table of their protocol class.
type Dispatcher struct {
	metrics *metrics.Metrics
	tables  map[packets.ProtocolClass]*Table
}

func NewDispatcher(m *metrics.Metrics, tables ...*Table) *Dispatcher {
	d := &Dispatcher{metrics: m, tables: make(map[packets.ProtocolClass]*Table)}
	for _, t := range tables {
		d.tables[t.class] = t
	}
	return d
}

func (d *Dispatcher) Dispatch(ctx context.Context, env *packets.Envelope) error {
	t, ok := d.tables[env.Class]
	if !ok {
		return session.Violation(env.SessionID, packets.ReasonInvalidMessage, env.Class.String())
	}
	d.metrics.MessageDispatched(env.Class.String())
	return t.Dispatch(ctx, env)
}
