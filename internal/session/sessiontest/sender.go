// Package sessiontest provides an in-memory transport for session tests.
package sessiontest

import (
	"errors"
	"sync"

	"github.com/hoo-game/hoo-server/internal/packets"
)

var ErrClosed = errors.New("sender closed")

// Sender records every envelope sent to it.
type Sender struct {
	mu        sync.Mutex
	envelopes []*packets.Envelope
	closed    bool
}

func (s *Sender) Send(env *packets.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.envelopes = append(s.envelopes, env)
	return nil
}

func (s *Sender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Sender) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Envelopes returns a copy of everything sent so far.
func (s *Sender) Envelopes() []*packets.Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*packets.Envelope(nil), s.envelopes...)
}

// Types returns the type codes of everything sent so far.
func (s *Sender) Types() []uint16 {
	var types []uint16
	for _, env := range s.Envelopes() {
		types = append(types, env.Type)
	}
	return types
}

// Last decodes the most recent envelope into msg.
func (s *Sender) Last(msg packets.Message) error {
	envelopes := s.Envelopes()
	if len(envelopes) == 0 {
		return errors.New("nothing was sent")
	}
	return packets.Decode(envelopes[len(envelopes)-1], msg)
}

// Find decodes the most recent envelope of msg's type into msg.
func (s *Sender) Find(msg packets.Message) bool {
	envelopes := s.Envelopes()
	for i := len(envelopes) - 1; i >= 0; i-- {
		if envelopes[i].Class == msg.Class() && envelopes[i].Type == msg.Type() {
			return packets.Decode(envelopes[i], msg) == nil
		}
	}
	return false
}
