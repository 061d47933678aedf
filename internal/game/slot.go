package game

import (
	"sync"
	"sync/atomic"

	"github.com/hoo-game/hoo-server/internal/session"
)

// Player is one participant of a match.
type Player struct {
	SessionID int
	Login     string
	Character uint32
}

// Slot is a pre-allocated, reusable unit of per-match state. Slots are never
// freed; a new match re-initializes a recycled slot.
type Slot struct {
	id int

	// Published by the pool so GetGame readers see a consistent active flag
	// without taking the pool lock.
	active     atomic.Bool
	generation atomic.Uint64

	// Shared read-only collaborators, set once by InitGames.
	library  Library
	sessions *session.Manager

	mu         sync.Mutex
	players    []Player
	matchState interface{}
}

func (s *Slot) ID() int { return s.id }

// Generation is incremented every time the slot is handed out, so a stale
// reference to a recycled slot can be detected.
func (s *Slot) Generation() uint64 { return s.generation.Load() }

func (s *Slot) IsActive() bool { return s.active.Load() }

func (s *Slot) Library() Library { return s.library }

func (s *Slot) Sessions() *session.Manager { return s.sessions }

func (s *Slot) Players() []Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Player(nil), s.players...)
}

func (s *Slot) SetPlayers(players []Player) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players = append(s.players[:0], players...)
}

// Opponents returns every player of the slot except sessionID.
func (s *Slot) Opponents(sessionID int) []Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	var opponents []Player
	for _, p := range s.players {
		if p.SessionID != sessionID {
			opponents = append(opponents, p)
		}
	}
	return opponents
}

// MatchState is owned by the game library.
func (s *Slot) MatchState() interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.matchState
}

func (s *Slot) SetMatchState(state interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matchState = state
}

func (s *Slot) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players = s.players[:0]
	s.matchState = nil
}
