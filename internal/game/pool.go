package game

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/hoo-game/hoo-server/internal/session"
)

var (
	ErrInvalidSlotID      = errors.New("invalid game slot id")
	ErrSlotNotActive      = errors.New("game slot is not active")
	ErrAlreadyInitialized = errors.New("game slots are already initialized")
)

// Pool hands out a fixed number of game slots. Every slot id is at all times
// either in the free stack or in the active set, never both.
type Pool struct {
	slots []*Slot

	mu   sync.Mutex
	free []int
	// Dense list of active ids; pos[id] is the index of id in active or -1.
	active []int
	pos    []int

	initialized atomic.Bool
}

func NewPool(capacity int) *Pool {
	p := &Pool{
		slots:  make([]*Slot, capacity),
		free:   make([]int, capacity),
		active: make([]int, 0, capacity),
		pos:    make([]int, capacity),
	}
	for i := range p.slots {
		p.slots[i] = &Slot{id: i}
		p.free[i] = capacity - 1 - i
		p.pos[i] = -1
	}
	return p
}

func (p *Pool) Capacity() int { return len(p.slots) }

// InitGames wires the shared collaborators into every slot. It may only be
// called once, before any slot is handed out.
func (p *Pool) InitGames(library Library, sessions *session.Manager) error {
	if !p.initialized.CompareAndSwap(false, true) {
		return ErrAlreadyInitialized
	}
	for _, s := range p.slots {
		s.library = library
		s.sessions = sessions
	}
	return nil
}

// GetNewGame takes a free slot, marks it active and resets its match state.
// It returns false when every slot is in use.
func (p *Pool) GetNewGame() (*Slot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.free) == 0 {
		return nil, false
	}
	id := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	p.pos[id] = len(p.active)
	p.active = append(p.active, id)

	s := p.slots[id]
	s.reset()
	s.generation.Add(1)
	s.active.Store(true)
	return s, true
}

// GetGame is a lock-free indexed lookup. It does not check whether the slot is
// active; use IsActive on the result for that.
func (p *Pool) GetGame(id int) (*Slot, error) {
	if id < 0 || id >= len(p.slots) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSlotID, id)
	}
	return p.slots[id], nil
}

// ReleaseGame returns an active slot to the free stack. Releasing a slot that
// is not active fails with ErrSlotNotActive and changes nothing.
func (p *Pool) ReleaseGame(s *Slot) error {
	if s == nil || s.id < 0 || s.id >= len(p.slots) || p.slots[s.id] != s {
		return ErrInvalidSlotID
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	i := p.pos[s.id]
	if i < 0 {
		return fmt.Errorf("%w: %d", ErrSlotNotActive, s.id)
	}
	last := len(p.active) - 1
	moved := p.active[last]
	p.active[i] = moved
	p.pos[moved] = i
	p.active = p.active[:last]
	p.pos[s.id] = -1
	p.free = append(p.free, s.id)

	s.active.Store(false)
	s.reset()
	return nil
}

// IsActive reports in O(1) whether slot id is in use.
func (p *Pool) IsActive(id int) bool {
	if id < 0 || id >= len(p.slots) {
		return false
	}
	return p.slots[id].active.Load()
}

// Active returns a snapshot of the active slots.
func (p *Pool) Active() []*Slot {
	p.mu.Lock()
	defer p.mu.Unlock()
	slots := make([]*Slot, len(p.active))
	for i, id := range p.active {
		slots[i] = p.slots[id]
	}
	return slots
}

func (p *Pool) ActiveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.active)
}
