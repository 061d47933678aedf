package game

import (
	"fmt"
	"time"
)

// EndFunc reports that the match on slot is over.
type EndFunc func(slot *Slot)

// Library is the game engine. It owns the rules of a match and the match state
// stored on a slot; the server tells it when matches start and the library
// calls back through onEnd once a match finishes on its own. onEnd is never
// called from within InitMatch or EndMatch, and not at all after EndMatch.
type Library interface {
	NumCharacters() int
	InitMatch(slot *Slot, players []Player, onEnd EndFunc) error
	EndMatch(slot *Slot)
}

// Match is the match state kept by StandardLibrary.
type Match struct {
	Players   []Player
	StartedAt time.Time
	Turn      int

	timer *time.Timer
}

// StandardLibrary is the built-in engine binding: it validates characters and
// keeps the bookkeeping of a match on its slot. A match ends after
// MatchDuration; zero lets matches run until a player leaves.
type StandardLibrary struct {
	Characters    int
	MatchDuration time.Duration
}

func (l *StandardLibrary) NumCharacters() int { return l.Characters }

func (l *StandardLibrary) InitMatch(slot *Slot, players []Player, onEnd EndFunc) error {
	if len(players) != 2 {
		return fmt.Errorf("a match needs 2 players, got %d", len(players))
	}
	for _, p := range players {
		if int(p.Character) >= l.Characters {
			return fmt.Errorf("player %s selected unknown character %d", p.Login, p.Character)
		}
	}
	slot.SetPlayers(players)
	m := &Match{
		Players:   append([]Player(nil), players...),
		StartedAt: time.Now(),
	}
	if l.MatchDuration > 0 && onEnd != nil {
		m.timer = time.AfterFunc(l.MatchDuration, func() { onEnd(slot) })
	}
	slot.SetMatchState(m)
	return nil
}

func (l *StandardLibrary) EndMatch(slot *Slot) {
	if m, ok := slot.MatchState().(*Match); ok && m.timer != nil {
		m.timer.Stop()
	}
	slot.SetMatchState(nil)
}
