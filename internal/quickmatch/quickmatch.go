// Package quickmatch pairs logged in sessions first-in-first-out and starts a
// match on a game slot for every pair.
package quickmatch

import (
	"fmt"
	"sync"

	"github.com/hoo-game/hoo-server/internal/core/metrics"
	"github.com/hoo-game/hoo-server/internal/game"
	"github.com/hoo-game/hoo-server/internal/packets"
	"github.com/hoo-game/hoo-server/internal/session"
	"github.com/sirupsen/logrus"
)

// QuickMatch is the matchmaking state layered on the session manager. Lock
// order is QuickMatch.mu before any pool or session lock, and session
// disconnects are never triggered while mu is held.
type QuickMatch struct {
	sessions *session.Manager
	pool     *game.Pool
	library  game.Library
	logger   *logrus.Logger
	metrics  *metrics.Metrics

	mu      sync.Mutex
	queue   []int
	waiting map[int]bool
	// Session id to the slot hosting its match.
	games map[int]*game.Slot
}

// New creates the matchmaker and registers its disconnect hook on sessions.
func New(sessions *session.Manager, pool *game.Pool, library game.Library, logger *logrus.Logger, m *metrics.Metrics) *QuickMatch {
	qm := &QuickMatch{
		sessions: sessions,
		pool:     pool,
		library:  library,
		logger:   logger,
		metrics:  m,
		waiting:  make(map[int]bool),
		games:    make(map[int]*game.Slot),
	}
	sessions.OnDisconnect(qm.onDisconnect)
	return qm
}

// QuickMatch queues a logged in session, answers it and pairs the queue. It
// returns false when the session was already waiting or already in a match.
func (qm *QuickMatch) QuickMatch(id int) (bool, error) {
	if _, err := qm.sessions.Require(id, session.LoggedIn, "quick match"); err != nil {
		return false, err
	}

	qm.mu.Lock()
	queued := !qm.waiting[id] && qm.games[id] == nil
	if queued {
		qm.waiting[id] = true
	}
	qm.mu.Unlock()

	result := packets.LookingForOpponent
	if !queued {
		result = packets.AlreadyLookingForOpponent
	}
	err := qm.sessions.SendAnswer(id, &packets.UserQuickMatchAnswer{Result: result})
	if !queued {
		return false, err
	}

	// The session joins the queue only once answered so that MATCH_FOUND
	// cannot overtake the answer.
	qm.mu.Lock()
	if err == nil && qm.waiting[id] {
		qm.queue = append(qm.queue, id)
	} else {
		delete(qm.waiting, id)
	}
	qm.mu.Unlock()
	if err != nil {
		return false, err
	}
	qm.pair()
	return true, nil
}

// CancelQuickMatch removes a waiting session from the queue and answers it. It
// returns false when the session was not waiting.
func (qm *QuickMatch) CancelQuickMatch(id int) (bool, error) {
	if _, err := qm.sessions.Require(id, session.LoggedIn, "cancel quick match"); err != nil {
		return false, err
	}

	qm.mu.Lock()
	cancelled := qm.removeLocked(id)
	qm.mu.Unlock()

	result := packets.QuickMatchCancelled
	if !cancelled {
		result = packets.NotLookingForOpponent
	}
	return cancelled, qm.sessions.SendAnswer(id, &packets.UserCancelQuickMatchAnswer{Result: result})
}

// Waiting is the number of queued sessions.
func (qm *QuickMatch) Waiting() int {
	qm.mu.Lock()
	defer qm.mu.Unlock()
	return len(qm.queue)
}

// Game returns the slot hosting the session's match, if any.
func (qm *QuickMatch) Game(id int) (*game.Slot, bool) {
	qm.mu.Lock()
	defer qm.mu.Unlock()
	slot, ok := qm.games[id]
	return slot, ok
}

func (qm *QuickMatch) removeLocked(id int) bool {
	if !qm.waiting[id] {
		return false
	}
	delete(qm.waiting, id)
	for i, queued := range qm.queue {
		if queued == id {
			qm.queue = append(qm.queue[:i], qm.queue[i+1:]...)
			break
		}
	}
	return true
}

type notification struct {
	sessionID int
	msg       packets.Message
}

// pair starts a match for the two longest waiting sessions until fewer than
// two are queued or the pool is exhausted. An exhausted pool leaves the pair at
// the head of the queue; pairing is retried when a game ends.
func (qm *QuickMatch) pair() {
	var (
		notifications []notification
		failed        []int
	)

	qm.mu.Lock()
	for len(qm.queue) >= 2 {
		slot, ok := qm.pool.GetNewGame()
		if !ok {
			qm.logger.Warnf("quick match: no free game slot for %d waiting sessions", len(qm.queue))
			break
		}

		ids := []int{qm.queue[0], qm.queue[1]}
		qm.queue = qm.queue[2:]
		players := make([]game.Player, len(ids))
		for i, id := range ids {
			delete(qm.waiting, id)
			players[i] = qm.player(id)
		}

		generation := slot.Generation()
		onEnd := func(slot *game.Slot) {
			if err := qm.endGame(slot, generation); err != nil {
				qm.logger.Debugf("quick match: %v", err)
			}
		}
		if err := qm.library.InitMatch(slot, players, onEnd); err != nil {
			qm.logger.Errorf("quick match: error starting match on slot %d: %v", slot.ID(), err)
			if err := qm.pool.ReleaseGame(slot); err != nil {
				qm.logger.Errorf("quick match: %v", err)
			}
			failed = append(failed, ids...)
			continue
		}

		for i, id := range ids {
			qm.games[id] = slot
			notifications = append(notifications, notification{id, &packets.MatchFound{
				GameID:   uint32(slot.ID()),
				Seat:     uint8(i),
				Opponent: players[1-i].Login,
			}})
		}
		qm.metrics.MatchFormed()
		qm.logger.Infof("quick match: %s vs %s on slot %d", players[0].Login, players[1].Login, slot.ID())
	}
	qm.mu.Unlock()

	for _, n := range notifications {
		if err := qm.sessions.SendAnswer(n.sessionID, n.msg); err != nil {
			qm.logger.Debugf("quick match: %v", err)
		}
	}
	for _, id := range failed {
		qm.sessions.Disconnect(id, packets.ReasonInternalError)
	}
}

func (qm *QuickMatch) player(id int) game.Player {
	p := game.Player{SessionID: id}
	s, err := qm.sessions.GetSession(id)
	if err != nil {
		return p
	}
	if account := s.Account(); account != nil {
		p.Login = account.Login
		p.Character = account.Character
	}
	return p
}

// EndGame ends the match hosted by slot, tells its players with MATCH_ENDED,
// releases the slot and pairs sessions that were waiting for one.
func (qm *QuickMatch) EndGame(slot *game.Slot) error {
	return qm.endGame(slot, slot.Generation())
}

// endGame refuses a slot that was handed out again since generation.
func (qm *QuickMatch) endGame(slot *game.Slot, generation uint64) error {
	qm.mu.Lock()
	if slot.Generation() != generation {
		qm.mu.Unlock()
		return fmt.Errorf("%w: %d was reused", game.ErrSlotNotActive, slot.ID())
	}
	players := slot.Players()
	err := qm.endGameLocked(slot)
	qm.mu.Unlock()
	if err != nil {
		return err
	}

	qm.logger.Infof("quick match: match on slot %d ended", slot.ID())
	for _, p := range players {
		if err := qm.sessions.SendAnswer(p.SessionID, &packets.MatchEnded{GameID: uint32(slot.ID())}); err != nil {
			qm.logger.Debugf("quick match: %v", err)
		}
	}
	qm.pair()
	return nil
}

// LeaveGame forfeits the session's match: it is answered, its opponents get
// OPPONENT_LEFT and the slot is released. It returns false when the session was
// not in a match.
func (qm *QuickMatch) LeaveGame(id int) (bool, error) {
	if _, err := qm.sessions.Require(id, session.LoggedIn, "leave game"); err != nil {
		return false, err
	}

	qm.mu.Lock()
	slot, opponents, left := qm.leaveLocked(id)
	qm.mu.Unlock()

	err := qm.sessions.SendAnswer(id, &packets.UserLeaveGameAnswer{Left: left})
	if left {
		qm.opponentLeft(slot, opponents)
	}
	return left, err
}

func (qm *QuickMatch) endGameLocked(slot *game.Slot) error {
	if !slot.IsActive() {
		return fmt.Errorf("%w: %d", game.ErrSlotNotActive, slot.ID())
	}
	for _, p := range slot.Players() {
		if qm.games[p.SessionID] == slot {
			delete(qm.games, p.SessionID)
		}
	}
	qm.library.EndMatch(slot)
	return qm.pool.ReleaseGame(slot)
}

// leaveLocked ends the match of session id, returning its slot and the players
// left behind.
func (qm *QuickMatch) leaveLocked(id int) (*game.Slot, []game.Player, bool) {
	slot, inGame := qm.games[id]
	if !inGame {
		return nil, nil, false
	}
	opponents := slot.Opponents(id)
	if err := qm.endGameLocked(slot); err != nil {
		qm.logger.Errorf("quick match: error ending game of session %d: %v", id, err)
	}
	return slot, opponents, true
}

func (qm *QuickMatch) opponentLeft(slot *game.Slot, opponents []game.Player) {
	for _, p := range opponents {
		if err := qm.sessions.SendAnswer(p.SessionID, &packets.OpponentLeft{GameID: uint32(slot.ID())}); err != nil {
			qm.logger.Debugf("quick match: %v", err)
		}
	}
	qm.pair()
}

func (qm *QuickMatch) onDisconnect(id int) {
	qm.mu.Lock()
	qm.removeLocked(id)
	slot, opponents, inGame := qm.leaveLocked(id)
	qm.mu.Unlock()

	if inGame {
		qm.opponentLeft(slot, opponents)
	}
}
