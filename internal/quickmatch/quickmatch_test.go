package quickmatch

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hoo-game/hoo-server/internal/core/auth/authtest"
	"github.com/hoo-game/hoo-server/internal/game"
	"github.com/hoo-game/hoo-server/internal/packets"
	"github.com/hoo-game/hoo-server/internal/session"
	"github.com/hoo-game/hoo-server/internal/session/sessiontest"
	"github.com/sirupsen/logrus/hooks/test"
)

const testVersion = 3

var testLogins = []string{"alice", "bob", "carol", "dave"}

type fixture struct {
	sessions *session.Manager
	pool     *game.Pool
	qm       *QuickMatch
}

func setUp(t *testing.T, games int) *fixture {
	t.Helper()
	store := authtest.NewStore(t)
	for _, login := range testLogins {
		authtest.CreateAccount(t, store, login, "pw")
	}
	logger, _ := test.NewNullLogger()
	f := &fixture{
		sessions: session.NewManager(8, testVersion, store, logger, nil),
		pool:     game.NewPool(games),
	}
	library := &game.StandardLibrary{Characters: 2}
	if err := f.pool.InitGames(library, f.sessions); err != nil {
		t.Fatalf("InitGames() returned an unexpected error: %v", err)
	}
	f.qm = New(f.sessions, f.pool, library, logger, nil)
	return f
}

func (f *fixture) connect(t *testing.T) (int, *sessiontest.Sender) {
	t.Helper()
	sender := &sessiontest.Sender{}
	s, ok := f.sessions.Open(sender)
	if !ok {
		t.Fatalf("Open() found no free session")
	}
	if _, err := f.sessions.Connect(s.ID(), packets.ClassUser, testVersion); err != nil {
		t.Fatalf("Connect() returned an unexpected error: %v", err)
	}
	return s.ID(), sender
}

func (f *fixture) login(t *testing.T, login string) (int, *sessiontest.Sender) {
	t.Helper()
	id, sender := f.connect(t)
	result, _, err := f.sessions.Login(context.Background(), id, login, "pw")
	if err != nil || result != packets.LoginOK {
		t.Fatalf("Login(%s) = %v, %v", login, result, err)
	}
	return id, sender
}

func TestQuickMatch_RequiresLogin(t *testing.T) {
	f := setUp(t, 2)
	id, _ := f.connect(t)

	_, err := f.qm.QuickMatch(id)
	v, ok := session.AsViolation(err)
	if !ok || v.Reason != packets.ReasonNotLoggedIn {
		t.Fatalf("expected a NOT_LOGGED_IN violation, got %v", err)
	}
	if _, err := f.qm.CancelQuickMatch(id); err == nil {
		t.Errorf("expected CancelQuickMatch() to require login")
	}
	if f.qm.Waiting() != 0 {
		t.Errorf("expected an empty queue, got %d", f.qm.Waiting())
	}
}

func TestQuickMatch_Pairing(t *testing.T) {
	f := setUp(t, 4)
	alice, aliceSender := f.login(t, "alice")
	bob, bobSender := f.login(t, "bob")

	if queued, err := f.qm.QuickMatch(alice); err != nil || !queued {
		t.Fatalf("QuickMatch(alice) = %v, %v", queued, err)
	}
	if f.qm.Waiting() != 1 || f.pool.ActiveCount() != 0 {
		t.Fatalf("expected alice to wait alone, waiting=%d active=%d", f.qm.Waiting(), f.pool.ActiveCount())
	}
	if queued, err := f.qm.QuickMatch(bob); err != nil || !queued {
		t.Fatalf("QuickMatch(bob) = %v, %v", queued, err)
	}

	if f.qm.Waiting() != 0 {
		t.Errorf("expected an empty queue after pairing, got %d", f.qm.Waiting())
	}
	if f.pool.ActiveCount() != 1 {
		t.Fatalf("expected exactly one active game, got %d", f.pool.ActiveCount())
	}
	slot := f.pool.Active()[0]

	want := []uint16{packets.UserQuickMatchAnswerType, packets.MatchFoundType}
	for name, sender := range map[string]*sessiontest.Sender{"alice": aliceSender, "bob": bobSender} {
		if diff := cmp.Diff(want, sender.Types()); diff != "" {
			t.Errorf("%s sent types diff:\n%s", name, diff)
		}
	}

	var found packets.MatchFound
	if !aliceSender.Find(&found) {
		t.Fatalf("expected alice to receive MATCH_FOUND")
	}
	if found.GameID != uint32(slot.ID()) || found.Seat != 0 || found.Opponent != "bob" {
		t.Errorf("unexpected MATCH_FOUND for alice: %+v", found)
	}
	if !bobSender.Find(&found) || found.Seat != 1 || found.Opponent != "alice" {
		t.Errorf("unexpected MATCH_FOUND for bob: %+v", found)
	}

	for _, id := range []int{alice, bob} {
		if s, ok := f.qm.Game(id); !ok || s != slot {
			t.Errorf("expected session %d to play on slot %d", id, slot.ID())
		}
	}
	if _, ok := slot.MatchState().(*game.Match); !ok {
		t.Errorf("expected the library to initialize the match state")
	}

	// A session in a match cannot queue again.
	if queued, err := f.qm.QuickMatch(alice); err != nil || queued {
		t.Errorf("QuickMatch() while playing = %v, %v; want false, nil", queued, err)
	}
}

func TestQuickMatch_AlreadyWaitingAndCancel(t *testing.T) {
	f := setUp(t, 2)
	alice, sender := f.login(t, "alice")

	_, _ = f.qm.QuickMatch(alice)
	queued, err := f.qm.QuickMatch(alice)
	if err != nil || queued {
		t.Fatalf("second QuickMatch() = %v, %v; want false, nil", queued, err)
	}
	var answer packets.UserQuickMatchAnswer
	if err := sender.Last(&answer); err != nil || answer.Result != packets.AlreadyLookingForOpponent {
		t.Errorf("expected ALREADY_LOOKING_FOR_OPPONENT, got %v (%v)", answer.Result, err)
	}

	cancelled, err := f.qm.CancelQuickMatch(alice)
	if err != nil || !cancelled {
		t.Fatalf("CancelQuickMatch() = %v, %v; want true, nil", cancelled, err)
	}
	cancelled, err = f.qm.CancelQuickMatch(alice)
	if err != nil || cancelled {
		t.Fatalf("second CancelQuickMatch() = %v, %v; want false, nil", cancelled, err)
	}
	var cancelAnswer packets.UserCancelQuickMatchAnswer
	if err := sender.Last(&cancelAnswer); err != nil || cancelAnswer.Result != packets.NotLookingForOpponent {
		t.Errorf("expected NOT_LOOKING_FOR_OPPONENT, got %v (%v)", cancelAnswer.Result, err)
	}
	if f.qm.Waiting() != 0 {
		t.Errorf("expected an empty queue, got %d", f.qm.Waiting())
	}
}

func TestQuickMatch_DisconnectWhileWaiting(t *testing.T) {
	f := setUp(t, 2)
	alice, _ := f.login(t, "alice")
	bob, _ := f.login(t, "bob")

	_, _ = f.qm.QuickMatch(alice)
	f.sessions.Disconnect(alice, packets.ReasonClientClosed)
	if f.qm.Waiting() != 0 {
		t.Fatalf("expected the disconnected session to leave the queue")
	}

	_, _ = f.qm.QuickMatch(bob)
	if f.pool.ActiveCount() != 0 {
		t.Errorf("expected no match with a disconnected session")
	}
}

func TestQuickMatch_PoolExhausted(t *testing.T) {
	f := setUp(t, 1)
	ids := make(map[string]int)
	senders := make(map[string]*sessiontest.Sender)
	for _, login := range testLogins {
		ids[login], senders[login] = f.login(t, login)
		if _, err := f.qm.QuickMatch(ids[login]); err != nil {
			t.Fatalf("QuickMatch(%s) returned an unexpected error: %v", login, err)
		}
	}

	if f.pool.ActiveCount() != 1 || f.qm.Waiting() != 2 {
		t.Fatalf("expected one game and two waiting sessions, active=%d waiting=%d", f.pool.ActiveCount(), f.qm.Waiting())
	}
	var found packets.MatchFound
	if senders["carol"].Find(&found) {
		t.Fatalf("expected carol to keep waiting while the pool is exhausted")
	}

	// Alice leaves: bob is told, the slot is recycled for carol and dave.
	f.sessions.Disconnect(ids["alice"], packets.ReasonClientClosed)

	var left packets.OpponentLeft
	if !senders["bob"].Find(&left) {
		t.Errorf("expected bob to receive OPPONENT_LEFT")
	}
	if _, ok := f.qm.Game(ids["bob"]); ok {
		t.Errorf("expected bob to be out of the ended match")
	}
	if f.qm.Waiting() != 0 || f.pool.ActiveCount() != 1 {
		t.Errorf("expected the waiting pair to be matched, active=%d waiting=%d", f.pool.ActiveCount(), f.qm.Waiting())
	}
	if !senders["carol"].Find(&found) || found.Opponent != "dave" {
		t.Errorf("expected carol to be matched with dave, got %+v", found)
	}
}

func TestQuickMatch_EndGame(t *testing.T) {
	f := setUp(t, 1)
	alice, _ := f.login(t, "alice")
	bob, _ := f.login(t, "bob")
	_, _ = f.qm.QuickMatch(alice)
	_, _ = f.qm.QuickMatch(bob)

	slot, ok := f.qm.Game(alice)
	if !ok {
		t.Fatalf("expected alice to be in a match")
	}
	if err := f.qm.EndGame(slot); err != nil {
		t.Fatalf("EndGame() returned an unexpected error: %v", err)
	}
	if f.pool.ActiveCount() != 0 || slot.MatchState() != nil {
		t.Errorf("expected the slot to be released and cleared")
	}
	if err := f.qm.EndGame(slot); err == nil {
		t.Errorf("expected an error ending a released game")
	}
	if queued, _ := f.qm.QuickMatch(alice); !queued {
		t.Errorf("expected alice to queue again after the match ended")
	}
}

// endingLibrary records the end callback of every match it starts.
type endingLibrary struct {
	game.StandardLibrary
	ends map[*game.Slot]game.EndFunc
}

func (l *endingLibrary) InitMatch(slot *game.Slot, players []game.Player, onEnd game.EndFunc) error {
	l.ends[slot] = onEnd
	return l.StandardLibrary.InitMatch(slot, players, nil)
}

func TestQuickMatch_LibraryEndsMatch(t *testing.T) {
	f := setUp(t, 1)
	library := &endingLibrary{StandardLibrary: game.StandardLibrary{Characters: 2}, ends: make(map[*game.Slot]game.EndFunc)}
	f.qm.library = library

	alice, aliceSender := f.login(t, "alice")
	bob, bobSender := f.login(t, "bob")
	_, _ = f.qm.QuickMatch(alice)
	_, _ = f.qm.QuickMatch(bob)
	slot, ok := f.qm.Game(alice)
	if !ok {
		t.Fatalf("expected alice to be in a match")
	}
	onEnd := library.ends[slot]

	onEnd(slot)

	if f.pool.ActiveCount() != 0 {
		t.Fatalf("expected the slot to be released, got %d active", f.pool.ActiveCount())
	}
	var ended packets.MatchEnded
	for name, sender := range map[string]*sessiontest.Sender{"alice": aliceSender, "bob": bobSender} {
		if err := sender.Last(&ended); err != nil || ended.GameID != uint32(slot.ID()) {
			t.Errorf("expected %s to receive MATCH_ENDED for slot %d, got %+v (%v)", name, slot.ID(), ended, err)
		}
	}

	// Both players queue and are paired again on the recycled slot.
	for _, id := range []int{bob, alice} {
		if queued, err := f.qm.QuickMatch(id); err != nil || !queued {
			t.Fatalf("QuickMatch(%d) after the match ended = %v, %v", id, queued, err)
		}
	}
	if f.pool.ActiveCount() != 1 || f.qm.Waiting() != 0 {
		t.Fatalf("expected a new match, active=%d waiting=%d", f.pool.ActiveCount(), f.qm.Waiting())
	}
	var found packets.MatchFound
	if !aliceSender.Find(&found) || found.Opponent != "bob" || found.Seat != 1 {
		t.Errorf("unexpected MATCH_FOUND for alice: %+v", found)
	}

	// A late report from the first match leaves the new one alone.
	onEnd(slot)
	if f.pool.ActiveCount() != 1 {
		t.Errorf("expected a stale end of match to be ignored")
	}
	if s, ok := f.qm.Game(bob); !ok || s != slot {
		t.Errorf("expected bob to still play on slot %d", slot.ID())
	}
}

func TestQuickMatch_LeaveGame(t *testing.T) {
	f := setUp(t, 1)
	alice, aliceSender := f.login(t, "alice")
	bob, bobSender := f.login(t, "bob")
	carol, carolSender := f.login(t, "carol")

	if left, err := f.qm.LeaveGame(alice); err != nil || left {
		t.Fatalf("LeaveGame() outside a match = %v, %v; want false, nil", left, err)
	}
	for _, id := range []int{alice, bob, carol} {
		_, _ = f.qm.QuickMatch(id)
	}
	if f.qm.Waiting() != 1 {
		t.Fatalf("expected carol to wait for a slot, got %d waiting", f.qm.Waiting())
	}

	left, err := f.qm.LeaveGame(alice)
	if err != nil || !left {
		t.Fatalf("LeaveGame() = %v, %v; want true, nil", left, err)
	}
	var answer packets.UserLeaveGameAnswer
	if !aliceSender.Find(&answer) || !answer.Left {
		t.Errorf("expected alice to be answered Left=true, got %+v", answer)
	}
	var opponentLeft packets.OpponentLeft
	if !bobSender.Find(&opponentLeft) {
		t.Errorf("expected bob to receive OPPONENT_LEFT")
	}
	if _, ok := f.qm.Game(alice); ok {
		t.Errorf("expected alice to be out of the match")
	}

	// The freed slot goes to carol once bob queues again.
	if queued, err := f.qm.QuickMatch(bob); err != nil || !queued {
		t.Fatalf("QuickMatch(bob) after leaving = %v, %v", queued, err)
	}
	var found packets.MatchFound
	if !carolSender.Find(&found) || found.Opponent != "bob" {
		t.Errorf("expected carol to be matched with bob, got %+v", found)
	}
}
