package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hoo-game/hoo-server/internal/core/auth"
	"github.com/hoo-game/hoo-server/internal/core/data"
	"github.com/hoo-game/hoo-server/internal/core/debug"
	"github.com/hoo-game/hoo-server/internal/core/metrics"
	"github.com/hoo-game/hoo-server/internal/packets"
	"github.com/sirupsen/logrus"
)

// DisconnectHook is run once for every session leaving a non-DISCONNECTED state.
// Hooks run without any session lock held.
type DisconnectHook func(id int)

// Manager owns every session. Sessions are pre-allocated and identified by
// 0..capacity-1; an id returns to the free list once its connection is released.
type Manager struct {
	protocolVersion uint32
	store           auth.AccountStore
	logger          *logrus.Logger
	metrics         *metrics.Metrics

	sessions []*Session

	freeMu sync.Mutex
	free   []int

	hooks []DisconnectHook
}

func NewManager(capacity int, protocolVersion uint32, store auth.AccountStore, logger *logrus.Logger, m *metrics.Metrics) *Manager {
	mgr := &Manager{
		protocolVersion: protocolVersion,
		store:           store,
		logger:          logger,
		metrics:         m,
		sessions:        make([]*Session, capacity),
		free:            make([]int, capacity),
	}
	for i := range mgr.sessions {
		mgr.sessions[i] = &Session{id: i}
		// Lowest ids are handed out first.
		mgr.free[i] = capacity - 1 - i
	}
	return mgr
}

func (m *Manager) Capacity() int { return len(m.sessions) }

// OnDisconnect registers a hook. Hooks must be registered before the first
// connection is opened.
func (m *Manager) OnDisconnect(hook DisconnectHook) {
	m.hooks = append(m.hooks, hook)
}

// Open assigns a free session to a newly accepted connection and moves it to
// CONNECTING. It returns false when every session is in use.
func (m *Manager) Open(sender Sender) (*Session, bool) {
	m.freeMu.Lock()
	if len(m.free) == 0 {
		m.freeMu.Unlock()
		return nil, false
	}
	id := m.free[len(m.free)-1]
	m.free = m.free[:len(m.free)-1]
	m.freeMu.Unlock()

	s := m.sessions[id]
	s.mu.Lock()
	s.state = Connecting
	s.sender = sender
	s.openedAt = time.Now()
	s.mu.Unlock()
	return s, true
}

// Release resets a disconnected session and returns its id to the free list.
// Only the owner of the connection may call it, after Disconnect.
func (m *Manager) Release(s *Session) {
	s.pending.Wait()

	s.mu.Lock()
	if s.state != Disconnected || s.sender == nil {
		s.mu.Unlock()
		m.logger.Warnf("session %d released while %s", s.id, s.state)
		return
	}
	s.reset()
	s.mu.Unlock()

	m.freeMu.Lock()
	m.free = append(m.free, s.id)
	m.freeMu.Unlock()
}

// GetSession returns the session for id or ErrInvalidSessionID.
func (m *Manager) GetSession(id int) (*Session, error) {
	if id < 0 || id >= len(m.sessions) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSessionID, id)
	}
	return m.sessions[id], nil
}

// CheckClass rejects a message whose protocol class differs from the one the
// session connected with.
func (m *Manager) CheckClass(id int, class packets.ProtocolClass) error {
	s, err := m.GetSession(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state >= Connected && s.class != class {
		return Violation(id, packets.ReasonInvalidMessage, "class "+class.String())
	}
	return nil
}

// Connect compares the client's protocol version and moves the session from
// CONNECTING to CONNECTED. A version mismatch leaves the state unchanged. The
// updater class connects with any version since its job is upgrading clients.
// A DISCONNECTED id has no open connection behind it, so CONNECT on it is a
// SESSION_NOT_OPENED violation rather than a reconnect; the client must open a
// new connection to get a session.
func (m *Manager) Connect(id int, class packets.ProtocolClass, version uint32) (packets.ConnectResult, error) {
	const op = "connect"
	s, err := m.GetSession(id)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case Disconnected:
		return 0, Violation(id, packets.ReasonSessionNotOpened, op)
	case Connected, LoggedIn:
		return 0, Violation(id, packets.ReasonAlreadyConnected, op)
	}

	if class != packets.ClassUpdater && version != m.protocolVersion {
		m.logger.Infof("session %d: %s client version %d does not match %d", id, class, version, m.protocolVersion)
		return packets.VersionMismatch, nil
	}
	s.class = class
	s.state = Connected
	return packets.ConnectOK, nil
}

// Login authenticates the session with a password. The session must be
// CONNECTED; it moves to LOGGED_IN only on LoginOK.
func (m *Manager) Login(ctx context.Context, id int, login, password string) (packets.LoginResult, *data.Account, error) {
	return m.login(id, "login", false, func() (*data.Account, error) {
		return m.store.Login(ctx, login, password)
	})
}

// LoginAcCode authenticates the session with an activation code.
func (m *Manager) LoginAcCode(ctx context.Context, id int, login, code string) (packets.LoginResult, *data.Account, error) {
	return m.login(id, "login with activation code", false, func() (*data.Account, error) {
		return m.store.LoginAcCode(ctx, login, code)
	})
}

// AdminLogin is Login restricted to accounts flagged as administrators.
func (m *Manager) AdminLogin(ctx context.Context, id int, login, password string) (packets.LoginResult, *data.Account, error) {
	return m.login(id, "admin login", true, func() (*data.Account, error) {
		return m.store.Login(ctx, login, password)
	})
}

func (m *Manager) login(id int, op string, adminOnly bool, authenticate func() (*data.Account, error)) (packets.LoginResult, *data.Account, error) {
	s, err := m.GetSession(id)
	if err != nil {
		return 0, nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case Disconnected, Connecting:
		return 0, nil, Violation(id, packets.ReasonSessionNotOpened, op)
	case LoggedIn:
		return 0, nil, Violation(id, packets.ReasonAlreadyLoggedIn, op)
	}

	account, err := authenticate()
	if err != nil {
		if result, ok := loginResult(err); ok {
			return result, nil, nil
		}
		return 0, nil, fmt.Errorf("session %d: error during %s: %w", id, op, err)
	}
	if adminOnly && !account.Admin {
		return packets.LoginNotAdmin, nil, nil
	}

	s.account = account
	s.state = LoggedIn
	m.logger.Infof("session %d: %s logged in", id, account.Login)
	copied := *account
	return packets.LoginOK, &copied, nil
}

func loginResult(err error) (packets.LoginResult, bool) {
	switch {
	case errors.Is(err, auth.ErrBadLogin):
		return packets.LoginBadLogin, true
	case errors.Is(err, auth.ErrNoAccount):
		return packets.LoginNotAnAccount, true
	case errors.Is(err, auth.ErrBadPassword):
		return packets.LoginBadPassword, true
	case errors.Is(err, auth.ErrAccountLocked):
		return packets.LoginAccountLocked, true
	case errors.Is(err, auth.ErrAccountBanned):
		return packets.LoginAccountBanned, true
	}
	return 0, false
}

// Require returns the session if it has reached at least the state min. A
// session short of LOGGED_IN violates with NOT_LOGGED_IN and one short of
// CONNECTED with SESSION_NOT_OPENED.
func (m *Manager) Require(id int, min State, op string) (*Session, error) {
	s, err := m.GetSession(id)
	if err != nil {
		return nil, err
	}
	state := s.State()
	switch {
	case state >= min:
		return s, nil
	case min == LoggedIn:
		return nil, Violation(id, packets.ReasonNotLoggedIn, op)
	default:
		return nil, Violation(id, packets.ReasonSessionNotOpened, op)
	}
}

// RequireAdmin is Require(LoggedIn) for an administrator account.
func (m *Manager) RequireAdmin(id int, op string) (*Session, error) {
	s, err := m.Require(id, LoggedIn, op)
	if err != nil {
		return nil, err
	}
	if account := s.Account(); account == nil || !account.Admin {
		return nil, Violation(id, packets.ReasonNotAdmin, op)
	}
	return s, nil
}

// SendAnswer encodes msg and hands it to the session's transport.
func (m *Manager) SendAnswer(id int, msg packets.Message) error {
	s, err := m.GetSession(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	sender := s.sender
	state := s.state
	s.mu.Unlock()

	if state == Disconnected || sender == nil {
		return fmt.Errorf("session %d: cannot send %T while %s", id, msg, state)
	}
	return m.send(sender, id, msg)
}

func (m *Manager) send(sender Sender, id int, msg packets.Message) error {
	env, err := packets.Encode(id, msg)
	if err != nil {
		return err
	}
	debug.LogMessage(m.logger, "send", id, msg)
	return sender.Send(env)
}

// Disconnect moves the session to DISCONNECTED, runs the disconnect hooks,
// tells the client why (unless it already went away) and closes the transport.
// Calls on a session that is already DISCONNECTED do nothing.
func (m *Manager) Disconnect(id int, reason packets.DisconnectReason) {
	s, err := m.GetSession(id)
	if err != nil {
		m.logger.Errorf("disconnect: %v", err)
		return
	}

	s.mu.Lock()
	if s.state == Disconnected {
		s.mu.Unlock()
		return
	}
	s.state = Disconnected
	s.pending.Add(1)
	class, sender, login := s.class, s.sender, ""
	if s.account != nil {
		login = s.account.Login
	}
	s.mu.Unlock()
	defer s.pending.Done()

	for _, hook := range m.hooks {
		hook(id)
	}

	if reason != packets.ReasonNone && reason != packets.ReasonClientClosed {
		if err := m.send(sender, id, &packets.Disconnect{ProtocolClass: class, Reason: reason}); err != nil {
			m.logger.Debugf("session %d: error sending disconnect: %v", id, err)
		}
	}
	if err := sender.Close(); err != nil {
		m.logger.Debugf("session %d: error closing connection: %v", id, err)
	}

	m.metrics.Disconnected(reason.String())
	m.logger.WithFields(logrus.Fields{"session": id, "login": login}).Infof("disconnected: %s", reason)
}

// DisconnectAll disconnects every open session with reason.
func (m *Manager) DisconnectAll(reason packets.DisconnectReason) {
	for _, s := range m.sessions {
		if s.State() != Disconnected {
			m.Disconnect(s.id, reason)
		}
	}
}

// FindByLogin returns the ids of the sessions logged in with login.
func (m *Manager) FindByLogin(login string) []int {
	key := data.LoginKey(login)
	var ids []int
	for _, s := range m.sessions {
		s.mu.Lock()
		if s.state == LoggedIn && s.account != nil && s.account.LoginKey == key {
			ids = append(ids, s.id)
		}
		s.mu.Unlock()
	}
	return ids
}

// Stats counts sessions per state.
type Stats struct {
	Open      int
	Connected int
	LoggedIn  int
}

func (m *Manager) Stats() Stats {
	var stats Stats
	for _, s := range m.sessions {
		switch s.State() {
		case LoggedIn:
			stats.LoggedIn++
			fallthrough
		case Connected:
			stats.Connected++
			fallthrough
		case Connecting:
			stats.Open++
		}
	}
	return stats
}
