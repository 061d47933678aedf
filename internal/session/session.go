package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/hoo-game/hoo-server/internal/core/data"
	"github.com/hoo-game/hoo-server/internal/packets"
)

// State is the position of a session in the connection state machine. States
// are ordered: a session in a later state has passed every earlier one.
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
	LoggedIn
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "DISCONNECTED"
	case Connecting:
		return "CONNECTING"
	case Connected:
		return "CONNECTED"
	case LoggedIn:
		return "LOGGED_IN"
	}
	return fmt.Sprintf("STATE(%d)", int32(s))
}

// Sender is the transport side of a session.
type Sender interface {
	Send(env *packets.Envelope) error
	Close() error
}

// Session is the server-side state of one connection. Its fields are only
// mutated by the Manager while holding mu.
type Session struct {
	id int

	mu       sync.Mutex
	state    State
	class    packets.ProtocolClass
	sender   Sender
	account  *data.Account
	openedAt time.Time

	// Tracks disconnect hooks still running so the id is not reused under them.
	pending sync.WaitGroup
}

func (s *Session) ID() int { return s.id }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Class is the protocol class the session connected with.
func (s *Session) Class() packets.ProtocolClass {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.class
}

// Account returns a copy of the logged in account, or nil before login.
func (s *Session) Account() *data.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.account == nil {
		return nil
	}
	account := *s.account
	return &account
}

// Login returns the login of the logged in account or "" before login.
func (s *Session) Login() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.account == nil {
		return ""
	}
	return s.account.Login
}

// UpdateAccount replaces the session's copy of its account after the store changed it.
func (s *Session) UpdateAccount(account *data.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == LoggedIn {
		copied := *account
		s.account = &copied
	}
}

func (s *Session) reset() {
	s.state = Disconnected
	s.class = 0
	s.sender = nil
	s.account = nil
	s.openedAt = time.Time{}
}

// AccountInfo builds the account summary sent to a client after login.
func AccountInfo(account *data.Account) packets.AccountInfo {
	info := packets.AccountInfo{
		Login:      account.Login,
		Experience: account.Experience,
	}
	for _, item := range account.Items {
		info.Items = append(info.Items, packets.Item{ID: item.ItemID, Equipped: item.Equipped})
	}
	for _, c := range account.Configurations {
		info.Configurations = append(info.Configurations, c.Name)
	}
	return info
}
