// Packets shared by every protocol class.
package packets

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/hoo-game/hoo-server/internal/core/bytes"
)

// ProtocolClass identifies one of the independent message families.
type ProtocolClass uint8

const (
	ClassUser    ProtocolClass = 1
	ClassAdmin   ProtocolClass = 2
	ClassUpdater ProtocolClass = 3
)

func (c ProtocolClass) String() string {
	switch c {
	case ClassUser:
		return "user"
	case ClassAdmin:
		return "admin"
	case ClassUpdater:
		return "updater"
	}
	return fmt.Sprintf("class(%d)", uint8(c))
}

const (
	// HeaderSize is the length of a frame header: uint32 size, uint8 class, uint16 type.
	HeaderSize = 7
	// MaxFrameSize bounds the size declared by a frame header.
	MaxFrameSize = 64 * 1024

	// AnswerFlag is set on the type code of every server-to-client message.
	AnswerFlag = 0x8000
)

// ErrMalformed is wrapped by every decoding failure.
var ErrMalformed = errors.New("malformed message")

// Envelope is one decoded message frame. SessionID is never sent on the wire,
// the server stamps it with the id of the connection the frame arrived on.
type Envelope struct {
	Class     ProtocolClass
	Type      uint16
	SessionID int
	Payload   []byte
}

// Message is implemented by every request and answer.
type Message interface {
	Class() ProtocolClass
	Type() uint16
	Write(w *bytes.Writer)
	Read(r *bytes.Reader) error
}

// Encode serializes msg into an envelope addressed to sessionID.
func Encode(sessionID int, msg Message) (*Envelope, error) {
	w := bytes.NewWriter()
	msg.Write(w)
	if err := w.Err(); err != nil {
		return nil, fmt.Errorf("error encoding %T: %w", msg, err)
	}
	return &Envelope{
		Class:     msg.Class(),
		Type:      msg.Type(),
		SessionID: sessionID,
		Payload:   w.Bytes(),
	}, nil
}

// Decode reads the envelope payload into msg. The payload must be consumed exactly.
func Decode(env *Envelope, msg Message) error {
	if env.Class != msg.Class() || env.Type != msg.Type() {
		return fmt.Errorf("%w: envelope %s/%#04x does not carry %T", ErrMalformed, env.Class, env.Type, msg)
	}
	r := bytes.NewReader(env.Payload)
	if err := msg.Read(r); err != nil {
		return fmt.Errorf("%w: %T: %v", ErrMalformed, msg, err)
	}
	if r.Remaining() != 0 {
		return fmt.Errorf("%w: %T: %d trailing bytes", ErrMalformed, msg, r.Remaining())
	}
	return nil
}

// MarshalFrame returns the wire representation of env.
func MarshalFrame(env *Envelope) ([]byte, error) {
	size := HeaderSize + len(env.Payload)
	if size > MaxFrameSize {
		return nil, fmt.Errorf("frame of %d bytes exceeds maximum of %d", size, MaxFrameSize)
	}
	frame := make([]byte, HeaderSize, size)
	binary.LittleEndian.PutUint32(frame[0:4], uint32(size))
	frame[4] = byte(env.Class)
	binary.LittleEndian.PutUint16(frame[5:7], env.Type)
	return append(frame, env.Payload...), nil
}

// ParseHeader validates a frame header and returns the total frame size.
func ParseHeader(header []byte) (size int, class ProtocolClass, typ uint16, err error) {
	if len(header) < HeaderSize {
		return 0, 0, 0, fmt.Errorf("%w: short header", ErrMalformed)
	}
	size = int(binary.LittleEndian.Uint32(header[0:4]))
	if size < HeaderSize || size > MaxFrameSize {
		return 0, 0, 0, fmt.Errorf("%w: frame size %d", ErrMalformed, size)
	}
	return size, ProtocolClass(header[4]), binary.LittleEndian.Uint16(header[5:7]), nil
}

// DisconnectReason is sent to a client right before the server drops its connection.
type DisconnectReason uint8

const (
	ReasonNone DisconnectReason = iota
	ReasonNotLoggedIn
	ReasonSessionNotOpened
	ReasonInvalidMessage
	ReasonAlreadyConnected
	ReasonAlreadyLoggedIn
	ReasonNotAdmin
	ReasonServerFull
	ReasonServerShutdown
	ReasonAccountBanned
	ReasonInternalError
	ReasonClientClosed
)

var reasonNames = map[DisconnectReason]string{
	ReasonNone:             "NONE",
	ReasonNotLoggedIn:      "NOT_LOGGED_IN",
	ReasonSessionNotOpened: "SESSION_NOT_OPENED",
	ReasonInvalidMessage:   "INVALID_MESSAGE",
	ReasonAlreadyConnected: "ALREADY_CONNECTED",
	ReasonAlreadyLoggedIn:  "ALREADY_LOGGED_IN",
	ReasonNotAdmin:         "NOT_ADMIN",
	ReasonServerFull:       "SERVER_FULL",
	ReasonServerShutdown:   "SERVER_SHUTDOWN",
	ReasonAccountBanned:    "ACCOUNT_BANNED",
	ReasonInternalError:    "INTERNAL_ERROR",
	ReasonClientClosed:     "CLIENT_CLOSED",
}

func (r DisconnectReason) String() string {
	if name, ok := reasonNames[r]; ok {
		return name
	}
	return fmt.Sprintf("REASON(%d)", uint8(r))
}

// DisconnectType is the same in every protocol class.
const DisconnectType = AnswerFlag | 0x00FF

// Disconnect notifies the client of the reason its connection is being closed.
type Disconnect struct {
	ProtocolClass ProtocolClass
	Reason        DisconnectReason
}

func (m *Disconnect) Class() ProtocolClass {
	if m.ProtocolClass == 0 {
		return ClassUser
	}
	return m.ProtocolClass
}
func (m *Disconnect) Type() uint16          { return DisconnectType }
func (m *Disconnect) Write(w *bytes.Writer) { w.Uint8(uint8(m.Reason)) }
func (m *Disconnect) Read(r *bytes.Reader) error {
	v, err := r.Uint8()
	m.Reason = DisconnectReason(v)
	return err
}

// ConnectResult is the answer to a CONNECT style request.
type ConnectResult uint8

const (
	ConnectOK ConnectResult = iota
	VersionMismatch
)

func (c ConnectResult) String() string {
	if c == ConnectOK {
		return "CONNECT_OK"
	}
	return "VERSION_MISMATCH"
}

// LoginResult is the answer to the login style requests of the user and admin protocols.
type LoginResult uint8

const (
	LoginOK LoginResult = iota
	LoginBadLogin
	LoginBadPassword
	LoginAccountLocked
	LoginAccountBanned
	LoginNotAnAccount
	LoginNotAdmin
)

var loginResultNames = [...]string{"OK", "BAD_LOGIN", "BAD_PASSWORD", "ACCOUNT_LOCKED", "ACCOUNT_BANNED", "NOT_AN_ACCOUNT", "NOT_ADMIN"}

func (l LoginResult) String() string {
	if int(l) < len(loginResultNames) {
		return loginResultNames[l]
	}
	return fmt.Sprintf("LOGIN_RESULT(%d)", uint8(l))
}

// Item is one entry of an account's inventory.
type Item struct {
	ID       uint32
	Equipped bool
}

// AccountInfo is the account summary sent to a client once it has logged in.
type AccountInfo struct {
	Login          string
	Experience     uint64
	Items          []Item
	Configurations []string
}

func (a *AccountInfo) write(w *bytes.Writer) {
	w.String(a.Login)
	w.Uint64(a.Experience)
	writeItems(w, a.Items)
	w.Strings(a.Configurations)
}

func (a *AccountInfo) read(r *bytes.Reader) error {
	var err error
	if a.Login, err = r.String(); err != nil {
		return err
	}
	if a.Experience, err = r.Uint64(); err != nil {
		return err
	}
	if a.Items, err = readItems(r); err != nil {
		return err
	}
	a.Configurations, err = r.Strings()
	return err
}

func writeItems(w *bytes.Writer, items []Item) {
	w.Length(len(items))
	if len(items) > bytes.MaxLength {
		return
	}
	for _, item := range items {
		w.Uint32(item.ID)
		w.Bool(item.Equipped)
	}
}

func readItems(r *bytes.Reader) ([]Item, error) {
	n, err := r.Length()
	if err != nil || n == 0 {
		return nil, err
	}
	items := make([]Item, n)
	for i := range items {
		if items[i].ID, err = r.Uint32(); err != nil {
			return nil, err
		}
		if items[i].Equipped, err = r.Bool(); err != nil {
			return nil, err
		}
	}
	return items, nil
}
