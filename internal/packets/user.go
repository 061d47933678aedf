package packets

import "github.com/hoo-game/hoo-server/internal/core/bytes"

// Message types of the user protocol. Every answer type is its request type with AnswerFlag set.
const (
	ConnectType               = 0x0001
	UserLoginType             = 0x0002
	UserLoginAcCodeType       = 0x0003
	CheckLoginAvailableType   = 0x0004
	CreateAccountType         = 0x0005
	UserQuickMatchType        = 0x0006
	UserCancelQuickMatchType  = 0x0007
	UserSelectCharacterType   = 0x0008
	UserSaveConfigurationType = 0x0009
	UserGetConfigurationsType = 0x000A
	UserLeaveGameType         = 0x000B

	ConnectAnswerType               = AnswerFlag | ConnectType
	UserLoginAnswerType             = AnswerFlag | UserLoginType
	UserLoginAcCodeAnswerType       = AnswerFlag | UserLoginAcCodeType
	CheckLoginAvailableAnswerType   = AnswerFlag | CheckLoginAvailableType
	CreateAccountAnswerType         = AnswerFlag | CreateAccountType
	UserQuickMatchAnswerType        = AnswerFlag | UserQuickMatchType
	UserCancelQuickMatchAnswerType  = AnswerFlag | UserCancelQuickMatchType
	UserSelectCharacterAnswerType   = AnswerFlag | UserSelectCharacterType
	UserSaveConfigurationAnswerType = AnswerFlag | UserSaveConfigurationType
	UserGetConfigurationsAnswerType = AnswerFlag | UserGetConfigurationsType
	UserLeaveGameAnswerType         = AnswerFlag | UserLeaveGameType

	// Sent by the server without a matching request.
	MatchFoundType   = AnswerFlag | 0x0100
	OpponentLeftType = AnswerFlag | 0x0101
	MatchEndedType   = AnswerFlag | 0x0102
)

type userMessage struct{}

func (userMessage) Class() ProtocolClass { return ClassUser }

type Connect struct {
	userMessage
	Version uint32
}

func (m *Connect) Type() uint16          { return ConnectType }
func (m *Connect) Write(w *bytes.Writer) { w.Uint32(m.Version) }
func (m *Connect) Read(r *bytes.Reader) (err error) {
	m.Version, err = r.Uint32()
	return err
}

type ConnectAnswer struct {
	userMessage
	Result        ConnectResult
	ServerVersion uint32
}

func (m *ConnectAnswer) Type() uint16 { return ConnectAnswerType }
func (m *ConnectAnswer) Write(w *bytes.Writer) {
	w.Uint8(uint8(m.Result))
	w.Uint32(m.ServerVersion)
}
func (m *ConnectAnswer) Read(r *bytes.Reader) error {
	v, err := r.Uint8()
	if err != nil {
		return err
	}
	m.Result = ConnectResult(v)
	m.ServerVersion, err = r.Uint32()
	return err
}

type UserLogin struct {
	userMessage
	Login    string
	Password string
}

func (m *UserLogin) Type() uint16 { return UserLoginType }
func (m *UserLogin) Write(w *bytes.Writer) {
	w.String(m.Login)
	w.String(m.Password)
}
func (m *UserLogin) Read(r *bytes.Reader) (err error) {
	if m.Login, err = r.String(); err != nil {
		return err
	}
	m.Password, err = r.String()
	return err
}

// UserLoginAnswer carries the account summary only when Result is LoginOK.
type UserLoginAnswer struct {
	userMessage
	Result  LoginResult
	Account AccountInfo
}

func (m *UserLoginAnswer) Type() uint16 { return UserLoginAnswerType }
func (m *UserLoginAnswer) Write(w *bytes.Writer) {
	w.Uint8(uint8(m.Result))
	if m.Result == LoginOK {
		m.Account.write(w)
	}
}
func (m *UserLoginAnswer) Read(r *bytes.Reader) error {
	v, err := r.Uint8()
	if err != nil {
		return err
	}
	m.Result = LoginResult(v)
	if m.Result == LoginOK {
		return m.Account.read(r)
	}
	return nil
}

// UserLoginAcCode logs in with an activation code instead of a password.
type UserLoginAcCode struct {
	userMessage
	Login string
	Code  string
}

func (m *UserLoginAcCode) Type() uint16 { return UserLoginAcCodeType }
func (m *UserLoginAcCode) Write(w *bytes.Writer) {
	w.String(m.Login)
	w.String(m.Code)
}
func (m *UserLoginAcCode) Read(r *bytes.Reader) (err error) {
	if m.Login, err = r.String(); err != nil {
		return err
	}
	m.Code, err = r.String()
	return err
}

type UserLoginAcCodeAnswer struct {
	UserLoginAnswer
}

func (m *UserLoginAcCodeAnswer) Type() uint16 { return UserLoginAcCodeAnswerType }

type CheckLoginAvailable struct {
	userMessage
	Login string
}

func (m *CheckLoginAvailable) Type() uint16          { return CheckLoginAvailableType }
func (m *CheckLoginAvailable) Write(w *bytes.Writer) { w.String(m.Login) }
func (m *CheckLoginAvailable) Read(r *bytes.Reader) (err error) {
	m.Login, err = r.String()
	return err
}

type CheckLoginAvailableAnswer struct {
	userMessage
	Available bool
}

func (m *CheckLoginAvailableAnswer) Type() uint16          { return CheckLoginAvailableAnswerType }
func (m *CheckLoginAvailableAnswer) Write(w *bytes.Writer) { w.Bool(m.Available) }
func (m *CheckLoginAvailableAnswer) Read(r *bytes.Reader) (err error) {
	m.Available, err = r.Bool()
	return err
}

type CreateAccount struct {
	userMessage
	Login    string
	Password string
	Mail     string
}

func (m *CreateAccount) Type() uint16 { return CreateAccountType }
func (m *CreateAccount) Write(w *bytes.Writer) {
	w.String(m.Login)
	w.String(m.Password)
	w.String(m.Mail)
}
func (m *CreateAccount) Read(r *bytes.Reader) (err error) {
	if m.Login, err = r.String(); err != nil {
		return err
	}
	if m.Password, err = r.String(); err != nil {
		return err
	}
	m.Mail, err = r.String()
	return err
}

type CreateAccountResult uint8

const (
	CreateAccountOK CreateAccountResult = iota
	CreateAccountLoginUnavailable
	CreateAccountBadLogin
	CreateAccountBadMail
)

type CreateAccountAnswer struct {
	userMessage
	Result CreateAccountResult
}

func (m *CreateAccountAnswer) Type() uint16          { return CreateAccountAnswerType }
func (m *CreateAccountAnswer) Write(w *bytes.Writer) { w.Uint8(uint8(m.Result)) }
func (m *CreateAccountAnswer) Read(r *bytes.Reader) error {
	v, err := r.Uint8()
	m.Result = CreateAccountResult(v)
	return err
}

type UserQuickMatch struct{ userMessage }

func (m *UserQuickMatch) Type() uint16             { return UserQuickMatchType }
func (m *UserQuickMatch) Write(*bytes.Writer)      {}
func (m *UserQuickMatch) Read(*bytes.Reader) error { return nil }

type QuickMatchResult uint8

const (
	LookingForOpponent QuickMatchResult = iota
	AlreadyLookingForOpponent
)

type UserQuickMatchAnswer struct {
	userMessage
	Result QuickMatchResult
}

func (m *UserQuickMatchAnswer) Type() uint16          { return UserQuickMatchAnswerType }
func (m *UserQuickMatchAnswer) Write(w *bytes.Writer) { w.Uint8(uint8(m.Result)) }
func (m *UserQuickMatchAnswer) Read(r *bytes.Reader) error {
	v, err := r.Uint8()
	m.Result = QuickMatchResult(v)
	return err
}

type UserCancelQuickMatch struct{ userMessage }

func (m *UserCancelQuickMatch) Type() uint16             { return UserCancelQuickMatchType }
func (m *UserCancelQuickMatch) Write(*bytes.Writer)      {}
func (m *UserCancelQuickMatch) Read(*bytes.Reader) error { return nil }

type CancelQuickMatchResult uint8

const (
	QuickMatchCancelled CancelQuickMatchResult = iota
	NotLookingForOpponent
)

type UserCancelQuickMatchAnswer struct {
	userMessage
	Result CancelQuickMatchResult
}

func (m *UserCancelQuickMatchAnswer) Type() uint16          { return UserCancelQuickMatchAnswerType }
func (m *UserCancelQuickMatchAnswer) Write(w *bytes.Writer) { w.Uint8(uint8(m.Result)) }
func (m *UserCancelQuickMatchAnswer) Read(r *bytes.Reader) error {
	v, err := r.Uint8()
	m.Result = CancelQuickMatchResult(v)
	return err
}

type UserSelectCharacter struct {
	userMessage
	Character uint32
}

func (m *UserSelectCharacter) Type() uint16          { return UserSelectCharacterType }
func (m *UserSelectCharacter) Write(w *bytes.Writer) { w.Uint32(m.Character) }
func (m *UserSelectCharacter) Read(r *bytes.Reader) (err error) {
	m.Character, err = r.Uint32()
	return err
}

type SelectCharacterResult uint8

const (
	SelectCharacterOK SelectCharacterResult = iota
	SelectCharacterInvalid
)

type UserSelectCharacterAnswer struct {
	userMessage
	Result    SelectCharacterResult
	Character uint32
}

func (m *UserSelectCharacterAnswer) Type() uint16 { return UserSelectCharacterAnswerType }
func (m *UserSelectCharacterAnswer) Write(w *bytes.Writer) {
	w.Uint8(uint8(m.Result))
	w.Uint32(m.Character)
}
func (m *UserSelectCharacterAnswer) Read(r *bytes.Reader) error {
	v, err := r.Uint8()
	if err != nil {
		return err
	}
	m.Result = SelectCharacterResult(v)
	m.Character, err = r.Uint32()
	return err
}

// Configuration is a named saved configuration (e.g. a deck or a loadout).
type Configuration struct {
	Name string
	Data []uint32
}

type UserSaveConfiguration struct {
	userMessage
	Configuration
}

func (m *UserSaveConfiguration) Type() uint16 { return UserSaveConfigurationType }
func (m *UserSaveConfiguration) Write(w *bytes.Writer) {
	w.String(m.Name)
	w.Uint32s(m.Data)
}
func (m *UserSaveConfiguration) Read(r *bytes.Reader) (err error) {
	if m.Name, err = r.String(); err != nil {
		return err
	}
	m.Data, err = r.Uint32s()
	return err
}

type SaveConfigurationResult uint8

const (
	SaveConfigurationOK SaveConfigurationResult = iota
	SaveConfigurationBadName
	SaveConfigurationTooMany
)

type UserSaveConfigurationAnswer struct {
	userMessage
	Result SaveConfigurationResult
}

func (m *UserSaveConfigurationAnswer) Type() uint16          { return UserSaveConfigurationAnswerType }
func (m *UserSaveConfigurationAnswer) Write(w *bytes.Writer) { w.Uint8(uint8(m.Result)) }
func (m *UserSaveConfigurationAnswer) Read(r *bytes.Reader) error {
	v, err := r.Uint8()
	m.Result = SaveConfigurationResult(v)
	return err
}

type UserGetConfigurations struct{ userMessage }

func (m *UserGetConfigurations) Type() uint16             { return UserGetConfigurationsType }
func (m *UserGetConfigurations) Write(*bytes.Writer)      {}
func (m *UserGetConfigurations) Read(*bytes.Reader) error { return nil }

type UserGetConfigurationsAnswer struct {
	userMessage
	Configurations []Configuration
}

func (m *UserGetConfigurationsAnswer) Type() uint16 { return UserGetConfigurationsAnswerType }
func (m *UserGetConfigurationsAnswer) Write(w *bytes.Writer) {
	w.Length(len(m.Configurations))
	if len(m.Configurations) > bytes.MaxLength {
		return
	}
	for _, c := range m.Configurations {
		w.String(c.Name)
		w.Uint32s(c.Data)
	}
}
func (m *UserGetConfigurationsAnswer) Read(r *bytes.Reader) error {
	n, err := r.Length()
	if err != nil {
		return err
	}
	m.Configurations = make([]Configuration, n)
	for i := range m.Configurations {
		if m.Configurations[i].Name, err = r.String(); err != nil {
			return err
		}
		if m.Configurations[i].Data, err = r.Uint32s(); err != nil {
			return err
		}
	}
	return nil
}

// MatchFound tells both paired sessions which game slot hosts their match.
type MatchFound struct {
	userMessage
	GameID   uint32
	Seat     uint8
	Opponent string
}

func (m *MatchFound) Type() uint16 { return MatchFoundType }
func (m *MatchFound) Write(w *bytes.Writer) {
	w.Uint32(m.GameID)
	w.Uint8(m.Seat)
	w.String(m.Opponent)
}
func (m *MatchFound) Read(r *bytes.Reader) (err error) {
	if m.GameID, err = r.Uint32(); err != nil {
		return err
	}
	if m.Seat, err = r.Uint8(); err != nil {
		return err
	}
	m.Opponent, err = r.String()
	return err
}

// OpponentLeft ends a match whose other player disconnected.
type OpponentLeft struct {
	userMessage
	GameID uint32
}

func (m *OpponentLeft) Type() uint16          { return OpponentLeftType }
func (m *OpponentLeft) Write(w *bytes.Writer) { w.Uint32(m.GameID) }
func (m *OpponentLeft) Read(r *bytes.Reader) (err error) {
	m.GameID, err = r.Uint32()
	return err
}

// UserLeaveGame forfeits the match the session is playing.
type UserLeaveGame struct{ userMessage }

func (m *UserLeaveGame) Type() uint16             { return UserLeaveGameType }
func (m *UserLeaveGame) Write(*bytes.Writer)      {}
func (m *UserLeaveGame) Read(*bytes.Reader) error { return nil }

type UserLeaveGameAnswer struct {
	userMessage
	// False when the session was not in a match.
	Left bool
}

func (m *UserLeaveGameAnswer) Type() uint16          { return UserLeaveGameAnswerType }
func (m *UserLeaveGameAnswer) Write(w *bytes.Writer) { w.Bool(m.Left) }
func (m *UserLeaveGameAnswer) Read(r *bytes.Reader) (err error) {
	m.Left, err = r.Bool()
	return err
}

// MatchEnded is sent to every player once the game engine has finished their match.
type MatchEnded struct {
	userMessage
	GameID uint32
}

func (m *MatchEnded) Type() uint16          { return MatchEndedType }
func (m *MatchEnded) Write(w *bytes.Writer) { w.Uint32(m.GameID) }
func (m *MatchEnded) Read(r *bytes.Reader) (err error) {
	m.GameID, err = r.Uint32()
	return err
}
