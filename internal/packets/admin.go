package packets

import "github.com/hoo-game/hoo-server/internal/core/bytes"

// Message types of the admin protocol.
const (
	AdminConnectType       = 0x0001
	AdminLoginType         = 0x0002
	ServerStatsType        = 0x0003
	BanUsersType           = 0x0004
	LockAccountsType       = 0x0005
	GetLoginsType          = 0x0006
	SetActivationCodesType = 0x0007
	ShutdownServerType     = 0x0008
	SetItemsType           = 0x0009

	AdminConnectAnswerType       = AnswerFlag | AdminConnectType
	AdminLoginAnswerType         = AnswerFlag | AdminLoginType
	ServerStatsAnswerType        = AnswerFlag | ServerStatsType
	BanUsersAnswerType           = AnswerFlag | BanUsersType
	LockAccountsAnswerType       = AnswerFlag | LockAccountsType
	GetLoginsAnswerType          = AnswerFlag | GetLoginsType
	SetActivationCodesAnswerType = AnswerFlag | SetActivationCodesType
	ShutdownServerAnswerType     = AnswerFlag | ShutdownServerType
	SetItemsAnswerType           = AnswerFlag | SetItemsType
)

type adminMessage struct{}

func (adminMessage) Class() ProtocolClass { return ClassAdmin }

type AdminConnect struct {
	adminMessage
	Version uint32
}

func (m *AdminConnect) Type() uint16          { return AdminConnectType }
func (m *AdminConnect) Write(w *bytes.Writer) { w.Uint32(m.Version) }
func (m *AdminConnect) Read(r *bytes.Reader) (err error) {
	m.Version, err = r.Uint32()
	return err
}

type AdminConnectAnswer struct {
	adminMessage
	Result        ConnectResult
	ServerVersion uint32
}

func (m *AdminConnectAnswer) Type() uint16 { return AdminConnectAnswerType }
func (m *AdminConnectAnswer) Write(w *bytes.Writer) {
	w.Uint8(uint8(m.Result))
	w.Uint32(m.ServerVersion)
}
func (m *AdminConnectAnswer) Read(r *bytes.Reader) error {
	v, err := r.Uint8()
	if err != nil {
		return err
	}
	m.Result = ConnectResult(v)
	m.ServerVersion, err = r.Uint32()
	return err
}

type AdminLogin struct {
	adminMessage
	Login    string
	Password string
}

func (m *AdminLogin) Type() uint16 { return AdminLoginType }
func (m *AdminLogin) Write(w *bytes.Writer) {
	w.String(m.Login)
	w.String(m.Password)
}
func (m *AdminLogin) Read(r *bytes.Reader) (err error) {
	if m.Login, err = r.String(); err != nil {
		return err
	}
	m.Password, err = r.String()
	return err
}

type AdminLoginAnswer struct {
	adminMessage
	Result LoginResult
}

func (m *AdminLoginAnswer) Type() uint16          { return AdminLoginAnswerType }
func (m *AdminLoginAnswer) Write(w *bytes.Writer) { w.Uint8(uint8(m.Result)) }
func (m *AdminLoginAnswer) Read(r *bytes.Reader) error {
	v, err := r.Uint8()
	m.Result = LoginResult(v)
	return err
}

type ServerStats struct{ adminMessage }

func (m *ServerStats) Type() uint16             { return ServerStatsType }
func (m *ServerStats) Write(*bytes.Writer)      {}
func (m *ServerStats) Read(*bytes.Reader) error { return nil }

type ServerStatsAnswer struct {
	adminMessage
	Capacity      uint32
	Connected     uint32
	LoggedIn      uint32
	ActiveGames   uint32
	Waiting       uint32
	UptimeSeconds uint64
}

func (m *ServerStatsAnswer) Type() uint16 { return ServerStatsAnswerType }
func (m *ServerStatsAnswer) Write(w *bytes.Writer) {
	w.Uint32(m.Capacity)
	w.Uint32(m.Connected)
	w.Uint32(m.LoggedIn)
	w.Uint32(m.ActiveGames)
	w.Uint32(m.Waiting)
	w.Uint64(m.UptimeSeconds)
}
func (m *ServerStatsAnswer) Read(r *bytes.Reader) (err error) {
	for _, field := range []*uint32{&m.Capacity, &m.Connected, &m.LoggedIn, &m.ActiveGames, &m.Waiting} {
		if *field, err = r.Uint32(); err != nil {
			return err
		}
	}
	m.UptimeSeconds, err = r.Uint64()
	return err
}

// BanUsers bans every login for Days days. Zero bans permanently and -1 lifts a ban.
type BanUsers struct {
	adminMessage
	Logins []string
	Days   int32
}

func (m *BanUsers) Type() uint16 { return BanUsersType }
func (m *BanUsers) Write(w *bytes.Writer) {
	w.Strings(m.Logins)
	w.Int32(m.Days)
}
func (m *BanUsers) Read(r *bytes.Reader) (err error) {
	if m.Logins, err = r.Strings(); err != nil {
		return err
	}
	m.Days, err = r.Int32()
	return err
}

// BatchAnswer reports which logins of a batch admin request were updated.
type BatchAnswer struct {
	Updated []string
	Failed  []string
}

func (m *BatchAnswer) Write(w *bytes.Writer) {
	w.Strings(m.Updated)
	w.Strings(m.Failed)
}
func (m *BatchAnswer) Read(r *bytes.Reader) (err error) {
	if m.Updated, err = r.Strings(); err != nil {
		return err
	}
	m.Failed, err = r.Strings()
	return err
}

type BanUsersAnswer struct {
	adminMessage
	BatchAnswer
}

func (m *BanUsersAnswer) Type() uint16 { return BanUsersAnswerType }

type LockAccounts struct {
	adminMessage
	Logins []string
	Lock   bool
}

func (m *LockAccounts) Type() uint16 { return LockAccountsType }
func (m *LockAccounts) Write(w *bytes.Writer) {
	w.Strings(m.Logins)
	w.Bool(m.Lock)
}
func (m *LockAccounts) Read(r *bytes.Reader) (err error) {
	if m.Logins, err = r.Strings(); err != nil {
		return err
	}
	m.Lock, err = r.Bool()
	return err
}

type LockAccountsAnswer struct {
	adminMessage
	BatchAnswer
}

func (m *LockAccountsAnswer) Type() uint16 { return LockAccountsAnswerType }

type GetLogins struct {
	adminMessage
	Mail string
}

func (m *GetLogins) Type() uint16          { return GetLoginsType }
func (m *GetLogins) Write(w *bytes.Writer) { w.String(m.Mail) }
func (m *GetLogins) Read(r *bytes.Reader) (err error) {
	m.Mail, err = r.String()
	return err
}

type GetLoginsAnswer struct {
	adminMessage
	Logins []string
}

func (m *GetLoginsAnswer) Type() uint16          { return GetLoginsAnswerType }
func (m *GetLoginsAnswer) Write(w *bytes.Writer) { w.Strings(m.Logins) }
func (m *GetLoginsAnswer) Read(r *bytes.Reader) (err error) {
	m.Logins, err = r.Strings()
	return err
}

// SetActivationCodes assigns Codes[i] to Logins[i], valid until Expires (unix seconds).
type SetActivationCodes struct {
	adminMessage
	Logins  []string
	Codes   []string
	Expires int64
}

func (m *SetActivationCodes) Type() uint16 { return SetActivationCodesType }
func (m *SetActivationCodes) Write(w *bytes.Writer) {
	w.Strings(m.Logins)
	w.Strings(m.Codes)
	w.Int64(m.Expires)
}
func (m *SetActivationCodes) Read(r *bytes.Reader) (err error) {
	if m.Logins, err = r.Strings(); err != nil {
		return err
	}
	if m.Codes, err = r.Strings(); err != nil {
		return err
	}
	m.Expires, err = r.Int64()
	return err
}

type SetActivationCodesAnswer struct {
	adminMessage
	OK bool
}

func (m *SetActivationCodesAnswer) Type() uint16          { return SetActivationCodesAnswerType }
func (m *SetActivationCodesAnswer) Write(w *bytes.Writer) { w.Bool(m.OK) }
func (m *SetActivationCodesAnswer) Read(r *bytes.Reader) (err error) {
	m.OK, err = r.Bool()
	return err
}

type ShutdownServer struct{ adminMessage }

func (m *ShutdownServer) Type() uint16             { return ShutdownServerType }
func (m *ShutdownServer) Write(*bytes.Writer)      {}
func (m *ShutdownServer) Read(*bytes.Reader) error { return nil }

type ShutdownServerAnswer struct{ adminMessage }

func (m *ShutdownServerAnswer) Type() uint16             { return ShutdownServerAnswerType }
func (m *ShutdownServerAnswer) Write(*bytes.Writer)      {}
func (m *ShutdownServerAnswer) Read(*bytes.Reader) error { return nil }

// SetItems replaces the inventory of an account.
type SetItems struct {
	adminMessage
	Login string
	Items []Item
}

func (m *SetItems) Type() uint16 { return SetItemsType }
func (m *SetItems) Write(w *bytes.Writer) {
	w.String(m.Login)
	writeItems(w, m.Items)
}
func (m *SetItems) Read(r *bytes.Reader) (err error) {
	if m.Login, err = r.String(); err != nil {
		return err
	}
	m.Items, err = readItems(r)
	return err
}

type SetItemsAnswer struct {
	adminMessage
	OK bool
}

func (m *SetItemsAnswer) Type() uint16          { return SetItemsAnswerType }
func (m *SetItemsAnswer) Write(w *bytes.Writer) { w.Bool(m.OK) }
func (m *SetItemsAnswer) Read(r *bytes.Reader) (err error) {
	m.OK, err = r.Bool()
	return err
}
